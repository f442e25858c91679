package fanout

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"

	"github.com/gowebpki/jcs"

	"github.com/ppiankov/chorus/internal/model"
)

// fingerprintInput is the part of a request that determines its answers.
// Credentials are deliberately absent.
type fingerprintInput struct {
	Prompt       string                                      `json:"prompt"`
	Providers    []model.ProviderName                        `json:"providers"`
	SystemPrompt string                                      `json:"systemPrompt"`
	UseRetrieval bool                                        `json:"useRetrieval"`
	Configs      map[model.ProviderName]model.ProviderConfig `json:"configs,omitempty"`
}

// Fingerprint returns a stable digest of a run request: the SHA-256 of its
// RFC 8785 canonical JSON. Equal requests give equal fingerprints regardless
// of map ordering or API keys.
func Fingerprint(req RunRequest) (string, error) {
	raw, err := json.Marshal(fingerprintInput{
		Prompt:       req.Prompt,
		Providers:    req.Providers,
		SystemPrompt: req.SystemPrompt,
		UseRetrieval: req.UseRetrieval,
		Configs:      req.Configs,
	})
	if err != nil {
		return "", fmt.Errorf("marshal fingerprint input: %w", err)
	}

	canonical, err := jcs.Transform(raw)
	if err != nil {
		return "", fmt.Errorf("canonicalize request: %w", err)
	}

	sum := sha256.Sum256(canonical)
	return hex.EncodeToString(sum[:]), nil
}
