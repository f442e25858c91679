package fanout

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/chorus/internal/cache"
	"github.com/ppiankov/chorus/internal/credential"
	"github.com/ppiankov/chorus/internal/model"
)

// modelListTTL is how long a fetched OpenAI model list is reused
const modelListTTL = 10 * time.Minute

// ProviderStatus reports whether a backend has a credential
type ProviderStatus struct {
	Configured bool     `json:"configured"`
	Models     []string `json:"models,omitempty"` // OpenAI only
}

// Status maps provider names, plus the search backend, to their status
type Status map[string]ProviderStatus

// Status reports which providers and the search backend have credentials,
// and lists the OpenAI chat models when an OpenAI key is available.
// A failed model listing yields an empty list.
func (o *Orchestrator) Status(ctx context.Context) Status {
	status := make(Status, len(model.AllProviders())+1)
	for _, p := range model.AllProviders() {
		_, ok := o.cfg.Credentials.Resolve(string(p))
		status[string(p)] = ProviderStatus{Configured: ok}
	}
	_, ok := o.cfg.Credentials.Resolve(credential.Tavily)
	status[credential.Tavily] = ProviderStatus{Configured: ok}

	openai := status[string(model.ProviderOpenAI)]
	openai.Models = []string{}
	if key, ok := o.cfg.Credentials.Resolve(string(model.ProviderOpenAI)); ok && o.cfg.ModelLister != nil {
		openai.Models = o.models(ctx, key)
	}
	status[string(model.ProviderOpenAI)] = openai

	return status
}

func (o *Orchestrator) models(ctx context.Context, apiKey string) []string {
	sum := sha256.Sum256([]byte(apiKey))
	key := cache.Key("models", "openai", hex.EncodeToString(sum[:8]))

	if data, found := o.cfg.ModelCache.Get(key); found {
		var ids []string
		if err := json.Unmarshal(data, &ids); err == nil {
			return ids
		}
	}

	ids, err := o.cfg.ModelLister(ctx, apiKey)
	if err != nil {
		o.cfg.Logger.Warn("could not list OpenAI models", zap.Error(err))
		return []string{}
	}
	if ids == nil {
		ids = []string{}
	}

	if data, err := json.Marshal(ids); err == nil {
		_ = o.cfg.ModelCache.Set(key, data, modelListTTL)
	}
	return ids
}
