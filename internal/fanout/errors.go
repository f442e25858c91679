package fanout

import (
	"errors"

	"github.com/ppiankov/chorus/internal/model"
)

// Request validation errors. These are the only errors that abort a run.
var (
	ErrMissingPrompt = errors.New("missing prompt")
	ErrNoProviders   = errors.New("no providers requested")
)

// ErrorKind classifies a per-provider failure
type ErrorKind string

const (
	KindUnknownProvider   ErrorKind = "unknown_provider"
	KindMissingCredential ErrorKind = "missing_credential"
	KindCallFailed        ErrorKind = "call_failed"
)

// ProviderError is one provider's failure within a run.
// Its message is what lands in ProviderAnswer.Error.
type ProviderError struct {
	Kind     ErrorKind
	Provider model.ProviderName
	Err      error
}

func (e *ProviderError) Error() string {
	switch e.Kind {
	case KindUnknownProvider:
		return "unknown provider: " + string(e.Provider)
	case KindMissingCredential:
		return "missing credential: API key not set for " + string(e.Provider)
	default:
		if e.Err == nil {
			return "call failed"
		}
		return "call failed: " + e.Err.Error()
	}
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// failed builds the answer recorded for a provider that produced no text
func failed(p model.ProviderName, modelName string, err *ProviderError) model.ProviderAnswer {
	return model.ProviderAnswer{Provider: p, Model: modelName, Error: err.Error()}
}
