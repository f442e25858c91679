package llm

import (
	"net/http"

	"github.com/ppiankov/chorus/internal/model"
)

// Registry maps provider names to adapters
type Registry struct {
	adapters map[model.ProviderName]Adapter
	order    []model.ProviderName
}

// NewRegistry creates a registry. A later adapter with the same name replaces an earlier one.
func NewRegistry(adapters ...Adapter) *Registry {
	r := &Registry{adapters: make(map[model.ProviderName]Adapter, len(adapters))}
	for _, a := range adapters {
		if _, exists := r.adapters[a.Name()]; !exists {
			r.order = append(r.order, a.Name())
		}
		r.adapters[a.Name()] = a
	}
	return r
}

// DefaultRegistry builds the four vendor adapters sharing one HTTP client
func DefaultRegistry(urls model.BaseURLs, client *http.Client) *Registry {
	return NewRegistry(
		NewOpenAIProvider(urls.OpenAI, client),
		NewAnthropicProvider(urls.Anthropic, client),
		NewGeminiProvider(urls.Gemini, client),
		NewXAIProvider(urls.XAI, client),
	)
}

// Lookup returns the adapter registered for name
func (r *Registry) Lookup(name model.ProviderName) (Adapter, bool) {
	a, ok := r.adapters[name]
	return a, ok
}

// Names returns registered provider names in registration order
func (r *Registry) Names() []model.ProviderName {
	out := make([]model.ProviderName, len(r.order))
	copy(out, r.order)
	return out
}
