// Package llm holds the vendor adapters that send one prompt to one provider.
package llm

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/ppiankov/chorus/internal/model"
)

// Adapter sends a normalized request to one vendor.
// Call never returns a Go error; failures are reported in ProviderAnswer.Error.
type Adapter interface {
	Name() model.ProviderName
	DefaultModel() string
	Call(ctx context.Context, req model.ProviderRequest, apiKey string) model.ProviderAnswer
}

// Default models per vendor
const (
	DefaultOpenAIModel    = "gpt-5.2"
	DefaultAnthropicModel = "claude-sonnet-4-5"
	DefaultGeminiModel    = "gemini-2.5-flash"
	DefaultXAIModel       = "grok-3"
)

// Default vendor endpoints
const (
	OpenAIBaseURL    = "https://api.openai.com/v1"
	AnthropicBaseURL = "https://api.anthropic.com"
	GeminiBaseURL    = "https://generativelanguage.googleapis.com"
	XAIBaseURL       = "https://api.x.ai/v1"
)

// Generation defaults used when a request leaves them unset
const (
	DefaultTemperature = 0.2
	DefaultMaxTokens   = 1400
)

// ErrNoText is reported when a vendor answered successfully but without text
var ErrNoText = errors.New("no text returned from provider")

// answer builds the ProviderAnswer for a finished call
func answer(name model.ProviderName, modelName, text string, err error) model.ProviderAnswer {
	out := model.ProviderAnswer{Provider: name, Model: modelName}
	if err != nil {
		out.Error = err.Error()
		return out
	}
	text = strings.TrimSpace(text)
	if text == "" {
		out.Error = ErrNoText.Error()
		return out
	}
	out.Text = text
	return out
}

func pickModel(requested, fallback string) string {
	if m := strings.TrimSpace(requested); m != "" {
		return m
	}
	return fallback
}

func pickMaxTokens(v int) int {
	if v > 0 {
		return v
	}
	return DefaultMaxTokens
}

func httpClientOrDefault(c *http.Client) *http.Client {
	if c != nil {
		return c
	}
	return http.DefaultClient
}

func baseURLOrDefault(u, fallback string) string {
	if u = strings.TrimSpace(u); u != "" {
		return strings.TrimSuffix(u, "/")
	}
	return fallback
}
