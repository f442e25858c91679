// Package credential resolves vendor API keys without persisting them.
package credential

import (
	"errors"
	"fmt"
	"strings"

	"github.com/caarlos0/env/v10"

	"github.com/ppiankov/chorus/internal/model"
)

// Credential names outside the provider set
const (
	Tavily = "tavily" // web search backend
	Redis  = "redis"  // history backend password
)

// ErrCredentialUnavailable is returned by Require when no resolver has a key
var ErrCredentialUnavailable = errors.New("credential unavailable")

// Resolver returns the API key registered under name.
// Blank keys are reported as missing.
type Resolver interface {
	Resolve(name string) (string, bool)
}

// Static resolves keys from a caller-supplied map, such as request-scoped keys
type Static map[string]string

// Resolve implements Resolver
func (s Static) Resolve(name string) (string, bool) {
	key := strings.TrimSpace(s[strings.ToLower(name)])
	return key, key != ""
}

// FromProviders builds a Static resolver from provider-keyed credentials
func FromProviders(keys map[model.ProviderName]string) Static {
	out := make(Static, len(keys))
	for name, key := range keys {
		out[strings.ToLower(string(name))] = key
	}
	return out
}

// envKeys maps the process environment onto credential names
type envKeys struct {
	OpenAI    string `env:"OPENAI_API_KEY"`
	Anthropic string `env:"ANTHROPIC_API_KEY"`
	Gemini    string `env:"GEMINI_API_KEY"`
	XAI       string `env:"XAI_API_KEY"`
	Tavily    string `env:"TAVILY_API_KEY"`
	Redis     string `env:"REDIS_PASSWORD"`
}

// Env resolves keys from environment variables read once at construction
type Env struct {
	keys Static
}

// NewEnv reads credentials from the process environment
func NewEnv() (*Env, error) {
	return NewEnvFrom(nil)
}

// NewEnvFrom reads credentials from environ; a nil map means the process environment
func NewEnvFrom(environ map[string]string) (*Env, error) {
	var k envKeys
	opts := env.Options{}
	if environ != nil {
		opts.Environment = environ
	}
	if err := env.ParseWithOptions(&k, opts); err != nil {
		return nil, fmt.Errorf("parse credential environment: %w", err)
	}
	return &Env{keys: Static{
		string(model.ProviderOpenAI):    k.OpenAI,
		string(model.ProviderAnthropic): k.Anthropic,
		string(model.ProviderGemini):    k.Gemini,
		string(model.ProviderXAI):       k.XAI,
		Tavily:                          k.Tavily,
		Redis:                           k.Redis,
	}}, nil
}

// Resolve implements Resolver
func (e *Env) Resolve(name string) (string, bool) {
	return e.keys.Resolve(name)
}

// Chain tries each resolver in order; the first non-blank key wins
type Chain []Resolver

// Resolve implements Resolver
func (c Chain) Resolve(name string) (string, bool) {
	for _, r := range c {
		if r == nil {
			continue
		}
		if key, ok := r.Resolve(name); ok {
			return key, true
		}
	}
	return "", false
}

// Require resolves name or returns ErrCredentialUnavailable
func Require(r Resolver, name string) (string, error) {
	if r != nil {
		if key, ok := r.Resolve(name); ok {
			return key, nil
		}
	}
	return "", fmt.Errorf("%w: %s", ErrCredentialUnavailable, name)
}
