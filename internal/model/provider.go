package model

import "strings"

// ProviderName identifies a supported LLM vendor
type ProviderName string

const (
	ProviderOpenAI    ProviderName = "openai"
	ProviderAnthropic ProviderName = "anthropic"
	ProviderGemini    ProviderName = "gemini"
	ProviderXAI       ProviderName = "xai"
)

// AllProviders returns the supported providers in display order
func AllProviders() []ProviderName {
	return []ProviderName{ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderXAI}
}

// Known reports whether p is one of the supported providers
func (p ProviderName) Known() bool {
	switch p {
	case ProviderOpenAI, ProviderAnthropic, ProviderGemini, ProviderXAI:
		return true
	}
	return false
}

// Label returns the product name shown to users
func (p ProviderName) Label() string {
	switch p {
	case ProviderOpenAI:
		return "ChatGPT"
	case ProviderAnthropic:
		return "Claude"
	case ProviderGemini:
		return "Gemini"
	case ProviderXAI:
		return "Grok"
	default:
		return string(p)
	}
}

// ParseProviders turns a list like "openai, Claude,grok" into provider names.
// Unknown names are kept as-is so the caller can report them per provider.
func ParseProviders(raw []string) []ProviderName {
	var out []ProviderName
	for _, item := range raw {
		for _, part := range strings.Split(item, ",") {
			name := strings.ToLower(strings.TrimSpace(part))
			if name == "" {
				continue
			}
			switch name {
			case "chatgpt", "gpt":
				name = string(ProviderOpenAI)
			case "claude":
				name = string(ProviderAnthropic)
			case "grok":
				name = string(ProviderXAI)
			}
			out = append(out, ProviderName(name))
		}
	}
	return out
}

// ProviderConfig holds the optional per-provider generation settings.
// Zero values mean "use the documented default".
type ProviderConfig struct {
	Model       string   `json:"model,omitempty" yaml:"model,omitempty" mapstructure:"model"`
	Temperature *float64 `json:"temperature,omitempty" yaml:"temperature,omitempty" mapstructure:"temperature" validate:"omitempty,gte=0,lte=2"`
	MaxTokens   int      `json:"maxTokens,omitempty" yaml:"max_tokens,omitempty" mapstructure:"max_tokens" validate:"omitempty,gte=1,lte=32000"`
}

// Merge returns c with empty fields filled from fallback
func (c ProviderConfig) Merge(fallback ProviderConfig) ProviderConfig {
	out := c
	if out.Model == "" {
		out.Model = fallback.Model
	}
	if out.Temperature == nil {
		out.Temperature = fallback.Temperature
	}
	if out.MaxTokens == 0 {
		out.MaxTokens = fallback.MaxTokens
	}
	return out
}

// ProviderRequest is the normalized request handed to a provider adapter
type ProviderRequest struct {
	Prompt       string
	SystemPrompt string
	Model        string // empty means the adapter default
	Temperature  float64
	MaxTokens    int
}

// ProviderAnswer is one provider's response to a prompt
type ProviderAnswer struct {
	Provider  ProviderName `json:"provider"`
	Model     string       `json:"model"`
	Text      string       `json:"text"`
	LatencyMs int64        `json:"latencyMs"`
	Error     string       `json:"error,omitempty"`
}

// Usable reports whether the answer carries text that can be aggregated
func (a ProviderAnswer) Usable() bool {
	return a.Error == "" && strings.TrimSpace(a.Text) != ""
}

// AnsweredProviders lists the providers present in answers, first occurrence first
func AnsweredProviders(answers []ProviderAnswer) []ProviderName {
	seen := make(map[ProviderName]bool, len(answers))
	var out []ProviderName
	for _, ans := range answers {
		if ans.Provider == "" || seen[ans.Provider] {
			continue
		}
		seen[ans.Provider] = true
		out = append(out, ans.Provider)
	}
	return out
}

// Float64 returns a pointer to v, for optional config fields
func Float64(v float64) *float64 {
	return &v
}
