package model

import "time"

// Config holds the complete chorus configuration
type Config struct {
	Providers ProvidersConfig `yaml:"providers" mapstructure:"providers"`
	HTTP      HTTPConfig      `yaml:"http" mapstructure:"http"`
	Retrieval RetrievalConfig `yaml:"retrieval" mapstructure:"retrieval"`
	Synthesis SynthesisConfig `yaml:"synthesis" mapstructure:"synthesis"`
	Rate      RateConfig      `yaml:"rate" mapstructure:"rate"`
	History   HistoryConfig   `yaml:"history" mapstructure:"history"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`
}

// ProvidersConfig holds per-provider generation settings and endpoints
type ProvidersConfig struct {
	Enabled      []string       `yaml:"enabled" mapstructure:"enabled"` // Default provider set for a run
	SystemPrompt string         `yaml:"system_prompt,omitempty" mapstructure:"system_prompt"`
	Temperature  float64        `yaml:"temperature" mapstructure:"temperature"`     // Default for every provider
	MaxTokens    int            `yaml:"max_tokens" mapstructure:"max_tokens"`       // Default for every provider
	CallTimeout  time.Duration  `yaml:"call_timeout" mapstructure:"call_timeout"`   // Per provider call
	OpenAI       ProviderConfig `yaml:"openai" mapstructure:"openai"`
	Anthropic    ProviderConfig `yaml:"anthropic" mapstructure:"anthropic"`
	Gemini       ProviderConfig `yaml:"gemini" mapstructure:"gemini"`
	XAI          ProviderConfig `yaml:"xai" mapstructure:"xai"`
	BaseURLs     BaseURLs       `yaml:"base_urls" mapstructure:"base_urls"`
}

// BaseURLs overrides vendor endpoints (proxies, gateways, tests)
type BaseURLs struct {
	OpenAI    string `yaml:"openai,omitempty" mapstructure:"openai"`
	Anthropic string `yaml:"anthropic,omitempty" mapstructure:"anthropic"`
	Gemini    string `yaml:"gemini,omitempty" mapstructure:"gemini"`
	XAI       string `yaml:"xai,omitempty" mapstructure:"xai"`
}

// For returns the configured settings for p
func (c ProvidersConfig) For(p ProviderName) ProviderConfig {
	switch p {
	case ProviderOpenAI:
		return c.OpenAI
	case ProviderAnthropic:
		return c.Anthropic
	case ProviderGemini:
		return c.Gemini
	case ProviderXAI:
		return c.XAI
	}
	return ProviderConfig{}
}

// HTTPConfig holds shared HTTP client settings
type HTTPConfig struct {
	Timeout      time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RetryMax     int           `yaml:"retry_max" mapstructure:"retry_max"`         // Attempts for 429/5xx responses
	RetryBackoff time.Duration `yaml:"retry_backoff" mapstructure:"retry_backoff"` // Base delay, doubled per attempt
	HTTPProxy    string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy   string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
	NoProxy      string        `yaml:"no_proxy,omitempty" mapstructure:"no_proxy"`
}

// RetrievalConfig holds web search settings
type RetrievalConfig struct {
	Enabled    bool   `yaml:"enabled" mapstructure:"enabled"`
	MaxResults int    `yaml:"max_results" mapstructure:"max_results"`
	BaseURL    string `yaml:"base_url,omitempty" mapstructure:"base_url"`
}

// SynthesisConfig holds aggregation and meta-summary settings
type SynthesisConfig struct {
	Delegate         bool    `yaml:"delegate" mapstructure:"delegate"` // Use the LLM backend when a key is available
	Model            string  `yaml:"model" mapstructure:"model"`
	Temperature      float64 `yaml:"temperature" mapstructure:"temperature"`
	MaxTokens        int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	MergeThreshold   float64 `yaml:"merge_threshold" mapstructure:"merge_threshold"`
	MaxFacts         int     `yaml:"max_facts" mapstructure:"max_facts"`
	PartitionLimit   int     `yaml:"partition_limit" mapstructure:"partition_limit"` // Consensus / unique facts each
	MaxKeyFacts      int     `yaml:"max_key_facts" mapstructure:"max_key_facts"`
	MaxSentences     int     `yaml:"max_sentences" mapstructure:"max_sentences"`
	MaxDisagreements int     `yaml:"max_disagreements" mapstructure:"max_disagreements"`
}

// RateConfig holds per-provider client-side rate limits
type RateConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	Burst             int     `yaml:"burst" mapstructure:"burst"`
}

// HistoryConfig selects where run records are kept
type HistoryConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Backend   string        `yaml:"backend" mapstructure:"backend"` // disk, memory, layered, redis
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	RedisAddr string        `yaml:"redis_addr,omitempty" mapstructure:"redis_addr"`
	TTL       time.Duration `yaml:"ttl" mapstructure:"ttl"`
	Limit     int           `yaml:"limit" mapstructure:"limit"` // Records kept in the index
}

// ServerConfig holds HTTP API settings
type ServerConfig struct {
	Addr string `yaml:"addr" mapstructure:"addr"`
}

// LogConfig holds logger settings
type LogConfig struct {
	Level string `yaml:"level" mapstructure:"level"`
	JSON  bool   `yaml:"json" mapstructure:"json"`
}

// DefaultConfig returns sensible defaults
func DefaultConfig() Config {
	return Config{
		Providers: ProvidersConfig{
			Enabled:     []string{"openai", "anthropic", "gemini", "xai"},
			Temperature: 0.2,
			MaxTokens:   1400,
			CallTimeout: 90 * time.Second,
		},
		HTTP: HTTPConfig{
			Timeout:      2 * time.Minute,
			RetryMax:     3,
			RetryBackoff: 500 * time.Millisecond,
		},
		Retrieval: RetrievalConfig{
			Enabled:    false,
			MaxResults: 6,
		},
		Synthesis: SynthesisConfig{
			Delegate:         true,
			Model:            "gpt-5.2",
			Temperature:      0.2,
			MaxTokens:        900,
			MergeThreshold:   0.72,
			MaxFacts:         40,
			PartitionLimit:   14,
			MaxKeyFacts:      20,
			MaxSentences:     40,
			MaxDisagreements: 20,
		},
		Rate: RateConfig{
			RequestsPerSecond: 2,
			Burst:             4,
		},
		History: HistoryConfig{
			Enabled: true,
			Backend: "disk",
			TTL:     30 * 24 * time.Hour,
			Limit:   50,
		},
		Server: ServerConfig{
			Addr: ":8787",
		},
		Log: LogConfig{
			Level: "warn",
		},
	}
}
