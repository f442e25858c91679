package cli

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/ppiankov/chorus/internal/cache"
	"github.com/ppiankov/chorus/internal/credential"
	"github.com/ppiankov/chorus/internal/extract"
	"github.com/ppiankov/chorus/internal/fanout"
	"github.com/ppiankov/chorus/internal/history"
	"github.com/ppiankov/chorus/internal/llm"
	"github.com/ppiankov/chorus/internal/model"
	"github.com/ppiankov/chorus/internal/retrieval"
	"github.com/ppiankov/chorus/internal/synth"
	"github.com/ppiankov/chorus/internal/util"
	"github.com/ppiankov/chorus/internal/worker"
)

// app holds the wired dependencies shared by the commands
type app struct {
	cfg     model.Config
	orch    *fanout.Orchestrator
	history *history.Store // nil when history is disabled
	closers []func() error
}

// newApp wires the orchestrator and its collaborators from cfg
func newApp(cfg model.Config, logger *zap.Logger) (*app, error) {
	creds, err := credential.NewEnv()
	if err != nil {
		return nil, err
	}

	httpClient := util.NewHTTPClient(util.HTTPOptions{
		Timeout:      cfg.HTTP.Timeout,
		RetryMax:     cfg.HTTP.RetryMax,
		RetryBackoff: cfg.HTTP.RetryBackoff,
		HTTPProxy:    cfg.HTTP.HTTPProxy,
		HTTPSProxy:   cfg.HTTP.HTTPSProxy,
		NoProxy:      cfg.HTTP.NoProxy,
	})

	a := &app{cfg: cfg}

	var recorder fanout.Recorder
	if cfg.History.Enabled {
		backend, closer, err := historyBackend(cfg.History, creds)
		if err != nil {
			return nil, err
		}
		if closer != nil {
			a.closers = append(a.closers, closer)
		}
		a.history = history.NewStore(backend, cfg.History.TTL, cfg.History.Limit)
		recorder = a.history
	}

	var newSynthesizer func(apiKey string) synth.Synthesizer
	if cfg.Synthesis.Delegate {
		opts := llm.SynthesizerOptions{
			BaseURL:     cfg.Providers.BaseURLs.OpenAI,
			Model:       cfg.Synthesis.Model,
			Temperature: cfg.Synthesis.Temperature,
			MaxTokens:   cfg.Synthesis.MaxTokens,
		}
		newSynthesizer = func(apiKey string) synth.Synthesizer {
			return llm.NewOpenAISynthesizer(apiKey, httpClient, opts)
		}
	}

	perProvider := make(map[model.ProviderName]model.ProviderConfig, len(model.AllProviders()))
	for _, p := range model.AllProviders() {
		perProvider[p] = cfg.Providers.For(p)
	}

	a.orch = fanout.New(fanout.Config{
		Adapters:    llm.DefaultRegistry(cfg.Providers.BaseURLs, httpClient),
		Credentials: creds,
		Retriever:   retrieval.NewTavily(cfg.Retrieval.BaseURL, httpClient, creds, logger),
		Limiter:     worker.NewLimiter(cfg.Rate.RequestsPerSecond, cfg.Rate.Burst),
		Aggregator: extract.NewAggregator(extract.Options{
			MergeThreshold: cfg.Synthesis.MergeThreshold,
			MaxFacts:       cfg.Synthesis.MaxFacts,
		}),
		NewSynthesizer: newSynthesizer,
		Synthesis: synth.Options{
			PartitionLimit: cfg.Synthesis.PartitionLimit,
			Limits: synth.Limits{
				MaxKeyFacts:      cfg.Synthesis.MaxKeyFacts,
				MaxSentences:     cfg.Synthesis.MaxSentences,
				MaxDisagreements: cfg.Synthesis.MaxDisagreements,
			},
		},
		ModelLister: func(ctx context.Context, apiKey string) ([]string, error) {
			return llm.ListOpenAIModels(ctx, apiKey, cfg.Providers.BaseURLs.OpenAI, httpClient)
		},
		History: recorder,
		Defaults: fanout.Defaults{
			SystemPrompt: cfg.Providers.SystemPrompt,
			Temperature:  cfg.Providers.Temperature,
			MaxTokens:    cfg.Providers.MaxTokens,
			PerProvider:  perProvider,
			CallTimeout:  cfg.Providers.CallTimeout,
			MaxSources:   cfg.Retrieval.MaxResults,
		},
		Logger: logger,
	})

	return a, nil
}

// Close releases backend connections
func (a *app) Close() {
	for _, c := range a.closers {
		if err := c(); err != nil {
			logger.Warn("close failed", zap.Error(err))
		}
	}
}

// requireHistory returns the history store or an error naming how to enable it
func (a *app) requireHistory() (*history.Store, error) {
	if a.history == nil {
		return nil, fmt.Errorf("run history is disabled (set history.enabled: true)")
	}
	return a.history, nil
}

// historyBackend builds the cache that stores run records.
// The returned closer is nil for backends without connections.
func historyBackend(cfg model.HistoryConfig, creds credential.Resolver) (cache.Cache, func() error, error) {
	switch cfg.Backend {
	case "memory":
		return cache.NewMemoryCache(cfg.TTL, 10*time.Minute), nil, nil
	case "", "disk":
		dir, err := historyDir(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return cache.NewDiskCache(dir, cfg.TTL), nil, nil
	case "layered":
		dir, err := historyDir(cfg.Dir)
		if err != nil {
			return nil, nil, err
		}
		return cache.NewLayeredCache(cache.NewMemoryCache(cfg.TTL, 10*time.Minute), cache.NewDiskCache(dir, cfg.TTL)), nil, nil
	case "redis":
		if cfg.RedisAddr == "" {
			return nil, nil, fmt.Errorf("history backend redis needs history.redis_addr")
		}
		password, _ := creds.Resolve(credential.Redis)
		rc, err := cache.NewRedisCache(cfg.RedisAddr, password, cfg.TTL)
		if err != nil {
			return nil, nil, err
		}
		return rc, rc.Close, nil
	default:
		return nil, nil, fmt.Errorf("unknown history backend %q (want disk, memory, layered or redis)", cfg.Backend)
	}
}

// historyDir returns dir, or $HOME/.chorus/history when dir is empty
func historyDir(dir string) (string, error) {
	if dir != "" {
		return dir, nil
	}
	base, err := configDir()
	if err != nil {
		return "", fmt.Errorf("find history directory: %w", err)
	}
	return filepath.Join(base, "history"), nil
}

// resolveProviders parses the --providers flag, falling back to the configured set
func resolveProviders(flag []string, cfg model.Config) []model.ProviderName {
	if providers := model.ParseProviders(flag); len(providers) > 0 {
		return providers
	}
	if providers := model.ParseProviders(cfg.Providers.Enabled); len(providers) > 0 {
		return providers
	}
	return model.AllProviders()
}
