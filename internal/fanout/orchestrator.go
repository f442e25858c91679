// Package fanout sends one prompt to several providers in parallel and
// turns their answers into a meta-summary.
package fanout

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ppiankov/chorus/internal/cache"
	"github.com/ppiankov/chorus/internal/credential"
	"github.com/ppiankov/chorus/internal/extract"
	"github.com/ppiankov/chorus/internal/llm"
	"github.com/ppiankov/chorus/internal/metrics"
	"github.com/ppiankov/chorus/internal/model"
	"github.com/ppiankov/chorus/internal/retrieval"
	"github.com/ppiankov/chorus/internal/synth"
	"github.com/ppiankov/chorus/internal/worker"
)

// DefaultSystemPrompt is sent when a request does not override it
const DefaultSystemPrompt = `You are a helpful assistant.

Rules:
- Do not invent facts. If unsure, say so.
- If web sources are provided, cite them using [1], [2], etc.
- Do not output personal contact details (home address, phone number, personal email).
- Do not claim two handles/accounts are the same person unless a source explicitly states it.`

// Defaults applied when a request leaves settings unset
const (
	DefaultCallTimeout = 90 * time.Second
	DefaultMaxSources  = 6
)

// Adapters resolves provider names to adapters
type Adapters interface {
	Lookup(name model.ProviderName) (llm.Adapter, bool)
}

// Recorder stores completed runs
type Recorder interface {
	Save(record model.RunRecord) error
}

// ModelLister lists the OpenAI chat models visible to an API key
type ModelLister func(ctx context.Context, apiKey string) ([]string, error)

// Defaults holds the configured generation defaults
type Defaults struct {
	SystemPrompt string
	Temperature  float64
	MaxTokens    int
	PerProvider  map[model.ProviderName]model.ProviderConfig
	CallTimeout  time.Duration
	MaxSources   int
}

// Config wires an Orchestrator. Only Adapters is required.
type Config struct {
	Adapters       Adapters
	Credentials    credential.Resolver
	Retriever      retrieval.Collector
	Limiter        *worker.Limiter
	Aggregator     *extract.Aggregator
	NewSynthesizer func(apiKey string) synth.Synthesizer // nil disables delegated synthesis
	Synthesis      synth.Options
	ModelLister    ModelLister
	ModelCache     cache.Cache
	History        Recorder
	Defaults       Defaults
	Logger         *zap.Logger
	Now            func() time.Time
}

// Orchestrator runs prompts against providers
type Orchestrator struct {
	cfg Config
}

// New creates an orchestrator, filling unset dependencies with defaults
func New(cfg Config) *Orchestrator {
	if cfg.Credentials == nil {
		cfg.Credentials = credential.Static{}
	}
	if cfg.Retriever == nil {
		cfg.Retriever = retrieval.Disabled{}
	}
	if cfg.Limiter == nil {
		cfg.Limiter = worker.NewLimiter(0, 1)
	}
	if cfg.Aggregator == nil {
		cfg.Aggregator = extract.NewAggregator(extract.Options{})
	}
	if cfg.ModelCache == nil {
		cfg.ModelCache = cache.NewMemoryCache(modelListTTL, time.Minute)
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	d := &cfg.Defaults
	if strings.TrimSpace(d.SystemPrompt) == "" {
		d.SystemPrompt = DefaultSystemPrompt
	}
	if d.Temperature == 0 {
		d.Temperature = llm.DefaultTemperature
	}
	if d.MaxTokens <= 0 {
		d.MaxTokens = llm.DefaultMaxTokens
	}
	if d.CallTimeout <= 0 {
		d.CallTimeout = DefaultCallTimeout
	}
	if d.MaxSources <= 0 {
		d.MaxSources = DefaultMaxSources
	}
	return &Orchestrator{cfg: cfg}
}

// RunRequest is one prompt sent to a set of providers
type RunRequest struct {
	Prompt       string
	Providers    []model.ProviderName
	APIKeys      map[model.ProviderName]string // Request-scoped keys, tried before the configured resolver
	Configs      map[model.ProviderName]model.ProviderConfig
	SystemPrompt string // Blank selects the default
	UseRetrieval bool
	Summarize    bool
}

// RunResult is the outcome of a run. Results has one entry per requested
// provider, in request order.
type RunResult struct {
	ID            string
	Timestamp     int64 // Unix milliseconds
	Fingerprint   string
	Results       []model.ProviderAnswer
	Sources       []model.RetrievalSource
	UsedRetrieval bool
	Summary       *synth.Result
}

// Record converts the result into a history entry
func (r *RunResult) Record(req RunRequest) model.RunRecord {
	rec := model.RunRecord{
		ID:          r.ID,
		Timestamp:   r.Timestamp,
		Fingerprint: r.Fingerprint,
		Prompt:      req.Prompt,
		Providers:   req.Providers,
		Results:     r.Results,
		Sources:     r.Sources,
	}
	if r.Summary != nil {
		summary := r.Summary.Summary
		rec.Meta = &summary
	}
	return rec
}

// Run validates req, optionally retrieves web sources, then calls every
// provider concurrently. Per-provider failures are reported in the results;
// only a blank prompt or an empty provider list fail the run.
func (o *Orchestrator) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	req.Prompt = strings.TrimSpace(req.Prompt)
	if req.Prompt == "" {
		return nil, ErrMissingPrompt
	}
	if len(req.Providers) == 0 {
		return nil, ErrNoProviders
	}
	metrics.RunsStarted.Inc()

	fingerprint, err := Fingerprint(req)
	if err != nil {
		o.cfg.Logger.Warn("could not fingerprint request", zap.Error(err))
	}

	result := &RunResult{
		ID:          uuid.NewString(),
		Timestamp:   o.cfg.Now().UnixMilli(),
		Fingerprint: fingerprint,
	}

	if req.UseRetrieval {
		result.Sources = o.cfg.Retriever.Search(ctx, req.Prompt, o.cfg.Defaults.MaxSources)
		result.UsedRetrieval = len(result.Sources) > 0
	}

	system := strings.TrimSpace(req.SystemPrompt)
	if system == "" {
		system = o.cfg.Defaults.SystemPrompt
	}
	prompt := req.Prompt + retrieval.FormatSourcesBlock(result.Sources)

	creds := o.resolver(req.APIKeys)
	result.Results = o.fanOut(ctx, req.Providers, creds, func(p model.ProviderName) model.ProviderRequest {
		cfg := o.providerConfig(p, req.Configs)
		return model.ProviderRequest{
			Prompt:       prompt,
			SystemPrompt: system,
			Model:        cfg.Model,
			Temperature:  *cfg.Temperature,
			MaxTokens:    cfg.MaxTokens,
		}
	})

	if req.Summarize {
		summary, err := o.Summarize(ctx, SummarizeRequest{
			Prompt:  req.Prompt,
			Answers: result.Results,
			Sources: result.Sources,
			APIKeys: req.APIKeys,
		})
		if err == nil {
			result.Summary = &summary
		}
	}

	if o.cfg.History != nil {
		if err := o.cfg.History.Save(result.Record(req)); err != nil {
			o.cfg.Logger.Warn("could not save run history", zap.String("run_id", result.ID), zap.Error(err))
		}
	}

	return result, nil
}

// providerConfig merges request overrides over configured defaults for p
func (o *Orchestrator) providerConfig(p model.ProviderName, overrides map[model.ProviderName]model.ProviderConfig) model.ProviderConfig {
	d := o.cfg.Defaults
	return overrides[p].
		Merge(d.PerProvider[p]).
		Merge(model.ProviderConfig{Temperature: model.Float64(d.Temperature), MaxTokens: d.MaxTokens})
}

// resolver puts request-scoped keys in front of the configured resolver
func (o *Orchestrator) resolver(keys map[model.ProviderName]string) credential.Resolver {
	if len(keys) == 0 {
		return o.cfg.Credentials
	}
	return credential.Chain{credential.FromProviders(keys), o.cfg.Credentials}
}

// fanOut calls every provider concurrently. Each goroutine owns one slot of
// the result slice, so caller order is preserved without locking.
func (o *Orchestrator) fanOut(ctx context.Context, providers []model.ProviderName, creds credential.Resolver, build func(model.ProviderName) model.ProviderRequest) []model.ProviderAnswer {
	results := make([]model.ProviderAnswer, len(providers))

	var g errgroup.Group
	for i, p := range providers {
		g.Go(func() error {
			results[i] = o.call(ctx, p, creds, build)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// call runs one provider. It never returns an error; every failure is an answer.
func (o *Orchestrator) call(ctx context.Context, p model.ProviderName, creds credential.Resolver, build func(model.ProviderName) model.ProviderRequest) (ans model.ProviderAnswer) {
	logger := o.cfg.Logger.With(zap.String("provider", string(p)))

	adapter, ok := o.cfg.Adapters.Lookup(p)
	if !ok {
		metrics.ProviderCalls.WithLabelValues(string(p), metrics.OutcomeError).Inc()
		return failed(p, "", &ProviderError{Kind: KindUnknownProvider, Provider: p})
	}

	req := build(p)
	modelName := req.Model
	if modelName == "" {
		modelName = adapter.DefaultModel()
	}

	apiKey, ok := creds.Resolve(string(p))
	if !ok {
		metrics.ProviderCalls.WithLabelValues(string(p), metrics.OutcomeError).Inc()
		return failed(p, modelName, &ProviderError{Kind: KindMissingCredential, Provider: p})
	}

	if err := o.cfg.Limiter.Wait(ctx, p); err != nil {
		metrics.ProviderCalls.WithLabelValues(string(p), metrics.OutcomeError).Inc()
		return failed(p, modelName, &ProviderError{Kind: KindCallFailed, Provider: p, Err: fmt.Errorf("rate limit: %w", err)})
	}

	callCtx, cancel := context.WithTimeout(ctx, o.cfg.Defaults.CallTimeout)
	defer cancel()

	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			logger.Error("provider adapter panicked", zap.Any("panic", r))
			ans = failed(p, modelName, &ProviderError{Kind: KindCallFailed, Provider: p, Err: fmt.Errorf("panic: %v", r)})
			ans.LatencyMs = time.Since(start).Milliseconds()
			metrics.ProviderCalls.WithLabelValues(string(p), metrics.OutcomeError).Inc()
		}
	}()

	ans = adapter.Call(callCtx, req, apiKey)
	elapsed := time.Since(start)

	ans.Provider = p
	if ans.Model == "" {
		ans.Model = modelName
	}
	ans.LatencyMs = elapsed.Milliseconds()
	metrics.ProviderLatency.WithLabelValues(string(p)).Observe(elapsed.Seconds())

	if ans.Error != "" {
		callErr := errors.New(ans.Error)
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && ctx.Err() == nil {
			callErr = fmt.Errorf("timed out after %s: %w", o.cfg.Defaults.CallTimeout, callErr)
		}
		outcome := metrics.OutcomeError
		if ans.Error == llm.ErrNoText.Error() {
			outcome = metrics.OutcomeEmpty
		}
		ans.Text = ""
		ans.Error = (&ProviderError{Kind: KindCallFailed, Provider: p, Err: callErr}).Error()
		metrics.ProviderCalls.WithLabelValues(string(p), outcome).Inc()
		logger.Debug("provider call failed", zap.String("error", ans.Error), zap.Int64("latency_ms", ans.LatencyMs))
		return ans
	}

	metrics.ProviderCalls.WithLabelValues(string(p), metrics.OutcomeOK).Inc()
	logger.Debug("provider call completed", zap.String("model", ans.Model), zap.Int64("latency_ms", ans.LatencyMs))
	return ans
}
