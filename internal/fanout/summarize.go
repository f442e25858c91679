package fanout

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/chorus/internal/metrics"
	"github.com/ppiankov/chorus/internal/model"
	"github.com/ppiankov/chorus/internal/synth"
)

// SummarizeRequest asks for a meta-summary of answers already collected
type SummarizeRequest struct {
	Prompt  string
	Answers []model.ProviderAnswer
	Sources []model.RetrievalSource
	APIKeys map[model.ProviderName]string // Checked for an OpenAI key before the configured resolver
}

// Summarize aggregates the answers into ranked facts and synthesizes a summary.
// It fails only on a blank prompt; synthesis problems fall back to the
// deterministic summary.
func (o *Orchestrator) Summarize(ctx context.Context, req SummarizeRequest) (synth.Result, error) {
	if strings.TrimSpace(req.Prompt) == "" {
		return synth.Result{}, ErrMissingPrompt
	}

	facts := o.cfg.Aggregator.Aggregate(req.Answers)
	metrics.FactsPerRun.Observe(float64(len(facts)))

	engine := synth.NewEngine(o.synthesizer(req.APIKeys), o.cfg.Synthesis, o.cfg.Logger)
	result := engine.Synthesize(ctx, synth.Input{
		Prompt:  strings.TrimSpace(req.Prompt),
		Answers: req.Answers,
		Facts:   facts,
		Sources: req.Sources,
	})

	o.cfg.Logger.Debug("summary produced",
		zap.String("strategy", string(result.Strategy)),
		zap.String("fallback_reason", result.FallbackReason),
		zap.Int("facts", len(facts)),
	)
	return result, nil
}

// synthesizer returns the delegated backend, or nil when none can be built
func (o *Orchestrator) synthesizer(keys map[model.ProviderName]string) synth.Synthesizer {
	if o.cfg.NewSynthesizer == nil {
		return nil
	}
	apiKey, ok := o.resolver(keys).Resolve(string(model.ProviderOpenAI))
	if !ok {
		return nil
	}
	return o.cfg.NewSynthesizer(apiKey)
}
