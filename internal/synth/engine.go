// Package synth turns ranked facts and provider answers into a structured summary.
package synth

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/ppiankov/chorus/internal/extract"
	"github.com/ppiankov/chorus/internal/metrics"
	"github.com/ppiankov/chorus/internal/model"
)

// Synthesizer is the external backend used for delegated synthesis.
// It returns raw text expected to contain one JSON object.
type Synthesizer interface {
	Complete(ctx context.Context, system, user string) (string, error)
}

// Strategy names the path that produced a summary
type Strategy string

const (
	StrategyDelegated     Strategy = "delegated"
	StrategyDeterministic Strategy = "deterministic"
)

// ErrEmptyOutput is returned when the backend produced no text
var ErrEmptyOutput = errors.New("synthesis backend returned empty output")

// Input is everything the engine needs for one summary
type Input struct {
	Prompt  string
	Answers []model.ProviderAnswer
	Facts   []model.Fact // Ranked, as returned by extract.Aggregator
	Sources []model.RetrievalSource
}

// Result is a summary plus how it was produced
type Result struct {
	Summary        model.Summary
	Strategy       Strategy
	FallbackReason string // Why delegated synthesis was skipped or abandoned
}

// Options tunes the engine. Zero values select the defaults.
type Options struct {
	PartitionLimit int
	Limits         Limits
}

// Engine produces summaries, delegating to a backend when one is configured
type Engine struct {
	backend        Synthesizer
	partitionLimit int
	limits         Limits
	logger         *zap.Logger
}

// NewEngine creates an engine. A nil backend means deterministic synthesis only.
func NewEngine(backend Synthesizer, opts Options, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	if opts.PartitionLimit <= 0 {
		opts.PartitionLimit = extract.DefaultPartitionLimit
	}
	return &Engine{
		backend:        backend,
		partitionLimit: opts.PartitionLimit,
		limits:         opts.Limits.withDefaults(),
		logger:         logger,
	}
}

// Synthesize always returns a well-formed summary.
// Delegated synthesis failures fall back to the deterministic report.
func (e *Engine) Synthesize(ctx context.Context, in Input) Result {
	result := e.synthesize(ctx, in)
	metrics.SynthesisRuns.WithLabelValues(string(result.Strategy)).Inc()
	return result
}

func (e *Engine) synthesize(ctx context.Context, in Input) Result {
	if countUsable(in.Answers) == 0 {
		return Result{
			Summary:        nothingSummarized(in),
			Strategy:       StrategyDeterministic,
			FallbackReason: "no usable provider answers",
		}
	}

	if e.backend == nil {
		return e.fallback(in, "no synthesis credential")
	}

	summary, err := e.Delegate(ctx, in)
	if err != nil {
		e.logger.Warn("delegated synthesis failed, using deterministic summary", zap.Error(err))
		return e.fallback(in, err.Error())
	}
	return Result{Summary: summary, Strategy: StrategyDelegated}
}

// Delegate runs delegated synthesis only, returning any failure to the caller
func (e *Engine) Delegate(ctx context.Context, in Input) (model.Summary, error) {
	if e.backend == nil {
		return model.Summary{}, errors.New("no synthesis backend configured")
	}

	raw, err := e.backend.Complete(ctx, SystemPrompt, BuildUserContent(in, e.partitionLimit))
	if err != nil {
		return model.Summary{}, fmt.Errorf("synthesis call: %w", err)
	}
	if strings.TrimSpace(raw) == "" {
		return model.Summary{}, ErrEmptyOutput
	}
	return ParseSummary(raw, in.Sources, e.limits)
}

func (e *Engine) fallback(in Input, reason string) Result {
	return Result{
		Summary:        Deterministic(in, e.partitionLimit, e.limits),
		Strategy:       StrategyDeterministic,
		FallbackReason: reason,
	}
}
