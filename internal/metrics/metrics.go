// Package metrics exposes Prometheus collectors for provider calls, retrieval and synthesis.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Provider call metrics
	ProviderCalls = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chorus_provider_calls_total",
			Help: "Total number of provider calls by outcome",
		},
		[]string{"provider", "outcome"},
	)

	ProviderLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "chorus_provider_latency_seconds",
			Help:    "Provider call latency in seconds",
			Buckets: []float64{0.5, 1, 2, 5, 10, 20, 40, 90},
		},
		[]string{"provider"},
	)

	// Retrieval metrics
	RetrievalSearches = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chorus_retrieval_searches_total",
			Help: "Total number of web searches by outcome",
		},
		[]string{"outcome"},
	)

	// Aggregation and synthesis metrics
	FactsPerRun = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "chorus_facts_per_run",
			Help:    "Number of ranked facts produced per summary",
			Buckets: []float64{0, 1, 5, 10, 20, 30, 40},
		},
	)

	SynthesisRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "chorus_synthesis_runs_total",
			Help: "Total number of summaries by strategy",
		},
		[]string{"strategy"},
	)

	RunsStarted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "chorus_runs_started_total",
			Help: "Total number of fan-out runs started",
		},
	)
)

// Outcome labels shared by the counters above
const (
	OutcomeOK    = "ok"
	OutcomeError = "error"
	OutcomeEmpty = "empty"
)
