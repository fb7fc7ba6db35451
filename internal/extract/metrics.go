package extract

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	outcomeSuccess   = "success"
	outcomeHeuristic = "heuristic"
	outcomeFailed    = "failed"
	outcomeError     = "error"
)

var (
	// extractionsTotal counts Extract calls by outcome.
	// Labels: outcome (success, heuristic, failed, error)
	extractionsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smartcal",
		Subsystem: "extract",
		Name:      "extractions_total",
		Help:      "Total calendar extractions by outcome",
	}, []string{"outcome"})

	// recoveryStageTotal counts which decode attempt produced the record.
	recoveryStageTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "smartcal",
		Subsystem: "extract",
		Name:      "recovery_stage_total",
		Help:      "Model responses decoded, by recovery stage",
	}, []string{"stage"})

	// llmLatencySeconds measures model round trips.
	// Labels: provider, operation (extract, analyze, summarize, classify, tags)
	llmLatencySeconds = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "smartcal",
		Subsystem: "llm",
		Name:      "latency_seconds",
		Help:      "LLM request latency by provider and operation",
		Buckets:   []float64{0.25, 0.5, 1, 2, 5, 10, 30, 60},
	}, []string{"provider", "operation"})
)
