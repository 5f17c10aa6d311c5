// Package metrics defines the Prometheus metrics exposed on /metrics
// (spec.md SPEC_FULL.md Supplemented Features), following the
// jobops_<noun>_<unit> naming convention used for jobs and scoring runs.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// IngestEnvelopesTotal counts processed envelopes by their row action.
	IngestEnvelopesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobops_ingest_envelopes_total",
			Help: "Total envelopes processed by the Ingest Orchestrator, by action.",
		},
		[]string{"action"},
	)

	// ScoringRunsTotal counts completed ScoringRun rows by source and final status.
	ScoringRunsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobops_scoring_runs_total",
			Help: "Total scoring pipeline runs, by trigger source and final status.",
		},
		[]string{"source", "final_status"},
	)

	// ScoringStageLatencySeconds observes each pipeline stage's duration.
	ScoringStageLatencySeconds = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "jobops_scoring_stage_latency_seconds",
			Help:    "Scoring pipeline stage latency in seconds, by stage.",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		},
		[]string{"stage"},
	)

	// ScoringTokensTotal counts LLM tokens spent by the scoring pipeline.
	ScoringTokensTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobops_scoring_tokens_total",
			Help: "Total LLM tokens consumed by the scoring pipeline, by stage and direction.",
		},
		[]string{"stage", "direction"},
	)

	// RecoveryRowsTotal counts rows processed by a recovery sweep, by loop and outcome.
	RecoveryRowsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobops_recovery_rows_total",
			Help: "Total rows processed by a recovery loop, by loop name and outcome.",
		},
		[]string{"loop", "outcome"},
	)

	// SchedulerSkippedOverlapTotal counts cron triggers skipped due to admission control.
	SchedulerSkippedOverlapTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "jobops_scheduler_skipped_overlap_total",
			Help: "Total cron triggers skipped because the previous run was still executing.",
		},
		[]string{"trigger"},
	)
)

// Handler returns the HTTP handler for the /metrics endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}

// ObserveStage records one pipeline stage's latency and token usage.
func ObserveStage(stage string, latency time.Duration, tokensIn, tokensOut int64) {
	ScoringStageLatencySeconds.WithLabelValues(stage).Observe(latency.Seconds())
	if tokensIn > 0 {
		ScoringTokensTotal.WithLabelValues(stage, "in").Add(float64(tokensIn))
	}
	if tokensOut > 0 {
		ScoringTokensTotal.WithLabelValues(stage, "out").Add(float64(tokensOut))
	}
}
