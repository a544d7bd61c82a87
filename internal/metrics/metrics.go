// Package metrics exposes Prometheus instrumentation for the sweep engine
// and the projection read path. Collectors are registered on the default
// registry and served by the HTTP server's /metrics endpoint.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// SweepRuns counts sweep invocations by outcome
	// (completed, skipped_already_running, failed).
	SweepRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scadenze_sweep_runs_total",
		Help: "Number of sweep invocations by outcome.",
	}, []string{"status"})

	// CommitmentsProcessed counts commitments fully executed by sweeps.
	CommitmentsProcessed = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scadenze_commitments_processed_total",
		Help: "Number of due commitments executed by sweeps.",
	})

	// CommitmentsSkipped counts occurrences whose ledger entry already
	// existed from a previous interrupted run.
	CommitmentsSkipped = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scadenze_commitments_skipped_total",
		Help: "Number of duplicate occurrences skipped by the idempotency guard.",
	})

	// CommitmentsErrored counts per-commitment failures that left the
	// commitment due for the next sweep.
	CommitmentsErrored = promauto.NewCounter(prometheus.CounterOpts{
		Name: "scadenze_commitments_errored_total",
		Help: "Number of commitments that failed during a sweep and remain due.",
	})

	// SweepDuration observes wall time of completed sweeps.
	SweepDuration = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "scadenze_sweep_duration_seconds",
		Help:    "Duration of completed sweeps.",
		Buckets: prometheus.DefBuckets,
	})

	// ProjectionRequests counts calendar projections by cache outcome
	// (hit, miss).
	ProjectionRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "scadenze_projection_requests_total",
		Help: "Number of calendar projection requests by cache outcome.",
	}, []string{"cache"})
)
