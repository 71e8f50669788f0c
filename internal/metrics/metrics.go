// Package metrics exposes registry and mapping-run collectors to Prometheus.
// Collectors register on the default registry and are served by promhttp on
// the API server's /metrics endpoint.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RegistryRequests counts registry HTTP calls by source and outcome
	// (ok, not_found, auth, rate_limited, transient).
	RegistryRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "groupmapper_registry_requests_total",
		Help: "Registry requests by source and outcome",
	}, []string{"source", "outcome"})

	// RegistryRetries counts retried registry calls by reason.
	RegistryRetries = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "groupmapper_registry_retries_total",
		Help: "Registry request retries by source and reason",
	}, []string{"source", "reason"})

	// RateLimitWait tracks time spent blocked on a source's limiter.
	RateLimitWait = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "groupmapper_ratelimit_wait_seconds",
		Help:    "Time spent waiting for the source rate limiter",
		Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms to ~40s
	}, []string{"source"})

	// MappingRuns counts finished mapping runs by terminal state.
	MappingRuns = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "groupmapper_mapping_runs_total",
		Help: "Mapping runs by terminal state (completed, truncated, aborted)",
	}, []string{"state"})

	// MappingCompanies tracks how many companies a run placed.
	MappingCompanies = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "groupmapper_mapping_companies",
		Help:    "Companies placed per mapping run",
		Buckets: []float64{1, 2, 5, 10, 20, 50, 100, 200},
	})
)

// Outcome labels for RegistryRequests.
const (
	OutcomeOK          = "ok"
	OutcomeNotFound    = "not_found"
	OutcomeAuth        = "auth"
	OutcomeRateLimited = "rate_limited"
	OutcomeTransient   = "transient"
)

// ObserveWait records a limiter wait for source.
func ObserveWait(source string, d time.Duration) {
	RateLimitWait.WithLabelValues(source).Observe(d.Seconds())
}
