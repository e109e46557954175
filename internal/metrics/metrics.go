// Package metrics registers the Prometheus metrics used by the engine.
// Import this package (via blank import) from the server entry point to
// register all metrics before the /metrics handler is mounted.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Insight pipeline counters and histograms.
var (
	// InsightRequestsTotal counts completed insight requests labelled by
	// generation kind and outcome ("cache_hit", "generated", "coalesced",
	// "error").
	InsightRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_requests_total",
			Help: "Total number of insight requests processed.",
		},
		[]string{"kind", "outcome"},
	)

	// CacheHitsTotal counts cache hits labelled by the tier that served
	// them ("fast", "durable").
	CacheHitsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_cache_hits_total",
			Help: "Total cache hits by serving tier.",
		},
		[]string{"tier"},
	)

	// FastTierState tracks the fast cache tier's availability as a gauge:
	// 0 = available, 1 = degraded, 2 = probing.
	FastTierState = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "insight_fast_tier_state",
			Help: "Fast cache tier state (0=available 1=degraded 2=probing).",
		},
	)

	// GeneratorInvocations counts AI generator invocations labelled by
	// generator name and kind.
	GeneratorInvocations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_generator_invocations_total",
			Help: "Total AI generator invocations.",
		},
		[]string{"generator", "kind"},
	)

	// GeneratorDuration observes generator call latency in seconds.
	GeneratorDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "insight_generator_duration_seconds",
			Help:    "AI generator call duration in seconds.",
			Buckets: []float64{.1, .25, .5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"generator", "kind"},
	)

	// GeneratorErrors counts generator failures broken down by generator
	// and error type ("unavailable", "timeout", "malformed_output").
	GeneratorErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "insight_generator_errors_total",
			Help: "Total AI generator errors by type.",
		},
		[]string{"generator", "error_type"},
	)

	// RateLimitRejections counts requests rejected by the per-user AI
	// endpoint rate limit.
	RateLimitRejections = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "insight_rate_limit_rejections_total",
			Help: "Total requests rejected by rate limiting.",
		},
	)
)
