package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// PermissionChecks counts permission evaluations and their outcome (allowed|denied|error).
	PermissionChecks = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scolaris_permission_checks_total",
			Help: "Total number of permission checks",
		},
		[]string{"resource", "action", "result"},
	)

	// PermissionMutations counts administrative changes to role permissions and overrides.
	PermissionMutations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scolaris_permission_mutations_total",
			Help: "Total number of permission store mutations",
		},
		[]string{"operation", "result"},
	)

	// EffectiveCacheEvents tracks effective-set cache hits, misses and invalidations.
	EffectiveCacheEvents = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "scolaris_effective_cache_events_total",
			Help: "Effective permission cache events",
		},
		[]string{"event"},
	)

	// APILatency measures HTTP request latencies.
	APILatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "scolaris_api_latency_seconds",
			Help:    "API endpoint latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)
