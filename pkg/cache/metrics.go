package cache

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// CacheHits tracks cache hits by family
	CacheHits = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workout_cache_hits_total",
			Help: "Total number of read cache hits",
		},
		[]string{"family"},
	)

	// CacheMisses tracks cache misses by family
	CacheMisses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workout_cache_misses_total",
			Help: "Total number of read cache misses",
		},
		[]string{"family"},
	)

	// CacheErrors tracks store failures
	CacheErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workout_cache_errors_total",
			Help: "Total number of cache store errors",
		},
		[]string{"operation"}, // "get", "set", "tag", "delete", "scan", "flush"
	)

	// CacheInvalidations tracks removed entries by invalidation kind
	CacheInvalidations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "workout_cache_invalidations_total",
			Help: "Total number of cache entries invalidated",
		},
		[]string{"kind"}, // "key", "prefix", "tag", "clear"
	)

	// ComputeDuration tracks how long cache misses take to compute
	ComputeDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "workout_cache_compute_duration_seconds",
			Help:    "Duration of computations run on cache miss",
			Buckets: []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"family"},
	)
)
