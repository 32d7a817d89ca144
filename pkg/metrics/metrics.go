// Package metrics exposes the Prometheus registry of the workout API.
// Collectors are defined next to the code they measure (cache, api) with
// promauto, so this package only serves them and documents them.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Registry is the default Prometheus registry used by the workout API.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Handler serves every registered metric in the Prometheus text format.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Metrics Documentation
//
// Cache Metrics (pkg/cache):
//   - workout_cache_hits_total{family} (Counter): Read cache hits by key family
//   - workout_cache_misses_total{family} (Counter): Read cache misses by key family
//   - workout_cache_errors_total{operation} (Counter): Store failures (get, set, tag, delete, scan, flush)
//   - workout_cache_invalidations_total{kind} (Counter): Entries removed (key, prefix, tag, clear)
//   - workout_cache_compute_duration_seconds{family} (Histogram): Time spent computing on miss
//
// HTTP Metrics (internal/api):
//   - workout_http_requests_total{route, status} (Counter): Requests by route pattern and status
//   - workout_http_request_duration_seconds{route} (Histogram): Request duration by route pattern
//
// Example Prometheus Queries:
//
//   # Cache Hit Rate per family
//   sum by (family) (rate(workout_cache_hits_total[5m])) /
//   (sum by (family) (rate(workout_cache_hits_total[5m])) + sum by (family) (rate(workout_cache_misses_total[5m])))
//
//   # Store trouble (reads served without the cache)
//   rate(workout_cache_errors_total{operation="get"}[5m]) > 0
//
//   # P95 latency of the records endpoint
//   histogram_quantile(0.95, rate(workout_http_request_duration_seconds_bucket{route="GET /users/{id}/records"}[5m]))
//
//   # Server error rate
//   sum(rate(workout_http_requests_total{status=~"5.."}[5m]))
