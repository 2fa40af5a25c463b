package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	httpRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"method", "path"},
	)

	httpRequestsInFlight = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_requests_in_flight",
			Help: "Number of HTTP requests currently being processed",
		},
	)
)

// Metrics middleware records HTTP metrics.
func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()

		httpRequestsInFlight.Inc()
		defer httpRequestsInFlight.Dec()

		wrapped := &metricsRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(wrapped, r)

		duration := time.Since(start).Seconds()
		path := normalizePath(r.URL.Path)

		httpRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.statusCode)).Inc()
		httpRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

type metricsRecorder struct {
	http.ResponseWriter

	statusCode int
}

func (r *metricsRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

// normalizePath collapses path segments that carry IDs so metric label
// cardinality stays bounded.
// /api/v1/vaults/vault-1/entries -> /api/v1/vaults/:id/entries
func normalizePath(path string) string {
	switch {
	case len(path) > 15 && path[:15] == "/api/v1/vaults/":
		if path[15] != '/' {
			suffix := ""
			for i := 15; i < len(path); i++ {
				if path[i] == '/' {
					suffix = normalizeVaultSuffix(path[i:])
					break
				}
			}

			return "/api/v1/vaults/:id" + suffix
		}

	case len(path) > 16 && path[:16] == "/api/v1/entries/":
		if path[16] != '/' {
			suffix := ""
			for i := 16; i < len(path); i++ {
				if path[i] == '/' {
					suffix = path[i:]
					break
				}
			}

			return "/api/v1/entries/:id" + suffix
		}
	}

	return path
}

// normalizeVaultSuffix normalizes the nested user and asset segments of a
// vault path.
func normalizeVaultSuffix(suffix string) string {
	switch {
	case len(suffix) > 7 && suffix[:7] == "/users/":
		return "/users/:id" + trailing(suffix[7:])
	case len(suffix) > 8 && suffix[:8] == "/assets/":
		return "/assets/:id" + trailing(suffix[8:])
	default:
		return suffix
	}
}

func trailing(rest string) string {
	for i := 0; i < len(rest); i++ {
		if rest[i] == '/' {
			return rest[i:]
		}
	}
	return ""
}
