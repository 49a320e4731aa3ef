package metrics

import (
	"net/http"
	"strconv"
	"time"

	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	httpRequests = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests by path/method/code.",
		},
		[]string{"path", "method", "code"},
	)

	httpDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests by path/method/code.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"path", "method", "code"},
	)

	assignmentOps = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "assignment_operations_total",
			Help: "Assignment mutations by operation and result.",
		},
		[]string{"op", "result"},
	)

	versionConflicts = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "version_conflicts_total",
			Help: "Optimistic-concurrency conflicts by entity kind.",
		},
		[]string{"entity"},
	)
)

func init() {
	prometheus.MustRegister(httpRequests, httpDuration, assignmentOps, versionConflicts)
}

// AssignmentOp counts one assignment mutation attempt.
func AssignmentOp(op, result string) {
	assignmentOps.WithLabelValues(op, result).Inc()
}

// VersionConflict counts one rejected stale write.
func VersionConflict(entity string) {
	versionConflicts.WithLabelValues(entity).Inc()
}

// Middleware records request counts and latency per route.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := chimiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		code := strconv.Itoa(ww.Status())
		path := r.URL.Path
		httpRequests.WithLabelValues(path, r.Method, code).Inc()
		httpDuration.WithLabelValues(path, r.Method, code).Observe(time.Since(start).Seconds())
	})
}

// Handler exposes the Prometheus scrape endpoint.
func Handler() http.Handler {
	return promhttp.Handler()
}
