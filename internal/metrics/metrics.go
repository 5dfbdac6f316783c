// Package metrics provides Prometheus instrumentation for the forecast engine.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// EvaluationsTotal counts engine runs, partitioned by operation.
	EvaluationsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "basinflow_evaluations_total",
		Help: "Total number of engine evaluations executed",
	}, []string{"operation"})

	// EvaluationLatency tracks engine run latency by operation.
	EvaluationLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "basinflow_evaluation_latency_seconds",
		Help:    "Engine evaluation latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation"})

	// SimulationIterations is a histogram of Monte Carlo iteration counts.
	SimulationIterations = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "basinflow_simulation_iterations",
		Help:    "Monte Carlo iterations completed per simulation",
		Buckets: []float64{100, 500, 1000, 5000, 10000, 50000, 100000},
	})

	// SimulationsPartial counts simulations cancelled before completion.
	SimulationsPartial = promauto.NewCounter(prometheus.CounterOpts{
		Name: "basinflow_simulations_partial_total",
		Help: "Simulations cancelled at a chunk boundary",
	})

	// WebSocketClients tracks connected WebSocket progress subscribers.
	WebSocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "basinflow_websocket_clients",
		Help: "Number of connected WebSocket clients",
	})

	// HTTPRequestsTotal counts HTTP requests by method, path, and status.
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "basinflow_http_requests_total",
		Help: "Total HTTP requests",
	}, []string{"method", "path", "status"})

	// HTTPRequestDuration tracks request duration by method and path.
	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "basinflow_http_request_duration_seconds",
		Help:    "HTTP request duration in seconds",
		Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1.0},
	}, []string{"method", "path"})

	// UneconomicForecasts counts forecast requests rejected as uneconomic.
	UneconomicForecasts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "basinflow_uneconomic_forecasts_total",
		Help: "Forecast requests whose economic limit exceeds initial rate",
	})
)

// Handler returns the Prometheus metrics HTTP handler.
func Handler() http.Handler {
	return promhttp.Handler()
}

// Middleware returns an HTTP middleware that records request metrics.
func Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &statusWriter{ResponseWriter: w, status: 200}
		next.ServeHTTP(wrapped, r)
		duration := time.Since(start).Seconds()

		// Use the route pattern for path label to avoid high cardinality.
		path := r.URL.Path
		HTTPRequestsTotal.WithLabelValues(r.Method, path, strconv.Itoa(wrapped.status)).Inc()
		HTTPRequestDuration.WithLabelValues(r.Method, path).Observe(duration)
	})
}

// statusWriter wraps http.ResponseWriter to capture the status code.
type statusWriter struct {
	http.ResponseWriter
	status int
}

func (w *statusWriter) WriteHeader(code int) {
	w.status = code
	w.ResponseWriter.WriteHeader(code)
}
