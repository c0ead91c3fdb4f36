package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects Prometheus metrics for the application.
type Metrics struct {
	registry        *prometheus.Registry
	handler         http.Handler
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec

	previewsTotal      *prometheus.CounterVec
	rowsCommittedTotal prometheus.Counter
	duplicatesTotal    prometheus.Counter
}

// NewMetrics initialises the registry and base metrics.
func NewMetrics() *Metrics {
	registry := prometheus.NewRegistry()
	requests := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tenderprice_http_requests_total",
		Help: "HTTP request count by route and status.",
	}, []string{"route", "code"})
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "tenderprice_http_request_duration_seconds",
		Help:    "HTTP request duration by route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"route"})
	previews := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "tenderprice_upload_previews_total",
		Help: "Upload previews by outcome (parsed, duplicate, failed).",
	}, []string{"outcome"})
	rowsCommitted := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tenderprice_rows_committed_total",
		Help: "Extracted rows persisted by commits.",
	})
	duplicates := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "tenderprice_duplicate_commits_total",
		Help: "Commits rejected because the content hash was already known.",
	})
	registry.MustRegister(requests, duration, previews, rowsCommitted, duplicates)
	return &Metrics{
		registry:           registry,
		handler:            promhttp.HandlerFor(registry, promhttp.HandlerOpts{}),
		requestsTotal:      requests,
		requestDuration:    duration,
		previewsTotal:      previews,
		rowsCommittedTotal: rowsCommitted,
		duplicatesTotal:    duplicates,
	}
}

// Handler returns the http.Handler for the /metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, http.StatusText(http.StatusServiceUnavailable), http.StatusServiceUnavailable)
		})
	}
	return m.handler
}

// Middleware records metrics for every HTTP request.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		recorder := statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(&recorder, r)
		route := routePattern(r)
		m.requestsTotal.WithLabelValues(route, strconv.Itoa(recorder.status)).Inc()
		m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
	})
}

// ObservePreview counts a preview by outcome.
func (m *Metrics) ObservePreview(outcome string) {
	if m == nil {
		return
	}
	m.previewsTotal.WithLabelValues(outcome).Inc()
}

// ObserveCommit counts persisted rows.
func (m *Metrics) ObserveCommit(rows int) {
	if m == nil {
		return
	}
	m.rowsCommittedTotal.Add(float64(rows))
}

// ObserveDuplicateCommit counts a rejected duplicate commit.
func (m *Metrics) ObserveDuplicateCommit() {
	if m == nil {
		return
	}
	m.duplicatesTotal.Inc()
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func routePattern(r *http.Request) string {
	if ctx := chi.RouteContext(r.Context()); ctx != nil {
		if pattern := ctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}
