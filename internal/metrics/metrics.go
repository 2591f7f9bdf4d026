// Package metrics holds the prometheus collectors of the service.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "quickearn"

// Metrics groups the collectors. A nil *Metrics records nothing.
type Metrics struct {
	ClicksRecorded       *prometheus.CounterVec
	ClickPersistFailures prometheus.Counter
	Reconciliations      *prometheus.CounterVec
	HTTPRequests         *prometheus.CounterVec
	HTTPRequestDuration  *prometheus.HistogramVec
}

// New creates the collectors and registers them on reg.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ClicksRecorded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "clicks_recorded_total",
			Help:      "Referral clicks persisted, by whether a referrer was attributed.",
		}, []string{"attributed"}),
		ClickPersistFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "click_persist_failures_total",
			Help:      "Referral clicks that could not be stored.",
		}),
		Reconciliations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "reconciliations_total",
			Help:      "Admin reconciliations by new status and payout outcome.",
		}, []string{"status", "outcome"}),
		HTTPRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		HTTPRequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
	}
	reg.MustRegister(
		m.ClicksRecorded,
		m.ClickPersistFailures,
		m.Reconciliations,
		m.HTTPRequests,
		m.HTTPRequestDuration,
	)
	return m
}

// ClickRecorded counts a stored click.
func (m *Metrics) ClickRecorded(attributed bool) {
	if m == nil {
		return
	}
	m.ClicksRecorded.WithLabelValues(strconv.FormatBool(attributed)).Inc()
}

// ClickPersistFailed counts a click that could not be stored.
func (m *Metrics) ClickPersistFailed() {
	if m == nil {
		return
	}
	m.ClickPersistFailures.Inc()
}

// Reconciled counts a reconciliation. outcome is "" for rejections.
func (m *Metrics) Reconciled(status, outcome string) {
	if m == nil {
		return
	}
	if outcome == "" {
		outcome = "none"
	}
	m.Reconciliations.WithLabelValues(status, outcome).Inc()
}

// Middleware records request counts and latency keyed by chi route pattern.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		wrapped := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(wrapped, r)

		route := r.URL.Path
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		m.HTTPRequests.WithLabelValues(r.Method, route, strconv.Itoa(wrapped.statusCode)).Inc()
		m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
	})
}

// responseWriter wraps http.ResponseWriter to capture status code
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.WriteHeader(http.StatusOK)
	}
	return rw.ResponseWriter.Write(b)
}
