package gateway

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Authorization outcomes recorded by the delegate.
const (
	OutcomeOpen        = "open"
	OutcomeMissing     = "missing"
	OutcomeRejected    = "rejected"
	OutcomeAllowed     = "allowed"
	OutcomeUnavailable = "unavailable"
	OutcomeCanceled    = "canceled"
)

// Metrics owns a private registry so several gateways (and tests) can
// coexist in one process.
type Metrics struct {
	registry         *prometheus.Registry
	inFlight         prometheus.Gauge
	requests         *prometheus.CounterVec
	duration         *prometheus.HistogramVec
	decisions        *prometheus.CounterVec
	validateDuration prometheus.Histogram
	rateLimited      prometheus.Counter
}

func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		inFlight: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "gateway_in_flight_requests",
			Help: "In-flight HTTP requests.",
		}),
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_http_requests_total",
			Help: "Total number of HTTP requests.",
		}, []string{"method", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "gateway_http_request_duration_seconds",
			Help:    "HTTP request latencies in seconds.",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "status"}),
		decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateway_auth_decisions_total",
			Help: "Authorization decisions by outcome.",
		}, []string{"outcome"}),
		validateDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gateway_validate_duration_seconds",
			Help:    "Latency of remote token validation calls.",
			Buckets: []float64{.001, .0025, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateway_rate_limited_total",
			Help: "Requests rejected by the rate limiter.",
		}),
	}
	m.registry.MustRegister(m.inFlight, m.requests, m.duration, m.decisions, m.validateDuration, m.rateLimited)
	return m
}

func (m *Metrics) Decision(outcome string) {
	m.decisions.WithLabelValues(outcome).Inc()
}

func (m *Metrics) ObserveValidate(d time.Duration) {
	m.validateDuration.Observe(d.Seconds())
}

func (m *Metrics) RateLimited() {
	m.rateLimited.Inc()
}

// Handler exposes the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Instrument records request count, latency and in-flight gauge.
func (m *Metrics) Instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.inFlight.Inc()
		defer m.inFlight.Dec()

		start := time.Now()
		sw := &statusWriter{ResponseWriter: w, code: http.StatusOK}
		next.ServeHTTP(sw, r)

		status := strconv.Itoa(sw.code)
		m.duration.WithLabelValues(r.Method, status).Observe(time.Since(start).Seconds())
		m.requests.WithLabelValues(r.Method, status).Inc()
	})
}

type statusWriter struct {
	http.ResponseWriter
	code        int
	wroteHeader bool
}

func (w *statusWriter) WriteHeader(code int) {
	if !w.wroteHeader {
		w.code = code
		w.wroteHeader = true
	}
	w.ResponseWriter.WriteHeader(code)
}

func (w *statusWriter) Write(b []byte) (int, error) {
	w.wroteHeader = true
	return w.ResponseWriter.Write(b)
}

// Unwrap lets http.ResponseController reach Flush on the real writer.
func (w *statusWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
