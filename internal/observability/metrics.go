package observability

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Result label values shared by interpretation and narration counters
const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// Metrics holds the service's Prometheus collectors. A nil *Metrics is valid
// and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	// Decisions by action and explanation source
	Decisions *prometheus.CounterVec

	// Lazy policy interpretations by result
	Interpretations *prometheus.CounterVec

	// Voice syntheses by result
	Narrations *prometheus.CounterVec

	// HTTP latency by route pattern, method and status
	RequestDuration *prometheus.HistogramVec
}

// NewMetrics creates collectors registered on a dedicated registry
func NewMetrics() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),

		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wisespirit_decisions_total",
			Help: "Total bottle handling decisions by action and source",
		}, []string{"action", "source"}),

		Interpretations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wisespirit_interpretations_total",
			Help: "Total policy text interpretations by result",
		}, []string{"result"}),

		Narrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "wisespirit_narrations_total",
			Help: "Total voice syntheses by result",
		}, []string{"result"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "wisespirit_http_request_duration_seconds",
			Help:    "HTTP request latency by route, method and status",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 20},
		}, []string{"route", "method", "status"}),
	}

	m.registry.MustRegister(
		m.Decisions,
		m.Interpretations,
		m.Narrations,
		m.RequestDuration,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// Registry exposes the underlying registry
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// IncDecision records a decision outcome.
func (m *Metrics) IncDecision(action, source string) {
	if m != nil {
		m.Decisions.WithLabelValues(action, source).Inc()
	}
}

// IncInterpretation records a policy interpretation attempt.
func (m *Metrics) IncInterpretation(ok bool) {
	if m != nil {
		m.Interpretations.WithLabelValues(result(ok)).Inc()
	}
}

// IncNarration records a voice synthesis attempt.
func (m *Metrics) IncNarration(ok bool) {
	if m != nil {
		m.Narrations.WithLabelValues(result(ok)).Inc()
	}
}

// Handler serves the registry in the Prometheus text format
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Middleware observes request latency labelled with the chi route pattern,
// so path parameters do not explode label cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	if m == nil {
		return next
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}

		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}

		m.RequestDuration.
			WithLabelValues(route, r.Method, strconv.Itoa(status)).
			Observe(time.Since(start).Seconds())
	})
}

func result(ok bool) string {
	if ok {
		return ResultSuccess
	}
	return ResultFailure
}
