// Package metrics exposes render and HTTP metrics to Prometheus.
package metrics

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	web2pdf "github.com/alnah/go-web2pdf"
)

const namespace = "web2pdf"

// Outcome labels.
const (
	OutcomeOK           = "ok"
	OutcomeRequestError = "request_error"
	OutcomeEngineCrash  = "engine_crash"
	OutcomeCanceled     = "canceled"
	OutcomeError        = "error"
)

var _ web2pdf.Recorder = (*Metrics)(nil)

// Metrics implements web2pdf.Recorder on top of Prometheus collectors.
type Metrics struct {
	gatherer prometheus.Gatherer

	renders         *prometheus.CounterVec
	renderDuration  *prometheus.HistogramVec
	sessionsActive  prometheus.Gauge
	sessionLifetime prometheus.Histogram
	operations      *prometheus.CounterVec
	opDuration      *prometheus.HistogramVec
	cleanupFailures prometheus.Counter
	httpRequests    *prometheus.CounterVec
	httpDuration    *prometheus.HistogramVec
}

// New registers the collectors on a fresh registry, along with the Go
// runtime and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return NewWith(reg, reg)
}

// NewWith registers the collectors on reg and serves them from g.
func NewWith(reg prometheus.Registerer, g prometheus.Gatherer) *Metrics {
	f := promauto.With(reg)
	renderBuckets := []float64{0.25, 0.5, 1, 2, 5, 10, 20, 30, 60, 120}

	return &Metrics{
		gatherer: g,
		renders: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "renders_total",
			Help:      "Render requests by outcome.",
		}, []string{"outcome"}),
		renderDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "render_duration_seconds",
			Help:      "Time from request to PDF bytes, including browser startup.",
			Buckets:   renderBuckets,
		}, []string{"outcome"}),
		sessionsActive: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Browser processes currently owned by a render.",
		}),
		sessionLifetime: f.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "session_lifetime_seconds",
			Help:      "Lifetime of browser sessions from launch to release.",
			Buckets:   renderBuckets,
		}),
		operations: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "operations_total",
			Help:      "Page operations executed, by name and outcome.",
		}, []string{"operation", "outcome"}),
		opDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "operation_duration_seconds",
			Help:      "Duration of page operations.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"operation"}),
		cleanupFailures: f.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "scratch_cleanup_failures_total",
			Help:      "Scratch directories that could not be removed.",
		}),
		httpRequests: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by route and status code.",
		}, []string{"route", "code"}),
		httpDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency by route.",
			Buckets:   renderBuckets,
		}, []string{"route"}),
	}
}

// Outcome maps a render error to its label value.
func Outcome(err error) string {
	switch {
	case err == nil:
		return OutcomeOK
	case web2pdf.IsRequestError(err):
		return OutcomeRequestError
	case web2pdf.IsEngineCrash(err):
		return OutcomeEngineCrash
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return OutcomeCanceled
	default:
		return OutcomeError
	}
}

func (m *Metrics) SessionOpened() {
	m.sessionsActive.Inc()
}

func (m *Metrics) SessionClosed(lifetime time.Duration) {
	m.sessionsActive.Dec()
	m.sessionLifetime.Observe(lifetime.Seconds())
}

func (m *Metrics) OperationDone(op string, took time.Duration, err error) {
	outcome := OutcomeOK
	if err != nil {
		outcome = OutcomeError
	}
	m.operations.WithLabelValues(op, outcome).Inc()
	m.opDuration.WithLabelValues(op).Observe(took.Seconds())
}

func (m *Metrics) RenderDone(took time.Duration, err error) {
	outcome := Outcome(err)
	m.renders.WithLabelValues(outcome).Inc()
	m.renderDuration.WithLabelValues(outcome).Observe(took.Seconds())
}

func (m *Metrics) ScratchCleanupFailed() {
	m.cleanupFailures.Inc()
}

// ObserveHTTP records one served HTTP request.
func (m *Metrics) ObserveHTTP(route string, code int, took time.Duration) {
	m.httpRequests.WithLabelValues(route, strconv.Itoa(code)).Inc()
	m.httpDuration.WithLabelValues(route).Observe(took.Seconds())
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
