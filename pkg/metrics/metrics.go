package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Namespace prefixes every metric name.
const Namespace = "hyperstub"

// Outcome describes how the mock server answered a request.
type Outcome string

// Request outcomes.
const (
	OutcomeStub        Outcome = "stub"
	OutcomeSynthesized Outcome = "synthesized"
	OutcomeNotFound    Outcome = "not_found"
	OutcomeError       Outcome = "error"
)

// Metrics holds the Prometheus collectors.
type Metrics struct {
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	StubsActive     prometheus.Gauge

	// ControlRequestsTotal counts control API requests.
	// Labels: method, route, status
	ControlRequestsTotal *prometheus.CounterVec

	gatherer prometheus.Gatherer
}

// New creates the collectors and registers them on reg. When reg is also a
// prometheus.Gatherer, Handler serves it.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "requests_total",
				Help:      "Total number of mock requests",
			},
			[]string{"method", "outcome", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: Namespace,
				Name:      "request_duration_seconds",
				Help:      "Mock request duration in seconds",
				Buckets:   []float64{.0005, .001, .0025, .005, .01, .025, .05, .1, .25, .5, 1},
			},
			[]string{"outcome"},
		),
		StubsActive: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: Namespace,
				Name:      "stubs_active",
				Help:      "Number of registered stubs",
			},
		),
		ControlRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: Namespace,
				Name:      "control_requests_total",
				Help:      "Total number of control API requests",
			},
			[]string{"method", "route", "status"},
		),
	}

	reg.MustRegister(
		m.RequestsTotal,
		m.RequestDuration,
		m.StubsActive,
		m.ControlRequestsTotal,
	)
	if g, ok := reg.(prometheus.Gatherer); ok {
		m.gatherer = g
	}
	return m
}

// ObserveRequest records one mock request.
func (m *Metrics) ObserveRequest(method string, outcome Outcome, status int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(strings.ToUpper(method), string(outcome), strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(string(outcome)).Observe(elapsed.Seconds())
}

// SetStubs records the number of registered stubs.
func (m *Metrics) SetStubs(n int) {
	if m == nil {
		return
	}
	m.StubsActive.Set(float64(n))
}

// ObserveControl records one control API request.
func (m *Metrics) ObserveControl(method, route string, status int) {
	if m == nil {
		return
	}
	m.ControlRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}

// Handler serves the Prometheus exposition format. It returns nil when
// metrics are disabled or the registerer cannot be gathered.
func (m *Metrics) Handler() http.Handler {
	if m == nil || m.gatherer == nil {
		return nil
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
