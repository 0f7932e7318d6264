// Package metrics exposes the Prometheus collectors of the API server.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for the server. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	TurnsTotal *prometheus.CounterVec

	GatewayCallsTotal     *prometheus.CounterVec
	GatewayCallDuration   *prometheus.HistogramVec
	CaptureSessionsActive prometheus.Gauge

	RateLimitHits *prometheus.CounterVec
}

// New creates a Metrics instance with its own registry.
func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "voxmate"
	}

	registry := prometheus.NewRegistry()

	requestsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		},
		[]string{"method", "route", "status"},
	)

	requestDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.5, 1, 2, 5, 10, 30},
		},
		[]string{"method", "route"},
	)

	turnsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "turns_total",
			Help:      "Conversation turns by outcome",
		},
		[]string{"kind", "outcome"},
	)

	gatewayCallsTotal := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_calls_total",
			Help:      "External AI gateway calls by outcome",
		},
		[]string{"gateway", "provider", "outcome"},
	)

	gatewayCallDuration := prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "gateway_call_duration_seconds",
			Help:      "External AI gateway call duration in seconds",
			Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 20, 30},
		},
		[]string{"gateway", "provider"},
	)

	captureSessionsActive := prometheus.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "capture_sessions_active",
			Help:      "Number of open speech capture sessions",
		},
	)

	rateLimitHits := prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "rate_limit_hits_total",
			Help:      "Requests rejected by the rate limiter",
		},
		[]string{"route"},
	)

	registry.MustRegister(
		requestsTotal,
		requestDuration,
		turnsTotal,
		gatewayCallsTotal,
		gatewayCallDuration,
		captureSessionsActive,
		rateLimitHits,
	)

	return &Metrics{
		registry:              registry,
		RequestsTotal:         requestsTotal,
		RequestDuration:       requestDuration,
		TurnsTotal:            turnsTotal,
		GatewayCallsTotal:     gatewayCallsTotal,
		GatewayCallDuration:   gatewayCallDuration,
		CaptureSessionsActive: captureSessionsActive,
		RateLimitHits:         rateLimitHits,
	}
}

// Handler returns an HTTP handler for the metrics endpoint.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// Registry exposes the underlying registry, mainly for tests.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// RecordRequest records a completed HTTP request.
func (m *Metrics) RecordRequest(method, route string, status int, duration time.Duration) {
	if m == nil {
		return
	}
	m.RequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.RequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// RecordTurn records a finished turn. kind is text or voice; outcome is ok,
// degraded, no_speech or error.
func (m *Metrics) RecordTurn(kind, outcome string) {
	if m == nil {
		return
	}
	m.TurnsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordGatewayCall records one external AI call.
func (m *Metrics) RecordGatewayCall(gateway, provider string, err error, duration time.Duration) {
	if m == nil {
		return
	}
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	m.GatewayCallsTotal.WithLabelValues(gateway, provider, outcome).Inc()
	m.GatewayCallDuration.WithLabelValues(gateway, provider).Observe(duration.Seconds())
}

func (m *Metrics) CaptureStarted() {
	if m == nil {
		return
	}
	m.CaptureSessionsActive.Inc()
}

func (m *Metrics) CaptureEnded() {
	if m == nil {
		return
	}
	m.CaptureSessionsActive.Dec()
}

// RecordRateLimitHit records a rejected request.
func (m *Metrics) RecordRateLimitHit(route string) {
	if m == nil {
		return
	}
	m.RateLimitHits.WithLabelValues(route).Inc()
}
