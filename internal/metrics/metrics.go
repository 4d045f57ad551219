package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the Prometheus collectors of the service. A nil *Metrics is
// valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	GenerateAttempts *prometheus.CounterVec
	Fallbacks        prometheus.Counter
	DeviceCommands   *prometheus.CounterVec
	Transitions      *prometheus.CounterVec
	StaleResults     prometheus.Counter
	SessionsActive   prometheus.Gauge
	GatewayRequests  *prometheus.CounterVec
}

func New(namespace string) *Metrics {
	if namespace == "" {
		namespace = "imavoice"
	}
	registry := prometheus.NewRegistry()

	m := &Metrics{
		registry: registry,
		GenerateAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generate_attempts_total",
			Help:      "Generation attempts by outcome",
		}, []string{"outcome"}),
		Fallbacks: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "generate_fallbacks_total",
			Help:      "Generations that ended with the fallback phrase",
		}),
		DeviceCommands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "device_commands_total",
			Help:      "Device commands by command and outcome",
		}, []string{"command", "outcome"}),
		Transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "mode_transitions_total",
			Help:      "Orchestrator mode transitions",
		}, []string{"from", "to"}),
		StaleResults: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "stale_results_total",
			Help:      "Pipeline results discarded because a newer call superseded them",
		}),
		SessionsActive: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "sessions_active",
			Help:      "Open stream sessions",
		}),
		GatewayRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "gateway_requests_total",
			Help:      "Gateway requests by endpoint and status",
		}, []string{"endpoint", "status"}),
	}

	registry.MustRegister(
		m.GenerateAttempts,
		m.Fallbacks,
		m.DeviceCommands,
		m.Transitions,
		m.StaleResults,
		m.SessionsActive,
		m.GatewayRequests,
	)
	return m
}

func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) RecordAttempt(outcome string) {
	if m == nil {
		return
	}
	m.GenerateAttempts.WithLabelValues(outcome).Inc()
}

func (m *Metrics) RecordFallback() {
	if m == nil {
		return
	}
	m.Fallbacks.Inc()
}

func (m *Metrics) RecordCommand(command, outcome string) {
	if m == nil {
		return
	}
	m.DeviceCommands.WithLabelValues(command, outcome).Inc()
}

func (m *Metrics) RecordTransition(from, to string) {
	if m == nil {
		return
	}
	m.Transitions.WithLabelValues(from, to).Inc()
}

func (m *Metrics) RecordStale() {
	if m == nil {
		return
	}
	m.StaleResults.Inc()
}

func (m *Metrics) SessionOpened() {
	if m == nil {
		return
	}
	m.SessionsActive.Inc()
}

func (m *Metrics) SessionClosed() {
	if m == nil {
		return
	}
	m.SessionsActive.Dec()
}

func (m *Metrics) RecordGateway(endpoint string, status int) {
	if m == nil {
		return
	}
	m.GatewayRequests.WithLabelValues(endpoint, http.StatusText(status)).Inc()
}
