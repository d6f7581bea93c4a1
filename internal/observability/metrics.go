// Package observability provides Prometheus metrics for the pipe engine.
package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"
)

// PipeMetrics collects engine-level measurements on a private registry.
// It implements the engine's MetricsSink interface and is safe for
// concurrent use.
type PipeMetrics struct {
	logger   *zap.SugaredLogger
	registry *prometheus.Registry

	stateTransitions *prometheus.CounterVec
	bytesTransferred *prometheus.CounterVec
	connectsTotal    *prometheus.CounterVec
}

// NewPipeMetrics creates a metrics collector with Go runtime and process
// collectors registered alongside the engine metrics.
func NewPipeMetrics(logger *zap.SugaredLogger) *PipeMetrics {
	registry := prometheus.NewRegistry()

	m := &PipeMetrics{
		logger:   logger,
		registry: registry,
	}

	m.stateTransitions = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipelink_state_transitions_total",
			Help: "Connection state transitions by endpoint role",
		},
		[]string{"role", "from", "to"},
	)

	m.bytesTransferred = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipelink_bytes_total",
			Help: "Bytes transferred through the pipe",
		},
		[]string{"role", "direction"},
	)

	m.connectsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pipelink_connections_total",
			Help: "Connections established by endpoint role",
		},
		[]string{"role"},
	)

	registry.MustRegister(
		m.stateTransitions,
		m.bytesTransferred,
		m.connectsTotal,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveTransition records one state transition; a transition into
// Connected also counts as an established connection.
func (m *PipeMetrics) ObserveTransition(role, from, to string) {
	m.stateTransitions.WithLabelValues(role, from, to).Inc()
	if to == "Connected" {
		m.connectsTotal.WithLabelValues(role).Inc()
	}
}

// AddBytes records bytes moved through the pipe in one direction.
func (m *PipeMetrics) AddBytes(role, direction string, n int) {
	if n <= 0 {
		return
	}
	m.bytesTransferred.WithLabelValues(role, direction).Add(float64(n))
}

// Handler exposes the registry for scraping.
func (m *PipeMetrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
