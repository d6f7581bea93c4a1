package observability

import (
	"net/http/httptest"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// TestPipeMetrics_ObserveTransition tests transition and connection counters
func TestPipeMetrics_ObserveTransition(t *testing.T) {
	m := NewPipeMetrics(zap.NewNop().Sugar())

	m.ObserveTransition("server", "Created", "Listening")
	m.ObserveTransition("server", "Listening", "Connected")
	m.ObserveTransition("client", "Connecting", "Connected")

	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.stateTransitions.WithLabelValues("server", "Created", "Listening")))
	assert.Equal(t, float64(1),
		testutil.ToFloat64(m.stateTransitions.WithLabelValues("server", "Listening", "Connected")))

	// Only transitions into Connected count as established connections.
	assert.Equal(t, float64(1), testutil.ToFloat64(m.connectsTotal.WithLabelValues("server")))
	assert.Equal(t, float64(1), testutil.ToFloat64(m.connectsTotal.WithLabelValues("client")))

	m.ObserveTransition("server", "Connected", "Disconnected")
	assert.Equal(t, float64(1), testutil.ToFloat64(m.connectsTotal.WithLabelValues("server")))
}

// TestPipeMetrics_AddBytes tests byte accounting and the non-positive guard
func TestPipeMetrics_AddBytes(t *testing.T) {
	m := NewPipeMetrics(zap.NewNop().Sugar())

	m.AddBytes("client", "write", 128)
	m.AddBytes("client", "write", 64)
	m.AddBytes("client", "write", 0)
	m.AddBytes("client", "write", -5)

	assert.Equal(t, float64(192),
		testutil.ToFloat64(m.bytesTransferred.WithLabelValues("client", "write")))
}

// TestPipeMetrics_Handler tests that the scrape endpoint serves the engine metrics
func TestPipeMetrics_Handler(t *testing.T) {
	m := NewPipeMetrics(zap.NewNop().Sugar())
	m.ObserveTransition("server", "Listening", "Connected")
	m.AddBytes("server", "read", 42)

	req := httptest.NewRequest("GET", "/metrics", nil)
	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, req)

	require.Equal(t, 200, rec.Code)
	body := rec.Body.String()
	assert.Contains(t, body, "pipelink_state_transitions_total")
	assert.Contains(t, body, "pipelink_bytes_total")
	assert.Contains(t, body, "pipelink_connections_total")
}
