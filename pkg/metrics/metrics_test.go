package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMetrics_Disabled(t *testing.T) {
	m := NewMetrics(&Config{Enabled: false})

	// No-op recording must not panic when metrics are disabled
	m.RecordExecution("node:http-request", "success")
	m.RecordRejection("node:http-request")
	m.RecordTransition("node:http-request", "Closed", "Open", 1)
	m.RecordRetry("node:http-request", "timeout")
	m.RecordMonitorSweep(time.Millisecond, 3)
	m.RemoveCircuit("node:http-request")
	assert.NotNil(t, m.Handler())
}

func TestMetrics_CircuitCounters(t *testing.T) {
	m := NewMetrics(nil)

	m.RecordExecution("node:http-request", "success")
	m.RecordExecution("node:http-request", "failure")
	m.RecordExecution("node:http-request", "failure")
	m.RecordRejection("node:http-request")

	require.Equal(t, float64(2), testutil.ToFloat64(
		m.CircuitExecutionsTotal.WithLabelValues("node:http-request", "failure")))
	require.Equal(t, float64(1), testutil.ToFloat64(
		m.CircuitExecutionsTotal.WithLabelValues("node:http-request", "success")))
	require.Equal(t, float64(1), testutil.ToFloat64(
		m.CircuitRejectionsTotal.WithLabelValues("node:http-request")))
}

func TestMetrics_StateGauge(t *testing.T) {
	m := NewMetrics(nil)

	m.RecordTransition("service:mailer", "Closed", "Open", 1)
	assert.Equal(t, float64(1), testutil.ToFloat64(
		m.CircuitState.WithLabelValues("service:mailer")))

	m.RecordTransition("service:mailer", "Open", "HalfOpen", 2)
	assert.Equal(t, float64(2), testutil.ToFloat64(
		m.CircuitState.WithLabelValues("service:mailer")))

	m.RemoveCircuit("service:mailer")
}

func TestMetrics_SeparateRegistries(t *testing.T) {
	// Two instances must not collide on registration
	a := NewMetrics(nil)
	b := NewMetrics(nil)
	a.RecordRetry("api:https://api.example.com", "rate-limited")
	b.RecordRetry("api:https://api.example.com", "rate-limited")

	assert.Equal(t, float64(1), testutil.ToFloat64(
		a.RetriesTotal.WithLabelValues("api:https://api.example.com", "rate-limited")))
}
