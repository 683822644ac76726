package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, "0.0.0.0:8080", cfg.Addr())

	assert.Equal(t, 5, cfg.Resilience.FailureThreshold)
	assert.Equal(t, 2, cfg.Resilience.SuccessThreshold)
	assert.Equal(t, 30*time.Second, cfg.Resilience.ResetTimeout)
	assert.Equal(t, 1, cfg.Resilience.HalfOpenConcurrency)
	assert.Equal(t, 60*time.Second, cfg.Resilience.MonitorInterval)
	assert.InDelta(t, 0.10, cfg.Resilience.ReportThreshold, 1e-9)

	assert.Equal(t, 3, cfg.Retry.MaxAttempts)
	assert.Equal(t, "exponential", cfg.Retry.Backoff)
	assert.Equal(t, 100*time.Millisecond, cfg.Retry.BaseDelay)
	assert.True(t, cfg.Retry.Jitter)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CIRCUIT_FAILURE_THRESHOLD", "3")
	t.Setenv("CIRCUIT_RESET_TIMEOUT", "1s")
	t.Setenv("RETRY_BACKOFF", "linear")
	t.Setenv("RETRY_JITTER", "false")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Resilience.FailureThreshold)
	assert.Equal(t, time.Second, cfg.Resilience.ResetTimeout)
	assert.Equal(t, "linear", cfg.Retry.Backoff)
	assert.False(t, cfg.Retry.Jitter)
}

func TestLoad_InvalidValuesFallBack(t *testing.T) {
	t.Setenv("SERVER_PORT", "not-a-number")
	t.Setenv("CIRCUIT_MONITOR_INTERVAL", "soon")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 60*time.Second, cfg.Resilience.MonitorInterval)
}

func TestValidate(t *testing.T) {
	t.Setenv("RETRY_BACKOFF", "quadratic")
	_, err := Load()
	assert.Error(t, err)
}

func TestValidate_BadThresholds(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	cfg.Resilience.FailureThreshold = 0
	assert.Error(t, cfg.Validate())

	cfg.Resilience.FailureThreshold = 5
	cfg.Resilience.ReportThreshold = 1.5
	assert.Error(t, cfg.Validate())
}
