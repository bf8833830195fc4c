package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_Defaults(t *testing.T) {
	cfg, err := New()
	require.NoError(t, err)

	assert.Equal(t, "ws://localhost:8000/ws", cfg.BackendURL)
	assert.Equal(t, "default", cfg.SessionID)
	assert.Equal(t, "INFO", cfg.LogLevel)
	assert.Equal(t, 2*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, 500*time.Millisecond, cfg.FlushRetryDelay)
	assert.Equal(t, 10*time.Second, cfg.WriteTimeout)
	assert.Equal(t, time.Minute, cfg.PongTimeout)
	assert.Equal(t, 54*time.Second, cfg.PingInterval)
	assert.Equal(t, 30*time.Second, cfg.ProcessingTimeout)
	assert.Equal(t, 16*time.Second, cfg.CalloutLifetime)
	assert.Equal(t, 3*time.Second, cfg.CalloutFadeWindow)
	assert.Equal(t, 600*time.Millisecond, cfg.BloomDuration)
	assert.Equal(t, 8*time.Second, cfg.BreakthroughDismiss)
	assert.Equal(t, 6*time.Second, cfg.CorrectionDismiss)
}

func TestNew_EnvOverrides(t *testing.T) {
	t.Setenv("BACKEND_WS_URL", "wss://sessions.example.com/ws")
	t.Setenv("SESSION_ID", "s-42")
	t.Setenv("WS_RECONNECT_DELAY_MS", "5000")
	t.Setenv("LOG_LEVEL", "DEBUG")

	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, "wss://sessions.example.com/ws", cfg.BackendURL)
	assert.Equal(t, "s-42", cfg.SessionID)
	assert.Equal(t, 5*time.Second, cfg.ReconnectDelay)
	assert.Equal(t, "DEBUG", cfg.LogLevel)
}

func TestNew_RejectsInvalidValues(t *testing.T) {
	t.Setenv("LOG_LEVEL", "LOUD")
	_, err := New()
	assert.Error(t, err)
}

func TestNew_RejectsNonPositiveDuration(t *testing.T) {
	t.Setenv("PROCESSING_TIMEOUT_MS", "0")
	_, err := New()
	assert.Error(t, err)
}

func TestNew_RejectsPingSlowerThanPongTimeout(t *testing.T) {
	t.Setenv("WS_PING_INTERVAL_MS", "60000")
	_, err := New()
	assert.Error(t, err)
}

func TestNew_UnparseableMillisFallsBack(t *testing.T) {
	t.Setenv("WS_RECONNECT_DELAY_MS", "soon")
	cfg, err := New()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.ReconnectDelay)
}
