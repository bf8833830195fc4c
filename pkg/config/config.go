package config

import (
	"os"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"

	pkgerrors "sessiongraph/pkg/errors"
)

// Config holds all configuration values
type Config struct {
	// BackendURL is the websocket endpoint of the session backend.
	BackendURL string `validate:"required,url"`

	// SessionID is appended to the connection URL as a query parameter.
	SessionID string `validate:"required"`

	LogLevel         string `validate:"required,oneof=DEBUG INFO WARN ERROR"`
	MetricsNamespace string `validate:"required"`

	// Connection timing
	ReconnectDelay  time.Duration `validate:"gt=0"`
	FlushRetryDelay time.Duration `validate:"gt=0"`
	WriteTimeout    time.Duration `validate:"gt=0"`
	PongTimeout     time.Duration `validate:"gt=0"`
	PingInterval    time.Duration `validate:"gt=0,ltfield=PongTimeout"`

	// Session timing
	ProcessingTimeout time.Duration `validate:"gt=0"`

	// Ephemeral state timing
	CalloutLifetime      time.Duration `validate:"gt=0"`
	CalloutFadeWindow    time.Duration `validate:"gt=0"`
	CalloutSweepInterval time.Duration `validate:"gt=0"`
	BloomDuration        time.Duration `validate:"gt=0"`
	BreakthroughDismiss  time.Duration `validate:"gt=0"`
	CorrectionDismiss    time.Duration `validate:"gt=0"`
}

// New creates a new configuration from environment variables
func New() (*Config, error) {
	cfg := &Config{
		BackendURL:       getEnv("BACKEND_WS_URL", "ws://localhost:8000/ws"),
		SessionID:        getEnv("SESSION_ID", "default"),
		LogLevel:         getEnv("LOG_LEVEL", "INFO"),
		MetricsNamespace: getEnv("METRICS_NAMESPACE", "sessiongraph"),

		ReconnectDelay:  getEnvMillis("WS_RECONNECT_DELAY_MS", 2000),
		FlushRetryDelay: getEnvMillis("WS_FLUSH_RETRY_DELAY_MS", 500),
		WriteTimeout:    getEnvMillis("WS_WRITE_TIMEOUT_MS", 10000),
		PongTimeout:     getEnvMillis("WS_PONG_TIMEOUT_MS", 60000),
		PingInterval:    getEnvMillis("WS_PING_INTERVAL_MS", 54000),

		ProcessingTimeout: getEnvMillis("PROCESSING_TIMEOUT_MS", 30000),

		CalloutLifetime:      getEnvMillis("CALLOUT_LIFETIME_MS", 16000),
		CalloutFadeWindow:    getEnvMillis("CALLOUT_FADE_MS", 3000),
		CalloutSweepInterval: getEnvMillis("CALLOUT_SWEEP_INTERVAL_MS", 2000),
		BloomDuration:        getEnvMillis("BLOOM_DURATION_MS", 600),
		BreakthroughDismiss:  getEnvMillis("BREAKTHROUGH_DISMISS_MS", 8000),
		CorrectionDismiss:    getEnvMillis("CORRECTION_DISMISS_MS", 6000),
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, pkgerrors.NewValidation("invalid configuration: " + err.Error())
	}
	return cfg, nil
}

// getEnv gets an environment variable with a fallback default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvMillis reads an integer millisecond value with a fallback default.
// Unparseable values fall back rather than fail; validation catches the
// non-positive cases.
func getEnvMillis(key string, defaultMillis int) time.Duration {
	if value := os.Getenv(key); value != "" {
		if ms, err := strconv.Atoi(value); err == nil {
			return time.Duration(ms) * time.Millisecond
		}
	}
	return time.Duration(defaultMillis) * time.Millisecond
}
