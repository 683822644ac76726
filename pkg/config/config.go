package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the application configuration
type Config struct {
	Server     ServerConfig     `json:"server"`
	Logging    LoggingConfig    `json:"logging"`
	Resilience ResilienceConfig `json:"resilience"`
	Retry      RetryConfig      `json:"retry"`
	Tracing    TracingConfig    `json:"tracing"`
}

// ServerConfig contains HTTP server configuration
type ServerConfig struct {
	Host         string        `json:"host"`
	Port         int           `json:"port"`
	ReadTimeout  time.Duration `json:"read_timeout"`
	WriteTimeout time.Duration `json:"write_timeout"`
	IdleTimeout  time.Duration `json:"idle_timeout"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `json:"level"`
	Format string `json:"format"`
	Output string `json:"output"`
}

// ResilienceConfig contains circuit breaker configuration
type ResilienceConfig struct {
	FailureThreshold    int           `json:"failure_threshold"`
	SuccessThreshold    int           `json:"success_threshold"`
	ResetTimeout        time.Duration `json:"reset_timeout"`
	HalfOpenConcurrency int           `json:"half_open_concurrency"`
	MonitorInterval     time.Duration `json:"monitor_interval"`
	ReportThreshold     float64       `json:"report_threshold"`
}

// RetryConfig contains retry/backoff configuration
type RetryConfig struct {
	MaxAttempts int           `json:"max_attempts"`
	Backoff     string        `json:"backoff"`
	BaseDelay   time.Duration `json:"base_delay"`
	MaxDelay    time.Duration `json:"max_delay"`
	Jitter      bool          `json:"jitter"`
}

// TracingConfig contains distributed tracing configuration
type TracingConfig struct {
	Enabled        bool    `json:"enabled"`
	JaegerEndpoint string  `json:"jaeger_endpoint"`
	SamplingRate   float64 `json:"sampling_rate"`
}

// Load loads configuration from environment variables with sensible defaults
func Load() (*Config, error) {
	config := &Config{
		Server: ServerConfig{
			Host:         getEnvString("SERVER_HOST", "0.0.0.0"),
			Port:         getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:  getEnvDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getEnvDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			IdleTimeout:  getEnvDuration("SERVER_IDLE_TIMEOUT", 120*time.Second),
		},
		Logging: LoggingConfig{
			Level:  getEnvString("LOG_LEVEL", "info"),
			Format: getEnvString("LOG_FORMAT", "json"),
			Output: getEnvString("LOG_OUTPUT", "stdout"),
		},
		Resilience: ResilienceConfig{
			FailureThreshold:    getEnvInt("CIRCUIT_FAILURE_THRESHOLD", 5),
			SuccessThreshold:    getEnvInt("CIRCUIT_SUCCESS_THRESHOLD", 2),
			ResetTimeout:        getEnvDuration("CIRCUIT_RESET_TIMEOUT", 30*time.Second),
			HalfOpenConcurrency: getEnvInt("CIRCUIT_HALF_OPEN_CONCURRENCY", 1),
			MonitorInterval:     getEnvDuration("CIRCUIT_MONITOR_INTERVAL", 60*time.Second),
			ReportThreshold:     getEnvFloat("CIRCUIT_REPORT_THRESHOLD", 0.10),
		},
		Retry: RetryConfig{
			MaxAttempts: getEnvInt("RETRY_MAX_ATTEMPTS", 3),
			Backoff:     getEnvString("RETRY_BACKOFF", "exponential"),
			BaseDelay:   getEnvDuration("RETRY_BASE_DELAY", 100*time.Millisecond),
			MaxDelay:    getEnvDuration("RETRY_MAX_DELAY", 30*time.Second),
			Jitter:      getEnvBool("RETRY_JITTER", true),
		},
		Tracing: TracingConfig{
			Enabled:        getEnvBool("TRACING_ENABLED", false),
			JaegerEndpoint: getEnvString("JAEGER_ENDPOINT", "http://localhost:14268/api/traces"),
			SamplingRate:   getEnvFloat("TRACING_SAMPLING_RATE", 1.0),
		},
	}

	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		return fmt.Errorf("invalid server port: %d", c.Server.Port)
	}

	if c.Resilience.FailureThreshold <= 0 {
		return fmt.Errorf("circuit failure threshold must be positive")
	}
	if c.Resilience.SuccessThreshold <= 0 {
		return fmt.Errorf("circuit success threshold must be positive")
	}
	if c.Resilience.HalfOpenConcurrency <= 0 {
		return fmt.Errorf("half-open concurrency must be positive")
	}
	if c.Resilience.ReportThreshold < 0 || c.Resilience.ReportThreshold > 1 {
		return fmt.Errorf("report threshold must be within [0,1]")
	}

	switch strings.ToLower(c.Retry.Backoff) {
	case "fixed", "linear", "exponential":
	default:
		return fmt.Errorf("unsupported backoff kind: %s", c.Retry.Backoff)
	}
	if c.Retry.MaxAttempts <= 0 {
		return fmt.Errorf("retry max attempts must be positive")
	}

	return nil
}

// Addr returns the server listen address
func (c *Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}

// Helper functions for environment variable parsing
func getEnvString(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
