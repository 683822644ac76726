package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics
type Metrics struct {
	registry *prometheus.Registry

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Circuit metrics
	CircuitExecutionsTotal  *prometheus.CounterVec
	CircuitRejectionsTotal  *prometheus.CounterVec
	CircuitTransitionsTotal *prometheus.CounterVec
	CircuitState            *prometheus.GaugeVec

	// Retry metrics
	RetriesTotal *prometheus.CounterVec

	// Monitor metrics
	MonitorSweepDuration prometheus.Histogram
	CircuitsTracked      prometheus.Gauge
}

// Config holds metrics configuration
type Config struct {
	Namespace string `json:"namespace"`
	Subsystem string `json:"subsystem"`
	Enabled   bool   `json:"enabled"`
}

// DefaultConfig returns default metrics configuration
func DefaultConfig() *Config {
	return &Config{
		Namespace: "flowgate",
		Subsystem: "",
		Enabled:   true,
	}
}

// NewMetrics creates and registers all Prometheus metrics on a dedicated registry
func NewMetrics(config *Config) *Metrics {
	if config == nil {
		config = DefaultConfig()
	}

	if !config.Enabled {
		return &Metrics{}
	}

	m := &Metrics{
		registry: prometheus.NewRegistry(),

		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path", "status_code"},
		),

		CircuitExecutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "circuit_executions_total",
				Help:      "Total number of operations executed through a circuit",
			},
			[]string{"key", "outcome"},
		),
		CircuitRejectionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "circuit_rejections_total",
				Help:      "Total number of executions rejected by an open circuit",
			},
			[]string{"key"},
		),
		CircuitTransitionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "circuit_transitions_total",
				Help:      "Total number of circuit state transitions",
			},
			[]string{"key", "from", "to"},
		),
		CircuitState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "circuit_state",
				Help:      "Current circuit state (0=closed, 1=open, 2=half-open)",
			},
			[]string{"key"},
		),

		RetriesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "retries_total",
				Help:      "Total number of retry attempts scheduled",
			},
			[]string{"key", "category"},
		),

		MonitorSweepDuration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "monitor_sweep_duration_seconds",
				Help:      "Duration of circuit monitor sweeps in seconds",
				Buckets:   prometheus.DefBuckets,
			},
		),
		CircuitsTracked: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Namespace: config.Namespace,
				Subsystem: config.Subsystem,
				Name:      "circuits_tracked",
				Help:      "Number of circuits currently tracked by the registry",
			},
		),
	}

	m.registry.MustRegister(
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CircuitExecutionsTotal,
		m.CircuitRejectionsTotal,
		m.CircuitTransitionsTotal,
		m.CircuitState,
		m.RetriesTotal,
		m.MonitorSweepDuration,
		m.CircuitsTracked,
	)

	return m
}

// RecordHTTPRequest records HTTP request metrics
func (m *Metrics) RecordHTTPRequest(method, path string, statusCode int, duration time.Duration) {
	if m.HTTPRequestsTotal == nil {
		return
	}

	statusStr := strconv.Itoa(statusCode)
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusStr).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path, statusStr).Observe(duration.Seconds())
}

// RecordExecution records the outcome of an operation executed through a circuit
func (m *Metrics) RecordExecution(key, outcome string) {
	if m.CircuitExecutionsTotal == nil {
		return
	}
	m.CircuitExecutionsTotal.WithLabelValues(key, outcome).Inc()
}

// RecordRejection records an execution rejected by an open circuit
func (m *Metrics) RecordRejection(key string) {
	if m.CircuitRejectionsTotal == nil {
		return
	}
	m.CircuitRejectionsTotal.WithLabelValues(key).Inc()
}

// RecordTransition records a circuit state transition and updates the state gauge
func (m *Metrics) RecordTransition(key, from, to string, stateValue float64) {
	if m.CircuitTransitionsTotal == nil {
		return
	}
	m.CircuitTransitionsTotal.WithLabelValues(key, from, to).Inc()
	m.CircuitState.WithLabelValues(key).Set(stateValue)
}

// RecordRetry records a scheduled retry attempt
func (m *Metrics) RecordRetry(key, category string) {
	if m.RetriesTotal == nil {
		return
	}
	m.RetriesTotal.WithLabelValues(key, category).Inc()
}

// RecordMonitorSweep records a monitor sweep duration and the tracked circuit count
func (m *Metrics) RecordMonitorSweep(duration time.Duration, tracked int) {
	if m.MonitorSweepDuration == nil {
		return
	}
	m.MonitorSweepDuration.Observe(duration.Seconds())
	m.CircuitsTracked.Set(float64(tracked))
}

// RemoveCircuit drops per-key series for a circuit deleted by the monitor
func (m *Metrics) RemoveCircuit(key string) {
	if m.CircuitState == nil {
		return
	}
	m.CircuitState.DeleteLabelValues(key)
}

// PrometheusMiddleware creates a middleware for Prometheus metrics collection
func (m *Metrics) PrometheusMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		m.RecordHTTPRequest(c.Request.Method, c.FullPath(), c.Writer.Status(), time.Since(start))
	}
}

// Handler returns the Prometheus metrics HTTP handler
func (m *Metrics) Handler() http.Handler {
	if m.registry == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
