package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/flowgate/flowgate/pkg/logging"
	"github.com/flowgate/flowgate/pkg/metrics"
)

// idleMultiplier scales the monitor interval into the idle window after
// which an unused circuit is garbage-collected.
const idleMultiplier = 10

// RegistryConfig holds configuration for the circuit registry
type RegistryConfig struct {
	// FailureThreshold is the number of consecutive failures that opens
	// a closed circuit
	FailureThreshold int
	// SuccessThreshold is the number of consecutive successes that
	// closes a half-open circuit
	SuccessThreshold int
	// ResetTimeout is how long an open circuit waits before admitting
	// half-open probes
	ResetTimeout time.Duration
	// HalfOpenConcurrency bounds concurrent probes while half-open
	HalfOpenConcurrency int
	// MonitorInterval is the period of the background status sweep
	MonitorInterval time.Duration
	// ReportThreshold is the failure rate above which the monitor
	// reports an otherwise healthy circuit
	ReportThreshold float64
}

// DefaultRegistryConfig returns the default registry configuration
func DefaultRegistryConfig() RegistryConfig {
	return RegistryConfig{
		FailureThreshold:    5,
		SuccessThreshold:    2,
		ResetTimeout:        30 * time.Second,
		HalfOpenConcurrency: 1,
		MonitorInterval:     60 * time.Second,
		ReportThreshold:     0.10,
	}
}

func (c RegistryConfig) withDefaults() RegistryConfig {
	def := DefaultRegistryConfig()
	if c.FailureThreshold <= 0 {
		c.FailureThreshold = def.FailureThreshold
	}
	if c.SuccessThreshold <= 0 {
		c.SuccessThreshold = def.SuccessThreshold
	}
	if c.ResetTimeout <= 0 {
		c.ResetTimeout = def.ResetTimeout
	}
	if c.HalfOpenConcurrency <= 0 {
		c.HalfOpenConcurrency = def.HalfOpenConcurrency
	}
	if c.MonitorInterval <= 0 {
		c.MonitorInterval = def.MonitorInterval
	}
	if c.ReportThreshold <= 0 {
		c.ReportThreshold = def.ReportThreshold
	}
	return c
}

// CircuitRegistry maintains one circuit per key and decides
// admit/reject before an operation runs. It is constructed explicitly
// and injected wherever protection is needed; there is no package-level
// instance.
type CircuitRegistry struct {
	config  RegistryConfig
	logger  *logging.Logger
	metrics *metrics.Metrics

	mu       sync.RWMutex
	circuits map[string]*circuit
	handlers []EventHandler

	monitorMu sync.Mutex
	stopCh    chan struct{}
	running   bool
}

// NewCircuitRegistry creates a new circuit registry
func NewCircuitRegistry(config RegistryConfig, logger *logging.Logger, m *metrics.Metrics) *CircuitRegistry {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if m == nil {
		m = metrics.NewMetrics(&metrics.Config{Enabled: false})
	}

	return &CircuitRegistry{
		config:   config.withDefaults(),
		logger:   logger,
		metrics:  m,
		circuits: make(map[string]*circuit),
	}
}

// Config returns the effective registry configuration
func (r *CircuitRegistry) Config() RegistryConfig {
	return r.config
}

// AddHandler registers an event handler for circuit transitions
func (r *CircuitRegistry) AddHandler(handler EventHandler) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.handlers = append(r.handlers, handler)
}

// CanExecute reports whether an execution against key would currently
// be admitted. An open circuit whose reset timeout has elapsed
// transitions to half-open as a side effect of the check.
func (r *CircuitRegistry) CanExecute(key string) bool {
	c := r.getOrCreate(key)
	ok, tr := c.canExecute(r.config, time.Now())
	if tr != nil {
		r.publish(c.key, tr)
	}
	return ok
}

// Execute runs op through the circuit for key. A rejected execution
// returns *CircuitOpenError without invoking op; an executed op has its
// outcome recorded and its error returned verbatim.
func (r *CircuitRegistry) Execute(ctx context.Context, key string, op func(context.Context) (interface{}, error)) (interface{}, error) {
	c := r.getOrCreate(key)

	ok, remaining, tr := c.admit(r.config, time.Now())
	if tr != nil {
		r.publish(c.key, tr)
	}
	if !ok {
		r.metrics.RecordRejection(key)
		return nil, &CircuitOpenError{Key: key, Remaining: remaining}
	}

	result, err := op(ctx)
	if err != nil {
		r.recordFailure(c, err)
		return nil, err
	}
	r.recordSuccess(c)
	return result, nil
}

// RecordSuccess records a successful outcome for key
func (r *CircuitRegistry) RecordSuccess(key string) {
	r.recordSuccess(r.getOrCreate(key))
}

// RecordFailure records a failed outcome for key
func (r *CircuitRegistry) RecordFailure(key string, err error) {
	r.recordFailure(r.getOrCreate(key), err)
}

// GetStatus returns a snapshot of the circuit for key, or false when
// the key has never been observed.
func (r *CircuitRegistry) GetStatus(key string) (Status, bool) {
	r.mu.RLock()
	c, exists := r.circuits[key]
	r.mu.RUnlock()

	if !exists {
		return Status{}, false
	}
	return c.status(r.config, time.Now()), true
}

// GetAllStatuses returns snapshots of all tracked circuits. Each
// snapshot is per-key consistent; the set as a whole is eventually
// consistent with concurrent writers.
func (r *CircuitRegistry) GetAllStatuses() []Status {
	now := time.Now()

	r.mu.RLock()
	circuits := make([]*circuit, 0, len(r.circuits))
	for _, c := range r.circuits {
		circuits = append(circuits, c)
	}
	r.mu.RUnlock()

	statuses := make([]Status, 0, len(circuits))
	for _, c := range circuits {
		statuses = append(statuses, c.status(r.config, now))
	}
	return statuses
}

// Reset forces the circuit for key back to closed, bypassing normal
// transition rules. Lifetime counters are preserved.
func (r *CircuitRegistry) Reset(key string) {
	c := r.getOrCreate(key)
	if tr := c.reset(); tr != nil {
		r.publish(c.key, tr)
	}
}

// ForceOpen forces the circuit for key open, bypassing normal
// transition rules. The cooldown starts immediately.
func (r *CircuitRegistry) ForceOpen(key string) {
	c := r.getOrCreate(key)
	if tr := c.forceOpen(time.Now()); tr != nil {
		r.publish(c.key, tr)
	}
}

// StartMonitor starts the periodic status sweep. It is a no-op when the
// monitor is already running.
func (r *CircuitRegistry) StartMonitor(ctx context.Context) {
	r.monitorMu.Lock()
	defer r.monitorMu.Unlock()

	if r.running {
		return
	}
	r.running = true
	r.stopCh = make(chan struct{})

	go r.monitorLoop(ctx, r.stopCh)
	r.logger.Info("Circuit monitor started", "interval", r.config.MonitorInterval.String())
}

// StopMonitor stops the periodic status sweep
func (r *CircuitRegistry) StopMonitor() {
	r.monitorMu.Lock()
	defer r.monitorMu.Unlock()

	if !r.running {
		return
	}
	close(r.stopCh)
	r.running = false
	r.logger.Info("Circuit monitor stopped")
}

func (r *CircuitRegistry) monitorLoop(ctx context.Context, stopCh <-chan struct{}) {
	ticker := time.NewTicker(r.config.MonitorInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-stopCh:
			return
		case <-ticker.C:
			r.sweep(time.Now())
		}
	}
}

// sweep reports unhealthy circuits and deletes inert ones. It iterates
// a snapshot of keys so no registry lock is held for the duration of
// the pass; deletions are idempotent.
func (r *CircuitRegistry) sweep(now time.Time) {
	start := time.Now()

	r.mu.RLock()
	circuits := make([]*circuit, 0, len(r.circuits))
	for _, c := range r.circuits {
		circuits = append(circuits, c)
	}
	r.mu.RUnlock()

	idleWindow := time.Duration(idleMultiplier) * r.config.MonitorInterval
	tracked := len(circuits)

	for _, c := range circuits {
		s := c.status(r.config, now)

		if s.State != StateClosed.String() || s.FailureRate > r.config.ReportThreshold {
			r.logger.Warn("Circuit status",
				"circuit_key", s.Key,
				"state", s.State,
				"failures", s.Failures,
				"total_requests", s.TotalRequests,
				"total_failures", s.TotalFailures,
				"failure_rate", s.FailureRate,
			)
		}

		// A circuit that has recorded a request is never deleted.
		if s.State == StateClosed.String() && s.TotalRequests == 0 && now.Sub(c.idleSince()) > idleWindow {
			if r.delete(c.key) {
				tracked--
				r.logger.Debug("Idle circuit removed", "circuit_key", c.key)
			}
		}
	}

	r.metrics.RecordMonitorSweep(time.Since(start), tracked)
}

// delete removes an inert circuit, re-checking eligibility under the
// write lock. Double deletion is a no-op.
func (r *CircuitRegistry) delete(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, exists := r.circuits[key]
	if !exists {
		return false
	}
	if c.lifetimeRequests() > 0 || c.currentState() != StateClosed {
		return false
	}

	delete(r.circuits, key)
	r.metrics.RemoveCircuit(key)
	return true
}

func (r *CircuitRegistry) getOrCreate(key string) *circuit {
	r.mu.RLock()
	c, exists := r.circuits[key]
	r.mu.RUnlock()
	if exists {
		return c
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	// Double-check: another goroutine may have created it
	if c, exists = r.circuits[key]; exists {
		return c
	}

	c = newCircuit(key)
	r.circuits[key] = c
	return c
}

func (r *CircuitRegistry) recordSuccess(c *circuit) {
	if tr := c.recordSuccess(r.config, time.Now()); tr != nil {
		r.publish(c.key, tr)
	}
	r.metrics.RecordExecution(c.key, "success")
}

func (r *CircuitRegistry) recordFailure(c *circuit, err error) {
	if tr := c.recordFailure(r.config, time.Now()); tr != nil {
		r.publish(c.key, tr)
	}
	r.metrics.RecordExecution(c.key, "failure")
	r.logger.Debug("Circuit recorded failure", "circuit_key", c.key, "error", err.Error())
}

// publish fans a transition out to metrics and event handlers. It runs
// after the circuit lock has been released.
func (r *CircuitRegistry) publish(key string, tr *transition) {
	r.metrics.RecordTransition(key, tr.from.String(), tr.to.String(), float64(tr.to))

	event := CircuitEvent{
		Key:       key,
		From:      tr.from,
		To:        tr.to,
		FromState: tr.from.String(),
		ToState:   tr.to.String(),
		Reason:    tr.reason,
		Failures:  tr.failures,
		Timestamp: time.Now(),
	}

	r.mu.RLock()
	handlers := make([]EventHandler, len(r.handlers))
	copy(handlers, r.handlers)
	r.mu.RUnlock()

	for _, h := range handlers {
		h.OnStateChange(event)
	}
}
