package resilience

import (
	"errors"
	"fmt"
	"sync"
	"time"
)

// State represents the state of a circuit
type State int

const (
	// StateClosed - circuit is closed, requests are allowed
	StateClosed State = iota
	// StateOpen - circuit is open, requests are rejected
	StateOpen
	// StateHalfOpen - circuit is half-open, limited probe requests are allowed
	StateHalfOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "Closed"
	case StateOpen:
		return "Open"
	case StateHalfOpen:
		return "HalfOpen"
	default:
		return "Unknown"
	}
}

// CircuitOpenError is returned when an execution is rejected by an open
// circuit. Remaining carries the cooldown left until the next probe is
// allowed; it is zero when the circuit is half-open and saturated.
type CircuitOpenError struct {
	Key       string
	Remaining time.Duration
}

func (e *CircuitOpenError) Error() string {
	return fmt.Sprintf("circuit '%s' is open, retry in %dms", e.Key, e.Remaining.Milliseconds())
}

// IsCircuitOpen checks if an error is a circuit rejection
func IsCircuitOpen(err error) bool {
	var coErr *CircuitOpenError
	return errors.As(err, &coErr)
}

// Status is a read-only snapshot of one circuit, suitable for the
// operational dashboard.
type Status struct {
	Key           string     `json:"key"`
	State         string     `json:"state"`
	Failures      int        `json:"failures"`
	Successes     int        `json:"successes"`
	TotalRequests uint64     `json:"total_requests"`
	TotalFailures uint64     `json:"total_failures"`
	FailureRate   float64    `json:"failure_rate"`
	LastFailure   *time.Time `json:"last_failure,omitempty"`
	LastSuccess   *time.Time `json:"last_success,omitempty"`
	CanExecute    bool       `json:"can_execute"`
	NextAttempt   *time.Time `json:"next_attempt,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

// transition describes a state change that happened under the circuit
// lock; the registry publishes it after the lock is released.
type transition struct {
	from     State
	to       State
	reason   string
	failures int
}

// circuit is the per-key state machine. All mutations happen under mu;
// the registry never holds this lock across a wrapped operation.
type circuit struct {
	key string

	mu                   sync.Mutex
	state                State
	consecutiveFailures  int
	consecutiveSuccesses int
	lastFailureAt        time.Time
	lastSuccessAt        time.Time
	halfOpenProbes       int
	totalRequests        uint64
	totalFailures        uint64
	createdAt            time.Time
}

func newCircuit(key string) *circuit {
	return &circuit{
		key:       key,
		state:     StateClosed,
		createdAt: time.Now(),
	}
}

// canExecute evaluates whether an execution would currently be
// admitted. The only side effect is the Open -> HalfOpen transition
// once the reset timeout has elapsed; it does not reserve a probe slot.
func (c *circuit) canExecute(cfg RegistryConfig, now time.Time) (bool, *transition) {
	c.mu.Lock()
	defer c.mu.Unlock()

	switch c.state {
	case StateClosed:
		return true, nil

	case StateOpen:
		if now.Sub(c.lastFailureAt) >= cfg.ResetTimeout {
			tr := c.transitionTo(StateHalfOpen, "reset timeout elapsed")
			return c.halfOpenProbes < cfg.HalfOpenConcurrency, tr
		}
		return false, nil

	case StateHalfOpen:
		return c.halfOpenProbes < cfg.HalfOpenConcurrency, nil

	default:
		return false, nil
	}
}

// admit counts the request and reserves a probe slot when half-open.
// A rejection leaves no trace beyond the lifetime request counter.
func (c *circuit) admit(cfg RegistryConfig, now time.Time) (ok bool, remaining time.Duration, tr *transition) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.totalRequests++

	switch c.state {
	case StateClosed:
		return true, 0, nil

	case StateOpen:
		elapsed := now.Sub(c.lastFailureAt)
		if elapsed < cfg.ResetTimeout {
			return false, cfg.ResetTimeout - elapsed, nil
		}
		tr = c.transitionTo(StateHalfOpen, "reset timeout elapsed")
		fallthrough

	case StateHalfOpen:
		if c.halfOpenProbes < cfg.HalfOpenConcurrency {
			c.halfOpenProbes++
			return true, 0, tr
		}
		return false, 0, tr

	default:
		return false, 0, nil
	}
}

// recordSuccess applies a successful outcome.
func (c *circuit) recordSuccess(cfg RegistryConfig, now time.Time) *transition {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveSuccesses++
	c.consecutiveFailures = 0
	c.lastSuccessAt = now

	if c.state == StateHalfOpen {
		if c.halfOpenProbes > 0 {
			c.halfOpenProbes--
		}
		if c.consecutiveSuccesses >= cfg.SuccessThreshold {
			c.halfOpenProbes = 0
			return c.transitionTo(StateClosed, fmt.Sprintf("%d consecutive successes", c.consecutiveSuccesses))
		}
	}
	return nil
}

// recordFailure applies a failed outcome. Any failure while half-open
// reopens the circuit immediately.
func (c *circuit) recordFailure(cfg RegistryConfig, now time.Time) *transition {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures++
	c.totalFailures++
	c.consecutiveSuccesses = 0
	c.lastFailureAt = now

	switch c.state {
	case StateClosed:
		if c.consecutiveFailures >= cfg.FailureThreshold {
			return c.transitionTo(StateOpen, fmt.Sprintf("%d consecutive failures", c.consecutiveFailures))
		}

	case StateHalfOpen:
		c.halfOpenProbes = 0
		return c.transitionTo(StateOpen, "failure during half-open probe")
	}
	return nil
}

// reset forces the circuit closed. Lifetime counters are preserved as
// an audit trail.
func (c *circuit) reset() *transition {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.consecutiveFailures = 0
	c.consecutiveSuccesses = 0
	c.halfOpenProbes = 0

	if c.state == StateClosed {
		return nil
	}
	return c.transitionTo(StateClosed, "manual reset")
}

// forceOpen forces the circuit open. The cooldown clock starts now.
func (c *circuit) forceOpen(now time.Time) *transition {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.lastFailureAt = now
	c.consecutiveSuccesses = 0
	c.halfOpenProbes = 0

	if c.state == StateOpen {
		return nil
	}
	return c.transitionTo(StateOpen, "forced open")
}

// status takes a consistent snapshot of this circuit.
func (c *circuit) status(cfg RegistryConfig, now time.Time) Status {
	c.mu.Lock()
	defer c.mu.Unlock()

	s := Status{
		Key:           c.key,
		State:         c.state.String(),
		Failures:      c.consecutiveFailures,
		Successes:     c.consecutiveSuccesses,
		TotalRequests: c.totalRequests,
		TotalFailures: c.totalFailures,
		CreatedAt:     c.createdAt,
	}

	if c.totalRequests > 0 {
		s.FailureRate = float64(c.totalFailures) / float64(c.totalRequests)
	}
	if !c.lastFailureAt.IsZero() {
		t := c.lastFailureAt
		s.LastFailure = &t
	}
	if !c.lastSuccessAt.IsZero() {
		t := c.lastSuccessAt
		s.LastSuccess = &t
	}

	switch c.state {
	case StateClosed:
		s.CanExecute = true
	case StateOpen:
		next := c.lastFailureAt.Add(cfg.ResetTimeout)
		s.NextAttempt = &next
		s.CanExecute = !now.Before(next)
	case StateHalfOpen:
		s.CanExecute = c.halfOpenProbes < cfg.HalfOpenConcurrency
	}

	return s
}

// idleSince returns the most recent activity timestamp, used by the
// monitor to age out inert circuits.
func (c *circuit) idleSince() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()

	last := c.createdAt
	if c.lastFailureAt.After(last) {
		last = c.lastFailureAt
	}
	if c.lastSuccessAt.After(last) {
		last = c.lastSuccessAt
	}
	return last
}

// lifetimeRequests reads the lifetime request counter.
func (c *circuit) lifetimeRequests() uint64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.totalRequests
}

// currentState reads the current state without side effects.
func (c *circuit) currentState() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// transitionTo must be called with the circuit lock held.
func (c *circuit) transitionTo(to State, reason string) *transition {
	tr := &transition{
		from:     c.state,
		to:       to,
		reason:   reason,
		failures: c.consecutiveFailures,
	}
	c.state = to

	if to == StateHalfOpen {
		c.halfOpenProbes = 0
		c.consecutiveSuccesses = 0
	}
	if to == StateClosed {
		c.consecutiveFailures = 0
	}
	return tr
}
