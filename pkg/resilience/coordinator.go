package resilience

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"net"
	"strings"
	"time"

	apperrors "github.com/flowgate/flowgate/pkg/errors"
	"github.com/flowgate/flowgate/pkg/logging"
)

// Category classifies the shape of a failure
type Category string

const (
	CategoryTransientNetwork Category = "transient-network"
	CategoryTimeout          Category = "timeout"
	CategoryRateLimited      Category = "rate-limited"
	CategoryInvalidInput     Category = "invalid-input"
	CategoryFatal            Category = "fatal"
	CategoryCircuitOpen      Category = "circuit-open"
	CategoryUnknown          Category = "unknown"
)

// Strategy is the remediation a classification advises
type Strategy string

const (
	// StrategyRetryImmediate - retry right away, no delay
	StrategyRetryImmediate Strategy = "retry-immediate"
	// StrategyRetryBackoff - retry after a computed backoff delay
	StrategyRetryBackoff Strategy = "retry-backoff"
	// StrategyFail - do not retry, surface the failure
	StrategyFail Strategy = "fail"
	// StrategyEscalateCircuit - do not retry locally, the circuit
	// rejection is the terminal signal
	StrategyEscalateCircuit Strategy = "escalate-circuit"
)

// Classification is the ephemeral result of classifying one failure
type Classification struct {
	Category    Category `json:"category"`
	Strategy    Strategy `json:"strategy"`
	Recoverable bool     `json:"recoverable"`
}

// BackoffKind selects the delay curve between retry attempts
type BackoffKind string

const (
	BackoffFixed       BackoffKind = "fixed"
	BackoffLinear      BackoffKind = "linear"
	BackoffExponential BackoffKind = "exponential"
)

// RetryConfig holds configuration for retry planning
type RetryConfig struct {
	// MaxAttempts bounds the total number of attempts
	MaxAttempts int
	// Backoff selects the delay curve
	Backoff BackoffKind
	// BaseDelay is the first retry delay
	BaseDelay time.Duration
	// MaxDelay caps the computed delay before jitter
	MaxDelay time.Duration
	// Jitter adds bounded randomness to avoid synchronized retry storms
	Jitter bool
}

// DefaultRetryConfig returns a default retry configuration
func DefaultRetryConfig() RetryConfig {
	return RetryConfig{
		MaxAttempts: 3,
		Backoff:     BackoffExponential,
		BaseDelay:   100 * time.Millisecond,
		MaxDelay:    30 * time.Second,
		Jitter:      true,
	}
}

func (c RetryConfig) withDefaults() RetryConfig {
	def := DefaultRetryConfig()
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = def.MaxAttempts
	}
	if c.Backoff == "" {
		c.Backoff = def.Backoff
	}
	if c.BaseDelay <= 0 {
		c.BaseDelay = def.BaseDelay
	}
	if c.MaxDelay <= 0 {
		c.MaxDelay = def.MaxDelay
	}
	return c
}

// RetryPlan is the ephemeral decision returned to the executor
type RetryPlan struct {
	ShouldRetry   bool          `json:"should_retry"`
	Delay         time.Duration `json:"delay"`
	AttemptsSoFar int           `json:"attempts_so_far"`
	MaxAttempts   int           `json:"max_attempts"`
}

// ErrorCoordinator classifies failures and plans retries. It holds no
// mutable state beyond configuration and is safe to share across all
// callers without per-key partitioning.
type ErrorCoordinator struct {
	config RetryConfig
	logger *logging.Logger
}

// NewErrorCoordinator creates a new error coordinator
func NewErrorCoordinator(config RetryConfig, logger *logging.Logger) *ErrorCoordinator {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &ErrorCoordinator{
		config: config.withDefaults(),
		logger: logger,
	}
}

// Config returns the effective retry configuration
func (ec *ErrorCoordinator) Config() RetryConfig {
	return ec.config
}

// Classify maps a failure to a category and a default strategy. It
// consults the typed error taxonomy first, then stdlib signals, then
// message heuristics for providers that only speak in strings.
func (ec *ErrorCoordinator) Classify(err error) Classification {
	if err == nil {
		return Classification{Category: CategoryUnknown, Strategy: StrategyFail}
	}

	var coErr *CircuitOpenError
	if errors.As(err, &coErr) {
		return Classification{Category: CategoryCircuitOpen, Strategy: StrategyEscalateCircuit, Recoverable: true}
	}

	var appErr *apperrors.AppError
	if errors.As(err, &appErr) {
		switch appErr.Type {
		case apperrors.ErrorTypeValidation:
			return Classification{Category: CategoryInvalidInput, Strategy: StrategyFail}
		case apperrors.ErrorTypeRateLimit:
			return Classification{Category: CategoryRateLimited, Strategy: StrategyRetryBackoff, Recoverable: true}
		case apperrors.ErrorTypeTimeout:
			return Classification{Category: CategoryTimeout, Strategy: StrategyRetryBackoff, Recoverable: true}
		case apperrors.ErrorTypeNetwork, apperrors.ErrorTypeExternal:
			return Classification{Category: CategoryTransientNetwork, Strategy: StrategyRetryBackoff, Recoverable: true}
		case apperrors.ErrorTypeNotFound, apperrors.ErrorTypeConflict, apperrors.ErrorTypeInternal:
			return Classification{Category: CategoryFatal, Strategy: StrategyFail}
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return Classification{Category: CategoryTimeout, Strategy: StrategyRetryBackoff, Recoverable: true}
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return Classification{Category: CategoryTimeout, Strategy: StrategyRetryBackoff, Recoverable: true}
		}
		return Classification{Category: CategoryTransientNetwork, Strategy: StrategyRetryBackoff, Recoverable: true}
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit"), strings.Contains(msg, "too many requests"), strings.Contains(msg, "429"):
		return Classification{Category: CategoryRateLimited, Strategy: StrategyRetryBackoff, Recoverable: true}
	case strings.Contains(msg, "connection refused"), strings.Contains(msg, "connection reset"),
		strings.Contains(msg, "no such host"), strings.Contains(msg, "broken pipe"):
		return Classification{Category: CategoryTransientNetwork, Strategy: StrategyRetryBackoff, Recoverable: true}
	case strings.Contains(msg, "timeout"), strings.Contains(msg, "timed out"):
		return Classification{Category: CategoryTimeout, Strategy: StrategyRetryBackoff, Recoverable: true}
	case strings.Contains(msg, "invalid"), strings.Contains(msg, "schema"), strings.Contains(msg, "validation"):
		return Classification{Category: CategoryInvalidInput, Strategy: StrategyFail}
	}

	return Classification{Category: CategoryUnknown, Strategy: StrategyRetryBackoff, Recoverable: true}
}

// PlanRetry computes whether another attempt should be made and the
// delay before it. A fail classification always overrides the retry
// budget; escalate-circuit defers to the registry's rejection.
func (ec *ErrorCoordinator) PlanRetry(classification Classification, attemptsSoFar int) RetryPlan {
	plan := RetryPlan{
		AttemptsSoFar: attemptsSoFar,
		MaxAttempts:   ec.config.MaxAttempts,
	}

	if classification.Strategy == StrategyFail || classification.Strategy == StrategyEscalateCircuit {
		return plan
	}
	if attemptsSoFar >= ec.config.MaxAttempts {
		return plan
	}

	plan.ShouldRetry = true
	if classification.Strategy == StrategyRetryImmediate {
		return plan
	}

	plan.Delay = ec.backoffDelay(attemptsSoFar)
	return plan
}

// backoffDelay computes the delay before attempt n+1, given n attempts
// so far. The exponential curve doubles per completed attempt, so the
// delay ahead of attempt n is base * 2^(n-1).
func (ec *ErrorCoordinator) backoffDelay(attemptsSoFar int) time.Duration {
	if attemptsSoFar < 1 {
		attemptsSoFar = 1
	}

	var delay float64
	switch ec.config.Backoff {
	case BackoffFixed:
		delay = float64(ec.config.BaseDelay)
	case BackoffLinear:
		delay = float64(ec.config.BaseDelay) * float64(attemptsSoFar)
	default: // exponential
		delay = float64(ec.config.BaseDelay) * math.Pow(2, float64(attemptsSoFar))
	}

	// Clamp before jitter
	if delay > float64(ec.config.MaxDelay) {
		delay = float64(ec.config.MaxDelay)
	}

	if ec.config.Jitter {
		delay += rand.Float64() * 0.1 * delay // 10% jitter
	}

	return time.Duration(delay)
}
