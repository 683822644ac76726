package resilience

import (
	"context"
	"time"

	"github.com/flowgate/flowgate/pkg/logging"
	"github.com/flowgate/flowgate/pkg/metrics"
	"github.com/flowgate/flowgate/pkg/tracing"
)

// Executor composes the circuit registry and the error coordinator
// around a risky operation: every attempt passes through the breaker,
// failures are classified, and retries honor the computed plan. A
// breaker opening mid-sequence terminates the loop immediately.
type Executor struct {
	registry    *CircuitRegistry
	coordinator *ErrorCoordinator
	logger      *logging.Logger
	metrics     *metrics.Metrics
	tracer      *tracing.TracingService
}

// NewExecutor creates a new coordinated executor
func NewExecutor(registry *CircuitRegistry, coordinator *ErrorCoordinator, logger *logging.Logger, m *metrics.Metrics) *Executor {
	if logger == nil {
		logger = logging.GetLogger()
	}
	if m == nil {
		m = metrics.NewMetrics(&metrics.Config{Enabled: false})
	}
	return &Executor{
		registry:    registry,
		coordinator: coordinator,
		logger:      logger,
		metrics:     m,
	}
}

// WithTracing attaches a tracing service; each attempt gets its own span
func (e *Executor) WithTracing(tracer *tracing.TracingService) *Executor {
	e.tracer = tracer
	return e
}

// Execute runs op through the circuit for key, retrying per the
// coordinator's plan. The error returned is the last attempt's error,
// unchanged in shape.
func (e *Executor) Execute(ctx context.Context, key string, op func(context.Context) (interface{}, error)) (interface{}, error) {
	attempts := 0

	for {
		attempts++

		result, err := e.attempt(ctx, key, attempts, op)
		if err == nil {
			if attempts > 1 {
				e.logger.Info("Operation succeeded after retry",
					"circuit_key", key,
					"attempts", attempts,
				)
			}
			return result, nil
		}

		classification := e.coordinator.Classify(err)
		plan := e.coordinator.PlanRetry(classification, attempts)

		if !plan.ShouldRetry {
			if classification.Strategy == StrategyEscalateCircuit {
				e.logger.Debug("Circuit rejection is terminal, no local retry",
					"circuit_key", key,
					"attempts", attempts,
				)
			} else {
				e.logger.Debug("Not retrying",
					"circuit_key", key,
					"category", string(classification.Category),
					"attempts", attempts,
					"max_attempts", plan.MaxAttempts,
				)
			}
			return nil, err
		}

		e.metrics.RecordRetry(key, string(classification.Category))
		e.logger.Debug("Operation failed, retrying",
			"circuit_key", key,
			"category", string(classification.Category),
			"attempt", attempts,
			"max_attempts", plan.MaxAttempts,
			"delay", plan.Delay.String(),
		)

		if plan.Delay > 0 {
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(plan.Delay):
			}
		} else if ctx.Err() != nil {
			return nil, ctx.Err()
		}
	}
}

// ExecuteVoid runs an operation that returns no result
func (e *Executor) ExecuteVoid(ctx context.Context, key string, op func(context.Context) error) error {
	_, err := e.Execute(ctx, key, func(ctx context.Context) (interface{}, error) {
		return nil, op(ctx)
	})
	return err
}

func (e *Executor) attempt(ctx context.Context, key string, attempt int, op func(context.Context) (interface{}, error)) (interface{}, error) {
	if e.tracer == nil {
		return e.registry.Execute(ctx, key, op)
	}

	spanCtx, span := e.tracer.StartCircuitSpan(ctx, key, attempt)
	defer span.End()

	result, err := e.registry.Execute(spanCtx, key, op)
	if err != nil {
		e.tracer.RecordError(span, err)
	}
	return result, err
}
