// Package resilience protects workflow-node execution from cascading
// failures when invoking unreliable external operations such as AI
// provider calls, webhooks, and tool invocations.
//
// This package implements the following patterns:
//
// # Per-Key Circuit Breaker
//
// The CircuitRegistry maintains one circuit state machine per logical
// key (a node type, an external service, or an API endpoint), so one
// failing dependency never blocks unrelated operations sharing the
// same process.
//
//	registry := resilience.NewCircuitRegistry(resilience.DefaultRegistryConfig(), nil, nil)
//	result, err := registry.Execute(ctx, resilience.NodeKey("http-request"), func(ctx context.Context) (interface{}, error) {
//		return callExternalService(ctx, data)
//	})
//
// When a circuit is open, Execute rejects immediately with a
// *CircuitOpenError carrying the remaining cooldown; the wrapped
// operation is never invoked.
//
// # Error Classification and Retry Planning
//
// The ErrorCoordinator classifies failures into categories and advises
// the caller on remediation. It never invokes operations itself and
// never fails; it always returns a decision.
//
//	coordinator := resilience.NewErrorCoordinator(resilience.DefaultRetryConfig(), nil)
//	classification := coordinator.Classify(err)
//	plan := coordinator.PlanRetry(classification, attempts)
//
// # Coordinated Execution
//
// The Executor composes both: every invocation passes through the
// breaker, failures are classified, and retries honor the computed
// backoff. A circuit opening mid-sequence stops further local attempts
// immediately instead of exhausting the retry budget against a
// known-down dependency.
//
//	exec := resilience.NewExecutor(registry, coordinator, nil, nil)
//	result, err := exec.Execute(ctx, resilience.ServiceKey("mailer"), op)
//
// # Monitoring
//
// A periodic monitor reports non-closed or high-failure-rate circuits
// and garbage-collects circuits that never saw a request. It is
// explicitly stoppable so tests never leak timers.
//
// The package is safe for concurrent use; the per-key circuit record is
// the unit of mutual exclusion, and no lock is held across a wrapped
// operation.
package resilience
