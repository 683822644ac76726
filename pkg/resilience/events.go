package resilience

import (
	"time"

	"github.com/flowgate/flowgate/pkg/logging"
)

// CircuitEvent describes a circuit state transition
type CircuitEvent struct {
	Key       string    `json:"key"`
	From      State     `json:"-"`
	To        State     `json:"-"`
	FromState string    `json:"from"`
	ToState   string    `json:"to"`
	Reason    string    `json:"reason"`
	Failures  int       `json:"failures"`
	Timestamp time.Time `json:"timestamp"`
}

// EventHandler receives circuit state transitions. Handlers are invoked
// outside circuit locks and must not block for long; slow consumers
// should buffer internally.
type EventHandler interface {
	OnStateChange(event CircuitEvent)
}

// EventHandlerFunc adapts a function to the EventHandler interface
type EventHandlerFunc func(event CircuitEvent)

func (f EventHandlerFunc) OnStateChange(event CircuitEvent) {
	f(event)
}

// LoggingEventHandler logs circuit transitions to the application logger
type LoggingEventHandler struct {
	logger *logging.Logger
}

// NewLoggingEventHandler creates a new logging event handler
func NewLoggingEventHandler(logger *logging.Logger) *LoggingEventHandler {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &LoggingEventHandler{logger: logger}
}

// OnStateChange logs the transition; opens are warnings, everything
// else is informational.
func (h *LoggingEventHandler) OnStateChange(event CircuitEvent) {
	fields := []interface{}{
		"circuit_key", event.Key,
		"from", event.FromState,
		"to", event.ToState,
		"reason", event.Reason,
		"failures", event.Failures,
	}

	if event.To == StateOpen {
		h.logger.Warn("Circuit opened", fields...)
		return
	}
	h.logger.Info("Circuit state changed", fields...)
}
