package api

import (
	"github.com/gin-gonic/gin"

	"github.com/flowgate/flowgate/pkg/logging"
	"github.com/flowgate/flowgate/pkg/resilience"
)

// CircuitsHandler exposes the circuit registry to the operational
// dashboard.
type CircuitsHandler struct {
	registry *resilience.CircuitRegistry
	logger   *logging.Logger
}

// NewCircuitsHandler creates a new circuits handler
func NewCircuitsHandler(registry *resilience.CircuitRegistry, logger *logging.Logger) *CircuitsHandler {
	if logger == nil {
		logger = logging.GetLogger()
	}
	return &CircuitsHandler{
		registry: registry,
		logger:   logger,
	}
}

// circuitKeyRequest is the body for administrative circuit operations
type circuitKeyRequest struct {
	Key string `json:"key" binding:"required"`
}

// ListCircuits returns the status of every tracked circuit
// GET /api/v1/circuits
func (h *CircuitsHandler) ListCircuits(c *gin.Context) {
	statuses := h.registry.GetAllStatuses()

	SuccessResponse(c, gin.H{
		"circuits":    statuses,
		"count":       len(statuses),
		"degradation": h.registry.Degradation().String(),
	})
}

// GetCircuitStatus returns the status of a single circuit
// GET /api/v1/circuits/status?key=<key>
func (h *CircuitsHandler) GetCircuitStatus(c *gin.Context) {
	key := c.Query("key")
	if key == "" {
		BadRequestResponse(c, "query parameter 'key' is required")
		return
	}

	status, ok := h.registry.GetStatus(key)
	if !ok {
		NotFoundResponse(c, "no circuit tracked for key")
		return
	}
	SuccessResponse(c, status)
}

// CheckCircuit reports whether an execution against a key would be
// admitted right now
// POST /api/v1/circuits/check
func (h *CircuitsHandler) CheckCircuit(c *gin.Context) {
	var req circuitKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestResponse(c, "request body must contain a non-empty 'key'")
		return
	}

	SuccessResponse(c, gin.H{
		"key":         req.Key,
		"can_execute": h.registry.CanExecute(req.Key),
	})
}

// ResetCircuit forces a circuit back to closed
// POST /api/v1/circuits/reset
func (h *CircuitsHandler) ResetCircuit(c *gin.Context) {
	var req circuitKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestResponse(c, "request body must contain a non-empty 'key'")
		return
	}

	h.registry.Reset(req.Key)
	h.logger.Warn("Circuit manually reset",
		"circuit_key", req.Key,
		"request_id", requestIDFrom(c),
	)

	status, _ := h.registry.GetStatus(req.Key)
	SuccessResponse(c, status)
}

// ForceOpenCircuit forces a circuit open
// POST /api/v1/circuits/force-open
func (h *CircuitsHandler) ForceOpenCircuit(c *gin.Context) {
	var req circuitKeyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequestResponse(c, "request body must contain a non-empty 'key'")
		return
	}

	h.registry.ForceOpen(req.Key)
	h.logger.Warn("Circuit manually forced open",
		"circuit_key", req.Key,
		"request_id", requestIDFrom(c),
	)

	status, _ := h.registry.GetStatus(req.Key)
	SuccessResponse(c, status)
}
