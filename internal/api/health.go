package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/flowgate/flowgate/pkg/resilience"
)

// HealthHandler reports process liveness and platform degradation
type HealthHandler struct {
	registry  *resilience.CircuitRegistry
	version   string
	startedAt time.Time
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(registry *resilience.CircuitRegistry, version string) *HealthHandler {
	return &HealthHandler{
		registry:  registry,
		version:   version,
		startedAt: time.Now(),
	}
}

// Health handles GET /health. The endpoint reports degraded rather
// than failing so load balancers keep routing while circuits recover.
func (h *HealthHandler) Health(c *gin.Context) {
	level := h.registry.Degradation()

	status := "ok"
	if level != resilience.LevelNormal {
		status = "degraded"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":      status,
		"degradation": level.String(),
		"circuits":    len(h.registry.GetAllStatuses()),
		"version":     h.version,
		"uptime":      time.Since(h.startedAt).Round(time.Second).String(),
		"timestamp":   time.Now(),
	})
}
