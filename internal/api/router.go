package api

import (
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"

	"github.com/flowgate/flowgate/pkg/config"
	"github.com/flowgate/flowgate/pkg/logging"
	"github.com/flowgate/flowgate/pkg/metrics"
	"github.com/flowgate/flowgate/pkg/resilience"
	"github.com/flowgate/flowgate/pkg/tracing"
)

// Version is the API version reported by the health endpoint
const Version = "1.0.0"

// NewRouter creates and configures the API router
func NewRouter(cfg *config.Config, logger *logging.Logger, m *metrics.Metrics, tracer *tracing.TracingService, registry *resilience.CircuitRegistry) *gin.Engine {
	// Set Gin mode based on environment
	if cfg.Logging.Level == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Add middleware
	router.Use(RequestIDMiddleware())
	router.Use(LoggingMiddleware(logger))
	router.Use(ErrorHandlingMiddleware())
	router.Use(SecurityHeadersMiddleware())
	router.Use(cors.New(cors.Config{
		AllowOrigins:  []string{"*"},
		AllowMethods:  []string{"GET", "POST", "OPTIONS"},
		AllowHeaders:  []string{"Origin", "Content-Type", "Accept", "X-Request-ID"},
		ExposeHeaders: []string{"X-Request-ID", "Retry-After"},
		MaxAge:        12 * time.Hour,
	}))
	if m != nil {
		router.Use(m.PrometheusMiddleware())
	}
	if tracer != nil {
		router.Use(tracer.TracingMiddleware())
	}

	// Health check endpoint
	healthHandler := NewHealthHandler(registry, Version)
	router.GET("/health", healthHandler.Health)

	// Prometheus scrape endpoint
	if m != nil {
		router.GET("/metrics", gin.WrapH(m.Handler()))
	}

	// API version info
	router.GET("/api/v1", func(c *gin.Context) {
		SuccessResponse(c, map[string]interface{}{
			"name":    "FlowGate API",
			"version": Version,
			"status":  "ok",
		})
	})

	// Circuit dashboard and administrative routes
	circuitsHandler := NewCircuitsHandler(registry, logger)

	v1 := router.Group("/api/v1")
	{
		circuits := v1.Group("/circuits")
		{
			circuits.GET("", circuitsHandler.ListCircuits)
			circuits.GET("/status", circuitsHandler.GetCircuitStatus)
			circuits.POST("/check", circuitsHandler.CheckCircuit)
			circuits.POST("/reset", circuitsHandler.ResetCircuit)
			circuits.POST("/force-open", circuitsHandler.ForceOpenCircuit)
		}
	}

	// Catch-all route for undefined endpoints
	router.NoRoute(func(c *gin.Context) {
		NotFoundResponse(c, "Endpoint not found")
	})

	return router
}
