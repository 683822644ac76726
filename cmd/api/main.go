package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/flowgate/flowgate/internal/api"
	"github.com/flowgate/flowgate/pkg/config"
	"github.com/flowgate/flowgate/pkg/logging"
	"github.com/flowgate/flowgate/pkg/metrics"
	"github.com/flowgate/flowgate/pkg/resilience"
	"github.com/flowgate/flowgate/pkg/tracing"
)

func main() {
	// Load .env if present; real environments set variables directly
	_ = godotenv.Load()

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	// Initialize structured logging
	logger, err := logging.NewLogger(&logging.Config{
		Level:       cfg.Logging.Level,
		Format:      cfg.Logging.Format,
		Output:      cfg.Logging.Output,
		ServiceName: "flowgate-api",
		Version:     api.Version,
	})
	if err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	logging.SetGlobalLogger(logger)

	// Initialize metrics
	m := metrics.NewMetrics(metrics.DefaultConfig())

	// Initialize tracing
	tracer, err := tracing.NewTracingService(&tracing.Config{
		ServiceName:    "flowgate-api",
		ServiceVersion: api.Version,
		Enabled:        cfg.Tracing.Enabled,
		JaegerEndpoint: cfg.Tracing.JaegerEndpoint,
		SamplingRate:   cfg.Tracing.SamplingRate,
	})
	if err != nil {
		log.Fatalf("Failed to initialize tracing: %v", err)
	}

	// Initialize the circuit registry and start its monitor
	registry := resilience.NewCircuitRegistry(resilience.RegistryConfig{
		FailureThreshold:    cfg.Resilience.FailureThreshold,
		SuccessThreshold:    cfg.Resilience.SuccessThreshold,
		ResetTimeout:        cfg.Resilience.ResetTimeout,
		HalfOpenConcurrency: cfg.Resilience.HalfOpenConcurrency,
		MonitorInterval:     cfg.Resilience.MonitorInterval,
		ReportThreshold:     cfg.Resilience.ReportThreshold,
	}, logger, m)
	registry.AddHandler(resilience.NewLoggingEventHandler(logger))

	monitorCtx, stopMonitor := context.WithCancel(context.Background())
	registry.StartMonitor(monitorCtx)

	// The coordinator and executor are shared with embedding services;
	// the API server only needs the registry, but constructing them here
	// validates the retry configuration at startup.
	coordinator := resilience.NewErrorCoordinator(resilience.RetryConfig{
		MaxAttempts: cfg.Retry.MaxAttempts,
		Backoff:     resilience.BackoffKind(cfg.Retry.Backoff),
		BaseDelay:   cfg.Retry.BaseDelay,
		MaxDelay:    cfg.Retry.MaxDelay,
		Jitter:      cfg.Retry.Jitter,
	}, logger)
	_ = resilience.NewExecutor(registry, coordinator, logger, m).WithTracing(tracer)

	// Create API router
	router := api.NewRouter(cfg, logger, m, tracer, registry)

	// Create HTTP server
	server := &http.Server{
		Addr:         cfg.Addr(),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("Starting API server", "addr", server.Addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("Failed to start server: %v", err)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	logger.Info("Shutting down server")

	registry.StopMonitor()
	stopMonitor()

	// Give outstanding requests 30 seconds to complete
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := server.Shutdown(ctx); err != nil {
		log.Fatalf("Server forced to shutdown: %v", err)
	}

	if err := tracer.Shutdown(ctx); err != nil {
		logger.Warn("Tracer shutdown failed", "error", err.Error())
	}

	logger.Info("Server exited")
}
