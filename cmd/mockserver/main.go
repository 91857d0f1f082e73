package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/scheddev/sched-go/internal/api/router"
	appconfig "github.com/scheddev/sched-go/internal/config"
	"github.com/scheddev/sched-go/internal/demo"
	"github.com/scheddev/sched-go/internal/observability/metrics"
	"github.com/scheddev/sched-go/pkg/logging"
)

func main() {
	_ = godotenv.Load()

	// Load configuration
	cfg := appconfig.Load()

	// Initialize logger
	logger := logging.New(cfg.LogLevel)
	logger.Info("starting sched mock service",
		"port", cfg.MockPort,
	)

	// Setup metrics
	metricsHandler, schedMetrics := setupMetrics()

	// Setup router
	r := router.New(&router.Config{
		Logger:             logger,
		MockService:        demo.NewMockService(cfg.MockJWTSecret, logger, demo.WithServiceMetrics(schedMetrics)),
		MetricsHandler:     metricsHandler,
		CORSAllowedOrigins: cfg.MockCORSOrigins,
	})

	// Create HTTP server
	srv := &http.Server{
		Addr:         ":" + cfg.MockPort,
		Handler:      r,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in a goroutine
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt signal to gracefully shutdown the server
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("shutting down server...")

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// setupMetrics registers the scheduler metrics on a dedicated registry and
// returns its exposition handler along with the metrics the service records to.
func setupMetrics() (http.Handler, *metrics.SchedulerMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	sm := metrics.NewSchedulerMetrics(reg)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), sm
}
