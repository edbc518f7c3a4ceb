// Command api is the Courtwatch notification server.
//
// Usage:
//
//	courtwatch-api
//	API_PORT=8080 STORE_BACKEND=postgres courtwatch-api

// @title Courtwatch Notification API
// @version 1.0.0
// @description Tennis notification rule engine: rule management, manual runs, run history and delivery testing.
// @host localhost:8000
// @BasePath /api/v1
// @schemes http https
// @contact.name Courtwatch
// @license.name MIT
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"time"

	"github.com/joho/godotenv"

	"github.com/albapepper/courtwatch/internal/api"
	"github.com/albapepper/courtwatch/internal/app"
	"github.com/albapepper/courtwatch/internal/config"
	"github.com/albapepper/courtwatch/internal/maintenance"
	"github.com/albapepper/courtwatch/internal/notifications"

	_ "github.com/albapepper/courtwatch/docs" // swagger docs
)

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	slog.SetDefault(logger)

	// Load .env if present
	_ = godotenv.Load(".env")

	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		logger.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}
	if cfg.Debug {
		logger = slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
		slog.SetDefault(logger)
	}

	// Context with signal handling
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	// Store, tennis client, channels and engine
	a, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Error("Failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()
	logger.Info("Channels configured", "channels", a.Dispatcher.Configured(a.Store.Settings()))

	// Response cache sweeper
	go a.Cache.Run(ctx, 5*time.Minute)

	// Poll scheduler
	if cfg.PollEnabled {
		scheduler, err := notifications.NewScheduler(a.Engine, cfg.PollSchedule, logger)
		if err != nil {
			logger.Error("Invalid poll schedule", "error", err)
			os.Exit(1)
		}
		go scheduler.Run(ctx)
	} else {
		logger.Info("Poll scheduler disabled (POLL_ENABLED=false)")
	}

	// Retention ticker (fingerprints, observations, history)
	go maintenance.Start(ctx, a.Store, maintenance.Config{
		Interval:  cfg.MaintenanceInterval,
		Retention: cfg.FingerprintRetention,
	}, logger)

	// Create router
	router := api.NewRouter(a.Store, a.Engine, a.Dispatcher, a.Cache, cfg, logger)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.APIHost, cfg.APIPort)
	srv := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.RunTimeout + 30*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Start server in background
	go func() {
		logger.Info("Starting Courtwatch API",
			"addr", addr,
			"environment", cfg.Environment,
			"store", cfg.StoreBackend,
			"docs", fmt.Sprintf("http://localhost:%d/docs/", cfg.APIPort))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("Server failed", "error", err)
			os.Exit(1)
		}
	}()

	// Wait for interrupt
	<-ctx.Done()
	logger.Info("Shutting down...")

	// Graceful shutdown with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Shutdown error", "error", err)
	}
	logger.Info("Server stopped")
}
