// Package main is the entry point for the Panorama portfolio consolidation
// service. It wires the dependency container, starts the market status
// stream, the job scheduler, and the HTTP API, and shuts them down in
// reverse order on SIGINT/SIGTERM.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/niveshio/panorama/internal/config"
	"github.com/niveshio/panorama/internal/di"
	"github.com/niveshio/panorama/internal/scheduler"
	"github.com/niveshio/panorama/internal/server"
	"github.com/niveshio/panorama/pkg/logger"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
	})

	log.Info().Msg("Starting Panorama")

	// Wire all dependencies: databases, clients, the consolidation pipeline,
	// and the scheduler with its jobs.
	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}

	// Databases are closed last, after the scheduler and server have drained.
	defer container.RegistryDB.Close()
	defer container.ClientDataDB.Close()

	// Market status stream feeds the refresh cadence. A failed start is not
	// fatal: the stream falls back to trading-hours heuristics.
	if err := container.MarketStream.Start(); err != nil {
		log.Error().Err(err).Msg("Failed to start market status stream")
	}

	container.Scheduler.Start()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Container: container,
	})

	// Register job instances for the manual trigger endpoints. The backup
	// job is only passed when backup is configured; a typed nil would defeat
	// the handler's nil check.
	var backupJob scheduler.Job
	if container.BackupJob != nil {
		backupJob = container.BackupJob
	}
	srv.SetJobs(container.RefreshJob, container.CleanupJob, container.MaintenanceJob, backupJob)

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down...")

	// Stop accepting new job runs and wait for an in-flight sweep to finish.
	container.Scheduler.Stop()

	if err := container.MarketStream.Stop(); err != nil {
		log.Error().Err(err).Msg("Error stopping market status stream")
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}
