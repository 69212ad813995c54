// Package di provides dependency injection for scheduler jobs.
package di

import (
	"fmt"

	"github.com/rs/zerolog"

	"github.com/niveshio/panorama/internal/clientdata"
	"github.com/niveshio/panorama/internal/config"
	"github.com/niveshio/panorama/internal/reliability"
	"github.com/niveshio/panorama/internal/scheduler"
)

// Job schedules. The refresh job ticks every minute and decides internally
// whether a sweep is due, so the market cadence lives in the job, not here.
const (
	refreshSchedule     = "0 * * * * *"  // every minute
	cleanupSchedule     = "0 15 * * * *" // hourly at :15
	backupSchedule      = "0 30 1 * * *" // 01:30 daily
	maintenanceSchedule = "0 0 3 * * *"  // 03:00 daily
)

// RegisterJobs creates the scheduler and registers all background jobs.
// Job instances are kept on the container for manual triggering via the API.
func RegisterJobs(container *Container, cfg *config.Config, log zerolog.Logger) error {
	container.Scheduler = scheduler.New(log)

	// Consolidation refresh sweep, cadence driven by market status. The
	// sweep timeout stays at the job default: one sweep covers every user,
	// not one cycle.
	container.RefreshJob = scheduler.NewRefreshJob(scheduler.RefreshJobConfig{
		Consolidator: container.ConsolidationService,
		Cadence:      container.MarketStream,
		Logger:       log,
	})
	if err := container.Scheduler.AddJob(refreshSchedule, container.RefreshJob); err != nil {
		return fmt.Errorf("failed to register refresh job: %w", err)
	}

	// Expired cache entry cleanup
	container.CleanupJob = clientdata.NewCleanupJob(container.CacheRepo, log)
	if err := container.Scheduler.AddJob(cleanupSchedule, container.CleanupJob); err != nil {
		return fmt.Errorf("failed to register cleanup job: %w", err)
	}

	// Database integrity checks, WAL checkpoints, cache vacuum
	container.MaintenanceJob = reliability.NewMaintenanceJob(container.Databases(), cfg.DataDir, log)
	if err := container.Scheduler.AddJob(maintenanceSchedule, container.MaintenanceJob); err != nil {
		return fmt.Errorf("failed to register maintenance job: %w", err)
	}

	// Registry backup to object storage, only when configured
	if container.BackupService != nil {
		container.BackupJob = reliability.NewBackupJob(container.BackupService, cfg.Backup.RetentionDays, log)
		if err := container.Scheduler.AddJob(backupSchedule, container.BackupJob); err != nil {
			return fmt.Errorf("failed to register backup job: %w", err)
		}
	} else {
		log.Debug().Msg("Backup service not available, backup job not registered")
	}

	return nil
}
