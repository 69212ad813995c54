package reliability

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"

	"github.com/niveshio/panorama/internal/database"
)

// Disk space thresholds for the data directory, in gigabytes.
const (
	diskCriticalGB = 0.5
	diskWarningGB  = 5.0
)

// MaintenanceJob performs the nightly database upkeep: integrity checks,
// WAL checkpoints, space reclamation on the cache database, and a disk
// space check on the data directory.
type MaintenanceJob struct {
	databases map[string]*database.DB
	dataDir   string
	log       zerolog.Logger
}

// NewMaintenanceJob creates the maintenance job over the given databases.
func NewMaintenanceJob(databases map[string]*database.DB, dataDir string, log zerolog.Logger) *MaintenanceJob {
	return &MaintenanceJob{
		databases: databases,
		dataDir:   dataDir,
		log:       log.With().Str("job", "database_maintenance").Logger(),
	}
}

// Run executes the maintenance job.
func (j *MaintenanceJob) Run() error {
	j.log.Info().Msg("Starting database maintenance")
	startTime := time.Now()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	// A corrupt database is the one failure maintenance must not paper over.
	for name, db := range j.databases {
		j.log.Debug().Str("database", name).Msg("Running integrity check")

		if err := db.HealthCheck(ctx); err != nil {
			j.log.Error().Err(err).Str("database", name).Msg("Database integrity check failed")
			return fmt.Errorf("integrity check failed for %s: %w", name, err)
		}
	}

	// Checkpoint WAL files so they do not grow unbounded between restarts.
	for name, db := range j.databases {
		if err := db.WALCheckpoint("TRUNCATE"); err != nil {
			j.log.Warn().Err(err).Str("database", name).Msg("WAL checkpoint failed")
		}
	}

	// The cache database churns with every TTL expiry; reclaim its space.
	for name, db := range j.databases {
		if db.Profile() != database.ProfileCache {
			continue
		}
		j.vacuumDatabase(db, name)
	}

	if err := j.checkDiskSpace(); err != nil {
		return err
	}

	j.log.Info().
		Dur("duration_ms", time.Since(startTime)).
		Msg("Database maintenance completed")

	return nil
}

// Name returns the job name for scheduling and logging.
func (j *MaintenanceJob) Name() string {
	return "database_maintenance"
}

// vacuumDatabase reclaims free pages and logs the space recovered.
func (j *MaintenanceJob) vacuumDatabase(db *database.DB, name string) {
	before, err := db.GetStats()
	if err != nil {
		j.log.Warn().Err(err).Str("database", name).Msg("Failed to read stats before vacuum")
	}

	if err := db.Vacuum(); err != nil {
		j.log.Error().Err(err).Str("database", name).Msg("Vacuum failed")
		return
	}

	after, err := db.GetStats()
	if err != nil || before == nil {
		j.log.Info().Str("database", name).Msg("Vacuum completed")
		return
	}

	j.log.Info().
		Str("database", name).
		Int64("size_before_bytes", before.SizeBytes).
		Int64("size_after_bytes", after.SizeBytes).
		Msg("Vacuum completed")
}

// checkDiskSpace fails the job when the data directory's filesystem is
// nearly full, which is the precursor to SQLite write failures.
func (j *MaintenanceJob) checkDiskSpace() error {
	usage, err := disk.Usage(j.dataDir)
	if err != nil {
		j.log.Warn().Err(err).Msg("Failed to read disk usage")
		return nil
	}

	freeGB := float64(usage.Free) / 1e9

	if freeGB < diskCriticalGB {
		j.log.Error().Float64("free_gb", freeGB).Msg("Disk space critically low")
		return fmt.Errorf("only %.2f GB free on data directory filesystem", freeGB)
	}

	if freeGB < diskWarningGB {
		j.log.Warn().Float64("free_gb", freeGB).Msg("Disk space running low")
	} else {
		j.log.Debug().Float64("free_gb", freeGB).Msg("Disk space check passed")
	}

	return nil
}
