package reliability

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// backupTimeout bounds one backup run including the upload.
const backupTimeout = 15 * time.Minute

// BackupJob ships a fresh archive to object storage and prunes old ones.
type BackupJob struct {
	service       *BackupService
	retentionDays int
	log           zerolog.Logger
}

// NewBackupJob creates the scheduled backup job.
func NewBackupJob(service *BackupService, retentionDays int, log zerolog.Logger) *BackupJob {
	return &BackupJob{
		service:       service,
		retentionDays: retentionDays,
		log:           log.With().Str("job", "registry_backup").Logger(),
	}
}

// Run creates and uploads one backup, then rotates old archives. A failed
// rotation is logged but does not fail the run; the backup itself landed.
func (j *BackupJob) Run() error {
	ctx, cancel := context.WithTimeout(context.Background(), backupTimeout)
	defer cancel()

	if err := j.service.CreateAndUploadBackup(ctx); err != nil {
		return err
	}

	if err := j.service.RotateOldBackups(ctx, j.retentionDays); err != nil {
		j.log.Warn().Err(err).Msg("Backup rotation failed")
	}

	return nil
}

// Name returns the job name for scheduling and logging.
func (j *BackupJob) Name() string {
	return "registry_backup"
}
