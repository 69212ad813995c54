package reliability

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niveshio/panorama/internal/database"
)

func TestMaintenanceJobRun(t *testing.T) {
	dataDir := t.TempDir()
	databases := map[string]*database.DB{
		"registry":   newBackupTestDB(t, dataDir, "registry", database.ProfileStandard),
		"clientdata": newBackupTestDB(t, dataDir, "clientdata", database.ProfileCache),
	}

	job := NewMaintenanceJob(databases, dataDir, zerolog.Nop())

	require.NoError(t, job.Run())
	assert.Equal(t, "database_maintenance", job.Name())
}

func TestMaintenanceJobSurvivesVacuum(t *testing.T) {
	dataDir := t.TempDir()
	db := newBackupTestDB(t, dataDir, "clientdata", database.ProfileCache)

	// Churn the table so vacuum has something to reclaim.
	_, err := db.Exec("DELETE FROM entries")
	require.NoError(t, err)

	job := NewMaintenanceJob(map[string]*database.DB{"clientdata": db}, dataDir, zerolog.Nop())
	require.NoError(t, job.Run())

	// The database is still usable afterwards.
	var count int
	require.NoError(t, db.QueryRow("SELECT COUNT(*) FROM entries").Scan(&count))
	assert.Zero(t, count)
}
