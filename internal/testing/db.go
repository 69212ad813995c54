// Package testing provides testing utilities and helpers for the panorama project.
package testing

import (
	"fmt"
	"os"
	"testing"

	"github.com/niveshio/panorama/internal/database"
	_ "modernc.org/sqlite"
)

// NewTestDB creates a file-backed SQLite database for testing with automatic
// schema migration. Returns the database instance and a cleanup function that
// closes the connection and removes the file. The cleanup function is
// idempotent and can be called multiple times safely.
//
// Supported database names:
//   - "registry" - applies registry_schema.sql with the ledger profile
//   - "clientdata" - applies clientdata_schema.sql with the cache profile
//   - Unknown names - creates an empty database (no schema applied)
func NewTestDB(t *testing.T, name string) (*database.DB, func()) {
	t.Helper()

	// Each test gets its own temporary file so tests stay isolated even
	// when they run in parallel.
	tmpFile, err := os.CreateTemp("", fmt.Sprintf("test_%s_*.db", name))
	if err != nil {
		t.Fatalf("Failed to create temporary database file: %v", err)
	}
	tmpPath := tmpFile.Name()
	_ = tmpFile.Close()

	db, err := database.New(database.Config{
		Path:    tmpPath,
		Profile: profileFor(name),
		Name:    name,
	})
	if err != nil {
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to create test database %s: %v", name, err)
	}

	// Apply schema migration if a schema exists for this database name
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		_ = os.Remove(tmpPath)
		t.Fatalf("Failed to migrate test database %s: %v", name, err)
	}

	return db, func() {
		if err := db.Close(); err != nil {
			// Log but don't fail the test - cleanup should be idempotent
			t.Logf("Warning: Failed to close test database %s: %v", name, err)
		}
		if err := os.Remove(tmpPath); err != nil {
			t.Logf("Warning: Failed to remove temporary database file %s: %v", tmpPath, err)
		}
	}
}

// profileFor mirrors the profile each production database runs with, so
// tests exercise the same PRAGMA configuration.
func profileFor(name string) database.DatabaseProfile {
	switch name {
	case "registry":
		return database.ProfileLedger
	case "clientdata":
		return database.ProfileCache
	default:
		return database.ProfileStandard
	}
}
