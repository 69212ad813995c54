// Package di provides dependency injection for database connections.
package di

import (
	"fmt"
	"path/filepath"

	"github.com/rs/zerolog"

	"github.com/niveshio/panorama/internal/config"
	"github.com/niveshio/panorama/internal/database"
)

// InitializeDatabases opens both databases and applies their schemas.
func InitializeDatabases(cfg *config.Config, log zerolog.Logger) (*Container, error) {
	container := &Container{}

	// registry.db - broker connections and encrypted credentials. Ledger
	// profile: losing a credential row costs the user a re-registration.
	registryDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "registry.db"),
		Profile: database.ProfileLedger,
		Name:    "registry",
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize registry database: %w", err)
	}
	container.RegistryDB = registryDB

	// clientdata.db - cached quotes, classifications, and market status.
	// Cache profile: everything in it can be refetched.
	clientDataDB, err := database.New(database.Config{
		Path:    filepath.Join(cfg.DataDir, "clientdata.db"),
		Profile: database.ProfileCache,
		Name:    "clientdata",
	})
	if err != nil {
		registryDB.Close()
		return nil, fmt.Errorf("failed to initialize clientdata database: %w", err)
	}
	container.ClientDataDB = clientDataDB

	for name, db := range container.Databases() {
		if err := db.Migrate(); err != nil {
			registryDB.Close()
			clientDataDB.Close()
			return nil, fmt.Errorf("failed to migrate %s database: %w", name, err)
		}
	}

	log.Info().
		Str("data_dir", cfg.DataDir).
		Msg("Databases initialized")

	return container, nil
}
