package di

import (
	"testing"
	"time"

	"github.com/fernet/fernet-go"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niveshio/panorama/internal/config"
	"github.com/niveshio/panorama/internal/domain"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()

	var key fernet.Key
	require.NoError(t, key.Generate())

	return &config.Config{
		DataDir:  t.TempDir(),
		Port:     8080,
		LogLevel: "error",
		DevMode:  true,

		BrokerFetchTimeout: 10 * time.Second,
		CycleTimeout:       30 * time.Second,
		PerformerCount:     5,
		DominanceThreshold: 60.0,

		RefreshIntervalOpen:   5 * time.Minute,
		RefreshIntervalClosed: time.Hour,

		FernetKey: key.Encode(),
	}
}

func TestWire(t *testing.T) {
	container, err := Wire(testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer container.RegistryDB.Close()
	defer container.ClientDataDB.Close()

	assert.NotNil(t, container.CacheRepo)
	assert.NotNil(t, container.Crypto)
	assert.NotNil(t, container.BrokerService)
	assert.NotNil(t, container.ConsolidationService)
	assert.NotNil(t, container.MarketStream)

	// Every supported broker has an adapter registered.
	assert.ElementsMatch(t, domain.SupportedBrokers(), container.Adapters.BrokerIDs())

	// Refresh, cleanup, and maintenance. No backup without configuration.
	assert.Equal(t, 3, container.Scheduler.JobCount())
	assert.Nil(t, container.BackupService)
	assert.Nil(t, container.BackupJob)
}

func TestWireMigratesSchemas(t *testing.T) {
	container, err := Wire(testConfig(t), zerolog.Nop())
	require.NoError(t, err)
	defer container.RegistryDB.Close()
	defer container.ClientDataDB.Close()

	var n int
	err = container.RegistryDB.Conn().
		QueryRow(`SELECT COUNT(*) FROM broker_connections`).Scan(&n)
	require.NoError(t, err)
	assert.Zero(t, n)

	err = container.ClientDataDB.Conn().
		QueryRow(`SELECT COUNT(*) FROM quotes`).Scan(&n)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestWireWithoutFernetKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.FernetKey = ""

	container, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.RegistryDB.Close()
	defer container.ClientDataDB.Close()

	assert.Nil(t, container.Crypto)

	// The registry stays readable but rejects credential writes.
	_, err = container.BrokerService.Register("user-1", "zerodha", "", domain.Credentials{APIKey: "k"})
	assert.Error(t, err)
}

func TestWireRejectsBadFernetKey(t *testing.T) {
	cfg := testConfig(t)
	cfg.FernetKey = "not-a-key"

	_, err := Wire(cfg, zerolog.Nop())
	require.Error(t, err)
}

func TestWireWithBackupConfigured(t *testing.T) {
	cfg := testConfig(t)
	cfg.Backup = &config.BackupConfig{
		Enabled:       true,
		Endpoint:      "http://localhost:9000",
		Region:        "auto",
		Bucket:        "panorama-backups",
		AccessKeyID:   "test-access",
		SecretKey:     "test-secret",
		RetentionDays: 14,
	}

	container, err := Wire(cfg, zerolog.Nop())
	require.NoError(t, err)
	defer container.RegistryDB.Close()
	defer container.ClientDataDB.Close()

	assert.NotNil(t, container.S3Client)
	assert.NotNil(t, container.BackupService)
	assert.NotNil(t, container.BackupJob)
	assert.Equal(t, 4, container.Scheduler.JobCount())
}
