// Package di provides dependency injection for services.
package di

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/niveshio/panorama/internal/clientdata"
	"github.com/niveshio/panorama/internal/clients"
	"github.com/niveshio/panorama/internal/clients/angelone"
	"github.com/niveshio/panorama/internal/clients/classify"
	"github.com/niveshio/panorama/internal/clients/groww"
	"github.com/niveshio/panorama/internal/clients/marketdata"
	"github.com/niveshio/panorama/internal/clients/marketstatus"
	"github.com/niveshio/panorama/internal/clients/upstox"
	"github.com/niveshio/panorama/internal/clients/zerodha"
	"github.com/niveshio/panorama/internal/config"
	"github.com/niveshio/panorama/internal/modules/aggregation"
	"github.com/niveshio/panorama/internal/modules/analytics"
	"github.com/niveshio/panorama/internal/modules/brokers"
	"github.com/niveshio/panorama/internal/modules/consolidation"
	"github.com/niveshio/panorama/internal/modules/normalization"
	"github.com/niveshio/panorama/internal/modules/reconciliation"
	"github.com/niveshio/panorama/internal/reliability"
)

// InitializeServices wires clients, the broker connection registry, and the
// consolidation pipeline into the container.
func InitializeServices(container *Container, cfg *config.Config, log zerolog.Logger) error {
	// ==========================================
	// Shared infrastructure
	// ==========================================

	container.CacheRepo = clientdata.NewRepository(container.ClientDataDB.Conn())

	if cfg.FernetKey != "" {
		crypto, err := brokers.NewCrypto(cfg.FernetKey)
		if err != nil {
			return fmt.Errorf("failed to initialize credential encryption: %w", err)
		}
		container.Crypto = crypto
	} else {
		// Validate() only allows this in dev mode. Connection creation is
		// rejected until a key is provided.
		log.Warn().Msg("No credential encryption key configured, broker connection writes are disabled")
	}

	// ==========================================
	// Broker connection registry
	// ==========================================

	container.BrokerRepo = brokers.NewRepository(container.RegistryDB.Conn(), log)
	container.BrokerService = brokers.NewService(container.BrokerRepo, container.Crypto, log)

	// ==========================================
	// External clients
	// ==========================================

	container.Adapters = clients.NewRegistry(
		zerodha.NewClient(log),
		upstox.NewClient(log),
		angelone.NewClient(log),
		groww.NewClient(log),
	)

	container.MarketData = marketdata.NewClient(cfg.MarketDataURL, cfg.MarketDataAPIKey, container.CacheRepo, log)
	container.Classifier = classify.NewClient(cfg.ClassifyURL, cfg.ClassifyAPIKey, container.CacheRepo, log)

	container.MarketStream = marketstatus.NewStream(
		cfg.MarketStatusWSURL,
		cfg.RefreshIntervalOpen,
		cfg.RefreshIntervalClosed,
		container.CacheRepo,
		log,
	)

	// ==========================================
	// Consolidation pipeline
	// ==========================================

	container.Normalizer = normalization.New(log)
	container.Reconciler = reconciliation.New(log)
	container.Aggregator = aggregation.New(log)
	container.Calculator = analytics.New(cfg.PerformerCount, cfg.DominanceThreshold, log)

	container.ConsolidationService = consolidation.NewService(
		container.BrokerService,
		container.Adapters,
		container.Normalizer,
		container.Reconciler,
		container.Aggregator,
		container.Calculator,
		container.MarketData,
		container.Classifier,
		cfg.BrokerFetchTimeout,
		cfg.CycleTimeout,
		log,
	)

	// ==========================================
	// Backup (optional, only when configured)
	// ==========================================

	if cfg.Backup != nil && cfg.Backup.Enabled {
		s3Client, err := reliability.NewS3Client(context.Background(), reliability.StorageConfig{
			Endpoint:    cfg.Backup.Endpoint,
			Region:      cfg.Backup.Region,
			Bucket:      cfg.Backup.Bucket,
			AccessKeyID: cfg.Backup.AccessKeyID,
			SecretKey:   cfg.Backup.SecretKey,
		}, log)
		if err != nil {
			log.Warn().Err(err).Msg("Failed to initialize object storage client, backup disabled")
		} else {
			container.S3Client = s3Client
			container.BackupService = reliability.NewBackupService(
				s3Client,
				container.Databases(),
				cfg.DataDir,
				log,
			)
			log.Info().Str("bucket", cfg.Backup.Bucket).Msg("Backup service initialized")
		}
	} else {
		log.Debug().Msg("Backup not configured")
	}

	return nil
}
