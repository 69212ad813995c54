// Package di provides dependency injection type definitions.
//
// The Container is the single source of truth for all long-lived instances:
// databases, external clients, the consolidation pipeline, and the scheduler
// with its jobs. It is created by Wire() and shared by the HTTP server and
// main.
package di

import (
	"github.com/niveshio/panorama/internal/clientdata"
	"github.com/niveshio/panorama/internal/clients"
	"github.com/niveshio/panorama/internal/clients/classify"
	"github.com/niveshio/panorama/internal/clients/marketdata"
	"github.com/niveshio/panorama/internal/clients/marketstatus"
	"github.com/niveshio/panorama/internal/database"
	"github.com/niveshio/panorama/internal/modules/aggregation"
	"github.com/niveshio/panorama/internal/modules/analytics"
	"github.com/niveshio/panorama/internal/modules/brokers"
	"github.com/niveshio/panorama/internal/modules/consolidation"
	"github.com/niveshio/panorama/internal/modules/normalization"
	"github.com/niveshio/panorama/internal/modules/reconciliation"
	"github.com/niveshio/panorama/internal/reliability"
	"github.com/niveshio/panorama/internal/scheduler"
)

// Container holds all dependencies for the application.
type Container struct {
	// Databases
	RegistryDB   *database.DB // Broker connection registry (credentials, sync markers)
	ClientDataDB *database.DB // Cache for quotes, classifications, market status

	// Shared infrastructure
	CacheRepo *clientdata.Repository
	Crypto    *brokers.Crypto // nil without a fernet key; connection writes are rejected

	// Broker connection registry
	BrokerRepo    *brokers.Repository
	BrokerService *brokers.Service

	// External clients
	Adapters     *clients.Registry
	MarketData   *marketdata.Client
	Classifier   *classify.Client
	MarketStream *marketstatus.Stream

	// Consolidation pipeline
	Normalizer           *normalization.Normalizer
	Reconciler           *reconciliation.Reconciler
	Aggregator           *aggregation.Aggregator
	Calculator           *analytics.Calculator
	ConsolidationService *consolidation.Service

	// Reliability (nil when backup is not configured)
	S3Client      *reliability.S3Client
	BackupService *reliability.BackupService

	// Scheduler and job instances (jobs are also needed for manual triggers)
	Scheduler      *scheduler.Scheduler
	RefreshJob     *scheduler.RefreshJob
	CleanupJob     *clientdata.CleanupJob
	MaintenanceJob *reliability.MaintenanceJob
	BackupJob      *reliability.BackupJob // nil when backup is not configured
}

// Databases returns the open databases keyed by name, the shape the
// maintenance and backup collaborators expect.
func (c *Container) Databases() map[string]*database.DB {
	return map[string]*database.DB{
		"registry":   c.RegistryDB,
		"clientdata": c.ClientDataDB,
	}
}
