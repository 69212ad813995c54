// Package consolidation runs the per-user consolidation cycle: fan out to
// every enabled broker connection, normalize and reconcile the raw positions,
// resolve prices and asset classes, aggregate into the portfolio read model,
// and publish it as the user's latest snapshot.
package consolidation

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/niveshio/panorama/internal/apperrors"
	"github.com/niveshio/panorama/internal/domain"
	"github.com/niveshio/panorama/internal/modules/aggregation"
	"github.com/niveshio/panorama/internal/modules/analytics"
	"github.com/niveshio/panorama/internal/modules/brokers"
	"github.com/niveshio/panorama/internal/modules/freshness"
	"github.com/niveshio/panorama/internal/modules/normalization"
	"github.com/niveshio/panorama/internal/modules/reconciliation"
	"github.com/niveshio/panorama/internal/utils"
)

// Timeouts applied when the configured values are missing.
const (
	DefaultBrokerTimeout = 10 * time.Second
	DefaultCycleTimeout  = 30 * time.Second
)

// AdapterProvider resolves a broker id to its fetch adapter.
type AdapterProvider interface {
	Get(brokerID string) (domain.BrokerAdapter, error)
}

// ConnectionRegistry is the slice of the broker connection registry a cycle
// needs: enabled connections, decrypted credentials, and sync markers.
type ConnectionRegistry interface {
	EnabledForUser(userID string) ([]brokers.Connection, error)
	UsersWithEnabledConnections() ([]string, error)
	Credentials(id string) (domain.Credentials, error)
	MarkSynced(id string, at time.Time) error
	MarkSyncError(id string, fetchErr error) error
}

// Service orchestrates consolidation cycles and serves the latest snapshots.
type Service struct {
	registry   ConnectionRegistry
	adapters   AdapterProvider
	normalizer *normalization.Normalizer
	reconciler *reconciliation.Reconciler
	aggregator *aggregation.Aggregator
	calculator *analytics.Calculator
	marketData domain.MarketDataSource
	classifier domain.AssetClassifier
	store      *SnapshotStore

	brokerTimeout time.Duration
	cycleTimeout  time.Duration

	log zerolog.Logger
}

// NewService wires the consolidation pipeline. Non-positive timeouts fall
// back to the defaults.
func NewService(
	registry ConnectionRegistry,
	adapters AdapterProvider,
	normalizer *normalization.Normalizer,
	reconciler *reconciliation.Reconciler,
	aggregator *aggregation.Aggregator,
	calculator *analytics.Calculator,
	marketData domain.MarketDataSource,
	classifier domain.AssetClassifier,
	brokerTimeout time.Duration,
	cycleTimeout time.Duration,
	log zerolog.Logger,
) *Service {
	if brokerTimeout <= 0 {
		brokerTimeout = DefaultBrokerTimeout
	}
	if cycleTimeout <= 0 {
		cycleTimeout = DefaultCycleTimeout
	}

	return &Service{
		registry:      registry,
		adapters:      adapters,
		normalizer:    normalizer,
		reconciler:    reconciler,
		aggregator:    aggregator,
		calculator:    calculator,
		marketData:    marketData,
		classifier:    classifier,
		store:         NewSnapshotStore(),
		brokerTimeout: brokerTimeout,
		cycleTimeout:  cycleTimeout,
		log:           log.With().Str("service", "consolidation").Logger(),
	}
}

// fetchResult is one connection's outcome within a cycle. Exactly one of
// snapshot and failure is set.
type fetchResult struct {
	conn     brokers.Connection
	snapshot *domain.BrokerSnapshot
	failure  *domain.BrokerFailure
}

// Consolidate runs one cycle for the user and stores the resulting snapshot.
// Individual broker failures degrade the result (staleData, failedBrokers)
// but never abort it; only zero enabled connections or a full fetch wipe-out
// produce the sentinel portfolio with ErrNoActiveBrokers.
func (s *Service) Consolidate(ctx context.Context, userID string) (*domain.ConsolidatedPortfolio, error) {
	if strings.TrimSpace(userID) == "" {
		return nil, apperrors.ErrInvalidUserID
	}

	defer utils.OperationTimer("consolidation_cycle", s.log)()

	cycleID := uuid.New().String()
	log := s.log.With().Str("user", userID).Str("cycle", cycleID).Logger()

	connections, err := s.registry.EnabledForUser(userID)
	if err != nil {
		return nil, fmt.Errorf("failed to load broker connections: %w", err)
	}

	if len(connections) == 0 {
		log.Info().Msg("No enabled broker connections")
		sentinel := domain.EmptyPortfolio(userID, "no active broker connections")
		sentinel.CycleID = cycleID
		s.store.Put(sentinel)
		return sentinel, apperrors.ErrNoActiveBrokers
	}

	log.Info().Int("connections", len(connections)).Msg("Starting consolidation cycle")

	cycleCtx, cancel := context.WithTimeout(ctx, s.cycleTimeout)
	defer cancel()

	results := s.fetchAll(cycleCtx, connections)

	var snapshots []*domain.BrokerSnapshot
	var failures []domain.BrokerFailure
	fetchedAt := make(map[string]time.Time)
	failed := make(map[string]bool)

	for _, res := range results {
		if res.failure != nil {
			failures = append(failures, *res.failure)
			failed[res.conn.ID] = true
			continue
		}
		snapshots = append(snapshots, res.snapshot)
		fetchedAt[res.conn.ID] = res.snapshot.FetchedAt
	}

	now := time.Now().UTC()

	if len(snapshots) == 0 {
		log.Warn().Int("failed", len(failures)).Msg("Every broker fetch failed this cycle")

		sentinel := domain.EmptyPortfolio(userID, "all broker fetches failed")
		sentinel.CycleID = cycleID
		sentinel.StaleData = true
		sentinel.FailedBrokers = failureBrokerIDs(failures)
		sentinel.BrokerStatus = s.brokerStatuses(connections, fetchedAt, failed, now)
		sentinel.Freshness = freshness.PortfolioTier(sentinel.BrokerStatus)

		// A previous good snapshot stays served rather than being replaced
		// by an empty one; its freshness tier keeps degrading on its own.
		if _, ok := s.store.Get(userID); ok {
			log.Warn().Msg("Keeping previous snapshot after full fetch failure")
		} else {
			s.store.Put(sentinel)
		}
		return sentinel, apperrors.ErrNoActiveBrokers
	}

	normalized, cash, dropped := s.normalizeSnapshots(snapshots)
	reconciled := s.reconciler.Reconcile(normalized)
	s.resolvePrices(cycleCtx, reconciled)

	portfolio := s.aggregator.Aggregate(reconciled, cash)
	portfolio.CycleID = cycleID
	portfolio.UserID = userID
	portfolio.GeneratedAt = now
	portfolio.DroppedRecords = dropped
	portfolio.BrokerStatus = s.brokerStatuses(connections, fetchedAt, failed, now)
	portfolio.Freshness = freshness.PortfolioTier(portfolio.BrokerStatus)
	if len(failures) > 0 {
		portfolio.StaleData = true
		portfolio.FailedBrokers = failureBrokerIDs(failures)
	}

	s.store.Put(portfolio)

	log.Info().
		Int("brokers_ok", len(snapshots)).
		Int("brokers_failed", len(failures)).
		Int("positions", len(portfolio.Positions)).
		Int("dropped_records", dropped).
		Float64("total_value", portfolio.TotalValue).
		Str("freshness", string(portfolio.Freshness)).
		Msg("Consolidation cycle completed")

	return portfolio, nil
}

// Portfolio returns the user's consolidated portfolio. The stored snapshot is
// served unless refresh is set or no snapshot exists yet, in which case a
// cycle runs synchronously.
func (s *Service) Portfolio(ctx context.Context, userID string, refresh bool) (*domain.ConsolidatedPortfolio, error) {
	if !refresh {
		if snap, ok := s.store.Get(userID); ok {
			// A stored sentinel keeps its typed outcome on warm reads.
			if !snap.Success {
				return snap, apperrors.ErrNoActiveBrokers
			}
			return snap, nil
		}
	}
	return s.Consolidate(ctx, userID)
}

// Analytics derives the analytics read model from the user's portfolio. On
// ErrNoActiveBrokers the zeroed analytics of the sentinel portfolio are
// returned alongside the error.
func (s *Service) Analytics(ctx context.Context, userID string, refresh bool) (*domain.PortfolioAnalytics, error) {
	portfolio, err := s.Portfolio(ctx, userID, refresh)
	if portfolio == nil {
		return nil, err
	}
	return s.calculator.Analyze(portfolio), err
}

// FreshnessReport is the data-age view over the user's latest snapshot.
type FreshnessReport struct {
	UserID      string                    `json:"user_id"`
	CycleID     string                    `json:"cycle_id"`
	Tier        domain.FreshnessTier      `json:"freshness"`
	StaleData   bool                      `json:"stale_data"`
	Brokers     []domain.BrokerSyncStatus `json:"brokers"`
	GeneratedAt time.Time                 `json:"generated_at"`
}

// Freshness recomputes data-age tiers for the user's snapshot at call time,
// so a snapshot that was REAL_TIME five minutes ago reports FRESH now.
func (s *Service) Freshness(ctx context.Context, userID string) (*FreshnessReport, error) {
	portfolio, err := s.Portfolio(ctx, userID, false)
	if portfolio == nil {
		return nil, err
	}

	now := time.Now().UTC()
	statuses := make([]domain.BrokerSyncStatus, 0, len(portfolio.BrokerStatus))
	for _, b := range portfolio.BrokerStatus {
		statuses = append(statuses, freshness.Status(b.BrokerID, b.LastSyncedAt, b.Failed, now))
	}

	return &FreshnessReport{
		UserID:      portfolio.UserID,
		CycleID:     portfolio.CycleID,
		Tier:        freshness.PortfolioTier(statuses),
		StaleData:   portfolio.StaleData,
		Brokers:     statuses,
		GeneratedAt: portfolio.GeneratedAt,
	}, err
}

// ConsolidateAll refreshes every user with at least one enabled connection.
// Used by the scheduler; per-user failures are logged and do not stop the
// sweep.
func (s *Service) ConsolidateAll(ctx context.Context) error {
	users, err := s.registry.UsersWithEnabledConnections()
	if err != nil {
		return fmt.Errorf("failed to list users for refresh: %w", err)
	}

	refreshed, failed := 0, 0
	for _, userID := range users {
		if ctx.Err() != nil {
			return ctx.Err()
		}

		if _, err := s.Consolidate(ctx, userID); err != nil {
			failed++
			s.log.Warn().Err(err).Str("user", userID).Msg("Scheduled refresh failed for user")
			continue
		}
		refreshed++
	}

	s.log.Info().
		Int("users", len(users)).
		Int("refreshed", refreshed).
		Int("failed", failed).
		Msg("Scheduled consolidation sweep completed")

	return nil
}

// fetchAll runs one fetch per connection concurrently. Workers record their
// outcome instead of returning errors so one failing broker can never cancel
// its siblings; only the cycle deadline cancels in-flight fetches.
func (s *Service) fetchAll(ctx context.Context, connections []brokers.Connection) []fetchResult {
	results := make([]fetchResult, len(connections))

	g, gctx := errgroup.WithContext(ctx)
	for i, conn := range connections {
		i, conn := i, conn
		g.Go(func() error {
			results[i] = s.fetchBroker(gctx, conn)
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// fetchBroker fetches one connection's snapshot within the per-broker
// deadline and persists the sync marker.
func (s *Service) fetchBroker(ctx context.Context, conn brokers.Connection) fetchResult {
	res := fetchResult{conn: conn}

	adapter, err := s.adapters.Get(conn.BrokerID)
	if err != nil {
		res.failure = s.recordFailure(conn, err, false)
		return res
	}

	creds, err := s.registry.Credentials(conn.ID)
	if err != nil {
		res.failure = s.recordFailure(conn, fmt.Errorf("failed to load credentials: %w", err), false)
		return res
	}

	fetchCtx, cancel := context.WithTimeout(ctx, s.brokerTimeout)
	defer cancel()

	snapshot, err := adapter.FetchPositions(fetchCtx, creds)
	if err != nil {
		timedOut := errors.Is(err, context.DeadlineExceeded) ||
			errors.Is(fetchCtx.Err(), context.DeadlineExceeded)
		res.failure = s.recordFailure(conn, err, timedOut)
		return res
	}

	if snapshot.FetchedAt.IsZero() {
		snapshot.FetchedAt = time.Now().UTC()
	}

	if err := s.registry.MarkSynced(conn.ID, snapshot.FetchedAt); err != nil {
		s.log.Warn().Err(err).Str("connection", conn.ID).Msg("Failed to persist sync time")
	}

	s.log.Debug().
		Str("broker", conn.BrokerID).
		Int("positions", len(snapshot.Positions)).
		Int("cash_balances", len(snapshot.Cash)).
		Msg("Broker fetch succeeded")

	res.snapshot = snapshot
	return res
}

// recordFailure converts one broker's fetch error into a BrokerFailure and
// persists it on the connection. The cycle continues without this broker.
func (s *Service) recordFailure(conn brokers.Connection, err error, timedOut bool) *domain.BrokerFailure {
	s.log.Warn().
		Err(err).
		Str("broker", conn.BrokerID).
		Str("connection", conn.ID).
		Bool("timed_out", timedOut).
		Msg("Broker fetch failed")

	if markErr := s.registry.MarkSyncError(conn.ID, err); markErr != nil {
		s.log.Warn().Err(markErr).Str("connection", conn.ID).Msg("Failed to persist sync error")
	}

	return &domain.BrokerFailure{
		BrokerID: conn.BrokerID,
		TimedOut: timedOut,
		Reason:   err.Error(),
	}
}

// normalizeSnapshots canonicalizes every raw position. A record that fails
// normalization is dropped and counted; it never aborts the cycle.
func (s *Service) normalizeSnapshots(snapshots []*domain.BrokerSnapshot) ([]domain.NormalizedPosition, []domain.RawCashBalance, int) {
	var normalized []domain.NormalizedPosition
	var cash []domain.RawCashBalance
	dropped := 0

	for _, snap := range snapshots {
		for _, raw := range snap.Positions {
			pos, err := s.normalizer.NormalizePosition(raw)
			if err != nil {
				dropped++
				s.log.Warn().
					Err(err).
					Str("broker", raw.BrokerID).
					Str("raw_symbol", raw.RawSymbol).
					Msg("Dropping record that failed normalization")
				continue
			}
			normalized = append(normalized, pos)
		}
		cash = append(cash, snap.Cash...)
	}

	return normalized, cash, dropped
}

// resolvePrices fills each position's current price and asset class. A
// missing quote, a failed lookup, or a non-positive price falls back to the
// position's weighted-average cost so the cycle always produces a valued
// portfolio; the fallback contributes nothing to day change.
func (s *Service) resolvePrices(ctx context.Context, positions []domain.ReconciledPosition) {
	for i := range positions {
		p := &positions[i]

		quote, ok, err := s.marketData.GetQuote(ctx, p.Symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", p.Symbol).Msg("Quote lookup failed, falling back to cost basis")
			ok = false
		}

		if ok && quote.Price > 0 {
			reconciliation.ApplyQuote(p, quote.Price, quote.PrevClose, domain.PriceSourceMarket, quote.AsOf)
		} else {
			reconciliation.ApplyQuote(p, p.AvgPrice, 0, domain.PriceSourceCostBasis, time.Time{})
		}

		class, err := s.classifier.Classify(ctx, p.Symbol)
		if err != nil {
			s.log.Warn().Err(err).Str("symbol", p.Symbol).Msg("Classification lookup failed")
		}
		if class == "" {
			class = domain.AssetClassUnclassified
		}
		p.AssetClass = class
	}
}

// brokerStatuses builds per-connection sync statuses. A succeeded broker
// reports this cycle's fetch time; a failed one reports its last persisted
// successful sync from the registry.
func (s *Service) brokerStatuses(connections []brokers.Connection, fetchedAt map[string]time.Time, failed map[string]bool, now time.Time) []domain.BrokerSyncStatus {
	statuses := make([]domain.BrokerSyncStatus, 0, len(connections))
	for _, conn := range connections {
		lastSynced := time.Time{}
		if at, ok := fetchedAt[conn.ID]; ok {
			lastSynced = at
		} else if conn.LastSyncedAt != nil {
			lastSynced = *conn.LastSyncedAt
		}
		statuses = append(statuses, freshness.Status(conn.BrokerID, lastSynced, failed[conn.ID], now))
	}
	return statuses
}

// failureBrokerIDs lists the broker ids of this cycle's failures in
// connection order.
func failureBrokerIDs(failures []domain.BrokerFailure) []string {
	ids := make([]string, 0, len(failures))
	for _, f := range failures {
		ids = append(ids, f.BrokerID)
	}
	return ids
}
