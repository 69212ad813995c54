package consolidation

import (
	"context"
	"database/sql"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"github.com/fernet/fernet-go"
	_ "github.com/mattn/go-sqlite3"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niveshio/panorama/internal/apperrors"
	"github.com/niveshio/panorama/internal/clients"
	"github.com/niveshio/panorama/internal/domain"
	"github.com/niveshio/panorama/internal/modules/aggregation"
	"github.com/niveshio/panorama/internal/modules/analytics"
	"github.com/niveshio/panorama/internal/modules/brokers"
	"github.com/niveshio/panorama/internal/modules/normalization"
	"github.com/niveshio/panorama/internal/modules/reconciliation"
)

var testCreds = domain.Credentials{APIKey: "api-key", AccessToken: "access-token"}

func newTestRegistry(t *testing.T) *brokers.Service {
	t.Helper()

	db, err := sql.Open("sqlite3", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(`
		CREATE TABLE broker_connections (
			id              TEXT PRIMARY KEY,
			user_id         TEXT NOT NULL,
			broker_id       TEXT NOT NULL,
			label           TEXT NOT NULL DEFAULT '',
			credentials     TEXT NOT NULL,
			enabled         INTEGER NOT NULL DEFAULT 1,
			created_at      INTEGER NOT NULL,
			updated_at      INTEGER NOT NULL,
			last_synced_at  INTEGER,
			last_sync_error TEXT,
			UNIQUE (user_id, broker_id)
		)
	`)
	require.NoError(t, err)

	var key fernet.Key
	require.NoError(t, key.Generate())
	crypto, err := brokers.NewCrypto(key.Encode())
	require.NoError(t, err)

	return brokers.NewService(brokers.NewRepository(db, zerolog.Nop()), crypto, zerolog.Nop())
}

// stubAdapter serves a canned snapshot, an error, or stalls until the
// context deadline, depending on how the test configures it.
type stubAdapter struct {
	id    string
	delay time.Duration
	err   error

	positions []domain.RawBrokerPosition
	cash      []domain.RawCashBalance

	mu    sync.Mutex
	calls int
}

func (a *stubAdapter) BrokerID() string { return a.id }

func (a *stubAdapter) FetchPositions(ctx context.Context, _ domain.Credentials) (*domain.BrokerSnapshot, error) {
	a.mu.Lock()
	a.calls++
	a.mu.Unlock()

	if a.delay > 0 {
		select {
		case <-time.After(a.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if a.err != nil {
		return nil, a.err
	}

	return &domain.BrokerSnapshot{
		BrokerID:  a.id,
		Positions: a.positions,
		Cash:      a.cash,
		FetchedAt: time.Now().UTC(),
	}, nil
}

func (a *stubAdapter) callCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.calls
}

// stubQuotes serves fixed quotes; absent symbols have no quote.
type stubQuotes struct {
	quotes map[string]domain.Quote
	err    error
}

func (s *stubQuotes) GetQuote(_ context.Context, symbol string) (domain.Quote, bool, error) {
	if s.err != nil {
		return domain.Quote{}, false, s.err
	}
	q, ok := s.quotes[symbol]
	return q, ok, nil
}

// stubClassifier serves fixed classes, defaulting to UNCLASSIFIED.
type stubClassifier struct {
	classes map[string]domain.AssetClass
}

func (s *stubClassifier) Classify(_ context.Context, symbol string) (domain.AssetClass, error) {
	if c, ok := s.classes[symbol]; ok {
		return c, nil
	}
	return domain.AssetClassUnclassified, nil
}

func newTestService(t *testing.T, registry *brokers.Service, quotes *stubQuotes, classifier *stubClassifier, adapters ...domain.BrokerAdapter) *Service {
	t.Helper()

	if quotes == nil {
		quotes = &stubQuotes{}
	}
	if classifier == nil {
		classifier = &stubClassifier{}
	}

	log := zerolog.Nop()
	return NewService(
		registry,
		clients.NewRegistry(adapters...),
		normalization.New(log),
		reconciliation.New(log),
		aggregation.New(log),
		analytics.New(0, 0, log),
		quotes,
		classifier,
		200*time.Millisecond,
		time.Second,
		log,
	)
}

func seedConnection(t *testing.T, registry *brokers.Service, userID, brokerID string) *brokers.Connection {
	t.Helper()

	conn, err := registry.Register(userID, brokerID, brokerID+" account", testCreds)
	require.NoError(t, err)
	return conn
}

func TestConsolidateMergesAcrossBrokers(t *testing.T) {
	registry := newTestRegistry(t)
	zerodhaConn := seedConnection(t, registry, "user-1", domain.BrokerZerodha)
	seedConnection(t, registry, "user-1", domain.BrokerUpstox)

	zerodha := &stubAdapter{
		id: domain.BrokerZerodha,
		positions: []domain.RawBrokerPosition{
			{BrokerID: domain.BrokerZerodha, RawSymbol: "RELIANCE", RawExchange: "NSE", Quantity: 10, AvgPrice: 2400, Side: domain.SideLong},
			{BrokerID: domain.BrokerZerodha, RawSymbol: "TCS", RawExchange: "NSE", Quantity: 5, AvgPrice: 3600, Side: domain.SideLong},
		},
		cash: []domain.RawCashBalance{{BrokerID: domain.BrokerZerodha, Currency: domain.CurrencyINR, Amount: 50000}},
	}
	upstox := &stubAdapter{
		id: domain.BrokerUpstox,
		positions: []domain.RawBrokerPosition{
			// Composite instrument key resolves to RELIANCE and merges with
			// the zerodha row.
			{BrokerID: domain.BrokerUpstox, RawSymbol: "NSE_EQ|INE002A01018", RawExchange: "NSE_EQ", Quantity: 5, AvgPrice: 2550, Side: domain.SideLong},
		},
		cash: []domain.RawCashBalance{{BrokerID: domain.BrokerUpstox, Currency: domain.CurrencyINR, Amount: 25000}},
	}

	quotes := &stubQuotes{quotes: map[string]domain.Quote{
		"RELIANCE": {Symbol: "RELIANCE", Price: 2500, PrevClose: 2450, AsOf: time.Now().UTC()},
		"TCS":      {Symbol: "TCS", Price: 3500, PrevClose: 3550, AsOf: time.Now().UTC()},
	}}
	classifier := &stubClassifier{classes: map[string]domain.AssetClass{
		"RELIANCE": domain.AssetClassEquity,
		"TCS":      domain.AssetClassEquity,
	}}

	service := newTestService(t, registry, quotes, classifier, zerodha, upstox)

	portfolio, err := service.Consolidate(context.Background(), "user-1")
	require.NoError(t, err)

	assert.True(t, portfolio.Success)
	assert.False(t, portfolio.StaleData)
	assert.Empty(t, portfolio.FailedBrokers)
	assert.Zero(t, portfolio.DroppedRecords)
	assert.NotEmpty(t, portfolio.CycleID)
	assert.Equal(t, "user-1", portfolio.UserID)

	require.Len(t, portfolio.Positions, 2)

	reliance := portfolio.Positions[0]
	assert.Equal(t, "RELIANCE", reliance.Symbol)
	assert.Equal(t, 15.0, reliance.Quantity)
	assert.Equal(t, 2450.0, reliance.AvgPrice) // (10×2400 + 5×2550) / 15
	assert.Equal(t, domain.PriceSourceMarket, reliance.PriceSource)
	assert.Equal(t, 37500.0, reliance.MarketValue)
	assert.Equal(t, 750.0, reliance.DayChange) // (2500−2450)×15
	assert.Equal(t, domain.AssetClassEquity, reliance.AssetClass)
	require.Len(t, reliance.Breakdown, 2)

	// Signed breakdown quantities always sum to the merged total.
	for _, p := range portfolio.Positions {
		signed := 0.0
		for _, c := range p.Breakdown {
			signed += c.Quantity * c.Side.Sign()
		}
		assert.InDelta(t, p.Quantity, signed, 1e-9, "breakdown must conserve quantity for %s", p.Symbol)
	}

	assert.Equal(t, 55000.0, portfolio.TotalValue)
	assert.Equal(t, 54750.0, portfolio.TotalCost)
	assert.Equal(t, 250.0, portfolio.UnrealizedPnL)
	assert.Equal(t, 500.0, portfolio.DayChange)

	require.Len(t, portfolio.Cash, 1)
	assert.Equal(t, domain.CurrencyINR, portfolio.Cash[0].Currency)
	assert.Equal(t, 75000.0, portfolio.Cash[0].Display)
	assert.Equal(t, 50000.0, portfolio.Cash[0].ByBroker[domain.BrokerZerodha])

	assert.Equal(t, domain.FreshnessRealTime, portfolio.Freshness)
	require.Len(t, portfolio.BrokerStatus, 2)
	for _, status := range portfolio.BrokerStatus {
		assert.False(t, status.Failed)
		assert.Equal(t, domain.FreshnessRealTime, status.Tier)
	}

	// Successful fetches persist the sync marker.
	updated, err := registry.Get(zerodhaConn.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.LastSyncedAt)
	assert.Nil(t, updated.LastSyncError)
}

func TestConsolidatePartialFailure(t *testing.T) {
	registry := newTestRegistry(t)
	seedConnection(t, registry, "user-1", domain.BrokerZerodha)
	upstoxConn := seedConnection(t, registry, "user-1", domain.BrokerUpstox)
	seedConnection(t, registry, "user-1", domain.BrokerGroww)

	zerodha := &stubAdapter{
		id: domain.BrokerZerodha,
		positions: []domain.RawBrokerPosition{
			{BrokerID: domain.BrokerZerodha, RawSymbol: "RELIANCE", RawExchange: "NSE", Quantity: 10, AvgPrice: 2400, Side: domain.SideLong},
		},
	}
	upstox := &stubAdapter{id: domain.BrokerUpstox, delay: time.Second} // Stalls past the 200ms broker deadline
	groww := &stubAdapter{
		id: domain.BrokerGroww,
		positions: []domain.RawBrokerPosition{
			{BrokerID: domain.BrokerGroww, RawSymbol: "TCS", RawExchange: "NSE", Quantity: 5, AvgPrice: 3600, Side: domain.SideLong},
		},
	}

	service := newTestService(t, registry, nil, nil, zerodha, upstox, groww)

	portfolio, err := service.Consolidate(context.Background(), "user-1")
	require.NoError(t, err)

	assert.True(t, portfolio.Success)
	assert.True(t, portfolio.StaleData)
	assert.Equal(t, []string{domain.BrokerUpstox}, portfolio.FailedBrokers)

	// Totals come only from the two succeeding brokers; without quotes the
	// cost-basis fallback makes value equal cost.
	assert.Equal(t, 42000.0, portfolio.TotalValue)
	assert.Equal(t, 42000.0, portfolio.TotalCost)
	require.Len(t, portfolio.Positions, 2)

	// The timed-out broker has never synced, so it drags the portfolio tier
	// down to OLD.
	assert.Equal(t, domain.FreshnessOld, portfolio.Freshness)
	var upstoxStatus *domain.BrokerSyncStatus
	for i := range portfolio.BrokerStatus {
		if portfolio.BrokerStatus[i].BrokerID == domain.BrokerUpstox {
			upstoxStatus = &portfolio.BrokerStatus[i]
		}
	}
	require.NotNil(t, upstoxStatus)
	assert.True(t, upstoxStatus.Failed)
	assert.Equal(t, domain.FreshnessOld, upstoxStatus.Tier)

	// The failure is persisted on the connection.
	updated, err := registry.Get(upstoxConn.ID)
	require.NoError(t, err)
	require.NotNil(t, updated.LastSyncError)
	assert.Nil(t, updated.LastSyncedAt)
}

func TestConsolidateNoConnections(t *testing.T) {
	registry := newTestRegistry(t)
	service := newTestService(t, registry, nil, nil)

	portfolio, err := service.Consolidate(context.Background(), "user-1")
	require.ErrorIs(t, err, apperrors.ErrNoActiveBrokers)
	require.NotNil(t, portfolio)

	assert.False(t, portfolio.Success)
	assert.Equal(t, "no active broker connections", portfolio.Error)
	assert.NotNil(t, portfolio.Positions)
	assert.Empty(t, portfolio.Positions)
	assert.Zero(t, portfolio.TotalValue)

	// The sentinel becomes the stored snapshot.
	stored, err := service.Portfolio(context.Background(), "user-1", false)
	require.ErrorIs(t, err, apperrors.ErrNoActiveBrokers)
	// Portfolio found a stored snapshot, so no new cycle ran.
	_ = stored
}

func TestConsolidateAllBrokersFail(t *testing.T) {
	registry := newTestRegistry(t)
	seedConnection(t, registry, "user-1", domain.BrokerZerodha)
	seedConnection(t, registry, "user-1", domain.BrokerGroww)

	zerodha := &stubAdapter{
		id: domain.BrokerZerodha,
		positions: []domain.RawBrokerPosition{
			{BrokerID: domain.BrokerZerodha, RawSymbol: "RELIANCE", RawExchange: "NSE", Quantity: 10, AvgPrice: 2400, Side: domain.SideLong},
		},
	}
	groww := &stubAdapter{
		id: domain.BrokerGroww,
		positions: []domain.RawBrokerPosition{
			{BrokerID: domain.BrokerGroww, RawSymbol: "TCS", RawExchange: "NSE", Quantity: 5, AvgPrice: 3600, Side: domain.SideLong},
		},
	}

	service := newTestService(t, registry, nil, nil, zerodha, groww)

	// First cycle succeeds and stores a snapshot.
	first, err := service.Consolidate(context.Background(), "user-1")
	require.NoError(t, err)
	require.True(t, first.Success)

	// Then both brokers go down.
	zerodha.err = errors.New("gateway unavailable")
	groww.err = errors.New("session expired")

	sentinel, err := service.Consolidate(context.Background(), "user-1")
	require.ErrorIs(t, err, apperrors.ErrNoActiveBrokers)
	require.NotNil(t, sentinel)

	assert.False(t, sentinel.Success)
	assert.True(t, sentinel.StaleData)
	assert.ElementsMatch(t, []string{domain.BrokerZerodha, domain.BrokerGroww}, sentinel.FailedBrokers)

	// The previous good snapshot keeps being served instead of the sentinel.
	stored, err := service.Portfolio(context.Background(), "user-1", false)
	require.NoError(t, err)
	assert.True(t, stored.Success)
	assert.Equal(t, first.CycleID, stored.CycleID)
}

func TestConsolidateDropsBadRecords(t *testing.T) {
	registry := newTestRegistry(t)
	seedConnection(t, registry, "user-1", domain.BrokerZerodha)

	zerodha := &stubAdapter{
		id: domain.BrokerZerodha,
		positions: []domain.RawBrokerPosition{
			{BrokerID: domain.BrokerZerodha, RawSymbol: "RELIANCE", RawExchange: "NSE", Quantity: 10, AvgPrice: 2400, Side: domain.SideLong},
			{BrokerID: domain.BrokerZerodha, RawSymbol: "   ", RawExchange: "NSE", Quantity: 3, AvgPrice: 100, Side: domain.SideLong},
		},
	}

	service := newTestService(t, registry, nil, nil, zerodha)

	portfolio, err := service.Consolidate(context.Background(), "user-1")
	require.NoError(t, err)

	assert.True(t, portfolio.Success)
	assert.Equal(t, 1, portfolio.DroppedRecords)
	require.Len(t, portfolio.Positions, 1)
	assert.Equal(t, "RELIANCE", portfolio.Positions[0].Symbol)
}

func TestConsolidateCostBasisFallback(t *testing.T) {
	registry := newTestRegistry(t)
	seedConnection(t, registry, "user-1", domain.BrokerZerodha)

	zerodha := &stubAdapter{
		id: domain.BrokerZerodha,
		positions: []domain.RawBrokerPosition{
			{BrokerID: domain.BrokerZerodha, RawSymbol: "RELIANCE", RawExchange: "NSE", Quantity: 10, AvgPrice: 2400, Side: domain.SideLong},
		},
	}

	// The quote source is reachable but has no quote for the symbol.
	service := newTestService(t, registry, &stubQuotes{}, nil, zerodha)

	portfolio, err := service.Consolidate(context.Background(), "user-1")
	require.NoError(t, err)
	require.Len(t, portfolio.Positions, 1)

	p := portfolio.Positions[0]
	assert.Equal(t, domain.PriceSourceCostBasis, p.PriceSource)
	assert.Equal(t, p.AvgPrice, p.CurrentPrice)
	assert.Zero(t, p.UnrealizedPnL)
	assert.Zero(t, p.DayChange)
	assert.False(t, math.IsNaN(p.PnLPercent))

	// A failing quote source degrades the same way instead of erroring.
	failing := newTestService(t, registry, &stubQuotes{err: apperrors.ErrQuoteUnavailable}, nil, zerodha)
	portfolio, err = failing.Consolidate(context.Background(), "user-1")
	require.NoError(t, err)
	assert.True(t, portfolio.Success)
	assert.Equal(t, domain.PriceSourceCostBasis, portfolio.Positions[0].PriceSource)
}

func TestPortfolioServesSnapshotUntilRefresh(t *testing.T) {
	registry := newTestRegistry(t)
	seedConnection(t, registry, "user-1", domain.BrokerZerodha)

	zerodha := &stubAdapter{
		id: domain.BrokerZerodha,
		positions: []domain.RawBrokerPosition{
			{BrokerID: domain.BrokerZerodha, RawSymbol: "RELIANCE", RawExchange: "NSE", Quantity: 10, AvgPrice: 2400, Side: domain.SideLong},
		},
	}

	service := newTestService(t, registry, nil, nil, zerodha)

	// Cold read triggers a cycle.
	first, err := service.Portfolio(context.Background(), "user-1", false)
	require.NoError(t, err)
	assert.Equal(t, 1, zerodha.callCount())

	// Warm reads serve the stored snapshot without touching the broker.
	second, err := service.Portfolio(context.Background(), "user-1", false)
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, 1, zerodha.callCount())

	// refresh=true forces a new cycle.
	third, err := service.Portfolio(context.Background(), "user-1", true)
	require.NoError(t, err)
	assert.NotEqual(t, first.CycleID, third.CycleID)
	assert.Equal(t, 2, zerodha.callCount())
}

func TestAnalyticsFromPortfolio(t *testing.T) {
	registry := newTestRegistry(t)
	seedConnection(t, registry, "user-1", domain.BrokerZerodha)

	zerodha := &stubAdapter{
		id: domain.BrokerZerodha,
		positions: []domain.RawBrokerPosition{
			{BrokerID: domain.BrokerZerodha, RawSymbol: "RELIANCE", RawExchange: "NSE", Quantity: 10, AvgPrice: 2400, Side: domain.SideLong},
			{BrokerID: domain.BrokerZerodha, RawSymbol: "TCS", RawExchange: "NSE", Quantity: 5, AvgPrice: 3600, Side: domain.SideLong},
		},
	}
	quotes := &stubQuotes{quotes: map[string]domain.Quote{
		"RELIANCE": {Symbol: "RELIANCE", Price: 2640, AsOf: time.Now().UTC()}, // +10%
		"TCS":      {Symbol: "TCS", Price: 3420, AsOf: time.Now().UTC()},      // −5%
	}}

	service := newTestService(t, registry, quotes, nil, zerodha)

	analytics, err := service.Analytics(context.Background(), "user-1", false)
	require.NoError(t, err)

	assert.Equal(t, 2, analytics.TotalPositions)
	require.NotEmpty(t, analytics.TopPerformers)
	assert.Equal(t, "RELIANCE", analytics.TopPerformers[0].Symbol)
	assert.Equal(t, "TCS", analytics.WorstPerformers[0].Symbol)
}

func TestAnalyticsNoActiveBrokers(t *testing.T) {
	registry := newTestRegistry(t)
	service := newTestService(t, registry, nil, nil)

	analytics, err := service.Analytics(context.Background(), "user-1", false)
	require.ErrorIs(t, err, apperrors.ErrNoActiveBrokers)
	require.NotNil(t, analytics)
	assert.Zero(t, analytics.TotalPositions)
	assert.Zero(t, analytics.TotalValue)
}

func TestFreshnessReport(t *testing.T) {
	registry := newTestRegistry(t)
	seedConnection(t, registry, "user-1", domain.BrokerZerodha)

	zerodha := &stubAdapter{
		id: domain.BrokerZerodha,
		positions: []domain.RawBrokerPosition{
			{BrokerID: domain.BrokerZerodha, RawSymbol: "RELIANCE", RawExchange: "NSE", Quantity: 10, AvgPrice: 2400, Side: domain.SideLong},
		},
	}

	service := newTestService(t, registry, nil, nil, zerodha)

	portfolio, err := service.Consolidate(context.Background(), "user-1")
	require.NoError(t, err)

	report, err := service.Freshness(context.Background(), "user-1")
	require.NoError(t, err)

	assert.Equal(t, portfolio.CycleID, report.CycleID)
	assert.Equal(t, domain.FreshnessRealTime, report.Tier)
	assert.False(t, report.StaleData)
	require.Len(t, report.Brokers, 1)
	assert.Equal(t, domain.BrokerZerodha, report.Brokers[0].BrokerID)
}

func TestConsolidateAll(t *testing.T) {
	registry := newTestRegistry(t)
	seedConnection(t, registry, "user-1", domain.BrokerZerodha)
	seedConnection(t, registry, "user-2", domain.BrokerGroww)

	zerodha := &stubAdapter{
		id: domain.BrokerZerodha,
		positions: []domain.RawBrokerPosition{
			{BrokerID: domain.BrokerZerodha, RawSymbol: "RELIANCE", RawExchange: "NSE", Quantity: 10, AvgPrice: 2400, Side: domain.SideLong},
		},
	}
	groww := &stubAdapter{
		id: domain.BrokerGroww,
		positions: []domain.RawBrokerPosition{
			{BrokerID: domain.BrokerGroww, RawSymbol: "NSE:TCS", RawExchange: "", Quantity: 5, AvgPrice: 3600, Side: domain.SideLong},
		},
	}

	service := newTestService(t, registry, nil, nil, zerodha, groww)

	require.NoError(t, service.ConsolidateAll(context.Background()))

	for _, userID := range []string{"user-1", "user-2"} {
		snap, err := service.Portfolio(context.Background(), userID, false)
		require.NoError(t, err, "user %s", userID)
		assert.True(t, snap.Success)
		assert.Len(t, snap.Positions, 1)
	}

	// Both adapters were hit exactly once.
	assert.Equal(t, 1, zerodha.callCount())
	assert.Equal(t, 1, groww.callCount())
}

func TestConsolidateMissingAdapter(t *testing.T) {
	registry := newTestRegistry(t)
	seedConnection(t, registry, "user-1", domain.BrokerZerodha)

	// Only groww is registered; the zerodha connection cannot be served.
	groww := &stubAdapter{id: domain.BrokerGroww}
	service := newTestService(t, registry, nil, nil, groww)

	sentinel, err := service.Consolidate(context.Background(), "user-1")
	require.ErrorIs(t, err, apperrors.ErrNoActiveBrokers)
	assert.False(t, sentinel.Success)
	assert.Equal(t, []string{domain.BrokerZerodha}, sentinel.FailedBrokers)
}

func TestConsolidateInvalidUser(t *testing.T) {
	registry := newTestRegistry(t)
	service := newTestService(t, registry, nil, nil)

	_, err := service.Consolidate(context.Background(), "  ")
	assert.ErrorIs(t, err, apperrors.ErrInvalidUserID)
}

func TestFetchBrokerTimeoutFlag(t *testing.T) {
	registry := newTestRegistry(t)
	conn := seedConnection(t, registry, "user-1", domain.BrokerZerodha)

	stalled := &stubAdapter{id: domain.BrokerZerodha, delay: time.Second}
	service := newTestService(t, registry, nil, nil, stalled)

	res := service.fetchBroker(context.Background(), *conn)
	require.NotNil(t, res.failure)
	assert.True(t, res.failure.TimedOut)
	assert.Equal(t, domain.BrokerZerodha, res.failure.BrokerID)

	failed := &stubAdapter{id: domain.BrokerZerodha, err: errors.New("bad token")}
	service = newTestService(t, registry, nil, nil, failed)

	res = service.fetchBroker(context.Background(), *conn)
	require.NotNil(t, res.failure)
	assert.False(t, res.failure.TimedOut)
	assert.Contains(t, res.failure.Reason, "bad token")
}
