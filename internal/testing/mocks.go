package testing

import (
	"context"
	"sync"
	"time"

	"github.com/niveshio/panorama/internal/domain"
)

// MockBrokerAdapter is a mock implementation of domain.BrokerAdapter for testing.
// It serves a configurable snapshot, an error, or stalls for a configurable
// delay before answering (to exercise per-broker timeouts).
type MockBrokerAdapter struct {
	mu        sync.RWMutex
	brokerID  string
	positions []domain.RawBrokerPosition
	cash      []domain.RawCashBalance
	delay     time.Duration
	err       error
	fetches   int
}

// NewMockBrokerAdapter creates a new mock broker adapter for the given broker.
func NewMockBrokerAdapter(brokerID string) *MockBrokerAdapter {
	return &MockBrokerAdapter{brokerID: brokerID}
}

// SetSnapshot sets the positions and cash balances to return.
func (m *MockBrokerAdapter) SetSnapshot(positions []domain.RawBrokerPosition, cash []domain.RawCashBalance) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.positions = positions
	m.cash = cash
}

// SetError sets the error to return from FetchPositions.
func (m *MockBrokerAdapter) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// SetDelay makes FetchPositions wait before answering. A delay longer than
// the caller's deadline turns the fetch into a timeout.
func (m *MockBrokerAdapter) SetDelay(delay time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.delay = delay
}

// FetchCount returns how many times FetchPositions was called.
func (m *MockBrokerAdapter) FetchCount() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.fetches
}

// BrokerID returns the broker identifier this mock was created with.
func (m *MockBrokerAdapter) BrokerID() string {
	return m.brokerID
}

// FetchPositions returns the configured snapshot, honoring the configured
// delay and the context deadline.
func (m *MockBrokerAdapter) FetchPositions(ctx context.Context, _ domain.Credentials) (*domain.BrokerSnapshot, error) {
	m.mu.Lock()
	m.fetches++
	positions := m.positions
	cash := m.cash
	delay := m.delay
	err := m.err
	m.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if err != nil {
		return nil, err
	}

	return &domain.BrokerSnapshot{
		BrokerID:  m.brokerID,
		Positions: positions,
		Cash:      cash,
		FetchedAt: time.Now().UTC(),
	}, nil
}

// MockMarketDataSource is a mock implementation of domain.MarketDataSource for testing.
// Symbols without a configured quote report ok=false, which callers treat as
// a cost-basis fallback.
type MockMarketDataSource struct {
	mu     sync.RWMutex
	quotes map[string]domain.Quote
	err    error
}

// NewMockMarketDataSource creates a new mock market data source.
func NewMockMarketDataSource() *MockMarketDataSource {
	return &MockMarketDataSource{quotes: make(map[string]domain.Quote)}
}

// SetQuote sets the quote to return for a symbol.
func (m *MockMarketDataSource) SetQuote(symbol string, quote domain.Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes[symbol] = quote
}

// SetQuotes replaces all configured quotes.
func (m *MockMarketDataSource) SetQuotes(quotes map[string]domain.Quote) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.quotes = make(map[string]domain.Quote, len(quotes))
	for symbol, quote := range quotes {
		m.quotes[symbol] = quote
	}
}

// SetError sets the error to return from GetQuote.
func (m *MockMarketDataSource) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// GetQuote returns the configured quote for the symbol.
func (m *MockMarketDataSource) GetQuote(_ context.Context, symbol string) (domain.Quote, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return domain.Quote{}, false, m.err
	}
	quote, ok := m.quotes[symbol]
	return quote, ok, nil
}

// MockAssetClassifier is a mock implementation of domain.AssetClassifier for testing.
// Symbols without a configured class report AssetClassUnclassified.
type MockAssetClassifier struct {
	mu      sync.RWMutex
	classes map[string]domain.AssetClass
	err     error
}

// NewMockAssetClassifier creates a new mock asset classifier.
func NewMockAssetClassifier() *MockAssetClassifier {
	return &MockAssetClassifier{classes: make(map[string]domain.AssetClass)}
}

// SetClass sets the asset class to return for a symbol.
func (m *MockAssetClassifier) SetClass(symbol string, class domain.AssetClass) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classes[symbol] = class
}

// SetClasses replaces all configured classes.
func (m *MockAssetClassifier) SetClasses(classes map[string]domain.AssetClass) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.classes = make(map[string]domain.AssetClass, len(classes))
	for symbol, class := range classes {
		m.classes[symbol] = class
	}
}

// SetError sets the error to return from Classify.
func (m *MockAssetClassifier) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Classify returns the configured class for the symbol.
func (m *MockAssetClassifier) Classify(_ context.Context, symbol string) (domain.AssetClass, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.err != nil {
		return domain.AssetClassUnclassified, m.err
	}
	if class, ok := m.classes[symbol]; ok {
		return class, nil
	}
	return domain.AssetClassUnclassified, nil
}
