package domain

import (
	"context"
	"time"
)

// Credentials holds the per-connection secrets a broker adapter needs.
// Brokers use different subsets: key+secret, bearer token, or both.
type Credentials struct {
	APIKey      string `json:"api_key,omitempty"`
	APISecret   string `json:"api_secret,omitempty"`
	AccessToken string `json:"access_token,omitempty"`
}

// BrokerAdapter fetches one broker's raw snapshot for one connection.
// Implementations own auth, rate limiting, and payload translation; the
// consolidation core only sees the raw-position contract plus success or
// failure within the caller's context deadline.
type BrokerAdapter interface {
	// BrokerID returns the stable broker identifier ("zerodha", "upstox", ...)
	BrokerID() string

	// FetchPositions returns the broker's current positions and cash
	// balances. It must honor ctx cancellation: a cancelled fetch returns
	// an error and its partial data is discarded by the caller.
	FetchPositions(ctx context.Context, creds Credentials) (*BrokerSnapshot, error)
}

// Quote is a market data lookup result for one canonical symbol.
type Quote struct {
	Symbol    string    `json:"symbol"`
	Price     float64   `json:"price"`
	PrevClose float64   `json:"prev_close"` // Zero when the source has no previous close
	AsOf      time.Time `json:"as_of"`
}

// MarketDataSource supplies the current price per canonical symbol as a
// synchronous lookup. ok=false signals a missing price (the position's
// value then falls back to cost basis); err signals the source itself
// failing.
type MarketDataSource interface {
	GetQuote(ctx context.Context, symbol string) (Quote, bool, error)
}

// AssetClassifier maps a canonical symbol to its asset class. This is an
// external lookup; the core never infers a class from symbol shape.
// Implementations return AssetClassUnclassified for unknown symbols.
type AssetClassifier interface {
	Classify(ctx context.Context, symbol string) (AssetClass, error)
}
