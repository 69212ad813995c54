// Package domain provides core domain models and types.
package domain

import "time"

// PositionSide represents the direction of a held position
type PositionSide string

const (
	// SideLong contributes positive quantity to a merged position
	SideLong PositionSide = "LONG"
	// SideShort contributes negative quantity to a merged position
	SideShort PositionSide = "SHORT"
)

// Sign returns +1 for long positions and -1 for short positions
func (s PositionSide) Sign() float64 {
	if s == SideShort {
		return -1
	}
	return 1
}

// RawBrokerPosition is one position exactly as one broker reported it,
// before symbol/exchange canonicalization. Created per fetch cycle,
// immutable, discarded after normalization.
type RawBrokerPosition struct {
	BrokerID    string       `json:"broker_id"`    // Source broker identifier
	RawSymbol   string       `json:"raw_symbol"`   // Symbol in the broker's own convention
	RawExchange string       `json:"raw_exchange"` // Exchange code in the broker's own convention
	Quantity    float64      `json:"quantity"`     // Unsigned held quantity
	AvgPrice    float64      `json:"avg_price"`    // Broker-reported average purchase price
	LastPrice   float64      `json:"last_price"`   // Broker-reported last traded price (metadata only)
	ReportedPnL float64      `json:"reported_pnl"` // Broker-reported unrealized P&L (metadata only)
	Side        PositionSide `json:"side"`         // LONG or SHORT
}

// RawCashBalance is a cash balance as one broker reported it.
type RawCashBalance struct {
	BrokerID string  `json:"broker_id"`
	Currency string  `json:"currency"` // ISO currency code (INR, USD, ...)
	Amount   float64 `json:"amount"`
}

// NormalizedPosition is a RawBrokerPosition after canonicalization.
// Quantity is signed here: long positive, short negative.
type NormalizedPosition struct {
	Symbol        string       `json:"symbol"`         // Canonical symbol (grouping key)
	Exchange      string       `json:"exchange"`       // Canonical exchange (metadata, not a grouping key)
	BrokerID      string       `json:"broker_id"`      // Source broker identifier
	Quantity      float64      `json:"quantity"`       // Signed quantity
	AvgPrice      float64      `json:"avg_price"`      // Broker-reported average purchase price
	LastPrice     float64      `json:"last_price"`     // Broker-reported last traded price (metadata only)
	Side          PositionSide `json:"side"`           // Original side, kept for transparency
	WasNormalized bool         `json:"was_normalized"` // False when the input passed through unmapped
}

// BrokerSnapshot is everything one broker adapter returns for one fetch.
type BrokerSnapshot struct {
	BrokerID  string              `json:"broker_id"`
	Positions []RawBrokerPosition `json:"positions"`
	Cash      []RawCashBalance    `json:"cash"`
	FetchedAt time.Time           `json:"fetched_at"`
}

// BrokerFailure records one broker's fetch failure within a cycle.
// Failures are recovered locally: the cycle proceeds without that broker.
type BrokerFailure struct {
	BrokerID string `json:"broker_id"`
	TimedOut bool   `json:"timed_out"`
	Reason   string `json:"reason"`
}
