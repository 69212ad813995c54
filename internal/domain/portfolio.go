package domain

import "time"

// PriceSource records where a reconciled position's current price came from.
type PriceSource string

const (
	// PriceSourceMarket means the market data lookup returned a quote
	PriceSourceMarket PriceSource = "market"
	// PriceSourceCostBasis means no quote was available and the position's
	// value falls back to its weighted-average cost (P&L reads as zero)
	PriceSourceCostBasis PriceSource = "cost_basis"
)

// AssetClass is the classification bucket assigned to an instrument by the
// external classification service. Never derived from symbol shape.
type AssetClass string

const (
	AssetClassEquity       AssetClass = "EQUITY"
	AssetClassETF          AssetClass = "ETF"
	AssetClassMutualFund   AssetClass = "MUTUAL_FUND"
	AssetClassBond         AssetClass = "BOND"
	AssetClassCommodity    AssetClass = "COMMODITY"
	AssetClassUnclassified AssetClass = "UNCLASSIFIED"
)

// FreshnessTier classifies how old a data source is. Tiers are ordered:
// a higher rank is worse (older).
type FreshnessTier string

const (
	FreshnessRealTime FreshnessTier = "REAL_TIME" // [0, 1m)
	FreshnessFresh    FreshnessTier = "FRESH"     // [1m, 5m)
	FreshnessRecent   FreshnessTier = "RECENT"    // [5m, 15m)
	FreshnessStale    FreshnessTier = "STALE"     // [15m, 60m)
	FreshnessOld      FreshnessTier = "OLD"       // [60m, ∞)
)

var tierRanks = map[FreshnessTier]int{
	FreshnessRealTime: 0,
	FreshnessFresh:    1,
	FreshnessRecent:   2,
	FreshnessStale:    3,
	FreshnessOld:      4,
}

// Rank returns the tier's position in the ordering (0 = freshest).
// Unknown tiers rank as OLD so a bug can never make data look fresher.
func (t FreshnessTier) Rank() int {
	if r, ok := tierRanks[t]; ok {
		return r
	}
	return tierRanks[FreshnessOld]
}

// WorseOf returns the worse (older) of two tiers.
func WorseOf(a, b FreshnessTier) FreshnessTier {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// BrokerContribution is one broker's share of a reconciled position or of
// the whole portfolio. Quantity is unsigned with the side kept alongside so
// a netted long+short merge stays auditable per broker.
type BrokerContribution struct {
	BrokerID          string       `json:"broker_id"`
	Quantity          float64      `json:"quantity"`
	Side              PositionSide `json:"side"`
	AvgPrice          float64      `json:"avg_price"`
	MarketValue       float64      `json:"market_value"`
	UnrealizedPnL     float64      `json:"unrealized_pnl"` // Against this broker's own avg price
	AllocationPercent float64      `json:"allocation_percent"`
}

// ReconciledPosition merges all of one canonical symbol's positions across
// brokers. Invariant: the signed sum of breakdown quantities equals Quantity.
type ReconciledPosition struct {
	Symbol        string               `json:"symbol"`
	Exchange      string               `json:"exchange"` // First-seen canonical exchange (metadata)
	Quantity      float64              `json:"quantity"` // Signed total across brokers
	AvgPrice      float64              `json:"avg_price"` // Quantity-weighted across brokers
	CurrentPrice  float64              `json:"current_price"`
	PriceSource   PriceSource          `json:"price_source"`
	PriceAsOf     time.Time            `json:"price_as_of,omitempty"`
	MarketValue   float64              `json:"market_value"`
	CostBasis     float64              `json:"cost_basis"`
	UnrealizedPnL float64              `json:"unrealized_pnl"`
	PnLPercent    float64              `json:"pnl_percent"`
	DayChange     float64              `json:"day_change"`
	AssetClass    AssetClass           `json:"asset_class"`
	WasNormalized bool                 `json:"was_normalized"` // False when any source row passed through unmapped
	Breakdown     []BrokerContribution `json:"breakdown"`
}

// AssetAllocationBucket groups portfolio value by asset class.
type AssetAllocationBucket struct {
	AssetClass    AssetClass `json:"asset_class"`
	Value         float64    `json:"value"`
	Percent       float64    `json:"percent"`
	PositionCount int        `json:"position_count"`
}

// CashBalance is the consolidated cash for one currency across brokers.
// Amount is in minor units (paise, cents) for exact addition.
type CashBalance struct {
	Currency string             `json:"currency"`
	Amount   int64              `json:"amount_minor"` // Minor units
	Display  float64            `json:"amount"`       // Major units, rounded for presentation
	ByBroker map[string]float64 `json:"by_broker"`
}

// BrokerSyncStatus reports one broker feed's freshness within a portfolio.
type BrokerSyncStatus struct {
	BrokerID     string        `json:"broker_id"`
	LastSyncedAt time.Time     `json:"last_synced_at"`
	Tier         FreshnessTier `json:"tier"`
	Failed       bool          `json:"failed"` // True when this cycle's fetch failed
}

// ConsolidatedPortfolio is the whole-portfolio read model for one user.
// Produced once per consolidation cycle and replaced wholesale by the next
// cycle; never mutated in place.
type ConsolidatedPortfolio struct {
	Success       bool          `json:"success"`
	Error         string        `json:"error,omitempty"`
	CycleID       string        `json:"cycle_id"`
	UserID        string        `json:"user_id"`
	TotalValue    float64       `json:"total_value"`
	TotalCost     float64       `json:"total_cost"`
	UnrealizedPnL float64       `json:"unrealized_pnl"`
	PnLPercent    float64       `json:"pnl_percent"`
	DayChange     float64       `json:"day_change"`
	DayChangePct  float64       `json:"day_change_percent"`
	Freshness     FreshnessTier `json:"freshness"`
	StaleData     bool          `json:"stale_data"`

	Positions       []ReconciledPosition    `json:"positions"`
	BrokerBreakdown []BrokerContribution    `json:"broker_breakdown"`
	Allocation      []AssetAllocationBucket `json:"allocation"`
	Cash            []CashBalance           `json:"cash"`
	BrokerStatus    []BrokerSyncStatus      `json:"broker_status"`
	FailedBrokers   []string                `json:"failed_brokers,omitempty"`
	DroppedRecords  int                     `json:"dropped_records"`

	GeneratedAt time.Time `json:"generated_at"`
}

// EmptyPortfolio builds the sentinel portfolio returned when no broker is
// reachable or none is connected. It carries success=false and a message
// instead of surfacing an exception to the caller.
func EmptyPortfolio(userID, message string) *ConsolidatedPortfolio {
	return &ConsolidatedPortfolio{
		Success:         false,
		Error:           message,
		UserID:          userID,
		Freshness:       FreshnessOld,
		Positions:       []ReconciledPosition{},
		BrokerBreakdown: []BrokerContribution{},
		Allocation:      []AssetAllocationBucket{},
		Cash:            []CashBalance{},
		BrokerStatus:    []BrokerSyncStatus{},
		GeneratedAt:     time.Now().UTC(),
	}
}
