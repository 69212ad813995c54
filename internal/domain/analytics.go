package domain

// RiskTier classifies a position by the magnitude of its unrealized P&L%.
type RiskTier string

const (
	RiskMinimal RiskTier = "MINIMAL" // |P&L%| < 5
	RiskLow     RiskTier = "LOW"     // 5 <= |P&L%| < 10
	RiskMedium  RiskTier = "MEDIUM"  // 10 <= |P&L%| <= 25
	RiskHigh    RiskTier = "HIGH"    // |P&L%| > 25
)

// PerformerEntry is one position in a top/worst performers list.
type PerformerEntry struct {
	Symbol        string  `json:"symbol"`
	PnLPercent    float64 `json:"pnl_percent"`
	UnrealizedPnL float64 `json:"unrealized_pnl"`
	MarketValue   float64 `json:"market_value"`
}

// PositionRisk is the risk classification for one position.
type PositionRisk struct {
	Symbol     string   `json:"symbol"`
	PnLPercent float64  `json:"pnl_percent"`
	Tier       RiskTier `json:"tier"`
}

// PortfolioAnalytics is the derived summary statistics read model. Always
// computed from a ConsolidatedPortfolio, never independently persisted.
type PortfolioAnalytics struct {
	TotalPositions  int     `json:"total_positions"`
	TotalInvestment float64 `json:"total_investment"`
	TotalValue      float64 `json:"total_value"`
	UnrealizedPnL   float64 `json:"unrealized_pnl"`
	PnLPercent      float64 `json:"pnl_percent"`

	TopPerformers   []PerformerEntry `json:"top_performers"`
	WorstPerformers []PerformerEntry `json:"worst_performers"`

	// DiversificationScore is 1.0 for perfectly even allocation across
	// buckets and 0.0 for a single-bucket portfolio.
	DiversificationScore float64 `json:"diversification_score"`
	// ConcentrationIndex is the Herfindahl index over bucket weights
	// (1.0 = everything in one bucket).
	ConcentrationIndex float64    `json:"concentration_index"`
	DominantBucket     AssetClass `json:"dominant_bucket,omitempty"`
	DominanceFlagged   bool       `json:"dominance_flagged"`

	RiskTiers     []PositionRisk `json:"risk_tiers"`
	PnLDispersion float64        `json:"pnl_dispersion"` // Std dev of position P&L%
}
