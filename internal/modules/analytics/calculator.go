// Package analytics derives summary statistics from a consolidated portfolio:
// top and worst performers, diversification and concentration over asset
// buckets, per-position risk tiers, and P&L dispersion.
package analytics

import (
	"math"
	"sort"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"github.com/niveshio/panorama/internal/domain"
)

// Defaults applied when the configured values are out of range.
const (
	DefaultPerformerCount     = 5
	DefaultDominanceThreshold = 60.0 // Percent of total value in one bucket
)

// Calculator computes portfolio analytics.
type Calculator struct {
	performerCount     int
	dominanceThreshold float64
	log                zerolog.Logger
}

// New creates a Calculator. Out-of-range arguments fall back to defaults.
func New(performerCount int, dominanceThreshold float64, log zerolog.Logger) *Calculator {
	if performerCount <= 0 {
		performerCount = DefaultPerformerCount
	}
	if dominanceThreshold <= 0 || dominanceThreshold > 100 {
		dominanceThreshold = DefaultDominanceThreshold
	}
	return &Calculator{
		performerCount:     performerCount,
		dominanceThreshold: dominanceThreshold,
		log:                log.With().Str("service", "analytics").Logger(),
	}
}

// Analyze derives analytics from a consolidated portfolio. The input is never
// mutated; an empty portfolio produces zeroed analytics, not an error.
func (c *Calculator) Analyze(p *domain.ConsolidatedPortfolio) *domain.PortfolioAnalytics {
	a := &domain.PortfolioAnalytics{
		TotalPositions:  len(p.Positions),
		TotalInvestment: p.TotalCost,
		TotalValue:      p.TotalValue,
		UnrealizedPnL:   p.UnrealizedPnL,
		PnLPercent:      p.PnLPercent,
		TopPerformers:   []domain.PerformerEntry{},
		WorstPerformers: []domain.PerformerEntry{},
		RiskTiers:       []domain.PositionRisk{},
	}

	if len(p.Positions) > 0 {
		a.TopPerformers = c.performers(p.Positions, true)
		a.WorstPerformers = c.performers(p.Positions, false)
		a.RiskTiers = riskTiers(p.Positions)
		a.PnLDispersion = dispersion(p.Positions)
	}

	a.DiversificationScore, a.ConcentrationIndex = bucketScores(p.Allocation)
	a.DominantBucket, a.DominanceFlagged = c.dominance(p.Allocation, p.TotalValue)

	return a
}

// performers returns the best (desc=true) or worst (desc=false) positions by
// P&L percent. Ties break by absolute P&L descending, then symbol ascending,
// so the ordering is total and stable across cycles.
func (c *Calculator) performers(positions []domain.ReconciledPosition, desc bool) []domain.PerformerEntry {
	entries := make([]domain.PerformerEntry, 0, len(positions))
	for _, p := range positions {
		entries = append(entries, domain.PerformerEntry{
			Symbol:        p.Symbol,
			PnLPercent:    p.PnLPercent,
			UnrealizedPnL: p.UnrealizedPnL,
			MarketValue:   p.MarketValue,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].PnLPercent != entries[j].PnLPercent {
			if desc {
				return entries[i].PnLPercent > entries[j].PnLPercent
			}
			return entries[i].PnLPercent < entries[j].PnLPercent
		}
		absI, absJ := math.Abs(entries[i].UnrealizedPnL), math.Abs(entries[j].UnrealizedPnL)
		if absI != absJ {
			return absI > absJ
		}
		return entries[i].Symbol < entries[j].Symbol
	})

	if len(entries) > c.performerCount {
		entries = entries[:c.performerCount]
	}
	return entries
}

// riskTiers classifies every position by the magnitude of its P&L percent.
func riskTiers(positions []domain.ReconciledPosition) []domain.PositionRisk {
	tiers := make([]domain.PositionRisk, 0, len(positions))
	for _, p := range positions {
		tiers = append(tiers, domain.PositionRisk{
			Symbol:     p.Symbol,
			PnLPercent: p.PnLPercent,
			Tier:       riskTier(p.PnLPercent),
		})
	}
	return tiers
}

// riskTier bands |P&L%|: <5 MINIMAL, <10 LOW, <=25 MEDIUM, above HIGH.
func riskTier(pnlPercent float64) domain.RiskTier {
	abs := math.Abs(pnlPercent)
	switch {
	case abs < 5:
		return domain.RiskMinimal
	case abs < 10:
		return domain.RiskLow
	case abs <= 25:
		return domain.RiskMedium
	default:
		return domain.RiskHigh
	}
}

// dispersion is the population standard deviation of position P&L percents.
func dispersion(positions []domain.ReconciledPosition) float64 {
	if len(positions) < 2 {
		return 0
	}
	pnls := make([]float64, len(positions))
	for i, p := range positions {
		pnls[i] = p.PnLPercent
	}
	return domain.RoundPercent(stat.PopStdDev(pnls, nil))
}

// bucketScores computes the normalized Shannon entropy (0 = one bucket,
// 1 = perfectly even) and the Herfindahl concentration index over asset
// bucket weights. Weights use absolute values so a net-short bucket cannot
// produce a negative probability.
func bucketScores(allocation []domain.AssetAllocationBucket) (float64, float64) {
	var total float64
	for _, b := range allocation {
		total += math.Abs(b.Value)
	}
	if total <= 0 {
		return 0, 0
	}

	weights := make([]float64, 0, len(allocation))
	var herfindahl float64
	for _, b := range allocation {
		w := math.Abs(b.Value) / total
		if w > 0 {
			weights = append(weights, w)
		}
		herfindahl += w * w
	}

	if len(weights) < 2 {
		return 0, domain.RoundPercent(herfindahl)
	}

	entropy := stat.Entropy(weights)
	normalized := entropy / math.Log(float64(len(weights)))

	return domain.RoundPercent(normalized), domain.RoundPercent(herfindahl)
}

// dominance returns the largest bucket and whether its share of total value
// crosses the configured threshold.
func (c *Calculator) dominance(allocation []domain.AssetAllocationBucket, totalValue float64) (domain.AssetClass, bool) {
	if len(allocation) == 0 || totalValue <= 0 {
		return "", false
	}

	dominant := allocation[0]
	for _, b := range allocation[1:] {
		if math.Abs(b.Value) > math.Abs(dominant.Value) {
			dominant = b
		}
	}

	share := math.Abs(dominant.Value) / totalValue * 100
	return dominant.AssetClass, share > c.dominanceThreshold
}
