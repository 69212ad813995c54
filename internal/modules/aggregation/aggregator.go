// Package aggregation folds reconciled positions into portfolio-level totals:
// value, cost, P&L, day change, per-broker contribution, asset-class
// allocation, and consolidated cash balances.
package aggregation

import (
	"sort"

	"github.com/Rhymond/go-money"
	"github.com/rs/zerolog"

	"github.com/niveshio/panorama/internal/domain"
)

// Aggregator computes portfolio totals from priced, reconciled positions.
type Aggregator struct {
	log zerolog.Logger
}

// New creates an Aggregator.
func New(log zerolog.Logger) *Aggregator {
	return &Aggregator{
		log: log.With().Str("service", "aggregation").Logger(),
	}
}

// Aggregate builds the portfolio read model from reconciled positions and raw
// per-broker cash balances. Positions must already carry current prices
// (ApplyQuote) and asset classes. Identity fields (user, cycle, freshness)
// are the caller's responsibility.
//
// Every ratio is zero-guarded: a zero or negative divisor yields 0 rather
// than an error or infinity.
func (a *Aggregator) Aggregate(positions []domain.ReconciledPosition, cash []domain.RawCashBalance) *domain.ConsolidatedPortfolio {
	if positions == nil {
		positions = []domain.ReconciledPosition{}
	}

	var totalValue, totalCost, dayChange float64
	for _, p := range positions {
		totalValue += p.MarketValue
		totalCost += p.CostBasis
		dayChange += p.DayChange
	}

	pnl := totalValue - totalCost

	pnlPercent := 0.0
	if totalCost > 0 {
		pnlPercent = pnl / totalCost * 100
	}

	// Day change percent is measured against the start-of-day value.
	dayChangePct := 0.0
	if base := totalValue - dayChange; base > 0 {
		dayChangePct = dayChange / base * 100
	}

	portfolio := &domain.ConsolidatedPortfolio{
		Success:         true,
		TotalValue:      domain.RoundMoney(totalValue),
		TotalCost:       domain.RoundMoney(totalCost),
		UnrealizedPnL:   domain.RoundMoney(pnl),
		PnLPercent:      domain.RoundPercent(pnlPercent),
		DayChange:       domain.RoundMoney(dayChange),
		DayChangePct:    domain.RoundPercent(dayChangePct),
		Positions:       positions,
		BrokerBreakdown: a.brokerBreakdown(positions, totalValue),
		Allocation:      a.assetAllocation(positions, totalValue),
		Cash:            a.consolidateCash(cash),
	}

	return portfolio
}

// brokerBreakdown sums each broker's market value and P&L across positions.
// Order follows first appearance in the position list.
func (a *Aggregator) brokerBreakdown(positions []domain.ReconciledPosition, totalValue float64) []domain.BrokerContribution {
	totals := make(map[string]*domain.BrokerContribution)
	var order []string

	for _, p := range positions {
		for _, c := range p.Breakdown {
			entry, ok := totals[c.BrokerID]
			if !ok {
				entry = &domain.BrokerContribution{BrokerID: c.BrokerID}
				totals[c.BrokerID] = entry
				order = append(order, c.BrokerID)
			}
			entry.MarketValue += c.MarketValue
			entry.UnrealizedPnL += c.UnrealizedPnL
		}
	}

	breakdown := make([]domain.BrokerContribution, 0, len(order))
	for _, brokerID := range order {
		entry := totals[brokerID]
		entry.MarketValue = domain.RoundMoney(entry.MarketValue)
		entry.UnrealizedPnL = domain.RoundMoney(entry.UnrealizedPnL)
		if totalValue > 0 {
			entry.AllocationPercent = domain.RoundPercent(entry.MarketValue / totalValue * 100)
		}
		breakdown = append(breakdown, *entry)
	}

	return breakdown
}

// assetAllocation buckets position value by asset class. Positions without a
// class land in UNCLASSIFIED. Buckets are sorted by value descending, class
// ascending on ties, so the dominant bucket is always first.
func (a *Aggregator) assetAllocation(positions []domain.ReconciledPosition, totalValue float64) []domain.AssetAllocationBucket {
	buckets := make(map[domain.AssetClass]*domain.AssetAllocationBucket)

	for _, p := range positions {
		class := p.AssetClass
		if class == "" {
			class = domain.AssetClassUnclassified
		}

		b, ok := buckets[class]
		if !ok {
			b = &domain.AssetAllocationBucket{AssetClass: class}
			buckets[class] = b
		}
		b.Value += p.MarketValue
		b.PositionCount++
	}

	allocation := make([]domain.AssetAllocationBucket, 0, len(buckets))
	for _, b := range buckets {
		b.Value = domain.RoundMoney(b.Value)
		if totalValue > 0 {
			b.Percent = domain.RoundPercent(b.Value / totalValue * 100)
		}
		allocation = append(allocation, *b)
	}

	sort.Slice(allocation, func(i, j int) bool {
		if allocation[i].Value != allocation[j].Value {
			return allocation[i].Value > allocation[j].Value
		}
		return allocation[i].AssetClass < allocation[j].AssetClass
	})

	return allocation
}

// consolidateCash folds per-broker cash balances into one entry per currency.
// Amounts are added in minor units via go-money so float drift cannot leak
// into the totals. Output is sorted by currency code.
func (a *Aggregator) consolidateCash(cash []domain.RawCashBalance) []domain.CashBalance {
	type accumulator struct {
		total    *money.Money
		byBroker map[string]float64
	}

	totals := make(map[string]*accumulator)

	for _, c := range cash {
		if c.Currency == "" {
			a.log.Warn().Str("broker", c.BrokerID).Msg("Skipping cash balance without currency")
			continue
		}

		acc, ok := totals[c.Currency]
		if !ok {
			acc = &accumulator{
				total:    money.New(0, c.Currency),
				byBroker: make(map[string]float64),
			}
			totals[c.Currency] = acc
		}

		sum, err := acc.total.Add(money.NewFromFloat(c.Amount, c.Currency))
		if err != nil {
			a.log.Error().Err(err).
				Str("broker", c.BrokerID).
				Str("currency", c.Currency).
				Msg("Failed to add cash balance")
			continue
		}
		acc.total = sum
		acc.byBroker[c.BrokerID] += c.Amount
	}

	balances := make([]domain.CashBalance, 0, len(totals))
	for currency, acc := range totals {
		balances = append(balances, domain.CashBalance{
			Currency: currency,
			Amount:   acc.total.Amount(),
			Display:  acc.total.AsMajorUnits(),
			ByBroker: acc.byBroker,
		})
	}

	sort.Slice(balances, func(i, j int) bool {
		return balances[i].Currency < balances[j].Currency
	})

	return balances
}
