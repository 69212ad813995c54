package aggregation

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niveshio/panorama/internal/domain"
)

// pricedPosition builds a reconciled position the way the pipeline would:
// market value, cost basis and P&L already derived from the price.
func pricedPosition(symbol string, qty, avg, price float64, class domain.AssetClass, brokers ...domain.BrokerContribution) domain.ReconciledPosition {
	mv := price * qty
	cb := avg * qty
	return domain.ReconciledPosition{
		Symbol:        symbol,
		Exchange:      domain.ExchangeNSE,
		Quantity:      qty,
		AvgPrice:      avg,
		CurrentPrice:  price,
		PriceSource:   domain.PriceSourceMarket,
		MarketValue:   mv,
		CostBasis:     cb,
		UnrealizedPnL: mv - cb,
		AssetClass:    class,
		Breakdown:     brokers,
	}
}

func TestAggregateTotals(t *testing.T) {
	a := New(zerolog.Nop())

	p1 := pricedPosition("RELIANCE", 10, 100, 120, domain.AssetClassEquity)
	p1.DayChange = 50
	p2 := pricedPosition("NIFTYBEES", 20, 200, 190, domain.AssetClassETF)
	p2.DayChange = -20

	got := a.Aggregate([]domain.ReconciledPosition{p1, p2}, nil)

	assert.True(t, got.Success)
	assert.InDelta(t, 5000.0, got.TotalValue, 0.01)   // 1200 + 3800
	assert.InDelta(t, 5000.0, got.TotalCost, 0.01)    // 1000 + 4000
	assert.InDelta(t, 0.0, got.UnrealizedPnL, 0.01)   // +200 − 200
	assert.InDelta(t, 0.0, got.PnLPercent, 0.0001)
	assert.InDelta(t, 30.0, got.DayChange, 0.01)
	// 30 / (5000 − 30) × 100
	assert.InDelta(t, 0.6036, got.DayChangePct, 0.001)
}

func TestAggregateZeroCostGuard(t *testing.T) {
	a := New(zerolog.Nop())

	got := a.Aggregate(nil, nil)

	assert.Equal(t, 0.0, got.TotalValue)
	assert.Equal(t, 0.0, got.PnLPercent, "empty portfolio must not divide by zero")
	assert.Equal(t, 0.0, got.DayChangePct)
	assert.Empty(t, got.Positions)
	assert.Empty(t, got.BrokerBreakdown)
	assert.Empty(t, got.Allocation)
}

func TestAggregateDayChangeGuard(t *testing.T) {
	a := New(zerolog.Nop())

	// Day change exceeding total value would make the denominator negative.
	p := pricedPosition("CRASH", 10, 100, 5, domain.AssetClassEquity)
	p.DayChange = 100

	got := a.Aggregate([]domain.ReconciledPosition{p}, nil)
	assert.Equal(t, 0.0, got.DayChangePct)
}

func TestAggregateBrokerBreakdown(t *testing.T) {
	a := New(zerolog.Nop())

	p1 := pricedPosition("RELIANCE", 15, 110, 120, domain.AssetClassEquity,
		domain.BrokerContribution{BrokerID: "zerodha", Quantity: 10, Side: domain.SideLong, AvgPrice: 100, MarketValue: 1200, UnrealizedPnL: 200},
		domain.BrokerContribution{BrokerID: "upstox", Quantity: 5, Side: domain.SideLong, AvgPrice: 130, MarketValue: 600, UnrealizedPnL: -50},
	)
	p2 := pricedPosition("TCS", 2, 3000, 3100, domain.AssetClassEquity,
		domain.BrokerContribution{BrokerID: "zerodha", Quantity: 2, Side: domain.SideLong, AvgPrice: 3000, MarketValue: 6200, UnrealizedPnL: 200},
	)

	got := a.Aggregate([]domain.ReconciledPosition{p1, p2}, nil)

	require.Len(t, got.BrokerBreakdown, 2)
	zerodha := got.BrokerBreakdown[0]
	upstox := got.BrokerBreakdown[1]

	assert.Equal(t, "zerodha", zerodha.BrokerID)
	assert.InDelta(t, 7400.0, zerodha.MarketValue, 0.01)
	assert.InDelta(t, 400.0, zerodha.UnrealizedPnL, 0.01)

	assert.Equal(t, "upstox", upstox.BrokerID)
	assert.InDelta(t, 600.0, upstox.MarketValue, 0.01)

	// Allocation percentages close to 100.
	sum := zerodha.AllocationPercent + upstox.AllocationPercent
	assert.InDelta(t, 100.0, sum, 0.1)
}

func TestAggregateAssetAllocation(t *testing.T) {
	a := New(zerolog.Nop())

	positions := []domain.ReconciledPosition{
		pricedPosition("RELIANCE", 10, 100, 100, domain.AssetClassEquity),
		pricedPosition("TCS", 1, 3000, 3000, domain.AssetClassEquity),
		pricedPosition("NIFTYBEES", 10, 100, 100, domain.AssetClassETF),
		pricedPosition("MYSTERY", 10, 100, 100, ""),
	}

	got := a.Aggregate(positions, nil)

	require.Len(t, got.Allocation, 3)

	// Sorted by value descending: EQUITY 4000, then ETF and UNCLASSIFIED at 1000 each.
	assert.Equal(t, domain.AssetClassEquity, got.Allocation[0].AssetClass)
	assert.InDelta(t, 4000.0, got.Allocation[0].Value, 0.01)
	assert.Equal(t, 2, got.Allocation[0].PositionCount)

	assert.Equal(t, domain.AssetClassETF, got.Allocation[1].AssetClass)
	assert.Equal(t, domain.AssetClassUnclassified, got.Allocation[2].AssetClass)

	// Percentages sum to 100 within rounding tolerance.
	var sum float64
	for _, b := range got.Allocation {
		sum += b.Percent
	}
	assert.InDelta(t, 100.0, sum, 0.1)
}

func TestConsolidateCash(t *testing.T) {
	a := New(zerolog.Nop())

	cash := []domain.RawCashBalance{
		{BrokerID: "zerodha", Currency: "INR", Amount: 1000.50},
		{BrokerID: "upstox", Currency: "INR", Amount: 249.50},
		{BrokerID: "zerodha", Currency: "USD", Amount: 10.25},
	}

	got := a.Aggregate(nil, cash)

	require.Len(t, got.Cash, 2)

	inr := got.Cash[0]
	usd := got.Cash[1]

	assert.Equal(t, "INR", inr.Currency)
	assert.Equal(t, int64(125000), inr.Amount, "minor units must add exactly")
	assert.InDelta(t, 1250.0, inr.Display, 0.001)
	assert.InDelta(t, 1000.50, inr.ByBroker["zerodha"], 0.001)
	assert.InDelta(t, 249.50, inr.ByBroker["upstox"], 0.001)

	assert.Equal(t, "USD", usd.Currency)
	assert.Equal(t, int64(1025), usd.Amount)
}

func TestConsolidateCashSkipsMissingCurrency(t *testing.T) {
	a := New(zerolog.Nop())

	got := a.Aggregate(nil, []domain.RawCashBalance{
		{BrokerID: "groww", Currency: "", Amount: 42},
	})

	assert.Empty(t, got.Cash)
}
