// Package reconciliation merges normalized positions from multiple brokers
// into one position per canonical symbol, preserving a per-broker breakdown.
package reconciliation

import (
	"math"
	"time"

	"github.com/rs/zerolog"

	"github.com/niveshio/panorama/internal/domain"
)

// Reconciler groups normalized positions by canonical symbol.
type Reconciler struct {
	log zerolog.Logger
}

// New creates a Reconciler.
func New(log zerolog.Logger) *Reconciler {
	return &Reconciler{
		log: log.With().Str("service", "reconciliation").Logger(),
	}
}

// brokerAccumulator collects one broker's records for one symbol before the
// contribution is finalized.
type brokerAccumulator struct {
	brokerID  string
	signedQty float64
	costNum   float64 // Σ |qty_i| × avg_i
	costDen   float64 // Σ |qty_i|
	lastPrice float64
}

// symbolGroup accumulates everything reported for one canonical symbol.
type symbolGroup struct {
	symbol     string
	exchange   string
	brokers    []*brokerAccumulator
	brokerIdx  map[string]*brokerAccumulator
	normalized bool
}

// Reconcile merges positions across brokers. Output order is the order in
// which each symbol first appeared in the input. Quantities are signed
// (long positive, short negative); the weighted-average price uses unsigned
// quantities. Zero-quantity records are skipped entirely.
//
// Price-dependent fields (market value, P&L, day change) are zero until
// ApplyQuote runs; the caller resolves prices first.
func (r *Reconciler) Reconcile(positions []domain.NormalizedPosition) []domain.ReconciledPosition {
	groups := make(map[string]*symbolGroup)
	var order []string

	for _, pos := range positions {
		if pos.Quantity == 0 {
			r.log.Debug().
				Str("symbol", pos.Symbol).
				Str("broker", pos.BrokerID).
				Msg("Skipping zero-quantity record")
			continue
		}

		g, ok := groups[pos.Symbol]
		if !ok {
			g = &symbolGroup{
				symbol:     pos.Symbol,
				brokerIdx:  make(map[string]*brokerAccumulator),
				normalized: true,
			}
			groups[pos.Symbol] = g
			order = append(order, pos.Symbol)
		}

		if g.exchange == "" {
			g.exchange = pos.Exchange
		}
		if !pos.WasNormalized {
			g.normalized = false
		}

		acc, ok := g.brokerIdx[pos.BrokerID]
		if !ok {
			acc = &brokerAccumulator{brokerID: pos.BrokerID}
			g.brokerIdx[pos.BrokerID] = acc
			g.brokers = append(g.brokers, acc)
		}

		unsigned := math.Abs(pos.Quantity)
		acc.signedQty += pos.Quantity
		acc.costNum += unsigned * pos.AvgPrice
		acc.costDen += unsigned
		if pos.LastPrice > 0 {
			acc.lastPrice = pos.LastPrice
		}
	}

	reconciled := make([]domain.ReconciledPosition, 0, len(order))
	for _, symbol := range order {
		reconciled = append(reconciled, r.finalizeGroup(groups[symbol]))
	}

	return reconciled
}

// finalizeGroup turns an accumulated symbol group into a ReconciledPosition.
func (r *Reconciler) finalizeGroup(g *symbolGroup) domain.ReconciledPosition {
	var totalQty, costNum, costDen float64
	breakdown := make([]domain.BrokerContribution, 0, len(g.brokers))

	for _, acc := range g.brokers {
		totalQty += acc.signedQty
		costNum += acc.costNum
		costDen += acc.costDen

		side := domain.SideLong
		if acc.signedQty < 0 {
			side = domain.SideShort
		}

		avg := 0.0
		if acc.costDen > 0 {
			avg = acc.costNum / acc.costDen
		}

		breakdown = append(breakdown, domain.BrokerContribution{
			BrokerID: acc.brokerID,
			Quantity: math.Abs(acc.signedQty),
			Side:     side,
			AvgPrice: domain.RoundMoney(avg),
		})
	}

	weightedAvg := 0.0
	if costDen > 0 {
		weightedAvg = costNum / costDen
	}

	return domain.ReconciledPosition{
		Symbol:        g.symbol,
		Exchange:      g.exchange,
		Quantity:      totalQty,
		AvgPrice:      domain.RoundMoney(weightedAvg),
		WasNormalized: g.normalized,
		Breakdown:     breakdown,
	}
}

// ApplyQuote completes the price-dependent fields of a reconciled position.
// Day change only applies to market prices with a known previous close; a
// cost-basis fallback price contributes nothing to day change.
func ApplyQuote(p *domain.ReconciledPosition, price, prevClose float64, source domain.PriceSource, asOf time.Time) {
	p.CurrentPrice = price
	p.PriceSource = source
	p.PriceAsOf = asOf

	p.MarketValue = domain.RoundMoney(price * p.Quantity)
	p.CostBasis = domain.RoundMoney(p.AvgPrice * p.Quantity)
	p.UnrealizedPnL = domain.RoundMoney(p.MarketValue - p.CostBasis)

	if cost := math.Abs(p.CostBasis); cost > 0 {
		p.PnLPercent = domain.RoundPercent(p.UnrealizedPnL / cost * 100)
	} else {
		p.PnLPercent = 0
	}

	if source == domain.PriceSourceMarket && prevClose > 0 {
		p.DayChange = domain.RoundMoney((price - prevClose) * p.Quantity)
	} else {
		p.DayChange = 0
	}

	positionValue := math.Abs(p.MarketValue)
	for i := range p.Breakdown {
		c := &p.Breakdown[i]
		signedQty := c.Quantity * c.Side.Sign()
		c.MarketValue = domain.RoundMoney(price * signedQty)
		c.UnrealizedPnL = domain.RoundMoney((price - c.AvgPrice) * signedQty)
		if positionValue > 0 {
			c.AllocationPercent = domain.RoundPercent(math.Abs(c.MarketValue) / positionValue * 100)
		} else {
			c.AllocationPercent = 0
		}
	}
}
