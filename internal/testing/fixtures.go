package testing

import (
	"time"

	"github.com/niveshio/panorama/internal/domain"
)

// NewRawPositionFixtures returns positions the way two brokers would report
// them. Both brokers hold RELIANCE (under their own symbol and exchange
// conventions) so reconciliation has something to merge, plus one distinct
// holding each.
func NewRawPositionFixtures() []domain.RawBrokerPosition {
	return []domain.RawBrokerPosition{
		{
			BrokerID:    "zerodha",
			RawSymbol:   "RELIANCE",
			RawExchange: "NSE",
			Quantity:    10,
			AvgPrice:    2450.0,
			LastPrice:   2520.0,
			ReportedPnL: 700.0, // (2520 - 2450) * 10
			Side:        domain.SideLong,
		},
		{
			BrokerID:    "zerodha",
			RawSymbol:   "TCS",
			RawExchange: "NSE",
			Quantity:    4,
			AvgPrice:    3800.0,
			LastPrice:   3910.0,
			ReportedPnL: 440.0, // (3910 - 3800) * 4
			Side:        domain.SideLong,
		},
		{
			BrokerID:    "upstox",
			RawSymbol:   "NSE_EQ|INE002A01018", // RELIANCE instrument key
			RawExchange: "NSE",
			Quantity:    5,
			AvgPrice:    2500.0,
			LastPrice:   2518.0,
			ReportedPnL: 90.0, // (2518 - 2500) * 5
			Side:        domain.SideLong,
		},
		{
			BrokerID:    "upstox",
			RawSymbol:   "NSE_EQ|INE009A01021", // INFY instrument key
			RawExchange: "NSE",
			Quantity:    12,
			AvgPrice:    1450.0,
			LastPrice:   1480.0,
			ReportedPnL: 360.0, // (1480 - 1450) * 12
			Side:        domain.SideLong,
		},
	}
}

// NewCashBalanceFixtures returns cash balances matching the brokers in
// NewRawPositionFixtures.
func NewCashBalanceFixtures() []domain.RawCashBalance {
	return []domain.RawCashBalance{
		{BrokerID: "zerodha", Currency: "INR", Amount: 15000.50},
		{BrokerID: "upstox", Currency: "INR", Amount: 8200.00},
	}
}

// NewBrokerSnapshotFixture assembles one broker's snapshot from the fixture
// positions and cash balances, keeping only that broker's rows.
func NewBrokerSnapshotFixture(brokerID string) *domain.BrokerSnapshot {
	snapshot := &domain.BrokerSnapshot{
		BrokerID:  brokerID,
		FetchedAt: time.Now().UTC(),
	}
	for _, pos := range NewRawPositionFixtures() {
		if pos.BrokerID == brokerID {
			snapshot.Positions = append(snapshot.Positions, pos)
		}
	}
	for _, cash := range NewCashBalanceFixtures() {
		if cash.BrokerID == brokerID {
			snapshot.Cash = append(snapshot.Cash, cash)
		}
	}
	return snapshot
}

// NewQuoteFixtures returns market quotes for every canonical symbol the raw
// position fixtures normalize to.
func NewQuoteFixtures() map[string]domain.Quote {
	now := time.Now().UTC()
	return map[string]domain.Quote{
		"RELIANCE": {Symbol: "RELIANCE", Price: 2520.50, PrevClose: 2480.00, AsOf: now},
		"TCS":      {Symbol: "TCS", Price: 3910.00, PrevClose: 3885.00, AsOf: now},
		"INFY":     {Symbol: "INFY", Price: 1502.40, PrevClose: 1510.00, AsOf: now},
	}
}

// NewAssetClassFixtures returns asset classes for the fixture symbols.
func NewAssetClassFixtures() map[string]domain.AssetClass {
	return map[string]domain.AssetClass{
		"RELIANCE": domain.AssetClassEquity,
		"TCS":      domain.AssetClassEquity,
		"INFY":     domain.AssetClassEquity,
	}
}
