package upstox

import (
	"fmt"

	"github.com/niveshio/panorama/internal/clients"
	"github.com/niveshio/panorama/internal/domain"
)

// transformHoldings converts an Upstox holdings envelope into raw positions.
// The instrument token ("NSE_EQ|INE002A01018") is preferred as the raw
// symbol; older payloads without one fall back to the plain trading symbol.
func transformHoldings(payload map[string]interface{}) ([]domain.RawBrokerPosition, error) {
	data := clients.GetSlice(payload, "data")
	if data == nil {
		return nil, fmt.Errorf("invalid holdings response: missing 'data' array")
	}

	positions := make([]domain.RawBrokerPosition, 0, len(data))
	for _, item := range data {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}

		symbol := clients.GetString(m, "instrument_token")
		if symbol == "" {
			symbol = clients.GetString(m, "trading_symbol")
		}
		if symbol == "" {
			symbol = clients.GetString(m, "tradingsymbol")
		}

		quantity := clients.GetFloat64(m, "quantity")
		side := domain.SideLong
		if quantity < 0 {
			side = domain.SideShort
			quantity = -quantity
		}

		positions = append(positions, domain.RawBrokerPosition{
			BrokerID:    domain.BrokerUpstox,
			RawSymbol:   symbol,
			RawExchange: clients.GetString(m, "exchange"),
			Quantity:    quantity,
			AvgPrice:    clients.GetFloat64(m, "average_price"),
			LastPrice:   clients.GetFloat64(m, "last_price"),
			ReportedPnL: clients.GetFloat64(m, "pnl"),
			Side:        side,
		})
	}

	return positions, nil
}

// transformFunds extracts the equity segment's available margin as cash.
func transformFunds(payload map[string]interface{}) []domain.RawCashBalance {
	data := clients.GetMap(payload, "data")
	equity := clients.GetMap(data, "equity")
	if equity == nil {
		return nil
	}

	return []domain.RawCashBalance{{
		BrokerID: domain.BrokerUpstox,
		Currency: domain.CurrencyINR,
		Amount:   clients.GetFloat64(equity, "available_margin"),
	}}
}
