package zerodha

import (
	"fmt"

	"github.com/niveshio/panorama/internal/clients"
	"github.com/niveshio/panorama/internal/domain"
)

// transformHoldings converts a Kite holdings envelope into raw positions.
// Kite reports holdings with unsigned quantities; a negative quantity
// (short delivery) is carried as a SHORT side with the magnitude.
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

		quantity := clients.GetFloat64(m, "quantity")
		side := domain.SideLong
		if quantity < 0 {
			side = domain.SideShort
			quantity = -quantity
		}

		positions = append(positions, domain.RawBrokerPosition{
			BrokerID:    domain.BrokerZerodha,
			RawSymbol:   clients.GetString(m, "tradingsymbol"),
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

// transformMargins extracts the equity segment's available cash from a
// Kite margins envelope. A missing segment yields no balances rather
// than an error.
func transformMargins(payload map[string]interface{}) []domain.RawCashBalance {
	data := clients.GetMap(payload, "data")
	equity := clients.GetMap(data, "equity")
	available := clients.GetMap(equity, "available")
	if available == nil {
		return nil
	}

	return []domain.RawCashBalance{{
		BrokerID: domain.BrokerZerodha,
		Currency: domain.CurrencyINR,
		Amount:   clients.GetFloat64(available, "cash"),
	}}
}
