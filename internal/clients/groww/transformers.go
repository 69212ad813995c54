package groww

import (
	"fmt"

	"github.com/niveshio/panorama/internal/clients"
	"github.com/niveshio/panorama/internal/domain"
)

// transformHoldings converts a Groww holdings envelope into raw positions.
// Trading symbols may arrive exchange-prefixed ("NSE:RELIANCE"); downstream
// normalization strips the prefix.
func transformHoldings(payload map[string]interface{}) ([]domain.RawBrokerPosition, error) {
	body := clients.GetMap(payload, "payload")
	if body == nil {
		return nil, fmt.Errorf("invalid holdings response: missing 'payload' object")
	}

	holdings := clients.GetSlice(body, "holdings")
	positions := make([]domain.RawBrokerPosition, 0, len(holdings))
	for _, item := range holdings {
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
			BrokerID:    domain.BrokerGroww,
			RawSymbol:   clients.GetString(m, "trading_symbol"),
			RawExchange: clients.GetString(m, "exchange"),
			Quantity:    quantity,
			AvgPrice:    clients.GetFloat64(m, "average_price"),
			LastPrice:   clients.GetFloat64(m, "ltp"),
			ReportedPnL: clients.GetFloat64(m, "pnl"),
			Side:        side,
		})
	}

	return positions, nil
}

// transformMargins extracts clear cash from a margin detail envelope.
func transformMargins(payload map[string]interface{}) []domain.RawCashBalance {
	body := clients.GetMap(payload, "payload")
	if body == nil {
		return nil
	}

	return []domain.RawCashBalance{{
		BrokerID: domain.BrokerGroww,
		Currency: domain.CurrencyINR,
		Amount:   clients.GetFloat64(body, "clear_cash"),
	}}
}
