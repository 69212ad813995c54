package angelone

import (
	"fmt"

	"github.com/niveshio/panorama/internal/clients"
	"github.com/niveshio/panorama/internal/domain"
)

// transformHoldings converts a SmartAPI getHolding envelope into raw
// positions. Symbols keep their series suffix ("RELIANCE-EQ"); downstream
// normalization strips it.
func transformHoldings(payload map[string]interface{}) ([]domain.RawBrokerPosition, error) {
	data := clients.GetSlice(payload, "data")
	if data == nil {
		// SmartAPI returns "data": null for empty accounts.
		if _, present := payload["data"]; present {
			return []domain.RawBrokerPosition{}, nil
		}
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
			BrokerID:    domain.BrokerAngelOne,
			RawSymbol:   clients.GetString(m, "tradingsymbol"),
			RawExchange: clients.GetString(m, "exchange"),
			Quantity:    quantity,
			AvgPrice:    clients.GetFloat64(m, "averageprice"),
			LastPrice:   clients.GetFloat64(m, "ltp"),
			ReportedPnL: clients.GetFloat64(m, "profitandloss"),
			Side:        side,
		})
	}

	return positions, nil
}

// transformFunds extracts available cash from a getRMS envelope.
func transformFunds(payload map[string]interface{}) []domain.RawCashBalance {
	data := clients.GetMap(payload, "data")
	if data == nil {
		return nil
	}

	return []domain.RawCashBalance{{
		BrokerID: domain.BrokerAngelOne,
		Currency: domain.CurrencyINR,
		Amount:   clients.GetFloat64(data, "availablecash"),
	}}
}
