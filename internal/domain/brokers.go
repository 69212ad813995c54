package domain

// Supported broker identifiers. These are the values stored in
// broker_connections.broker_id and carried on every position record.
const (
	BrokerZerodha  = "zerodha"
	BrokerUpstox   = "upstox"
	BrokerAngelOne = "angelone"
	BrokerGroww    = "groww"
)

// SupportedBrokers returns the broker ids this service can fetch from,
// in a stable order.
func SupportedBrokers() []string {
	return []string{BrokerZerodha, BrokerUpstox, BrokerAngelOne, BrokerGroww}
}

// IsSupportedBroker reports whether the given id has a registered adapter.
func IsSupportedBroker(id string) bool {
	switch id {
	case BrokerZerodha, BrokerUpstox, BrokerAngelOne, BrokerGroww:
		return true
	}
	return false
}

// Canonical exchange codes used after normalization.
const (
	ExchangeNSE = "NSE"
	ExchangeBSE = "BSE"
)

// CurrencyINR is the settlement currency all supported brokers report in.
const CurrencyINR = "INR"
