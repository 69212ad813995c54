package normalization

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/niveshio/panorama/internal/apperrors"
	"github.com/niveshio/panorama/internal/domain"
)

func TestNormalize(t *testing.T) {
	n := New(zerolog.Nop())

	testCases := []struct {
		name         string
		brokerID     string
		rawSymbol    string
		rawExchange  string
		wantSymbol   string
		wantExchange string
		wantFlag     bool
	}{
		{
			name:         "zerodha passthrough",
			brokerID:     "zerodha",
			rawSymbol:    "RELIANCE",
			rawExchange:  "NSE",
			wantSymbol:   "RELIANCE",
			wantExchange: "NSE",
			wantFlag:     true,
		},
		{
			name:         "zerodha trims and uppercases",
			brokerID:     "zerodha",
			rawSymbol:    "  reliance ",
			rawExchange:  "nse",
			wantSymbol:   "RELIANCE",
			wantExchange: "NSE",
			wantFlag:     true,
		},
		{
			name:         "angelone strips EQ suffix",
			brokerID:     "angelone",
			rawSymbol:    "RELIANCE-EQ",
			rawExchange:  "NSE_CM",
			wantSymbol:   "RELIANCE",
			wantExchange: "NSE",
			wantFlag:     true,
		},
		{
			name:         "angelone strips BE suffix",
			brokerID:     "angelone",
			rawSymbol:    "IDEA-BE",
			rawExchange:  "NSE",
			wantSymbol:   "IDEA",
			wantExchange: "NSE",
			wantFlag:     true,
		},
		{
			name:         "angelone leaves plain symbol alone",
			brokerID:     "angelone",
			rawSymbol:    "RELIANCE",
			rawExchange:  "NSE",
			wantSymbol:   "RELIANCE",
			wantExchange: "NSE",
			wantFlag:     true,
		},
		{
			name:         "upstox resolves composite instrument key",
			brokerID:     "upstox",
			rawSymbol:    "NSE_EQ|INE002A01018",
			rawExchange:  "",
			wantSymbol:   "RELIANCE",
			wantExchange: "NSE",
			wantFlag:     true,
		},
		{
			name:         "upstox plain symbol maps segment exchange",
			brokerID:     "upstox",
			rawSymbol:    "TCS",
			rawExchange:  "NSE_EQ",
			wantSymbol:   "TCS",
			wantExchange: "NSE",
			wantFlag:     true,
		},
		{
			name:         "upstox unknown ISIN passes through unresolved",
			brokerID:     "upstox",
			rawSymbol:    "NSE_EQ|INE000UNKNOWN",
			rawExchange:  "",
			wantSymbol:   "NSE_EQ|INE000UNKNOWN",
			wantExchange: "",
			wantFlag:     false,
		},
		{
			name:         "groww strips exchange prefix",
			brokerID:     "groww",
			rawSymbol:    "NSE:RELIANCE",
			rawExchange:  "",
			wantSymbol:   "RELIANCE",
			wantExchange: "NSE",
			wantFlag:     true,
		},
		{
			name:         "groww prefix wins over reported exchange",
			brokerID:     "groww",
			rawSymbol:    "BSE:SBIN",
			rawExchange:  "NSE",
			wantSymbol:   "SBIN",
			wantExchange: "BSE",
			wantFlag:     true,
		},
		{
			name:         "unknown broker passes through unflagged",
			brokerID:     "robinhood",
			rawSymbol:    "aapl",
			rawExchange:  "nasdaq",
			wantSymbol:   "AAPL",
			wantExchange: "NASDAQ",
			wantFlag:     false,
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := n.Normalize(tc.brokerID, tc.rawSymbol, tc.rawExchange)
			require.NoError(t, err)
			assert.Equal(t, tc.wantSymbol, got.Symbol)
			assert.Equal(t, tc.wantExchange, got.Exchange)
			assert.Equal(t, tc.wantFlag, got.WasNormalized)
		})
	}
}

func TestNormalizeEmptySymbol(t *testing.T) {
	n := New(zerolog.Nop())

	_, err := n.Normalize("zerodha", "   ", "NSE")
	require.Error(t, err)
	assert.ErrorIs(t, err, apperrors.ErrEmptySymbol)
}

func TestNormalizeIsIdempotent(t *testing.T) {
	n := New(zerolog.Nop())

	inputs := []struct {
		brokerID string
		symbol   string
		exchange string
	}{
		{"zerodha", "RELIANCE", "NSE"},
		{"angelone", "RELIANCE-EQ", "NSE_CM"},
		{"upstox", "NSE_EQ|INE467B01029", ""},
		{"groww", "NSE:INFY", ""},
	}

	for _, in := range inputs {
		first, err := n.Normalize(in.brokerID, in.symbol, in.exchange)
		require.NoError(t, err)

		second, err := n.Normalize(in.brokerID, first.Symbol, first.Exchange)
		require.NoError(t, err)

		assert.Equal(t, first.Symbol, second.Symbol, "broker %s symbol %s", in.brokerID, in.symbol)
		assert.Equal(t, first.Exchange, second.Exchange, "broker %s symbol %s", in.brokerID, in.symbol)
	}
}

func TestRegisterInstruments(t *testing.T) {
	n := New(zerolog.Nop())
	n.RegisterInstruments(map[string]string{"ine123456789": "newco"})

	got, err := n.Normalize("upstox", "NSE_EQ|INE123456789", "")
	require.NoError(t, err)
	assert.Equal(t, "NEWCO", got.Symbol)
	assert.True(t, got.WasNormalized)
}

func TestNormalizePosition(t *testing.T) {
	n := New(zerolog.Nop())

	t.Run("long position keeps positive quantity", func(t *testing.T) {
		pos, err := n.NormalizePosition(domain.RawBrokerPosition{
			BrokerID:    "angelone",
			RawSymbol:   "RELIANCE-EQ",
			RawExchange: "NSE",
			Quantity:    10,
			AvgPrice:    2800,
			Side:        domain.SideLong,
		})
		require.NoError(t, err)
		assert.Equal(t, "RELIANCE", pos.Symbol)
		assert.Equal(t, 10.0, pos.Quantity)
		assert.Equal(t, domain.SideLong, pos.Side)
		assert.True(t, pos.WasNormalized)
	})

	t.Run("short position gets negative quantity", func(t *testing.T) {
		pos, err := n.NormalizePosition(domain.RawBrokerPosition{
			BrokerID:    "zerodha",
			RawSymbol:   "INFY",
			RawExchange: "NSE",
			Quantity:    5,
			AvgPrice:    1500,
			Side:        domain.SideShort,
		})
		require.NoError(t, err)
		assert.Equal(t, -5.0, pos.Quantity)
		assert.Equal(t, domain.SideShort, pos.Side)
	})

	t.Run("missing side defaults to long", func(t *testing.T) {
		pos, err := n.NormalizePosition(domain.RawBrokerPosition{
			BrokerID:  "zerodha",
			RawSymbol: "SBIN",
			Quantity:  3,
		})
		require.NoError(t, err)
		assert.Equal(t, domain.SideLong, pos.Side)
		assert.Equal(t, 3.0, pos.Quantity)
	})

	t.Run("empty symbol returns validation error", func(t *testing.T) {
		_, err := n.NormalizePosition(domain.RawBrokerPosition{
			BrokerID:  "groww",
			RawSymbol: "",
			Quantity:  1,
		})
		assert.ErrorIs(t, err, apperrors.ErrEmptySymbol)
	})
}
