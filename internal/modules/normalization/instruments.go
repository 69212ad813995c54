package normalization

import "github.com/niveshio/panorama/internal/domain"

// Per-broker exchange code tables. Keys are the codes each broker reports,
// values are canonical exchange codes.

var zerodhaExchanges = map[string]string{
	"NSE": domain.ExchangeNSE,
	"BSE": domain.ExchangeBSE,
}

var upstoxExchanges = map[string]string{
	"NSE_EQ": domain.ExchangeNSE,
	"BSE_EQ": domain.ExchangeBSE,
	"NSE_FO": domain.ExchangeNSE,
	"BSE_FO": domain.ExchangeBSE,
	"NSE":    domain.ExchangeNSE,
	"BSE":    domain.ExchangeBSE,
}

var angelOneExchanges = map[string]string{
	"NSE_CM": domain.ExchangeNSE,
	"BSE_CM": domain.ExchangeBSE,
	"NSE":    domain.ExchangeNSE,
	"BSE":    domain.ExchangeBSE,
}

var growwExchanges = map[string]string{
	"NSE": domain.ExchangeNSE,
	"BSE": domain.ExchangeBSE,
}

// seriesSuffixes are NSE series markers some brokers embed in the symbol.
// Order matters only in that longer suffixes would need to come first; all
// current entries are the same length.
var seriesSuffixes = []string{"-EQ", "-BE", "-BZ", "-SM", "-ST", "-GS"}

// defaultInstruments seeds the ISIN-to-symbol table with liquid NSE names so
// composite instrument keys resolve without an instrument master download.
// Brokers that expose their instrument master extend this via RegisterInstruments.
var defaultInstruments = map[string]string{
	"INE002A01018": "RELIANCE",
	"INE467B01029": "TCS",
	"INE009A01021": "INFY",
	"INE040A01034": "HDFCBANK",
	"INE090A01021": "ICICIBANK",
	"INE062A01020": "SBIN",
	"INE154A01025": "ITC",
	"INE030A01027": "HINDUNILVR",
	"INE397D01024": "BHARTIARTL",
	"INE018A01030": "LT",
	"INE237A01028": "KOTAKBANK",
	"INE238A01034": "AXISBANK",
	"INE075A01022": "WIPRO",
	"INE021A01026": "ASIANPAINT",
	"INE585B01010": "MARUTI",
	"INE155A01022": "TATAMOTORS",
	"INE081A01020": "TATASTEEL",
	"INE296A01024": "BAJFINANCE",
	"INE860A01027": "HCLTECH",
	"INF204KB14I2": "NIFTYBEES",
}
