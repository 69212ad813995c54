// Package normalization maps broker-specific symbol and exchange representations
// to canonical (symbol, exchange) pairs. Every rule is a pure lookup; the same
// input always produces the same output, and canonical input comes back unchanged.
package normalization

import (
	"fmt"
	"math"
	"strings"

	"github.com/rs/zerolog"

	"github.com/niveshio/panorama/internal/apperrors"
	"github.com/niveshio/panorama/internal/domain"
)

// Result is the canonical form of one broker symbol.
type Result struct {
	Symbol        string
	Exchange      string
	WasNormalized bool
}

// ruleFunc applies one broker's mapping rules to a trimmed, uppercased input.
type ruleFunc func(symbol, exchange string) Result

// Normalizer canonicalizes raw broker symbols. Safe for concurrent use after
// construction; RegisterInstruments must not race with Normalize.
type Normalizer struct {
	rules       map[string]ruleFunc
	instruments map[string]string // ISIN -> canonical symbol
	log         zerolog.Logger
}

// New creates a Normalizer with the built-in per-broker rule tables and the
// default instrument table.
func New(log zerolog.Logger) *Normalizer {
	n := &Normalizer{
		instruments: make(map[string]string, len(defaultInstruments)),
		log:         log.With().Str("service", "normalization").Logger(),
	}
	for isin, symbol := range defaultInstruments {
		n.instruments[isin] = symbol
	}
	n.rules = map[string]ruleFunc{
		domain.BrokerZerodha:  n.normalizeZerodha,
		domain.BrokerUpstox:   n.normalizeUpstox,
		domain.BrokerAngelOne: n.normalizeAngelOne,
		domain.BrokerGroww:    n.normalizeGroww,
	}
	return n
}

// RegisterInstruments adds ISIN-to-symbol mappings, e.g. from a broker's
// instrument master download. Existing entries are overwritten.
func (n *Normalizer) RegisterInstruments(instruments map[string]string) {
	for isin, symbol := range instruments {
		n.instruments[strings.ToUpper(strings.TrimSpace(isin))] = strings.ToUpper(strings.TrimSpace(symbol))
	}
}

// Normalize maps one broker's raw symbol and exchange to canonical form.
// Unknown brokers and unmappable inputs pass through uppercased and trimmed
// with WasNormalized=false. An empty symbol after trimming is a validation
// error; callers decide whether to drop the record.
func (n *Normalizer) Normalize(brokerID, rawSymbol, rawExchange string) (Result, error) {
	symbol := strings.ToUpper(strings.TrimSpace(rawSymbol))
	exchange := strings.ToUpper(strings.TrimSpace(rawExchange))

	if symbol == "" {
		return Result{}, fmt.Errorf("broker %s: %w", brokerID, apperrors.ErrEmptySymbol)
	}

	rule, ok := n.rules[strings.ToLower(strings.TrimSpace(brokerID))]
	if !ok {
		return Result{Symbol: symbol, Exchange: exchange, WasNormalized: false}, nil
	}

	return rule(symbol, exchange), nil
}

// NormalizePosition canonicalizes one raw broker position. Adapters report
// unsigned quantities; the side carries direction, so the normalized quantity
// is signed here.
func (n *Normalizer) NormalizePosition(raw domain.RawBrokerPosition) (domain.NormalizedPosition, error) {
	res, err := n.Normalize(raw.BrokerID, raw.RawSymbol, raw.RawExchange)
	if err != nil {
		return domain.NormalizedPosition{}, err
	}

	side := raw.Side
	if side != domain.SideShort {
		side = domain.SideLong
	}

	return domain.NormalizedPosition{
		Symbol:        res.Symbol,
		Exchange:      res.Exchange,
		BrokerID:      raw.BrokerID,
		Quantity:      side.Sign() * math.Abs(raw.Quantity),
		AvgPrice:      raw.AvgPrice,
		LastPrice:     raw.LastPrice,
		Side:          side,
		WasNormalized: res.WasNormalized,
	}, nil
}

// normalizeZerodha passes symbols through unchanged. Zerodha already reports
// plain tradingsymbols; only the exchange code needs mapping.
func (n *Normalizer) normalizeZerodha(symbol, exchange string) Result {
	return Result{
		Symbol:        symbol,
		Exchange:      mapExchange(zerodhaExchanges, exchange),
		WasNormalized: true,
	}
}

// normalizeUpstox resolves "SEGMENT|ISIN" composite instrument keys via the
// instrument table. A composite whose ISIN is unknown passes through unresolved.
func (n *Normalizer) normalizeUpstox(symbol, exchange string) Result {
	segment, isin, isComposite := strings.Cut(symbol, "|")
	if !isComposite {
		// Plain tradingsymbol, nothing to resolve.
		return Result{
			Symbol:        symbol,
			Exchange:      mapExchange(upstoxExchanges, exchange),
			WasNormalized: true,
		}
	}

	canonical, ok := n.instruments[strings.TrimSpace(isin)]
	if !ok {
		n.log.Debug().
			Str("broker", domain.BrokerUpstox).
			Str("instrument_key", symbol).
			Msg("ISIN not in instrument table, passing through")
		return Result{Symbol: symbol, Exchange: exchange, WasNormalized: false}
	}

	// The segment is more reliable than the separately reported exchange.
	mapped, known := upstoxExchanges[strings.TrimSpace(segment)]
	if !known {
		mapped = mapExchange(upstoxExchanges, exchange)
	}

	return Result{Symbol: canonical, Exchange: mapped, WasNormalized: true}
}

// normalizeAngelOne strips NSE series suffixes such as "-EQ" from the symbol.
func (n *Normalizer) normalizeAngelOne(symbol, exchange string) Result {
	for _, suffix := range seriesSuffixes {
		if trimmed, found := strings.CutSuffix(symbol, suffix); found && trimmed != "" {
			symbol = trimmed
			break
		}
	}
	return Result{
		Symbol:        symbol,
		Exchange:      mapExchange(angelOneExchanges, exchange),
		WasNormalized: true,
	}
}

// normalizeGroww strips an embedded "EXCHANGE:" prefix. When the prefix names
// a known exchange it wins over the separately reported exchange field.
func (n *Normalizer) normalizeGroww(symbol, exchange string) Result {
	if prefix, rest, found := strings.Cut(symbol, ":"); found && rest != "" {
		if canonical, ok := growwExchanges[prefix]; ok {
			return Result{Symbol: rest, Exchange: canonical, WasNormalized: true}
		}
	}
	return Result{
		Symbol:        symbol,
		Exchange:      mapExchange(growwExchanges, exchange),
		WasNormalized: true,
	}
}

// mapExchange looks up a raw exchange code, falling back to the input when
// the table has no entry.
func mapExchange(table map[string]string, exchange string) string {
	if canonical, ok := table[exchange]; ok {
		return canonical
	}
	return exchange
}
