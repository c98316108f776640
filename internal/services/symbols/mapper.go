package symbols

import (
	domsvc "CoinDash/internal/domain/service"
	"CoinDash/pkg/util"
)

// DefaultQuote is appended to symbols without an override.
const DefaultQuote = "USDT"

// defaultOverrides covers tickers whose exchange pair differs from SYMBOL+quote.
var defaultOverrides = map[string]string{
	"IOTA":  "IOTAUSDT",
	"MIOTA": "IOTAUSDT",
	"BCH":   "BCHUSDT",
	"USDC":  "USDCUSDT",
}

// Mapper maps coin tickers to exchange trading pairs. It is total: every input yields a
// pair, even one the exchange does not list.
type Mapper struct {
	quote     string
	overrides map[string]string
}

// New builds a mapper. extra overrides are merged over the built-in table; keys are
// case-insensitive.
func New(quote string, extra map[string]string) *Mapper {
	quote = util.NormalizeSymbol(quote)
	if quote == "" {
		quote = DefaultQuote
	}
	m := &Mapper{
		quote:     quote,
		overrides: make(map[string]string, len(defaultOverrides)+len(extra)),
	}
	for k, v := range defaultOverrides {
		m.overrides[k] = v
	}
	for k, v := range extra {
		m.overrides[util.NormalizeSymbol(k)] = util.NormalizeSymbol(v)
	}
	return m
}

func (m *Mapper) Pair(symbol string) string {
	s := util.NormalizeSymbol(symbol)
	if p, ok := m.overrides[s]; ok {
		return p
	}
	return s + m.quote
}

var _ domsvc.SymbolMapper = (*Mapper)(nil)
