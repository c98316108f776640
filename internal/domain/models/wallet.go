package models

import "github.com/shopspring/decimal"

type Chain string

const (
	ChainBTC Chain = "BTC"
	ChainETH Chain = "ETH"
)

// ChainFor returns the chain whose balances can be looked up for a coin symbol.
func ChainFor(symbol string) (Chain, bool) {
	switch Chain(symbol) {
	case ChainBTC:
		return ChainBTC, true
	case ChainETH:
		return ChainETH, true
	}
	return "", false
}

// WalletBalance is an address balance in the chain's native unit (BTC or ETH).
type WalletBalance struct {
	Chain   Chain           `json:"chain"`
	Address string          `json:"address"`
	Balance decimal.Decimal `json:"balance"`
}
