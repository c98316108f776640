package mempool

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"CoinDash/internal/domain/models"
	domsvc "CoinDash/internal/domain/service"
	"CoinDash/internal/service/provider"

	"github.com/shopspring/decimal"
)

// satsExp converts satoshis to BTC.
const satsExp = -8

// Client reads BTC address statistics from a mempool.space compatible API.
type Client struct {
	base *provider.Base
}

func New(cfg provider.Config, opts ...provider.Option) *Client {
	return &Client{base: provider.NewBase("mempool", cfg, opts...)}
}

type addressResponse struct {
	Address    string `json:"address"`
	ChainStats struct {
		FundedTxoSum int64 `json:"funded_txo_sum"`
		SpentTxoSum  int64 `json:"spent_txo_sum"`
		TxCount      int64 `json:"tx_count"`
	} `json:"chain_stats"`
}

func (c *Client) Chain() models.Chain {
	return models.ChainBTC
}

// Balance returns the confirmed balance (funded minus spent outputs) in BTC.
func (c *Client) Balance(ctx context.Context, address string) (models.WalletBalance, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return models.WalletBalance{}, c.base.Errorf("balance", fmt.Errorf("address is required"))
	}

	var resp addressResponse
	if err := c.base.GetJSON(ctx, "balance", "/api/address/"+url.PathEscape(address), nil, &resp); err != nil {
		return models.WalletBalance{}, err
	}

	sats := resp.ChainStats.FundedTxoSum - resp.ChainStats.SpentTxoSum
	return models.WalletBalance{
		Chain:   models.ChainBTC,
		Address: address,
		Balance: decimal.New(sats, satsExp),
	}, nil
}

var _ domsvc.BalanceProvider = (*Client)(nil)
