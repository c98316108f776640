package etherscan

import (
	"context"
	"fmt"
	"strings"

	"CoinDash/internal/domain/models"
	domsvc "CoinDash/internal/domain/service"
	"CoinDash/internal/service/provider"

	"github.com/shopspring/decimal"
)

// weiExp converts wei to ETH.
const weiExp = -18

// Client reads ETH balances from the Etherscan account API.
type Client struct {
	base   *provider.Base
	apiKey string
}

func New(cfg provider.Config, opts ...provider.Option) *Client {
	return &Client{
		base:   provider.NewBase("etherscan", cfg, opts...),
		apiKey: cfg.APIKey,
	}
}

type balanceResponse struct {
	Status  string `json:"status"`
	Message string `json:"message"`
	Result  string `json:"result"`
}

func (c *Client) Chain() models.Chain {
	return models.ChainETH
}

// Balance returns the latest balance of address in ETH.
func (c *Client) Balance(ctx context.Context, address string) (models.WalletBalance, error) {
	if c.apiKey == "" {
		return models.WalletBalance{}, c.base.Observe("balance", provider.ErrNotConfigured)
	}
	address = strings.TrimSpace(address)
	if address == "" {
		return models.WalletBalance{}, c.base.Errorf("balance", fmt.Errorf("address is required"))
	}

	query := map[string][]string{
		"module":  {"account"},
		"action":  {"balance"},
		"address": {address},
		"tag":     {"latest"},
		"apikey":  {c.apiKey},
	}
	var resp balanceResponse
	if err := c.base.GetJSON(ctx, "balance", "/api", query, &resp); err != nil {
		return models.WalletBalance{}, err
	}
	if resp.Status != "1" {
		return models.WalletBalance{}, c.base.Errorf("balance", fmt.Errorf("%s: %s", resp.Message, resp.Result))
	}

	wei, err := decimal.NewFromString(resp.Result)
	if err != nil {
		return models.WalletBalance{}, c.base.Errorf("balance", fmt.Errorf("parse wei %q: %w", resp.Result, err))
	}

	return models.WalletBalance{
		Chain:   models.ChainETH,
		Address: address,
		Balance: wei.Shift(weiExp),
	}, nil
}

var _ domsvc.BalanceProvider = (*Client)(nil)
