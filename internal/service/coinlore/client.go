package coinlore

import (
	"context"
	"strconv"

	"CoinDash/internal/domain/models"
	domsvc "CoinDash/internal/domain/service"
	"CoinDash/internal/service/provider"
	"CoinDash/pkg/util"
)

// Client reads the public CoinLore API. No key is required.
type Client struct {
	base *provider.Base
}

func New(cfg provider.Config, opts ...provider.Option) *Client {
	return &Client{base: provider.NewBase("coinlore", cfg, opts...)}
}

type ticker struct {
	ID               provider.FlexString `json:"id"`
	Symbol           string              `json:"symbol"`
	Name             string              `json:"name"`
	Rank             provider.FlexString `json:"rank"`
	PriceUSD         provider.FlexString `json:"price_usd"`
	PercentChange24h provider.FlexString `json:"percent_change_24h"`
}

type tickersResponse struct {
	Data []ticker `json:"data"`
}

type globalResponse []struct {
	TotalMcap   provider.FlexString `json:"total_mcap"`
	TotalVolume provider.FlexString `json:"total_volume"`
}

// Tickers returns coins ordered by rank. limit <= 0 uses the provider default page.
func (c *Client) Tickers(ctx context.Context, limit int) ([]models.CoinQuote, error) {
	query := map[string][]string{"start": {"0"}}
	if limit > 0 {
		query["limit"] = []string{strconv.Itoa(limit)}
	}

	var resp tickersResponse
	if err := c.base.GetJSON(ctx, "tickers", "/tickers/", query, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, c.base.Errorf("tickers", provider.ErrEmpty)
	}

	quotes := make([]models.CoinQuote, 0, len(resp.Data))
	for _, t := range resp.Data {
		pct := util.ParseFloatDefault(t.PercentChange24h.String(), 0)
		quotes = append(quotes, models.CoinQuote{
			ID:               t.ID.String(),
			Name:             t.Name,
			Symbol:           util.NormalizeSymbol(t.Symbol),
			Rank:             util.ParseIntDefault(t.Rank.String(), 0),
			PriceUSD:         t.PriceUSD.Decimal(),
			PercentChange24h: pct,
			Direction:        models.Classify(pct),
		})
	}
	return quotes, nil
}

// Global returns total market cap and 24h volume. Breadth fields are left for the caller.
func (c *Client) Global(ctx context.Context) (models.GlobalStats, error) {
	var resp globalResponse
	if err := c.base.GetJSON(ctx, "global", "/global/", nil, &resp); err != nil {
		return models.GlobalStats{}, err
	}
	if len(resp) == 0 {
		return models.GlobalStats{}, c.base.Errorf("global", provider.ErrEmpty)
	}
	return models.GlobalStats{
		TotalMarketCapUSD: resp[0].TotalMcap.Decimal(),
		TotalVolumeUSD:    resp[0].TotalVolume.Decimal(),
	}, nil
}

var _ domsvc.MarketLister = (*Client)(nil)
