package coinmarketcap

import (
	"context"

	"CoinDash/internal/domain/models"
	domsvc "CoinDash/internal/domain/service"
	"CoinDash/internal/service/provider"
	"CoinDash/pkg/util"
)

// Client reads the CoinMarketCap Pro API. Every call needs an API key.
type Client struct {
	base       *provider.Base
	configured bool
}

func New(cfg provider.Config, opts ...provider.Option) *Client {
	opts = append([]provider.Option{provider.WithHeader("X-CMC_PRO_API_KEY", cfg.APIKey)}, opts...)
	return &Client{
		base:       provider.NewBase("coinmarketcap", cfg, opts...),
		configured: cfg.APIKey != "",
	}
}

type globalMetricsResponse struct {
	Data struct {
		BTCDominance *float64 `json:"btc_dominance"`
	} `json:"data"`
}

type postsResponse struct {
	Data []struct {
		Title string `json:"title"`
	} `json:"data"`
}

// Dominance returns BTC dominance. A missing figure is ErrUnavailable.
func (c *Client) Dominance(ctx context.Context) (models.Dominance, error) {
	if !c.configured {
		return models.Dominance{}, c.base.Observe("dominance", provider.ErrNotConfigured)
	}

	var resp globalMetricsResponse
	if err := c.base.GetJSON(ctx, "dominance", "/v1/global-metrics/quotes/latest", nil, &resp); err != nil {
		return models.Dominance{}, err
	}
	if resp.Data.BTCDominance == nil {
		return models.Dominance{}, c.base.Errorf("dominance", provider.ErrUnavailable)
	}
	return models.Dominance{BTCPercent: *resp.Data.BTCDominance}, nil
}

func (c *Client) Source() models.NewsSource {
	return models.NewsCoinMarketCap
}

// Headlines returns the latest post titles about symbol, at most limit.
func (c *Client) Headlines(ctx context.Context, symbol string, limit int) ([]string, error) {
	if !c.configured {
		return nil, c.base.Observe("news", provider.ErrNotConfigured)
	}

	query := map[string][]string{"symbol": {util.NormalizeSymbol(symbol)}}
	var resp postsResponse
	if err := c.base.GetJSON(ctx, "news", "/v1/content/posts/latest", query, &resp); err != nil {
		return nil, err
	}
	if len(resp.Data) == 0 {
		return nil, c.base.Errorf("news", provider.ErrEmpty)
	}

	n := len(resp.Data)
	if limit > 0 && n > limit {
		n = limit
	}
	titles := make([]string, 0, n)
	for _, p := range resp.Data[:n] {
		title := p.Title
		if title == "" {
			title = models.NoTitle
		}
		titles = append(titles, title)
	}
	return titles, nil
}

var (
	_ domsvc.DominanceProvider = (*Client)(nil)
	_ domsvc.NewsProvider      = (*Client)(nil)
)
