package cryptopanic

import (
	"context"

	"CoinDash/internal/domain/models"
	domsvc "CoinDash/internal/domain/service"
	"CoinDash/internal/service/provider"
	"CoinDash/pkg/util"
)

// Client reads public posts from the CryptoPanic API.
type Client struct {
	base  *provider.Base
	token string
}

func New(cfg provider.Config, opts ...provider.Option) *Client {
	return &Client{
		base:  provider.NewBase("cryptopanic", cfg, opts...),
		token: cfg.APIKey,
	}
}

type postsResponse struct {
	Results []struct {
		Title string `json:"title"`
	} `json:"results"`
}

func (c *Client) Source() models.NewsSource {
	return models.NewsCryptoPanic
}

// Headlines returns the newest public post titles for symbol, at most limit.
func (c *Client) Headlines(ctx context.Context, symbol string, limit int) ([]string, error) {
	if c.token == "" {
		return nil, c.base.Observe("news", provider.ErrNotConfigured)
	}

	query := map[string][]string{
		"auth_token": {c.token},
		"currencies": {util.NormalizeSymbol(symbol)},
		"public":     {"true"},
	}
	var resp postsResponse
	if err := c.base.GetJSON(ctx, "news", "/api/v1/posts/", query, &resp); err != nil {
		return nil, err
	}
	if len(resp.Results) == 0 {
		return nil, c.base.Errorf("news", provider.ErrEmpty)
	}

	titles := make([]string, 0, limit)
	for _, p := range resp.Results {
		if limit > 0 && len(titles) == limit {
			break
		}
		titles = append(titles, p.Title)
	}
	return titles, nil
}

var _ domsvc.NewsProvider = (*Client)(nil)
