package binance

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"CoinDash/internal/domain/models"
	domsvc "CoinDash/internal/domain/service"
	"CoinDash/internal/service/provider"
	"CoinDash/pkg/util"
)

// Client reads public Binance spot market data.
type Client struct {
	base *provider.Base
}

func New(cfg provider.Config, opts ...provider.Option) *Client {
	return &Client{base: provider.NewBase("binance", cfg, opts...)}
}

type apiError struct {
	Code int    `json:"code"`
	Msg  string `json:"msg"`
}

// Klines returns up to limit candles for pair, strictly ascending by open time.
// An unknown pair yields an error; a known pair without data yields an empty series.
func (c *Client) Klines(ctx context.Context, pair, interval string, limit int) ([]models.OhlcBar, error) {
	query := map[string][]string{
		"symbol":   {pair},
		"interval": {interval},
		"limit":    {strconv.Itoa(limit)},
	}

	var raw []byte
	if err := c.base.GetJSON(ctx, "klines", "/api/v3/klines", query, &raw); err != nil {
		return nil, err
	}

	bars, err := parseKlines(raw)
	if err != nil {
		return nil, c.base.Errorf("klines", err)
	}
	return bars, nil
}

func parseKlines(raw []byte) ([]models.OhlcBar, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) > 0 && raw[0] == '{' {
		var apiErr apiError
		if err := json.Unmarshal(raw, &apiErr); err != nil {
			return nil, fmt.Errorf("decode error object: %w", err)
		}
		return nil, fmt.Errorf("api error %d: %s", apiErr.Code, apiErr.Msg)
	}

	var rows [][]json.RawMessage
	if err := json.Unmarshal(raw, &rows); err != nil {
		return nil, fmt.Errorf("decode json: %w", err)
	}

	bars := make([]models.OhlcBar, 0, len(rows))
	for i, row := range rows {
		if len(row) < 6 {
			return nil, fmt.Errorf("row %d: expected at least 6 fields, got %d", i, len(row))
		}
		var openTime int64
		if err := json.Unmarshal(row[0], &openTime); err != nil {
			return nil, fmt.Errorf("row %d open time: %w", i, err)
		}
		var fields [5]provider.FlexString
		for j := range fields {
			if err := json.Unmarshal(row[j+1], &fields[j]); err != nil {
				return nil, fmt.Errorf("row %d field %d: %w", i, j+1, err)
			}
		}
		bars = append(bars, models.OhlcBar{
			OpenTime: util.FromUnixMilli(openTime),
			Open:     fields[0].Decimal(),
			High:     fields[1].Decimal(),
			Low:      fields[2].Decimal(),
			Close:    fields[3].Decimal(),
			Volume:   fields[4].Decimal(),
		})
	}
	return normalize(bars), nil
}

// normalize sorts by open time and drops repeated timestamps, keeping the first seen.
func normalize(bars []models.OhlcBar) []models.OhlcBar {
	sort.SliceStable(bars, func(i, j int) bool {
		return bars[i].OpenTime.Before(bars[j].OpenTime)
	})
	out := bars[:0]
	for _, b := range bars {
		if len(out) > 0 && !b.OpenTime.After(out[len(out)-1].OpenTime) {
			continue
		}
		out = append(out, b)
	}
	return out
}

var _ domsvc.CandleProvider = (*Client)(nil)
