package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Direction is the display classification of a signed change.
type Direction string

const (
	DirectionPositive Direction = "positive"
	DirectionNegative Direction = "negative"
	DirectionNeutral  Direction = "neutral"
)

// Classify is the single sign rule used for quotes, top coins and market sentiment.
func Classify(pct float64) Direction {
	switch {
	case pct > 0:
		return DirectionPositive
	case pct < 0:
		return DirectionNegative
	default:
		return DirectionNeutral
	}
}

// CoinQuote is one row of the coin listing.
type CoinQuote struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Symbol           string          `json:"symbol"`
	Rank             int             `json:"rank"`
	PriceUSD         decimal.Decimal `json:"price_usd"`
	PercentChange24h float64         `json:"percent_change_24h"`
	Direction        Direction       `json:"direction"`
}

// CoinOption is a coin picker entry, labelled "Name (SYM)".
type CoinOption struct {
	Label  string `json:"label"`
	Name   string `json:"name"`
	Symbol string `json:"symbol"`
}

type MarketSentiment string

const (
	SentimentBullish MarketSentiment = "bullish"
	SentimentBearish MarketSentiment = "bearish"
	SentimentNeutral MarketSentiment = "neutral"
)

// GlobalStats is total market size plus the breadth of the top-N sample.
type GlobalStats struct {
	TotalMarketCapUSD decimal.Decimal `json:"total_market_cap_usd"`
	TotalVolumeUSD    decimal.Decimal `json:"total_volume_usd"`
	Gainers           int             `json:"gainers"`
	Losers            int             `json:"losers"`
	Sentiment         MarketSentiment `json:"sentiment"`
}

// SentimentOf counts gainers and losers in sample and derives the market mood.
func SentimentOf(sample []CoinQuote) (gainers, losers int, s MarketSentiment) {
	for _, q := range sample {
		switch Classify(q.PercentChange24h) {
		case DirectionPositive:
			gainers++
		case DirectionNegative:
			losers++
		}
	}
	switch {
	case gainers > losers:
		s = SentimentBullish
	case losers > gainers:
		s = SentimentBearish
	default:
		s = SentimentNeutral
	}
	return gainers, losers, s
}

// Dominance is BTC's share of total market capitalization, in percent.
type Dominance struct {
	BTCPercent float64 `json:"btc_percent"`
}

// OhlcBar is one candle. Series are kept strictly ascending by OpenTime.
type OhlcBar struct {
	OpenTime time.Time       `json:"open_time"`
	Open     decimal.Decimal `json:"open"`
	High     decimal.Decimal `json:"high"`
	Low      decimal.Decimal `json:"low"`
	Close    decimal.Decimal `json:"close"`
	Volume   decimal.Decimal `json:"volume"`
}

// PredictionResult is the naive next-day close extrapolated from the bar series.
type PredictionResult struct {
	TargetTime     time.Time       `json:"target_time"`
	PredictedClose decimal.Decimal `json:"predicted_close"`
	Slope          float64         `json:"slope_per_second"`
	Intercept      float64         `json:"intercept"`
	Points         int             `json:"points"`
}
