package models

import "time"

// Section names, also the keys of Dashboard.Unavailable.
const (
	SectionQuote             = "quote"
	SectionGlobal            = "global"
	SectionTopCoins          = "top_coins"
	SectionDominance         = "dominance"
	SectionOhlc              = "ohlc"
	SectionPrediction        = "prediction"
	SectionWallet            = "wallet"
	SectionNewsCryptoPanic   = "news_cryptopanic"
	SectionNewsCoinMarketCap = "news_coinmarketcap"
)

// Sections lists every dashboard section in display order.
var Sections = []string{
	SectionQuote,
	SectionGlobal,
	SectionTopCoins,
	SectionDominance,
	SectionOhlc,
	SectionPrediction,
	SectionWallet,
	SectionNewsCryptoPanic,
	SectionNewsCoinMarketCap,
}

// Dashboard is the assembled view for one coin. Any section that could not be built is
// nil/empty and has a reason in Unavailable.
type Dashboard struct {
	Symbol            string            `json:"symbol"`
	Pair              string            `json:"pair"`
	GeneratedAt       time.Time         `json:"generated_at"`
	Quote             *CoinQuote        `json:"quote,omitempty"`
	Global            *GlobalStats      `json:"global,omitempty"`
	TopCoins          []CoinQuote       `json:"top_coins,omitempty"`
	Dominance         *Dominance        `json:"dominance,omitempty"`
	Ohlc              []OhlcBar         `json:"ohlc,omitempty"`
	Prediction        *PredictionResult `json:"prediction,omitempty"`
	Wallet            *WalletBalance    `json:"wallet,omitempty"`
	NewsCryptoPanic   []NewsItem        `json:"news_cryptopanic,omitempty"`
	NewsCoinMarketCap []NewsItem        `json:"news_coinmarketcap,omitempty"`
	Unavailable       map[string]string `json:"unavailable,omitempty"`
}

// Available reports whether section was built.
func (d *Dashboard) Available(section string) bool {
	_, missing := d.Unavailable[section]
	return !missing
}

// DashboardSnapshot is the flat record shipped to the snapshot sinks.
type DashboardSnapshot struct {
	Symbol           string    `json:"symbol"`
	GeneratedAt      time.Time `json:"generated_at"`
	PriceUSD         float64   `json:"price_usd"`
	PercentChange24h float64   `json:"percent_change_24h"`
	MarketSentiment  string    `json:"market_sentiment"`
	BTCDominance     float64   `json:"btc_dominance"`
	LastClose        float64   `json:"last_close"`
	PredictedClose   float64   `json:"predicted_close"`
	NewsPolarity     float64   `json:"news_polarity"`
	Unavailable      []string  `json:"unavailable"`
}
