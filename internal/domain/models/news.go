package models

type NewsSource string

const (
	NewsCryptoPanic   NewsSource = "cryptopanic"
	NewsCoinMarketCap NewsSource = "coinmarketcap"
)

// NoTitle stands in for a headline the provider left empty. It is never scored.
const NoTitle = "No Title"

// Headline labels derived from polarity sign.
const (
	LabelUp   = "up"
	LabelDown = "down"
	LabelFlat = "flat"
)

// NewsItem is a scored headline.
type NewsItem struct {
	Source   NewsSource `json:"source"`
	Headline string     `json:"headline"`
	Polarity float64    `json:"polarity"`
	Label    string     `json:"label"`
}

// LabelFor maps a polarity to up, down or flat by sign.
func LabelFor(polarity float64) string {
	switch {
	case polarity > 0:
		return LabelUp
	case polarity < 0:
		return LabelDown
	default:
		return LabelFlat
	}
}
