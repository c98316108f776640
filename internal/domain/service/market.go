package service

import (
	"context"

	"CoinDash/internal/domain/models"
)

// MarketLister lists ranked coins and global market totals.
type MarketLister interface {
	Tickers(ctx context.Context, limit int) ([]models.CoinQuote, error)
	Global(ctx context.Context) (models.GlobalStats, error)
}

// DominanceProvider reports BTC market dominance.
type DominanceProvider interface {
	Dominance(ctx context.Context) (models.Dominance, error)
}

// CandleProvider returns an OHLC series for a trading pair, ascending by open time.
type CandleProvider interface {
	Klines(ctx context.Context, pair, interval string, limit int) ([]models.OhlcBar, error)
}

// BalanceProvider looks up an address balance on one chain.
type BalanceProvider interface {
	Chain() models.Chain
	Balance(ctx context.Context, address string) (models.WalletBalance, error)
}

// NewsProvider returns up to limit headlines about a coin symbol.
type NewsProvider interface {
	Source() models.NewsSource
	Headlines(ctx context.Context, symbol string, limit int) ([]string, error)
}

// SymbolMapper maps a ticker to the exchange trading pair.
type SymbolMapper interface {
	Pair(symbol string) string
}

// HeadlineScorer scores a headline's polarity in [-1, 1].
type HeadlineScorer interface {
	Polarity(text string) float64
}
