package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"CoinDash/internal/domain/models"
	domrepo "CoinDash/internal/domain/repository"
	domsvc "CoinDash/internal/domain/service"
	"CoinDash/internal/services/trend"
	"CoinDash/pkg/logger"
	"CoinDash/pkg/util"
)

var (
	ErrSymbolRequired    = errors.New("symbol required")
	ErrCoinNotFound      = errors.New("coin not found")
	ErrWalletUnsupported = errors.New("unsupported")
	ErrAddressRequired   = errors.New("address not supplied")
	ErrNoCandles         = errors.New("no candles returned")
)

// DashboardConfig bounds what a single build fetches.
type DashboardConfig struct {
	Timeout       time.Duration
	TickerLimit   int
	TopLimit      int
	KlineInterval string
	KlineLimit    int
	ChartBars     int
	NewsLimit     int
}

func (c *DashboardConfig) setDefaults() {
	if c.Timeout <= 0 {
		c.Timeout = 20 * time.Second
	}
	if c.TickerLimit <= 0 {
		c.TickerLimit = 100
	}
	if c.TopLimit <= 0 {
		c.TopLimit = 10
	}
	if c.KlineInterval == "" {
		c.KlineInterval = "1d"
	}
	if c.KlineLimit <= 0 {
		c.KlineLimit = 180
	}
	if c.ChartBars <= 0 {
		c.ChartBars = 60
	}
	if c.NewsLimit <= 0 {
		c.NewsLimit = 5
	}
}

// DashboardDeps are the collaborators of a build. Snapshots and Metrics may be nil.
type DashboardDeps struct {
	Market    domsvc.MarketLister
	Dominance domsvc.DominanceProvider
	Candles   domsvc.CandleProvider
	Wallets   []domsvc.BalanceProvider
	News      []domsvc.NewsProvider
	Mapper    domsvc.SymbolMapper
	Scorer    domsvc.HeadlineScorer
	Snapshots SnapshotRecorder
	Metrics   domrepo.Metrics
}

// SnapshotRecorder receives every assembled dashboard.
type SnapshotRecorder interface {
	Record(ctx context.Context, d *models.Dashboard)
}

// DashboardUseCase assembles a Dashboard from the providers. It keeps no per-caller state.
type DashboardUseCase struct {
	market    domsvc.MarketLister
	dominance domsvc.DominanceProvider
	candles   domsvc.CandleProvider
	wallets   map[models.Chain]domsvc.BalanceProvider
	news      []domsvc.NewsProvider
	mapper    domsvc.SymbolMapper
	scorer    domsvc.HeadlineScorer
	snapshots SnapshotRecorder
	metrics   domrepo.Metrics
	log       *logger.Logger
	cfg       DashboardConfig
	now       func() time.Time
}

func NewDashboardUseCase(deps DashboardDeps, cfg DashboardConfig, l *logger.Logger) *DashboardUseCase {
	cfg.setDefaults()
	if l == nil {
		l = logger.Nop()
	}
	if deps.Metrics == nil {
		deps.Metrics = domrepo.NopMetrics{}
	}

	wallets := make(map[models.Chain]domsvc.BalanceProvider, len(deps.Wallets))
	for _, w := range deps.Wallets {
		wallets[w.Chain()] = w
	}

	return &DashboardUseCase{
		market:    deps.Market,
		dominance: deps.Dominance,
		candles:   deps.Candles,
		wallets:   wallets,
		news:      deps.News,
		mapper:    deps.Mapper,
		scorer:    deps.Scorer,
		snapshots: deps.Snapshots,
		metrics:   deps.Metrics,
		log:       l.With(logger.String("usecase", "dashboard")),
		cfg:       cfg,
		now:       time.Now,
	}
}

type DashboardParams struct {
	Symbol   string
	Address  string
	Interval string
	Limit    int
}

// Build fetches every section concurrently. A section that fails is left empty and gets a
// reason in Unavailable; only invalid params fail the whole build.
func (uc *DashboardUseCase) Build(ctx context.Context, p DashboardParams) (*models.Dashboard, error) {
	symbol := util.NormalizeSymbol(p.Symbol)
	if symbol == "" {
		return nil, ErrSymbolRequired
	}
	if p.Interval == "" {
		p.Interval = uc.cfg.KlineInterval
	}
	if p.Limit <= 0 {
		p.Limit = uc.cfg.KlineLimit
	}

	start := uc.now()
	fetchCtx, cancel := context.WithTimeout(ctx, uc.cfg.Timeout)
	defer cancel()

	res := &models.Dashboard{
		Symbol:      symbol,
		Pair:        uc.mapper.Pair(symbol),
		GeneratedAt: start.UTC(),
		Unavailable: map[string]string{},
	}

	type item struct {
		name string
		val  interface{}
		err  error
		// partial keeps val in the dashboard even though err marks the section unavailable
		partial bool
	}
	ch := make(chan item, len(models.Sections))
	var wg sync.WaitGroup
	spawn := func(fn func()) {
		wg.Add(1)
		go func() {
			defer wg.Done()
			fn()
		}()
	}

	spawn(func() {
		v, err := uc.quote(fetchCtx, symbol)
		ch <- item{name: models.SectionQuote, val: v, err: err}
	})

	// global sentiment and the top list come from the same top-N call
	spawn(func() {
		top, topErr := uc.market.Tickers(fetchCtx, uc.cfg.TopLimit)
		ch <- item{name: models.SectionTopCoins, val: top, err: topErr}

		stats, err := uc.market.Global(fetchCtx)
		switch {
		case err != nil:
			ch <- item{name: models.SectionGlobal, err: err}
		case topErr != nil:
			// totals are still good; only the market breadth is missing
			ch <- item{name: models.SectionGlobal, val: stats, err: fmt.Errorf("market sentiment: top coins: %w", topErr), partial: true}
		default:
			stats.Gainers, stats.Losers, stats.Sentiment = models.SentimentOf(top)
			ch <- item{name: models.SectionGlobal, val: stats}
		}
	})

	spawn(func() {
		v, err := uc.dominance.Dominance(fetchCtx)
		ch <- item{name: models.SectionDominance, val: v, err: err}
	})

	// pair -> candles -> prediction is the one sequential chain
	spawn(func() {
		bars, err := uc.candles.Klines(fetchCtx, res.Pair, p.Interval, p.Limit)
		if err == nil && len(bars) == 0 {
			err = ErrNoCandles
		}
		if err != nil {
			ch <- item{name: models.SectionOhlc, err: err}
			ch <- item{name: models.SectionPrediction, err: fmt.Errorf("ohlc unavailable: %w", err)}
			return
		}
		ch <- item{name: models.SectionOhlc, val: lastBars(bars, uc.cfg.ChartBars)}

		pred, err := trend.Estimate(trend.FromBars(bars))
		if err != nil {
			ch <- item{name: models.SectionPrediction, err: err}
			return
		}
		ch <- item{name: models.SectionPrediction, val: predictionResult(pred)}
	})

	spawn(func() {
		v, err := uc.balance(fetchCtx, symbol, p.Address)
		ch <- item{name: models.SectionWallet, val: v, err: err}
	})

	for _, np := range uc.news {
		np := np
		spawn(func() {
			v, err := uc.headlines(fetchCtx, np, symbol)
			ch <- item{name: newsSection(np.Source()), val: v, err: err}
		})
	}

	go func() { wg.Wait(); close(ch) }()

	for it := range ch {
		if it.err != nil {
			res.Unavailable[it.name] = it.err.Error()
			uc.metrics.RecordSection(it.name, false)
			uc.log.Warn("section unavailable",
				logger.String("symbol", symbol),
				logger.String("section", it.name),
				logger.Error(it.err),
			)
			if !it.partial {
				continue
			}
		} else {
			uc.metrics.RecordSection(it.name, true)
		}
		switch it.name {
		case models.SectionQuote:
			v := it.val.(models.CoinQuote)
			res.Quote = &v
		case models.SectionGlobal:
			v := it.val.(models.GlobalStats)
			res.Global = &v
		case models.SectionTopCoins:
			res.TopCoins = it.val.([]models.CoinQuote)
		case models.SectionDominance:
			v := it.val.(models.Dominance)
			res.Dominance = &v
		case models.SectionOhlc:
			res.Ohlc = it.val.([]models.OhlcBar)
		case models.SectionPrediction:
			v := it.val.(models.PredictionResult)
			res.Prediction = &v
		case models.SectionWallet:
			v := it.val.(models.WalletBalance)
			res.Wallet = &v
		case models.SectionNewsCryptoPanic:
			res.NewsCryptoPanic = it.val.([]models.NewsItem)
		case models.SectionNewsCoinMarketCap:
			res.NewsCoinMarketCap = it.val.([]models.NewsItem)
		}
	}

	if len(res.Unavailable) == 0 {
		res.Unavailable = nil
	}

	elapsed := uc.now().Sub(start)
	uc.metrics.RecordBuild(elapsed)
	if res.Quote != nil {
		uc.metrics.RecordLastPrice(symbol, res.Quote.PriceUSD.InexactFloat64())
	}
	uc.log.Debug("dashboard built",
		logger.String("symbol", symbol),
		logger.Int("unavailable", len(res.Unavailable)),
		logger.Duration("took", elapsed),
	)

	// a cancelled caller gets its dashboard, but it is not worth keeping
	if uc.snapshots != nil && ctx.Err() == nil {
		uc.snapshots.Record(ctx, res)
	}
	return res, nil
}

// Coins lists the coin picker options in rank order.
func (uc *DashboardUseCase) Coins(ctx context.Context) ([]models.CoinOption, error) {
	quotes, err := uc.market.Tickers(ctx, uc.cfg.TickerLimit)
	if err != nil {
		return nil, err
	}
	opts := make([]models.CoinOption, 0, len(quotes))
	for _, q := range quotes {
		opts = append(opts, models.CoinOption{
			Label:  fmt.Sprintf("%s (%s)", q.Name, q.Symbol),
			Name:   q.Name,
			Symbol: q.Symbol,
		})
	}
	return opts, nil
}

// DefaultSymbol is the first listed coin, used when a caller has no selection yet.
func (uc *DashboardUseCase) DefaultSymbol(ctx context.Context) (string, error) {
	coins, err := uc.Coins(ctx)
	if err != nil {
		return "", err
	}
	if len(coins) == 0 {
		return "", ErrCoinNotFound
	}
	return coins[0].Symbol, nil
}

// Balance looks up the wallet section alone.
func (uc *DashboardUseCase) Balance(ctx context.Context, symbol, address string) (models.WalletBalance, error) {
	return uc.balance(ctx, util.NormalizeSymbol(symbol), address)
}

func (uc *DashboardUseCase) quote(ctx context.Context, symbol string) (models.CoinQuote, error) {
	quotes, err := uc.market.Tickers(ctx, uc.cfg.TickerLimit)
	if err != nil {
		return models.CoinQuote{}, err
	}
	for _, q := range quotes {
		if q.Symbol == symbol {
			return q, nil
		}
	}
	return models.CoinQuote{}, fmt.Errorf("%s: %w", symbol, ErrCoinNotFound)
}

func (uc *DashboardUseCase) balance(ctx context.Context, symbol, address string) (models.WalletBalance, error) {
	chain, ok := models.ChainFor(symbol)
	if !ok {
		return models.WalletBalance{}, ErrWalletUnsupported
	}
	wp, ok := uc.wallets[chain]
	if !ok {
		return models.WalletBalance{}, ErrWalletUnsupported
	}
	if address == "" {
		return models.WalletBalance{}, ErrAddressRequired
	}
	return wp.Balance(ctx, address)
}

func (uc *DashboardUseCase) headlines(ctx context.Context, np domsvc.NewsProvider, symbol string) ([]models.NewsItem, error) {
	titles, err := np.Headlines(ctx, symbol, uc.cfg.NewsLimit)
	if err != nil {
		return nil, err
	}
	items := make([]models.NewsItem, 0, len(titles))
	for _, t := range titles {
		var pol float64
		if t != models.NoTitle {
			pol = uc.scorer.Polarity(t)
		}
		items = append(items, models.NewsItem{
			Source:   np.Source(),
			Headline: t,
			Polarity: pol,
			Label:    models.LabelFor(pol),
		})
	}
	return items, nil
}

func newsSection(src models.NewsSource) string {
	return "news_" + string(src)
}

func lastBars(bars []models.OhlcBar, n int) []models.OhlcBar {
	if len(bars) <= n {
		return bars
	}
	return bars[len(bars)-n:]
}

func predictionResult(p trend.Prediction) models.PredictionResult {
	return models.PredictionResult{
		TargetTime:     time.Unix(p.Target, 0).UTC(),
		PredictedClose: decimal.NewFromFloat(p.Value).Round(8),
		Slope:          p.Slope,
		Intercept:      p.Intercept,
		Points:         p.Points,
	}
}
