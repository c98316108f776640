package usecase

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"CoinDash/internal/domain/models"
	domsvc "CoinDash/internal/domain/service"
	"CoinDash/internal/service/cryptopanic"
	"CoinDash/internal/service/etherscan"
	"CoinDash/internal/service/provider"
	"CoinDash/internal/services/sentiment"
	"CoinDash/internal/services/symbols"
	"CoinDash/internal/services/trend"
)

type fakeMarket struct {
	tickers   []models.CoinQuote
	global    models.GlobalStats
	tickErr   error
	globalErr error
}

func (f *fakeMarket) Tickers(_ context.Context, limit int) ([]models.CoinQuote, error) {
	if f.tickErr != nil {
		return nil, f.tickErr
	}
	if limit > 0 && limit < len(f.tickers) {
		return f.tickers[:limit], nil
	}
	return f.tickers, nil
}

func (f *fakeMarket) Global(context.Context) (models.GlobalStats, error) {
	return f.global, f.globalErr
}

type fakeDominance struct {
	v   models.Dominance
	err error
}

func (f *fakeDominance) Dominance(context.Context) (models.Dominance, error) { return f.v, f.err }

type fakeCandles struct {
	bars     []models.OhlcBar
	err      error
	called   chan struct{}
	once     sync.Once
	mu       sync.Mutex
	gotPair  string
	gotLimit int
}

func (f *fakeCandles) Klines(_ context.Context, pair, _ string, limit int) ([]models.OhlcBar, error) {
	f.mu.Lock()
	f.gotPair, f.gotLimit = pair, limit
	f.mu.Unlock()
	if f.called != nil {
		f.once.Do(func() { close(f.called) })
	}
	return f.bars, f.err
}

type fakeNews struct {
	source models.NewsSource
	titles []string
	err    error
	wait   <-chan struct{}
}

func (f *fakeNews) Source() models.NewsSource { return f.source }

func (f *fakeNews) Headlines(ctx context.Context, _ string, limit int) ([]string, error) {
	if f.wait != nil {
		select {
		case <-f.wait:
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}
	if f.err != nil {
		return nil, f.err
	}
	if limit < len(f.titles) {
		return f.titles[:limit], nil
	}
	return f.titles, nil
}

type fakeWallet struct {
	chain models.Chain
	bal   decimal.Decimal
	err   error
}

func (f *fakeWallet) Chain() models.Chain { return f.chain }

func (f *fakeWallet) Balance(_ context.Context, addr string) (models.WalletBalance, error) {
	if f.err != nil {
		return models.WalletBalance{}, f.err
	}
	return models.WalletBalance{Chain: f.chain, Address: addr, Balance: f.bal}, nil
}

type recordedSnapshots struct {
	mu   sync.Mutex
	dash []*models.Dashboard
}

func (r *recordedSnapshots) Record(_ context.Context, d *models.Dashboard) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dash = append(r.dash, d)
}

type sectionCounter struct {
	mu          sync.Mutex
	available   map[string]int
	unavailable map[string]int
	builds      int
}

func newSectionCounter() *sectionCounter {
	return &sectionCounter{available: map[string]int{}, unavailable: map[string]int{}}
}

func (c *sectionCounter) RecordProviderCall(string, string, time.Duration, error) {}
func (c *sectionCounter) RecordSnapshotSent(string, string)                       {}
func (c *sectionCounter) RecordLastPrice(string, float64)                         {}
func (c *sectionCounter) RecordBuild(time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.builds++
}
func (c *sectionCounter) RecordSection(section string, ok bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ok {
		c.available[section]++
		return
	}
	c.unavailable[section]++
}

func quote(sym string, rank int, pct float64) models.CoinQuote {
	return models.CoinQuote{
		ID:               sym,
		Name:             sym + " coin",
		Symbol:           sym,
		Rank:             rank,
		PriceUSD:         decimal.NewFromInt(int64(1000 * rank)),
		PercentChange24h: pct,
		Direction:        models.Classify(pct),
	}
}

func dailyBars(n int) []models.OhlcBar {
	t0 := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	bars := make([]models.OhlcBar, 0, n)
	for i := 0; i < n; i++ {
		c := decimal.NewFromInt(int64(100 + 10*i))
		bars = append(bars, models.OhlcBar{
			OpenTime: t0.Add(time.Duration(i) * 24 * time.Hour),
			Open:     c, High: c, Low: c, Close: c,
			Volume: decimal.NewFromInt(1),
		})
	}
	return bars
}

type fixture struct {
	market    *fakeMarket
	dominance *fakeDominance
	candles   *fakeCandles
	cpanic    *fakeNews
	cmcNews   *fakeNews
	btc       *fakeWallet
	eth       *fakeWallet
	snapshots *recordedSnapshots
	metrics   *sectionCounter
	cfg       DashboardConfig
}

func newFixture() *fixture {
	return &fixture{
		market: &fakeMarket{
			tickers: []models.CoinQuote{
				quote("BTC", 1, 2.5),
				quote("ETH", 2, -1.2),
				quote("XRP", 3, 0.4),
				quote("ADA", 4, 0),
			},
			global: models.GlobalStats{
				TotalMarketCapUSD: decimal.NewFromInt(2_000_000_000_000),
				TotalVolumeUSD:    decimal.NewFromInt(80_000_000_000),
			},
		},
		dominance: &fakeDominance{v: models.Dominance{BTCPercent: 52.1}},
		candles:   &fakeCandles{bars: dailyBars(5)},
		cpanic:    &fakeNews{source: models.NewsCryptoPanic, titles: []string{"Bitcoin surges to a great new high", "Exchange hacked in a terrible loss"}},
		cmcNews:   &fakeNews{source: models.NewsCoinMarketCap, titles: []string{"No Title"}},
		btc:       &fakeWallet{chain: models.ChainBTC, bal: decimal.RequireFromString("0.5")},
		eth:       &fakeWallet{chain: models.ChainETH, bal: decimal.RequireFromString("2")},
		snapshots: &recordedSnapshots{},
		metrics:   newSectionCounter(),
		cfg:       DashboardConfig{Timeout: 2 * time.Second, TopLimit: 3, ChartBars: 3},
	}
}

func (f *fixture) useCase() *DashboardUseCase {
	return NewDashboardUseCase(DashboardDeps{
		Market:    f.market,
		Dominance: f.dominance,
		Candles:   f.candles,
		Wallets:   []domsvc.BalanceProvider{f.btc, f.eth},
		News:      []domsvc.NewsProvider{f.cpanic, f.cmcNews},
		Mapper:    symbols.New("USDT", nil),
		Scorer:    sentiment.New(),
		Snapshots: f.snapshots,
		Metrics:   f.metrics,
	}, f.cfg, nil)
}

func TestBuildAllSectionsAvailable(t *testing.T) {
	f := newFixture()
	uc := f.useCase()

	d, err := uc.Build(context.Background(), DashboardParams{Symbol: " btc ", Address: "bc1qaddr"})
	require.NoError(t, err)

	assert.Nil(t, d.Unavailable)
	assert.Equal(t, "BTC", d.Symbol)
	assert.Equal(t, "BTCUSDT", d.Pair)

	require.NotNil(t, d.Quote)
	assert.Equal(t, "BTC", d.Quote.Symbol)
	assert.Equal(t, models.DirectionPositive, d.Quote.Direction)

	require.NotNil(t, d.Global)
	assert.Equal(t, 2, d.Global.Gainers)
	assert.Equal(t, 1, d.Global.Losers)
	assert.Equal(t, models.SentimentBullish, d.Global.Sentiment)
	assert.Len(t, d.TopCoins, 3)

	require.NotNil(t, d.Dominance)
	assert.Equal(t, 52.1, d.Dominance.BTCPercent)

	// chart carries the last 3 bars, prediction uses all 5
	require.Len(t, d.Ohlc, 3)
	assert.True(t, d.Ohlc[0].Close.Equal(decimal.NewFromInt(120)))
	require.NotNil(t, d.Prediction)
	assert.Equal(t, 5, d.Prediction.Points)
	assert.InDelta(t, 150.0, d.Prediction.PredictedClose.InexactFloat64(), 1e-6)
	assert.Equal(t, d.Ohlc[2].OpenTime.Add(24*time.Hour), d.Prediction.TargetTime)

	require.NotNil(t, d.Wallet)
	assert.Equal(t, "bc1qaddr", d.Wallet.Address)

	require.Len(t, d.NewsCryptoPanic, 2)
	assert.Equal(t, models.LabelUp, d.NewsCryptoPanic[0].Label)
	assert.Equal(t, models.LabelDown, d.NewsCryptoPanic[1].Label)
	require.Len(t, d.NewsCoinMarketCap, 1)
	assert.Equal(t, models.LabelFlat, d.NewsCoinMarketCap[0].Label)

	assert.Equal(t, "BTCUSDT", f.candles.gotPair)
	assert.Equal(t, 180, f.candles.gotLimit)
	assert.Equal(t, 1, f.metrics.builds)
	assert.Len(t, f.metrics.available, len(models.Sections))
	require.Len(t, f.snapshots.dash, 1)
	assert.Same(t, d, f.snapshots.dash[0])
}

func TestBuildNewsFailureKeepsOtherSections(t *testing.T) {
	f := newFixture()
	f.cpanic.err = errors.New("cryptopanic headlines: status 502")
	f.cmcNews.err = errors.New("coinmarketcap headlines: provider not configured")

	d, err := f.useCase().Build(context.Background(), DashboardParams{Symbol: "BTC", Address: "bc1q"})
	require.NoError(t, err)

	assert.NotNil(t, d.Quote)
	assert.NotNil(t, d.Global)
	assert.NotEmpty(t, d.Ohlc)
	assert.NotNil(t, d.Prediction)
	assert.Empty(t, d.NewsCryptoPanic)
	assert.Empty(t, d.NewsCoinMarketCap)
	assert.Equal(t, map[string]string{
		models.SectionNewsCryptoPanic:   "cryptopanic headlines: status 502",
		models.SectionNewsCoinMarketCap: "coinmarketcap headlines: provider not configured",
	}, d.Unavailable)
	assert.Equal(t, 1, f.metrics.unavailable[models.SectionNewsCryptoPanic])
}

func TestBuildRunsProvidersConcurrently(t *testing.T) {
	f := newFixture()
	called := make(chan struct{})
	f.candles.called = called
	// news can only answer once klines has been requested
	f.cpanic.wait = called

	d, err := f.useCase().Build(context.Background(), DashboardParams{Symbol: "ETH", Address: "0xabc"})
	require.NoError(t, err)
	assert.True(t, d.Available(models.SectionNewsCryptoPanic), d.Unavailable)
	assert.True(t, d.Available(models.SectionOhlc))
}

func TestBuildCandleFailureMarksPrediction(t *testing.T) {
	f := newFixture()
	f.candles.err = errors.New("binance klines: Invalid symbol.")

	d, err := f.useCase().Build(context.Background(), DashboardParams{Symbol: "BTC", Address: "bc1q"})
	require.NoError(t, err)

	assert.Empty(t, d.Ohlc)
	assert.Nil(t, d.Prediction)
	assert.Equal(t, "binance klines: Invalid symbol.", d.Unavailable[models.SectionOhlc])
	assert.Contains(t, d.Unavailable[models.SectionPrediction], "ohlc unavailable")
	assert.NotNil(t, d.Quote)
}

func TestBuildEmptyAndShortSeries(t *testing.T) {
	f := newFixture()
	f.candles.bars = nil
	d, err := f.useCase().Build(context.Background(), DashboardParams{Symbol: "BTC", Address: "bc1q"})
	require.NoError(t, err)
	assert.Equal(t, ErrNoCandles.Error(), d.Unavailable[models.SectionOhlc])
	assert.False(t, d.Available(models.SectionPrediction))

	f = newFixture()
	f.candles.bars = dailyBars(1)
	d, err = f.useCase().Build(context.Background(), DashboardParams{Symbol: "BTC", Address: "bc1q"})
	require.NoError(t, err)
	assert.Len(t, d.Ohlc, 1)
	assert.Equal(t, trend.ErrInsufficientData.Error(), d.Unavailable[models.SectionPrediction])
}

func TestBuildWalletRules(t *testing.T) {
	f := newFixture()
	uc := f.useCase()

	d, err := uc.Build(context.Background(), DashboardParams{Symbol: "XRP", Address: "rAddr"})
	require.NoError(t, err)
	assert.Equal(t, "unsupported", d.Unavailable[models.SectionWallet])

	d, err = uc.Build(context.Background(), DashboardParams{Symbol: "ETH"})
	require.NoError(t, err)
	assert.Equal(t, ErrAddressRequired.Error(), d.Unavailable[models.SectionWallet])
	assert.Nil(t, d.Wallet)

	bal, err := uc.Balance(context.Background(), "eth", "0xabc")
	require.NoError(t, err)
	assert.Equal(t, models.ChainETH, bal.Chain)
	assert.True(t, bal.Balance.Equal(decimal.NewFromInt(2)))

	_, err = uc.Balance(context.Background(), "DOGE", "addr")
	assert.ErrorIs(t, err, ErrWalletUnsupported)
}

func TestBuildUnknownCoin(t *testing.T) {
	f := newFixture()
	d, err := f.useCase().Build(context.Background(), DashboardParams{Symbol: "ZZZ"})
	require.NoError(t, err)
	assert.Nil(t, d.Quote)
	assert.Contains(t, d.Unavailable[models.SectionQuote], ErrCoinNotFound.Error())
	assert.Equal(t, "ZZZUSDT", d.Pair)
}

func TestBuildTickerFailure(t *testing.T) {
	f := newFixture()
	f.market.tickErr = errors.New("coinlore tickers: timeout")

	d, err := f.useCase().Build(context.Background(), DashboardParams{Symbol: "BTC", Address: "bc1q"})
	require.NoError(t, err)
	assert.False(t, d.Available(models.SectionQuote))
	assert.False(t, d.Available(models.SectionTopCoins))
	assert.False(t, d.Available(models.SectionGlobal))
	assert.True(t, d.Available(models.SectionDominance))
	assert.True(t, d.Available(models.SectionOhlc))

	// totals survive; only the breadth is reported missing
	require.NotNil(t, d.Global)
	assert.True(t, d.Global.TotalMarketCapUSD.Equal(decimal.NewFromInt(2_000_000_000_000)))
	assert.Empty(t, d.Global.Sentiment)
	assert.Zero(t, d.Global.Gainers)
	assert.Zero(t, d.Global.Losers)
	assert.Contains(t, d.Unavailable[models.SectionGlobal], "market sentiment")
	assert.Contains(t, d.Unavailable[models.SectionGlobal], "timeout")
}

func TestBuildGlobalFailureDropsTotals(t *testing.T) {
	f := newFixture()
	f.market.globalErr = errors.New("coinlore global: status 502")

	d, err := f.useCase().Build(context.Background(), DashboardParams{Symbol: "BTC", Address: "bc1q"})
	require.NoError(t, err)
	assert.Nil(t, d.Global)
	assert.Equal(t, "coinlore global: status 502", d.Unavailable[models.SectionGlobal])
	assert.True(t, d.Available(models.SectionTopCoins))
	assert.Equal(t, 1, f.metrics.unavailable[models.SectionGlobal])
}

func TestBuildRequiresSymbol(t *testing.T) {
	f := newFixture()
	_, err := f.useCase().Build(context.Background(), DashboardParams{Symbol: "  "})
	assert.ErrorIs(t, err, ErrSymbolRequired)
}

func TestBuildTimeoutBoundsSlowProvider(t *testing.T) {
	f := newFixture()
	f.cfg.Timeout = 50 * time.Millisecond
	f.cpanic.wait = make(chan struct{})

	d, err := f.useCase().Build(context.Background(), DashboardParams{Symbol: "BTC", Address: "bc1q"})
	require.NoError(t, err)
	assert.Equal(t, context.DeadlineExceeded.Error(), d.Unavailable[models.SectionNewsCryptoPanic])
	assert.NotNil(t, d.Quote)
}

func TestCoinsAndDefaultSymbol(t *testing.T) {
	f := newFixture()
	uc := f.useCase()

	coins, err := uc.Coins(context.Background())
	require.NoError(t, err)
	require.Len(t, coins, 4)
	assert.Equal(t, "BTC coin (BTC)", coins[0].Label)

	sym, err := uc.DefaultSymbol(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "BTC", sym)

	f.market.tickers = nil
	_, err = uc.DefaultSymbol(context.Background())
	assert.ErrorIs(t, err, ErrCoinNotFound)
}

func TestBuildUnavailableReasonsNeverCarryAPIKeys(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(2 * time.Second):
		}
	}))
	defer srv.Close()

	const newsKey, chainKey = "cp-token-9f2", "es-key-41c"
	f := newFixture()
	f.cfg.Timeout = 100 * time.Millisecond
	uc := NewDashboardUseCase(DashboardDeps{
		Market:    f.market,
		Dominance: f.dominance,
		Candles:   f.candles,
		Wallets:   []domsvc.BalanceProvider{etherscan.New(provider.Config{BaseURL: srv.URL, APIKey: chainKey})},
		News:      []domsvc.NewsProvider{cryptopanic.New(provider.Config{BaseURL: srv.URL, APIKey: newsKey})},
		Mapper:    symbols.New("USDT", nil),
		Scorer:    sentiment.New(),
		Metrics:   f.metrics,
	}, f.cfg, nil)

	d, err := uc.Build(context.Background(), DashboardParams{Symbol: "ETH", Address: "0xabc"})
	require.NoError(t, err)
	require.Contains(t, d.Unavailable, models.SectionWallet)
	require.Contains(t, d.Unavailable, models.SectionNewsCryptoPanic)
	for section, reason := range d.Unavailable {
		assert.NotContains(t, reason, newsKey, section)
		assert.NotContains(t, reason, chainKey, section)
	}
}

func TestBuildCancelledCallerRecordsNoSnapshot(t *testing.T) {
	f := newFixture()
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	d, err := f.useCase().Build(ctx, DashboardParams{Symbol: "BTC"})
	require.NoError(t, err)
	assert.NotNil(t, d)
	assert.Empty(t, f.snapshots.dash)
}
