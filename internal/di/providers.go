package di

import (
	"context"
	"fmt"
	"time"

	domrepo "CoinDash/internal/domain/repository"
	domsvc "CoinDash/internal/domain/service"
	"CoinDash/internal/handler/api"
	"CoinDash/internal/handler/ws"
	internalrepo "CoinDash/internal/repository"
	"CoinDash/internal/service/binance"
	"CoinDash/internal/service/coinlore"
	"CoinDash/internal/service/coinmarketcap"
	"CoinDash/internal/service/cryptopanic"
	"CoinDash/internal/service/etherscan"
	"CoinDash/internal/service/mempool"
	"CoinDash/internal/service/provider"
	"CoinDash/internal/service/ratelimit"
	"CoinDash/internal/services/sentiment"
	"CoinDash/internal/services/symbols"
	"CoinDash/internal/usecase"
	"CoinDash/pkg/cache"
	pkgch "CoinDash/pkg/clickhouse"
	"CoinDash/pkg/config"
	xhttp "CoinDash/pkg/http"
	pkgkafka "CoinDash/pkg/kafka"
	applogger "CoinDash/pkg/logger"
	"CoinDash/pkg/metrics"
	"CoinDash/pkg/server"
)

// ProvideLogger creates the app logger. When the collector is enabled, aggregated error
// logs are shipped through the Kafka producer.
func ProvideLogger(cfg *config.Config, producer *pkgkafka.Producer) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Logging.Level,
		Format: cfg.Logging.Format,
		Output: cfg.Logging.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	if cfg.Logging.Collector.Enabled && producer != nil {
		l.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   cfg.Logging.Collector.Interval,
			CountThreshold: cfg.Logging.Collector.Threshold,
			Topic:          cfg.Logging.Collector.Topic,
			Publisher:      producer,
		})
	}
	return l.With(applogger.String("env", cfg.Environment)), nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry.
func ProvideMetrics() domrepo.Metrics {
	return metrics.New(nil)
}

// ProvideKafkaProducer creates a Kafka producer when snapshots go to Kafka or the log
// collector is on. Otherwise it returns nil.
func ProvideKafkaProducer(cfg *config.Config) (*pkgkafka.Producer, error) {
	snapshots := cfg.Snapshots.Enabled && cfg.Snapshots.Backend == usecase.SnapshotBackendKafka
	if !snapshots && !cfg.Logging.Collector.Enabled {
		return nil, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.MaxAttempts),
		pkgkafka.WithBatchTimeout(cfg.Kafka.BatchTimeout),
		pkgkafka.WithWriteTimeout(cfg.Kafka.WriteTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Async),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return producer, nil
}

// ProvideClickHouseClient connects to ClickHouse when snapshots are stored there, either
// directly or through the Kafka consumer. Otherwise it returns nil.
func ProvideClickHouseClient(cfg *config.Config) (*pkgch.Client, error) {
	direct := cfg.Snapshots.Enabled && cfg.Snapshots.Backend == usecase.SnapshotBackendClickHouse
	if !direct && !cfg.Snapshots.Consume {
		return nil, nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := pkgch.NewClient(ctx,
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
		pkgch.WithAsyncInsert(direct),
	)
	if err != nil {
		return nil, fmt.Errorf("clickhouse client: %w", err)
	}
	return client, nil
}

// ProvideSnapshotStorage creates the ClickHouse snapshot table and repository.
func ProvideSnapshotStorage(client *pkgch.Client, l *applogger.Logger) (domrepo.SnapshotStorage, error) {
	if client == nil {
		return nil, nil
	}
	store := internalrepo.NewClickHouseSnapshotStorage(client, l)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	return store, nil
}

// ProvideSnapshotSink picks the configured snapshot backend, or nil when disabled.
func ProvideSnapshotSink(
	cfg *config.Config,
	producer *pkgkafka.Producer,
	storage domrepo.SnapshotStorage,
	m domrepo.Metrics,
	l *applogger.Logger,
) (*usecase.SnapshotSink, error) {
	if !cfg.Snapshots.Enabled {
		return nil, nil
	}
	switch cfg.Snapshots.Backend {
	case usecase.SnapshotBackendKafka:
		pub := internalrepo.NewKafkaSnapshotPublisher(producer, cfg.Kafka.Topic)
		return usecase.NewKafkaSnapshotSink(pub, m, l), nil
	case usecase.SnapshotBackendClickHouse:
		return usecase.NewClickHouseSnapshotSink(storage, m, l), nil
	default:
		return nil, fmt.Errorf("unknown snapshot backend %q", cfg.Snapshots.Backend)
	}
}

func providerConfig(cfg *config.Config, ep config.Endpoint) provider.Config {
	return provider.Config{BaseURL: ep.BaseURL, APIKey: ep.APIKey, Timeout: cfg.Providers.Timeout}
}

func ProvideCoinLore(cfg *config.Config, m domrepo.Metrics) *coinlore.Client {
	return coinlore.New(providerConfig(cfg, cfg.Providers.CoinLore), provider.WithMetrics(m))
}

func ProvideCoinMarketCap(cfg *config.Config, m domrepo.Metrics) *coinmarketcap.Client {
	return coinmarketcap.New(providerConfig(cfg, cfg.Providers.CoinMarketCap), provider.WithMetrics(m))
}

func ProvideBinance(cfg *config.Config, m domrepo.Metrics) *binance.Client {
	return binance.New(providerConfig(cfg, cfg.Providers.Binance), provider.WithMetrics(m))
}

func ProvideMempool(cfg *config.Config, m domrepo.Metrics) *mempool.Client {
	return mempool.New(providerConfig(cfg, cfg.Providers.Mempool), provider.WithMetrics(m))
}

func ProvideEtherscan(cfg *config.Config, m domrepo.Metrics) *etherscan.Client {
	return etherscan.New(providerConfig(cfg, cfg.Providers.Etherscan), provider.WithMetrics(m))
}

func ProvideCryptoPanic(cfg *config.Config, m domrepo.Metrics) *cryptopanic.Client {
	return cryptopanic.New(providerConfig(cfg, cfg.Providers.CryptoPanic), provider.WithMetrics(m))
}

func ProvideSymbolMapper(cfg *config.Config) *symbols.Mapper {
	return symbols.New(cfg.Symbols.Quote, cfg.Symbols.Overrides)
}

func ProvideScorer() *sentiment.Scorer {
	return sentiment.New()
}

// ProvideDashboardUseCase assembles the aggregator from every provider client.
func ProvideDashboardUseCase(
	cfg *config.Config,
	cl *coinlore.Client,
	cmc *coinmarketcap.Client,
	bn *binance.Client,
	mp *mempool.Client,
	es *etherscan.Client,
	cp *cryptopanic.Client,
	mapper *symbols.Mapper,
	scorer *sentiment.Scorer,
	sink *usecase.SnapshotSink,
	m domrepo.Metrics,
	l *applogger.Logger,
) *usecase.DashboardUseCase {
	deps := usecase.DashboardDeps{
		Market:    cl,
		Dominance: cmc,
		Candles:   bn,
		Wallets:   []domsvc.BalanceProvider{mp, es},
		News:      []domsvc.NewsProvider{cp, cmc},
		Mapper:    mapper,
		Scorer:    scorer,
		Metrics:   m,
	}
	if sink != nil {
		deps.Snapshots = sink
	}
	return usecase.NewDashboardUseCase(deps, usecase.DashboardConfig{
		Timeout:       cfg.Aggregator.Timeout,
		TickerLimit:   cfg.Aggregator.TickerLimit,
		TopLimit:      cfg.Aggregator.TopLimit,
		KlineInterval: cfg.Aggregator.KlineInterval,
		KlineLimit:    cfg.Aggregator.KlineLimit,
		ChartBars:     cfg.Aggregator.ChartBars,
		NewsLimit:     cfg.Providers.NewsLimit,
	}, l)
}

// ProvideCache creates the session cache for the configured backend.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	memOpts := []cache.MemoryOption{
		cache.WithMemoryCapacity(cfg.Session.MaxSize),
		cache.WithMemoryDefaultTTL(cfg.Session.TTL),
		cache.WithMemorySweep(time.Minute),
	}
	if cfg.Session.Backend == "memory" {
		return cache.NewMemoryCache(memOpts...), nil
	}

	rc, err := cache.NewRedisCache(context.Background(),
		cache.WithRedisAddr(cfg.Session.Host, cfg.Session.Port),
		cache.WithRedisAuth(cfg.Session.Password, cfg.Session.DB),
		cache.WithRedisPoolSize(cfg.Session.PoolSize),
		cache.WithRedisNamespace(cfg.Session.Namespace),
	)
	if err != nil {
		return nil, fmt.Errorf("session cache: %w", err)
	}
	if cfg.Session.Backend == "layered" {
		return cache.NewLayeredCache(rc, 30*time.Second, memOpts...), nil
	}
	return rc, nil
}

func ProvideSessionStore(c cache.Service, cfg *config.Config) domrepo.SessionStore {
	return internalrepo.NewCacheSessionStore(c, cfg.Session.TTL)
}

// ProvideRateLimiter returns the per-client inbound limiter, or nil when disabled.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	if !cfg.RateLimit.Enabled {
		return nil
	}
	return ratelimit.New(cfg.RateLimit.RPS, cfg.RateLimit.Burst)
}

// ProvideKafkaConsumer creates the snapshot consumer when snapshots.consume is set.
func ProvideKafkaConsumer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Consumer, error) {
	if !cfg.Snapshots.Consume {
		return nil, nil
	}
	consumer, err := pkgkafka.NewConsumer(l,
		pkgkafka.WithConsumerBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithConsumerGroupID(cfg.Kafka.GroupID),
		pkgkafka.WithConsumerWorkers(cfg.Kafka.Workers),
		pkgkafka.WithConsumerRetry(cfg.Kafka.RetryMax, cfg.Kafka.BackoffMin, cfg.Kafka.BackoffMax),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka consumer: %w", err)
	}
	return consumer, nil
}

// ProvideKafkaSnapshotHandler moves consumed snapshots into ClickHouse.
func ProvideKafkaSnapshotHandler(cfg *config.Config, storage domrepo.SnapshotStorage, m domrepo.Metrics) *usecase.KafkaSnapshotHandler {
	if !cfg.Snapshots.Consume || storage == nil {
		return nil
	}
	return usecase.NewKafkaSnapshotHandler(cfg.Kafka.Topic, storage, m)
}

// ProvideWSHandler creates the WebSocket endpoint. The App shuts it down before the
// snapshot sink closes.
func ProvideWSHandler(l *applogger.Logger, uc *usecase.DashboardUseCase) *ws.Handler {
	return ws.NewHandler(l, uc, ws.DefaultConfig())
}

// ProvideHTTPHandler registers the REST API and the WebSocket endpoint.
func ProvideHTTPHandler(l *applogger.Logger, uc *usecase.DashboardUseCase, sessions domrepo.SessionStore, streams *ws.Handler) xhttp.Handler {
	return xhttp.Handlers{
		api.NewDashboardHandler(l, uc, sessions),
		streams,
	}
}

// ProvideHTTPServer builds the Echo server. /healthz checks the session backend and, when
// configured, the snapshot store.
func ProvideHTTPServer(
	cfg *config.Config,
	h xhttp.Handler,
	limiter *ratelimit.Limiter,
	sessions domrepo.SessionStore,
	storage domrepo.SnapshotStorage,
	l *applogger.Logger,
) *xhttp.Server {
	opts := []xhttp.ServerOption{
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithLogger(l),
		xhttp.WithHealthCheck("sessions", sessions.Health),
	}
	if storage != nil {
		opts = append(opts, xhttp.WithHealthCheck("snapshots", storage.Health))
	}
	if cfg.Metrics.Enabled {
		opts = append(opts, xhttp.WithMetrics(cfg.Metrics.Path))
	}
	if limiter != nil {
		opts = append(opts, xhttp.WithRateLimit(limiter))
	}
	return xhttp.NewServer(h, opts...)
}

// ProvideApp creates the application server.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	streams *ws.Handler,
	limiter *ratelimit.Limiter,
	sessions cache.Service,
	sink *usecase.SnapshotSink,
	consumer *pkgkafka.Consumer,
	kh *usecase.KafkaSnapshotHandler,
	producer *pkgkafka.Producer,
	chClient *pkgch.Client,
) *server.App {
	app := server.New(cfg, l, srv)
	app.Sessions = sessions
	app.Streams = streams
	if limiter != nil {
		app.Limiter = limiter
	}
	if sink != nil {
		app.Snapshots = sink
	}
	if consumer != nil && kh != nil {
		app.Consumer = consumer
		app.SnapshotHandler = kh
	}
	app.Producer = producer
	app.ClickHouse = chClient
	return app
}
