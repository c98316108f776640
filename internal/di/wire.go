//go:build wireinject
// +build wireinject

package di

import (
	"CoinDash/pkg/config"
	"CoinDash/pkg/server"

	"github.com/google/wire"
)

// InitializeApp wires up all dependencies and returns the application.
// Wire will generate the implementation of this function.
func InitializeApp(cfg *config.Config) (*server.App, error) {
	wire.Build(
		// Observability
		ProvideMetrics,
		ProvideLogger,

		// Infrastructure clients
		ProvideKafkaProducer,
		ProvideClickHouseClient,
		ProvideCache,

		// Repositories
		ProvideSnapshotStorage,
		ProvideSessionStore,

		// Providers and services
		ProvideCoinLore,
		ProvideCoinMarketCap,
		ProvideBinance,
		ProvideMempool,
		ProvideEtherscan,
		ProvideCryptoPanic,
		ProvideSymbolMapper,
		ProvideScorer,

		// Use cases
		ProvideSnapshotSink,
		ProvideDashboardUseCase,
		ProvideKafkaConsumer,
		ProvideKafkaSnapshotHandler,

		// Transport
		ProvideRateLimiter,
		ProvideWSHandler,
		ProvideHTTPHandler,
		ProvideHTTPServer,

		// Application server
		ProvideApp,
	)
	return &server.App{}, nil
}
