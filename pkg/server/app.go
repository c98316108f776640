package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"CoinDash/internal/service/ratelimit"
	"CoinDash/internal/usecase"
	"CoinDash/pkg/cache"
	pkgch "CoinDash/pkg/clickhouse"
	"CoinDash/pkg/config"
	xhttp "CoinDash/pkg/http"
	pkgkafka "CoinDash/pkg/kafka"
	applogger "CoinDash/pkg/logger"
)

// limiter entries idle this long are dropped
const limiterIdle = 10 * time.Minute

// App encapsulates the entire application lifecycle. Optional parts are nil when the
// config leaves them off.
type App struct {
	cfg  *config.Config
	log  *applogger.Logger
	http *xhttp.Server

	Sessions        cache.Service
	Streams         StreamCloser
	Limiter         *ratelimit.Limiter
	Snapshots       *usecase.SnapshotSink
	Consumer        *pkgkafka.Consumer
	SnapshotHandler pkgkafka.MessageHandler
	Producer        *pkgkafka.Producer
	ClickHouse      *pkgch.Client
}

// StreamCloser ends long-lived client streams and waits for them to finish.
type StreamCloser interface {
	Shutdown(ctx context.Context) error
}

// New creates a new App instance with all dependencies.
func New(cfg *config.Config, l *applogger.Logger, srv *xhttp.Server) *App {
	if l == nil {
		l = applogger.Nop()
	}
	return &App{cfg: cfg, log: l, http: srv}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if a.Limiter != nil {
		go a.Limiter.Run(ctx.Done(), time.Minute, limiterIdle)
	}

	if a.Consumer != nil && a.SnapshotHandler != nil {
		a.Consumer.RegisterHandler(a.SnapshotHandler)
		if err := a.Consumer.Start(ctx); err != nil {
			a.log.Error("kafka consumer error", applogger.Error(err))
			return err
		}
		a.log.Info("kafka consumer started", applogger.String("topic", a.SnapshotHandler.Topic()))
	}

	if err := a.http.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("coindash started",
		applogger.Int("port", a.cfg.Server.Port),
		applogger.Bool("snapshots", a.Snapshots != nil),
		applogger.String("session_backend", a.cfg.Session.Backend),
	)

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

// shutdown stops intake first, then drains and closes the backends.
func (a *App) shutdown() error {
	ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
	defer cancel()

	if err := a.http.Stop(ctx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	// open websockets keep building dashboards, so they end before the sink closes
	if a.Streams != nil {
		if err := a.Streams.Shutdown(ctx); err != nil {
			a.log.Warn("websocket shutdown error", applogger.Error(err))
		}
	}

	if a.Consumer != nil {
		if err := a.Consumer.Stop(ctx); err != nil {
			a.log.Warn("kafka consumer stop error", applogger.Error(err))
		}
	}

	if a.Snapshots != nil {
		if err := a.Snapshots.Close(); err != nil {
			a.log.Warn("snapshot sink close error", applogger.Error(err))
		}
	}

	// the producer also feeds the log collector, so it goes after the last log-worthy step
	if a.Producer != nil {
		a.log.RemoveCollector()
		if err := a.Producer.Close(); err != nil {
			a.log.Warn("kafka producer close error", applogger.Error(err))
		}
	}

	if a.ClickHouse != nil {
		if err := a.ClickHouse.Close(); err != nil {
			a.log.Warn("clickhouse close error", applogger.Error(err))
		}
	}

	if a.Sessions != nil {
		if err := a.Sessions.Close(); err != nil {
			a.log.Warn("session cache close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
