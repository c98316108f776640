package usecase

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"CoinDash/internal/domain/models"
	domrepo "CoinDash/internal/domain/repository"
	"CoinDash/pkg/logger"
)

const (
	SnapshotBackendKafka      = "kafka"
	SnapshotBackendClickHouse = "clickhouse"
)

type snapshotWriter func(ctx context.Context, snap *models.DashboardSnapshot) error

// SnapshotSink ships a flat snapshot of every built dashboard to Kafka or straight into
// ClickHouse. Sends run in the background and never hold up the caller.
type SnapshotSink struct {
	backend string
	write   snapshotWriter
	closer  func() error
	metrics domrepo.Metrics
	log     *logger.Logger
	timeout time.Duration

	mu     sync.Mutex
	closed bool
	wg     sync.WaitGroup
}

// NewKafkaSnapshotSink publishes snapshots to a topic.
func NewKafkaSnapshotSink(pub domrepo.SnapshotPublisher, metrics domrepo.Metrics, l *logger.Logger) *SnapshotSink {
	return newSnapshotSink(SnapshotBackendKafka, pub.Publish, pub.Close, metrics, l)
}

// NewClickHouseSnapshotSink stores snapshots directly.
func NewClickHouseSnapshotSink(store domrepo.SnapshotStorage, metrics domrepo.Metrics, l *logger.Logger) *SnapshotSink {
	return newSnapshotSink(SnapshotBackendClickHouse, store.Store, store.Close, metrics, l)
}

func newSnapshotSink(backend string, write snapshotWriter, closer func() error, metrics domrepo.Metrics, l *logger.Logger) *SnapshotSink {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	if l == nil {
		l = logger.Nop()
	}
	return &SnapshotSink{
		backend: backend,
		write:   write,
		closer:  closer,
		metrics: metrics,
		log:     l.With(logger.String("component", "snapshot_sink"), logger.String("backend", backend)),
		timeout: 5 * time.Second,
	}
}

// Record sends the snapshot of d. The send outlives ctx cancellation but not the sink timeout.
// Once Close has started, Record drops the snapshot.
func (s *SnapshotSink) Record(ctx context.Context, d *models.Dashboard) {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		s.log.Debug("snapshot dropped after close", logger.String("symbol", d.Symbol))
		return
	}
	s.wg.Add(1)
	s.mu.Unlock()

	snap := SnapshotOf(d)
	go func() {
		defer s.wg.Done()
		sendCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), s.timeout)
		defer cancel()

		if err := s.write(sendCtx, snap); err != nil {
			s.log.Warn("snapshot not sent", logger.String("symbol", snap.Symbol), logger.Error(err))
			return
		}
		s.metrics.RecordSnapshotSent(s.backend, snap.Symbol)
	}()
}

// Close stops intake, waits for in-flight sends, then closes the backend. Later calls
// are no-ops.
func (s *SnapshotSink) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()

	s.wg.Wait()
	if s.closer == nil {
		return nil
	}
	if err := s.closer(); err != nil {
		return fmt.Errorf("close %s snapshot sink: %w", s.backend, err)
	}
	return nil
}

// SnapshotOf flattens a dashboard. Missing sections leave their fields zero and are listed
// in Unavailable, sorted.
func SnapshotOf(d *models.Dashboard) *models.DashboardSnapshot {
	snap := &models.DashboardSnapshot{
		Symbol:      d.Symbol,
		GeneratedAt: d.GeneratedAt,
		Unavailable: make([]string, 0, len(d.Unavailable)),
	}
	if d.Quote != nil {
		snap.PriceUSD = d.Quote.PriceUSD.InexactFloat64()
		snap.PercentChange24h = d.Quote.PercentChange24h
	}
	if d.Global != nil {
		snap.MarketSentiment = string(d.Global.Sentiment)
	}
	if d.Dominance != nil {
		snap.BTCDominance = d.Dominance.BTCPercent
	}
	if n := len(d.Ohlc); n > 0 {
		snap.LastClose = d.Ohlc[n-1].Close.InexactFloat64()
	}
	if d.Prediction != nil {
		snap.PredictedClose = d.Prediction.PredictedClose.InexactFloat64()
	}

	var sum float64
	var count int
	for _, items := range [][]models.NewsItem{d.NewsCryptoPanic, d.NewsCoinMarketCap} {
		for _, it := range items {
			sum += it.Polarity
			count++
		}
	}
	if count > 0 {
		snap.NewsPolarity = sum / float64(count)
	}

	for section := range d.Unavailable {
		snap.Unavailable = append(snap.Unavailable, section)
	}
	sort.Strings(snap.Unavailable)
	return snap
}

var _ SnapshotRecorder = (*SnapshotSink)(nil)
