package repository

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"CoinDash/internal/domain/models"
	domrepo "CoinDash/internal/domain/repository"
	pkgch "CoinDash/pkg/clickhouse"
	pkgkafka "CoinDash/pkg/kafka"
	applogger "CoinDash/pkg/logger"
)

// SnapshotTable is where dashboard snapshots land.
const SnapshotTable = "dashboard_snapshots"

// SnapshotSchema creates the snapshot table. Rows expire after 90 days.
var SnapshotSchema = []string{
	`CREATE TABLE IF NOT EXISTS ` + SnapshotTable + ` (
        generated_at       DateTime64(3, 'UTC'),
        symbol             LowCardinality(String),
        price_usd          Float64,
        percent_change_24h Float64,
        market_sentiment   LowCardinality(String),
        btc_dominance      Float64,
        last_close         Float64,
        predicted_close    Float64,
        news_polarity      Float64,
        unavailable        Array(String)
    ) ENGINE = MergeTree
    ORDER BY (symbol, generated_at)
    TTL toDateTime(generated_at) + INTERVAL 90 DAY`,
}

const snapshotColumns = "generated_at, symbol, price_usd, percent_change_24h, market_sentiment, " +
	"btc_dominance, last_close, predicted_close, news_polarity, unavailable"

// rows per INSERT
const snapshotChunkSize = 1000

// ClickHouseSnapshotStorage implements SnapshotStorage on ClickHouse.
type ClickHouseSnapshotStorage struct {
	client *pkgch.Client
	db     *sql.DB
	table  string
	l      *applogger.Logger
}

func NewClickHouseSnapshotStorage(client *pkgch.Client, l *applogger.Logger) *ClickHouseSnapshotStorage {
	if l == nil {
		l = applogger.Nop()
	}
	return &ClickHouseSnapshotStorage{client: client, db: client.DB(), table: SnapshotTable, l: l}
}

func (s *ClickHouseSnapshotStorage) Init(ctx context.Context) error {
	return s.client.InitSchema(ctx, SnapshotSchema)
}

func (s *ClickHouseSnapshotStorage) Store(ctx context.Context, snap *models.DashboardSnapshot) error {
	return s.StoreBatch(ctx, []*models.DashboardSnapshot{snap})
}

func (s *ClickHouseSnapshotStorage) StoreBatch(ctx context.Context, snaps []*models.DashboardSnapshot) error {
	for start := 0; start < len(snaps); start += snapshotChunkSize {
		end := start + snapshotChunkSize
		if end > len(snaps) {
			end = len(snaps)
		}
		q, args := buildSnapshotInsert(s.table, snaps[start:end])
		if q == "" {
			continue
		}
		if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
			s.l.Error("clickhouse snapshot insert error",
				applogger.String("table", s.table),
				applogger.Int("rows", end-start),
				applogger.Error(err),
			)
			return fmt.Errorf("store snapshots: %w", err)
		}
	}
	return nil
}

// Recent returns the newest snapshots of symbol, newest first.
func (s *ClickHouseSnapshotStorage) Recent(ctx context.Context, symbol string, limit int) ([]*models.DashboardSnapshot, error) {
	if limit <= 0 {
		limit = 100
	}
	q := fmt.Sprintf("SELECT %s FROM %s WHERE symbol = ? ORDER BY generated_at DESC LIMIT ?", snapshotColumns, s.table)
	rows, err := s.db.QueryContext(ctx, q, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("recent snapshots: %w", err)
	}
	defer rows.Close()

	out := make([]*models.DashboardSnapshot, 0, limit)
	for rows.Next() {
		var snap models.DashboardSnapshot
		if err := rows.Scan(
			&snap.GeneratedAt,
			&snap.Symbol,
			&snap.PriceUSD,
			&snap.PercentChange24h,
			&snap.MarketSentiment,
			&snap.BTCDominance,
			&snap.LastClose,
			&snap.PredictedClose,
			&snap.NewsPolarity,
			&snap.Unavailable,
		); err != nil {
			return nil, fmt.Errorf("scan snapshot: %w", err)
		}
		out = append(out, &snap)
	}
	return out, rows.Err()
}

func (s *ClickHouseSnapshotStorage) Health(ctx context.Context) error {
	return s.client.Health(ctx)
}

// Close is a no-op; the client is owned by the caller.
func (s *ClickHouseSnapshotStorage) Close() error {
	return nil
}

// buildSnapshotInsert renders one multi-row INSERT. Rows without a symbol are skipped.
func buildSnapshotInsert(table string, snaps []*models.DashboardSnapshot) (string, []interface{}) {
	values := make([]string, 0, len(snaps))
	args := make([]interface{}, 0, len(snaps)*10)
	for _, snap := range snaps {
		if snap == nil || snap.Symbol == "" {
			continue
		}
		unavailable := snap.Unavailable
		if unavailable == nil {
			unavailable = []string{}
		}
		values = append(values, "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?)")
		args = append(args,
			snap.GeneratedAt.UTC(),
			snap.Symbol,
			snap.PriceUSD,
			snap.PercentChange24h,
			snap.MarketSentiment,
			snap.BTCDominance,
			snap.LastClose,
			snap.PredictedClose,
			snap.NewsPolarity,
			unavailable,
		)
	}
	if len(values) == 0 {
		return "", nil
	}
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s", table, snapshotColumns, strings.Join(values, ","))
	return q, args
}

// KafkaSnapshotPublisher implements SnapshotPublisher. Snapshots are keyed by symbol so
// one coin's history stays ordered within a partition.
type KafkaSnapshotPublisher struct {
	producer *pkgkafka.Producer
	topic    string
}

func NewKafkaSnapshotPublisher(producer *pkgkafka.Producer, topic string) *KafkaSnapshotPublisher {
	return &KafkaSnapshotPublisher{producer: producer, topic: topic}
}

func (p *KafkaSnapshotPublisher) Publish(ctx context.Context, snap *models.DashboardSnapshot) error {
	if err := p.producer.Publish(ctx, p.topic, []byte(snap.Symbol), snap); err != nil {
		return fmt.Errorf("publish snapshot %s: %w", snap.Symbol, err)
	}
	return nil
}

// Close is a no-op; the producer is shared with the log collector.
func (p *KafkaSnapshotPublisher) Close() error {
	return nil
}

var (
	_ domrepo.SnapshotStorage   = (*ClickHouseSnapshotStorage)(nil)
	_ domrepo.SnapshotPublisher = (*KafkaSnapshotPublisher)(nil)
)
