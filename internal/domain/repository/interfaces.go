package repository

import (
	"context"
	"errors"
	"time"

	"CoinDash/internal/domain/models"
)

var (
	ErrSessionNotFound  = errors.New("session not found")
	ErrInvalidSessionID = errors.New("invalid session id")
)

// SessionStore keeps the caller-held coin selection between requests. Reads and writes
// both extend the session lifetime.
type SessionStore interface {
	Get(ctx context.Context, sessionID string) (models.Selection, error)
	Save(ctx context.Context, sessionID string, sel models.Selection) error
	Delete(ctx context.Context, sessionID string) error
	Health(ctx context.Context) error
}

// SnapshotPublisher ships dashboard snapshots to a message bus.
type SnapshotPublisher interface {
	Publish(ctx context.Context, snap *models.DashboardSnapshot) error
	Close() error
}

// SnapshotStorage persists dashboard snapshots.
type SnapshotStorage interface {
	Init(ctx context.Context) error
	Store(ctx context.Context, snap *models.DashboardSnapshot) error
	StoreBatch(ctx context.Context, snaps []*models.DashboardSnapshot) error
	Recent(ctx context.Context, symbol string, limit int) ([]*models.DashboardSnapshot, error)
	Health(ctx context.Context) error
	Close() error
}

type Metrics interface {
	RecordProviderCall(provider, op string, d time.Duration, err error)
	RecordSection(section string, available bool)
	RecordBuild(d time.Duration)
	RecordSnapshotSent(backend, symbol string)
	RecordLastPrice(symbol string, price float64)
}

// NopMetrics discards everything.
type NopMetrics struct{}

func (NopMetrics) RecordProviderCall(string, string, time.Duration, error) {}
func (NopMetrics) RecordSection(string, bool)                              {}
func (NopMetrics) RecordBuild(time.Duration)                               {}
func (NopMetrics) RecordSnapshotSent(string, string)                       {}
func (NopMetrics) RecordLastPrice(string, float64)                         {}
