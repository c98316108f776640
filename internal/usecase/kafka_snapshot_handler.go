package usecase

import (
	"context"
	"encoding/json"
	"fmt"

	"CoinDash/internal/domain/models"
	domrepo "CoinDash/internal/domain/repository"
	pkgkafka "CoinDash/pkg/kafka"
)

// KafkaSnapshotHandler consumes published snapshots and writes them to storage.
type KafkaSnapshotHandler struct {
	topic   string
	storage domrepo.SnapshotStorage
	metrics domrepo.Metrics
}

func NewKafkaSnapshotHandler(topic string, storage domrepo.SnapshotStorage, metrics domrepo.Metrics) *KafkaSnapshotHandler {
	if metrics == nil {
		metrics = domrepo.NopMetrics{}
	}
	return &KafkaSnapshotHandler{topic: topic, storage: storage, metrics: metrics}
}

func (h *KafkaSnapshotHandler) Topic() string { return h.topic }

func (h *KafkaSnapshotHandler) Handle(ctx context.Context, b []byte) error {
	var snap models.DashboardSnapshot
	if err := json.Unmarshal(b, &snap); err != nil {
		return fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.Symbol == "" {
		return fmt.Errorf("decode snapshot: empty symbol")
	}
	if err := h.storage.Store(ctx, &snap); err != nil {
		return err
	}
	h.metrics.RecordSnapshotSent(SnapshotBackendClickHouse, snap.Symbol)
	return nil
}

var _ pkgkafka.MessageHandler = (*KafkaSnapshotHandler)(nil)
