package logger

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memPublisher struct {
	mu      sync.Mutex
	topics  []string
	batches [][]AggregatedLogEntry
}

func (p *memPublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topics = append(p.topics, topic)
	p.batches = append(p.batches, payload.([]AggregatedLogEntry))
	return nil
}

func (p *memPublisher) all() []AggregatedLogEntry {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []AggregatedLogEntry
	for _, b := range p.batches {
		out = append(out, b...)
	}
	return out
}

func TestCollectorDeduplicatesAndFlushesOnClose(t *testing.T) {
	pub := &memPublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 10, Topic: "logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		c.AddLog("error", "provider down", map[string]interface{}{"provider": "binance"}, "x.go:1")
	}
	c.AddLog("error", "provider down", map[string]interface{}{"provider": "coinlore"}, "x.go:1")
	assert.Equal(t, 2, c.Pending())

	c.Close()

	entries := pub.all()
	require.Len(t, entries, 2)
	counts := map[interface{}]int{}
	for _, e := range entries {
		counts[e.Fields["provider"]] = e.Count
	}
	assert.Equal(t, 3, counts["binance"])
	assert.Equal(t, 1, counts["coinlore"])
	assert.Equal(t, []string{"logs"}, pub.topics)
}

func TestCollectorFlushesAtThreshold(t *testing.T) {
	pub := &memPublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 2, Topic: "logs", Publisher: pub})
	defer c.Close()

	c.AddLog("error", "a", nil, "x.go:1")
	c.AddLog("error", "b", nil, "x.go:2")

	assert.Eventually(t, func() bool { return len(pub.all()) == 2 }, time.Second, 10*time.Millisecond)
	assert.Equal(t, 0, c.Pending())
}

func TestCollectorDropsAfterClose(t *testing.T) {
	pub := &memPublisher{}
	c := NewLogCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 1, Topic: "logs", Publisher: pub})
	c.Close()

	c.AddLog("error", "late", nil, "x.go:1")
	assert.Equal(t, 0, c.Pending())
	assert.Empty(t, pub.all())
}

func TestLoggerFeedsCollectorOnlyWithErrors(t *testing.T) {
	pub := &memPublisher{}
	l := Nop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Topic: "logs", Publisher: pub})

	child := l.With(String("component", "test"))
	child.Info("fine")
	child.Warn("meh")
	child.Error("broken", String("section", "ohlc"))
	l.RemoveCollector()

	entries := pub.all()
	require.Len(t, entries, 1)
	assert.Equal(t, "broken", entries[0].Message)
	assert.Equal(t, "ohlc", entries[0].Fields["section"])
}
