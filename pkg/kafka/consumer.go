package kafka

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"sync"
	"time"

	applogger "CoinDash/pkg/logger"

	"github.com/segmentio/kafka-go"
)

// MessageHandler handles messages from a specific topic.
type MessageHandler interface {
	Topic() string
	Handle(context.Context, []byte) error
}

// Consumer reads registered topics through a consumer group and fans messages out to a
// worker pool. Offsets are committed after the handler succeeds or retries are exhausted.
type Consumer struct {
	cfg      *ConsumerConfig
	log      *applogger.Logger
	readers  map[string]*kafka.Reader
	handlers map[string]MessageHandler
	msgChan  chan message
	cancel   context.CancelFunc
	wg       sync.WaitGroup
	stopOnce sync.Once
}

type message struct {
	reader  *kafka.Reader
	handler MessageHandler
	km      kafka.Message
}

// NewConsumer creates a new Kafka consumer.
func NewConsumer(l *applogger.Logger, opts ...ConsumerOption) (*Consumer, error) {
	cfg := &ConsumerConfig{
		GroupID:     "coindash",
		WorkerCount: 1,
		BufferSize:  16,
		RetryMax:    3,
		BackoffMin:  100 * time.Millisecond,
		BackoffMax:  2 * time.Second,
	}

	for _, opt := range opts {
		opt(cfg)
	}

	if len(cfg.Brokers) == 0 {
		return nil, fmt.Errorf("brokers are required")
	}
	if l == nil {
		l = applogger.Nop()
	}

	return &Consumer{
		cfg:      cfg,
		log:      l,
		readers:  make(map[string]*kafka.Reader),
		handlers: make(map[string]MessageHandler),
		msgChan:  make(chan message, cfg.BufferSize),
	}, nil
}

// RegisterHandler registers a handler for its topic. Must be called before Start.
func (c *Consumer) RegisterHandler(handler MessageHandler) {
	topic := handler.Topic()
	if _, ok := c.handlers[topic]; ok {
		c.log.Warn("kafka handler already registered", applogger.String("topic", topic))
		return
	}
	c.handlers[topic] = handler
}

// Start launches one reader per topic and the worker pool.
func (c *Consumer) Start(ctx context.Context) error {
	if len(c.handlers) == 0 {
		return fmt.Errorf("no handlers registered")
	}

	ctx, c.cancel = context.WithCancel(ctx)

	for topic, handler := range c.handlers {
		reader := kafka.NewReader(kafka.ReaderConfig{
			Brokers:  c.cfg.Brokers,
			Topic:    topic,
			GroupID:  c.cfg.GroupID,
			MinBytes: 1,
			MaxBytes: 10e6,
		})
		c.readers[topic] = reader

		c.wg.Add(1)
		go c.consume(ctx, reader, handler)
	}

	var workers sync.WaitGroup
	for i := 0; i < c.cfg.WorkerCount; i++ {
		workers.Add(1)
		go func() {
			defer workers.Done()
			c.work(ctx)
		}()
	}
	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		workers.Wait()
	}()

	c.log.Info("kafka consumer started",
		applogger.Int("topics", len(c.readers)),
		applogger.Int("workers", c.cfg.WorkerCount),
	)
	return nil
}

// Stop cancels reading, waits for in-flight handlers and closes the readers.
func (c *Consumer) Stop(ctx context.Context) error {
	var stopErr error

	c.stopOnce.Do(func() {
		if c.cancel != nil {
			c.cancel()
		}

		done := make(chan struct{})
		go func() {
			c.wg.Wait()
			close(done)
		}()

		select {
		case <-ctx.Done():
			stopErr = fmt.Errorf("timeout waiting for consumer to stop: %w", ctx.Err())
		case <-done:
		}

		for topic, reader := range c.readers {
			if err := reader.Close(); err != nil {
				c.log.Warn("kafka reader close failed", applogger.String("topic", topic), applogger.Error(err))
			}
		}
	})

	return stopErr
}

func (c *Consumer) consume(ctx context.Context, reader *kafka.Reader, handler MessageHandler) {
	defer c.wg.Done()

	for {
		km, err := reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, context.Canceled) {
				return
			}
			c.log.Warn("kafka fetch failed", applogger.String("topic", handler.Topic()), applogger.Error(err))
			if !sleepCtx(ctx, time.Second) {
				return
			}
			continue
		}

		select {
		case c.msgChan <- message{reader: reader, handler: handler, km: km}:
		case <-ctx.Done():
			return
		}
	}
}

func (c *Consumer) work(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case msg := <-c.msgChan:
			c.handle(ctx, msg)
		}
	}
}

func (c *Consumer) handle(ctx context.Context, msg message) {
	topic := msg.handler.Topic()

	var err error
	for attempt := 1; ; attempt++ {
		err = c.safeHandle(ctx, msg)
		if err == nil || attempt > c.cfg.RetryMax {
			break
		}
		if !sleepCtx(ctx, backoffWithJitter(c.cfg.BackoffMin, c.cfg.BackoffMax, attempt)) {
			return
		}
	}
	if err != nil {
		c.log.Error("kafka handler failed, skipping message",
			applogger.String("topic", topic),
			applogger.Int64("offset", msg.km.Offset),
			applogger.Error(err),
		)
	}

	commitCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := msg.reader.CommitMessages(commitCtx, msg.km); err != nil {
		c.log.Warn("kafka commit failed", applogger.String("topic", topic), applogger.Error(err))
	}
}

func (c *Consumer) safeHandle(ctx context.Context, msg message) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("handler panic: %v", r)
		}
	}()
	return msg.handler.Handle(ctx, msg.km.Value)
}

func sleepCtx(ctx context.Context, d time.Duration) bool {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return false
	case <-t.C:
		return true
	}
}

func backoffWithJitter(min, max time.Duration, attempt int) time.Duration {
	if min <= 0 {
		min = 50 * time.Millisecond
	}
	if max < min {
		max = min
	}
	exp := min * time.Duration(1<<uint(attempt-1))
	if exp > max || exp <= 0 {
		exp = max
	}
	// up to 50% jitter
	jitter := time.Duration(rand.Int63n(int64(exp)/2 + 1))
	return exp - jitter
}
