package kafka

import (
	"context"
	"errors"
	"io"
	"time"

	"github.com/segmentio/kafka-go"
	"go.opentelemetry.io/otel"
	"go.uber.org/zap"
)

// Handler processes one consumed message. A non-nil error leaves the offset
// uncommitted so the message is redelivered.
type Handler func(ctx context.Context, key, value []byte) error

type ConsumerConfig struct {
	Brokers       []string
	GroupID       string
	Topic         string
	FromBeginning bool
	Logger        *zap.Logger
}

type Consumer struct {
	reader *kafka.Reader
	log    *zap.Logger
	cfg    *ConsumerConfig
}

const (
	fetchBackoffMin = 200 * time.Millisecond
	fetchBackoffMax = 5 * time.Second
)

func NewConsumer(cfg *ConsumerConfig) *Consumer {
	if cfg.Logger == nil {
		cfg.Logger = zap.L()
	}

	start := kafka.LastOffset
	if cfg.FromBeginning {
		start = kafka.FirstOffset
	}

	r := kafka.NewReader(kafka.ReaderConfig{
		Brokers:               cfg.Brokers,
		GroupID:               cfg.GroupID,
		Topic:                 cfg.Topic,
		StartOffset:           start,
		WatchPartitionChanges: true,

		MinBytes:          1e3,
		MaxBytes:          10e6,
		SessionTimeout:    10 * time.Second,
		RebalanceTimeout:  15 * time.Second,
		HeartbeatInterval: 3 * time.Second,
	})

	c := &Consumer{reader: r, cfg: cfg}
	c.log = c.scopedLogger(cfg.Logger)
	return c
}

func (c *Consumer) scopedLogger(l *zap.Logger) *zap.Logger {
	return l.With(
		zap.String("component", "kafka.consumer"),
		zap.String("topic", c.cfg.Topic),
		zap.String("group", c.cfg.GroupID),
	)
}

func (c *Consumer) WithLogger(l *zap.Logger) *Consumer {
	if l == nil {
		return c
	}
	cp := *c
	cp.log = cp.scopedLogger(l)
	return &cp
}

// Consume fetches messages until the context is cancelled. Fetch failures are
// retried with exponential backoff; handler failures skip the commit so the
// message comes back on the next rebalance or restart.
func (c *Consumer) Consume(ctx context.Context, h Handler) error {
	c.log.Info("consumer started")

	backoff := fetchBackoffMin
	prop := otel.GetTextMapPropagator()

	for {
		if ctx.Err() != nil {
			c.log.Info("consumer stopped (ctx canceled)")
			return ctx.Err()
		}

		msg, err := c.reader.FetchMessage(ctx)
		if err != nil {
			if ctx.Err() != nil {
				c.log.Info("consumer stopped (ctx canceled)")
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				c.log.Debug("fetch EOF; retry", zap.Duration("backoff", backoff))
			} else {
				c.log.Warn("fetch failed; retry", zap.Error(err), zap.Duration("backoff", backoff))
			}
			time.Sleep(backoff)
			backoff = min(backoff*2, fetchBackoffMax)
			continue
		}
		backoff = fetchBackoffMin

		msgCtx := prop.Extract(ctx, headerReader(msg.Headers))
		if err := h(msgCtx, msg.Key, msg.Value); err != nil {
			c.log.Error("handler error",
				zap.Int("partition", msg.Partition),
				zap.Int64("offset", msg.Offset),
				zap.Error(err))
			continue
		}

		if err := c.reader.CommitMessages(ctx, msg); err != nil {
			if ctx.Err() != nil {
				c.log.Info("commit interrupted by context cancel")
				return ctx.Err()
			}
			c.log.Warn("commit failed; will retry later", zap.Error(err))
		}
	}
}

func (c *Consumer) Close() error { return c.reader.Close() }
