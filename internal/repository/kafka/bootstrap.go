package kafka

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// BootstrapConsumer makes sure the topic exists before the consumer group
// joins it. Topic creation failures are not fatal; the consumer will retry
// fetching on its own.
func BootstrapConsumer(ctx context.Context, cfg *ConsumerConfig, logger *zap.Logger) *Consumer {
	spec := TopicSpec{Name: cfg.Topic, MaxWait: 5 * time.Second}
	_ = EnsureTopic(ctx, cfg.Brokers, spec, logger)
	return NewConsumer(cfg)
}
