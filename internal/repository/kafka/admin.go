package kafka

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/segmentio/kafka-go"
	"go.uber.org/zap"
)

// TopicSpec describes a topic that must exist before services start consuming
// or producing on it.
type TopicSpec struct {
	Name              string
	NumPartitions     int
	ReplicationFactor int
	MaxWait           time.Duration
}

func (s *TopicSpec) applyDefaults() {
	if s.NumPartitions <= 0 {
		s.NumPartitions = 1
	}
	if s.ReplicationFactor <= 0 {
		s.ReplicationFactor = 1
	}
	if s.MaxWait <= 0 {
		s.MaxWait = 5 * time.Second
	}
}

// EnsureTopic creates the topic on the cluster controller if it does not exist
// yet, then polls partition metadata until the topic is visible or MaxWait
// elapses. An unconfirmed topic is logged but not treated as an error so that
// callers keep working against clusters with slow metadata propagation.
func EnsureTopic(ctx context.Context, brokers []string, spec TopicSpec, log *zap.Logger) error {
	if log == nil {
		log = zap.NewNop()
	}
	spec.applyDefaults()

	conn, err := kafka.DialContext(ctx, "tcp", brokers[0])
	if err != nil {
		log.Warn("kafka dial failed", zap.Error(err))
		return err
	}
	defer conn.Close()

	ctrl, err := conn.Controller()
	if err != nil {
		log.Warn("kafka controller lookup failed", zap.Error(err))
		return err
	}
	ctrlConn, err := kafka.DialContext(ctx, "tcp", net.JoinHostPort(ctrl.Host, strconv.Itoa(ctrl.Port)))
	if err != nil {
		log.Warn("kafka controller dial failed", zap.Error(err))
		return err
	}
	defer ctrlConn.Close()

	if err := ctrlConn.CreateTopics(kafka.TopicConfig{
		Topic:             spec.Name,
		NumPartitions:     spec.NumPartitions,
		ReplicationFactor: spec.ReplicationFactor,
	}); err != nil {
		// Likely already exists; the readiness poll below decides.
		log.Debug("create topic", zap.String("topic", spec.Name), zap.Error(err))
	}

	deadline := time.Now().Add(spec.MaxWait)
	for time.Now().Before(deadline) {
		parts, err := conn.ReadPartitions(spec.Name)
		if err == nil && len(parts) > 0 {
			log.Info("topic ready", zap.String("topic", spec.Name), zap.Int("partitions", len(parts)))
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(200 * time.Millisecond):
		}
	}
	log.Warn("topic not confirmed ready in time", zap.String("topic", spec.Name))
	return nil
}
