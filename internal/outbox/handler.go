package outbox

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"

	"github.com/pinghook/pinghook/internal/domain/monitor"
	"github.com/pinghook/pinghook/internal/domain/outbox"
	"github.com/pinghook/pinghook/internal/obs/retry"
	kafkax "github.com/pinghook/pinghook/internal/repository/kafka"
)

// AlertFiredPayload is what the sweeper enqueues in the same transaction as
// the status transition.
type AlertFiredPayload struct {
	MonitorID   int64          `json:"monitor_id"`
	From        monitor.Status `json:"from"`
	To          monitor.Status `json:"to"`
	LastPing    *time.Time     `json:"last_ping"`
	IntervalSec int64          `json:"interval_sec"`
	GraceSec    int64          `json:"grace_sec"`
	At          time.Time      `json:"at"`
}

var (
	outboxHandlerLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "outbox_handler_latency_seconds",
		Help:    "Latency of outbox handlers (publish, http, etc.)",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})
	outboxHandlerErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "outbox_handler_errors_total",
		Help: "Errors in outbox handlers (after retries).",
	}, []string{"kind"})
)

func instrument(kind string, h outbox.KindHandler, pol retry.Policy) outbox.KindHandler {
	tr := otel.Tracer("outbox.handler")
	if pol.Name == "" {
		pol.Name = "outbox_" + kind
	}
	return func(ctx context.Context, data []byte) error {
		ctx, span := tr.Start(ctx, "outbox.handle")
		defer span.End()

		start := time.Now()
		err := retry.Do(ctx, func() error { return h(ctx, data) }, pol)
		outboxHandlerLatency.WithLabelValues(kind).Observe(time.Since(start).Seconds())
		if err != nil {
			span.RecordError(err)
			outboxHandlerErrors.WithLabelValues(kind).Inc()
		}
		return err
	}
}

func MakeGlobalOutboxHandler(pub *kafkax.AlertEventsKafka, pol retry.Policy) outbox.GlobalHandler {
	return func(kind outbox.Kind) (outbox.KindHandler, error) {
		switch kind {
		case outbox.KindAlertFired:
			base := func(ctx context.Context, data []byte) error {
				var p AlertFiredPayload
				if err := json.Unmarshal(data, &p); err != nil {
					return fmt.Errorf("unmarshal alert-fired payload: %w", err)
				}
				return pub.PublishAlertFired(ctx, p.MonitorID, p.From, p.To, p.LastPing,
					time.Duration(p.IntervalSec)*time.Second, time.Duration(p.GraceSec)*time.Second)
			}
			return instrument("alert_fired", base, pol), nil
		default:
			return nil, fmt.Errorf("unsupported outbox kind: %d", kind)
		}
	}
}
