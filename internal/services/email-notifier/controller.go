package notifier

import (
	"context"
	"time"

	"go.uber.org/zap"

	kafkax "github.com/pinghook/pinghook/internal/repository/kafka"
)

type Controller struct {
	Log *zap.Logger
	Sub *kafkax.Consumer
	UC  *Handler
}

func (c *Controller) Run(ctx context.Context) error {
	handler := kafkax.JSONHandler(
		func(ctx context.Context, _ []byte, ev *kafkax.AlertFired) error {
			if ev.MonitorID <= 0 {
				c.Log.Warn("alert-fired: invalid monitor_id", zap.Int64("monitor_id", ev.MonitorID))
				return nil
			}
			dto := AlertFired{
				MonitorID: ev.MonitorID,
				From:      ev.From,
				To:        ev.To,
				LastPing:  ev.LastPing,
				Interval:  time.Duration(ev.IntervalSec) * time.Second,
				Grace:     time.Duration(ev.GraceSec) * time.Second,
				At:        ev.At,
			}
			return c.UC.HandleAlertFired(ctx, dto)
		},
	)
	return c.Sub.Consume(ctx, handler)
}
