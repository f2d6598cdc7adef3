package kafka

import (
	"context"
	"time"

	"github.com/pinghook/pinghook/internal/domain/monitor"
)

// AlertEvents is the outbound event port for the alert pipeline. One event is
// published per status transition into late or down.
type AlertEvents interface {
	PublishAlertFired(ctx context.Context, monitorID int64, from, to monitor.Status, lastPing *time.Time, interval, grace time.Duration) error
}
