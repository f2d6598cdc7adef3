package repo

import (
	"context"
	"time"

	"github.com/pinghook/pinghook/internal/domain/monitor"
	"github.com/pinghook/pinghook/internal/domain/outbox"
)

type MonitorRepo struct{ R monitor.Repo }
type Outbox struct{ R outbox.Repository }

func (a MonitorRepo) FetchDue(ctx context.Context, limit int, now time.Time, resweepAfter time.Duration) ([]*monitor.Monitor, error) {
	return a.R.FetchDue(ctx, limit, now, resweepAfter)
}

func (a MonitorRepo) Reload(ctx context.Context, id int64) (*monitor.Monitor, error) {
	return a.R.Reload(ctx, id)
}

func (a MonitorRepo) TransitionStatus(ctx context.Context, id int64, prev monitor.Status, prevLastPing *time.Time, newStatus monitor.Status) (bool, error) {
	return a.R.TransitionStatus(ctx, id, prev, prevLastPing, newStatus)
}

func (o Outbox) Enqueue(ctx context.Context, key string, kind outbox.Kind, data []byte) error {
	return o.R.Enqueue(ctx, key, kind, data)
}
