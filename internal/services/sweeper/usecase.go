package sweeper

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/pinghook/pinghook/internal/domain/monitor"
	"github.com/pinghook/pinghook/internal/domain/outbox"
	intoutbox "github.com/pinghook/pinghook/internal/outbox"
	"github.com/pinghook/pinghook/internal/repository/postgres"
	"github.com/pinghook/pinghook/internal/services/sweeper/repo"
)

// errStaleSnapshot marks a conditional update that lost to a concurrent
// write, almost always a ping that arrived mid-sweep.
var errStaleSnapshot = errors.New("monitor snapshot went stale")

type Usecase struct {
	Monitors   repo.MonitorRepo
	Outbox     repo.Outbox
	Transactor postgres.Transactor

	// ResweepAfter is how far FetchDue pushes next_sweep, so one stuck batch
	// does not shadow rows forever and repeated ticks skip fresh rows.
	ResweepAfter time.Duration
}

type Stats struct {
	Scanned      int
	Transitioned int
	Alerted      int
	Errors       int
}

// Sweep re-evaluates every due monitor against now. The sweeper moves status
// only toward worse states; recovery is the ingestor's job, since only a real
// ping proves the job came back.
func (u *Usecase) Sweep(ctx context.Context, now time.Time, limit int) (Stats, error) {
	if limit <= 0 {
		limit = 100
	}

	var st Stats

	tr := otel.Tracer("sweeper.uc")
	ctxSweep, span := tr.Start(ctx, "sweeper.sweep",
		trace.WithAttributes(attribute.Int("batch.limit", limit)),
	)
	defer span.End()

	due, err := u.Monitors.FetchDue(ctxSweep, limit, now, u.ResweepAfter)
	if err != nil {
		span.RecordError(err)
		st.Errors++
		return st, fmt.Errorf("fetch due: %w", err)
	}
	st.Scanned = len(due)
	if len(due) == 0 {
		span.SetAttributes(attribute.Int("batch.fetched", 0))
		return st, nil
	}
	span.SetAttributes(attribute.Int("batch.fetched", len(due)))

	for _, m := range due {
		changed, alerted, err := u.evaluate(ctxSweep, m, now)
		if err != nil {
			st.Errors++
			span.RecordError(err)
			continue
		}
		if changed {
			st.Transitioned++
		}
		if alerted {
			st.Alerted++
		}
	}

	span.SetAttributes(
		attribute.Int("batch.transitioned", st.Transitioned),
		attribute.Int("batch.alerted", st.Alerted),
		attribute.Int("batch.errors", st.Errors),
	)
	return st, nil
}

func (u *Usecase) evaluate(ctx context.Context, m *monitor.Monitor, now time.Time) (changed, alerted bool, err error) {
	changed, alerted, err = u.apply(ctx, m, now)
	if !errors.Is(err, errStaleSnapshot) {
		return changed, alerted, err
	}

	// Lost a race. Re-read once; if the snapshot is stale again the ping
	// path owns the row and this cycle has nothing left to do.
	fresh, rerr := u.Monitors.Reload(ctx, m.ID)
	if rerr != nil {
		return false, false, fmt.Errorf("reload monitor %d: %w", m.ID, rerr)
	}
	changed, alerted, err = u.apply(ctx, fresh, now)
	if errors.Is(err, errStaleSnapshot) {
		return false, false, nil
	}
	return changed, alerted, err
}

// apply computes the transition for one snapshot and persists it together
// with the alert enqueue in a single transaction.
func (u *Usecase) apply(ctx context.Context, m *monitor.Monitor, now time.Time) (changed, alerted bool, err error) {
	newStatus := monitor.ComputeStatus(m.LastPing, m.Interval, m.Grace, now)
	if newStatus == m.Status {
		return false, false, nil
	}
	if newStatus.Severity() <= m.Status.Severity() {
		// Never toward healthy: that would declare recovery without a ping.
		return false, false, nil
	}

	fireAlert := newStatus == monitor.StatusLate || newStatus == monitor.StatusDown

	err = u.Transactor.WithTx(ctx, func(txCtx context.Context) error {
		ok, terr := u.Monitors.TransitionStatus(txCtx, m.ID, m.Status, m.LastPing, newStatus)
		if terr != nil {
			return fmt.Errorf("transition monitor %d: %w", m.ID, terr)
		}
		if !ok {
			return errStaleSnapshot
		}
		if !fireAlert {
			return nil
		}

		payload := intoutbox.AlertFiredPayload{
			MonitorID:   m.ID,
			From:        m.Status,
			To:          newStatus,
			LastPing:    m.LastPing,
			IntervalSec: int64(m.Interval / time.Second),
			GraceSec:    int64(m.Grace / time.Second),
			At:          now.UTC(),
		}
		b, merr := json.Marshal(payload)
		if merr != nil {
			return fmt.Errorf("marshal alert payload: %w", merr)
		}
		key := fmt.Sprintf("alert:%d:%s:%d", m.ID, newStatus, now.UnixNano())

		if oerr := u.Outbox.Enqueue(txCtx, key, outbox.KindAlertFired, b); oerr != nil {
			return fmt.Errorf("outbox enqueue: %w", oerr)
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, errStaleSnapshot) {
			return false, false, errStaleSnapshot
		}
		return false, false, err
	}
	return true, fireAlert, nil
}
