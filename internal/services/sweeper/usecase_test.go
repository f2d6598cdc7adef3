package sweeper

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pinghook/pinghook/internal/domain/monitor"
	"github.com/pinghook/pinghook/internal/domain/outbox"
	intoutbox "github.com/pinghook/pinghook/internal/outbox"
	"github.com/pinghook/pinghook/internal/repository/postgres"
	"github.com/pinghook/pinghook/internal/services/sweeper/repo"
)

type fakeMonitors struct {
	monitor.Repo

	rows map[int64]*monitor.Monitor
	due  []int64

	reloads     int
	transitions int
}

func (f *fakeMonitors) FetchDue(_ context.Context, limit int, _ time.Time, _ time.Duration) ([]*monitor.Monitor, error) {
	var out []*monitor.Monitor
	for _, id := range f.due {
		if len(out) == limit {
			break
		}
		cp := *f.rows[id]
		out = append(out, &cp)
	}
	return out, nil
}

func (f *fakeMonitors) Reload(_ context.Context, id int64) (*monitor.Monitor, error) {
	m, ok := f.rows[id]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMonitors) TransitionStatus(_ context.Context, id int64, prev monitor.Status, prevLastPing *time.Time, newStatus monitor.Status) (bool, error) {
	f.transitions++
	m, ok := f.rows[id]
	if !ok {
		return false, nil
	}
	if m.Status != prev {
		return false, nil
	}
	if (m.LastPing == nil) != (prevLastPing == nil) {
		return false, nil
	}
	if m.LastPing != nil && !m.LastPing.Equal(*prevLastPing) {
		return false, nil
	}
	m.Status = newStatus
	return true, nil
}

type fakeOutbox struct {
	outbox.Repository

	keys     []string
	payloads [][]byte
}

func (f *fakeOutbox) Enqueue(_ context.Context, key string, _ outbox.Kind, data []byte) error {
	f.keys = append(f.keys, key)
	f.payloads = append(f.payloads, data)
	return nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newUC(monitors *fakeMonitors, ob *fakeOutbox) *Usecase {
	return &Usecase{
		Monitors:     repo.MonitorRepo{R: monitors},
		Outbox:       repo.Outbox{R: ob},
		Transactor:   passthroughTx{},
		ResweepAfter: 15 * time.Second,
	}
}

func ts(s string) time.Time {
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		panic(err)
	}
	return t
}

func TestSweep_HealthyToLate_FiresOneAlert(t *testing.T) {
	last := ts("2025-06-01T10:00:00Z")
	monitors := &fakeMonitors{
		rows: map[int64]*monitor.Monitor{
			1: {ID: 1, OwnerID: 5, Status: monitor.StatusHealthy, LastPing: &last,
				Interval: time.Hour, Grace: 10 * time.Minute},
		},
		due: []int64{1},
	}
	ob := &fakeOutbox{}
	uc := newUC(monitors, ob)

	now := ts("2025-06-01T11:05:00Z")
	st, err := uc.Sweep(context.Background(), now, 100)
	require.NoError(t, err)
	require.Equal(t, Stats{Scanned: 1, Transitioned: 1, Alerted: 1}, st)
	require.Equal(t, monitor.StatusLate, monitors.rows[1].Status)

	require.Len(t, ob.payloads, 1)
	var p intoutbox.AlertFiredPayload
	require.NoError(t, json.Unmarshal(ob.payloads[0], &p))
	require.Equal(t, int64(1), p.MonitorID)
	require.Equal(t, monitor.StatusHealthy, p.From)
	require.Equal(t, monitor.StatusLate, p.To)
	require.Equal(t, int64(3600), p.IntervalSec)
	require.Equal(t, int64(600), p.GraceSec)
}

func TestSweep_LateToDown_FiresAgain(t *testing.T) {
	last := ts("2025-06-01T10:00:00Z")
	monitors := &fakeMonitors{
		rows: map[int64]*monitor.Monitor{
			1: {ID: 1, Status: monitor.StatusLate, LastPing: &last,
				Interval: time.Hour, Grace: 10 * time.Minute},
		},
		due: []int64{1},
	}
	ob := &fakeOutbox{}
	uc := newUC(monitors, ob)

	st, err := uc.Sweep(context.Background(), ts("2025-06-01T11:30:00Z"), 100)
	require.NoError(t, err)
	require.Equal(t, 1, st.Alerted)
	require.Equal(t, monitor.StatusDown, monitors.rows[1].Status)
}

func TestSweep_NoChange_NoAlert(t *testing.T) {
	last := ts("2025-06-01T10:00:00Z")
	monitors := &fakeMonitors{
		rows: map[int64]*monitor.Monitor{
			1: {ID: 1, Status: monitor.StatusHealthy, LastPing: &last,
				Interval: time.Hour, Grace: 0},
		},
		due: []int64{1},
	}
	ob := &fakeOutbox{}
	uc := newUC(monitors, ob)

	// Still inside the interval, so nothing happens.
	st, err := uc.Sweep(context.Background(), ts("2025-06-01T10:30:00Z"), 100)
	require.NoError(t, err)
	require.Equal(t, Stats{Scanned: 1}, st)
	require.Zero(t, monitors.transitions)
	require.Empty(t, ob.keys)
}

func TestSweep_AlreadyDown_StaysQuiet(t *testing.T) {
	last := ts("2025-06-01T00:00:00Z")
	monitors := &fakeMonitors{
		rows: map[int64]*monitor.Monitor{
			1: {ID: 1, Status: monitor.StatusDown, LastPing: &last,
				Interval: time.Hour, Grace: 0},
		},
		due: []int64{1},
	}
	ob := &fakeOutbox{}
	uc := newUC(monitors, ob)

	// Repeated sweeps over a dead monitor must not re-alert.
	for i := 0; i < 3; i++ {
		st, err := uc.Sweep(context.Background(), ts("2025-06-02T00:00:00Z"), 100)
		require.NoError(t, err)
		require.Zero(t, st.Alerted)
	}
	require.Empty(t, ob.keys)
}

func TestSweep_NeverMovesTowardHealthy(t *testing.T) {
	// Stored status says down, but a fresh ping landed between FetchDue and
	// evaluation. ComputeStatus now says healthy; the sweeper must not touch it.
	last := ts("2025-06-01T11:59:00Z")
	monitors := &fakeMonitors{
		rows: map[int64]*monitor.Monitor{
			1: {ID: 1, Status: monitor.StatusDown, LastPing: &last,
				Interval: time.Hour, Grace: 0},
		},
		due: []int64{1},
	}
	ob := &fakeOutbox{}
	uc := newUC(monitors, ob)

	st, err := uc.Sweep(context.Background(), ts("2025-06-01T12:00:00Z"), 100)
	require.NoError(t, err)
	require.Equal(t, Stats{Scanned: 1}, st)
	require.Equal(t, monitor.StatusDown, monitors.rows[1].Status)
	require.Zero(t, monitors.transitions)
}

func TestSweep_PendingStaysPending(t *testing.T) {
	monitors := &fakeMonitors{
		rows: map[int64]*monitor.Monitor{
			1: {ID: 1, Status: monitor.StatusPending, LastPing: nil,
				Interval: time.Minute, Grace: 0},
		},
		due: []int64{1},
	}
	ob := &fakeOutbox{}
	uc := newUC(monitors, ob)

	// Never-pinged monitors do not age into down; they wait for a first ping.
	st, err := uc.Sweep(context.Background(), ts("2025-07-01T00:00:00Z"), 100)
	require.NoError(t, err)
	require.Zero(t, st.Transitioned)
	require.Empty(t, ob.keys)
}

type racingMonitors struct {
	*fakeMonitors
	raceOnce bool
}

func (r *racingMonitors) TransitionStatus(ctx context.Context, id int64, prev monitor.Status, prevLastPing *time.Time, newStatus monitor.Status) (bool, error) {
	if r.raceOnce {
		r.raceOnce = false
		// Simulate a ping landing after the snapshot was taken.
		fresh := time.Now().UTC()
		r.rows[id].LastPing = &fresh
		r.rows[id].Status = monitor.StatusHealthy
		return false, nil
	}
	return r.fakeMonitors.TransitionStatus(ctx, id, prev, prevLastPing, newStatus)
}

func TestSweep_StaleSnapshot_ReloadsAndYieldsToPing(t *testing.T) {
	last := ts("2025-06-01T10:00:00Z")
	inner := &fakeMonitors{
		rows: map[int64]*monitor.Monitor{
			1: {ID: 1, Status: monitor.StatusHealthy, LastPing: &last,
				Interval: time.Hour, Grace: 0},
		},
		due: []int64{1},
	}
	monitors := &racingMonitors{fakeMonitors: inner, raceOnce: true}
	ob := &fakeOutbox{}
	uc := &Usecase{
		Monitors:   repo.MonitorRepo{R: monitors},
		Outbox:     repo.Outbox{R: ob},
		Transactor: passthroughTx{},
	}

	st, err := uc.Sweep(context.Background(), ts("2025-06-01T12:00:00Z"), 100)
	require.NoError(t, err)
	require.Zero(t, st.Errors)
	require.Zero(t, st.Transitioned)
	// The reloaded snapshot is healthy again, so the sweep backs off.
	require.Equal(t, monitor.StatusHealthy, inner.rows[1].Status)
	require.Empty(t, ob.keys)
}

func TestSweep_BatchLimit(t *testing.T) {
	last := ts("2025-06-01T00:00:00Z")
	rows := make(map[int64]*monitor.Monitor)
	var due []int64
	for i := int64(1); i <= 5; i++ {
		rows[i] = &monitor.Monitor{ID: i, Status: monitor.StatusHealthy, LastPing: &last,
			Interval: time.Minute, Grace: 0}
		due = append(due, i)
	}
	monitors := &fakeMonitors{rows: rows, due: due}
	ob := &fakeOutbox{}
	uc := newUC(monitors, ob)

	st, err := uc.Sweep(context.Background(), ts("2025-06-02T00:00:00Z"), 3)
	require.NoError(t, err)
	require.Equal(t, 3, st.Scanned)
	require.Equal(t, 3, st.Alerted)
}
