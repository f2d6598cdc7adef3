package notifier

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pinghook/pinghook/internal/domain/alert"
	"github.com/pinghook/pinghook/internal/domain/monitor"
	"github.com/pinghook/pinghook/internal/domain/owner"
	"github.com/pinghook/pinghook/internal/services/email-notifier/repo"
)

type fakeMonitorRepo struct {
	monitor.Repo
	m *monitor.Monitor
}

func (f *fakeMonitorRepo) Reload(_ context.Context, id int64) (*monitor.Monitor, error) {
	if f.m == nil || f.m.ID != id {
		return nil, errors.New("not found")
	}
	cp := *f.m
	return &cp, nil
}

type fakeOwnerRepo struct {
	o *owner.Owner
}

func (f *fakeOwnerRepo) GetByID(_ context.Context, id int64) (*owner.Owner, error) {
	if f.o == nil || f.o.ID != id {
		return nil, errors.New("not found")
	}
	cp := *f.o
	return &cp, nil
}

type fakeAlertRepo struct {
	alert.Repo
	created []*alert.Alert
	fail    bool
}

func (f *fakeAlertRepo) Create(_ context.Context, a *alert.Alert) error {
	if f.fail {
		return errors.New("insert failed")
	}
	f.created = append(f.created, a)
	return nil
}

type fakeSender struct {
	to, subject, body string
	calls             int
	fail              bool
}

func (f *fakeSender) Send(_ context.Context, to, subject, body string) error {
	f.calls++
	if f.fail {
		return errors.New("smtp down")
	}
	f.to, f.subject, f.body = to, subject, body
	return nil
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

func newTestHandler(m *monitor.Monitor, o *owner.Owner, sender *fakeSender, store *fakeAlertRepo) *Handler {
	return &Handler{
		Monitors: repo.MonitorReader{R: &fakeMonitorRepo{m: m}},
		Owners:   repo.OwnerReader{R: &fakeOwnerRepo{o: o}},
		Store:    repo.AlertRepo{R: store},
		Out:      sender,
		Clock:    fixedClock{t: time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)},
		Log:      zap.NewNop(),
	}
}

func downEvent(monitorID int64) AlertFired {
	last := time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC)
	return AlertFired{
		MonitorID: monitorID,
		From:      monitor.StatusLate,
		To:        monitor.StatusDown,
		LastPing:  &last,
		Interval:  time.Hour,
		Grace:     10 * time.Minute,
		At:        time.Date(2025, 6, 1, 11, 15, 0, 0, time.UTC),
	}
}

func TestHandleAlertFired_SendsAndRecords(t *testing.T) {
	m := &monitor.Monitor{ID: 1, OwnerID: 5, Name: "nightly-backup", AlertEmail: "ops@example.com"}
	o := &owner.Owner{ID: 5, Email: "owner@example.com", Active: true}
	sender := &fakeSender{}
	store := &fakeAlertRepo{}
	h := newTestHandler(m, o, sender, store)

	require.NoError(t, h.HandleAlertFired(context.Background(), downEvent(1)))

	require.Equal(t, "ops@example.com", sender.to)
	require.Contains(t, sender.subject, "down")
	require.Contains(t, sender.subject, "nightly-backup")
	require.Contains(t, sender.body, "DOWN")
	require.Contains(t, sender.body, "2025-06-01T10:00:00Z")

	require.Len(t, store.created, 1)
	require.Equal(t, int64(1), store.created[0].MonitorID)
	require.Equal(t, int64(5), store.created[0].OwnerID)
	require.Equal(t, string(monitor.StatusDown), store.created[0].Status)
}

func TestHandleAlertFired_FallsBackToOwnerEmail(t *testing.T) {
	m := &monitor.Monitor{ID: 1, OwnerID: 5, Name: "job", AlertEmail: ""}
	o := &owner.Owner{ID: 5, Email: "owner@example.com", Active: true}
	sender := &fakeSender{}
	h := newTestHandler(m, o, sender, &fakeAlertRepo{})

	require.NoError(t, h.HandleAlertFired(context.Background(), downEvent(1)))
	require.Equal(t, "owner@example.com", sender.to)
}

func TestHandleAlertFired_LateWording(t *testing.T) {
	m := &monitor.Monitor{ID: 1, OwnerID: 5, Name: "job", AlertEmail: "ops@example.com"}
	o := &owner.Owner{ID: 5, Email: "owner@example.com"}
	sender := &fakeSender{}
	h := newTestHandler(m, o, sender, &fakeAlertRepo{})

	ev := downEvent(1)
	ev.From = monitor.StatusHealthy
	ev.To = monitor.StatusLate
	require.NoError(t, h.HandleAlertFired(context.Background(), ev))
	require.Contains(t, sender.subject, "late")
	require.Contains(t, sender.body, "LATE")
	require.Contains(t, sender.body, "grace period")
}

func TestHandleAlertFired_SendFailurePropagates(t *testing.T) {
	m := &monitor.Monitor{ID: 1, OwnerID: 5, Name: "job", AlertEmail: "ops@example.com"}
	o := &owner.Owner{ID: 5, Email: "owner@example.com"}
	sender := &fakeSender{fail: true}
	store := &fakeAlertRepo{}
	h := newTestHandler(m, o, sender, store)

	err := h.HandleAlertFired(context.Background(), downEvent(1))
	require.Error(t, err)
	require.Empty(t, store.created, "no history row when the mail never left")
}

func TestHandleAlertFired_RecordFailureIsNotFatal(t *testing.T) {
	m := &monitor.Monitor{ID: 1, OwnerID: 5, Name: "job", AlertEmail: "ops@example.com"}
	o := &owner.Owner{ID: 5, Email: "owner@example.com"}
	sender := &fakeSender{}
	store := &fakeAlertRepo{fail: true}
	h := newTestHandler(m, o, sender, store)

	// The mail already left; failing to write history must not trigger a
	// redelivery by the consumer.
	require.NoError(t, h.HandleAlertFired(context.Background(), downEvent(1)))
	require.Equal(t, 1, sender.calls)
}

func TestRenderAlertMail_NeverPinged(t *testing.T) {
	ev := downEvent(1)
	ev.LastPing = nil
	_, body := renderAlertMail("job", ev)
	require.True(t, strings.Contains(body, "Last ping: never"))
}
