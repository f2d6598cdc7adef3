package ingestor

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/pinghook/pinghook/internal/domain/monitor"
	"github.com/pinghook/pinghook/internal/domain/ping"
	"github.com/pinghook/pinghook/internal/repository/postgres"
)

type fakeMonitorRepo struct {
	monitor.Repo

	byToken  map[string]*monitor.Monitor
	recorded []time.Time
}

func (f *fakeMonitorRepo) GetByToken(_ context.Context, token string) (*monitor.Monitor, error) {
	m, ok := f.byToken[token]
	if !ok {
		return nil, postgres.ErrNotFound
	}
	cp := *m
	return &cp, nil
}

func (f *fakeMonitorRepo) RecordPing(_ context.Context, _ int64, at time.Time) error {
	f.recorded = append(f.recorded, at)
	return nil
}

type fakePingRepo struct {
	ping.Repo

	inserted []*ping.Event
	failN    int
}

func (f *fakePingRepo) Insert(_ context.Context, e *ping.Event) error {
	if f.failN > 0 {
		f.failN--
		return errors.New("deadlock detected")
	}
	f.inserted = append(f.inserted, e)
	return nil
}

type passthroughTx struct{}

func (passthroughTx) WithTx(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

func newHandler(monitors *fakeMonitorRepo, pings *fakePingRepo) *Handler {
	return &Handler{
		Monitors:   monitors,
		Pings:      pings,
		Transactor: passthroughTx{},
		Log:        zap.NewNop(),
	}
}

func TestIngest_ForcesHealthy(t *testing.T) {
	last := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	monitors := &fakeMonitorRepo{byToken: map[string]*monitor.Monitor{
		"tok123": {ID: 42, OwnerID: 1, Status: monitor.StatusDown, LastPing: &last},
	}}
	pings := &fakePingRepo{}
	h := newHandler(monitors, pings)

	now := time.Date(2025, 6, 3, 9, 0, 0, 0, time.UTC)
	m, err := h.Ingest(context.Background(), "tok123", now)
	require.NoError(t, err)

	// A ping always wins: status resets regardless of how dead the row looked.
	require.Equal(t, monitor.StatusHealthy, m.Status)
	require.NotNil(t, m.LastPing)
	require.Equal(t, now, *m.LastPing)

	require.Len(t, pings.inserted, 1)
	require.Equal(t, int64(42), pings.inserted[0].MonitorID)
	require.Equal(t, []time.Time{now}, monitors.recorded)
}

func TestIngest_UnknownToken(t *testing.T) {
	h := newHandler(&fakeMonitorRepo{byToken: map[string]*monitor.Monitor{}}, &fakePingRepo{})

	_, err := h.Ingest(context.Background(), "nope", time.Now().UTC())
	require.ErrorIs(t, err, ErrUnknownToken)
}

func TestIngest_RetriesTransactionOnce(t *testing.T) {
	monitors := &fakeMonitorRepo{byToken: map[string]*monitor.Monitor{
		"tok": {ID: 1, OwnerID: 1, Status: monitor.StatusPending},
	}}
	pings := &fakePingRepo{failN: 1}
	h := newHandler(monitors, pings)

	m, err := h.Ingest(context.Background(), "tok", time.Now().UTC())
	require.NoError(t, err)
	require.Equal(t, monitor.StatusHealthy, m.Status)
	require.Len(t, pings.inserted, 1)
}

func TestIngest_GivesUpAfterRetry(t *testing.T) {
	monitors := &fakeMonitorRepo{byToken: map[string]*monitor.Monitor{
		"tok": {ID: 1, OwnerID: 1, Status: monitor.StatusPending},
	}}
	pings := &fakePingRepo{failN: 2}
	h := newHandler(monitors, pings)

	_, err := h.Ingest(context.Background(), "tok", time.Now().UTC())
	require.Error(t, err)
	require.NotErrorIs(t, err, ErrUnknownToken)
}
