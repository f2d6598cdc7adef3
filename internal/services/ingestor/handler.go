package ingestor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pinghook/pinghook/internal/domain/monitor"
	"github.com/pinghook/pinghook/internal/domain/ping"
	"github.com/pinghook/pinghook/internal/repository/postgres"
)

var ErrUnknownToken = errors.New("unknown ping token")

// Handler is the sole externally-triggered write path. A ping is proof of
// liveness as of now, so it forces status to healthy no matter what the
// stored state says.
type Handler struct {
	Monitors   monitor.Repo
	Pings      ping.Repo
	Transactor postgres.Transactor
	Log        *zap.Logger
}

// Ingest resolves the token, appends the ping event and resets the monitor to
// healthy in one transaction. A transaction that loses a race against the
// sweeper is retried once; if the retry fails too, the event write wins and
// status catches up on the next ping or sweep.
func (h *Handler) Ingest(ctx context.Context, token string, now time.Time) (*monitor.Monitor, error) {
	m, err := h.Monitors.GetByToken(ctx, token)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			return nil, ErrUnknownToken
		}
		return nil, fmt.Errorf("resolve token: %w", err)
	}

	apply := func(txCtx context.Context) error {
		if err := h.Pings.Insert(txCtx, &ping.Event{MonitorID: m.ID, ReceivedAt: now}); err != nil {
			return fmt.Errorf("insert ping event: %w", err)
		}
		if err := h.Monitors.RecordPing(txCtx, m.ID, now); err != nil {
			return fmt.Errorf("record ping: %w", err)
		}
		return nil
	}

	if err := h.Transactor.WithTx(ctx, apply); err != nil {
		h.Log.Warn("ping transaction failed; retrying once",
			zap.Int64("monitor_id", m.ID), zap.Error(err))
		if err := h.Transactor.WithTx(ctx, apply); err != nil {
			return nil, fmt.Errorf("apply ping: %w", err)
		}
	}

	m.LastPing = &now
	m.Status = monitor.StatusHealthy
	return m, nil
}
