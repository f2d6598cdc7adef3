package postgres

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"github.com/pinghook/pinghook/internal/domain/monitor"
)

var _ monitor.Repo = (*MonitorRepoImpl)(nil)

type MonitorRepoImpl struct {
	db *DB
}

func NewMonitorRepo(db *DB) *MonitorRepoImpl { return &MonitorRepoImpl{db: db} }

const (
	qMonInsert = `
INSERT INTO monitors (owner_id, name, token, interval_sec, grace_sec, alert_email, status, next_sweep)
VALUES ($1, $2, $3, $4, $5, $6, 'pending', NOW())
RETURNING id, owner_id, name, token, interval_sec, grace_sec, alert_email, status, last_ping, created_at, updated_at;
`

	qMonGetByID = `
SELECT id, owner_id, name, token, interval_sec, grace_sec, alert_email, status, last_ping, created_at, updated_at
FROM monitors
WHERE id = $1 AND owner_id = $2;
`

	qMonGetByToken = `
SELECT id, owner_id, name, token, interval_sec, grace_sec, alert_email, status, last_ping, created_at, updated_at
FROM monitors
WHERE token = $1;
`

	qMonReload = `
SELECT id, owner_id, name, token, interval_sec, grace_sec, alert_email, status, last_ping, created_at, updated_at
FROM monitors
WHERE id = $1;
`

	qMonListByOwner = `
SELECT id, owner_id, name, token, interval_sec, grace_sec, alert_email, status, last_ping, created_at, updated_at
FROM monitors
WHERE owner_id = $1
ORDER BY id DESC;
`

	qMonDelete = `DELETE FROM monitors WHERE id = $1 AND owner_id = $2;`

	qMonTokenExists = `SELECT EXISTS (SELECT 1 FROM monitors WHERE token = $1);`

	qMonRecordPing = `
UPDATE monitors
SET last_ping = $2, status = 'healthy', updated_at = NOW()
WHERE id = $1;
`

	qMonFetchDue = `
SELECT m.id, m.owner_id, m.name, m.token, m.interval_sec, m.grace_sec, m.alert_email, m.status, m.last_ping, m.created_at, m.updated_at
FROM monitors m
JOIN owners o ON o.id = m.owner_id
WHERE o.active = TRUE AND m.next_sweep <= $2
ORDER BY m.next_sweep
FOR UPDATE OF m SKIP LOCKED
LIMIT $1;
`

	qMonBumpNextSweep = `
UPDATE monitors
SET next_sweep = $2
WHERE id = ANY($1);
`

	qMonTransition = `
UPDATE monitors
SET status = $2, updated_at = NOW()
WHERE id = $1 AND status = $3 AND last_ping IS NOT DISTINCT FROM $4;
`
)

func scanMonitor(row pgx.Row, m *monitor.Monitor) error {
	var (
		intervalSec int64
		graceSec    int64
		alertEmail  *string
	)
	if err := row.Scan(
		&m.ID,
		&m.OwnerID,
		&m.Name,
		&m.Token,
		&intervalSec,
		&graceSec,
		&alertEmail,
		&m.Status,
		&m.LastPing,
		&m.CreatedAt,
		&m.UpdatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return ErrNotFound
		}
		return fmt.Errorf("scan monitor: %w", err)
	}
	m.Interval = time.Duration(intervalSec) * time.Second
	m.Grace = time.Duration(graceSec) * time.Second
	if alertEmail != nil {
		m.AlertEmail = *alertEmail
	}
	return nil
}

func (r *MonitorRepoImpl) Create(ctx context.Context, m *monitor.Monitor) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var alertEmail *string
	if m.AlertEmail != "" {
		alertEmail = &m.AlertEmail
	}

	row := r.db.Pool.QueryRow(ctx, qMonInsert,
		m.OwnerID, m.Name, m.Token,
		int64(m.Interval/time.Second), int64(m.Grace/time.Second),
		alertEmail,
	)
	return scanMonitor(row, m)
}

func (r *MonitorRepoImpl) GetByID(ctx context.Context, ownerID, id int64) (*monitor.Monitor, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var m monitor.Monitor
	if err := scanMonitor(r.db.Pool.QueryRow(ctx, qMonGetByID, id, ownerID), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MonitorRepoImpl) GetByToken(ctx context.Context, token string) (*monitor.Monitor, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var m monitor.Monitor
	eq := r.db.execQueryer(ctx)
	if err := scanMonitor(eq.QueryRow(ctx, qMonGetByToken, token), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MonitorRepoImpl) Reload(ctx context.Context, id int64) (*monitor.Monitor, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var m monitor.Monitor
	eq := r.db.execQueryer(ctx)
	if err := scanMonitor(eq.QueryRow(ctx, qMonReload, id), &m); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *MonitorRepoImpl) ListByOwner(ctx context.Context, ownerID int64) ([]*monitor.Monitor, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qMonListByOwner, ownerID)
	if err != nil {
		return nil, fmt.Errorf("query monitors: %w", err)
	}
	defer rows.Close()

	var out []*monitor.Monitor
	for rows.Next() {
		var m monitor.Monitor
		if err := scanMonitor(rows, &m); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}

func (r *MonitorRepoImpl) Delete(ctx context.Context, ownerID, id int64) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	cmd, err := r.db.Pool.Exec(ctx, qMonDelete, id, ownerID)
	if err != nil {
		return fmt.Errorf("delete monitor: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MonitorRepoImpl) TokenExists(ctx context.Context, token string) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, qMonTokenExists, token).Scan(&exists); err != nil {
		return false, fmt.Errorf("token exists: %w", err)
	}
	return exists, nil
}

func (r *MonitorRepoImpl) RecordPing(ctx context.Context, id int64, at time.Time) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	cmd, err := eq.Exec(ctx, qMonRecordPing, id, at)
	if err != nil {
		return fmt.Errorf("record ping: %w", err)
	}
	if cmd.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *MonitorRepoImpl) FetchDue(ctx context.Context, limit int, now time.Time, resweepAfter time.Duration) ([]*monitor.Monitor, error) {
	if limit <= 0 {
		limit = 100
	}
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	tx, err := r.db.Pool.Begin(ctx)
	if err != nil {
		return nil, fmt.Errorf("begin: %w", err)
	}
	defer func() { _ = tx.Rollback(ctx) }()

	rows, err := tx.Query(ctx, qMonFetchDue, limit, now)
	if err != nil {
		return nil, fmt.Errorf("fetch due: %w", err)
	}
	defer rows.Close()

	var (
		out []*monitor.Monitor
		ids []int64
	)
	for rows.Next() {
		var m monitor.Monitor
		if err := scanMonitor(rows, &m); err != nil {
			return nil, err
		}
		out = append(out, &m)
		ids = append(ids, m.ID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	if len(ids) == 0 {
		return nil, nil
	}

	if _, err := tx.Exec(ctx, qMonBumpNextSweep, ids, now.Add(resweepAfter)); err != nil {
		return nil, fmt.Errorf("bump next_sweep: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return nil, fmt.Errorf("commit: %w", err)
	}
	return out, nil
}

func (r *MonitorRepoImpl) TransitionStatus(ctx context.Context, id int64, prev monitor.Status, prevLastPing *time.Time, newStatus monitor.Status) (bool, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	cmd, err := eq.Exec(ctx, qMonTransition, id, newStatus, prev, prevLastPing)
	if err != nil {
		return false, fmt.Errorf("transition status: %w", err)
	}
	return cmd.RowsAffected() > 0, nil
}
