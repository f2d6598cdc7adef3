package postgres

import (
	"context"
	"fmt"

	"github.com/pinghook/pinghook/internal/domain/ping"
)

var _ ping.Repo = (*PingRepoImpl)(nil)

type PingRepoImpl struct{ db *DB }

func NewPingRepo(db *DB) *PingRepoImpl { return &PingRepoImpl{db: db} }

const (
	qPingInsert = `
INSERT INTO ping_events (monitor_id, received_at)
VALUES ($1, $2)
RETURNING id;
`
	qPingsByMonitor = `
SELECT id, monitor_id, received_at
FROM ping_events
WHERE monitor_id = $1
ORDER BY received_at DESC
LIMIT $2;
`
)

func (r *PingRepoImpl) Insert(ctx context.Context, e *ping.Event) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	eq := r.db.execQueryer(ctx)
	return eq.QueryRow(ctx, qPingInsert, e.MonitorID, e.ReceivedAt).Scan(&e.ID)
}

func (r *PingRepoImpl) ListByMonitor(ctx context.Context, monitorID int64, limit int) ([]*ping.Event, error) {
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qPingsByMonitor, monitorID, limit)
	if err != nil {
		return nil, fmt.Errorf("query ping events: %w", err)
	}
	defer rows.Close()

	out := make([]*ping.Event, 0, limit)
	for rows.Next() {
		var e ping.Event
		if err := rows.Scan(&e.ID, &e.MonitorID, &e.ReceivedAt); err != nil {
			return nil, fmt.Errorf("scan ping event: %w", err)
		}
		ec := e
		out = append(out, &ec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
