package postgres

import (
	"context"
	"fmt"

	"github.com/pinghook/pinghook/internal/domain/alert"
)

var _ alert.Repo = (*AlertRepoImpl)(nil)

type AlertRepoImpl struct{ db *DB }

func NewAlertRepo(db *DB) *AlertRepoImpl { return &AlertRepoImpl{db: db} }

const (
	qAlertInsert = `
INSERT INTO alerts (monitor_id, owner_id, status, sent_at, payload)
VALUES ($1, $2, $3, COALESCE($4, now()), $5)
RETURNING id, sent_at;
`
	qAlertsByOwner = `
SELECT id, monitor_id, owner_id, status, sent_at, payload
FROM alerts
WHERE owner_id = $1
ORDER BY sent_at DESC
LIMIT $2;
`
)

func (r *AlertRepoImpl) Create(ctx context.Context, a *alert.Alert) error {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	if err := r.db.Pool.QueryRow(ctx, qAlertInsert,
		a.MonitorID,
		a.OwnerID,
		a.Status,
		nullTime(a.SentAt),
		a.Payload,
	).Scan(&a.ID, &a.SentAt); err != nil {
		return fmt.Errorf("insert alert: %w", err)
	}
	return nil
}

func (r *AlertRepoImpl) ListByOwner(ctx context.Context, ownerID int64, limit int) ([]*alert.Alert, error) {
	if limit <= 0 {
		limit = 50
	}

	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	rows, err := r.db.Pool.Query(ctx, qAlertsByOwner, ownerID, limit)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	out := make([]*alert.Alert, 0, limit)
	for rows.Next() {
		var a alert.Alert
		if err := rows.Scan(&a.ID, &a.MonitorID, &a.OwnerID, &a.Status, &a.SentAt, &a.Payload); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		ac := a
		out = append(out, &ac)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows: %w", err)
	}
	return out, nil
}
