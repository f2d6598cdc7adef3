package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/pinghook/pinghook/internal/domain/owner"
)

var _ owner.Repo = (*OwnerRepoImpl)(nil)

type OwnerRepoImpl struct{ db *DB }

func NewOwnerRepo(db *DB) *OwnerRepoImpl { return &OwnerRepoImpl{db: db} }

const qOwnerGetByID = `
SELECT id, email, active, plan, created_at
FROM owners
WHERE id = $1;
`

func (r *OwnerRepoImpl) GetByID(ctx context.Context, id int64) (*owner.Owner, error) {
	ctx, cancel := r.db.withTimeout(ctx)
	defer cancel()

	var o owner.Owner
	if err := r.db.Pool.QueryRow(ctx, qOwnerGetByID, id).Scan(
		&o.ID, &o.Email, &o.Active, &o.Plan, &o.CreatedAt,
	); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("scan owner: %w", err)
	}
	return &o, nil
}
