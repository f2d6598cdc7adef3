package monitor

import (
	"context"
	"time"
)

type Repo interface {
	Create(ctx context.Context, m *Monitor) error
	GetByID(ctx context.Context, ownerID, id int64) (*Monitor, error)
	GetByToken(ctx context.Context, token string) (*Monitor, error)

	// Reload re-reads a monitor without tenant scoping; used by the sweeper
	// to refresh its snapshot after losing a conditional update.
	Reload(ctx context.Context, id int64) (*Monitor, error)
	ListByOwner(ctx context.Context, ownerID int64) ([]*Monitor, error)
	Delete(ctx context.Context, ownerID, id int64) error
	TokenExists(ctx context.Context, token string) (bool, error)

	// RecordPing sets last_ping and forces status to healthy in one statement.
	RecordPing(ctx context.Context, id int64, at time.Time) error

	// FetchDue returns monitors whose owner is active and whose next_sweep
	// has passed, bumping next_sweep so concurrent sweepers skip them.
	FetchDue(ctx context.Context, limit int, now time.Time, resweepAfter time.Duration) ([]*Monitor, error)

	// TransitionStatus applies newStatus only while the stored
	// (status, last_ping) pair still matches what the sweeper read.
	// Returns false when a concurrent write invalidated the snapshot.
	TransitionStatus(ctx context.Context, id int64, prev Status, prevLastPing *time.Time, newStatus Status) (bool, error)
}
