package alert

import "context"

type Repo interface {
	Create(ctx context.Context, a *Alert) error
	ListByOwner(ctx context.Context, ownerID int64, limit int) ([]*Alert, error)
}
