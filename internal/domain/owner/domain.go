package owner

import (
	"context"
	"time"
)

// Owner is the projection of an account this core needs: a recipient address
// and whether the account still counts for sweeping. Plan is carried for the
// policy layer and never consulted by the state machine.
type Owner struct {
	ID        int64     `json:"id"`
	Email     string    `json:"email"`
	Active    bool      `json:"active"`
	Plan      string    `json:"plan"`
	CreatedAt time.Time `json:"created_at"`
}

type Repo interface {
	GetByID(ctx context.Context, id int64) (*Owner, error)
}
