package repo

import (
	"context"

	"github.com/pinghook/pinghook/internal/domain/alert"
	"github.com/pinghook/pinghook/internal/domain/monitor"
	"github.com/pinghook/pinghook/internal/domain/owner"
)

type MonitorReader struct{ R monitor.Repo }
type OwnerReader struct{ R owner.Repo }
type AlertRepo struct{ R alert.Repo }

func (a MonitorReader) GetByID(ctx context.Context, id int64) (*monitor.Monitor, error) {
	m, err := a.R.Reload(ctx, id)
	if err != nil {
		return nil, err
	}
	return &monitor.Monitor{
		ID: m.ID, OwnerID: m.OwnerID, Name: m.Name,
		AlertEmail: m.AlertEmail, Status: m.Status, LastPing: m.LastPing,
	}, nil
}

func (a OwnerReader) GetByID(ctx context.Context, id int64) (*owner.Owner, error) {
	o, err := a.R.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return &owner.Owner{ID: o.ID, Email: o.Email, Active: o.Active}, nil
}

func (a AlertRepo) Create(ctx context.Context, rec *alert.Alert) error {
	return a.R.Create(ctx, &alert.Alert{
		MonitorID: rec.MonitorID, OwnerID: rec.OwnerID, Status: rec.Status,
		SentAt: rec.SentAt, Payload: rec.Payload,
	})
}
