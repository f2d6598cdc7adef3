package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/pinghook/pinghook/internal/domain/alert"
	"github.com/pinghook/pinghook/internal/domain/monitor"
	"github.com/pinghook/pinghook/internal/domain/ping"
)

var (
	ErrEmptyName       = errors.New("name must not be empty")
	ErrInvalidInterval = errors.New("interval must be > 0")
	ErrInvalidGrace    = errors.New("grace must be >= 0")
)

// tokenRetries bounds collision re-draws; with a 16-char token a single
// collision is already astronomically unlikely.
const tokenRetries = 5

type Usecase struct {
	monitors monitor.Repo
	pings    ping.Repo
	alerts   alert.Repo
	clk      func() time.Time
}

func New(monitors monitor.Repo, pings ping.Repo, alerts alert.Repo, clk func() time.Time) *Usecase {
	if clk == nil {
		clk = func() time.Time { return time.Now().UTC() }
	}
	return &Usecase{monitors: monitors, pings: pings, alerts: alerts, clk: clk}
}

func (u *Usecase) Create(ctx context.Context, ownerID int64, name string, interval, grace time.Duration, alertEmail string) (*monitor.Monitor, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, ErrEmptyName
	}
	if interval <= 0 {
		return nil, ErrInvalidInterval
	}
	if grace < 0 {
		return nil, ErrInvalidGrace
	}

	token, err := u.allocateToken(ctx)
	if err != nil {
		return nil, err
	}

	m := &monitor.Monitor{
		OwnerID:    ownerID,
		Name:       name,
		Token:      token,
		Interval:   interval,
		Grace:      grace,
		AlertEmail: strings.TrimSpace(alertEmail),
		Status:     monitor.StatusPending,
	}
	if err := u.monitors.Create(ctx, m); err != nil {
		return nil, err
	}
	return m, nil
}

func (u *Usecase) allocateToken(ctx context.Context) (string, error) {
	for i := 0; i < tokenRetries; i++ {
		token, err := newToken()
		if err != nil {
			return "", err
		}
		taken, err := u.monitors.TokenExists(ctx, token)
		if err != nil {
			return "", fmt.Errorf("check token: %w", err)
		}
		if !taken {
			return token, nil
		}
	}
	return "", errors.New("could not allocate a unique token")
}

func (u *Usecase) Get(ctx context.Context, ownerID, id int64) (*monitor.Monitor, error) {
	return u.monitors.GetByID(ctx, ownerID, id)
}

func (u *Usecase) List(ctx context.Context, ownerID int64) ([]*monitor.Monitor, error) {
	return u.monitors.ListByOwner(ctx, ownerID)
}

// Delete removes the monitor; ping events and alerts go with it by cascade.
func (u *Usecase) Delete(ctx context.Context, ownerID, id int64) error {
	return u.monitors.Delete(ctx, ownerID, id)
}

// PingHistory returns the newest events first. Ownership is checked before
// touching the event table.
func (u *Usecase) PingHistory(ctx context.Context, ownerID, id int64, limit int) ([]*ping.Event, error) {
	if _, err := u.monitors.GetByID(ctx, ownerID, id); err != nil {
		return nil, err
	}
	return u.pings.ListByMonitor(ctx, id, limit)
}

func (u *Usecase) AlertHistory(ctx context.Context, ownerID int64, limit int) ([]*alert.Alert, error) {
	return u.alerts.ListByOwner(ctx, ownerID, limit)
}
