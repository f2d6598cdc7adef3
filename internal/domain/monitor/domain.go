package monitor

import "time"

// Status is the derived liveness state of a monitored job.
type Status string

const (
	StatusPending Status = "pending"
	StatusHealthy Status = "healthy"
	StatusLate    Status = "late"
	StatusDown    Status = "down"
)

// Severity orders statuses from best to worst. Alerts fire only when a
// monitor moves to a strictly worse status.
func (s Status) Severity() int {
	switch s {
	case StatusPending:
		return 0
	case StatusHealthy:
		return 1
	case StatusLate:
		return 2
	case StatusDown:
		return 3
	}
	return 0
}

type Monitor struct {
	ID         int64         `json:"id"`
	OwnerID    int64         `json:"owner_id"`
	Name       string        `json:"name"`
	Token      string        `json:"-"`
	Interval   time.Duration `json:"interval"`
	Grace      time.Duration `json:"grace"`
	AlertEmail string        `json:"alert_email,omitempty"`
	Status     Status        `json:"status"`
	LastPing   *time.Time    `json:"last_ping"`
	CreatedAt  time.Time     `json:"created_at"`
	UpdatedAt  time.Time     `json:"updated_at"`
}

// ComputeStatus derives liveness from the last ping alone. It is the single
// status function shared by the ingest and sweep paths.
//
// Band edges are inclusive on the healthy side: elapsed == interval is still
// healthy, elapsed == interval+grace is still late.
func ComputeStatus(lastPing *time.Time, interval, grace time.Duration, now time.Time) Status {
	if lastPing == nil {
		return StatusPending
	}
	elapsed := now.Sub(*lastPing)
	switch {
	case elapsed <= interval:
		return StatusHealthy
	case elapsed <= interval+grace:
		return StatusLate
	default:
		return StatusDown
	}
}
