package alert

import (
	"context"
	"time"
)

// Alert is a delivered-notification record, kept for the dashboard history.
// Idempotence of alerting lives in the sweep transition logic, not here.
type Alert struct {
	ID        int64     `json:"id"`
	MonitorID int64     `json:"monitor_id"`
	OwnerID   int64     `json:"owner_id"`
	Status    string    `json:"status"`
	SentAt    time.Time `json:"sent_at"`
	Payload   string    `json:"payload"`
}

type EmailSender interface {
	Send(ctx context.Context, to, subject, body string) error
}

type Clock interface {
	Now() time.Time
}
