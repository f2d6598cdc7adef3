package notifier

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/pinghook/pinghook/internal/domain/alert"
	"github.com/pinghook/pinghook/internal/domain/monitor"
	"github.com/pinghook/pinghook/internal/services/email-notifier/repo"
)

// AlertFired is the decoded event driving one notification.
type AlertFired struct {
	MonitorID int64
	From      monitor.Status
	To        monitor.Status
	LastPing  *time.Time
	Interval  time.Duration
	Grace     time.Duration
	At        time.Time
}

type Handler struct {
	Monitors repo.MonitorReader
	Owners   repo.OwnerReader
	Store    repo.AlertRepo
	Out      alert.EmailSender
	Clock    alert.Clock
	Log      *zap.Logger
}

// HandleAlertFired sends exactly one email per event. The recipient is the
// monitor's alert address, falling back to the owner's account email.
func (h *Handler) HandleAlertFired(ctx context.Context, ev AlertFired) error {
	m, err := h.Monitors.GetByID(ctx, ev.MonitorID)
	if err != nil {
		return fmt.Errorf("get monitor: %w", err)
	}

	o, err := h.Owners.GetByID(ctx, m.OwnerID)
	if err != nil {
		return fmt.Errorf("get owner: %w", err)
	}

	to := m.AlertEmail
	if to == "" {
		to = o.Email
	}

	subject, body := renderAlertMail(m.Name, ev)

	if err := h.Out.Send(ctx, to, subject, body); err != nil {
		return fmt.Errorf("send email: %w", err)
	}

	if err := h.Store.Create(ctx, &alert.Alert{
		MonitorID: m.ID,
		OwnerID:   o.ID,
		Status:    string(ev.To),
		SentAt:    h.Clock.Now().UTC(),
		Payload:   body,
	}); err != nil {
		// The mail already left; an unrecorded history row is not worth a
		// redelivery on retry.
		h.Log.Warn("record alert", zap.Int64("monitor_id", m.ID), zap.Error(err))
	}

	return nil
}

func renderAlertMail(name string, ev AlertFired) (subject, body string) {
	lastPing := "never"
	if ev.LastPing != nil {
		lastPing = ev.LastPing.UTC().Format(time.RFC3339)
	}

	switch ev.To {
	case monitor.StatusDown:
		subject = fmt.Sprintf("Cron monitor down: %s", name)
		body = fmt.Sprintf(
			"Hello!\n\nYour cron monitor %q has gone DOWN.\n\nLast ping: %s\nExpected every: %s (grace %s)\nDetected at: %s\n\nThe job has not reported within its expected interval plus grace period.\n\n— PingHook",
			name, lastPing, ev.Interval, ev.Grace, ev.At.UTC().Format(time.RFC3339),
		)
	default:
		subject = fmt.Sprintf("Cron monitor late: %s", name)
		body = fmt.Sprintf(
			"Hello!\n\nYour cron monitor %q is running LATE.\n\nLast ping: %s\nExpected every: %s (grace %s)\nDetected at: %s\n\nIt will be marked down when the grace period runs out.\n\n— PingHook",
			name, lastPing, ev.Interval, ev.Grace, ev.At.UTC().Format(time.RFC3339),
		)
	}
	return subject, body
}
