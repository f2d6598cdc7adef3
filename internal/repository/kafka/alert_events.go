package kafka

import (
	"context"
	"time"

	domainkafka "github.com/pinghook/pinghook/internal/domain/kafka"
	"github.com/pinghook/pinghook/internal/domain/monitor"
)

// AlertFired is the wire format of one alert event on the alerts topic.
type AlertFired struct {
	MonitorID   int64          `json:"monitor_id"`
	From        monitor.Status `json:"from"`
	To          monitor.Status `json:"to"`
	LastPing    *time.Time     `json:"last_ping"`
	IntervalSec int64          `json:"interval_sec"`
	GraceSec    int64          `json:"grace_sec"`
	At          time.Time      `json:"at"`
}

type AlertEventsKafka struct {
	p *Producer
}

func NewAlertEventsKafka(p *Producer) *AlertEventsKafka { return &AlertEventsKafka{p: p} }

var _ domainkafka.AlertEvents = (*AlertEventsKafka)(nil)

func (e *AlertEventsKafka) PublishAlertFired(ctx context.Context, monitorID int64, from, to monitor.Status, lastPing *time.Time, interval, grace time.Duration) error {
	return e.p.PublishJSON(ctx, KeyFromInt64(monitorID), &AlertFired{
		MonitorID:   monitorID,
		From:        from,
		To:          to,
		LastPing:    lastPing,
		IntervalSec: int64(interval / time.Second),
		GraceSec:    int64(grace / time.Second),
		At:          time.Now().UTC(),
	})
}
