//go:build integration

package integration

import (
	"fmt"
	"strings"
	"testing"
	"time"
)

func TestEmailNotifier_HappyPath(t *testing.T) {
	cfg := LoadCfg()
	MailhogPurge(t, cfg.MailhogAPI)
	EnsureTopic(t, cfg.KafkaBootstrap, cfg.AlertsTopic)

	db := DBOpen(t, cfg.DBDSN)
	defer db.Close()

	ownerID := RandID()
	monitorID := RandID()
	email := fmt.Sprintf("en-%d@example.com", ownerID)

	SeedOwner(t, db, ownerID, email, true)
	// No alert_email on the monitor: delivery must fall back to the owner.
	last := time.Now().UTC().Add(-90 * time.Minute)
	SeedMonitor(t, db, monitorID, ownerID, fmt.Sprintf("entok%d", monitorID), 3600, 300, "down", &last)

	lastStr := last.Format(time.RFC3339)
	PublishJSON(t, cfg.KafkaBootstrap, cfg.AlertsTopic, KeyFromInt64(monitorID), map[string]any{
		"monitor_id":   monitorID,
		"from":         "late",
		"to":           "down",
		"last_ping":    lastStr,
		"interval_sec": 3600,
		"grace_sec":    300,
		"at":           time.Now().UTC().Format(time.RFC3339),
	})

	mh := WaitMailhogCount(t, cfg.MailhogAPI, 1, 60*time.Second)
	if mh.Total < 1 {
		t.Fatalf("no email delivered for monitor %d", monitorID)
	}
	body := mh.Items[0].Content.Body
	if !strings.Contains(body, "DOWN") {
		t.Fatalf("email body missing DOWN marker: %q", body)
	}

	found, payload := FindAlert(t, db, monitorID)
	if !found {
		t.Fatalf("no alerts row recorded for monitor %d", monitorID)
	}
	t.Logf("[notifier] alert recorded, payload len=%d", len(payload))
}

func TestEmailNotifier_MalformedEventIgnored(t *testing.T) {
	cfg := LoadCfg()
	MailhogPurge(t, cfg.MailhogAPI)
	EnsureTopic(t, cfg.KafkaBootstrap, cfg.AlertsTopic)

	PublishJSON(t, cfg.KafkaBootstrap, cfg.AlertsTopic, []byte("bad"), map[string]any{
		"monitor_id": 0,
		"to":         "down",
	})

	// An event without a valid monitor id is dropped, not retried forever.
	ExpectNoMailhog(t, cfg.MailhogAPI, 10*time.Second)
}
