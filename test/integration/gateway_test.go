//go:build integration

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/pinghook/pinghook/internal/auth"
)

func bearer(t *testing.T, cfg Cfg, ownerID int64) string {
	t.Helper()
	now := time.Now().Unix()
	tok, err := auth.AccessClaims{
		Sub: fmt.Sprintf("%d", ownerID),
		Iat: now - 10,
		Exp: now + 3600,
	}.SignedString([]byte(cfg.JWTSecret))
	if err != nil {
		t.Fatalf("[auth] sign: %v", err)
	}
	return tok
}

type monitorDTO struct {
	ID          int64  `json:"id"`
	Name        string `json:"name"`
	Token       string `json:"token"`
	IntervalSec int64  `json:"interval_sec"`
	Status      string `json:"status"`
}

func TestGateway_CreatePingLifecycle(t *testing.T) {
	cfg := LoadCfg()
	WaitHealthz(t, cfg.GWHealthURL, 60*time.Second)

	db := DBOpen(t, cfg.DBDSN)
	defer db.Close()

	ownerID := RandID()
	SeedOwner(t, db, ownerID, fmt.Sprintf("it-gw-%d@example.com", ownerID), true)
	tok := bearer(t, cfg, ownerID)

	body, _ := json.Marshal(map[string]any{
		"name":         "it-nightly",
		"interval_sec": 3600,
		"grace_sec":    300,
	})
	created := HTTPDoJSON(t, http.MethodPost, cfg.GWBaseURL+"/v1/monitors", tok, body, http.StatusCreated)

	var m monitorDTO
	if err := json.Unmarshal(created, &m); err != nil {
		t.Fatalf("unmarshal created monitor: %v body=%s", err, string(created))
	}
	if m.Token == "" || m.Status != "pending" {
		t.Fatalf("unexpected monitor: %+v", m)
	}
	t.Logf("[gw] created monitor id=%d token=%s", m.ID, m.Token)

	// Public ping flips it to healthy without auth.
	_ = HTTPDoJSON(t, http.MethodGet, cfg.GWBaseURL+"/ping/"+m.Token, "", nil, http.StatusOK)
	WaitMonitorStatus(t, db, m.ID, "healthy", 10*time.Second)

	// Unknown token is a 404, not an auth error.
	_ = HTTPDoJSON(t, http.MethodGet, cfg.GWBaseURL+"/ping/nosuchtoken12345", "", nil, http.StatusNotFound)

	// History shows the ping.
	hist := HTTPDoJSON(t, http.MethodGet, fmt.Sprintf("%s/v1/monitors/%d/pings", cfg.GWBaseURL, m.ID), tok, nil, http.StatusOK)
	var events []map[string]any
	if err := json.Unmarshal(hist, &events); err != nil {
		t.Fatalf("unmarshal ping history: %v body=%s", err, string(hist))
	}
	if len(events) == 0 {
		t.Fatalf("ping history empty")
	}

	_ = HTTPDoJSON(t, http.MethodDelete, fmt.Sprintf("%s/v1/monitors/%d", cfg.GWBaseURL, m.ID), tok, nil, http.StatusNoContent)
}

func TestGateway_AuthRequired(t *testing.T) {
	cfg := LoadCfg()
	WaitHealthz(t, cfg.GWHealthURL, 60*time.Second)

	_ = HTTPDoJSON(t, http.MethodGet, cfg.GWBaseURL+"/v1/monitors", "", nil, http.StatusUnauthorized)
	_ = HTTPDoJSON(t, http.MethodGet, cfg.GWBaseURL+"/v1/monitors", "garbage-token", nil, http.StatusUnauthorized)
}
