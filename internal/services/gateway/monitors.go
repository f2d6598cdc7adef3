package gateway

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pinghook/pinghook/internal/domain/monitor"
	"github.com/pinghook/pinghook/internal/repository/postgres"
	"github.com/pinghook/pinghook/internal/services/registry"
)

type createMonitorRequest struct {
	Name        string `json:"name"`
	IntervalSec int64  `json:"interval_sec"`
	GraceSec    int64  `json:"grace_sec"`
	AlertEmail  string `json:"alert_email"`
}

type monitorResponse struct {
	ID          int64      `json:"id"`
	Name        string     `json:"name"`
	Token       string     `json:"token"`
	IntervalSec int64      `json:"interval_sec"`
	GraceSec    int64      `json:"grace_sec"`
	AlertEmail  string     `json:"alert_email,omitempty"`
	Status      string     `json:"status"`
	LastPing    *time.Time `json:"last_ping"`
	CreatedAt   time.Time  `json:"created_at"`
}

func toMonitorResponse(m *monitor.Monitor) monitorResponse {
	return monitorResponse{
		ID:          m.ID,
		Name:        m.Name,
		Token:       m.Token,
		IntervalSec: int64(m.Interval / time.Second),
		GraceSec:    int64(m.Grace / time.Second),
		AlertEmail:  m.AlertEmail,
		Status:      string(m.Status),
		LastPing:    m.LastPing,
		CreatedAt:   m.CreatedAt,
	}
}

func (s *Server) handleCreateMonitor(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := OwnerIDFromCtx(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "auth required")
		return
	}

	var req createMonitorRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid json")
		return
	}

	m, err := s.registry.Create(r.Context(), ownerID, req.Name,
		time.Duration(req.IntervalSec)*time.Second,
		time.Duration(req.GraceSec)*time.Second,
		req.AlertEmail,
	)
	if err != nil {
		switch {
		case errors.Is(err, registry.ErrEmptyName),
			errors.Is(err, registry.ErrInvalidInterval),
			errors.Is(err, registry.ErrInvalidGrace):
			respondError(w, http.StatusBadRequest, err.Error())
		default:
			s.log.Error("create monitor", zap.Error(err))
			respondError(w, http.StatusInternalServerError, "internal server error")
		}
		return
	}

	respondJSON(w, http.StatusCreated, toMonitorResponse(m))
}

func (s *Server) handleListMonitors(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := OwnerIDFromCtx(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "auth required")
		return
	}

	list, err := s.registry.List(r.Context(), ownerID)
	if err != nil {
		s.log.Error("list monitors", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	out := make([]monitorResponse, 0, len(list))
	for _, m := range list {
		out = append(out, toMonitorResponse(m))
	}
	respondJSON(w, http.StatusOK, out)
}

func (s *Server) handleGetMonitor(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := OwnerIDFromCtx(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "auth required")
		return
	}
	id, err := monitorID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid monitor id")
		return
	}

	m, err := s.registry.Get(r.Context(), ownerID, id)
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			respondError(w, http.StatusNotFound, "monitor not found")
			return
		}
		s.log.Error("get monitor", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, toMonitorResponse(m))
}

func (s *Server) handleDeleteMonitor(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := OwnerIDFromCtx(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "auth required")
		return
	}
	id, err := monitorID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid monitor id")
		return
	}

	if err := s.registry.Delete(r.Context(), ownerID, id); err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			respondError(w, http.StatusNotFound, "monitor not found")
			return
		}
		s.log.Error("delete monitor", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handlePingHistory(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := OwnerIDFromCtx(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "auth required")
		return
	}
	id, err := monitorID(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, "invalid monitor id")
		return
	}

	events, err := s.registry.PingHistory(r.Context(), ownerID, id, limitParam(r))
	if err != nil {
		if errors.Is(err, postgres.ErrNotFound) {
			respondError(w, http.StatusNotFound, "monitor not found")
			return
		}
		s.log.Error("ping history", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, events)
}

func (s *Server) handleAlertHistory(w http.ResponseWriter, r *http.Request) {
	ownerID, ok := OwnerIDFromCtx(r.Context())
	if !ok {
		respondError(w, http.StatusUnauthorized, "auth required")
		return
	}

	alerts, err := s.registry.AlertHistory(r.Context(), ownerID, limitParam(r))
	if err != nil {
		s.log.Error("alert history", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}
	respondJSON(w, http.StatusOK, alerts)
}

func monitorID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("bad id")
	}
	return id, nil
}

func limitParam(r *http.Request) int {
	v := r.URL.Query().Get("limit")
	if v == "" {
		return 0
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0
	}
	return n
}
