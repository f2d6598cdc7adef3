package gateway

import (
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/pinghook/pinghook/internal/services/ingestor"
)

type pingResponse struct {
	Success   bool      `json:"success"`
	Message   string    `json:"message"`
	Timestamp time.Time `json:"timestamp"`
}

// handlePing serves the public, unauthenticated ping endpoint. The token is
// the capability; an unknown token is a 404 the caller caused, not an error
// worth a log line.
func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	now := time.Now().UTC()

	_, err := s.ingest.Ingest(r.Context(), token, now)
	if err != nil {
		if errors.Is(err, ingestor.ErrUnknownToken) {
			respondError(w, http.StatusNotFound, "cron monitor not found")
			return
		}
		s.log.Error("ping ingest", zap.Error(err))
		respondError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	respondJSON(w, http.StatusOK, pingResponse{
		Success:   true,
		Message:   "Ping received",
		Timestamp: now,
	})
}
