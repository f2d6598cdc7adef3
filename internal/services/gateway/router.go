package gateway

import (
	"context"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.uber.org/zap"

	"github.com/pinghook/pinghook/internal/obs"
	"github.com/pinghook/pinghook/internal/services/ingestor"
	"github.com/pinghook/pinghook/internal/services/registry"
)

type Server struct {
	log       *zap.Logger
	ingest    *ingestor.Handler
	registry  *registry.Usecase
	jwtSecret []byte
	health    func(context.Context) error
}

func NewServer(log *zap.Logger, ingest *ingestor.Handler, reg *registry.Usecase, jwtSecret []byte, health func(context.Context) error) *Server {
	return &Server{log: log, ingest: ingest, registry: reg, jwtSecret: jwtSecret, health: health}
}

// Router wires the public ping endpoint, the authenticated management API
// and the operational endpoints onto a single chi mux.
func (s *Server) Router() http.Handler {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		hctx, cancel := context.WithTimeout(context.Background(), 500*time.Millisecond)
		defer cancel()
		if s.health != nil {
			if err := s.health(hctx); err != nil {
				http.Error(w, "unhealthy: db", http.StatusServiceUnavailable)
				return
			}
		}
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})
	r.Method(http.MethodGet, "/metrics", obs.MetricsHandler())

	// Ping is token-keyed and unauthenticated. GET and POST both count:
	// curl defaults to GET, most HTTP libs default to POST bodies.
	r.Get("/ping/{token}", s.handlePing)
	r.Post("/ping/{token}", s.handlePing)

	r.Route("/v1", func(r chi.Router) {
		r.Use(RequireAuth(s.jwtSecret))

		r.Route("/monitors", func(r chi.Router) {
			r.Post("/", s.handleCreateMonitor)
			r.Get("/", s.handleListMonitors)
			r.Get("/{id}", s.handleGetMonitor)
			r.Delete("/{id}", s.handleDeleteMonitor)
			r.Get("/{id}/pings", s.handlePingHistory)
		})
		r.Get("/alerts", s.handleAlertHistory)
	})

	return otelhttp.NewHandler(r, "ping-gateway")
}
