package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/pinghook/pinghook/internal/config/gateway"
	"github.com/pinghook/pinghook/internal/obs"
	pg "github.com/pinghook/pinghook/internal/repository/postgres"
	"github.com/pinghook/pinghook/internal/services/gateway"
	"github.com/pinghook/pinghook/internal/services/ingestor"
	"github.com/pinghook/pinghook/internal/services/registry"
)

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath())
	if err != nil {
		panic(err)
	}

	logger, err := obs.NewLogger(*cfg.Log.AsLoggerConfig(cfg.App))
	if err != nil {
		panic(err)
	}
	defer func() { _ = logger.Sync() }()
	logger.Info("starting ping-gateway", zap.String("env", cfg.App.Env), zap.String("ver", cfg.App.Version))

	otelCloser, err := obs.SetupOTel(rootCtx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		logger.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	db, err := pg.NewDB(rootCtx, cfg.DB)
	if err != nil {
		logger.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	srv := wiring(db, cfg, logger)

	httpSrv := &http.Server{
		Addr:              cfg.Server.HTTPAddr,
		Handler:           srv.Router(),
		ReadTimeout:       cfg.Server.ReadTimeout,
		ReadHeaderTimeout: 5 * time.Second,
		WriteTimeout:      cfg.Server.WriteTimeout,
		IdleTimeout:       cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("http listening", zap.String("addr", cfg.Server.HTTPAddr))
		errCh <- httpSrv.ListenAndServe()
	}()

	var runErr error
	select {
	case <-rootCtx.Done():
		logger.Info("shutdown signal")
	case runErr = <-errCh:
		if runErr != nil && !errors.Is(runErr, http.ErrServerClosed) {
			logger.Error("http serve", zap.Error(runErr))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulTimeout)
	defer cancel()
	_ = httpSrv.Shutdown(shCtx)
	logger.Info("bye")
}

func wiring(db *pg.DB, cfg *config.Config, logger *zap.Logger) *gateway.Server {
	monitors := pg.NewMonitorRepo(db)
	pings := pg.NewPingRepo(db)
	alerts := pg.NewAlertRepo(db)
	tx := pg.NewTransactor(db, logger)

	ingest := &ingestor.Handler{
		Monitors:   monitors,
		Pings:      pings,
		Transactor: tx,
		Log:        logger,
	}
	reg := registry.New(monitors, pings, alerts, nil)

	health := func(ctx context.Context) error { return db.Pool.Ping(ctx) }
	return gateway.NewServer(logger, ingest, reg, []byte(cfg.Auth.JWTSecret), health)
}

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config/ping-gateway.yaml"
}
