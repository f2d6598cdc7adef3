package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	config "github.com/pinghook/pinghook/internal/config/email-notifier"
	"github.com/pinghook/pinghook/internal/obs"
	"github.com/pinghook/pinghook/internal/repository/kafka"
	pg "github.com/pinghook/pinghook/internal/repository/postgres"
	notifier "github.com/pinghook/pinghook/internal/services/email-notifier"
	"github.com/pinghook/pinghook/internal/services/email-notifier/repo"
)

type systemClock struct{}

func (systemClock) Now() time.Time { return time.Now().UTC() }

func wiring(db *pg.DB, cfg *config.Config, cons *kafka.Consumer, l *zap.Logger) *notifier.Controller {
	monitors := pg.NewMonitorRepo(db)
	owners := pg.NewOwnerRepo(db)
	alerts := pg.NewAlertRepo(db)
	mailer := notifier.NewMailer(cfg.SMTP).WithLogger(l)

	uc := &notifier.Handler{
		Monitors: repo.MonitorReader{R: monitors},
		Owners:   repo.OwnerReader{R: owners},
		Store:    repo.AlertRepo{R: alerts},
		Out:      mailer,
		Clock:    systemClock{},
		Log:      l,
	}

	return &notifier.Controller{Log: l, Sub: cons, UC: uc}
}

func main() {
	rootCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(obs.LogConfig{Level: cfg.LogLevel, App: "pinghook/email-notifier"})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()

	l.Info("starting email-notifier",
		zap.Any("kafka_in", cfg.In),
		zap.String("metrics_addr", cfg.Server.MetricsAddr),
		zap.String("smtp_addr", cfg.SMTP.Addr),
	)

	otelCloser, err := obs.SetupOTel(rootCtx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Warn("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	db, err := pg.NewDB(rootCtx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()
	l.Info("db connected")

	ms := obs.BootstrapMetricsServer(cfg.Server.MetricsAddr, func(ctx context.Context) error {
		hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return db.Pool.Ping(hctx)
	}, l)

	cons := kafka.BootstrapConsumer(rootCtx, cfg.In.AsConsumerConfig(), l).WithLogger(l)
	defer func() { _ = cons.Close() }()
	l.Info("kafka consumer initialized",
		zap.Strings("brokers", cfg.In.Brokers),
		zap.String("group_id", cfg.In.GroupID),
		zap.String("topic", cfg.In.Topic),
	)

	ctrl := wiring(db, cfg, cons, l)
	errCh := make(chan error, 1)
	go func() {
		l.Info("controller starting")
		errCh <- ctrl.Run(rootCtx)
	}()

	var runErr error
	select {
	case <-rootCtx.Done():
		l.Info("shutdown signal")
	case runErr = <-errCh:
		if runErr != nil && !errors.Is(runErr, context.Canceled) {
			l.Error("controller error", zap.Error(runErr))
		}
	}

	shCtx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()
	_ = ms.Shutdown(shCtx)
	l.Info("bye")
}

func configPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config/email-notifier.yaml"
}
