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

	config "github.com/pinghook/pinghook/internal/config/sweeper"
	"github.com/pinghook/pinghook/internal/obs"
	"github.com/pinghook/pinghook/internal/obs/retry"
	intoutbox "github.com/pinghook/pinghook/internal/outbox"
	kafkaRepo "github.com/pinghook/pinghook/internal/repository/kafka"
	pg "github.com/pinghook/pinghook/internal/repository/postgres"
	"github.com/pinghook/pinghook/internal/services/sweeper"
	"github.com/pinghook/pinghook/internal/services/sweeper/repo"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath())
	if err != nil {
		log.Fatal(err)
	}

	l, err := obs.NewLogger(obs.LogConfig{Level: cfg.LogLevel, App: "pinghook/sweeper"})
	if err != nil {
		log.Fatal(err)
	}
	defer func() { _ = l.Sync() }()
	l.Info("starting sweeper",
		zap.Any("kafka_out", cfg.Kafka),
		zap.String("metrics_addr", cfg.Sweep.MetricsAddr),
	)

	otelCloser, err := obs.SetupOTel(ctx, cfg.OTEL.AsOTELConfig())
	if err != nil {
		l.Fatal("otel init", zap.Error(err))
	}
	defer func() { _ = otelCloser.Shutdown(context.Background()) }()

	db, err := pg.NewDB(ctx, cfg.DB)
	if err != nil {
		l.Fatal("db connect", zap.Error(err))
	}
	defer db.Close()

	kafkaProd := kafkaRepo.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
	defer func() { _ = kafkaProd.Close() }()
	publisher := kafkaRepo.NewAlertEventsKafka(kafkaProd)

	ms := obs.BootstrapMetricsServer(cfg.Sweep.MetricsAddr, func(ctx context.Context) error {
		hctx, cancel := context.WithTimeout(ctx, 500*time.Millisecond)
		defer cancel()
		return db.Pool.Ping(hctx)
	}, l)

	monitorRepo := pg.NewMonitorRepo(db)
	outboxRepo := pg.NewOutboxRepo(db)
	tx := pg.NewTransactor(db, l)

	uc := &sweeper.Usecase{
		Monitors:     repo.MonitorRepo{R: monitorRepo},
		Outbox:       repo.Outbox{R: outboxRepo},
		Transactor:   tx,
		ResweepAfter: cfg.Sweep.ResweepAfter,
	}
	runner := sweeper.New(l, uc, &cfg.Sweep)

	dispatch := intoutbox.MakeGlobalOutboxHandler(publisher, retry.DefaultPublishPolicy(l))
	obRunner := intoutbox.NewOutboxRunner(l, outboxRepo, dispatch,
		cfg.Outbox.Workers, cfg.Outbox.BatchSize, cfg.Outbox.WaitTime, cfg.Outbox.InProgressTTL)
	obRunner.Start(ctx)

	errCh := make(chan error, 1)
	go func() { errCh <- runner.Run(ctx) }()

	l.Info("sweeper started")

	select {
	case <-ctx.Done():
	case err = <-errCh:
		if err != nil && !errors.Is(err, context.Canceled) {
			l.Error("runner error", zap.Error(err))
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
	return "config/sweeper.yaml"
}
