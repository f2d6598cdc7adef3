package outbox

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/pinghook/pinghook/internal/domain/outbox"
	"github.com/pinghook/pinghook/internal/obs"
)

// Runner drains the outbox table: each worker periodically picks a batch of
// pending messages, routes them through the dispatch table and marks the
// delivered ones. Messages stuck IN_PROGRESS longer than inProgressTTL are
// picked up again, so handlers must tolerate redelivery.
type Runner struct {
	log      *zap.Logger
	repo     outbox.Repository
	dispatch outbox.GlobalHandler

	workers       int
	batchSize     int
	waitTime      time.Duration
	inProgressTTL time.Duration

	mPicked    prometheus.Counter
	mOk        prometheus.Counter
	mErr       prometheus.Counter
	mTickDur   prometheus.Histogram
	mBatchSize prometheus.Gauge
}

func NewOutboxRunner(
	log *zap.Logger,
	repo outbox.Repository,
	dispatch outbox.GlobalHandler,
	workers int,
	batchSize int,
	waitTime time.Duration,
	inProgressTTL time.Duration,
) *Runner {
	return &Runner{
		log: log, repo: repo, dispatch: dispatch,
		workers: workers, batchSize: batchSize, waitTime: waitTime, inProgressTTL: inProgressTTL,
		mPicked: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outbox_picked_total", Help: "Messages picked into processing.",
		}),
		mOk: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outbox_processed_ok_total", Help: "Messages processed successfully.",
		}),
		mErr: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outbox_processed_err_total", Help: "Handler errors.",
		}),
		mTickDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "outbox_tick_duration_seconds", Help: "Tick duration.",
			Buckets: prometheus.DefBuckets,
		}),
		mBatchSize: promauto.NewGauge(prometheus.GaugeOpts{
			Name: "outbox_last_batch_size", Help: "Size of last picked batch.",
		}),
	}
}

func (r *Runner) Start(ctx context.Context) {
	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go r.worker(ctx, &wg)
	}
}

func (r *Runner) worker(ctx context.Context, wg *sync.WaitGroup) {
	defer wg.Done()
	r.log.Info("outbox worker started", zap.Duration("wait", r.waitTime))

	ticker := time.NewTicker(r.waitTime)
	defer ticker.Stop()

	tr := otel.Tracer("outbox.runner")

	for {
		select {
		case <-ctx.Done():
			r.log.Info("outbox worker stop")
			return
		case <-ticker.C:
			started := time.Now()
			r.tick(ctx, tr)
			r.mTickDur.Observe(time.Since(started).Seconds())
		}
	}
}

func (r *Runner) tick(ctx context.Context, tr trace.Tracer) {
	tickCtx, span := tr.Start(ctx, "outbox.tick")
	defer span.End()
	span.SetAttributes(
		attribute.Int("batch.limit", r.batchSize),
		attribute.String("in_progress_ttl", r.inProgressTTL.String()),
	)

	batch, err := r.repo.PickBatch(tickCtx, r.batchSize, r.inProgressTTL)
	if err != nil {
		span.RecordError(err)
		r.mErr.Inc()
		obs.WithTrace(tickCtx, r.log).Error("outbox pick error", zap.Error(err))
		return
	}
	r.mPicked.Add(float64(len(batch)))
	r.mBatchSize.Set(float64(len(batch)))

	delivered := make([]string, 0, len(batch))
	for i := range batch {
		if r.deliver(tr, &batch[i]) {
			delivered = append(delivered, batch[i].IdempotencyKey)
			r.mOk.Inc()
		}
	}

	if err := r.repo.MarkSuccess(tickCtx, delivered); err != nil {
		span.RecordError(err)
		r.mErr.Inc()
		obs.WithTrace(tickCtx, r.log).Error("mark success error", zap.Error(err))
	}
}

// deliver routes one message. The trace context recorded at enqueue time is
// restored so the dispatch span links back to the producing request.
func (r *Runner) deliver(tr trace.Tracer, m *outbox.Message) bool {
	parent := otel.GetTextMapPropagator().Extract(context.Background(), propagation.MapCarrier{
		"traceparent": m.Traceparent,
		"tracestate":  m.Tracestate,
		"baggage":     m.Baggage,
	})

	msgCtx, span := tr.Start(parent, "outbox.dispatch",
		trace.WithAttributes(
			attribute.String("outbox.key", m.IdempotencyKey),
			attribute.Int("outbox.kind", int(m.Kind)),
		),
	)
	defer span.End()

	handler, err := r.dispatch(m.Kind)
	if err != nil {
		span.RecordError(err)
		r.mErr.Inc()
		obs.WithTrace(msgCtx, r.log).Error("no handler for kind",
			zap.Int("kind", int(m.Kind)), zap.Error(err))
		return false
	}

	if err := handler(msgCtx, m.Data); err != nil {
		span.RecordError(err)
		r.mErr.Inc()
		obs.WithTrace(msgCtx, r.log).Error("handler error",
			zap.Int("kind", int(m.Kind)), zap.Error(err))
		return false
	}
	return true
}
