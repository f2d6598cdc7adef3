package sweeper

import (
	"context"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.uber.org/zap"

	config "github.com/pinghook/pinghook/internal/config/sweeper"
)

type Runner struct {
	Log *zap.Logger
	UC  *Usecase
	Cfg *config.SweepCfg

	mScanned prometheus.Counter
	mTrans   prometheus.Counter
	mAlerts  prometheus.Counter
	mErr     prometheus.Counter
	mLoopDur prometheus.Histogram
}

func New(log *zap.Logger, uc *Usecase, cfg *config.SweepCfg) *Runner {
	return &Runner{
		Log: log,
		UC:  uc,
		Cfg: cfg,
		mScanned: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sweeper_monitors_scanned_total", Help: "Due monitors fetched from DB",
		}),
		mTrans: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sweeper_transitions_total", Help: "Status transitions persisted",
		}),
		mAlerts: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sweeper_alerts_enqueued_total", Help: "Alert events enqueued to outbox",
		}),
		mErr: promauto.NewCounter(prometheus.CounterOpts{
			Name: "sweeper_errors_total", Help: "Errors in sweep loop",
		}),
		mLoopDur: promauto.NewHistogram(prometheus.HistogramOpts{
			Name: "sweeper_loop_duration_seconds", Help: "Sweep cycle duration",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

func (r *Runner) tick(ctx context.Context) {
	start := time.Now()

	// A cycle must never outlive the cadence; a stuck dependency just means
	// this cycle is abandoned and the next one recomputes from scratch.
	tctx, cancel := context.WithTimeout(ctx, r.Cfg.CycleTimeout)
	defer cancel()

	st, err := r.UC.Sweep(tctx, time.Now().UTC(), r.Cfg.BatchLimit)
	if err != nil {
		r.mErr.Inc()
		r.Log.Warn("sweep error", zap.Error(err))
	}
	if st.Scanned > 0 {
		r.mScanned.Add(float64(st.Scanned))
		r.mTrans.Add(float64(st.Transitioned))
		r.mAlerts.Add(float64(st.Alerted))
		if st.Errors > 0 {
			r.mErr.Add(float64(st.Errors))
		}
		r.Log.Debug("swept batch",
			zap.Int("scanned", st.Scanned),
			zap.Int("transitioned", st.Transitioned),
			zap.Int("alerted", st.Alerted),
			zap.Int("errors", st.Errors),
		)
	}
	r.mLoopDur.Observe(time.Since(start).Seconds())
}

func (r *Runner) Run(ctx context.Context) error {
	ticker := time.NewTicker(r.Cfg.Tick)
	defer ticker.Stop()

	r.tick(ctx)

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			r.tick(ctx)
		}
	}
}
