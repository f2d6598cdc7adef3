package retry

import (
	"context"
	"math"
	"math/rand"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel/trace"
)

// Backoff yields the wait before the next attempt. Attempt numbering starts
// at zero.
type Backoff interface {
	Next(attempt int) time.Duration
}

// ExpoJitter doubles the base delay per attempt, caps it at Max and spreads
// retries with a symmetric jitter fraction.
type ExpoJitter struct {
	Base   time.Duration
	Max    time.Duration
	Jitter float64
}

func (b ExpoJitter) Next(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	wait := float64(b.Base) * math.Pow(2, float64(attempt))
	if b.Max > 0 {
		wait = math.Min(wait, float64(b.Max))
	}
	if b.Jitter > 0 {
		wait *= 1 + b.Jitter*(2*rand.Float64()-1)
	}
	return time.Duration(wait)
}

// Policy controls how Do reattempts a failing operation. Name labels the
// metrics below; hooks are optional.
type Policy struct {
	Name      string
	Attempts  int
	Backoff   Backoff
	Retryable func(error) bool
	OnAttempt func(attempt int, err error)
	OnExhaust func(lastErr error)
}

var (
	retryAttempts = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retry_attempts_total",
		Help: "Total retry attempts (including final).",
	}, []string{"name"})
	retryExhausted = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "retry_exhausted_total",
		Help: "Operations that exhausted all retries.",
	}, []string{"name"})
	retryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "retry_duration_seconds",
		Help:    "Wall time spent inside retry.Do (success or fail).",
		Buckets: prometheus.DefBuckets,
	}, []string{"name"})
)

// Do runs fn until it succeeds, the policy gives up or the context is
// cancelled. Non-retryable errors short-circuit immediately.
func Do(ctx context.Context, fn func() error, p Policy) error {
	name := p.Name
	if name == "" {
		name = "default"
	}
	attempts := p.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	retryable := p.Retryable
	if retryable == nil {
		retryable = func(err error) bool { return err != nil }
	}

	start := time.Now()
	defer func() {
		retryLatency.WithLabelValues(name).Observe(time.Since(start).Seconds())
	}()

	span := trace.SpanFromContext(ctx)

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn()
		retryAttempts.WithLabelValues(name).Inc()
		if lastErr == nil {
			return nil
		}
		if p.OnAttempt != nil {
			p.OnAttempt(attempt, lastErr)
		}
		if span.IsRecording() {
			span.AddEvent("retry.attempt")
		}
		if !retryable(lastErr) || attempt == attempts-1 {
			retryExhausted.WithLabelValues(name).Inc()
			if p.OnExhaust != nil {
				p.OnExhaust(lastErr)
			}
			return lastErr
		}

		timer := time.NewTimer(p.Backoff.Next(attempt))
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
	return lastErr
}
