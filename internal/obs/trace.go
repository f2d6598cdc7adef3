package obs

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// WithTrace annotates the logger with the current span ids so log lines can be
// correlated with traces. Returns the logger unchanged outside a valid span.
func WithTrace(ctx context.Context, log *zap.Logger) *zap.Logger {
	if log == nil {
		return nil
	}
	span := trace.SpanContextFromContext(ctx)
	if !span.IsValid() {
		return log
	}
	return log.With(
		zap.Stringer("trace_id", span.TraceID()),
		zap.Stringer("span_id", span.SpanID()),
	)
}
