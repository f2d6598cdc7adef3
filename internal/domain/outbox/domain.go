package outbox

import (
	"context"
	"time"
)

type Status string

// Kind discriminates payload types stored in the outbox table.
type Kind int

const (
	KindAlertFired Kind = 1
)

// Message is one pending event. The idempotency key is the primary key, so a
// second enqueue of the same transition is a no-op. Trace fields carry the
// producing request's context into the async dispatch.
type Message struct {
	IdempotencyKey string
	Kind           Kind
	Data           []byte
	Status         Status
	CreatedAt      time.Time
	UpdatedAt      time.Time
	Tracestate     string
	Traceparent    string
	Baggage        string
}

type Repository interface {
	// Enqueue stores a message inside the caller's transaction.
	Enqueue(ctx context.Context, key string, kind Kind, data []byte) error

	// PickBatch claims up to batch messages, including stale IN_PROGRESS
	// ones older than inProgressTTL.
	PickBatch(ctx context.Context, batch int, inProgressTTL time.Duration) ([]Message, error)

	// MarkSuccess finalizes delivered messages by key.
	MarkSuccess(ctx context.Context, keys []string) error
}

// KindHandler delivers one payload of a single kind.
type KindHandler func(ctx context.Context, data []byte) error

// GlobalHandler maps a kind to its handler.
type GlobalHandler func(kind Kind) (KindHandler, error)
