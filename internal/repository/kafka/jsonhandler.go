package kafka

import (
	"context"
	"encoding/json"
	"fmt"
)

// JSONHandler adapts a typed handler to the raw consumer Handler, decoding
// the message value as JSON.
func JSONHandler[M any](handle func(context.Context, []byte, *M) error) Handler {
	return func(ctx context.Context, key, value []byte) error {
		var msg M
		if err := json.Unmarshal(value, &msg); err != nil {
			return fmt.Errorf("decode message: %w", err)
		}
		return handle(ctx, key, &msg)
	}
}
