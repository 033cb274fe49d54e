package execution

import (
	"context"
	"math/rand"
	"time"
)

// RetryableFunc is a function that can be retried. The error should be nil
// if the function was successful.
type RetryableFunc[T any] func(ctx context.Context) (T, error)

// WithRetry executes a function with a retry mechanism. It uses exponential
// backoff with jitter to space out retries.
func WithRetry[T any](ctx context.Context, maxRetries int, initialBackoff time.Duration, maxBackoff time.Duration, fn RetryableFunc[T]) (T, error) {
	var result T
	var err error

	for i := 0; i < maxRetries; i++ {
		result, err = fn(ctx)
		if err == nil {
			return result, nil
		}
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		backoff := initialBackoff * (1 << i)
		if backoff > maxBackoff {
			backoff = maxBackoff
		}

		jitter := time.Duration(rand.Intn(100)) * time.Millisecond
		select {
		case <-time.After(backoff + jitter):
		case <-ctx.Done():
			return result, ctx.Err()
		}
	}

	return result, err
}
