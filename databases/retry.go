package databases

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// retryPolicy bounds every store round trip: each attempt gets its own
// timeout and transient failures are retried with exponential backoff
type retryPolicy struct {
	attempts int
	backoff  time.Duration
	timeout  time.Duration
}

func (p retryPolicy) do(ctx context.Context, name string, op func(ctx context.Context, attempt int) error) error {
	attempts := p.attempts
	if attempts < 1 {
		attempts = 1
	}

	var err error
	for attempt := 0; attempt < attempts; attempt++ {
		if attempt > 0 {
			wait := p.backoff * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(wait):
			}
		}

		err = p.attempt(ctx, attempt, op)
		if err == nil || !isTransient(err) {
			return err
		}
		zap.S().Warnw("transient store error",
			"operation", name,
			"attempt", attempt+1,
			"error", err)
	}
	return err
}

func (p retryPolicy) attempt(ctx context.Context, attempt int, op func(ctx context.Context, attempt int) error) error {
	if p.timeout <= 0 {
		return op(ctx, attempt)
	}
	opCtx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	return op(opCtx, attempt)
}

func isTransient(err error) bool {
	return mongo.IsNetworkError(err) || mongo.IsTimeout(err)
}
