package backoff

import (
	"context"
	"time"

	"github.com/sethvargo/go-retry"
	"go.uber.org/zap"
)

const (
	defaultBase     = 200 * time.Millisecond
	defaultCap      = 5 * time.Second
	defaultAttempts = 8
)

// Connect retries fn with capped fibonacci backoff while a dependency comes up.
// Only use it for startup dials; request-path writes must never be retried.
func Connect(ctx context.Context, log *zap.Logger, what string, fn func(ctx context.Context) error) error {
	b := retry.NewFibonacci(defaultBase)
	b = retry.WithCappedDuration(defaultCap, b)
	b = retry.WithMaxRetries(defaultAttempts, b)

	attempt := 0
	return retry.Do(ctx, b, func(ctx context.Context) error {
		attempt++
		if err := fn(ctx); err != nil {
			if log != nil {
				log.Warn("dependency not ready",
					zap.String("dependency", what),
					zap.Int("attempt", attempt),
					zap.Error(err),
				)
			}
			return retry.RetryableError(err)
		}
		return nil
	})
}
