// Package retry bounds idempotent network reads: each attempt gets its own
// timeout and failed attempts are retried after a fixed short delay.
package retry

import (
	"context"
	"errors"
	"time"

	"github.com/cenkalti/backoff/v5"
)

type Config struct {
	MaxRetries     int           // retries after the first attempt
	Delay          time.Duration // fixed pause between attempts
	AttemptTimeout time.Duration // zero means no per-attempt deadline
}

// Never is for calls that must run exactly once.
func Never(attemptTimeout time.Duration) Config {
	return Config{MaxRetries: 0, AttemptTimeout: attemptTimeout}
}

// Do runs op until it succeeds, returns a Permanent error, the parent context
// ends, or MaxRetries is exhausted. The last attempt's error is returned.
func Do[T any](ctx context.Context, cfg Config, op func(ctx context.Context) (T, error), onRetry func(err error, attempt int)) (T, error) {
	attempt := 0
	operation := func() (T, error) {
		attempt++
		attemptCtx := ctx
		if cfg.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, cfg.AttemptTimeout)
			defer cancel()
		}

		v, err := op(attemptCtx)
		if err != nil && ctx.Err() != nil {
			return v, backoff.Permanent(errors.Join(err, ctx.Err()))
		}
		return v, err
	}

	notify := func(err error, _ time.Duration) {
		if onRetry != nil {
			onRetry(err, attempt)
		}
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	return backoff.Retry(ctx, operation,
		backoff.WithBackOff(backoff.NewConstantBackOff(cfg.Delay)),
		backoff.WithMaxTries(uint(maxRetries+1)),
		backoff.WithNotify(notify),
	)
}

// Permanent marks err as not worth retrying.
func Permanent(err error) error {
	return backoff.Permanent(err)
}
