package mfa

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// retryDelay is the pause before the single retry of a transient failure.
var retryDelay = 25 * time.Millisecond

// RetryOnce runs fn and retries it once if it fails with a non-domain error.
// Domain errors and context cancellation are returned immediately.
func RetryOnce(ctx context.Context, fn func(ctx context.Context) error) error {
	backoff := retry.WithMaxRetries(1, retry.NewConstant(retryDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil || IsDomain(err) || errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			return err
		}
		return retry.RetryableError(err)
	})
}

// RetryOnceValue is RetryOnce for functions returning a value.
func RetryOnceValue[T any](ctx context.Context, fn func(ctx context.Context) (T, error)) (T, error) {
	var out T
	err := RetryOnce(ctx, func(ctx context.Context) error {
		v, err := fn(ctx)
		if err != nil {
			return err
		}
		out = v
		return nil
	})
	return out, err
}
