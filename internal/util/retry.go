package util

import (
	"context"
	"errors"
	"time"

	"github.com/sethvargo/go-retry"
)

// RetryPolicy bounds a Fibonacci backoff.
type RetryPolicy struct {
	MaxRetries uint64
	BaseDelay  time.Duration
}

// Retry runs task until it succeeds, returns a non-retryable error, or the
// policy is exhausted. Only errors for which retryable returns true are
// retried; context cancellation never is.
func Retry(ctx context.Context, policy RetryPolicy, retryable func(error) bool, task func(ctx context.Context) error) error {
	base := policy.BaseDelay
	if base <= 0 {
		base = time.Millisecond
	}
	b := retry.WithMaxRetries(policy.MaxRetries, retry.NewFibonacci(base))

	return retry.Do(ctx, b, func(ctx context.Context) error {
		err := task(ctx)
		if err == nil {
			return nil
		}
		if ctx.Err() != nil || errors.Is(err, context.Canceled) {
			return err
		}
		if retryable != nil && retryable(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}
