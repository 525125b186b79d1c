package retryutil

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"
)

// Permanent marks err as not worth retrying, Do and DoValue return it
// immediately.
func Permanent(err error) error {
	return backoff.Permanent(err)
}

func newPolicy(ctx context.Context, attempts uint64, initial time.Duration) backoff.BackOff {
	policy := backoff.NewExponentialBackOff()
	policy.InitialInterval = initial
	policy.MaxInterval = initial * 8
	policy.MaxElapsedTime = 0
	if attempts == 0 {
		attempts = 1
	}
	return backoff.WithContext(backoff.WithMaxRetries(policy, attempts-1), ctx)
}

// Do runs op up to attempts times, sleeping with capped exponential
// backoff between failures. Cancelling ctx stops further attempts and
// surfaces the last error.
func Do(ctx context.Context, attempts uint64, initial time.Duration, op func() error) error {
	return backoff.Retry(op, newPolicy(ctx, attempts, initial))
}

// DoValue is Do for operations that produce a value.
func DoValue[T any](ctx context.Context, attempts uint64, initial time.Duration, op func() (T, error)) (T, error) {
	var out T
	err := backoff.Retry(func() error {
		var err error
		out, err = op()
		return err
	}, newPolicy(ctx, attempts, initial))
	return out, err
}
