// Package retry provides the explicit retry combinator used for every
// remote backend call: the operation, the attempt budget, and the backoff
// schedule are all parameters, so policy lives at the call site instead of
// inside the adapters.
package retry

import (
	"context"
	"time"

	"github.com/cenkalti/backoff/v4"

	"ragchat/backend/internal/fault"
)

// Schedule bounds a retry loop. Attempts counts total tries, not retries:
// Attempts=3 means one call plus up to two more.
type Schedule struct {
	Attempts    int
	InitialWait time.Duration
	MaxWait     time.Duration
}

// Default matches the backend policy used across the pipeline: 3 attempts,
// exponential backoff starting at 1s and capped at 10s.
func Default() Schedule {
	return Schedule{Attempts: 3, InitialWait: time.Second, MaxWait: 10 * time.Second}
}

// Do runs op until it succeeds, the schedule is exhausted, or ctx is done.
// Only errors classified fault.Retryable are retried; auth and input
// failures abort immediately. The returned error is the last one seen.
func Do[T any](ctx context.Context, s Schedule, op func(ctx context.Context) (T, error)) (T, error) {
	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = s.InitialWait
	bo.MaxInterval = s.MaxWait
	bo.RandomizationFactor = 0

	attempts := s.Attempts
	if attempts < 1 {
		attempts = 1
	}

	var out T
	wrapped := func() error {
		var err error
		out, err = op(ctx)
		if err != nil && !fault.Retryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	policy := backoff.WithContext(backoff.WithMaxRetries(bo, uint64(attempts-1)), ctx)
	if err := backoff.Retry(wrapped, policy); err != nil {
		var zero T
		if perm, ok := err.(*backoff.PermanentError); ok {
			return zero, perm.Unwrap()
		}
		return zero, err
	}
	return out, nil
}
