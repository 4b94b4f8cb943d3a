package fetcher

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/IshaanNene/ShelfScout/internal/types"
)

// RetryPolicy bounds how often an operation is attempted and how long to wait in between.
type RetryPolicy struct {
	MaxAttempts int
	BackoffMin  time.Duration
	BackoffMax  time.Duration

	// OnRetry is called before each backoff sleep. Optional.
	OnRetry func(attempt int, err error, wait time.Duration)

	sleep func(ctx context.Context, d time.Duration) error
}

// NewRetryPolicy creates a policy with a uniform random backoff in [min, max].
func NewRetryPolicy(maxAttempts int, backoffMin, backoffMax time.Duration) RetryPolicy {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	if backoffMax < backoffMin {
		backoffMax = backoffMin
	}
	return RetryPolicy{MaxAttempts: maxAttempts, BackoffMin: backoffMin, BackoffMax: backoffMax}
}

// Do runs op until it succeeds or attempts run out. op receives the 1-based attempt number.
// The final error is wrapped with types.ErrMaxRetries.
func (p RetryPolicy) Do(ctx context.Context, op func(ctx context.Context, attempt int) error) error {
	attempts := p.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 1; attempt <= attempts; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr == nil {
				return err
			}
			return fmt.Errorf("%w: %v", err, lastErr)
		}

		lastErr = op(ctx, attempt)
		if lastErr == nil {
			return nil
		}
		if errors.Is(lastErr, context.Canceled) {
			return lastErr
		}
		if attempt == attempts {
			break
		}

		wait := p.Backoff(lastErr)
		if p.OnRetry != nil {
			p.OnRetry(attempt, lastErr, wait)
		}
		if err := p.doSleep(ctx, wait); err != nil {
			return fmt.Errorf("%w: %v", err, lastErr)
		}
	}

	return fmt.Errorf("%w after %d attempts: %w", types.ErrMaxRetries, attempts, lastErr)
}

// Backoff returns the wait before the next attempt. A server-provided
// Retry-After longer than the random backoff takes precedence.
func (p RetryPolicy) Backoff(err error) time.Duration {
	wait := RandomBetween(p.BackoffMin, p.BackoffMax)
	var fetchErr *types.FetchError
	if errors.As(err, &fetchErr) && fetchErr.RetryAfter > wait {
		wait = fetchErr.RetryAfter
	}
	return wait
}

func (p RetryPolicy) doSleep(ctx context.Context, d time.Duration) error {
	if p.sleep != nil {
		return p.sleep(ctx, d)
	}
	return Sleep(ctx, d)
}

// Sleep waits for d or until ctx is done.
func Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// RandomBetween returns a uniformly random duration in [lo, hi].
func RandomBetween(lo, hi time.Duration) time.Duration {
	if hi <= lo {
		return lo
	}
	return lo + time.Duration(rand.Int63n(int64(hi-lo)+1))
}
