package errors

import (
	"context"
	"time"
)

// RetryPolicy defines backoff behavior for retryable failures.
type RetryPolicy struct {
	// MaxAttempts is the total number of attempts including the first
	// (1 means no retry).
	MaxAttempts int `yaml:"max_attempts"`

	// BackoffBase is the starting backoff duration.
	BackoffBase time.Duration `yaml:"backoff_base"`

	// Multiplier is the backoff multiplier (default: 2.0).
	Multiplier float64 `yaml:"multiplier"`

	// Jitter is the maximum random offset added to each delay.
	Jitter time.Duration `yaml:"jitter"`

	// UseRetryAfter indicates whether to honor the provider's Retry-After
	// hint for rate limit errors.
	UseRetryAfter bool `yaml:"use_retry_after"`
}

// DefaultRetryPolicy returns the policy used when configuration does not
// override it.
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxAttempts:   3,
		BackoffBase:   time.Second,
		Multiplier:    2.0,
		Jitter:        500 * time.Millisecond,
		UseRetryAfter: true,
	}
}

// IsRetryable decides whether an error justifies another attempt.
type IsRetryable func(err error, attempt int) bool

// DefaultIsRetryable retries RateLimited and Timeout on every attempt and
// InvalidResponse exactly once.
func DefaultIsRetryable(err error, attempt int) bool {
	if Retryable(err) {
		return true
	}
	return RetryableOnce(err) && attempt == 0
}

// Retry runs fn until it succeeds, the policy is exhausted, or the error is
// classified non-retryable. The same wrapper is shared by the generation,
// evaluation, and improvement engines.
func Retry(ctx context.Context, policy RetryPolicy, isRetryable IsRetryable, fn func(ctx context.Context) error) error {
	if isRetryable == nil {
		isRetryable = DefaultIsRetryable
	}

	attempts := policy.MaxAttempts
	if attempts < 1 {
		attempts = 1
	}

	var lastErr error
	for attempt := 0; attempt < attempts; attempt++ {
		lastErr = fn(ctx)
		if lastErr == nil {
			return nil
		}

		if attempt == attempts-1 || !isRetryable(lastErr, attempt) {
			return lastErr
		}

		delay := policy.delayFor(lastErr, attempt)
		if err := waitBeforeRetry(ctx, delay); err != nil {
			return lastErr
		}
	}

	return lastErr
}

// delayFor computes the delay preceding the next attempt.
func (p RetryPolicy) delayFor(err error, attempt int) time.Duration {
	if p.UseRetryAfter {
		if hint := retryAfter(err); hint > 0 {
			return hint
		}
	}
	return AddJitter(CalculateDelay(attempt, p), p.Jitter)
}

// waitBeforeRetry waits for the delay or returns early on cancellation.
func waitBeforeRetry(ctx context.Context, delay time.Duration) error {
	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
