package errors

import (
	"context"
	"testing"
	"time"
)

func fastPolicy(attempts int) RetryPolicy {
	return RetryPolicy{
		MaxAttempts: attempts,
		BackoffBase: time.Millisecond,
		Multiplier:  2.0,
		Jitter:      0,
	}
}

// TestRetrySucceedsAfterTransientFailures tests recovery within the budget.
func TestRetrySucceedsAfterTransientFailures(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Retry(context.Background(), fastPolicy(3), nil, func(ctx context.Context) error {
		calls++
		if calls < 3 {
			return New(KindTimeout, "slow provider")
		}
		return nil
	})

	if err != nil {
		t.Fatalf("Retry() = %v, want nil", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

// TestRetryExhaustsAttempts tests that the last error is returned.
func TestRetryExhaustsAttempts(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Retry(context.Background(), fastPolicy(3), nil, func(ctx context.Context) error {
		calls++
		return New(KindRateLimited, "429")
	})

	if !Is(err, KindRateLimited) {
		t.Fatalf("Retry() = %v, want rate_limited", err)
	}
	if calls != 3 {
		t.Errorf("calls = %d, want 3", calls)
	}
}

// TestRetryStopsOnFatal tests that fatal errors short-circuit.
func TestRetryStopsOnFatal(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Retry(context.Background(), fastPolicy(5), nil, func(ctx context.Context) error {
		calls++
		return New(KindProviderError, "model gone")
	})

	if !Is(err, KindProviderError) {
		t.Fatalf("Retry() = %v, want provider_error", err)
	}
	if calls != 1 {
		t.Errorf("calls = %d, want 1 (no retry on fatal)", calls)
	}
}

// TestRetryInvalidResponseOnce tests the retry-once-then-fatal rule.
func TestRetryInvalidResponseOnce(t *testing.T) {
	t.Parallel()

	calls := 0
	err := Retry(context.Background(), fastPolicy(5), nil, func(ctx context.Context) error {
		calls++
		return New(KindInvalidResponse, "empty body")
	})

	if !Is(err, KindInvalidResponse) {
		t.Fatalf("Retry() = %v, want invalid_response", err)
	}
	if calls != 2 {
		t.Errorf("calls = %d, want 2 (initial + one retry)", calls)
	}
}

// TestRetryRespectsCancellation tests that a cancelled context stops waiting.
func TestRetryRespectsCancellation(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	policy := RetryPolicy{MaxAttempts: 3, BackoffBase: time.Hour, Multiplier: 2.0}
	calls := 0
	err := Retry(ctx, policy, nil, func(ctx context.Context) error {
		calls++
		return New(KindTimeout, "x")
	})

	if calls != 1 {
		t.Errorf("calls = %d, want 1 (cancelled before second attempt)", calls)
	}
	if !Is(err, KindTimeout) {
		t.Errorf("Retry() = %v, want the last attempt error", err)
	}
}

// TestCalculateDelay tests exponential growth and the cap.
func TestCalculateDelay(t *testing.T) {
	t.Parallel()

	policy := RetryPolicy{BackoffBase: 100 * time.Millisecond, Multiplier: 2.0}

	tests := []struct {
		attempt int
		want    time.Duration
	}{
		{0, 100 * time.Millisecond},
		{1, 200 * time.Millisecond},
		{2, 400 * time.Millisecond},
		{3, 800 * time.Millisecond},
	}

	for _, tc := range tests {
		if got := CalculateDelay(tc.attempt, policy); got != tc.want {
			t.Errorf("CalculateDelay(%d) = %v, want %v", tc.attempt, got, tc.want)
		}
	}

	// Cap applies to runaway exponents.
	if got := CalculateDelay(30, policy); got != maxBackoff {
		t.Errorf("CalculateDelay(30) = %v, want cap %v", got, maxBackoff)
	}
}

// TestAddJitter tests the jitter bounds.
func TestAddJitter(t *testing.T) {
	t.Parallel()

	base := 100 * time.Millisecond
	jitter := 50 * time.Millisecond

	for i := 0; i < 100; i++ {
		got := AddJitter(base, jitter)
		if got < base || got >= base+jitter {
			t.Fatalf("AddJitter() = %v, want in [%v, %v)", got, base, base+jitter)
		}
	}

	if got := AddJitter(base, 0); got != base {
		t.Errorf("AddJitter with zero jitter = %v, want %v", got, base)
	}
}
