package errors

import (
	"math"
	"math/rand"
	"time"
)

// maxBackoff caps the exponential delay so late attempts do not stall a
// worker for minutes.
const maxBackoff = 60 * time.Second

// CalculateDelay computes the backoff delay for a given attempt.
// Formula: delay = base * (multiplier ^ attempt), capped at maxBackoff.
func CalculateDelay(attempt int, policy RetryPolicy) time.Duration {
	multiplier := policy.Multiplier
	if multiplier <= 0 {
		multiplier = 2.0
	}

	factor := math.Pow(multiplier, float64(attempt))
	delay := time.Duration(float64(policy.BackoffBase) * factor)

	return capDelay(delay, maxBackoff)
}

// capDelay ensures the delay does not exceed the maximum.
func capDelay(delay, max time.Duration) time.Duration {
	if delay > max {
		return max
	}
	return delay
}

// AddJitter adds a random offset in [0, jitter) to prevent thundering herd
// when many workers back off at once.
func AddJitter(delay, jitter time.Duration) time.Duration {
	if jitter <= 0 {
		return delay
	}
	return ensurePositiveDelay(delay + time.Duration(rand.Int63n(int64(jitter))))
}

// ensurePositiveDelay ensures the delay is at least 1 millisecond.
func ensurePositiveDelay(delay time.Duration) time.Duration {
	if delay < time.Millisecond {
		return time.Millisecond
	}
	return delay
}
