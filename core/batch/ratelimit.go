package batch

import (
	"context"
	"sync"
	"time"
)

// RateLimiter is a token bucket gating calls into the model adapter. The
// refill rate derives from the batch's requests-per-minute cap. The
// bucket holds at most one token, so calls are paced at the cap from the
// first request on: no 60-second window ever sees more than the cap,
// neither at batch start nor after an idle stretch.
type RateLimiter struct {
	mu sync.Mutex

	tokens     float64
	lastRefill time.Time
	refillRate float64
	capacity   float64
}

// NewRateLimiter builds a limiter from a requests-per-minute cap. A
// non-positive cap disables limiting (nil limiter).
func NewRateLimiter(requestsPerMinute int) *RateLimiter {
	if requestsPerMinute <= 0 {
		return nil
	}

	return &RateLimiter{
		tokens:     1,
		lastRefill: time.Now(),
		refillRate: float64(requestsPerMinute) / 60.0,
		capacity:   1,
	}
}

// Wait blocks until a token is available (or the context ends), then
// consumes it.
func (l *RateLimiter) Wait(ctx context.Context) error {
	if l == nil {
		return nil
	}

	for {
		allowed, waitTime := l.take()
		if allowed {
			return nil
		}

		timer := time.NewTimer(waitTime)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// take refills from elapsed time, then either consumes one token or
// reports how long until one accrues.
func (l *RateLimiter) take() (bool, time.Duration) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	elapsed := now.Sub(l.lastRefill)
	l.lastRefill = now

	l.tokens += elapsed.Seconds() * l.refillRate
	if l.tokens > l.capacity {
		l.tokens = l.capacity
	}

	if l.tokens >= 1.0 {
		l.tokens -= 1.0
		return true, 0
	}

	tokensNeeded := 1.0 - l.tokens
	waitSeconds := tokensNeeded / l.refillRate
	return false, time.Duration(waitSeconds * float64(time.Second))
}
