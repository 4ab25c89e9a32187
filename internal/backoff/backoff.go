// Package backoff provides the retry policy shared by all provider clients.
// Retry behavior is configured once and applied uniformly regardless of which
// remote backend is in use.
package backoff

import (
	"context"
	"fmt"
	"math/rand"
	"time"
)

// Policy describes exponential backoff with jitter, capped at a maximum
// attempt count.
type Policy struct {
	// MaxAttempts is the total number of attempts, including the first.
	MaxAttempts int
	// BaseDelay is the delay before the first retry.
	BaseDelay time.Duration
	// MaxDelay caps the per-retry delay. Zero means uncapped.
	MaxDelay time.Duration
	// JitterFrac is the fraction of the delay randomized on each retry,
	// in [0, 1]. A value of 0.2 means the actual delay is within ±20%.
	JitterFrac float64
}

// Default returns the policy used when none is configured: 3 attempts,
// 1s base delay doubling per retry, 30s cap, 20% jitter.
func Default() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   1 * time.Second,
		MaxDelay:    30 * time.Second,
		JitterFrac:  0.2,
	}
}

// Delay returns the wait before retry number n (n starts at 1 for the first
// retry). Attempt numbers below 1 are treated as 1.
func (p Policy) Delay(n int) time.Duration {
	if n < 1 {
		n = 1
	}
	d := p.BaseDelay
	for i := 1; i < n; i++ {
		d *= 2
		if p.MaxDelay > 0 && d >= p.MaxDelay {
			d = p.MaxDelay
			break
		}
	}
	if p.MaxDelay > 0 && d > p.MaxDelay {
		d = p.MaxDelay
	}
	if p.JitterFrac > 0 {
		spread := float64(d) * p.JitterFrac
		d = time.Duration(float64(d) - spread + rand.Float64()*2*spread)
	}
	return d
}

// Sleep waits for the retry-n delay or until the context is cancelled.
func (p Policy) Sleep(ctx context.Context, n int) error {
	t := time.NewTimer(p.Delay(n))
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("backoff: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}

// Retry runs fn up to MaxAttempts times, sleeping between attempts.
// It stops early when fn succeeds, when retryable(err) is false, or when the
// context is cancelled. The last error is returned after exhaustion. The
// returned count is the number of times fn actually ran, so callers can
// report retries spent even on runs that eventually succeeded.
func (p Policy) Retry(ctx context.Context, retryable func(error) bool, fn func() error) (int, error) {
	var lastErr error
	for attempt := 1; attempt <= p.MaxAttempts; attempt++ {
		if attempt > 1 {
			if err := p.Sleep(ctx, attempt-1); err != nil {
				return attempt - 1, err
			}
		}
		err := fn()
		if err == nil {
			return attempt, nil
		}
		if !retryable(err) {
			return attempt, err
		}
		lastErr = err
	}
	return p.MaxAttempts, fmt.Errorf("backoff: max attempts exceeded: %w", lastErr)
}
