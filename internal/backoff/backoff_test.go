package backoff

import (
	"context"
	"errors"
	"testing"
	"time"
)

func testPolicy() Policy {
	return Policy{
		MaxAttempts: 3,
		BaseDelay:   time.Millisecond,
		MaxDelay:    4 * time.Millisecond,
	}
}

func TestDelay_DoublesUpToCap(t *testing.T) {
	p := Policy{
		BaseDelay: 100 * time.Millisecond,
		MaxDelay:  time.Second,
	}

	tests := []struct {
		n    int
		want time.Duration
	}{
		{0, 100 * time.Millisecond}, // below 1 treated as 1
		{1, 100 * time.Millisecond},
		{2, 200 * time.Millisecond},
		{3, 400 * time.Millisecond},
		{4, 800 * time.Millisecond},
		{5, time.Second}, // capped
		{9, time.Second},
	}

	for _, tt := range tests {
		if got := p.Delay(tt.n); got != tt.want {
			t.Errorf("Delay(%d) = %v, want %v", tt.n, got, tt.want)
		}
	}
}

func TestDelay_JitterStaysWithinSpread(t *testing.T) {
	p := Policy{
		BaseDelay:  100 * time.Millisecond,
		JitterFrac: 0.2,
	}

	for i := 0; i < 50; i++ {
		d := p.Delay(1)
		if d < 80*time.Millisecond || d > 120*time.Millisecond {
			t.Fatalf("Delay(1) = %v, want within ±20%% of 100ms", d)
		}
	}
}

func TestRetry_SucceedsAfterTransientFailures(t *testing.T) {
	p := testPolicy()

	calls := 0
	attempts, err := p.Retry(context.Background(), func(error) bool { return true }, func() error {
		calls++
		if calls < 3 {
			return errors.New("transient")
		}
		return nil
	})
	if err != nil {
		t.Fatalf("Retry() error = %v", err)
	}
	if calls != 3 {
		t.Errorf("fn called %d times, want 3", calls)
	}
	if attempts != 3 {
		t.Errorf("Retry() attempts = %d, want 3", attempts)
	}
}

func TestRetry_StopsOnNonRetryable(t *testing.T) {
	p := testPolicy()
	permanent := errors.New("permanent")

	calls := 0
	attempts, err := p.Retry(context.Background(), func(error) bool { return false }, func() error {
		calls++
		return permanent
	})
	if !errors.Is(err, permanent) {
		t.Errorf("Retry() error = %v, want %v", err, permanent)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
	if attempts != 1 {
		t.Errorf("Retry() attempts = %d, want 1", attempts)
	}
}

func TestRetry_ExhaustsAttempts(t *testing.T) {
	p := testPolicy()
	transient := errors.New("transient")

	calls := 0
	attempts, err := p.Retry(context.Background(), func(error) bool { return true }, func() error {
		calls++
		return transient
	})
	if !errors.Is(err, transient) {
		t.Errorf("Retry() error = %v, want wrapped %v", err, transient)
	}
	if calls != p.MaxAttempts {
		t.Errorf("fn called %d times, want %d", calls, p.MaxAttempts)
	}
	if attempts != p.MaxAttempts {
		t.Errorf("Retry() attempts = %d, want %d", attempts, p.MaxAttempts)
	}
}

func TestRetry_ContextCancelledDuringSleep(t *testing.T) {
	p := Policy{
		MaxAttempts: 5,
		BaseDelay:   time.Minute,
	}

	ctx, cancel := context.WithCancel(context.Background())
	calls := 0
	go func() {
		time.Sleep(10 * time.Millisecond)
		cancel()
	}()

	_, err := p.Retry(ctx, func(error) bool { return true }, func() error {
		calls++
		return errors.New("transient")
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Retry() error = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestSleep_ReturnsOnContextDone(t *testing.T) {
	p := Policy{BaseDelay: time.Minute}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := p.Sleep(ctx, 1); !errors.Is(err, context.Canceled) {
		t.Errorf("Sleep() error = %v, want context.Canceled", err)
	}
}
