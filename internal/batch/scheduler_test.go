package batch

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/beatframe/beatframe-api/internal/fault"
	"github.com/beatframe/beatframe-api/internal/job"
	"github.com/beatframe/beatframe-api/internal/scene"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// stubRunner produces terminal jobs without any remote work. delays lets a
// test scramble completion order; failIndexes marks scenes that fail.
type stubRunner struct {
	mu          sync.Mutex
	calls       []int
	delays      map[int]time.Duration
	failIndexes map[int]bool

	inFlight    atomic.Int32
	maxInFlight atomic.Int32
}

func (r *stubRunner) Run(ctx context.Context, sc scene.Scene) *job.Job {
	cur := r.inFlight.Add(1)
	for {
		prev := r.maxInFlight.Load()
		if cur <= prev || r.maxInFlight.CompareAndSwap(prev, cur) {
			break
		}
	}
	defer r.inFlight.Add(-1)

	r.mu.Lock()
	r.calls = append(r.calls, sc.Index)
	delay := r.delays[sc.Index]
	fail := r.failIndexes[sc.Index]
	r.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			j := job.New(sc.Index)
			_ = j.Cancel()
			return j
		}
	}

	j := job.New(sc.Index)
	if fail {
		_ = j.Fail(fault.KindProviderFailed, "stub failure")
		return j
	}
	_ = j.MarkSubmitted("remote")
	_ = j.MarkPolling()
	_ = j.Succeed("/cache/out.mp4")
	return j
}

func (r *stubRunner) callCount() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.calls)
}

func makeScenes(n int) []scene.Scene {
	scenes := make([]scene.Scene, n)
	for i := range scenes {
		scenes[i] = scene.Scene{Index: i, Prompt: "x", Duration: 4, Window: scene.Window{End: 4}}
	}
	return scenes
}

func TestScheduler_ReportOrderedBySceneIndex(t *testing.T) {
	// Later scenes finish first; the report must still be in scene order.
	runner := &stubRunner{delays: map[int]time.Duration{
		0: 30 * time.Millisecond,
		1: 20 * time.Millisecond,
		2: 10 * time.Millisecond,
		3: 0,
	}}
	s := NewScheduler(runner, discardLogger(), WithConcurrency(4))

	report := s.Run(context.Background(), makeScenes(4))
	if len(report.Entries) != 4 {
		t.Fatalf("got %d entries, want 4", len(report.Entries))
	}
	for i, e := range report.Entries {
		if e.SceneIndex != i {
			t.Errorf("entry %d has scene index %d", i, e.SceneIndex)
		}
		if e.State != job.StateSucceeded {
			t.Errorf("scene %d state = %q, want SUCCEEDED", i, e.State)
		}
	}
}

func TestScheduler_RespectsConcurrencyCap(t *testing.T) {
	runner := &stubRunner{delays: map[int]time.Duration{
		0: 20 * time.Millisecond,
		1: 20 * time.Millisecond,
		2: 20 * time.Millisecond,
		3: 20 * time.Millisecond,
	}}
	s := NewScheduler(runner, discardLogger(), WithConcurrency(2))

	s.Run(context.Background(), makeScenes(4))

	if max := runner.maxInFlight.Load(); max > 2 {
		t.Errorf("observed %d concurrent jobs, cap is 2", max)
	}
	if runner.callCount() != 4 {
		t.Errorf("runner called %d times, want 4", runner.callCount())
	}
}

func TestScheduler_SceneFailureDoesNotAbortBatch(t *testing.T) {
	runner := &stubRunner{failIndexes: map[int]bool{1: true}}
	s := NewScheduler(runner, discardLogger(), WithConcurrency(1))

	report := s.Run(context.Background(), makeScenes(3))
	if report.Succeeded() != 2 {
		t.Errorf("Succeeded() = %d, want 2", report.Succeeded())
	}
	if report.Failed() != 1 {
		t.Errorf("Failed() = %d, want 1", report.Failed())
	}
	if runner.callCount() != 3 {
		t.Errorf("runner called %d times, want 3", runner.callCount())
	}
}

func TestScheduler_FailFastCancelsRemainingScenes(t *testing.T) {
	// Sequential dispatch: scene 0 fails, scenes 1 and 2 must be cancelled
	// before reaching the runner.
	runner := &stubRunner{failIndexes: map[int]bool{0: true}}
	s := NewScheduler(runner, discardLogger(), WithConcurrency(1), WithFailFast(true))

	report := s.Run(context.Background(), makeScenes(3))
	if report.Failed() != 1 {
		t.Errorf("Failed() = %d, want 1", report.Failed())
	}
	if report.Cancelled() != 2 {
		t.Errorf("Cancelled() = %d, want 2", report.Cancelled())
	}
	if runner.callCount() != 1 {
		t.Errorf("runner called %d times, want 1", runner.callCount())
	}
}

func TestScheduler_CancelledContextSkipsDispatch(t *testing.T) {
	runner := &stubRunner{}
	s := NewScheduler(runner, discardLogger())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	report := s.Run(ctx, makeScenes(3))
	if report.Cancelled() != 3 {
		t.Errorf("Cancelled() = %d, want 3", report.Cancelled())
	}
	if runner.callCount() != 0 {
		t.Errorf("runner called %d times, want 0", runner.callCount())
	}
}
