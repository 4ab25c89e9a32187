package batch

import (
	"context"
	"log/slog"

	"golang.org/x/sync/errgroup"

	"github.com/beatframe/beatframe-api/internal/job"
	"github.com/beatframe/beatframe-api/internal/scene"
)

// Runner executes one scene's generation job to a terminal state.
type Runner interface {
	Run(ctx context.Context, sc scene.Scene) *job.Job
}

// Scheduler fans scene jobs out to the Runner under a concurrency cap.
// Report entries come back ordered by scene index regardless of the order
// jobs actually finish in.
type Scheduler struct {
	runner   Runner
	logger   *slog.Logger
	limit    int
	failFast bool
}

// SchedulerOption configures a Scheduler.
type SchedulerOption func(*Scheduler)

// WithConcurrency caps the number of scenes generated at once.
func WithConcurrency(n int) SchedulerOption {
	return func(s *Scheduler) {
		if n > 0 {
			s.limit = n
		}
	}
}

// WithFailFast makes the first failed scene cancel all pending and
// in-flight jobs. The default lets remaining scenes finish.
func WithFailFast(enabled bool) SchedulerOption {
	return func(s *Scheduler) {
		s.failFast = enabled
	}
}

// NewScheduler creates a Scheduler with a default concurrency of 2.
func NewScheduler(runner Runner, logger *slog.Logger, opts ...SchedulerOption) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	s := &Scheduler{
		runner: runner,
		logger: logger,
		limit:  2,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Run dispatches every scene and blocks until all jobs are terminal. Each
// scene produces exactly one report entry; a scene failure never aborts the
// rest of the batch unless fail-fast is enabled. Scenes whose context is
// already cancelled when their slot opens are marked Cancelled without a
// remote call.
func (s *Scheduler) Run(ctx context.Context, scenes []scene.Scene) *Report {
	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make([]*job.Job, len(scenes))

	var g errgroup.Group
	g.SetLimit(s.limit)

	for i, sc := range scenes {
		g.Go(func() error {
			if runCtx.Err() != nil {
				j := job.New(sc.Index)
				_ = j.Cancel()
				jobs[i] = j
				return nil
			}

			j := s.runner.Run(runCtx, sc)
			jobs[i] = j

			if s.failFast && j.GetState() == job.StateFailed {
				s.logger.Warn("scene failed, cancelling batch",
					slog.Int("scene", sc.Index),
				)
				cancel()
			}
			return nil
		})
	}

	_ = g.Wait()
	return newReport(jobs)
}
