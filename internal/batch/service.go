package batch

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/beatframe/beatframe-api/internal/align"
	"github.com/beatframe/beatframe-api/internal/audio"
	"github.com/beatframe/beatframe-api/internal/fault"
	"github.com/beatframe/beatframe-api/internal/job"
	"github.com/beatframe/beatframe-api/internal/scene"
	"github.com/beatframe/beatframe-api/internal/storage"
	"github.com/beatframe/beatframe-api/internal/timing"
)

// Timing source kinds accepted in a batch request.
const (
	TimingKindBeatGrid = "beatgrid"
	TimingKindMeasures = "measures"
	TimingKindWords    = "transcript"
)

// ErrBatchNotCancellable is returned when cancelling a batch that already
// reached a terminal status.
var ErrBatchNotCancellable = errors.New("batch is not cancellable")

// Request contains the input parameters for a generation batch.
type Request struct {
	// Scenes are the authored scene drafts in output order. Windows and
	// durations are assigned by alignment, not by the caller.
	Scenes []scene.Scene
	// TimingPath is the timing source file to align against.
	TimingPath string
	// TimingKind selects the timing source parser.
	TimingKind string
	// AudioTrack is the full-length audio file lip-synced scenes cut from.
	AudioTrack string
	// GlobalReferences overrides the service-wide reference image list for
	// this batch when non-empty.
	GlobalReferences []scene.ImageRef
	// DisableAutoLink turns continuity auto-linking off for this batch.
	DisableAutoLink bool
	// FailFast cancels remaining scenes after the first failure.
	FailFast bool
	// PushToS3 uploads succeeded artifacts to S3 after the run.
	PushToS3 bool
}

// Service orchestrates the batch workflow: timing, alignment, continuity
// linking, audio segment extraction, scheduled generation, and optional S3
// delivery. One Service handles many batches; per-batch cancellation is keyed
// by batch ID.
type Service struct {
	repo      Repository
	runner    Runner
	aligner   *align.Aligner
	linker    *scene.Linker
	extractor *audio.Extractor
	cache     storage.Cache
	logger    *slog.Logger

	// maxConcurrentScenes limits parallel provider submissions.
	maxConcurrentScenes int
	// segmentDir holds extracted audio segments.
	segmentDir string

	mu      sync.Mutex
	cancels map[string]context.CancelFunc
}

// NewService creates a batch Service.
func NewService(
	repo Repository,
	runner Runner,
	aligner *align.Aligner,
	linker *scene.Linker,
	extractor *audio.Extractor,
	cache storage.Cache,
	logger *slog.Logger,
) *Service {
	if logger == nil {
		logger = slog.Default()
	}
	return &Service{
		repo:                repo,
		runner:              runner,
		aligner:             aligner,
		linker:              linker,
		extractor:           extractor,
		cache:               cache,
		logger:              logger,
		maxConcurrentScenes: 2,
		segmentDir:          filepath.Join(os.TempDir(), "beatframe", "audio"),
		cancels:             make(map[string]context.CancelFunc),
	}
}

// SetMaxConcurrentScenes configures how many scenes may generate in parallel.
func (s *Service) SetMaxConcurrentScenes(n int) {
	if n > 0 {
		s.maxConcurrentScenes = n
	}
}

// SetSegmentDir configures where extracted audio segments are written.
func (s *Service) SetSegmentDir(dir string) {
	if dir != "" {
		s.segmentDir = dir
	}
}

// CreateBatch creates a new batch in Pending status and persists it.
func (s *Service) CreateBatch(ctx context.Context) (*Batch, error) {
	b := New()

	s.logger.Info("creating batch", slog.String("batch_id", b.ID))

	if err := s.repo.Save(ctx, b); err != nil {
		s.logger.Error("failed to save batch",
			slog.String("batch_id", b.ID),
			slog.String("error", err.Error()),
		)
		return nil, err
	}
	return b, nil
}

// GetBatch retrieves a batch by ID.
func (s *Service) GetBatch(ctx context.Context, id string) (*Batch, error) {
	return s.repo.FindByID(ctx, id)
}

// ListBatches returns all known batches.
func (s *Service) ListBatches(ctx context.Context) ([]*Batch, error) {
	return s.repo.List(ctx)
}

// Process executes the full batch workflow and blocks until the batch is
// terminal. Pre-flight errors (timing, alignment, audio extraction) fail the
// batch before any remote call; once dispatch begins, per-scene outcomes land
// in the report instead.
func (s *Service) Process(ctx context.Context, b *Batch, req Request) error {
	runCtx, cancel := context.WithCancel(ctx)
	s.register(b.ID, cancel)
	defer s.unregister(b.ID)

	b.Start()
	if err := s.repo.Save(ctx, b); err != nil {
		return err
	}

	resolved, warnings, err := s.plan(req)
	if err != nil {
		return s.failPreflight(ctx, b, err)
	}

	if err := s.extractSegments(runCtx, b.ID, req, resolved); err != nil {
		return s.failPreflight(ctx, b, err)
	}

	b.SetPlan(resolved, warnings)
	if err := s.repo.Save(ctx, b); err != nil {
		return err
	}

	scheduler := NewScheduler(s.runner, s.logger,
		WithConcurrency(s.maxConcurrentScenes),
		WithFailFast(req.FailFast),
	)
	report := scheduler.Run(runCtx, resolved)

	if req.PushToS3 {
		s.deliver(ctx, report)
	}

	b.Finish(report)
	if err := s.repo.Save(ctx, b); err != nil {
		return err
	}

	s.logger.Info("batch finished",
		slog.String("batch_id", b.ID),
		slog.String("status", string(b.GetStatus())),
		slog.Int("succeeded", report.Succeeded()),
		slog.Int("failed", report.Failed()),
		slog.Int("cancelled", report.Cancelled()),
	)
	return nil
}

// Cancel requests cancellation of a running batch. In-flight scenes observe
// the signal within one poll interval; the batch itself reaches a terminal
// status through the normal Process path.
func (s *Service) Cancel(ctx context.Context, id string) error {
	s.mu.Lock()
	cancel, ok := s.cancels[id]
	s.mu.Unlock()

	if ok {
		s.logger.Info("cancelling batch", slog.String("batch_id", id))
		cancel()
		return nil
	}

	b, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return err
	}
	if b.GetStatus().IsTerminal() {
		return ErrBatchNotCancellable
	}
	// Pending but not yet processing; nothing in flight to stop.
	return ErrBatchNotCancellable
}

// plan loads the timing source, aligns scene windows onto it and resolves
// continuity links. Scene order and count are preserved.
func (s *Service) plan(req Request) ([]scene.Scene, []scene.Warning, error) {
	if len(req.Scenes) == 0 {
		return nil, nil, fault.New(fault.KindInvalidConfig, "batch has no scenes")
	}

	source, err := timingSource(req.TimingKind)
	if err != nil {
		return nil, nil, err
	}
	grid, err := source.Load(req.TimingPath)
	if err != nil {
		return nil, nil, err
	}

	windows, err := s.aligner.Align(grid, len(req.Scenes))
	if err != nil {
		return nil, nil, err
	}

	scenes := make([]scene.Scene, len(req.Scenes))
	for i := range req.Scenes {
		sc := req.Scenes[i].Clone()
		sc.Index = i
		sc.Window = scene.Window{Start: windows[i].Start, End: windows[i].End}
		sc.Duration = windows[i].Duration
		scenes[i] = sc
	}

	linker := *s.linker
	if len(req.GlobalReferences) > 0 {
		linker.GlobalReferences = req.GlobalReferences
	}
	if req.DisableAutoLink {
		linker.AutoLink = false
	}

	resolved, warnings := linker.Resolve(scenes)
	return resolved, warnings, nil
}

// extractSegments cuts one audio segment per lip-synced scene from the batch
// audio track, matching each scene's aligned window.
func (s *Service) extractSegments(ctx context.Context, batchID string, req Request, scenes []scene.Scene) error {
	ext := filepath.Ext(req.AudioTrack)
	for i := range scenes {
		if !scenes[i].LipSyncEnabled {
			continue
		}
		if req.AudioTrack == "" {
			return fault.Newf(fault.KindInvalidConfig,
				"scene %d has lip-sync enabled but the batch has no audio track", scenes[i].Index)
		}

		dest := filepath.Join(s.segmentDir,
			fmt.Sprintf("%s_scene_%03d%s", batchID, scenes[i].Index, ext))
		window := audio.Window{Start: scenes[i].Window.Start, End: scenes[i].Window.End}

		if err := s.extractor.Extract(ctx, req.AudioTrack, window, audio.DefaultPad, dest); err != nil {
			return err
		}
		scenes[i].AudioSegmentPath = dest
	}
	return nil
}

// deliver uploads succeeded artifacts to S3 and records the public URL on
// each report entry. Upload failures are logged and leave the local path as
// the result; a misconfigured S3 stops after the first attempt.
func (s *Service) deliver(ctx context.Context, report *Report) {
	for i := range report.Entries {
		e := &report.Entries[i]
		if e.State != job.StateSucceeded || e.ResultPath == "" {
			continue
		}

		f, err := s.cache.Open(ctx, e.ResultPath)
		if err != nil {
			s.logger.Warn("cannot open artifact for upload",
				slog.Int("scene", e.SceneIndex),
				slog.String("error", err.Error()),
			)
			continue
		}

		url, err := s.cache.UploadToS3(ctx, filepath.Base(e.ResultPath), f)
		_ = f.Close()
		if err != nil {
			if errors.Is(err, storage.ErrS3NotConfigured) {
				s.logger.Warn("s3 delivery requested but not configured")
				return
			}
			s.logger.Warn("s3 upload failed",
				slog.Int("scene", e.SceneIndex),
				slog.String("error", err.Error()),
			)
			continue
		}
		e.ResultURL = url
	}
}

func (s *Service) failPreflight(ctx context.Context, b *Batch, cause error) error {
	s.logger.Error("batch pre-flight failed",
		slog.String("batch_id", b.ID),
		slog.String("error", cause.Error()),
	)
	b.FailPreflight(cause.Error())
	if err := s.repo.Save(ctx, b); err != nil {
		return err
	}
	return cause
}

func (s *Service) register(id string, cancel context.CancelFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.cancels[id] = cancel
}

func (s *Service) unregister(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.cancels, id)
}

// timingSource maps a request timing kind onto a parser.
func timingSource(kind string) (timing.Source, error) {
	switch kind {
	case TimingKindBeatGrid, "":
		return &timing.BeatGridSource{}, nil
	case TimingKindMeasures:
		return &timing.BeatGridSource{UseMeasures: true}, nil
	case TimingKindWords:
		return &timing.TranscriptSource{}, nil
	default:
		return nil, fault.Newf(fault.KindInvalidConfig, "unknown timing kind %q", kind)
	}
}
