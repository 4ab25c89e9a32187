package job

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"math"
	"time"

	"github.com/beatframe/beatframe-api/internal/fault"
	"github.com/beatframe/beatframe-api/internal/generator"
	"github.com/beatframe/beatframe-api/internal/scene"
	"github.com/beatframe/beatframe-api/internal/storage"
)

// Client drives a scene's generation job through its full lifecycle:
// validate, submit, poll, fetch. All remote calls go through the provider's
// Generator; retries happen inside the shared transport under one backoff
// policy, so this layer only classifies outcomes.
type Client struct {
	gen    generator.Generator
	cache  storage.Cache
	logger *slog.Logger

	pollInterval     time.Duration
	maxWait          time.Duration
	allowedDurations []float64
	maxReferences    int
	aspectRatio      string
}

// Option configures a Client.
type Option func(*Client)

// WithPollInterval sets the fixed interval between remote status checks.
func WithPollInterval(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.pollInterval = d
		}
	}
}

// WithMaxWait sets the per-job maximum wait for remote generation.
func WithMaxWait(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.maxWait = d
		}
	}
}

// WithAllowedDurations sets the provider's discrete duration set.
func WithAllowedDurations(allowed []float64) Option {
	return func(c *Client) {
		if len(allowed) > 0 {
			c.allowedDurations = allowed
		}
	}
}

// WithMaxReferenceImages sets the provider's reference image limit.
func WithMaxReferenceImages(n int) Option {
	return func(c *Client) {
		if n > 0 {
			c.maxReferences = n
		}
	}
}

// WithAspectRatio sets the output aspect ratio requested from the provider.
func WithAspectRatio(ar string) Option {
	return func(c *Client) {
		if ar != "" {
			c.aspectRatio = ar
		}
	}
}

// NewClient creates a job Client bound to one provider and one artifact cache.
func NewClient(gen generator.Generator, cache storage.Cache, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Client{
		gen:              gen,
		cache:            cache,
		logger:           logger,
		pollInterval:     10 * time.Second,
		maxWait:          8 * time.Minute,
		allowedDurations: []float64{4, 6, 8},
		maxReferences:    3,
		aspectRatio:      "16:9",
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Run executes the full job lifecycle for one scene and returns the job in a
// terminal state. It never panics the batch: every failure mode lands in the
// job's LastError.
func (c *Client) Run(ctx context.Context, sc scene.Scene) *Job {
	j := New(sc.Index)

	if err := c.validate(sc); err != nil {
		_ = j.Fail(fault.KindInvalidConfig, err.Error())
		c.logger.Warn("scene rejected before submission",
			slog.Int("scene", sc.Index),
			slog.String("error", err.Error()),
		)
		return j
	}

	if err := c.submit(ctx, j, sc); err != nil {
		c.classifyFailure(ctx, j, err)
		return j
	}

	c.poll(ctx, j, sc)
	return j
}

// validate enforces provider constraints before any network call is made.
func (c *Client) validate(sc scene.Scene) error {
	if sc.Prompt == "" {
		return fmt.Errorf("scene %d has an empty prompt", sc.Index)
	}
	if !c.durationAllowed(sc.Duration) {
		return fmt.Errorf("scene %d duration %.1fs is not in the allowed set %v",
			sc.Index, sc.Duration, c.allowedDurations)
	}
	if span := sc.Window.Span(); math.Abs(span-sc.Duration) > 1e-9 {
		return fmt.Errorf("scene %d window span %.3fs does not match duration %.1fs",
			sc.Index, span, sc.Duration)
	}
	if len(sc.ReferenceImages) > c.maxReferences {
		return fmt.Errorf("scene %d has %d reference images, provider limit is %d",
			sc.Index, len(sc.ReferenceImages), c.maxReferences)
	}
	if sc.LipSyncEnabled && sc.AudioSegmentPath == "" {
		return fmt.Errorf("scene %d has lip-sync enabled but no audio segment", sc.Index)
	}
	return nil
}

func (c *Client) durationAllowed(d float64) bool {
	for _, a := range c.allowedDurations {
		if a == d {
			return true
		}
	}
	return false
}

// submit builds the provider request and issues the remote create call.
func (c *Client) submit(ctx context.Context, j *Job, sc scene.Scene) error {
	req, err := c.buildRequest(sc)
	if err != nil {
		return fault.Wrap(fault.KindInvalidConfig, "build request", err)
	}

	remoteID, attempts, err := c.gen.Submit(ctx, req)
	// The transport reports every HTTP attempt it spent, including ones it
	// recovered from. Record them even when the submit ultimately failed.
	if attempts < 1 {
		attempts = 1
	}
	j.SetAttempt(attempts)
	if err != nil {
		return err
	}

	if err := j.MarkSubmitted(remoteID); err != nil {
		return err
	}
	c.logger.Info("scene submitted",
		slog.Int("scene", sc.Index),
		slog.String("remote_id", remoteID),
		slog.Float64("duration", sc.Duration),
	)
	return nil
}

// buildRequest converts a resolved scene into a provider request, inlining
// local imagery and audio as data URIs.
func (c *Client) buildRequest(sc scene.Scene) (generator.Request, error) {
	req := generator.Request{
		Prompt:      sc.Prompt,
		DurationSec: int(math.Round(sc.Duration)),
		AspectRatio: c.aspectRatio,
		LipSync:     sc.LipSyncEnabled,
	}

	if sc.LeadingAnchor != nil {
		uri, err := fileDataURI(sc.LeadingAnchor.Path)
		if err != nil {
			return generator.Request{}, fmt.Errorf("leading anchor: %w", err)
		}
		req.LeadingAnchor = uri
	}
	if sc.TrailingAnchor != nil {
		uri, err := fileDataURI(sc.TrailingAnchor.Path)
		if err != nil {
			return generator.Request{}, fmt.Errorf("trailing anchor: %w", err)
		}
		req.TrailingAnchor = uri
	}
	for _, ref := range sc.ReferenceImages {
		uri, err := fileDataURI(ref.Path)
		if err != nil {
			return generator.Request{}, fmt.Errorf("reference image: %w", err)
		}
		req.ReferenceURIs = append(req.ReferenceURIs, uri)
	}
	if sc.LipSyncEnabled && sc.AudioSegmentPath != "" {
		uri, err := fileDataURI(sc.AudioSegmentPath)
		if err != nil {
			return generator.Request{}, fmt.Errorf("audio segment: %w", err)
		}
		req.AudioURI = uri
	}

	return req, nil
}

// poll queries remote status on a fixed interval until a terminal status is
// observed, the max wait elapses, or the context is cancelled. A cancellation
// signal is observed within one poll interval.
func (c *Client) poll(ctx context.Context, j *Job, sc scene.Scene) {
	if err := j.MarkPolling(); err != nil {
		_ = j.Fail(fault.KindProviderFailed, err.Error())
		return
	}

	deadline := time.Now().Add(c.maxWait)
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			c.cancelRemote(ctx, j)
			_ = j.Cancel()
			return
		case <-ticker.C:
		}

		if time.Now().After(deadline) {
			c.cancelRemote(ctx, j)
			_ = j.Fail(fault.KindTimeout,
				fmt.Sprintf("no terminal status after %s", c.maxWait))
			return
		}

		res, err := c.gen.Poll(ctx, j.GetRemoteID())
		if err != nil {
			c.classifyFailure(ctx, j, err)
			return
		}

		switch res.Status {
		case generator.StatusCompleted:
			c.fetch(ctx, j, sc, res.VideoURL)
			return
		case generator.StatusFailed:
			_ = j.Fail(fault.KindProviderFailed, res.Error)
			return
		case generator.StatusCancelled:
			_ = j.Cancel()
			return
		}
		// Non-terminal: wait for the next tick.
	}
}

// fetch downloads the artifact into the cache via a staged write and
// verifies it is non-empty. Partial downloads are discarded, never renamed
// into place.
func (c *Client) fetch(ctx context.Context, j *Job, sc scene.Scene, videoURL string) {
	key := fmt.Sprintf("scene_%03d_%s.mp4", sc.Index, j.GetRemoteID())

	var staged *storage.StagedFile
	open := func() (io.WriteCloser, error) {
		s, err := c.cache.StoreFunc(ctx, key)
		if err != nil {
			return nil, err
		}
		staged = s
		return s, nil
	}

	n, err := c.gen.Download(ctx, videoURL, open)
	if err != nil {
		if staged != nil {
			staged.Abort()
		}
		if ctx.Err() != nil {
			c.cancelRemote(ctx, j)
			_ = j.Cancel()
			return
		}
		c.classifyFailure(ctx, j, err)
		return
	}

	if n == 0 {
		_ = c.cache.Remove(ctx, []string{staged.Path()})
		_ = j.Fail(fault.KindProviderFailed, "provider returned an empty artifact")
		return
	}

	_ = j.Succeed(staged.Path())
	c.logger.Info("scene artifact cached",
		slog.Int("scene", sc.Index),
		slog.String("path", staged.Path()),
		slog.Int64("bytes", n),
	)
}

// Cancel requests remote cancellation for a non-terminal job and transitions
// it to Cancelled.
func (c *Client) Cancel(ctx context.Context, j *Job) error {
	if j.IsTerminal() {
		return nil
	}
	c.cancelRemote(ctx, j)
	return j.Cancel()
}

// cancelRemote asks the provider to stop work on a job with a remote ID.
// Runs on a detached context so batch cancellation does not strand remote
// resources.
func (c *Client) cancelRemote(ctx context.Context, j *Job) {
	remoteID := j.GetRemoteID()
	if remoteID == "" {
		return
	}

	cancelCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 15*time.Second)
	defer cancel()

	if err := c.gen.Cancel(cancelCtx, remoteID); err != nil {
		c.logger.Warn("remote cancel failed",
			slog.Int("scene", j.SceneIndex),
			slog.String("remote_id", remoteID),
			slog.String("error", err.Error()),
		)
	}
}

// classifyFailure maps a stage error onto the job's terminal state. Errors
// that were retryable mean the transport already spent the backoff budget;
// the attempt count recorded at submission stays authoritative.
func (c *Client) classifyFailure(ctx context.Context, j *Job, err error) {
	if ctx.Err() != nil {
		c.cancelRemote(ctx, j)
		_ = j.Cancel()
		return
	}

	switch fault.KindOf(err) {
	case fault.KindTransientNetwork, fault.KindRateLimited:
		_ = j.Fail(fault.KindRetriesExhausted, err.Error())
	case fault.KindInvalidConfig:
		_ = j.Fail(fault.KindInvalidConfig, err.Error())
	default:
		_ = j.Fail(fault.KindProviderFailed, err.Error())
	}
}
