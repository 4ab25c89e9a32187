package generator

import (
	"context"
	"fmt"
	"io"

	"github.com/beatframe/beatframe-api/internal/fal"
)

// FalAdapter adapts the fal client to the Generator interface.
type FalAdapter struct {
	client fal.Client
}

// NewFalAdapter creates a new fal generator adapter.
func NewFalAdapter(client fal.Client) *FalAdapter {
	return &FalAdapter{client: client}
}

// Submit sends a generation request to fal.
func (a *FalAdapter) Submit(ctx context.Context, req Request) (string, int, error) {
	input := fal.GenerationInput{
		Prompt:        req.Prompt,
		DurationSec:   req.DurationSec,
		AspectRatio:   req.AspectRatio,
		ImageURL:      req.LeadingAnchor,
		LastImageURL:  req.TrailingAnchor,
		ReferenceURLs: req.ReferenceURIs,
		AudioURL:      req.AudioURI,
		EnableLipSync: req.LipSync,
	}
	requestID, attempts, err := a.client.Submit(ctx, input)
	if err != nil {
		return "", attempts, fmt.Errorf("fal adapter submit: %w", err)
	}
	return requestID, attempts, nil
}

// Poll checks the status of a fal request.
func (a *FalAdapter) Poll(ctx context.Context, remoteID string) (PollResult, error) {
	result, err := a.client.Poll(ctx, remoteID)
	if err != nil {
		return PollResult{}, fmt.Errorf("fal adapter poll: %w", err)
	}

	// Map fal status to common status
	var status Status
	switch result.Status {
	case fal.StatusInQueue:
		status = StatusInQueue
	case fal.StatusInProgress:
		status = StatusRunning
	case fal.StatusCompleted:
		status = StatusCompleted
	case fal.StatusFailed:
		status = StatusFailed
	case fal.StatusCancelled:
		status = StatusCancelled
	default:
		status = Status(result.Status)
	}

	return PollResult{
		Status:   status,
		VideoURL: result.VideoURL,
		Error:    result.Error,
	}, nil
}

// Download streams the artifact from the fal output URL.
func (a *FalAdapter) Download(ctx context.Context, videoURL string, open func() (io.WriteCloser, error)) (int64, error) {
	n, err := a.client.Download(ctx, videoURL, open)
	if err != nil {
		return 0, fmt.Errorf("fal adapter download: %w", err)
	}
	return n, nil
}

// Cancel requests cancellation of a fal request.
func (a *FalAdapter) Cancel(ctx context.Context, remoteID string) error {
	if err := a.client.Cancel(ctx, remoteID); err != nil {
		return fmt.Errorf("fal adapter cancel: %w", err)
	}
	return nil
}

// Compile-time check that FalAdapter implements Generator.
var _ Generator = (*FalAdapter)(nil)
