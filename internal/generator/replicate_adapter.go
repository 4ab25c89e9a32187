package generator

import (
	"context"
	"fmt"
	"io"

	"github.com/beatframe/beatframe-api/internal/replicate"
)

// ReplicateAdapter adapts the Replicate client to the Generator interface.
type ReplicateAdapter struct {
	client replicate.Client
}

// NewReplicateAdapter creates a new Replicate generator adapter.
func NewReplicateAdapter(client replicate.Client) *ReplicateAdapter {
	return &ReplicateAdapter{client: client}
}

// Submit creates a prediction on Replicate.
func (a *ReplicateAdapter) Submit(ctx context.Context, req Request) (string, int, error) {
	input := replicate.PredictionInput{
		Prompt:        req.Prompt,
		DurationSec:   req.DurationSec,
		AspectRatio:   req.AspectRatio,
		FirstFrame:    req.LeadingAnchor,
		LastFrame:     req.TrailingAnchor,
		ReferenceURLs: req.ReferenceURIs,
		AudioURL:      req.AudioURI,
	}
	predictionID, attempts, err := a.client.Submit(ctx, input)
	if err != nil {
		return "", attempts, fmt.Errorf("replicate adapter submit: %w", err)
	}
	return predictionID, attempts, nil
}

// Poll checks the status of a Replicate prediction.
func (a *ReplicateAdapter) Poll(ctx context.Context, remoteID string) (PollResult, error) {
	result, err := a.client.Poll(ctx, remoteID)
	if err != nil {
		return PollResult{}, fmt.Errorf("replicate adapter poll: %w", err)
	}

	// Map Replicate status to common status
	var status Status
	switch result.Status {
	case replicate.StatusStarting:
		status = StatusPending
	case replicate.StatusProcessing:
		status = StatusRunning
	case replicate.StatusSucceeded:
		status = StatusCompleted
	case replicate.StatusFailed:
		status = StatusFailed
	case replicate.StatusCanceled:
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

// Download streams the artifact from the prediction output URL.
func (a *ReplicateAdapter) Download(ctx context.Context, videoURL string, open func() (io.WriteCloser, error)) (int64, error) {
	n, err := a.client.Download(ctx, videoURL, open)
	if err != nil {
		return 0, fmt.Errorf("replicate adapter download: %w", err)
	}
	return n, nil
}

// Cancel requests cancellation of a Replicate prediction.
func (a *ReplicateAdapter) Cancel(ctx context.Context, remoteID string) error {
	if err := a.client.Cancel(ctx, remoteID); err != nil {
		return fmt.Errorf("replicate adapter cancel: %w", err)
	}
	return nil
}

// Compile-time check that ReplicateAdapter implements Generator.
var _ Generator = (*ReplicateAdapter)(nil)
