// Package generator provides the common interface for video generation
// providers. Both fal and Replicate adapters implement this interface; the
// job client depends only on it.
package generator

import (
	"context"
	"io"
)

// Status represents the status of a generation request.
type Status string

// Common request statuses across providers.
const (
	StatusPending   Status = "PENDING"   // Submitted but not yet running
	StatusInQueue   Status = "IN_QUEUE"  // Waiting in the provider queue
	StatusRunning   Status = "RUNNING"   // Currently generating
	StatusCompleted Status = "COMPLETED" // Finished successfully
	StatusFailed    Status = "FAILED"    // Failed with a provider error
	StatusCancelled Status = "CANCELLED" // Cancelled before completion
)

// IsTerminal returns true if the status represents a final state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// Request contains the parameters for one clip generation.
// Image and audio fields carry URLs or data URIs prepared by the caller.
type Request struct {
	Prompt         string
	DurationSec    int
	AspectRatio    string
	LeadingAnchor  string   // first-frame image
	TrailingAnchor string   // last-frame image
	ReferenceURIs  []string // subject/style reference images
	AudioURI       string   // lip-sync driving audio
	LipSync        bool
}

// PollResult contains the result of polling a request's status.
type PollResult struct {
	Status   Status
	VideoURL string // URL to download the artifact (set when completed)
	Error    string // provider error message (set when failed)
}

// Generator defines the interface for video generation providers.
type Generator interface {
	// Submit sends a generation request and returns a remote request ID
	// along with the number of transport attempts spent, including any the
	// provider client retried internally.
	Submit(ctx context.Context, req Request) (remoteID string, attempts int, err error)

	// Poll checks the status of a request and returns the result.
	Poll(ctx context.Context, remoteID string) (PollResult, error)

	// Download streams the artifact at videoURL into the writer produced
	// by open, returning the number of bytes written.
	Download(ctx context.Context, videoURL string, open func() (io.WriteCloser, error)) (int64, error)

	// Cancel requests remote cancellation of a non-terminal request.
	Cancel(ctx context.Context, remoteID string) error
}
