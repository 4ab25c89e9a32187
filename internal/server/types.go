// Package server provides the HTTP server for the BeatFrame API.
// It includes handlers, middleware, routes, and DTOs separated from domain types.
package server

// SceneRequest is one authored scene in a batch request, in output order.
type SceneRequest struct {
	// Prompt describes the clip content for the generation provider.
	Prompt string `json:"prompt" validate:"required"`
	// LeadingAnchor is the image fixing the clip's first frame.
	LeadingAnchor string `json:"leading_anchor,omitempty"`
	// TrailingAnchor is the image fixing the clip's last frame.
	TrailingAnchor string `json:"trailing_anchor,omitempty"`
	// ReferenceImages guide subject and style consistency for this scene.
	ReferenceImages []string `json:"reference_images,omitempty" validate:"max=16,dive,required"`
	// SkipGlobalReferences opts this scene out of the batch-wide reference list.
	SkipGlobalReferences bool `json:"skip_global_references,omitempty"`
	// LipSync requests an audio segment cut for this scene's window.
	LipSync bool `json:"lip_sync,omitempty"`
}

// CreateBatchRequest is the HTTP request body for creating a generation batch.
type CreateBatchRequest struct {
	// Scenes are the authored scene drafts.
	Scenes []SceneRequest `json:"scenes" validate:"required,min=1,dive"`
	// TimingPath is the timing source file to align scene windows against.
	TimingPath string `json:"timing_path" validate:"required"`
	// TimingKind selects the timing parser. Defaults to beatgrid.
	TimingKind string `json:"timing_kind,omitempty" validate:"omitempty,oneof=beatgrid measures transcript"`
	// AudioTrack is the full-length audio file lip-synced scenes cut from.
	AudioTrack string `json:"audio_track,omitempty"`
	// GlobalReferences is the batch-wide reference image list.
	GlobalReferences []string `json:"global_references,omitempty" validate:"max=16,dive,required"`
	// DisableAutoLink turns continuity auto-linking off.
	DisableAutoLink bool `json:"disable_auto_link,omitempty"`
	// FailFast cancels remaining scenes after the first failure.
	FailFast bool `json:"fail_fast,omitempty"`
	// PushToS3 uploads succeeded clips to S3 after the run.
	PushToS3 bool `json:"push_to_s3,omitempty"`
}

// CreateBatchResponse is the HTTP response after creating a batch.
type CreateBatchResponse struct {
	// ID is the unique identifier for the created batch.
	ID string `json:"id"`
	// Status is the initial batch status.
	Status string `json:"status"`
}

// SceneResultResponse is one scene's terminal outcome in a batch response.
type SceneResultResponse struct {
	SceneIndex int    `json:"scene_index"`
	State      string `json:"state"`
	ResultPath string `json:"result_path,omitempty"`
	ResultURL  string `json:"result_url,omitempty"`
	ErrorKind  string `json:"error_kind,omitempty"`
	Error      string `json:"error,omitempty"`
	Attempts   int    `json:"attempts,omitempty"`
}

// WarningResponse is a non-fatal planning note surfaced to the caller.
type WarningResponse struct {
	SceneIndex int    `json:"scene_index"`
	Message    string `json:"message"`
}

// BatchResponse is the HTTP response for getting batch details.
type BatchResponse struct {
	// ID is the unique identifier for the batch.
	ID string `json:"id"`
	// Status is the current batch status.
	Status string `json:"status"`
	// Error contains the pre-flight error message if the batch failed early.
	Error string `json:"error,omitempty"`
	// Warnings lists non-fatal planning notes.
	Warnings []WarningResponse `json:"warnings,omitempty"`
	// Scenes lists per-scene outcomes once the batch finished.
	Scenes []SceneResultResponse `json:"scenes,omitempty"`
}

// BatchSummaryResponse is one entry of the batch list endpoint.
type BatchSummaryResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// CancelBatchResponse is the HTTP response after requesting cancellation.
type CancelBatchResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// ErrorResponse is the standard error response format.
type ErrorResponse struct {
	// Error is the human-readable error message.
	Error string `json:"error"`
	// Code is the error code for programmatic handling.
	Code string `json:"code"`
}

// HealthResponse is the HTTP response for the health check endpoint.
type HealthResponse struct {
	// Status is the health status of the service.
	Status string `json:"status"`
}
