// Package replicate provides an HTTP client for the Replicate predictions
// API, used as an alternative video generation backend.
package replicate

// Status represents the status of a Replicate prediction.
type Status string

// Prediction statuses aligned with the Replicate API.
const (
	StatusStarting   Status = "starting"
	StatusProcessing Status = "processing"
	StatusSucceeded  Status = "succeeded"
	StatusFailed     Status = "failed"
	StatusCanceled   Status = "canceled"
)

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusSucceeded, StatusFailed, StatusCanceled:
		return true
	default:
		return false
	}
}

// PredictionInput is the model input for a clip generation prediction.
type PredictionInput struct {
	Prompt         string   `json:"prompt"`
	DurationSec    int      `json:"duration"`
	AspectRatio    string   `json:"aspect_ratio,omitempty"`
	FirstFrame     string   `json:"first_frame_image,omitempty"`
	LastFrame      string   `json:"last_frame_image,omitempty"`
	ReferenceURLs  []string `json:"reference_images,omitempty"`
	AudioURL       string   `json:"audio,omitempty"`
	NegativePrompt string   `json:"negative_prompt,omitempty"`
}

// predictionRequest is the request body for creating a prediction.
type predictionRequest struct {
	Version string          `json:"version"`
	Input   PredictionInput `json:"input"`
}

// predictionResponse is the response body for create and get operations.
type predictionResponse struct {
	ID     string     `json:"id"`
	Status string     `json:"status"`
	Output outputURLs `json:"output,omitempty"`
	Error  string     `json:"error,omitempty"`
}

// PollResult contains the result of polling a prediction's status.
type PollResult struct {
	Status   Status
	VideoURL string // set once Status is StatusSucceeded
	Error    string // set when Status is StatusFailed
}
