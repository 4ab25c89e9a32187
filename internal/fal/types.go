// Package fal provides an HTTP client for the fal.ai queue API used for
// asynchronous video clip generation.
package fal

// Status represents the status of a fal queue request.
type Status string

// Queue statuses aligned with the fal API.
const (
	StatusInQueue    Status = "IN_QUEUE"
	StatusInProgress Status = "IN_PROGRESS"
	StatusCompleted  Status = "COMPLETED"
	StatusFailed     Status = "FAILED"
	StatusCancelled  Status = "CANCELLED"
)

// IsTerminal returns true if the status is a terminal state.
func (s Status) IsTerminal() bool {
	switch s {
	case StatusCompleted, StatusFailed, StatusCancelled:
		return true
	default:
		return false
	}
}

// GenerationInput is the model input for a clip generation request.
// Image fields accept URLs or data URIs.
type GenerationInput struct {
	Prompt         string   `json:"prompt"`
	DurationSec    int      `json:"duration"`
	AspectRatio    string   `json:"aspect_ratio,omitempty"`
	ImageURL       string   `json:"image_url,omitempty"`      // first-frame anchor
	LastImageURL   string   `json:"last_image_url,omitempty"` // last-frame anchor
	ReferenceURLs  []string `json:"reference_image_urls,omitempty"`
	AudioURL       string   `json:"audio_url,omitempty"` // lip-sync driving audio
	EnableLipSync  bool     `json:"enable_lip_sync,omitempty"`
	NegativePrompt string   `json:"negative_prompt,omitempty"`
	Seed           int      `json:"seed,omitempty"`
}

// submitResponse is the response from the queue submit endpoint.
type submitResponse struct {
	RequestID   string `json:"request_id"`
	StatusURL   string `json:"status_url,omitempty"`
	ResponseURL string `json:"response_url,omitempty"`
	CancelURL   string `json:"cancel_url,omitempty"`
	Error       string `json:"error,omitempty"`
}

// statusResponse is the response from the queue status endpoint.
type statusResponse struct {
	Status        string `json:"status"`
	QueuePosition int    `json:"queue_position,omitempty"`
	ResponseURL   string `json:"response_url,omitempty"`
	Error         string `json:"error,omitempty"`
}

// resultResponse is the model output fetched once a request completes.
type resultResponse struct {
	Video struct {
		URL         string `json:"url"`
		ContentType string `json:"content_type,omitempty"`
		FileSize    int64  `json:"file_size,omitempty"`
	} `json:"video"`
	Error string `json:"error,omitempty"`
}

// PollResult contains the result of polling a request's status.
type PollResult struct {
	Status        Status
	QueuePosition int
	VideoURL      string // set once Status is StatusCompleted
	Error         string // set when Status is StatusFailed
}
