package fal

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/beatframe/beatframe-api/internal/backoff"
	"github.com/beatframe/beatframe-api/internal/restclient"
)

// Static errors for fal client operations.
var (
	// ErrModelRequired is returned when the model identifier is not provided.
	ErrModelRequired = errors.New("fal: model is required")
	// ErrAPIKeyNotSet is returned when no API key is configured.
	ErrAPIKeyNotSet = errors.New("fal: FAL_KEY environment variable is not set")
	// ErrRequestIDRequired is returned when the request ID is not provided.
	ErrRequestIDRequired = errors.New("fal: request ID is required")
	// ErrNoRequestIDReturned is returned when the submit response contains no request ID.
	ErrNoRequestIDReturned = errors.New("fal: submit failed: no request ID returned")
	// ErrSubmitFailed is returned when the submit operation fails.
	ErrSubmitFailed = errors.New("fal: submit failed")
	// ErrNoVideoURL is returned when a completed request has no video URL.
	ErrNoVideoURL = errors.New("fal: no video URL in completed request")
)

// Client defines the interface for interacting with the fal queue API.
type Client interface {
	// Submit enqueues a generation request and returns the request ID along
	// with the number of HTTP attempts spent, including retried ones.
	Submit(ctx context.Context, input GenerationInput) (requestID string, attempts int, err error)

	// Poll checks the status of a request. On completion it resolves the
	// output video URL.
	Poll(ctx context.Context, requestID string) (PollResult, error)

	// Download streams the generated artifact to the writer produced by
	// open, returning the number of bytes written.
	Download(ctx context.Context, videoURL string, open func() (io.WriteCloser, error)) (int64, error)

	// Cancel requests cancellation of a queued or running request.
	Cancel(ctx context.Context, requestID string) error
}

// HTTPClient is the HTTP implementation of the fal Client interface.
type HTTPClient struct {
	apiKey  string
	model   string
	baseURL string
	rest    *restclient.Client

	httpClient *http.Client
	policy     backoff.Policy
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithAPIKey sets the API key for authentication.
func WithAPIKey(key string) ClientOption {
	return func(hc *HTTPClient) {
		hc.apiKey = key
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithBaseURL sets a custom base URL for the fal queue API.
func WithBaseURL(url string) ClientOption {
	return func(hc *HTTPClient) {
		hc.baseURL = url
	}
}

// WithBackoff sets the retry policy for transient failures.
func WithBackoff(p backoff.Policy) ClientOption {
	return func(hc *HTTPClient) {
		hc.policy = p
	}
}

// NewClient creates a new fal HTTP client for the given model identifier
// (for example "fal-ai/veo3/fast/image-to-video"). The API key can be set via
// the WithAPIKey option; if not provided it is read from FAL_KEY.
func NewClient(model string, opts ...ClientOption) (*HTTPClient, error) {
	if model == "" {
		return nil, ErrModelRequired
	}

	c := &HTTPClient{
		model:   model,
		baseURL: "https://queue.fal.run",
		policy:  backoff.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.apiKey == "" {
		c.apiKey = os.Getenv("FAL_KEY")
	}
	if c.apiKey == "" {
		return nil, ErrAPIKeyNotSet
	}

	restOpts := []restclient.Option{restclient.WithPolicy(c.policy)}
	if c.httpClient != nil {
		restOpts = append(restOpts, restclient.WithHTTPClient(c.httpClient))
	}
	c.rest = restclient.New(c.authorize, restOpts...)

	return c, nil
}

// authorize stamps the fal key header onto an outgoing request.
func (c *HTTPClient) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Key "+c.apiKey)
}

// Submit enqueues a generation request and returns the request ID along with
// the number of HTTP attempts the transport spent.
func (c *HTTPClient) Submit(ctx context.Context, input GenerationInput) (string, int, error) {
	bodyBytes, err := json.Marshal(input)
	if err != nil {
		return "", 0, fmt.Errorf("fal: marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s", c.baseURL, c.model)

	var resp submitResponse
	attempts, err := c.rest.DoJSON(ctx, http.MethodPost, url, bodyBytes, &resp)
	if err != nil {
		return "", attempts, err
	}

	if resp.RequestID == "" {
		if resp.Error != "" {
			return "", attempts, fmt.Errorf("%w: %s", ErrSubmitFailed, resp.Error)
		}
		return "", attempts, ErrNoRequestIDReturned
	}

	return resp.RequestID, attempts, nil
}

// Poll checks the status of a request and, once completed, fetches the model
// response to resolve the output video URL.
func (c *HTTPClient) Poll(ctx context.Context, requestID string) (PollResult, error) {
	if requestID == "" {
		return PollResult{}, ErrRequestIDRequired
	}

	url := fmt.Sprintf("%s/%s/requests/%s/status", c.baseURL, c.model, requestID)

	var resp statusResponse
	if _, err := c.rest.DoJSON(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return PollResult{}, err
	}

	var mapped Status
	switch resp.Status {
	case "IN_QUEUE":
		mapped = StatusInQueue
	case "IN_PROGRESS":
		mapped = StatusInProgress
	case "COMPLETED":
		mapped = StatusCompleted
	case "FAILED", "ERROR":
		mapped = StatusFailed
	case "CANCELLED", "CANCELED":
		mapped = StatusCancelled
	default:
		mapped = Status(resp.Status)
	}

	result := PollResult{
		Status:        mapped,
		QueuePosition: resp.QueuePosition,
	}

	switch result.Status {
	case StatusCompleted:
		out, err := c.fetchResult(ctx, requestID)
		if err != nil {
			return PollResult{}, err
		}
		if out.Error != "" {
			// A completed queue entry can still carry a model-level error.
			result.Status = StatusFailed
			result.Error = out.Error
			return result, nil
		}
		if out.Video.URL == "" {
			return PollResult{}, ErrNoVideoURL
		}
		result.VideoURL = out.Video.URL
	case StatusFailed:
		result.Error = resp.Error
	}

	return result, nil
}

// fetchResult retrieves the model output for a completed request.
func (c *HTTPClient) fetchResult(ctx context.Context, requestID string) (resultResponse, error) {
	url := fmt.Sprintf("%s/%s/requests/%s", c.baseURL, c.model, requestID)

	var resp resultResponse
	if _, err := c.rest.DoJSON(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return resultResponse{}, err
	}
	return resp, nil
}

// Download streams the generated artifact from its output URL.
func (c *HTTPClient) Download(ctx context.Context, videoURL string, open func() (io.WriteCloser, error)) (int64, error) {
	return c.rest.Download(ctx, videoURL, open)
}

// Cancel requests cancellation of a queued or running request.
func (c *HTTPClient) Cancel(ctx context.Context, requestID string) error {
	if requestID == "" {
		return ErrRequestIDRequired
	}

	url := fmt.Sprintf("%s/%s/requests/%s/cancel", c.baseURL, c.model, requestID)
	_, err := c.rest.DoJSON(ctx, http.MethodPut, url, nil, nil)
	return err
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
