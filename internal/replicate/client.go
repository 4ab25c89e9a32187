package replicate

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

// Static errors for Replicate client operations.
var (
	// ErrVersionRequired is returned when the model version is not provided.
	ErrVersionRequired = errors.New("replicate: model version is required")
	// ErrTokenNotSet is returned when no API token is configured.
	ErrTokenNotSet = errors.New("replicate: REPLICATE_API_TOKEN environment variable is not set")
	// ErrPredictionIDRequired is returned when the prediction ID is not provided.
	ErrPredictionIDRequired = errors.New("replicate: prediction ID is required")
	// ErrNoPredictionIDReturned is returned when the create response contains no ID.
	ErrNoPredictionIDReturned = errors.New("replicate: create failed: no prediction ID returned")
	// ErrNoOutputURL is returned when a succeeded prediction has no output URL.
	ErrNoOutputURL = errors.New("replicate: no output URL in succeeded prediction")
)

// Client defines the interface for interacting with the Replicate API.
type Client interface {
	// Submit creates a prediction and returns its ID along with the number
	// of HTTP attempts spent, including retried ones.
	Submit(ctx context.Context, input PredictionInput) (predictionID string, attempts int, err error)

	// Poll checks the status of a prediction.
	Poll(ctx context.Context, predictionID string) (PollResult, error)

	// Download streams the generated artifact to the writer produced by open.
	Download(ctx context.Context, videoURL string, open func() (io.WriteCloser, error)) (int64, error)

	// Cancel requests cancellation of a running prediction.
	Cancel(ctx context.Context, predictionID string) error
}

// HTTPClient is the HTTP implementation of the Replicate Client interface.
type HTTPClient struct {
	token   string
	version string
	baseURL string
	rest    *restclient.Client

	httpClient *http.Client
	policy     backoff.Policy
}

// ClientOption is a function that configures an HTTPClient.
type ClientOption func(*HTTPClient)

// WithToken sets the API token for authentication.
func WithToken(token string) ClientOption {
	return func(hc *HTTPClient) {
		hc.token = token
	}
}

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(hc *HTTPClient) {
		hc.httpClient = c
	}
}

// WithBaseURL sets a custom base URL for the Replicate API.
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

// NewClient creates a new Replicate HTTP client pinned to one model version.
// The token can be set via the WithToken option; if not provided it is read
// from REPLICATE_API_TOKEN.
func NewClient(version string, opts ...ClientOption) (*HTTPClient, error) {
	if version == "" {
		return nil, ErrVersionRequired
	}

	c := &HTTPClient{
		version: version,
		baseURL: "https://api.replicate.com/v1",
		policy:  backoff.Default(),
	}

	for _, opt := range opts {
		opt(c)
	}

	if c.token == "" {
		c.token = os.Getenv("REPLICATE_API_TOKEN")
	}
	if c.token == "" {
		return nil, ErrTokenNotSet
	}

	restOpts := []restclient.Option{restclient.WithPolicy(c.policy)}
	if c.httpClient != nil {
		restOpts = append(restOpts, restclient.WithHTTPClient(c.httpClient))
	}
	c.rest = restclient.New(c.authorize, restOpts...)

	return c, nil
}

// authorize stamps the bearer token onto an outgoing request.
func (c *HTTPClient) authorize(req *http.Request) {
	req.Header.Set("Authorization", "Bearer "+c.token)
}

// Submit creates a prediction and returns its ID along with the number of
// HTTP attempts the transport spent.
func (c *HTTPClient) Submit(ctx context.Context, input PredictionInput) (string, int, error) {
	reqBody := predictionRequest{
		Version: c.version,
		Input:   input,
	}

	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return "", 0, fmt.Errorf("replicate: marshal request: %w", err)
	}

	url := c.baseURL + "/predictions"

	var resp predictionResponse
	attempts, err := c.rest.DoJSON(ctx, http.MethodPost, url, bodyBytes, &resp)
	if err != nil {
		return "", attempts, err
	}

	if resp.ID == "" {
		if resp.Error != "" {
			return "", attempts, fmt.Errorf("replicate: create failed: %s", resp.Error)
		}
		return "", attempts, ErrNoPredictionIDReturned
	}

	return resp.ID, attempts, nil
}

// Poll checks the status of a prediction.
func (c *HTTPClient) Poll(ctx context.Context, predictionID string) (PollResult, error) {
	if predictionID == "" {
		return PollResult{}, ErrPredictionIDRequired
	}

	url := fmt.Sprintf("%s/predictions/%s", c.baseURL, predictionID)

	var resp predictionResponse
	if _, err := c.rest.DoJSON(ctx, http.MethodGet, url, nil, &resp); err != nil {
		return PollResult{}, err
	}

	var mapped Status
	switch resp.Status {
	case "starting":
		mapped = StatusStarting
	case "processing":
		mapped = StatusProcessing
	case "succeeded":
		mapped = StatusSucceeded
	case "failed":
		mapped = StatusFailed
	case "canceled":
		mapped = StatusCanceled
	default:
		mapped = Status(resp.Status)
	}

	result := PollResult{Status: mapped}

	switch result.Status {
	case StatusSucceeded:
		if len(resp.Output) == 0 || resp.Output[0] == "" {
			return PollResult{}, ErrNoOutputURL
		}
		result.VideoURL = resp.Output[0]
	case StatusFailed:
		result.Error = resp.Error
	}

	return result, nil
}

// Download streams the generated artifact from its output URL.
func (c *HTTPClient) Download(ctx context.Context, videoURL string, open func() (io.WriteCloser, error)) (int64, error) {
	return c.rest.Download(ctx, videoURL, open)
}

// Cancel requests cancellation of a running prediction.
func (c *HTTPClient) Cancel(ctx context.Context, predictionID string) error {
	if predictionID == "" {
		return ErrPredictionIDRequired
	}

	url := fmt.Sprintf("%s/predictions/%s/cancel", c.baseURL, predictionID)
	_, err := c.rest.DoJSON(ctx, http.MethodPost, url, nil, nil)
	return err
}

// outputURLs decodes Replicate outputs that arrive either as a single URL
// string or as a list of URLs, depending on the model.
type outputURLs []string

// UnmarshalJSON implements json.Unmarshaler.
func (o *outputURLs) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*o = outputURLs{s}
		return nil
	}
	var list []string
	if err := json.Unmarshal(data, &list); err != nil {
		return err
	}
	*o = outputURLs(list)
	return nil
}

// Compile-time check that HTTPClient implements Client.
var _ Client = (*HTTPClient)(nil)
