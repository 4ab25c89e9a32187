// Package restclient provides the JSON-over-HTTP transport shared by all
// generation provider clients. Transient failures (network errors, 429, 5xx)
// are classified through the fault taxonomy and retried under one backoff
// policy, so retry behavior is identical regardless of backend.
package restclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/beatframe/beatframe-api/internal/backoff"
	"github.com/beatframe/beatframe-api/internal/fault"
)

// ErrRequestFailed is returned for non-retryable non-2xx responses.
var ErrRequestFailed = errors.New("restclient: request failed")

// Client performs authenticated JSON requests with retry.
type Client struct {
	httpClient *http.Client
	policy     backoff.Policy
	authorize  func(*http.Request)
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) Option {
	return func(rc *Client) {
		rc.httpClient = c
	}
}

// WithPolicy sets the retry policy.
func WithPolicy(p backoff.Policy) Option {
	return func(rc *Client) {
		rc.policy = p
	}
}

// New creates a Client. The authorize callback stamps credentials onto each
// outgoing request.
func New(authorize func(*http.Request), opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: 30 * time.Second},
		policy:     backoff.Default(),
		authorize:  authorize,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// DoJSON issues a request and decodes the JSON response into result when
// result is non-nil. Retryable failures are re-attempted under the policy.
// The returned count is the number of HTTP attempts actually made, including
// any that failed before the call recovered.
func (c *Client) DoJSON(ctx context.Context, method, url string, body []byte, result any) (int, error) {
	return c.policy.Retry(ctx, fault.Retryable, func() error {
		return c.do(ctx, method, url, body, result)
	})
}

// Download streams a GET response body to the writer produced by open,
// retrying transient failures from the start. Each attempt calls open for a
// fresh target; partial targets are discarded via Abort when supported.
func (c *Client) Download(ctx context.Context, url string, open func() (io.WriteCloser, error)) (int64, error) {
	var written int64
	_, err := c.policy.Retry(ctx, fault.Retryable, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return fmt.Errorf("restclient: create request: %w", err)
		}
		c.authorize(req)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fault.Wrap(fault.KindTransientNetwork, "download", err)
		}
		defer func() { _ = resp.Body.Close() }()

		if err := classifyStatus(resp.StatusCode, nil); err != nil {
			return err
		}

		w, err := open()
		if err != nil {
			return err
		}
		written, err = io.Copy(w, resp.Body)
		if err != nil {
			discard(w)
			return fault.Wrap(fault.KindTransientNetwork, "download body", err)
		}
		return w.Close()
	})
	return written, err
}

// Aborter is implemented by write targets that can discard a partial write
// instead of committing it on Close.
type Aborter interface {
	Abort()
}

// discard throws away a partially written target. Targets without Abort are
// closed; their callers must not treat Close as a commit in that case.
func discard(w io.WriteCloser) {
	if a, ok := w.(Aborter); ok {
		a.Abort()
		return
	}
	_ = w.Close()
}

// do performs a single request.
func (c *Client) do(ctx context.Context, method, url string, body []byte, result any) error {
	var bodyReader io.Reader
	if body != nil {
		bodyReader = bytes.NewReader(body)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
	if err != nil {
		return fmt.Errorf("restclient: create request: %w", err)
	}
	c.authorize(req)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fault.Wrap(fault.KindTransientNetwork, "request", err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return fault.Wrap(fault.KindTransientNetwork, "read response", err)
	}

	if err := classifyStatus(resp.StatusCode, respBody); err != nil {
		return err
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("restclient: unmarshal response: %w", err)
		}
	}
	return nil
}

// classifyStatus maps HTTP status codes onto the fault taxonomy. 5xx and 429
// are retryable; other non-2xx codes fail immediately.
func classifyStatus(code int, body []byte) error {
	switch {
	case code >= 200 && code < 300:
		return nil
	case code == http.StatusTooManyRequests:
		return fault.Newf(fault.KindRateLimited, "status %d: %s", code, string(body))
	case code >= 500:
		return fault.Newf(fault.KindTransientNetwork, "server error %d: %s", code, string(body))
	default:
		return fmt.Errorf("%w with status %d: %s", ErrRequestFailed, code, string(body))
	}
}
