// Package transport provides the retrying HTTP client used for every call to
// the assessment API. Rate-limited and transiently failing responses are
// retried with exponential backoff and jitter under a caller-supplied policy;
// any other non-2xx status fails immediately. Network errors and undecodable
// response bodies are retried on the same schedule as retryable statuses.
package transport

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math/rand"
	"net/http"
	"time"

	"github.com/rs/zerolog"
)

const (
	defaultTimeout = 15 * time.Second
	backoffMax     = 30 * time.Second
	// At most this much of a failed response body is kept for diagnostics.
	bodyCaptureLimit = 1024
)

// Policy controls the retry schedule for one class of call. The wait before
// retry n is BaseDelay * 2^n plus a uniform jitter up to JitterMax.
type Policy struct {
	MaxAttempts int
	BaseDelay   time.Duration
	JitterMax   time.Duration
}

// FetchPolicy is tuned for the flaky paginated fetch endpoint: a generous
// attempt budget with short base delays.
var FetchPolicy = Policy{MaxAttempts: 6, BaseDelay: 500 * time.Millisecond, JitterMax: 150 * time.Millisecond}

// SubmitPolicy is tuned for the single, more expensive submission call:
// fewer attempts, each preceded by a longer backoff.
var SubmitPolicy = Policy{MaxAttempts: 4, BaseDelay: 2 * time.Second, JitterMax: 150 * time.Millisecond}

// StatusError is a non-retryable HTTP failure, surfaced on the first
// occurrence with the status and captured body.
type StatusError struct {
	Status int
	Body   string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("unexpected status %d: %s", e.Status, e.Body)
}

// ExhaustedError is returned once a policy's attempt budget is spent. It
// carries whichever failure was observed last: an HTTP status or an
// underlying network/decode error.
type ExhaustedError struct {
	Attempts int
	Status   int
	Body     string
	Err      error
}

func (e *ExhaustedError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("giving up after %d attempts: %v", e.Attempts, e.Err)
	}
	return fmt.Sprintf("giving up after %d attempts: last status %d: %s", e.Attempts, e.Status, e.Body)
}

func (e *ExhaustedError) Unwrap() error { return e.Err }

// retryable statuses: rate limiting and transient server-side failures.
func retryable(status int) bool {
	switch status {
	case http.StatusTooManyRequests, http.StatusInternalServerError, http.StatusServiceUnavailable:
		return true
	}
	return false
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the default HTTP client.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.httpClient = h }
}

// WithLogger sets the logger used for per-attempt diagnostics.
func WithLogger(l zerolog.Logger) Option {
	return func(c *Client) { c.logger = l }
}

// Client performs authenticated JSON calls against the assessment API.
type Client struct {
	httpClient *http.Client
	apiKey     string
	logger     zerolog.Logger
}

// New creates a Client that sends the given API key on every request.
func New(apiKey string, opts ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: defaultTimeout},
		apiKey:     apiKey,
		logger:     zerolog.Nop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// GetJSON fetches url and decodes the response body into out.
func (c *Client) GetJSON(ctx context.Context, url string, out any, pol Policy) error {
	return c.do(ctx, http.MethodGet, url, nil, out, pol)
}

// PostJSON sends body as JSON to url and decodes the response into out.
func (c *Client) PostJSON(ctx context.Context, url string, body, out any, pol Policy) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encode request body: %w", err)
	}
	return c.do(ctx, http.MethodPost, url, payload, out, pol)
}

func (c *Client) do(ctx context.Context, method, url string, payload []byte, out any, pol Policy) error {
	var (
		lastStatus int
		lastBody   string
		lastErr    error
	)

	for attempt := 0; attempt < pol.MaxAttempts; attempt++ {
		if attempt > 0 {
			wait := pol.backoff(attempt - 1)
			c.logger.Warn().
				Str("method", method).
				Str("url", url).
				Int("attempt", attempt).
				Int("last_status", lastStatus).
				Dur("wait", wait).
				Msg("transient failure, backing off")
			if err := sleep(ctx, wait); err != nil {
				return err
			}
		}

		status, body, err := c.attempt(ctx, method, url, payload, out)
		switch {
		case err == nil && status == 0:
			return nil
		case err != nil && status == 0:
			// Network-level failure; retried like a retryable status.
			lastErr, lastStatus, lastBody = err, 0, ""
		case retryable(status):
			lastErr, lastStatus, lastBody = nil, status, body
		case err != nil:
			// 2xx with an undecodable body; retried as well.
			lastErr, lastStatus, lastBody = err, status, body
		default:
			return &StatusError{Status: status, Body: body}
		}
	}

	return &ExhaustedError{Attempts: pol.MaxAttempts, Status: lastStatus, Body: lastBody, Err: lastErr}
}

// attempt makes one HTTP call. A zero status with nil error means success;
// a zero status with an error means the call never produced a response.
// A non-zero status is reported with the captured body so the caller can
// decide between retry and immediate failure.
func (c *Client) attempt(ctx context.Context, method, url string, payload []byte, out any) (int, string, error) {
	var reqBody io.Reader
	if payload != nil {
		reqBody = bytes.NewReader(payload)
	}
	req, err := http.NewRequestWithContext(ctx, method, url, reqBody)
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("x-api-key", c.apiKey)
	req.Header.Set("Accept", "application/json")
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		captured, _ := io.ReadAll(io.LimitReader(resp.Body, bodyCaptureLimit))
		return resp.StatusCode, string(captured), nil
	}

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return resp.StatusCode, "", fmt.Errorf("read response body: %w", err)
	}
	if out != nil {
		if err := json.Unmarshal(raw, out); err != nil {
			return resp.StatusCode, truncate(string(raw)), fmt.Errorf("decode response body: %w", err)
		}
	}
	return 0, "", nil
}

func (p Policy) backoff(attempt int) time.Duration {
	d := p.BaseDelay << uint(attempt)
	if d > backoffMax || d <= 0 {
		d = backoffMax
	}
	if p.JitterMax > 0 {
		d += time.Duration(rand.Int63n(int64(p.JitterMax))) //nolint:gosec // not crypto
	}
	return d
}

func sleep(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func truncate(s string) string {
	if len(s) > bodyCaptureLimit {
		return s[:bodyCaptureLimit]
	}
	return s
}
