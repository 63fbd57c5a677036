// Package solver is the HTTP client for the remote Mondrian solver.
//
// The solver accepts a JSON puzzle definition
//
//	{"blocks": [...], "pre_placed_blocks": [...]}
//
// and answers with an ordered array of placements, or with null when the
// puzzle cannot be completed.
package solver

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/jpillora/backoff"

	"github.com/wricardo/mondrian-blocks/game/engine"
)

const (
	// DefaultURL is the public solver endpoint.
	DefaultURL = "https://eerah.pythonanywhere.com/solve"

	DefaultTimeout = 10 * time.Second
	DefaultRetries = 2

	maxResponseSize = 1 << 20
)

// ErrBadResponse is returned when the solver answer is not valid JSON or
// does not hold placements.
var ErrBadResponse = errors.New("malformed solver response")

// StatusError is returned when the solver answers with a non-2xx status.
type StatusError struct {
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("solver returned status %d: %s", e.StatusCode, e.Body)
}

// Temporary reports whether retrying may succeed.
func (e *StatusError) Temporary() bool {
	return e.StatusCode >= 500 || e.StatusCode == http.StatusTooManyRequests
}

// Option configures a Client
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeout sets the per-attempt timeout
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.http.Timeout = d
		}
	}
}

// WithRetries sets how many times a failed attempt is retried
func WithRetries(n int) Option {
	return func(c *Client) {
		if n >= 0 {
			c.retries = n
		}
	}
}

// WithBackoff sets the wait bounds between attempts
func WithBackoff(min, max time.Duration) Option {
	return func(c *Client) {
		c.minWait, c.maxWait = min, max
	}
}

// WithLogger sets the client logger
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// Client posts puzzles to the solver
type Client struct {
	url     string
	http    *http.Client
	retries int
	minWait time.Duration
	maxWait time.Duration
	logger  *slog.Logger
}

// NewClient creates a solver client for url
func NewClient(url string, opts ...Option) *Client {
	if url == "" {
		url = DefaultURL
	}
	c := &Client{
		url:     url,
		http:    &http.Client{Timeout: DefaultTimeout},
		retries: DefaultRetries,
		minWait: 200 * time.Millisecond,
		maxWait: 2 * time.Second,
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// URL returns the solver endpoint
func (c *Client) URL() string {
	return c.url
}

// Solve sends req to the solver. A nil solution with a nil error means the
// solver found no solution. Transport failures and 5xx answers are retried
// with exponential backoff.
func (c *Client) Solve(ctx context.Context, req *engine.SolveRequest) (engine.Solution, error) {
	body, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal solve request: %w", err)
	}

	b := &backoff.Backoff{
		Min:    c.minWait,
		Max:    c.maxWait,
		Factor: 2,
		Jitter: true,
	}

	var lastErr error
	for attempt := 0; attempt <= c.retries; attempt++ {
		if attempt > 0 {
			wait := b.Duration()
			c.logger.Debug("retrying solver request", "attempt", attempt+1, "wait", wait, "error", lastErr)
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, fmt.Errorf("solve: %w", ctx.Err())
			case <-timer.C:
			}
		}

		sol, err := c.post(ctx, body)
		if err == nil {
			return sol, nil
		}
		lastErr = err
		if !retryable(ctx, err) {
			break
		}
	}

	return nil, fmt.Errorf("solve: %w", lastErr)
}

func (c *Client) post(ctx context.Context, body []byte) (engine.Solution, error) {
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, c.url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("post to solver: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, fmt.Errorf("read solver response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{StatusCode: resp.StatusCode, Body: string(bytes.TrimSpace(data))}
	}

	return DecodeSolution(data)
}

// DecodeSolution parses a solver answer. null, false, an empty body, an
// empty array or any non-array value mean "no solution" and yield nil.
func DecodeSolution(data []byte) (engine.Solution, error) {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || data[0] != '[' {
		if len(data) > 0 && !json.Valid(data) {
			return nil, fmt.Errorf("%w: invalid JSON", ErrBadResponse)
		}
		return nil, nil
	}

	var sol engine.Solution
	if err := json.Unmarshal(data, &sol); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrBadResponse, err)
	}
	if len(sol) == 0 {
		return nil, nil
	}
	return sol, nil
}

func retryable(ctx context.Context, err error) bool {
	if ctx.Err() != nil {
		return false
	}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return statusErr.Temporary()
	}
	return !errors.Is(err, ErrBadResponse)
}
