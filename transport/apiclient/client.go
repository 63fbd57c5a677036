// Package apiclient is a typed client for the Mondrian Blocks REST API.
package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/wricardo/mondrian-blocks/game/engine"
	"github.com/wricardo/mondrian-blocks/game/replay"
	"github.com/wricardo/mondrian-blocks/game/service"
)

// Error codes returned by the API alongside the message
const (
	CodeNotFound          = "not_found"
	CodeBusy              = "busy"
	CodeNoSolution        = "no_solution"
	CodeSolverUnavailable = "solver_unavailable"
	CodeBadRequest        = "bad_request"
	CodeInternal          = "internal"
)

// APIError is a non-2xx answer from the server
type APIError struct {
	StatusCode int    `json:"-"`
	Message    string `json:"error"`
	Code       string `json:"code,omitempty"`
}

func (e *APIError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("API error: %d", e.StatusCode)
	}
	return e.Message
}

// HasCode reports whether err is an APIError with the given code
func HasCode(err error, code string) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Code == code
}

// SessionList is the body of GET /api/sessions
type SessionList struct {
	Count    int                    `json:"count"`
	Sessions []*service.SessionInfo `json:"sessions"`
}

// Client calls the REST API
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// New creates a client for the server at baseURL
func New(baseURL string) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// BaseURL returns the server address
func (c *Client) BaseURL() string {
	return c.baseURL
}

// CreateSession creates a board from catalogID, or the default catalog
func (c *Client) CreateSession(ctx context.Context, catalogID string) (*service.SessionInfo, error) {
	body := map[string]string{}
	if catalogID != "" {
		body["catalog_id"] = catalogID
	}
	var info service.SessionInfo
	if err := c.call(ctx, http.MethodPost, "/api/sessions", body, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// ListSessions lists active sessions
func (c *Client) ListSessions(ctx context.Context) (*SessionList, error) {
	var list SessionList
	if err := c.call(ctx, http.MethodGet, "/api/sessions", nil, &list); err != nil {
		return nil, err
	}
	return &list, nil
}

// GetSession returns one session
func (c *Client) GetSession(ctx context.Context, id string) (*service.SessionInfo, error) {
	var info service.SessionInfo
	if err := c.call(ctx, http.MethodGet, sessionPath(id, ""), nil, &info); err != nil {
		return nil, err
	}
	return &info, nil
}

// DeleteSession removes a session
func (c *Client) DeleteSession(ctx context.Context, id string) error {
	return c.call(ctx, http.MethodDelete, sessionPath(id, ""), nil, nil)
}

// Board returns the current board of a session
func (c *Client) Board(ctx context.Context, id string) (*service.BoardView, error) {
	var board service.BoardView
	if err := c.call(ctx, http.MethodGet, sessionPath(id, "/board"), nil, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// Place puts a block with its top-left cell at (x, y)
func (c *Client) Place(ctx context.Context, id string, blockID, x, y int) (*service.PlacementResult, error) {
	body := map[string]int{"block_id": blockID, "x": x, "y": y}
	return c.placement(ctx, sessionPath(id, "/place"), body)
}

// Remove takes a block off the board
func (c *Client) Remove(ctx context.Context, id string, blockID int) (*service.PlacementResult, error) {
	return c.placement(ctx, sessionPath(id, "/remove"), map[string]int{"block_id": blockID})
}

// Rotate swaps a block's width and height
func (c *Client) Rotate(ctx context.Context, id string, blockID int) (*service.PlacementResult, error) {
	return c.placement(ctx, sessionPath(id, "/rotate"), map[string]int{"block_id": blockID})
}

func (c *Client) placement(ctx context.Context, path string, body interface{}) (*service.PlacementResult, error) {
	var result service.PlacementResult
	if err := c.call(ctx, http.MethodPost, path, body, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Reset empties the board
func (c *Client) Reset(ctx context.Context, id string) (*service.BoardView, error) {
	var board service.BoardView
	if err := c.call(ctx, http.MethodPost, sessionPath(id, "/reset"), nil, &board); err != nil {
		return nil, err
	}
	return &board, nil
}

// Solve asks the server to solve the board and start the replay
func (c *Client) Solve(ctx context.Context, id string) (*service.SolveResult, error) {
	var result service.SolveResult
	if err := c.call(ctx, http.MethodPost, sessionPath(id, "/solve"), nil, &result); err != nil {
		return nil, err
	}
	return &result, nil
}

// Replay returns the replay progress
func (c *Client) Replay(ctx context.Context, id string) (*replay.Progress, error) {
	var p replay.Progress
	if err := c.call(ctx, http.MethodGet, sessionPath(id, "/replay"), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// CancelReplay stops a running replay
func (c *Client) CancelReplay(ctx context.Context, id string) (*replay.Progress, error) {
	var p replay.Progress
	if err := c.call(ctx, http.MethodDelete, sessionPath(id, "/replay"), nil, &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// ListCatalogs lists available catalogs
func (c *Client) ListCatalogs(ctx context.Context) ([]*service.CatalogInfo, error) {
	var infos []*service.CatalogInfo
	if err := c.call(ctx, http.MethodGet, "/api/catalogs", nil, &infos); err != nil {
		return nil, err
	}
	return infos, nil
}

// GetCatalog returns a catalog's blocks
func (c *Client) GetCatalog(ctx context.Context, name string) (*engine.Catalog, error) {
	var catalog engine.Catalog
	if err := c.call(ctx, http.MethodGet, "/api/catalogs/"+url.PathEscape(name), nil, &catalog); err != nil {
		return nil, err
	}
	return &catalog, nil
}

// SaveCatalog stores a catalog under catalogID
func (c *Client) SaveCatalog(ctx context.Context, catalogID string, catalog *engine.Catalog) error {
	body := map[string]interface{}{
		"catalog_id": catalogID,
		"catalog":    catalog,
	}
	return c.call(ctx, http.MethodPost, "/api/catalogs", body, nil)
}

// Health checks that the server is up
func (c *Client) Health(ctx context.Context) error {
	return c.call(ctx, http.MethodGet, "/healthz", nil, nil)
}

func sessionPath(id, suffix string) string {
	return "/api/sessions/" + url.PathEscape(id) + suffix
}

func (c *Client) call(ctx context.Context, method, path string, body interface{}, result interface{}) error {
	var reqBody io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		reqBody = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return err
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		apiErr := &APIError{StatusCode: resp.StatusCode}
		json.NewDecoder(resp.Body).Decode(apiErr)
		return apiErr
	}

	if result != nil {
		if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
			return fmt.Errorf("decode %s %s: %w", method, path, err)
		}
	}
	return nil
}
