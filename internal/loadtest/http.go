package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// APIError is a non-2xx answer from the service.
type APIError struct {
	Status  int
	Code    string `json:"code"`
	Message string `json:"message"`
}

func (e *APIError) Error() string {
	return fmt.Sprintf("%d %s: %s", e.Status, e.Code, e.Message)
}

// Client talks JSON to the game API.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a client for baseURL with a per-request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// Health checks GET /healthz.
func (c *Client) Health(ctx context.Context) error {
	return c.do(ctx, http.MethodGet, "/healthz", "", nil, nil)
}

// Players lists the catalogue.
func (c *Client) Players(ctx context.Context) ([]Player, error) {
	var out []Player
	err := c.do(ctx, http.MethodGet, "/players", "", nil, &out)
	return out, err
}

// Register creates a user called name.
func (c *Client) Register(ctx context.Context, name string) (User, error) {
	var out User
	err := c.do(ctx, http.MethodPost, "/users", "", map[string]string{"name": name}, &out)
	return out, err
}

// AddPlayer buys playerID for userID under idemKey.
func (c *Client) AddPlayer(ctx context.Context, userID, playerID, idemKey string) (Mutation, error) {
	var out Mutation
	err := c.do(ctx, http.MethodPost, teamPath(userID, playerID), idemKey, nil, &out)
	return out, err
}

// Team fetches the roster of userID.
func (c *Client) Team(ctx context.Context, userID string) (Team, error) {
	var out Team
	err := c.do(ctx, http.MethodGet, "/users/"+url.PathEscape(userID)+"/team", "", nil, &out)
	return out, err
}

// Leaderboard fetches up to limit standings; 0 asks for the server maximum.
func (c *Client) Leaderboard(ctx context.Context, limit int) ([]Standing, error) {
	path := "/leaderboard"
	if limit > 0 {
		path += "?limit=" + strconv.Itoa(limit)
	}
	var out []Standing
	err := c.do(ctx, http.MethodGet, path, "", nil, &out)
	return out, err
}

func teamPath(userID, playerID string) string {
	return "/users/" + url.PathEscape(userID) + "/team/" + url.PathEscape(playerID)
}

func (c *Client) do(ctx context.Context, method, path, idemKey string, body, out any) error {
	var reader io.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if idemKey != "" {
		req.Header.Set("Idempotency-Key", idemKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("%s %s: read body: %w", method, path, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{Status: resp.StatusCode}
		if json.Unmarshal(raw, apiErr) != nil || apiErr.Code == "" {
			apiErr.Message = strings.TrimSpace(string(raw))
		}
		return apiErr
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("%s %s: decode: %w", method, path, err)
	}
	return nil
}
