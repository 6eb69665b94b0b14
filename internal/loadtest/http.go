package loadtest

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/okian/rapport/internal/domain/model"
	"github.com/okian/rapport/internal/domain/types"
)

const requestIDHeader = "X-Request-ID"

// Client talks to the rating HTTP API.
type Client struct {
	baseURL string
	client  *http.Client
}

// NewClient creates a client with the given request timeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	return &Client{
		baseURL: baseURL,
		client:  &http.Client{Timeout: timeout},
	}
}

// Health checks that /healthz answers 200.
func (c *Client) Health(ctx context.Context) error {
	resp, err := c.do(ctx, http.MethodGet, "/healthz", nil)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrUnhealthy, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%w: status %d", ErrUnhealthy, resp.StatusCode)
	}
	return nil
}

// Submit posts one record and returns the rating view the server answers
// with.
func (c *Client) Submit(ctx context.Context, user string, rec model.ScoreRecord) (types.RatingView, error) {
	body, err := json.Marshal(rec)
	if err != nil {
		return types.RatingView{}, fmt.Errorf("failed to marshal record: %w", err)
	}
	return c.view(ctx, http.MethodPost, userPath(user, "scores"), body)
}

// Rating fetches the user's rating view.
func (c *Client) Rating(ctx context.Context, user string) (types.RatingView, error) {
	return c.view(ctx, http.MethodGet, userPath(user, "rating"), nil)
}

func (c *Client) view(ctx context.Context, method, path string, body []byte) (types.RatingView, error) {
	resp, err := c.do(ctx, method, path, body)
	if err != nil {
		return types.RatingView{}, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return types.RatingView{}, fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return types.RatingView{}, fmt.Errorf("%w: %s %s: status %d: %s", ErrUnexpected, method, path, resp.StatusCode, bytes.TrimSpace(data))
	}

	var v types.RatingView
	if err := json.Unmarshal(data, &v); err != nil {
		return types.RatingView{}, fmt.Errorf("%w: %w", ErrUnexpected, err)
	}
	return v, nil
}

func (c *Client) do(ctx context.Context, method, path string, body []byte) (*http.Response, error) {
	var r io.Reader
	if body != nil {
		r = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, r)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set(requestIDHeader, uuid.NewString())
	return c.client.Do(req)
}

func userPath(user, leaf string) string {
	return "/users/" + url.PathEscape(user) + "/" + leaf
}
