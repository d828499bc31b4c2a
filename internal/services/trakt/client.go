package trakt

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"scrobble/internal/logging"
	"scrobble/internal/services"
)

const apiVersion = "2"

// Scrobble actions.
const (
	ActionStart = "start"
	ActionPause = "pause"
	ActionStop  = "stop"
)

// TokenProvider yields a valid access token. *Authenticator satisfies
// it.
type TokenProvider interface {
	AccessToken(ctx context.Context) (string, error)
}

// Client calls the Trakt API with the standard headers and the
// caller's OAuth token.
type Client struct {
	baseURL    string
	creds      CredentialSource
	tokens     TokenProvider
	httpClient *http.Client
	logger     *slog.Logger
}

// ClientOption mutates client construction.
type ClientOption func(*Client)

// WithClientHTTPClient overrides the HTTP client.
func WithClientHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// NewClient builds a client.
func NewClient(baseURL string, creds CredentialSource, tokens TokenProvider, timeout time.Duration, logger *slog.Logger, opts ...ClientOption) *Client {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	if logger == nil {
		logger = logging.NewNop()
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		creds:      creds,
		tokens:     tokens,
		httpClient: &http.Client{Timeout: timeout},
		logger:     logging.NewComponentLogger(logger, "trakt"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search queries /search/{type} for a title, optionally filtered by
// year. Results come back in Trakt's relevance order.
func (c *Client) Search(ctx context.Context, mediaType, query string, year *int) ([]SearchResult, error) {
	if mediaType != "movie" && mediaType != "show" {
		return nil, services.Wrap(services.ErrConfiguration, "trakt", "search",
			fmt.Sprintf("unsupported media type %q", mediaType), nil)
	}
	q := url.Values{}
	q.Set("query", query)
	if year != nil {
		q.Set("years", strconv.Itoa(*year))
	}

	var results []SearchResult
	if err := c.do(ctx, http.MethodGet, "/search/"+mediaType+"?"+q.Encode(), nil, &results); err != nil {
		return nil, err
	}
	return results, nil
}

type scrobbleRequest struct {
	MediaItem
	Progress float64 `json:"progress"`
}

// Scrobble posts a start, pause, or stop for the item. Progress is
// clamped to 0..100 before sending.
func (c *Client) Scrobble(ctx context.Context, action string, item MediaItem, progress float64) (*ScrobbleResponse, error) {
	switch action {
	case ActionStart, ActionPause, ActionStop:
	default:
		return nil, services.Wrap(services.ErrScrobble, "trakt", "scrobble",
			fmt.Sprintf("unsupported action %q", action), nil)
	}
	if progress < 0 {
		progress = 0
	}
	if progress > 100 {
		progress = 100
	}

	var resp ScrobbleResponse
	if err := c.do(ctx, http.MethodPost, "/scrobble/"+action, scrobbleRequest{MediaItem: item, Progress: progress}, &resp); err != nil {
		return nil, err
	}
	c.logger.Info("scrobble sent",
		logging.String(logging.FieldAction, action),
		logging.String("title", item.Title()),
		logging.Float64("progress", progress))
	return &resp, nil
}

// UsersMe fetches the authenticated user's profile.
func (c *Client) UsersMe(ctx context.Context) (*User, error) {
	var user User
	if err := c.do(ctx, http.MethodGet, "/users/me", nil, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	token, err := c.tokens.AccessToken(ctx)
	if err != nil {
		return err
	}

	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return services.Wrap(services.ErrParse, "trakt", path, "encode request", err)
		}
		reader = bytes.NewReader(data)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return services.Wrap(services.ErrNetwork, "trakt", path, "build request", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("trakt-api-version", apiVersion)
	req.Header.Set("trakt-api-key", c.creds.TraktClientID())
	req.Header.Set("Authorization", "Bearer "+token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return services.Wrap(services.ErrNetwork, "trakt", path, "request failed", err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return services.Wrap(services.ErrNetwork, "trakt", path, "read response", err)
	}
	if err := statusError(path, resp.StatusCode); err != nil {
		return err
	}
	if out != nil && len(raw) > 0 {
		if err := json.Unmarshal(raw, out); err != nil {
			return services.Wrap(services.ErrParse, "trakt", path, "decode response", err)
		}
	}
	return nil
}

func statusError(path string, status int) error {
	switch {
	case status >= 200 && status < 300:
		return nil
	case status == http.StatusUnauthorized || status == http.StatusForbidden:
		return services.Wrap(services.ErrAuth, "trakt", path,
			fmt.Sprintf("unauthorized (status %d)", status), nil)
	case status == http.StatusNotFound:
		return services.Wrap(services.ErrNotFound, "trakt", path, "not found", nil)
	default:
		return services.Wrap(services.ErrNetwork, "trakt", path,
			fmt.Sprintf("unexpected status %d", status), nil)
	}
}
