// Package lichess is a small client for the Lichess bot API.
package lichess

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
)

// APIError is returned for non-2xx responses.
type APIError struct {
	Method string
	Path   string
	Status int
	Body   string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("lichess %s %s: %d %s", e.Method, e.Path, e.Status, e.Body)
}

// Client talks to one Lichess instance with one bot token.
type Client struct {
	base  *url.URL
	token string
	http  *http.Client
	log   zerolog.Logger
}

// Option customises New.
type Option func(*Client)

// WithHTTPClient replaces the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithLogger sets the client logger.
func WithLogger(log zerolog.Logger) Option {
	return func(c *Client) { c.log = log }
}

func New(baseURL, token string, opts ...Option) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, fmt.Errorf("lichess url: %w", err)
	}
	c := &Client{base: u, token: token, http: &http.Client{}, log: zerolog.Nop()}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

func (c *Client) do(ctx context.Context, method, path string, body io.Reader) (*http.Response, error) {
	ref, err := url.Parse(path)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, method, c.base.ResolveReference(ref).String(), body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		defer resp.Body.Close()
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, &APIError{Method: method, Path: path, Status: resp.StatusCode, Body: strings.TrimSpace(string(msg))}
	}
	c.log.Debug().Str("method", method).Str("path", path).Int("status", resp.StatusCode).Msg("lichess request")
	return resp, nil
}

func (c *Client) getJSON(ctx context.Context, path string, v any) error {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	return json.NewDecoder(resp.Body).Decode(v)
}

func (c *Client) post(ctx context.Context, path string, form url.Values) error {
	var body io.Reader
	if form != nil {
		body = strings.NewReader(form.Encode())
	}
	resp, err := c.do(ctx, http.MethodPost, path, body)
	if err != nil {
		return err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	return resp.Body.Close()
}

// GetProfile returns the account owning the token.
func (c *Client) GetProfile(ctx context.Context) (*Profile, error) {
	var p Profile
	if err := c.getJSON(ctx, "/api/account", &p); err != nil {
		return nil, err
	}
	return &p, nil
}

// UpgradeToBot turns the account into a bot account. It cannot be undone.
func (c *Client) UpgradeToBot(ctx context.Context) error {
	return c.post(ctx, "/api/bot/account/upgrade", nil)
}

// StreamEvents opens the account's incoming event stream.
func (c *Client) StreamEvents(ctx context.Context) (*Stream, error) {
	return c.stream(ctx, "/api/stream/event")
}

// StreamGame opens the state stream of one game.
func (c *Client) StreamGame(ctx context.Context, gameID string) (*Stream, error) {
	return c.stream(ctx, "/api/bot/game/stream/"+url.PathEscape(gameID))
}

func (c *Client) stream(ctx context.Context, path string) (*Stream, error) {
	resp, err := c.do(ctx, http.MethodGet, path, nil)
	if err != nil {
		return nil, err
	}
	return newStream(resp.Body), nil
}

// MakeMove plays move (UCI notation) in the game.
func (c *Client) MakeMove(ctx context.Context, gameID, move string) error {
	return c.post(ctx, fmt.Sprintf("/api/bot/game/%s/move/%s", url.PathEscape(gameID), url.PathEscape(move)), nil)
}

// Chat writes text to the game's chat room ("player" or "spectator").
func (c *Client) Chat(ctx context.Context, gameID, room, text string) error {
	return c.post(ctx, fmt.Sprintf("/api/bot/game/%s/chat", url.PathEscape(gameID)), url.Values{"room": {room}, "text": {text}})
}

// Abort aborts a game that has not really started.
func (c *Client) Abort(ctx context.Context, gameID string) error {
	return c.post(ctx, fmt.Sprintf("/api/bot/game/%s/abort", url.PathEscape(gameID)), nil)
}
