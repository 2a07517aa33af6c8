// Package remote is the HTTP client for the community API: interaction
// toggles, comment pages and feed listings. Page fetches are retried with
// backoff behind an optional circuit breaker; mutating calls are sent exactly
// once, because a replayed toggle would flip server state twice.
package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/example/venueboard/internal/platform/api"
	"github.com/example/venueboard/internal/platform/auth"
	"github.com/example/venueboard/internal/state"
)

// ClientConfig holds configurable settings for the API client.
type ClientConfig struct {
	UserAgent      string
	MaxRetries     int
	RetryBaseDelay time.Duration
}

type Client struct {
	BaseURL    string
	HTTPClient *http.Client
	Config     ClientConfig
	CB         *gobreaker.CircuitBreaker
	Log        *zap.Logger
	Token      auth.TokenSource
}

// Option configures the Client.
type Option func(*Client)

func WithCircuitBreaker(cb *gobreaker.CircuitBreaker) Option {
	return func(c *Client) { c.CB = cb }
}

func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.Log = log }
}

func WithTokenSource(ts auth.TokenSource) Option {
	return func(c *Client) { c.Token = ts }
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.HTTPClient = hc }
}

func New(baseURL string, cfg ClientConfig, opts ...Option) *Client {
	if cfg.UserAgent == "" {
		cfg.UserAgent = "venueboard-client/1.0"
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = 3
	}
	if cfg.RetryBaseDelay <= 0 {
		cfg.RetryBaseDelay = 300 * time.Millisecond
	}
	c := &Client{
		BaseURL:    strings.TrimRight(baseURL, "/"),
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		Config:     cfg,
		Log:        zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

// SetLike flips the like state of one entity. on=true likes (POST), on=false
// unlikes (DELETE). Optional response fields are passed through untouched.
func (c *Client) SetLike(ctx context.Context, res Resource, id int64, on bool) (state.ToggleResult, error) {
	return c.toggle(ctx, fmt.Sprintf("%s/%s/%d/like", c.BaseURL, res, id), on)
}

// SetScrap flips the scrap (bookmark) state of one entity.
func (c *Client) SetScrap(ctx context.Context, res Resource, id int64, on bool) (state.ToggleResult, error) {
	return c.toggle(ctx, fmt.Sprintf("%s/%s/%d/scrap", c.BaseURL, res, id), on)
}

// SetFollow follows or unfollows a member. The endpoint returns no body.
func (c *Client) SetFollow(ctx context.Context, followedID int64, on bool) error {
	method := http.MethodPost
	if !on {
		method = http.MethodDelete
	}
	_, err := c.send(ctx, method, c.BaseURL+"/members/follow", followRequest{FollowedID: followedID})
	return err
}

func (c *Client) ListComments(ctx context.Context, postID int64, page, size int) (*CommentPage, error) {
	u := fmt.Sprintf("%s/comments?postId=%d&page=%d&size=%d", c.BaseURL, postID, page, size)
	return getWithBreaker[CommentPage](ctx, c, u)
}

func (c *Client) CreateComment(ctx context.Context, req CreateCommentRequest) (*state.Comment, error) {
	b, err := c.send(ctx, http.MethodPost, c.BaseURL+"/comments", req)
	if err != nil {
		return nil, err
	}
	var created state.Comment
	if err := json.Unmarshal(b, &created); err != nil {
		return nil, fmt.Errorf("remote: decode created comment: %w", err)
	}
	return &created, nil
}

func (c *Client) DeleteComment(ctx context.Context, id int64) error {
	_, err := c.send(ctx, http.MethodDelete, fmt.Sprintf("%s/comments/%d", c.BaseURL, id), nil)
	return err
}

func (c *Client) ListPosts(ctx context.Context, board string, page, size int) (*Page[Post], error) {
	u := fmt.Sprintf("%s/posts?board=%s&page=%d&size=%d", c.BaseURL, url.QueryEscape(board), page, size)
	return getWithBreaker[Page[Post]](ctx, c, u)
}

func (c *Client) ListScraps(ctx context.Context, page, size int) (*Page[Post], error) {
	u := fmt.Sprintf("%s/members/scraps?page=%d&size=%d", c.BaseURL, page, size)
	return getWithBreaker[Page[Post]](ctx, c, u)
}

func (c *Client) ListEvents(ctx context.Context, page, size int) (*Page[Event], error) {
	u := fmt.Sprintf("%s/events?page=%d&size=%d", c.BaseURL, page, size)
	return getWithBreaker[Page[Event]](ctx, c, u)
}

// toggle sends the flip exactly once and tolerates empty or malformed
// response bodies: per contract, absent liked/likes fields mean the caller
// keeps its optimistic values.
func (c *Client) toggle(ctx context.Context, u string, on bool) (state.ToggleResult, error) {
	method := http.MethodPost
	if !on {
		method = http.MethodDelete
	}
	b, err := c.send(ctx, method, u, nil)
	if err != nil {
		return state.ToggleResult{}, err
	}
	var resp toggleResponse
	if len(b) > 0 {
		// A body that fails to parse counts as "no authoritative fields".
		_ = json.Unmarshal(b, &resp)
	}
	return state.ToggleResult{Value: resp.Liked, Count: resp.Likes}, nil
}

func getWithBreaker[T any](ctx context.Context, c *Client, u string) (*T, error) {
	if c.CB == nil {
		return getJSONWithRetry[T](ctx, c, u)
	}
	result, err := c.CB.Execute(func() (interface{}, error) {
		return getJSONWithRetry[T](ctx, c, u)
	})
	if err != nil {
		return nil, err
	}
	return result.(*T), nil
}

func getJSONWithRetry[T any](ctx context.Context, c *Client, u string) (*T, error) {
	var lastErr error
	for attempt := 0; attempt <= c.Config.MaxRetries; attempt++ {
		if attempt > 0 {
			delay := c.Config.RetryBaseDelay * time.Duration(math.Pow(2, float64(attempt-1)))
			c.Log.Debug("retrying request", zap.String("url", u), zap.Int("attempt", attempt), zap.Duration("delay", delay))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}
		b, err := c.send(ctx, http.MethodGet, u, nil)
		if err == nil {
			var out T
			if uerr := json.Unmarshal(b, &out); uerr != nil {
				return nil, fmt.Errorf("remote: decode error: %w", uerr)
			}
			return &out, nil
		}
		if !retryable(err) {
			return nil, err
		}
		lastErr = err
		c.Log.Warn("request failed", zap.String("url", u), zap.Int("attempt", attempt), zap.Error(err))
	}
	return nil, lastErr
}

func retryable(err error) bool {
	if apiErr, ok := err.(*api.APIError); ok {
		return apiErr.Status >= 500 || apiErr.Status == http.StatusTooManyRequests
	}
	// Transport-level failures are worth another attempt.
	return true
}

// send performs a single attempt and returns the response body. Non-2xx
// statuses come back as *api.APIError.
func (c *Client) send(ctx context.Context, method, u string, body any) ([]byte, error) {
	var payload io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return nil, err
		}
		payload = bytes.NewReader(b)
	}
	req, err := http.NewRequestWithContext(ctx, method, u, payload)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")
	req.Header.Set("User-Agent", c.Config.UserAgent)
	req.Header.Set("X-Request-Id", uuid.NewString())
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.Token != nil {
		if tok := c.Token(); tok != "" {
			req.Header.Set("Authorization", "Bearer "+tok)
		}
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	b, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, api.DecodeError(resp.StatusCode, b)
	}
	return b, nil
}
