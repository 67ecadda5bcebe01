package api

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const (
	DefaultUsageURL   = "https://api.anthropic.com/api/oauth/usage"
	DefaultBetaHeader = "oauth-2025-04-20"
	DefaultTimeout    = 15 * time.Second

	maxBodyBytes    = 1 << 20
	maxErrorExcerpt = 180
)

// Client fetches usage snapshots from the metering endpoint.
type Client struct {
	httpClient *http.Client
	url        string
	beta       string
	userAgent  string
	now        func() time.Time
}

type ClientOption func(*Client)

func WithURL(url string) ClientOption {
	return func(c *Client) { c.url = url }
}

func WithBetaHeader(beta string) ClientOption {
	return func(c *Client) { c.beta = beta }
}

func WithTimeout(d time.Duration) ClientOption {
	return func(c *Client) { c.httpClient.Timeout = d }
}

func WithHTTPClient(hc *http.Client) ClientOption {
	return func(c *Client) { c.httpClient = hc }
}

func WithUserAgent(ua string) ClientOption {
	return func(c *Client) { c.userAgent = ua }
}

func NewClient(opts ...ClientOption) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		url:        DefaultUsageURL,
		beta:       DefaultBetaHeader,
		userAgent:  "claudebar",
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Fetch issues one GET with token as the bearer credential. A 401 yields a
// *StatusError matching ErrUnauthorized; other non-2xx statuses yield a
// *StatusError; connection failures wrap ErrTransport.
func (c *Client) Fetch(ctx context.Context, token string) (Snapshot, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.url, nil)
	if err != nil {
		return Snapshot{}, fmt.Errorf("build usage request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("anthropic-beta", c.beta)
	req.Header.Set("Accept", "application/json")
	if c.userAgent != "" {
		req.Header.Set("User-Agent", c.userAgent)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: %v", ErrTransport, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return Snapshot{}, fmt.Errorf("%w: read response: %v", ErrTransport, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return Snapshot{}, &StatusError{Status: resp.StatusCode, Body: excerpt(body)}
	}

	snap, err := parseSnapshot(body, c.now().UTC())
	if err != nil {
		return Snapshot{}, &StatusError{Status: resp.StatusCode, Body: "undecodable body: " + excerpt(body)}
	}
	return snap, nil
}

func excerpt(b []byte) string {
	r := []rune(strings.TrimSpace(string(b)))
	if len(r) > maxErrorExcerpt {
		return string(r[:maxErrorExcerpt]) + "..."
	}
	return string(r)
}
