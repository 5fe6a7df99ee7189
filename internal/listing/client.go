package listing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"golang.org/x/time/rate"
)

// DefaultUserAgent identifies the client. The upstream throttles blank agents hard.
const DefaultUserAgent = "redview/0.3 (terminal reader; +https://github.com/abelbrown/redview)"

// maxBodyBytes caps how much of a response is read.
const maxBodyBytes = 8 << 20

// Client fetches listings and threads from the upstream.
type Client struct {
	base      string
	userAgent string
	client    *http.Client
	limiter   *rate.Limiter
}

// Options configures a Client. Zero values take defaults.
type Options struct {
	BaseURL           string
	UserAgent         string
	Timeout           time.Duration
	RequestsPerSecond float64
	HTTPClient        *http.Client
}

// NewClient creates a Client.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = DefaultUserAgent
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}
	hc := opts.HTTPClient
	if hc == nil {
		hc = &http.Client{Timeout: opts.Timeout}
	}
	limit := rate.Inf
	if opts.RequestsPerSecond > 0 {
		limit = rate.Limit(opts.RequestsPerSecond)
	}
	return &Client{
		base:      opts.BaseURL,
		userAgent: opts.UserAgent,
		client:    hc,
		limiter:   rate.NewLimiter(limit, 2),
	}
}

// BaseURL returns the upstream base the client was built with.
func (c *Client) BaseURL() string {
	return c.base
}

// Listing fetches and decodes one listing page.
func (c *Client) Listing(ctx context.Context, url string) (Page, error) {
	body, err := c.get(ctx, url)
	if err != nil {
		return Page{}, err
	}
	return DecodePage(body)
}

// Thread fetches a post and its comment tree.
func (c *Client) Thread(ctx context.Context, community, id string) (Thread, error) {
	body, err := c.get(ctx, ThreadURL(c.base, community, id))
	if err != nil {
		return Thread{}, err
	}
	return DecodeThread(body)
}

// get performs a rate-limited GET and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limiter: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, &NetworkError{URL: url, Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &NetworkError{URL: url, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &FetchError{URL: url, Status: resp.StatusCode, Body: parseErrorBody(body)}
	}
	if !json.Valid(body) {
		return nil, &ParseError{Op: "response", Err: fmt.Errorf("invalid JSON from %s", url)}
	}
	return body, nil
}
