package fetch

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/pfrederiksen/connpass-notify/internal/logger"
)

const (
	UserAgent    = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	Timeout      = 10 * time.Second
	Delay        = 1 * time.Second
	maxBodyBytes = 5 * 1024 * 1024
)

// Accept is the expected response content type.
type Accept string

const (
	AcceptJSON Accept = "application/json"
	AcceptHTML Accept = "text/html"
	AcceptFeed Accept = "application/atom+xml, application/rss+xml, application/xml;q=0.9"
)

// HTTPClient is the interface for performing HTTP requests.
type HTTPClient interface {
	Do(req *http.Request) (*http.Response, error)
}

// Response is a successful upstream response.
type Response struct {
	URL        string
	StatusCode int
	Body       []byte
}

// Client issues delayed, single-attempt GET requests.
type Client struct {
	client    HTTPClient
	userAgent string
	delay     time.Duration
	header    http.Header
	sleep     func(ctx context.Context, d time.Duration) error
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc HTTPClient) Option {
	return func(c *Client) { c.client = hc }
}

// WithUserAgent overrides the User-Agent header.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithDelay overrides the pre-request delay. Zero disables it.
func WithDelay(d time.Duration) Option {
	return func(c *Client) { c.delay = d }
}

// WithTimeout sets the timeout of the default HTTP client.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client = &http.Client{Timeout: d}
		}
	}
}

// WithHeader adds a header to every request.
func WithHeader(key, value string) Option {
	return func(c *Client) {
		if value != "" {
			c.header.Set(key, value)
		}
	}
}

// New creates a Client with the default User-Agent, delay and timeout.
func New(opts ...Option) *Client {
	c := &Client{
		client:    &http.Client{Timeout: Timeout},
		userAgent: UserAgent,
		delay:     Delay,
		header:    make(http.Header),
		sleep:     sleepContext,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get sleeps for the configured delay, then performs exactly one GET of rawURL with
// params merged into its query string.
func (c *Client) Get(ctx context.Context, rawURL string, params url.Values, accept Accept) (*Response, error) {
	target, err := withParams(rawURL, params)
	if err != nil {
		return nil, fmt.Errorf("building request URL: %w", err)
	}

	if err := c.sleep(ctx, c.delay); err != nil {
		return nil, fmt.Errorf("waiting before request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", string(accept))
	for key, values := range c.header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, &TransportError{URL: target, Err: err}
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &TransportError{URL: target, Err: fmt.Errorf("reading body: %w", err)}
	}

	logger.Debug("Fetched upstream", logger.Fields{
		"url":    target,
		"status": resp.StatusCode,
		"body":   Preview(string(body)),
	})

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &StatusError{
			URL:        target,
			StatusCode: resp.StatusCode,
			Body:       Preview(string(body)),
		}
	}

	return &Response{URL: target, StatusCode: resp.StatusCode, Body: body}, nil
}

func withParams(rawURL string, params url.Values) (string, error) {
	if len(params) == 0 {
		return rawURL, nil
	}
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", err
	}
	q := u.Query()
	for key, values := range params {
		for _, v := range values {
			q.Add(key, v)
		}
	}
	u.RawQuery = q.Encode()
	return u.String(), nil
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
