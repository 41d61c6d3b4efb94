// Package client is the HTTP helper shared by discovery and the check suites.
// Every call carries its own deadline so a stuck service fails the call
// instead of hanging the run.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"
)

const (
	// DefaultTimeout bounds ordinary requests
	DefaultTimeout = 30 * time.Second
	// ProbeTimeout bounds exploratory requests
	ProbeTimeout = 15 * time.Second
	// SnippetLimit is the response text length attached to failures
	SnippetLimit = 600
)

// Client issues JSON-accepting HTTP requests with per-call timeouts.
type Client struct {
	http         *http.Client
	timeout      time.Duration
	probeTimeout time.Duration
	headers      map[string]string
	log          *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying *http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithTimeouts sets the normal and probe request bounds.
func WithTimeouts(normal, probe time.Duration) Option {
	return func(c *Client) {
		if normal > 0 {
			c.timeout = normal
		}
		if probe > 0 {
			c.probeTimeout = probe
		}
	}
}

// WithLogger sets the logger used for request tracing.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

// New creates a Client that sends "accept: application/json" by default.
func New(opts ...Option) *Client {
	c := &Client{
		http:         &http.Client{},
		timeout:      DefaultTimeout,
		probeTimeout: ProbeTimeout,
		headers:      map[string]string{"Accept": "application/json"},
		log:          zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Response is a fully read HTTP response.
type Response struct {
	URL        string
	StatusCode int
	Header     http.Header
	Body       []byte
	Duration   time.Duration
}

// JSON decodes the body into an untyped value.
func (r *Response) JSON() (any, error) {
	var v any
	if err := json.Unmarshal(r.Body, &v); err != nil {
		return nil, fmt.Errorf("decode %s: %w (body: %q)", r.URL, err, r.Snippet(SnippetLimit))
	}
	return v, nil
}

// IsJSON reports whether the content type mentions json.
func (r *Response) IsJSON() bool {
	return strings.Contains(strings.ToLower(r.Header.Get("Content-Type")), "json")
}

// Snippet returns a trimmed prefix of the body for debugging. The prefix
// holds at most limit bytes and never ends inside a UTF-8 sequence.
func (r *Response) Snippet(limit int) string {
	txt := strings.TrimSpace(strings.ReplaceAll(string(r.Body), "\r\n", "\n"))
	if len(txt) <= limit {
		return txt
	}
	cut := limit
	for cut > 0 && !utf8.RuneStart(txt[cut]) {
		cut--
	}
	return txt[:cut]
}

// Request describes one call.
type Request struct {
	Method  string
	URL     string
	Body    any
	Headers map[string]string
	Probe   bool
}

// Do sends the request and reads the whole body.
func (c *Client) Do(ctx context.Context, req Request) (*Response, error) {
	timeout := c.timeout
	if req.Probe {
		timeout = c.probeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("failed to marshal request body: %w", err)
		}
		body = bytes.NewReader(data)
	}

	method := req.Method
	if method == "" {
		method = http.MethodGet
	}
	httpReq, err := http.NewRequestWithContext(ctx, method, req.URL, body)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	for k, v := range c.headers {
		httpReq.Header.Set(k, v)
	}
	if req.Body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	for k, v := range req.Headers {
		httpReq.Header.Set(k, v)
	}

	start := time.Now()
	resp, err := c.http.Do(httpReq)
	if err != nil {
		c.log.Debug("request failed", zap.String("method", method), zap.String("url", req.URL), zap.Error(err))
		return nil, err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	out := &Response{
		URL:        req.URL,
		StatusCode: resp.StatusCode,
		Header:     resp.Header,
		Body:       data,
		Duration:   time.Since(start),
	}
	c.log.Debug("request",
		zap.String("method", method),
		zap.String("url", req.URL),
		zap.Int("status", out.StatusCode),
		zap.Duration("duration", out.Duration))
	return out, nil
}

// Get issues a GET with the normal timeout.
func (c *Client) Get(ctx context.Context, url string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: url})
}

// GetWithHeaders issues a GET with extra headers.
func (c *Client) GetWithHeaders(ctx context.Context, url string, headers map[string]string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: url, Headers: headers})
}

// Probe issues a GET with the probe timeout.
func (c *Client) Probe(ctx context.Context, url string) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodGet, URL: url, Probe: true})
}

// PostJSON issues a POST with a JSON body.
func (c *Client) PostJSON(ctx context.Context, url string, body any) (*Response, error) {
	return c.Do(ctx, Request{Method: http.MethodPost, URL: url, Body: body})
}

// Absolute joins a base URL and a path with exactly one slash.
func Absolute(base, path string) string {
	return strings.TrimRight(base, "/") + "/" + strings.TrimLeft(path, "/")
}
