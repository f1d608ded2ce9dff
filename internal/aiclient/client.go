// Package aiclient talks to the external AI service over REST/JSON.
package aiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/readmaster/read-master/internal/aierr"
)

const (
	defaultTimeout  = 60 * time.Second
	maxResponseSize = 4 << 20 // 4MB
	userIDHeader    = "X-Read-Master-User"
)

// Usage is the optional usage/cost metadata returned with generated content.
type Usage struct {
	Model        string  `json:"model,omitempty"`
	InputTokens  int     `json:"inputTokens,omitempty"`
	OutputTokens int     `json:"outputTokens,omitempty"`
	TotalTokens  int     `json:"totalTokens,omitempty"`
	CostUSD      float64 `json:"cost,omitempty"`
}

// Caller is the part of Client that feature handlers depend on.
type Caller interface {
	Do(ctx context.Context, req Request, out any) (*Usage, error)
}

// Request describes one call to the AI service.
type Request struct {
	Method string
	Path   string
	// Query is appended to the path for GET requests.
	Query map[string]string
	Body  any
	// UserID is forwarded so the AI service can attribute usage.
	UserID string
	// Messages overrides the user-facing error text for this feature.
	Messages aierr.Messages
}

// Client communicates with the AI service.
type Client struct {
	baseURL    string
	apiKey     string
	enabled    bool
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) { c.httpClient.Timeout = d }
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithEnabled toggles AI features. A disabled client fails every call with
// ai_disabled without network I/O.
func WithEnabled(enabled bool) Option {
	return func(c *Client) { c.enabled = enabled }
}

// New creates a client for the AI service at baseURL.
func New(baseURL, apiKey string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     apiKey,
		enabled:    true,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Enabled reports whether AI calls are allowed.
func (c *Client) Enabled() bool { return c.enabled }

// Do sends req and decodes the JSON response into out. Failures are returned
// as *aierr.Error.
func (c *Client) Do(ctx context.Context, req Request, out any) (*Usage, error) {
	if !c.enabled {
		return nil, aierr.New(aierr.KindAIDisabled, req.Messages)
	}

	httpReq, err := c.newRequest(ctx, req)
	if err != nil {
		return nil, err
	}

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		if errors.Is(ctx.Err(), context.Canceled) {
			return nil, fmt.Errorf("ai request canceled: %w", ctx.Err())
		}
		return nil, aierr.Localize(aierr.Network(err), req.Messages)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		return nil, aierr.Localize(aierr.Network(err), req.Messages)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, aierr.Classify(resp.StatusCode, body, req.Messages)
	}

	if out != nil && len(body) > 0 {
		if err := json.Unmarshal(body, out); err != nil {
			e := aierr.New(aierr.KindGenerationFailed, req.Messages)
			e.Status = resp.StatusCode
			return nil, e
		}
	}

	var envelope struct {
		Usage *Usage `json:"usage"`
	}
	if len(body) > 0 {
		// Usage is optional; a body without it is not an error.
		_ = json.Unmarshal(body, &envelope)
	}
	return envelope.Usage, nil
}

func (c *Client) newRequest(ctx context.Context, req Request) (*http.Request, error) {
	method := req.Method
	if method == "" {
		method = http.MethodPost
	}

	var body io.Reader
	if req.Body != nil {
		data, err := json.Marshal(req.Body)
		if err != nil {
			return nil, fmt.Errorf("marshal ai request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	httpReq, err := http.NewRequestWithContext(ctx, method, c.baseURL+req.Path, body)
	if err != nil {
		return nil, fmt.Errorf("create ai request: %w", err)
	}

	if len(req.Query) > 0 {
		q := httpReq.URL.Query()
		for k, v := range req.Query {
			if v != "" {
				q.Set(k, v)
			}
		}
		httpReq.URL.RawQuery = q.Encode()
	}

	httpReq.Header.Set("Accept", "application/json")
	if body != nil {
		httpReq.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}
	if req.UserID != "" {
		httpReq.Header.Set(userIDHeader, req.UserID)
	}
	return httpReq, nil
}

var _ Caller = (*Client)(nil)
