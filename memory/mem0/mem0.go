// Package mem0 provides a memory provider backed by the mem0 REST API.
package mem0

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/tidwall/gjson"
	"github.com/tidwall/sjson"
)

const (
	DefaultBaseURL = "https://api.mem0.ai"
	defaultTimeout = 30 * time.Second
)

// Client talks to a mem0 deployment (hosted platform or self-hosted server).
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
}

// Option configures a Client.
type Option func(*Client)

// WithAPIKey sets the API key. An empty key falls back to MEM0_API_KEY.
func WithAPIKey(key string) Option {
	return func(c *Client) {
		if key != "" {
			c.apiKey = key
		}
	}
}

// WithBaseURL overrides the API endpoint. An empty URL keeps the default.
func WithBaseURL(url string) Option {
	return func(c *Client) {
		if url != "" {
			c.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient sets the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// New creates a Client.
func New(opts ...Option) *Client {
	c := &Client{
		apiKey:     os.Getenv("MEM0_API_KEY"),
		baseURL:    DefaultBaseURL,
		httpClient: &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Search posts to /v1/memories/search/ and returns the response body as-is.
// Depending on the deployment the body is a bare array or an object with a
// "results" list.
func (c *Client) Search(ctx context.Context, query, userID string, limit int) (json.RawMessage, error) {
	body := []byte(`{}`)
	body, _ = sjson.SetBytes(body, "query", query)
	body, _ = sjson.SetBytes(body, "user_id", userID)
	body, _ = sjson.SetBytes(body, "limit", limit)

	return c.post(ctx, "/v1/memories/search/", body)
}

// Add posts text as a user message to /v1/memories/ for userID.
func (c *Client) Add(ctx context.Context, text, userID string) error {
	body := []byte(`{}`)
	body, _ = sjson.SetBytes(body, "messages.0.role", "user")
	body, _ = sjson.SetBytes(body, "messages.0.content", text)
	body, _ = sjson.SetBytes(body, "user_id", userID)

	_, err := c.post(ctx, "/v1/memories/", body)
	return err
}

func (c *Client) post(ctx context.Context, path string, body []byte) (json.RawMessage, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Token "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("mem0 request: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read mem0 response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		msg := gjson.GetBytes(data, "detail").String()
		if msg == "" {
			msg = strings.TrimSpace(string(data))
		}
		return nil, fmt.Errorf("mem0 %s: status %d: %s", path, resp.StatusCode, msg)
	}

	return data, nil
}
