// Package engine provides a Go client for the MarketMind agent-engine HTTP
// API: session CRUD over plain request/response calls, and streaming turn
// execution over SSE.
//
// Example usage:
//
//	client := engine.NewClient("http://localhost:8080")
//
//	session, err := client.CreateSession(ctx, &engine.CreateSessionRequest{
//	    UserID: "u_123",
//	})
//
//	frames, errs, err := client.StreamQuery(ctx, &engine.StreamRequest{
//	    UserID:    "u_123",
//	    SessionID: engine.SessionID(session.Name),
//	    Message:   "How did Samsung Electronics close today?",
//	})
//	for frame := range frames {
//	    // Feed frame payloads to the event interpreter.
//	}
package engine

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"
)

// Client talks to the agent-engine gateway.
type Client struct {
	baseURL    string
	httpClient *http.Client
	appName    string
}

// ClientOption configures the client.
type ClientOption func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(c *http.Client) ClientOption {
	return func(client *Client) {
		client.httpClient = c
	}
}

// WithTimeout sets the HTTP client timeout for request/response calls.
// Streaming requests are never subject to this timeout.
func WithTimeout(d time.Duration) ClientOption {
	return func(client *Client) {
		client.httpClient.Timeout = d
	}
}

// WithAppName sets the app namespace reported on session creation.
func WithAppName(name string) ClientOption {
	return func(client *Client) {
		client.appName = name
	}
}

// NewClient creates a new agent-engine client.
func NewClient(baseURL string, opts ...ClientOption) *Client {
	c := &Client{
		baseURL: strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
		appName: DefaultAppName,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// buildURL builds a request URL with optional query parameters.
func (c *Client) buildURL(path string, queryParams ...map[string]string) string {
	u, _ := url.Parse(c.baseURL + path)

	if len(queryParams) > 0 {
		q := u.Query()
		for _, params := range queryParams {
			for k, v := range params {
				q.Set(k, v)
			}
		}
		u.RawQuery = q.Encode()
	}

	return u.String()
}

// doRequest performs an HTTP request and decodes the JSON response. The
// gateway wraps some engine responses in an {"output": ...} envelope; when
// present it is unwrapped before decoding into result.
func (c *Client) doRequest(ctx context.Context, method, reqURL string, body any, result any) error {
	var bodyReader io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("marshal request body: %w", err)
		}
		bodyReader = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, reqURL, bodyReader)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}

	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("do request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return &APIError{StatusCode: resp.StatusCode, Body: string(bodyBytes)}
	}

	if result != nil {
		raw, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		if err := json.Unmarshal(unwrapOutput(raw), result); err != nil {
			return fmt.Errorf("decode response: %w", err)
		}
	}

	return nil
}

// unwrapOutput strips the gateway's {"output": ...} envelope if present.
func unwrapOutput(raw []byte) []byte {
	var envelope struct {
		Output json.RawMessage `json:"output"`
	}
	if err := json.Unmarshal(raw, &envelope); err == nil && len(envelope.Output) > 0 {
		return envelope.Output
	}
	return raw
}
