// Package client talks to a running otpbridge server over HTTP and
// implements adapter.Session for remote hosts.
package client

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

	"github.com/shandysiswandi/otpbridge/internal/retriever/entity"
)

const defaultTimeout = 30 * time.Second

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
	Fields     map[string]string
	// Info is set when the failure is a typed episode error.
	Info *entity.ErrorInfo
}

func (e *APIError) Error() string {
	if e.Info != nil {
		return e.Info.Error()
	}
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

func (e *APIError) Unwrap() error {
	if e.Info != nil {
		return e.Info
	}
	return nil
}

type Option func(*Client)

// WithHTTPClient replaces the client used for regular calls. Streams use a
// copy without a timeout.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.http = hc }
}

// WithReconnectDelay caps the wait between stream reconnect attempts.
func WithReconnectDelay(d time.Duration) Option {
	return func(c *Client) { c.reconnectMax = d }
}

type Client struct {
	baseURL      string
	token        string
	http         *http.Client
	reconnectMax time.Duration
}

func New(baseURL, token string, opts ...Option) *Client {
	c := &Client{
		baseURL:      strings.TrimSuffix(baseURL, "/"),
		token:        token,
		http:         &http.Client{Timeout: defaultTimeout},
		reconnectMax: 5 * time.Second,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

type envelope struct {
	Message string            `json:"message"`
	Data    json.RawMessage   `json:"data"`
	Error   map[string]string `json:"error"`
}

func (c *Client) StartListener(ctx context.Context) error {
	return c.do(ctx, c.http, http.MethodPost, "/api/v1/retriever/start", nil, nil)
}

// StartAndWait holds the request until the server resolves the episode. A
// zero timeout uses the server default.
func (c *Client) StartAndWait(ctx context.Context, timeout time.Duration) (string, error) {
	var out struct {
		Code string `json:"code"`
	}
	in := map[string]int64{"timeout_ms": timeout.Milliseconds()}

	hc := *c.http
	hc.Timeout = 0
	if err := c.do(ctx, &hc, http.MethodPost, "/api/v1/retriever/start/wait", in, &out); err != nil {
		return "", err
	}
	return out.Code, nil
}

func (c *Client) StopListener(ctx context.Context) error {
	return c.do(ctx, c.http, http.MethodPost, "/api/v1/retriever/stop", nil, nil)
}

func (c *Client) GetStatus(ctx context.Context) (entity.Status, error) {
	var st entity.Status
	err := c.do(ctx, c.http, http.MethodGet, "/api/v1/retriever/status", nil, &st)
	return st, err
}

func (c *Client) GetAppHash(ctx context.Context) (string, error) {
	var out struct {
		AppHash string `json:"app_hash"`
	}
	if err := c.do(ctx, c.http, http.MethodGet, "/api/v1/retriever/app-hash", nil, &out); err != nil {
		return "", err
	}
	return out.AppHash, nil
}

type SimulateRequest struct {
	Message    *string `json:"message,omitempty"`
	Status     string  `json:"status,omitempty"`
	StatusCode *int    `json:"status_code,omitempty"`
	Code       string  `json:"code,omitempty"`
}

type SimulateResponse struct {
	ID      string `json:"id"`
	Message string `json:"message"`
	Code    string `json:"code"`
}

func (c *Client) Simulate(ctx context.Context, in SimulateRequest) (*SimulateResponse, error) {
	var out SimulateResponse
	if err := c.do(ctx, c.http, http.MethodPost, "/api/v1/retriever/simulate", in, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) newRequest(ctx context.Context, method, path string, in any) (*http.Request, error) {
	var body io.Reader
	if in != nil {
		raw, err := json.Marshal(in)
		if err != nil {
			return nil, fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(raw)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.token != "" {
		req.Header.Set("Authorization", "Bearer "+c.token)
	}
	return req, nil
}

func (c *Client) do(ctx context.Context, hc *http.Client, method, path string, in, out any) error {
	req, err := c.newRequest(ctx, method, path, in)
	if err != nil {
		return err
	}

	resp, err := hc.Do(req)
	if err != nil {
		return fmt.Errorf("http request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusNoContent {
		return nil
	}

	var env envelope
	if err := json.NewDecoder(resp.Body).Decode(&env); err != nil && !errors.Is(err, io.EOF) {
		return fmt.Errorf("decode response: %w", err)
	}

	if resp.StatusCode >= http.StatusBadRequest {
		return newAPIError(resp.StatusCode, env)
	}

	if out != nil && len(env.Data) > 0 {
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("decode data: %w", err)
		}
	}
	return nil
}

func newAPIError(status int, env envelope) *APIError {
	apiErr := &APIError{StatusCode: status, Message: env.Message, Fields: env.Error}

	var kind entity.ErrorKind
	if t, ok := env.Error["type"]; ok && kind.UnmarshalText([]byte(t)) == nil {
		apiErr.Info = &entity.ErrorInfo{Kind: kind, Detail: env.Message}
	}
	return apiErr
}
