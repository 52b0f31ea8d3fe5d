// Package gateway is the typed HTTP client for the remote coach API.
package gateway

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/training-dashboard/backend/internal/observability"
)

// TokenSource supplies the bearer token and tears the session down on 401.
type TokenSource interface {
	Token() string
	Expire(ctx context.Context) error
}

// Config holds the coach API connection settings.
type Config struct {
	BaseURL string
	Timeout time.Duration
}

// Option configures optional behaviour for the Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client used for requests.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithLogger overrides the logger used to report session expiry.
func WithLogger(logger *log.Logger) Option {
	return func(c *Client) {
		c.logger = logger
	}
}

// Client talks to the coach API on behalf of the signed-in athlete.
type Client struct {
	baseURL    string
	httpClient *http.Client
	tokens     TokenSource
	logger     *log.Logger
}

// New creates a coach API client.
func New(cfg Config, tokens TokenSource, opts ...Option) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	c := &Client{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		tokens:     tokens,
		logger:     log.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// call describes one coach API request.
type call struct {
	endpoint string // metric label
	method   string
	path     string
	query    url.Values
	body     any
	authFlow bool // 401 is reported to the caller instead of expiring the session
}

func (c *Client) do(ctx context.Context, rc call, out any) (err error) {
	start := time.Now()
	defer func() {
		observability.RecordGatewayRequest(rc.endpoint, outcomeOf(err), time.Since(start))
	}()

	req, err := c.newRequest(ctx, rc)
	if err != nil {
		return err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return &NetworkError{Op: rc.method + " " + rc.path, Err: err}
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized {
		io.Copy(io.Discard, resp.Body)
		if rc.authFlow {
			return ErrUnauthorized
		}
		if c.tokens != nil {
			if expErr := c.tokens.Expire(context.WithoutCancel(ctx)); expErr != nil {
				c.logger.Printf("Failed to clear expired session: %v", expErr)
			}
		}
		return ErrSessionExpired
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{Status: resp.StatusCode, Message: errorDetail(resp.Body)}
	}

	if out == nil {
		io.Copy(io.Discard, resp.Body)
		return nil
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return &NetworkError{Op: "reading " + rc.path, Err: err}
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", rc.endpoint, err)
	}
	return nil
}

// newRequest creates a new HTTP request with authentication.
func (c *Client) newRequest(ctx context.Context, rc call) (*http.Request, error) {
	u := c.baseURL + rc.path
	if len(rc.query) > 0 {
		u += "?" + rc.query.Encode()
	}

	var body io.Reader
	if rc.body != nil {
		payload, err := json.Marshal(rc.body)
		if err != nil {
			return nil, fmt.Errorf("encoding request: %w", err)
		}
		body = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, rc.method, u, body)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	if c.tokens != nil {
		if token := c.tokens.Token(); token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
	}
	return req, nil
}

// errorDetail extracts the FastAPI style "detail" message from an error body.
// Validation errors carry a list of objects; the first msg is used.
func errorDetail(r io.Reader) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.NewDecoder(io.LimitReader(r, 64<<10)).Decode(&payload); err != nil || len(payload.Detail) == 0 {
		return defaultErrorMessage
	}

	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		if text == "" {
			return defaultErrorMessage
		}
		return text
	}

	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil && len(items) > 0 && items[0].Msg != "" {
		return items[0].Msg
	}
	return defaultErrorMessage
}

func outcomeOf(err error) string {
	if err == nil {
		return "success"
	}
	switch err.(type) {
	case *NetworkError:
		return "network_error"
	case *APIError:
		return "api_error"
	}
	if err == ErrUnauthorized || err == ErrSessionExpired {
		return "unauthorized"
	}
	return "error"
}
