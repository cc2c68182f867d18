// Package client is the HTTP gateway to the execution backend.
//
// It speaks the backend contract: POST /api/execute with {code, language}
// returns a full trace in one response. Requests are sent once and never
// retried; cancelling the context aborts the in-flight request.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aretw0/stepview/pkg/domain"
)

var (
	// ErrBackendUnavailable is returned when the backend cannot be reached.
	ErrBackendUnavailable = errors.New("execution backend unavailable")

	// ErrMalformedResponse is returned when the backend answers with a body that is not the expected JSON.
	ErrMalformedResponse = errors.New("malformed backend response")
)

const (
	// DefaultTimeout mirrors the backend's own execution timeout.
	DefaultTimeout = 30 * time.Second

	// DefaultTimeoutOverhead accounts for network latency on top of the execution timeout.
	DefaultTimeoutOverhead = 5 * time.Second

	maxResponseBytes = 64 << 20
)

// APIError is a non-2xx answer from the backend. Detail carries the
// backend's {"detail": ...} message.
type APIError struct {
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail == "" {
		return fmt.Sprintf("backend returned %d %s", e.StatusCode, http.StatusText(e.StatusCode))
	}
	return fmt.Sprintf("backend returned %d: %s", e.StatusCode, e.Detail)
}

// Client talks to an execution backend over HTTP.
type Client struct {
	baseURL  *url.URL
	http     *http.Client
	timeout  time.Duration
	overhead time.Duration
	logger   *slog.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.http = hc
		}
	}
}

// WithTimeout sets the execution timeout used when a request does not carry one.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.timeout = d
		}
	}
}

// WithTimeoutOverhead sets the latency allowance added to every execution timeout.
func WithTimeoutOverhead(d time.Duration) Option {
	return func(c *Client) {
		if d >= 0 {
			c.overhead = d
		}
	}
}

// WithLogger sets a structured logger.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Client) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// New creates a client for the backend rooted at baseURL (for example
// "http://localhost:8000").
func New(baseURL string, opts ...Option) (*Client, error) {
	u, err := url.Parse(strings.TrimRight(baseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("invalid backend url %q: %w", baseURL, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return nil, fmt.Errorf("invalid backend url %q: scheme must be http or https", baseURL)
	}

	c := &Client{
		baseURL:  u,
		http:     &http.Client{},
		timeout:  DefaultTimeout,
		overhead: DefaultTimeoutOverhead,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// BaseURL returns the backend root URL.
func (c *Client) BaseURL() string {
	return c.baseURL.String()
}

// Execute submits the program and returns its normalized trace.
func (c *Client) Execute(ctx context.Context, req domain.ExecutionRequest) (*domain.ExecutionState, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}

	timeout := c.timeout
	if req.Timeout > 0 {
		timeout = time.Duration(req.Timeout) * time.Second
	}
	ctx, cancel := context.WithTimeout(ctx, timeout+c.overhead)
	defer cancel()

	start := time.Now()
	var trace domain.ExecutionState
	if err := c.do(ctx, http.MethodPost, "/api/execute", req, &trace); err != nil {
		c.logger.Warn("execution request failed", "language", req.Language, "error", err)
		return nil, err
	}

	trace.Normalize()
	if trace.Language == "" {
		trace.Language = req.Language
	}
	if trace.Code == "" {
		trace.Code = req.Code
	}
	c.logger.Debug("execution request done",
		"language", req.Language,
		"steps", trace.TotalSteps,
		"status", trace.Status,
		"elapsed", time.Since(start),
	)
	return &trace, nil
}

// Validate asks the backend to check syntax without executing.
func (c *Client) Validate(ctx context.Context, req domain.ExecutionRequest) (*domain.ValidationResult, error) {
	if err := checkRequest(req); err != nil {
		return nil, err
	}
	var out domain.ValidationResult
	if err := c.do(ctx, http.MethodPost, "/api/validate", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Health returns the backend health report.
func (c *Client) Health(ctx context.Context) (*domain.Health, error) {
	var out domain.Health
	if err := c.do(ctx, http.MethodGet, "/api/health", nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Languages lists the languages the backend supports.
func (c *Client) Languages(ctx context.Context) ([]domain.LanguageInfo, error) {
	var out struct {
		Languages []domain.LanguageInfo `json:"languages"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/languages", nil, &out); err != nil {
		return nil, err
	}
	return out.Languages, nil
}

// Examples lists the sample programs for a language.
func (c *Client) Examples(ctx context.Context, language domain.Language) ([]domain.CodeExample, error) {
	var out struct {
		Examples []domain.CodeExample `json:"examples"`
	}
	if err := c.do(ctx, http.MethodGet, "/api/examples/"+url.PathEscape(string(language)), nil, &out); err != nil {
		return nil, err
	}
	return out.Examples, nil
}

func checkRequest(req domain.ExecutionRequest) error {
	if !req.Language.Valid() {
		return fmt.Errorf("%w: %q", domain.ErrUnsupportedLanguage, req.Language)
	}
	if strings.TrimSpace(req.Code) == "" {
		return domain.ErrEmptySource
	}
	if req.Timeout < 0 || req.Timeout > 60 {
		return fmt.Errorf("timeout must be between 1 and 60 seconds, got %d", req.Timeout)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL.JoinPath(path).String(), reader)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return fmt.Errorf("%w: %w", ErrBackendUnavailable, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Detail: detail(data)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: %w", ErrMalformedResponse, err)
	}
	return nil
}

// detail extracts the message of a {"detail": ...} error body. FastAPI-style
// validation errors carry a list there, which is kept as raw JSON.
func detail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return strings.TrimSpace(string(body))
	}
	var msg string
	if err := json.Unmarshal(payload.Detail, &msg); err == nil {
		return msg
	}
	return string(payload.Detail)
}
