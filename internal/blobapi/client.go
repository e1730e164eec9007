package blobapi

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"

	"github.com/google/uuid"
	"golang.org/x/time/rate"
)

const (
	defaultUserAgent = "blobfm/0.1"
	requestIDHeader  = "X-Request-ID"
)

// TokenSource provides OAuth2 bearer tokens. Defined at the consumer
// (blobapi package) so the identity provider stays behind one method.
type TokenSource interface {
	Token() (string, error)
}

// Client is an HTTP client for the blob-storage API. Every request carries
// the bearer token from TokenSource. There is no retry: each failure is
// returned to the caller once.
type Client struct {
	baseURL    string
	httpClient *http.Client
	token      TokenSource
	logger     *slog.Logger
	userAgent  string
	limiter    *rate.Limiter

	// newRequestID generates the X-Request-ID header. Tests override it.
	newRequestID func() string
}

// Option configures optional Client behavior.
type Option func(*Client)

// WithUserAgent overrides the User-Agent header. Empty keeps the default.
func WithUserAgent(ua string) Option {
	return func(c *Client) {
		if ua != "" {
			c.userAgent = ua
		}
	}
}

// WithRateLimit caps outgoing requests per second. Zero or negative
// disables the limit.
func WithRateLimit(rps float64) Option {
	return func(c *Client) {
		if rps <= 0 {
			c.limiter = rate.NewLimiter(rate.Inf, 0)
			return
		}

		burst := max(int(rps), 1)
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

// NewClient creates a blob-storage API client.
// baseURL is the API root, e.g. "http://localhost:8000".
func NewClient(baseURL string, httpClient *http.Client, token TokenSource, logger *slog.Logger, opts ...Option) *Client {
	if logger == nil {
		logger = slog.Default()
	}

	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	c := &Client{
		baseURL:      strings.TrimRight(baseURL, "/"),
		httpClient:   httpClient,
		token:        token,
		logger:       logger,
		userAgent:    defaultUserAgent,
		limiter:      rate.NewLimiter(rate.Inf, 0),
		newRequestID: uuid.NewString,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

// Do executes an authorized request against the API. The path is appended
// to the base URL. contentType is set when body is non-nil.
//
// A 2xx response is returned as is and the caller must close its body.
// Any other status is read, closed, and returned as *APIError. Token
// failures wrap ErrToken, transport failures wrap ErrNetwork.
func (c *Client) Do(ctx context.Context, method, path string, body io.Reader, contentType string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("blobapi: request canceled: %w", err)
	}

	tok, err := c.token.Token()
	if err != nil {
		c.logger.Warn("token acquisition failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("error", err.Error()),
		)

		return nil, fmt.Errorf("%w: %w", ErrToken, err)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return nil, fmt.Errorf("blobapi: creating request: %w", err)
	}

	reqID := c.newRequestID()

	req.Header.Set("Authorization", "Bearer "+tok)
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set(requestIDHeader, reqID)

	if body != nil && contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, fmt.Errorf("blobapi: request canceled: %w", ctx.Err())
		}

		c.logger.Warn("request failed",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("request_id", reqID),
			slog.String("error", err.Error()),
		)

		return nil, fmt.Errorf("%w: %s %s: %w", ErrNetwork, method, path, err)
	}

	if resp.StatusCode >= http.StatusOK && resp.StatusCode < http.StatusMultipleChoices {
		c.logger.Debug("request succeeded",
			slog.String("method", method),
			slog.String("path", path),
			slog.String("request_id", reqID),
			slog.Int("status", resp.StatusCode),
		)

		return resp, nil
	}

	return nil, c.statusError(resp, method, path, reqID)
}

// statusError reads and closes a non-2xx response and builds its APIError.
func (c *Client) statusError(resp *http.Response, method, path, reqID string) error {
	defer resp.Body.Close()

	errBody, readErr := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	if readErr != nil {
		errBody = nil
	}

	if echoed := resp.Header.Get(requestIDHeader); echoed != "" {
		reqID = echoed
	}

	apiErr := &APIError{
		StatusCode: resp.StatusCode,
		RequestID:  reqID,
		Message:    strings.TrimSpace(string(errBody)),
		Err:        classifyStatus(resp.StatusCode),
	}

	c.logger.Debug("request returned error status",
		slog.String("method", method),
		slog.String("path", path),
		slog.String("request_id", reqID),
		slog.Int("status", resp.StatusCode),
	)

	return apiErr
}

// drain discards the rest of a successful response body so the connection
// can be reused.
func drain(resp *http.Response) {
	_, _ = io.Copy(io.Discard, resp.Body)
	resp.Body.Close()
}
