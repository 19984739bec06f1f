package practicum

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"go.uber.org/zap"
)

const maxBodySize = 1 << 20

// Client talks to the homework review API.
type Client struct {
	httpClient   *http.Client
	endpoint     string
	token        string
	maxRetries   int
	retryInitial time.Duration
	logger       *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.httpClient = hc }
}

// WithRetry sets how many extra attempts transient failures get and the first backoff delay.
func WithRetry(maxRetries int, initial time.Duration) Option {
	return func(c *Client) {
		c.maxRetries = maxRetries
		c.retryInitial = initial
	}
}

// WithLogger sets the logger.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Client) { c.logger = logger }
}

// NewClient creates an API client authenticated with an OAuth token.
func NewClient(endpoint, token string, opts ...Option) *Client {
	c := &Client{
		httpClient:   &http.Client{Timeout: 10 * time.Second},
		endpoint:     endpoint,
		token:        token,
		maxRetries:   2,
		retryInitial: time.Second,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// GetAPIAnswer fetches homework statuses changed since fromDate and validates the answer.
func (c *Client) GetAPIAnswer(ctx context.Context, fromDate int64) (*Answer, error) {
	var body []byte
	err := retryWithBackoff(ctx, c.logger, c.maxRetries, c.retryInitial, func() error {
		var fetchErr error
		body, fetchErr = c.fetch(ctx, fromDate)
		return fetchErr
	})
	if err != nil {
		return nil, err
	}
	return CheckResponse(body)
}

func (c *Client) fetch(ctx context.Context, fromDate int64) ([]byte, error) {
	u, err := url.Parse(c.endpoint)
	if err != nil {
		return nil, fmt.Errorf("invalid endpoint: %w", err)
	}
	q := u.Query()
	q.Set("from_date", strconv.FormatInt(fromDate, 10))
	u.RawQuery = q.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "OAuth "+c.token)
	req.Header.Set("Accept", "application/json")

	c.logger.Debug("requesting homework statuses",
		zap.String("endpoint", c.endpoint),
		zap.Int64("from_date", fromDate))

	resp, err := c.httpClient.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, fmt.Errorf("%w: %v", ErrConnection, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodySize))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to read response: %v", ErrConnection, err)
	}

	if resp.StatusCode != http.StatusOK {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var apiErr struct {
			Code    string `json:"code"`
			Message string `json:"message"`
		}
		if json.Unmarshal(body, &apiErr) == nil {
			statusErr.Code = apiErr.Code
			statusErr.Message = apiErr.Message
		}
		return nil, statusErr
	}

	return body, nil
}
