package gql

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/fekuna/omnipos-catalog-gate/internal/logger"
	"go.uber.org/zap"
)

const (
	// Base delays before the first retry; they double on each following throttle.
	apiThrottleDelay       = 1500 * time.Millisecond
	transportThrottleDelay = 2 * time.Second

	defaultMaxAttempts = 8
	defaultMaxDelay    = 30 * time.Second
	defaultTimeout     = 30 * time.Second
)

// Executor is what repositories depend on; *Client implements it.
type Executor interface {
	Do(ctx context.Context, query string, vars map[string]any, out any) error
}

type Config struct {
	Store       string
	APIVersion  string
	AccessToken string
	Timeout     time.Duration
	MaxAttempts int
	MaxDelay    time.Duration
}

type request struct {
	Query     string         `json:"query"`
	Variables map[string]any `json:"variables,omitempty"`
}

type envelope struct {
	Data       json.RawMessage `json:"data"`
	Errors     []Error         `json:"errors"`
	Extensions struct {
		Cost *queryCost `json:"cost"`
	} `json:"extensions"`
}

// Client executes GraphQL calls against the Admin API, retrying throttled calls with
// bounded exponential backoff and keeping cost telemetry.
type Client struct {
	endpoint    string
	token       string
	httpClient  *http.Client
	maxAttempts int
	maxDelay    time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	logger      logger.ZapLogger

	mu     sync.Mutex
	budget Budget
}

type Option func(*Client)

// WithEndpoint overrides the URL derived from the store (tests, proxies).
func WithEndpoint(endpoint string) Option {
	return func(c *Client) {
		if endpoint != "" {
			c.endpoint = endpoint
		}
	}
}

func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		if hc != nil {
			c.httpClient = hc
		}
	}
}

// WithSleep replaces the backoff sleeper. Tests use it to avoid real waits.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) Option {
	return func(c *Client) {
		if sleep != nil {
			c.sleep = sleep
		}
	}
}

func NewClient(cfg Config, log logger.ZapLogger, opts ...Option) (*Client, error) {
	if strings.TrimSpace(cfg.Store) == "" {
		return nil, fmt.Errorf("graphql client: store is required")
	}
	if strings.TrimSpace(cfg.AccessToken) == "" {
		return nil, fmt.Errorf("graphql client: access token is required")
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	c := &Client{
		endpoint:    fmt.Sprintf("https://%s/admin/api/%s/graphql.json", cfg.Store, cfg.APIVersion),
		token:       cfg.AccessToken,
		httpClient:  &http.Client{Timeout: timeout},
		maxAttempts: cfg.MaxAttempts,
		maxDelay:    cfg.MaxDelay,
		sleep:       sleepCtx,
		logger:      log,
	}
	if c.maxAttempts <= 0 {
		c.maxAttempts = defaultMaxAttempts
	}
	if c.maxDelay <= 0 {
		c.maxDelay = defaultMaxDelay
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// Do runs query and decodes the data object into out (when out is non-nil).
func (c *Client) Do(ctx context.Context, query string, vars map[string]any, out any) error {
	body, err := json.Marshal(request{Query: query, Variables: vars})
	if err != nil {
		return fmt.Errorf("graphql: marshal request: %w", err)
	}

	for attempt := 0; ; attempt++ {
		status, raw, err := c.post(ctx, body)
		if err != nil {
			return err
		}

		if status == http.StatusTooManyRequests {
			if err := c.backoff(ctx, attempt, transportThrottleDelay, "http 429"); err != nil {
				return err
			}
			continue
		}
		if status < 200 || status >= 300 {
			return &HTTPError{StatusCode: status, Body: snippet(raw)}
		}

		var env envelope
		if err := json.Unmarshal(raw, &env); err != nil {
			return fmt.Errorf("graphql: decode response: %w", err)
		}
		c.recordCost(env.Extensions.Cost)

		if isThrottled(env.Errors) {
			if err := c.backoff(ctx, attempt, apiThrottleDelay, "api throttled"); err != nil {
				return err
			}
			continue
		}
		if len(env.Errors) > 0 {
			return &ResponseError{Errors: env.Errors}
		}
		if out == nil || len(env.Data) == 0 {
			return nil
		}
		if err := json.Unmarshal(env.Data, out); err != nil {
			return fmt.Errorf("graphql: decode data: %w", err)
		}
		return nil
	}
}

// Budget returns a snapshot of the cost telemetry.
func (c *Client) Budget() Budget {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.budget
}

func (c *Client) post(ctx context.Context, body []byte) (int, []byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return 0, nil, fmt.Errorf("graphql: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("X-Shopify-Access-Token", c.token)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return 0, nil, fmt.Errorf("graphql: request failed: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return 0, nil, fmt.Errorf("graphql: read response: %w", err)
	}
	return resp.StatusCode, raw, nil
}

func (c *Client) backoff(ctx context.Context, attempt int, base time.Duration, reason string) error {
	c.mu.Lock()
	c.budget.Throttled++
	c.mu.Unlock()

	if attempt+1 >= c.maxAttempts {
		return fmt.Errorf("%w after %d attempts (%s)", ErrThrottleExhausted, attempt+1, reason)
	}
	delay := base << attempt
	if delay <= 0 || delay > c.maxDelay {
		delay = c.maxDelay
	}
	c.logger.Warn("graphql call throttled, backing off",
		zap.String("reason", reason),
		zap.Int("attempt", attempt+1),
		zap.Duration("delay", delay),
	)
	return c.sleep(ctx, delay)
}

func (c *Client) recordCost(cost *queryCost) {
	c.mu.Lock()
	c.budget.record(cost)
	c.mu.Unlock()
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

func snippet(raw []byte) string {
	const limit = 4096
	s := strings.TrimSpace(string(raw))
	if len(s) > limit {
		return s[:limit]
	}
	return s
}
