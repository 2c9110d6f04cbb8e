package webhook

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fekuna/omnipos-catalog-gate/config"
	"github.com/fekuna/omnipos-catalog-gate/internal/logger"
	"go.uber.org/zap"
)

// StatusError is returned when an automation endpoint answers with a non-2xx status.
type StatusError struct {
	Endpoint   string
	StatusCode int
	Body       string
}

func (e *StatusError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("webhook %s: status %d", e.Endpoint, e.StatusCode)
	}
	return fmt.Sprintf("webhook %s: status %d: %s", e.Endpoint, e.StatusCode, e.Body)
}

type Config struct {
	FieldChangedURL string
	UnitPriceURL    string
	ConfirmItemsURL string
	Timeout         time.Duration
	Fields          config.PayloadFields
}

// Client calls the three automation webhooks. Each call is independent and never retried here;
// the caller keeps the pending label on failure.
type Client struct {
	cfg        Config
	httpClient *http.Client
	logger     logger.ZapLogger
}

func NewClient(cfg Config, log logger.ZapLogger) *Client {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{cfg: cfg, httpClient: &http.Client{Timeout: timeout}, logger: log}
}

// FieldChange describes one simple change label being forwarded.
type FieldChange struct {
	Kind       string
	ProductID  string
	TaxPercent string
	TaxCode    string
}

func (c *Client) FieldChanged(ctx context.Context, fc FieldChange) error {
	body := map[string]any{
		"type":                 fc.Kind,
		c.cfg.Fields.ProductID: fc.ProductID,
	}
	if fc.TaxPercent != "" {
		body["taxPercent"] = fc.TaxPercent
	}
	if fc.TaxCode != "" {
		body[c.cfg.Fields.TaxCode] = fc.TaxCode
	}
	return c.post(ctx, "field-changed", c.cfg.FieldChangedURL, body)
}

func (c *Client) RecomputeUnitPrice(ctx context.Context, productID string) error {
	return c.post(ctx, "unit-price", c.cfg.UnitPriceURL, map[string]any{
		c.cfg.Fields.ProductID: productID,
	})
}

func (c *Client) ConfirmItems(ctx context.Context, p ConfirmPayload) error {
	return c.post(ctx, "confirm-items", c.cfg.ConfirmItemsURL, p.body(c.cfg.Fields))
}

func (c *Client) post(ctx context.Context, name, url string, payload any) error {
	if strings.TrimSpace(url) == "" {
		return fmt.Errorf("webhook %s: url is not configured", name)
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("webhook %s: marshal: %w", name, err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("webhook %s: create request: %w", name, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("webhook %s: send: %w", name, err)
	}
	defer resp.Body.Close()
	raw, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return &StatusError{Endpoint: name, StatusCode: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}
	c.logger.Debug("webhook delivered", zap.String("endpoint", name), zap.Int("status", resp.StatusCode))
	return nil
}
