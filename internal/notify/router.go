package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/fekuna/omnipos-catalog-gate/internal/logger"
	"go.uber.org/zap"
)

// Router posts per-product reports to a Slack-style incoming webhook.
// Failed or neutral reports always go to URL; successes go to SuccessURL when it is set.
type Router struct {
	url        string
	successURL string
	httpClient *http.Client
	logger     logger.ZapLogger
}

func NewRouter(url, successURL string, timeout time.Duration, log logger.ZapLogger) *Router {
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Router{
		url:        url,
		successURL: successURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     log,
	}
}

type message struct {
	Text string `json:"text"`
}

func (r *Router) Notify(ctx context.Context, report string, ok bool) error {
	target := r.url
	if ok && strings.TrimSpace(r.successURL) != "" {
		target = r.successURL
	}

	body, err := json.Marshal(message{Text: report})
	if err != nil {
		return fmt.Errorf("notify: marshal: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("notify: create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := r.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("notify: send: %w", err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, resp.Body)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("notify: unexpected status %d", resp.StatusCode)
	}
	r.logger.Debug("report delivered", zap.Bool("success", ok), zap.Int("bytes", len(report)))
	return nil
}
