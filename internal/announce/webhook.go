// internal/announce/webhook.go
package announce

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"guildpulse/internal/lifecycle"
)

var ErrUnknownDestination = errors.New("unknown announce destination")

// Webhook posts notices to chat webhooks, one URL per destination. All
// destinations share a single rate limit.
type Webhook struct {
	urls    map[string]string
	client  *http.Client
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewWebhook creates a webhook announcer. perMinute <= 0 disables rate limiting.
func NewWebhook(urls map[string]string, perMinute int, timeout time.Duration, log *zap.Logger) *Webhook {
	if log == nil {
		log = zap.NewNop()
	}
	limiter := rate.NewLimiter(rate.Inf, 0)
	if perMinute > 0 {
		limiter = rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMinute)), perMinute)
	}
	return &Webhook{
		urls:    urls,
		client:  &http.Client{Timeout: timeout},
		limiter: limiter,
		log:     log.Named("webhook"),
	}
}

type webhookPayload struct {
	Content string `json:"content"`
}

// Broadcast sends the rendered notice. Any non-2xx response is an error so
// the caller leaves the slot unrecorded.
func (w *Webhook) Broadcast(ctx context.Context, destination string, notice lifecycle.Notice) error {
	url, ok := w.urls[destination]
	if !ok || url == "" {
		return fmt.Errorf("%w: %q", ErrUnknownDestination, destination)
	}
	if err := w.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("rate limit wait: %w", err)
	}

	body, err := json.Marshal(webhookPayload{Content: Render(notice)})
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := w.client.Do(req)
	if err != nil {
		return fmt.Errorf("post webhook: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status code: %d: %s", resp.StatusCode, bytes.TrimSpace(snippet))
	}

	w.log.Debug("notice delivered",
		zap.String("destination", destination),
		zap.String("notice", string(notice.Kind)),
		zap.String("event_id", notice.Event.ID.String()),
	)
	return nil
}
