// dispatcher.go performs the HTTP deliveries. Deliveries for one event run
// sequentially with a small pause between webhooks rather than in parallel,
// trading latency for not bursting the outbound connection pool. Each delivery
// retries on transient failures with doubling backoff plus jitter; exhausting
// the retry budget fails that webhook only.
package notify

import (
	"bytes"
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"net/http"
	"strconv"
	"time"

	"github.com/keyforge/keyforge/internal/config"
	"github.com/keyforge/keyforge/internal/db/models"
	"github.com/keyforge/keyforge/internal/telemetry"
)

// Signature and event headers attached to non-Discord deliveries.
const (
	HeaderSignature = "X-Webhook-Signature"
	HeaderEvent     = "X-Webhook-Event"
	HeaderRetry     = "X-Webhook-Retry"
)

// Dispatcher delivers event payloads to webhook endpoints with retry/backoff.
type Dispatcher struct {
	client     *http.Client
	maxRetries int
	baseDelay  time.Duration
	pause      time.Duration
	now        func() time.Time
}

// NewDispatcher creates a Dispatcher tuned by cfg. The HTTP client timeout is
// generous on purpose; slow international endpoints are common.
func NewDispatcher(cfg config.WebhooksConfig) *Dispatcher {
	return &Dispatcher{
		client:     &http.Client{Timeout: cfg.RequestTimeout},
		maxRetries: cfg.MaxRetries,
		baseDelay:  cfg.RetryBaseDelay,
		pause:      cfg.DeliveryPause,
		now:        time.Now,
	}
}

// DeliverAll delivers ev to each webhook in order. One webhook exhausting its
// retries does not affect the others.
func (d *Dispatcher) DeliverAll(ctx context.Context, webhooks []*models.Webhook, ev Event) {
	for i, w := range webhooks {
		if i > 0 && d.pause > 0 {
			if !sleepCtx(ctx, d.pause) {
				return
			}
		}
		if err := d.Deliver(ctx, w, ev); err != nil {
			slog.Warn("webhook delivery failed",
				"webhook_id", w.ID,
				"url", w.URL,
				"event", ev.Name,
				"error", err)
		}
	}
}

// Deliver posts ev to one webhook, retrying transient failures up to the
// configured ceiling. Returns the last error when the budget is exhausted.
func (d *Dispatcher) Deliver(ctx context.Context, w *models.Webhook, ev Event) error {
	body, err := marshalBody(w, ev, d.now())
	if err != nil {
		return fmt.Errorf("failed to marshal payload: %w", err)
	}

	start := d.now()
	defer func() {
		telemetry.WebhookDeliveryDuration.Observe(d.now().Sub(start).Seconds())
	}()

	var lastErr error
	for attempt := 0; attempt <= d.maxRetries; attempt++ {
		if attempt > 0 {
			if !sleepCtx(ctx, d.backoff(attempt)) {
				break
			}
		}

		telemetry.WebhookDeliveryAttemptsTotal.Inc()
		retryable, err := d.attempt(ctx, w, ev.Name, body, attempt)
		if err == nil {
			telemetry.WebhookDeliveriesTotal.WithLabelValues("delivered").Inc()
			return nil
		}
		lastErr = err
		if !retryable {
			break
		}
		slog.Debug("webhook attempt failed, will retry",
			"webhook_id", w.ID, "attempt", attempt, "error", err)
	}

	telemetry.WebhookDeliveriesTotal.WithLabelValues("failed").Inc()
	return lastErr
}

// attempt performs one HTTP POST. The bool reports whether a failure is
// retryable: network errors, 5xx, and 429 are; other statuses are final.
func (d *Dispatcher) attempt(ctx context.Context, w *models.Webhook, event string, body []byte, retryCount int) (bool, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.URL, bytes.NewReader(body))
	if err != nil {
		return false, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("Content-Type", "application/json")
	if !w.IsDiscord() {
		req.Header.Set(HeaderEvent, event)
		req.Header.Set(HeaderRetry, strconv.Itoa(retryCount))
		if w.Secret != nil && *w.Secret != "" {
			req.Header.Set(HeaderSignature, Sign(*w.Secret, body))
		}
	}

	resp, err := d.client.Do(req)
	if err != nil {
		// Timeouts, resets, DNS failures all land here; all are worth a retry.
		return true, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()
	io.Copy(io.Discard, resp.Body)

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return false, nil
	}
	retryable := resp.StatusCode >= 500 || resp.StatusCode == http.StatusTooManyRequests
	return retryable, fmt.Errorf("endpoint returned status %d", resp.StatusCode)
}

// backoff returns the delay before the given retry attempt: the base delay
// doubling per attempt, plus up to one base delay of jitter.
func (d *Dispatcher) backoff(attempt int) time.Duration {
	delay := d.baseDelay << (attempt - 1)
	if d.baseDelay > 0 {
		delay += time.Duration(rand.Int63n(int64(d.baseDelay)))
	}
	return delay
}

// Sign computes the signature header value for a payload:
// "sha256=" followed by the hex HMAC-SHA256 of the raw body.
func Sign(secret string, body []byte) string {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(body)
	return "sha256=" + hex.EncodeToString(mac.Sum(nil))
}

// sleepCtx sleeps for dur unless ctx is done first. Reports whether the full
// sleep completed.
func sleepCtx(ctx context.Context, dur time.Duration) bool {
	timer := time.NewTimer(dur)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
