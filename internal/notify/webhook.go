package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/UCCS-CS4300-5300/Fall-25-CS-5300-sub001/pkg/execution"
)

const (
	webhookAttempts       = 3
	webhookInitialBackoff = 200 * time.Millisecond
	webhookMaxBackoff     = 2 * time.Second
)

// WebhookNotifier POSTs events as JSON to the schedule's notification
// target. Transient delivery failures are retried with backoff; the caller
// treats any terminal error as log-and-continue.
type WebhookNotifier struct {
	client *http.Client
}

func NewWebhookNotifier(timeout time.Duration) *WebhookNotifier {
	return &WebhookNotifier{
		client: &http.Client{Timeout: timeout},
	}
}

func (n *WebhookNotifier) Notify(ctx context.Context, target string, event Event) error {
	body, err := json.Marshal(event)
	if err != nil {
		return fmt.Errorf("encoding notification: %w", err)
	}

	_, err = execution.WithRetry(ctx, webhookAttempts, webhookInitialBackoff, webhookMaxBackoff,
		func(ctx context.Context) (struct{}, error) {
			return struct{}{}, n.post(ctx, target, body)
		})
	if err != nil {
		return fmt.Errorf("delivering notification to %s: %w", target, err)
	}
	return nil
}

func (n *WebhookNotifier) post(ctx context.Context, target string, body []byte) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, target, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	// Drain so the connection can be reused.
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("webhook returned status %d", resp.StatusCode)
	}
	return nil
}
