package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"campaign-fulfillment/internal/core/port"
)

// Message is the JSON body posted to the webhook.
type Message struct {
	Subject string          `json:"subject"`
	State   json.RawMessage `json:"state"`
	SentAt  time.Time       `json:"sentAt"`
}

// WebhookNotifier posts notifications as JSON to a fixed URL.
type WebhookNotifier struct {
	url    string
	client *http.Client
}

var _ port.Notifier = (*WebhookNotifier)(nil)

// NewWebhookNotifier returns a notifier posting to url. A nil client gets
// a default one bounded by timeout.
func NewWebhookNotifier(url string, client *http.Client, timeout time.Duration) *WebhookNotifier {
	if client == nil {
		client = &http.Client{Timeout: timeout}
	}
	return &WebhookNotifier{url: url, client: client}
}

func (n *WebhookNotifier) Notify(ctx context.Context, subject string, body []byte) error {
	if len(body) == 0 {
		body = []byte("null")
	}
	data, err := json.Marshal(Message{Subject: subject, State: body, SentAt: time.Now().UTC()})
	if err != nil {
		return fmt.Errorf("marshal notification: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, n.url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("create notification request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("post notification to %s: %w", n.url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return fmt.Errorf("notification webhook returned %d: %s", resp.StatusCode, msg)
	}
	return nil
}
