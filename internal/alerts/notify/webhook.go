package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

type webhookPayload struct {
	MsgType string      `json:"msgtype"`
	Text    webhookText `json:"text"`
}

type webhookText struct {
	Content string `json:"content"`
}

// WebhookSink posts persistent notifications to a chat webhook. Audio and
// vibration calls are no-ops.
type WebhookSink struct {
	Base
	url    string
	client *http.Client
}

// WebhookOption configures the webhook sink.
type WebhookOption func(*WebhookSink)

// WithHTTPClient overrides the HTTP client.
func WithHTTPClient(client *http.Client) WebhookOption {
	return func(w *WebhookSink) {
		if client != nil {
			w.client = client
		}
	}
}

// NewWebhookSink constructs a webhook sink.
func NewWebhookSink(url string, opts ...WebhookOption) (*WebhookSink, error) {
	if url == "" {
		return nil, errors.New("webhook sink: empty url")
	}
	sink := &WebhookSink{
		url:    url,
		client: &http.Client{Timeout: 10 * time.Second},
	}
	for _, opt := range opts {
		opt(sink)
	}
	return sink, nil
}

// SendPersistentNotification posts the content using a DingTalk/WeCom-compatible payload.
func (w *WebhookSink) SendPersistentNotification(ctx context.Context, title, body string) error {
	if w == nil || w.url == "" {
		return errors.New("webhook sink: empty url")
	}
	payload := webhookPayload{
		MsgType: "text",
		Text:    webhookText{Content: title + "\n" + body},
	}
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, w.url, bytes.NewReader(data))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := w.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= 300 {
		return fmt.Errorf("webhook sink: non-2xx response %d", resp.StatusCode)
	}
	return nil
}
