// Package telegram posts run summaries to an ops chat. Delivery is
// optional and best effort: a run never fails because the summary did.
package telegram

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

const defaultBase = "https://api.telegram.org"

// Notifier sends messages through the Bot API.
type Notifier struct {
	token   string
	chatID  string
	base    string
	backoff time.Duration
	client  *http.Client
}

// New builds a Notifier. Empty token or chat ID leaves it disabled.
func New(token, chatID string) *Notifier {
	return &Notifier{
		token:   token,
		chatID:  chatID,
		base:    defaultBase,
		backoff: time.Second,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// Enabled reports whether credentials are configured. Safe on nil.
func (n *Notifier) Enabled() bool {
	return n != nil && n.token != "" && n.chatID != ""
}

// Send delivers one HTML-formatted message with retry logic.
func (n *Notifier) Send(ctx context.Context, text string) error {
	const maxRetries = 3

	for attempt := 1; attempt <= maxRetries; attempt++ {
		err := n.sendOnce(ctx, text)
		if err == nil {
			log.Printf("Run summary sent to Telegram (try %d)", attempt)
			return nil
		}

		log.Printf("⚠️ Error sending to Telegram (try %d/%d): %v", attempt, maxRetries, err)

		if attempt < maxRetries {
			// Exponential backoff: 2^attempt seconds
			wait := time.Duration(1<<attempt) * n.backoff
			select {
			case <-time.After(wait):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
	}

	return fmt.Errorf("can't send message after %d tries", maxRetries)
}

func (n *Notifier) sendOnce(ctx context.Context, text string) error {
	url := fmt.Sprintf("%s/bot%s/sendMessage", n.base, n.token)

	payload := map[string]any{
		"chat_id":                  n.chatID,
		"text":                     text,
		"parse_mode":               "HTML",
		"disable_web_page_preview": true,
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("error make JSON: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("error HTTP request: %w", err)
	}
	defer func() {
		if err := resp.Body.Close(); err != nil {
			log.Printf("Warning: failed to close response body: %v", err)
		}
	}()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram API error: status %d", resp.StatusCode)
	}
	return nil
}
