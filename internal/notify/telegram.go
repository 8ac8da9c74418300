package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"vpn-monitor/internal/metrics"
)

// DefaultBaseURL is the Telegram Bot API endpoint.
const DefaultBaseURL = "https://api.telegram.org"

// Notifier delivers a rendered message. Failures are logged and reported as
// false; callers never retry immediately.
type Notifier interface {
	Send(ctx context.Context, text string) bool
}

// sendMessageRequest is the JSON body of a sendMessage call.
type sendMessageRequest struct {
	ChatID    string `json:"chat_id"`
	Text      string `json:"text"`
	ParseMode string `json:"parse_mode"`
}

// Telegram posts messages to a chat through the Bot API.
type Telegram struct {
	BaseURL string
	Token   string
	ChatID  string
	Client  *http.Client
}

// NewTelegram creates a Telegram notifier with a 10 second request timeout.
func NewTelegram(baseURL, token, chatID string) *Telegram {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	return &Telegram{
		BaseURL: strings.TrimRight(baseURL, "/"),
		Token:   token,
		ChatID:  chatID,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (t *Telegram) Send(ctx context.Context, text string) bool {
	if err := t.send(ctx, text); err != nil {
		log.Printf("telegram: send failed: %v", err)
		metrics.Notifications.WithLabelValues("failure").Inc()
		return false
	}
	log.Printf("telegram: message sent to chat %s", t.ChatID)
	metrics.Notifications.WithLabelValues("success").Inc()
	return true
}

func (t *Telegram) send(ctx context.Context, text string) error {
	if t.Token == "" || t.ChatID == "" {
		return fmt.Errorf("bot token or chat id not configured")
	}

	body, err := json.Marshal(sendMessageRequest{
		ChatID:    t.ChatID,
		Text:      text,
		ParseMode: "HTML",
	})
	if err != nil {
		return err
	}

	url := t.BaseURL + "/bot" + t.Token + "/sendMessage"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return t.redact(err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := t.Client.Do(req)
	if err != nil {
		return t.redact(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("unexpected status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}
	return nil
}

// redact strips the bot token from errors that embed the request URL.
func (t *Telegram) redact(err error) error {
	if t.Token == "" {
		return err
	}
	return fmt.Errorf("%s", strings.ReplaceAll(err.Error(), t.Token, "<token>"))
}
