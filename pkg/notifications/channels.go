package notifications

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// Message is a rendered notification addressed to one recipient
type Message struct {
	To      string
	Subject string
	Body    string
}

// Channel delivers messages to one external medium
type Channel interface {
	Name() string
	Send(ctx context.Context, msg *Message) error
}

// permanentError marks failures that retrying cannot fix
type permanentError struct {
	err error
}

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// IsPermanent reports whether err must not be retried
func IsPermanent(err error) bool {
	var perm *permanentError
	return errors.As(err, &perm)
}

func defaultHTTPClient() *http.Client {
	return &http.Client{Timeout: 10 * time.Second}
}

// postJSON sends body to url. 4xx responses other than 429 are permanent failures.
func postJSON(ctx context.Context, client *http.Client, url, token string, body interface{}) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return &permanentError{fmt.Errorf("failed to marshal payload: %w", err)}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return &permanentError{fmt.Errorf("failed to create request: %w", err)}
	}
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return nil
	}

	snippet, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	statusErr := fmt.Errorf("provider returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(snippet)))
	if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
		return &permanentError{statusErr}
	}
	return statusErr
}

// EmailChannel sends email through the Resend API
type EmailChannel struct {
	baseURL string
	apiKey  string
	from    string
	client  *http.Client
}

// NewEmailChannel creates a Resend email channel
func NewEmailChannel(baseURL, apiKey, from string, client *http.Client) *EmailChannel {
	if client == nil {
		client = defaultHTTPClient()
	}
	if baseURL == "" {
		baseURL = "https://api.resend.com"
	}
	return &EmailChannel{baseURL: strings.TrimRight(baseURL, "/"), apiKey: apiKey, from: from, client: client}
}

// Name implements Channel
func (c *EmailChannel) Name() string { return "email" }

type resendEmail struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	Text    string   `json:"text"`
}

// Send implements Channel
func (c *EmailChannel) Send(ctx context.Context, msg *Message) error {
	return postJSON(ctx, c.client, c.baseURL+"/emails", c.apiKey, resendEmail{
		From:    c.from,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Text:    msg.Body,
	})
}

// WhatsAppChannel posts messages to an HTTP WhatsApp gateway
type WhatsAppChannel struct {
	url    string
	token  string
	client *http.Client
}

// NewWhatsAppChannel creates a WhatsApp gateway channel
func NewWhatsAppChannel(url, token string, client *http.Client) *WhatsAppChannel {
	if client == nil {
		client = defaultHTTPClient()
	}
	return &WhatsAppChannel{url: url, token: token, client: client}
}

// Name implements Channel
func (c *WhatsAppChannel) Name() string { return "whatsapp" }

type whatsAppMessage struct {
	To      string `json:"to"`
	Message string `json:"message"`
}

// Send implements Channel
func (c *WhatsAppChannel) Send(ctx context.Context, msg *Message) error {
	text := msg.Body
	if msg.Subject != "" {
		text = "*" + msg.Subject + "*\n" + msg.Body
	}
	return postJSON(ctx, c.client, c.url, c.token, whatsAppMessage{To: normalizePhone(msg.To), Message: text})
}

// normalizePhone keeps digits and a leading plus sign
func normalizePhone(phone string) string {
	var b strings.Builder
	for i, r := range strings.TrimSpace(phone) {
		if r >= '0' && r <= '9' || (r == '+' && i == 0) {
			b.WriteRune(r)
		}
	}
	return b.String()
}
