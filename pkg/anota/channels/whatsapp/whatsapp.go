// Package whatsapp implements the Transport interface against the WhatsApp
// Business Cloud API: outbound sends are POSTs to the Graph API messages
// endpoint with a bearer token.
package whatsapp

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/dcastillocr/anota/pkg/anota/channels"
)

// Client sends messages through the Cloud API.
type Client struct {
	httpClient    *http.Client
	baseURL       string
	apiVersion    string
	phoneNumberID string
	accessToken   string
	logger        *slog.Logger
}

var _ channels.Transport = (*Client)(nil)

// Config holds the Cloud API credentials and endpoint.
type Config struct {
	BaseURL       string
	APIVersion    string
	PhoneNumberID string
	AccessToken   string
	Timeout       time.Duration
}

// NewClient creates a Cloud API client.
func NewClient(cfg Config, logger *slog.Logger) *Client {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	return &Client{
		httpClient:    &http.Client{Timeout: cfg.Timeout},
		baseURL:       strings.TrimRight(cfg.BaseURL, "/"),
		apiVersion:    cfg.APIVersion,
		phoneNumberID: cfg.PhoneNumberID,
		accessToken:   cfg.AccessToken,
		logger:        logger.With("component", "whatsapp"),
	}
}

// textPayload is the Cloud API shape for a plain text message.
type textPayload struct {
	MessagingProduct string   `json:"messaging_product"`
	To               string   `json:"to"`
	Type             string   `json:"type"`
	Text             textBody `json:"text"`
}

type textBody struct {
	Body string `json:"body"`
}

// interactivePayload is the Cloud API shape for a reply-button message.
type interactivePayload struct {
	MessagingProduct string          `json:"messaging_product"`
	To               string          `json:"to"`
	Type             string          `json:"type"`
	Interactive      interactiveBody `json:"interactive"`
}

type interactiveBody struct {
	Type   string            `json:"type"`
	Body   textBody          `json:"body"`
	Action interactiveAction `json:"action"`
}

type interactiveAction struct {
	Buttons []replyButton `json:"buttons"`
}

type replyButton struct {
	Type  string      `json:"type"`
	Reply buttonReply `json:"reply"`
}

type buttonReply struct {
	ID    string `json:"id"`
	Title string `json:"title"`
}

// apiError is the error envelope the Graph API returns.
type apiError struct {
	Error struct {
		Message string `json:"message"`
		Type    string `json:"type"`
		Code    int    `json:"code"`
	} `json:"error"`
}

// SendText sends a plain text message. Oversized bodies are truncated to
// the channel limit rather than rejected.
func (c *Client) SendText(ctx context.Context, to, body string) error {
	payload := textPayload{
		MessagingProduct: "whatsapp",
		To:               NormalizeRecipient(to),
		Type:             "text",
		Text:             textBody{Body: Truncate(body, channels.MaxBodyBytes)},
	}
	return c.post(ctx, payload)
}

// SendInteractive sends a reply-button message. Any transport failure falls
// back to SendText with the buttons rendered as bulleted lines; only the
// fallback's outcome is returned.
func (c *Client) SendInteractive(ctx context.Context, to, body string, buttons []channels.Button) error {
	if err := channels.ValidateButtons(buttons); err != nil {
		return err
	}

	replies := make([]replyButton, len(buttons))
	for i, b := range buttons {
		replies[i] = replyButton{Type: "reply", Reply: buttonReply{ID: b.ID, Title: b.Title}}
	}
	payload := interactivePayload{
		MessagingProduct: "whatsapp",
		To:               NormalizeRecipient(to),
		Type:             "interactive",
		Interactive: interactiveBody{
			Type:   "button",
			Body:   textBody{Body: Truncate(body, channels.MaxBodyBytes)},
			Action: interactiveAction{Buttons: replies},
		},
	}

	if err := c.post(ctx, payload); err != nil {
		c.logger.Warn("interactive send failed, falling back to text", "to", to, "error", err)
		return c.SendText(ctx, to, renderFallback(body, buttons))
	}
	return nil
}

// post delivers one payload to the messages endpoint.
func (c *Client) post(ctx context.Context, payload any) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode message: %w", err)
	}

	url := fmt.Sprintf("%s/%s/%s/messages", c.baseURL, c.apiVersion, c.phoneNumberID)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(data))
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.accessToken)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", channels.ErrSendFailed, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("%w: %s (%s, code %d)",
				channels.ErrSendFailed, apiErr.Error.Message, apiErr.Error.Type, apiErr.Error.Code)
		}
		return fmt.Errorf("%w: status %d", channels.ErrSendFailed, resp.StatusCode)
	}
	return nil
}

// renderFallback turns an interactive message into plain text: the body
// followed by every button title as a bullet.
func renderFallback(body string, buttons []channels.Button) string {
	var b strings.Builder
	b.WriteString(body)
	for _, btn := range buttons {
		b.WriteString("\n• ")
		b.WriteString(btn.Title)
	}
	return b.String()
}

// NormalizeRecipient strips everything but digits from a channel address,
// the form the Cloud API expects.
func NormalizeRecipient(to string) string {
	var b strings.Builder
	for _, r := range to {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

// Truncate cuts s to at most max bytes without splitting a rune.
func Truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	cut := s[:max]
	for !utf8.ValidString(cut) {
		cut = cut[:len(cut)-1]
	}
	return cut
}
