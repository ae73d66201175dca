package telegram

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
)

const (
	// DefaultBaseURL is the Bot API root; the token is appended after "bot"
	DefaultBaseURL = "https://api.telegram.org"
	timeout        = 10 * time.Second
)

// Client represents a Telegram Bot API client
type Client struct {
	botToken string
	chatID   string
	http     *resty.Client
}

// Option configures a Client
type Option func(*Client)

// WithBaseURL points the client at another Bot API server
func WithBaseURL(url string) Option {
	return func(c *Client) { c.http.SetBaseURL(url) }
}

// NewClient creates a new Telegram client
func NewClient(botToken, chatID string, opts ...Option) (*Client, error) {
	if botToken == "" {
		return nil, errors.New("bot token is required")
	}
	if chatID == "" {
		return nil, errors.New("chat ID is required")
	}

	c := &Client{
		botToken: botToken,
		chatID:   chatID,
		http: resty.New().
			SetBaseURL(DefaultBaseURL).
			SetTimeout(timeout).
			SetHeader("Content-Type", "application/json"),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// apiResponse is the envelope of every Bot API reply
type apiResponse struct {
	OK          bool   `json:"ok"`
	Description string `json:"description"`
}

type sendMessageRequest struct {
	ChatID                string `json:"chat_id"`
	Text                  string `json:"text"`
	ParseMode             string `json:"parse_mode"`
	DisableWebPagePreview bool   `json:"disable_web_page_preview"`
}

// SendMessage sends an HTML message to the configured chat
func (c *Client) SendMessage(ctx context.Context, text string) error {
	if text == "" {
		return errors.New("message text is required")
	}

	var result apiResponse
	resp, err := c.http.R().
		SetContext(ctx).
		SetPathParam("token", c.botToken).
		SetBody(sendMessageRequest{
			ChatID:                c.chatID,
			Text:                  text,
			ParseMode:             "HTML",
			DisableWebPagePreview: true,
		}).
		SetResult(&result).
		SetError(&result).
		Post("/bot{token}/sendMessage")
	if err != nil {
		return fmt.Errorf("sending request: %w", err)
	}

	if resp.StatusCode() != 200 {
		if result.Description != "" {
			return fmt.Errorf("telegram API error (status %d): %s", resp.StatusCode(), result.Description)
		}
		return fmt.Errorf("telegram API error (status %d): %s", resp.StatusCode(), resp.String())
	}
	if !result.OK {
		return fmt.Errorf("telegram API error: %s", result.Description)
	}
	return nil
}
