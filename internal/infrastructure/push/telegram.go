package push

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/EBOLABOY/FeedPilot/internal/config"
	"github.com/EBOLABOY/FeedPilot/internal/domain"
	"github.com/EBOLABOY/FeedPilot/internal/ports"
)

// Telegram delivers digests to a chat via the bot API.
type Telegram struct {
	apiBase  string
	botToken string
	chatID   string
	client   *http.Client
}

var _ ports.Channel = (*Telegram)(nil)

// NewTelegram registers the bot token and chat identifier.
func NewTelegram(cfg config.TelegramConfig) *Telegram {
	return &Telegram{
		apiBase:  "https://api.telegram.org",
		botToken: cfg.BotToken,
		chatID:   cfg.ChatID,
		client:   &http.Client{Timeout: 10 * time.Second},
	}
}

// Name identifies the channel inside the ledger.
func (t *Telegram) Name() string {
	return "telegram"
}

// Validate checks that delivery credentials are present.
func (t *Telegram) Validate() error {
	if t.botToken == "" {
		return fmt.Errorf("telegram bot token is not configured")
	}
	if t.chatID == "" {
		return fmt.Errorf("telegram chat id is not configured")
	}
	return nil
}

// Deliver posts one rendered batch as a single message. Telegram has no
// HTML-digest template, so non-markdown styles degrade to plain text.
func (t *Telegram) Deliver(ctx context.Context, msg domain.Message) error {
	if err := t.Validate(); err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/bot%s/sendMessage", t.apiBase, t.botToken)
	form := url.Values{}
	form.Set("chat_id", t.chatID)
	form.Set("text", msg.Title+"\n\n"+msg.Body)
	if msg.Style == "markdown" {
		form.Set("parse_mode", "Markdown")
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned %s", resp.Status)
	}
	return nil
}

// TestConnection calls getMe to verify the bot token.
func (t *Telegram) TestConnection(ctx context.Context) error {
	if err := t.Validate(); err != nil {
		return err
	}

	endpoint := fmt.Sprintf("%s/bot%s/getMe", t.apiBase, t.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}

	resp, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("telegram connectivity check: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("telegram returned %s", resp.Status)
	}
	return nil
}
