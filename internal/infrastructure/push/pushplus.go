package push

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/EBOLABOY/FeedPilot/internal/config"
	"github.com/EBOLABOY/FeedPilot/internal/domain"
	"github.com/EBOLABOY/FeedPilot/internal/ports"
)

// PushPlus delivers digests to a PushPlus group topic.
type PushPlus struct {
	endpoint string
	token    string
	topic    string
	client   *http.Client
}

var _ ports.Channel = (*PushPlus)(nil)

// NewPushPlus registers the token and group topic from configuration.
func NewPushPlus(cfg config.PushPlusConfig) *PushPlus {
	endpoint := cfg.Endpoint
	if endpoint == "" {
		endpoint = "https://www.pushplus.plus/send"
	}
	return &PushPlus{
		endpoint: endpoint,
		token:    cfg.Token,
		topic:    cfg.Topic,
		client:   &http.Client{Timeout: 30 * time.Second},
	}
}

// Name identifies the channel inside the ledger.
func (p *PushPlus) Name() string {
	return "pushplus"
}

// Validate checks that delivery credentials are present.
func (p *PushPlus) Validate() error {
	if p.token == "" {
		return fmt.Errorf("pushplus token is not configured")
	}
	if p.topic == "" {
		return fmt.Errorf("pushplus topic is not configured")
	}
	return nil
}

// Deliver posts one rendered batch. Success requires both HTTP 200 and a
// 200 code in the response body.
func (p *PushPlus) Deliver(ctx context.Context, msg domain.Message) error {
	if err := p.Validate(); err != nil {
		return err
	}

	body, err := json.Marshal(map[string]string{
		"token":    p.token,
		"title":    msg.Title,
		"content":  msg.Body,
		"topic":    p.topic,
		"template": msg.Style,
	})
	if err != nil {
		return fmt.Errorf("marshal pushplus payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("send pushplus message: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("pushplus returned %s", resp.Status)
	}

	var result struct {
		Code int    `json:"code"`
		Msg  string `json:"msg"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return fmt.Errorf("decode pushplus response: %w", err)
	}
	if result.Code != 200 {
		return fmt.Errorf("pushplus rejected message: %s (code %d)", result.Msg, result.Code)
	}

	return nil
}

// TestConnection verifies credentials without sending a visible digest.
func (p *PushPlus) TestConnection(ctx context.Context) error {
	if err := p.Validate(); err != nil {
		return err
	}
	return p.Deliver(ctx, domain.Message{
		Title: "FeedPilot connectivity check",
		Body:  "Channel configuration verified.",
		Style: "txt",
	})
}
