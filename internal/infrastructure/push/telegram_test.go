package push

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/EBOLABOY/FeedPilot/internal/config"
	"github.com/EBOLABOY/FeedPilot/internal/domain"
)

func TestTelegramDeliver(t *testing.T) {
	t.Parallel()

	var gotPath string
	var gotForm map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = r.PostForm
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram(config.TelegramConfig{BotToken: "abc123", ChatID: "42"})
	tg.apiBase = srv.URL

	msg := domain.Message{Title: "digest", Body: "**bold**", Style: "markdown"}
	if err := tg.Deliver(context.Background(), msg); err != nil {
		t.Fatalf("deliver: %v", err)
	}

	if gotPath != "/botabc123/sendMessage" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
	if got := gotForm["chat_id"]; len(got) != 1 || got[0] != "42" {
		t.Fatalf("chat id not forwarded: %v", gotForm)
	}
	if got := gotForm["parse_mode"]; len(got) != 1 || got[0] != "Markdown" {
		t.Fatalf("markdown style should set parse_mode: %v", gotForm)
	}
	if got := gotForm["text"]; len(got) != 1 || !strings.Contains(got[0], "digest") {
		t.Fatalf("message text missing title: %v", gotForm)
	}
}

func TestTelegramDeliverPlainTextOmitsParseMode(t *testing.T) {
	t.Parallel()

	var gotForm map[string][]string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil {
			t.Errorf("parse form: %v", err)
		}
		gotForm = r.PostForm
		w.Write([]byte(`{"ok":true}`))
	}))
	defer srv.Close()

	tg := NewTelegram(config.TelegramConfig{BotToken: "abc123", ChatID: "42"})
	tg.apiBase = srv.URL

	if err := tg.Deliver(context.Background(), domain.Message{Title: "t", Style: "txt"}); err != nil {
		t.Fatalf("deliver: %v", err)
	}
	if _, ok := gotForm["parse_mode"]; ok {
		t.Fatalf("plain text must not set parse_mode: %v", gotForm)
	}
}

func TestTelegramTestConnection(t *testing.T) {
	t.Parallel()

	var gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"ok":true,"result":{"username":"feedbot"}}`))
	}))
	defer srv.Close()

	tg := NewTelegram(config.TelegramConfig{BotToken: "abc123", ChatID: "42"})
	tg.apiBase = srv.URL

	if err := tg.TestConnection(context.Background()); err != nil {
		t.Fatalf("test connection: %v", err)
	}
	if gotPath != "/botabc123/getMe" {
		t.Fatalf("unexpected path: %s", gotPath)
	}
}

func TestTelegramValidate(t *testing.T) {
	t.Parallel()

	if err := NewTelegram(config.TelegramConfig{ChatID: "42"}).Validate(); err == nil {
		t.Fatalf("missing bot token should fail validation")
	}
	if err := NewTelegram(config.TelegramConfig{BotToken: "abc"}).Validate(); err == nil {
		t.Fatalf("missing chat id should fail validation")
	}
}
