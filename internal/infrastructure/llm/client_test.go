package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/EBOLABOY/FeedPilot/internal/config"
	"github.com/EBOLABOY/FeedPilot/internal/domain"
)

func TestParseScore(t *testing.T) {
	t.Parallel()

	cases := []struct {
		in      string
		want    float64
		wantErr bool
	}{
		{in: "score: 7.5 | reason: solid technical depth", want: 7.5},
		{in: "Score: 6", want: 6},
		{in: "score：8.0 | reason: full-width colon", want: 8},
		{in: "I would rate this 4.5 out of 10", want: 4.5},
		{in: "score: 15", want: 10},
		{in: "no numbers here at all", wantErr: true},
	}

	for _, tc := range cases {
		got, err := parseScore(tc.in)
		if tc.wantErr {
			if err == nil {
				t.Fatalf("parseScore(%q): expected error", tc.in)
			}
			continue
		}
		if err != nil {
			t.Fatalf("parseScore(%q): %v", tc.in, err)
		}
		if got != tc.want {
			t.Fatalf("parseScore(%q) = %v, want %v", tc.in, got, tc.want)
		}
	}
}

func TestParseReport(t *testing.T) {
	t.Parallel()

	raw := `{"summary":"one line","categories":[{"name":"Core","icon":"🔥","level":5,"description":"d","articles":[{"article_id":1,"reason":"r","tags":["go"]}]}]}`

	for name, content := range map[string]string{
		"raw json":    raw,
		"fenced json": "Here you go:\n```json\n" + raw + "\n```\nDone.",
		"prose wrap":  "Result follows. " + raw + " Hope that helps!",
	} {
		report, err := parseReport(content)
		if err != nil {
			t.Fatalf("%s: %v", name, err)
		}
		if report.Summary != "one line" || len(report.Categories) != 1 {
			t.Fatalf("%s: unexpected report %+v", name, report)
		}
		cat := report.Categories[0]
		if cat.Level != 5 || len(cat.Articles) != 1 || cat.Articles[0].ArticleID != 1 {
			t.Fatalf("%s: unexpected category %+v", name, cat)
		}
	}

	if _, err := parseReport("the model refused to answer"); err == nil {
		t.Fatalf("expected error for non-JSON content")
	}
}

func chatServer(t *testing.T, reply string, gotBody *map[string]any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer test-key" {
			t.Errorf("missing bearer auth, got %q", got)
		}
		if gotBody != nil {
			if err := json.NewDecoder(r.Body).Decode(gotBody); err != nil {
				t.Errorf("decode request: %v", err)
			}
		}
		fmt.Fprintf(w, `{"choices":[{"message":{"content":%q}}]}`, reply)
	}))
}

func testClient(endpoint string) *Client {
	return NewClient(config.EnrichmentConfig{
		Endpoint: endpoint,
		Model:    "test-model",
		APIKey:   "test-key",
		Triage:   config.TriageConfig{Interests: []string{"go", "databases"}},
	})
}

func TestClientScore(t *testing.T) {
	t.Parallel()

	var body map[string]any
	srv := chatServer(t, "score: 8.5 | reason: matches reader interests", &body)
	defer srv.Close()

	c := testClient(srv.URL)
	entry := domain.Entry{Title: "Go 1.25 released", Summary: "<p>release notes</p>"}
	score, err := c.Score(context.Background(), entry)
	if err != nil {
		t.Fatalf("score: %v", err)
	}
	if score != 8.5 {
		t.Fatalf("unexpected score %v", score)
	}

	msgs, ok := body["messages"].([]any)
	if !ok || len(msgs) != 1 {
		t.Fatalf("unexpected messages payload: %v", body["messages"])
	}
	prompt, _ := msgs[0].(map[string]any)["content"].(string)
	if !strings.Contains(prompt, "Go 1.25 released") || !strings.Contains(prompt, "go, databases") {
		t.Fatalf("prompt missing title or interests:\n%s", prompt)
	}
}

func TestClientAnalyze(t *testing.T) {
	t.Parallel()

	reply := `{"summary":"digest","categories":[]}`
	var body map[string]any
	srv := chatServer(t, reply, &body)
	defer srv.Close()

	c := testClient(srv.URL)
	inputs := []domain.AnalysisInput{
		{ArticleID: 1, Title: "first", Link: "https://example.org/1", Content: "body text"},
		{ArticleID: 2, Title: "second", Link: "https://example.org/2"},
	}
	report, err := c.Analyze(context.Background(), inputs)
	if err != nil {
		t.Fatalf("analyze: %v", err)
	}
	if report.Summary != "digest" {
		t.Fatalf("unexpected report: %+v", report)
	}

	msgs, ok := body["messages"].([]any)
	if !ok || len(msgs) != 2 {
		t.Fatalf("expected system+user messages, got %v", body["messages"])
	}
	doc, _ := msgs[1].(map[string]any)["content"].(string)
	if !strings.Contains(doc, "[Article 1]") || !strings.Contains(doc, "[Article 2]") {
		t.Fatalf("analysis document missing article markers:\n%s", doc)
	}
}

func TestClientChatErrorStatus(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		http.Error(w, `{"error":"rate limited"}`, http.StatusTooManyRequests)
	}))
	defer srv.Close()

	c := testClient(srv.URL)
	if _, err := c.Score(context.Background(), domain.Entry{Title: "t"}); err == nil {
		t.Fatalf("expected error on 429 response")
	}
}

func TestClientMisconfigured(t *testing.T) {
	t.Parallel()

	c := NewClient(config.EnrichmentConfig{})
	if _, err := c.Score(context.Background(), domain.Entry{Title: "t"}); err == nil {
		t.Fatalf("expected misconfiguration error")
	}
}
