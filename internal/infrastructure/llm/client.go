package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/EBOLABOY/FeedPilot/internal/config"
	"github.com/EBOLABOY/FeedPilot/internal/domain"
	"github.com/EBOLABOY/FeedPilot/internal/ports"
)

const defaultTriagePrompt = `You score feed articles for relevance on a 0-10 scale.

Scoring guide:
- 9-10: highly relevant, strongly recommended
- 7-8: relevant, worth reading
- 5-6: somewhat relevant
- 3-4: low relevance
- 0-2: irrelevant or worthless

Reply with exactly: score: X.X | reason: one short sentence`

const defaultAnalysisPrompt = `You are a content analyst. Classify the articles below by importance and
respond with JSON only, following this shape:
{
  "summary": "one-line digest summary",
  "categories": [
    {
      "name": "category name",
      "icon": "an emoji",
      "level": 5,
      "description": "what this tier means",
      "articles": [
        {"article_id": 1, "reason": "why it matters", "tags": ["tag"]}
      ]
    }
  ]
}
level is 1-5 (5 = must read). article_id refers to the numbering in the
input. Every article must appear in exactly one category.`

// Client talks to an OpenAI-compatible chat-completions API for both the
// cheap triage scoring and the deep-analysis calls.
type Client struct {
	endpoint       string
	model          string
	apiKey         string
	temperature    float64
	triagePrompt   string
	analysisPrompt string
	interests      []string
	httpClient     *http.Client
}

var _ ports.Scorer = (*Client)(nil)
var _ ports.Analyzer = (*Client)(nil)

// NewClient builds a client from enrichment configuration.
func NewClient(cfg config.EnrichmentConfig) *Client {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 60 * time.Second
	}
	return &Client{
		endpoint:       cfg.Endpoint,
		model:          cfg.Model,
		apiKey:         cfg.APIKey,
		temperature:    cfg.Temperature,
		triagePrompt:   cfg.Triage.Prompt,
		analysisPrompt: cfg.Analysis.Prompt,
		interests:      cfg.Triage.Interests,
		httpClient:     &http.Client{Timeout: timeout},
	}
}

type message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// Score runs the stage-1 triage call with only title and excerpt.
func (c *Client) Score(ctx context.Context, entry domain.Entry) (float64, error) {
	prompt := c.buildScoringPrompt(entry)

	content, err := c.chat(ctx, []message{{Role: "user", Content: prompt}}, 150)
	if err != nil {
		return 0, err
	}

	score, err := parseScore(content)
	if err != nil {
		return 0, fmt.Errorf("parse triage response: %w", err)
	}
	return score, nil
}

// Analyze runs the stage-2 deep-analysis call for a batch of articles.
func (c *Client) Analyze(ctx context.Context, inputs []domain.AnalysisInput) (*domain.AnalysisReport, error) {
	if len(inputs) == 0 {
		return &domain.AnalysisReport{}, nil
	}

	system := c.analysisPrompt
	if strings.TrimSpace(system) == "" {
		system = defaultAnalysisPrompt
	}

	content, err := c.chat(ctx, []message{
		{Role: "system", Content: system},
		{Role: "user", Content: buildAnalysisDocument(inputs)},
	}, 8000)
	if err != nil {
		return nil, err
	}

	report, err := parseReport(content)
	if err != nil {
		return nil, fmt.Errorf("parse analysis response: %w", err)
	}
	return report, nil
}

func (c *Client) buildScoringPrompt(entry domain.Entry) string {
	system := c.triagePrompt
	if strings.TrimSpace(system) == "" {
		system = defaultTriagePrompt
	}

	var b strings.Builder
	b.WriteString(system)
	b.WriteString("\n\n")
	if len(c.interests) > 0 {
		b.WriteString("Reader interests: ")
		b.WriteString(strings.Join(c.interests, ", "))
		b.WriteString("\n")
	}
	b.WriteString("Article title: ")
	b.WriteString(entry.Title)
	b.WriteString("\nArticle summary: ")
	b.WriteString(entry.Excerpt(200))
	b.WriteString("\n")
	return b.String()
}

func buildAnalysisDocument(inputs []domain.AnalysisInput) string {
	var b strings.Builder
	b.WriteString("Articles to analyze:\n")
	for _, in := range inputs {
		fmt.Fprintf(&b, "\n[Article %d]\n", in.ArticleID)
		fmt.Fprintf(&b, "Title: %s\n", in.Title)
		fmt.Fprintf(&b, "Link: %s\n", in.Link)
		if in.Content != "" {
			fmt.Fprintf(&b, "Content: %s\n", in.Content)
		}
	}
	return b.String()
}

func (c *Client) chat(ctx context.Context, messages []message, maxTokens int) (string, error) {
	if c.apiKey == "" || c.endpoint == "" || c.model == "" {
		return "", fmt.Errorf("llm client misconfigured")
	}

	body, err := json.Marshal(map[string]any{
		"model":       c.model,
		"messages":    messages,
		"temperature": c.temperature,
		"max_tokens":  maxTokens,
	})
	if err != nil {
		return "", fmt.Errorf("marshal chat payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return "", fmt.Errorf("new request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("chat call: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		payload, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return "", fmt.Errorf("llm error %s: %s", resp.Status, strings.TrimSpace(string(payload)))
	}

	var decoded struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return "", fmt.Errorf("decode chat response: %w", err)
	}
	if len(decoded.Choices) == 0 {
		return "", fmt.Errorf("chat response contained no choices")
	}

	content := strings.TrimSpace(decoded.Choices[0].Message.Content)
	if content == "" {
		return "", fmt.Errorf("chat response content is empty")
	}
	return content, nil
}

var (
	scoreExpr    = regexp.MustCompile(`(?i)score[:：]?\s*(\d+(?:\.\d+)?)`)
	anyNumber    = regexp.MustCompile(`\d+(?:\.\d+)?`)
	fencedJSON   = regexp.MustCompile("(?s)```json\\s*(.*?)\\s*```")
	braceSection = regexp.MustCompile(`(?s)\{.*\}`)
)

// parseScore extracts a 0-10 score from a triage reply, tolerating loose
// formatting as long as a number is present.
func parseScore(content string) (float64, error) {
	match := scoreExpr.FindStringSubmatch(content)
	if match == nil {
		match = anyNumber.FindStringSubmatch(content)
	}
	if match == nil {
		return 0, fmt.Errorf("no score in %q", truncate(content, 80))
	}

	score, err := strconv.ParseFloat(match[len(match)-1], 64)
	if err != nil {
		return 0, fmt.Errorf("parse score %q: %w", match[len(match)-1], err)
	}

	if score < 0 {
		score = 0
	}
	if score > 10 {
		score = 10
	}
	return score, nil
}

// parseReport decodes the analysis JSON, tolerating code fences and
// surrounding prose around the JSON object.
func parseReport(content string) (*domain.AnalysisReport, error) {
	candidates := []string{content}
	if m := fencedJSON.FindStringSubmatch(content); m != nil {
		candidates = append(candidates, m[1])
	}
	if m := braceSection.FindString(content); m != "" {
		candidates = append(candidates, m)
	}

	var lastErr error
	for _, candidate := range candidates {
		var report domain.AnalysisReport
		if err := json.Unmarshal([]byte(candidate), &report); err != nil {
			lastErr = err
			continue
		}
		return &report, nil
	}
	return nil, fmt.Errorf("no valid JSON in %q: %w", truncate(content, 120), lastErr)
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
