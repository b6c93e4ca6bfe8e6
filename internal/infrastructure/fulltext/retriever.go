package fulltext

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	readability "github.com/go-shiori/go-readability"

	"github.com/EBOLABOY/FeedPilot/internal/ports"
)

// Retriever downloads an article page and extracts its readable body text.
type Retriever struct {
	client    *http.Client
	userAgent string
	maxChars  int
}

var _ ports.FullTextRetriever = (*Retriever)(nil)

// NewRetriever wires an HTTP client; maxChars caps the extracted text,
// 0 meaning unlimited.
func NewRetriever(client *http.Client, userAgent string, maxChars int) *Retriever {
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	return &Retriever{client: client, userAgent: userAgent, maxChars: maxChars}
}

// Retrieve fetches the page behind link and returns its main text content.
func (r *Retriever) Retrieve(ctx context.Context, link string) (string, error) {
	pageURL, err := url.Parse(link)
	if err != nil {
		return "", fmt.Errorf("invalid article url %s: %w", link, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, link, nil)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	if r.userAgent != "" {
		req.Header.Set("User-Agent", r.userAgent)
	}

	resp, err := r.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("request article: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("article fetch returned %s", resp.Status)
	}

	article, err := readability.FromReader(resp.Body, pageURL)
	if err != nil {
		return "", fmt.Errorf("extract article body: %w", err)
	}

	text := strings.TrimSpace(article.TextContent)
	if text == "" {
		return "", fmt.Errorf("article %s produced no readable text", link)
	}
	if r.maxChars > 0 {
		runes := []rune(text)
		if len(runes) > r.maxChars {
			text = string(runes[:r.maxChars])
		}
	}
	return text, nil
}
