package feed

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/mmcdole/gofeed"

	"github.com/EBOLABOY/FeedPilot/internal/config"
	"github.com/EBOLABOY/FeedPilot/internal/domain"
	"github.com/EBOLABOY/FeedPilot/internal/ports"
)

// Fetcher retrieves and parses the configured syndication feed.
type Fetcher struct {
	url    string
	parser *gofeed.Parser
	logger *slog.Logger
}

var _ ports.FeedSource = (*Fetcher)(nil)

// NewFetcher wires a gofeed parser from feed configuration.
func NewFetcher(cfg config.FeedConfig, logger *slog.Logger) *Fetcher {
	parser := gofeed.NewParser()
	parser.UserAgent = cfg.UserAgent

	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	parser.Client = &http.Client{Timeout: timeout}

	return &Fetcher{
		url:    cfg.URL,
		parser: parser,
		logger: logger,
	}
}

// Fetch downloads the feed and converts its items into entries in feed
// order. Any transport or parse failure is returned as-is; the caller
// treats it as fatal for the run.
func (f *Fetcher) Fetch(ctx context.Context) ([]domain.Entry, error) {
	parsed, err := f.parser.ParseURLWithContext(f.url, ctx)
	if err != nil {
		return nil, fmt.Errorf("fetch feed %s: %w", f.url, err)
	}

	entries := make([]domain.Entry, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, toEntry(item, parsed.Title))
	}

	if f.logger != nil {
		f.logger.Debug("feed fetched", "url", f.url, "entries", len(entries))
	}
	return entries, nil
}

func toEntry(item *gofeed.Item, source string) domain.Entry {
	summary := item.Description
	if summary == "" {
		summary = item.Content
	}

	var publishedAt time.Time
	switch {
	case item.PublishedParsed != nil:
		publishedAt = item.PublishedParsed.UTC()
	case item.UpdatedParsed != nil:
		publishedAt = item.UpdatedParsed.UTC()
	}

	return domain.Entry{
		GUID:        item.GUID,
		Title:       item.Title,
		Link:        item.Link,
		Summary:     summary,
		Source:      source,
		PublishedAt: publishedAt,
	}
}
