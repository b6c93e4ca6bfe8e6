package usecase

import (
	"testing"
	"time"

	"github.com/EBOLABOY/FeedPilot/internal/domain"
)

func TestNormalizeDedupAndOrder(t *testing.T) {
	t.Parallel()

	base := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)
	entries := []domain.Entry{
		{GUID: "a", Title: "older", PublishedAt: base.Add(-2 * time.Hour)},
		{GUID: "b", Title: "newest", PublishedAt: base},
		{GUID: "a", Title: "dup of a", PublishedAt: base.Add(time.Hour)},
		{Link: "https://example.org/c", Title: "undated"},
		{GUID: "  ", Link: "", Title: "no identity"},
	}

	got := Normalize(entries)
	if len(got) != 3 {
		t.Fatalf("expected 3 entries, got %d", len(got))
	}
	if got[0].Title != "newest" || got[1].Title != "older" || got[2].Title != "undated" {
		t.Fatalf("unexpected order: %q %q %q", got[0].Title, got[1].Title, got[2].Title)
	}
	// First occurrence wins for duplicate keys.
	if got[1].GUID != "a" || got[1].Title != "older" {
		t.Fatalf("duplicate resolution picked %q", got[1].Title)
	}
}

func TestFilterSameDay(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	entries := []domain.Entry{
		{GUID: "today", PublishedAt: time.Date(2026, time.March, 2, 1, 0, 0, 0, time.UTC)},
		{GUID: "yesterday", PublishedAt: time.Date(2026, time.March, 1, 10, 0, 0, 0, time.UTC)},
		{GUID: "undated"},
	}

	got := FilterSameDay(entries, now, 0)
	if len(got) != 2 {
		t.Fatalf("expected 2 entries, got %d", len(got))
	}
	if got[0].GUID != "today" || got[1].GUID != "undated" {
		t.Fatalf("unexpected survivors: %q %q", got[0].GUID, got[1].GUID)
	}
}

func TestCapBatch(t *testing.T) {
	t.Parallel()

	results := make([]domain.EnrichmentResult, 5)
	for i := range results {
		results[i].Entry.GUID = string(rune('a' + i))
	}

	head, spill := CapBatch(results, 3)
	if len(head) != 3 || len(spill) != 2 {
		t.Fatalf("unexpected split: head=%d spill=%d", len(head), len(spill))
	}
	if head[0].Entry.GUID != "a" || spill[0].Entry.GUID != "d" {
		t.Fatalf("split is not order preserving")
	}

	head, spill = CapBatch(results, 0)
	if len(head) != 5 || spill != nil {
		t.Fatalf("zero cap should pass everything through")
	}

	head, spill = CapBatch(results, 10)
	if len(head) != 5 || spill != nil {
		t.Fatalf("oversized cap should pass everything through")
	}
}
