package usecase

import (
	"sort"
	"time"

	"github.com/EBOLABOY/FeedPilot/internal/domain"
)

// Normalize removes duplicate entries by dedup key (first occurrence wins)
// and orders the batch by publication time descending. Ties and undated
// entries keep their original feed order, undated ones after dated ones.
// Pure transform; empty input yields empty output.
func Normalize(entries []domain.Entry) []domain.Entry {
	seen := make(map[string]struct{}, len(entries))
	unique := make([]domain.Entry, 0, len(entries))
	for _, e := range entries {
		key := e.DedupKey()
		if key == "" {
			continue
		}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, e)
	}

	sort.SliceStable(unique, func(i, j int) bool {
		a, b := unique[i].PublishedAt, unique[j].PublishedAt
		switch {
		case a.IsZero():
			return false
		case b.IsZero():
			return true
		default:
			return a.After(b)
		}
	})

	return unique
}

// FilterSameDay keeps only entries published on the same calendar day as
// now, viewed in the configured fixed UTC offset. Undated entries pass.
func FilterSameDay(entries []domain.Entry, now time.Time, offsetHours int) []domain.Entry {
	kept := make([]domain.Entry, 0, len(entries))
	for _, e := range entries {
		if e.PublishedSameDay(now, offsetHours) {
			kept = append(kept, e)
		}
	}
	return kept
}

// CapBatch splits a batch at the per-delivery cap. The head is delivered
// this run; the spill stays unmarked in the ledger and reappears as novel
// on the next scheduled run. maxItems <= 0 means no cap.
func CapBatch(results []domain.EnrichmentResult, maxItems int) (head, spill []domain.EnrichmentResult) {
	if maxItems <= 0 || len(results) <= maxItems {
		return results, nil
	}
	return results[:maxItems], results[maxItems:]
}
