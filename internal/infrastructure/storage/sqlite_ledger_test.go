package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/EBOLABOY/FeedPilot/internal/domain"
)

func openTestLedger(t *testing.T) *SQLiteLedger {
	t.Helper()

	ledger, err := Open(filepath.Join(t.TempDir(), "ledger.db"))
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	t.Cleanup(func() { _ = ledger.Close() })
	return ledger
}

func TestRecordAndIsDelivered(t *testing.T) {
	t.Parallel()

	ledger := openTestLedger(t)
	ctx := context.Background()

	rec := domain.LedgerRecord{
		DedupKey: "guid-1",
		Channel:  "pushplus",
		Title:    "an article",
		Link:     "https://example.org/1",
		Outcome:  domain.OutcomeSent,
	}
	if err := ledger.RecordDelivery(ctx, rec); err != nil {
		t.Fatalf("record: %v", err)
	}

	delivered, err := ledger.IsDelivered(ctx, "guid-1", "pushplus")
	if err != nil {
		t.Fatalf("is delivered: %v", err)
	}
	if !delivered {
		t.Fatalf("expected guid-1 to be delivered on pushplus")
	}

	// Same key on another channel is still novel.
	delivered, err = ledger.IsDelivered(ctx, "guid-1", "telegram")
	if err != nil {
		t.Fatalf("is delivered: %v", err)
	}
	if delivered {
		t.Fatalf("channel isolation broken")
	}
}

func TestRejectedCountsAsDelivered(t *testing.T) {
	t.Parallel()

	ledger := openTestLedger(t)
	ctx := context.Background()

	rec := domain.LedgerRecord{DedupKey: "guid-lowscore", Channel: "pushplus", Outcome: domain.OutcomeRejected}
	if err := ledger.RecordDelivery(ctx, rec); err != nil {
		t.Fatalf("record: %v", err)
	}

	delivered, err := ledger.IsDelivered(ctx, "guid-lowscore", "pushplus")
	if err != nil {
		t.Fatalf("is delivered: %v", err)
	}
	if !delivered {
		t.Fatalf("rejected entry must never be re-evaluated")
	}
}

func TestFilterNovelPreservesOrder(t *testing.T) {
	t.Parallel()

	ledger := openTestLedger(t)
	ctx := context.Background()

	entries := []domain.Entry{
		{GUID: "a"}, {GUID: "b"}, {GUID: "c"}, {GUID: "d"},
	}
	recs := []domain.LedgerRecord{
		{DedupKey: "b", Channel: "pushplus", Outcome: domain.OutcomeSent},
		{DedupKey: "d", Channel: "pushplus", Outcome: domain.OutcomeRejected},
	}
	if err := ledger.RecordDeliveries(ctx, recs); err != nil {
		t.Fatalf("seed records: %v", err)
	}

	novel, err := ledger.FilterNovel(ctx, entries, "pushplus")
	if err != nil {
		t.Fatalf("filter novel: %v", err)
	}
	if len(novel) != 2 || novel[0].GUID != "a" || novel[1].GUID != "c" {
		t.Fatalf("unexpected novel set: %+v", novel)
	}

	// The other channel has no history, everything is novel.
	novel, err = ledger.FilterNovel(ctx, entries, "telegram")
	if err != nil {
		t.Fatalf("filter novel: %v", err)
	}
	if len(novel) != 4 {
		t.Fatalf("expected all 4 novel for telegram, got %d", len(novel))
	}
}

func TestFilterNovelEmptyBatch(t *testing.T) {
	t.Parallel()

	ledger := openTestLedger(t)
	novel, err := ledger.FilterNovel(context.Background(), nil, "pushplus")
	if err != nil {
		t.Fatalf("filter novel: %v", err)
	}
	if len(novel) != 0 {
		t.Fatalf("expected empty result, got %d", len(novel))
	}
}

func TestRecordDeliveriesUpsertsOutcome(t *testing.T) {
	t.Parallel()

	ledger := openTestLedger(t)
	ctx := context.Background()

	first := domain.LedgerRecord{DedupKey: "a", Channel: "pushplus", Outcome: domain.OutcomeRejected}
	if err := ledger.RecordDelivery(ctx, first); err != nil {
		t.Fatalf("record: %v", err)
	}
	second := domain.LedgerRecord{DedupKey: "a", Channel: "pushplus", Outcome: domain.OutcomeSent}
	if err := ledger.RecordDelivery(ctx, second); err != nil {
		t.Fatalf("upsert: %v", err)
	}

	stats, err := ledger.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 1 || stats.Sent != 1 || stats.Rejected != 0 {
		t.Fatalf("upsert left duplicate rows: %+v", stats)
	}
}

func TestPurgeOlderThan(t *testing.T) {
	t.Parallel()

	ledger := openTestLedger(t)
	ctx := context.Background()
	now := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return now }

	recs := []domain.LedgerRecord{
		{DedupKey: "old", Channel: "pushplus", Outcome: domain.OutcomeSent, DeliveredAt: now.AddDate(0, 0, -40)},
		{DedupKey: "recent", Channel: "pushplus", Outcome: domain.OutcomeSent, DeliveredAt: now.AddDate(0, 0, -3)},
	}
	if err := ledger.RecordDeliveries(ctx, recs); err != nil {
		t.Fatalf("seed records: %v", err)
	}

	deleted, err := ledger.PurgeOlderThan(ctx, 30*24*time.Hour)
	if err != nil {
		t.Fatalf("purge: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", deleted)
	}

	delivered, err := ledger.IsDelivered(ctx, "recent", "pushplus")
	if err != nil {
		t.Fatalf("is delivered: %v", err)
	}
	if !delivered {
		t.Fatalf("purge removed a record inside the retention window")
	}
}

func TestStats(t *testing.T) {
	t.Parallel()

	ledger := openTestLedger(t)
	ctx := context.Background()
	now := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)
	ledger.now = func() time.Time { return now }

	recs := []domain.LedgerRecord{
		{DedupKey: "a", Channel: "pushplus", Outcome: domain.OutcomeSent, DeliveredAt: now.Add(-time.Hour)},
		{DedupKey: "b", Channel: "pushplus", Outcome: domain.OutcomeSent, DeliveredAt: now.AddDate(0, 0, -2)},
		{DedupKey: "c", Channel: "pushplus", Outcome: domain.OutcomeRejected, DeliveredAt: now.Add(-2 * time.Hour)},
	}
	if err := ledger.RecordDeliveries(ctx, recs); err != nil {
		t.Fatalf("seed records: %v", err)
	}

	stats, err := ledger.Stats(ctx)
	if err != nil {
		t.Fatalf("stats: %v", err)
	}
	if stats.Total != 3 || stats.Sent != 2 || stats.Rejected != 1 {
		t.Fatalf("unexpected counts: %+v", stats)
	}
	if stats.Today != 2 {
		t.Fatalf("expected 2 records today, got %d", stats.Today)
	}
	if !stats.LastDelivered.Equal(now.Add(-time.Hour)) {
		t.Fatalf("unexpected last delivered: %v", stats.LastDelivered)
	}
}
