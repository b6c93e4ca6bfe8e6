package storage

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	sq "github.com/Masterminds/squirrel"
	_ "modernc.org/sqlite" // SQLite driver

	"github.com/EBOLABOY/FeedPilot/internal/domain"
	"github.com/EBOLABOY/FeedPilot/internal/ports"
)

const schema = `
CREATE TABLE IF NOT EXISTS delivered_entries (
    id           INTEGER PRIMARY KEY AUTOINCREMENT,
    dedup_key    TEXT NOT NULL,
    channel      TEXT NOT NULL,
    title        TEXT NOT NULL DEFAULT '',
    link         TEXT NOT NULL DEFAULT '',
    outcome      TEXT NOT NULL,
    delivered_at INTEGER NOT NULL,
    UNIQUE (dedup_key, channel)
);
CREATE INDEX IF NOT EXISTS idx_delivered_at ON delivered_entries (delivered_at);
`

// SQLiteLedger persists delivery records in a local SQLite file. It is the
// single source of truth for "already sent"; single-writer, no cross-process
// coordination.
type SQLiteLedger struct {
	db  *sql.DB
	sb  sq.StatementBuilderType
	now func() time.Time
}

var _ ports.DeliveryLedger = (*SQLiteLedger)(nil)

// Open creates the ledger database (and its parent directory) if needed.
func Open(path string) (*SQLiteLedger, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create ledger directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path+"?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)")
	if err != nil {
		return nil, fmt.Errorf("open ledger database: %w", err)
	}

	if _, err := db.Exec(schema); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init ledger schema: %w", err)
	}

	return &SQLiteLedger{
		db:  db,
		sb:  sq.StatementBuilder.PlaceholderFormat(sq.Question),
		now: time.Now,
	}, nil
}

// Close releases the underlying database handle.
func (l *SQLiteLedger) Close() error {
	return l.db.Close()
}

// IsDelivered reports whether a successful record exists for the key/channel
// pair. Rejected entries count as delivered for dedup purposes.
func (l *SQLiteLedger) IsDelivered(ctx context.Context, dedupKey, channel string) (bool, error) {
	query, args, err := l.sb.
		Select("COUNT(*)").
		From("delivered_entries").
		Where(sq.Eq{"dedup_key": dedupKey, "channel": channel}).
		ToSql()
	if err != nil {
		return false, fmt.Errorf("build delivered query: %w", err)
	}

	var count int
	if err := l.db.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		return false, fmt.Errorf("query delivered: %w", err)
	}
	return count > 0, nil
}

// FilterNovel strips entries already recorded for the channel, preserving
// relative order. Entries sharing a dedup key with a prior batch element are
// assumed pre-collapsed by the normalizer.
func (l *SQLiteLedger) FilterNovel(ctx context.Context, entries []domain.Entry, channel string) ([]domain.Entry, error) {
	if len(entries) == 0 {
		return nil, nil
	}

	keys := make([]string, len(entries))
	for i, e := range entries {
		keys[i] = e.DedupKey()
	}

	query, args, err := l.sb.
		Select("dedup_key").
		From("delivered_entries").
		Where(sq.Eq{"channel": channel, "dedup_key": keys}).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build novelty query: %w", err)
	}

	rows, err := l.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query novelty: %w", err)
	}
	defer rows.Close()

	seen := make(map[string]bool)
	for rows.Next() {
		var key string
		if err := rows.Scan(&key); err != nil {
			return nil, fmt.Errorf("scan dedup key: %w", err)
		}
		seen[key] = true
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("rows iteration: %w", err)
	}

	novel := make([]domain.Entry, 0, len(entries))
	for _, e := range entries {
		if !seen[e.DedupKey()] {
			novel = append(novel, e)
		}
	}
	return novel, nil
}

// RecordDelivery commits one delivery record.
func (l *SQLiteLedger) RecordDelivery(ctx context.Context, rec domain.LedgerRecord) error {
	return l.RecordDeliveries(ctx, []domain.LedgerRecord{rec})
}

// RecordDeliveries commits all records in a single transaction so a crash
// mid-batch cannot leave a half-marked sub-batch.
func (l *SQLiteLedger) RecordDeliveries(ctx context.Context, recs []domain.LedgerRecord) error {
	if len(recs) == 0 {
		return nil
	}

	tx, err := l.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin ledger tx: %w", err)
	}
	defer tx.Rollback()

	for _, rec := range recs {
		deliveredAt := rec.DeliveredAt
		if deliveredAt.IsZero() {
			deliveredAt = l.now()
		}

		query, args, err := l.sb.
			Insert("delivered_entries").
			Columns("dedup_key", "channel", "title", "link", "outcome", "delivered_at").
			Values(rec.DedupKey, rec.Channel, rec.Title, rec.Link, string(rec.Outcome), deliveredAt.Unix()).
			Suffix("ON CONFLICT (dedup_key, channel) DO UPDATE SET outcome = excluded.outcome, delivered_at = excluded.delivered_at").
			ToSql()
		if err != nil {
			return fmt.Errorf("build ledger insert: %w", err)
		}

		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("record delivery %s: %w", rec.DedupKey, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit ledger tx: %w", err)
	}
	return nil
}

// PurgeOlderThan deletes records older than the retention age and returns
// how many were removed.
func (l *SQLiteLedger) PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error) {
	cutoff := l.now().Add(-age).Unix()

	query, args, err := l.sb.
		Delete("delivered_entries").
		Where(sq.Lt{"delivered_at": cutoff}).
		ToSql()
	if err != nil {
		return 0, fmt.Errorf("build purge query: %w", err)
	}

	res, err := l.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("purge old records: %w", err)
	}

	deleted, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge rows affected: %w", err)
	}
	return deleted, nil
}

// Stats summarizes the ledger contents.
func (l *SQLiteLedger) Stats(ctx context.Context) (domain.LedgerStats, error) {
	var stats domain.LedgerStats

	if err := l.countWhere(ctx, nil, &stats.Total); err != nil {
		return stats, err
	}
	if err := l.countWhere(ctx, sq.Eq{"outcome": string(domain.OutcomeSent)}, &stats.Sent); err != nil {
		return stats, err
	}
	if err := l.countWhere(ctx, sq.Eq{"outcome": string(domain.OutcomeRejected)}, &stats.Rejected); err != nil {
		return stats, err
	}

	now := l.now()
	midnight := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	if err := l.countWhere(ctx, sq.GtOrEq{"delivered_at": midnight.Unix()}, &stats.Today); err != nil {
		return stats, err
	}

	query, args, err := l.sb.
		Select("delivered_at").
		From("delivered_entries").
		OrderBy("delivered_at DESC").
		Limit(1).
		ToSql()
	if err != nil {
		return stats, fmt.Errorf("build last-delivered query: %w", err)
	}
	var last int64
	switch err := l.db.QueryRowContext(ctx, query, args...).Scan(&last); err {
	case nil:
		stats.LastDelivered = time.Unix(last, 0)
	case sql.ErrNoRows:
	default:
		return stats, fmt.Errorf("query last delivered: %w", err)
	}

	return stats, nil
}

func (l *SQLiteLedger) countWhere(ctx context.Context, pred interface{}, out *int64) error {
	builder := l.sb.Select("COUNT(*)").From("delivered_entries")
	if pred != nil {
		builder = builder.Where(pred)
	}
	query, args, err := builder.ToSql()
	if err != nil {
		return fmt.Errorf("build count query: %w", err)
	}
	if err := l.db.QueryRowContext(ctx, query, args...).Scan(out); err != nil {
		return fmt.Errorf("query count: %w", err)
	}
	return nil
}
