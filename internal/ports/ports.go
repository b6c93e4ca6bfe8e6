package ports

import (
	"context"
	"time"

	"github.com/EBOLABOY/FeedPilot/internal/domain"
)

// FeedSource pulls the raw ordered entry list from the upstream feed.
// A fetch or parse failure is fatal for the current run.
type FeedSource interface {
	Fetch(ctx context.Context) ([]domain.Entry, error)
}

// DeliveryLedger is the durable record of what has already been sent or
// terminally rejected, per channel. It is the sole gate against repeat
// delivery; any storage error aborts the run.
type DeliveryLedger interface {
	IsDelivered(ctx context.Context, dedupKey, channel string) (bool, error)
	// FilterNovel returns the entries with no successful record for the
	// channel, preserving relative order.
	FilterNovel(ctx context.Context, entries []domain.Entry, channel string) ([]domain.Entry, error)
	RecordDelivery(ctx context.Context, rec domain.LedgerRecord) error
	// RecordDeliveries commits all records in one transaction.
	RecordDeliveries(ctx context.Context, recs []domain.LedgerRecord) error
	PurgeOlderThan(ctx context.Context, age time.Duration) (int64, error)
	Stats(ctx context.Context) (domain.LedgerStats, error)
}

// Scorer runs the cheap stage-1 triage call over title and excerpt only.
type Scorer interface {
	Score(ctx context.Context, entry domain.Entry) (float64, error)
}

// Analyzer runs the expensive stage-2 call over a batch of articles and
// returns the structured verdict report.
type Analyzer interface {
	Analyze(ctx context.Context, inputs []domain.AnalysisInput) (*domain.AnalysisReport, error)
}

// FullTextRetriever fetches the article body behind an entry link.
// Failure is non-fatal; the caller falls back to the feed excerpt.
type FullTextRetriever interface {
	Retrieve(ctx context.Context, link string) (string, error)
}

// Channel is one outbound notification destination. The closed set of
// implementations is selected by configuration.
type Channel interface {
	Name() string
	Validate() error
	Deliver(ctx context.Context, msg domain.Message) error
	TestConnection(ctx context.Context) error
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
