package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/EBOLABOY/FeedPilot/internal/config"
	"github.com/EBOLABOY/FeedPilot/internal/domain"
	"github.com/EBOLABOY/FeedPilot/internal/ports"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source   ports.FeedSource
	Ledger   ports.DeliveryLedger
	Engine   *EnrichmentEngine
	Channels []ports.Channel
	Feed     config.FeedConfig
	Push     config.PushConfig
	Logger   *slog.Logger
}

// Pipeline orchestrates one run: fetch, normalize, and per channel filter
// novelty, enrich, cap, deliver and commit. Ledger records are written if
// and only if the corresponding delivery call reported success, except
// triage rejections which are committed at rejection time.
type Pipeline struct {
	source   ports.FeedSource
	ledger   ports.DeliveryLedger
	engine   *EnrichmentEngine
	channels []ports.Channel
	feedCfg  config.FeedConfig
	pushCfg  config.PushConfig
	logger   *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	return &Pipeline{
		source:   deps.Source,
		ledger:   deps.Ledger,
		engine:   deps.Engine,
		channels: deps.Channels,
		feedCfg:  deps.Feed,
		pushCfg:  deps.Push,
		logger:   deps.Logger,
	}
}

// Run executes one full pipeline pass. The returned error is fatal only:
// fetch or ledger failures. Enrichment and delivery failures are recovered
// locally; affected entries stay unmarked and return on the next run.
func (p *Pipeline) Run(ctx context.Context, now time.Time) error {
	runID := uuid.NewString()
	logger := p.logger.With("run", runID)
	logger.Info("run started")

	if !p.pushCfg.TimeWindow.Contains(now) {
		logger.Info("outside delivery time window, skipping run")
		return nil
	}

	entries, err := p.source.Fetch(ctx)
	if err != nil {
		return fmt.Errorf("fetch feed: %w", err)
	}

	batch := Normalize(entries)
	if p.feedCfg.TodayOnly {
		batch = FilterSameDay(batch, now, p.feedCfg.TimezoneOffsetHours)
	}
	logger.Info("batch normalized", "fetched", len(entries), "kept", len(batch))

	if len(batch) == 0 {
		logger.Info("feed produced no usable entries")
		return nil
	}

	caughtUp := true
	for _, channel := range p.channels {
		novel, err := p.ledger.FilterNovel(ctx, batch, channel.Name())
		if err != nil {
			return fmt.Errorf("filter novelty for %s: %w", channel.Name(), err)
		}
		if len(novel) == 0 {
			continue
		}
		caughtUp = false

		if err := p.runChannel(ctx, logger, channel, novel); err != nil {
			return err
		}
	}

	if caughtUp {
		logger.Info("all caught up, nothing novel for any channel")
	}
	logger.Info("run finished")
	return nil
}

// runChannel drives novelty through delivery for a single channel. Only
// ledger failures bubble up; a delivery failure is reported and the
// affected entries stay novel for the next run.
func (p *Pipeline) runChannel(ctx context.Context, logger *slog.Logger, channel ports.Channel, novel []domain.Entry) error {
	clog := logger.With("channel", channel.Name())
	clog.Info("novel entries found", "count", len(novel))

	accepted, rejected := p.engine.Triage(ctx, novel)

	// Rejections are terminal: commit them now so a low-scoring item is
	// never re-evaluated on later runs.
	if len(rejected) > 0 {
		if err := p.ledger.RecordDeliveries(ctx, toRecords(rejected, channel.Name(), domain.OutcomeRejected)); err != nil {
			return fmt.Errorf("commit rejections for %s: %w", channel.Name(), err)
		}
		clog.Info("rejections committed", "count", len(rejected))
	}

	if len(accepted) == 0 {
		clog.Info("no entries passed triage")
		return nil
	}

	head, spill := CapBatch(accepted, p.pushCfg.MaxItems)
	if len(spill) > 0 {
		clog.Info("batch cap reached, spilling remainder to next run",
			"delivering", len(head), "spilled", len(spill))
	}

	report := p.engine.Analyze(ctx, head)

	msg := RenderDigest(head, report, RenderOptions{
		Style:               p.pushCfg.Template,
		DigestTitle:         p.pushCfg.DigestTitle,
		IncludeDescription:  p.pushCfg.IncludeDescription,
		IncludeImage:        p.pushCfg.IncludeImage,
		TimezoneOffsetHours: p.feedCfg.TimezoneOffsetHours,
	})

	if err := channel.Deliver(ctx, msg); err != nil {
		clog.Error("delivery failed, entries stay unmarked for retry", "error", err)
		return nil
	}

	if err := p.ledger.RecordDeliveries(ctx, toRecords(head, channel.Name(), domain.OutcomeSent)); err != nil {
		return fmt.Errorf("commit deliveries for %s: %w", channel.Name(), err)
	}
	clog.Info("sub-batch delivered and committed", "count", len(head))
	return nil
}

func toRecords(results []domain.EnrichmentResult, channel string, outcome domain.Outcome) []domain.LedgerRecord {
	recs := make([]domain.LedgerRecord, len(results))
	for i, res := range results {
		recs[i] = domain.LedgerRecord{
			DedupKey: res.Entry.DedupKey(),
			Channel:  channel,
			Title:    res.Entry.Title,
			Link:     res.Entry.Link,
			Outcome:  outcome,
		}
	}
	return recs
}
