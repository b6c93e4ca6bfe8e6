package usecase

import (
	"context"
	"log/slog"
	"sort"
	"sync"

	"github.com/EBOLABOY/FeedPilot/internal/config"
	"github.com/EBOLABOY/FeedPilot/internal/domain"
	"github.com/EBOLABOY/FeedPilot/internal/ports"
)

// scoreDisabled is assigned when triage is off so every entry passes any
// threshold on the 0-10 scale.
const scoreDisabled = 10.0

// EnrichmentEngine drives the two-stage scoring state machine over a batch
// of novel entries.
type EnrichmentEngine struct {
	scorer   ports.Scorer
	analyzer ports.Analyzer
	fulltext ports.FullTextRetriever
	cfg      config.EnrichmentConfig
	logger   *slog.Logger
}

// NewEnrichmentEngine wires the scoring collaborators. Any of them may be
// nil, which disables the corresponding stage.
func NewEnrichmentEngine(scorer ports.Scorer, analyzer ports.Analyzer, fulltext ports.FullTextRetriever, cfg config.EnrichmentConfig, logger *slog.Logger) *EnrichmentEngine {
	return &EnrichmentEngine{
		scorer:   scorer,
		analyzer: analyzer,
		fulltext: fulltext,
		cfg:      cfg,
		logger:   logger,
	}
}

// Triage runs stage 1 over every entry and splits the batch into accepted
// (score at or above the threshold, ordered by score descending) and
// rejected results. A scoring call failure never finalizes a rejection:
// the entry passes through flagged degraded so a scoring outage cannot
// suppress a novel item. Entries beyond the triage cap are silently
// spilled; they stay unmarked and return next run.
func (e *EnrichmentEngine) Triage(ctx context.Context, entries []domain.Entry) (accepted, rejected []domain.EnrichmentResult) {
	if len(entries) == 0 {
		return nil, nil
	}

	if !e.cfg.Enabled || e.scorer == nil {
		for _, entry := range entries {
			accepted = append(accepted, domain.EnrichmentResult{
				Entry:        entry,
				Stage1Score:  scoreDisabled,
				Stage1Passed: true,
				State:        domain.StateEnriched,
			})
		}
		return accepted, nil
	}

	results := e.scoreAll(ctx, entries)

	for _, res := range results {
		if res.Stage1Passed {
			accepted = append(accepted, res)
		} else {
			rejected = append(rejected, res)
		}
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].Stage1Score > accepted[j].Stage1Score
	})

	if limit := e.cfg.Triage.MaxItems; limit > 0 && len(accepted) > limit {
		e.logger.Info("triage cap reached, deferring remainder",
			"kept", limit, "deferred", len(accepted)-limit)
		accepted = accepted[:limit]
	}

	return accepted, rejected
}

// scoreAll fans stage-1 calls out up to the configured limit, keeping
// results in input order.
func (e *EnrichmentEngine) scoreAll(ctx context.Context, entries []domain.Entry) []domain.EnrichmentResult {
	fanOut := e.cfg.FanOut
	if fanOut <= 0 {
		fanOut = 1
	}

	results := make([]domain.EnrichmentResult, len(entries))
	sem := make(chan struct{}, fanOut)
	var wg sync.WaitGroup

	for i, entry := range entries {
		wg.Add(1)
		sem <- struct{}{}
		go func(i int, entry domain.Entry) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = e.scoreOne(ctx, entry)
		}(i, entry)
	}
	wg.Wait()

	return results
}

func (e *EnrichmentEngine) scoreOne(ctx context.Context, entry domain.Entry) domain.EnrichmentResult {
	score, err := e.scorer.Score(ctx, entry)
	if err != nil {
		e.logger.Warn("triage call failed, passing entry through",
			"entry", entry.DedupKey(), "error", err)
		return domain.EnrichmentResult{
			Entry:        entry,
			Stage1Passed: true,
			State:        domain.StateDegraded,
		}
	}

	res := domain.EnrichmentResult{
		Entry:        entry,
		Stage1Score:  score,
		Stage1Passed: score >= e.cfg.Triage.Threshold,
	}
	if res.Stage1Passed {
		res.State = domain.StatePending
	} else {
		res.State = domain.StateRejected
	}
	e.logger.Debug("entry triaged", "entry", entry.DedupKey(),
		"score", score, "passed", res.Stage1Passed)
	return res
}

// Analyze runs stage 2 over one delivery batch of accepted results. It
// mutates the results' final states in place: StateEnriched on success,
// StateDegraded when the analysis call fails, leaving the entries to be
// delivered with their original content. The returned report is nil when
// analysis is disabled or failed.
func (e *EnrichmentEngine) Analyze(ctx context.Context, results []domain.EnrichmentResult) *domain.AnalysisReport {
	if len(results) == 0 {
		return nil
	}
	if !e.cfg.Enabled || !e.cfg.Analysis.Enabled || e.analyzer == nil {
		for i := range results {
			if results[i].State == domain.StatePending {
				results[i].State = domain.StateEnriched
			}
		}
		return nil
	}

	inputs := make([]domain.AnalysisInput, len(results))
	for i := range results {
		inputs[i] = domain.AnalysisInput{
			ArticleID: i + 1,
			Title:     results[i].Entry.Title,
			Link:      results[i].Entry.Link,
			Content:   e.contentFor(ctx, &results[i]),
		}
	}

	report, err := e.analyzer.Analyze(ctx, inputs)
	if err != nil {
		e.logger.Warn("deep analysis failed, falling back to original content", "error", err)
		for i := range results {
			results[i].State = domain.StateDegraded
		}
		return nil
	}

	for i := range results {
		results[i].State = domain.StateEnriched
	}
	return report
}

// contentFor returns the article body for the analysis call: the full
// text when retrieval is enabled and succeeds, the feed excerpt otherwise.
func (e *EnrichmentEngine) contentFor(ctx context.Context, res *domain.EnrichmentResult) string {
	excerpt := res.Entry.Excerpt(300)

	if !e.cfg.Analysis.FetchFullText || e.fulltext == nil {
		res.ContentDegraded = true
		return excerpt
	}

	body, err := e.fulltext.Retrieve(ctx, res.Entry.Link)
	if err != nil {
		e.logger.Debug("full-text retrieval failed, using feed excerpt",
			"entry", res.Entry.DedupKey(), "error", err)
		res.ContentDegraded = true
		return excerpt
	}

	if max := e.cfg.Analysis.MaxContentChars; max > 0 {
		runes := []rune(body)
		if len(runes) > max {
			body = string(runes[:max])
		}
	}
	return body
}
