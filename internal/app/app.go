package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/EBOLABOY/FeedPilot/internal/config"
	"github.com/EBOLABOY/FeedPilot/internal/domain"
	"github.com/EBOLABOY/FeedPilot/internal/infrastructure/feed"
	"github.com/EBOLABOY/FeedPilot/internal/infrastructure/fulltext"
	"github.com/EBOLABOY/FeedPilot/internal/infrastructure/llm"
	"github.com/EBOLABOY/FeedPilot/internal/infrastructure/push"
	"github.com/EBOLABOY/FeedPilot/internal/infrastructure/scheduler"
	"github.com/EBOLABOY/FeedPilot/internal/infrastructure/storage"
	"github.com/EBOLABOY/FeedPilot/internal/ports"
	"github.com/EBOLABOY/FeedPilot/internal/usecase"
)

// Application wires configuration to use cases and lifecycle orchestration.
type Application struct {
	cfg      config.Config
	logger   *slog.Logger
	ledger   *storage.SQLiteLedger
	channels []ports.Channel
	pipeline *usecase.Pipeline
}

// New builds a runnable application instance. The configuration is
// validated here; nothing ambient is consulted afterwards.
func New(cfg config.Config, logger *slog.Logger) (*Application, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	ledger, err := storage.Open(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("open delivery ledger: %w", err)
	}

	channels, err := buildChannels(cfg)
	if err != nil {
		_ = ledger.Close()
		return nil, err
	}

	source := feed.NewFetcher(cfg.Feed, logger.With("component", "feed"))

	var scorer ports.Scorer
	var analyzer ports.Analyzer
	var retriever ports.FullTextRetriever
	if cfg.Enrichment.Enabled && cfg.Enrichment.APIKey != "" {
		client := llm.NewClient(cfg.Enrichment)
		scorer = client
		analyzer = client
		if cfg.Enrichment.Analysis.FetchFullText {
			retriever = fulltext.NewRetriever(
				&http.Client{Timeout: time.Duration(cfg.Enrichment.TimeoutSeconds) * time.Second},
				cfg.Feed.UserAgent,
				cfg.Enrichment.Analysis.MaxContentChars,
			)
		}
	} else if cfg.Enrichment.Enabled {
		logger.Warn("enrichment enabled without an API key, delivering raw content")
	}

	engine := usecase.NewEnrichmentEngine(scorer, analyzer, retriever,
		cfg.Enrichment, logger.With("component", "enrichment"))

	pipeline := usecase.NewPipeline(usecase.PipelineDeps{
		Source:   source,
		Ledger:   ledger,
		Engine:   engine,
		Channels: channels,
		Feed:     cfg.Feed,
		Push:     cfg.Push,
		Logger:   logger.With("component", "pipeline"),
	})

	return &Application{
		cfg:      cfg,
		logger:   logger,
		ledger:   ledger,
		channels: channels,
		pipeline: pipeline,
	}, nil
}

// buildChannels resolves the closed channel set named by configuration.
func buildChannels(cfg config.Config) ([]ports.Channel, error) {
	var channels []ports.Channel
	for _, name := range cfg.Push.Channels {
		var ch ports.Channel
		switch name {
		case "pushplus":
			ch = push.NewPushPlus(cfg.Channels.PushPlus)
		case "telegram":
			ch = push.NewTelegram(cfg.Channels.Telegram)
		default:
			return nil, fmt.Errorf("unknown channel %q", name)
		}
		if err := ch.Validate(); err != nil {
			return nil, fmt.Errorf("channel %s: %w", name, err)
		}
		channels = append(channels, ch)
	}
	if len(channels) == 0 {
		return nil, fmt.Errorf("no delivery channels configured")
	}
	return channels, nil
}

// Run starts the scheduler loop and blocks until the context is done.
// With scheduling off it performs a single run and returns.
func (a *Application) Run(ctx context.Context) error {
	if a.cfg.Scheduler.Mode == config.ModeOff {
		a.logger.Info("scheduler off, executing a single run")
		return a.RunOnce(ctx)
	}

	driver, err := scheduler.NewCronScheduler(a.cfg.Scheduler, a.logger.With("component", "scheduler"))
	if err != nil {
		return fmt.Errorf("build scheduler: %w", err)
	}

	sched := usecase.NewScheduler(driver, a.pipeline, a.logger.With("component", "scheduler"))
	if err := sched.Start(ctx); err != nil {
		return fmt.Errorf("start scheduler: %w", err)
	}

	<-ctx.Done()
	stopCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return sched.Stop(stopCtx)
}

// RunOnce executes a single pipeline pass.
func (a *Application) RunOnce(ctx context.Context) error {
	return a.pipeline.Run(ctx, time.Now())
}

// TestChannels checks connectivity of every configured channel.
func (a *Application) TestChannels(ctx context.Context) error {
	var failures int
	for _, ch := range a.channels {
		if err := ch.TestConnection(ctx); err != nil {
			a.logger.Error("channel check failed", "channel", ch.Name(), "error", err)
			failures++
			continue
		}
		a.logger.Info("channel check passed", "channel", ch.Name())
	}
	if failures > 0 {
		return fmt.Errorf("%d channel(s) failed connectivity check", failures)
	}
	return nil
}

// Stats returns the ledger statistics.
func (a *Application) Stats(ctx context.Context) (domain.LedgerStats, error) {
	return a.ledger.Stats(ctx)
}

// Purge removes ledger records older than the given number of days.
func (a *Application) Purge(ctx context.Context, days int) (int64, error) {
	if days <= 0 {
		days = a.cfg.Database.RetentionDays
	}
	return a.ledger.PurgeOlderThan(ctx, time.Duration(days)*24*time.Hour)
}

// Close releases held resources.
func (a *Application) Close() error {
	return a.ledger.Close()
}
