package scheduler

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/gorhill/cronexpr"

	"github.com/EBOLABOY/FeedPilot/internal/config"
	"github.com/EBOLABOY/FeedPilot/internal/ports"
)

// CronScheduler triggers the pipeline either at fixed daily times in a
// configured timezone or on a fixed minute interval. One goroutine, one
// trigger at a time; the job itself decides whether to skip overlap.
type CronScheduler struct {
	exprs    []*cronexpr.Expression
	interval time.Duration
	loc      *time.Location
	logger   *slog.Logger
	stop     chan struct{}
}

var _ ports.Scheduler = (*CronScheduler)(nil)

// NewCronScheduler builds a scheduler from configuration. Daily HH:MM
// times are compiled to cron expressions evaluated in the configured
// timezone.
func NewCronScheduler(cfg config.SchedulerConfig, logger *slog.Logger) (*CronScheduler, error) {
	s := &CronScheduler{
		loc:    cfg.Location(),
		logger: logger,
	}

	switch cfg.Mode {
	case config.ModeDaily:
		for _, at := range cfg.DailyTimes {
			t, err := time.Parse("15:04", at)
			if err != nil {
				return nil, fmt.Errorf("daily time %q: expected HH:MM", at)
			}
			expr, err := cronexpr.Parse(fmt.Sprintf("%d %d * * *", t.Minute(), t.Hour()))
			if err != nil {
				return nil, fmt.Errorf("compile daily time %q: %w", at, err)
			}
			s.exprs = append(s.exprs, expr)
		}
		if len(s.exprs) == 0 {
			return nil, fmt.Errorf("daily mode needs at least one time")
		}
	case config.ModeInterval:
		if cfg.IntervalMinutes <= 0 {
			return nil, fmt.Errorf("interval mode needs a positive intervalMinutes")
		}
		s.interval = time.Duration(cfg.IntervalMinutes) * time.Minute
	default:
		return nil, fmt.Errorf("unsupported scheduler mode %q", cfg.Mode)
	}

	return s, nil
}

// next returns the earliest upcoming trigger after now.
func (s *CronScheduler) next(now time.Time) time.Time {
	if s.interval > 0 {
		return now.Add(s.interval)
	}

	var earliest time.Time
	for _, expr := range s.exprs {
		candidate := expr.Next(now.In(s.loc))
		if earliest.IsZero() || candidate.Before(earliest) {
			earliest = candidate
		}
	}
	return earliest
}

// Start fires the job immediately, then on every computed trigger until
// the context is done or Stop is called. Triggers are strictly
// sequential: the next wait begins only after job returns.
func (s *CronScheduler) Start(ctx context.Context, job func(time.Time)) error {
	if job == nil {
		return fmt.Errorf("scheduler job is nil")
	}
	if s.stop != nil {
		return fmt.Errorf("scheduler already started")
	}
	s.stop = make(chan struct{})

	go func() {
		job(time.Now())
		for {
			now := time.Now()
			at := s.next(now)
			if s.logger != nil {
				s.logger.Info("next run scheduled", "at", at.Format(time.RFC3339))
			}

			timer := time.NewTimer(at.Sub(now))
			select {
			case t := <-timer.C:
				job(t)
			case <-ctx.Done():
				timer.Stop()
				return
			case <-s.stop:
				timer.Stop()
				return
			}
		}
	}()

	return nil
}

// Stop halts the trigger goroutine.
func (s *CronScheduler) Stop(ctx context.Context) error {
	if s.stop == nil {
		return nil
	}
	close(s.stop)
	s.stop = nil
	return nil
}
