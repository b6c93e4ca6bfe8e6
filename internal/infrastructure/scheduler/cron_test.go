package scheduler

import (
	"context"
	"testing"
	"time"

	"github.com/EBOLABOY/FeedPilot/internal/config"
)

func TestNewCronSchedulerRejectsBadConfig(t *testing.T) {
	t.Parallel()

	cases := []config.SchedulerConfig{
		{Mode: config.ModeDaily, DailyTimes: []string{"25:99"}},
		{Mode: config.ModeDaily},
		{Mode: config.ModeInterval, IntervalMinutes: 0},
		{Mode: "hourly"},
	}
	for _, cfg := range cases {
		if _, err := NewCronScheduler(cfg, nil); err == nil {
			t.Fatalf("expected error for config %+v", cfg)
		}
	}
}

func TestNextDailyPicksEarliestTime(t *testing.T) {
	t.Parallel()

	s, err := NewCronScheduler(config.SchedulerConfig{
		Mode:       config.ModeDaily,
		DailyTimes: []string{"07:30", "19:00"},
	}, nil)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	morning := time.Date(2026, time.March, 2, 6, 0, 0, 0, time.UTC)
	if got := s.next(morning); got.Hour() != 7 || got.Minute() != 30 || got.Day() != 2 {
		t.Fatalf("unexpected next trigger: %v", got)
	}

	afternoon := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)
	if got := s.next(afternoon); got.Hour() != 19 || got.Minute() != 0 || got.Day() != 2 {
		t.Fatalf("unexpected next trigger: %v", got)
	}

	// Past the last slot the trigger rolls over to the next day.
	night := time.Date(2026, time.March, 2, 23, 0, 0, 0, time.UTC)
	if got := s.next(night); got.Hour() != 7 || got.Minute() != 30 || got.Day() != 3 {
		t.Fatalf("unexpected rollover trigger: %v", got)
	}
}

func TestNextInterval(t *testing.T) {
	t.Parallel()

	s, err := NewCronScheduler(config.SchedulerConfig{
		Mode:            config.ModeInterval,
		IntervalMinutes: 45,
	}, nil)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	now := time.Date(2026, time.March, 2, 6, 0, 0, 0, time.UTC)
	if got := s.next(now); !got.Equal(now.Add(45 * time.Minute)) {
		t.Fatalf("unexpected interval trigger: %v", got)
	}
}

func TestStartFiresImmediatelyAndStops(t *testing.T) {
	t.Parallel()

	s, err := NewCronScheduler(config.SchedulerConfig{
		Mode:            config.ModeInterval,
		IntervalMinutes: 60,
	}, nil)
	if err != nil {
		t.Fatalf("new scheduler: %v", err)
	}

	fired := make(chan time.Time, 1)
	ctx := context.Background()
	if err := s.Start(ctx, func(at time.Time) { fired <- at }); err != nil {
		t.Fatalf("start: %v", err)
	}

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		t.Fatalf("scheduler did not fire the initial run")
	}

	if err := s.Stop(ctx); err != nil {
		t.Fatalf("stop: %v", err)
	}
	if err := s.Start(ctx, nil); err == nil {
		t.Fatalf("nil job must be rejected")
	}
}
