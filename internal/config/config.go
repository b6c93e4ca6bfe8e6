package config

import (
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	defaultTimezone = "UTC"

	configPathEnv     = "FEEDPILOT_CONFIG"
	feedURLEnv        = "FEED_URL"
	databasePathEnv   = "DATABASE_PATH"
	pushplusTokenEnv  = "PUSHPLUS_TOKEN"
	pushplusTopicEnv  = "PUSHPLUS_TOPIC"
	telegramTokenEnv  = "TELEGRAM_BOT_TOKEN"
	telegramChatIDEnv = "TELEGRAM_CHAT_ID"
	aiAPIKeyEnv       = "AI_API_KEY"
	aiAPIBaseEnv      = "AI_API_BASE"
	aiModelEnv        = "AI_MODEL"
	dailyPushTimeEnv  = "DAILY_PUSH_TIME"
)

// Scheduler modes.
const (
	ModeDaily    = "daily"
	ModeInterval = "interval"
	ModeOff      = "off"
)

// Config holds high-level settings required across the application.
type Config struct {
	Feed       FeedConfig       `yaml:"feed"`
	Database   DatabaseConfig   `yaml:"database"`
	Scheduler  SchedulerConfig  `yaml:"scheduler"`
	Push       PushConfig       `yaml:"push"`
	Channels   ChannelsConfig   `yaml:"channels"`
	Enrichment EnrichmentConfig `yaml:"enrichment"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// FeedConfig describes the single upstream feed source.
type FeedConfig struct {
	URL                 string `yaml:"url"`
	TimeoutSeconds      int    `yaml:"timeoutSeconds"`
	UserAgent           string `yaml:"userAgent"`
	TodayOnly           bool   `yaml:"todayOnly"`
	TimezoneOffsetHours int    `yaml:"timezoneOffsetHours"`
}

// DatabaseConfig describes the delivery-ledger SQLite file.
type DatabaseConfig struct {
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retentionDays"`
}

// SchedulerConfig defines when pipeline runs trigger.
type SchedulerConfig struct {
	Mode            string         `yaml:"mode"` // daily, interval or off
	DailyTimes      []string       `yaml:"dailyTimes"`
	Timezone        string         `yaml:"timezone"`
	IntervalMinutes int            `yaml:"intervalMinutes"`
	location        *time.Location `yaml:"-"`
}

// Location resolves the scheduler timezone string to a time.Location.
func (s SchedulerConfig) Location() *time.Location {
	if s.location != nil {
		return s.location
	}
	loc, _ := time.LoadLocation(defaultTimezone)
	return loc
}

// PushConfig groups delivery behavior shared by all channels.
type PushConfig struct {
	Channels           []string         `yaml:"channels"`
	MaxItems           int              `yaml:"maxItems"` // batch cap per delivery call
	Template           string           `yaml:"template"` // html, markdown or text
	IncludeDescription bool             `yaml:"includeDescription"`
	IncludeImage       bool             `yaml:"includeImage"`
	DigestTitle        string           `yaml:"digestTitle"`
	TimeWindow         TimeWindowConfig `yaml:"timeWindow"`
}

// TimeWindowConfig restricts deliveries to a daily HH:MM window,
// optionally crossing midnight.
type TimeWindowConfig struct {
	Enabled bool   `yaml:"enabled"`
	Start   string `yaml:"start"`
	End     string `yaml:"end"`
}

// Contains reports whether now falls inside the window. A disabled or
// malformed window never blocks.
func (w TimeWindowConfig) Contains(now time.Time) bool {
	if !w.Enabled {
		return true
	}
	start, err1 := time.Parse("15:04", w.Start)
	end, err2 := time.Parse("15:04", w.End)
	if err1 != nil || err2 != nil {
		return true
	}
	cur := now.Hour()*60 + now.Minute()
	s := start.Hour()*60 + start.Minute()
	e := end.Hour()*60 + end.Minute()
	if s <= e {
		return cur >= s && cur <= e
	}
	// window crosses midnight
	return cur >= s || cur <= e
}

// ChannelsConfig wires the closed set of delivery channels.
type ChannelsConfig struct {
	PushPlus PushPlusConfig `yaml:"pushplus"`
	Telegram TelegramConfig `yaml:"telegram"`
}

// PushPlusConfig defines the PushPlus group-messaging endpoint.
type PushPlusConfig struct {
	Endpoint string `yaml:"endpoint"`
	Token    string `yaml:"token"`
	Topic    string `yaml:"topic"`
}

// TelegramConfig wires all data required to send bot messages.
type TelegramConfig struct {
	BotToken string `yaml:"botToken"`
	ChatID   string `yaml:"chatId"`
}

// EnrichmentConfig controls the two-stage AI scoring pass.
type EnrichmentConfig struct {
	Enabled        bool           `yaml:"enabled"`
	Endpoint       string         `yaml:"endpoint"`
	Model          string         `yaml:"model"`
	APIKey         string         `yaml:"apiKey"`
	Temperature    float64        `yaml:"temperature"`
	TimeoutSeconds int            `yaml:"timeoutSeconds"`
	FanOut         int            `yaml:"fanOut"` // concurrent stage-1 calls
	Triage         TriageConfig   `yaml:"triage"`
	Analysis       AnalysisConfig `yaml:"analysis"`
}

// TriageConfig tunes the cheap stage-1 scoring pass.
type TriageConfig struct {
	Threshold float64  `yaml:"threshold"` // inclusive lower bound, 0-10 scale
	MaxItems  int      `yaml:"maxItems"`  // keep at most N highest-scoring, 0 = unlimited
	Interests []string `yaml:"interests"`
	Prompt    string   `yaml:"prompt"`
}

// AnalysisConfig tunes the optional stage-2 deep analysis.
type AnalysisConfig struct {
	Enabled         bool   `yaml:"enabled"`
	FetchFullText   bool   `yaml:"fetchFullText"`
	MaxContentChars int    `yaml:"maxContentChars"`
	Prompt          string `yaml:"prompt"`
}

// LoggingConfig selects the log level.
type LoggingConfig struct {
	Level string `yaml:"level"`
}

// Load reads YAML configuration over defaults and applies environment
// overrides. An explicit path wins over the FEEDPILOT_CONFIG variable.
func Load(path string) Config {
	cfg := defaultConfig()

	if path == "" {
		path = os.Getenv(configPathEnv)
	}
	if path != "" {
		if raw, err := os.ReadFile(path); err != nil {
			log.Printf("config: cannot read %s: %v (falling back to defaults)", path, err)
		} else if err := yaml.Unmarshal(raw, &cfg); err != nil {
			log.Printf("config: cannot parse %s: %v (falling back to defaults)", path, err)
			cfg = defaultConfig()
		}
	}

	cfg.applyEnvOverrides()
	cfg.bindTimezone()

	return cfg
}

func (c *Config) applyEnvOverrides() {
	if v := os.Getenv(feedURLEnv); v != "" {
		c.Feed.URL = v
	}
	if v := os.Getenv(databasePathEnv); v != "" {
		c.Database.Path = v
	}
	if v := os.Getenv(pushplusTokenEnv); v != "" {
		c.Channels.PushPlus.Token = v
	}
	if v := os.Getenv(pushplusTopicEnv); v != "" {
		c.Channels.PushPlus.Topic = v
	}
	if v := os.Getenv(telegramTokenEnv); v != "" {
		c.Channels.Telegram.BotToken = v
	}
	if v := os.Getenv(telegramChatIDEnv); v != "" {
		c.Channels.Telegram.ChatID = v
	}
	if v := os.Getenv(aiAPIKeyEnv); v != "" {
		c.Enrichment.APIKey = v
	}
	if v := os.Getenv(aiAPIBaseEnv); v != "" {
		c.Enrichment.Endpoint = v
	}
	if v := os.Getenv(aiModelEnv); v != "" {
		c.Enrichment.Model = v
	}
	if v := os.Getenv(dailyPushTimeEnv); v != "" {
		c.Scheduler.DailyTimes = []string{v}
	}
}

func (c *Config) bindTimezone() {
	tz := c.Scheduler.Timezone
	if tz == "" {
		tz = defaultTimezone
	}
	loc, err := time.LoadLocation(tz)
	if err != nil {
		log.Printf("config: unknown timezone %s, reverting to %s", tz, defaultTimezone)
		loc, _ = time.LoadLocation(defaultTimezone)
	}
	c.Scheduler.location = loc
}

// Validate checks the settings a run cannot start without.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Feed.URL) == "" {
		return fmt.Errorf("feed.url is required")
	}
	if len(c.Push.Channels) == 0 {
		return fmt.Errorf("push.channels must name at least one channel")
	}
	for _, name := range c.Push.Channels {
		switch name {
		case "pushplus", "telegram":
		default:
			return fmt.Errorf("unknown channel %q", name)
		}
	}
	if c.Push.MaxItems <= 0 {
		return fmt.Errorf("push.maxItems must be positive")
	}
	if t := c.Enrichment.Triage.Threshold; t < 0 || t > 10 {
		return fmt.Errorf("enrichment.triage.threshold %v outside the 0-10 scale", t)
	}
	switch c.Scheduler.Mode {
	case ModeDaily:
		for _, at := range c.Scheduler.DailyTimes {
			if _, err := time.Parse("15:04", at); err != nil {
				return fmt.Errorf("scheduler.dailyTimes entry %q: expected HH:MM", at)
			}
		}
	case ModeInterval:
		if c.Scheduler.IntervalMinutes <= 0 {
			return fmt.Errorf("scheduler.intervalMinutes must be positive")
		}
	case ModeOff:
	default:
		return fmt.Errorf("unknown scheduler.mode %q", c.Scheduler.Mode)
	}
	return nil
}

func defaultConfig() Config {
	tz, _ := time.LoadLocation(defaultTimezone)
	return Config{
		Feed: FeedConfig{
			TimeoutSeconds:      30,
			UserAgent:           "FeedPilot/1.0",
			TimezoneOffsetHours: 8,
		},
		Database: DatabaseConfig{
			Path:          "data/delivered.db",
			RetentionDays: 30,
		},
		Scheduler: SchedulerConfig{
			Mode:       ModeDaily,
			DailyTimes: []string{"07:30"},
			Timezone:   defaultTimezone,
			location:   tz,
		},
		Push: PushConfig{
			Channels:           []string{"pushplus"},
			MaxItems:           20,
			Template:           "html",
			IncludeDescription: true,
			DigestTitle:        "Daily Feed Digest",
			TimeWindow:         TimeWindowConfig{Start: "00:00", End: "23:59"},
		},
		Channels: ChannelsConfig{
			PushPlus: PushPlusConfig{Endpoint: "https://www.pushplus.plus/send"},
		},
		Enrichment: EnrichmentConfig{
			Endpoint:       "https://api.openai.com/v1/chat/completions",
			Model:          "gpt-4o-mini",
			Temperature:    0.3,
			TimeoutSeconds: 60,
			FanOut:         4,
			Triage: TriageConfig{
				Threshold: 6.0,
				MaxItems:  15,
			},
			Analysis: AnalysisConfig{
				Enabled:         true,
				FetchFullText:   true,
				MaxContentChars: 2000,
			},
		},
		Logging: LoggingConfig{Level: "info"},
	}
}
