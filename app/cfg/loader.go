package cfg

import (
	"cmp"
	"fmt"
	"time"

	"github.com/jessevdk/go-flags"
)

// Version is set at build time via -ldflags
var Version = "dev"

func GetVersion() string {
	return cmp.Or(Version, "unknown")
}

type rawCfg struct {
	// Upstream feeds
	ForumURL    string `long:"forum-url" env:"FORUM_URL" default:"https://www.chiefdelphi.com" description:"Base URL of the Chief Delphi forum"`
	CalendarURL string `long:"calendar-url" env:"CALENDAR_URL" default:"https://www.bths.edu/apps/events/events_rss.jsp?id=0" description:"URL of the school calendar RSS feed"`

	// Durable state
	ConfigFile  string `long:"config-file" env:"CONFIG_FILE" default:"./config.json" description:"Path to the trigger configuration file"`
	PersistFile string `long:"persist-file" env:"PERSIST_FILE" default:"./persist.json" description:"Path to the seen post ID persistence file"`
	DBPath      string `long:"db-path" env:"DB_PATH" default:"./delphi-watch.db" description:"Path to the SQLite post archive"`

	// Application configuration
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	WorkerCount  int    `long:"worker-count" env:"WORKER_COUNT" default:"2" description:"Number of background workers for task processing"`
	FetchTimeout int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Upstream fetch timeout in seconds"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`
	WebhookURL   string `long:"webhook-url" env:"WEBHOOK_URL" description:"Webhook URL for post notifications (optional)"`
	SourcesFile  string `long:"sources-file" env:"SOURCES_FILE" description:"Optional YAML file overriding upstream feed sources"`

	// Application metadata
	UserAgent string `long:"user-agent" env:"USER_AGENT" default:"delphi-watch/1.0" description:"User agent string for HTTP requests"`
	Timezone  string `long:"timezone" env:"TZ" default:"America/New_York" description:"Timezone for calendar date math (e.g., UTC, America/New_York)"`
	Debug     bool   `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

var globalCfg *Cfg

func Load() (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.Parse(); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		ForumURL:     raw.ForumURL,
		CalendarURL:  raw.CalendarURL,
		ConfigFile:   raw.ConfigFile,
		PersistFile:  raw.PersistFile,
		DBPath:       raw.DBPath,
		Port:         raw.Port,
		WorkerCount:  raw.WorkerCount,
		FetchTimeout: raw.FetchTimeout,
		APIAccessKey: raw.APIAccessKey,
		WebhookURL:   raw.WebhookURL,
		SourcesFile:  raw.SourcesFile,
		UserAgent:    raw.UserAgent,
		Timezone:     raw.Timezone,
		Debug:        raw.Debug,
		Version:      GetVersion(),
	}

	if cfg.SourcesFile != "" {
		if err := applySources(cfg, cfg.SourcesFile); err != nil {
			return nil, fmt.Errorf("failed to load sources file: %w", err)
		}
	}

	if err := applyTimezone(cfg.Timezone); err != nil {
		fmt.Printf("Warning: Invalid timezone '%s', using system default: %v\n", cfg.Timezone, err)
	}

	globalCfg = cfg

	return cfg, nil
}

func Get() *Cfg {
	if globalCfg == nil {
		panic("configuration not loaded - call cfg.Load() first")
	}
	return globalCfg
}

func applyTimezone(timezone string) error {
	if timezone != "" {
		if loc, err := time.LoadLocation(timezone); err != nil {
			return err
		} else {
			time.Local = loc
		}
	}
	return nil
}
