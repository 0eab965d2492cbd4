package cfg

import (
	"cmp"
	"errors"
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
	// Fetching
	UserAgent          string `long:"user-agent" env:"USER_AGENT" default:"SecNews/1.0 (+https://github.com/lysyi3m/secnews)" description:"User agent string for HTTP requests"`
	MaxItemsPerFeed    int    `long:"max-items-per-feed" env:"MAX_ITEMS_PER_FEED" default:"5" description:"Number of entries kept from the top of each feed"`
	DescLimit          int    `long:"desc-limit" env:"DESC_LIMIT" default:"400" description:"Maximum description length in characters (0 disables truncation)"`
	DisableConcurrency bool   `long:"disable-concurrency" env:"DISABLE_CONCURRENCY" description:"Fetch sources one after another"`
	MaxWorkers         int    `long:"max-workers" env:"MAX_WORKERS" default:"8" description:"Maximum number of concurrent fetches"`
	FetchTimeout       int    `long:"fetch-timeout" env:"FETCH_TIMEOUT" default:"30" description:"Per-source fetch timeout in seconds (0 disables)"`
	SourcesFile        string `long:"sources-file" env:"SOURCES_FILE" description:"YAML file replacing the built-in source list"`

	// Storage
	RetentionDays int    `long:"retention-days" env:"RETENTION_DAYS" default:"90" description:"Days an article stays in the archive after first being seen"`
	SnapshotPath  string `long:"snapshot-path" env:"SNAPSHOT_PATH" default:"news.json" description:"Path of the latest-run snapshot"`
	ArchivePath   string `long:"archive-path" env:"ARCHIVE_PATH" default:"archive.json" description:"Path of the rolling archive"`
	HistoryDir    string `long:"history-dir" env:"HISTORY_DIR" default:"history" description:"Directory of per-day history files"`
	DBPath        string `long:"db-path" env:"DB_PATH" description:"SQLite search index path (optional)"`

	// Server mode
	Serve        bool   `long:"serve" env:"SERVE" description:"Run on a schedule and serve the views over HTTP"`
	Port         string `long:"port" env:"PORT" default:"8080" description:"HTTP server port"`
	Schedule     string `long:"schedule" env:"SCHEDULE" default:"@every 1h" description:"Cron schedule for pipeline runs in serve mode"`
	APIAccessKey string `long:"api-key" env:"API_ACCESS_KEY" description:"API access key for authentication (optional)"`

	Debug bool `long:"debug" env:"DEBUG" description:"Enable debug logging"`
}

// Load parses args and the environment. It returns nil, nil when help was
// requested.
func Load(args []string) (*Cfg, error) {
	var raw rawCfg

	parser := flags.NewParser(&raw, flags.Default)

	if _, err := parser.ParseArgs(args); err != nil {
		if flagsErr, ok := err.(*flags.Error); ok {
			if flagsErr.Type == flags.ErrHelp {
				return nil, nil
			}
		}
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	cfg := &Cfg{
		UserAgent:          raw.UserAgent,
		MaxItemsPerFeed:    raw.MaxItemsPerFeed,
		DescLimit:          raw.DescLimit,
		DisableConcurrency: raw.DisableConcurrency,
		MaxWorkers:         raw.MaxWorkers,
		FetchTimeout:       time.Duration(raw.FetchTimeout) * time.Second,
		SourcesFile:        raw.SourcesFile,
		RetentionDays:      raw.RetentionDays,
		SnapshotPath:       raw.SnapshotPath,
		ArchivePath:        raw.ArchivePath,
		HistoryDir:         raw.HistoryDir,
		DBPath:             raw.DBPath,
		Serve:              raw.Serve,
		Port:               raw.Port,
		Schedule:           raw.Schedule,
		APIAccessKey:       raw.APIAccessKey,
		Debug:              raw.Debug,
		Version:            GetVersion(),
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func (c *Cfg) Validate() error {
	var errs []error

	if c.UserAgent == "" {
		errs = append(errs, errors.New("user agent must not be empty"))
	}
	if c.MaxItemsPerFeed < 1 {
		errs = append(errs, fmt.Errorf("max items per feed must be positive, got %d", c.MaxItemsPerFeed))
	}
	if c.DescLimit < 0 {
		errs = append(errs, fmt.Errorf("description limit must not be negative, got %d", c.DescLimit))
	}
	if c.MaxWorkers < 1 {
		errs = append(errs, fmt.Errorf("max workers must be positive, got %d", c.MaxWorkers))
	}
	if c.FetchTimeout < 0 {
		errs = append(errs, fmt.Errorf("fetch timeout must not be negative, got %s", c.FetchTimeout))
	}
	if c.RetentionDays < 1 {
		errs = append(errs, fmt.Errorf("retention days must be positive, got %d", c.RetentionDays))
	}
	if c.SnapshotPath == "" || c.ArchivePath == "" || c.HistoryDir == "" {
		errs = append(errs, errors.New("snapshot path, archive path and history dir are required"))
	}

	return errors.Join(errs...)
}
