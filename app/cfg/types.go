package cfg

import "time"

type Cfg struct {
	// Fetching
	UserAgent          string
	MaxItemsPerFeed    int
	DescLimit          int
	DisableConcurrency bool
	MaxWorkers         int
	FetchTimeout       time.Duration
	SourcesFile        string

	// Storage
	RetentionDays int
	SnapshotPath  string
	ArchivePath   string
	HistoryDir    string
	DBPath        string

	// Server mode
	Serve        bool
	Port         string
	Schedule     string
	APIAccessKey string

	Debug   bool
	Version string
}
