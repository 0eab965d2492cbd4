package database

import (
	"context"

	"github.com/lysyi3m/secnews/app/archive"
)

type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

type Stats struct {
	Total   int           `json:"total"`
	Sources []SourceCount `json:"sources"`
}

// ArticleRepository mirrors the archive into SQLite for search.
type ArticleRepository interface {
	SyncArchive(ctx context.Context, entries []archive.Entry) (int, int, error)
	Search(ctx context.Context, query string, limit int) ([]archive.Entry, error)
	GetStats(ctx context.Context) (*Stats, error)
}
