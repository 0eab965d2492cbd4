package snapshot

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/lysyi3m/secnews/app/feed"
	"github.com/lysyi3m/secnews/app/storage"
)

type Document struct {
	LastUpdated string      `json:"last_updated"`
	Count       int         `json:"count"`
	Items       []feed.Item `json:"items"`
}

// Writer persists the latest-run view.
type Writer struct {
	path string
}

func NewWriter(path string) *Writer {
	return &Writer{path: path}
}

func (w *Writer) Path() string {
	return w.path
}

// Run writes the snapshot unless its items equal the persisted ones. On a
// skipped write last_updated on disk stays as it was.
func (w *Writer) Run(items []feed.Item, now time.Time) (bool, error) {
	if items == nil {
		items = []feed.Item{}
	}

	var prior Document
	exists, err := storage.ReadDocument(w.path, &prior)
	if err != nil {
		slog.Warn("Snapshot unreadable, treating as absent", "path", w.path, "error", err)
		exists = false
	}

	if exists && prior.Items != nil && storage.Equal(prior.Items, items) {
		slog.Info("Snapshot unchanged, skipping write", "path", w.path, "count", len(items))
		return false, nil
	}

	doc := Document{
		LastUpdated: feed.FormatTimestamp(now),
		Count:       len(items),
		Items:       items,
	}

	if err := storage.WriteDocument(w.path, doc); err != nil {
		return false, fmt.Errorf("failed to write snapshot: %w", err)
	}

	slog.Info("Snapshot written", "path", w.path, "count", len(items))
	return true, nil
}
