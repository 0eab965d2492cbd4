package archive

import (
	"fmt"
	"log/slog"
	"slices"
	"time"
	"unicode/utf8"

	"github.com/lysyi3m/secnews/app/feed"
	"github.com/lysyi3m/secnews/app/storage"
)

type Entry struct {
	feed.Item
	ID        string `json:"id"`
	FirstSeen string `json:"first_seen"`
	LastSeen  string `json:"last_seen"`
}

type Document struct {
	LastUpdated   string  `json:"last_updated"`
	RetentionDays int     `json:"retention_days"`
	Count         int     `json:"count"`
	Items         []Entry `json:"items"`
}

type Result struct {
	Entries   []Entry
	Added     int
	Refreshed int
	Pruned    int
	Written   bool
}

// Reconciler merges each run's items into the persistent archive.
type Reconciler struct {
	path          string
	retentionDays int
}

func NewReconciler(path string, retentionDays int) *Reconciler {
	return &Reconciler{path: path, retentionDays: retentionDays}
}

func (r *Reconciler) Path() string {
	return r.path
}

// Run merges items observed at now into the archive, prunes entries past the
// retention window and persists the result when anything changed.
//
// A longer description replaces the stored one but on its own does not cause a
// write; only inserts, last_seen bumps and pruning do.
func (r *Reconciler) Run(items []feed.Item, now time.Time) (*Result, error) {
	stamp := feed.FormatTimestamp(now)
	result := &Result{}

	prior, exists, usable := r.load()
	entries, index, dirty := r.index(prior.Items, stamp)

	for _, item := range items {
		id := item.Identity()

		i, ok := index[id]
		if !ok {
			index[id] = len(entries)
			entries = append(entries, Entry{Item: item, ID: id, FirstSeen: stamp, LastSeen: stamp})
			result.Added++
			dirty = true
			continue
		}

		entry := &entries[i]
		if entry.LastSeen != stamp {
			entry.LastSeen = stamp
			result.Refreshed++
			dirty = true
		}
		if utf8.RuneCountInString(item.Description) > utf8.RuneCountInString(entry.Description) {
			entry.Description = item.Description
		}
	}

	entries, result.Pruned = r.prune(entries, now)
	if result.Pruned > 0 {
		dirty = true
	}

	SortEntries(entries)
	result.Entries = entries

	if !dirty && exists && usable {
		slog.Info("Archive unchanged, skipping write", "path", r.path, "count", len(entries))
		return result, nil
	}

	doc := Document{
		LastUpdated:   stamp,
		RetentionDays: r.retentionDays,
		Count:         len(entries),
		Items:         entries,
	}
	if err := storage.WriteDocument(r.path, doc); err != nil {
		return nil, fmt.Errorf("failed to write archive: %w", err)
	}
	result.Written = true

	slog.Info("Archive written",
		"path", r.path,
		"count", len(entries),
		"added", result.Added,
		"refreshed", result.Refreshed,
		"pruned", result.Pruned)

	return result, nil
}

// load returns the persisted archive. usable is false when a file exists but
// cannot be decoded; its content is then ignored and replaced on this run.
func (r *Reconciler) load() (doc Document, exists bool, usable bool) {
	exists, err := storage.ReadDocument(r.path, &doc)
	if err != nil {
		slog.Warn("Archive unreadable, starting from empty state", "path", r.path, "error", err)
		return Document{}, exists, false
	}
	return doc, exists, true
}

// index keys prior entries by identity. Entries persisted before the id field
// existed get it recomputed; entries without first_seen are stamped once so the
// retention window can apply to them.
func (r *Reconciler) index(prior []Entry, stamp string) ([]Entry, map[string]int, bool) {
	entries := make([]Entry, 0, len(prior))
	index := make(map[string]int, len(prior))
	dirty := false

	for _, entry := range prior {
		if entry.ID == "" {
			entry.ID = entry.Identity()
		}

		if _, ok := index[entry.ID]; ok {
			slog.Warn("Duplicate archive entry dropped", "id", entry.ID, "title", entry.Title)
			dirty = true
			continue
		}

		if entry.FirstSeen == "" {
			entry.FirstSeen = stamp
			dirty = true
		}
		if entry.LastSeen == "" {
			entry.LastSeen = entry.FirstSeen
			dirty = true
		}

		index[entry.ID] = len(entries)
		entries = append(entries, entry)
	}

	return entries, index, dirty
}

func (r *Reconciler) prune(entries []Entry, now time.Time) ([]Entry, int) {
	cutoff := now.Add(-time.Duration(r.retentionDays) * 24 * time.Hour)

	kept := entries[:0]
	pruned := 0
	for _, entry := range entries {
		firstSeen, ok := feed.ParseDate(entry.FirstSeen)
		if !ok {
			slog.Warn("Archive entry has unparseable first_seen, keeping", "id", entry.ID, "first_seen", entry.FirstSeen)
			kept = append(kept, entry)
			continue
		}

		if firstSeen.Before(cutoff) {
			slog.Debug("Archive entry expired", "id", entry.ID, "first_seen", entry.FirstSeen)
			pruned++
			continue
		}
		kept = append(kept, entry)
	}

	return kept, pruned
}

// SortEntries stable-sorts entries newest first by article date, falling back
// to first_seen; entries with neither sink to the bottom.
func SortEntries(entries []Entry) {
	keys := make([]time.Time, len(entries))
	for i, entry := range entries {
		keys[i] = sortKey(entry)
	}

	order := make([]int, len(entries))
	for i := range order {
		order[i] = i
	}
	slices.SortStableFunc(order, func(a, b int) int {
		return keys[b].Compare(keys[a])
	})

	sorted := make([]Entry, len(entries))
	for i, j := range order {
		sorted[i] = entries[j]
	}
	copy(entries, sorted)
}

func sortKey(entry Entry) time.Time {
	if t, ok := feed.ParseDate(entry.Date); ok {
		return t
	}
	if t, ok := feed.ParseDate(entry.FirstSeen); ok {
		return t
	}
	return time.Time{}
}
