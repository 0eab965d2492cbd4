package history

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/lysyi3m/secnews/app/archive"
	"github.com/lysyi3m/secnews/app/feed"
	"github.com/lysyi3m/secnews/app/storage"
)

const (
	IndexFile = "index.json"
	DayLayout = "2006-01-02"
)

type DayFile struct {
	Date  string          `json:"date"`
	Count int             `json:"count"`
	Items []archive.Entry `json:"items"`
}

type DaySummary struct {
	Date  string `json:"date"`
	Count int    `json:"count"`
}

type Index struct {
	Generated     string       `json:"generated"`
	RetentionDays int          `json:"retention_days"`
	Days          []DaySummary `json:"days"`
}

type Result struct {
	Days         []DaySummary
	Rewritten    int
	Removed      int
	IndexWritten bool
}

// Partitioner maintains one file per first-seen day plus a summary index,
// recomputed from the archive on every run.
type Partitioner struct {
	dir           string
	retentionDays int
}

func NewPartitioner(dir string, retentionDays int) *Partitioner {
	return &Partitioner{dir: dir, retentionDays: retentionDays}
}

func (p *Partitioner) Dir() string {
	return p.dir
}

// DayPath returns the file path for day, which must be in YYYY-MM-DD form.
func (p *Partitioner) DayPath(day string) string {
	return filepath.Join(p.dir, day+".json")
}

func (p *Partitioner) IndexPath() string {
	return filepath.Join(p.dir, IndexFile)
}

func (p *Partitioner) Run(entries []archive.Entry, now time.Time) (*Result, error) {
	days, buckets := Group(entries)
	result := &Result{Days: make([]DaySummary, 0, len(days))}

	for _, day := range days {
		bucket := buckets[day]
		written, err := p.writeDay(DayFile{Date: day, Count: len(bucket), Items: bucket})
		if err != nil {
			return nil, err
		}
		if written {
			result.Rewritten++
		}
		result.Days = append(result.Days, DaySummary{Date: day, Count: len(bucket)})
	}

	removed, err := p.removeStaleDays(buckets)
	if err != nil {
		return nil, err
	}
	result.Removed = removed

	result.IndexWritten, err = p.writeIndex(result.Days, now)
	if err != nil {
		return nil, err
	}

	slog.Info("History updated",
		"dir", p.dir,
		"days", len(result.Days),
		"rewritten", result.Rewritten,
		"removed", result.Removed,
		"index_written", result.IndexWritten)

	return result, nil
}

// Group buckets entries by the calendar day of first_seen, preserving entry
// order within a day. Days are returned newest first.
func Group(entries []archive.Entry) ([]string, map[string][]archive.Entry) {
	buckets := make(map[string][]archive.Entry)

	for _, entry := range entries {
		day, ok := dayOf(entry.FirstSeen)
		if !ok {
			continue
		}
		buckets[day] = append(buckets[day], entry)
	}

	days := make([]string, 0, len(buckets))
	for day := range buckets {
		days = append(days, day)
	}
	slices.Sort(days)
	slices.Reverse(days)

	return days, buckets
}

func dayOf(firstSeen string) (string, bool) {
	if len(firstSeen) < len(DayLayout) {
		return "", false
	}
	day := firstSeen[:len(DayLayout)]
	if _, err := time.Parse(DayLayout, day); err != nil {
		return "", false
	}
	return day, true
}

func (p *Partitioner) writeDay(dayFile DayFile) (bool, error) {
	path := p.DayPath(dayFile.Date)

	var existing DayFile
	exists, err := storage.ReadDocument(path, &existing)
	if err != nil {
		slog.Warn("Day file unreadable, rewriting", "path", path, "error", err)
	} else if exists && storage.Equal(existing, dayFile) {
		return false, nil
	}

	if err := storage.WriteDocument(path, dayFile); err != nil {
		return false, fmt.Errorf("failed to write day file: %w", err)
	}

	slog.Debug("Day file written", "date", dayFile.Date, "count", dayFile.Count)
	return true, nil
}

// removeStaleDays deletes day files for days no longer present in the archive.
func (p *Partitioner) removeStaleDays(buckets map[string][]archive.Entry) (int, error) {
	files, err := os.ReadDir(p.dir)
	if errors.Is(err, fs.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to list history directory: %w", err)
	}

	removed := 0
	for _, file := range files {
		name := file.Name()
		if file.IsDir() || !strings.HasSuffix(name, ".json") {
			continue
		}

		day := strings.TrimSuffix(name, ".json")
		if _, err := time.Parse(DayLayout, day); err != nil {
			continue
		}
		if _, ok := buckets[day]; ok {
			continue
		}

		if err := os.Remove(filepath.Join(p.dir, name)); err != nil {
			return removed, fmt.Errorf("failed to remove stale day file: %w", err)
		}
		slog.Debug("Stale day file removed", "date", day)
		removed++
	}

	return removed, nil
}

func (p *Partitioner) writeIndex(days []DaySummary, now time.Time) (bool, error) {
	path := p.IndexPath()

	var existing Index
	exists, err := storage.ReadDocument(path, &existing)
	if err != nil {
		slog.Warn("History index unreadable, rewriting", "path", path, "error", err)
	} else if exists && existing.Days != nil && existing.RetentionDays == p.retentionDays && storage.Equal(existing.Days, days) {
		return false, nil
	}

	index := Index{
		Generated:     feed.FormatTimestamp(now),
		RetentionDays: p.retentionDays,
		Days:          days,
	}
	if err := storage.WriteDocument(path, index); err != nil {
		return false, fmt.Errorf("failed to write history index: %w", err)
	}

	return true, nil
}
