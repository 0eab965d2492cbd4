package pipeline

import (
	"fmt"
	"strconv"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/lysyi3m/secnews/app/tasks"
)

type SourceReport struct {
	Name     string        `json:"name"`
	URL      string        `json:"url"`
	Items    int           `json:"items"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration_ns"`
}

type ArchiveReport struct {
	Count     int  `json:"count"`
	Added     int  `json:"added"`
	Refreshed int  `json:"refreshed"`
	Pruned    int  `json:"pruned"`
	Written   bool `json:"written"`
}

type HistoryReport struct {
	Days         int  `json:"days"`
	Rewritten    int  `json:"rewritten"`
	Removed      int  `json:"removed"`
	IndexWritten bool `json:"index_written"`
}

type Report struct {
	ID              string         `json:"id"`
	StartedAt       time.Time      `json:"started_at"`
	Duration        time.Duration  `json:"duration_ns"`
	Sources         []SourceReport `json:"sources"`
	Items           int            `json:"items"`
	SnapshotWritten bool           `json:"snapshot_written"`
	Archive         ArchiveReport  `json:"archive"`
	History         HistoryReport  `json:"history"`
	IndexSynced     bool           `json:"index_synced"`
	IndexError      string         `json:"index_error,omitempty"`
}

func (r *Report) addSources(results []tasks.Result) {
	r.Sources = make([]SourceReport, len(results))
	for i, result := range results {
		r.Sources[i] = SourceReport{
			Name:     result.Source.Name,
			URL:      result.Source.URL,
			Items:    len(result.Items),
			Duration: result.Duration,
		}
		if result.Err != nil {
			r.Sources[i].Error = result.Err.Error()
		}
	}
}

func (r *Report) FailedSources() int {
	failed := 0
	for _, source := range r.Sources {
		if source.Error != "" {
			failed++
		}
	}
	return failed
}

// Render formats the per-source results and the storage summary as a table.
func (r *Report) Render() string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Source", "Items", "Duration", "Status"})

	for _, source := range r.Sources {
		status := "ok"
		if source.Error != "" {
			status = source.Error
		}
		tw.AppendRow(table.Row{
			source.Name,
			strconv.Itoa(source.Items),
			source.Duration.Round(time.Millisecond).String(),
			status,
		})
	}

	tw.AppendFooter(table.Row{
		"Total (unique)",
		strconv.Itoa(r.Items),
		r.Duration.Round(time.Millisecond).String(),
		fmt.Sprintf("%d failed", r.FailedSources()),
	})

	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 2, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 4, WidthMax: 60},
	})

	summary := fmt.Sprintf("snapshot written: %v | archive: %d entries (+%d, %d refreshed, -%d), written: %v | history: %d days, %d rewritten, %d removed",
		r.SnapshotWritten,
		r.Archive.Count, r.Archive.Added, r.Archive.Refreshed, r.Archive.Pruned, r.Archive.Written,
		r.History.Days, r.History.Rewritten, r.History.Removed)

	return tw.Render() + "\n" + summary
}
