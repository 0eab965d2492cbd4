package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/lysyi3m/secnews/app/aggregate"
	"github.com/lysyi3m/secnews/app/archive"
	"github.com/lysyi3m/secnews/app/cfg"
	"github.com/lysyi3m/secnews/app/database"
	"github.com/lysyi3m/secnews/app/feed"
	"github.com/lysyi3m/secnews/app/history"
	"github.com/lysyi3m/secnews/app/snapshot"
	"github.com/lysyi3m/secnews/app/storage"
	"github.com/lysyi3m/secnews/app/tasks"
)

// Pipeline performs one fetch-aggregate-persist run at a time. Concurrent
// callers get storage.ErrLocked instead of waiting.
type Pipeline struct {
	sources      []feed.Source
	orchestrator *tasks.Orchestrator
	snapshot     *snapshot.Writer
	archive      *archive.Reconciler
	history      *history.Partitioner
	articles     database.ArticleRepository
	lock         *storage.Lock
	now          func() time.Time

	running sync.Mutex
	mu      sync.RWMutex
	last    *Report
}

// New builds a pipeline from c. articles may be nil when no search index is
// configured.
func New(c *cfg.Cfg, sources []feed.Source, httpClient *http.Client, articles database.ArticleRepository) *Pipeline {
	pool := tasks.NewPool(c.MaxWorkers, c.DisableConcurrency)
	normalizer := feed.NewNormalizer(c.DescLimit)

	return &Pipeline{
		sources:      sources,
		orchestrator: tasks.NewOrchestrator(httpClient, normalizer, pool, c.UserAgent, c.MaxItemsPerFeed, c.FetchTimeout),
		snapshot:     snapshot.NewWriter(c.SnapshotPath),
		archive:      archive.NewReconciler(c.ArchivePath, c.RetentionDays),
		history:      history.NewPartitioner(c.HistoryDir, c.RetentionDays),
		articles:     articles,
		lock:         storage.NewLock(c.ArchivePath + ".lock"),
		now:          time.Now,
	}
}

// WithClock replaces the time source used to stamp a run.
func (p *Pipeline) WithClock(now func() time.Time) *Pipeline {
	p.now = now
	return p
}

func (p *Pipeline) Sources() []feed.Source {
	return p.sources
}

func (p *Pipeline) SnapshotPath() string {
	return p.snapshot.Path()
}

func (p *Pipeline) ArchivePath() string {
	return p.archive.Path()
}

func (p *Pipeline) History() *history.Partitioner {
	return p.history
}

// LastReport returns the report of the most recent successful run, or nil.
func (p *Pipeline) LastReport() *Report {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return p.last
}

// Run fetches every source, then reconciles all persisted views. Fetch errors
// are recorded in the report; storage errors abort the run. A run whose ctx is
// cancelled during the fetch phase returns an error and writes nothing.
func (p *Pipeline) Run(ctx context.Context) (*Report, error) {
	if !p.running.TryLock() {
		return nil, fmt.Errorf("pipeline already running: %w", storage.ErrLocked)
	}
	defer p.running.Unlock()

	if err := p.lock.Acquire(); err != nil {
		return nil, err
	}
	defer func() {
		if err := p.lock.Release(); err != nil {
			slog.Warn("Failed to release run lock", "error", err)
		}
	}()

	started := time.Now()
	now := p.now().UTC().Truncate(time.Second)
	report := &Report{ID: uuid.NewString(), StartedAt: now}

	slog.Info("Run started", "id", report.ID, "sources", len(p.sources))

	results := p.orchestrator.Run(ctx, p.sources)

	// Every fetch fails once ctx is done; persisting that would empty the views.
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("run cancelled: %w", err)
	}
	report.addSources(results)

	items := aggregate.Run(tasks.Items(results))
	report.Items = len(items)

	written, err := p.snapshot.Run(items, now)
	if err != nil {
		return nil, fmt.Errorf("failed to update snapshot: %w", err)
	}
	report.SnapshotWritten = written

	archived, err := p.archive.Run(items, now)
	if err != nil {
		return nil, fmt.Errorf("failed to update archive: %w", err)
	}
	report.Archive = ArchiveReport{
		Count:     len(archived.Entries),
		Added:     archived.Added,
		Refreshed: archived.Refreshed,
		Pruned:    archived.Pruned,
		Written:   archived.Written,
	}

	partitioned, err := p.history.Run(archived.Entries, now)
	if err != nil {
		return nil, fmt.Errorf("failed to update history: %w", err)
	}
	report.History = HistoryReport{
		Days:         len(partitioned.Days),
		Rewritten:    partitioned.Rewritten,
		Removed:      partitioned.Removed,
		IndexWritten: partitioned.IndexWritten,
	}

	if p.articles != nil {
		p.syncIndex(ctx, archived.Entries, report)
	}

	report.Duration = time.Since(started)

	p.mu.Lock()
	p.last = report
	p.mu.Unlock()

	slog.Info("Run completed",
		"id", report.ID,
		"duration", report.Duration,
		"items", report.Items,
		"failed_sources", report.FailedSources(),
		"snapshot_written", report.SnapshotWritten,
		"archive_count", report.Archive.Count)

	return report, nil
}

// syncIndex mirrors the archive into the search index. Failures are logged and
// do not fail the run.
func (p *Pipeline) syncIndex(ctx context.Context, entries []archive.Entry, report *Report) {
	upserted, deleted, err := p.articles.SyncArchive(ctx, entries)
	if err != nil {
		slog.Error("Search index sync failed", "error", err)
		report.IndexError = err.Error()
		return
	}

	report.IndexSynced = true
	slog.Debug("Search index synced", "upserted", upserted, "deleted", deleted)
}
