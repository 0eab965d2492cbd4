package tasks

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/lysyi3m/secnews/app/feed"
)

type Result struct {
	Source   feed.Source
	Items    []feed.Item
	Err      error
	Duration time.Duration
}

type Orchestrator struct {
	httpClient *http.Client
	normalizer *feed.Normalizer
	pool       *Pool
	userAgent  string
	maxItems   int
	timeout    time.Duration
}

func NewOrchestrator(httpClient *http.Client, normalizer *feed.Normalizer, pool *Pool, userAgent string, maxItems int, timeout time.Duration) *Orchestrator {
	return &Orchestrator{
		httpClient: httpClient,
		normalizer: normalizer,
		pool:       pool,
		userAgent:  userAgent,
		maxItems:   maxItems,
		timeout:    timeout,
	}
}

// Run fetches every source and returns one result per source, in source order.
// A failing source yields an empty item list and never aborts the others.
func (o *Orchestrator) Run(ctx context.Context, sources []feed.Source) []Result {
	fetchTasks := make([]*FetchFeedTask, len(sources))
	queue := make([]TaskInterface, len(sources))
	for i, source := range sources {
		fetchTasks[i] = NewFetchFeedTask(source, o.httpClient, o.normalizer, o.userAgent, o.maxItems, o.timeout)
		queue[i] = fetchTasks[i]
	}

	errs := o.pool.Run(ctx, queue)

	results := make([]Result, len(sources))
	failed := 0
	for i, task := range fetchTasks {
		items := task.Items
		if errs[i] != nil || items == nil {
			items = []feed.Item{}
		}
		if errs[i] != nil {
			failed++
		}
		results[i] = Result{
			Source:   task.Source,
			Items:    items,
			Err:      errs[i],
			Duration: task.GetDuration(),
		}
	}

	slog.Debug("Fetch phase finished", "sources", len(sources), "failed", failed)

	return results
}

// Items returns the per-source item lists of results, keeping source order.
func Items(results []Result) [][]feed.Item {
	items := make([][]feed.Item, len(results))
	for i, result := range results {
		items[i] = result.Items
	}
	return items
}
