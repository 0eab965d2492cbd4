package tasks

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/lysyi3m/secnews/app/feed"
)

type FetchFeedTask struct {
	Task
	Source     feed.Source
	Items      []feed.Item
	httpClient *http.Client
	parser     *feed.Parser
	normalizer *feed.Normalizer
	userAgent  string
	maxItems   int
	timeout    time.Duration
}

func NewFetchFeedTask(source feed.Source, httpClient *http.Client, normalizer *feed.Normalizer, userAgent string, maxItems int, timeout time.Duration) *FetchFeedTask {
	return &FetchFeedTask{
		Task:       NewTask(TaskTypeFetchFeed, source.Name),
		Source:     source,
		httpClient: httpClient,
		parser:     feed.NewParser(),
		normalizer: normalizer,
		userAgent:  userAgent,
		maxItems:   maxItems,
		timeout:    timeout,
	}
}

// Execute downloads and normalizes the feed. On error Items stays empty.
func (t *FetchFeedTask) Execute(ctx context.Context) error {
	t.Items = nil

	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}

	data, err := t.fetchFeed(ctx, t.Source.URL)
	if err != nil {
		return fmt.Errorf("failed to fetch feed: %w", err)
	}

	metadata, entries, err := t.parser.Run(data)
	if err != nil {
		return fmt.Errorf("failed to parse feed: %w", err)
	}

	if t.maxItems > 0 && len(entries) > t.maxItems {
		entries = entries[:t.maxItems]
	}

	items := make([]feed.Item, 0, len(entries))
	for _, entry := range entries {
		items = append(items, t.normalizer.Run(entry))
	}
	t.Items = items

	slog.Info("Task completed",
		"type", "FetchFeed",
		"feed", t.FeedName,
		"title", metadata.Title,
		"duration", t.GetDuration(),
		"items", len(items))

	return nil
}

func (t *FetchFeedTask) fetchFeed(ctx context.Context, url string) ([]byte, error) {
	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	req.Header.Set("User-Agent", t.userAgent)

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch feed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("HTTP error: %d %s", resp.StatusCode, resp.Status)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}

	return data, nil
}
