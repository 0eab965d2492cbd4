package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/lysyi3m/secnews/app/archive"
	"github.com/lysyi3m/secnews/app/database"
	"github.com/lysyi3m/secnews/app/feed"
	"github.com/lysyi3m/secnews/app/history"
	"github.com/lysyi3m/secnews/app/pipeline"
	"github.com/lysyi3m/secnews/app/snapshot"
	"github.com/lysyi3m/secnews/app/storage"
)

type mockPipeline struct {
	dir     string
	history *history.Partitioner
	report  *pipeline.Report
	runErr  error
	runs    int
}

func newMockPipeline(t *testing.T) *mockPipeline {
	t.Helper()
	dir := t.TempDir()
	return &mockPipeline{dir: dir, history: history.NewPartitioner(filepath.Join(dir, "history"), 90)}
}

func (m *mockPipeline) Run(ctx context.Context) (*pipeline.Report, error) {
	m.runs++
	if m.runErr != nil {
		return nil, m.runErr
	}
	m.report = &pipeline.Report{ID: "run-1", StartedAt: time.Date(2024, 5, 10, 6, 0, 0, 0, time.UTC), Items: 2}
	return m.report, nil
}

func (m *mockPipeline) LastReport() *pipeline.Report { return m.report }

func (m *mockPipeline) Sources() []feed.Source { return feed.DefaultSources() }

func (m *mockPipeline) SnapshotPath() string { return filepath.Join(m.dir, "news.json") }

func (m *mockPipeline) ArchivePath() string { return filepath.Join(m.dir, "archive.json") }

func (m *mockPipeline) History() *history.Partitioner { return m.history }

var testItems = []feed.Item{
	{Title: "Chrome zero-day", Link: "https://a.example/1", Date: "2024-05-09T10:00:00Z", Description: "Exploited", Source: "a.example"},
	{Title: "Botnet takedown", Link: "https://b.example/2", Date: "2024-05-08T10:00:00Z", Description: "Europol", Source: "b.example"},
}

func writeViews(t *testing.T, m *mockPipeline) {
	t.Helper()
	now := time.Date(2024, 5, 10, 6, 0, 0, 0, time.UTC)

	if _, err := snapshot.NewWriter(m.SnapshotPath()).Run(testItems, now); err != nil {
		t.Fatal(err)
	}
	result, err := archive.NewReconciler(m.ArchivePath(), 90).Run(testItems, now)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := m.history.Run(result.Entries, now); err != nil {
		t.Fatal(err)
	}
}

func doRequest(t *testing.T, handler http.Handler, method, path string, headers map[string]string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, nil)
	for k, v := range headers {
		req.Header.Set(k, v)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestViewsEndpoints(t *testing.T) {
	m := newMockPipeline(t)
	writeViews(t, m)
	router := NewServer(NewHandler(m, nil, "test"), "")

	w := doRequest(t, router, "GET", "/news", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200 for /news, got %d", w.Code)
	}
	var news snapshot.Document
	if err := json.Unmarshal(w.Body.Bytes(), &news); err != nil {
		t.Fatal(err)
	}
	if news.Count != 2 {
		t.Errorf("Expected 2 news items, got %d", news.Count)
	}
	if !strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		t.Errorf("Unexpected content type %s", w.Header().Get("Content-Type"))
	}

	if w := doRequest(t, router, "GET", "/archive", nil); w.Code != http.StatusOK {
		t.Errorf("Expected 200 for /archive, got %d", w.Code)
	}

	w = doRequest(t, router, "GET", "/history", nil)
	var index history.Index
	if err := json.Unmarshal(w.Body.Bytes(), &index); err != nil {
		t.Fatal(err)
	}
	if len(index.Days) != 1 || index.Days[0].Date != "2024-05-10" {
		t.Errorf("Unexpected history index %+v", index)
	}

	if w := doRequest(t, router, "GET", "/history/2024-05-10", nil); w.Code != http.StatusOK {
		t.Errorf("Expected 200 for existing day, got %d", w.Code)
	}
	if w := doRequest(t, router, "GET", "/history/2024-05-01", nil); w.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for missing day, got %d", w.Code)
	}
	if w := doRequest(t, router, "GET", "/history/yesterday", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for malformed day, got %d", w.Code)
	}
}

func TestViewsMissing(t *testing.T) {
	router := NewServer(NewHandler(newMockPipeline(t), nil, "test"), "")

	for _, path := range []string{"/news", "/archive", "/history", "/feed.xml"} {
		if w := doRequest(t, router, "GET", path, nil); w.Code != http.StatusNotFound {
			t.Errorf("Expected 404 for %s before the first run, got %d", path, w.Code)
		}
	}
}

func TestFeedEndpoint(t *testing.T) {
	m := newMockPipeline(t)
	writeViews(t, m)
	router := NewServer(NewHandler(m, nil, "test"), "")

	w := doRequest(t, router, "GET", "/feed.xml", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	if w.Header().Get("X-Feed-Items") != "2" {
		t.Errorf("Expected X-Feed-Items 2, got %s", w.Header().Get("X-Feed-Items"))
	}

	_, entries, err := feed.NewParser().Run(w.Body.Bytes())
	if err != nil {
		t.Fatalf("Expected valid RSS, got: %v", err)
	}
	if len(entries) != 2 || entries[0].Title != "Chrome zero-day" {
		t.Errorf("Unexpected entries %+v", entries)
	}
}

func TestHealthAndStats(t *testing.T) {
	m := newMockPipeline(t)
	writeViews(t, m)
	router := NewServer(NewHandler(m, nil, "test"), "")

	w := doRequest(t, router, "GET", "/health", nil)
	var health map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &health); err != nil {
		t.Fatal(err)
	}
	if health["sources"] != float64(len(feed.DefaultSources())) {
		t.Errorf("Unexpected source count %v", health["sources"])
	}

	w = doRequest(t, router, "GET", "/stats", nil)
	var stats map[string]interface{}
	if err := json.Unmarshal(w.Body.Bytes(), &stats); err != nil {
		t.Fatal(err)
	}
	archiveStats, ok := stats["archive"].(map[string]interface{})
	if !ok || archiveStats["count"] != float64(2) {
		t.Errorf("Expected archive count 2, got %v", stats["archive"])
	}
}

func TestAuthMiddleware(t *testing.T) {
	m := newMockPipeline(t)
	router := NewServer(NewHandler(m, nil, "test"), "secret")

	tests := []struct {
		name    string
		headers map[string]string
		code    int
	}{
		{"missing key", nil, http.StatusUnauthorized},
		{"wrong key", map[string]string{"X-API-Key": "nope"}, http.StatusUnauthorized},
		{"header key", map[string]string{"X-API-Key": "secret"}, http.StatusOK},
		{"bearer key", map[string]string{"Authorization": "Bearer secret"}, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doRequest(t, router, "POST", "/api/run", tt.headers)
			if w.Code != tt.code {
				t.Errorf("Expected %d, got %d", tt.code, w.Code)
			}
		})
	}

	if m.runs != 2 {
		t.Errorf("Expected 2 authorized runs, got %d", m.runs)
	}

	if w := doRequest(t, router, "GET", "/news", nil); w.Code == http.StatusUnauthorized {
		t.Error("Expected public views to stay open")
	}
}

func TestAPIRunConflict(t *testing.T) {
	m := newMockPipeline(t)
	m.runErr = fmt.Errorf("pipeline already running: %w", storage.ErrLocked)
	router := NewServer(NewHandler(m, nil, "test"), "")

	if w := doRequest(t, router, "POST", "/api/run", nil); w.Code != http.StatusConflict {
		t.Errorf("Expected 409, got %d", w.Code)
	}

	m.runErr = fmt.Errorf("failed to write archive: disk full")
	if w := doRequest(t, router, "POST", "/api/run", nil); w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
}

func TestAPISearch(t *testing.T) {
	m := newMockPipeline(t)

	disabled := NewServer(NewHandler(m, nil, "test"), "")
	if w := doRequest(t, disabled, "GET", "/api/search?q=chrome", nil); w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503 without index, got %d", w.Code)
	}

	db, err := database.NewConnection(filepath.Join(t.TempDir(), "secnews.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	articles := database.NewArticleRepository(db)

	entries := make([]archive.Entry, len(testItems))
	for i, item := range testItems {
		entries[i] = archive.Entry{Item: item, ID: item.Identity(), FirstSeen: "2024-05-10T06:00:00Z", LastSeen: "2024-05-10T06:00:00Z"}
	}
	if _, _, err := articles.SyncArchive(context.Background(), entries); err != nil {
		t.Fatal(err)
	}

	router := NewServer(NewHandler(m, articles, "test"), "")

	w := doRequest(t, router, "GET", "/api/search?q=europol", nil)
	if w.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", w.Code)
	}
	var body struct {
		Count int             `json:"count"`
		Items []archive.Entry `json:"items"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.Count != 1 || body.Items[0].Title != "Botnet takedown" {
		t.Errorf("Unexpected search result %+v", body)
	}

	if w := doRequest(t, router, "GET", "/api/search?q=x&limit=0", nil); w.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for invalid limit, got %d", w.Code)
	}
}
