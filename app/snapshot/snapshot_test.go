package snapshot

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/lysyi3m/secnews/app/feed"
	"github.com/lysyi3m/secnews/app/storage"
)

var testItems = []feed.Item{
	{Title: "One", Link: "https://a.example/1", Date: "2024-01-02T00:00:00Z", Description: "first", Source: "a.example"},
	{Title: "Two", Link: "https://a.example/2", Date: "", Description: "second", Source: "a.example"},
}

func TestWriterFirstRunWrites(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.json")
	writer := NewWriter(path)
	now := time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)

	written, err := writer.Run(testItems, now)
	if err != nil {
		t.Fatal(err)
	}
	if !written {
		t.Fatal("Expected first run to write")
	}

	var doc Document
	if _, err := storage.ReadDocument(path, &doc); err != nil {
		t.Fatal(err)
	}
	if doc.LastUpdated != "2024-01-03T12:00:00Z" {
		t.Errorf("Expected last_updated '2024-01-03T12:00:00Z', got '%s'", doc.LastUpdated)
	}
	if doc.Count != 2 || len(doc.Items) != 2 {
		t.Errorf("Expected 2 items, got count=%d len=%d", doc.Count, len(doc.Items))
	}
}

func TestWriterSkipsUnchangedItems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.json")
	writer := NewWriter(path)

	if _, err := writer.Run(testItems, time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}
	before, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}

	written, err := writer.Run(testItems, time.Date(2024, 1, 3, 13, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if written {
		t.Error("Expected unchanged items to skip the write")
	}

	after, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Equal(before, after) {
		t.Error("Expected snapshot file to be untouched")
	}
}

func TestWriterRewritesChangedItems(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.json")
	writer := NewWriter(path)

	if _, err := writer.Run(testItems, time.Date(2024, 1, 3, 12, 0, 0, 0, time.UTC)); err != nil {
		t.Fatal(err)
	}

	changed := append([]feed.Item{}, testItems...)
	changed[1].Description = "second, edited"

	written, err := writer.Run(changed, time.Date(2024, 1, 3, 13, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if !written {
		t.Error("Expected changed items to be written")
	}
}

func TestWriterLegacyBareArrayCountsAsEqual(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.json")
	data, err := storage.Marshal(testItems)
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		t.Fatal(err)
	}

	written, err := NewWriter(path).Run(testItems, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if written {
		t.Error("Expected legacy snapshot with same items to skip the write")
	}
}

func TestWriterCorruptSnapshotIsRewritten(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.json")
	if err := os.WriteFile(path, []byte("{not json"), 0644); err != nil {
		t.Fatal(err)
	}

	written, err := NewWriter(path).Run(testItems, time.Now())
	if err != nil {
		t.Fatal(err)
	}
	if !written {
		t.Error("Expected corrupt snapshot to be replaced")
	}
}

func TestWriterEmptyItemsWritesArray(t *testing.T) {
	path := filepath.Join(t.TempDir(), "news.json")

	if _, err := NewWriter(path).Run(nil, time.Now()); err != nil {
		t.Fatal(err)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.Contains(data, []byte(`"items": []`)) {
		t.Errorf("Expected empty items array, got %s", data)
	}
}
