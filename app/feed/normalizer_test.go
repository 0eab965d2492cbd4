package feed

import (
	"strings"
	"testing"
	"time"
	"unicode/utf8"
)

func TestNormalizerDefaults(t *testing.T) {
	normalizer := NewNormalizer(400)

	item := normalizer.Run(RawEntry{Title: "   ", Link: ""})

	if item.Title != UntitledPlaceholder {
		t.Errorf("Expected placeholder title, got '%s'", item.Title)
	}
	if item.Link != "" {
		t.Errorf("Expected empty link, got '%s'", item.Link)
	}
	if item.Date != "" {
		t.Errorf("Expected empty date, got '%s'", item.Date)
	}
	if item.Description != "" {
		t.Errorf("Expected empty description, got '%s'", item.Description)
	}
	if item.Source != UnknownSource {
		t.Errorf("Expected unknown source, got '%s'", item.Source)
	}
}

func TestNormalizerTrimsFields(t *testing.T) {
	normalizer := NewNormalizer(400)

	item := normalizer.Run(RawEntry{
		Title:   "  Critical flaw patched \n",
		Link:    "  https://WWW.Example.com/post?id=1  ",
		Summary: "<div><p>First   paragraph.</p><p>Second&nbsp;one &amp; more</p></div>",
	})

	if item.Title != "Critical flaw patched" {
		t.Errorf("Expected trimmed title, got '%s'", item.Title)
	}
	if item.Link != "https://WWW.Example.com/post?id=1" {
		t.Errorf("Expected trimmed link, got '%s'", item.Link)
	}
	if item.Source != "example.com" {
		t.Errorf("Expected source 'example.com', got '%s'", item.Source)
	}
	if item.Description != "First paragraph. Second one & more" {
		t.Errorf("Unexpected description '%s'", item.Description)
	}
}

func TestNormalizerDateFallbackOrder(t *testing.T) {
	normalizer := NewNormalizer(400)
	published := time.Date(2024, 3, 1, 8, 30, 0, 0, time.FixedZone("CET", 3600))
	updated := time.Date(2024, 3, 2, 9, 0, 0, 0, time.UTC)

	tests := []struct {
		name  string
		entry RawEntry
		want  string
	}{
		{"structured published", RawEntry{PublishedParsed: &published, UpdatedParsed: &updated, Published: "raw"}, "2024-03-01T07:30:00Z"},
		{"structured updated", RawEntry{UpdatedParsed: &updated, Published: "raw published"}, "2024-03-02T09:00:00Z"},
		{"raw published", RawEntry{Published: " Fri, 01 Mar 2024 ", Updated: "raw updated"}, "Fri, 01 Mar 2024"},
		{"raw updated", RawEntry{Updated: "yesterday"}, "yesterday"},
		{"zero structured time", RawEntry{PublishedParsed: &time.Time{}, Published: "raw"}, "raw"},
		{"nothing", RawEntry{}, ""},
	}

	for _, tt := range tests {
		got := normalizer.Run(tt.entry).Date
		if got != tt.want {
			t.Errorf("%s: expected date '%s', got '%s'", tt.name, tt.want, got)
		}
	}
}

func TestNormalizerDescriptionFallsBackToContent(t *testing.T) {
	normalizer := NewNormalizer(400)

	item := normalizer.Run(RawEntry{Content: "<p>From content</p>"})
	if item.Description != "From content" {
		t.Errorf("Expected content fallback, got '%s'", item.Description)
	}
}

func TestNormalizerTruncatesLongDescription(t *testing.T) {
	normalizer := NewNormalizer(400)

	words := strings.Repeat("vulnerability ", 40) // 560 characters
	item := normalizer.Run(RawEntry{Summary: words[:500]})

	if n := utf8.RuneCountInString(item.Description); n > 400 {
		t.Errorf("Expected at most 400 characters, got %d", n)
	}
	if !strings.HasSuffix(item.Description, Ellipsis) {
		t.Errorf("Expected ellipsis suffix, got '%s'", item.Description)
	}
	body := strings.TrimSuffix(item.Description, Ellipsis)
	if !strings.HasSuffix(body, "vulnerability") {
		t.Errorf("Expected truncation on a word boundary, got '%s'", body)
	}
}

func TestSourceFromLink(t *testing.T) {
	tests := []struct {
		link string
		want string
	}{
		{"https://www.bleepingcomputer.com/news/1", "bleepingcomputer.com"},
		{"https://TheHackerNews.com/2024/01/x.html", "thehackernews.com"},
		{"http://blog.example.org:8080/a", "blog.example.org"},
		{"https://wwwexample.com/", "wwwexample.com"},
		{"", UnknownSource},
		{"not a url", UnknownSource},
		{"://broken", UnknownSource},
	}

	for _, tt := range tests {
		if got := SourceFromLink(tt.link); got != tt.want {
			t.Errorf("SourceFromLink(%q) = %q, want %q", tt.link, got, tt.want)
		}
	}
}
