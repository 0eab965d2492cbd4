package feed

import (
	"time"
)

// Feed processing types

type Source struct {
	Name string `yaml:"name"`
	URL  string `yaml:"url"`
}

type Metadata struct {
	Title       string
	Link        string
	Description string
	Language    string
}

// RawEntry holds the fields of a single feed entry as delivered by the feed document.
type RawEntry struct {
	Title           string
	Link            string
	Summary         string
	Content         string
	Published       string
	Updated         string
	PublishedParsed *time.Time
	UpdatedParsed   *time.Time
}

type Item struct {
	Title       string `json:"title"`
	Link        string `json:"link"`
	Date        string `json:"date"`
	Description string `json:"description"`
	Source      string `json:"source"`
}

// Identity returns the dedup and archive key of the item.
func (i Item) Identity() string {
	return Identity(i.Title, i.Link)
}

// Configuration types

type SourcesConfig struct {
	Sources []Source `yaml:"sources"`
}
