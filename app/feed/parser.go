package feed

import (
	"bytes"
	"fmt"

	"github.com/mmcdole/gofeed"
)

type Parser struct {
	gofeedParser *gofeed.Parser
}

func NewParser() *Parser {
	return &Parser{
		gofeedParser: gofeed.NewParser(),
	}
}

// Run parses an RSS/Atom/JSON feed document and returns its entries in feed order.
func (p *Parser) Run(data []byte) (*Metadata, []RawEntry, error) {
	feed, err := p.gofeedParser.Parse(bytes.NewReader(data))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to parse feed: %w", err)
	}

	metadata := &Metadata{
		Title:       feed.Title,
		Link:        feed.Link,
		Description: feed.Description,
		Language:    feed.Language,
	}

	entries := make([]RawEntry, 0, len(feed.Items))
	for _, item := range feed.Items {
		if item == nil {
			continue
		}
		entries = append(entries, p.rawEntry(item))
	}

	return metadata, entries, nil
}

func (p *Parser) rawEntry(item *gofeed.Item) RawEntry {
	entry := RawEntry{
		Title:     item.Title,
		Link:      item.Link,
		Summary:   item.Description,
		Content:   item.Content,
		Published: item.Published,
		Updated:   item.Updated,
	}

	// Atom entries may carry only <link rel="alternate"> in Links
	if entry.Link == "" && len(item.Links) > 0 {
		entry.Link = item.Links[0]
	}

	if item.PublishedParsed != nil {
		entry.PublishedParsed = item.PublishedParsed
	}

	if item.UpdatedParsed != nil {
		entry.UpdatedParsed = item.UpdatedParsed
	}

	return entry
}
