package feed

import (
	"cmp"
	"net/url"
	"strings"
	"time"
)

const (
	UntitledPlaceholder = "Untitled"
	UnknownSource       = "unknown"
)

// Normalizer turns raw feed entries into Items. It never fails: malformed
// fields degrade to their defaults.
type Normalizer struct {
	descLimit int
}

func NewNormalizer(descLimit int) *Normalizer {
	return &Normalizer{descLimit: descLimit}
}

func (n *Normalizer) Run(entry RawEntry) Item {
	link := strings.TrimSpace(entry.Link)

	return Item{
		Title:       cmp.Or(strings.TrimSpace(entry.Title), UntitledPlaceholder),
		Link:        link,
		Date:        n.date(entry),
		Description: n.description(entry),
		Source:      SourceFromLink(link),
	}
}

// date falls back from structured timestamps to the raw text fields.
func (n *Normalizer) date(entry RawEntry) string {
	for _, t := range []*time.Time{entry.PublishedParsed, entry.UpdatedParsed} {
		if t != nil && !t.IsZero() && t.Year() <= 9999 {
			return FormatTimestamp(*t)
		}
	}

	return cmp.Or(strings.TrimSpace(entry.Published), strings.TrimSpace(entry.Updated))
}

func (n *Normalizer) description(entry RawEntry) string {
	raw := cmp.Or(entry.Summary, entry.Content)
	text := CollapseWhitespace(HTMLToText(raw))
	return Truncate(text, n.descLimit)
}

// SourceFromLink returns the lowercase host of link without a leading "www.".
func SourceFromLink(link string) string {
	u, err := url.Parse(link)
	if err != nil {
		return UnknownSource
	}

	host := strings.ToLower(u.Hostname())
	host = strings.TrimPrefix(host, "www.")
	if host == "" {
		return UnknownSource
	}
	return host
}
