package aggregate

import (
	"slices"
	"time"

	"github.com/lysyi3m/secnews/app/feed"
)

// Run merges per-source item lists into one collection. The first occurrence of
// an identity wins, so syndicated copies in later sources are dropped. The result
// is ordered newest first; items without a parseable date keep their relative
// order at the bottom.
func Run(results [][]feed.Item) []feed.Item {
	items := Dedupe(results)
	SortByDate(items)
	return items
}

func Dedupe(results [][]feed.Item) []feed.Item {
	seen := make(map[string]bool)
	items := make([]feed.Item, 0)

	for _, sourceItems := range results {
		for _, item := range sourceItems {
			id := item.Identity()
			if seen[id] {
				continue
			}
			seen[id] = true
			items = append(items, item)
		}
	}

	return items
}

// SortByDate stable-sorts items descending by date.
func SortByDate(items []feed.Item) {
	keys := make(map[string]time.Time, len(items))
	for _, item := range items {
		keys[item.Date] = SortKey(item.Date)
	}

	slices.SortStableFunc(items, func(a, b feed.Item) int {
		return keys[b.Date].Compare(keys[a.Date])
	})
}

// SortKey returns the timestamp for date, or the zero time (earliest possible)
// when date is empty or unparseable.
func SortKey(date string) time.Time {
	if t, ok := feed.ParseDate(date); ok {
		return t
	}
	return time.Time{}
}
