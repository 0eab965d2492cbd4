package feed

import (
	"strings"
	"time"

	"github.com/araddon/dateparse"
)

// TimestampLayout is the ISO-8601 UTC layout used for item dates and archive timestamps.
const TimestampLayout = "2006-01-02T15:04:05Z"

func FormatTimestamp(t time.Time) string {
	return t.UTC().Format(TimestampLayout)
}

// ParseDate interprets an item date or archive timestamp. Feeds hand us RFC 1123,
// RFC 3339 and a long tail of vendor formats; anything unrecognised reports false.
func ParseDate(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}

	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t.UTC(), true
	}

	t, err := dateparse.ParseIn(s, time.UTC)
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}
