package domain

import (
	"strings"
	"time"
)

// DefaultMinPostDate is the default recency cutoff for ingested posts.
var DefaultMinPostDate = time.Date(2024, time.November, 25, 0, 0, 0, 0, time.UTC)

// postTimeLayouts are the timestamp shapes seen in crawled pages: the
// datetime attribute (RFC 3339 with or without fraction), a bare date, and
// the human-readable title attribute.
var postTimeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02T15:04:05",
	"2006-01-02",
	"Jan 2, 2006",
	"January 2, 2006",
}

// ParsePostTime parses a raw post timestamp. It reports false when s is empty
// or matches none of the known layouts.
func ParsePostTime(s string) (time.Time, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, false
	}
	for _, layout := range postTimeLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.UTC(), true
		}
	}
	return time.Time{}, false
}

// IsRecent reports whether a post should be kept under the recency cutoff.
// A timestamp equal to the cutoff is kept. Missing or unparseable timestamps
// are kept too.
func IsRecent(timestamp string, cutoff time.Time) bool {
	t, ok := ParsePostTime(timestamp)
	if !ok {
		return true
	}
	return !t.Before(cutoff)
}
