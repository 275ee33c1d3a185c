package parse

import (
	"fmt"
	"strings"
	"time"
)

// Layouts accepted by Timestamp. Zoned layouts come first; the naive ones are
// interpreted in the location passed to TimestampIn.
var (
	zonedLayouts = []string{time.RFC3339Nano, time.RFC3339, "2006-01-02 15:04:05Z07:00", "2006-01-02 15:04:05.999999999Z07:00", "2006-01-02 15:04:05Z07", "2006-01-02 15:04:05.999999999Z07"}
	naiveLayouts = []string{"2006-01-02 15:04:05", "2006-01-02T15:04:05", "2006-01-02 15:04:05.999999999", "2006-01-02T15:04:05.999999999", "2006-01-02"}
)

// Timestamp converts an ISO-8601 string from a record store into a time.Time.
// Timestamps without an offset are taken as UTC.
func Timestamp(raw string) (time.Time, error) {
	return TimestampIn(raw, time.UTC)
}

// TimestampIn is Timestamp with naive timestamps interpreted in loc.
func TimestampIn(raw string, loc *time.Location) (time.Time, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		return time.Time{}, fmt.Errorf("empty timestamp")
	}
	if loc == nil {
		loc = time.UTC
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, loc); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("failed to parse timestamp %q", raw)
}

// FirstTimestamp parses the first non-empty candidate, e.g. sent_at before created_at.
func FirstTimestamp(candidates ...string) (time.Time, error) {
	for _, c := range candidates {
		if strings.TrimSpace(c) != "" {
			return Timestamp(c)
		}
	}
	return time.Time{}, fmt.Errorf("empty timestamp")
}

// Format renders t the way Timestamp reads it back.
func Format(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}
