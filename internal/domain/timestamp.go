package domain

import (
	"strings"
	"time"
	_ "time/tzdata" // Europe/London on hosts without a zoneinfo database
)

// CleanTimestampLayout is the layout timestamps are written with in the clean dataset.
const CleanTimestampLayout = "2006-01-02 15:04:05"

// zonedLayouts carry their own offset and are converted to UTC.
var zonedLayouts = []string{
	time.RFC3339,
	"2006-01-02 15:04:05Z07:00",
	"2006-01-02T15:04Z07:00",
}

// ukTime is the zone providers publish wall-clock times in.
var ukTime = mustLoadLocation("Europe/London")

func mustLoadLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		panic(err) // embedded by time/tzdata
	}
	return loc
}

// naiveLayouts have no zone and are read as UK local time, so summer times
// are an hour ahead of UTC. Slash dates are day-first because every source
// is a UK operator.
var naiveLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02T15:04",
	CleanTimestampLayout,
	"2006-01-02 15:04",
	"2006-01-02",
	"2/1/2006 15:04:05",
	"2/1/2006 15:04",
	"2/1/2006",
	"15:04 2/1/2006",
	"15:04:05 2/1/2006",
	"2 Jan 2006 15:04",
	"2 January 2006 15:04",
	"2 Jan 2006, 15:04",
	"Mon 2 Jan 2006 15:04",
	"Monday 2 January 2006 15:04",
}

// ParseTimestamp parses a provider timestamp. It returns nil for blank values,
// placeholders and anything that matches no known layout; it never fails.
func ParseTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if isPlaceholder(strings.ToLower(s)) {
		return nil
	}

	for _, layout := range zonedLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			t = t.UTC()
			return &t
		}
	}
	for _, layout := range naiveLayouts {
		if t, err := time.ParseInLocation(layout, s, ukTime); err == nil {
			t = t.UTC()
			return &t
		}
	}
	return nil
}

// ParseCleanTimestamp parses a timestamp written by FormatTimestamp. Clean
// values are already UTC and are not shifted again.
func ParseCleanTimestamp(s string) *time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if t, err := time.ParseInLocation(CleanTimestampLayout, s, time.UTC); err == nil {
		return &t
	}
	return ParseTimestamp(s)
}

// FormatTimestamp renders a nullable timestamp for the clean dataset.
func FormatTimestamp(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.UTC().Format(CleanTimestampLayout)
}
