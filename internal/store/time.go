package store

import (
	"fmt"
	"time"
)

const sqliteTimeLayout = "2006-01-02 15:04:05.000000000Z"

// formatSQLiteTime renders t in UTC with fixed-width fractional seconds, so
// stored values sort lexically in time order.
func formatSQLiteTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(sqliteTimeLayout)
}

// parseSQLiteTime parses a timestamp string stored by this package or
// produced by SQLite's own datetime functions. Times without a zone are UTC.
func parseSQLiteTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	for _, f := range sqliteTimeFormats {
		if t, err := time.Parse(f, s); err == nil {
			return t.UTC(), nil
		}
	}
	for _, f := range sqliteTimeFormatsNoTZ {
		if t, err := time.ParseInLocation(f, s, time.UTC); err == nil {
			return t, nil
		}
	}
	return time.Time{}, fmt.Errorf("unable to parse time: %q", s)
}

var sqliteTimeFormats = []string{
	sqliteTimeLayout,
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
}

var sqliteTimeFormatsNoTZ = []string{
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
}
