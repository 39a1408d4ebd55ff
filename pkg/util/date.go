package util

import (
	"strconv"
	"time"
)

// ParseTime tries RFC3339, RFC3339Nano, and unix seconds. Returns (t, true) if any worked.
func ParseTime(s string) (time.Time, bool) {
	if s == "" {
		return time.Time{}, false
	}
	if t, err := time.Parse(time.RFC3339, s); err == nil {
		return t, true
	}
	if t, err := time.Parse(time.RFC3339Nano, s); err == nil {
		return t, true
	}
	if ts, err := strconv.ParseInt(s, 10, 64); err == nil && ts > 0 {
		return time.Unix(ts, 0), true
	}
	return time.Time{}, false
}

// ParseTimeDefault parses time or returns default if empty/invalid.
func ParseTimeDefault(s string, def time.Time) time.Time {
	if t, ok := ParseTime(s); ok {
		return t
	}
	return def
}

// ResolveWindow turns optional from/to strings into a closed range ending at now
// and spanning lookback when from is missing. An inverted range is swapped.
func ResolveWindow(from, to string, now time.Time, lookback time.Duration) (time.Time, time.Time) {
	end := ParseTimeDefault(to, now)
	start := ParseTimeDefault(from, end.Add(-lookback))
	if start.After(end) {
		start, end = end, start
	}
	return start.UTC(), end.UTC()
}
