package util

import (
	"strconv"
	"testing"
	"time"
)

func TestParseTimeRFC3339(t *testing.T) {
	s := "2024-10-10T10:10:10Z"
	got, ok := ParseTime(s)
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.UTC().Format(time.RFC3339) != s {
		t.Fatalf("unexpected time %v", got)
	}
}

func TestParseTimeUnix(t *testing.T) {
	ts := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC).Unix()
	got, ok := ParseTime(strconv.FormatInt(ts, 10))
	if !ok {
		t.Fatalf("expected ok")
	}
	if got.Unix() != ts {
		t.Fatalf("unexpected unix %v", got.Unix())
	}
}

func TestParseTimeDefault(t *testing.T) {
	def := time.Date(2024, 10, 10, 10, 10, 10, 0, time.UTC)
	got := ParseTimeDefault("", def)
	if !got.Equal(def) {
		t.Fatalf("expected default")
	}
}

func TestResolveWindowDefaults(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	from, to := ResolveWindow("", "", now, 24*time.Hour)
	if !to.Equal(now) {
		t.Fatalf("expected to=now, got %v", to)
	}
	if !from.Equal(now.Add(-24 * time.Hour)) {
		t.Fatalf("unexpected from %v", from)
	}
}

func TestResolveWindowSwapsInverted(t *testing.T) {
	now := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	from, to := ResolveWindow("2025-03-02T00:00:00Z", "2025-03-01T00:00:00Z", now, time.Hour)
	if !from.Before(to) {
		t.Fatalf("expected from before to, got %v %v", from, to)
	}
}
