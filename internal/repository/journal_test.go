package repository

import (
	"context"
	"strings"
	"testing"
	"time"

	"SignalSmith/internal/domain/models"
)

func TestPlaceholders(t *testing.T) {
	if got := placeholders(DialectPostgres, 1, 3); got != "$1, $2, $3" {
		t.Fatalf("postgres placeholders = %q", got)
	}
	if got := placeholders(DialectClickHouse, 1, 3); got != "?, ?, ?" {
		t.Fatalf("clickhouse placeholders = %q", got)
	}
}

func TestSchemaPerDialect(t *testing.T) {
	pg := NewSQLJournal(nil, DialectPostgres, "sig", nil).Schema()
	if len(pg) != 2 || !strings.Contains(pg[0], "JSONB") || !strings.Contains(pg[1], "sig_symbol_ts_idx") {
		t.Fatalf("unexpected postgres schema %v", pg)
	}
	ch := NewSQLJournal(nil, DialectClickHouse, "", nil).Schema()
	if len(ch) != 1 || !strings.Contains(ch[0], "MergeTree") || !strings.Contains(ch[0], "signals") {
		t.Fatalf("unexpected clickhouse schema %v", ch)
	}
}

func TestMemoryJournalNewestFirstAndFiltered(t *testing.T) {
	j := NewMemoryJournal(3)
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	ctx := context.Background()
	for i := 0; i < 5; i++ {
		sym := "bitcoin"
		if i == 3 {
			sym = "ethereum"
		}
		_ = j.Store(ctx, models.Signal{Symbol: sym, Seed: int64(i), GeneratedAt: base.Add(time.Duration(i) * time.Minute)})
	}

	got, err := j.Query(ctx, "bitcoin", base, base.Add(time.Hour), 10)
	if err != nil {
		t.Fatalf("Query: %v", err)
	}
	// ring keeps seeds 2,3,4; seed 3 is ethereum.
	if len(got) != 2 || got[0].Seed != 4 || got[1].Seed != 2 {
		t.Fatalf("unexpected result %+v", got)
	}

	got, _ = j.Query(ctx, "bitcoin", base, base.Add(3*time.Minute), 10)
	if len(got) != 1 || got[0].Seed != 2 {
		t.Fatalf("window filter failed: %+v", got)
	}
	got, _ = j.Query(ctx, "bitcoin", base, base.Add(time.Hour), 1)
	if len(got) != 1 || got[0].Seed != 4 {
		t.Fatalf("limit failed: %+v", got)
	}
}
