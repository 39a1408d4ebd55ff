package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"SignalSmith/internal/domain/models"
	domrepo "SignalSmith/internal/domain/repository"
	applogger "SignalSmith/pkg/logger"

	_ "github.com/lib/pq"
)

// Dialect selects placeholder style and DDL for the SQL journal.
type Dialect string

const (
	DialectClickHouse Dialect = "clickhouse"
	DialectPostgres   Dialect = "postgres"
)

// SQLJournal stores signals as JSON payload rows keyed by symbol and generation time.
type SQLJournal struct {
	db      *sql.DB
	table   string
	dialect Dialect
	ownsDB  bool
	l       *applogger.Logger
}

func NewSQLJournal(db *sql.DB, dialect Dialect, table string, log *applogger.Logger) *SQLJournal {
	if table == "" {
		table = "signals"
	}
	if log == nil {
		log = applogger.Nop()
	}
	return &SQLJournal{db: db, table: table, dialect: dialect, l: log}
}

// OpenPostgresJournal opens a lib/pq pool the journal owns and closes.
func OpenPostgresJournal(dsn, table string, maxOpen int, log *applogger.Logger) (*SQLJournal, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("postgres open: %w", err)
	}
	if maxOpen > 0 {
		db.SetMaxOpenConns(maxOpen)
		db.SetMaxIdleConns(maxOpen / 2)
	}
	db.SetConnMaxLifetime(5 * time.Minute)
	j := NewSQLJournal(db, DialectPostgres, table, log)
	j.ownsDB = true
	return j, nil
}

// Schema returns the idempotent DDL for the dialect.
func (j *SQLJournal) Schema() []string {
	if j.dialect == DialectPostgres {
		return []string{
			fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id           TEXT PRIMARY KEY,
    generated_at TIMESTAMPTZ NOT NULL,
    symbol       TEXT NOT NULL,
    direction    TEXT NOT NULL,
    price        DOUBLE PRECISION NOT NULL,
    seed         BIGINT NOT NULL,
    payload      JSONB NOT NULL
)`, j.table),
			fmt.Sprintf(`CREATE INDEX IF NOT EXISTS %s_symbol_ts_idx ON %s (symbol, generated_at DESC)`, j.table, j.table),
		}
	}
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    id           String,
    generated_at DateTime64(3, 'UTC'),
    symbol       LowCardinality(String),
    direction    LowCardinality(String),
    price        Float64,
    seed         Int64,
    payload      String
) ENGINE = MergeTree
PARTITION BY toYYYYMM(generated_at)
ORDER BY (symbol, generated_at)`, j.table),
	}
}

func (j *SQLJournal) Init(ctx context.Context) error {
	for _, stmt := range j.Schema() {
		if _, err := j.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init %s journal schema: %w", j.dialect, err)
		}
	}
	j.l.Info("signal journal ready", applogger.String("dialect", string(j.dialect)), applogger.String("table", j.table))
	return nil
}

func (j *SQLJournal) Store(ctx context.Context, s models.Signal) error {
	payload, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("encode signal: %w", err)
	}
	q := fmt.Sprintf("INSERT INTO %s (id, generated_at, symbol, direction, price, seed, payload) VALUES (%s)",
		j.table, placeholders(j.dialect, 1, 7))
	_, err = j.db.ExecContext(ctx, q,
		s.ID,
		s.GeneratedAt.UTC(),
		s.Symbol,
		string(s.Direction),
		s.Price,
		s.Seed,
		string(payload),
	)
	if err != nil {
		j.l.Error("journal insert failed", applogger.String("symbol", s.Symbol), applogger.Error(err))
		return fmt.Errorf("store signal: %w", err)
	}
	return nil
}

// Query returns signals for symbol in [from, to], newest first.
func (j *SQLJournal) Query(ctx context.Context, symbol string, from, to time.Time, limit int) ([]models.Signal, error) {
	q := fmt.Sprintf("SELECT payload FROM %s WHERE symbol = %s AND generated_at >= %s AND generated_at <= %s ORDER BY generated_at DESC LIMIT %s",
		j.table, ph(j.dialect, 1), ph(j.dialect, 2), ph(j.dialect, 3), ph(j.dialect, 4))
	rows, err := j.db.QueryContext(ctx, q, symbol, from.UTC(), to.UTC(), limit)
	if err != nil {
		return nil, fmt.Errorf("query signals: %w", err)
	}
	defer rows.Close()

	out := make([]models.Signal, 0, limit)
	for rows.Next() {
		var payload []byte
		if err := rows.Scan(&payload); err != nil {
			return nil, fmt.Errorf("scan signal: %w", err)
		}
		var s models.Signal
		if err := json.Unmarshal(payload, &s); err != nil {
			j.l.Warn("skipping undecodable journal row", applogger.String("symbol", symbol), applogger.Error(err))
			continue
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func (j *SQLJournal) Health(ctx context.Context) error {
	return j.db.PingContext(ctx)
}

// Close closes the pool only when the journal opened it.
func (j *SQLJournal) Close() error {
	if j.ownsDB {
		return j.db.Close()
	}
	return nil
}

func ph(d Dialect, n int) string {
	if d == DialectPostgres {
		return "$" + strconv.Itoa(n)
	}
	return "?"
}

func placeholders(d Dialect, start, count int) string {
	parts := make([]string, count)
	for i := range parts {
		parts[i] = ph(d, start+i)
	}
	return strings.Join(parts, ", ")
}

var _ domrepo.SignalJournal = (*SQLJournal)(nil)
