// Package providerlog records every AI generator invocation for audit:
// who asked for what kind of generation, through which generator, how
// long it took, and how it ended. Cache hits are never logged here —
// only real generator calls.
package providerlog

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	_ "github.com/lib/pq"
	_ "modernc.org/sqlite"
)

// Entry is one generator invocation.
type Entry struct {
	TraceID      string
	WrestlerID   string
	Kind         string // chart_insight, advanced_insight, training_program
	Generator    string
	Locale       string
	Fingerprint  string
	DurationMs   int64
	ErrorMessage string // empty on success
	CreatedAt    time.Time
}

// Writer persists generator invocation entries.
type Writer interface {
	Write(ctx context.Context, entry Entry) error
}

// NoopWriter ignores all log writes.
type NoopWriter struct{}

func (NoopWriter) Write(_ context.Context, _ Entry) error { return nil }

// SQLWriter persists entries to SQLite/Postgres.
type SQLWriter struct {
	db      *sql.DB
	dialect string
}

func NewSQLiteWriter(dsn string) (*SQLWriter, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "insight-providerlog.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite provider log writer: %w", err)
	}
	db.SetMaxOpenConns(1)
	w := &SQLWriter{db: db, dialect: "sqlite"}
	if err := w.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func NewPostgresWriter(dsn string) (*SQLWriter, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres provider log writer: %w", err)
	}
	w := &SQLWriter{db: db, dialect: "postgres"}
	if err := w.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return w, nil
}

func (w *SQLWriter) init() error {
	if err := w.db.Ping(); err != nil {
		return fmt.Errorf("ping %s provider log writer: %w", w.dialect, err)
	}

	ddl := `
CREATE TABLE IF NOT EXISTS provider_logs (
	id INTEGER PRIMARY KEY,
	trace_id TEXT,
	wrestler_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	generator TEXT NOT NULL,
	locale TEXT,
	fingerprint TEXT,
	duration_ms INTEGER NOT NULL,
	error_message TEXT,
	created_at TIMESTAMP NOT NULL
);`

	if w.dialect == "postgres" {
		ddl = `
CREATE TABLE IF NOT EXISTS provider_logs (
	id BIGSERIAL PRIMARY KEY,
	trace_id TEXT,
	wrestler_id TEXT NOT NULL,
	kind TEXT NOT NULL,
	generator TEXT NOT NULL,
	locale TEXT,
	fingerprint TEXT,
	duration_ms INTEGER NOT NULL,
	error_message TEXT,
	created_at TIMESTAMPTZ NOT NULL
);`
	}

	if _, err := w.db.Exec(ddl); err != nil {
		return fmt.Errorf("initialize provider log schema: %w", err)
	}
	return nil
}

func (w *SQLWriter) Write(ctx context.Context, entry Entry) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	query := `INSERT INTO provider_logs(trace_id, wrestler_id, kind, generator, locale, fingerprint, duration_ms, error_message, created_at)
	VALUES(?, ?, ?, ?, ?, ?, ?, ?, ?)`
	if w.dialect == "postgres" {
		query = `INSERT INTO provider_logs(trace_id, wrestler_id, kind, generator, locale, fingerprint, duration_ms, error_message, created_at)
		VALUES($1, $2, $3, $4, $5, $6, $7, $8, $9)`
	}

	_, err := w.db.ExecContext(ctx, query,
		entry.TraceID,
		entry.WrestlerID,
		entry.Kind,
		entry.Generator,
		entry.Locale,
		entry.Fingerprint,
		entry.DurationMs,
		entry.ErrorMessage,
		entry.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("write provider log: %w", err)
	}
	return nil
}

func (w *SQLWriter) Close() error {
	if w == nil || w.db == nil {
		return nil
	}
	return w.db.Close()
}
