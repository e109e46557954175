package providerlog

import (
	"context"
	"path/filepath"
	"testing"
	"time"
)

func TestSQLiteWriter_WriteAndClose(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "providerlog.db")
	w, err := NewSQLiteWriter(dsn)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	defer w.Close()

	entry := Entry{
		TraceID:     "trace-1",
		WrestlerID:  "w-1",
		Kind:        "chart_insight",
		Generator:   "mock",
		Locale:      "en-US",
		Fingerprint: "abc123",
		DurationMs:  42,
	}
	if err := w.Write(context.Background(), entry); err != nil {
		t.Fatalf("write: %v", err)
	}

	var count int
	var createdAt time.Time
	row := w.db.QueryRow(`SELECT COUNT(*) FROM provider_logs`)
	if err := row.Scan(&count); err != nil {
		t.Fatalf("scan count: %v", err)
	}
	if count != 1 {
		t.Fatalf("expected 1 row, got %d", count)
	}
	row = w.db.QueryRow(`SELECT created_at FROM provider_logs LIMIT 1`)
	if err := row.Scan(&createdAt); err != nil {
		t.Fatalf("scan created_at: %v", err)
	}
	if createdAt.IsZero() {
		t.Error("expected created_at to be filled in")
	}
}

func TestSQLiteWriter_RecordsError(t *testing.T) {
	dsn := filepath.Join(t.TempDir(), "providerlog.db")
	w, err := NewSQLiteWriter(dsn)
	if err != nil {
		t.Fatalf("open writer: %v", err)
	}
	defer w.Close()

	entry := Entry{
		WrestlerID:   "w-1",
		Kind:         "training_program",
		Generator:    "openai",
		DurationMs:   1200,
		ErrorMessage: "generator timed out",
	}
	if err := w.Write(context.Background(), entry); err != nil {
		t.Fatalf("write: %v", err)
	}

	var msg string
	row := w.db.QueryRow(`SELECT error_message FROM provider_logs LIMIT 1`)
	if err := row.Scan(&msg); err != nil {
		t.Fatalf("scan: %v", err)
	}
	if msg != "generator timed out" {
		t.Errorf("got error message %q", msg)
	}
}

func TestNoopWriter(t *testing.T) {
	if err := (NoopWriter{}).Write(context.Background(), Entry{}); err != nil {
		t.Fatalf("noop write: %v", err)
	}
}
