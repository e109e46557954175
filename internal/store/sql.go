package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	// Register Postgres SQL driver.
	_ "github.com/lib/pq"
	// Register SQLite SQL driver.
	_ "modernc.org/sqlite"

	"github.com/mat-labs/insight-engine/internal/scoring"
)

type sqlDialect string

const (
	dialectSQLite   sqlDialect = "sqlite"
	dialectPostgres sqlDialect = "postgres"
)

// SQLStore implements Store on SQLite or Postgres.
type SQLStore struct {
	db      *sql.DB
	dialect sqlDialect
}

// NewSQLite creates a SQLite-backed store. dsn can be a file path or a
// SQLite DSN; it defaults to insight-engine.db.
func NewSQLite(dsn string) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		dsn = "insight-engine.db"
	}
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite store: %w", err)
	}
	// SQLite allows one writer; funnel everything through one connection
	// rather than surfacing SQLITE_BUSY under concurrent inserts.
	db.SetMaxOpenConns(1)
	s := &SQLStore{db: db, dialect: dialectSQLite}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

// NewPostgres creates a Postgres-backed store.
func NewPostgres(dsn string) (*SQLStore, error) {
	dsn = strings.TrimSpace(dsn)
	if dsn == "" {
		return nil, fmt.Errorf("postgres dsn is required")
	}
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("open postgres store: %w", err)
	}
	s := &SQLStore{db: db, dialect: dialectPostgres}
	if err := s.init(); err != nil {
		_ = db.Close()
		return nil, err
	}
	return s, nil
}

func (s *SQLStore) init() error {
	if err := s.db.Ping(); err != nil {
		return fmt.Errorf("ping %s store: %w", s.dialect, err)
	}

	timestamp := "TIMESTAMP"
	if s.dialect == dialectPostgres {
		timestamp = "TIMESTAMPTZ"
	}

	ddl := []string{
		// The UNIQUE constraint is what makes first-writer-wins race-safe:
		// the database, not application logic, arbitrates conflicting
		// inserts.
		`CREATE TABLE IF NOT EXISTS ai_chart_insights (
	id TEXT PRIMARY KEY,
	wrestler_id TEXT NOT NULL,
	chart_id TEXT NOT NULL,
	fingerprint TEXT NOT NULL,
	summary TEXT NOT NULL,
	patterns_json TEXT,
	recommendations_json TEXT,
	anomalies_json TEXT,
	warnings_json TEXT,
	confidence REAL,
	created_at ` + timestamp + ` NOT NULL,
	UNIQUE (wrestler_id, chart_id, fingerprint)
);`,
		`CREATE INDEX IF NOT EXISTS ix_insights_wrestler ON ai_chart_insights (wrestler_id);`,
		`CREATE TABLE IF NOT EXISTS section_scores (
	id TEXT PRIMARY KEY,
	wrestler_id TEXT NOT NULL,
	section_key TEXT NOT NULL,
	score REAL NOT NULL,
	grade TEXT NOT NULL,
	recorded_at ` + timestamp + ` NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS ix_section_scores_key ON section_scores (wrestler_id, section_key, recorded_at);`,
		`CREATE TABLE IF NOT EXISTS score_drivers (
	id TEXT PRIMARY KEY,
	section_score_id TEXT NOT NULL,
	metric_name TEXT NOT NULL,
	impact TEXT NOT NULL,
	weight REAL NOT NULL
);`,
		`CREATE INDEX IF NOT EXISTS ix_score_drivers_score ON score_drivers (section_score_id);`,
	}
	for _, stmt := range ddl {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("initialize %s schema: %w", s.dialect, err)
		}
	}
	return nil
}

// q rewrites ?-style placeholders to $n for Postgres.
func (s *SQLStore) q(query string) string {
	if s.dialect != dialectPostgres {
		return query
	}
	var b strings.Builder
	n := 0
	for _, r := range query {
		if r == '?' {
			n++
			b.WriteByte('$')
			b.WriteString(strconv.Itoa(n))
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// InsertInsightIfAbsent implements Store. On a unique-constraint conflict
// the insert is a no-op and the already-stored record is returned.
func (s *SQLStore) InsertInsightIfAbsent(ctx context.Context, ins *Insight) (*Insight, error) {
	if ins.ID == "" {
		ins.ID = uuid.NewString()
	}
	if ins.CreatedAt.IsZero() {
		ins.CreatedAt = time.Now().UTC()
	}

	patterns, err := json.Marshal(ins.Patterns)
	if err != nil {
		return nil, fmt.Errorf("encode patterns: %w", err)
	}
	recs, err := json.Marshal(ins.Recommendations)
	if err != nil {
		return nil, fmt.Errorf("encode recommendations: %w", err)
	}
	anomalies, err := json.Marshal(ins.Anomalies)
	if err != nil {
		return nil, fmt.Errorf("encode anomalies: %w", err)
	}
	warnings, err := json.Marshal(ins.Warnings)
	if err != nil {
		return nil, fmt.Errorf("encode warnings: %w", err)
	}

	res, err := s.db.ExecContext(ctx, s.q(`INSERT INTO ai_chart_insights
	(id, wrestler_id, chart_id, fingerprint, summary, patterns_json, recommendations_json, anomalies_json, warnings_json, confidence, created_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	ON CONFLICT (wrestler_id, chart_id, fingerprint) DO NOTHING`),
		ins.ID, ins.WrestlerID, ins.ChartID, ins.Fingerprint,
		ins.Summary, string(patterns), string(recs), string(anomalies), string(warnings),
		ins.Confidence, ins.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("insert insight: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		// Lost the race: return the winner's record.
		return s.FindInsight(ctx, ins.WrestlerID, ins.ChartID, ins.Fingerprint)
	}
	return ins, nil
}

// FindInsight implements Store.
func (s *SQLStore) FindInsight(ctx context.Context, wrestlerID, chartID, fingerprint string) (*Insight, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT id, wrestler_id, chart_id, fingerprint, summary,
	patterns_json, recommendations_json, anomalies_json, warnings_json, confidence, created_at
	FROM ai_chart_insights WHERE wrestler_id = ? AND chart_id = ? AND fingerprint = ?`),
		wrestlerID, chartID, fingerprint)

	var ins Insight
	var patterns, recs, anomalies, warnings sql.NullString
	err := row.Scan(&ins.ID, &ins.WrestlerID, &ins.ChartID, &ins.Fingerprint, &ins.Summary,
		&patterns, &recs, &anomalies, &warnings, &ins.Confidence, &ins.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find insight: %w", err)
	}

	if err := decodeJSONColumn(patterns, &ins.Patterns); err != nil {
		return nil, err
	}
	if err := decodeJSONColumn(recs, &ins.Recommendations); err != nil {
		return nil, err
	}
	if err := decodeJSONColumn(anomalies, &ins.Anomalies); err != nil {
		return nil, err
	}
	if err := decodeJSONColumn(warnings, &ins.Warnings); err != nil {
		return nil, err
	}
	return &ins, nil
}

func decodeJSONColumn[T any](col sql.NullString, dst *T) error {
	if !col.Valid || col.String == "" || col.String == "null" {
		return nil
	}
	if err := json.Unmarshal([]byte(col.String), dst); err != nil {
		return fmt.Errorf("decode stored insight column: %w", err)
	}
	return nil
}

// InsertSectionScore implements Store. The score row and its drivers are
// written in one transaction.
func (s *SQLStore) InsertSectionScore(ctx context.Context, score *SectionScore) error {
	if score.ID == "" {
		score.ID = uuid.NewString()
	}
	if score.RecordedAt.IsZero() {
		score.RecordedAt = time.Now().UTC()
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin insert score: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, s.q(`INSERT INTO section_scores
	(id, wrestler_id, section_key, score, grade, recorded_at) VALUES (?, ?, ?, ?, ?, ?)`),
		score.ID, score.WrestlerID, score.SectionKey, score.Score, string(score.Grade), score.RecordedAt)
	if err != nil {
		return fmt.Errorf("insert section score: %w", err)
	}
	for _, d := range score.Drivers {
		_, err = tx.ExecContext(ctx, s.q(`INSERT INTO score_drivers
	(id, section_score_id, metric_name, impact, weight) VALUES (?, ?, ?, ?, ?)`),
			uuid.NewString(), score.ID, d.MetricName, d.Impact, d.Weight)
		if err != nil {
			return fmt.Errorf("insert score driver: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit section score: %w", err)
	}
	return nil
}

// LatestSectionScore implements Store.
func (s *SQLStore) LatestSectionScore(ctx context.Context, wrestlerID, sectionKey string) (*SectionScore, error) {
	row := s.db.QueryRowContext(ctx, s.q(`SELECT id, wrestler_id, section_key, score, grade, recorded_at
	FROM section_scores WHERE wrestler_id = ? AND section_key = ?
	ORDER BY recorded_at DESC LIMIT 1`), wrestlerID, sectionKey)

	score, err := scanSectionScore(row)
	if err != nil {
		return nil, err
	}
	if err := s.loadDrivers(ctx, score); err != nil {
		return nil, err
	}
	return score, nil
}

// ListSectionScores implements Store.
func (s *SQLStore) ListSectionScores(ctx context.Context, wrestlerID, sectionKey string, since time.Time) ([]SectionScore, error) {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT id, wrestler_id, section_key, score, grade, recorded_at
	FROM section_scores WHERE wrestler_id = ? AND section_key = ? AND recorded_at >= ?
	ORDER BY recorded_at ASC`), wrestlerID, sectionKey, since)
	if err != nil {
		return nil, fmt.Errorf("list section scores: %w", err)
	}
	defer rows.Close()

	var out []SectionScore
	for rows.Next() {
		score, err := scanSectionScore(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *score)
	}
	return out, rows.Err()
}

// DeleteSectionScore implements Store. Drivers are owned by their score
// row and go with it. The deletion is scoped to the wrestler so an id
// belonging to a different wrestler cannot be removed through it.
func (s *SQLStore) DeleteSectionScore(ctx context.Context, wrestlerID, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete score: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	res, err := tx.ExecContext(ctx, s.q(`DELETE FROM section_scores WHERE id = ? AND wrestler_id = ?`), id, wrestlerID)
	if err != nil {
		return fmt.Errorf("delete section score: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return ErrNotFound
	}
	if _, err := tx.ExecContext(ctx, s.q(`DELETE FROM score_drivers WHERE section_score_id = ?`), id); err != nil {
		return fmt.Errorf("delete score drivers: %w", err)
	}
	return tx.Commit()
}

// Close releases the underlying database handle.
func (s *SQLStore) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSectionScore(row rowScanner) (*SectionScore, error) {
	var score SectionScore
	var grade string
	err := row.Scan(&score.ID, &score.WrestlerID, &score.SectionKey, &score.Score, &grade, &score.RecordedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan section score: %w", err)
	}
	score.Grade = scoring.Grade(grade)
	return &score, nil
}

func (s *SQLStore) loadDrivers(ctx context.Context, score *SectionScore) error {
	rows, err := s.db.QueryContext(ctx, s.q(`SELECT metric_name, impact, weight
	FROM score_drivers WHERE section_score_id = ? ORDER BY metric_name`), score.ID)
	if err != nil {
		return fmt.Errorf("load score drivers: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var d scoring.Driver
		if err := rows.Scan(&d.MetricName, &d.Impact, &d.Weight); err != nil {
			return fmt.Errorf("scan score driver: %w", err)
		}
		score.Drivers = append(score.Drivers, d)
	}
	return rows.Err()
}

var _ Store = (*SQLStore)(nil)
