// Package store is the durable tier: persisted AI insights and the
// append-only section score history. Insights are immutable once written;
// the (wrestler_id, chart_id, fingerprint) uniqueness constraint lives in
// the database so first-writer-wins holds even across processes.
package store

import (
	"context"
	"errors"
	"time"

	"github.com/mat-labs/insight-engine/internal/scoring"
	"github.com/mat-labs/insight-engine/providers"
)

// ErrNotFound is returned when a lookup matches no record.
var ErrNotFound = errors.New("record not found")

// Insight is a persisted, content-addressed AI insight.
type Insight struct {
	ID          string `json:"id"`
	WrestlerID  string `json:"wrestler_id"`
	ChartID     string `json:"chart_id"`
	Fingerprint string `json:"fingerprint"`
	providers.Insight
	CreatedAt time.Time `json:"created_at"`
}

// SectionScore is one row of a wrestler's score history for a section.
// Rows are never updated in place; corrections append a new row.
type SectionScore struct {
	ID         string           `json:"id"`
	WrestlerID string           `json:"wrestler_id"`
	SectionKey string           `json:"section_key"`
	Score      float64          `json:"score"`
	Grade      scoring.Grade    `json:"grade"`
	RecordedAt time.Time        `json:"recorded_at"`
	Drivers    []scoring.Driver `json:"drivers,omitempty"`
}

// Store is the persistence collaborator consumed by the tiered cache and
// the score endpoints.
type Store interface {
	// InsertInsightIfAbsent persists ins unless a record with the same
	// (wrestler id, chart id, fingerprint) already exists, in which case
	// the existing record is returned unchanged (first-writer-wins).
	InsertInsightIfAbsent(ctx context.Context, ins *Insight) (*Insight, error)
	// FindInsight returns the unique insight for the key, or ErrNotFound.
	FindInsight(ctx context.Context, wrestlerID, chartID, fingerprint string) (*Insight, error)

	// InsertSectionScore appends a score row with its drivers.
	InsertSectionScore(ctx context.Context, score *SectionScore) error
	// LatestSectionScore returns the most recent row for the section, or
	// ErrNotFound.
	LatestSectionScore(ctx context.Context, wrestlerID, sectionKey string) (*SectionScore, error)
	// ListSectionScores returns rows recorded at or after since, ordered
	// by recorded_at ascending.
	ListSectionScores(ctx context.Context, wrestlerID, sectionKey string, since time.Time) ([]SectionScore, error)
	// DeleteSectionScore removes the wrestler's score row and its
	// drivers. ErrNotFound covers both a missing id and an id that
	// belongs to a different wrestler.
	DeleteSectionScore(ctx context.Context, wrestlerID, id string) error

	Close() error
}
