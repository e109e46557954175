package insightengine

import (
	"context"
	"errors"
	"sort"
	"time"

	"github.com/google/uuid"

	"github.com/mat-labs/insight-engine/internal/scoring"
	"github.com/mat-labs/insight-engine/internal/store"
)

// DomainScore is one section's latest standing.
type DomainScore struct {
	SectionKey string        `json:"section_key"`
	Score      float64       `json:"score"`
	Grade      scoring.Grade `json:"grade"`
	RecordedAt time.Time     `json:"recorded_at"`
}

// OverallScore is the weighted roll-up across sections that have data.
type OverallScore struct {
	Score    float64       `json:"score"`
	Grade    scoring.Grade `json:"grade"`
	Sections []DomainScore `json:"sections"`
}

// Explanation breaks a section's latest score into its drivers.
type Explanation struct {
	SectionKey string           `json:"section_key"`
	Score      float64          `json:"score"`
	Grade      scoring.Grade    `json:"grade"`
	RecordedAt time.Time        `json:"recorded_at"`
	Drivers    []scoring.Driver `json:"drivers"`
}

// RecordSectionScore computes a section score from submitted raw metrics
// and appends it to the wrestler's history.
func (e *Engine) RecordSectionScore(ctx context.Context, wrestlerID, sectionKey string, raw map[string]float64) (*store.SectionScore, error) {
	if wrestlerID == "" {
		return nil, E(KindInvalidInput, "wrestler id is required", nil)
	}

	result, err := scoring.ComputeSectionScore(sectionKey, raw)
	if err != nil {
		switch {
		case errors.Is(err, scoring.ErrUnknownSection):
			return nil, E(KindInvalidInput, "unknown section key", err)
		case errors.Is(err, scoring.ErrInsufficientData):
			return nil, E(KindInsufficientData, "no usable metrics for section", err)
		default:
			return nil, E(KindInternal, "scoring failed", err)
		}
	}

	row := &store.SectionScore{
		ID:         uuid.NewString(),
		WrestlerID: wrestlerID,
		SectionKey: sectionKey,
		Score:      result.Score,
		Grade:      result.Grade,
		RecordedAt: time.Now().UTC(),
		Drivers:    result.Drivers,
	}
	if err := e.store.InsertSectionScore(ctx, row); err != nil {
		return nil, E(KindInternal, "persisting section score failed", err)
	}
	return row, nil
}

// DomainScores returns the latest score per section, omitting sections
// with no history yet.
func (e *Engine) DomainScores(ctx context.Context, wrestlerID string) ([]DomainScore, error) {
	if wrestlerID == "" {
		return nil, E(KindInvalidInput, "wrestler id is required", nil)
	}

	var out []DomainScore
	for _, key := range scoring.Sections() {
		latest, err := e.store.LatestSectionScore(ctx, wrestlerID, key)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				continue
			}
			return nil, E(KindInternal, "loading section scores failed", err)
		}
		out = append(out, DomainScore{
			SectionKey: key,
			Score:      latest.Score,
			Grade:      latest.Grade,
			RecordedAt: latest.RecordedAt,
		})
	}
	return out, nil
}

// Overall rolls the latest domain scores into one weighted number.
// Sections without history are excluded and the remaining weights are
// renormalized; no history at all is insufficient data.
func (e *Engine) Overall(ctx context.Context, wrestlerID string) (*OverallScore, error) {
	sections, err := e.DomainScores(ctx, wrestlerID)
	if err != nil {
		return nil, err
	}
	if len(sections) == 0 {
		return nil, E(KindInsufficientData, "no recorded scores", scoring.ErrInsufficientData)
	}

	byKey := make(map[string]float64, len(sections))
	for _, s := range sections {
		byKey[s.SectionKey] = s.Score
	}
	score, grade, err := scoring.ComputeOverallScore(byKey)
	if err != nil {
		if errors.Is(err, scoring.ErrInsufficientData) {
			return nil, E(KindInsufficientData, "no recorded scores", err)
		}
		return nil, E(KindInternal, "overall scoring failed", err)
	}

	sort.Slice(sections, func(i, j int) bool { return sections[i].SectionKey < sections[j].SectionKey })
	return &OverallScore{Score: score, Grade: grade, Sections: sections}, nil
}

// ScoreHistory returns a section's rows recorded at or after since,
// oldest first. A zero since returns the full history.
func (e *Engine) ScoreHistory(ctx context.Context, wrestlerID, sectionKey string, since time.Time) ([]store.SectionScore, error) {
	if wrestlerID == "" {
		return nil, E(KindInvalidInput, "wrestler id is required", nil)
	}
	rows, err := e.store.ListSectionScores(ctx, wrestlerID, sectionKey, since)
	if err != nil {
		return nil, E(KindInternal, "loading score history failed", err)
	}
	return rows, nil
}

// DeleteScore removes one of the wrestler's score rows, for correcting
// a mistaken entry. Corrections are normally appended; deletion is for
// operator cleanup. An id recorded for a different wrestler is treated
// as not found, never deleted.
func (e *Engine) DeleteScore(ctx context.Context, wrestlerID, id string) error {
	if wrestlerID == "" {
		return E(KindInvalidInput, "wrestler id is required", nil)
	}
	if id == "" {
		return E(KindInvalidInput, "score id is required", nil)
	}
	if err := e.store.DeleteSectionScore(ctx, wrestlerID, id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return E(KindNotFound, "no score with that id for this wrestler", err)
		}
		return E(KindInternal, "deleting score failed", err)
	}
	return nil
}

// Explain returns the driver breakdown behind a section's latest score.
func (e *Engine) Explain(ctx context.Context, wrestlerID, sectionKey string) (*Explanation, error) {
	if wrestlerID == "" {
		return nil, E(KindInvalidInput, "wrestler id is required", nil)
	}

	latest, err := e.store.LatestSectionScore(ctx, wrestlerID, sectionKey)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, E(KindNotFound, "no recorded score for section", err)
		}
		return nil, E(KindInternal, "loading section score failed", err)
	}
	return &Explanation{
		SectionKey: latest.SectionKey,
		Score:      latest.Score,
		Grade:      latest.Grade,
		RecordedAt: latest.RecordedAt,
		Drivers:    latest.Drivers,
	}, nil
}
