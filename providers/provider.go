// Package providers defines the Generator interface — the pluggable
// AI capability invoked on a cache miss — and the structured insight types
// it returns.
//
// Generators are selected once at process start by configuration and never
// swapped at runtime. The deterministic Mock generator is the reference
// implementation; OpenAI and Bedrock are thin transports over the same
// contract.
package providers

import (
	"context"
	"errors"
	"fmt"
)

// Generation kinds. Recorded in the provider audit log and used by
// generators to pick the prompt template.
const (
	KindChartInsight    = "chart_insight"
	KindAdvancedInsight = "advanced_insight"
	KindTrainingProgram = "training_program"
)

// Recommendation priorities.
const (
	PriorityHigh   = "high"
	PriorityMedium = "medium"
	PriorityLow    = "low"
)

// Generator failure classes. The engine maps all three onto its
// ai_provider_error kind; the distinction lets the HTTP boundary choose
// between bad-gateway and service-unavailable responses.
var (
	ErrUnavailable     = errors.New("generator unavailable")
	ErrMalformedOutput = errors.New("generator returned malformed output")
	ErrTimeout         = errors.New("generator timed out")
)

// Generator is the pluggable generation capability.
type Generator interface {
	Name() string
	GenerateChartInsight(ctx context.Context, req InsightRequest) (*Insight, error)
	GenerateAdvancedInsight(ctx context.Context, req InsightRequest) (*Insight, error)
	GenerateTrainingProgram(ctx context.Context, req ProgramRequest) (*TrainingProgram, error)
}

// InsightRequest carries the sanitized inputs for a chart-insight
// generation. ChartData and Context must already have PII stripped; the
// athlete is identified only by the opaque wrestler id.
type InsightRequest struct {
	WrestlerID string
	ChartID    string
	Section    string // set for advanced insights only
	ChartData  map[string]any
	Context    map[string]any // optional
	Locale     string         // e.g. "en-US", "fa-IR"
}

// ProgramRequest carries the inputs for a training-program generation.
type ProgramRequest struct {
	WrestlerID string
	Goal       string
	TargetDate string // "YYYY-MM-DD"
	Locale     string
}

// Recommendation is a single prioritized suggestion within an insight.
type Recommendation struct {
	Text     string `json:"text"`
	Priority string `json:"priority"`
}

// Anomaly marks an outlier detected in the chart data.
type Anomaly struct {
	Label string  `json:"label"`
	Date  string  `json:"date"`
	Value float64 `json:"value"`
}

// Insight is the structured result of a chart-insight generation. Once
// persisted it is immutable.
type Insight struct {
	Summary         string           `json:"summary"`
	Patterns        []string         `json:"patterns"`
	Recommendations []Recommendation `json:"recommendations"`
	Anomalies       []Anomaly        `json:"anomalies,omitempty"`
	Warnings        []string         `json:"warnings,omitempty"`
	Confidence      *float64         `json:"confidence,omitempty"`
}

// Validate checks the shape invariants an insight must satisfy before it
// is stored. Violations are malformed output, never a partial record.
func (i *Insight) Validate() error {
	if i.Summary == "" {
		return fmt.Errorf("%w: empty summary", ErrMalformedOutput)
	}
	if len(i.Recommendations) == 0 {
		return fmt.Errorf("%w: no recommendations", ErrMalformedOutput)
	}
	for _, r := range i.Recommendations {
		switch r.Priority {
		case PriorityHigh, PriorityMedium, PriorityLow:
		default:
			return fmt.Errorf("%w: invalid recommendation priority %q", ErrMalformedOutput, r.Priority)
		}
		if r.Text == "" {
			return fmt.Errorf("%w: empty recommendation text", ErrMalformedOutput)
		}
	}
	if i.Confidence != nil && (*i.Confidence < 0 || *i.Confidence > 1) {
		return fmt.Errorf("%w: confidence %v outside [0,1]", ErrMalformedOutput, *i.Confidence)
	}
	return nil
}

// ProgramBlock is a single exercise block within a training program.
type ProgramBlock struct {
	Name string `json:"name"`
	Sets int    `json:"sets"`
	Reps string `json:"reps"`
}

// TrainingProgram is the structured result of a training-program
// generation.
type TrainingProgram struct {
	Date            string         `json:"date"`
	Title           string         `json:"title"`
	Focus           string         `json:"focus"`
	Blocks          []ProgramBlock `json:"blocks"`
	Nutrition       string         `json:"nutrition,omitempty"`
	Recovery        string         `json:"recovery,omitempty"`
	Recommendations []string       `json:"recommendations,omitempty"`
}

// Validate checks the shape invariants of a generated program.
func (p *TrainingProgram) Validate() error {
	if p.Title == "" {
		return fmt.Errorf("%w: empty program title", ErrMalformedOutput)
	}
	if len(p.Blocks) == 0 {
		return fmt.Errorf("%w: program has no blocks", ErrMalformedOutput)
	}
	return nil
}
