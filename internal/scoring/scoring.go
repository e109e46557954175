// Package scoring computes deterministic 0-100 section scores, letter
// grades, and driver breakdowns from raw athlete metrics. All functions
// are pure: no clock, no randomness, no I/O.
package scoring

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

// Grade classifies a score into a traffic-light band.
type Grade string

// Grade bands. Lower bounds are inclusive: 80 is good, 50 is warning,
// 49.999 is bad.
const (
	GradeGood    Grade = "good"
	GradeWarning Grade = "warning"
	GradeBad     Grade = "bad"
)

// Section keys.
const (
	SectionOverview        = "overview"
	SectionBodyComposition = "body_composition"
	SectionBloodwork       = "bloodwork"
	SectionRecovery        = "recovery"
	SectionSupplements     = "supplements"
	SectionPerformance     = "bodybuilding_performance"
)

// ErrInsufficientData is returned when no usable metric was supplied for a
// section; callers should surface it as a data-quality signal, not a crash.
var ErrInsufficientData = errors.New("no usable metrics")

// ErrUnknownSection is returned for a section key outside the domain set.
var ErrUnknownSection = errors.New("unknown section key")

// Driver explains one metric's contribution to a section score.
type Driver struct {
	MetricName string  `json:"metric_name"`
	Impact     string  `json:"impact"` // "+" or "-"
	Weight     float64 `json:"weight"` // share of the total contribution, in [0,1]
}

// Result is the output of a section score computation.
type Result struct {
	Score   float64  `json:"score"`
	Grade   Grade    `json:"grade"`
	Drivers []Driver `json:"drivers"`
}

// GradeFor maps a score to its grade band.
func GradeFor(score float64) Grade {
	switch {
	case score >= 80:
		return GradeGood
	case score >= 50:
		return GradeWarning
	default:
		return GradeBad
	}
}

// Sections returns the domain section keys in a stable order.
func Sections() []string {
	return []string{
		SectionOverview,
		SectionBodyComposition,
		SectionBloodwork,
		SectionRecovery,
		SectionSupplements,
		SectionPerformance,
	}
}

// ComputeSectionScore computes the score, grade, and driver breakdown for
// one section from raw metric values. Metrics missing from raw are
// excluded (not treated as zero); the weights of the remaining drivers are
// renormalized to sum to 1. Supplying zero usable metrics yields
// ErrInsufficientData.
func ComputeSectionScore(sectionKey string, raw map[string]float64) (Result, error) {
	defs, ok := sectionMetrics[sectionKey]
	if !ok {
		return Result{}, fmt.Errorf("%w: %q", ErrUnknownSection, sectionKey)
	}

	var weighted, totalWeight float64
	var used []metricDef
	for _, def := range defs {
		v, present := raw[def.name]
		if !present {
			continue
		}
		weighted += clamp(def.normalize(v), 0, 100) * def.weight
		totalWeight += def.weight
		used = append(used, def)
	}
	if len(used) == 0 {
		return Result{}, fmt.Errorf("%w for section %q", ErrInsufficientData, sectionKey)
	}

	score := round1(clamp(weighted/totalWeight, 0, 100))
	drivers := make([]Driver, len(used))
	for i, def := range used {
		impact := "+"
		if def.negative {
			impact = "-"
		}
		drivers[i] = Driver{
			MetricName: def.name,
			Impact:     impact,
			Weight:     clamp(def.weight/totalWeight, 0, 1),
		}
	}
	return Result{Score: score, Grade: GradeFor(score), Drivers: drivers}, nil
}

// ComputeOverallScore rolls section scores up into one athlete-level score.
// Sections missing from scores are excluded and the remaining weights are
// renormalized. An empty input yields ErrInsufficientData.
func ComputeOverallScore(scores map[string]float64) (float64, Grade, error) {
	var weighted, totalWeight float64
	keys := make([]string, 0, len(scores))
	for k := range scores {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, key := range keys {
		w, ok := overallWeights[key]
		if !ok {
			return 0, "", fmt.Errorf("%w: %q", ErrUnknownSection, key)
		}
		weighted += clamp(scores[key], 0, 100) * w
		totalWeight += w
	}
	if totalWeight == 0 {
		return 0, "", ErrInsufficientData
	}
	score := round1(clamp(weighted/totalWeight, 0, 100))
	return score, GradeFor(score), nil
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(hi, math.Max(lo, v))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
