package providers

import (
	"context"
	"fmt"
	"strings"
)

// Mock is a deterministic generator used in tests and when no provider
// credentials are configured. Its output is a pure function of the request,
// which makes it the reference implementation for cache-idempotence
// guarantees: identical inputs always produce byte-identical insights.
type Mock struct{}

// NewMock creates the deterministic mock generator.
func NewMock() *Mock { return &Mock{} }

// Name returns the generator identifier.
func (m *Mock) Name() string { return "mock" }

// GenerateChartInsight produces a deterministic insight from the average
// of the chart's values.
func (m *Mock) GenerateChartInsight(_ context.Context, req InsightRequest) (*Insight, error) {
	avg := mean(numbers(req.ChartData["values"]))

	var ins Insight
	if req.Locale == "fa-IR" {
		ins = Insight{
			Summary:  fmt.Sprintf("تحلیل نمودار %s: میانگین مقادیر %.1f است.", req.ChartID, avg),
			Patterns: []string{"روند صعودی مشاهده شده", "نوسانات طبیعی"},
			Recommendations: []Recommendation{
				{Text: "ادامه برنامه فعلی", Priority: PriorityMedium},
				{Text: "افزایش تمرینات قدرتی", Priority: PriorityLow},
			},
		}
		if avg < 50 {
			ins.Warnings = append(ins.Warnings, "مقادیر پایین‌تر از حد انتظار")
		}
	} else {
		ins = Insight{
			Summary:  fmt.Sprintf("Analysis of chart %s: Average value is %.1f.", req.ChartID, avg),
			Patterns: []string{"Upward trend observed", "Normal fluctuations"},
			Recommendations: []Recommendation{
				{Text: "Continue current program", Priority: PriorityMedium},
				{Text: "Increase strength training", Priority: PriorityLow},
			},
		}
		if avg < 50 {
			ins.Warnings = append(ins.Warnings, "Values below expected threshold")
		}
	}
	return &ins, nil
}

// GenerateAdvancedInsight produces a deterministic insight from the
// time-series data of an advanced chart request.
func (m *Mock) GenerateAdvancedInsight(_ context.Context, req InsightRequest) (*Insight, error) {
	var all []float64
	if series, ok := req.ChartData["series"].([]any); ok {
		for _, s := range series {
			sm, ok := s.(map[string]any)
			if !ok {
				continue
			}
			if points, ok := sm["points"].([]any); ok {
				for _, p := range points {
					if pm, ok := p.(map[string]any); ok {
						all = append(all, numbers(pm["value"])...)
					}
				}
			}
		}
	}
	avg := mean(all)

	var ins Insight
	if req.Locale == "fa-IR" {
		ins = Insight{
			Summary:  fmt.Sprintf("تحلیل پیشرفته بخش %s: داده‌های سری زمانی تحلیل شد.", req.Section),
			Patterns: []string{"الگوی ثبات", "بهبود تدریجی"},
		}
	} else {
		ins = Insight{
			Summary:  fmt.Sprintf("Advanced analysis of section %s: Time series data analyzed.", req.Section),
			Patterns: []string{"Stability pattern", "Gradual improvement"},
		}
	}

	if maxVal, ok := maxOf(all); ok && maxVal > avg*1.5 {
		ins.Anomalies = append(ins.Anomalies, Anomaly{
			Label: "High value spike",
			Date:  "2025-01-15",
			Value: maxVal,
		})
	}
	ins.Recommendations = []Recommendation{
		{Text: "Monitor trends closely", Priority: PriorityMedium},
	}
	conf := 0.85
	ins.Confidence = &conf
	return &ins, nil
}

// GenerateTrainingProgram produces a deterministic program for the goal.
func (m *Mock) GenerateTrainingProgram(_ context.Context, req ProgramRequest) (*TrainingProgram, error) {
	title := req.Goal
	if title != "" {
		title = strings.ToUpper(title[:1]) + title[1:]
	}
	return &TrainingProgram{
		Date:  req.TargetDate,
		Title: title + " Focus Training",
		Focus: req.Goal,
		Blocks: []ProgramBlock{
			{Name: "Warm-up", Sets: 1, Reps: "5-10 min"},
			{Name: "Bench Press", Sets: 4, Reps: "6-8"},
			{Name: "Squat", Sets: 4, Reps: "6-8"},
			{Name: "Deadlift", Sets: 3, Reps: "5"},
			{Name: "Core Work", Sets: 3, Reps: "10-15"},
		},
		Nutrition: "High protein intake recommended (1.6-2.0g/kg body weight)",
		Recovery:  "8 hours sleep, stretching, hydration",
		Recommendations: []string{
			"Focus on progressive overload",
			"Include mobility work",
			"Monitor recovery between sessions",
		},
	}, nil
}

// numbers extracts the numeric values from a decoded-JSON value, which may
// be a single number or a heterogeneous slice.
func numbers(v any) []float64 {
	switch t := v.(type) {
	case float64:
		return []float64{t}
	case int:
		return []float64{float64(t)}
	case []float64:
		return t
	case []any:
		out := make([]float64, 0, len(t))
		for _, e := range t {
			out = append(out, numbers(e)...)
		}
		return out
	default:
		return nil
	}
}

func mean(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	var sum float64
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}

func maxOf(vals []float64) (float64, bool) {
	if len(vals) == 0 {
		return 0, false
	}
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m, true
}
