package providers

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
)

func TestMock_Deterministic(t *testing.T) {
	req := InsightRequest{
		WrestlerID: "W1",
		ChartID:    "overview-radar",
		ChartData:  map[string]any{"labels": []any{"a", "b"}, "values": []any{80.0, 90.0}},
		Locale:     "en-US",
	}
	m := NewMock()
	a, err := m.GenerateChartInsight(context.Background(), req)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	b, _ := m.GenerateChartInsight(context.Background(), req)

	ab, _ := json.Marshal(a)
	bb, _ := json.Marshal(b)
	if string(ab) != string(bb) {
		t.Errorf("identical requests produced different insights:\n%s\n%s", ab, bb)
	}
	if err := a.Validate(); err != nil {
		t.Errorf("mock output failed validation: %v", err)
	}
}

func TestMock_SummaryUsesAverage(t *testing.T) {
	m := NewMock()
	ins, err := m.GenerateChartInsight(context.Background(), InsightRequest{
		ChartID:   "weight-trend",
		ChartData: map[string]any{"values": []any{80.0, 90.0}},
		Locale:    "en-US",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if !strings.Contains(ins.Summary, "85.0") {
		t.Errorf("summary %q does not mention the average 85.0", ins.Summary)
	}
}

func TestMock_LowValuesWarn(t *testing.T) {
	m := NewMock()
	ins, _ := m.GenerateChartInsight(context.Background(), InsightRequest{
		ChartID:   "c",
		ChartData: map[string]any{"values": []any{10.0, 20.0}},
		Locale:    "en-US",
	})
	if len(ins.Warnings) == 0 {
		t.Error("expected a low-value warning")
	}
}

func TestMock_FarsiLocale(t *testing.T) {
	m := NewMock()
	ins, _ := m.GenerateChartInsight(context.Background(), InsightRequest{
		ChartID:   "c",
		ChartData: map[string]any{"values": []any{80.0}},
		Locale:    "fa-IR",
	})
	if !strings.Contains(ins.Summary, "تحلیل") {
		t.Errorf("expected Farsi summary, got %q", ins.Summary)
	}
}

func TestMock_AdvancedDetectsSpike(t *testing.T) {
	m := NewMock()
	data := map[string]any{
		"series": []any{
			map[string]any{
				"name": "weight",
				"points": []any{
					map[string]any{"date": "2025-01-01", "value": 10.0},
					map[string]any{"date": "2025-01-15", "value": 100.0},
				},
			},
		},
	}
	ins, err := m.GenerateAdvancedInsight(context.Background(), InsightRequest{
		Section: "body_composition", ChartID: "c", ChartData: data, Locale: "en-US",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if len(ins.Anomalies) != 1 {
		t.Fatalf("expected one anomaly, got %d", len(ins.Anomalies))
	}
	if ins.Anomalies[0].Value != 100.0 {
		t.Errorf("anomaly value = %v, want 100", ins.Anomalies[0].Value)
	}
	if ins.Confidence == nil || *ins.Confidence != 0.85 {
		t.Errorf("unexpected confidence %v", ins.Confidence)
	}
}

func TestMock_TrainingProgram(t *testing.T) {
	m := NewMock()
	prog, err := m.GenerateTrainingProgram(context.Background(), ProgramRequest{
		WrestlerID: "W1", Goal: "strength", TargetDate: "2026-09-01", Locale: "en-US",
	})
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	if prog.Title != "Strength Focus Training" {
		t.Errorf("title = %q", prog.Title)
	}
	if err := prog.Validate(); err != nil {
		t.Errorf("program failed validation: %v", err)
	}
}
