package scoring

import (
	"errors"
	"math"
	"testing"
)

func TestGradeFor_Bands(t *testing.T) {
	cases := []struct {
		score float64
		want  Grade
	}{
		{100, GradeGood},
		{80, GradeGood},
		{79.999, GradeWarning},
		{50, GradeWarning},
		{49.999, GradeBad},
		{0, GradeBad},
	}
	for _, c := range cases {
		if got := GradeFor(c.score); got != c.want {
			t.Errorf("GradeFor(%v) = %s, want %s", c.score, got, c.want)
		}
	}
}

func TestComputeSectionScore_Deterministic(t *testing.T) {
	raw := map[string]float64{
		"sleep_quality":   85,
		"hrv_score":       140,
		"fatigue_level":   30,
		"hydration_level": 90,
		"readiness_score": 75,
	}
	a, err := ComputeSectionScore(SectionRecovery, raw)
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	b, _ := ComputeSectionScore(SectionRecovery, raw)
	if a.Score != b.Score || a.Grade != b.Grade {
		t.Errorf("same input produced different results: %+v vs %+v", a, b)
	}
	if a.Grade != GradeFor(a.Score) {
		t.Errorf("grade %s inconsistent with score %v", a.Grade, a.Score)
	}
}

func TestComputeSectionScore_ClampedUnderExtremeInput(t *testing.T) {
	extremes := []map[string]float64{
		{"hemoglobin": 1e9, "hematocrit": -1e9, "testosterone": 1e12},
		{"bench_max": 1e6, "squat_max": 1e6, "deadlift_max": 1e6, "vo2max": 1e6, "body_fat_percent": -500},
		{"adherence_rate": 100000, "performance_correlation": -50},
	}
	sections := []string{SectionBloodwork, SectionPerformance, SectionSupplements}
	for i, raw := range extremes {
		res, err := ComputeSectionScore(sections[i], raw)
		if err != nil {
			t.Fatalf("%s: %v", sections[i], err)
		}
		if res.Score < 0 || res.Score > 100 {
			t.Errorf("%s: score %v out of [0,100]", sections[i], res.Score)
		}
	}
}

func TestComputeSectionScore_MissingMetricsExcluded(t *testing.T) {
	// Only hemoglobin supplied: score comes from that single driver with
	// its weight renormalized to 1.0, not diluted by absent metrics.
	res, err := ComputeSectionScore(SectionBloodwork, map[string]float64{"hemoglobin": 16})
	if err != nil {
		t.Fatalf("one usable metric must not be insufficient: %v", err)
	}
	if len(res.Drivers) != 1 {
		t.Fatalf("expected 1 driver, got %d", len(res.Drivers))
	}
	d := res.Drivers[0]
	if d.MetricName != "hemoglobin" || d.Weight != 1.0 || d.Impact != "+" {
		t.Errorf("unexpected driver %+v", d)
	}
	// hemoglobin 16 is the optimum: full marks.
	if res.Score != 100 {
		t.Errorf("expected score 100 at optimum, got %v", res.Score)
	}
}

func TestComputeSectionScore_WeightsRenormalized(t *testing.T) {
	res, err := ComputeSectionScore(SectionRecovery, map[string]float64{
		"sleep_quality": 80,
		"fatigue_level": 20,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	var sum float64
	for _, d := range res.Drivers {
		if d.Weight < 0 || d.Weight > 1 {
			t.Errorf("driver weight %v out of [0,1]", d.Weight)
		}
		sum += d.Weight
	}
	if math.Abs(sum-1.0) > 1e-9 {
		t.Errorf("driver weights sum to %v, want 1.0", sum)
	}
}

func TestComputeSectionScore_NegativeImpactMarked(t *testing.T) {
	res, err := ComputeSectionScore(SectionPerformance, map[string]float64{
		"bench_max":        300,
		"body_fat_percent": 12.5,
	})
	if err != nil {
		t.Fatalf("compute: %v", err)
	}
	impacts := map[string]string{}
	for _, d := range res.Drivers {
		impacts[d.MetricName] = d.Impact
	}
	if impacts["bench_max"] != "+" {
		t.Errorf("bench_max impact = %q, want +", impacts["bench_max"])
	}
	if impacts["body_fat_percent"] != "-" {
		t.Errorf("body_fat_percent impact = %q, want -", impacts["body_fat_percent"])
	}
}

func TestComputeSectionScore_NoUsableMetrics(t *testing.T) {
	_, err := ComputeSectionScore(SectionBloodwork, map[string]float64{"unrelated": 1})
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData, got %v", err)
	}
	_, err = ComputeSectionScore(SectionBloodwork, nil)
	if !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData for nil metrics, got %v", err)
	}
}

func TestComputeSectionScore_UnknownSection(t *testing.T) {
	_, err := ComputeSectionScore("cardio", map[string]float64{"x": 1})
	if !errors.Is(err, ErrUnknownSection) {
		t.Errorf("expected ErrUnknownSection, got %v", err)
	}
}

func TestComputeOverallScore(t *testing.T) {
	score, grade, err := ComputeOverallScore(map[string]float64{
		SectionOverview:  80,
		SectionRecovery:  80,
		SectionBloodwork: 80,
	})
	if err != nil {
		t.Fatalf("overall: %v", err)
	}
	if score != 80 {
		t.Errorf("uniform 80s must roll up to 80, got %v", score)
	}
	if grade != GradeGood {
		t.Errorf("expected good, got %s", grade)
	}

	if _, _, err := ComputeOverallScore(nil); !errors.Is(err, ErrInsufficientData) {
		t.Errorf("expected ErrInsufficientData for empty roll-up, got %v", err)
	}
}
