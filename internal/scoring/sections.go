package scoring

import "math"

// metricDef describes one raw metric's contribution to a section score.
// normalize maps the raw value onto a 0-100 contribution; negative marks
// metrics where a larger raw value pushes the athlete's condition down
// (fatigue, body fat).
type metricDef struct {
	name      string
	weight    float64
	negative  bool
	normalize func(float64) float64
}

func identity(v float64) float64 { return v }

// scaled maps v onto 0-100 assuming max is the value that earns a full
// score.
func scaled(max float64) func(float64) float64 {
	return func(v float64) float64 { return v / max * 100 }
}

// peak scores 100 at the optimum and falls off linearly at slope points
// per unit of distance from it.
func peak(optimum, slope float64) func(float64) float64 {
	return func(v float64) float64 { return 100 - math.Abs(v-optimum)*slope }
}

// sectionMetrics defines the scoring formula of every section: which raw
// metrics contribute, their weights, and how each is normalized onto
// 0-100. Weights within a section sum to 1; when metrics are missing the
// engine renormalizes over the ones present.
var sectionMetrics = map[string][]metricDef{
	SectionOverview: {
		{name: "overall_score", weight: 0.20, normalize: identity},
		{name: "msi", weight: 0.15, normalize: identity},
		{name: "mes", weight: 0.15, normalize: identity},
		{name: "api", weight: 0.10, normalize: scaled(1000)}, // anaerobic power index, raw 0-1000
		{name: "vo2max", weight: 0.15, normalize: identity},
		{name: "frr", weight: 0.10, normalize: identity},
		{name: "acs", weight: 0.10, normalize: identity},
		{name: "bos", weight: 0.05, normalize: scaled(10)}, // body optimization, raw 0-10
	},
	SectionBodyComposition: {
		// Optimal body fat for competitive wrestling sits around 10%.
		{name: "body_fat_percent", weight: 0.35, negative: true, normalize: peak(10, 5)},
		{name: "muscle_mass_ratio", weight: 0.40, normalize: scaled(1)}, // muscle mass / body weight, raw 0-1
		{name: "power_to_weight", weight: 0.25, normalize: peak(2.0, 30)},
	},
	SectionBloodwork: {
		{name: "hemoglobin", weight: 0.35, normalize: peak(16, 8)},     // g/dL, optimal 14-18
		{name: "hematocrit", weight: 0.30, normalize: peak(46, 5)},     // %, optimal 42-50
		{name: "testosterone", weight: 0.35, normalize: peak(750, 0.1)}, // ng/dL, optimal 600-900
	},
	SectionRecovery: {
		{name: "sleep_quality", weight: 0.25, normalize: identity},
		{name: "hrv_score", weight: 0.20, normalize: scaled(200)},
		{name: "fatigue_level", weight: 0.20, negative: true, normalize: func(v float64) float64 { return 100 - v }},
		{name: "hydration_level", weight: 0.15, normalize: identity},
		{name: "readiness_score", weight: 0.20, normalize: identity},
	},
	SectionSupplements: {
		{name: "adherence_rate", weight: 0.60, normalize: identity},
		// Correlation is raw -1..1, mapped to 0-100.
		{name: "performance_correlation", weight: 0.40, normalize: func(v float64) float64 { return (v + 1) * 50 }},
	},
	SectionPerformance: {
		{name: "bench_max", weight: 0.15, normalize: scaled(400)},
		{name: "squat_max", weight: 0.20, normalize: scaled(500)},
		{name: "deadlift_max", weight: 0.20, normalize: scaled(600)},
		{name: "vo2max", weight: 0.25, normalize: scaled(60)},
		{name: "body_fat_percent", weight: 0.20, negative: true, normalize: peak(12.5, 4)},
	},
}

// overallWeights combine the latest section scores into the athlete-level
// roll-up.
var overallWeights = map[string]float64{
	SectionOverview:        0.15,
	SectionBodyComposition: 0.20,
	SectionBloodwork:       0.15,
	SectionRecovery:        0.20,
	SectionSupplements:     0.10,
	SectionPerformance:     0.20,
}
