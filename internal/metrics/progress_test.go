package metrics

import (
	"math"
	"testing"

	"okrplanner/internal/okr"
)

func kr(id int64, current, target float64) okr.KeyResult {
	return okr.KeyResult{ID: id, Description: "kr", CurrentValue: current, TargetValue: target}
}

func almostEqual(a, b float64) bool {
	return math.Abs(a-b) < 1e-9
}

func TestRecomputeKeyResultRates(t *testing.T) {
	tests := []struct {
		name    string
		current float64
		target  float64
		want    float64
		status  string
	}{
		{name: "over target caps at 100", current: 150, target: 100, want: 100, status: StatusAchieved},
		{name: "quarter", current: 50, target: 200, want: 25, status: StatusInProgress},
		{name: "zero", current: 0, target: 10, want: 0, status: StatusNotStarted},
		{name: "exact", current: 10, target: 10, want: 100, status: StatusAchieved},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan := okr.Plan{GoalID: 1, Yearly: []okr.YearlyObjective{
				{ID: 1, Year: 2025, KeyResults: []okr.KeyResult{kr(9, tt.current, tt.target)}},
			}}
			report := Recompute(plan)
			got, ok := report.KeyResult(9)
			if !ok {
				t.Fatal("key result missing from report")
			}
			if !almostEqual(got.Progress, tt.want) {
				t.Fatalf("progress = %v, want %v", got.Progress, tt.want)
			}
			if got.Status != tt.status {
				t.Fatalf("status = %q, want %q", got.Status, tt.status)
			}
		})
	}
}

func TestRecomputeIgnoresStoredRate(t *testing.T) {
	stale := kr(1, 50, 100)
	stale.AchievementRate = 90
	report := Recompute(okr.Plan{Yearly: []okr.YearlyObjective{{Year: 2025, KeyResults: []okr.KeyResult{stale}}}})
	if !almostEqual(report.Overall, 50) {
		t.Fatalf("overall = %v, want 50", report.Overall)
	}
}

func TestRecomputeYearAveragesPresentViews(t *testing.T) {
	plan := okr.Plan{GoalID: 1, Yearly: []okr.YearlyObjective{
		{
			ID:         1,
			Year:       2025,
			KeyResults: []okr.KeyResult{kr(1, 10, 10)},
			Quarterly: []okr.QuarterlyObjective{
				{ID: 1, Quarter: 1, KeyResults: []okr.KeyResult{kr(2, 0, 10), kr(3, 0, 10)}},
				{ID: 2, Quarter: 2},
			},
		},
		{
			ID:   2,
			Year: 2026,
			Quarterly: []okr.QuarterlyObjective{
				{ID: 3, Quarter: 1, KeyResults: []okr.KeyResult{kr(4, 5, 10)}},
				{ID: 4, Quarter: 2, KeyResults: []okr.KeyResult{kr(5, 10, 10)}},
			},
		},
		{ID: 3, Year: 2027},
	}}

	report := Recompute(plan)

	y2025, _ := report.Year(2025)
	// direct view 100, quarterly view mean(0, 0) = 0
	if !almostEqual(y2025.Progress, 50) {
		t.Fatalf("2025 progress = %v, want 50", y2025.Progress)
	}
	if y2025.Quarterly[1].Progress != 0 {
		t.Fatalf("empty quarter progress = %v, want 0", y2025.Quarterly[1].Progress)
	}

	y2026, _ := report.Year(2026)
	if !almostEqual(y2026.Progress, 75) {
		t.Fatalf("2026 progress = %v, want 75", y2026.Progress)
	}

	y2027, _ := report.Year(2027)
	if y2027.Progress != 0 {
		t.Fatalf("2027 progress = %v, want 0", y2027.Progress)
	}

	if !almostEqual(report.Overall, 125.0/3) {
		t.Fatalf("overall = %v, want %v", report.Overall, 125.0/3)
	}
	if report.OverallPercent != 42 {
		t.Fatalf("overall percent = %d, want 42", report.OverallPercent)
	}
}

func TestRecomputeEmptyPlan(t *testing.T) {
	report := Recompute(okr.Plan{GoalID: 4})
	if report.Overall != 0 || len(report.Yearly) != 0 || report.GoalID != 4 {
		t.Fatalf("report = %+v, want empty with goal 4", report)
	}
}

func TestRecomputeKeepsFullPrecision(t *testing.T) {
	plan := okr.Plan{Yearly: []okr.YearlyObjective{
		{Year: 2025, KeyResults: []okr.KeyResult{kr(1, 1, 3), kr(2, 1, 3), kr(3, 1, 3)}},
		{Year: 2026, KeyResults: []okr.KeyResult{kr(4, 1, 3)}},
	}}
	report := Recompute(plan)
	want := 100.0 / 3
	if !almostEqual(report.Overall, want) {
		t.Fatalf("overall = %v, want %v", report.Overall, want)
	}
}

func TestPercent(t *testing.T) {
	tests := map[float64]int{0: 0, 33.333: 33, 41.5: 42, 99.49: 99, 99.5: 100, 100: 100}
	for in, want := range tests {
		if got := Percent(in); got != want {
			t.Fatalf("Percent(%v) = %d, want %d", in, got, want)
		}
	}
}
