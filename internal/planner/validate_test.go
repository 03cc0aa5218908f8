package planner

import (
	"errors"
	"strings"
	"testing"
	"time"

	"okrplanner/internal/okr"
	"okrplanner/internal/period"
)

func validCandidate() *okr.Candidate {
	c := &okr.Candidate{Yearly: []okr.YearlyObjective{
		{
			Year:      2025,
			Objective: "Build a base",
			KeyResults: []okr.KeyResult{
				{Description: "Run 500 km", TargetValue: 500, Unit: "km", Frequency: okr.FrequencyMonthly},
			},
			Quarterly: []okr.QuarterlyObjective{
				{Year: 2025, Quarter: 2, Objective: "First 10k", KeyResults: []okr.KeyResult{
					{Description: "Finish a 10k race", TargetValue: 1, Frequency: okr.FrequencyOnce},
				}},
			},
		},
		{Year: 2026, Objective: "Half marathon", KeyResults: []okr.KeyResult{
			{Description: "Long runs", TargetValue: 40, CurrentValue: 10, Frequency: okr.FrequencyWeekly},
		}},
	}}
	c.AssignParents()
	return c
}

func hasField(err error, field string) bool {
	var errs ValidationErrors
	if !errors.As(err, &errs) {
		return false
	}
	for _, e := range errs {
		if e.Field == field {
			return true
		}
	}
	return false
}

func TestValidateAcceptsValidCandidate(t *testing.T) {
	c := validCandidate()
	res, err := Validator{Years: []int{2025, 2026, 2027}}.Validate(c)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if len(res.Repairs) != 0 {
		t.Fatalf("repairs = %v, want none", res.Repairs)
	}
	if got := c.Yearly[1].KeyResults[0].AchievementRate; got != 25 {
		t.Fatalf("achievement rate = %v, want 25", got)
	}
}

func TestValidateRejectsDuplicateYears(t *testing.T) {
	c := validCandidate()
	c.Yearly[1].Year = 2025
	c.AssignParents()

	_, err := Validator{}.Validate(c)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if !hasField(err, "yearly_objectives[1].year") {
		t.Fatalf("err = %v, want duplicate year on yearly_objectives[1]", err)
	}
}

func TestValidateRejectsYearsOutsidePeriod(t *testing.T) {
	c := validCandidate()
	_, err := Validator{Years: []int{2025}}.Validate(c)
	if !hasField(err, "yearly_objectives[1].year") {
		t.Fatalf("err = %v, want out-of-period year", err)
	}
}

func TestValidateRejectsEmptyCandidate(t *testing.T) {
	if _, err := (Validator{}).Validate(&okr.Candidate{}); !errors.Is(err, ErrValidation) {
		t.Fatalf("err = %v, want ErrValidation", err)
	}
	if _, err := (Validator{}).Validate(nil); !errors.Is(err, ErrValidation) {
		t.Fatalf("nil err = %v, want ErrValidation", err)
	}
}

func TestValidateQuarters(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(q *okr.QuarterlyObjective)
		field   string
		repairs int
	}{
		{name: "quarter zero", mutate: func(q *okr.QuarterlyObjective) { q.Quarter = 0 }, field: "yearly_objectives[0].quarterly_objectives[0].quarter"},
		{name: "quarter five", mutate: func(q *okr.QuarterlyObjective) { q.Quarter = 5 }, field: "yearly_objectives[0].quarterly_objectives[0].quarter"},
		{name: "year mismatch", mutate: func(q *okr.QuarterlyObjective) { q.Year = 2026 }, field: "yearly_objectives[0].quarterly_objectives[0].year"},
		{name: "missing year repaired", mutate: func(q *okr.QuarterlyObjective) { q.Year = 0 }, repairs: 1},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := validCandidate()
			tt.mutate(&c.Yearly[0].Quarterly[0])
			c.AssignParents()
			res, err := Validator{}.Validate(c)
			if tt.field == "" {
				if err != nil {
					t.Fatalf("Validate: %v", err)
				}
				if len(res.Repairs) != tt.repairs {
					t.Fatalf("repairs = %v, want %d", res.Repairs, tt.repairs)
				}
				return
			}
			if !hasField(err, tt.field) {
				t.Fatalf("err = %v, want field %s", err, tt.field)
			}
		})
	}
}

func TestValidateRejectsDuplicateQuarter(t *testing.T) {
	c := validCandidate()
	c.Yearly[0].Quarterly = append(c.Yearly[0].Quarterly, okr.QuarterlyObjective{Year: 2025, Quarter: 2, Objective: "Again"})
	_, err := Validator{}.Validate(c)
	if !hasField(err, "yearly_objectives[0].quarterly_objectives[1].quarter") {
		t.Fatalf("err = %v, want duplicate quarter", err)
	}
}

func TestValidateParents(t *testing.T) {
	t.Run("missing parent", func(t *testing.T) {
		c := validCandidate()
		c.Yearly[0].KeyResults[0].Parent = okr.Parent{}
		if _, err := (Validator{}).Validate(c); !hasField(err, "yearly_objectives[0].key_results[0]") {
			t.Fatalf("err = %v, want missing parent", err)
		}
	})
	t.Run("both parents", func(t *testing.T) {
		c := validCandidate()
		y, q := int64(1), int64(2)
		c.Yearly[0].KeyResults[0].YearlyObjectiveID = &y
		c.Yearly[0].KeyResults[0].QuarterlyObjectiveID = &q
		if _, err := (Validator{}).Validate(c); !hasField(err, "yearly_objectives[0].key_results[0]") {
			t.Fatalf("err = %v, want both parents", err)
		}
	})
	t.Run("wrong position", func(t *testing.T) {
		c := validCandidate()
		c.Yearly[0].Quarterly[0].KeyResults[0].Parent = okr.Yearly(2025)
		if _, err := (Validator{}).Validate(c); !hasField(err, "yearly_objectives[0].quarterly_objectives[0].key_results[0]") {
			t.Fatalf("err = %v, want parent mismatch", err)
		}
	})
}

func TestValidateClampsValues(t *testing.T) {
	c := validCandidate()
	c.Yearly[0].KeyResults[0].TargetValue = 500000000
	c.Yearly[0].KeyResults[0].CurrentValue = -3

	res, err := Validator{}.Validate(c)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	kr := c.Yearly[0].KeyResults[0]
	if kr.TargetValue != okr.MaxValue {
		t.Fatalf("target = %v, want %v", kr.TargetValue, okr.MaxValue)
	}
	if kr.CurrentValue != 0 {
		t.Fatalf("current = %v, want 0", kr.CurrentValue)
	}
	if len(res.Repairs) != 2 {
		t.Fatalf("repairs = %v, want 2", res.Repairs)
	}
}

func TestValidateRejectsNonPositiveTarget(t *testing.T) {
	c := validCandidate()
	c.Yearly[1].KeyResults[0].TargetValue = 0
	if _, err := (Validator{}).Validate(c); !hasField(err, "yearly_objectives[1].key_results[0].target_value") {
		t.Fatalf("err = %v, want target rejection", err)
	}
}

func TestValidateFrequencies(t *testing.T) {
	c := validCandidate()
	c.Yearly[0].KeyResults[0].Frequency = "Every Month"
	res, err := Validator{}.Validate(c)
	if err != nil {
		t.Fatalf("Validate: %v", err)
	}
	if got := c.Yearly[0].KeyResults[0].Frequency; got != okr.FrequencyMonthly {
		t.Fatalf("frequency = %q, want monthly", got)
	}
	if len(res.Repairs) != 1 || !strings.Contains(res.Repairs[0].Message, "monthly") {
		t.Fatalf("repairs = %v", res.Repairs)
	}

	c = validCandidate()
	c.Yearly[0].KeyResults[0].Frequency = "fortnightly"
	if _, err := (Validator{}).Validate(c); !hasField(err, "yearly_objectives[0].key_results[0].frequency") {
		t.Fatalf("err = %v, want unknown frequency", err)
	}
}

func TestFallbackIsValidByConstruction(t *testing.T) {
	start := time.Date(2025, 3, 15, 0, 0, 0, 0, time.UTC)
	due := time.Date(2030, 6, 10, 0, 0, 0, 0, time.UTC)
	b, err := period.ComputeBreakdown(start, due)
	if err != nil {
		t.Fatalf("ComputeBreakdown: %v", err)
	}

	c := GenerateFallback("Run a marathon", b)
	if len(c.Yearly) != 6 {
		t.Fatalf("yearly = %d, want 6", len(c.Yearly))
	}
	years := make([]int, 0, len(b.Years))
	for _, yp := range b.Years {
		years = append(years, yp.Year)
	}
	res, err := Validator{Years: years}.Validate(c)
	if err != nil {
		t.Fatalf("fallback invalid: %v", err)
	}
	if len(res.Repairs) != 0 {
		t.Fatalf("fallback repairs = %v, want none", res.Repairs)
	}

	first := c.Yearly[0]
	if first.Year != 2025 || first.KeyResults[0].TargetValue != 10 {
		t.Fatalf("first year = %d target %v, want 2025 target 10", first.Year, first.KeyResults[0].TargetValue)
	}
	if !strings.Contains(first.Objective, "March to December") {
		t.Fatalf("partial year objective = %q", first.Objective)
	}
	last := c.Yearly[len(c.Yearly)-1]
	if last.KeyResults[0].TargetValue != 6 {
		t.Fatalf("last year target = %v, want 6", last.KeyResults[0].TargetValue)
	}
}

func TestFallbackEmptyTitle(t *testing.T) {
	b, err := period.ComputeBreakdown(time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2025, 12, 31, 0, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatalf("ComputeBreakdown: %v", err)
	}
	c := GenerateFallback("  ", b)
	if !strings.Contains(c.Yearly[0].Objective, `"the goal"`) {
		t.Fatalf("objective = %q", c.Yearly[0].Objective)
	}
	if strings.Contains(c.Yearly[0].Objective, "(") {
		t.Fatalf("full year should not list months: %q", c.Yearly[0].Objective)
	}
}
