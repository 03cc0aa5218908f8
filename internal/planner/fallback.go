package planner

import (
	"fmt"
	"strings"

	"okrplanner/internal/okr"
	"okrplanner/internal/period"
)

// GenerateFallback builds a deterministic plan without consulting an oracle:
// one yearly objective per breakdown year, each with a single key result sized
// to the months available that year. The result is valid by construction.
func GenerateFallback(goalTitle string, b period.Breakdown) *okr.Candidate {
	title := strings.TrimSpace(goalTitle)
	if title == "" {
		title = "the goal"
	}

	c := &okr.Candidate{
		Yearly: make([]okr.YearlyObjective, len(b.Years)),
		Metadata: okr.Metadata{
			Rationale: fmt.Sprintf("Baseline plan spreading %q evenly across %d months.", title, b.TotalMonths),
		},
	}
	for i, yp := range b.Years {
		c.Yearly[i] = fallbackYear(title, yp, i+1, len(b.Years))
	}
	return c
}

func fallbackYear(title string, yp period.YearPeriod, index, total int) okr.YearlyObjective {
	objective := fmt.Sprintf("Year %d of %d: make steady progress on %q", index, total, title)
	if yp.IsPartialYear {
		objective = fmt.Sprintf("Year %d of %d: make steady progress on %q (%s to %s)",
			index, total, title, monthName(yp.StartMonth), monthName(yp.EndMonth))
	}

	kr := okr.KeyResult{
		Parent:       okr.Yearly(yp.Year),
		Description:  fmt.Sprintf("Complete %d monthly milestones toward %q in %d", yp.MonthsInYear, title, yp.Year),
		TargetValue:  float64(yp.MonthsInYear),
		CurrentValue: 0,
		Unit:         "milestones",
		Frequency:    okr.FrequencyMonthly,
	}
	kr.RecomputeRate()

	return okr.YearlyObjective{
		Year:       yp.Year,
		Objective:  objective,
		KeyResults: []okr.KeyResult{kr},
	}
}

var monthNames = [...]string{"January", "February", "March", "April", "May", "June",
	"July", "August", "September", "October", "November", "December"}

func monthName(m int) string {
	if m < 1 || m > 12 {
		return fmt.Sprintf("month %d", m)
	}
	return monthNames[m-1]
}
