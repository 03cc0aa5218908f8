package metrics

import (
	"math"

	"okrplanner/internal/okr"
)

// KeyResult statuses derived from the achievement rate.
const (
	StatusNotStarted = "not_started"
	StatusInProgress = "in_progress"
	StatusAchieved   = "achieved"
)

// KeyResultProgress is the progress of one key result.
type KeyResultProgress struct {
	ID          int64   `json:"id"`
	Description string  `json:"description"`
	Progress    float64 `json:"progress"`
	Percent     int     `json:"percent"`
	Status      string  `json:"status"`
}

// QuarterlyProgress is the mean progress of a quarterly objective's key results.
type QuarterlyProgress struct {
	ID         int64               `json:"id"`
	Year       int                 `json:"year"`
	Quarter    int                 `json:"quarter"`
	Progress   float64             `json:"progress"`
	Percent    int                 `json:"percent"`
	KeyResults []KeyResultProgress `json:"key_results"`
}

// YearlyProgress averages the views present for a year: the mean of its
// direct key results and the mean of its quarterly objectives.
type YearlyProgress struct {
	ID         int64               `json:"id"`
	Year       int                 `json:"year"`
	Progress   float64             `json:"progress"`
	Percent    int                 `json:"percent"`
	KeyResults []KeyResultProgress `json:"key_results"`
	Quarterly  []QuarterlyProgress `json:"quarterly"`
}

// Report is the bottom-up progress of one goal at full precision.
type Report struct {
	GoalID         int64            `json:"goal_id"`
	Overall        float64          `json:"overall"`
	OverallPercent int              `json:"overall_percent"`
	Yearly         []YearlyProgress `json:"yearly"`
}

// KeyResult returns the progress of the key result with the given id.
func (r Report) KeyResult(id int64) (KeyResultProgress, bool) {
	for _, y := range r.Yearly {
		for _, kr := range y.KeyResults {
			if kr.ID == id {
				return kr, true
			}
		}
		for _, q := range y.Quarterly {
			for _, kr := range q.KeyResults {
				if kr.ID == id {
					return kr, true
				}
			}
		}
	}
	return KeyResultProgress{}, false
}

// Year returns the progress of the given year.
func (r Report) Year(year int) (YearlyProgress, bool) {
	for _, y := range r.Yearly {
		if y.Year == year {
			return y, true
		}
	}
	return YearlyProgress{}, false
}

// Recompute aggregates a plan bottom-up. Rates are recomputed from current
// and target values rather than read from the stored column.
func Recompute(plan okr.Plan) Report {
	report := Report{GoalID: plan.GoalID, Yearly: make([]YearlyProgress, 0, len(plan.Yearly))}
	values := make([]float64, 0, len(plan.Yearly))
	for _, y := range plan.Yearly {
		yp := recomputeYear(y)
		values = append(values, yp.Progress)
		report.Yearly = append(report.Yearly, yp)
	}
	report.Overall, _ = mean(values)
	report.OverallPercent = Percent(report.Overall)
	return report
}

func recomputeYear(y okr.YearlyObjective) YearlyProgress {
	yp := YearlyProgress{ID: y.ID, Year: y.Year}
	yp.KeyResults = keyResultProgress(y.KeyResults)

	quarterValues := make([]float64, 0, len(y.Quarterly))
	for _, q := range y.Quarterly {
		qp := QuarterlyProgress{ID: q.ID, Year: y.Year, Quarter: q.Quarter}
		qp.KeyResults = keyResultProgress(q.KeyResults)
		qp.Progress, _ = mean(progressValues(qp.KeyResults))
		qp.Percent = Percent(qp.Progress)
		quarterValues = append(quarterValues, qp.Progress)
		yp.Quarterly = append(yp.Quarterly, qp)
	}

	var views []float64
	if direct, ok := mean(progressValues(yp.KeyResults)); ok {
		views = append(views, direct)
	}
	if quarters, ok := mean(quarterValues); ok {
		views = append(views, quarters)
	}
	yp.Progress, _ = mean(views)
	yp.Percent = Percent(yp.Progress)
	return yp
}

func keyResultProgress(krs []okr.KeyResult) []KeyResultProgress {
	out := make([]KeyResultProgress, 0, len(krs))
	for _, kr := range krs {
		rate := okr.AchievementRate(kr.CurrentValue, kr.TargetValue)
		out = append(out, KeyResultProgress{
			ID:          kr.ID,
			Description: kr.Description,
			Progress:    rate,
			Percent:     Percent(rate),
			Status:      Status(rate),
		})
	}
	return out
}

func progressValues(krs []KeyResultProgress) []float64 {
	values := make([]float64, 0, len(krs))
	for _, kr := range krs {
		values = append(values, kr.Progress)
	}
	return values
}

// mean returns 0 and false for an empty slice.
func mean(values []float64) (float64, bool) {
	if len(values) == 0 {
		return 0, false
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values)), true
}

// Percent rounds a progress value for display.
func Percent(v float64) int {
	return int(math.Round(v))
}

// Status classifies an achievement rate.
func Status(rate float64) string {
	switch {
	case rate >= 100:
		return StatusAchieved
	case rate > 0:
		return StatusInProgress
	default:
		return StatusNotStarted
	}
}
