package period

import (
	"errors"
	"fmt"
	"time"
)

// ErrInvalidRange is returned when the end of a range precedes its start.
var ErrInvalidRange = errors.New("invalid date range")

// YearPeriod describes the months of one calendar year covered by a range.
type YearPeriod struct {
	Year          int  `json:"year" yaml:"year"`
	MonthsInYear  int  `json:"months_in_year" yaml:"months_in_year"`
	StartMonth    int  `json:"start_month" yaml:"start_month"`
	EndMonth      int  `json:"end_month" yaml:"end_month"`
	IsPartialYear bool `json:"is_partial_year" yaml:"is_partial_year"`
}

// Breakdown is the year-by-year decomposition of a date range.
type Breakdown struct {
	Start       time.Time    `json:"start" yaml:"start"`
	End         time.Time    `json:"end" yaml:"end"`
	TotalMonths int          `json:"total_months" yaml:"total_months"`
	TotalYears  int          `json:"total_years" yaml:"total_years"`
	Years       []YearPeriod `json:"years" yaml:"years"`
}

// ComputeBreakdown maps [start, end] onto one record per calendar year.
// Both boundary months count as full months.
func ComputeBreakdown(start, end time.Time) (Breakdown, error) {
	if end.Before(start) {
		return Breakdown{}, fmt.Errorf("%w: end %s is before start %s",
			ErrInvalidRange, end.Format("2006-01-02"), start.Format("2006-01-02"))
	}

	startYear, startMonth := start.Year(), int(start.Month())
	endYear, endMonth := end.Year(), int(end.Month())

	totalMonths := (endYear-startYear)*12 + (endMonth - startMonth) + 1
	b := Breakdown{
		Start:       start,
		End:         end,
		TotalMonths: totalMonths,
		TotalYears:  (totalMonths + 11) / 12,
		Years:       make([]YearPeriod, 0, endYear-startYear+1),
	}

	for year := startYear; year <= endYear; year++ {
		first := 1
		if year == startYear {
			first = startMonth
		}
		last := 12
		if year == endYear {
			last = endMonth
		}
		b.Years = append(b.Years, YearPeriod{
			Year:          year,
			MonthsInYear:  last - first + 1,
			StartMonth:    first,
			EndMonth:      last,
			IsPartialYear: first != 1 || last != 12,
		})
	}
	return b, nil
}

// Year returns the record for the given calendar year, if covered.
func (b Breakdown) Year(year int) (YearPeriod, bool) {
	for _, yp := range b.Years {
		if yp.Year == year {
			return yp, true
		}
	}
	return YearPeriod{}, false
}

// Quarters lists the quarters (1-4) that intersect the months of the year.
func (yp YearPeriod) Quarters() []int {
	var out []int
	for q := 1; q <= 4; q++ {
		qStart := (q-1)*3 + 1
		qEnd := qStart + 2
		if qEnd >= yp.StartMonth && qStart <= yp.EndMonth {
			out = append(out, q)
		}
	}
	return out
}
