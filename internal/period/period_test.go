package period

import (
	"errors"
	"testing"
	"time"
)

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func TestComputeBreakdownScenario(t *testing.T) {
	b, err := ComputeBreakdown(date(2025, time.March, 15), date(2027, time.June, 10))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got, want := b.TotalMonths, 28; got != want {
		t.Fatalf("total months = %d, want %d", got, want)
	}
	if got, want := b.TotalYears, 3; got != want {
		t.Fatalf("total years = %d, want %d", got, want)
	}

	want := []YearPeriod{
		{Year: 2025, MonthsInYear: 10, StartMonth: 3, EndMonth: 12, IsPartialYear: true},
		{Year: 2026, MonthsInYear: 12, StartMonth: 1, EndMonth: 12, IsPartialYear: false},
		{Year: 2027, MonthsInYear: 6, StartMonth: 1, EndMonth: 6, IsPartialYear: true},
	}
	if len(b.Years) != len(want) {
		t.Fatalf("years len = %d, want %d", len(b.Years), len(want))
	}
	for i := range want {
		if b.Years[i] != want[i] {
			t.Fatalf("years[%d] = %+v, want %+v", i, b.Years[i], want[i])
		}
	}
}

func TestComputeBreakdownInvalidRange(t *testing.T) {
	_, err := ComputeBreakdown(date(2026, time.January, 2), date(2026, time.January, 1))
	if !errors.Is(err, ErrInvalidRange) {
		t.Fatalf("expected ErrInvalidRange, got %v", err)
	}
}

func TestComputeBreakdownSameMonth(t *testing.T) {
	b, err := ComputeBreakdown(date(2026, time.May, 3), date(2026, time.May, 20))
	if err != nil {
		t.Fatal(err)
	}
	if b.TotalMonths != 1 || b.TotalYears != 1 || len(b.Years) != 1 {
		t.Fatalf("unexpected breakdown: %+v", b)
	}
	if !b.Years[0].IsPartialYear || b.Years[0].MonthsInYear != 1 {
		t.Fatalf("unexpected year record: %+v", b.Years[0])
	}
}

func TestComputeBreakdownInvariants(t *testing.T) {
	start := date(2020, time.January, 1)
	for offset := 0; offset < 120; offset += 7 {
		for span := 0; span < 90; span += 5 {
			s := start.AddDate(0, offset, 0)
			e := s.AddDate(0, span, 3)
			b, err := ComputeBreakdown(s, e)
			if err != nil {
				t.Fatalf("range %s..%s: %v", s, e, err)
			}
			sum := 0
			for i, yp := range b.Years {
				if yp.Year != s.Year()+i {
					t.Fatalf("range %s..%s: year gap or duplicate at %d: %+v", s, e, i, b.Years)
				}
				if yp.MonthsInYear < 1 || yp.MonthsInYear > 12 {
					t.Fatalf("months in year out of range: %+v", yp)
				}
				sum += yp.MonthsInYear
			}
			if sum != b.TotalMonths {
				t.Fatalf("range %s..%s: sum months = %d, want %d", s, e, sum, b.TotalMonths)
			}
			if got := len(b.Years); got != e.Year()-s.Year()+1 {
				t.Fatalf("records = %d, want %d", got, e.Year()-s.Year()+1)
			}
		}
	}
}

func TestYearPeriodQuarters(t *testing.T) {
	yp := YearPeriod{Year: 2025, StartMonth: 3, EndMonth: 8}
	got := yp.Quarters()
	want := []int{1, 2, 3}
	if len(got) != len(want) {
		t.Fatalf("quarters = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("quarters = %v, want %v", got, want)
		}
	}
}
