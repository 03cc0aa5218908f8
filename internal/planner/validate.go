package planner

import (
	"fmt"
	"io"
	"log/slog"
	"strings"

	"okrplanner/internal/okr"
)

// Repair describes a silent fix applied to a candidate.
type Repair struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

func (r Repair) String() string {
	return fmt.Sprintf("%s: %s", r.Field, r.Message)
}

// ValidationResult lists the repairs applied to an accepted candidate.
type ValidationResult struct {
	Repairs []Repair
}

// Validator checks structural invariants of a candidate and repairs what it safely can.
type Validator struct {
	// Years restricts yearly objectives to these calendar years when non-empty.
	Years  []int
	Logger *slog.Logger
}

// Validate runs every check in order. Repairs are applied in place; any hard
// rejection is returned as ValidationErrors and the candidate must not be persisted.
func (v Validator) Validate(c *okr.Candidate) (ValidationResult, error) {
	if c == nil {
		return ValidationResult{}, ValidationErrors{{Message: "candidate is required"}}
	}

	var errs ValidationErrors
	var repairs []Repair

	errs = append(errs, v.checkYears(c)...)
	errs = append(errs, checkQuarters(c, &repairs)...)
	errs = append(errs, checkParents(c)...)
	errs = append(errs, checkValues(c, &repairs)...)
	errs = append(errs, checkFrequencies(c, &repairs)...)

	logger := v.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	for _, r := range repairs {
		logger.Info("planner: candidate repaired", "field", r.Field, "repair", r.Message)
	}

	if len(errs) > 0 {
		logger.Warn("planner: candidate rejected", "errors", len(errs), "first", errs[0].Error())
		return ValidationResult{Repairs: repairs}, errs
	}
	return ValidationResult{Repairs: repairs}, nil
}

func (v Validator) checkYears(c *okr.Candidate) ValidationErrors {
	var errs ValidationErrors
	if len(c.Yearly) == 0 {
		return append(errs, ValidationError{Field: "yearly_objectives", Message: "must contain at least one yearly objective"})
	}

	allowed := make(map[int]struct{}, len(v.Years))
	for _, y := range v.Years {
		allowed[y] = struct{}{}
	}

	seen := make(map[int]int)
	for yi, y := range c.Yearly {
		path := fmt.Sprintf("yearly_objectives[%d]", yi)
		if y.Year <= 0 {
			errs = append(errs, ValidationError{Field: path + ".year", Message: "year is required"})
			continue
		}
		if first, dup := seen[y.Year]; dup {
			errs = append(errs, ValidationError{
				Field:   path + ".year",
				Message: fmt.Sprintf("duplicate year %d (already used by yearly_objectives[%d])", y.Year, first),
			})
			continue
		}
		seen[y.Year] = yi
		if len(allowed) > 0 {
			if _, ok := allowed[y.Year]; !ok {
				errs = append(errs, ValidationError{
					Field:   path + ".year",
					Message: fmt.Sprintf("year %d is outside the planning period", y.Year),
				})
			}
		}
		if strings.TrimSpace(y.Objective) == "" {
			errs = append(errs, ValidationError{Field: path + ".objective", Message: "objective text is required"})
		}
	}
	return errs
}

func checkQuarters(c *okr.Candidate, repairs *[]Repair) ValidationErrors {
	var errs ValidationErrors
	type slot struct{ year, quarter int }
	seen := make(map[slot]string)

	for yi := range c.Yearly {
		y := &c.Yearly[yi]
		for qi := range y.Quarterly {
			q := &y.Quarterly[qi]
			path := fmt.Sprintf("yearly_objectives[%d].quarterly_objectives[%d]", yi, qi)

			if q.Year == 0 {
				q.Year = y.Year
				*repairs = append(*repairs, Repair{Field: path + ".year", Message: fmt.Sprintf("missing year set to %d", y.Year)})
			} else if q.Year != y.Year {
				errs = append(errs, ValidationError{
					Field:   path + ".year",
					Message: fmt.Sprintf("year %d does not match parent year %d", q.Year, y.Year),
				})
				continue
			}
			if q.Quarter < 1 || q.Quarter > 4 {
				errs = append(errs, ValidationError{
					Field:   path + ".quarter",
					Message: fmt.Sprintf("quarter %d must be between 1 and 4", q.Quarter),
				})
				continue
			}
			key := slot{q.Year, q.Quarter}
			if first, dup := seen[key]; dup {
				errs = append(errs, ValidationError{
					Field:   path + ".quarter",
					Message: fmt.Sprintf("duplicate quarter %d-Q%d (already used by %s)", q.Year, q.Quarter, first),
				})
				continue
			}
			seen[key] = path
			if strings.TrimSpace(q.Objective) == "" {
				errs = append(errs, ValidationError{Field: path + ".objective", Message: "objective text is required"})
			}
		}
	}
	return errs
}

func checkParents(c *okr.Candidate) ValidationErrors {
	var errs ValidationErrors
	check := func(kr okr.KeyResult, want okr.Parent, path string) {
		switch {
		case kr.YearlyObjectiveID != nil && kr.QuarterlyObjectiveID != nil:
			errs = append(errs, ValidationError{Field: path, Message: "key result references both a yearly and a quarterly objective"})
		case !kr.Parent.IsSet():
			errs = append(errs, ValidationError{Field: path, Message: "key result has no parent reference"})
		case kr.Parent != want:
			errs = append(errs, ValidationError{
				Field:   path,
				Message: fmt.Sprintf("key result parent %d-Q%d does not match its position %d-Q%d", kr.Parent.Year, kr.Parent.Quarter, want.Year, want.Quarter),
			})
		}
	}
	forEachKeyResult(c, func(kr *okr.KeyResult, parent okr.Parent, path string) {
		check(*kr, parent, path)
	})
	return errs
}

func checkValues(c *okr.Candidate, repairs *[]Repair) ValidationErrors {
	var errs ValidationErrors
	forEachKeyResult(c, func(kr *okr.KeyResult, _ okr.Parent, path string) {
		if strings.TrimSpace(kr.Description) == "" {
			errs = append(errs, ValidationError{Field: path + ".description", Message: "description is required"})
		}
		if target, changed := okr.ClampValue(kr.TargetValue); changed {
			*repairs = append(*repairs, Repair{
				Field:   path + ".target_value",
				Message: fmt.Sprintf("clamped %g to %g", kr.TargetValue, target),
			})
			kr.TargetValue = target
		}
		if kr.TargetValue <= 0 {
			errs = append(errs, ValidationError{Field: path + ".target_value", Message: "target value must be greater than zero"})
		}
		if current, changed := okr.ClampValue(kr.CurrentValue); changed {
			*repairs = append(*repairs, Repair{
				Field:   path + ".current_value",
				Message: fmt.Sprintf("clamped %g to %g", kr.CurrentValue, current),
			})
			kr.CurrentValue = current
		}
		kr.RecomputeRate()
	})
	return errs
}

func checkFrequencies(c *okr.Candidate, repairs *[]Repair) ValidationErrors {
	var errs ValidationErrors
	forEachKeyResult(c, func(kr *okr.KeyResult, _ okr.Parent, path string) {
		normalized, ok := okr.NormalizeFrequency(string(kr.Frequency))
		if !ok {
			errs = append(errs, ValidationError{
				Field:   path + ".frequency",
				Message: fmt.Sprintf("unknown frequency %q", kr.Frequency),
			})
			return
		}
		if normalized != kr.Frequency {
			*repairs = append(*repairs, Repair{
				Field:   path + ".frequency",
				Message: fmt.Sprintf("mapped %q to %q", kr.Frequency, normalized),
			})
			kr.Frequency = normalized
		}
	})
	return errs
}

// forEachKeyResult visits key results with the parent implied by their position.
func forEachKeyResult(c *okr.Candidate, fn func(kr *okr.KeyResult, parent okr.Parent, path string)) {
	for yi := range c.Yearly {
		y := &c.Yearly[yi]
		for ki := range y.KeyResults {
			fn(&y.KeyResults[ki], okr.Yearly(y.Year), fmt.Sprintf("yearly_objectives[%d].key_results[%d]", yi, ki))
		}
		for qi := range y.Quarterly {
			q := &y.Quarterly[qi]
			for ki := range q.KeyResults {
				fn(&q.KeyResults[ki], okr.Quarterly(q.Year, q.Quarter),
					fmt.Sprintf("yearly_objectives[%d].quarterly_objectives[%d].key_results[%d]", yi, qi, ki))
			}
		}
	}
}
