package planner

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"

	"okrplanner/internal/adapters"
	"okrplanner/internal/okr"
)

// number accepts a JSON number, a numeric string ("1,200", " 12 ") or null.
type number struct {
	value float64
	set   bool
}

func (n *number) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*n = number{}
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		s = strings.TrimSpace(strings.ReplaceAll(s, ",", ""))
		if s == "" {
			*n = number{}
			return nil
		}
		v, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return fmt.Errorf("invalid number %q", s)
		}
		*n = number{value: v, set: true}
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return fmt.Errorf("invalid number %s", data)
	}
	*n = number{value: v, set: true}
	return nil
}

func (n number) integer(field string) (int, error) {
	if !n.set {
		return 0, nil
	}
	if n.value != math.Trunc(n.value) || math.Abs(n.value) > math.MaxInt32 {
		return 0, fmt.Errorf("%s: %g is not a whole number", field, n.value)
	}
	return int(n.value), nil
}

type rawKeyResult struct {
	Description  string `json:"description"`
	TargetValue  number `json:"target_value"`
	CurrentValue number `json:"current_value"`
	Unit         string `json:"unit"`
	Frequency    string `json:"frequency"`
}

type rawQuarterly struct {
	Year       number         `json:"year"`
	Quarter    number         `json:"quarter"`
	Objective  string         `json:"objective"`
	KeyResults []rawKeyResult `json:"key_results"`
}

type rawYearly struct {
	Year       number         `json:"year"`
	Objective  string         `json:"objective"`
	KeyResults []rawKeyResult `json:"key_results"`
	Quarterly  []rawQuarterly `json:"quarterly_objectives"`
}

type rawMilestone struct {
	Title       string `json:"title"`
	Year        number `json:"year"`
	Quarter     number `json:"quarter"`
	Description string `json:"description"`
}

type rawCandidate struct {
	Yearly   []rawYearly `json:"yearly_objectives"`
	Metadata struct {
		Rationale    string         `json:"rationale"`
		Dependencies []string       `json:"dependencies"`
		RiskFactors  []string       `json:"risk_factors"`
		Milestones   []rawMilestone `json:"milestones"`
	} `json:"metadata"`
}

// ParseCandidate converts untrusted oracle text into a candidate. Surrounding
// prose and code fences are ignored; the first JSON object is decoded. Parent
// references are assigned from the nesting so the validator can check them.
func ParseCandidate(text string) (*okr.Candidate, error) {
	raw, err := adapters.ExtractJSONObject(text)
	if err != nil {
		return nil, err
	}
	var rc rawCandidate
	if err := json.Unmarshal([]byte(raw), &rc); err != nil {
		return nil, fmt.Errorf("decode candidate: %w", err)
	}
	if rc.Yearly == nil {
		return nil, fmt.Errorf("decode candidate: missing yearly_objectives")
	}

	c := &okr.Candidate{
		Yearly: make([]okr.YearlyObjective, 0, len(rc.Yearly)),
		Metadata: okr.Metadata{
			Rationale:    strings.TrimSpace(rc.Metadata.Rationale),
			Dependencies: rc.Metadata.Dependencies,
			RiskFactors:  rc.Metadata.RiskFactors,
		},
	}
	for yi, ry := range rc.Yearly {
		path := fmt.Sprintf("yearly_objectives[%d]", yi)
		year, err := ry.Year.integer(path + ".year")
		if err != nil {
			return nil, err
		}
		y := okr.YearlyObjective{
			Year:       year,
			Objective:  strings.TrimSpace(ry.Objective),
			KeyResults: convertKeyResults(ry.KeyResults),
		}
		for qi, rq := range ry.Quarterly {
			qpath := fmt.Sprintf("%s.quarterly_objectives[%d]", path, qi)
			qyear, err := rq.Year.integer(qpath + ".year")
			if err != nil {
				return nil, err
			}
			quarter, err := rq.Quarter.integer(qpath + ".quarter")
			if err != nil {
				return nil, err
			}
			y.Quarterly = append(y.Quarterly, okr.QuarterlyObjective{
				Year:       qyear,
				Quarter:    quarter,
				Objective:  strings.TrimSpace(rq.Objective),
				KeyResults: convertKeyResults(rq.KeyResults),
			})
		}
		c.Yearly = append(c.Yearly, y)
	}
	for _, rm := range rc.Metadata.Milestones {
		year, _ := rm.Year.integer("milestone.year")
		quarter, _ := rm.Quarter.integer("milestone.quarter")
		c.Metadata.Milestones = append(c.Metadata.Milestones, okr.Milestone{
			Title:       strings.TrimSpace(rm.Title),
			Year:        year,
			Quarter:     quarter,
			Description: strings.TrimSpace(rm.Description),
		})
	}

	c.AssignParents()
	return c, nil
}

func convertKeyResults(raw []rawKeyResult) []okr.KeyResult {
	out := make([]okr.KeyResult, 0, len(raw))
	for _, rk := range raw {
		out = append(out, okr.KeyResult{
			Description:  strings.TrimSpace(rk.Description),
			TargetValue:  rk.TargetValue.value,
			CurrentValue: rk.CurrentValue.value,
			Unit:         strings.TrimSpace(rk.Unit),
			Frequency:    okr.Frequency(strings.TrimSpace(rk.Frequency)),
		})
	}
	return out
}

// isApproval reports whether a review answer is the approval sentinel.
func isApproval(text string) bool {
	s := strings.TrimSpace(text)
	s = strings.Trim(s, "`\"'*.")
	return strings.EqualFold(strings.TrimSpace(s), ApprovedSentinel)
}
