package okrstore

import (
	"context"
	"fmt"
	"strings"

	"github.com/pmezard/go-difflib/difflib"
	"gopkg.in/yaml.v3"

	"okrplanner/internal/okr"
)

// Export is the YAML document written by `plan export`.
type Export struct {
	Goal   okr.Goal              `yaml:"goal"`
	Yearly []okr.YearlyObjective `yaml:"yearly_objectives"`
}

// ExportPlan renders the goal and its plan as YAML.
func (s *Store) ExportPlan(ctx context.Context, goalID int64) ([]byte, error) {
	goal, err := s.GetGoal(ctx, goalID)
	if err != nil {
		return nil, err
	}
	plan, err := s.LoadPlan(ctx, goalID)
	if err != nil {
		return nil, err
	}
	return MarshalExport(goal, plan)
}

// MarshalExport renders a goal and plan as YAML.
func MarshalExport(goal okr.Goal, plan okr.Plan) ([]byte, error) {
	data, err := yaml.Marshal(Export{Goal: goal, Yearly: plan.Yearly})
	if err != nil {
		return nil, fmt.Errorf("marshal plan export: %w", err)
	}
	return data, nil
}

// ParseExport reads a document produced by MarshalExport.
func ParseExport(data []byte) (Export, error) {
	var doc Export
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return Export{}, fmt.Errorf("parse plan export: %w", err)
	}
	return doc, nil
}

// DiffExports returns a unified diff between two exports, or "" when they match.
func DiffExports(current, edited []byte, fromName, toName string) (string, error) {
	diff := difflib.UnifiedDiff{
		A:        difflib.SplitLines(string(current)),
		B:        difflib.SplitLines(string(edited)),
		FromFile: fromName,
		ToFile:   toName,
		Context:  3,
	}
	text, err := difflib.GetUnifiedDiffString(diff)
	if err != nil {
		return "", fmt.Errorf("diff plan export: %w", err)
	}
	if strings.TrimSpace(text) == "" {
		return "", nil
	}
	return text, nil
}
