// Package insights turns a goal-setting conversation into the free-text
// insights that seed plan generation.
package insights

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
)

// Readiness levels reported by analyzers.
const (
	ReadinessUnknown = "unknown"
	ReadinessLow     = "low"
	ReadinessMedium  = "medium"
	ReadinessHigh    = "high"
)

// Message is one turn of the goal-setting conversation.
type Message struct {
	Role    string `json:"role" yaml:"role"`
	Content string `json:"content" yaml:"content"`
}

// ChatInsights is the free-text context handed to plan generation.
type ChatInsights struct {
	Motivation  string `json:"motivation" yaml:"motivation"`
	Skills      string `json:"skills" yaml:"skills"`
	Resources   string `json:"resources" yaml:"resources"`
	Constraints string `json:"constraints" yaml:"constraints"`
	Values      string `json:"values" yaml:"values"`
}

// Empty reports whether no insight field carries text.
func (c ChatInsights) Empty() bool {
	return strings.TrimSpace(c.Motivation+c.Skills+c.Resources+c.Constraints+c.Values) == ""
}

// Analysis is the summary returned to callers alongside a generated plan.
type Analysis struct {
	Motivation         string       `json:"motivation" yaml:"motivation"`
	KeyInsights        []string     `json:"key_insights" yaml:"key_insights"`
	ReadinessLevel     string       `json:"readiness_level" yaml:"readiness_level"`
	RecommendedActions []string     `json:"recommended_actions" yaml:"recommended_actions"`
	Insights           ChatInsights `json:"insights" yaml:"insights"`
	Source             string       `json:"source" yaml:"source"`
}

// Neutral is the analysis used when no analyzer could produce one.
func Neutral() Analysis {
	return Analysis{ReadinessLevel: ReadinessUnknown, Source: "none"}
}

// Analyzer extracts insights from a conversation.
type Analyzer interface {
	Analyze(ctx context.Context, history []Message) (Analysis, error)
}

// Chain tries each analyzer in order and returns the first success.
type Chain struct {
	Analyzers []Analyzer
	Logger    *slog.Logger
}

func (c Chain) Analyze(ctx context.Context, history []Message) (Analysis, error) {
	var errs []error
	for _, a := range c.Analyzers {
		if a == nil {
			continue
		}
		analysis, err := a.Analyze(ctx, history)
		if err == nil {
			return analysis, nil
		}
		if c.Logger != nil {
			c.Logger.Warn("insights: analyzer failed", "analyzer", fmt.Sprintf("%T", a), "error", err)
		}
		errs = append(errs, err)
	}
	if len(errs) == 0 {
		return Analysis{}, errors.New("no analyzers configured")
	}
	return Analysis{}, errors.Join(errs...)
}

func userText(history []Message) []string {
	var out []string
	for _, m := range history {
		role := strings.ToLower(strings.TrimSpace(m.Role))
		if role != "" && role != "user" {
			continue
		}
		if text := strings.TrimSpace(m.Content); text != "" {
			out = append(out, text)
		}
	}
	return out
}
