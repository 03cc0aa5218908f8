package insights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"okrplanner/internal/adapters"
)

// ErrEmptyAnalysis is returned when the oracle's JSON carries none of the
// analysis fields.
var ErrEmptyAnalysis = errors.New("oracle analyzer: response has no analysis fields")

// OracleAnalyzer asks a language model to summarize the conversation.
type OracleAnalyzer struct {
	Oracle  adapters.Oracle
	Timeout time.Duration
}

type oracleAnalysis struct {
	Motivation         string   `json:"motivation"`
	KeyInsights        []string `json:"key_insights"`
	ReadinessLevel     string   `json:"readiness_level"`
	RecommendedActions []string `json:"recommended_actions"`
	Skills             string   `json:"skills"`
	Resources          string   `json:"resources"`
	Constraints        string   `json:"constraints"`
	Values             string   `json:"values"`
}

func (a OracleAnalyzer) Analyze(ctx context.Context, history []Message) (Analysis, error) {
	if a.Oracle == nil {
		return Analysis{}, errors.New("oracle analyzer: no oracle configured")
	}
	if len(userText(history)) == 0 {
		return Analysis{}, errors.New("oracle analyzer: conversation has no user messages")
	}

	callCtx := ctx
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		callCtx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	text, err := a.Oracle.Invoke(callCtx, renderAnalysisPrompt(history))
	if err != nil {
		return Analysis{}, fmt.Errorf("oracle analyzer: %w", err)
	}
	raw, err := adapters.ExtractJSONObject(text)
	if err != nil {
		return Analysis{}, fmt.Errorf("oracle analyzer: %w", err)
	}
	var parsed oracleAnalysis
	if err := json.Unmarshal([]byte(raw), &parsed); err != nil {
		return Analysis{}, fmt.Errorf("oracle analyzer: parse response: %w", err)
	}

	analysis := Analysis{
		Motivation:         strings.TrimSpace(parsed.Motivation),
		KeyInsights:        nonBlank(parsed.KeyInsights),
		ReadinessLevel:     normalizeReadiness(parsed.ReadinessLevel),
		RecommendedActions: nonBlank(parsed.RecommendedActions),
		Insights: ChatInsights{
			Motivation:  strings.TrimSpace(parsed.Motivation),
			Skills:      strings.TrimSpace(parsed.Skills),
			Resources:   strings.TrimSpace(parsed.Resources),
			Constraints: strings.TrimSpace(parsed.Constraints),
			Values:      strings.TrimSpace(parsed.Values),
		},
		Source: a.Oracle.Name(),
	}
	if analysis.Motivation == "" && len(analysis.KeyInsights) == 0 && analysis.Insights.Empty() {
		return Analysis{}, ErrEmptyAnalysis
	}
	return analysis, nil
}

func nonBlank(items []string) []string {
	var out []string
	for _, s := range items {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func normalizeReadiness(level string) string {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case ReadinessLow:
		return ReadinessLow
	case ReadinessMedium, "moderate":
		return ReadinessMedium
	case ReadinessHigh:
		return ReadinessHigh
	default:
		return ReadinessUnknown
	}
}

func renderAnalysisPrompt(history []Message) string {
	var b strings.Builder
	b.WriteString("# Goal Conversation Analysis\n\n")
	b.WriteString("Read the conversation between a user and a goal-setting coach.\n\n")
	b.WriteString("## Conversation\n")
	for _, m := range history {
		role := strings.TrimSpace(m.Role)
		if role == "" {
			role = "user"
		}
		fmt.Fprintf(&b, "- %s: %s\n", role, strings.TrimSpace(m.Content))
	}
	b.WriteString("\n## Required Output\n")
	b.WriteString("Reply with a single JSON object and nothing else, with these fields:\n")
	b.WriteString("- `motivation` (string)\n")
	b.WriteString("- `skills` (string)\n")
	b.WriteString("- `resources` (string)\n")
	b.WriteString("- `constraints` (string)\n")
	b.WriteString("- `values` (string)\n")
	b.WriteString("- `key_insights` (array of strings)\n")
	b.WriteString("- `readiness_level` (one of low, medium, high)\n")
	b.WriteString("- `recommended_actions` (array of strings)\n")
	return b.String()
}
