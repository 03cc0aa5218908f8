package insights

import (
	"context"
	"regexp"
	"strings"
)

var sentenceSplit = regexp.MustCompile(`[.!?\n]+`)

type category struct {
	name     string
	keywords []string
	action   string
}

var categories = []category{
	{"motivation", []string{"because", "want to", "dream", "why", "passion", "motivat"}, "Write down why this goal matters to you."},
	{"skills", []string{"i can", "experience", "skilled", "good at", "know how", "trained"}, "List the skills you already have and the ones to build."},
	{"resources", []string{"budget", "money", "save", "hours", "mentor", "tools", "support"}, "Identify the time, money and people you can rely on."},
	{"constraints", []string{"can't", "cannot", "limited", "only", "busy", "obstacle", "difficult"}, "Name the constraints that could slow you down."},
	{"values", []string{"value", "important", "family", "health", "care about", "meaning"}, "Connect the goal to the values you care about."},
}

// Heuristic is an offline analyzer that sorts the user's sentences into
// insight categories by keyword.
type Heuristic struct{}

func (Heuristic) Analyze(ctx context.Context, history []Message) (Analysis, error) {
	if err := ctx.Err(); err != nil {
		return Analysis{}, err
	}

	buckets := make(map[string][]string, len(categories))
	for _, text := range userText(history) {
		for _, sentence := range sentenceSplit.Split(text, -1) {
			sentence = strings.TrimSpace(sentence)
			if sentence == "" {
				continue
			}
			lower := strings.ToLower(sentence)
			for _, c := range categories {
				if containsAny(lower, c.keywords) {
					buckets[c.name] = append(buckets[c.name], sentence)
				}
			}
		}
	}

	analysis := Analysis{
		Insights: ChatInsights{
			Motivation:  strings.Join(buckets["motivation"], ". "),
			Skills:      strings.Join(buckets["skills"], ". "),
			Resources:   strings.Join(buckets["resources"], ". "),
			Constraints: strings.Join(buckets["constraints"], ". "),
			Values:      strings.Join(buckets["values"], ". "),
		},
		Source: "heuristic",
	}
	if m := buckets["motivation"]; len(m) > 0 {
		analysis.Motivation = m[0]
	}

	covered := 0
	for _, c := range categories {
		if len(buckets[c.name]) > 0 {
			covered++
			analysis.KeyInsights = append(analysis.KeyInsights, c.name+": "+buckets[c.name][0])
			continue
		}
		analysis.RecommendedActions = append(analysis.RecommendedActions, c.action)
	}

	switch {
	case len(history) == 0:
		analysis.ReadinessLevel = ReadinessUnknown
	case covered >= 4:
		analysis.ReadinessLevel = ReadinessHigh
	case covered >= 2:
		analysis.ReadinessLevel = ReadinessMedium
	default:
		analysis.ReadinessLevel = ReadinessLow
	}
	return analysis, nil
}

func containsAny(s string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(s, n) {
			return true
		}
	}
	return false
}
