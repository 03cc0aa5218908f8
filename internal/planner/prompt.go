package planner

import (
	"encoding/json"
	"fmt"
	"strings"

	"okrplanner/internal/insights"
	"okrplanner/internal/okr"
	"okrplanner/internal/period"
)

// ApprovedSentinel is the exact review answer that accepts a candidate unchanged.
const ApprovedSentinel = "APPROVED"

func renderGeneratePrompt(req GenerateRequest) string {
	var b strings.Builder
	b.WriteString("# OKR Plan Generation\n\n")
	b.WriteString("You are planning a long-horizon goal as yearly objectives, quarterly objectives and key results.\n\n")

	b.WriteString("## Goal\n")
	fmt.Fprintf(&b, "- Title: %s\n", strings.TrimSpace(req.Title))
	if desc := strings.TrimSpace(req.Description); desc != "" {
		fmt.Fprintf(&b, "- Description: %s\n", desc)
	}
	b.WriteString("\n")

	writeBreakdown(&b, req.Breakdown)
	writeInsights(&b, req.Insights)

	b.WriteString("## Rules\n")
	b.WriteString("- Produce exactly one yearly objective per year listed above. Never repeat a year.\n")
	b.WriteString("- Quarterly objectives use quarter 1 to 4, at most one per quarter, only for months that fall inside the period.\n")
	b.WriteString("- Every key result needs a description and a target_value greater than zero; current_value starts at 0.\n")
	fmt.Fprintf(&b, "- Numeric values must not exceed %d.\n", okr.MaxValue)
	fmt.Fprintf(&b, "- frequency is one of: %s.\n", frequencyList())
	b.WriteString("\n")

	b.WriteString("## Required Output\n")
	b.WriteString("Reply with a single JSON object and nothing else, shaped like:\n\n")
	b.WriteString("```json\n")
	b.WriteString(candidateSchemaExample)
	b.WriteString("```\n")
	return b.String()
}

func renderReviewPrompt(req GenerateRequest, c *okr.Candidate) (string, error) {
	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal candidate: %w", err)
	}

	var b strings.Builder
	b.WriteString("# OKR Plan Review\n\n")
	b.WriteString("Review the plan below for realism, measurability and coverage of the goal.\n\n")
	b.WriteString("## Goal\n")
	fmt.Fprintf(&b, "- Title: %s\n\n", strings.TrimSpace(req.Title))
	writeBreakdown(&b, req.Breakdown)

	b.WriteString("## Plan\n")
	b.WriteString("```json\n")
	b.Write(data)
	b.WriteString("\n```\n\n")

	b.WriteString("## Required Output\n")
	fmt.Fprintf(&b, "- If the plan needs no changes, reply with exactly `%s`.\n", ApprovedSentinel)
	b.WriteString("- Otherwise reply with the full revised plan as a single JSON object in the same shape.\n")
	b.WriteString("- Keep exactly one yearly objective per year.\n")
	return b.String(), nil
}

func writeBreakdown(b *strings.Builder, bd period.Breakdown) {
	b.WriteString("## Period\n")
	fmt.Fprintf(b, "- From %s to %s: %d months over %d years.\n",
		bd.Start.Format("2006-01-02"), bd.End.Format("2006-01-02"), bd.TotalMonths, bd.TotalYears)
	for _, yp := range bd.Years {
		kind := "full year"
		if yp.IsPartialYear {
			kind = "partial year"
		}
		fmt.Fprintf(b, "- %d: months %d-%d (%d months, %s, quarters %s)\n",
			yp.Year, yp.StartMonth, yp.EndMonth, yp.MonthsInYear, kind, joinInts(yp.Quarters()))
	}
	b.WriteString("\n")
}

func writeInsights(b *strings.Builder, ci insights.ChatInsights) {
	if ci.Empty() {
		return
	}
	b.WriteString("## What We Know About The User\n")
	for _, field := range []struct{ label, value string }{
		{"Motivation", ci.Motivation},
		{"Skills", ci.Skills},
		{"Resources", ci.Resources},
		{"Constraints", ci.Constraints},
		{"Values", ci.Values},
	} {
		if v := strings.TrimSpace(field.value); v != "" {
			fmt.Fprintf(b, "- %s: %s\n", field.label, v)
		}
	}
	b.WriteString("\n")
}

func frequencyList() string {
	parts := make([]string, len(okr.Frequencies))
	for i, f := range okr.Frequencies {
		parts[i] = string(f)
	}
	return strings.Join(parts, ", ")
}

func joinInts(values []int) string {
	parts := make([]string, len(values))
	for i, v := range values {
		parts[i] = fmt.Sprintf("%d", v)
	}
	return strings.Join(parts, ",")
}

const candidateSchemaExample = `{
  "yearly_objectives": [
    {
      "year": 2026,
      "objective": "string",
      "key_results": [
        {"description": "string", "target_value": 12, "current_value": 0, "unit": "string", "frequency": "monthly"}
      ],
      "quarterly_objectives": [
        {
          "year": 2026,
          "quarter": 1,
          "objective": "string",
          "key_results": [
            {"description": "string", "target_value": 3, "current_value": 0, "unit": "string", "frequency": "weekly"}
          ]
        }
      ]
    }
  ],
  "metadata": {
    "rationale": "string",
    "dependencies": ["string"],
    "risk_factors": ["string"],
    "milestones": [{"title": "string", "year": 2026, "quarter": 2, "description": "string"}]
  }
}
`
