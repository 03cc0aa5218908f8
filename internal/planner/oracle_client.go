package planner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"okrplanner/internal/adapters"
	"okrplanner/internal/insights"
	"okrplanner/internal/okr"
	"okrplanner/internal/period"
)

// DefaultOracleTimeout bounds a single oracle call when none is configured.
const DefaultOracleTimeout = 90 * time.Second

// GenerateRequest is everything the oracle is told about a goal.
type GenerateRequest struct {
	Title       string
	Description string
	Breakdown   period.Breakdown
	Insights    insights.ChatInsights
}

// ReviewOutcome reports what the secondary review pass did.
type ReviewOutcome struct {
	Approved  bool
	Revised   bool
	Discarded bool
	Reason    string
	Repairs   []Repair
	Candidate *okr.Candidate
}

// OracleClient wraps the generation and review oracle calls.
type OracleClient struct {
	Oracle  adapters.Oracle
	Timeout time.Duration
	Logger  *slog.Logger
}

func (c OracleClient) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return c.Logger
}

func (c OracleClient) name() string {
	if c.Oracle == nil {
		return ""
	}
	return c.Oracle.Name()
}

func (c OracleClient) invoke(ctx context.Context, prompt string) (string, error) {
	if c.Oracle == nil {
		return "", errors.New("no oracle configured")
	}
	timeout := c.Timeout
	if timeout <= 0 {
		timeout = DefaultOracleTimeout
	}
	callCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	return c.Oracle.Invoke(callCtx, prompt)
}

func (c OracleClient) validator(b period.Breakdown) Validator {
	years := make([]int, 0, len(b.Years))
	for _, yp := range b.Years {
		years = append(years, yp.Year)
	}
	return Validator{Years: years, Logger: c.logger()}
}

// Generate asks the oracle for a candidate and validates it. Any failure,
// including a hard validation rejection, is returned as a *GenerationError.
func (c OracleClient) Generate(ctx context.Context, req GenerateRequest) (*okr.Candidate, []Repair, error) {
	text, err := c.invoke(ctx, renderGeneratePrompt(req))
	if err != nil {
		return nil, nil, &GenerationError{Oracle: c.name(), Cause: err}
	}
	candidate, err := ParseCandidate(text)
	if err != nil {
		return nil, nil, &GenerationError{Oracle: c.name(), Cause: fmt.Errorf("parse response: %w", err)}
	}
	result, err := c.validator(req.Breakdown).Validate(candidate)
	if err != nil {
		return nil, result.Repairs, &GenerationError{Oracle: c.name(), Cause: err}
	}
	return candidate, result.Repairs, nil
}

// Review runs the secondary pass over a validated candidate. It never fails:
// a revision that cannot be parsed, repeats a year or does not validate is
// discarded and the original candidate is kept.
func (c OracleClient) Review(ctx context.Context, req GenerateRequest, candidate *okr.Candidate) ReviewOutcome {
	keep := func(reason string) ReviewOutcome {
		c.logger().Warn("planner: review discarded", "oracle", c.name(), "reason", reason)
		return ReviewOutcome{Discarded: true, Reason: reason, Candidate: candidate}
	}

	prompt, err := renderReviewPrompt(req, candidate)
	if err != nil {
		return keep(err.Error())
	}
	text, err := c.invoke(ctx, prompt)
	if err != nil {
		return keep(fmt.Sprintf("review call failed: %v", err))
	}
	if isApproval(text) {
		return ReviewOutcome{Approved: true, Candidate: candidate}
	}

	revised, err := ParseCandidate(text)
	if err != nil {
		return keep(fmt.Sprintf("parse revision: %v", err))
	}
	if revised.HasDuplicateYears() {
		return keep("revision repeats a year")
	}
	result, err := c.validator(req.Breakdown).Validate(revised)
	if err != nil {
		return keep(fmt.Sprintf("revision rejected: %v", err))
	}
	if revised.Metadata.Rationale == "" {
		revised.Metadata = candidate.Metadata
	}
	return ReviewOutcome{Revised: true, Repairs: result.Repairs, Candidate: revised}
}
