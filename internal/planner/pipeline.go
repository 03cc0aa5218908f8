package planner

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"okrplanner/internal/adapters"
	"okrplanner/internal/audit"
	"okrplanner/internal/insights"
	"okrplanner/internal/metrics"
	"okrplanner/internal/okr"
	"okrplanner/internal/okrstore"
	"okrplanner/internal/period"
)

// Stage names a step of a pipeline run.
type Stage string

const (
	StageCheckExisting Stage = "check_existing"
	StageAnalyze       Stage = "analyze"
	StageGenerate      Stage = "generate"
	StageValidate      Stage = "validate"
	StageReview        Stage = "review"
	StageFallback      Stage = "fallback"
	StagePersist       Stage = "persist"
	StageDone          Stage = "done"
	StageRejected      Stage = "rejected"
)

// Plan sources reported in RunResult.Source.
const (
	SourceOracle   = "oracle"
	SourceFallback = "fallback"
)

// DefaultLockTTL bounds how long a crashed run can block a goal.
const DefaultLockTTL = 10 * time.Minute

// PlanStore is the storage the pipeline needs.
type PlanStore interface {
	AcquirePlanLock(ctx context.Context, goalID int64, owner string, ttl time.Duration) error
	ReleasePlanLock(ctx context.Context, goalID int64, owner string) error
	HasPlan(ctx context.Context, goalID int64) (bool, error)
	SavePlan(ctx context.Context, plan okr.Plan) (okr.Plan, error)
}

// EventLogger records audit events.
type EventLogger interface {
	LogEvent(ctx context.Context, event audit.Event) error
}

// RunRequest carries every input of one pipeline run.
type RunRequest struct {
	GoalID      int64
	Title       string
	Description string
	DueDate     time.Time
	// StartDate defaults to the pipeline clock when zero.
	StartDate   time.Time
	ChatHistory []insights.Message
}

// NewRunRequest builds a run request for a stored goal.
func NewRunRequest(goal okr.Goal, history []insights.Message) RunRequest {
	return RunRequest{
		GoalID:      goal.ID,
		Title:       goal.Title,
		Description: goal.Description,
		DueDate:     goal.DueDate,
		ChatHistory: history,
	}
}

// RunResult is the persisted plan plus everything learned while producing it.
type RunResult struct {
	RunID          string            `json:"run_id"`
	Plan           okr.Plan          `json:"plan"`
	Analysis       insights.Analysis `json:"analysis"`
	Breakdown      period.Breakdown  `json:"breakdown"`
	Source         string            `json:"source"`
	FallbackReason string            `json:"fallback_reason,omitempty"`
	Repairs        []Repair          `json:"repairs,omitempty"`
	Review         *ReviewSummary    `json:"review,omitempty"`
	Metadata       okr.Metadata      `json:"metadata"`
	Progress       metrics.Report    `json:"progress"`
	Trace          []Stage           `json:"trace"`
}

// ReviewSummary is the externally visible part of a ReviewOutcome.
type ReviewSummary struct {
	Approved  bool   `json:"approved"`
	Revised   bool   `json:"revised"`
	Discarded bool   `json:"discarded"`
	Reason    string `json:"reason,omitempty"`
}

func (r *RunResult) enter(s Stage) {
	r.Trace = append(r.Trace, s)
}

// Pipeline turns a goal into a persisted plan. At most one run per goal
// proceeds at a time; a goal that already has a plan is rejected.
type Pipeline struct {
	Store    PlanStore
	Oracle   adapters.Oracle
	Analyzer insights.Analyzer
	Audit    EventLogger
	Logger   *slog.Logger
	// Review enables the secondary oracle pass.
	Review  bool
	Timeout time.Duration
	LockTTL time.Duration
	Now     func() time.Time
}

func (p *Pipeline) logger() *slog.Logger {
	if p.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return p.Logger
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// Run executes CheckExisting, Analyze, Generate, Validate, Review, Persist.
// Oracle failures of any kind route to the deterministic fallback. The
// returned result is non-nil even on error and carries the stage trace.
func (p *Pipeline) Run(ctx context.Context, req RunRequest) (*RunResult, error) {
	if p.Store == nil {
		return nil, fmt.Errorf("plan store is required")
	}
	if req.GoalID <= 0 {
		return nil, fmt.Errorf("goal id is required")
	}

	res := &RunResult{RunID: uuid.NewString(), Plan: okr.Plan{GoalID: req.GoalID}}
	log := p.logger().With("goal_id", req.GoalID, "run_id", res.RunID)

	res.enter(StageCheckExisting)
	ttl := p.LockTTL
	if ttl <= 0 {
		ttl = DefaultLockTTL
	}
	if err := p.Store.AcquirePlanLock(ctx, req.GoalID, res.RunID, ttl); err != nil {
		res.enter(StageRejected)
		return res, err
	}
	defer func() {
		if err := p.Store.ReleasePlanLock(context.WithoutCancel(ctx), req.GoalID, res.RunID); err != nil {
			log.Warn("planner: release plan lock failed", "error", err)
		}
	}()

	exists, err := p.Store.HasPlan(ctx, req.GoalID)
	if err != nil {
		res.enter(StageRejected)
		return res, fmt.Errorf("check existing plan: %w", err)
	}
	if exists {
		res.enter(StageRejected)
		return res, fmt.Errorf("goal %d: %w", req.GoalID, okrstore.ErrPlanAlreadyExists)
	}
	p.audit(ctx, req.GoalID, "plan_generation_started", map[string]any{"run_id": res.RunID, "title": req.Title})

	res.enter(StageAnalyze)
	if err := p.analyze(ctx, req, res); err != nil {
		res.enter(StageRejected)
		return res, err
	}

	genReq := GenerateRequest{
		Title:       req.Title,
		Description: req.Description,
		Breakdown:   res.Breakdown,
		Insights:    res.Analysis.Insights,
	}
	candidate, err := p.generate(ctx, genReq, res, log)
	if err != nil {
		return res, err
	}
	if err := ctx.Err(); err != nil {
		return res, err
	}

	res.enter(StagePersist)
	saved, err := p.Store.SavePlan(ctx, candidate.Plan(req.GoalID))
	if err != nil {
		if errors.Is(err, okrstore.ErrPlanAlreadyExists) || errors.Is(err, okrstore.ErrPlanLocked) {
			res.enter(StageRejected)
			return res, err
		}
		log.Error("planner: persist failed", "error", err)
		return res, &PersistenceError{GoalID: req.GoalID, Cause: err}
	}

	res.Plan = saved
	res.Metadata = candidate.Metadata
	res.Progress = metrics.Recompute(saved)
	res.enter(StageDone)

	log.Info("planner: plan persisted", "source", res.Source, "years", len(saved.Yearly), "key_results", saved.KeyResultCount())
	p.audit(ctx, req.GoalID, "plan_persisted", map[string]any{
		"run_id":      res.RunID,
		"source":      res.Source,
		"years":       len(saved.Yearly),
		"key_results": saved.KeyResultCount(),
		"repairs":     len(res.Repairs),
	})
	return res, nil
}

// analyze computes the breakdown and the conversation analysis concurrently.
// Only the breakdown can fail the run; a failed analyzer degrades to neutral.
func (p *Pipeline) analyze(ctx context.Context, req RunRequest, res *RunResult) error {
	start := req.StartDate
	if start.IsZero() {
		start = p.now()
	}

	var breakdown period.Breakdown
	analysis := insights.Neutral()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		b, err := period.ComputeBreakdown(start, req.DueDate)
		if err != nil {
			return fmt.Errorf("compute period breakdown: %w", err)
		}
		breakdown = b
		return nil
	})
	g.Go(func() error {
		if p.Analyzer == nil || len(req.ChatHistory) == 0 {
			return nil
		}
		a, err := p.Analyzer.Analyze(gctx, req.ChatHistory)
		if err != nil {
			p.logger().Warn("planner: conversation analysis failed", "goal_id", req.GoalID, "error", err)
			return nil
		}
		analysis = a
		return nil
	})
	if err := g.Wait(); err != nil {
		return err
	}

	res.Breakdown = breakdown
	res.Analysis = analysis
	return nil
}

// generate returns an accepted candidate from the oracle or, failing that,
// from the fallback generator.
func (p *Pipeline) generate(ctx context.Context, req GenerateRequest, res *RunResult, log *slog.Logger) (*okr.Candidate, error) {
	goalID := res.Plan.GoalID
	if p.Oracle != nil {
		client := OracleClient{Oracle: p.Oracle, Timeout: p.Timeout, Logger: log}

		res.enter(StageGenerate)
		candidate, repairs, err := client.Generate(ctx, req)
		res.enter(StageValidate)
		if err == nil {
			res.Source = SourceOracle
			res.Repairs = repairs
			if len(repairs) > 0 {
				p.audit(ctx, goalID, "plan_repairs_applied", map[string]any{"run_id": res.RunID, "repairs": repairs})
			}
			if p.Review {
				res.enter(StageReview)
				outcome := client.Review(ctx, req, candidate)
				res.Review = &ReviewSummary{
					Approved:  outcome.Approved,
					Revised:   outcome.Revised,
					Discarded: outcome.Discarded,
					Reason:    outcome.Reason,
				}
				if outcome.Discarded {
					p.audit(ctx, goalID, "plan_review_discarded", map[string]any{"run_id": res.RunID, "reason": outcome.Reason})
				}
				if outcome.Revised {
					res.Repairs = outcome.Repairs
				}
				candidate = outcome.Candidate
			}
			return candidate, nil
		}
		log.Warn("planner: oracle generation failed, using fallback", "error", err)
		res.FallbackReason = err.Error()
	} else {
		res.FallbackReason = "no oracle configured"
	}

	res.enter(StageFallback)
	candidate := GenerateFallback(req.Title, req.Breakdown)
	years := make([]int, 0, len(req.Breakdown.Years))
	for _, yp := range req.Breakdown.Years {
		years = append(years, yp.Year)
	}
	if _, err := (Validator{Years: years, Logger: log}).Validate(candidate); err != nil {
		return nil, fmt.Errorf("fallback plan invalid: %w", err)
	}
	res.Source = SourceFallback
	res.Repairs = nil
	p.audit(ctx, goalID, "plan_fallback_used", map[string]any{"run_id": res.RunID, "reason": res.FallbackReason})
	return candidate, nil
}

func (p *Pipeline) audit(ctx context.Context, goalID int64, eventType string, payload map[string]any) {
	if p.Audit == nil {
		return
	}
	err := p.Audit.LogEvent(ctx, audit.Event{Actor: audit.ActorPlanner, Type: eventType, GoalID: goalID, Payload: payload})
	if err != nil {
		p.logger().Warn("planner: audit event failed", "type", eventType, "error", err)
	}
}
