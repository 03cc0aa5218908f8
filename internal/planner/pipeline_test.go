package planner

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"okrplanner/internal/adapters"
	"okrplanner/internal/audit"
	"okrplanner/internal/insights"
	"okrplanner/internal/okr"
	"okrplanner/internal/okrstore"
	"okrplanner/internal/period"
)

type pipelineEnv struct {
	store *okrstore.Store
	audit *audit.Logger
	goal  okr.Goal
}

func newPipelineEnv(t *testing.T) pipelineEnv {
	t.Helper()
	dir := t.TempDir()
	store, err := okrstore.Open(filepath.Join(dir, "data", "okrplanner.sqlite"))
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() { _ = store.Close() })
	log, err := audit.Open(filepath.Join(dir, "audit", "audit.sqlite"))
	if err != nil {
		t.Fatalf("open audit: %v", err)
	}
	t.Cleanup(func() { _ = log.Close() })

	goal, err := store.CreateGoal(context.Background(), okrstore.NewGoal{
		Title:   "Run a marathon",
		DueDate: time.Now().AddDate(6, 0, 0),
	})
	if err != nil {
		t.Fatalf("create goal: %v", err)
	}
	return pipelineEnv{store: store, audit: log, goal: goal}
}

func (e pipelineEnv) request() RunRequest {
	return RunRequest{
		GoalID:    e.goal.ID,
		Title:     e.goal.Title,
		StartDate: testStart,
		DueDate:   testDue,
	}
}

func (e pipelineEnv) auditTypes(t *testing.T) map[string]int {
	t.Helper()
	records, err := e.audit.List(context.Background(), e.goal.ID)
	if err != nil {
		t.Fatalf("list audit: %v", err)
	}
	types := make(map[string]int)
	for _, r := range records {
		types[r.Type]++
	}
	return types
}

func traceContains(trace []Stage, s Stage) bool {
	for _, got := range trace {
		if got == s {
			return true
		}
	}
	return false
}

func TestPipelineOraclePlan(t *testing.T) {
	env := newPipelineEnv(t)
	mock := adapters.NewMockAdapter(adapters.MockResponse{Text: oracleJSON("500000000", 2025, 2026, 2027)})
	p := &Pipeline{Store: env.store, Oracle: mock, Audit: env.audit}

	res, err := p.Run(context.Background(), env.request())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Source != SourceOracle {
		t.Fatalf("source = %q, want oracle", res.Source)
	}
	if len(res.Plan.Yearly) != 3 || res.Plan.Yearly[0].ID == 0 {
		t.Fatalf("plan = %+v, want 3 persisted years", res.Plan)
	}
	if len(res.Repairs) != 3 {
		t.Fatalf("repairs = %v, want 3 clamps", res.Repairs)
	}
	if res.Breakdown.TotalYears != 6 {
		t.Fatalf("total years = %d, want 6", res.Breakdown.TotalYears)
	}
	if res.Trace[len(res.Trace)-1] != StageDone {
		t.Fatalf("trace = %v, want done last", res.Trace)
	}

	loaded, err := env.store.LoadPlan(context.Background(), env.goal.ID)
	if err != nil {
		t.Fatalf("LoadPlan: %v", err)
	}
	if got := loaded.Yearly[0].KeyResults[0].TargetValue; got != okr.MaxValue {
		t.Fatalf("stored target = %v, want %v", got, okr.MaxValue)
	}

	types := env.auditTypes(t)
	for _, want := range []string{"plan_generation_started", "plan_repairs_applied", "plan_persisted"} {
		if types[want] == 0 {
			t.Fatalf("missing audit event %s in %v", want, types)
		}
	}
}

func TestPipelineRejectsExistingPlan(t *testing.T) {
	env := newPipelineEnv(t)
	p := &Pipeline{Store: env.store}
	first, err := p.Run(context.Background(), env.request())
	if err != nil {
		t.Fatalf("first Run: %v", err)
	}

	mock := adapters.NewMockAdapter(adapters.MockResponse{Text: oracleJSON("10", 2025)})
	p.Oracle = mock
	res, err := p.Run(context.Background(), env.request())
	if !errors.Is(err, okrstore.ErrPlanAlreadyExists) {
		t.Fatalf("err = %v, want ErrPlanAlreadyExists", err)
	}
	if res.Trace[len(res.Trace)-1] != StageRejected {
		t.Fatalf("trace = %v, want rejected", res.Trace)
	}
	if len(mock.Prompts()) != 0 {
		t.Fatal("oracle called for a goal that already has a plan")
	}

	loaded, err := env.store.LoadPlan(context.Background(), env.goal.ID)
	if err != nil {
		t.Fatalf("LoadPlan: %v", err)
	}
	if len(loaded.Yearly) != len(first.Plan.Yearly) || loaded.Yearly[0].ID != first.Plan.Yearly[0].ID {
		t.Fatalf("existing plan changed: %+v", loaded)
	}
}

func TestPipelineFallsBackOnOracleFailure(t *testing.T) {
	env := newPipelineEnv(t)
	mock := adapters.NewMockAdapter(adapters.MockResponse{Text: oracleJSON("10", 2025, 2025)})
	p := &Pipeline{Store: env.store, Oracle: mock, Audit: env.audit}

	res, err := p.Run(context.Background(), env.request())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Source != SourceFallback || res.FallbackReason == "" {
		t.Fatalf("source = %q reason = %q, want fallback with reason", res.Source, res.FallbackReason)
	}
	if len(res.Plan.Yearly) != 6 {
		t.Fatalf("yearly = %d, want one per breakdown year", len(res.Plan.Yearly))
	}
	if !traceContains(res.Trace, StageGenerate) || !traceContains(res.Trace, StageFallback) {
		t.Fatalf("trace = %v, want generate then fallback", res.Trace)
	}
	if env.auditTypes(t)["plan_fallback_used"] != 1 {
		t.Fatal("missing plan_fallback_used audit event")
	}
}

func TestPipelineWithoutOracleUsesFallback(t *testing.T) {
	env := newPipelineEnv(t)
	p := &Pipeline{Store: env.store}

	res, err := p.Run(context.Background(), env.request())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	want := []Stage{StageCheckExisting, StageAnalyze, StageFallback, StagePersist, StageDone}
	if len(res.Trace) != len(want) {
		t.Fatalf("trace = %v, want %v", res.Trace, want)
	}
	for i := range want {
		if res.Trace[i] != want[i] {
			t.Fatalf("trace = %v, want %v", res.Trace, want)
		}
	}
	if res.Progress.Overall != 0 || len(res.Progress.Yearly) != 6 {
		t.Fatalf("progress = %+v", res.Progress)
	}
}

func TestPipelineReviewDiscardKeepsOriginal(t *testing.T) {
	env := newPipelineEnv(t)
	mock := adapters.NewMockAdapter(
		adapters.MockResponse{Text: oracleJSON("10", 2025, 2026)},
		adapters.MockResponse{Text: oracleJSON("10", 2025, 2026, 2026)},
	)
	p := &Pipeline{Store: env.store, Oracle: mock, Audit: env.audit, Review: true}

	res, err := p.Run(context.Background(), env.request())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Review == nil || !res.Review.Discarded {
		t.Fatalf("review = %+v, want discarded", res.Review)
	}
	if len(res.Plan.Yearly) != 2 {
		t.Fatalf("yearly = %d, want original 2", len(res.Plan.Yearly))
	}
	if env.auditTypes(t)["plan_review_discarded"] != 1 {
		t.Fatal("missing plan_review_discarded audit event")
	}
}

func TestPipelineLockHeld(t *testing.T) {
	env := newPipelineEnv(t)
	ctx := context.Background()
	if err := env.store.AcquirePlanLock(ctx, env.goal.ID, "other-run", time.Minute); err != nil {
		t.Fatalf("AcquirePlanLock: %v", err)
	}

	p := &Pipeline{Store: env.store}
	_, err := p.Run(ctx, env.request())
	if !errors.Is(err, okrstore.ErrPlanLocked) {
		t.Fatalf("err = %v, want ErrPlanLocked", err)
	}
	if has, _ := env.store.HasPlan(ctx, env.goal.ID); has {
		t.Fatal("plan written while another run held the lock")
	}
}

func TestPipelineConcurrentRunsPersistOnce(t *testing.T) {
	env := newPipelineEnv(t)
	p := &Pipeline{Store: env.store}

	const runs = 4
	var wg sync.WaitGroup
	errs := make([]error, runs)
	for i := 0; i < runs; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			_, errs[i] = p.Run(context.Background(), env.request())
		}(i)
	}
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		switch {
		case err == nil:
			succeeded++
		case errors.Is(err, okrstore.ErrPlanLocked), errors.Is(err, okrstore.ErrPlanAlreadyExists):
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if succeeded != 1 {
		t.Fatalf("succeeded = %d, want 1", succeeded)
	}
	years, err := env.store.ListYearlyObjectives(context.Background(), env.goal.ID)
	if err != nil {
		t.Fatalf("ListYearlyObjectives: %v", err)
	}
	if len(years) != 6 {
		t.Fatalf("yearly objectives = %d, want 6", len(years))
	}
}

func TestPipelineInvalidRange(t *testing.T) {
	env := newPipelineEnv(t)
	p := &Pipeline{Store: env.store}
	req := env.request()
	req.DueDate = testStart.AddDate(-1, 0, 0)

	res, err := p.Run(context.Background(), req)
	if !errors.Is(err, period.ErrInvalidRange) {
		t.Fatalf("err = %v, want ErrInvalidRange", err)
	}
	if res.Trace[len(res.Trace)-1] != StageRejected {
		t.Fatalf("trace = %v, want rejected", res.Trace)
	}
	if has, _ := env.store.HasPlan(context.Background(), env.goal.ID); has {
		t.Fatal("plan written for invalid range")
	}
}

type failingStore struct {
	*okrstore.Store
	err error
}

func (s failingStore) SavePlan(ctx context.Context, plan okr.Plan) (okr.Plan, error) {
	return okr.Plan{}, s.err
}

func TestPipelinePersistenceFailure(t *testing.T) {
	env := newPipelineEnv(t)
	p := &Pipeline{Store: failingStore{Store: env.store, err: errors.New("disk full")}}

	_, err := p.Run(context.Background(), env.request())
	if !errors.Is(err, ErrPersistence) {
		t.Fatalf("err = %v, want ErrPersistence", err)
	}
	var perr *PersistenceError
	if !errors.As(err, &perr) || perr.GoalID != env.goal.ID {
		t.Fatalf("err = %#v, want *PersistenceError for goal %d", err, env.goal.ID)
	}

	// the lock is released so a later run can proceed
	if _, err := (&Pipeline{Store: env.store}).Run(context.Background(), env.request()); err != nil {
		t.Fatalf("retry Run: %v", err)
	}
}

type staticAnalyzer struct {
	analysis insights.Analysis
	err      error
}

func (a staticAnalyzer) Analyze(ctx context.Context, history []insights.Message) (insights.Analysis, error) {
	return a.analysis, a.err
}

func TestPipelineAnalyzerFeedsPrompt(t *testing.T) {
	env := newPipelineEnv(t)
	analysis := insights.Neutral()
	analysis.Insights.Skills = "cycling background"
	mock := adapters.NewMockAdapter(adapters.MockResponse{Text: oracleJSON("10", 2025)})
	p := &Pipeline{Store: env.store, Oracle: mock, Analyzer: staticAnalyzer{analysis: analysis}}

	req := env.request()
	req.ChatHistory = []insights.Message{{Role: "user", Content: "I used to cycle a lot."}}
	res, err := p.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Analysis.Insights.Skills != "cycling background" {
		t.Fatalf("analysis = %+v", res.Analysis)
	}
	if prompts := mock.Prompts(); len(prompts) != 1 || !strings.Contains(prompts[0], "cycling background") {
		t.Fatalf("prompt does not carry insights:\n%v", prompts)
	}
}

func TestPipelineAnalyzerFailureIsNeutral(t *testing.T) {
	env := newPipelineEnv(t)
	p := &Pipeline{Store: env.store, Analyzer: staticAnalyzer{err: errors.New("offline")}}
	req := env.request()
	req.ChatHistory = []insights.Message{{Role: "user", Content: "hi"}}

	res, err := p.Run(context.Background(), req)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.Analysis.ReadinessLevel != insights.ReadinessUnknown {
		t.Fatalf("analysis = %+v, want neutral", res.Analysis)
	}
}
