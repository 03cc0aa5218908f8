package integration_test

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"okrplanner/integration/harness"
)

type runResult struct {
	Source string `json:"source"`
	Plan   struct {
		Yearly []struct {
			Year       int `json:"year"`
			KeyResults []struct {
				ID          int64   `json:"id"`
				TargetValue float64 `json:"target_value"`
			} `json:"key_results"`
		} `json:"yearly_objectives"`
	} `json:"plan"`
	Repairs []struct {
		Field string `json:"field"`
	} `json:"repairs"`
	Analysis struct {
		Source         string `json:"source"`
		ReadinessLevel string `json:"readiness_level"`
		Insights       struct {
			Motivation string `json:"motivation"`
		} `json:"insights"`
	} `json:"analysis"`
	Review *struct {
		Approved  bool   `json:"approved"`
		Revised   bool   `json:"revised"`
		Discarded bool   `json:"discarded"`
		Reason    string `json:"reason"`
	} `json:"review"`
}

func setupMockWorkspace(t *testing.T) string {
	t.Helper()
	return harness.CopyFixture(t, "workspace-mock")
}

func writeOracleAnswer(t *testing.T, workspace string, years ...int) {
	t.Helper()
	parts := make([]string, 0, len(years))
	for _, y := range years {
		parts = append(parts, fmt.Sprintf(`{"year": %d, "objective": "Build the base in %d", "key_results": [
			{"description": "Long runs in %d", "target_value": "1,200", "unit": "km", "frequency": "Every Week"}
		]}`, y, y, y))
	}
	answer := fmt.Sprintf("Here is the plan:\n```json\n{\"yearly_objectives\": [%s], \"metadata\": {\"rationale\": \"progressive load\"}}\n```\n", strings.Join(parts, ","))
	if err := os.WriteFile(filepath.Join(workspace, "oracle.json"), []byte(answer), 0o644); err != nil {
		t.Fatalf("write oracle answer: %v", err)
	}
}

func createGoal(t *testing.T, binPath, runDir, workspace string) {
	t.Helper()
	due := time.Now().AddDate(6, 0, 0).Format("2006-01-02")
	args := []string{"goal", "create", "--workspace", workspace, "--title", "Run a marathon", "--due", due}
	stdout, stderr, code := harness.Run(t, binPath, runDir, args)
	if code != 0 {
		t.Fatalf("okrplanner goal create exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}
}

func TestPlanSmokeMockOracle(t *testing.T) {
	binPath := harness.BuildBinary(t)
	runDir := t.TempDir()
	workspace := setupMockWorkspace(t)
	year := time.Now().Year()
	writeOracleAnswer(t, workspace, year, year+1)
	createGoal(t, binPath, runDir, workspace)

	genArgs := []string{"plan", "generate", "1", "--workspace", workspace, "--json"}
	stdout, stderr, code := harness.Run(t, binPath, runDir, genArgs)
	if code != 0 {
		t.Fatalf("okrplanner plan generate exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}
	var res runResult
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("decode run result: %v\n%s", err, stdout)
	}
	if res.Source != "oracle" || len(res.Plan.Yearly) != 2 {
		t.Fatalf("result = %+v, want 2-year oracle plan", res)
	}
	if got := res.Plan.Yearly[0].KeyResults[0].TargetValue; got != 1200 {
		t.Fatalf("target = %v, want 1200", got)
	}
	if len(res.Repairs) < 2 {
		t.Fatalf("repairs = %+v, want a frequency repair per year", res.Repairs)
	}

	stdout, stderr, code = harness.Run(t, binPath, runDir, genArgs)
	if code == 0 {
		t.Fatalf("second plan generate succeeded\nstdout:\n%s", stdout)
	}
	if !strings.Contains(stderr, "plan already exists") {
		t.Fatalf("second plan generate stderr = %q", stderr)
	}

	requireAuditEvents(t, filepath.Join(workspace, "audit", "audit.sqlite"), []string{
		"goal_created",
		"plan_generation_started",
		"plan_persisted",
	})
}

func TestPlanSmokeFallbackWithHistory(t *testing.T) {
	binPath := harness.BuildBinary(t)
	runDir := t.TempDir()
	workspace := setupMockWorkspace(t)
	createGoal(t, binPath, runDir, workspace)

	genArgs := []string{
		"plan", "generate", "1",
		"--workspace", workspace,
		"--oracle", "none",
		"--history", "history.yml",
	}
	stdout, stderr, code := harness.Run(t, binPath, runDir, genArgs)
	if code != 0 {
		t.Fatalf("okrplanner plan generate exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}
	if !strings.Contains(stdout, "Generated fallback plan for goal 1") {
		t.Fatalf("plan generate stdout = %q", stdout)
	}

	stdout, stderr, code = harness.Run(t, binPath, runDir, []string{"plan", "show", "1", "--workspace", workspace})
	if code != 0 {
		t.Fatalf("okrplanner plan show exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}
	if !strings.Contains(stdout, "Overall progress: 0%") {
		t.Fatalf("plan show stdout = %q", stdout)
	}
}

func TestPlanSmokeMockOracleWithHistoryAndReview(t *testing.T) {
	binPath := harness.BuildBinary(t)
	runDir := t.TempDir()
	workspace := setupMockWorkspace(t)
	year := time.Now().Year()
	writeOracleAnswer(t, workspace, year, year+1)
	createGoal(t, binPath, runDir, workspace)

	genArgs := []string{
		"plan", "generate", "1",
		"--workspace", workspace,
		"--history", "history.yml",
		"--json",
	}
	env := map[string]string{"OKRPLANNER_ORACLE_REVIEW": "true"}
	stdout, stderr, code := harness.RunWithEnv(t, binPath, runDir, genArgs, env)
	if code != 0 {
		t.Fatalf("okrplanner plan generate exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}
	var res runResult
	if err := json.Unmarshal([]byte(stdout), &res); err != nil {
		t.Fatalf("decode run result: %v\n%s", err, stdout)
	}
	if res.Source != "oracle" || len(res.Plan.Yearly) != 2 {
		t.Fatalf("result = %+v, want 2-year oracle plan", res)
	}
	if res.Analysis.Source != "mock" || res.Analysis.ReadinessLevel != "medium" {
		t.Fatalf("analysis = %+v, want scripted mock analysis", res.Analysis)
	}
	if res.Analysis.Insights.Motivation != "Get healthier on doctor's advice" {
		t.Fatalf("motivation = %q", res.Analysis.Insights.Motivation)
	}
	if res.Review == nil {
		t.Fatal("review missing from run result")
	}
	if res.Review.Discarded || !res.Review.Revised {
		t.Fatalf("review = %+v, want a revision that was kept", *res.Review)
	}
}
