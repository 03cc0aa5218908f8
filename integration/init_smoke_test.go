package integration_test

import (
	"os"
	"path/filepath"
	"testing"

	"okrplanner/integration/harness"
)

func TestInitSmoke(t *testing.T) {
	binPath := harness.BuildBinary(t)
	runDir := t.TempDir()
	workspaceRoot := filepath.Join(t.TempDir(), "workspace-init")

	args := []string{
		"init",
		"--workspace", workspaceRoot,
	}
	stdout, stderr, code := harness.Run(t, binPath, runDir, args)
	if code != 0 {
		t.Fatalf("okrplanner init exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}

	paths := []string{
		filepath.Join(workspaceRoot, "okrplanner.yml"),
		filepath.Join(workspaceRoot, "data"),
		filepath.Join(workspaceRoot, "audit"),
		filepath.Join(workspaceRoot, "snapshots"),
		filepath.Join(workspaceRoot, "exports"),
	}
	for _, path := range paths {
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("missing init path %s: %v", path, err)
		}
	}

	auditPath := filepath.Join(workspaceRoot, "audit", "audit.sqlite")
	if _, err := os.Stat(auditPath); err != nil {
		t.Fatalf("audit db not written at %s: %v", auditPath, err)
	}
	requireAuditEvents(t, auditPath, []string{"workspace_initialized"})

	stdout, stderr, code = harness.RunWithEnv(t, binPath, runDir, []string{"goal", "list"}, map[string]string{
		"OKRPLANNER_WORKSPACE": workspaceRoot,
	})
	if code != 0 {
		t.Fatalf("okrplanner goal list exit code %d\nstdout:\n%s\nstderr:\n%s", code, stdout, stderr)
	}
}
