package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"okrplanner/internal/workspace"
)

func testWorkspace(t *testing.T, configYAML, env string) *workspace.Workspace {
	t.Helper()
	ws, err := workspace.Init(t.TempDir())
	if err != nil {
		t.Fatalf("Init: %v", err)
	}
	if configYAML != "" {
		if err := os.WriteFile(ws.ConfigPath, []byte(configYAML), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	if env != "" {
		if err := os.WriteFile(ws.EnvPath, []byte(env), 0o644); err != nil {
			t.Fatal(err)
		}
	}
	return ws
}

func TestLoadDefaults(t *testing.T) {
	ws := testWorkspace(t, "", "")
	cfg, err := Load(ws)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Oracle.Provider != "none" {
		t.Fatalf("provider = %q, want none", cfg.Oracle.Provider)
	}
	if cfg.Oracle.Timeout != 90*time.Second {
		t.Fatalf("timeout = %v, want 90s", cfg.Oracle.Timeout)
	}
	if cfg.Database.Path != ws.DBPath {
		t.Fatalf("database path = %s, want %s", cfg.Database.Path, ws.DBPath)
	}
	if cfg.Audit.Path != ws.AuditDBPath {
		t.Fatalf("audit path = %s, want %s", cfg.Audit.Path, ws.AuditDBPath)
	}
}

func TestLoadFileAndEnv(t *testing.T) {
	ws := testWorkspace(t,
		"oracle:\n  provider: mock\n  timeout: 5s\n  review: true\n  mock_file: answer.json\n  mock_analysis_file: analysis.json\nlogging:\n  level: debug\n",
		"OKRPLANNER_SERVER_ADDR=0.0.0.0:9999\n",
	)
	t.Setenv("OKRPLANNER_LOGGING_FORMAT", "json")
	t.Cleanup(func() { _ = os.Unsetenv("OKRPLANNER_SERVER_ADDR") })

	cfg, err := Load(ws)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Oracle.Provider != "mock" || !cfg.Oracle.Review || cfg.Oracle.Timeout != 5*time.Second {
		t.Fatalf("oracle = %+v", cfg.Oracle)
	}
	if cfg.Oracle.MockFile != filepath.Join(ws.Root, "answer.json") {
		t.Fatalf("mock file = %s", cfg.Oracle.MockFile)
	}
	if cfg.Oracle.MockAnalysisFile != filepath.Join(ws.Root, "analysis.json") {
		t.Fatalf("mock analysis file = %s", cfg.Oracle.MockAnalysisFile)
	}
	if cfg.Logging.Level != "debug" || cfg.Logging.Format != "json" {
		t.Fatalf("logging = %+v", cfg.Logging)
	}
	if cfg.Server.Addr != "0.0.0.0:9999" {
		t.Fatalf("server addr = %q, want value from .env", cfg.Server.Addr)
	}
}

func TestLoadRejectsInvalid(t *testing.T) {
	ws := testWorkspace(t, "oracle:\n  provider: carrier-pigeon\nlogging:\n  format: xml\n", "")
	_, err := Load(ws)
	var verrs ValidationErrors
	if !errors.As(err, &verrs) {
		t.Fatalf("err = %v, want ValidationErrors", err)
	}
	if len(verrs) != 2 {
		t.Fatalf("errors = %v, want 2", verrs)
	}
}

func TestValidateOpenAIRequiresKey(t *testing.T) {
	cfg := Default()
	cfg.Oracle.Provider = "OpenAI"
	errs := cfg.Validate()
	if len(errs) != 1 || errs[0].Field != "oracle.api_key" {
		t.Fatalf("errs = %v, want missing api key", errs)
	}
	if cfg.Oracle.Provider != "openai" {
		t.Fatalf("provider = %q, want normalised", cfg.Oracle.Provider)
	}
}
