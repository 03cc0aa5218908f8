// Package harness builds the okrplanner binary and runs it against
// throwaway workspaces.
package harness

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"sync"
	"testing"
)

var (
	rootOnce sync.Once
	rootDir  string
	rootErr  error

	binOnce sync.Once
	binPath string
	binErr  error
)

// RepoRoot returns the directory holding go.mod.
func RepoRoot(t *testing.T) string {
	t.Helper()
	rootOnce.Do(func() {
		_, file, _, ok := runtime.Caller(0)
		if !ok {
			rootErr = fmt.Errorf("runtime.Caller failed")
			return
		}
		dir := filepath.Dir(filepath.Dir(filepath.Dir(file)))
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err != nil {
			rootErr = fmt.Errorf("verify repo root: %w", err)
			return
		}
		rootDir = dir
	})
	if rootErr != nil {
		t.Fatalf("resolve repo root: %v", rootErr)
	}
	return rootDir
}

// BuildBinary compiles ./cmd/okrplanner once per test process. Tests calling
// it are skipped under -short.
func BuildBinary(t *testing.T) string {
	t.Helper()
	if testing.Short() {
		t.Skip("integration test builds the okrplanner binary")
	}
	root := RepoRoot(t)

	binOnce.Do(func() {
		dir, err := os.MkdirTemp("", "okrplanner-bin-")
		if err != nil {
			binErr = fmt.Errorf("create temp dir: %w", err)
			return
		}
		out := filepath.Join(dir, "okrplanner")
		cmd := exec.Command("go", "build", "-o", out, "./cmd/okrplanner")
		cmd.Dir = root
		if output, err := cmd.CombinedOutput(); err != nil {
			binErr = fmt.Errorf("go build: %w\n%s", err, output)
			return
		}
		binPath = out
	})
	if binErr != nil {
		t.Fatalf("build okrplanner binary: %v", binErr)
	}
	return binPath
}
