package harness

import (
	"bytes"
	"errors"
	"os"
	"os/exec"
	"strings"
	"testing"
)

// Result is the outcome of one CLI invocation.
type Result struct {
	Stdout   string
	Stderr   string
	ExitCode int
}

// Run executes the CLI in workDir and returns stdout, stderr and the exit code.
func Run(t *testing.T, binPath, workDir string, args []string) (string, string, int) {
	t.Helper()
	res := invoke(t, binPath, workDir, args, nil)
	return res.Stdout, res.Stderr, res.ExitCode
}

// RunWithEnv executes the CLI with extra environment variables.
func RunWithEnv(t *testing.T, binPath, workDir string, args []string, env map[string]string) (string, string, int) {
	t.Helper()
	res := invoke(t, binPath, workDir, args, env)
	return res.Stdout, res.Stderr, res.ExitCode
}

// MustRun executes the CLI and fails the test on a non-zero exit code.
func MustRun(t *testing.T, binPath, workDir string, args ...string) Result {
	t.Helper()
	res := invoke(t, binPath, workDir, args, nil)
	if res.ExitCode != 0 {
		t.Fatalf("%v exit code %d\nstdout:\n%s\nstderr:\n%s", args, res.ExitCode, res.Stdout, res.Stderr)
	}
	return res
}

func invoke(t *testing.T, binPath, workDir string, args []string, env map[string]string) Result {
	t.Helper()
	cmd := exec.Command(binPath, args...)
	cmd.Dir = workDir
	// keep the developer's own OKRPLANNER_* settings out of the run
	cmd.Env = filteredEnv(env)

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	res := Result{}
	if err := cmd.Run(); err != nil {
		var ee *exec.ExitError
		if !errors.As(err, &ee) {
			t.Fatalf("run %s: %v", binPath, err)
		}
		res.ExitCode = ee.ExitCode()
	}
	res.Stdout = stdout.String()
	res.Stderr = stderr.String()
	return res
}

func filteredEnv(overrides map[string]string) []string {
	env := make([]string, 0, len(os.Environ())+len(overrides))
	for _, entry := range os.Environ() {
		if strings.HasPrefix(entry, "OKRPLANNER_") {
			continue
		}
		env = append(env, entry)
	}
	for k, v := range overrides {
		env = append(env, k+"="+v)
	}
	return env
}
