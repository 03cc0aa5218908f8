package adapters

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"
)

// CodexAdapter shells out to the codex CLI and returns its last message.
type CodexAdapter struct {
	// Binary defaults to "codex".
	Binary  string
	WorkDir string
	// ArtifactsDir keeps prompts and transcripts when set; otherwise a temp dir is used and removed.
	ArtifactsDir string
	Env          map[string]string
	Timeout      time.Duration
}

func (a *CodexAdapter) Name() string {
	return "codex"
}

func (a *CodexAdapter) Invoke(ctx context.Context, prompt string) (string, error) {
	if strings.TrimSpace(prompt) == "" {
		return "", errors.New("prompt is required")
	}

	workDir := a.WorkDir
	if workDir == "" {
		workDir = "."
	}
	workDir, err := filepath.Abs(workDir)
	if err != nil {
		return "", fmt.Errorf("resolve workdir: %w", err)
	}
	workDirInfo, err := os.Stat(workDir)
	if err != nil {
		return "", fmt.Errorf("stat workdir: %w", err)
	}
	if !workDirInfo.IsDir() {
		return "", fmt.Errorf("workdir is not a directory: %s", workDir)
	}

	callDir, cleanup, err := a.callDir()
	if err != nil {
		return "", err
	}
	defer cleanup()

	promptPath := filepath.Join(callDir, "prompt.md")
	if err := os.WriteFile(promptPath, []byte(prompt), 0o644); err != nil {
		return "", fmt.Errorf("write prompt: %w", err)
	}

	transcriptPath := filepath.Join(callDir, "transcript.log")
	transcriptFile, err := os.OpenFile(transcriptPath, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return "", fmt.Errorf("open transcript: %w", err)
	}
	defer func() {
		_ = transcriptFile.Close()
	}()

	env := map[string]string{}
	for k, v := range a.Env {
		env[k] = v
	}
	if env["CODEX_HOME"] == "" && os.Getenv("CODEX_HOME") == "" {
		codexHome := filepath.Join(callDir, "codex_home")
		if err := os.MkdirAll(codexHome, 0o755); err != nil {
			return "", fmt.Errorf("create CODEX_HOME: %w", err)
		}
		env["CODEX_HOME"] = codexHome
	}

	runCtx := ctx
	if a.Timeout > 0 {
		var cancel context.CancelFunc
		runCtx, cancel = context.WithTimeout(ctx, a.Timeout)
		defer cancel()
	}

	lastMessagePath := filepath.Join(callDir, "last_message.txt")
	args := []string{
		"-a", "never",
		"-s", "read-only",
		"exec",
		"-C", workDir,
		"--skip-git-repo-check",
		"--output-last-message", lastMessagePath,
		"-",
	}

	binary := a.Binary
	if binary == "" {
		binary = "codex"
	}
	cmd := exec.CommandContext(runCtx, binary, args...)
	cmd.Dir = workDir
	cmd.Stdout = transcriptFile
	cmd.Stderr = io.MultiWriter(transcriptFile)
	cmd.Env = mergeEnv(os.Environ(), env)
	cmd.Stdin = bytes.NewReader([]byte(prompt))

	if err := cmd.Run(); err != nil {
		if runCtx.Err() != nil {
			return "", fmt.Errorf("codex exec (exit %d): %w", exitCodeFromError(err), runCtx.Err())
		}
		return "", fmt.Errorf("codex exec (exit %d, see %s): %w", exitCodeFromError(err), transcriptPath, err)
	}

	out, err := os.ReadFile(lastMessagePath)
	if err != nil {
		return "", fmt.Errorf("read codex last message: %w", err)
	}
	text := strings.TrimSpace(string(out))
	if text == "" {
		return "", ErrEmptyResponse
	}
	return text, nil
}

func (a *CodexAdapter) callDir() (string, func(), error) {
	if a.ArtifactsDir == "" {
		dir, err := os.MkdirTemp("", "okrplanner-codex-")
		if err != nil {
			return "", nil, fmt.Errorf("create temp dir: %w", err)
		}
		return dir, func() { _ = os.RemoveAll(dir) }, nil
	}
	dir := filepath.Join(a.ArtifactsDir, "oracle", time.Now().UTC().Format("20060102T150405.000000000Z"))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", nil, fmt.Errorf("create artifacts dir: %w", err)
	}
	return dir, func() {}, nil
}

func mergeEnv(base []string, overrides map[string]string) []string {
	if len(overrides) == 0 {
		return base
	}
	merged := make([]string, 0, len(base)+len(overrides))
	for _, entry := range base {
		key := entry
		if idx := strings.IndexByte(entry, '='); idx >= 0 {
			key = entry[:idx]
		}
		if _, ok := overrides[key]; ok {
			continue
		}
		merged = append(merged, entry)
	}
	for key, value := range overrides {
		merged = append(merged, fmt.Sprintf("%s=%s", key, value))
	}
	return merged
}

func exitCodeFromError(err error) int {
	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		return exitErr.ExitCode()
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return 124
	}
	return 1
}
