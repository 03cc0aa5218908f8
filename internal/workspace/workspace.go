package workspace

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// ConfigFileName is the workspace configuration file read by internal/config.
const ConfigFileName = "okrplanner.yml"

// Workspace defines workspace-relative paths for okrplanner operations.
type Workspace struct {
	Root         string
	DataDir      string
	DBPath       string
	AuditDir     string
	AuditDBPath  string
	SnapshotsDir string
	ExportsDir   string
	ConfigPath   string
	EnvPath      string
}

// Resolve expands and validates the workspace root, ensuring it exists.
func Resolve(root string) (*Workspace, error) {
	abs, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(abs)
	if err != nil {
		return nil, fmt.Errorf("workspace root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("workspace root is not a directory: %s", abs)
	}
	return newWorkspace(abs), nil
}

// ResolveRoot resolves the workspace root without requiring it to exist.
func ResolveRoot(root string) (string, error) {
	return resolveRoot(root)
}

// EnsureDirs creates the data, audit, snapshot and export directories.
func (w *Workspace) EnsureDirs() error {
	if w == nil {
		return fmt.Errorf("workspace is nil")
	}
	for _, dir := range []string{w.DataDir, w.AuditDir, w.SnapshotsDir, w.ExportsDir} {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("ensure %s: %w", dir, err)
		}
	}
	return nil
}

const defaultConfig = `# okrplanner workspace configuration
oracle:
  provider: none   # none | mock | openai | codex
  model: ""
  timeout: 90s
  review: false
server:
  addr: 127.0.0.1:8080
logging:
  level: info
  format: text
notifications:
  enabled: false
`

// Init creates a workspace at root: directories plus a default config file.
// An existing config file is left untouched.
func Init(root string) (*Workspace, error) {
	abs, err := resolveRoot(root)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(abs, 0o755); err != nil {
		return nil, fmt.Errorf("create workspace root: %w", err)
	}
	w := newWorkspace(abs)
	if err := w.EnsureDirs(); err != nil {
		return nil, err
	}
	if _, err := os.Stat(w.ConfigPath); os.IsNotExist(err) {
		if err := os.WriteFile(w.ConfigPath, []byte(defaultConfig), 0o644); err != nil {
			return nil, fmt.Errorf("write %s: %w", ConfigFileName, err)
		}
	} else if err != nil {
		return nil, fmt.Errorf("stat %s: %w", ConfigFileName, err)
	}
	return w, nil
}

// ResolvePath returns an absolute path, resolving relative paths from the workspace root.
func (w *Workspace) ResolvePath(path string) (string, error) {
	if w == nil {
		return "", fmt.Errorf("workspace is nil")
	}
	if strings.TrimSpace(path) == "" {
		return "", nil
	}
	expanded, err := expandHome(path)
	if err != nil {
		return "", err
	}
	if filepath.IsAbs(expanded) {
		return filepath.Clean(expanded), nil
	}
	return filepath.Abs(filepath.Join(w.Root, expanded))
}

func newWorkspace(root string) *Workspace {
	return &Workspace{
		Root:         root,
		DataDir:      filepath.Join(root, "data"),
		DBPath:       filepath.Join(root, "data", "okrplanner.sqlite"),
		AuditDir:     filepath.Join(root, "audit"),
		AuditDBPath:  filepath.Join(root, "audit", "audit.sqlite"),
		SnapshotsDir: filepath.Join(root, "snapshots"),
		ExportsDir:   filepath.Join(root, "exports"),
		ConfigPath:   filepath.Join(root, ConfigFileName),
		EnvPath:      filepath.Join(root, ".env"),
	}
}

func resolveRoot(root string) (string, error) {
	root = strings.TrimSpace(root)
	if root == "" {
		return "", fmt.Errorf("workspace root is required")
	}
	expanded, err := expandHome(root)
	if err != nil {
		return "", err
	}
	abs, err := filepath.Abs(expanded)
	if err != nil {
		return "", fmt.Errorf("resolve workspace: %w", err)
	}
	return abs, nil
}

func expandHome(path string) (string, error) {
	if path == "" || path[0] != '~' {
		return path, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("resolve home dir: %w", err)
	}
	if path == "~" {
		return home, nil
	}
	if strings.HasPrefix(path, "~/") {
		return filepath.Join(home, path[2:]), nil
	}
	return "", fmt.Errorf("unsupported home expansion: %s", path)
}
