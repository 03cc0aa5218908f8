package metrics

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

const SnapshotSchemaVersion = 1

// Snapshot is a progress report written to disk at a point in time.
type Snapshot struct {
	SchemaVersion int    `json:"schema_version"`
	AsOf          string `json:"as_of"`
	Report        Report `json:"report"`
}

// WriteSnapshot writes the report atomically via a temp file and rename.
func WriteSnapshot(path string, asOf time.Time, report Report) error {
	if path == "" {
		return fmt.Errorf("snapshot path is required")
	}
	snapshot := Snapshot{
		SchemaVersion: SnapshotSchemaVersion,
		AsOf:          asOf.UTC().Format("2006-01-02"),
		Report:        report,
	}

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal snapshot: %w", err)
	}
	data = append(data, '\n')

	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("ensure snapshot dir: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	tmpName := tmp.Name()
	defer func() {
		_ = os.Remove(tmpName)
	}()
	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp snapshot: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp snapshot: %w", err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename snapshot: %w", err)
	}
	return nil
}

// LoadSnapshot reads a snapshot written by WriteSnapshot.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read snapshot: %w", err)
	}
	var snap Snapshot
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&snap); err != nil {
		return nil, fmt.Errorf("decode snapshot: %w", err)
	}
	if snap.SchemaVersion != SnapshotSchemaVersion {
		return nil, fmt.Errorf("unsupported snapshot schema_version %d", snap.SchemaVersion)
	}
	return &snap, nil
}

// SnapshotPath returns <dir>/goal-<id>/<YYYY-MM-DD>.json.
func SnapshotPath(dir string, goalID int64, asOf time.Time) string {
	return filepath.Join(dir, fmt.Sprintf("goal-%d", goalID), asOf.UTC().Format("2006-01-02")+".json")
}
