package audit

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

// Actors recorded on events.
const (
	ActorPlanner = "planner"
	ActorUser    = "user"
)

// Event is one audit record.
type Event struct {
	Actor   string
	Type    string
	GoalID  int64
	Payload any
}

// Record is an event read back from the log.
type Record struct {
	ID          int64     `db:"id" json:"id"`
	TS          time.Time `db:"-" json:"ts"`
	RawTS       string    `db:"ts" json:"-"`
	Actor       string    `db:"actor" json:"actor"`
	Type        string    `db:"type" json:"type"`
	GoalID      int64     `db:"goal_id" json:"goal_id"`
	PayloadJSON string    `db:"payload_json" json:"payload"`
}

// Logger writes audit events to a SQLite database.
type Logger struct {
	path string
	db   *sqlx.DB
	now  func() time.Time
}

// Open opens (creating if needed) the audit database at path.
func Open(path string) (*Logger, error) {
	if path == "" {
		return nil, fmt.Errorf("audit db path is required")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve audit db path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure audit db dir: %w", err)
	}
	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=journal_mode(WAL)", absPath)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open audit db: %w", err)
	}
	if err := ensureSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &Logger{path: absPath, db: db, now: time.Now}, nil
}

// Path returns the absolute database path.
func (l *Logger) Path() string {
	return l.path
}

// Close closes the underlying database.
func (l *Logger) Close() error {
	if l == nil || l.db == nil {
		return nil
	}
	return l.db.Close()
}

func ensureSchema(db *sqlx.DB) error {
	_, err := db.Exec(`
		CREATE TABLE IF NOT EXISTS events (
			id INTEGER PRIMARY KEY AUTOINCREMENT,
			ts TEXT NOT NULL,
			actor TEXT NOT NULL,
			type TEXT NOT NULL,
			goal_id INTEGER NOT NULL DEFAULT 0,
			payload_json TEXT NOT NULL
		)
	`)
	if err != nil {
		return fmt.Errorf("create audit schema: %w", err)
	}
	if _, err := db.Exec(`CREATE INDEX IF NOT EXISTS idx_events_goal ON events(goal_id, id)`); err != nil {
		return fmt.Errorf("create audit index: %w", err)
	}
	return nil
}

// LogEvent appends an event. A nil logger discards it.
func (l *Logger) LogEvent(ctx context.Context, ev Event) error {
	if l == nil {
		return nil
	}
	if ev.Type == "" {
		return fmt.Errorf("audit event type is required")
	}
	if ev.Payload == nil {
		ev.Payload = map[string]any{}
	}
	payloadJSON, err := json.Marshal(ev.Payload)
	if err != nil {
		return fmt.Errorf("marshal payload: %w", err)
	}

	_, err = l.db.ExecContext(ctx,
		"INSERT INTO events (ts, actor, type, goal_id, payload_json) VALUES (?, ?, ?, ?, ?)",
		l.now().UTC().Format(time.RFC3339Nano),
		ev.Actor,
		ev.Type,
		ev.GoalID,
		string(payloadJSON),
	)
	if err != nil {
		return fmt.Errorf("insert audit event: %w", err)
	}
	return nil
}

// List returns events in insertion order. A goalID of zero lists every event.
func (l *Logger) List(ctx context.Context, goalID int64) ([]Record, error) {
	records := []Record{}
	query := `SELECT id, ts, actor, type, goal_id, payload_json FROM events`
	args := []any{}
	if goalID != 0 {
		query += ` WHERE goal_id = ?`
		args = append(args, goalID)
	}
	query += ` ORDER BY id`
	if err := l.db.SelectContext(ctx, &records, query, args...); err != nil {
		return nil, fmt.Errorf("select audit events: %w", err)
	}
	for i := range records {
		ts, err := time.Parse(time.RFC3339Nano, records[i].RawTS)
		if err != nil {
			return nil, fmt.Errorf("parse audit timestamp %q: %w", records[i].RawTS, err)
		}
		records[i].TS = ts
	}
	return records, nil
}
