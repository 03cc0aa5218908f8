// Package okrstore persists goals and their objective hierarchies in SQLite.
package okrstore

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"
)

var (
	ErrGoalNotFound      = errors.New("goal not found")
	ErrObjectiveNotFound = errors.New("objective not found")
	ErrKeyResultNotFound = errors.New("key result not found")
	ErrPlanNotFound      = errors.New("goal has no plan")
	// ErrPlanAlreadyExists rejects generation for a goal that already has yearly objectives.
	ErrPlanAlreadyExists = errors.New("plan already exists; delete the existing plan before generating a new one")
	// ErrPlanLocked means another generation run holds the goal's lock.
	ErrPlanLocked       = errors.New("plan generation already in progress for this goal")
	ErrDuplicateYear    = errors.New("goal already has an objective for this year")
	ErrDuplicateQuarter = errors.New("yearly objective already has an objective for this quarter")
	ErrDueDateTooSoon   = errors.New("due date must be at least 5 years after creation")
	ErrInvalidGoal      = errors.New("invalid goal")
)

// timeLayout sorts lexically in chronological order.
const timeLayout = "2006-01-02T15:04:05.000Z"

const dateLayout = "2006-01-02"

// Store wraps a pooled sqlx.DB connection to the plan database.
type Store struct {
	path string
	db   *sqlx.DB
	now  func() time.Time
}

// Open opens or creates the plan database at path and migrates its schema.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("database path is required")
	}
	absPath, err := filepath.Abs(path)
	if err != nil {
		return nil, fmt.Errorf("resolve database path: %w", err)
	}
	if err := os.MkdirAll(filepath.Dir(absPath), 0o755); err != nil {
		return nil, fmt.Errorf("ensure database dir: %w", err)
	}

	dsn := fmt.Sprintf("file:%s?_pragma=busy_timeout(5000)&_pragma=foreign_keys(1)&_pragma=journal_mode(WAL)&_txlock=immediate", absPath)
	db, err := sqlx.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open database: %w", err)
	}

	store := &Store{path: absPath, db: db, now: time.Now}
	if err := store.ensureSchema(context.Background()); err != nil {
		db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the absolute database path.
func (s *Store) Path() string {
	return s.path
}

// Close closes the database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

func (s *Store) ensureSchema(ctx context.Context) error {
	return withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		for i, stmt := range schemaStatements {
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("create schema statement %d: %w", i+1, err)
			}
		}
		return nil
	})
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS goals (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	title TEXT NOT NULL,
	description TEXT NOT NULL DEFAULT '',
	due_date TEXT NOT NULL,
	owner_id TEXT NOT NULL DEFAULT '',
	created_at TEXT NOT NULL
)`,
	`CREATE TABLE IF NOT EXISTS yearly_objectives (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	goal_id INTEGER NOT NULL REFERENCES goals(id) ON DELETE CASCADE,
	year INTEGER NOT NULL,
	objective TEXT NOT NULL,
	UNIQUE(goal_id, year)
)`,
	`CREATE TABLE IF NOT EXISTS quarterly_objectives (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	yearly_objective_id INTEGER NOT NULL REFERENCES yearly_objectives(id) ON DELETE CASCADE,
	year INTEGER NOT NULL,
	quarter INTEGER NOT NULL CHECK (quarter BETWEEN 1 AND 4),
	objective TEXT NOT NULL,
	UNIQUE(yearly_objective_id, quarter)
)`,
	`CREATE TABLE IF NOT EXISTS key_results (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	goal_id INTEGER NOT NULL REFERENCES goals(id) ON DELETE CASCADE,
	yearly_objective_id INTEGER REFERENCES yearly_objectives(id) ON DELETE CASCADE,
	quarterly_objective_id INTEGER REFERENCES quarterly_objectives(id) ON DELETE CASCADE,
	description TEXT NOT NULL,
	target_value REAL NOT NULL CHECK (target_value > 0 AND target_value <= 99999999),
	current_value REAL NOT NULL DEFAULT 0 CHECK (current_value >= 0 AND current_value <= 99999999),
	unit TEXT NOT NULL DEFAULT '',
	frequency TEXT NOT NULL DEFAULT '',
	achievement_rate REAL NOT NULL DEFAULT 0,
	updated_at TEXT NOT NULL,
	CHECK ((yearly_objective_id IS NULL) <> (quarterly_objective_id IS NULL))
)`,
	`CREATE TABLE IF NOT EXISTS plan_locks (
	goal_id INTEGER PRIMARY KEY,
	owner TEXT NOT NULL,
	expires_at TEXT NOT NULL
)`,
	`CREATE INDEX IF NOT EXISTS idx_yearly_goal ON yearly_objectives(goal_id, year)`,
	`CREATE INDEX IF NOT EXISTS idx_quarterly_yearly ON quarterly_objectives(yearly_objective_id, quarter)`,
	`CREATE INDEX IF NOT EXISTS idx_key_results_goal ON key_results(goal_id)`,
}

func withTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	if err := fn(tx); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

// withReadTx runs fn in a transaction that is always rolled back, so every
// query in fn sees the same snapshot.
func withReadTx(ctx context.Context, db *sqlx.DB, fn func(*sqlx.Tx) error) error {
	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin read transaction: %w", err)
	}
	defer tx.Rollback()
	return fn(tx)
}

func isUniqueViolation(err error, table string) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") && strings.Contains(msg, table+".")
}

func (s *Store) timestamp() string {
	return s.now().UTC().Format(timeLayout)
}
