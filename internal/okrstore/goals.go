package okrstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"okrplanner/internal/okr"
)

type goalRow struct {
	ID          int64  `db:"id"`
	Title       string `db:"title"`
	Description string `db:"description"`
	DueDate     string `db:"due_date"`
	OwnerID     string `db:"owner_id"`
	CreatedAt   string `db:"created_at"`
}

func (r goalRow) goal() (okr.Goal, error) {
	due, err := time.Parse(dateLayout, r.DueDate)
	if err != nil {
		return okr.Goal{}, fmt.Errorf("goal %d: parse due date %q: %w", r.ID, r.DueDate, err)
	}
	created, err := time.Parse(timeLayout, r.CreatedAt)
	if err != nil {
		return okr.Goal{}, fmt.Errorf("goal %d: parse created_at %q: %w", r.ID, r.CreatedAt, err)
	}
	return okr.Goal{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		DueDate:     due,
		OwnerID:     r.OwnerID,
		CreatedAt:   created,
	}, nil
}

// NewGoal holds the user-supplied fields of a goal.
type NewGoal struct {
	Title       string
	Description string
	DueDate     time.Time
	OwnerID     string
}

// CreateGoal stores a goal. The due date must fall at least okr.MinHorizonYears
// after the creation date.
func (s *Store) CreateGoal(ctx context.Context, in NewGoal) (okr.Goal, error) {
	title := strings.TrimSpace(in.Title)
	if title == "" {
		return okr.Goal{}, fmt.Errorf("%w: title is required", ErrInvalidGoal)
	}
	if in.DueDate.IsZero() {
		return okr.Goal{}, fmt.Errorf("%w: due date is required", ErrInvalidGoal)
	}

	created := s.now().UTC()
	earliest := truncateDay(created).AddDate(okr.MinHorizonYears, 0, 0)
	if truncateDay(in.DueDate).Before(earliest) {
		return okr.Goal{}, fmt.Errorf("due date %s (earliest %s): %w",
			in.DueDate.Format(dateLayout), earliest.Format(dateLayout), ErrDueDateTooSoon)
	}

	row := goalRow{
		Title:       title,
		Description: strings.TrimSpace(in.Description),
		DueDate:     in.DueDate.Format(dateLayout),
		OwnerID:     strings.TrimSpace(in.OwnerID),
		CreatedAt:   created.Format(timeLayout),
	}
	res, err := s.db.NamedExecContext(ctx, `
		INSERT INTO goals (title, description, due_date, owner_id, created_at)
		VALUES (:title, :description, :due_date, :owner_id, :created_at)
	`, row)
	if err != nil {
		return okr.Goal{}, fmt.Errorf("insert goal: %w", err)
	}
	if row.ID, err = res.LastInsertId(); err != nil {
		return okr.Goal{}, fmt.Errorf("goal id: %w", err)
	}
	return row.goal()
}

// GetGoal returns the goal with the given id.
func (s *Store) GetGoal(ctx context.Context, id int64) (okr.Goal, error) {
	var row goalRow
	err := s.db.GetContext(ctx, &row, `SELECT * FROM goals WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return okr.Goal{}, fmt.Errorf("goal %d: %w", id, ErrGoalNotFound)
	}
	if err != nil {
		return okr.Goal{}, fmt.Errorf("get goal: %w", err)
	}
	return row.goal()
}

// ListGoals returns all goals ordered by id.
func (s *Store) ListGoals(ctx context.Context) ([]okr.Goal, error) {
	rows := []goalRow{}
	if err := s.db.SelectContext(ctx, &rows, `SELECT * FROM goals ORDER BY id`); err != nil {
		return nil, fmt.Errorf("select goals: %w", err)
	}
	goals := make([]okr.Goal, 0, len(rows))
	for _, r := range rows {
		g, err := r.goal()
		if err != nil {
			return nil, err
		}
		goals = append(goals, g)
	}
	return goals, nil
}

func truncateDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
