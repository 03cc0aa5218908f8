package okrstore

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"

	"okrplanner/internal/okr"
)

// StoredKeyResult is a key result together with the goal that owns it.
type StoredKeyResult struct {
	GoalID int64 `json:"goal_id"`
	okr.KeyResult
}

// InsertYearlyObjective adds a yearly objective outside plan generation.
func (s *Store) InsertYearlyObjective(ctx context.Context, goalID int64, year int, objective string) (okr.YearlyObjective, error) {
	objective = strings.TrimSpace(objective)
	if year <= 0 {
		return okr.YearlyObjective{}, fmt.Errorf("year is required")
	}
	if objective == "" {
		return okr.YearlyObjective{}, fmt.Errorf("objective text is required")
	}
	var id int64
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := goalExists(ctx, tx, goalID); err != nil {
			return err
		}
		var err error
		id, err = insertYearly(ctx, tx, goalID, year, objective)
		return err
	})
	if err != nil {
		return okr.YearlyObjective{}, err
	}
	return okr.YearlyObjective{ID: id, GoalID: goalID, Year: year, Objective: objective}, nil
}

// InsertQuarterlyObjective adds a quarterly objective under an existing yearly
// objective. Its year is taken from the parent.
func (s *Store) InsertQuarterlyObjective(ctx context.Context, yearlyID int64, quarter int, objective string) (okr.QuarterlyObjective, error) {
	objective = strings.TrimSpace(objective)
	if quarter < 1 || quarter > 4 {
		return okr.QuarterlyObjective{}, fmt.Errorf("quarter %d must be between 1 and 4", quarter)
	}
	if objective == "" {
		return okr.QuarterlyObjective{}, fmt.Errorf("objective text is required")
	}
	var out okr.QuarterlyObjective
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		var parent yearlyRow
		err := tx.GetContext(ctx, &parent, `SELECT id, goal_id, year, objective FROM yearly_objectives WHERE id = ?`, yearlyID)
		if errors.Is(err, sql.ErrNoRows) {
			return fmt.Errorf("yearly objective %d: %w", yearlyID, ErrObjectiveNotFound)
		}
		if err != nil {
			return fmt.Errorf("get yearly objective: %w", err)
		}
		id, err := insertQuarterly(ctx, tx, yearlyID, parent.Year, quarter, objective)
		if err != nil {
			return err
		}
		out = okr.QuarterlyObjective{ID: id, YearlyObjectiveID: yearlyID, Year: parent.Year, Quarter: quarter, Objective: objective}
		return nil
	})
	if err != nil {
		return okr.QuarterlyObjective{}, err
	}
	return out, nil
}

// InsertKeyResult adds a key result to exactly one existing objective. Values
// are clamped, the target must be positive and the frequency must map onto the
// closed set.
func (s *Store) InsertKeyResult(ctx context.Context, kr okr.KeyResult) (StoredKeyResult, error) {
	if err := kr.CheckOwnership(); err != nil {
		return StoredKeyResult{}, err
	}
	kr.Description = strings.TrimSpace(kr.Description)
	if kr.Description == "" {
		return StoredKeyResult{}, fmt.Errorf("key result description is required")
	}
	if err := kr.SetValues(kr.CurrentValue, kr.TargetValue); err != nil {
		return StoredKeyResult{}, err
	}
	freq, ok := okr.NormalizeFrequency(string(kr.Frequency))
	if !ok {
		return StoredKeyResult{}, fmt.Errorf("unknown frequency %q", kr.Frequency)
	}
	kr.Frequency = freq

	var out StoredKeyResult
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		goalID, err := ownerGoal(ctx, tx, kr)
		if err != nil {
			return err
		}
		stored, err := insertKeyResult(ctx, tx, goalID, kr, s.timestamp())
		if err != nil {
			return err
		}
		out = StoredKeyResult{GoalID: goalID, KeyResult: stored}
		return nil
	})
	if err != nil {
		return StoredKeyResult{}, err
	}
	return out, nil
}

// GetKeyResult returns the key result with the given id.
func (s *Store) GetKeyResult(ctx context.Context, id int64) (StoredKeyResult, error) {
	row, err := getKeyResult(ctx, s.db, id)
	if err != nil {
		return StoredKeyResult{}, err
	}
	return StoredKeyResult{GoalID: row.GoalID, KeyResult: row.keyResult()}, nil
}

// UpdateKeyResult loads a key result, applies fn and writes the values back in
// one transaction. The achievement rate is recomputed after fn returns.
func (s *Store) UpdateKeyResult(ctx context.Context, id int64, fn func(*okr.KeyResult) error) (StoredKeyResult, error) {
	var out StoredKeyResult
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		row, err := getKeyResult(ctx, tx, id)
		if err != nil {
			return err
		}
		kr := row.keyResult()
		if err := fn(&kr); err != nil {
			return err
		}
		if kr.TargetValue <= 0 {
			return fmt.Errorf("key result %d: %w", id, okr.ErrInvalidTarget)
		}
		kr.RecomputeRate()

		_, err = tx.ExecContext(ctx, `
			UPDATE key_results
			SET current_value = ?, target_value = ?, achievement_rate = ?, updated_at = ?
			WHERE id = ?
		`, kr.CurrentValue, kr.TargetValue, kr.AchievementRate, s.timestamp(), id)
		if err != nil {
			return fmt.Errorf("update key result: %w", err)
		}
		out = StoredKeyResult{GoalID: row.GoalID, KeyResult: kr}
		return nil
	})
	if err != nil {
		return StoredKeyResult{}, err
	}
	return out, nil
}

func getKeyResult(ctx context.Context, q sqlx.QueryerContext, id int64) (keyResultRow, error) {
	var row keyResultRow
	err := sqlx.GetContext(ctx, q, &row, `SELECT * FROM key_results WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return keyResultRow{}, fmt.Errorf("key result %d: %w", id, ErrKeyResultNotFound)
	}
	if err != nil {
		return keyResultRow{}, fmt.Errorf("get key result: %w", err)
	}
	return row, nil
}

// ownerGoal resolves the goal of a key result's parent objective.
func ownerGoal(ctx context.Context, tx *sqlx.Tx, kr okr.KeyResult) (int64, error) {
	var goalID int64
	var err error
	if kr.YearlyObjectiveID != nil {
		err = tx.GetContext(ctx, &goalID, `SELECT goal_id FROM yearly_objectives WHERE id = ?`, *kr.YearlyObjectiveID)
	} else {
		err = tx.GetContext(ctx, &goalID, `
			SELECT yo.goal_id FROM quarterly_objectives qo
			INNER JOIN yearly_objectives yo ON yo.id = qo.yearly_objective_id
			WHERE qo.id = ?`, *kr.QuarterlyObjectiveID)
	}
	if errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("parent objective: %w", ErrObjectiveNotFound)
	}
	if err != nil {
		return 0, fmt.Errorf("resolve parent objective: %w", err)
	}
	return goalID, nil
}

func insertYearly(ctx context.Context, tx *sqlx.Tx, goalID int64, year int, objective string) (int64, error) {
	res, err := tx.ExecContext(ctx, `INSERT INTO yearly_objectives (goal_id, year, objective) VALUES (?, ?, ?)`,
		goalID, year, objective)
	if isUniqueViolation(err, "yearly_objectives") {
		return 0, fmt.Errorf("year %d: %w", year, ErrDuplicateYear)
	}
	if err != nil {
		return 0, fmt.Errorf("insert yearly objective: %w", err)
	}
	return res.LastInsertId()
}

func insertQuarterly(ctx context.Context, tx *sqlx.Tx, yearlyID int64, year, quarter int, objective string) (int64, error) {
	res, err := tx.ExecContext(ctx, `
		INSERT INTO quarterly_objectives (yearly_objective_id, year, quarter, objective)
		VALUES (?, ?, ?, ?)
	`, yearlyID, year, quarter, objective)
	if isUniqueViolation(err, "quarterly_objectives") {
		return 0, fmt.Errorf("%d-Q%d: %w", year, quarter, ErrDuplicateQuarter)
	}
	if err != nil {
		return 0, fmt.Errorf("insert quarterly objective: %w", err)
	}
	return res.LastInsertId()
}

func insertKeyResult(ctx context.Context, tx *sqlx.Tx, goalID int64, kr okr.KeyResult, now string) (okr.KeyResult, error) {
	if err := kr.CheckOwnership(); err != nil {
		return okr.KeyResult{}, err
	}
	kr.RecomputeRate()
	res, err := tx.ExecContext(ctx, `
		INSERT INTO key_results (
			goal_id, yearly_objective_id, quarterly_objective_id, description,
			target_value, current_value, unit, frequency, achievement_rate, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, goalID, kr.YearlyObjectiveID, kr.QuarterlyObjectiveID, kr.Description,
		kr.TargetValue, kr.CurrentValue, kr.Unit, string(kr.Frequency), kr.AchievementRate, now)
	if err != nil {
		return okr.KeyResult{}, fmt.Errorf("insert key result: %w", err)
	}
	if kr.ID, err = res.LastInsertId(); err != nil {
		return okr.KeyResult{}, fmt.Errorf("key result id: %w", err)
	}
	return kr, nil
}
