package okrstore

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/jmoiron/sqlx"

	"okrplanner/internal/okr"
)

type yearlyRow struct {
	ID        int64  `db:"id"`
	GoalID    int64  `db:"goal_id"`
	Year      int    `db:"year"`
	Objective string `db:"objective"`
}

type quarterlyRow struct {
	ID                int64  `db:"id"`
	YearlyObjectiveID int64  `db:"yearly_objective_id"`
	Year              int    `db:"year"`
	Quarter           int    `db:"quarter"`
	Objective         string `db:"objective"`
}

type keyResultRow struct {
	ID                   int64         `db:"id"`
	GoalID               int64         `db:"goal_id"`
	YearlyObjectiveID    sql.NullInt64 `db:"yearly_objective_id"`
	QuarterlyObjectiveID sql.NullInt64 `db:"quarterly_objective_id"`
	Description          string        `db:"description"`
	TargetValue          float64       `db:"target_value"`
	CurrentValue         float64       `db:"current_value"`
	Unit                 string        `db:"unit"`
	Frequency            string        `db:"frequency"`
	AchievementRate      float64       `db:"achievement_rate"`
	UpdatedAt            string        `db:"updated_at"`
}

func (r keyResultRow) keyResult() okr.KeyResult {
	kr := okr.KeyResult{
		ID:              r.ID,
		Description:     r.Description,
		TargetValue:     r.TargetValue,
		CurrentValue:    r.CurrentValue,
		Unit:            r.Unit,
		Frequency:       okr.Frequency(r.Frequency),
		AchievementRate: r.AchievementRate,
	}
	if r.YearlyObjectiveID.Valid {
		id := r.YearlyObjectiveID.Int64
		kr.YearlyObjectiveID = &id
	}
	if r.QuarterlyObjectiveID.Valid {
		id := r.QuarterlyObjectiveID.Int64
		kr.QuarterlyObjectiveID = &id
	}
	return kr
}

// HasPlan reports whether any yearly objective exists for the goal.
func (s *Store) HasPlan(ctx context.Context, goalID int64) (bool, error) {
	return hasPlan(ctx, s.db, goalID)
}

func hasPlan(ctx context.Context, q sqlx.QueryerContext, goalID int64) (bool, error) {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, `SELECT COUNT(*) FROM yearly_objectives WHERE goal_id = ?`, goalID); err != nil {
		return false, fmt.Errorf("count yearly objectives: %w", err)
	}
	return n > 0, nil
}

// SavePlan writes a whole hierarchy in one transaction, parents before
// children, and returns it with generated ids. Nothing is written when the
// goal already has a plan or any insert fails.
func (s *Store) SavePlan(ctx context.Context, plan okr.Plan) (okr.Plan, error) {
	saved := okr.Plan{GoalID: plan.GoalID}
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := goalExists(ctx, tx, plan.GoalID); err != nil {
			return err
		}
		exists, err := hasPlan(ctx, tx, plan.GoalID)
		if err != nil {
			return err
		}
		if exists {
			return fmt.Errorf("goal %d: %w", plan.GoalID, ErrPlanAlreadyExists)
		}

		now := s.timestamp()
		for _, y := range plan.Yearly {
			yid, err := insertYearly(ctx, tx, plan.GoalID, y.Year, y.Objective)
			if err != nil {
				return err
			}
			outY := okr.YearlyObjective{ID: yid, GoalID: plan.GoalID, Year: y.Year, Objective: y.Objective}

			for _, kr := range y.KeyResults {
				kr.YearlyObjectiveID, kr.QuarterlyObjectiveID = &yid, nil
				stored, err := insertKeyResult(ctx, tx, plan.GoalID, kr, now)
				if err != nil {
					return err
				}
				outY.KeyResults = append(outY.KeyResults, stored)
			}

			for _, q := range y.Quarterly {
				qid, err := insertQuarterly(ctx, tx, yid, y.Year, q.Quarter, q.Objective)
				if err != nil {
					return err
				}
				outQ := okr.QuarterlyObjective{ID: qid, YearlyObjectiveID: yid, Year: y.Year, Quarter: q.Quarter, Objective: q.Objective}
				for _, kr := range q.KeyResults {
					kr.YearlyObjectiveID, kr.QuarterlyObjectiveID = nil, &qid
					stored, err := insertKeyResult(ctx, tx, plan.GoalID, kr, now)
					if err != nil {
						return err
					}
					outQ.KeyResults = append(outQ.KeyResults, stored)
				}
				outY.Quarterly = append(outY.Quarterly, outQ)
			}
			saved.Yearly = append(saved.Yearly, outY)
		}
		return nil
	})
	if err != nil {
		return okr.Plan{}, err
	}
	return saved, nil
}

// LoadPlan reads the goal's hierarchy from one consistent snapshot.
func (s *Store) LoadPlan(ctx context.Context, goalID int64) (okr.Plan, error) {
	var (
		yearly    []yearlyRow
		quarterly []quarterlyRow
		krs       []keyResultRow
	)
	err := withReadTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := goalExists(ctx, tx, goalID); err != nil {
			return err
		}
		var err error
		if yearly, err = selectYearly(ctx, tx, goalID); err != nil {
			return err
		}
		if quarterly, err = selectQuarterly(ctx, tx, goalID); err != nil {
			return err
		}
		krs, err = selectKeyResults(ctx, tx, goalID)
		return err
	})
	if err != nil {
		return okr.Plan{}, err
	}
	return assemblePlan(goalID, yearly, quarterly, krs), nil
}

// ListYearlyObjectives returns the goal's yearly objectives without children.
func (s *Store) ListYearlyObjectives(ctx context.Context, goalID int64) ([]okr.YearlyObjective, error) {
	rows, err := selectYearly(ctx, s.db, goalID)
	if err != nil {
		return nil, err
	}
	out := make([]okr.YearlyObjective, 0, len(rows))
	for _, r := range rows {
		out = append(out, okr.YearlyObjective{ID: r.ID, GoalID: r.GoalID, Year: r.Year, Objective: r.Objective})
	}
	return out, nil
}

// ListQuarterlyObjectives returns every quarterly objective under the goal without key results.
func (s *Store) ListQuarterlyObjectives(ctx context.Context, goalID int64) ([]okr.QuarterlyObjective, error) {
	rows, err := selectQuarterly(ctx, s.db, goalID)
	if err != nil {
		return nil, err
	}
	out := make([]okr.QuarterlyObjective, 0, len(rows))
	for _, r := range rows {
		out = append(out, okr.QuarterlyObjective{ID: r.ID, YearlyObjectiveID: r.YearlyObjectiveID, Year: r.Year, Quarter: r.Quarter, Objective: r.Objective})
	}
	return out, nil
}

// ListKeyResults returns every key result under the goal.
func (s *Store) ListKeyResults(ctx context.Context, goalID int64) ([]okr.KeyResult, error) {
	rows, err := selectKeyResults(ctx, s.db, goalID)
	if err != nil {
		return nil, err
	}
	out := make([]okr.KeyResult, 0, len(rows))
	for _, r := range rows {
		out = append(out, r.keyResult())
	}
	return out, nil
}

// DeletePlan removes every objective of the goal; key results cascade.
// It returns the number of yearly objectives deleted.
func (s *Store) DeletePlan(ctx context.Context, goalID int64) (int64, error) {
	var deleted int64
	err := withTx(ctx, s.db, func(tx *sqlx.Tx) error {
		if err := goalExists(ctx, tx, goalID); err != nil {
			return err
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM yearly_objectives WHERE goal_id = ?`, goalID)
		if err != nil {
			return fmt.Errorf("delete yearly objectives: %w", err)
		}
		if deleted, err = res.RowsAffected(); err != nil {
			return fmt.Errorf("delete yearly objectives: %w", err)
		}
		if deleted == 0 {
			return fmt.Errorf("goal %d: %w", goalID, ErrPlanNotFound)
		}
		return nil
	})
	return deleted, err
}

func goalExists(ctx context.Context, q sqlx.QueryerContext, goalID int64) error {
	var n int
	if err := sqlx.GetContext(ctx, q, &n, `SELECT COUNT(*) FROM goals WHERE id = ?`, goalID); err != nil {
		return fmt.Errorf("lookup goal: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("goal %d: %w", goalID, ErrGoalNotFound)
	}
	return nil
}

func selectYearly(ctx context.Context, q sqlx.QueryerContext, goalID int64) ([]yearlyRow, error) {
	rows := []yearlyRow{}
	err := sqlx.SelectContext(ctx, q, &rows, `
		SELECT id, goal_id, year, objective FROM yearly_objectives
		WHERE goal_id = ? ORDER BY year, id`, goalID)
	if err != nil {
		return nil, fmt.Errorf("select yearly objectives: %w", err)
	}
	return rows, nil
}

func selectQuarterly(ctx context.Context, q sqlx.QueryerContext, goalID int64) ([]quarterlyRow, error) {
	rows := []quarterlyRow{}
	err := sqlx.SelectContext(ctx, q, &rows, `
		SELECT qo.id, qo.yearly_objective_id, qo.year, qo.quarter, qo.objective
		FROM quarterly_objectives qo
		INNER JOIN yearly_objectives yo ON yo.id = qo.yearly_objective_id
		WHERE yo.goal_id = ? ORDER BY qo.year, qo.quarter, qo.id`, goalID)
	if err != nil {
		return nil, fmt.Errorf("select quarterly objectives: %w", err)
	}
	return rows, nil
}

func selectKeyResults(ctx context.Context, q sqlx.QueryerContext, goalID int64) ([]keyResultRow, error) {
	rows := []keyResultRow{}
	err := sqlx.SelectContext(ctx, q, &rows, `SELECT * FROM key_results WHERE goal_id = ? ORDER BY id`, goalID)
	if err != nil {
		return nil, fmt.Errorf("select key results: %w", err)
	}
	return rows, nil
}

func assemblePlan(goalID int64, yearly []yearlyRow, quarterly []quarterlyRow, krs []keyResultRow) okr.Plan {
	plan := okr.Plan{GoalID: goalID, Yearly: make([]okr.YearlyObjective, 0, len(yearly))}
	yearIndex := make(map[int64]int, len(yearly))
	for i, r := range yearly {
		yearIndex[r.ID] = i
		plan.Yearly = append(plan.Yearly, okr.YearlyObjective{ID: r.ID, GoalID: r.GoalID, Year: r.Year, Objective: r.Objective})
	}

	type slot struct{ year, quarter int }
	quarterIndex := make(map[int64]slot, len(quarterly))
	for _, r := range quarterly {
		yi, ok := yearIndex[r.YearlyObjectiveID]
		if !ok {
			continue
		}
		y := &plan.Yearly[yi]
		quarterIndex[r.ID] = slot{yi, len(y.Quarterly)}
		y.Quarterly = append(y.Quarterly, okr.QuarterlyObjective{
			ID:                r.ID,
			YearlyObjectiveID: r.YearlyObjectiveID,
			Year:              r.Year,
			Quarter:           r.Quarter,
			Objective:         r.Objective,
		})
	}

	for _, r := range krs {
		kr := r.keyResult()
		switch {
		case r.YearlyObjectiveID.Valid:
			if yi, ok := yearIndex[r.YearlyObjectiveID.Int64]; ok {
				y := &plan.Yearly[yi]
				kr.Parent = okr.Yearly(y.Year)
				y.KeyResults = append(y.KeyResults, kr)
			}
		case r.QuarterlyObjectiveID.Valid:
			if at, ok := quarterIndex[r.QuarterlyObjectiveID.Int64]; ok {
				q := &plan.Yearly[at.year].Quarterly[at.quarter]
				kr.Parent = okr.Quarterly(q.Year, q.Quarter)
				q.KeyResults = append(q.KeyResults, kr)
			}
		}
	}
	return plan
}
