package okrstore

import (
	"context"
	"fmt"
	"time"
)

// AcquirePlanLock leases the goal's generation lock to owner for ttl. An
// expired lease, or one already held by owner, is taken over.
func (s *Store) AcquirePlanLock(ctx context.Context, goalID int64, owner string, ttl time.Duration) error {
	if owner == "" {
		return fmt.Errorf("lock owner is required")
	}
	now := s.now().UTC()
	res, err := s.db.ExecContext(ctx, `
		INSERT INTO plan_locks (goal_id, owner, expires_at) VALUES (?, ?, ?)
		ON CONFLICT(goal_id) DO UPDATE SET
			owner = excluded.owner,
			expires_at = excluded.expires_at
		WHERE plan_locks.expires_at <= ? OR plan_locks.owner = excluded.owner
	`, goalID, owner, now.Add(ttl).Format(timeLayout), now.Format(timeLayout))
	if err != nil {
		return fmt.Errorf("acquire plan lock: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("acquire plan lock: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("goal %d: %w", goalID, ErrPlanLocked)
	}
	return nil
}

// ReleasePlanLock drops the lock if owner still holds it.
func (s *Store) ReleasePlanLock(ctx context.Context, goalID int64, owner string) error {
	if _, err := s.db.ExecContext(ctx, `DELETE FROM plan_locks WHERE goal_id = ? AND owner = ?`, goalID, owner); err != nil {
		return fmt.Errorf("release plan lock: %w", err)
	}
	return nil
}
