package metrics

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"okrplanner/internal/audit"
	"okrplanner/internal/notify"
	"okrplanner/internal/okr"
	"okrplanner/internal/okrstore"
)

// Store is the storage the progress service needs.
type Store interface {
	LoadPlan(ctx context.Context, goalID int64) (okr.Plan, error)
	UpdateKeyResult(ctx context.Context, id int64, fn func(*okr.KeyResult) error) (okrstore.StoredKeyResult, error)
}

// EventLogger records audit events.
type EventLogger interface {
	LogEvent(ctx context.Context, event audit.Event) error
}

// Service recomputes goal progress and applies key result updates.
type Service struct {
	Store    Store
	Audit    EventLogger
	Notifier *notify.Notifier
	Logger   *slog.Logger
}

// KeyResultUpdate sets a key result's current value and optionally its target.
type KeyResultUpdate struct {
	ID      int64    `json:"id" yaml:"id"`
	Current float64  `json:"current_value" yaml:"current"`
	Target  *float64 `json:"target_value,omitempty" yaml:"target,omitempty"`
}

// StatusChange reports a key result moving between statuses.
type StatusChange struct {
	KeyResultID int64  `json:"key_result_id"`
	OldStatus   string `json:"old_status"`
	NewStatus   string `json:"new_status"`
}

// UpdatedKeyResult is the outcome of ApplyUpdate.
type UpdatedKeyResult struct {
	KeyResult okrstore.StoredKeyResult `json:"key_result"`
	Previous  okr.KeyResult            `json:"previous"`
	Change    *StatusChange            `json:"status_change,omitempty"`
	Progress  Report                   `json:"progress"`
}

func (s *Service) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return s.Logger
}

// Recompute aggregates the goal's progress from one consistent read.
func (s *Service) Recompute(ctx context.Context, goalID int64) (Report, error) {
	plan, err := s.Store.LoadPlan(ctx, goalID)
	if err != nil {
		return Report{}, fmt.Errorf("load plan: %w", err)
	}
	return Recompute(plan), nil
}

// ApplyUpdate clamps and writes new values, recomputes the achievement rate
// in the same transaction, then recomputes the goal's progress.
func (s *Service) ApplyUpdate(ctx context.Context, u KeyResultUpdate) (*UpdatedKeyResult, error) {
	var previous okr.KeyResult
	stored, err := s.Store.UpdateKeyResult(ctx, u.ID, func(kr *okr.KeyResult) error {
		previous = *kr
		target := kr.TargetValue
		if u.Target != nil {
			target = *u.Target
		}
		return kr.SetValues(u.Current, target)
	})
	if err != nil {
		return nil, fmt.Errorf("update key result %d: %w", u.ID, err)
	}

	out := &UpdatedKeyResult{KeyResult: stored, Previous: previous}
	oldStatus := Status(okr.AchievementRate(previous.CurrentValue, previous.TargetValue))
	newStatus := Status(stored.AchievementRate)
	if oldStatus != newStatus {
		out.Change = &StatusChange{KeyResultID: stored.ID, OldStatus: oldStatus, NewStatus: newStatus}
	}

	report, err := s.Recompute(ctx, stored.GoalID)
	if err != nil {
		return nil, err
	}
	out.Progress = report

	s.audit(ctx, stored.GoalID, "key_result_updated", map[string]any{
		"key_result_id":    stored.ID,
		"previous_current": previous.CurrentValue,
		"previous_target":  previous.TargetValue,
		"current_value":    stored.CurrentValue,
		"target_value":     stored.TargetValue,
		"achievement_rate": stored.AchievementRate,
		"overall_progress": report.Overall,
	})

	if out.Change != nil && out.Change.NewStatus == StatusAchieved {
		title, msg := notify.FormatKRAchieved(stored.ID, stored.Description, stored.CurrentValue, stored.TargetValue)
		if err := s.Notifier.Send(title, msg); err != nil {
			s.logger().Warn("metrics: notification failed", "key_result_id", stored.ID, "error", err)
		}
	}

	s.logger().Info("metrics: key result updated",
		"key_result_id", stored.ID,
		"goal_id", stored.GoalID,
		"achievement_rate", stored.AchievementRate,
		"overall", report.Overall,
	)
	return out, nil
}

// ApplyAll applies updates in order and stops at the first failure.
func (s *Service) ApplyAll(ctx context.Context, updates []KeyResultUpdate) ([]*UpdatedKeyResult, error) {
	results := make([]*UpdatedKeyResult, 0, len(updates))
	for i, u := range updates {
		res, err := s.ApplyUpdate(ctx, u)
		if err != nil {
			return results, fmt.Errorf("update %d: %w", i, err)
		}
		results = append(results, res)
	}
	return results, nil
}

func (s *Service) audit(ctx context.Context, goalID int64, eventType string, payload map[string]any) {
	if s.Audit == nil {
		return
	}
	err := s.Audit.LogEvent(ctx, audit.Event{Actor: audit.ActorUser, Type: eventType, GoalID: goalID, Payload: payload})
	if err != nil {
		s.logger().Warn("metrics: audit event failed", "type", eventType, "error", err)
	}
}
