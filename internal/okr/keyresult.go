package okr

import (
	"errors"
	"fmt"
	"math"
)

var (
	// ErrInvalidTarget is returned when a target value is not positive.
	ErrInvalidTarget = errors.New("target value must be greater than zero")
	// ErrInvalidParent is returned when a key result does not have exactly one parent.
	ErrInvalidParent = errors.New("key result must belong to exactly one objective")
)

// AchievementRate returns min(100, current/target*100) at full precision.
func AchievementRate(current, target float64) float64 {
	if target <= 0 {
		return 0
	}
	rate := current / target * 100
	if math.IsNaN(rate) || math.IsInf(rate, 0) || rate < 0 {
		return 0
	}
	if rate > 100 {
		return 100
	}
	return rate
}

// ClampValue bounds v to [0, MaxValue]. The second result reports whether v changed.
func ClampValue(v float64) (float64, bool) {
	switch {
	case math.IsNaN(v):
		return 0, true
	case v > MaxValue:
		return MaxValue, true
	case v < 0:
		return 0, true
	}
	return v, false
}

// SetValues writes current and target, clamping both and recomputing the rate.
func (kr *KeyResult) SetValues(current, target float64) error {
	target, _ = ClampValue(target)
	if target <= 0 {
		return ErrInvalidTarget
	}
	current, _ = ClampValue(current)
	kr.TargetValue = target
	kr.CurrentValue = current
	kr.RecomputeRate()
	return nil
}

// RecomputeRate refreshes the derived achievement rate.
func (kr *KeyResult) RecomputeRate() {
	kr.AchievementRate = AchievementRate(kr.CurrentValue, kr.TargetValue)
}

// CheckOwnership verifies the persisted exclusive-or parent invariant.
func (kr KeyResult) CheckOwnership() error {
	yearly := kr.YearlyObjectiveID != nil
	quarterly := kr.QuarterlyObjectiveID != nil
	if yearly == quarterly {
		return fmt.Errorf("%w (yearly=%t, quarterly=%t)", ErrInvalidParent, yearly, quarterly)
	}
	return nil
}
