package planner

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrValidation matches any hard rejection produced by the validator.
	ErrValidation = errors.New("plan validation failed")
	// ErrGenerationFailed matches oracle failures: unreachable, timed out, malformed or rejected output.
	ErrGenerationFailed = errors.New("plan generation failed")
	// ErrPersistence matches storage failures while writing an accepted plan.
	ErrPersistence = errors.New("plan persistence failed")
)

// ValidationError captures a single field-specific validation issue.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// ValidationErrors aggregates hard rejections for one candidate.
type ValidationErrors []ValidationError

func (errs ValidationErrors) Error() string {
	parts := make([]string, 0, len(errs))
	for _, e := range errs {
		parts = append(parts, e.Error())
	}
	return strings.Join(parts, "\n")
}

// Is lets callers match any ValidationErrors with errors.Is(err, ErrValidation).
func (errs ValidationErrors) Is(target error) bool {
	return target == ErrValidation
}

// GenerationError wraps the cause of a failed oracle round trip.
type GenerationError struct {
	Oracle string
	Cause  error
}

func (e *GenerationError) Error() string {
	if e.Oracle == "" {
		return fmt.Sprintf("generate plan: %v", e.Cause)
	}
	return fmt.Sprintf("generate plan via %s: %v", e.Oracle, e.Cause)
}

func (e *GenerationError) Unwrap() error { return e.Cause }

func (e *GenerationError) Is(target error) bool {
	return target == ErrGenerationFailed
}

// PersistenceError wraps a storage failure in the persist stage.
type PersistenceError struct {
	GoalID int64
	Cause  error
}

func (e *PersistenceError) Error() string {
	return fmt.Sprintf("persist plan for goal %d: %v", e.GoalID, e.Cause)
}

func (e *PersistenceError) Unwrap() error { return e.Cause }

func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}
