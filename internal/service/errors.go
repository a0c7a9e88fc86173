package service

import (
	"errors"
	"fmt"

	"recurring-planner/internal/recurrence"
)

var (
	// ErrConcurrentGeneration is returned when another generation pass holds
	// the generation lock. The pass did nothing and is safe to retry.
	ErrConcurrentGeneration = errors.New("concurrent generation in progress")

	// ErrPersistenceFailure wraps store failures. No partial state was committed.
	ErrPersistenceFailure = errors.New("persistence failure")

	// ErrChainIntegrityViolation reports an instance chain deeper than one
	// level. It is surfaced, never repaired.
	ErrChainIntegrityViolation = errors.New("chain integrity violation")

	// ErrInvalidOperation is returned when completing a template.
	ErrInvalidOperation = errors.New("invalid operation")

	// ErrInvalidTemplate is returned when a template definition is rejected.
	ErrInvalidTemplate = errors.New("invalid template")
)

// ErrorKind names a failure class in pass reports.
type ErrorKind string

const (
	KindInvalidPattern          ErrorKind = "InvalidPattern"
	KindInvalidInterval         ErrorKind = "InvalidInterval"
	KindConcurrentGeneration    ErrorKind = "ConcurrentGenerationInProgress"
	KindPersistenceFailure      ErrorKind = "PersistenceFailure"
	KindChainIntegrityViolation ErrorKind = "ChainIntegrityViolation"
	KindInvalidOperation        ErrorKind = "InvalidOperation"
)

// KindOf classifies err. Unclassified errors count as persistence failures.
func KindOf(err error) ErrorKind {
	switch {
	case err == nil:
		return ""
	case errors.Is(err, recurrence.ErrInvalidPattern):
		return KindInvalidPattern
	case errors.Is(err, recurrence.ErrInvalidInterval):
		return KindInvalidInterval
	case errors.Is(err, ErrConcurrentGeneration):
		return KindConcurrentGeneration
	case errors.Is(err, ErrChainIntegrityViolation):
		return KindChainIntegrityViolation
	case errors.Is(err, ErrInvalidOperation):
		return KindInvalidOperation
	default:
		return KindPersistenceFailure
	}
}

// TemplateError is a failure isolated to one template during a pass.
type TemplateError struct {
	TemplateID uint
	Kind       ErrorKind
	Err        error
}

func (e TemplateError) Error() string {
	return fmt.Sprintf("template %d: %s: %v", e.TemplateID, e.Kind, e.Err)
}

func (e TemplateError) Unwrap() error {
	return e.Err
}
