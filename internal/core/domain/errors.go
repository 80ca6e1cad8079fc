// internal/core/domain/errors.go
package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrMissingInput: an optional input (target file, feed) is absent. Degrades, never fatal.
	ErrMissingInput = errors.New("missing input")

	// ErrNoTargets: the target set is empty, so the cycle has nothing to do.
	ErrNoTargets = errors.New("no targets to scan")

	ErrPhaseFailure    = errors.New("phase failure")
	ErrInvalidDomain   = errors.New("invalid domain format")
	ErrInvalidSeverity = errors.New("invalid severity")
	ErrInvalidRule     = errors.New("invalid scan rule")
	ErrSinkFailure     = errors.New("sink failure")
)

// PhaseError marks an error that aborted a phase.
type PhaseError struct {
	Phase string
	Err   error
}

func NewPhaseError(phase string, err error) *PhaseError {
	return &PhaseError{Phase: phase, Err: err}
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("phase %s: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() []error { return []error{ErrPhaseFailure, e.Err} }
