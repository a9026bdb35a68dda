package assess

import (
	"errors"
	"fmt"
)

// ErrRecordNotFound is returned by a RecordStore when no performance record
// exists for a negotiation.
var ErrRecordNotFound = errors.New("performance record not found")

// Phase names the stage of the assessment pipeline an error came from, so
// callers can translate failures into actionable messages instead of leaking
// internals to end users.
type Phase string

const (
	PhaseAnalysis    Phase = "analysis"
	PhasePersistence Phase = "persistence"
	PhaseProgress    Phase = "progress_update"
)

// PhaseError wraps a pipeline failure with the phase it occurred in.
type PhaseError struct {
	Phase Phase
	Err   error
}

func (e *PhaseError) Error() string {
	return fmt.Sprintf("assessment %s phase: %v", e.Phase, e.Err)
}

func (e *PhaseError) Unwrap() error {
	return e.Err
}

func phaseErr(phase Phase, err error) *PhaseError {
	return &PhaseError{Phase: phase, Err: err}
}
