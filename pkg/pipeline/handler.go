package pipeline

import (
	"context"
	"errors"
	"fmt"
)

// Handler is one stage of the command pipeline. A handler consumes the
// command variant produced by its predecessor and returns the next variant.
// Handlers never mutate their input.
type Handler interface {
	// Name identifies the handler in telemetry scopes and failures.
	Name() string

	// Handle advances the command one stage. Domain failures are returned
	// as *StageFailure values so callers can branch on them without
	// treating them as programmer errors.
	Handle(ctx context.Context, cmd Command) (Command, error)
}

// StageFailure is an explicit domain failure: a stage could not produce a
// valid result for a reason inherent to the request, such as a source with
// no readable content. It is a value to branch on, not a bug signal.
type StageFailure struct {
	// StageName is the handler that failed.
	StageName string

	// Reason describes the domain-level cause.
	Reason string

	// Cause is the underlying error, if any.
	Cause error
}

// Error implements the error interface.
func (f *StageFailure) Error() string {
	if f.Cause != nil {
		return fmt.Sprintf("stage %q failed: %s: %v", f.StageName, f.Reason, f.Cause)
	}
	return fmt.Sprintf("stage %q failed: %s", f.StageName, f.Reason)
}

// Unwrap returns the underlying error for error chain support.
func (f *StageFailure) Unwrap() error {
	return f.Cause
}

// AsStageFailure extracts a *StageFailure from an error chain.
func AsStageFailure(err error) (*StageFailure, bool) {
	var sf *StageFailure
	if errors.As(err, &sf) {
		return sf, true
	}
	return nil, false
}

// InvariantViolation reports that a stage produced a structurally invalid
// artifact discovered at a downstream seam. It carries the producing stage
// for diagnosis.
type InvariantViolation struct {
	// StageName is the stage that produced the invalid artifact.
	StageName string

	// Err describes the violated invariant.
	Err error
}

// Error implements the error interface.
func (v *InvariantViolation) Error() string {
	return fmt.Sprintf("invariant violation from stage %q: %v", v.StageName, v.Err)
}

// Unwrap returns the underlying error for error chain support.
func (v *InvariantViolation) Unwrap() error {
	return v.Err
}
