package core

import (
	"errors"
	"fmt"
)

// FailureKind is the machine-readable error taxonomy surfaced on any
// non-succeeded result. A bare error never crosses the transport boundary;
// it is always wrapped in a Failure carrying its kind and a readable reason.
type FailureKind string

const (
	// FailGuardrailRejected marks malformed or unsafe input/output.
	FailGuardrailRejected FailureKind = "guardrail_rejected"
	// FailNoCapableAgent marks planning that found no eligible agent.
	FailNoCapableAgent FailureKind = "no_capable_agent"
	// FailHandoffRejected marks a capacity or capability mismatch.
	FailHandoffRejected FailureKind = "handoff_rejected"
	// FailToolFailure marks a failed external capability call.
	FailToolFailure FailureKind = "tool_failure"
	// FailDeadlineExceeded marks a run-level timeout.
	FailDeadlineExceeded FailureKind = "deadline_exceeded"
	// FailAllBranchesFailed marks a cooperation pattern with zero usable results.
	FailAllBranchesFailed FailureKind = "all_branches_failed"
)

// Failure is a typed error carrying the taxonomy kind and a human-readable
// reason. It wraps an underlying cause when one exists.
type Failure struct {
	Kind   FailureKind
	Reason string
	Err    error
}

// Error implements the error interface.
func (f *Failure) Error() string {
	if f.Err != nil {
		return fmt.Sprintf("%s: %s: %v", f.Kind, f.Reason, f.Err)
	}
	return fmt.Sprintf("%s: %s", f.Kind, f.Reason)
}

// Unwrap exposes the underlying cause for errors.Is/As chains.
func (f *Failure) Unwrap() error { return f.Err }

// NewFailure constructs a Failure with a formatted reason.
func NewFailure(kind FailureKind, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// WrapFailure constructs a Failure around an underlying error.
func WrapFailure(kind FailureKind, err error, format string, args ...any) *Failure {
	return &Failure{Kind: kind, Reason: fmt.Sprintf(format, args...), Err: err}
}

// AsFailure extracts a *Failure from an error chain, or nil.
func AsFailure(err error) *Failure {
	var f *Failure
	if errors.As(err, &f) {
		return f
	}
	return nil
}

// IsKind reports whether err carries the given failure kind.
func IsKind(err error, kind FailureKind) bool {
	f := AsFailure(err)
	return f != nil && f.Kind == kind
}
