package service

import (
	"errors"
	"fmt"
)

// FailureKind classifies expected workflow failures. Every kind maps to one
// HTTP status in the handler layer; the reason stays human-readable.
type FailureKind string

const (
	KindAuthMissing  FailureKind = "auth_missing"
	KindNotFound     FailureKind = "not_found"
	KindPrecondition FailureKind = "invalid_precondition"
	KindPermission   FailureKind = "permission_denied"
	KindPolicy       FailureKind = "policy_violation"
	KindAssignment   FailureKind = "assignment_incomplete"
	KindPersistence  FailureKind = "persistence_failure"
)

// WorkflowError is an expected operation failure: a kind plus a specific,
// user-facing reason. Operations return it instead of panicking or leaking
// repository errors across the boundary.
type WorkflowError struct {
	Kind   FailureKind
	Reason string
	Err    error
}

func (e *WorkflowError) Error() string {
	return e.Reason
}

func (e *WorkflowError) Unwrap() error {
	return e.Err
}

// Fail builds a WorkflowError with a formatted reason.
func Fail(kind FailureKind, format string, args ...any) *WorkflowError {
	return &WorkflowError{Kind: kind, Reason: fmt.Sprintf(format, args...)}
}

// FailWrap builds a WorkflowError around an underlying error.
func FailWrap(kind FailureKind, err error, format string, args ...any) *WorkflowError {
	return &WorkflowError{Kind: kind, Reason: fmt.Sprintf(format, args...), Err: err}
}

// KindOf extracts the failure kind from an error chain. The second return
// value is false for unexpected (non-workflow) errors.
func KindOf(err error) (FailureKind, bool) {
	var we *WorkflowError
	if errors.As(err, &we) {
		return we.Kind, true
	}
	return "", false
}
