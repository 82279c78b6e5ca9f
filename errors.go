// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: BSD-3-Clause

package framegraph

import (
	"errors"
	"fmt"
)

// Contract violations. These signal programmer errors in the code driving
// the graph; see ViolationError.
var (
	// ErrInvalidPhase is returned when a graph operation is called in the
	// wrong phase of the Setup/Build/Render cycle.
	ErrInvalidPhase = errors.New("framegraph: operation not allowed in current phase")

	// ErrUnbalancedGroups is returned for a PopGroup without matching
	// PushGroup, or when Setup finds groups still open.
	ErrUnbalancedGroups = errors.New("framegraph: unbalanced pass groups")

	// ErrIncompatibleResource is returned when an ID is registered twice in
	// one frame with a different kind or an incompatible descriptor, or
	// looked up with the wrong kind.
	ErrIncompatibleResource = errors.New("framegraph: incompatible resource registration")

	// ErrResourceNotFound is returned when a required resource is absent.
	ErrResourceNotFound = errors.New("framegraph: resource not found")

	// ErrConflictingAccess is returned when one pass declares two different
	// states for the same resource.
	ErrConflictingAccess = errors.New("framegraph: conflicting access in pass")

	// ErrInvalidPass is returned when registering a nil pass.
	ErrInvalidPass = errors.New("framegraph: invalid pass")

	// ErrUsageNotDeclared is returned when a pass requests an access the
	// resource descriptor's usage flags do not allow.
	ErrUsageNotDeclared = errors.New("framegraph: access not permitted by resource usage")
)

// Device and pool errors.
var (
	// ErrAllocation wraps device failures to create a resource. It is fatal
	// for the frame.
	ErrAllocation = errors.New("framegraph: resource allocation failed")

	// ErrMemoryBudgetExceeded is returned when an allocation does not fit in
	// the pool budget even after trimming unused entries.
	ErrMemoryBudgetExceeded = errors.New("framegraph: memory budget exceeded")

	// ErrPoolClosed is returned when operating on a closed pool.
	ErrPoolClosed = errors.New("framegraph: pool closed")

	// ErrUnknownHandle is returned when releasing a handle the pool does not own.
	ErrUnknownHandle = errors.New("framegraph: handle not owned by pool")
)

// ViolationError records a contract violation and the pass it occurred in.
type ViolationError struct {
	// Pass is the name of the offending pass, empty for graph-level calls.
	Pass string

	// Op is the operation that detected the violation.
	Op string

	// Err is the underlying sentinel.
	Err error
}

// Error implements error.
func (e *ViolationError) Error() string {
	if e.Pass == "" {
		return fmt.Sprintf("%s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("pass %q: %s: %v", e.Pass, e.Op, e.Err)
}

// Unwrap returns the underlying error.
func (e *ViolationError) Unwrap() error { return e.Err }

// violation builds a ViolationError and applies the assertion policy.
func violation(pass, op string, err error) error {
	v := &ViolationError{Pass: pass, Op: op, Err: err}
	assertContract(v)
	return v
}

// AssertionsEnabled reports whether contract violations panic, which is the
// case in builds tagged framegraph_debug.
func AssertionsEnabled() bool { return debugAssertions }
