// Package swarm implements the per-workspace swarm memory engine: fragment
// recording, consolidated storage, deduplicating consolidation, ranked
// search, and agent context assembly.
package swarm

import (
	"errors"
	"fmt"
)

// Predefined errors for the failure taxonomy of the memory engine.
var (
	// ErrValidation indicates a malformed fragment or input. It is rejected
	// locally and never aborts the batch it was part of.
	ErrValidation = errors.New("validation failed")

	// ErrWorkspaceMismatch indicates a fragment addressed to a different
	// workspace than the store it was offered to.
	ErrWorkspaceMismatch = errors.New("fragment workspace does not match store")

	// ErrImportanceRange indicates an importance score outside [0.0, 1.0].
	ErrImportanceRange = errors.New("importance score out of range")

	// ErrConsolidation indicates a transient failure mid consolidation pass.
	// The pass is rolled back and retried on the next trigger.
	ErrConsolidation = errors.New("consolidation failed")

	// ErrConcurrency indicates a consolidation lock acquisition timeout.
	// Surfaced only to callers that forced consolidation; background
	// triggers log and defer instead.
	ErrConcurrency = errors.New("consolidation lock timeout")

	// ErrInvalidConfig indicates an invalid engine configuration.
	ErrInvalidConfig = errors.New("invalid configuration")

	// ErrClosed indicates an operation on a coordinator or service that has
	// already been shut down.
	ErrClosed = errors.New("memory engine closed")
)

// MemoryError wraps errors with the name of the failed operation.
//
// Example message: "raptorflow: Consolidate: consolidation lock timeout".
type MemoryError struct {
	// Op is the name of the operation that failed.
	Op string

	// Err is the underlying error.
	Err error
}

// Error returns the formatted message.
func (e *MemoryError) Error() string {
	return fmt.Sprintf("raptorflow: %s: %v", e.Op, e.Err)
}

// Unwrap returns the underlying error so errors.Is and errors.As work
// through the wrapper.
func (e *MemoryError) Unwrap() error {
	return e.Err
}

// NewMemoryError wraps err with the operation name. Returns nil when err is
// nil, so it can wrap return values unconditionally.
func NewMemoryError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &MemoryError{Op: op, Err: err}
}
