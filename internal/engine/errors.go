package engine

import "fmt"

// ComputeError wraps a failure inside a term's compute step with the
// offending node's identity, so graph-shaped failures stay diagnosable.
type ComputeError struct {
	Term  string
	Cause error
}

// Error implements the error interface.
func (e *ComputeError) Error() string {
	return fmt.Sprintf("engine: computing %s: %v", e.Term, e.Cause)
}

// Unwrap exposes the underlying compute failure.
func (e *ComputeError) Unwrap() error { return e.Cause }
