package state

import (
	"errors"
	"fmt"
)

// Sentinel errors for checkpoint operations.
var (
	ErrCheckpointNotFound = errors.New("checkpoint not found")
	ErrMissingSessionID   = errors.New("checkpoint requires a session id")
)

// ExecutionError captures context when graph execution fails.
//
//   - NodeName: Which node failed
//   - State: State snapshot at failure
//   - Path: Execution path leading to failure
//   - Err: Underlying error from node or graph execution
type ExecutionError struct {
	NodeName string
	State    State
	Path     []string
	Err      error
}

// Error implements the error interface.
func (e *ExecutionError) Error() string {
	return fmt.Sprintf("execution failed at node %s: %v", e.NodeName, e.Err)
}

// Unwrap enables error unwrapping for errors.Is and errors.As.
func (e *ExecutionError) Unwrap() error {
	return e.Err
}
