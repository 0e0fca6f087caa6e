package operations

import (
	"errors"
	"fmt"
)

var (
	// ErrPrecedenceCycle is returned at assembly time when the depends-on
	// relation among operator definitions contains a cycle.
	ErrPrecedenceCycle = errors.New("operator precedence relation contains a cycle")

	// ErrDuplicateDefinition is returned when two operators register the
	// same definition ID.
	ErrDuplicateDefinition = errors.New("operator definition already registered")

	// ErrUnknownDependency is returned when a depends-on edge references a
	// definition ID that was never registered.
	ErrUnknownDependency = errors.New("depends-on references an unknown operator")

	// ErrNoCandidates is the dispatch failure: no registered operator
	// matched the operation, or every matching operator declined.
	ErrNoCandidates = errors.New("no operator succeeded for operation")

	// ErrReentrantOperation is returned when a forwarded operation is
	// structurally identical to one already in flight on the same
	// evaluation.
	ErrReentrantOperation = errors.New("operation is already in flight")

	// ErrAlreadyEvaluated is returned when an operation that reached a
	// terminal state is submitted again.
	ErrAlreadyEvaluated = errors.New("operation was already evaluated")
)

// OperatorError wraps an unexpected error raised by an operator's Perform,
// identifying the offending operator and the operation. It aborts the whole
// evaluation: the operator is not retried and no further candidate runs.
type OperatorError struct {
	Def   Definition
	Shape string
	Err   error
}

func (e *OperatorError) Error() string {
	return fmt.Sprintf("operator %s performing %s: %v", e.Def.ID, e.Shape, e.Err)
}

func (e *OperatorError) Unwrap() error { return e.Err }
