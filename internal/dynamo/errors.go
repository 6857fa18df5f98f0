package dynamo

import (
	"errors"
	"fmt"
)

// Domain errors for simulation operations.
var (
	// ErrShapeMismatch indicates paired tensors disagree in particle count or channel width.
	ErrShapeMismatch = errors.New("dynamo: shape mismatch")

	// ErrInvalidConfiguration indicates an unsupported or out-of-range model option.
	ErrInvalidConfiguration = errors.New("dynamo: invalid configuration")

	// ErrNumericInstability indicates degenerate geometry or a NaN/Inf in the state.
	ErrNumericInstability = errors.New("dynamo: numeric instability (NaN, Inf or degenerate extent)")

	// ErrMissingParameter indicates a checkpoint lacks a tensor the model needs.
	ErrMissingParameter = errors.New("dynamo: missing parameter")

	// ErrUnknownPreset indicates a preset name that is not registered.
	ErrUnknownPreset = errors.New("dynamo: unknown preset")
)

// ShapeError builds an ErrShapeMismatch carrying the two offending shapes.
func ShapeError(op string, rowsA, colsA, rowsB, colsB int) error {
	return fmt.Errorf("%w: %s: %dx%d vs %dx%d", ErrShapeMismatch, op, rowsA, colsA, rowsB, colsB)
}

// SimulationError wraps an error with rollout context.
type SimulationError struct {
	Step    int
	Time    float64
	Wrapped error
}

func (e *SimulationError) Error() string {
	return fmt.Sprintf("step %d (t=%.4f): %v", e.Step, e.Time, e.Wrapped)
}

func (e *SimulationError) Unwrap() error {
	return e.Wrapped
}
