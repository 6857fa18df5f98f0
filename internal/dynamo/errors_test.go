package dynamo

import (
	"errors"
	"sync/atomic"
	"testing"
)

func TestShapeErrorWrapsSentinel(t *testing.T) {
	err := ShapeError("concat", 3, 4, 2, 4)
	if !errors.Is(err, ErrShapeMismatch) {
		t.Fatalf("expected ErrShapeMismatch, got %v", err)
	}
	expected := "dynamo: shape mismatch: concat: 3x4 vs 2x4"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestSimulationError(t *testing.T) {
	err := &SimulationError{Step: 12, Time: 0.24, Wrapped: ErrNumericInstability}
	if !errors.Is(err, ErrNumericInstability) {
		t.Error("SimulationError should unwrap to its cause")
	}
	if err.Error() == "" {
		t.Error("empty error message")
	}
}

func TestParallelForCoversEveryIndexOnce(t *testing.T) {
	tests := []struct {
		n, minChunk int
	}{
		{0, 4},
		{1, 4},
		{7, 1},
		{100, 8},
		{1025, 64},
	}

	for _, tt := range tests {
		hits := make([]int32, tt.n)
		ParallelFor(tt.n, tt.minChunk, func(start, end int) {
			for i := start; i < end; i++ {
				atomic.AddInt32(&hits[i], 1)
			}
		})
		for i, h := range hits {
			if h != 1 {
				t.Errorf("n=%d: index %d visited %d times", tt.n, i, h)
			}
		}
	}
}
