// Package dynamo provides the shared primitives of the fluid simulator
// that sit below the tensor layer:
//
//   - the error taxonomy ([ErrShapeMismatch], [ErrInvalidConfiguration],
//     [ErrNumericInstability]) returned undecorated by the numeric core
//   - [SimulationError], which attaches rollout step/time to a failure
//   - [ParallelFor], the chunked worker helper used by the convolution
//     operators to spread query points over CPUs
//
// # Thread Safety
//
// Everything here is stateless. [ParallelFor] assigns every index to one
// chunk, so callers that write only to per-index outputs stay deterministic.
package dynamo
