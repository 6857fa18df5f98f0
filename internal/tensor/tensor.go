// Package tensor provides the dense row-major matrix used for every
// per-particle quantity: positions, velocities, feature maps and learned
// weights. Rows index particles (or kernel cells), columns index channels.
//
// Element-wise work is delegated to gonum's floats package and matrix
// products to gonum's mat package. Zero-row tensors are valid operands
// for every operation.
package tensor

import (
	"fmt"
	"math"

	"github.com/san-kum/fluidsim/internal/dynamo"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/floats/scalar"
	"gonum.org/v1/gonum/mat"
)

// Tensor is a Rows×Cols matrix stored row-major in Data.
type Tensor struct {
	Rows, Cols int
	Data       []float64
}

// New returns a zero-filled rows×cols tensor.
func New(rows, cols int) *Tensor {
	return &Tensor{Rows: rows, Cols: cols, Data: make([]float64, rows*cols)}
}

// Full returns a rows×cols tensor with every element set to v.
func Full(rows, cols int, v float64) *Tensor {
	t := New(rows, cols)
	for i := range t.Data {
		t.Data[i] = v
	}
	return t
}

// FromRows copies a slice of equally sized rows into a new tensor.
// An empty input produces a 0×cols tensor.
func FromRows(cols int, rows [][]float64) (*Tensor, error) {
	t := New(len(rows), cols)
	for i, r := range rows {
		if len(r) != cols {
			return nil, fmt.Errorf("%w: row %d has %d values, want %d", dynamo.ErrShapeMismatch, i, len(r), cols)
		}
		copy(t.Data[i*cols:], r)
	}
	return t, nil
}

func (t *Tensor) At(i, j int) float64     { return t.Data[i*t.Cols+j] }
func (t *Tensor) Set(i, j int, v float64) { t.Data[i*t.Cols+j] = v }

// Row returns a view of row i.
func (t *Tensor) Row(i int) []float64 {
	return t.Data[i*t.Cols : (i+1)*t.Cols]
}

func (t *Tensor) Clone() *Tensor {
	c := New(t.Rows, t.Cols)
	copy(c.Data, t.Data)
	return c
}

// SameShape reports whether t and o have identical dimensions.
func (t *Tensor) SameShape(o *Tensor) bool {
	return t.Rows == o.Rows && t.Cols == o.Cols
}

// IsFinite reports whether no element is NaN or Inf.
func (t *Tensor) IsFinite() bool {
	for _, v := range t.Data {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return false
		}
	}
	return true
}

func (t *Tensor) String() string {
	return fmt.Sprintf("Tensor(%dx%d)", t.Rows, t.Cols)
}

func checkSame(op string, a, b *Tensor) error {
	if !a.SameShape(b) {
		return dynamo.ShapeError(op, a.Rows, a.Cols, b.Rows, b.Cols)
	}
	return nil
}

// Add returns a + b.
func Add(a, b *Tensor) (*Tensor, error) {
	if err := checkSame("add", a, b); err != nil {
		return nil, err
	}
	out := New(a.Rows, a.Cols)
	floats.AddTo(out.Data, a.Data, b.Data)
	return out, nil
}

// Sub returns a - b.
func Sub(a, b *Tensor) (*Tensor, error) {
	if err := checkSame("sub", a, b); err != nil {
		return nil, err
	}
	out := New(a.Rows, a.Cols)
	floats.SubTo(out.Data, a.Data, b.Data)
	return out, nil
}

// AddScaled returns a + alpha*b.
func AddScaled(a *Tensor, alpha float64, b *Tensor) (*Tensor, error) {
	if err := checkSame("add_scaled", a, b); err != nil {
		return nil, err
	}
	out := New(a.Rows, a.Cols)
	floats.AddScaledTo(out.Data, a.Data, alpha, b.Data)
	return out, nil
}

// Scale returns alpha*a.
func Scale(alpha float64, a *Tensor) *Tensor {
	out := New(a.Rows, a.Cols)
	floats.ScaleTo(out.Data, alpha, a.Data)
	return out
}

// AddRowVector adds the length-Cols vector v to every row of a in place.
func (t *Tensor) AddRowVector(v []float64) error {
	if len(v) != t.Cols {
		return dynamo.ShapeError("add_row", t.Rows, t.Cols, 1, len(v))
	}
	for i := 0; i < t.Rows; i++ {
		floats.Add(t.Row(i), v)
	}
	return nil
}

// Apply returns a new tensor with fn applied to every element.
func (t *Tensor) Apply(fn func(float64) float64) *Tensor {
	out := New(t.Rows, t.Cols)
	for i, v := range t.Data {
		out.Data[i] = fn(v)
	}
	return out
}

// Concat joins tensors along the channel axis. All inputs must share Rows.
func Concat(ts ...*Tensor) (*Tensor, error) {
	if len(ts) == 0 {
		return New(0, 0), nil
	}
	rows, cols := ts[0].Rows, 0
	for _, t := range ts {
		if t.Rows != rows {
			return nil, dynamo.ShapeError("concat", rows, ts[0].Cols, t.Rows, t.Cols)
		}
		cols += t.Cols
	}
	out := New(rows, cols)
	for i := 0; i < rows; i++ {
		dst := out.Row(i)
		off := 0
		for _, t := range ts {
			copy(dst[off:], t.Row(i))
			off += t.Cols
		}
	}
	return out, nil
}

// MatMulT returns a · wᵀ where w is stored out×in, the layout of a linear
// layer's weight.
func MatMulT(a, w *Tensor) (*Tensor, error) {
	if a.Cols != w.Cols {
		return nil, dynamo.ShapeError("matmul_t", a.Rows, a.Cols, w.Rows, w.Cols)
	}
	out := New(a.Rows, w.Rows)
	if a.Rows == 0 || w.Rows == 0 || a.Cols == 0 {
		return out, nil
	}
	am := mat.NewDense(a.Rows, a.Cols, a.Data)
	wm := mat.NewDense(w.Rows, w.Cols, w.Data)
	om := mat.NewDense(out.Rows, out.Cols, out.Data)
	om.Mul(am, wm.T())
	return out, nil
}

// MatMul returns a · b.
func MatMul(a, b *Tensor) (*Tensor, error) {
	if a.Cols != b.Rows {
		return nil, dynamo.ShapeError("matmul", a.Rows, a.Cols, b.Rows, b.Cols)
	}
	out := New(a.Rows, b.Cols)
	if a.Rows == 0 || b.Cols == 0 || a.Cols == 0 {
		return out, nil
	}
	am := mat.NewDense(a.Rows, a.Cols, a.Data)
	bm := mat.NewDense(b.Rows, b.Cols, b.Data)
	om := mat.NewDense(out.Rows, out.Cols, out.Data)
	om.Mul(am, bm)
	return out, nil
}

// RowNorms returns the Euclidean norm of every row.
func (t *Tensor) RowNorms() []float64 {
	out := make([]float64, t.Rows)
	for i := range out {
		out[i] = floats.Norm(t.Row(i), 2)
	}
	return out
}

// AllClose reports whether a and b have the same shape and every pair of
// elements is within atol or rtol of each other.
func AllClose(a, b *Tensor, rtol, atol float64) bool {
	if !a.SameShape(b) {
		return false
	}
	for i := range a.Data {
		if !scalar.EqualWithinAbsOrRel(a.Data[i], b.Data[i], atol, rtol) {
			return false
		}
	}
	return true
}
