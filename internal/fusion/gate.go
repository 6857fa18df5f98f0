// Package fusion implements the learned gates that blend two feature maps
// of identical shape: AFF (one gate) and IAFF (two gates, the second one
// computed from the first blend).
//
// A gate is conv → batch-norm → ReLU → conv → batch-norm → sigmoid over the
// particle positions; its per-channel output w blends x and y as
// 2·x·w + 2·y·(1-w), so w ≡ 0.5 yields x + y.
package fusion

import (
	"math/rand"

	"github.com/san-kum/fluidsim/internal/cconv"
	"github.com/san-kum/fluidsim/internal/dynamo"
	"github.com/san-kum/fluidsim/internal/nn"
	"github.com/san-kum/fluidsim/internal/tensor"
)

// Fuser blends two feature maps defined on the same positions.
type Fuser interface {
	Fuse(x, y, pos *tensor.Tensor, extent float64) (*tensor.Tensor, error)
	Channels() int
	nn.Module
}

type gate struct {
	conv1 cconv.Convolver
	norm1 *nn.BatchNorm
	conv2 cconv.Convolver
	norm2 *nn.BatchNorm
}

func newGate(in, inter, out int, newConv cconv.Factory, opts cconv.Options, rng *rand.Rand) gate {
	return gate{
		conv1: newConv(in, inter, opts, rng),
		norm1: nn.NewBatchNorm(inter),
		conv2: newConv(inter, out, opts, rng),
		norm2: nn.NewBatchNorm(out),
	}
}

// weights returns the sigmoid blend weights computed from in.
func (g *gate) weights(in, pos *tensor.Tensor, extent float64) (*tensor.Tensor, error) {
	h, _, err := g.conv1.Convolve(in, pos, pos, extent)
	if err != nil {
		return nil, err
	}
	if h, err = g.norm1.Forward(h); err != nil {
		return nil, err
	}
	h = tensor.ReLU(h)
	if h, _, err = g.conv2.Convolve(h, pos, pos, extent); err != nil {
		return nil, err
	}
	if h, err = g.norm2.Forward(h); err != nil {
		return nil, err
	}
	return tensor.Sigmoid(h), nil
}

// params names the gate's layers with the given conv/norm indices.
func (g *gate) params(first, second string, ps nn.ParamSet) {
	ps.Merge("cconv"+first, g.conv1.Params())
	ps.Merge("batchNorm"+first, g.norm1.Params())
	ps.Merge("cconv"+second, g.conv2.Params())
	ps.Merge("batchNorm"+second, g.norm2.Params())
}

// blend returns 2·x·w + 2·y·(1-w).
func blend(x, y, w *tensor.Tensor) (*tensor.Tensor, error) {
	if !x.SameShape(w) {
		return nil, dynamo.ShapeError("fusion gate", x.Rows, x.Cols, w.Rows, w.Cols)
	}
	out := tensor.New(x.Rows, x.Cols)
	for i, wi := range w.Data {
		out.Data[i] = 2*x.Data[i]*wi + 2*y.Data[i]*(1-wi)
	}
	return out, nil
}

func checkPair(x, y, pos *tensor.Tensor) error {
	if !x.SameShape(y) {
		return dynamo.ShapeError("fusion inputs", x.Rows, x.Cols, y.Rows, y.Cols)
	}
	if x.Rows != pos.Rows {
		return dynamo.ShapeError("fusion positions", x.Rows, x.Cols, pos.Rows, pos.Cols)
	}
	return nil
}
