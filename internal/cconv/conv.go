// Package cconv implements continuous convolutions over unordered point
// sets. A convolution gathers, for every query point, the source points
// inside a ball of diameter `extent`, maps each relative offset onto a
// small kernel grid and sums the source features through the interpolated
// per-cell weight matrices.
//
// Two operators share one contract ([Convolver]): [Standard] and
// [Attention]. The attention operator additionally re-weights neighbors
// with a learned softmax score before aggregation.
package cconv

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/fluidsim/internal/dynamo"
	"github.com/san-kum/fluidsim/internal/neighbors"
	"github.com/san-kum/fluidsim/internal/nn"
	"github.com/san-kum/fluidsim/internal/tensor"
	"gonum.org/v1/gonum/floats"
)

const queryChunk = 32

// Convolver is a continuous convolution operator.
type Convolver interface {
	// Convolve aggregates features (one row per source point) onto the
	// query points. The neighbor list used is returned for diagnostics.
	Convolve(features, source, query *tensor.Tensor, extent float64) (*tensor.Tensor, *neighbors.List, error)
	InChannels() int
	OutChannels() int
	nn.Module
}

// Factory builds a Convolver; the pipeline picks one per branch.
type Factory func(in, out int, opts Options, rng *rand.Rand) Convolver

// kernel is the state shared by both operators.
type kernel struct {
	opts    Options
	in, out int
	Weights *tensor.Tensor // (cells*in) × out, cell-major
	Bias    *tensor.Tensor // 1 × out, nil without bias
}

func newKernel(in, out int, opts Options, rng *rand.Rand) kernel {
	cells := opts.Cells()
	k := kernel{
		opts:    opts,
		in:      in,
		out:     out,
		Weights: tensor.New(cells*in, out),
	}
	nn.XavierUniform(k.Weights, cells*in, out, rng)
	if opts.UseBias {
		k.Bias = tensor.New(1, out)
	}
	return k
}

func (k *kernel) InChannels() int  { return k.in }
func (k *kernel) OutChannels() int { return k.out }

func (k *kernel) params() nn.ParamSet {
	ps := nn.ParamSet{"kernel": k.Weights}
	if k.Bias != nil {
		ps["bias"] = k.Bias
	}
	return ps
}

func (k *kernel) check(features, source *tensor.Tensor, extent float64) error {
	if features.Rows != source.Rows {
		return dynamo.ShapeError("cconv features/source", features.Rows, features.Cols, source.Rows, source.Cols)
	}
	if features.Cols != k.in {
		return dynamo.ShapeError("cconv in_channels", features.Rows, features.Cols, features.Rows, k.in)
	}
	if k.Weights.Rows != k.opts.Cells()*k.in || k.Weights.Cols != k.out {
		return dynamo.ShapeError("cconv kernel", k.Weights.Rows, k.Weights.Cols, k.opts.Cells()*k.in, k.out)
	}
	if !(extent > 0) || math.IsInf(extent, 0) {
		return fmt.Errorf("%w: filter extent %v", dynamo.ErrNumericInstability, extent)
	}
	return nil
}

// neighborTap is one neighbor's contribution before aggregation.
type neighborTap struct {
	src        int
	importance float64
	cells      taps
}

// scorer optionally rescales the importance of a query's neighbors.
type scorer interface {
	rescale(features *tensor.Tensor, nbrs []neighborTap)
}

func (k *kernel) forward(features, source, query *tensor.Tensor, extent float64, sc scorer) (*tensor.Tensor, *neighbors.List, error) {
	if err := k.check(features, source, extent); err != nil {
		return nil, nil, err
	}
	radius := extent / 2
	nl, err := neighbors.Search(source, query, radius, k.opts.IgnoreQueryPoints)
	if err != nil {
		return nil, nil, err
	}

	out := tensor.New(query.Rows, k.out)
	cells := k.opts.Cells()
	width := cells * k.in
	invR := 1 / radius
	invR2 := invR * invR

	dynamo.ParallelFor(query.Rows, queryChunk, func(start, end int) {
		rows := end - start
		if rows == 0 {
			return
		}
		acc := make([]float64, rows*width)
		var nbrs []neighborTap
		for i := start; i < end; i++ {
			q := query.Row(i)
			lo, hi := nl.RowSplits[i], nl.RowSplits[i+1]
			nbrs = nbrs[:0]
			for p := lo; p < hi; p++ {
				j := nl.Index[p]
				s := source.Row(j)
				imp := 1.0
				if k.opts.Window != nil {
					imp = k.opts.Window(nl.Dist2[p] * invR2)
				}
				x, y, z := k.opts.Mapping.mapToCube((s[0]-q[0])*invR, (s[1]-q[1])*invR, (s[2]-q[2])*invR)
				var g [3]float64
				for a, c := range [3]float64{x, y, z} {
					g[a] = gridCoord(c, k.opts.KernelSize[a], k.opts.AlignCorners)
				}
				t := neighborTap{src: j, importance: imp}
				t.cells.compute(g, k.opts.KernelSize, k.opts.Interpolation)
				nbrs = append(nbrs, t)
			}
			if sc != nil && len(nbrs) > 0 {
				sc.rescale(features, nbrs)
			}

			row := acc[(i-start)*width : (i-start+1)*width]
			total := 0.0
			for _, t := range nbrs {
				total += t.importance
				if t.importance == 0 {
					continue
				}
				f := features.Row(t.src)
				for m := 0; m < t.cells.n; m++ {
					c := t.cells.idx[m]
					floats.AddScaled(row[c*k.in:(c+1)*k.in], t.importance*t.cells.w[m], f)
				}
			}
			if k.opts.Normalize && total > 0 {
				floats.Scale(1/total, row)
			}
		}
		// The kernel shape was checked above, so the product cannot fail.
		prod, _ := tensor.MatMul(&tensor.Tensor{Rows: rows, Cols: width, Data: acc}, k.Weights)
		copy(out.Data[start*k.out:end*k.out], prod.Data)
	})

	if k.Bias != nil {
		if err := out.AddRowVector(k.Bias.Data); err != nil {
			return nil, nil, err
		}
	}
	if k.opts.Activation != nil {
		out = out.Apply(k.opts.Activation)
	}
	return out, nl, nil
}

// Standard is the plain continuous convolution.
type Standard struct {
	kernel
}

func NewStandard(in, out int, opts Options, rng *rand.Rand) *Standard {
	return &Standard{kernel: newKernel(in, out, opts, rng)}
}

// StandardFactory adapts NewStandard to Factory.
func StandardFactory(in, out int, opts Options, rng *rand.Rand) Convolver {
	return NewStandard(in, out, opts, rng)
}

func (c *Standard) Convolve(features, source, query *tensor.Tensor, extent float64) (*tensor.Tensor, *neighbors.List, error) {
	return c.forward(features, source, query, extent, nil)
}

func (c *Standard) Params() nn.ParamSet { return c.params() }
