package cconv

import (
	"math"
	"math/rand"

	"github.com/san-kum/fluidsim/internal/neighbors"
	"github.com/san-kum/fluidsim/internal/nn"
	"github.com/san-kum/fluidsim/internal/tensor"
	"gonum.org/v1/gonum/floats"
)

// Attention is the attention-style continuous convolution. Each neighbor
// gets a logit from its features (Score, in×1) and from its kernel cell
// (Geometry, cells×1); a softmax over the query's neighbors, multiplied by
// the neighbor count, rescales the neighbor importance. Uniform logits
// reduce it to Standard.
type Attention struct {
	kernel
	Score    *tensor.Tensor
	Geometry *tensor.Tensor
}

func NewAttention(in, out int, opts Options, rng *rand.Rand) *Attention {
	a := &Attention{
		kernel:   newKernel(in, out, opts, rng),
		Score:    tensor.New(in, 1),
		Geometry: tensor.New(opts.Cells(), 1),
	}
	nn.XavierUniform(a.Score, in, 1, rng)
	return a
}

// AttentionFactory adapts NewAttention to Factory.
func AttentionFactory(in, out int, opts Options, rng *rand.Rand) Convolver {
	return NewAttention(in, out, opts, rng)
}

func (c *Attention) Convolve(features, source, query *tensor.Tensor, extent float64) (*tensor.Tensor, *neighbors.List, error) {
	return c.forward(features, source, query, extent, c)
}

func (c *Attention) rescale(features *tensor.Tensor, nbrs []neighborTap) {
	logits := make([]float64, len(nbrs))
	for p, t := range nbrs {
		l := floats.Dot(features.Row(t.src), c.Score.Data)
		for m := 0; m < t.cells.n; m++ {
			l += t.cells.w[m] * c.Geometry.Data[t.cells.idx[m]]
		}
		logits[p] = l
	}

	maxL := floats.Max(logits)
	sum := 0.0
	for p := range logits {
		logits[p] = math.Exp(logits[p] - maxL)
		sum += logits[p]
	}
	scale := float64(len(nbrs)) / sum
	for p := range nbrs {
		nbrs[p].importance *= logits[p] * scale
	}
}

func (c *Attention) Params() nn.ParamSet {
	ps := c.params()
	ps["attention"] = c.Score
	ps["geometry"] = c.Geometry
	return ps
}
