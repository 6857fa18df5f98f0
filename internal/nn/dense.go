package nn

import (
	"math/rand"

	"github.com/san-kum/fluidsim/internal/tensor"
)

// Dense is a fully connected layer y = x·Wᵀ + b with W stored out×in.
type Dense struct {
	Weight *tensor.Tensor
	Bias   *tensor.Tensor
}

// NewDense returns a Xavier-uniform initialized layer with zero bias.
func NewDense(in, out int, rng *rand.Rand) *Dense {
	d := &Dense{
		Weight: tensor.New(out, in),
		Bias:   tensor.New(1, out),
	}
	XavierUniform(d.Weight, in, out, rng)
	return d
}

func (d *Dense) In() int  { return d.Weight.Cols }
func (d *Dense) Out() int { return d.Weight.Rows }

func (d *Dense) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	y, err := tensor.MatMulT(x, d.Weight)
	if err != nil {
		return nil, err
	}
	if err := y.AddRowVector(d.Bias.Data); err != nil {
		return nil, err
	}
	return y, nil
}

func (d *Dense) Params() ParamSet {
	return ParamSet{"weight": d.Weight, "bias": d.Bias}
}
