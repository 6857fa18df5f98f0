package nn

import (
	"math"

	"github.com/san-kum/fluidsim/internal/dynamo"
	"github.com/san-kum/fluidsim/internal/tensor"
)

const batchNormEps = 1e-5

// BatchNorm normalizes each channel with its running statistics
// (inference mode); statistics are only ever written by a checkpoint load.
type BatchNorm struct {
	Weight      *tensor.Tensor
	Bias        *tensor.Tensor
	RunningMean *tensor.Tensor
	RunningVar  *tensor.Tensor
}

func NewBatchNorm(channels int) *BatchNorm {
	return &BatchNorm{
		Weight:      tensor.Full(1, channels, 1),
		Bias:        tensor.New(1, channels),
		RunningMean: tensor.New(1, channels),
		RunningVar:  tensor.Full(1, channels, 1),
	}
}

func (b *BatchNorm) Channels() int { return b.Weight.Cols }

func (b *BatchNorm) Forward(x *tensor.Tensor) (*tensor.Tensor, error) {
	c := b.Channels()
	if x.Cols != c {
		return nil, dynamo.ShapeError("batch_norm", x.Rows, x.Cols, 1, c)
	}
	scale := make([]float64, c)
	shift := make([]float64, c)
	for j := 0; j < c; j++ {
		scale[j] = b.Weight.Data[j] / math.Sqrt(b.RunningVar.Data[j]+batchNormEps)
		shift[j] = b.Bias.Data[j] - b.RunningMean.Data[j]*scale[j]
	}
	out := tensor.New(x.Rows, c)
	for i := 0; i < x.Rows; i++ {
		src, dst := x.Row(i), out.Row(i)
		for j := range dst {
			dst[j] = src[j]*scale[j] + shift[j]
		}
	}
	return out, nil
}

func (b *BatchNorm) Params() ParamSet {
	return ParamSet{
		"weight":       b.Weight,
		"bias":         b.Bias,
		"running_mean": b.RunningMean,
		"running_var":  b.RunningVar,
	}
}
