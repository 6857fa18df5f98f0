package fusion

import (
	"math/rand"

	"github.com/san-kum/fluidsim/internal/cconv"
	"github.com/san-kum/fluidsim/internal/nn"
	"github.com/san-kum/fluidsim/internal/tensor"
)

// AFF fuses x and y with a single gate computed from [x, y].
type AFF struct {
	channels int
	gate
}

// NewAFF builds a gate mapping 2·channels → inter → channels.
func NewAFF(channels, inter int, newConv cconv.Factory, opts cconv.Options, rng *rand.Rand) *AFF {
	return &AFF{
		channels: channels,
		gate:     newGate(2*channels, inter, channels, newConv, opts, rng),
	}
}

func (a *AFF) Channels() int { return a.channels }

func (a *AFF) Fuse(x, y, pos *tensor.Tensor, extent float64) (*tensor.Tensor, error) {
	if err := checkPair(x, y, pos); err != nil {
		return nil, err
	}
	xa, err := tensor.Concat(x, y)
	if err != nil {
		return nil, err
	}
	w, err := a.weights(xa, pos, extent)
	if err != nil {
		return nil, err
	}
	return blend(x, y, w)
}

func (a *AFF) Params() nn.ParamSet {
	ps := nn.ParamSet{}
	a.params("1", "2", ps)
	return ps
}
