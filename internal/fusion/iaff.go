package fusion

import (
	"math/rand"

	"github.com/san-kum/fluidsim/internal/cconv"
	"github.com/san-kum/fluidsim/internal/nn"
	"github.com/san-kum/fluidsim/internal/tensor"
)

// IAFF refines the AFF blend with a second gate. The second gate reads the
// first blend xo alone, but its weights are applied to the original x and
// y, not to xo.
type IAFF struct {
	channels int
	first    gate
	second   gate
}

func NewIAFF(channels, inter int, newConv cconv.Factory, opts cconv.Options, rng *rand.Rand) *IAFF {
	return &IAFF{
		channels: channels,
		first:    newGate(2*channels, inter, channels, newConv, opts, rng),
		second:   newGate(channels, inter, channels, newConv, opts, rng),
	}
}

func (a *IAFF) Channels() int { return a.channels }

func (a *IAFF) Fuse(x, y, pos *tensor.Tensor, extent float64) (*tensor.Tensor, error) {
	if err := checkPair(x, y, pos); err != nil {
		return nil, err
	}
	xa, err := tensor.Concat(x, y)
	if err != nil {
		return nil, err
	}
	w1, err := a.first.weights(xa, pos, extent)
	if err != nil {
		return nil, err
	}
	xo, err := blend(x, y, w1)
	if err != nil {
		return nil, err
	}
	w2, err := a.second.weights(xo, pos, extent)
	if err != nil {
		return nil, err
	}
	return blend(x, y, w2)
}

func (a *IAFF) Params() nn.ParamSet {
	ps := nn.ParamSet{}
	a.first.params("1", "2", ps)
	a.second.params("3", "4", ps)
	return ps
}
