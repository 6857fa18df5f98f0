// Package network assembles the dual-branch feature pipeline that turns a
// fluid state into a per-particle position correction.
//
// Two branches run side by side on the same particles: one built from the
// standard continuous convolution ("cconv"), the other from the attention
// variant ("ascc"). Each layer's pair of outputs is merged by a learned AFF
// gate before feeding the next layer.
package network

import (
	"fmt"
	"math"
	"math/rand"

	"github.com/san-kum/fluidsim/internal/cconv"
	"github.com/san-kum/fluidsim/internal/dynamo"
	"github.com/san-kum/fluidsim/internal/fusion"
	"github.com/san-kum/fluidsim/internal/nn"
	"github.com/san-kum/fluidsim/internal/tensor"
)

// CorrectionScale maps the raw network output to position units.
const CorrectionScale = 1.0 / 128

// obstacleChannels is the width of the obstacle features (wall normals).
const obstacleChannels = 3

// residualLayer is the only layer index eligible for residual fusion.
const residualLayer = 3

type Config struct {
	LayerChannels      []int
	OtherFeatsChannels int
	Extent             float64
	Options            cconv.Options
	Seed               int64
}

func DefaultLayerChannels() []int { return []int{32, 64, 128, 64, 3} }

func (c Config) Validate() error {
	lc := c.LayerChannels
	if len(lc) < 2 {
		return fmt.Errorf("%w: layer_channels needs at least 2 entries", dynamo.ErrInvalidConfiguration)
	}
	for i, ch := range lc {
		if ch < 1 {
			return fmt.Errorf("%w: layer_channels[%d] = %d", dynamo.ErrInvalidConfiguration, i, ch)
		}
	}
	if lc[len(lc)-1] != 3 {
		return fmt.Errorf("%w: last layer width %d, want 3", dynamo.ErrInvalidConfiguration, lc[len(lc)-1])
	}
	if c.OtherFeatsChannels < 0 {
		return fmt.Errorf("%w: other_feats_channels = %d", dynamo.ErrInvalidConfiguration, c.OtherFeatsChannels)
	}
	if !(c.Extent > 0) || math.IsInf(c.Extent, 0) {
		return fmt.Errorf("%w: filter extent %v", dynamo.ErrInvalidConfiguration, c.Extent)
	}
	return c.Options.Validate()
}

type variant struct {
	name    string
	factory cconv.Factory
}

var variants = [2]variant{
	{"cconv", cconv.StandardFactory},
	{"ascc", cconv.AttentionFactory},
}

// stem is the first stage of one branch.
type stem struct {
	fluid    cconv.Convolver
	obstacle cconv.Convolver
	dense    *nn.Dense
	fuse     *fusion.IAFF
}

// layer holds one hidden layer for both branches plus its merge gate.
type layer struct {
	index    int
	convs    [2]cconv.Convolver
	denses   [2]*nn.Dense
	aff      *fusion.AFF
	residual bool
}

type Network struct {
	cfg    Config
	in     int
	stems  [2]stem
	aff0   *fusion.AFF
	layers []layer
	resAff *fusion.AFF
}

// Output is the result of one forward pass.
type Output struct {
	Correction *tensor.Tensor
	// NeighborCounts[i] is the number of fluid neighbors of particle i in
	// the first standard fluid convolution.
	NeighborCounts []float64
	// Features[0] is the merged first-stage output, Features[i] the output
	// of hidden layer i.
	Features []*tensor.Tensor
}

func New(cfg Config) (*Network, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg.LayerChannels = append([]int(nil), cfg.LayerChannels...)
	rng := rand.New(rand.NewSource(cfg.Seed))
	opts := cfg.Options
	lc := cfg.LayerChannels
	ch0 := lc[0]

	n := &Network{cfg: cfg, in: 4 + cfg.OtherFeatsChannels}
	for v, vr := range variants {
		n.stems[v] = stem{
			fluid:    vr.factory(n.in, ch0, opts, rng),
			obstacle: vr.factory(obstacleChannels, ch0, opts, rng),
			dense:    nn.NewDense(n.in, ch0, rng),
			fuse:     fusion.NewIAFF(ch0, 2*ch0, vr.factory, opts, rng),
		}
	}
	n.aff0 = fusion.NewAFF(2*ch0, 2*ch0, cconv.StandardFactory, opts, rng)

	widths := []int{2 * ch0}
	for i := 1; i < len(lc); i++ {
		in, out := widths[i-1], lc[i]
		l := layer{index: i, aff: fusion.NewAFF(out, out, cconv.StandardFactory, opts, rng)}
		for v, vr := range variants {
			l.convs[v] = vr.factory(in, out, opts, rng)
			l.denses[v] = nn.NewDense(in, out, rng)
		}
		if i == residualLayer && out == widths[i-2] {
			l.residual = true
			n.resAff = fusion.NewAFF(out, out, cconv.StandardFactory, opts, rng)
		}
		n.layers = append(n.layers, l)
		widths = append(widths, out)
	}
	return n, nil
}

func (n *Network) Config() Config    { return n.cfg }
func (n *Network) InChannels() int   { return n.in }
func (n *Network) Extent() float64   { return n.cfg.Extent }
func (n *Network) HasResidual() bool { return n.resAff != nil }

// ResidualLayers returns the indices of layers that apply residual fusion.
func (n *Network) ResidualLayers() []int {
	var out []int
	for _, l := range n.layers {
		if l.residual {
			out = append(out, l.index)
		}
	}
	return out
}

// Forward computes the position correction for fluid particles at pos with
// velocities vel. extra may be nil. box and boxFeats hold the obstacle
// sample points and their normals.
func (n *Network) Forward(pos, vel, extra, box, boxFeats *tensor.Tensor) (*Output, error) {
	feats, err := n.fluidFeatures(pos, vel, extra)
	if err != nil {
		return nil, err
	}
	if box.Cols != 3 || !box.SameShape(boxFeats) {
		return nil, dynamo.ShapeError("obstacle", box.Rows, box.Cols, boxFeats.Rows, boxFeats.Cols)
	}
	if pos.Rows == 0 {
		return &Output{Correction: tensor.New(0, 3), NeighborCounts: []float64{}}, nil
	}

	ext := n.cfg.Extent
	var branches [2]*tensor.Tensor
	var counts []float64
	for v := range n.stems {
		s := &n.stems[v]
		f, nl, err := s.fluid.Convolve(feats, pos, pos, ext)
		if err != nil {
			return nil, err
		}
		if v == 0 {
			counts = nl.Counts()
		}
		o, _, err := s.obstacle.Convolve(boxFeats, box, pos, ext)
		if err != nil {
			return nil, err
		}
		d, err := s.dense.Forward(feats)
		if err != nil {
			return nil, err
		}
		h, err := s.fuse.Fuse(f, o, pos, ext)
		if err != nil {
			return nil, err
		}
		if branches[v], err = tensor.Concat(h, d); err != nil {
			return nil, err
		}
	}
	merged, err := n.aff0.Fuse(branches[0], branches[1], pos, ext)
	if err != nil {
		return nil, err
	}

	history := []*tensor.Tensor{merged}
	for _, l := range n.layers {
		in := tensor.ReLU(history[len(history)-1])
		var sums [2]*tensor.Tensor
		for v := range variants {
			c, _, err := l.convs[v].Convolve(in, pos, pos, ext)
			if err != nil {
				return nil, err
			}
			d, err := l.denses[v].Forward(in)
			if err != nil {
				return nil, err
			}
			if sums[v], err = tensor.Add(c, d); err != nil {
				return nil, err
			}
		}
		sel, err := l.aff.Fuse(sums[0], sums[1], pos, ext)
		if err != nil {
			return nil, err
		}
		if l.residual {
			if sel, err = n.resAff.Fuse(sel, history[len(history)-2], pos, ext); err != nil {
				return nil, err
			}
		}
		history = append(history, sel)
	}

	return &Output{
		Correction:     tensor.Scale(CorrectionScale, history[len(history)-1]),
		NeighborCounts: counts,
		Features:       history,
	}, nil
}

// fluidFeatures builds [1, vel, extra] for every particle.
func (n *Network) fluidFeatures(pos, vel, extra *tensor.Tensor) (*tensor.Tensor, error) {
	if pos.Cols != 3 || !pos.SameShape(vel) {
		return nil, dynamo.ShapeError("fluid state", pos.Rows, pos.Cols, vel.Rows, vel.Cols)
	}
	parts := []*tensor.Tensor{tensor.Full(pos.Rows, 1, 1), vel}
	width := 4
	if extra != nil {
		parts = append(parts, extra)
		width += extra.Cols
	}
	if width != n.in {
		return nil, dynamo.ShapeError("fluid features", pos.Rows, width, pos.Rows, n.in)
	}
	return tensor.Concat(parts...)
}

// Params returns every learned tensor under its checkpoint name.
func (n *Network) Params() nn.ParamSet {
	ps := nn.ParamSet{}
	for v, vr := range variants {
		s := &n.stems[v]
		ps.Merge(vr.name+"0_fluid", s.fluid.Params())
		ps.Merge(vr.name+"0_obstacle", s.obstacle.Params())
		ps.Merge("dense0_fluid_"+vr.name, s.dense.Params())
		ps.Merge("aff_"+vr.name, s.fuse.Params())
	}
	ps.Merge("aff0", n.aff0.Params())
	for _, l := range n.layers {
		for v, vr := range variants {
			ps.Merge(fmt.Sprintf("%s%d", vr.name, l.index), l.convs[v].Params())
			ps.Merge(fmt.Sprintf("dense_%s%d", vr.name, l.index), l.denses[v].Params())
		}
		ps.Merge(fmt.Sprintf("aff%d", l.index), l.aff.Params())
	}
	if n.resAff != nil {
		ps.Merge("resAff", n.resAff.Params())
	}
	return ps
}

// LoadParams copies src into the network's parameters. Every parameter
// must be present with its exact shape; names in src the network does not
// own are returned.
func (n *Network) LoadParams(src map[string]*tensor.Tensor) ([]string, error) {
	return n.Params().Load(src)
}
