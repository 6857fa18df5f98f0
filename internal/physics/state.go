package physics

import (
	"github.com/san-kum/fluidsim/internal/dynamo"
	"github.com/san-kum/fluidsim/internal/tensor"
)

// State is the fluid at one instant. Extra is nil when the model takes no
// additional per-particle features.
type State struct {
	Pos   *tensor.Tensor
	Vel   *tensor.Tensor
	Extra *tensor.Tensor
}

func NewState(n, extraChannels int) State {
	s := State{Pos: tensor.New(n, 3), Vel: tensor.New(n, 3)}
	if extraChannels > 0 {
		s.Extra = tensor.New(n, extraChannels)
	}
	return s
}

func (s State) NumParticles() int { return s.Pos.Rows }

func (s State) Clone() State {
	c := State{Pos: s.Pos.Clone(), Vel: s.Vel.Clone()}
	if s.Extra != nil {
		c.Extra = s.Extra.Clone()
	}
	return c
}

func (s State) IsFinite() bool {
	return s.Pos.IsFinite() && s.Vel.IsFinite() && (s.Extra == nil || s.Extra.IsFinite())
}

// Obstacle is static geometry sampled as points with unit normals.
type Obstacle struct {
	Points  *tensor.Tensor
	Normals *tensor.Tensor
}

func (o Obstacle) Validate() error {
	if o.Points.Cols != 3 || !o.Points.SameShape(o.Normals) {
		return dynamo.ShapeError("obstacle", o.Points.Rows, o.Points.Cols, o.Normals.Rows, o.Normals.Cols)
	}
	return nil
}
