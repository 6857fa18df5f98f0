// Package integrators holds the explicit time-stepping rules that bracket
// the learned correction: a semi-implicit gravity step before it and the
// velocity recovery after it.
package integrators

import (
	"fmt"
	"math"

	"github.com/san-kum/fluidsim/internal/dynamo"
	"github.com/san-kum/fluidsim/internal/tensor"
)

// Gravity integrates particles under constant acceleration G with step Dt.
// Both fields are fixed at construction.
type Gravity struct {
	dt float64
	g  [3]float64
}

func NewGravity(dt float64, g [3]float64) (*Gravity, error) {
	if !(dt > 0) || math.IsInf(dt, 0) {
		return nil, fmt.Errorf("%w: timestep %v", dynamo.ErrInvalidConfiguration, dt)
	}
	for _, v := range g {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: gravity %v", dynamo.ErrInvalidConfiguration, g)
		}
	}
	return &Gravity{dt: dt, g: g}, nil
}

func (s *Gravity) Dt() float64              { return s.dt }
func (s *Gravity) Acceleration() [3]float64 { return s.g }

// IntegratePosVel applies gravity: vel2 = vel1 + dt·g and
// pos2 = pos1 + dt·(vel1+vel2)/2.
func (s *Gravity) IntegratePosVel(pos1, vel1 *tensor.Tensor) (pos2, vel2 *tensor.Tensor, err error) {
	if pos1.Cols != 3 || !pos1.SameShape(vel1) {
		return nil, nil, dynamo.ShapeError("integrate", pos1.Rows, pos1.Cols, vel1.Rows, vel1.Cols)
	}
	vel2 = vel1.Clone()
	dv := []float64{s.dt * s.g[0], s.dt * s.g[1], s.dt * s.g[2]}
	if err := vel2.AddRowVector(dv); err != nil {
		return nil, nil, err
	}
	mean, err := tensor.Add(vel1, vel2)
	if err != nil {
		return nil, nil, err
	}
	pos2, err = tensor.AddScaled(pos1, s.dt/2, mean)
	if err != nil {
		return nil, nil, err
	}
	return pos2, vel2, nil
}

// ComputeNewPosVel applies the position correction to pos2 and recovers
// the velocity from the total displacement over the step.
func (s *Gravity) ComputeNewPosVel(pos1, pos2, correction *tensor.Tensor) (pos, vel *tensor.Tensor, err error) {
	if pos, err = tensor.Add(pos2, correction); err != nil {
		return nil, nil, err
	}
	disp, err := tensor.Sub(pos, pos1)
	if err != nil {
		return nil, nil, err
	}
	return pos, tensor.Scale(1/s.dt, disp), nil
}
