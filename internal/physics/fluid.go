package physics

import (
	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/integrators"
	"github.com/san-kum/fluidsim/internal/network"
	"github.com/san-kum/fluidsim/internal/nn"
	"github.com/san-kum/fluidsim/internal/tensor"
)

// LearnedFluid couples the gravity integrator with the correction network.
type LearnedFluid struct {
	model   config.ModelConfig
	gravity *integrators.Gravity
	net     *network.Network
}

// StepResult carries the next state plus the diagnostics of the step.
type StepResult struct {
	State          State
	Correction     *tensor.Tensor
	NeighborCounts []float64
}

func NewLearnedFluid(m config.ModelConfig) (*LearnedFluid, error) {
	opts, err := m.ConvOptions()
	if err != nil {
		return nil, err
	}
	g, err := m.GravityVector()
	if err != nil {
		return nil, err
	}
	gravity, err := integrators.NewGravity(m.Timestep, g)
	if err != nil {
		return nil, err
	}
	net, err := network.New(network.Config{
		LayerChannels:      m.LayerChannels,
		OtherFeatsChannels: m.OtherFeatsChannels,
		Extent:             m.Extent(),
		Options:            opts,
		Seed:               m.Seed,
	})
	if err != nil {
		return nil, err
	}
	return &LearnedFluid{model: m, gravity: gravity, net: net}, nil
}

func (f *LearnedFluid) Model() config.ModelConfig { return f.model }
func (f *LearnedFluid) Timestep() float64         { return f.gravity.Dt() }
func (f *LearnedFluid) Network() *network.Network { return f.net }
func (f *LearnedFluid) Params() nn.ParamSet       { return f.net.Params() }

// LoadParams replaces the network parameters. Names in src that the model
// does not use are returned.
func (f *LearnedFluid) LoadParams(src map[string]*tensor.Tensor) ([]string, error) {
	return f.net.LoadParams(src)
}

// IntegratePosVel applies the gravity step alone.
func (f *LearnedFluid) IntegratePosVel(pos1, vel1 *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor, error) {
	return f.gravity.IntegratePosVel(pos1, vel1)
}

// ComputeCorrection runs the network on positions and velocities that
// already include the gravity step.
func (f *LearnedFluid) ComputeCorrection(pos2, vel2, extra, box, boxFeats *tensor.Tensor) (*network.Output, error) {
	return f.net.Forward(pos2, vel2, extra, box, boxFeats)
}

func (f *LearnedFluid) ComputeNewPosVel(pos1, pos2, correction *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor, error) {
	return f.gravity.ComputeNewPosVel(pos1, pos2, correction)
}

// SimulateStep advances the fluid by one timestep.
func (f *LearnedFluid) SimulateStep(pos, vel, extra, box, boxFeats *tensor.Tensor) (*tensor.Tensor, *tensor.Tensor, error) {
	res, err := f.step(pos, vel, extra, box, boxFeats)
	if err != nil {
		return nil, nil, err
	}
	return res.State.Pos, res.State.Vel, nil
}

// Step is SimulateStep over a State that also returns the correction and
// neighbor counts.
func (f *LearnedFluid) Step(s State, obs Obstacle) (*StepResult, error) {
	res, err := f.step(s.Pos, s.Vel, s.Extra, obs.Points, obs.Normals)
	if err != nil {
		return nil, err
	}
	res.State.Extra = s.Extra
	return res, nil
}

func (f *LearnedFluid) step(pos, vel, extra, box, boxFeats *tensor.Tensor) (*StepResult, error) {
	pos2, vel2, err := f.IntegratePosVel(pos, vel)
	if err != nil {
		return nil, err
	}
	out, err := f.ComputeCorrection(pos2, vel2, extra, box, boxFeats)
	if err != nil {
		return nil, err
	}
	posNext, velNext, err := f.ComputeNewPosVel(pos, pos2, out.Correction)
	if err != nil {
		return nil, err
	}
	return &StepResult{
		State:          State{Pos: posNext, Vel: velNext},
		Correction:     out.Correction,
		NeighborCounts: out.NeighborCounts,
	}, nil
}
