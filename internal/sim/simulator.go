package sim

import (
	"context"
	"fmt"

	"github.com/san-kum/fluidsim/internal/dynamo"
	"github.com/san-kum/fluidsim/internal/physics"
)

type Simulator struct {
	stepper   Stepper
	obstacle  physics.Obstacle
	metrics   []Metric
	observers []Observer
}

func New(stepper Stepper, obstacle physics.Obstacle) *Simulator {
	return &Simulator{
		stepper:   stepper,
		obstacle:  obstacle,
		metrics:   make([]Metric, 0),
		observers: make([]Observer, 0),
	}
}

func (s *Simulator) AddMetric(m Metric)     { s.metrics = append(s.metrics, m) }
func (s *Simulator) AddObserver(o Observer) { s.observers = append(s.observers, o) }

// Run advances init by cfg.Steps steps. On cancellation or a failed step
// the frames recorded so far are returned together with the error.
func (s *Simulator) Run(ctx context.Context, init physics.State, cfg Config) (*Result, error) {
	if err := validateConfig(cfg); err != nil {
		return nil, err
	}
	every := max(cfg.Every, 1)

	result := newResult(s.metrics, cfg.Steps/every+1)
	for _, m := range s.metrics {
		m.Reset()
	}
	defer s.collect(result)

	frame := Frame{State: init.Clone()}
	result.Frames = append(result.Frames, frame)

	err := s.loop(ctx, frame, cfg, func(f Frame) bool {
		for _, m := range s.metrics {
			m.Observe(f)
			result.History[m.Name()] = append(result.History[m.Name()], m.Value())
		}
		result.StepsTaken++
		if f.Step%every == 0 || f.Step == cfg.Steps {
			result.Frames = append(result.Frames, f)
		}
		return true
	})
	return result, err
}

// RunWithCallback steps until cfg.Steps or until callback returns false.
// Nothing is recorded; metrics are not observed.
func (s *Simulator) RunWithCallback(ctx context.Context, init physics.State, cfg Config, callback func(Frame) bool) error {
	if err := validateConfig(cfg); err != nil {
		return err
	}
	return s.loop(ctx, Frame{State: init.Clone()}, cfg, callback)
}

func (s *Simulator) loop(ctx context.Context, frame Frame, cfg Config, callback func(Frame) bool) error {
	dt := s.stepper.Timestep()
	for i := 1; i <= cfg.Steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		res, err := s.stepper.Step(frame.State, s.obstacle)
		if err != nil {
			return &dynamo.SimulationError{Step: i, Time: frame.Time, Wrapped: err}
		}
		frame = Frame{
			Step:           i,
			Time:           float64(i) * dt,
			State:          res.State,
			Correction:     res.Correction,
			NeighborCounts: res.NeighborCounts,
		}
		if cfg.ValidateState && !frame.State.IsFinite() {
			return &dynamo.SimulationError{Step: i, Time: frame.Time, Wrapped: dynamo.ErrNumericInstability}
		}

		for _, obs := range s.observers {
			obs.OnStep(frame)
		}
		if !callback(frame) {
			return nil
		}
	}
	return nil
}

func (s *Simulator) collect(r *Result) {
	for _, m := range s.metrics {
		r.Metrics[m.Name()] = m.Value()
	}
}

func validateConfig(cfg Config) error {
	if cfg.Steps < 0 {
		return fmt.Errorf("%w: steps must be non-negative, got %d", dynamo.ErrInvalidConfiguration, cfg.Steps)
	}
	if cfg.Every < 0 {
		return fmt.Errorf("%w: every must be non-negative, got %d", dynamo.ErrInvalidConfiguration, cfg.Every)
	}
	return nil
}
