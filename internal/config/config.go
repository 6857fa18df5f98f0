package config

import (
	"fmt"
	"os"

	"github.com/san-kum/fluidsim/internal/cconv"
	"github.com/san-kum/fluidsim/internal/dynamo"
	"gopkg.in/yaml.v3"
)

const (
	DefaultRadiusScale    = 1.5
	DefaultParticleRadius = 0.025
	DefaultTimestep       = 1.0 / 50
	DefaultSteps          = 50
	DefaultSpacing        = 2 * DefaultParticleRadius
)

type Config struct {
	Model      ModelConfig   `yaml:"model"`
	Scene      SceneConfig   `yaml:"scene"`
	Rollout    RolloutConfig `yaml:"rollout"`
	Checkpoint string        `yaml:"checkpoint,omitempty"`
}

type ModelConfig struct {
	KernelSize         []int     `yaml:"kernel_size" json:"kernel_size"`
	RadiusScale        float64   `yaml:"radius_scale" json:"radius_scale"`
	CoordinateMapping  string    `yaml:"coordinate_mapping" json:"coordinate_mapping"`
	Interpolation      string    `yaml:"interpolation" json:"interpolation"`
	UseWindow          bool      `yaml:"use_window" json:"use_window"`
	ParticleRadius     float64   `yaml:"particle_radius" json:"particle_radius"`
	Timestep           float64   `yaml:"timestep" json:"timestep"`
	Gravity            []float64 `yaml:"gravity" json:"gravity"`
	OtherFeatsChannels int       `yaml:"other_feats_channels" json:"other_feats_channels"`
	LayerChannels      []int     `yaml:"layer_channels" json:"layer_channels"`
	Seed               int64     `yaml:"seed" json:"seed"`
}

// SceneConfig describes a dam-break scene: a block of fluid resting in one
// corner of a closed box.
type SceneConfig struct {
	FluidOrigin     []float64 `yaml:"fluid_origin"`
	FluidSize       []float64 `yaml:"fluid_size"`
	Spacing         float64   `yaml:"spacing"`
	Jitter          float64   `yaml:"jitter"`
	BoxSize         []float64 `yaml:"box_size"`
	WallSpacing     float64   `yaml:"wall_spacing"`
	InitialVelocity []float64 `yaml:"initial_velocity"`
}

type RolloutConfig struct {
	Steps         int    `yaml:"steps"`
	ValidateState bool   `yaml:"validate_state"`
	OutputDir     string `yaml:"output_dir"`
}

func DefaultConfig() *Config {
	return &Config{
		Model: ModelConfig{
			KernelSize:        []int{4, 4, 4},
			RadiusScale:       DefaultRadiusScale,
			CoordinateMapping: "ball_to_cube_volume_preserving",
			Interpolation:     "linear",
			UseWindow:         true,
			ParticleRadius:    DefaultParticleRadius,
			Timestep:          DefaultTimestep,
			Gravity:           []float64{0, -9.81, 0},
			LayerChannels:     []int{32, 64, 128, 64, 3},
		},
		Scene: SceneConfig{
			FluidOrigin:     []float64{0.05, 0.05, 0.05},
			FluidSize:       []float64{0.2, 0.3, 0.2},
			Spacing:         DefaultSpacing,
			Jitter:          0.002,
			BoxSize:         []float64{0.6, 0.6, 0.3},
			WallSpacing:     DefaultSpacing,
			InitialVelocity: []float64{0, 0, 0},
		},
		Rollout: RolloutConfig{
			Steps:         DefaultSteps,
			ValidateState: true,
			OutputDir:     "runs",
		},
	}
}

func Load(path string) (*Config, error) {
	cfg := DefaultConfig()
	if err := LoadInto(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadInto overlays the YAML file at path onto cfg. Keys absent from the
// file keep their current values.
func LoadInto(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Extent is the filter diameter shared by every convolution.
func (m ModelConfig) Extent() float64 {
	return m.RadiusScale * 6 * m.ParticleRadius
}

// GravityVector returns the gravity acceleration; it must have three
// components.
func (m ModelConfig) GravityVector() ([3]float64, error) {
	var g [3]float64
	if len(m.Gravity) != 3 {
		return g, invalid("gravity", m.Gravity)
	}
	copy(g[:], m.Gravity)
	return g, nil
}

// ConvOptions translates the model section into convolution options.
func (m ModelConfig) ConvOptions() (cconv.Options, error) {
	opts := cconv.DefaultOptions()
	if len(m.KernelSize) != 3 {
		return opts, invalid("kernel_size", m.KernelSize)
	}
	copy(opts.KernelSize[:], m.KernelSize)

	var err error
	if opts.Mapping, err = cconv.ParseCoordinateMapping(m.CoordinateMapping); err != nil {
		return opts, err
	}
	if opts.Interpolation, err = cconv.ParseInterpolation(m.Interpolation); err != nil {
		return opts, err
	}
	if !m.UseWindow {
		opts.Window = nil
	}
	return opts, opts.Validate()
}

func (c *Config) Validate() error {
	m := c.Model
	if _, err := m.ConvOptions(); err != nil {
		return err
	}
	switch {
	case !(m.RadiusScale > 0):
		return invalid("radius_scale", m.RadiusScale)
	case !(m.ParticleRadius > 0):
		return invalid("particle_radius", m.ParticleRadius)
	case !(m.Timestep > 0):
		return invalid("timestep", m.Timestep)
	case len(m.Gravity) != 3:
		return invalid("gravity", m.Gravity)
	case m.OtherFeatsChannels < 0:
		return invalid("other_feats_channels", m.OtherFeatsChannels)
	case len(m.LayerChannels) < 2 || m.LayerChannels[len(m.LayerChannels)-1] != 3:
		return invalid("layer_channels", m.LayerChannels)
	}
	for _, ch := range m.LayerChannels {
		if ch < 1 {
			return invalid("layer_channels", m.LayerChannels)
		}
	}

	s := c.Scene
	for name, v := range map[string][]float64{
		"fluid_origin":     s.FluidOrigin,
		"fluid_size":       s.FluidSize,
		"box_size":         s.BoxSize,
		"initial_velocity": s.InitialVelocity,
	} {
		if len(v) != 3 {
			return invalid("scene."+name, v)
		}
	}
	switch {
	case !(s.Spacing > 0):
		return invalid("scene.spacing", s.Spacing)
	case !(s.WallSpacing > 0):
		return invalid("scene.wall_spacing", s.WallSpacing)
	case s.Jitter < 0:
		return invalid("scene.jitter", s.Jitter)
	case c.Rollout.Steps < 0:
		return invalid("rollout.steps", c.Rollout.Steps)
	}
	return nil
}

func invalid(field string, v any) error {
	return fmt.Errorf("%w: %s = %v", dynamo.ErrInvalidConfiguration, field, v)
}

// TunableParams lists the names accepted by SetParam.
var TunableParams = []string{"jitter", "particle_radius", "radius_scale", "seed", "spacing", "timestep", "wall_spacing"}

// SetParam overrides one numeric setting by name. It is used by parameter
// sweeps and scenario files.
func (c *Config) SetParam(name string, v float64) error {
	switch name {
	case "radius_scale":
		c.Model.RadiusScale = v
	case "particle_radius":
		c.Model.ParticleRadius = v
	case "timestep":
		c.Model.Timestep = v
	case "seed":
		c.Model.Seed = int64(v)
	case "spacing":
		c.Scene.Spacing = v
	case "wall_spacing":
		c.Scene.WallSpacing = v
	case "jitter":
		c.Scene.Jitter = v
	default:
		return fmt.Errorf("%w: unknown parameter %q", dynamo.ErrInvalidConfiguration, name)
	}
	return nil
}
