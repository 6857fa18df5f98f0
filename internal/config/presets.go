package config

import (
	"fmt"
	"sort"

	"github.com/san-kum/fluidsim/internal/dynamo"
)

// Presets modify the default configuration.
var Presets = map[string]func(*Config){
	"default": func(*Config) {},
	"radial": func(c *Config) {
		c.Model.CoordinateMapping = "ball_to_cube_radial"
	},
	"nearest": func(c *Config) {
		c.Model.Interpolation = "nearest_neighbor"
	},
	"coarse": func(c *Config) {
		c.Model.KernelSize = []int{3, 3, 3}
		c.Model.LayerChannels = []int{8, 16, 16, 16, 3}
		c.Scene.FluidSize = []float64{0.15, 0.2, 0.15}
		c.Scene.BoxSize = []float64{0.4, 0.4, 0.2}
	},
	"feats": func(c *Config) {
		c.Model.OtherFeatsChannels = 2
	},
}

// PresetInfo describes each preset in a few words.
var PresetInfo = map[string]string{
	"default": "dam break, 4x4x4 kernels",
	"radial":  "radial ball-to-cube mapping",
	"nearest": "nearest-neighbor kernel lookup",
	"coarse":  "3x3x3 kernels, narrow layers, small box",
	"feats":   "two extra per-particle feature channels",
}

// GetPreset returns a fresh copy of the default configuration with the
// named preset applied.
func GetPreset(name string) (*Config, error) {
	apply, ok := Presets[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", dynamo.ErrUnknownPreset, name)
	}
	cfg := DefaultConfig()
	apply(cfg)
	return cfg, nil
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
