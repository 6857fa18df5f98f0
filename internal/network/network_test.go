package network

import (
	"errors"
	"math/rand"
	"strings"
	"testing"

	"github.com/san-kum/fluidsim/internal/cconv"
	"github.com/san-kum/fluidsim/internal/dynamo"
	"github.com/san-kum/fluidsim/internal/tensor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testExtent = 1.5 * 6 * 0.025

func testConfig(channels ...int) Config {
	if len(channels) == 0 {
		channels = DefaultLayerChannels()
	}
	return Config{
		LayerChannels: channels,
		Extent:        testExtent,
		Options:       cconv.DefaultOptions(),
		Seed:          1,
	}
}

// scene returns n fluid particles in a small block and a floor of obstacle
// points with upward normals.
func scene(n int) (pos, vel, box, normals *tensor.Tensor) {
	rng := rand.New(rand.NewSource(3))
	pos = tensor.New(n, 3)
	vel = tensor.New(n, 3)
	for i := 0; i < n; i++ {
		p := pos.Row(i)
		p[0], p[1], p[2] = rng.Float64()*0.2, 0.02+rng.Float64()*0.2, rng.Float64()*0.2
		vel.Row(i)[1] = -rng.Float64()
	}
	box = tensor.New(25, 3)
	normals = tensor.New(25, 3)
	for i := 0; i < 25; i++ {
		b := box.Row(i)
		b[0], b[2] = float64(i%5)*0.05, float64(i/5)*0.05
		normals.Row(i)[1] = 1
	}
	return pos, vel, box, normals
}

func TestLayerWidths(t *testing.T) {
	net, err := New(testConfig())
	require.NoError(t, err)

	pos, vel, box, normals := scene(12)
	out, err := net.Forward(pos, vel, nil, box, normals)
	require.NoError(t, err)

	want := []int{64, 64, 128, 64, 3}
	require.Len(t, out.Features, len(want))
	for i, f := range out.Features {
		assert.Equal(t, 12, f.Rows, "history %d", i)
		assert.Equal(t, want[i], f.Cols, "history %d", i)
	}
	assert.Equal(t, 12, out.Correction.Rows)
	assert.Equal(t, 3, out.Correction.Cols)
	assert.Len(t, out.NeighborCounts, 12)
	assert.True(t, out.Correction.IsFinite())

	last := out.Features[len(out.Features)-1]
	assert.InDelta(t, last.At(0, 1)/128, out.Correction.At(0, 1), 1e-15)
}

func TestResidualLayer(t *testing.T) {
	tests := []struct {
		name     string
		channels []int
		want     []int
	}{
		{"default", []int{32, 64, 128, 64, 3}, []int{3}},
		{"width differs", []int{32, 48, 128, 64, 3}, nil},
		{"too shallow", []int{8, 16, 3}, nil},
		{"narrow", []int{4, 6, 6, 6, 3}, []int{3}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			net, err := New(testConfig(tt.channels...))
			require.NoError(t, err)
			assert.Equal(t, tt.want, net.ResidualLayers())
			assert.Equal(t, tt.want != nil, net.HasResidual())

			_, hasRes := net.Params()["resAff.cconv1.kernel"]
			assert.Equal(t, tt.want != nil, hasRes)
		})
	}
}

func TestResidualFusionOnlyAffectsLayer3(t *testing.T) {
	net, err := New(testConfig())
	require.NoError(t, err)
	pos, vel, box, normals := scene(12)

	before, err := net.Forward(pos, vel, nil, box, normals)
	require.NoError(t, err)

	changed := 0
	for name, p := range net.Params() {
		if strings.HasPrefix(name, "resAff.") && strings.HasSuffix(name, ".kernel") {
			for i := range p.Data {
				p.Data[i] += 0.3
			}
			changed++
		}
	}
	require.Positive(t, changed)

	after, err := net.Forward(pos, vel, nil, box, normals)
	require.NoError(t, err)

	for i := 0; i < 3; i++ {
		assert.True(t, tensor.AllClose(before.Features[i], after.Features[i], 0, 0), "layer %d changed", i)
	}
	assert.False(t, tensor.AllClose(before.Features[3], after.Features[3], 1e-9, 1e-12), "layer 3 unchanged")
}

func TestParamNames(t *testing.T) {
	net, err := New(testConfig())
	require.NoError(t, err)
	ps := net.Params()

	for _, name := range []string{
		"cconv0_fluid.kernel",
		"cconv0_obstacle.bias",
		"dense0_fluid_cconv.weight",
		"aff_cconv.cconv4.kernel",
		"ascc0_fluid.attention",
		"ascc0_obstacle.geometry",
		"dense0_fluid_ascc.bias",
		"aff_ascc.batchNorm3.running_mean",
		"aff0.cconv2.bias",
		"cconv1.kernel",
		"ascc4.attention",
		"dense_cconv2.weight",
		"dense_ascc3.bias",
		"aff4.batchNorm2.running_var",
		"resAff.batchNorm1.weight",
	} {
		assert.Contains(t, ps, name)
	}

	assert.Equal(t, 64*4, ps["cconv0_fluid.kernel"].Rows)
	assert.Equal(t, 32, ps["cconv0_fluid.kernel"].Cols)
	assert.Equal(t, 64*3, ps["ascc0_obstacle.kernel"].Rows)
	assert.Equal(t, 64*64, ps["cconv1.kernel"].Rows)
	w := ps["dense_cconv2.weight"]
	assert.Equal(t, [2]int{128, 64}, [2]int{w.Rows, w.Cols})
}

func TestDeterministic(t *testing.T) {
	cfg := testConfig(4, 8, 8, 8, 3)
	a, err := New(cfg)
	require.NoError(t, err)
	b, err := New(cfg)
	require.NoError(t, err)

	pos, vel, box, normals := scene(30)
	oa, err := a.Forward(pos, vel, nil, box, normals)
	require.NoError(t, err)
	ob, err := b.Forward(pos, vel, nil, box, normals)
	require.NoError(t, err)
	assert.Equal(t, oa.Correction.Data, ob.Correction.Data)
	assert.Equal(t, oa.NeighborCounts, ob.NeighborCounts)
}

func TestLoadParamsReproducesOutput(t *testing.T) {
	src, err := New(testConfig(4, 8, 8, 8, 3))
	require.NoError(t, err)
	cfg := testConfig(4, 8, 8, 8, 3)
	cfg.Seed = 99
	dst, err := New(cfg)
	require.NoError(t, err)

	pos, vel, box, normals := scene(20)
	want, err := src.Forward(pos, vel, nil, box, normals)
	require.NoError(t, err)

	unused, err := dst.LoadParams(src.Params())
	require.NoError(t, err)
	assert.Empty(t, unused)

	got, err := dst.Forward(pos, vel, nil, box, normals)
	require.NoError(t, err)
	assert.True(t, tensor.AllClose(want.Correction, got.Correction, 1e-12, 0))
}

func TestNoFluidParticles(t *testing.T) {
	net, err := New(testConfig(4, 8, 3))
	require.NoError(t, err)
	_, _, box, normals := scene(0)

	out, err := net.Forward(tensor.New(0, 3), tensor.New(0, 3), nil, box, normals)
	require.NoError(t, err)
	assert.Equal(t, 0, out.Correction.Rows)
	assert.Equal(t, 3, out.Correction.Cols)
	assert.Empty(t, out.NeighborCounts)
}

func TestExtraFeatures(t *testing.T) {
	cfg := testConfig(4, 8, 3)
	cfg.OtherFeatsChannels = 2
	net, err := New(cfg)
	require.NoError(t, err)
	assert.Equal(t, 6, net.InChannels())

	pos, vel, box, normals := scene(10)
	out, err := net.Forward(pos, vel, tensor.Full(10, 2, 0.5), box, normals)
	require.NoError(t, err)
	assert.Equal(t, 10, out.Correction.Rows)

	_, err = net.Forward(pos, vel, tensor.Full(10, 1, 0.5), box, normals)
	assert.True(t, errors.Is(err, dynamo.ErrShapeMismatch))
	_, err = net.Forward(pos, vel, nil, box, normals)
	assert.True(t, errors.Is(err, dynamo.ErrShapeMismatch))
}

func TestForwardShapeErrors(t *testing.T) {
	net, err := New(testConfig(4, 8, 3))
	require.NoError(t, err)
	pos, vel, box, normals := scene(5)

	_, err = net.Forward(pos, tensor.New(4, 3), nil, box, normals)
	assert.True(t, errors.Is(err, dynamo.ErrShapeMismatch))
	_, err = net.Forward(pos, vel, nil, box, tensor.New(box.Rows, 2))
	assert.True(t, errors.Is(err, dynamo.ErrShapeMismatch))
}

func TestConfigValidate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"one layer", func(c *Config) { c.LayerChannels = []int{3} }},
		{"last not 3", func(c *Config) { c.LayerChannels = []int{8, 4} }},
		{"zero width", func(c *Config) { c.LayerChannels = []int{0, 3} }},
		{"negative feats", func(c *Config) { c.OtherFeatsChannels = -1 }},
		{"zero extent", func(c *Config) { c.Extent = 0 }},
		{"bad kernel", func(c *Config) { c.Options.KernelSize = [3]int{4, 0, 4} }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := testConfig()
			tt.modify(&cfg)
			_, err := New(cfg)
			assert.True(t, errors.Is(err, dynamo.ErrInvalidConfiguration), "got %v", err)
		})
	}
}
