package cconv

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/san-kum/fluidsim/internal/dynamo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEnums(t *testing.T) {
	for m, name := range mappingNames {
		got, err := ParseCoordinateMapping(name)
		require.NoError(t, err)
		assert.Equal(t, m, got)
		assert.Equal(t, name, m.String())
	}
	for i, name := range interpolationNames {
		got, err := ParseInterpolation(name)
		require.NoError(t, err)
		assert.Equal(t, i, got)
	}

	_, err := ParseCoordinateMapping("ball_to_sphere")
	assert.True(t, errors.Is(err, dynamo.ErrInvalidConfiguration))
	_, err = ParseInterpolation("cubic")
	assert.True(t, errors.Is(err, dynamo.ErrInvalidConfiguration))
}

func TestMappingStaysInCube(t *testing.T) {
	rng := rand.New(rand.NewSource(11))
	for _, m := range []CoordinateMapping{BallToCubeVolumePreserving, BallToCubeRadial, Identity} {
		for n := 0; n < 2000; n++ {
			x, y, z := 2*rng.Float64()-1, 2*rng.Float64()-1, 2*rng.Float64()-1
			if x*x+y*y+z*z > 1 {
				continue
			}
			cx, cy, cz := m.mapToCube(x, y, z)
			for _, c := range []float64{cx, cy, cz} {
				if math.IsNaN(c) || math.Abs(c) > 1+1e-9 {
					t.Fatalf("%v mapped (%v,%v,%v) to (%v,%v,%v)", m, x, y, z, cx, cy, cz)
				}
			}
		}
	}
}

func TestMappingFixedPoints(t *testing.T) {
	tests := []struct {
		m          CoordinateMapping
		in, expect [3]float64
	}{
		{BallToCubeVolumePreserving, [3]float64{0, 0, 0}, [3]float64{0, 0, 0}},
		{BallToCubeVolumePreserving, [3]float64{0, 0, 1}, [3]float64{0, 0, 1}},
		{BallToCubeVolumePreserving, [3]float64{1, 0, 0}, [3]float64{1, 0, 0}},
		{BallToCubeRadial, [3]float64{0.5, 0.5, 0}, [3]float64{math.Sqrt(0.5), math.Sqrt(0.5), 0}},
		{Identity, [3]float64{0.1, -0.2, 0.3}, [3]float64{0.1, -0.2, 0.3}},
	}
	for _, tt := range tests {
		x, y, z := tt.m.mapToCube(tt.in[0], tt.in[1], tt.in[2])
		assert.InDeltaSlice(t, tt.expect[:], []float64{x, y, z}, 1e-12, "%v %v", tt.m, tt.in)
	}
}

func TestTapsWeightsSumToOne(t *testing.T) {
	rng := rand.New(rand.NewSource(5))
	k := [3]int{4, 4, 4}
	for _, mode := range []Interpolation{Linear, NearestNeighbor} {
		for n := 0; n < 500; n++ {
			var tp taps
			g := [3]float64{rng.Float64() * 3, rng.Float64() * 3, rng.Float64() * 3}
			tp.compute(g, k, mode)
			sum := 0.0
			for m := 0; m < tp.n; m++ {
				require.True(t, tp.idx[m] >= 0 && tp.idx[m] < 64)
				sum += tp.w[m]
			}
			assert.InDelta(t, 1.0, sum, 1e-12)
		}
	}
}

func TestTapsBorderDropsOutside(t *testing.T) {
	var tp taps
	tp.compute([3]float64{-0.5, 0, 0}, [3]int{4, 4, 4}, LinearBorder)
	sum := 0.0
	for m := 0; m < tp.n; m++ {
		sum += tp.w[m]
	}
	assert.InDelta(t, 0.5, sum, 1e-12)

	tp.compute([3]float64{-0.5, 0, 0}, [3]int{4, 4, 4}, Linear)
	assert.Equal(t, 1, tp.n)
	assert.Equal(t, 0, tp.idx[0])
}

func TestGridCoord(t *testing.T) {
	assert.Equal(t, 0.0, gridCoord(-1, 4, true))
	assert.Equal(t, 3.0, gridCoord(1, 4, true))
	assert.Equal(t, -0.5, gridCoord(-1, 4, false))
	assert.Equal(t, 3.5, gridCoord(1, 4, false))
}
