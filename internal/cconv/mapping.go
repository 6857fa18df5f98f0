package cconv

import (
	"fmt"
	"math"

	"github.com/san-kum/fluidsim/internal/dynamo"
)

// CoordinateMapping selects how a unit-ball offset is mapped onto the
// kernel cube [-1,1]³.
type CoordinateMapping int

const (
	BallToCubeVolumePreserving CoordinateMapping = iota
	BallToCubeRadial
	Identity
)

var mappingNames = map[CoordinateMapping]string{
	BallToCubeVolumePreserving: "ball_to_cube_volume_preserving",
	BallToCubeRadial:           "ball_to_cube_radial",
	Identity:                   "identity",
}

func (m CoordinateMapping) String() string {
	if s, ok := mappingNames[m]; ok {
		return s
	}
	return fmt.Sprintf("CoordinateMapping(%d)", int(m))
}

func ParseCoordinateMapping(s string) (CoordinateMapping, error) {
	for m, name := range mappingNames {
		if name == s {
			return m, nil
		}
	}
	return 0, fmt.Errorf("%w: coordinate_mapping %q", dynamo.ErrInvalidConfiguration, s)
}

// Interpolation selects how a continuous grid coordinate is spread over
// kernel cells.
type Interpolation int

const (
	Linear Interpolation = iota
	LinearBorder
	NearestNeighbor
)

var interpolationNames = map[Interpolation]string{
	Linear:          "linear",
	LinearBorder:    "linear_border",
	NearestNeighbor: "nearest_neighbor",
}

func (i Interpolation) String() string {
	if s, ok := interpolationNames[i]; ok {
		return s
	}
	return fmt.Sprintf("Interpolation(%d)", int(i))
}

func ParseInterpolation(s string) (Interpolation, error) {
	for i, name := range interpolationNames {
		if name == s {
			return i, nil
		}
	}
	return 0, fmt.Errorf("%w: interpolation %q", dynamo.ErrInvalidConfiguration, s)
}

const mappingEps = 1e-12

// mapToCube maps an offset inside the unit ball to the cube [-1,1]³.
func (m CoordinateMapping) mapToCube(x, y, z float64) (float64, float64, float64) {
	switch m {
	case BallToCubeRadial:
		norm := math.Sqrt(x*x + y*y + z*z)
		if norm < mappingEps {
			return 0, 0, 0
		}
		maxAbs := math.Max(math.Abs(x), math.Max(math.Abs(y), math.Abs(z)))
		s := norm / maxAbs
		return x * s, y * s, z * s
	case BallToCubeVolumePreserving:
		if x*x+y*y+z*z < mappingEps*mappingEps {
			return 0, 0, 0
		}
		x, y, z = sphereToCylinder(x, y, z)
		x, y = cylinderToCube(x, y)
		return x, y, z
	default:
		return x, y, z
	}
}

// sphereToCylinder is the volume preserving map from the unit ball to the
// cylinder of radius 1 and height 2.
func sphereToCylinder(x, y, z float64) (float64, float64, float64) {
	sqNorm := x*x + y*y + z*z
	norm := math.Sqrt(sqNorm)
	xy := x*x + y*y
	if 5.0/4.0*z*z > xy {
		s := math.Sqrt(3 * norm / (norm + math.Abs(z)))
		return x * s, y * s, math.Copysign(norm, z)
	}
	s := norm / math.Sqrt(xy)
	return x * s, y * s, z * 3.0 / 2.0
}

// cylinderToCube maps the unit disk onto the square [-1,1]², preserving area.
func cylinderToCube(x, y float64) (float64, float64) {
	sq := x*x + y*y
	if sq == 0 {
		return 0, 0
	}
	norm := math.Sqrt(sq)
	if math.Abs(y) <= math.Abs(x) {
		t := math.Copysign(norm, x)
		return t, t * 4 / math.Pi * math.Atan(y/x)
	}
	t := math.Copysign(norm, y)
	return t * 4 / math.Pi * math.Atan(x/y), t
}

// gridCoord converts a cube coordinate in [-1,1] to a kernel grid coordinate.
func gridCoord(c float64, k int, alignCorners bool) float64 {
	if alignCorners {
		return (c + 1) * 0.5 * float64(k-1)
	}
	return ((c+1)*float64(k) - 1) * 0.5
}

// taps holds up to eight kernel cells with their interpolation weights.
type taps struct {
	idx [8]int
	w   [8]float64
	n   int
}

// axisTaps returns the two cells and the weight of the upper one along a
// single axis. ok0/ok1 report whether each cell lies inside the grid.
func axisTaps(g float64, k int, mode Interpolation) (i0, i1 int, frac float64, ok0, ok1 bool) {
	if mode == Linear {
		if g < 0 {
			g = 0
		}
		if g > float64(k-1) {
			g = float64(k - 1)
		}
	}
	f := math.Floor(g)
	i0 = int(f)
	frac = g - f
	if mode == Linear && i0 >= k-1 {
		i0 = k - 2
		frac = 1
		if k == 1 {
			i0, frac = 0, 0
		}
	}
	i1 = i0 + 1
	ok0 = i0 >= 0 && i0 < k
	ok1 = i1 >= 0 && i1 < k
	return
}

func (t *taps) compute(g [3]float64, k [3]int, mode Interpolation) {
	t.n = 0
	if mode == NearestNeighbor {
		var c [3]int
		for a := 0; a < 3; a++ {
			c[a] = int(math.Round(g[a]))
			if c[a] < 0 {
				c[a] = 0
			}
			if c[a] > k[a]-1 {
				c[a] = k[a] - 1
			}
		}
		t.idx[0] = c[0] + k[0]*(c[1]+k[1]*c[2])
		t.w[0] = 1
		t.n = 1
		return
	}

	var lo, hi [3]int
	var fr [3]float64
	var okLo, okHi [3]bool
	for a := 0; a < 3; a++ {
		lo[a], hi[a], fr[a], okLo[a], okHi[a] = axisTaps(g[a], k[a], mode)
	}

	for corner := 0; corner < 8; corner++ {
		w := 1.0
		var c [3]int
		inside := true
		for a := 0; a < 3; a++ {
			if corner&(1<<a) != 0 {
				c[a], w = hi[a], w*fr[a]
				inside = inside && okHi[a]
			} else {
				c[a], w = lo[a], w*(1-fr[a])
				inside = inside && okLo[a]
			}
		}
		if !inside || w == 0 {
			continue
		}
		t.idx[t.n] = c[0] + k[0]*(c[1]+k[1]*c[2])
		t.w[t.n] = w
		t.n++
	}
}
