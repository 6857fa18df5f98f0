package physics

import (
	"math/rand"

	"github.com/san-kum/fluidsim/internal/config"
	"github.com/san-kum/fluidsim/internal/tensor"
)

// DamBreak builds a block of fluid at rest in a closed box. The box walls
// are sampled every WallSpacing with normals pointing into the box. Extra
// features, when requested, are all ones.
func DamBreak(sc config.SceneConfig, extraChannels int, seed int64) (State, Obstacle) {
	rng := rand.New(rand.NewSource(seed))

	var counts [3]int
	for a := range counts {
		counts[a] = max(1, int(sc.FluidSize[a]/sc.Spacing+1e-9))
	}
	n := counts[0] * counts[1] * counts[2]
	state := NewState(n, extraChannels)
	if state.Extra != nil {
		for i := range state.Extra.Data {
			state.Extra.Data[i] = 1
		}
	}

	i := 0
	for z := 0; z < counts[2]; z++ {
		for y := 0; y < counts[1]; y++ {
			for x := 0; x < counts[0]; x++ {
				p := state.Pos.Row(i)
				for a, c := range [3]int{x, y, z} {
					p[a] = sc.FluidOrigin[a] + (float64(c)+0.5)*sc.Spacing + sc.Jitter*(2*rng.Float64()-1)
				}
				copy(state.Vel.Row(i), sc.InitialVelocity)
				i++
			}
		}
	}
	return state, Box(sc.BoxSize, sc.WallSpacing)
}

// Box samples the six walls of [0,size[0]]×[0,size[1]]×[0,size[2]].
func Box(size []float64, spacing float64) Obstacle {
	var pts, nrm [][]float64
	for a := 0; a < 3; a++ {
		u, v := (a+1)%3, (a+2)%3
		nu := int(size[u]/spacing+1e-9) + 1
		nv := int(size[v]/spacing+1e-9) + 1
		for side := 0; side < 2; side++ {
			normal := make([]float64, 3)
			normal[a] = 1 - 2*float64(side)
			for i := 0; i < nu; i++ {
				for j := 0; j < nv; j++ {
					p := make([]float64, 3)
					p[a] = float64(side) * size[a]
					p[u] = min(float64(i)*spacing, size[u])
					p[v] = min(float64(j)*spacing, size[v])
					pts = append(pts, p)
					nrm = append(nrm, normal)
				}
			}
		}
	}
	points, _ := tensor.FromRows(3, pts)
	normals, _ := tensor.FromRows(3, nrm)
	return Obstacle{Points: points, Normals: normals}
}
