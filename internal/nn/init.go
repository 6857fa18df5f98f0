package nn

import (
	"math"
	"math/rand"

	"github.com/san-kum/fluidsim/internal/tensor"
)

// XavierUniform fills t with U(-a, a), a = sqrt(6 / (fanIn + fanOut)).
func XavierUniform(t *tensor.Tensor, fanIn, fanOut int, rng *rand.Rand) {
	a := math.Sqrt(6.0 / float64(fanIn+fanOut))
	for i := range t.Data {
		t.Data[i] = (2*rng.Float64() - 1) * a
	}
}
