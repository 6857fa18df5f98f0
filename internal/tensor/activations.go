package tensor

import "math"

func ReLU(t *Tensor) *Tensor {
	return t.Apply(func(v float64) float64 {
		if v > 0 {
			return v
		}
		return 0
	})
}

func Sigmoid(t *Tensor) *Tensor {
	return t.Apply(sigmoid)
}

func sigmoid(v float64) float64 {
	if v >= 0 {
		return 1 / (1 + math.Exp(-v))
	}
	e := math.Exp(v)
	return e / (1 + e)
}
