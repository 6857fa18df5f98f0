package cconv

// WindowFunc maps a neighbor's squared distance, normalized by the squared
// search radius, to an importance weight.
type WindowFunc func(rSqr float64) float64

// Poly6 is clamp((1 - r²)³, 0, 1): 1 at the query, 0 at the support boundary.
func Poly6(rSqr float64) float64 {
	v := 1 - rSqr
	v = v * v * v
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
