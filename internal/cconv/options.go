package cconv

import (
	"fmt"

	"github.com/san-kum/fluidsim/internal/dynamo"
)

// Options configures a continuous convolution. Both operator variants
// accept the same options.
type Options struct {
	KernelSize        [3]int
	Mapping           CoordinateMapping
	Interpolation     Interpolation
	Window            WindowFunc // nil: every neighbor has importance 1
	AlignCorners      bool
	Normalize         bool
	IgnoreQueryPoints bool
	UseBias           bool
	Activation        func(float64) float64 // nil: identity
}

func DefaultOptions() Options {
	return Options{
		KernelSize:        [3]int{4, 4, 4},
		Mapping:           BallToCubeVolumePreserving,
		Interpolation:     Linear,
		Window:            Poly6,
		AlignCorners:      true,
		Normalize:         false,
		IgnoreQueryPoints: true,
		UseBias:           true,
	}
}

// Cells returns the number of kernel cells.
func (o Options) Cells() int {
	return o.KernelSize[0] * o.KernelSize[1] * o.KernelSize[2]
}

func (o Options) Validate() error {
	for a, k := range o.KernelSize {
		if k < 1 {
			return fmt.Errorf("%w: kernel_size[%d] = %d", dynamo.ErrInvalidConfiguration, a, k)
		}
	}
	if _, ok := mappingNames[o.Mapping]; !ok {
		return fmt.Errorf("%w: %v", dynamo.ErrInvalidConfiguration, o.Mapping)
	}
	if _, ok := interpolationNames[o.Interpolation]; !ok {
		return fmt.Errorf("%w: %v", dynamo.ErrInvalidConfiguration, o.Interpolation)
	}
	return nil
}
