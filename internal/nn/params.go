// Package nn holds the small set of learned layers shared by the
// convolution and fusion packages: a dense (linear) layer, inference-mode
// batch normalization, Xavier initialization and the flat named parameter
// set used for checkpoints.
package nn

import (
	"fmt"
	"sort"

	"github.com/san-kum/fluidsim/internal/dynamo"
	"github.com/san-kum/fluidsim/internal/tensor"
)

// ParamSet maps a dotted parameter name to the tensor that backs it.
// Tensors are shared with the owning layer, not copied.
type ParamSet map[string]*tensor.Tensor

// Module is anything that owns learned parameters.
type Module interface {
	Params() ParamSet
}

// Merge copies every entry of src into p under prefix + "." + name.
func (p ParamSet) Merge(prefix string, src ParamSet) {
	for name, t := range src {
		if prefix == "" {
			p[name] = t
			continue
		}
		p[prefix+"."+name] = t
	}
}

// Names returns the parameter names in sorted order.
func (p ParamSet) Names() []string {
	names := make([]string, 0, len(p))
	for name := range p {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Count returns the total number of scalar parameters.
func (p ParamSet) Count() int {
	n := 0
	for _, t := range p {
		n += len(t.Data)
	}
	return n
}

// Load overwrites every tensor in p with the same-named tensor of src.
// Shapes must match exactly; a name missing from src is an error. Extra
// names in src are returned so callers can report them.
func (p ParamSet) Load(src map[string]*tensor.Tensor) (unused []string, err error) {
	for _, name := range p.Names() {
		dst := p[name]
		t, ok := src[name]
		if !ok {
			return nil, fmt.Errorf("%w: %s", dynamo.ErrMissingParameter, name)
		}
		if !t.SameShape(dst) || len(t.Data) != len(dst.Data) {
			return nil, fmt.Errorf("%s: %w", name, dynamo.ShapeError("load", dst.Rows, dst.Cols, t.Rows, t.Cols))
		}
		copy(dst.Data, t.Data)
	}
	for name := range src {
		if _, ok := p[name]; !ok {
			unused = append(unused, name)
		}
	}
	sort.Strings(unused)
	return unused, nil
}
