package nn

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/san-kum/fluidsim/internal/dynamo"
	"github.com/san-kum/fluidsim/internal/tensor"
)

func TestDenseInit(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	d := NewDense(4, 32, rng)

	bound := math.Sqrt(6.0 / 36.0)
	for _, w := range d.Weight.Data {
		if math.Abs(w) > bound {
			t.Fatalf("weight %v outside xavier bound %v", w, bound)
		}
	}
	for _, b := range d.Bias.Data {
		if b != 0 {
			t.Fatal("bias not zero-initialized")
		}
	}
	if d.In() != 4 || d.Out() != 32 {
		t.Errorf("dims = %d->%d", d.In(), d.Out())
	}
}

func TestDenseForward(t *testing.T) {
	d := &Dense{
		Weight: &tensor.Tensor{Rows: 2, Cols: 2, Data: []float64{1, 2, 3, 4}},
		Bias:   &tensor.Tensor{Rows: 1, Cols: 2, Data: []float64{0.5, -0.5}},
	}
	x := &tensor.Tensor{Rows: 1, Cols: 2, Data: []float64{1, 1}}

	y, err := d.Forward(x)
	if err != nil {
		t.Fatal(err)
	}
	if y.Data[0] != 3.5 || y.Data[1] != 6.5 {
		t.Errorf("Forward = %v", y.Data)
	}

	if _, err := d.Forward(tensor.New(1, 3)); !errors.Is(err, dynamo.ErrShapeMismatch) {
		t.Errorf("expected shape mismatch, got %v", err)
	}
}

func TestBatchNormIdentityAtInit(t *testing.T) {
	bn := NewBatchNorm(3)
	x := &tensor.Tensor{Rows: 2, Cols: 3, Data: []float64{1, -2, 3, 0, 5, -6}}

	y, err := bn.Forward(x)
	if err != nil {
		t.Fatal(err)
	}
	for i := range x.Data {
		if math.Abs(y.Data[i]-x.Data[i]/math.Sqrt(1+batchNormEps)) > 1e-12 {
			t.Errorf("y[%d] = %v", i, y.Data[i])
		}
	}
}

func TestBatchNormStatistics(t *testing.T) {
	bn := NewBatchNorm(1)
	bn.RunningMean.Data[0] = 2
	bn.RunningVar.Data[0] = 4 - batchNormEps
	bn.Weight.Data[0] = 3
	bn.Bias.Data[0] = 1

	y, _ := bn.Forward(&tensor.Tensor{Rows: 1, Cols: 1, Data: []float64{6}})
	// (6-2)/2*3+1
	if math.Abs(y.Data[0]-7) > 1e-12 {
		t.Errorf("got %v, want 7", y.Data[0])
	}
}

func TestParamSetLoad(t *testing.T) {
	d := NewDense(2, 2, rand.New(rand.NewSource(1)))
	ps := ParamSet{}
	ps.Merge("dense", d.Params())

	if len(ps.Names()) != 2 || ps.Names()[0] != "dense.bias" {
		t.Fatalf("names = %v", ps.Names())
	}

	src := map[string]*tensor.Tensor{
		"dense.weight": tensor.Full(2, 2, 1),
		"dense.bias":   tensor.Full(1, 2, 2),
		"extra":        tensor.New(1, 1),
	}
	unused, err := ps.Load(src)
	if err != nil {
		t.Fatal(err)
	}
	if len(unused) != 1 || unused[0] != "extra" {
		t.Errorf("unused = %v", unused)
	}
	if d.Weight.Data[3] != 1 || d.Bias.Data[0] != 2 {
		t.Error("load did not write through to the layer")
	}

	delete(src, "dense.bias")
	if _, err := ps.Load(src); !errors.Is(err, dynamo.ErrMissingParameter) {
		t.Errorf("expected missing parameter, got %v", err)
	}

	src["dense.bias"] = tensor.New(2, 1)
	if _, err := ps.Load(src); !errors.Is(err, dynamo.ErrShapeMismatch) {
		t.Errorf("expected shape mismatch, got %v", err)
	}
}
