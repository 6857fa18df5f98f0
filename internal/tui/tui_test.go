package tui

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/san-kum/fluidsim/internal/physics"
	"github.com/san-kum/fluidsim/internal/sim"
)

func frame(step int) sim.Frame {
	s := physics.NewState(2, 0)
	copy(s.Pos.Row(0), []float64{0.1, 0.1, 0.1})
	copy(s.Pos.Row(1), []float64{0.3, 0.2, 0.1})
	copy(s.Vel.Row(1), []float64{0, -1, 0})
	return sim.Frame{Step: step, Time: float64(step) * 0.02, State: s}
}

func TestLiveRenderer(t *testing.T) {
	var buf bytes.Buffer
	r := NewLiveRenderer(&buf, "dam break", [3]float64{0.6, 0.6, 0.3}, 0)
	r.Start()
	r.OnStep(frame(3))
	r.Stop()

	out := buf.String()
	for _, want := range []string{hideCursor, clearScreen, "dam break", "step=3", "particles=2", "ke=0.25", showCursor} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q", want)
		}
	}
	if r.canvas.Count() < 2 {
		t.Errorf("canvas has %d dots, want the box outline and particles", r.canvas.Count())
	}
}

func TestLiveRendererThrottles(t *testing.T) {
	var buf bytes.Buffer
	r := NewLiveRenderer(&buf, "x", [3]float64{1, 1, 1}, 1)
	r.OnStep(frame(1))
	r.OnStep(frame(2))
	if n := strings.Count(buf.String(), clearScreen); n != 1 {
		t.Errorf("drew %d frames within one second, want 1", n)
	}
}

func TestProgress(t *testing.T) {
	var buf bytes.Buffer
	p := NewProgress(&buf, 3, time.Hour)
	for i := 1; i <= 3; i++ {
		p.OnStep(frame(i))
	}

	out := buf.String()
	if !strings.Contains(out, "1/3") {
		t.Error("first step not reported")
	}
	if strings.Contains(out, "2/3") {
		t.Error("intermediate step reported inside the interval")
	}
	if !strings.Contains(out, "3/3") || !strings.HasSuffix(out, "\n") {
		t.Errorf("final step not reported with a newline: %q", out)
	}
}
