package tui

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/san-kum/fluidsim/internal/metrics"
	"github.com/san-kum/fluidsim/internal/sim"
	"github.com/san-kum/fluidsim/internal/viz"
)

const (
	width       = 60
	height      = 18
	clearScreen = "\033[2J\033[H"
	hideCursor  = "\033[?25l"
	showCursor  = "\033[?25h"
)

// LiveRenderer redraws a front view of the fluid as steps are observed,
// at most frameRate times per second. Zero frameRate draws every step.
type LiveRenderer struct {
	out       io.Writer
	title     string
	size      [3]float64
	frameRate int
	lastFrame time.Time
	canvas    *viz.Canvas
}

func NewLiveRenderer(out io.Writer, title string, size [3]float64, frameRate int) *LiveRenderer {
	return &LiveRenderer{
		out:       out,
		title:     title,
		size:      size,
		frameRate: frameRate,
		canvas:    viz.NewCanvas(width, height),
	}
}

func (r *LiveRenderer) OnStep(f sim.Frame) {
	if r.frameRate > 0 && time.Since(r.lastFrame) < time.Second/time.Duration(r.frameRate) {
		return
	}
	r.lastFrame = time.Now()

	r.canvas.Clear()
	viz.DrawFront(r.canvas, f.State.Pos, r.size)
	r.render(f)
}

func (r *LiveRenderer) render(f sim.Frame) {
	var b strings.Builder
	b.WriteString(clearScreen)
	fmt.Fprintf(&b, "  %s  step=%d  t=%.3fs\n", r.title, f.Step, f.Time)
	b.WriteString("  " + strings.Repeat("-", width) + "\n")
	for _, row := range r.canvas.Grid {
		b.WriteString("  ")
		b.WriteString(string(row))
		b.WriteString("\n")
	}
	b.WriteString("  " + strings.Repeat("-", width) + "\n")
	fmt.Fprintf(&b, "  particles=%d  ke=%.4g\n", f.State.NumParticles(), metrics.MeanKineticEnergy(f))
	io.WriteString(r.out, b.String())
}

func (r *LiveRenderer) Start() { io.WriteString(r.out, hideCursor) }
func (r *LiveRenderer) Stop()  { io.WriteString(r.out, showCursor) }
