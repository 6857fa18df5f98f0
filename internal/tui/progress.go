package tui

import (
	"fmt"
	"io"
	"time"

	"github.com/san-kum/fluidsim/internal/metrics"
	"github.com/san-kum/fluidsim/internal/sim"
	"github.com/san-kum/fluidsim/internal/viz"
)

// Progress rewrites a single status line as a rollout advances. The last
// step is always printed and ends the line.
type Progress struct {
	out      io.Writer
	total    int
	interval time.Duration
	start    time.Time
	last     time.Time
}

func NewProgress(out io.Writer, total int, interval time.Duration) *Progress {
	return &Progress{out: out, total: total, interval: interval, start: time.Now()}
}

func (p *Progress) OnStep(f sim.Frame) {
	done := f.Step >= p.total
	if !done && time.Since(p.last) < p.interval {
		return
	}
	p.last = time.Now()

	frac := 1.0
	if p.total > 0 {
		frac = float64(f.Step) / float64(p.total)
	}
	fmt.Fprintf(p.out, "\r%s %d/%d  t=%.3fs  ke=%.4g  %s",
		viz.ProgressBar(frac, 30), f.Step, p.total, f.Time,
		metrics.MeanKineticEnergy(f), time.Since(p.start).Round(time.Millisecond))
	if done {
		fmt.Fprintln(p.out)
	}
}
