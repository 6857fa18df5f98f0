package export

import (
	"fmt"
	"math"
	"strings"

	"github.com/san-kum/fluidsim/internal/tensor"
)

// Axis selects the two coordinates of a projection.
type Axis [2]int

var (
	XY = Axis{0, 1}
	XZ = Axis{0, 2}
)

type bounds struct{ minX, maxX, minY, maxY float64 }

func (b *bounds) pad() {
	rx, ry := b.maxX-b.minX, b.maxY-b.minY
	if rx == 0 {
		rx = 1
	}
	if ry == 0 {
		ry = 1
	}
	b.minX -= rx * 0.05
	b.maxX += rx * 0.05
	b.minY -= ry * 0.05
	b.maxY += ry * 0.05
}

func (b bounds) project(x, y float64, width, height int) (float64, float64) {
	px := (x - b.minX) / (b.maxX - b.minX) * float64(width)
	py := float64(height) - (y-b.minY)/(b.maxY-b.minY)*float64(height)
	return px, py
}

func svgHeader(sb *strings.Builder, width, height int) {
	fmt.Fprintf(sb, `<?xml version="1.0" encoding="UTF-8"?>
<svg xmlns="http://www.w3.org/2000/svg" width="%d" height="%d" viewBox="0 0 %d %d">
<rect width="100%%" height="100%%" fill="#0a0a0a"/>
`, width, height, width, height)
}

// ParticlesToSVG draws a projection of the fluid particles and, when
// walls is non-nil, the obstacle points behind them.
func ParticlesToSVG(pos, walls *tensor.Tensor, axis Axis, width, height int) string {
	if pos.Rows == 0 && (walls == nil || walls.Rows == 0) {
		return ""
	}

	b := bounds{math.Inf(1), math.Inf(-1), math.Inf(1), math.Inf(-1)}
	for _, t := range []*tensor.Tensor{pos, walls} {
		if t == nil {
			continue
		}
		for i := 0; i < t.Rows; i++ {
			r := t.Row(i)
			b.minX, b.maxX = math.Min(b.minX, r[axis[0]]), math.Max(b.maxX, r[axis[0]])
			b.minY, b.maxY = math.Min(b.minY, r[axis[1]]), math.Max(b.maxY, r[axis[1]])
		}
	}
	b.pad()

	var sb strings.Builder
	svgHeader(&sb, width, height)
	layer := func(t *tensor.Tensor, color string, radius float64) {
		fmt.Fprintf(&sb, "<g fill=\"%s\">\n", color)
		for i := 0; i < t.Rows; i++ {
			r := t.Row(i)
			x, y := b.project(r[axis[0]], r[axis[1]], width, height)
			fmt.Fprintf(&sb, "<circle cx=\"%.1f\" cy=\"%.1f\" r=\"%.1f\"/>\n", x, y, radius)
		}
		sb.WriteString("</g>\n")
	}
	if walls != nil {
		layer(walls, "#444444", 1.5)
	}
	layer(pos, "#00aaff", 3)
	sb.WriteString("</svg>")
	return sb.String()
}

// SeriesToSVG draws a metric history as a polyline.
func SeriesToSVG(values []float64, width, height int, strokeColor string) string {
	if len(values) < 2 {
		return ""
	}

	b := bounds{0, float64(len(values) - 1), values[0], values[0]}
	for _, v := range values {
		b.minY, b.maxY = math.Min(b.minY, v), math.Max(b.maxY, v)
	}
	b.pad()

	var sb strings.Builder
	svgHeader(&sb, width, height)
	fmt.Fprintf(&sb, `<path fill="none" stroke="%s" stroke-width="1.5" d="M`, strokeColor)
	for i, v := range values {
		x, y := b.project(float64(i), v, width, height)
		if i > 0 {
			sb.WriteString(" L")
		}
		fmt.Fprintf(&sb, "%.1f,%.1f", x, y)
	}
	sb.WriteString("\"/>\n</svg>")
	return sb.String()
}
