package viz

import (
	"strings"

	"github.com/san-kum/fluidsim/internal/tensor"
)

// Braille cells hold 2x4 dots:
//
//	1 4
//	2 5
//	3 6
//	7 8
const brailleBlank = 0x2800

var dotBits = [4][2]rune{
	{0x1, 0x8},
	{0x2, 0x10},
	{0x4, 0x20},
	{0x40, 0x80},
}

// Canvas is a grid of braille cells addressed in dots: Width*2 by Height*4.
type Canvas struct {
	Width, Height int
	Grid          [][]rune
}

func NewCanvas(w, h int) *Canvas {
	c := &Canvas{Width: w, Height: h, Grid: make([][]rune, h)}
	for i := range c.Grid {
		c.Grid[i] = make([]rune, w)
	}
	c.Clear()
	return c
}

// DotsWide and DotsHigh are the addressable resolution.
func (c *Canvas) DotsWide() int { return c.Width * 2 }
func (c *Canvas) DotsHigh() int { return c.Height * 4 }

// Set lights the dot at (x, y); out-of-range dots are ignored.
func (c *Canvas) Set(x, y int) {
	if x < 0 || y < 0 || x >= c.DotsWide() || y >= c.DotsHigh() {
		return
	}
	c.Grid[y/4][x/2] |= dotBits[y%4][x%2]
}

// IsSet reports whether the dot at (x, y) is lit.
func (c *Canvas) IsSet(x, y int) bool {
	if x < 0 || y < 0 || x >= c.DotsWide() || y >= c.DotsHigh() {
		return false
	}
	return c.Grid[y/4][x/2]&dotBits[y%4][x%2] != 0
}

func (c *Canvas) Clear() {
	for i := range c.Grid {
		for j := range c.Grid[i] {
			c.Grid[i][j] = brailleBlank
		}
	}
}

// DrawLine draws with Bresenham's algorithm.
func (c *Canvas) DrawLine(x0, y0, x1, y1 int) {
	dx, dy := absInt(x1-x0), absInt(y1-y0)
	sx, sy := -1, -1
	if x0 < x1 {
		sx = 1
	}
	if y0 < y1 {
		sy = 1
	}
	err := dx - dy
	for {
		c.Set(x0, y0)
		if x0 == x1 && y0 == y1 {
			return
		}
		e2 := 2 * err
		if e2 > -dy {
			err -= dy
			x0 += sx
		}
		if e2 < dx {
			err += dx
			y0 += sy
		}
	}
}

// Count returns the number of lit dots.
func (c *Canvas) Count() int {
	n := 0
	for y := 0; y < c.DotsHigh(); y++ {
		for x := 0; x < c.DotsWide(); x++ {
			if c.IsSet(x, y) {
				n++
			}
		}
	}
	return n
}

func (c *Canvas) String() string {
	var b strings.Builder
	for _, row := range c.Grid {
		b.WriteString(string(row))
		b.WriteByte('\n')
	}
	return b.String()
}

// Viewport maps a world rectangle onto the canvas with y pointing up.
type Viewport struct {
	MinX, MinY, MaxX, MaxY float64
}

// Dot converts world coordinates to a dot position. Aspect ratio is
// preserved by fitting the larger extent.
func (v Viewport) Dot(c *Canvas, x, y float64) (int, int) {
	w, h := float64(c.DotsWide()-1), float64(c.DotsHigh()-1)
	span := max(v.MaxX-v.MinX, v.MaxY-v.MinY)
	if span <= 0 {
		return 0, 0
	}
	s := min(w, h) / span
	return int((x - v.MinX) * s), int(h - (y-v.MinY)*s)
}

// DrawFront draws the x-y face of a box of edge lengths size and one dot
// per row of pos, looking down the z axis.
func DrawFront(c *Canvas, pos *tensor.Tensor, size [3]float64) {
	vp := Viewport{MaxX: size[0], MaxY: size[1]}
	corners := [][2]float64{{0, 0}, {size[0], 0}, {size[0], size[1]}, {0, size[1]}}
	for i, p := range corners {
		n := corners[(i+1)%len(corners)]
		x0, y0 := vp.Dot(c, p[0], p[1])
		x1, y1 := vp.Dot(c, n[0], n[1])
		c.DrawLine(x0, y0, x1, y1)
	}
	for i := 0; i < pos.Rows; i++ {
		r := pos.Row(i)
		c.Set(vp.Dot(c, r[0], r[1]))
	}
}

func absInt(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
