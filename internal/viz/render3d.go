package viz

import (
	"math"
	"sort"
)

type Vec3 struct {
	X, Y, Z float64
}

func (v Vec3) Add(o Vec3) Vec3      { return Vec3{v.X + o.X, v.Y + o.Y, v.Z + o.Z} }
func (v Vec3) Sub(o Vec3) Vec3      { return Vec3{v.X - o.X, v.Y - o.Y, v.Z - o.Z} }
func (v Vec3) Scale(s float64) Vec3 { return Vec3{v.X * s, v.Y * s, v.Z * s} }
func (v Vec3) Length() float64      { return math.Sqrt(v.X*v.X + v.Y*v.Y + v.Z*v.Z) }

// Camera orbits Target at Distance. Points are rotated about Target and
// then perspective-projected onto the canvas.
type Camera struct {
	Target     Vec3
	Distance   float64
	Yaw, Pitch float64
	Zoom       float64
}

// NewCamera looks at the centre of a box with the given edge lengths.
func NewCamera(size [3]float64) *Camera {
	center := Vec3{size[0] / 2, size[1] / 2, size[2] / 2}
	return &Camera{
		Target:   center,
		Distance: 3 * math.Max(center.Length(), 1e-3),
		Yaw:      0.5,
		Pitch:    0.3,
		Zoom:     1,
	}
}

func (c *Camera) Orbit(d float64) { c.Yaw += d }
func (c *Camera) Tilt(d float64)  { c.Pitch = math.Max(-1.5, math.Min(1.5, c.Pitch+d)) }
func (c *Camera) ZoomIn()         { c.Zoom = math.Min(10, c.Zoom*1.2) }
func (c *Camera) ZoomOut()        { c.Zoom = math.Max(0.1, c.Zoom/1.2) }

// view returns p in camera space; +Z points towards the viewer.
func (c *Camera) view(p Vec3) Vec3 {
	p = p.Sub(c.Target)
	cy, sy := math.Cos(c.Yaw), math.Sin(c.Yaw)
	p.X, p.Z = p.X*cy+p.Z*sy, -p.X*sy+p.Z*cy
	cp, sp := math.Cos(c.Pitch), math.Sin(c.Pitch)
	p.Y, p.Z = p.Y*cp-p.Z*sp, p.Y*sp+p.Z*cp
	return p
}

// Project returns the dot position and depth of p. ok is false when p is
// behind the camera or off the canvas.
func (c *Camera) Project(p Vec3, cv *Canvas) (x, y int, depth float64, ok bool) {
	v := c.view(p)
	d := c.Distance - v.Z
	if d <= 1e-9 {
		return 0, 0, 0, false
	}
	w, h := cv.DotsWide(), cv.DotsHigh()
	s := c.Zoom * float64(min(w, h)) / 2 * focal / d
	x = int(v.X*s) + w/2
	y = int(-v.Y*s) + h/2
	return x, y, v.Z, x >= 0 && x < w && y >= 0 && y < h
}

// focal scales the view so a box seen from NewCamera spans most of the canvas.
const focal = 1.6

type Edge struct {
	Start, End Vec3
}

type Wireframe struct{ Edges []Edge }

func NewWireframe() *Wireframe         { return &Wireframe{} }
func (w *Wireframe) AddEdge(s, e Vec3) { w.Edges = append(w.Edges, Edge{s, e}) }
func (w *Wireframe) AddPoint(p Vec3)   { w.Edges = append(w.Edges, Edge{p, p}) }
func (w *Wireframe) Clear()            { w.Edges = w.Edges[:0] }

type projectedEdge struct {
	x1, y1, x2, y2 int
	depth          float64
}

// Render3D draws w back to front. Edges with one end on screen are drawn
// and clipped by the canvas.
func Render3D(c *Canvas, w *Wireframe, cam *Camera) {
	if c == nil || w == nil || cam == nil {
		return
	}
	proj := make([]projectedEdge, 0, len(w.Edges))
	for _, e := range w.Edges {
		x1, y1, d1, v1 := cam.Project(e.Start, c)
		x2, y2, d2, v2 := cam.Project(e.End, c)
		if v1 || v2 {
			proj = append(proj, projectedEdge{x1, y1, x2, y2, (d1 + d2) / 2})
		}
	}
	sort.Slice(proj, func(i, j int) bool { return proj[i].depth < proj[j].depth })
	for _, e := range proj {
		if e.x1 == e.x2 && e.y1 == e.y2 {
			c.Set(e.x1, e.y1)
		} else {
			c.DrawLine(e.x1, e.y1, e.x2, e.y2)
		}
	}
}

// BoxWireframe outlines [0,size[0]]×[0,size[1]]×[0,size[2]].
func BoxWireframe(size [3]float64) *Wireframe {
	w := NewWireframe()
	x, y, z := size[0], size[1], size[2]
	v := []Vec3{{0, 0, 0}, {x, 0, 0}, {x, y, 0}, {0, y, 0}, {0, 0, z}, {x, 0, z}, {x, y, z}, {0, y, z}}
	for _, e := range [][2]int{{0, 1}, {1, 2}, {2, 3}, {3, 0}, {4, 5}, {5, 6}, {6, 7}, {7, 4}, {0, 4}, {1, 5}, {2, 6}, {3, 7}} {
		w.AddEdge(v[e[0]], v[e[1]])
	}
	return w
}
