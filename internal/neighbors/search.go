// Package neighbors implements the fixed-radius neighbor search that the
// continuous convolutions run before aggregating features.
//
// Source points are binned into a uniform hash grid with cell size equal to
// the search radius; each query then inspects its own cell and the 26 cells
// around it. The result is a row-split list: neighbors of query i are
// Index[RowSplits[i]:RowSplits[i+1]].
package neighbors

import (
	"fmt"
	"math"

	"github.com/san-kum/fluidsim/internal/dynamo"
	"github.com/san-kum/fluidsim/internal/tensor"
)

const queryChunk = 64

// List is the neighbor structure of one search.
type List struct {
	Index     []int
	RowSplits []int
	Dist2     []float64
}

// Count returns the number of neighbors of query i.
func (l *List) Count(i int) int {
	return l.RowSplits[i+1] - l.RowSplits[i]
}

// NumQueries returns the number of query rows the list was built for.
func (l *List) NumQueries() int {
	return len(l.RowSplits) - 1
}

// Counts returns the neighbor count of every query as a float slice.
func (l *List) Counts() []float64 {
	out := make([]float64, l.NumQueries())
	for i := range out {
		out[i] = float64(l.Count(i))
	}
	return out
}

type cell [3]int

type grid struct {
	inv   float64
	cells map[cell][]int
}

func newGrid(points *tensor.Tensor, radius float64) *grid {
	g := &grid{inv: 1 / radius, cells: make(map[cell][]int)}
	for i := 0; i < points.Rows; i++ {
		c := g.cellOf(points.Row(i))
		g.cells[c] = append(g.cells[c], i)
	}
	return g
}

func (g *grid) cellOf(p []float64) cell {
	return cell{
		int(math.Floor(p[0] * g.inv)),
		int(math.Floor(p[1] * g.inv)),
		int(math.Floor(p[2] * g.inv)),
	}
}

// Search returns, for every query row, the source rows within radius.
// With ignoreQuery set, a source point at distance zero from the query is
// skipped so that a point never neighbors itself when source == query.
func Search(source, query *tensor.Tensor, radius float64, ignoreQuery bool) (*List, error) {
	if source.Cols != 3 || query.Cols != 3 {
		return nil, dynamo.ShapeError("neighbor_search", source.Rows, source.Cols, query.Rows, query.Cols)
	}
	if !(radius > 0) || math.IsInf(radius, 0) {
		return nil, fmt.Errorf("%w: search radius %v", dynamo.ErrNumericInstability, radius)
	}

	g := newGrid(source, radius)
	r2 := radius * radius

	perQuery := make([][]int, query.Rows)
	perDist := make([][]float64, query.Rows)

	dynamo.ParallelFor(query.Rows, queryChunk, func(start, end int) {
		for i := start; i < end; i++ {
			q := query.Row(i)
			base := g.cellOf(q)
			var idx []int
			var dist []float64
			for dz := -1; dz <= 1; dz++ {
				for dy := -1; dy <= 1; dy++ {
					for dx := -1; dx <= 1; dx++ {
						bucket := g.cells[cell{base[0] + dx, base[1] + dy, base[2] + dz}]
						for _, j := range bucket {
							s := source.Row(j)
							ox, oy, oz := s[0]-q[0], s[1]-q[1], s[2]-q[2]
							d2 := ox*ox + oy*oy + oz*oz
							if d2 > r2 {
								continue
							}
							if ignoreQuery && d2 == 0 {
								continue
							}
							idx = append(idx, j)
							dist = append(dist, d2)
						}
					}
				}
			}
			perQuery[i] = idx
			perDist[i] = dist
		}
	})

	l := &List{RowSplits: make([]int, query.Rows+1)}
	for i := range perQuery {
		l.RowSplits[i+1] = l.RowSplits[i] + len(perQuery[i])
	}
	l.Index = make([]int, 0, l.RowSplits[query.Rows])
	l.Dist2 = make([]float64, 0, l.RowSplits[query.Rows])
	for i := range perQuery {
		l.Index = append(l.Index, perQuery[i]...)
		l.Dist2 = append(l.Dist2, perDist[i]...)
	}
	return l, nil
}
