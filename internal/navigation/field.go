// Distance-to-exit fields and greedy agent steps under a dynamic hazard field
package navigation

import (
	"evacsim/internal/fire"
	"evacsim/internal/grid"
)

// Unreachable marks cells with no fire-free path to an exit.
const Unreachable = -1

// Field holds the hop count from every cell to its nearest exit.
type Field struct {
	grid *grid.Grid
	dist []int
}

// Distance returns the hop count at c, or Unreachable.
func (f *Field) Distance(c grid.Coord) int {
	if !f.grid.InBounds(c) {
		return Unreachable
	}
	return f.dist[f.grid.Index(c)]
}

// Reachable reports whether c has a finite distance.
func (f *Field) Reachable(c grid.Coord) bool { return f.Distance(c) != Unreachable }

// NewField runs a multi-source breadth-first search from every exit. Exits
// seed the search even while burning; the search only expands through
// walkable cells that are not on fire.
func NewField(g *grid.Grid, hazard fire.State, nb grid.Neighborhood) *Field {
	f := &Field{grid: g, dist: make([]int, g.Size())}
	for i := range f.dist {
		f.dist[i] = Unreachable
	}
	queue := make([]grid.Coord, 0, g.Size())
	for _, e := range g.Exits() {
		f.dist[g.Index(e)] = 0
		queue = append(queue, e)
	}
	var buf []grid.Coord
	for head := 0; head < len(queue); head++ {
		cur := queue[head]
		d := f.dist[g.Index(cur)]
		buf = g.Neighbors(buf[:0], cur, nb)
		for _, n := range buf {
			i := g.Index(n)
			if f.dist[i] != Unreachable || hazard.Burning(n) {
				continue
			}
			f.dist[i] = d + 1
			queue = append(queue, n)
		}
	}
	return f
}
