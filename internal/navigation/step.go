package navigation

import (
	"evacsim/internal/grid"
)

// Navigator picks per-tick moves for evacuating agents.
type Navigator struct {
	grid *grid.Grid
	nb   grid.Neighborhood
	buf  []grid.Coord
}

// NewNavigator returns a navigator moving agents with the given adjacency.
func NewNavigator(g *grid.Grid, nb grid.Neighborhood) *Navigator {
	if nb == 0 {
		nb = grid.VonNeumann
	}
	return &Navigator{grid: g, nb: nb}
}

// Step returns the next position for an agent at pos.
//
// The agent moves one cell to the neighbour with the smallest distance in
// field, ties going to the first neighbour in enumeration order. It only
// moves when that distance beats its own. Burning cells other than exits
// are never entered since the field leaves them unreachable. With no
// reachable neighbour the agent holds.
func (n *Navigator) Step(field *Field, pos grid.Coord) grid.Coord {
	own := field.Distance(pos)
	best, bestD := pos, Unreachable
	n.buf = n.grid.Neighbors(n.buf[:0], pos, n.nb)
	for _, c := range n.buf {
		d := field.Distance(c)
		if d == Unreachable {
			continue
		}
		if bestD == Unreachable || d < bestD {
			best, bestD = c, d
		}
	}
	if bestD == Unreachable {
		return pos
	}
	if own != Unreachable && bestD >= own {
		return pos
	}
	return best
}
