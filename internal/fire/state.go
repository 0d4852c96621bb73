package fire

import "evacsim/internal/grid"

// State is the hazard field at one tick: the set of burning cells.
// Values are never mutated after Step returns them.
type State struct {
	rows  int
	cols  int
	cells []bool
	n     int
}

// NewState returns an empty hazard field for g.
func NewState(g *grid.Grid) State {
	return State{rows: g.Rows(), cols: g.Cols(), cells: make([]bool, g.Size())}
}

// Burning reports whether c is on fire.
func (s State) Burning(c grid.Coord) bool {
	if c.Row < 0 || c.Row >= s.rows || c.Col < 0 || c.Col >= s.cols {
		return false
	}
	return s.cells[c.Row*s.cols+c.Col]
}

// Len returns the number of burning cells.
func (s State) Len() int { return s.n }

// Cells lists burning cells in row-major order.
func (s State) Cells() []grid.Coord {
	out := make([]grid.Coord, 0, s.n)
	for i, b := range s.cells {
		if b {
			out = append(out, grid.Coord{Row: i / s.cols, Col: i % s.cols})
		}
	}
	return out
}

// Contains reports whether every burning cell of o also burns in s.
func (s State) Contains(o State) bool {
	if len(o.cells) != len(s.cells) {
		return false
	}
	for i, b := range o.cells {
		if b && !s.cells[i] {
			return false
		}
	}
	return true
}

func (s State) clone() State {
	c := s
	c.cells = make([]bool, len(s.cells))
	copy(c.cells, s.cells)
	return c
}

func (s *State) set(i int) {
	if !s.cells[i] {
		s.cells[i] = true
		s.n++
	}
}
