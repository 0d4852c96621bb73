// Floor plan grid model: cell classification and adjacency
package grid

import (
	"errors"
	"fmt"
)

// ErrInvalidFloorPlan is returned when a floor plan cannot back a simulation run.
var ErrInvalidFloorPlan = errors.New("invalid floor plan")

// Kind classifies a single grid cell.
type Kind uint8

const (
	Walkable Kind = iota
	Obstacle
	Exit
)

func (k Kind) String() string {
	switch k {
	case Walkable:
		return "walkable"
	case Obstacle:
		return "obstacle"
	case Exit:
		return "exit"
	default:
		return "unknown"
	}
}

// Coord addresses a cell by row and column.
type Coord struct {
	Row int `json:"row" yaml:"row"`
	Col int `json:"col" yaml:"col"`
}

// XY returns the coordinate in x,y (col,row) order.
func (c Coord) XY() [2]int { return [2]int{c.Col, c.Row} }

// YX returns the coordinate in y,x (row,col) order.
func (c Coord) YX() [2]int { return [2]int{c.Row, c.Col} }

func (c Coord) String() string { return fmt.Sprintf("(%d,%d)", c.Row, c.Col) }

// Neighborhood selects 4- or 8-connected adjacency.
type Neighborhood int

const (
	VonNeumann Neighborhood = 4
	Moore      Neighborhood = 8
)

// Offsets are ordered up, right, down, left, then the diagonals clockwise
// from up-right. Navigation tie-breaks depend on this order.
var offsets = [8]Coord{
	{-1, 0}, {0, 1}, {1, 0}, {0, -1},
	{-1, 1}, {1, 1}, {1, -1}, {-1, -1},
}

// Grid is an immutable rows x cols floor plan.
type Grid struct {
	rows  int
	cols  int
	cells []Kind
	exits []Coord
}

// Build validates a classified floor plan and returns a Grid.
// The input is copied.
func Build(cells [][]Kind) (*Grid, error) {
	rows := len(cells)
	if rows < 2 {
		return nil, fmt.Errorf("%w: need at least 2 rows, got %d", ErrInvalidFloorPlan, rows)
	}
	cols := len(cells[0])
	if cols < 2 {
		return nil, fmt.Errorf("%w: need at least 2 columns, got %d", ErrInvalidFloorPlan, cols)
	}
	g := &Grid{rows: rows, cols: cols, cells: make([]Kind, 0, rows*cols)}
	for r, line := range cells {
		if len(line) != cols {
			return nil, fmt.Errorf("%w: row %d has %d cells, want %d", ErrInvalidFloorPlan, r, len(line), cols)
		}
		for c, k := range line {
			if k > Exit {
				return nil, fmt.Errorf("%w: unknown cell kind %d at %v", ErrInvalidFloorPlan, k, Coord{r, c})
			}
			if k == Exit {
				g.exits = append(g.exits, Coord{r, c})
			}
			g.cells = append(g.cells, k)
		}
	}
	if len(g.exits) == 0 {
		return nil, fmt.Errorf("%w: no exit cell", ErrInvalidFloorPlan)
	}
	return g, nil
}

// Shape returns the grid dimensions.
func (g *Grid) Shape() (rows, cols int) { return g.rows, g.cols }

// Rows returns the number of rows.
func (g *Grid) Rows() int { return g.rows }

// Cols returns the number of columns.
func (g *Grid) Cols() int { return g.cols }

// Size returns the number of cells.
func (g *Grid) Size() int { return g.rows * g.cols }

// InBounds reports whether c lies inside the grid.
func (g *Grid) InBounds(c Coord) bool {
	return c.Row >= 0 && c.Row < g.rows && c.Col >= 0 && c.Col < g.cols
}

// Index maps an in-bounds coordinate to its row-major offset.
func (g *Grid) Index(c Coord) int { return c.Row*g.cols + c.Col }

// At maps a row-major offset back to a coordinate.
func (g *Grid) At(i int) Coord { return Coord{Row: i / g.cols, Col: i % g.cols} }

// Kind returns the cell kind at c. Out-of-bounds cells read as Obstacle.
func (g *Grid) Kind(c Coord) Kind {
	if !g.InBounds(c) {
		return Obstacle
	}
	return g.cells[g.Index(c)]
}

// Walkable reports whether agents may stand on c (walkable or exit).
func (g *Grid) Walkable(c Coord) bool {
	return g.InBounds(c) && g.cells[g.Index(c)] != Obstacle
}

// IsExit reports whether c is an exit cell.
func (g *Grid) IsExit(c Coord) bool { return g.Kind(c) == Exit }

// Exits returns all exit coordinates in row-major order.
func (g *Grid) Exits() []Coord {
	out := make([]Coord, len(g.exits))
	copy(out, g.exits)
	return out
}

// Neighbors appends the in-bounds non-obstacle neighbours of c to dst in
// stable enumeration order and returns the extended slice.
func (g *Grid) Neighbors(dst []Coord, c Coord, nb Neighborhood) []Coord {
	for _, o := range g.adjacent(nb) {
		n := Coord{c.Row + o.Row, c.Col + o.Col}
		if g.Walkable(n) {
			dst = append(dst, n)
		}
	}
	return dst
}

// AllNeighbors is like Neighbors but includes obstacle cells.
func (g *Grid) AllNeighbors(dst []Coord, c Coord, nb Neighborhood) []Coord {
	for _, o := range g.adjacent(nb) {
		n := Coord{c.Row + o.Row, c.Col + o.Col}
		if g.InBounds(n) {
			dst = append(dst, n)
		}
	}
	return dst
}

func (g *Grid) adjacent(nb Neighborhood) []Coord {
	if nb == Moore {
		return offsets[:]
	}
	return offsets[:4]
}

// ParseNeighborhood converts a config value ("4", "8", "von_neumann", "moore").
func ParseNeighborhood(s string) (Neighborhood, error) {
	switch s {
	case "", "4", "von_neumann":
		return VonNeumann, nil
	case "8", "moore":
		return Moore, nil
	}
	return 0, fmt.Errorf("unknown neighborhood %q", s)
}
