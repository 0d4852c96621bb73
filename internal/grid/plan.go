package grid

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Plan is a classified floor plan plus any markers found while parsing it.
type Plan struct {
	Cells    [][]Kind
	Agents   []Coord
	Ignition []Coord
}

// Grid validates the plan cells.
func (p *Plan) Grid() (*Grid, error) {
	if p == nil {
		return nil, fmt.Errorf("%w: empty plan", ErrInvalidFloorPlan)
	}
	return Build(p.Cells)
}

// ParseText reads an ASCII floor plan.
//
//	#  obstacle
//	.  walkable
//	E  exit
//	A  walkable, agent start
//	F  walkable, ignition point
//
// Blank lines and lines starting with ';' are skipped.
func ParseText(r io.Reader) (*Plan, error) {
	p := &Plan{}
	sc := bufio.NewScanner(r)
	row := 0
	for sc.Scan() {
		line := strings.TrimRight(sc.Text(), " \t\r")
		if line == "" || strings.HasPrefix(line, ";") {
			continue
		}
		cells := make([]Kind, 0, len(line))
		for col, ch := range line {
			switch ch {
			case '#':
				cells = append(cells, Obstacle)
			case '.', ' ':
				cells = append(cells, Walkable)
			case 'E', 'e':
				cells = append(cells, Exit)
			case 'A', 'a':
				cells = append(cells, Walkable)
				p.Agents = append(p.Agents, Coord{row, col})
			case 'F', 'f':
				cells = append(cells, Walkable)
				p.Ignition = append(p.Ignition, Coord{row, col})
			default:
				return nil, fmt.Errorf("%w: unexpected %q at line %d col %d", ErrInvalidFloorPlan, ch, row+1, col+1)
			}
		}
		p.Cells = append(p.Cells, cells)
		row++
	}
	if err := sc.Err(); err != nil {
		return nil, fmt.Errorf("read plan: %w", err)
	}
	return p, nil
}

// Text renders cells back to the ASCII format. Markers are not included.
func Text(g *Grid) string {
	var b strings.Builder
	for r := 0; r < g.rows; r++ {
		for c := 0; c < g.cols; c++ {
			switch g.Kind(Coord{r, c}) {
			case Obstacle:
				b.WriteByte('#')
			case Exit:
				b.WriteByte('E')
			default:
				b.WriteByte('.')
			}
		}
		b.WriteByte('\n')
	}
	return b.String()
}
