package fire

import (
	"fmt"

	"evacsim/internal/grid"
	"evacsim/internal/rng"
)

// IgnitionMode selects how the initial fire is placed.
type IgnitionMode string

const (
	IgniteCenter IgnitionMode = "center"
	IgniteFixed  IgnitionMode = "fixed"
	IgniteRandom IgnitionMode = "random"
	IgniteNone   IgnitionMode = "none"
)

// ParseIgnitionMode converts a config value.
func ParseIgnitionMode(s string) (IgnitionMode, error) {
	switch IgnitionMode(s) {
	case "", IgniteCenter:
		return IgniteCenter, nil
	case IgniteFixed, IgniteRandom, IgniteNone:
		return IgnitionMode(s), nil
	}
	return "", fmt.Errorf("unknown ignition mode %q", s)
}

// Ignite builds the tick-zero hazard field. Exits and obstacles never start
// burning. Fixed points that are not plain walkable cells are rejected with
// grid.ErrInvalidFloorPlan.
func Ignite(g *grid.Grid, mode IgnitionMode, points []grid.Coord, count int, src rng.Source) (State, error) {
	s := NewState(g)
	switch mode {
	case IgniteNone:
		return s, nil
	case IgniteFixed:
		for _, p := range points {
			if !g.InBounds(p) || g.Kind(p) != grid.Walkable {
				return s, fmt.Errorf("%w: ignition point %v is not a walkable cell", grid.ErrInvalidFloorPlan, p)
			}
			s.set(g.Index(p))
		}
		return s, nil
	case IgniteRandom:
		cand := candidates(g)
		if count <= 0 {
			count = 1
		}
		if count > len(cand) {
			count = len(cand)
		}
		// partial Fisher-Yates
		for i := 0; i < count; i++ {
			j := i + src.Intn(len(cand)-i)
			cand[i], cand[j] = cand[j], cand[i]
			s.set(g.Index(cand[i]))
		}
		return s, nil
	case IgniteCenter, "":
		if c, ok := nearestToCenter(g); ok {
			s.set(g.Index(c))
		}
		return s, nil
	}
	return s, fmt.Errorf("unknown ignition mode %q", mode)
}

func candidates(g *grid.Grid) []grid.Coord {
	var out []grid.Coord
	for i := 0; i < g.Size(); i++ {
		c := g.At(i)
		if g.Kind(c) == grid.Walkable {
			out = append(out, c)
		}
	}
	return out
}

func nearestToCenter(g *grid.Grid) (grid.Coord, bool) {
	center := grid.Coord{Row: g.Rows() / 2, Col: g.Cols() / 2}
	best, bestD := grid.Coord{}, -1
	for _, c := range candidates(g) {
		dr, dc := c.Row-center.Row, c.Col-center.Col
		d := dr*dr + dc*dc
		if bestD < 0 || d < bestD {
			best, bestD = c, d
		}
	}
	return best, bestD >= 0
}
