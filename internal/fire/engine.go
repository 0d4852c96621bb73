// Cellular-automaton fire spread over a floor plan grid
package fire

import (
	"fmt"

	"evacsim/internal/grid"
	"evacsim/internal/rng"
)

// DefaultSpreadProbability is the per-tick ignition chance of a cell next to fire.
const DefaultSpreadProbability = 0.25

// ObstaclePolicy controls how walls interact with fire.
type ObstaclePolicy string

const (
	// Block keeps fire from entering or crossing obstacle cells.
	Block ObstaclePolicy = "block"
	// Conduct lets heat travel through obstacle cells. Walls never show up as
	// burning, but walkable cells on the far side can ignite.
	Conduct ObstaclePolicy = "conduct"
)

// ParseObstaclePolicy converts a config value.
func ParseObstaclePolicy(s string) (ObstaclePolicy, error) {
	switch ObstaclePolicy(s) {
	case "", Block:
		return Block, nil
	case Conduct:
		return Conduct, nil
	}
	return "", fmt.Errorf("unknown obstacle policy %q", s)
}

// Options configures an Engine.
type Options struct {
	SpreadProbability float64
	ObstaclePolicy    ObstaclePolicy
	Neighborhood      grid.Neighborhood
}

// Engine advances a hazard field one tick at a time.
type Engine struct {
	grid   *grid.Grid
	p      float64
	policy ObstaclePolicy
	nb     grid.Neighborhood
	rand   rng.Source
	heat   []bool // heated obstacle cells, Conduct only
	buf    []grid.Coord
}

// NewEngine validates opts and returns an engine drawing from src.
func NewEngine(g *grid.Grid, opts Options, src rng.Source) (*Engine, error) {
	if opts.SpreadProbability < 0 || opts.SpreadProbability > 1 {
		return nil, fmt.Errorf("spread probability %v outside [0,1]", opts.SpreadProbability)
	}
	if opts.ObstaclePolicy == "" {
		opts.ObstaclePolicy = Block
	}
	if opts.Neighborhood == 0 {
		opts.Neighborhood = grid.VonNeumann
	}
	return &Engine{
		grid:   g,
		p:      opts.SpreadProbability,
		policy: opts.ObstaclePolicy,
		nb:     opts.Neighborhood,
		rand:   src,
		heat:   make([]bool, g.Size()),
	}, nil
}

// Step returns the hazard field for the next tick. Each unburnt walkable
// cell adjacent to fire gets one independent draw; cells are visited in
// row-major order so a fixed seed reproduces the run. The result always
// contains cur.
func (e *Engine) Step(cur State) State {
	next := cur.clone()
	if e.p <= 0 {
		return next
	}
	var heat []bool
	if e.policy == Conduct {
		heat = make([]bool, len(e.heat))
		copy(heat, e.heat)
	}
	for i := 0; i < e.grid.Size(); i++ {
		c := e.grid.At(i)
		if cur.cells[i] {
			continue
		}
		obstacle := e.grid.Kind(c) == grid.Obstacle
		if obstacle && e.policy != Conduct {
			continue
		}
		if obstacle && e.heat[i] {
			continue
		}
		if !e.exposed(cur, c) {
			continue
		}
		if e.rand.Float64() >= e.p {
			continue
		}
		if obstacle {
			heat[i] = true
		} else {
			next.set(i)
		}
	}
	if heat != nil {
		e.heat = heat
	}
	return next
}

// exposed reports whether c touches a burning cell, or a heated wall under
// the Conduct policy.
func (e *Engine) exposed(cur State, c grid.Coord) bool {
	if e.policy == Conduct {
		e.buf = e.grid.AllNeighbors(e.buf[:0], c, e.nb)
	} else {
		e.buf = e.grid.Neighbors(e.buf[:0], c, e.nb)
	}
	for _, n := range e.buf {
		i := e.grid.Index(n)
		if cur.cells[i] || (e.policy == Conduct && e.heat[i]) {
			return true
		}
	}
	return false
}
