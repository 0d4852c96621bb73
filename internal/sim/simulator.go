// Simulator orchestrating fire spread and evacuation ticks
package sim

import (
	"errors"
	"fmt"
	"time"

	"evacsim/internal/fire"
	"evacsim/internal/grid"
	"evacsim/internal/navigation"
	"evacsim/internal/rng"

	"github.com/google/uuid"
)

// ErrSimulationFault wraps unexpected failures inside the tick loop.
var ErrSimulationFault = errors.New("simulation fault")

// Run defaults.
const (
	DefaultNumAgents = 5
	DefaultMaxTicks  = 500
)

// Options configures one run.
type Options struct {
	NumAgents         int
	Agents            []grid.Coord // fixed start cells, overrides NumAgents
	MaxTicks          int
	SpreadProbability float64
	Neighborhood      grid.Neighborhood
	ObstaclePolicy    fire.ObstaclePolicy
	Ignition          fire.IgnitionMode
	IgnitionPoints    []grid.Coord
	IgnitionCount     int
	Seed              int64 // zero picks a time-based seed
}

// DefaultOptions returns the settings of a plain evacuation run.
func DefaultOptions() Options {
	return Options{
		NumAgents:         DefaultNumAgents,
		MaxTicks:          DefaultMaxTicks,
		SpreadProbability: fire.DefaultSpreadProbability,
		Neighborhood:      grid.VonNeumann,
		ObstaclePolicy:    fire.Block,
		Ignition:          fire.IgniteCenter,
	}
}

// Validate checks option ranges that do not depend on the grid.
func (o Options) Validate() error {
	if o.MaxTicks < 1 {
		return fmt.Errorf("max ticks must be positive, got %d", o.MaxTicks)
	}
	if len(o.Agents) == 0 && o.NumAgents < 1 {
		return fmt.Errorf("need at least one agent, got %d", o.NumAgents)
	}
	if o.SpreadProbability < 0 || o.SpreadProbability > 1 {
		return fmt.Errorf("spread probability %v outside [0,1]", o.SpreadProbability)
	}
	if o.Neighborhood != 0 && o.Neighborhood != grid.VonNeumann && o.Neighborhood != grid.Moore {
		return fmt.Errorf("neighborhood must be 4 or 8, got %d", o.Neighborhood)
	}
	return nil
}

// Phase is the orchestrator state.
type Phase int

const (
	Initialized Phase = iota
	Running
	Complete
)

func (p Phase) String() string {
	switch p {
	case Initialized:
		return "initialized"
	case Running:
		return "running"
	case Complete:
		return "complete"
	default:
		return "unknown"
	}
}

// Simulator drives fire and agents in lockstep over one grid. A Simulator
// is owned by a single goroutine.
type Simulator struct {
	runID   string
	grid    *grid.Grid
	opts    Options
	seed    int64
	fire    *fire.Engine
	nav     *navigation.Navigator
	hazard  fire.State
	agents  []Agent
	history []Snapshot
	tick    int
	phase   Phase
	writer  FrameWriter
	now     func() time.Time
}

// NewSimulator places the initial fire and agents. Placement problems are
// reported as grid.ErrInvalidFloorPlan. writer may be nil.
func NewSimulator(g *grid.Grid, opts Options, writer FrameWriter) (*Simulator, error) {
	if g == nil {
		return nil, fmt.Errorf("%w: nil grid", grid.ErrInvalidFloorPlan)
	}
	if opts.Neighborhood == 0 {
		opts.Neighborhood = grid.VonNeumann
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	seed := rng.Seed(opts.Seed)
	src := rng.New(seed)

	eng, err := fire.NewEngine(g, fire.Options{
		SpreadProbability: opts.SpreadProbability,
		ObstaclePolicy:    opts.ObstaclePolicy,
		Neighborhood:      opts.Neighborhood,
	}, src)
	if err != nil {
		return nil, err
	}
	hazard, err := fire.Ignite(g, opts.Ignition, opts.IgnitionPoints, opts.IgnitionCount, src)
	if err != nil {
		return nil, err
	}
	agents, err := placeAgents(g, hazard, opts, src)
	if err != nil {
		return nil, err
	}
	return &Simulator{
		runID:  uuid.New().String(),
		grid:   g,
		opts:   opts,
		seed:   seed,
		fire:   eng,
		nav:    navigation.NewNavigator(g, opts.Neighborhood),
		hazard: hazard,
		agents: agents,
		writer: writer,
		now:    time.Now,
	}, nil
}

func placeAgents(g *grid.Grid, hazard fire.State, opts Options, src rng.Source) ([]Agent, error) {
	if len(opts.Agents) > 0 {
		agents := make([]Agent, len(opts.Agents))
		for i, c := range opts.Agents {
			if !g.Walkable(c) {
				return nil, fmt.Errorf("%w: agent %d starts on non-walkable cell %v", grid.ErrInvalidFloorPlan, i, c)
			}
			agents[i] = Agent{ID: i, Pos: c, Status: StatusEvacuating}
		}
		return agents, nil
	}
	var free []grid.Coord
	for i := 0; i < g.Size(); i++ {
		c := g.At(i)
		if g.Kind(c) == grid.Walkable && !hazard.Burning(c) {
			free = append(free, c)
		}
	}
	if len(free) == 0 {
		return nil, fmt.Errorf("%w: no free cell to place agents", grid.ErrInvalidFloorPlan)
	}
	agents := make([]Agent, opts.NumAgents)
	for i := range agents {
		agents[i] = Agent{ID: i, Pos: free[src.Intn(len(free))], Status: StatusEvacuating}
	}
	return agents, nil
}

// RunID returns the identifier stamped on emitted rows.
func (s *Simulator) RunID() string { return s.runID }

// SetRunID overrides the generated run identifier.
func (s *Simulator) SetRunID(id string) { s.runID = id }

// Seed returns the seed the run draws from.
func (s *Simulator) Seed() int64 { return s.seed }

// Phase returns the orchestrator state.
func (s *Simulator) Phase() Phase { return s.phase }

// CurrentTick returns the number of ticks run so far.
func (s *Simulator) CurrentTick() int { return s.tick }

// Agents returns a copy of the current agent states.
func (s *Simulator) Agents() []Agent {
	out := make([]Agent, len(s.agents))
	copy(out, s.agents)
	return out
}

// Hazard returns the current hazard field.
func (s *Simulator) Hazard() fire.State { return s.hazard }

// History returns the recorded snapshots.
func (s *Simulator) History() []Snapshot { return s.history }

// Result assembles the run output from the current state.
func (s *Simulator) Result() *Result {
	rows, cols := s.grid.Shape()
	exits := s.grid.Exits()
	ex := make([][2]int, len(exits))
	for i, e := range exits {
		ex[i] = e.XY()
	}
	history := s.history
	if history == nil {
		history = []Snapshot{}
	}
	return &Result{
		Dashboard: countTotals(s.agents),
		AnimationData: AnimationData{
			Exits:     ex,
			GridShape: [2]int{rows, cols},
			History:   history,
		},
		Ticks: s.tick,
		Seed:  s.seed,
	}
}

func (s *Simulator) allTerminal() bool {
	for _, a := range s.agents {
		if !a.Status.Terminal() {
			return false
		}
	}
	return true
}
