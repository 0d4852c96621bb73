package scenario

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"evacsim/internal/fire"
	"evacsim/internal/grid"
	"evacsim/internal/sim"

	"gopkg.in/yaml.v3"
)

// Scenario is a reproducible run definition: a floor plan, optional fixed
// agents and ignition points, option overrides and expected totals.
type Scenario struct {
	Name        string    `yaml:"name,omitempty"`
	Description string    `yaml:"description,omitempty"`
	Plan        string    `yaml:"plan,omitempty"`      // inline ASCII plan
	PlanFile    string    `yaml:"plan_file,omitempty"` // relative to the scenario file
	Agents      [][2]int  `yaml:"agents,omitempty"`    // [x, y]
	Ignition    [][2]int  `yaml:"ignition,omitempty"`  // [x, y]
	Simulation  Overrides `yaml:"simulation,omitempty"`
	Expect      *Expect   `yaml:"expect,omitempty"`

	dir string
}

// Overrides replace run defaults when set.
type Overrides struct {
	NumAgents      *int     `yaml:"num_agents,omitempty"`
	MaxTicks       *int     `yaml:"max_ticks,omitempty"`
	SpreadProb     *float64 `yaml:"p_spread,omitempty"`
	Neighborhood   *int     `yaml:"neighborhood,omitempty"`
	ObstaclePolicy string   `yaml:"obstacle_policy,omitempty"`
	Ignition       string   `yaml:"ignition,omitempty"`
	IgnitionCount  *int     `yaml:"ignition_count,omitempty"`
	Seed           *int64   `yaml:"seed,omitempty"`
}

// Expect lists totals a run of the scenario must produce. Nil fields are
// not checked.
type Expect struct {
	Escaped    *int `yaml:"escaped,omitempty"`
	Burned     *int `yaml:"burned,omitempty"`
	Unresolved *int `yaml:"unresolved,omitempty"`
	Ticks      *int `yaml:"ticks,omitempty"`
}

// Load reads a YAML scenario definition from disk.
func Load(path string) (*Scenario, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read scenario: %w", err)
	}
	var s Scenario
	if err := yaml.Unmarshal(b, &s); err != nil {
		return nil, fmt.Errorf("parse scenario: %w", err)
	}
	if s.Plan == "" && s.PlanFile == "" {
		return nil, fmt.Errorf("scenario %s: plan or plan_file is required", path)
	}
	s.dir = filepath.Dir(path)
	if s.Name == "" {
		s.Name = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	}
	return &s, nil
}

// Lookup returns the built-in scenario with the given name or loads ref as
// a file path.
func Lookup(ref string) (*Scenario, error) {
	if s, ok := BuiltIn()[ref]; ok {
		return &s, nil
	}
	return Load(ref)
}

// Grid decodes the scenario plan. Image plan files go through cls.
func (s *Scenario) Grid(cls grid.Classifier) (*grid.Grid, *grid.Plan, error) {
	var (
		plan *grid.Plan
		err  error
	)
	if s.Plan != "" {
		plan, err = grid.ParseText(strings.NewReader(s.Plan))
	} else {
		path := s.PlanFile
		if !filepath.IsAbs(path) {
			path = filepath.Join(s.dir, path)
		}
		var data []byte
		if data, err = os.ReadFile(path); err != nil {
			return nil, nil, fmt.Errorf("read plan file: %w", err)
		}
		plan, err = grid.DecodePlan(path, data, cls)
	}
	if err != nil {
		return nil, nil, err
	}
	g, err := plan.Grid()
	if err != nil {
		return nil, nil, err
	}
	return g, plan, nil
}

// Options layers plan markers, explicit positions and overrides on base.
func (s *Scenario) Options(base sim.Options, plan *grid.Plan) (sim.Options, error) {
	opts := base
	if plan != nil && len(plan.Agents) > 0 {
		opts.Agents = plan.Agents
	}
	if plan != nil && len(plan.Ignition) > 0 {
		opts.Ignition = fire.IgniteFixed
		opts.IgnitionPoints = plan.Ignition
	}
	if len(s.Agents) > 0 {
		opts.Agents = fromXY(s.Agents)
	}
	if len(s.Ignition) > 0 {
		opts.Ignition = fire.IgniteFixed
		opts.IgnitionPoints = fromXY(s.Ignition)
	}

	o := s.Simulation
	if o.NumAgents != nil {
		opts.NumAgents = *o.NumAgents
	}
	if o.MaxTicks != nil {
		opts.MaxTicks = *o.MaxTicks
	}
	if o.SpreadProb != nil {
		opts.SpreadProbability = *o.SpreadProb
	}
	if o.Neighborhood != nil {
		opts.Neighborhood = grid.Neighborhood(*o.Neighborhood)
	}
	if o.ObstaclePolicy != "" {
		p, err := fire.ParseObstaclePolicy(o.ObstaclePolicy)
		if err != nil {
			return opts, err
		}
		opts.ObstaclePolicy = p
	}
	if o.Ignition != "" {
		m, err := fire.ParseIgnitionMode(o.Ignition)
		if err != nil {
			return opts, err
		}
		opts.Ignition = m
	}
	if o.IgnitionCount != nil {
		opts.IgnitionCount = *o.IgnitionCount
	}
	if o.Seed != nil {
		opts.Seed = *o.Seed
	}
	if err := opts.Validate(); err != nil {
		return opts, fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	return opts, nil
}

// Check compares a result against the expected totals.
func (s *Scenario) Check(res *sim.Result) error {
	if s.Expect == nil || res == nil {
		return nil
	}
	var errs []error
	check := func(name string, want *int, got int) {
		if want != nil && *want != got {
			errs = append(errs, fmt.Errorf("%s: got %d, want %d", name, got, *want))
		}
	}
	check("escaped", s.Expect.Escaped, res.Dashboard.Escaped)
	check("burned", s.Expect.Burned, res.Dashboard.Burned)
	check("unresolved", s.Expect.Unresolved, res.Dashboard.Unresolved)
	check("ticks", s.Expect.Ticks, res.Ticks)
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("scenario %s: %w", s.Name, err)
	}
	return nil
}

func fromXY(pts [][2]int) []grid.Coord {
	out := make([]grid.Coord, len(pts))
	for i, p := range pts {
		out[i] = grid.Coord{Row: p[1], Col: p[0]}
	}
	return out
}
