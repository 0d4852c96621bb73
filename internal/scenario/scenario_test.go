package scenario

import (
	"context"
	"path/filepath"
	"testing"

	"evacsim/internal/fire"
	"evacsim/internal/grid"
	"evacsim/internal/sim"
)

func runScenario(t *testing.T, s *Scenario) *sim.Result {
	t.Helper()
	g, plan, err := s.Grid(nil)
	if err != nil {
		t.Fatalf("%s: grid: %v", s.Name, err)
	}
	opts, err := s.Options(sim.DefaultOptions(), plan)
	if err != nil {
		t.Fatalf("%s: options: %v", s.Name, err)
	}
	r, err := sim.NewSimulator(g, opts, nil)
	if err != nil {
		t.Fatalf("%s: new simulator: %v", s.Name, err)
	}
	res, err := r.Run(context.Background())
	if err != nil {
		t.Fatalf("%s: run: %v", s.Name, err)
	}
	return res
}

func TestLoadScenario(t *testing.T) {
	sc, err := Load("testdata/simple.yaml")
	if err != nil {
		t.Fatalf("load scenario: %v", err)
	}
	if sc.Name != "example" {
		t.Fatalf("unexpected name %s", sc.Name)
	}
	if sc.Description != "basic test scenario" {
		t.Fatalf("unexpected description %s", sc.Description)
	}
	g, plan, err := sc.Grid(nil)
	if err != nil {
		t.Fatalf("grid: %v", err)
	}
	if rows, cols := g.Shape(); rows != 4 || cols != 6 {
		t.Fatalf("unexpected shape %dx%d", rows, cols)
	}
	opts, err := sc.Options(sim.DefaultOptions(), plan)
	if err != nil {
		t.Fatalf("options: %v", err)
	}
	if len(opts.Agents) != 1 || opts.Agents[0] != (grid.Coord{Row: 2, Col: 3}) {
		t.Fatalf("agents not read as [x, y]: %v", opts.Agents)
	}
	if opts.Ignition != fire.IgniteFixed || opts.IgnitionPoints[0] != (grid.Coord{Row: 1, Col: 1}) {
		t.Fatalf("unexpected ignition %v %v", opts.Ignition, opts.IgnitionPoints)
	}
	if opts.MaxTicks != 40 || opts.SpreadProbability != 0.5 || opts.Seed != 11 {
		t.Fatalf("overrides not applied: %+v", opts)
	}
	if err := sc.Check(runScenario(t, sc)); err != nil {
		t.Fatalf("check: %v", err)
	}
}

func TestLoadRequiresPlan(t *testing.T) {
	if _, err := Load(filepath.Join("testdata", "missing.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestBuiltInScenarios(t *testing.T) {
	for name, sc := range BuiltIn() {
		sc := sc
		t.Run(name, func(t *testing.T) {
			if sc.Description == "" {
				t.Fatalf("scenario %s missing description", name)
			}
			res := runScenario(t, &sc)
			if err := sc.Check(res); err != nil {
				t.Fatal(err)
			}
			d := res.Dashboard
			if d.Escaped+d.Burned+d.Unresolved != d.TotalAgents {
				t.Fatalf("totals do not add up: %+v", d)
			}
		})
	}
}

func TestCheckReportsMismatch(t *testing.T) {
	sc := Scenario{Name: "x", Expect: &Expect{Escaped: ptr(2), Ticks: ptr(5)}}
	res := &sim.Result{Dashboard: sim.Totals{TotalAgents: 2, Escaped: 1}, Ticks: 5}
	if err := sc.Check(res); err == nil {
		t.Fatal("expected mismatch error")
	}
	res.Dashboard.Escaped = 2
	if err := sc.Check(res); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestLookup(t *testing.T) {
	if sc, err := Lookup("corner-exit"); err != nil || sc.Name != "corner-exit" {
		t.Fatalf("Lookup built-in: %v %v", sc, err)
	}
	if sc, err := Lookup("testdata/simple.yaml"); err != nil || sc.Name != "example" {
		t.Fatalf("Lookup file: %v %v", sc, err)
	}
}
