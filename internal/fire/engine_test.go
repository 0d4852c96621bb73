package fire

import (
	"errors"
	"strings"
	"testing"

	"evacsim/internal/grid"
	"evacsim/internal/rng"
)

func mustGrid(t *testing.T, plan string) *grid.Grid {
	t.Helper()
	p, err := grid.ParseText(strings.NewReader(plan))
	if err != nil {
		t.Fatalf("ParseText: %v", err)
	}
	g, err := p.Grid()
	if err != nil {
		t.Fatalf("Grid: %v", err)
	}
	return g
}

func TestStepIsMonotonic(t *testing.T) {
	g := mustGrid(t, "E.......\n.##.....\n........\n...#....\n........\n")
	eng, err := NewEngine(g, Options{SpreadProbability: 0.4}, rng.New(7))
	if err != nil {
		t.Fatalf("NewEngine: %v", err)
	}
	cur, err := Ignite(g, IgniteCenter, nil, 0, rng.New(7))
	if err != nil {
		t.Fatalf("Ignite: %v", err)
	}
	for tick := 0; tick < 30; tick++ {
		next := eng.Step(cur)
		if !next.Contains(cur) {
			t.Fatalf("tick %d: fire shrank", tick)
		}
		for _, c := range next.Cells() {
			if g.Kind(c) == grid.Obstacle {
				t.Fatalf("tick %d: obstacle %v is burning", tick, c)
			}
		}
		cur = next
	}
}

func TestStepFullSpreadWavefront(t *testing.T) {
	g := mustGrid(t, "E....\n.....\n..F..\n.....\n.....\n")
	eng, _ := NewEngine(g, Options{SpreadProbability: 1}, rng.New(1))
	cur, err := Ignite(g, IgniteFixed, []grid.Coord{{Row: 2, Col: 2}}, 0, nil)
	if err != nil {
		t.Fatalf("Ignite: %v", err)
	}
	cur = eng.Step(cur)
	if cur.Len() != 5 {
		t.Fatalf("after 1 tick burning = %d, want 5", cur.Len())
	}
	cur = eng.Step(cur)
	if cur.Len() != 13 {
		t.Fatalf("after 2 ticks burning = %d, want 13", cur.Len())
	}
}

func TestStepZeroProbabilityNeverSpreads(t *testing.T) {
	g := mustGrid(t, "E...\n....\n....\n")
	eng, _ := NewEngine(g, Options{SpreadProbability: 0}, rng.New(1))
	cur, _ := Ignite(g, IgniteFixed, []grid.Coord{{Row: 1, Col: 1}}, 0, nil)
	for i := 0; i < 10; i++ {
		cur = eng.Step(cur)
	}
	if cur.Len() != 1 {
		t.Fatalf("burning = %d, want 1", cur.Len())
	}
}

func TestObstaclePolicy(t *testing.T) {
	plan := "E.#..\n..#..\n..#..\n"
	start := []grid.Coord{{Row: 1, Col: 1}}

	g := mustGrid(t, plan)
	block, _ := NewEngine(g, Options{SpreadProbability: 1, ObstaclePolicy: Block}, rng.New(1))
	cur, _ := Ignite(g, IgniteFixed, start, 0, nil)
	for i := 0; i < 10; i++ {
		cur = block.Step(cur)
	}
	if cur.Burning(grid.Coord{Row: 1, Col: 3}) {
		t.Fatalf("fire crossed a wall under the block policy")
	}

	conduct, _ := NewEngine(g, Options{SpreadProbability: 1, ObstaclePolicy: Conduct}, rng.New(1))
	cur, _ = Ignite(g, IgniteFixed, start, 0, nil)
	for i := 0; i < 10; i++ {
		cur = conduct.Step(cur)
	}
	if !cur.Burning(grid.Coord{Row: 1, Col: 3}) {
		t.Fatalf("fire did not cross the wall under the conduct policy")
	}
	for _, c := range cur.Cells() {
		if g.Kind(c) == grid.Obstacle {
			t.Fatalf("obstacle %v reported burning", c)
		}
	}
}

func TestStepDeterministicForSeed(t *testing.T) {
	g := mustGrid(t, "E.........\n..........\n..........\n..........\n..........\n")
	run := func() []grid.Coord {
		eng, _ := NewEngine(g, Options{SpreadProbability: 0.3}, rng.New(42))
		cur, _ := Ignite(g, IgniteCenter, nil, 0, nil)
		for i := 0; i < 8; i++ {
			cur = eng.Step(cur)
		}
		return cur.Cells()
	}
	a, b := run(), run()
	if len(a) != len(b) {
		t.Fatalf("runs differ: %v vs %v", a, b)
	}
	for i := range a {
		if a[i] != b[i] {
			t.Fatalf("runs differ at %d: %v vs %v", i, a[i], b[i])
		}
	}
}

func TestIgnite(t *testing.T) {
	g := mustGrid(t, "E..\n.#.\n...\n")

	center, _ := Ignite(g, IgniteCenter, nil, 0, nil)
	cells := center.Cells()
	if len(cells) != 1 || cells[0] != (grid.Coord{Row: 0, Col: 1}) {
		t.Fatalf("center ignition = %v, want nearest walkable cell (0,1)", cells)
	}

	if _, err := Ignite(g, IgniteFixed, []grid.Coord{{Row: 0, Col: 0}}, 0, nil); !errors.Is(err, grid.ErrInvalidFloorPlan) {
		t.Fatalf("igniting an exit: err = %v", err)
	}
	if _, err := Ignite(g, IgniteFixed, []grid.Coord{{Row: 1, Col: 1}}, 0, nil); !errors.Is(err, grid.ErrInvalidFloorPlan) {
		t.Fatalf("igniting an obstacle: err = %v", err)
	}

	random, _ := Ignite(g, IgniteRandom, nil, 3, rng.New(3))
	if random.Len() != 3 {
		t.Fatalf("random ignition burning = %d, want 3", random.Len())
	}
	for _, c := range random.Cells() {
		if g.Kind(c) != grid.Walkable {
			t.Fatalf("random ignition picked %v (%v)", c, g.Kind(c))
		}
	}

	none, _ := Ignite(g, IgniteNone, nil, 0, nil)
	if none.Len() != 0 {
		t.Fatalf("none ignition burning = %d", none.Len())
	}
}

func TestNewEngineRejectsBadProbability(t *testing.T) {
	g := mustGrid(t, "E.\n..\n")
	if _, err := NewEngine(g, Options{SpreadProbability: 1.5}, rng.New(1)); err == nil {
		t.Fatal("expected error for probability > 1")
	}
}
