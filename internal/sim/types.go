package sim

import (
	"encoding/json"
	"fmt"

	"evacsim/internal/grid"
)

// AgentStatus is the evacuation state of one occupant.
type AgentStatus string

// Agent status constants.
const (
	StatusEvacuating AgentStatus = "evacuating"
	StatusEscaped    AgentStatus = "escaped"
	StatusBurned     AgentStatus = "burned"
)

// Terminal reports whether the status is final.
func (s AgentStatus) Terminal() bool { return s == StatusEscaped || s == StatusBurned }

// Agent is a simulated occupant.
type Agent struct {
	ID     int
	Pos    grid.Coord
	Status AgentStatus
}

// Snapshot records the hazard field and every agent after one tick.
type Snapshot struct {
	Tick   int
	Fire   []grid.Coord
	Agents []Agent
}

// Fire cells are serialised as [row, col] and agent positions as [x, y];
// the rendering client depends on both orders.
type wireSnapshot struct {
	FireMap [][2]int    `json:"fire_map"`
	Agents  []wireAgent `json:"agents"`
}

type wireAgent struct {
	XY     [2]int
	Status AgentStatus
}

func (a wireAgent) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]any{a.XY, a.Status})
}

func (a *wireAgent) UnmarshalJSON(b []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("agent entry: %w", err)
	}
	if err := json.Unmarshal(raw[0], &a.XY); err != nil {
		return fmt.Errorf("agent position: %w", err)
	}
	return json.Unmarshal(raw[1], &a.Status)
}

// MarshalJSON implements json.Marshaler.
func (s Snapshot) MarshalJSON() ([]byte, error) {
	w := wireSnapshot{FireMap: make([][2]int, len(s.Fire)), Agents: make([]wireAgent, len(s.Agents))}
	for i, c := range s.Fire {
		w.FireMap[i] = c.YX()
	}
	for i, a := range s.Agents {
		w.Agents[i] = wireAgent{XY: a.Pos.XY(), Status: a.Status}
	}
	return json.Marshal(w)
}

// UnmarshalJSON implements json.Unmarshaler. Agent ids are their list index.
func (s *Snapshot) UnmarshalJSON(b []byte) error {
	var w wireSnapshot
	if err := json.Unmarshal(b, &w); err != nil {
		return err
	}
	s.Fire = make([]grid.Coord, len(w.FireMap))
	for i, yx := range w.FireMap {
		s.Fire[i] = grid.Coord{Row: yx[0], Col: yx[1]}
	}
	s.Agents = make([]Agent, len(w.Agents))
	for i, a := range w.Agents {
		s.Agents[i] = Agent{ID: i, Pos: grid.Coord{Row: a.XY[1], Col: a.XY[0]}, Status: a.Status}
	}
	return nil
}

// Totals summarises a run. Agents still evacuating when the tick budget
// runs out are Unresolved and counted in neither Escaped nor Burned.
type Totals struct {
	TotalAgents int `json:"total_agents"`
	Escaped     int `json:"escaped"`
	Burned      int `json:"burned"`
	Unresolved  int `json:"unresolved"`
}

// AnimationData is the frame history consumed by the renderer.
type AnimationData struct {
	Exits     [][2]int   `json:"exits"`
	GridShape [2]int     `json:"grid_shape"`
	History   []Snapshot `json:"history"`
}

// Result is the output of one completed run.
type Result struct {
	Dashboard     Totals        `json:"dashboard"`
	AnimationData AnimationData `json:"animation_data"`
	Ticks         int           `json:"ticks"`
	Seed          int64         `json:"seed"`
}

func (r *Result) UnmarshalJSON(b []byte) error {
	type plain Result
	var p plain
	if err := json.Unmarshal(b, &p); err != nil {
		return err
	}
	for i := range p.AnimationData.History {
		p.AnimationData.History[i].Tick = i + 1
	}
	*r = Result(p)
	return nil
}

func countTotals(agents []Agent) Totals {
	t := Totals{TotalAgents: len(agents)}
	for _, a := range agents {
		switch a.Status {
		case StatusEscaped:
			t.Escaped++
		case StatusBurned:
			t.Burned++
		default:
			t.Unresolved++
		}
	}
	return t
}
