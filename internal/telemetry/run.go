package telemetry

import (
	"os"
	"time"
)

// RunRow describes a run before its first tick.
type RunRow struct {
	Kind              string    `json:"kind"`
	RunID             string    `json:"run_id"`
	Rows              int       `json:"rows"`
	Cols              int       `json:"cols"`
	Plan              string    `json:"plan"` // ASCII floor plan, see grid.Text
	Exits             [][2]int  `json:"exits"`
	Agents            int       `json:"agents"`
	MaxTicks          int       `json:"max_ticks"`
	SpreadProbability float64   `json:"p_spread"`
	Seed              int64     `json:"seed"`
	Timestamp         time.Time `json:"ts"`
}

// SummaryRow is written once when a run completes.
type SummaryRow struct {
	Kind              string    `json:"kind"`
	RunID             string    `json:"run_id"`       // TAG
	TotalAgents       int       `json:"total_agents"` // FIELD
	Escaped           int       `json:"escaped"`      // FIELD
	Burned            int       `json:"burned"`       // FIELD
	Unresolved        int       `json:"unresolved"`   // FIELD
	Ticks             int       `json:"ticks"`        // FIELD
	Seed              int64     `json:"seed"`         // FIELD
	SpreadProbability float64   `json:"p_spread"`     // FIELD
	Timestamp         time.Time `json:"ts"`           // TIME INDEX
}

// RunsTableName holds the GreptimeDB table for run summaries.
// Override with GREPTIMEDB_RUNS_TABLE.
var RunsTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_RUNS_TABLE"); env != "" {
		return env
	}
	return "evac_runs"
}()
