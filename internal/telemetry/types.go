// Row types emitted by the simulator to frame writers
package telemetry

import (
	"os"
	"time"
)

// Record kinds, stored in every row so JSONL logs can mix them.
const (
	KindRun     = "run"
	KindFrame   = "frame"
	KindEvent   = "event"
	KindSummary = "summary"
)

// AgentRow is one agent inside a frame.
type AgentRow struct {
	ID     int    `json:"id"`
	X      int    `json:"x"`
	Y      int    `json:"y"`
	Status string `json:"status"`
}

// FrameRow is written once per tick.
type FrameRow struct {
	Kind       string     `json:"kind"`
	RunID      string     `json:"run_id"` // TAG
	Tick       int        `json:"tick"`
	FireMap    [][2]int   `json:"fire_map"` // [row, col]
	Agents     []AgentRow `json:"agents"`
	Burning    int        `json:"burning"`    // FIELD
	Evacuating int        `json:"evacuating"` // FIELD
	Escaped    int        `json:"escaped"`    // FIELD
	Burned     int        `json:"burned"`     // FIELD
	Timestamp  time.Time  `json:"ts"`         // TIME INDEX
}

// FramesTableName holds the GreptimeDB table for frame counters.
// Override with GREPTIMEDB_FRAMES_TABLE.
var FramesTableName = func() string {
	if env := os.Getenv("GREPTIMEDB_FRAMES_TABLE"); env != "" {
		return env
	}
	return "evac_frames"
}()

func (FrameRow) TableName() string {
	return FramesTableName
}
