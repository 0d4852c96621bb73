package telemetry

import "time"

// Agent event types.
const (
	EventEscaped = "escaped"
	EventBurned  = "burned"
)

// EventRow records an agent reaching a terminal status.
type EventRow struct {
	Kind      string    `json:"kind"`
	RunID     string    `json:"run_id"`
	Tick      int       `json:"tick"`
	AgentID   int       `json:"agent_id"`
	EventType string    `json:"event_type"`
	X         int       `json:"x"`
	Y         int       `json:"y"`
	Timestamp time.Time `json:"ts"`
}
