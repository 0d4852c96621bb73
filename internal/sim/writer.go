package sim

import "evacsim/internal/telemetry"

// FrameWriter receives one row per simulated tick.
type FrameWriter interface {
	WriteFrame(telemetry.FrameRow) error
}

// Optional: frame writers may support batch mode.
type batchFrameWriter interface {
	WriteFrames([]telemetry.FrameRow) error
}

// RunWriter is implemented by writers that want the run header.
type RunWriter interface {
	WriteRun(telemetry.RunRow) error
}

// EventWriter is implemented by writers that want agent status transitions.
type EventWriter interface {
	WriteEvent(telemetry.EventRow) error
}

// SummaryWriter is implemented by writers that want the final totals.
type SummaryWriter interface {
	WriteSummary(telemetry.SummaryRow) error
}
