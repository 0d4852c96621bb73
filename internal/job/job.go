// Package job runs simulations asynchronously and tracks their lifecycle.
package job

import (
	"time"

	"evacsim/internal/sim"
)

// Status represents the lifecycle state of a job.
type Status string

const (
	StatusQueued     Status = "queued"     // waiting for a free slot
	StatusProcessing Status = "processing" // simulation running
	StatusComplete   Status = "complete"   // result available
	StatusFailed     Status = "failed"     // error message available
)

// Terminal reports whether the job will not change any more.
func (s Status) Terminal() bool { return s == StatusComplete || s == StatusFailed }

// Job is a snapshot of one submitted simulation. Result is set only when
// Status is complete, Error only when it is failed.
type Job struct {
	ID         string      `json:"job_id"`
	Status     Status      `json:"status"`
	Result     *sim.Result `json:"result,omitempty"`
	Error      string      `json:"error,omitempty"`
	Progress   int         `json:"progress"` // ticks run so far
	MaxTicks   int         `json:"max_ticks"`
	CreatedAt  time.Time   `json:"created_at"`
	StartedAt  time.Time   `json:"started_at"`
	FinishedAt time.Time   `json:"finished_at"`
}
