package sim

import (
	"errors"

	"evacsim/internal/telemetry"
)

// MultiWriter fans rows out to several writers. Optional row kinds are only
// forwarded to writers implementing them. Every writer is attempted; the
// errors are joined.
type MultiWriter struct {
	writers []FrameWriter
}

// NewMultiWriter creates a new MultiWriter. Nil writers are skipped.
func NewMultiWriter(ws ...FrameWriter) *MultiWriter {
	mw := &MultiWriter{}
	for _, w := range ws {
		if w != nil {
			mw.writers = append(mw.writers, w)
		}
	}
	return mw
}

// Len returns the number of wrapped writers.
func (mw *MultiWriter) Len() int { return len(mw.writers) }

// WriteFrame sends a frame to all writers.
func (mw *MultiWriter) WriteFrame(row telemetry.FrameRow) error {
	var errs []error
	for _, w := range mw.writers {
		errs = append(errs, w.WriteFrame(row))
	}
	return errors.Join(errs...)
}

// WriteFrames sends multiple frames to all writers, using batch if supported.
func (mw *MultiWriter) WriteFrames(rows []telemetry.FrameRow) error {
	var errs []error
	for _, w := range mw.writers {
		if bw, ok := w.(batchFrameWriter); ok {
			errs = append(errs, bw.WriteFrames(rows))
			continue
		}
		for _, r := range rows {
			errs = append(errs, w.WriteFrame(r))
		}
	}
	return errors.Join(errs...)
}

// WriteRun sends the run header to writers accepting it.
func (mw *MultiWriter) WriteRun(row telemetry.RunRow) error {
	var errs []error
	for _, w := range mw.writers {
		if rw, ok := w.(RunWriter); ok {
			errs = append(errs, rw.WriteRun(row))
		}
	}
	return errors.Join(errs...)
}

// WriteEvent sends an agent event to writers accepting it.
func (mw *MultiWriter) WriteEvent(row telemetry.EventRow) error {
	var errs []error
	for _, w := range mw.writers {
		if ew, ok := w.(EventWriter); ok {
			errs = append(errs, ew.WriteEvent(row))
		}
	}
	return errors.Join(errs...)
}

// WriteSummary sends the final totals to writers accepting them.
func (mw *MultiWriter) WriteSummary(row telemetry.SummaryRow) error {
	var errs []error
	for _, w := range mw.writers {
		if sw, ok := w.(SummaryWriter); ok {
			errs = append(errs, sw.WriteSummary(row))
		}
	}
	return errors.Join(errs...)
}
