package sim

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"evacsim/internal/telemetry"
)

// JSONStdoutWriter prints every row as one JSON line.
type JSONStdoutWriter struct {
	out io.Writer
}

// NewJSONStdoutWriter creates a JSONStdoutWriter writing to os.Stdout.
func NewJSONStdoutWriter() *JSONStdoutWriter {
	return &JSONStdoutWriter{out: os.Stdout}
}

func (w *JSONStdoutWriter) print(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// WriteRun outputs the run header.
func (w *JSONStdoutWriter) WriteRun(row telemetry.RunRow) error { return w.print(row) }

// WriteFrame outputs a frame.
func (w *JSONStdoutWriter) WriteFrame(row telemetry.FrameRow) error { return w.print(row) }

// WriteEvent outputs an agent event.
func (w *JSONStdoutWriter) WriteEvent(row telemetry.EventRow) error { return w.print(row) }

// WriteSummary outputs the final totals.
func (w *JSONStdoutWriter) WriteSummary(row telemetry.SummaryRow) error { return w.print(row) }
