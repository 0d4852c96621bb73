package sim

import (
	"encoding/json"
	"os"
	"sync"

	"evacsim/internal/telemetry"
)

// FileWriter logs every row kind to one JSONL file. The kind field on each
// row lets ReplayLog tell them apart.
type FileWriter struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewFileWriter creates (or truncates) path.
func NewFileWriter(path string) (*FileWriter, error) {
	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}
	return &FileWriter{file: f, enc: json.NewEncoder(f)}, nil
}

func (f *FileWriter) encode(v any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enc.Encode(v)
}

// WriteRun logs the run header.
func (f *FileWriter) WriteRun(row telemetry.RunRow) error { return f.encode(row) }

// WriteFrame logs a single frame.
func (f *FileWriter) WriteFrame(row telemetry.FrameRow) error { return f.encode(row) }

// WriteFrames logs multiple frames.
func (f *FileWriter) WriteFrames(rows []telemetry.FrameRow) error {
	for _, r := range rows {
		if err := f.WriteFrame(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvent logs an agent status transition.
func (f *FileWriter) WriteEvent(row telemetry.EventRow) error { return f.encode(row) }

// WriteSummary logs the final totals.
func (f *FileWriter) WriteSummary(row telemetry.SummaryRow) error { return f.encode(row) }

// Close closes the underlying file.
func (f *FileWriter) Close() error {
	if f.file == nil {
		return nil
	}
	return f.file.Close()
}
