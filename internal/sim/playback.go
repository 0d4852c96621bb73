package sim

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"evacsim/internal/telemetry"
)

// ReplayLog replays a JSONL log written by FileWriter into writer. Frames
// are spaced by interval; interval <= 0 replays without delay. Rows of
// kinds the writer does not implement are skipped.
func ReplayLog(r io.Reader, writer FrameWriter, interval time.Duration) error {
	dec := json.NewDecoder(r)
	frames := 0
	for {
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		var probe struct {
			Kind string `json:"kind"`
		}
		if err := json.Unmarshal(raw, &probe); err != nil {
			return err
		}
		switch probe.Kind {
		case telemetry.KindRun:
			rw, ok := writer.(RunWriter)
			if !ok {
				continue
			}
			var row telemetry.RunRow
			if err := json.Unmarshal(raw, &row); err != nil {
				return err
			}
			if err := rw.WriteRun(row); err != nil {
				return err
			}
		case telemetry.KindFrame, "":
			var row telemetry.FrameRow
			if err := json.Unmarshal(raw, &row); err != nil {
				return err
			}
			if frames > 0 && interval > 0 {
				time.Sleep(interval)
			}
			frames++
			if err := writer.WriteFrame(row); err != nil {
				return err
			}
		case telemetry.KindEvent:
			ew, ok := writer.(EventWriter)
			if !ok {
				continue
			}
			var row telemetry.EventRow
			if err := json.Unmarshal(raw, &row); err != nil {
				return err
			}
			if err := ew.WriteEvent(row); err != nil {
				return err
			}
		case telemetry.KindSummary:
			sw, ok := writer.(SummaryWriter)
			if !ok {
				continue
			}
			var row telemetry.SummaryRow
			if err := json.Unmarshal(raw, &row); err != nil {
				return err
			}
			if err := sw.WriteSummary(row); err != nil {
				return err
			}
		default:
			return fmt.Errorf("unknown row kind %q", probe.Kind)
		}
	}
}

// ReplayLogFile opens a file and replays its rows.
func ReplayLogFile(path string, writer FrameWriter, interval time.Duration) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return ReplayLog(f, writer, interval)
}
