package sim

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"evacsim/internal/telemetry"
)

func TestFileWriterMixesKinds(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.jsonl")
	fw, err := NewFileWriter(path)
	if err != nil {
		t.Fatalf("NewFileWriter: %v", err)
	}
	ts := time.Unix(0, 0).UTC()
	if err := fw.WriteRun(telemetry.RunRow{Kind: telemetry.KindRun, RunID: "r1", Rows: 3, Cols: 4, Timestamp: ts}); err != nil {
		t.Fatalf("WriteRun: %v", err)
	}
	frames := []telemetry.FrameRow{
		{Kind: telemetry.KindFrame, RunID: "r1", Tick: 1, FireMap: [][2]int{{1, 2}}, Timestamp: ts},
		{Kind: telemetry.KindFrame, RunID: "r1", Tick: 2, FireMap: [][2]int{{1, 2}, {1, 3}}, Timestamp: ts},
	}
	if err := fw.WriteFrames(frames); err != nil {
		t.Fatalf("WriteFrames: %v", err)
	}
	if err := fw.WriteEvent(telemetry.EventRow{Kind: telemetry.KindEvent, RunID: "r1", Tick: 2, EventType: telemetry.EventEscaped}); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	if err := fw.WriteSummary(telemetry.SummaryRow{Kind: telemetry.KindSummary, RunID: "r1", Escaped: 1}); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	if err := fw.Close(); err != nil {
		t.Fatalf("Close: %v", err)
	}

	f, err := os.Open(path)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer f.Close()
	var kinds []string
	sc := bufio.NewScanner(f)
	for sc.Scan() {
		var probe struct {
			Kind    string   `json:"kind"`
			FireMap [][2]int `json:"fire_map"`
		}
		if err := json.Unmarshal(sc.Bytes(), &probe); err != nil {
			t.Fatalf("decode line %q: %v", sc.Text(), err)
		}
		kinds = append(kinds, probe.Kind)
		if len(kinds) == 3 && len(probe.FireMap) != 2 {
			t.Fatalf("second frame fire map = %v", probe.FireMap)
		}
	}
	want := []string{telemetry.KindRun, telemetry.KindFrame, telemetry.KindFrame, telemetry.KindEvent, telemetry.KindSummary}
	if len(kinds) != len(want) {
		t.Fatalf("kinds = %v, want %v", kinds, want)
	}
	for i := range want {
		if kinds[i] != want[i] {
			t.Fatalf("kinds = %v, want %v", kinds, want)
		}
	}
}
