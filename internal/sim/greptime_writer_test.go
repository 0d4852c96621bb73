package sim

import (
	"context"
	"errors"
	"testing"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"

	"evacsim/internal/telemetry"
)

type mockGreptimeClient struct {
	tables []*table.Table
	err    error
}

func (m *mockGreptimeClient) Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error) {
	m.tables = append(m.tables, tables...)
	return &gpb.GreptimeResponse{}, m.err
}

func TestGreptimeWriterFrames(t *testing.T) {
	ts := time.Unix(0, 0).UTC()
	rows := []telemetry.FrameRow{
		{RunID: "r1", Tick: 1, Burning: 3, Evacuating: 4, Escaped: 1, Timestamp: ts},
		{RunID: "r1", Tick: 2, Burning: 5, Evacuating: 2, Escaped: 2, Burned: 1, Timestamp: ts},
	}
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, framesTable: "evac_frames"}
	if err := w.WriteFrames(rows); err != nil {
		t.Fatalf("WriteFrames: %v", err)
	}
	if len(m.tables) != 1 {
		t.Fatalf("expected one table, got %d", len(m.tables))
	}
	got := m.tables[0].GetRows()
	if len(got.Rows) != 2 {
		t.Fatalf("rows = %d, want 2", len(got.Rows))
	}
	if got.Schema[0].ColumnName != "run_id" || got.Schema[0].SemanticType != gpb.SemanticType_TAG {
		t.Fatalf("first column = %+v, want run_id tag", got.Schema[0])
	}
	if v := got.Rows[0].Values[0].GetStringValue(); v != "r1" {
		t.Fatalf("run_id = %s, want r1", v)
	}
	if v := got.Rows[1].Values[2].GetI64Value(); v != 5 {
		t.Fatalf("burning = %d, want 5", v)
	}
}

func TestGreptimeWriterSummary(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, runsTable: "evac_runs"}
	row := telemetry.SummaryRow{RunID: "r2", TotalAgents: 5, Escaped: 3, Burned: 1, Unresolved: 1, Ticks: 40, Seed: 9, SpreadProbability: 0.25, Timestamp: time.Unix(0, 0)}
	if err := w.WriteSummary(row); err != nil {
		t.Fatalf("WriteSummary: %v", err)
	}
	vals := m.tables[0].GetRows().Rows[0].Values
	if vals[4].GetI64Value() != 1 {
		t.Fatalf("unresolved = %d, want 1", vals[4].GetI64Value())
	}
	if vals[7].GetF64Value() != 0.25 {
		t.Fatalf("p_spread = %v, want 0.25", vals[7].GetF64Value())
	}
}

func TestGreptimeWriterPropagatesErrors(t *testing.T) {
	boom := errors.New("unavailable")
	w := &GreptimeDBWriter{client: &mockGreptimeClient{err: boom}, framesTable: "evac_frames"}
	if err := w.WriteFrame(telemetry.FrameRow{RunID: "r", Timestamp: time.Now()}); !errors.Is(err, boom) {
		t.Fatalf("expected %v, got %v", boom, err)
	}
}

func TestGreptimeWriterEmptyBatch(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m}
	if err := w.WriteFrames(nil); err != nil {
		t.Fatalf("WriteFrames(nil): %v", err)
	}
	if len(m.tables) != 0 {
		t.Fatalf("empty batch should not write")
	}
}
