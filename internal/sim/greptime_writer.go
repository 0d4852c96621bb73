package sim

import (
	"context"
	"log/slog"
	"net"
	"strconv"
	"time"

	"evacsim/internal/telemetry"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"
)

type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter stores per-tick counters and run summaries in GreptimeDB
// via the ingester client. Tables are created on first write.
type GreptimeDBWriter struct {
	client      greptimeClient
	framesTable string
	runsTable   string
	timeout     time.Duration
	log         *slog.Logger
}

// NewGreptimeDBWriter connects to endpoint ("host" or "host:port", gRPC
// port 4001 by default).
func NewGreptimeDBWriter(endpoint, database string, log *slog.Logger) (*GreptimeDBWriter, error) {
	host, port := endpoint, 4001
	if h, p, err := net.SplitHostPort(endpoint); err == nil {
		host = h
		if n, err := strconv.Atoi(p); err == nil {
			port = n
		}
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, err
	}
	if log == nil {
		log = slog.Default()
	}
	return &GreptimeDBWriter{
		client:      client,
		framesTable: telemetry.FramesTableName,
		runsTable:   telemetry.RunsTableName,
		timeout:     5 * time.Second,
		log:         log,
	}, nil
}

func (w *GreptimeDBWriter) write(tbl *table.Table, name string, n int) error {
	ctx := context.Background()
	if w.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, w.timeout)
		defer cancel()
	}
	if _, err := w.client.Write(ctx, tbl); err != nil {
		w.logger().Error("greptime write failed", "table", name, "err", err)
		return err
	}
	w.logger().Debug("greptime rows written", "table", name, "rows", n)
	return nil
}

func (w *GreptimeDBWriter) logger() *slog.Logger {
	if w.log == nil {
		return slog.Default()
	}
	return w.log
}

// WriteFrame inserts a single frame's counters.
func (w *GreptimeDBWriter) WriteFrame(row telemetry.FrameRow) error {
	return w.WriteFrames([]telemetry.FrameRow{row})
}

// WriteFrames inserts multiple frames. Cell lists are not stored, only the
// per-status counters.
func (w *GreptimeDBWriter) WriteFrames(rows []telemetry.FrameRow) error {
	if len(rows) == 0 {
		return nil
	}
	tbl, err := table.New(w.framesTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("run_id", types.STRING)
	tbl.AddFieldColumn("tick", types.INT64)
	tbl.AddFieldColumn("burning", types.INT64)
	tbl.AddFieldColumn("evacuating", types.INT64)
	tbl.AddFieldColumn("escaped", types.INT64)
	tbl.AddFieldColumn("burned", types.INT64)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)
	for _, r := range rows {
		if err := tbl.AddRow(
			r.RunID,
			int64(r.Tick),
			int64(r.Burning),
			int64(r.Evacuating),
			int64(r.Escaped),
			int64(r.Burned),
			r.Timestamp,
		); err != nil {
			return err
		}
	}
	return w.write(tbl, w.framesTable, len(rows))
}

// WriteSummary inserts the final totals of a run.
func (w *GreptimeDBWriter) WriteSummary(row telemetry.SummaryRow) error {
	tbl, err := table.New(w.runsTable)
	if err != nil {
		return err
	}
	tbl.AddTagColumn("run_id", types.STRING)
	tbl.AddFieldColumn("total_agents", types.INT64)
	tbl.AddFieldColumn("escaped", types.INT64)
	tbl.AddFieldColumn("burned", types.INT64)
	tbl.AddFieldColumn("unresolved", types.INT64)
	tbl.AddFieldColumn("ticks", types.INT64)
	tbl.AddFieldColumn("seed", types.INT64)
	tbl.AddFieldColumn("p_spread", types.FLOAT64)
	tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND)
	if err := tbl.AddRow(
		row.RunID,
		int64(row.TotalAgents),
		int64(row.Escaped),
		int64(row.Burned),
		int64(row.Unresolved),
		int64(row.Ticks),
		row.Seed,
		row.SpreadProbability,
		row.Timestamp,
	); err != nil {
		return err
	}
	return w.write(tbl, w.runsTable, 1)
}
