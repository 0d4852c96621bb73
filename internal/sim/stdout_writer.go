// Writer printing human-friendly run progress to STDOUT
package sim

import (
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"evacsim/internal/telemetry"
)

const (
	colorReset  = "\x1b[0m"
	colorRed    = "\x1b[31m"
	colorGreen  = "\x1b[32m"
	colorYellow = "\x1b[33m"
	colorBlue   = "\x1b[34m"
	colorCyan   = "\x1b[36m"
	colorGray   = "\x1b[90m"
)

// StdoutWriter prints one line per frame and event, optionally with ANSI
// colors. The run header is printed as a small table.
type StdoutWriter struct {
	out      io.Writer
	colorize bool
}

// NewStdoutWriter creates a StdoutWriter writing to os.Stdout.
func NewStdoutWriter(colorize bool) *StdoutWriter {
	return &StdoutWriter{out: os.Stdout, colorize: colorize}
}

func (w *StdoutWriter) c(color, s string) string {
	if !w.colorize {
		return s
	}
	return color + s + colorReset
}

func (w *StdoutWriter) stamp(ts time.Time) string {
	return w.c(colorGray, "["+ts.Format(time.RFC3339)+"]")
}

// WriteRun prints the run configuration.
func (w *StdoutWriter) WriteRun(row telemetry.RunRow) error {
	fmt.Fprintln(w.out, "Simulation Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Run:\t%s\n", row.RunID)
	fmt.Fprintf(tw, "Grid:\t%dx%d\n", row.Rows, row.Cols)
	fmt.Fprintf(tw, "Exits:\t%d\n", len(row.Exits))
	fmt.Fprintf(tw, "Agents:\t%d\n", row.Agents)
	fmt.Fprintf(tw, "Max Ticks:\t%d\n", row.MaxTicks)
	fmt.Fprintf(tw, "Spread Probability:\t%.2f\n", row.SpreadProbability)
	fmt.Fprintf(tw, "Seed:\t%d\n", row.Seed)
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w.out)
	return err
}

// WriteFrame prints the per-tick counters.
func (w *StdoutWriter) WriteFrame(row telemetry.FrameRow) error {
	_, err := fmt.Fprintf(w.out, "%s tick=%d %s %s %s %s\n",
		w.stamp(row.Timestamp), row.Tick,
		w.c(colorRed, fmt.Sprintf("burning=%d", row.Burning)),
		w.c(colorYellow, fmt.Sprintf("evacuating=%d", row.Evacuating)),
		w.c(colorGreen, fmt.Sprintf("escaped=%d", row.Escaped)),
		w.c(colorBlue, fmt.Sprintf("burned=%d", row.Burned)))
	return err
}

// WriteEvent prints an agent reaching a terminal status.
func (w *StdoutWriter) WriteEvent(row telemetry.EventRow) error {
	label := w.c(colorGreen, "ESCAPED")
	if row.EventType == telemetry.EventBurned {
		label = w.c(colorRed, "BURNED")
	}
	_, err := fmt.Fprintf(w.out, "%s %s agent=%d tick=%d pos=(%d,%d)\n",
		w.stamp(row.Timestamp), label, row.AgentID, row.Tick, row.X, row.Y)
	return err
}

// WriteSummary prints the final totals.
func (w *StdoutWriter) WriteSummary(row telemetry.SummaryRow) error {
	_, err := fmt.Fprintf(w.out, "%s %s total=%d escaped=%d burned=%d unresolved=%d ticks=%d\n",
		w.stamp(row.Timestamp), w.c(colorCyan, "SUMMARY"),
		row.TotalAgents, row.Escaped, row.Burned, row.Unresolved, row.Ticks)
	return err
}
