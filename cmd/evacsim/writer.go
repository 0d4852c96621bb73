package main

import (
	"errors"
	"log/slog"
	"os"

	"evacsim/internal/config"
	"evacsim/internal/sim"

	"github.com/spf13/pflag"
	"golang.org/x/term"
)

// writerOptions selects the frame sinks of a local run or replay.
type writerOptions struct {
	LogFile  string
	Print    bool
	JSON     bool
	Color    bool
	TUI      bool
	Greptime bool
}

func addWriterFlags(f *pflag.FlagSet, o *writerOptions) {
	f.StringVar(&o.LogFile, "log-file", "", "Path to export run rows (JSONL)")
	f.BoolVar(&o.Print, "print", false, "Print frames and events to STDOUT")
	f.BoolVar(&o.JSON, "json", false, "Print rows to STDOUT as JSON lines")
	f.BoolVar(&o.Color, "color", false, "Colorize STDOUT output")
	f.BoolVar(&o.TUI, "tui", false, "Show the run in a terminal UI")
	f.BoolVar(&o.Greptime, "greptime", false, "Write frames and summaries to GreptimeDB (greptime.endpoint)")
}

var isTerminal = func() bool { return term.IsTerminal(int(os.Stdout.Fd())) }

// newWriters builds the writers selected by o. It returns nil when none is
// selected, the TUI writer when one was started, and a cleanup function
// closing every opened resource.
func newWriters(cfg *config.Config, o writerOptions, log *slog.Logger) (sim.FrameWriter, *sim.TUIWriter, func(), error) {
	var (
		ws      []sim.FrameWriter
		closers []func() error
		tui     *sim.TUIWriter
	)
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				log.Error("writer close failed", "err", err)
			}
		}
	}

	if o.TUI && !isTerminal() {
		log.Warn("stdout is not a terminal, printing frames instead of the TUI")
		o.TUI = false
		o.Print = true
	}
	switch {
	case o.TUI:
		tui = sim.NewTUIWriter()
		ws = append(ws, tui)
		closers = append(closers, tui.Close)
	case o.JSON:
		ws = append(ws, sim.NewJSONStdoutWriter())
	case o.Print:
		ws = append(ws, sim.NewStdoutWriter(o.Color))
	}

	if o.Greptime {
		if cfg.Greptime.Endpoint == "" {
			cleanup()
			return nil, nil, nil, errors.New("--greptime needs greptime.endpoint or GREPTIMEDB_ENDPOINT")
		}
		gw, err := sim.NewGreptimeDBWriter(cfg.Greptime.Endpoint, cfg.Greptime.Database, log)
		if err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		ws = append(ws, gw)
	}

	if o.LogFile != "" {
		fw, err := sim.NewFileWriter(o.LogFile)
		if err != nil {
			cleanup()
			return nil, nil, nil, err
		}
		ws = append(ws, fw)
		closers = append(closers, fw.Close)
	}

	switch len(ws) {
	case 0:
		return nil, nil, cleanup, nil
	case 1:
		return ws[0], tui, cleanup, nil
	default:
		return sim.NewMultiWriter(ws...), tui, cleanup, nil
	}
}
