package main

import (
	"fmt"
	"time"

	"evacsim/internal/sim"

	"github.com/spf13/cobra"
)

var (
	replayInput    string
	replayInterval time.Duration
	replayWriters  writerOptions
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a run log file",
	Long:  "replay feeds the rows of a JSONL run log back into STDOUT, GreptimeDB or the TUI.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		opts := replayWriters
		opts.LogFile = ""
		if !opts.Print && !opts.JSON && !opts.TUI && !opts.Greptime {
			opts.Print = true
		}
		w, tui, cleanup, err := newWriters(cfg, opts, logger)
		if err != nil {
			return err
		}
		defer cleanup()
		if err := sim.ReplayLogFile(replayInput, w, replayInterval); err != nil {
			return fmt.Errorf("replay failed: %w", err)
		}
		if tui != nil {
			tui.Wait()
		}
		return nil
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to run log file (JSONL)")
	replayCmd.Flags().DurationVar(&replayInterval, "interval", 100*time.Millisecond, "Delay between frames")
	addWriterFlags(replayCmd.Flags(), &replayWriters)
	replayCmd.MarkFlagRequired("input")
}
