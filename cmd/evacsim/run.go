package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"evacsim/internal/fire"
	"evacsim/internal/grid"
	"evacsim/internal/scenario"
	"evacsim/internal/sim"

	"github.com/spf13/cobra"
)

var (
	runScenarioRef string
	runPlanPath    string
	runOutPath     string
	runCheck       bool
	runWriters     writerOptions

	runSeed      int64
	runAgents    int
	runMaxTicks  int
	runSpreadP   float64
	runObstacles string
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run one simulation locally",
	Long:  "run simulates a scenario or floor plan file to completion and writes the result JSON, optionally streaming frames to a log file, STDOUT, GreptimeDB or a TUI.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if (runScenarioRef == "") == (runPlanPath == "") {
			return errors.New("exactly one of --scenario or --plan is required")
		}
		ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
		defer stop()

		base, err := cfg.SimOptions()
		if err != nil {
			return err
		}
		var (
			g    *grid.Grid
			opts sim.Options
			sc   *scenario.Scenario
		)
		if runScenarioRef != "" {
			if sc, err = scenario.Lookup(runScenarioRef); err != nil {
				return err
			}
			var plan *grid.Plan
			if g, plan, err = sc.Grid(cfg.NewClassifier()); err != nil {
				return err
			}
			if opts, err = sc.Options(base, plan); err != nil {
				return err
			}
		} else {
			if g, opts, err = loadPlan(runPlanPath, base); err != nil {
				return err
			}
		}
		if err := applyRunFlags(cmd, &opts); err != nil {
			return err
		}

		w, tui, cleanup, err := newWriters(cfg, runWriters, logger)
		if err != nil {
			return err
		}
		defer cleanup()

		s, err := sim.NewSimulator(g, opts, w)
		if err != nil {
			return err
		}
		logger.Info("run starting", "run_id", s.RunID(), "seed", s.Seed(), "max_ticks", opts.MaxTicks)
		res, err := s.Run(ctx)
		if err != nil {
			return err
		}
		logger.Info("run complete", "run_id", s.RunID(), "ticks", res.Ticks,
			"escaped", res.Dashboard.Escaped, "burned", res.Dashboard.Burned, "unresolved", res.Dashboard.Unresolved)
		if tui != nil {
			tui.Wait()
		}

		if err := writeResult(runOutPath, res); err != nil {
			return err
		}
		if runCheck && sc != nil {
			return sc.Check(res)
		}
		return nil
	},
}

func loadPlan(path string, base sim.Options) (*grid.Grid, sim.Options, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, base, fmt.Errorf("read plan: %w", err)
	}
	plan, err := grid.DecodePlan(path, data, cfg.NewClassifier())
	if err != nil {
		return nil, base, err
	}
	g, err := plan.Grid()
	if err != nil {
		return nil, base, err
	}
	sc := scenario.Scenario{Name: path}
	opts, err := sc.Options(base, plan)
	return g, opts, err
}

// applyRunFlags overrides options with flags given on the command line.
func applyRunFlags(cmd *cobra.Command, opts *sim.Options) error {
	f := cmd.Flags()
	if f.Changed("seed") {
		opts.Seed = runSeed
	}
	if f.Changed("agents") {
		opts.NumAgents = runAgents
		opts.Agents = nil
	}
	if f.Changed("max-ticks") {
		opts.MaxTicks = runMaxTicks
	}
	if f.Changed("p-spread") {
		opts.SpreadProbability = runSpreadP
	}
	if f.Changed("obstacles") {
		p, err := fire.ParseObstaclePolicy(runObstacles)
		if err != nil {
			return err
		}
		opts.ObstaclePolicy = p
	}
	return opts.Validate()
}

func writeResult(path string, res *sim.Result) error {
	var out io.Writer = os.Stdout
	if path != "" {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create result file: %w", err)
		}
		defer f.Close()
		out = f
	}
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	return enc.Encode(res)
}

func init() {
	f := runCmd.Flags()
	f.StringVar(&runScenarioRef, "scenario", "", "Built-in scenario name or scenario YAML path")
	f.StringVar(&runPlanPath, "plan", "", "Floor plan file (ASCII or image)")
	f.StringVar(&runOutPath, "out", "", "Write the result JSON here instead of STDOUT")
	f.BoolVar(&runCheck, "check", false, "Fail when the scenario's expected totals are not met")

	f.Int64Var(&runSeed, "seed", 0, "Random seed (0 picks one)")
	f.IntVar(&runAgents, "agents", 0, "Number of randomly placed agents")
	f.IntVar(&runMaxTicks, "max-ticks", 0, "Tick budget")
	f.Float64Var(&runSpreadP, "p-spread", 0, "Fire spread probability per exposed cell and tick")
	f.StringVar(&runObstacles, "obstacles", "block", "Obstacle policy for fire (block or conduct)")

	addWriterFlags(f, &runWriters)
}
