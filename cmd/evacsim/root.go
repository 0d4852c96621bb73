package main

import (
	"fmt"
	"log/slog"
	"os"

	"evacsim/internal/config"
	"evacsim/internal/logging"

	"github.com/spf13/cobra"
)

var (
	configPath string
	schemaPath string
	logLevel   string

	cfg    *config.Config
	logger *slog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "evacsim",
	Short: "Fire evacuation simulation toolkit",
	Long:  "evacsim simulates occupants escaping a spreading fire on a floor plan grid, as an HTTP service or from the command line.",
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		var err error
		if configPath == "" {
			cfg = config.Default()
			cfg.ApplyEnv()
		} else if cfg, err = config.LoadWithSchema(configPath, schemaPath); err != nil {
			return fmt.Errorf("config load failed: %w", err)
		}
		if logLevel != "" {
			cfg.LogLevel = logLevel
		}
		if logger, err = logging.New(cfg.LogLevel); err != nil {
			return err
		}
		slog.SetDefault(logger)
		cmd.SetContext(logging.NewContext(cmd.Context(), logger))
		return nil
	},
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Path to service configuration YAML")
	rootCmd.PersistentFlags().StringVar(&schemaPath, "schema", "", "Path to a CUE schema overriding the embedded one")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(replayCmd)
	rootCmd.AddCommand(dashboardCmd)
}
