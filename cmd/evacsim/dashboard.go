package main

import (
	"evacsim/internal/dashboard"

	"github.com/spf13/cobra"
)

var (
	dashboardOut      string
	dashboardDatabase string
)

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render the Grafana dashboard",
	Long:  "dashboard renders the Grafana dashboard for the GreptimeDB frame and run tables. GREPTIMEDB_DATASOURCE_UID must be set.",
	RunE: func(cmd *cobra.Command, args []string) error {
		data := dashboard.DefaultData()
		data.Database = cfg.Greptime.Database
		if dashboardDatabase != "" {
			data.Database = dashboardDatabase
		}
		if err := dashboard.Render(dashboardOut, data); err != nil {
			return err
		}
		logger.Info("dashboard rendered", "dir", dashboardOut)
		return nil
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "build", "Output directory")
	dashboardCmd.Flags().StringVar(&dashboardDatabase, "database", "", "GreptimeDB database, overrides greptime.database")
}
