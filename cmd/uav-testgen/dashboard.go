package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"uav-testgen/internal/dashboard"
)

var dashboardOut string

var dashboardCmd = &cobra.Command{
	Use:   "dashboard",
	Short: "Render the Grafana dashboard for the GreptimeDB fitness tables",
	Long:  "dashboard renders the embedded Grafana dashboard; GREPTIMEDB_DATASOURCE_UID must name the Grafana datasource.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		paths, err := dashboard.Render(dashboardOut, dashboard.Tables{
			Database:   cfg.Greptime.Database,
			Fitness:    cfg.Greptime.Table,
			Events:     cfg.Greptime.EventTable,
			Threshold:  cfg.Search.CrashThreshold,
			CampaignID: cfg.CampaignID,
		})
		if err != nil {
			return err
		}
		for _, p := range paths {
			fmt.Fprintln(cmd.OutOrStdout(), p)
		}
		return nil
	},
}

func init() {
	dashboardCmd.Flags().StringVar(&dashboardOut, "out", "build", "Output directory for rendered dashboards")
}
