package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"uav-testgen/internal/obstacle"
	"uav-testgen/internal/simulator"
)

var (
	summarizeBudget    int
	summarizeObstacles string
	summarizePlot      string
)

var summarizeCmd = &cobra.Command{
	Use:   "summarize LOG",
	Short: "Print the prompt summary of a trajectory log",
	Long: "summarize downsamples a trajectory log to the waypoint list handed to the generator and " +
		"reports the flight time, plus the minimum obstacle distance with --obstacles.",
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		samples, err := simulator.ReadLogFile(args[0])
		if err != nil {
			return err
		}
		out := cmd.OutOrStdout()
		fmt.Fprint(out, simulator.Summarize(samples, summarizeBudget))
		fmt.Fprintf(out, "samples: %d\nflight time: %.2f s\n", len(samples), simulator.Duration(samples))

		var cfg obstacle.Configuration
		if summarizeObstacles != "" {
			if cfg, err = obstacle.ReadFile(summarizeObstacles); err != nil {
				return err
			}
			fmt.Fprintf(out, "min distance: %.3f m\n", simulator.MinClearance(samples, cfg))
		}
		if summarizePlot != "" {
			if err := simulator.PlotTrajectory(samples, cfg, args[0], summarizePlot); err != nil {
				return err
			}
			fmt.Fprintf(out, "plot: %s\n", summarizePlot)
		}
		return nil
	},
}

func init() {
	summarizeCmd.Flags().IntVar(&summarizeBudget, "budget", 30, "Maximum number of waypoints in the summary")
	summarizeCmd.Flags().StringVar(&summarizeObstacles, "obstacles", "", "Obstacle configuration YAML to measure the distance against")
	summarizeCmd.Flags().StringVar(&summarizePlot, "plot", "", "Write a PNG plot of the trajectory to this path")
}
