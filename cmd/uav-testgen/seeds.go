package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"uav-testgen/internal/search"
)

var seedsFlags sessionFlags

var seedsCmd = &cobra.Command{
	Use:   "seeds",
	Short: "Generate, repair and rank the seed pool only",
	Long:  "seeds flies the mission without obstacles, asks for the seed configurations, repairs the ones outside the test area and ranks them by distance.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		// The seed phase is short; colored lines replace the TUI.
		seedsFlags.noTUI = true
		s, err := newSession(ctx, cfg, seedsFlags)
		if err != nil {
			return err
		}
		defer s.close()

		seeds, cost, _, err := s.campaign.Seeds(s.withLogger(ctx))
		if err != nil {
			return err
		}
		printSeeds(os.Stdout, seeds, cost)
		return nil
	},
}

func init() {
	addSessionFlags(seedsCmd, &seedsFlags)
}

func printSeeds(out io.Writer, seeds []search.Seed, cost int) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Selected seeds (%d simulations):\n", cost)
	fmt.Fprintln(tw, "  ID\tDistance\tTime\tConfig\tTrajectory")
	for _, s := range seeds {
		fmt.Fprintf(tw, "  %d\t%.3f\t%.1f\t%s\t%s\n", s.ID, s.Record.Distance, s.Record.Time, s.Path, s.Record.TrajectoryPath)
	}
	tw.Flush()
}
