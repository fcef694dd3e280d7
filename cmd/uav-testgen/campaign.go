package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"uav-testgen/internal/admin"
	"uav-testgen/internal/mission"
	"uav-testgen/internal/search"
)

var (
	campaignFlags     sessionFlags
	campaignAdminAddr string
)

var campaignCmd = &cobra.Command{
	Use:   "campaign",
	Short: "Run a full test generation campaign",
	Long: "campaign flies the mission without obstacles, builds and ranks the seed pool and then " +
		"spends the remaining simulation budget on gated mutations of the best seeds.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if campaignAdminAddr != "" {
			cfg.AdminAddr = campaignAdminAddr
		}

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		s, err := newSession(ctx, cfg, campaignFlags)
		if err != nil {
			return err
		}
		defer s.close()
		ctx = s.withLogger(ctx)

		if cfg.AdminAddr != "" {
			srv := admin.NewServer(s.campaign.Progress, cfg.Search.CrashThreshold)
			go func() {
				if err := srv.Start(ctx, cfg.AdminAddr); err != nil {
					s.log.Error("admin server failed", "error", err)
					if s.tui != nil {
						s.tui.SetAdminStatus(false)
					}
				}
			}()
			if s.tui != nil {
				s.tui.SetAdminStatus(true)
			}
		}

		res, runErr := s.campaign.Run(ctx)
		if res != nil {
			if err := writeResult(filepath.Join(s.dir, "result.json"), res); err != nil {
				s.log.Warn("write result", "error", err)
			}
		}
		// Leave the TUI before printing the summary.
		s.close()
		if res != nil {
			printResult(os.Stdout, res)
		}
		if errors.Is(runErr, context.Canceled) {
			fmt.Fprintln(os.Stderr, "campaign interrupted")
			return nil
		}
		return runErr
	},
}

func init() {
	addSessionFlags(campaignCmd, &campaignFlags)
	campaignCmd.Flags().StringVar(&campaignAdminAddr, "admin-addr", "", "Serve campaign status over HTTP on this address (e.g. :8080)")
}

func addSessionFlags(cmd *cobra.Command, f *sessionFlags) {
	cmd.Flags().BoolVar(&f.printOnly, "print-only", false, "Print fitness records as JSON lines to STDOUT instead of writing to GreptimeDB")
	cmd.Flags().BoolVar(&f.noTUI, "no-tui", false, "Print colored lines instead of the terminal UI")
	cmd.Flags().StringVar(&f.campaignID, "campaign-id", "", "Campaign identifier (random when empty)")
	cmd.Flags().StringVar(&f.mission, "mission", "", "Built-in mission name or mission YAML file")
	cmd.Flags().StringVar(&f.outputDir, "output", "", "Output directory (overrides config)")
	cmd.Flags().StringVar(&f.storeKind, "store", "", "Campaign archive backend: memory or sqlite")
	cmd.Flags().IntVar(&f.budget, "budget", 0, "Total simulation budget (overrides config)")
}

// lookupMission resolves name as a mission file first and a built-in mission second.
func lookupMission(name string) (mission.Mission, error) {
	if _, err := os.Stat(name); err == nil {
		m, err := mission.Load(name)
		if err != nil {
			return mission.Mission{}, fmt.Errorf("mission %s: %w", name, err)
		}
		return *m, nil
	}
	m, ok := mission.Lookup(name)
	if !ok {
		return mission.Mission{}, fmt.Errorf("unknown mission %q", name)
	}
	return m, nil
}

func writeResult(path string, res *search.Result) error {
	b, err := json.MarshalIndent(res, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, b, 0o644)
}

func printResult(out io.Writer, res *search.Result) {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "Campaign Result:")
	fmt.Fprintf(tw, "  Campaign\t%s\n", res.CampaignID)
	fmt.Fprintf(tw, "  Seeds\t%d (cost %d)\n", len(res.Seeds), res.SeedCost)
	fmt.Fprintf(tw, "  Iterations\t%d\n", res.Iterations)
	fmt.Fprintf(tw, "  Test cases\t%d\n", len(res.TestCases))
	fmt.Fprintf(tw, "  Best distance\t%.3f\n", res.Stats.Best)
	fmt.Fprintf(tw, "  Mean distance\t%.3f\n", res.Stats.Mean)
	fmt.Fprintf(tw, "  Crash-adjacent\t%d\n", res.Stats.CrashAdjacent)
	fmt.Fprintf(tw, "  Ledger\t%s\n", res.LedgerPath)
	tw.Flush()
}
