package main

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"uav-testgen/internal/sink"
)

var (
	replayInput      string
	replaySpeed      float64
	replayPrintOnly  bool
	replayCampaignID string
)

var replayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Replay a fitness record log",
	Long:  "replay feeds fitness records from a campaign records.jsonl back into GreptimeDB or STDOUT.",
	RunE: func(cmd *cobra.Command, args []string) error {
		if replayInput == "" {
			return fmt.Errorf("input file required")
		}
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		if replayCampaignID != "" {
			cfg.CampaignID = replayCampaignID
		}
		writer, _, cleanup, err := newWriters(cfg, writerOptions{
			PrintOnly:  replayPrintOnly,
			CampaignID: cfg.CampaignID,
		})
		if err != nil {
			return err
		}
		defer cleanup()

		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()
		n, err := sink.ReplayRecordsFile(ctx, replayInput, writer, replaySpeed)
		fmt.Fprintf(cmd.ErrOrStderr(), "replayed %d records\n", n)
		return err
	},
}

func init() {
	replayCmd.Flags().StringVar(&replayInput, "input", "", "Path to records.jsonl")
	replayCmd.Flags().Float64Var(&replaySpeed, "speed", 0, "Playback speed multiplier (0 sends without delay)")
	replayCmd.Flags().BoolVar(&replayPrintOnly, "print-only", false, "Print records to STDOUT instead of writing to GreptimeDB")
	replayCmd.Flags().StringVar(&replayCampaignID, "campaign-id", "", "Campaign identifier tag for the replayed rows")
	replayCmd.MarkFlagRequired("input")
}
