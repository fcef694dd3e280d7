package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"uav-testgen/internal/config"
	"uav-testgen/internal/logging"
)

var (
	rootConfigPath string
	rootSchemaPath string
	rootLogLevel   string
	rootLogFormat  string
)

var rootCmd = &cobra.Command{
	Use:   "uav-testgen",
	Short: "Search-based obstacle test generation for UAV flight software",
	Long: "uav-testgen asks a text generator for obstacle configurations, validates them, flies them " +
		"in a simulator and keeps the ones that bring the UAV closest to a crash.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&rootConfigPath, "config", "config/campaign.yaml", "Path to campaign configuration YAML")
	rootCmd.PersistentFlags().StringVar(&rootSchemaPath, "schema", "", "Path to CUE schema file (embedded schema when empty)")
	rootCmd.PersistentFlags().StringVar(&rootLogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides config)")
	rootCmd.PersistentFlags().StringVar(&rootLogFormat, "log-format", "", "Log format: text or json (overrides config)")

	rootCmd.AddCommand(campaignCmd)
	rootCmd.AddCommand(seedsCmd)
	rootCmd.AddCommand(validateCmd)
	rootCmd.AddCommand(summarizeCmd)
	rootCmd.AddCommand(fingerprintCmd)
	rootCmd.AddCommand(dashboardCmd)
	rootCmd.AddCommand(replayCmd)
}

// loadConfig reads the campaign file, or returns the defaults plus environment overrides when
// --config was not given and the default file does not exist.
func loadConfig(cmd *cobra.Command) (*config.Campaign, error) {
	if !cmd.Flags().Changed("config") {
		if _, err := os.Stat(rootConfigPath); os.IsNotExist(err) {
			cfg := config.Default()
			if err := cfg.ApplyEnv(); err != nil {
				return nil, err
			}
			return &cfg, nil
		}
	}
	return config.Load(rootConfigPath, rootSchemaPath)
}

func newLogger(cfg *config.Campaign, out io.Writer) *slog.Logger {
	opts := logging.Options{Level: cfg.Logging.Level, Format: cfg.Logging.Format, Output: out}
	if rootLogLevel != "" {
		opts.Level = rootLogLevel
	}
	if rootLogFormat != "" {
		opts.Format = rootLogFormat
	}
	return logging.NewWithOptions(opts)
}
