package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"uav-testgen/internal/fingerprint"
	"uav-testgen/internal/obstacle"
)

var fingerprintCanonical bool

var fingerprintCmd = &cobra.Command{
	Use:   "fingerprint FILE...",
	Short: "Print the fingerprint of obstacle configuration files",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		out := cmd.OutOrStdout()
		seen := map[string]string{}
		for _, path := range args {
			cfg, err := obstacle.ReadFile(path)
			if err != nil {
				return err
			}
			fp := fingerprint.Of(cfg)
			fmt.Fprintf(out, "%s  %s", fp, path)
			if first, dup := seen[fp]; dup {
				fmt.Fprintf(out, "  (duplicate of %s)", first)
			} else {
				seen[fp] = path
			}
			fmt.Fprintln(out)
			if fingerprintCanonical {
				fmt.Fprintf(out, "  %s\n", fingerprint.Canonical(cfg))
			}
		}
		return nil
	},
}

func init() {
	fingerprintCmd.Flags().BoolVar(&fingerprintCanonical, "canonical", false, "Also print the canonical form that is hashed")
}
