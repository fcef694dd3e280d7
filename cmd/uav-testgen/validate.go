package main

import (
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"uav-testgen/internal/config"
	"uav-testgen/internal/geometry"
	"uav-testgen/internal/obstacle"
)

var validatePath bool

var validateCmd = &cobra.Command{
	Use:   "validate FILE...",
	Short: "Check obstacle configuration files against every validity predicate",
	Long: "validate reports the boundary, overlap, ground/height and parameter range checks for each " +
		"configuration file, and the path feasibility check with --path.",
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig(cmd)
		if err != nil {
			return err
		}
		invalid := 0
		for _, path := range args {
			c, err := obstacle.ReadFile(path)
			if err != nil {
				return err
			}
			problems := checkConfiguration(cfg, c, validatePath)
			printValidation(cmd.OutOrStdout(), path, problems)
			if len(problems) > 0 {
				invalid++
			}
		}
		if invalid > 0 {
			return fmt.Errorf("%d of %d configurations invalid", invalid, len(args))
		}
		return nil
	},
}

func init() {
	validateCmd.Flags().BoolVar(&validatePath, "path", false, "Also require a feasible route from mission start to goal")
}

// checkConfiguration returns one line per failed predicate.
func checkConfiguration(cfg *config.Campaign, c obstacle.Configuration, path bool) []string {
	var problems []string
	if !geometry.WithinBoundary(c, cfg.Boundary) {
		problems = append(problems, fmt.Sprintf("outside test area %s", cfg.Boundary))
	}
	if i, j, ok := geometry.OverlappingPair(c); ok {
		problems = append(problems, fmt.Sprintf("obstacles %d and %d overlap", i+1, j+1))
	}
	if !geometry.GroundAndHeightOK(c, cfg.MinHeight) {
		problems = append(problems, fmt.Sprintf("obstacle not grounded or not taller than %g m", cfg.MinHeight))
	}
	for _, v := range geometry.RangeViolations(c, cfg.Ranges) {
		problems = append(problems, v.String())
	}
	if path {
		start := geometry.Point2{X: cfg.Mission.Start.X, Y: cfg.Mission.Start.Y}
		goal := geometry.Point2{X: cfg.Mission.Goal.X, Y: cfg.Mission.Goal.Y}
		if !geometry.PathFeasible(c, cfg.Boundary, start, goal, cfg.Search.PathClearance, cfg.Search.PathCell) {
			problems = append(problems, "no feasible route from start to goal")
		}
	}
	return problems
}

func printValidation(out io.Writer, path string, problems []string) {
	if len(problems) == 0 {
		fmt.Fprintf(out, "%s: ok\n", path)
		return
	}
	fmt.Fprintf(out, "%s: invalid\n  - %s\n", path, strings.Join(problems, "\n  - "))
}
