// Package simulator executes a mission against an obstacle configuration and reads back
// the flown trajectory.
package simulator

import (
	"context"
	"fmt"
	"path/filepath"

	"uav-testgen/internal/config"
	"uav-testgen/internal/mission"
	"uav-testgen/internal/obstacle"
)

// Run identifies one execution and the trajectory log it produced.
type Run struct {
	ID      string
	LogPath string
	Config  obstacle.Configuration
}

// PlotPath is the PNG rendered next to the trajectory log.
func (r Run) PlotPath() string {
	return r.LogPath[:len(r.LogPath)-len(filepath.Ext(r.LogPath))] + ".png"
}

// Simulator executes validated configurations.
type Simulator interface {
	Execute(ctx context.Context, m mission.Mission, cfg obstacle.Configuration) (Run, error)
	MinClearance(ctx context.Context, run Run) (float64, error)
	Duration(logPath string) (float64, error)
}

// New selects the backend named by cfg.Kind. Runs are written under dir/trajectories.
func New(cfg config.Simulator, dir string, plots bool) (Simulator, error) {
	out := filepath.Join(dir, "trajectories")
	switch cfg.Kind {
	case "", "kinematic":
		return NewKinematic(out, plots), nil
	case "command":
		if len(cfg.Command) == 0 {
			return nil, fmt.Errorf("simulator kind %q needs a command", cfg.Kind)
		}
		return NewCommand(cfg.Command, out, cfg.Timeout, plots), nil
	}
	return nil, fmt.Errorf("unknown simulator kind %q", cfg.Kind)
}

// logMetrics implements the log-derived half of Simulator for every backend.
type logMetrics struct{}

// MinClearance is the smallest distance between any trajectory sample and the run's obstacles.
func (logMetrics) MinClearance(ctx context.Context, run Run) (float64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	samples, err := ReadLogFile(run.LogPath)
	if err != nil {
		return 0, err
	}
	return MinClearance(samples, run.Config), nil
}

func (logMetrics) Duration(logPath string) (float64, error) {
	samples, err := ReadLogFile(logPath)
	if err != nil {
		return 0, err
	}
	return Duration(samples), nil
}
