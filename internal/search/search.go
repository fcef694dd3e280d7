// Package search turns generator output into validated, fitness-ranked obstacle
// configurations: the seed pool, the gated mutation loop and the budgeted campaign driver.
package search

import (
	"context"
	"fmt"
	"time"

	"uav-testgen/internal/ledger"
	"uav-testgen/internal/logging"
	"uav-testgen/internal/mission"
	"uav-testgen/internal/obstacle"
	"uav-testgen/internal/simulator"
	"uav-testgen/internal/sink"
)

// Sink receives every fitness record and search event.
type Sink interface {
	sink.FitnessWriter
	sink.EventWriter
}

// Seed is a boundary-valid seed configuration and, once simulated, its fitness record.
type Seed struct {
	ID     int                    `json:"id"`
	Path   string                 `json:"path"`
	Config obstacle.Configuration `json:"config"`
	Record ledger.Record          `json:"record"`
}

// execute runs cfg on sim and fills the fitness columns of a record.
func execute(ctx context.Context, sim simulator.Simulator, m mission.Mission, cfg obstacle.Configuration, now time.Time) (ledger.Record, error) {
	run, err := sim.Execute(ctx, m, cfg)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("simulate: %w", err)
	}
	dist, err := sim.MinClearance(ctx, run)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("min clearance of %s: %w", run.LogPath, err)
	}
	dur, err := sim.Duration(run.LogPath)
	if err != nil {
		return ledger.Record{}, fmt.Errorf("flight time of %s: %w", run.LogPath, err)
	}
	return ledger.Record{
		Distance:       dist,
		Time:           dur,
		TrajectoryPath: run.LogPath,
		Obstacles:      ledger.Summaries(cfg),
		Timestamp:      now,
	}, nil
}

func emit(ctx context.Context, s Sink, e sink.Event, now time.Time) {
	if s == nil {
		return
	}
	if e.Timestamp.IsZero() {
		e.Timestamp = now
	}
	if err := s.WriteEvent(e); err != nil {
		logging.FromContext(ctx).Warn("sink event write failed", "event", e.Type, "iteration", e.Iteration, "error", err)
	}
}
