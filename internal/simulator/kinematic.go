package simulator

import (
	"context"
	"math"
	"path/filepath"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r2"

	"uav-testgen/internal/geometry"
	"uav-testgen/internal/logging"
	"uav-testgen/internal/mission"
	"uav-testgen/internal/obstacle"
)

const (
	lookahead    = 3.0 // metres probed ahead of the vehicle
	safetyMargin = 1.0 // clearance the planner tries to keep at the probe point
	maxSteer     = 180 // degrees
	steerStep    = 15  // degrees
)

// Kinematic flies a constant-altitude, constant-speed leg from start to goal and sidesteps
// obstacles that come within the safety margin of a short lookahead probe. A sample with
// zero clearance is a crash and ends the flight.
type Kinematic struct {
	logMetrics
	Dir   string
	Plots bool
}

// NewKinematic writes trajectory logs under dir.
func NewKinematic(dir string, plots bool) *Kinematic {
	return &Kinematic{Dir: dir, Plots: plots}
}

func (k *Kinematic) Execute(ctx context.Context, m mission.Mission, cfg obstacle.Configuration) (Run, error) {
	if err := m.Validate(); err != nil {
		return Run{}, err
	}
	run := Run{ID: uuid.NewString(), Config: cfg.Clone()}
	run.LogPath = filepath.Join(k.Dir, run.ID+".jsonl")

	samples, crashed, err := Fly(ctx, m, cfg)
	if err != nil {
		return Run{}, err
	}
	if err := WriteLogFile(run.LogPath, samples); err != nil {
		return Run{}, err
	}
	logging.FromContext(ctx).Debug("kinematic flight finished",
		"run", run.ID, "samples", len(samples), "crashed", crashed, "duration_s", Duration(samples))
	if k.Plots {
		if err := PlotTrajectory(samples, cfg, m.Name, run.PlotPath()); err != nil {
			logging.FromContext(ctx).Warn("trajectory plot failed", "run", run.ID, "err", err)
		}
	}
	return run, nil
}

// Fly integrates the kinematic flight and reports whether it ended in a crash.
func Fly(ctx context.Context, m mission.Mission, cfg obstacle.Configuration) ([]Sample, bool, error) {
	pos := r2.Vec{X: m.Start.X, Y: m.Start.Y}
	goal := r2.Vec{X: m.Goal.X, Y: m.Goal.Y}
	alt := m.Start.Z + m.Altitude
	dt := 1 / m.SampleRateHz
	stepLen := m.Speed * dt
	maxSteps := int(math.Ceil(4*m.Length()/stepLen)) + 1

	clearanceAt := func(p r2.Vec) float64 { return geometry.MinClearance(cfg, p.X, p.Y, alt) }
	samples := make([]Sample, 0, maxSteps+1)
	emit := func(step int, p r2.Vec) {
		samples = append(samples, Sample{
			Timestamp: int64(math.Round(float64(step) * dt * 1e6)),
			X:         p.X,
			Y:         p.Y,
			Z:         alt,
		})
	}

	var side float64
	emit(0, pos)
	for step := 1; step <= maxSteps; step++ {
		if step%64 == 0 {
			if err := ctx.Err(); err != nil {
				return nil, false, err
			}
		}
		toGoal := r2.Sub(goal, pos)
		if r2.Norm(toGoal) <= stepLen {
			emit(step, goal)
			return samples, clearanceAt(goal) == 0, nil
		}
		var dir r2.Vec
		dir, side = steer(r2.Unit(toGoal), pos, side, clearanceAt)
		pos = r2.Add(pos, r2.Scale(stepLen, dir))
		emit(step, pos)
		if clearanceAt(pos) == 0 {
			return samples, true, nil
		}
	}
	return samples, false, nil
}

// steer returns dir when its lookahead probe is clear. Otherwise it deflects toward side
// (+1 counter-clockwise, -1 clockwise), choosing the side with more room when none is
// committed yet, and returns the smallest deflection whose probe is clear. The side stays
// committed until the direct heading is clear again.
func steer(dir, pos r2.Vec, side float64, clearanceAt func(r2.Vec) float64) (r2.Vec, float64) {
	probe := func(d r2.Vec) float64 { return clearanceAt(r2.Add(pos, r2.Scale(lookahead, d))) }
	if probe(dir) >= safetyMargin {
		return dir, 0
	}
	if side == 0 {
		side = -1
		if probe(deflect(dir, 1, 45)) >= probe(deflect(dir, -1, 45)) {
			side = 1
		}
	}
	best, bestClear := dir, probe(dir)
	for deg := steerStep; deg <= maxSteer; deg += steerStep {
		h := deflect(dir, side, float64(deg))
		c := probe(h)
		if c >= safetyMargin {
			return h, side
		}
		if c > bestClear {
			best, bestClear = h, c
		}
	}
	return best, side
}

func deflect(dir r2.Vec, side, deg float64) r2.Vec {
	return r2.Rotate(dir, side*deg*math.Pi/180, r2.Vec{})
}
