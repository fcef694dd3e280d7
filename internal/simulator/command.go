package simulator

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"gopkg.in/yaml.v3"

	"uav-testgen/internal/logging"
	"uav-testgen/internal/mission"
	"uav-testgen/internal/obstacle"
)

// Command runs an external simulator process per execution. Argument placeholders
// {mission} and {log} are replaced with the mission file written for the run and the
// trajectory log the process must produce; both are also exported as UAVGEN_MISSION and
// UAVGEN_LOG.
type Command struct {
	logMetrics
	Argv    []string
	Dir     string
	Timeout time.Duration
	Plots   bool
}

// NewCommand writes run files under dir.
func NewCommand(argv []string, dir string, timeout time.Duration, plots bool) *Command {
	return &Command{Argv: argv, Dir: dir, Timeout: timeout, Plots: plots}
}

// missionFile is the document handed to the external simulator.
type missionFile struct {
	Mission   mission.Mission     `yaml:"mission"`
	Obstacles []obstacle.Obstacle `yaml:"obstacles"`
}

func (c *Command) Execute(ctx context.Context, m mission.Mission, cfg obstacle.Configuration) (Run, error) {
	run := Run{ID: uuid.NewString(), Config: cfg.Clone()}
	run.LogPath = filepath.Join(c.Dir, run.ID+".jsonl")
	missionPath := filepath.Join(c.Dir, run.ID+".mission.yaml")

	if err := os.MkdirAll(c.Dir, 0o755); err != nil {
		return Run{}, err
	}
	b, err := yaml.Marshal(missionFile{Mission: m, Obstacles: cfg.Obstacles})
	if err != nil {
		return Run{}, fmt.Errorf("encode mission: %w", err)
	}
	if err := os.WriteFile(missionPath, b, 0o644); err != nil {
		return Run{}, err
	}

	if c.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.Timeout)
		defer cancel()
	}
	args := make([]string, len(c.Argv))
	for i, a := range c.Argv {
		a = strings.ReplaceAll(a, "{mission}", missionPath)
		args[i] = strings.ReplaceAll(a, "{log}", run.LogPath)
	}
	cmd := exec.CommandContext(ctx, args[0], args[1:]...)
	cmd.Env = append(os.Environ(), "UAVGEN_MISSION="+missionPath, "UAVGEN_LOG="+run.LogPath)
	var stderr bytes.Buffer
	cmd.Stderr = &stderr

	start := time.Now()
	if err := cmd.Run(); err != nil {
		return Run{}, fmt.Errorf("simulator %s: %w: %s", args[0], err, strings.TrimSpace(stderr.String()))
	}
	if _, err := os.Stat(run.LogPath); err != nil {
		return Run{}, fmt.Errorf("simulator produced no trajectory log: %w", err)
	}
	logging.FromContext(ctx).Info("simulator run finished", "run", run.ID, "elapsed", time.Since(start))

	if c.Plots {
		samples, err := ReadLogFile(run.LogPath)
		if err == nil {
			err = PlotTrajectory(samples, cfg, m.Name, run.PlotPath())
		}
		if err != nil {
			logging.FromContext(ctx).Warn("trajectory plot failed", "run", run.ID, "err", err)
		}
	}
	return run, nil
}
