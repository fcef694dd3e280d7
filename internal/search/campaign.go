package search

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"uav-testgen/internal/config"
	"uav-testgen/internal/fingerprint"
	"uav-testgen/internal/generator"
	"uav-testgen/internal/ledger"
	"uav-testgen/internal/logging"
	"uav-testgen/internal/obstacle"
	"uav-testgen/internal/simulator"
	"uav-testgen/internal/sink"
	"uav-testgen/internal/store"
)

// Campaign drives seed generation and the budgeted mutation search for one mission.
type Campaign struct {
	Cfg      *config.Campaign
	Gen      generator.Generator
	Sim      simulator.Simulator
	Store    store.Store
	Sink     Sink
	Progress *Progress
	Dir      string
	Now      func() time.Time
}

// Result is what a finished (or aborted) campaign produced.
type Result struct {
	CampaignID string          `json:"campaign_id"`
	SOI        string          `json:"-"`
	Seeds      []Seed          `json:"seeds"`
	SeedCost   int             `json:"seed_cost"`
	Iterations int             `json:"iterations"`
	TestCases  []ledger.Record `json:"test_cases"`
	Stats      ledger.Stats    `json:"stats"`
	LedgerPath string          `json:"ledger_path"`
}

// NewCampaign wires a campaign writing its artefacts under dir.
func NewCampaign(cfg *config.Campaign, gen generator.Generator, sim simulator.Simulator, st store.Store, out Sink, dir string) *Campaign {
	if out == nil {
		out = sink.Discard{}
	}
	return &Campaign{
		Cfg:      cfg,
		Gen:      gen,
		Sim:      sim,
		Store:    st,
		Sink:     out,
		Progress: NewProgress(cfg.CampaignID, cfg.Search.Budget, time.Now()),
		Dir:      dir,
		Now:      time.Now,
	}
}

// LedgerPath is the campaign fitness ledger.
func (c *Campaign) LedgerPath() string { return filepath.Join(c.Dir, "results.csv") }

// FlySOI flies the mission with no obstacles and returns the trajectory summaries used by
// the seed prompt and by every mutation prompt.
func (c *Campaign) FlySOI(ctx context.Context) (seedSummary, soi string, err error) {
	c.Progress.SetPhase(PhaseSOI)
	run, err := c.Sim.Execute(ctx, c.Cfg.Mission, obstacle.Configuration{})
	if err != nil {
		return "", "", fmt.Errorf("segment of interest: %w", err)
	}
	logging.FromContext(ctx).Info("segment of interest flown", "log", run.LogPath)
	seedSummary, err = simulator.SummarizeFile(run.LogPath, c.Cfg.Search.SeedSummaryBudget)
	if err != nil {
		return "", "", err
	}
	soi, err = simulator.SummarizeFile(run.LogPath, c.Cfg.Search.MutationSummaryBudget)
	if err != nil {
		return "", "", err
	}
	return seedSummary, soi, nil
}

// Seeds flies the segment of interest and builds the ranked seed pool.
func (c *Campaign) Seeds(ctx context.Context) (seeds []Seed, cost int, soi string, err error) {
	seedSummary, soi, err := c.FlySOI(ctx)
	if err != nil {
		return nil, 0, "", err
	}
	c.Progress.SetPhase(PhaseSeed)
	pool := NewSeedPool(c.Cfg, c.Gen, c.Sim, c.Dir, c.Sink)
	pool.Now = c.Now
	seeds, cost, err = pool.Build(ctx, seedSummary)
	if err != nil {
		return nil, 0, "", err
	}
	c.Progress.SetSeeds(seeds, cost)
	return seeds, cost, soi, nil
}

func (c *Campaign) directory() fingerprint.Directory {
	if c.Store != nil {
		return c.Store.Directory(c.Cfg.CampaignID)
	}
	return fingerprint.NewMemoryDirectory()
}

// Run executes the full campaign. On failure the partial result is returned with the error.
// Ledgers and generated configurations left in Dir by an earlier run are discarded.
func (c *Campaign) Run(ctx context.Context) (*Result, error) {
	log := logging.FromContext(ctx).With("campaign", c.Cfg.CampaignID)
	ctx = logging.NewContext(ctx, log)
	res := &Result{CampaignID: c.Cfg.CampaignID, LedgerPath: c.LedgerPath()}

	if err := os.RemoveAll(filepath.Join(c.Dir, "gen_config")); err != nil {
		return res, fmt.Errorf("clear generated configurations: %w", err)
	}

	if c.Store != nil {
		err := c.Store.SaveCampaign(ctx, store.Campaign{
			ID:        c.Cfg.CampaignID,
			Name:      c.Cfg.Name,
			Mission:   c.Cfg.Mission.Name,
			Budget:    c.Cfg.Search.Budget,
			StartedAt: c.Now(),
		})
		if err != nil {
			return res, fmt.Errorf("archive campaign: %w", err)
		}
	}

	seeds, cost, soi, err := c.Seeds(ctx)
	if err != nil {
		c.Progress.Fail(err)
		return res, err
	}
	res.Seeds, res.SeedCost, res.SOI = seeds, cost, soi
	if len(seeds) == 0 {
		return res, errors.New("seed pool is empty")
	}

	l, err := ledger.Create(c.LedgerPath())
	if err != nil {
		return res, err
	}
	err = c.search(ctx, l, seeds, cost, soi, res)
	res.Stats = ledger.Summarize(l.Records(), c.Cfg.Search.CrashThreshold)
	if err != nil {
		c.Progress.Fail(err)
		return res, err
	}
	c.Progress.SetPhase(PhaseDone)
	emit(ctx, c.Sink, sink.Event{Type: sink.EventCampaignDone, Iteration: res.Iterations,
		Message: fmt.Sprintf("test_cases=%d best=%.3f", len(res.TestCases), res.Stats.Best)}, c.Now())
	log.Info("campaign finished", "iterations", res.Iterations, "test_cases", len(res.TestCases),
		"best", res.Stats.Best, "crash_adjacent", res.Stats.CrashAdjacent)
	return res, nil
}

// search is the round-robin mutation loop. The iteration counter is compared with the
// remaining budget before each seed pass and before each round.
func (c *Campaign) search(ctx context.Context, l *ledger.Ledger, seeds []Seed, cost int, soi string, res *Result) error {
	log := logging.FromContext(ctx)
	p := c.Cfg.Search
	remaining := p.Budget - cost
	wrap := p.SeedWrap
	if wrap <= 0 || wrap > len(seeds) {
		wrap = len(seeds)
	}
	mut := NewMutator(c.Cfg, c.Gen, soi, c.Dir, c.Sink)
	mut.Now = c.Now
	dir := c.directory()
	c.Progress.SetPhase(PhaseMutation)

	iteration, seedIdx := 0, 0
	for iteration <= remaining {
		if err := ctx.Err(); err != nil {
			return err
		}
		seed := seeds[seedIdx]
		log.Info("selected seed", "seed", seed.ID, "path", seed.Path, "iteration", iteration)

		rec := seed.Record
		rec.Iteration = iteration
		rec.Phase = PhaseSeed
		if err := c.record(ctx, l, rec); err != nil {
			return err
		}
		working, trajectory := seed.Config, seed.Record.TrajectoryPath
		iteration++

		for round := 0; round < p.RoundsPerSeed && iteration <= remaining; round++ {
			c.Progress.SetIteration(iteration, seed.ID)
			summary, err := simulator.SummarizeFile(trajectory, p.MutationSummaryBudget)
			if err != nil {
				return err
			}
			m, err := mut.Mutate(ctx, MutationInput{
				Trajectory: summary,
				Previous:   working,
				Ledger:     l,
				Directory:  dir,
				Iteration:  iteration,
				Seed:       seed.ID,
			})
			if err != nil {
				res.Iterations = iteration
				return err
			}
			rec, err := execute(ctx, c.Sim, c.Cfg.Mission, m.Config, c.Now())
			if err != nil {
				res.Iterations = iteration
				return fmt.Errorf("iteration %d: %w", iteration, err)
			}
			rec.Iteration = iteration
			rec.ConfigPath = m.Path
			rec.Phase = PhaseMutation
			rec.Seed = seed.ID
			rec.CrashAdjacent = rec.Distance < p.CrashThreshold
			if rec.Distance != 0 {
				res.TestCases = append(res.TestCases, rec)
			}
			if err := c.record(ctx, l, rec); err != nil {
				return err
			}
			if c.Store != nil {
				if err := c.Store.SaveConfiguration(ctx, c.Cfg.CampaignID, m.Fingerprint, m.Path, m.Config); err != nil {
					return fmt.Errorf("archive configuration: %w", err)
				}
			}
			log.Info("mutation executed", "iteration", iteration, "seed", seed.ID, "distance", rec.Distance, "time", rec.Time)
			working, trajectory = m.Config, rec.TrajectoryPath
			iteration++
			if rec.Distance > p.CrashThreshold {
				emit(ctx, c.Sink, sink.Event{Type: sink.EventEarlyStop, Phase: PhaseMutation, Iteration: rec.Iteration,
					Seed: seed.ID, Message: fmt.Sprintf("distance=%.3f", rec.Distance)}, c.Now())
				break
			}
		}

		seedIdx++
		if seedIdx == wrap {
			seedIdx = 0
		}
	}
	res.Iterations = iteration
	return nil
}

func (c *Campaign) record(ctx context.Context, l *ledger.Ledger, rec ledger.Record) error {
	if err := l.Append(rec); err != nil {
		return fmt.Errorf("ledger: %w", err)
	}
	c.Progress.AddRecord(rec)
	if err := c.Sink.Write(rec); err != nil {
		logging.FromContext(ctx).Warn("sink write failed", "iteration", rec.Iteration, "error", err)
	}
	return nil
}
