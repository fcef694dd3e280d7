package search

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"uav-testgen/internal/config"
	"uav-testgen/internal/generator"
	"uav-testgen/internal/geometry"
	"uav-testgen/internal/ledger"
	"uav-testgen/internal/logging"
	"uav-testgen/internal/mission"
	"uav-testgen/internal/obstacle"
	"uav-testgen/internal/simulator"
	"uav-testgen/internal/sink"
)

// SeedPool generates, repairs, simulates and ranks the initial configurations.
type SeedPool struct {
	Gen      generator.Generator
	Sim      simulator.Simulator
	Mission  mission.Mission
	Boundary geometry.Boundary
	Ranges   geometry.Ranges
	Params   config.Search
	Dir      string
	Sink     Sink
	Now      func() time.Time
}

// NewSeedPool builds a pool for cfg writing under dir/seeds.
func NewSeedPool(cfg *config.Campaign, gen generator.Generator, sim simulator.Simulator, dir string, out Sink) *SeedPool {
	return &SeedPool{
		Gen:      gen,
		Sim:      sim,
		Mission:  cfg.Mission,
		Boundary: cfg.Boundary,
		Ranges:   cfg.Ranges,
		Params:   cfg.Search,
		Dir:      dir,
		Sink:     out,
		Now:      time.Now,
	}
}

func (p *SeedPool) seedDir() string { return filepath.Join(p.Dir, "seeds") }

// LedgerPath is the seed fitness ledger.
func (p *SeedPool) LedgerPath() string { return filepath.Join(p.seedDir(), "results.csv") }

// seedRanges widens the x range to the mission's lateral extent plus SeedXMargin on each side.
func (p *SeedPool) seedRanges() geometry.Ranges {
	out := make(geometry.Ranges, len(p.Ranges))
	for k, v := range p.Ranges {
		out[k] = v
	}
	if p.Params.SeedXMargin > 0 {
		lo, hi := p.Mission.XExtent()
		out[obstacle.FieldX] = geometry.Interval{Min: lo - p.Params.SeedXMargin, Max: hi + p.Params.SeedXMargin}
	}
	return out
}

func labels(seeds []Seed) []generator.Labeled {
	out := make([]generator.Labeled, len(seeds))
	for i, s := range seeds {
		out[i] = generator.Labeled{Path: s.Path, Config: s.Config}
	}
	return out
}

func removeSeeds(seeds []Seed) {
	for _, s := range seeds {
		_ = os.Remove(s.Path)
	}
}

// Generate asks for SeedCount configurations and repairs the ones outside the boundary until
// exactly SeedCount are valid. Rejected and surplus seed files are removed.
func (p *SeedPool) Generate(ctx context.Context, trajectory string) ([]Seed, error) {
	log := logging.FromContext(ctx)
	n := p.Params.SeedCount
	if err := os.RemoveAll(p.seedDir()); err != nil {
		return nil, fmt.Errorf("clear seed dir: %w", err)
	}
	if err := os.MkdirAll(p.seedDir(), 0o755); err != nil {
		return nil, err
	}
	system := generator.SeedSystemPrompt(p.Params.Obstacles, p.seedRanges())

	nextID := 1
	var valid, invalid, rejected []Seed
	// persist writes a batch and splits it by the boundary check.
	persist := func(batch []obstacle.Configuration) ([]Seed, error) {
		var bad []Seed
		for _, cfg := range batch {
			s := Seed{ID: nextID, Path: filepath.Join(p.seedDir(), fmt.Sprintf("base_config_%d.yaml", nextID)), Config: cfg}
			nextID++
			if err := obstacle.WriteFile(s.Path, cfg); err != nil {
				return nil, err
			}
			if geometry.WithinBoundary(cfg, p.Boundary) {
				valid = append(valid, s)
			} else {
				bad = append(bad, s)
			}
		}
		return bad, nil
	}

	prompt := generator.SeedPrompt(trajectory, n)
	log.Debug("seed prompt", "prompt", prompt)
	reply, err := p.Gen.Generate(ctx, generator.Request{System: system, Prompt: prompt})
	if err != nil {
		return nil, fmt.Errorf("seed generation: %w", err)
	}
	batch, err := generator.ParseConfigurations(reply)
	if err != nil {
		return nil, err
	}
	if invalid, err = persist(batch); err != nil {
		return nil, err
	}
	log.Info("seed batch verified", "valid", len(valid), "invalid", len(invalid))
	emit(ctx, p.Sink, sink.Event{Type: sink.EventSeedGenerated, Phase: PhaseSeed,
		Message: fmt.Sprintf("valid=%d invalid=%d", len(valid), len(invalid))}, p.Now())

	for round := 1; len(valid) < n; round++ {
		if round > p.Params.MaxRepairRounds {
			return nil, fmt.Errorf("seed repair: %d of %d valid after %d rounds: %w",
				len(valid), n, p.Params.MaxRepairRounds, ErrExhaustedRetries)
		}
		if len(invalid) > 0 {
			prompt = generator.RepairPrompt(labels(valid), labels(invalid), p.Boundary)
		} else {
			// Short batch: ask for the missing configurations.
			prompt = generator.SeedPrompt(trajectory, n-len(valid))
		}
		log.Info("repairing seeds", "round", round, "valid", len(valid), "invalid", len(invalid))
		log.Debug("repair prompt", "round", round, "prompt", prompt)
		emit(ctx, p.Sink, sink.Event{Type: sink.EventSeedRepair, Phase: PhaseSeed, Attempt: round,
			Message: fmt.Sprintf("valid=%d invalid=%d", len(valid), len(invalid))}, p.Now())

		reply, err := p.Gen.Generate(ctx, generator.Request{System: system, Prompt: prompt})
		if err != nil {
			return nil, fmt.Errorf("seed repair: %w", err)
		}
		batch, err := generator.ParseConfigurations(reply)
		if err != nil {
			var pe *generator.ParseError
			if errors.As(err, &pe) {
				log.Warn("unusable repair reply", "round", round, "error", err)
				continue
			}
			return nil, err
		}
		bad, err := persist(batch)
		if err != nil {
			return nil, err
		}
		rejected = append(rejected, invalid...)
		invalid = bad
	}

	removeSeeds(rejected)
	removeSeeds(invalid)
	removeSeeds(valid[n:])
	valid = valid[:n]
	log.Info("seed pool complete", "seeds", len(valid))
	return valid, nil
}

// Rank simulates every seed, appends it to the seed ledger and returns the selected seeds in
// ascending distance order together with the number of executions spent. The seed ledger
// is restarted on every call.
func (p *SeedPool) Rank(ctx context.Context, seeds []Seed) ([]Seed, int, error) {
	log := logging.FromContext(ctx)
	l, err := ledger.Create(p.LedgerPath())
	if err != nil {
		return nil, 0, err
	}
	scored := make([]Seed, 0, len(seeds))
	spent := 0
	for _, s := range seeds {
		if err := ctx.Err(); err != nil {
			return nil, 0, err
		}
		rec, err := execute(ctx, p.Sim, p.Mission, s.Config, p.Now())
		if err != nil {
			return nil, 0, fmt.Errorf("seed %d: %w", s.ID, err)
		}
		spent++
		rec.Iteration = s.ID
		rec.ConfigPath = s.Path
		rec.Phase = PhaseSeed
		rec.Seed = s.ID
		rec.CrashAdjacent = rec.Distance < p.Params.CrashThreshold
		if err := l.Append(rec); err != nil {
			return nil, 0, err
		}
		if p.Sink != nil {
			if err := p.Sink.Write(rec); err != nil {
				log.Warn("sink write failed", "error", err)
			}
		}
		log.Info("seed simulated", "seed", s.ID, "distance", rec.Distance, "time", rec.Time)
		s.Record = rec
		scored = append(scored, s)
	}

	sort.SliceStable(scored, func(i, j int) bool { return scored[i].Record.Distance < scored[j].Record.Distance })
	selected := p.selectSeeds(scored)
	if len(selected) == 0 && len(scored) > 0 {
		log.Warn("no seed below threshold, falling back to top seeds", "threshold", p.Params.SeedThreshold)
		selected = topK(scored, p.Params.TopSeeds)
	}
	for _, s := range selected {
		emit(ctx, p.Sink, sink.Event{Type: sink.EventSeedSelected, Phase: PhaseSeed, Seed: s.ID,
			Message: fmt.Sprintf("distance=%.3f path=%s", s.Record.Distance, s.Path)}, p.Now())
	}
	return selected, spent, nil
}

func (p *SeedPool) selectSeeds(ranked []Seed) []Seed {
	if p.Params.SeedThreshold <= 0 {
		return topK(ranked, p.Params.TopSeeds)
	}
	var out []Seed
	for _, s := range ranked {
		if s.Record.Distance < p.Params.SeedThreshold {
			out = append(out, s)
		}
	}
	return out
}

func topK(ranked []Seed, k int) []Seed {
	if k <= 0 || k > len(ranked) {
		k = len(ranked)
	}
	return append([]Seed(nil), ranked[:k]...)
}

// Build runs Generate then Rank.
func (p *SeedPool) Build(ctx context.Context, trajectory string) ([]Seed, int, error) {
	seeds, err := p.Generate(ctx, trajectory)
	if err != nil {
		return nil, 0, err
	}
	return p.Rank(ctx, seeds)
}
