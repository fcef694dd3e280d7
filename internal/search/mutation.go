package search

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"uav-testgen/internal/config"
	"uav-testgen/internal/fingerprint"
	"uav-testgen/internal/generator"
	"uav-testgen/internal/geometry"
	"uav-testgen/internal/ledger"
	"uav-testgen/internal/logging"
	"uav-testgen/internal/mission"
	"uav-testgen/internal/obstacle"
	"uav-testgen/internal/sink"
)

// Mutator asks the generator for one mutated configuration per call and forces it through
// the validity gates.
type Mutator struct {
	Gen       generator.Generator
	Mission   mission.Mission
	Boundary  geometry.Boundary
	Ranges    geometry.Ranges
	MinHeight float64
	Params    config.Search
	SOI       string
	Dir       string
	Sink      Sink
	Now       func() time.Time
}

// NewMutator builds a mutator for cfg writing under dir/gen_config.
func NewMutator(cfg *config.Campaign, gen generator.Generator, soi, dir string, out Sink) *Mutator {
	return &Mutator{
		Gen:       gen,
		Mission:   cfg.Mission,
		Boundary:  cfg.Boundary,
		Ranges:    cfg.Ranges,
		MinHeight: cfg.MinHeight,
		Params:    cfg.Search,
		SOI:       soi,
		Dir:       dir,
		Sink:      out,
		Now:       time.Now,
	}
}

// MutationInput is the per-call state handed over by the campaign driver.
type MutationInput struct {
	Trajectory string
	Previous   obstacle.Configuration
	Ledger     *ledger.Ledger
	Directory  fingerprint.Directory
	Iteration  int
	Seed       int
}

// Mutation is an accepted candidate and the file it was written to.
type Mutation struct {
	Path        string
	Config      obstacle.Configuration
	Fingerprint string
}

// gate is one validity check; ok reports whether cfg passes and prefix is the corrective
// text prepended to the prompt otherwise.
type gate struct {
	name  string
	check func(ctx context.Context, cfg obstacle.Configuration) (ok bool, prefix string, err error)
	pass  func(ctx context.Context, cfg obstacle.Configuration) error
}

// Prompt renders the mutation prompt for in.
func (m *Mutator) Prompt(in MutationInput) string {
	prompt := generator.MutationPrompt(m.SOI, in.Trajectory, in.Previous.String())
	if in.Ledger == nil {
		return prompt
	}
	if first, summary := in.Ledger.BestWorst(); !first {
		prompt += generator.BestWorstPreamble + summary
	}
	return prompt
}

func (m *Mutator) gates(in MutationInput) []gate {
	want := in.Previous.Len()
	gs := []gate{
		{
			name: GateDuplicate,
			check: func(ctx context.Context, cfg obstacle.Configuration) (bool, string, error) {
				seen, err := in.Directory.Contains(ctx, fingerprint.Of(cfg))
				return !seen, generator.DuplicatePrefix, err
			},
			pass: func(ctx context.Context, cfg obstacle.Configuration) error {
				return in.Directory.Add(ctx, fingerprint.Of(cfg))
			},
		},
		{
			name: GateOverlap,
			check: func(_ context.Context, cfg obstacle.Configuration) (bool, string, error) {
				return !geometry.AnyOverlap(cfg), generator.OverlapPrefix, nil
			},
		},
		{
			name: GateHeight,
			check: func(_ context.Context, cfg obstacle.Configuration) (bool, string, error) {
				return geometry.GroundAndHeightOK(cfg, m.MinHeight), generator.HeightPrefix(m.MinHeight), nil
			},
		},
		{
			name: GateRange,
			check: func(_ context.Context, cfg obstacle.Configuration) (bool, string, error) {
				v := geometry.RangeViolations(cfg, m.Ranges)
				return len(v) == 0, generator.RangePrefix(v), nil
			},
		},
	}
	if m.Params.EnforceObstacleCount && want > 0 {
		gs = append(gs, gate{
			name: GateCount,
			check: func(_ context.Context, cfg obstacle.Configuration) (bool, string, error) {
				return cfg.Len() == want, generator.CountPrefix(want, cfg.Len()), nil
			},
		})
	}
	if m.Params.EnforcePathFeasibility {
		start := geometry.Point2{X: m.Mission.Start.X, Y: m.Mission.Start.Y}
		goal := geometry.Point2{X: m.Mission.Goal.X, Y: m.Mission.Goal.Y}
		gs = append(gs, gate{
			name: GatePath,
			check: func(_ context.Context, cfg obstacle.Configuration) (bool, string, error) {
				ok := geometry.PathFeasible(cfg, m.Boundary, start, goal, m.Params.PathClearance, m.Params.PathCell)
				return ok, generator.PathPrefix, nil
			},
		})
	}
	return gs
}

// Mutate requests a candidate, runs it through the duplicate, overlap, height and range gates
// (then the optional count and path gates) and persists the survivor as
// gen_config/mission_iter{N}.yaml. Each gate regenerates at most MaxGateAttempts times;
// earlier gates are not re-checked after a later one regenerates.
func (m *Mutator) Mutate(ctx context.Context, in MutationInput) (Mutation, error) {
	log := logging.FromContext(ctx).With("iteration", in.Iteration)
	if in.Directory == nil {
		in.Directory = fingerprint.NewMemoryDirectory()
	}
	system := generator.MutationSystemPrompt(m.Boundary, m.Ranges, m.MinHeight)
	prompt := m.Prompt(in)
	log.Debug("mutation prompt", "prompt", prompt)

	reply, err := m.Gen.Generate(ctx, generator.Request{System: system, Prompt: prompt})
	if err != nil {
		return Mutation{}, fmt.Errorf("mutation iteration %d: %w", in.Iteration, err)
	}
	cfg, err := generator.ParseConfiguration(reply)
	if err != nil {
		return Mutation{}, fmt.Errorf("mutation iteration %d: %w", in.Iteration, err)
	}

	for _, g := range m.gates(in) {
		cfg, err = m.runGate(ctx, g, in, system, prompt, cfg)
		if err != nil {
			return Mutation{}, err
		}
	}

	fp := fingerprint.Of(cfg)
	// The accepted candidate may differ from the one the duplicate gate admitted.
	if err := in.Directory.Add(ctx, fp); err != nil {
		return Mutation{}, err
	}
	path := filepath.Join(m.Dir, "gen_config", fmt.Sprintf("mission_iter%d.yaml", in.Iteration))
	if err := obstacle.WriteFile(path, cfg); err != nil {
		return Mutation{}, err
	}
	log.Info("mutation accepted", "path", path, "fingerprint", fp[:12])
	emit(ctx, m.Sink, sink.Event{Type: sink.EventAccepted, Phase: PhaseMutation, Iteration: in.Iteration,
		Seed: in.Seed, Message: path}, m.Now())
	return Mutation{Path: path, Config: cfg, Fingerprint: fp}, nil
}

func (m *Mutator) runGate(ctx context.Context, g gate, in MutationInput, system, prompt string, cfg obstacle.Configuration) (obstacle.Configuration, error) {
	log := logging.FromContext(ctx).With("iteration", in.Iteration, "gate", g.name)
	for attempt := 1; ; attempt++ {
		ok, prefix, err := g.check(ctx, cfg)
		if err != nil {
			return cfg, fmt.Errorf("%s gate: %w", g.name, err)
		}
		if ok {
			if g.pass != nil {
				if err := g.pass(ctx, cfg); err != nil {
					return cfg, fmt.Errorf("%s gate: %w", g.name, err)
				}
			}
			return cfg, nil
		}
		if attempt > m.Params.MaxGateAttempts {
			emit(ctx, m.Sink, sink.Event{Type: sink.EventGateRejected, Phase: PhaseMutation, Iteration: in.Iteration,
				Seed: in.Seed, Gate: g.name, Attempt: attempt - 1, Message: "exhausted"}, m.Now())
			return cfg, &GateError{Gate: g.name, Iteration: in.Iteration, Attempts: attempt - 1}
		}

		next := prefix + prompt
		log.Info("regenerating candidate", "attempt", attempt)
		log.Debug("regeneration prompt", "attempt", attempt, "prompt", next)
		emit(ctx, m.Sink, sink.Event{Type: sink.EventGateRejected, Phase: PhaseMutation, Iteration: in.Iteration,
			Seed: in.Seed, Gate: g.name, Attempt: attempt}, m.Now())

		reply, err := m.Gen.Generate(ctx, generator.Request{System: system, Prompt: next})
		if err != nil {
			return cfg, fmt.Errorf("%s gate: %w", g.name, err)
		}
		candidate, err := generator.ParseConfiguration(reply)
		if errors.Is(err, generator.ErrEmptyReply) {
			log.Warn("empty reply counts as a failed attempt", "attempt", attempt)
			continue
		}
		if err != nil {
			return cfg, fmt.Errorf("%s gate: %w", g.name, err)
		}
		cfg = candidate
	}
}
