package search

import (
	"context"
	"encoding/json"
	"errors"
	"math/rand"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"uav-testgen/internal/fingerprint"
	"uav-testgen/internal/generator"
	"uav-testgen/internal/geometry"
	"uav-testgen/internal/ledger"
	"uav-testgen/internal/obstacle"
)

func newTestMutator(t *testing.T, gen generator.Generator, out Sink) *Mutator {
	t.Helper()
	return NewMutator(testConfig(), gen, "soi", t.TempDir(), out)
}

func TestMutateGatesInOrder(t *testing.T) {
	gen := &scripted{replies: []string{
		reply(t, overlapping()),
		reply(t, floating()),
		reply(t, outOfRange()),
		reply(t, validConfig(1)),
	}}
	rec := &recorder{}
	m := newTestMutator(t, gen, rec)

	got, err := m.Mutate(context.Background(), MutationInput{Previous: validConfig(0), Iteration: 4, Seed: 2})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if !reflect.DeepEqual(got.Config, validConfig(1)) {
		t.Fatalf("accepted %v, want %v", got.Config, validConfig(1))
	}
	if want := []string{GateOverlap, GateHeight, GateRange}; !reflect.DeepEqual(rec.gates(), want) {
		t.Fatalf("rejections = %v, want %v", rec.gates(), want)
	}
	if !strings.HasPrefix(gen.requests[1].Prompt, generator.OverlapPrefix) {
		t.Fatalf("overlap regeneration missing corrective prefix: %q", gen.requests[1].Prompt[:80])
	}
	if !strings.HasPrefix(gen.requests[2].Prompt, generator.HeightPrefix(m.MinHeight)) {
		t.Fatal("height regeneration missing corrective prefix")
	}
	if filepath.Base(got.Path) != "mission_iter4.yaml" {
		t.Fatalf("path = %s", got.Path)
	}
	saved, err := obstacle.ReadFile(got.Path)
	if err != nil {
		t.Fatalf("ReadFile: %v", err)
	}
	if fingerprint.Of(saved) != got.Fingerprint {
		t.Fatal("written file does not match the accepted fingerprint")
	}
}

func TestMutateRejectsDuplicate(t *testing.T) {
	ctx := context.Background()
	dir := fingerprint.NewMemoryDirectory()
	_ = dir.Add(ctx, fingerprint.Of(validConfig(0)))

	gen := &scripted{replies: []string{reply(t, validConfig(0)), reply(t, validConfig(1))}}
	rec := &recorder{}
	m := newTestMutator(t, gen, rec)

	got, err := m.Mutate(ctx, MutationInput{Previous: validConfig(0), Directory: dir, Iteration: 1})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if got.Fingerprint != fingerprint.Of(validConfig(1)) {
		t.Fatal("duplicate was accepted")
	}
	if !reflect.DeepEqual(rec.gates(), []string{GateDuplicate}) {
		t.Fatalf("rejections = %v", rec.gates())
	}
	if n, _ := dir.Len(ctx); n != 2 {
		t.Fatalf("directory holds %d fingerprints, want 2", n)
	}
	if !strings.HasPrefix(gen.requests[1].Prompt, generator.DuplicatePrefix) {
		t.Fatal("duplicate regeneration missing corrective prefix")
	}
}

func TestMutateGateExhaustion(t *testing.T) {
	bad := reply(t, overlapping())
	gen := &scripted{fallback: func(int) string { return bad }}
	rec := &recorder{}
	m := newTestMutator(t, gen, rec)

	_, err := m.Mutate(context.Background(), MutationInput{Previous: validConfig(0), Iteration: 3})
	if !errors.Is(err, ErrExhaustedRetries) {
		t.Fatalf("err = %v, want ErrExhaustedRetries", err)
	}
	var ge *GateError
	if !errors.As(err, &ge) || ge.Gate != GateOverlap || ge.Attempts != m.Params.MaxGateAttempts || ge.Iteration != 3 {
		t.Fatalf("unexpected gate error %#v", ge)
	}
	if gen.calls() != 1+m.Params.MaxGateAttempts {
		t.Fatalf("generator called %d times, want %d", gen.calls(), 1+m.Params.MaxGateAttempts)
	}
	if _, err := os.Stat(filepath.Join(m.Dir, "gen_config", "mission_iter3.yaml")); !os.IsNotExist(err) {
		t.Fatal("rejected candidate was written")
	}
}

func TestMutateEmptyReplyCountsAsAttempt(t *testing.T) {
	gen := &scripted{replies: []string{reply(t, overlapping()), "", reply(t, validConfig(1))}}
	rec := &recorder{}
	m := newTestMutator(t, gen, rec)

	if _, err := m.Mutate(context.Background(), MutationInput{Previous: validConfig(0)}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if want := []string{GateOverlap, GateOverlap}; !reflect.DeepEqual(rec.gates(), want) {
		t.Fatalf("rejections = %v, want %v", rec.gates(), want)
	}

	gen = &scripted{replies: []string{reply(t, overlapping()), ""}}
	m = newTestMutator(t, gen, &recorder{})
	m.Params.MaxGateAttempts = 1
	_, err := m.Mutate(context.Background(), MutationInput{Previous: validConfig(0)})
	var ge *GateError
	if !errors.As(err, &ge) || ge.Attempts != 1 {
		t.Fatalf("err = %v, want gate error after one attempt", err)
	}
}

func TestMutateEmptyFirstReply(t *testing.T) {
	m := newTestMutator(t, &scripted{replies: []string{"```yaml\n```"}}, &recorder{})
	_, err := m.Mutate(context.Background(), MutationInput{Previous: validConfig(0)})
	var pe *generator.ParseError
	if !errors.As(err, &pe) || !errors.Is(err, generator.ErrEmptyReply) {
		t.Fatalf("err = %v, want empty-reply parse error", err)
	}
}

func TestMutateCountGate(t *testing.T) {
	three := validConfig(1)
	three.Obstacles = append(three.Obstacles, box(-30, 35, 4, 4, 15))
	gen := &scripted{replies: []string{reply(t, three), reply(t, validConfig(2))}}
	rec := &recorder{}
	m := newTestMutator(t, gen, rec)

	got, err := m.Mutate(context.Background(), MutationInput{Previous: validConfig(0)})
	if err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if got.Config.Len() != 2 {
		t.Fatalf("accepted %d obstacles", got.Config.Len())
	}
	if !reflect.DeepEqual(rec.gates(), []string{GateCount}) {
		t.Fatalf("rejections = %v", rec.gates())
	}
	if !strings.HasPrefix(gen.requests[1].Prompt, generator.CountPrefix(2, 3)) {
		t.Fatal("count regeneration missing corrective prefix")
	}

	m.Params.EnforceObstacleCount = false
	gen.replies = append(gen.replies, reply(t, three))
	got, err = m.Mutate(context.Background(), MutationInput{Previous: validConfig(0)})
	if err != nil || got.Config.Len() != 3 {
		t.Fatalf("disabled count gate: %v, %d obstacles", err, got.Config.Len())
	}
}

func TestMutatePathGate(t *testing.T) {
	// A wall across the whole test area.
	wall := obstacle.Configuration{Obstacles: []obstacle.Obstacle{
		box(-22.5, 25, 35, 4, 15),
		box(12.5, 25, 35, 4, 15),
	}}
	gen := &scripted{replies: []string{reply(t, wall), reply(t, validConfig(1))}}
	rec := &recorder{}
	m := newTestMutator(t, gen, rec)
	m.Params.EnforcePathFeasibility = true
	m.Ranges[obstacle.FieldL] = geometry.Interval{Min: 2, Max: 40}

	if _, err := m.Mutate(context.Background(), MutationInput{Previous: validConfig(0)}); err != nil {
		t.Fatalf("Mutate: %v", err)
	}
	if !reflect.DeepEqual(rec.gates(), []string{GatePath}) {
		t.Fatalf("rejections = %v", rec.gates())
	}
}

func TestPromptBestWorst(t *testing.T) {
	m := newTestMutator(t, &scripted{}, &recorder{})
	l, err := ledger.Open(filepath.Join(t.TempDir(), "results.csv"))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	in := MutationInput{Trajectory: "traj", Previous: validConfig(0), Ledger: l}
	_ = l.Append(ledger.Record{Iteration: 0, Distance: 1.2, Obstacles: ledger.Summaries(validConfig(0))})
	if strings.Contains(m.Prompt(in), generator.BestWorstPreamble) {
		t.Fatal("first trial should not carry a best/worst summary")
	}
	_ = l.Append(ledger.Record{Iteration: 1, Distance: 0.4, Obstacles: ledger.Summaries(validConfig(1))})
	p := m.Prompt(in)
	if !strings.Contains(p, generator.BestWorstPreamble) || !strings.Contains(p, "best_test_case") {
		t.Fatalf("missing best/worst summary:\n%s", p)
	}
}

// adversary is a generator that answers each corrective prompt with a configuration fixing
// the complaint, but sometimes violates a gate that runs later.
type adversary struct {
	rng    *rand.Rand
	next   int
	issued []obstacle.Configuration
}

func (a *adversary) stage(prompt string) int {
	switch {
	case strings.HasPrefix(prompt, generator.DuplicatePrefix):
		return 0
	case strings.HasPrefix(prompt, generator.OverlapPrefix):
		return 1
	case strings.HasPrefix(prompt, "Some obstacles are not on the ground"):
		return 2
	case strings.HasPrefix(prompt, "Some obstacle parameters"):
		return 3
	}
	return -1
}

func (a *adversary) Generate(_ context.Context, req generator.Request) (string, error) {
	stage := a.stage(req.Prompt)
	var cfg obstacle.Configuration
	switch kind := a.rng.Intn(8); {
	case kind == 0 && stage < 0 && len(a.issued) > 0:
		cfg = a.issued[a.rng.Intn(len(a.issued))]
	case kind == 1 && stage < 1:
		cfg = overlapping()
	case kind == 2 && stage < 2:
		cfg = floating()
	case kind == 3 && stage < 3:
		cfg = outOfRange()
	default:
		a.next++
		cfg = validConfig(a.next)
		a.issued = append(a.issued, cfg)
	}
	b, err := json.Marshal(cfg)
	return string(b), err
}

func TestMutateAcceptedSatisfiesAllGates(t *testing.T) {
	ctx := context.Background()
	gen := &adversary{rng: rand.New(rand.NewSource(7))}
	m := newTestMutator(t, gen, &recorder{})
	m.Params.MaxGateAttempts = 20
	dir := fingerprint.NewMemoryDirectory()

	seen := map[string]bool{}
	for i := 1; i <= 40; i++ {
		got, err := m.Mutate(ctx, MutationInput{Previous: validConfig(0), Directory: dir, Iteration: i})
		if err != nil {
			t.Fatalf("iteration %d: %v", i, err)
		}
		cfg := got.Config
		if seen[got.Fingerprint] {
			t.Fatalf("iteration %d: duplicate accepted", i)
		}
		seen[got.Fingerprint] = true
		if geometry.AnyOverlap(cfg) {
			t.Fatalf("iteration %d: overlapping configuration accepted", i)
		}
		if !geometry.GroundAndHeightOK(cfg, m.MinHeight) {
			t.Fatalf("iteration %d: floating or short obstacle accepted", i)
		}
		if v := geometry.RangeViolations(cfg, m.Ranges); len(v) > 0 {
			t.Fatalf("iteration %d: range violations %v", i, v)
		}
		if cfg.Len() != 2 {
			t.Fatalf("iteration %d: %d obstacles", i, cfg.Len())
		}
	}
}
