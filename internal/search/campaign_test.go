package search

import (
	"bytes"
	"context"
	"errors"
	"math"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"strings"
	"testing"
	"time"

	"uav-testgen/internal/ledger"
	"uav-testgen/internal/logging"
	"uav-testgen/internal/obstacle"
	"uav-testgen/internal/sink"
	"uav-testgen/internal/store"
)

// campaignGenerator answers the seed request with three valid seeds and every mutation
// request with a fresh valid configuration.
func campaignGenerator(t *testing.T) *scripted {
	seeds := reply(t, []obstacle.Configuration{validConfig(1), validConfig(2), validConfig(3)})
	return &scripted{
		replies: []string{seeds},
		fallback: func(n int) string {
			return reply(t, validConfig(10+n))
		},
	}
}

func newTestCampaign(t *testing.T, gen *scripted, sim *stubSim, st store.Store, rec *recorder) *Campaign {
	t.Helper()
	cfg := testConfig()
	cfg.Search.Budget = 9
	c := NewCampaign(cfg, gen, sim, st, rec, sim.dir)
	fixed := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	c.Now = func() time.Time { return fixed }
	return c
}

func TestCampaignRun(t *testing.T) {
	ctx := context.Background()
	st := store.NewMemoryStore()
	if err := st.Init(ctx); err != nil {
		t.Fatalf("Init: %v", err)
	}
	dir := t.TempDir()
	// Seeds score 2.0, 0.5 and 1.0; the mutations follow.
	sim := newStubSim(dir, 2.0, 0.5, 1.0, 1.0, 0, 2.0, 0.3, 0.8)
	rec := &recorder{}
	c := newTestCampaign(t, campaignGenerator(t), sim, st, rec)

	res, err := c.Run(ctx)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if res.SeedCost != 3 || res.Iterations != 7 {
		t.Fatalf("seed cost %d, iterations %d", res.SeedCost, res.Iterations)
	}
	if got := seedIDs(res.Seeds); !reflect.DeepEqual(got, []int{2, 3}) {
		t.Fatalf("seeds = %v", got)
	}

	rows := ledgerRows(t, res.LedgerPath)
	wantIter := []int{0, 1, 2, 3, 4, 5, 6}
	wantDist := []float64{0.5, 1.0, 0, 2.0, 1.0, 0.3, 0.8}
	for i, r := range rows {
		if i >= len(wantIter) || r.Iteration != wantIter[i] || r.Distance != wantDist[i] {
			t.Fatalf("ledger rows = %+v", rows)
		}
	}
	if len(rows) != len(wantIter) {
		t.Fatalf("ledger has %d rows, want %d", len(rows), len(wantIter))
	}

	if len(res.TestCases) != 4 {
		t.Fatalf("test cases = %d, want 4", len(res.TestCases))
	}
	for _, tc := range res.TestCases {
		if tc.Distance == 0 {
			t.Fatal("zero-distance run kept as a test case")
		}
	}
	for _, n := range []int{1, 2, 3, 5, 6} {
		path := filepath.Join(dir, "gen_config", "mission_iter"+strconv.Itoa(n)+".yaml")
		if _, err := os.Stat(path); err != nil {
			t.Fatalf("missing %s", path)
		}
	}
	if _, err := os.Stat(filepath.Join(dir, "gen_config", "mission_iter4.yaml")); !os.IsNotExist(err) {
		t.Fatal("seed row iteration must not write a mutation file")
	}

	if res.Stats.Count != 7 || res.Stats.Best != 0 || res.Stats.Worst != 2.0 {
		t.Fatalf("stats = %+v", res.Stats)
	}
	st2 := c.Progress.Status()
	if st2.Phase != PhaseDone || st2.Records != 7 || st2.BestDistance == nil || *st2.BestDistance != 0 {
		t.Fatalf("status = %+v", st2)
	}

	saved, err := st.Configurations(ctx, c.Cfg.CampaignID)
	if err != nil || len(saved) != 5 {
		t.Fatalf("archived %d configurations, err %v", len(saved), err)
	}
	if _, ok, _ := st.GetCampaign(ctx, c.Cfg.CampaignID); !ok {
		t.Fatal("campaign not archived")
	}

	var early, done int
	for _, e := range rec.events {
		switch e.Type {
		case sink.EventEarlyStop:
			early++
			if e.Iteration != 3 {
				t.Fatalf("early stop at iteration %d, want 3", e.Iteration)
			}
		case sink.EventCampaignDone:
			done++
		}
	}
	if early != 1 || done != 1 {
		t.Fatalf("early stops %d, done events %d", early, done)
	}
	for _, r := range rec.records {
		if math.IsInf(r.Distance, 0) {
			t.Fatal("segment of interest flight reached the sink")
		}
	}
}

func TestCampaignRerunInSameDir(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	distances := []float64{2.0, 0.5, 1.0, 1.0, 0, 2.0, 0.3, 0.8}

	var res *Result
	var gen *scripted
	for run := 0; run < 2; run++ {
		gen = campaignGenerator(t)
		c := newTestCampaign(t, gen, newStubSim(dir, distances...), store.NewMemoryStore(), &recorder{})
		var err error
		if res, err = c.Run(ctx); err != nil {
			t.Fatalf("run %d: %v", run, err)
		}
	}

	if res.SeedCost != 3 || res.Iterations != 7 {
		t.Fatalf("second run: seed cost %d, iterations %d", res.SeedCost, res.Iterations)
	}
	if rows := ledgerRows(t, res.LedgerPath); len(rows) != 7 {
		t.Fatalf("campaign ledger has %d rows, want 7", len(rows))
	}
	if rows := ledgerRows(t, filepath.Join(dir, "seeds", "results.csv")); len(rows) != 3 {
		t.Fatalf("seed ledger has %d rows, want 3", len(rows))
	}
	if res.Stats.Count != 7 {
		t.Fatalf("stats mix both runs: %+v", res.Stats)
	}
	// Request 0 is the seed batch; request 1 is the first mutation.
	if len(gen.requests) < 2 || strings.Contains(gen.requests[1].Prompt, "best_test_case") {
		t.Fatal("first mutation of a rerun must be a first trial")
	}
}

func TestCampaignGateExhaustionReturnsPartialResult(t *testing.T) {
	seeds := reply(t, []obstacle.Configuration{validConfig(1), validConfig(2), validConfig(3)})
	bad := reply(t, overlapping())
	gen := &scripted{replies: []string{seeds}, fallback: func(int) string { return bad }}
	dir := t.TempDir()
	c := newTestCampaign(t, gen, newStubSim(dir, 2.0, 0.5, 1.0), nil, &recorder{})

	res, err := c.Run(context.Background())
	var ge *GateError
	if !errors.As(err, &ge) || ge.Gate != GateOverlap {
		t.Fatalf("err = %v, want overlap gate error", err)
	}
	if res == nil || res.Iterations != 1 || res.Stats.Count != 1 {
		t.Fatalf("partial result = %+v", res)
	}
	if c.Progress.Status().Error == "" {
		t.Fatal("progress does not report the failure")
	}
}

func TestCampaignCancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	dir := t.TempDir()
	c := newTestCampaign(t, campaignGenerator(t), newStubSim(dir, 2.0, 0.5, 1.0), nil, &recorder{})
	if _, err := c.Run(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
}

type failingEvents struct{ recorder }

func (*failingEvents) WriteEvent(sink.Event) error { return errors.New("event table offline") }

func TestEmitLogsSinkFailure(t *testing.T) {
	var buf bytes.Buffer
	ctx := logging.NewContext(context.Background(), logging.NewWithOptions(logging.Options{Output: &buf}))
	emit(ctx, &failingEvents{}, sink.Event{Type: sink.EventAccepted, Iteration: 4}, time.Now())
	out := buf.String()
	if !strings.Contains(out, "sink event write failed") || !strings.Contains(out, "event table offline") {
		t.Fatalf("event sink failure not logged:\n%s", out)
	}
}

func TestProgressBestIgnoresInfinity(t *testing.T) {
	p := NewProgress("c1", 10, time.Now())
	p.AddRecord(ledger.Record{Distance: math.Inf(1)})
	if p.Status().BestDistance != nil {
		t.Fatal("infinite distance set as best")
	}
	p.AddRecord(ledger.Record{Distance: 1.2})
	p.AddRecord(ledger.Record{Distance: 0.7})
	p.AddRecord(ledger.Record{Distance: 3})
	st := p.Status()
	if st.Records != 4 || *st.BestDistance != 0.7 {
		t.Fatalf("status = %+v", st)
	}
	*st.BestDistance = -1
	if *p.Status().BestDistance != 0.7 {
		t.Fatal("Status leaked internal state")
	}
}

func ledgerRows(t *testing.T, path string) []ledger.Record {
	t.Helper()
	l, err := ledger.Open(path)
	if err != nil {
		t.Fatalf("open ledger: %v", err)
	}
	return l.Records()
}
