package search

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"uav-testgen/internal/config"
	"uav-testgen/internal/generator"
	"uav-testgen/internal/ledger"
	"uav-testgen/internal/mission"
	"uav-testgen/internal/obstacle"
	"uav-testgen/internal/simulator"
	"uav-testgen/internal/sink"
)

func box(x, y, l, w, h float64) obstacle.Obstacle {
	return obstacle.Obstacle{Size: obstacle.Size{L: l, W: w, H: h}, Position: obstacle.Position{X: x, Y: y}}
}

// validConfig returns a two-obstacle configuration that passes every gate; k shifts the
// first obstacle so successive calls are distinct.
func validConfig(k int) obstacle.Configuration {
	return obstacle.Configuration{Obstacles: []obstacle.Obstacle{
		box(-20+float64(k)*0.05, 20, 4, 4, 15),
		box(10, 32, 4, 4, 15),
	}}
}

func overlapping() obstacle.Configuration {
	return obstacle.Configuration{Obstacles: []obstacle.Obstacle{box(0, 20, 10, 5, 15), box(5, 20, 10, 5, 15)}}
}

func floating() obstacle.Configuration {
	c := validConfig(0)
	c.Obstacles[0].Position.Z = 3
	return c
}

func outOfRange() obstacle.Configuration {
	c := validConfig(0)
	c.Obstacles[1].Size.L = 25
	return c
}

func outsideBoundary() obstacle.Configuration {
	return obstacle.Configuration{Obstacles: []obstacle.Obstacle{box(-40, 15, 4, 4, 15), box(10, 32, 4, 4, 15)}}
}

func reply(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	return "```json\n" + string(b) + "\n```"
}

// scripted replays replies in order and records every request.
type scripted struct {
	mu       sync.Mutex
	replies  []string
	fallback func(n int) string
	requests []generator.Request
}

func (s *scripted) Generate(_ context.Context, req generator.Request) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := len(s.requests)
	s.requests = append(s.requests, req)
	if n < len(s.replies) {
		return s.replies[n], nil
	}
	if s.fallback != nil {
		return s.fallback(n), nil
	}
	return "", fmt.Errorf("no reply scripted for request %d", n)
}

func (s *scripted) calls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.requests)
}

// stubSim writes a short straight log per run and reports scripted distances. Runs without
// obstacles report +Inf and do not consume the script.
type stubSim struct {
	dir       string
	distances []float64
	runs      int
	dist      map[string]float64
	executed  []obstacle.Configuration
}

func newStubSim(dir string, distances ...float64) *stubSim {
	return &stubSim{dir: dir, distances: distances, dist: make(map[string]float64)}
}

func (s *stubSim) Execute(_ context.Context, _ mission.Mission, cfg obstacle.Configuration) (simulator.Run, error) {
	id := fmt.Sprintf("run%d", len(s.dist)+1)
	path := filepath.Join(s.dir, "trajectories", id+".jsonl")
	samples := []simulator.Sample{
		{Timestamp: 0, X: 0, Y: 0, Z: 5},
		{Timestamp: 12_000_000, X: 0, Y: 25, Z: 5},
		{Timestamp: 25_000_000, X: 0, Y: 50, Z: 5},
	}
	if err := simulator.WriteLogFile(path, samples); err != nil {
		return simulator.Run{}, err
	}
	d := math.Inf(1)
	if cfg.Len() > 0 {
		if s.runs >= len(s.distances) {
			return simulator.Run{}, fmt.Errorf("no distance scripted for run %d", s.runs)
		}
		d = s.distances[s.runs]
		s.runs++
		s.executed = append(s.executed, cfg)
	}
	s.dist[id] = d
	return simulator.Run{ID: id, LogPath: path, Config: cfg}, nil
}

func (s *stubSim) MinClearance(_ context.Context, run simulator.Run) (float64, error) {
	return s.dist[run.ID], nil
}

func (s *stubSim) Duration(logPath string) (float64, error) {
	samples, err := simulator.ReadLogFile(logPath)
	if err != nil {
		return 0, err
	}
	return simulator.Duration(samples), nil
}

// recorder captures sink output.
type recorder struct {
	mu      sync.Mutex
	records []ledger.Record
	events  []sink.Event
}

func (r *recorder) Write(rec ledger.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.records = append(r.records, rec)
	return nil
}

func (r *recorder) WriteEvent(e sink.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, e)
	return nil
}

func (r *recorder) gates() []string {
	var out []string
	for _, e := range r.events {
		if e.Type == sink.EventGateRejected {
			out = append(out, e.Gate)
		}
	}
	return out
}

func testConfig() *config.Campaign {
	cfg := config.Default()
	cfg.CampaignID = "test"
	cfg.Search.SeedCount = 3
	cfg.Search.TopSeeds = 2
	cfg.Search.RoundsPerSeed = 3
	cfg.Search.MaxGateAttempts = 3
	cfg.Search.MaxRepairRounds = 2
	return &cfg
}

func isRepairRequest(req generator.Request) bool {
	return strings.Contains(req.Prompt, "Invalid configurations")
}
