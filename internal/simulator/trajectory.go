package simulator

import (
	"encoding/json"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"strings"

	"uav-testgen/internal/geometry"
	"uav-testgen/internal/obstacle"
)

// Sample is one trajectory point. Timestamps are microseconds since the start of the flight.
type Sample struct {
	Timestamp int64   `json:"timestamp"`
	X         float64 `json:"x"`
	Y         float64 `json:"y"`
	Z         float64 `json:"z"`
}

// ReadLog decodes JSONL samples from r and calls fn for each.
func ReadLog(r io.Reader, fn func(Sample) error) error {
	dec := json.NewDecoder(r)
	for {
		var s Sample
		if err := dec.Decode(&s); err != nil {
			if err == io.EOF {
				return nil
			}
			return fmt.Errorf("decode trajectory: %w", err)
		}
		if err := fn(s); err != nil {
			return err
		}
	}
}

// ReadLogFile opens a trajectory log and returns its samples.
func ReadLogFile(path string) ([]Sample, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	var out []Sample
	err = ReadLog(f, func(s Sample) error {
		out = append(out, s)
		return nil
	})
	return out, err
}

// WriteLogFile writes samples as JSONL, creating parent directories.
func WriteLogFile(path string, samples []Sample) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	enc := json.NewEncoder(f)
	for _, s := range samples {
		if err := enc.Encode(s); err != nil {
			f.Close()
			return err
		}
	}
	return f.Close()
}

// Duration is the flight time in seconds between the first and the last sample.
func Duration(samples []Sample) float64 {
	if len(samples) < 2 {
		return 0
	}
	return float64(samples[len(samples)-1].Timestamp-samples[0].Timestamp) / 1e6
}

// MinClearance is the smallest distance from any sample to cfg. An empty trajectory or
// configuration yields +Inf.
func MinClearance(samples []Sample, cfg obstacle.Configuration) float64 {
	best := math.Inf(1)
	for _, s := range samples {
		best = math.Min(best, geometry.MinClearance(cfg, s.X, s.Y, s.Z))
	}
	return best
}

// Summarize renders at most about budget samples, one per interval of max(1, n/budget)
// seconds, as "Timestamp: t, X: x, Y: y, Z: z" lines.
func Summarize(samples []Sample, budget int) string {
	interval := int64(1)
	if budget > 0 && len(samples) >= budget {
		interval = int64(len(samples) / budget)
	}
	var b strings.Builder
	var prev int64
	for i, s := range samples {
		if i > 0 && s.Timestamp-prev < interval*1_000_000 {
			continue
		}
		fmt.Fprintf(&b, "Timestamp: %d, X: %.3f, Y: %.3f, Z: %.3f\n", s.Timestamp, s.X, s.Y, s.Z)
		prev = s.Timestamp
	}
	return b.String()
}

// SummarizeFile reads path and summarises it with budget.
func SummarizeFile(path string, budget int) (string, error) {
	samples, err := ReadLogFile(path)
	if err != nil {
		return "", err
	}
	return Summarize(samples, budget), nil
}
