// Package ledger keeps the append-only CSV record of every executed configuration.
package ledger

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"uav-testgen/internal/obstacle"
)

// ObstacleSummary is the textual size and position of one obstacle.
type ObstacleSummary struct {
	Size     string `json:"size"`
	Position string `json:"position"`
}

// Summaries renders every obstacle of cfg.
func Summaries(cfg obstacle.Configuration) []ObstacleSummary {
	out := make([]ObstacleSummary, 0, len(cfg.Obstacles))
	for _, o := range cfg.Obstacles {
		out = append(out, ObstacleSummary{Size: o.SizeSummary(), Position: o.PositionSummary()})
	}
	return out
}

// Record is one executed configuration and its fitness. Only the CSV columns survive a
// round trip through the file; the remaining fields are carried for live sinks.
type Record struct {
	Iteration      int               `json:"iteration"`
	Distance       float64           `json:"distance"`
	Time           float64           `json:"time"`
	ConfigPath     string            `json:"config"`
	TrajectoryPath string            `json:"trajectory"`
	Obstacles      []ObstacleSummary `json:"obstacles"`

	Phase         string    `json:"phase,omitempty"`
	Seed          int       `json:"seed,omitempty"`
	CrashAdjacent bool      `json:"crash_adjacent"`
	Timestamp     time.Time `json:"timestamp"`
}

var baseHeader = []string{"iteration", "distance", "time", "config", "trajectory"}

// Header returns the CSV header for n obstacles.
func Header(n int) []string {
	h := append([]string(nil), baseHeader...)
	for i := 1; i <= n; i++ {
		h = append(h, fmt.Sprintf("obs%d-size", i), fmt.Sprintf("obs%d-position", i))
	}
	return h
}

func (r Record) row() []string {
	row := []string{
		strconv.Itoa(r.Iteration),
		strconv.FormatFloat(r.Distance, 'g', -1, 64),
		strconv.FormatFloat(r.Time, 'g', -1, 64),
		r.ConfigPath,
		r.TrajectoryPath,
	}
	for _, o := range r.Obstacles {
		row = append(row, o.Size, o.Position)
	}
	return row
}

func parseRow(row []string) (Record, error) {
	if len(row) < len(baseHeader) {
		return Record{}, fmt.Errorf("ledger row has %d columns, want at least %d", len(row), len(baseHeader))
	}
	var r Record
	var err error
	if r.Iteration, err = strconv.Atoi(row[0]); err != nil {
		return Record{}, fmt.Errorf("iteration: %w", err)
	}
	if r.Distance, err = strconv.ParseFloat(row[1], 64); err != nil {
		return Record{}, fmt.Errorf("distance: %w", err)
	}
	if r.Time, err = strconv.ParseFloat(row[2], 64); err != nil {
		return Record{}, fmt.Errorf("time: %w", err)
	}
	r.ConfigPath, r.TrajectoryPath = row[3], row[4]
	for i := len(baseHeader); i+1 < len(row); i += 2 {
		r.Obstacles = append(r.Obstacles, ObstacleSummary{Size: row[i], Position: row[i+1]})
	}
	return r, nil
}

// Ledger is a CSV file plus its rows in memory. The header is written once, sized by the
// obstacle count of the first record.
type Ledger struct {
	mu   sync.Mutex
	path string
	rows []Record
}

// Open loads path when it exists and prepares it for appends otherwise.
func Open(path string) (*Ledger, error) {
	l := &Ledger{path: path}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return l, nil
	}
	if err != nil {
		return nil, err
	}
	defer f.Close()
	rows, err := Read(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	l.rows = rows
	return l, nil
}

// Create starts an empty ledger at path, truncating any rows left by an earlier run.
func Create(path string) (*Ledger, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("reset ledger: %w", err)
	}
	return &Ledger{path: path}, nil
}

// Read parses a ledger CSV including its header.
func Read(r io.Reader) ([]Record, error) {
	cr := csv.NewReader(r)
	cr.FieldsPerRecord = -1
	var out []Record
	header := true
	for {
		row, err := cr.Read()
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		if header {
			header = false
			if len(row) > 0 && strings.EqualFold(row[0], baseHeader[0]) {
				continue
			}
		}
		rec, err := parseRow(row)
		if err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
}

// Path returns the CSV file path.
func (l *Ledger) Path() string { return l.path }

// Append writes r and keeps it in memory.
func (l *Ledger) Append(r Record) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if err := os.MkdirAll(filepath.Dir(l.path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(l.path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	info, err := f.Stat()
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if info.Size() == 0 {
		_ = w.Write(Header(len(r.Obstacles)))
	}
	_ = w.Write(r.row())
	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("append ledger: %w", err)
	}
	l.rows = append(l.rows, r)
	return nil
}

// Records returns a copy of every row.
func (l *Ledger) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Record(nil), l.rows...)
}

// Len returns the number of rows.
func (l *Ledger) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.rows)
}
