package ledger

import (
	"fmt"
	"math"
	"sort"
	"strings"

	"gonum.org/v1/gonum/floats"
)

func distances(rows []Record) []float64 {
	d := make([]float64, len(rows))
	for i, r := range rows {
		d[i] = r.Distance
	}
	return d
}

// BestWorst reports whether the ledger holds at most one row ("first trial") and otherwise
// renders the lowest-distance (best) and highest-distance (worst) rows for a prompt.
func (l *Ledger) BestWorst() (firstTrial bool, summary string) {
	rows := l.Records()
	if len(rows) <= 1 {
		return true, ""
	}
	d := distances(rows)
	best, worst := rows[floats.MinIdx(d)], rows[floats.MaxIdx(d)]
	var b strings.Builder
	writeCase(&b, "best_test_case", best)
	writeCase(&b, "worst_test_case", worst)
	return false, b.String()
}

func writeCase(b *strings.Builder, name string, r Record) {
	fmt.Fprintf(b, "%s:\n  distance: %g\n", name, r.Distance)
	for i, o := range r.Obstacles {
		fmt.Fprintf(b, "  obstacle%d: {size: %s, position: %s}\n", i+1, o.Size, o.Position)
	}
}

// Stats summarises the fitness column.
type Stats struct {
	Count         int     `json:"count"`
	Best          float64 `json:"best"`
	Worst         float64 `json:"worst"`
	Mean          float64 `json:"mean"`
	CrashAdjacent int     `json:"crash_adjacent"`
}

// Summarize computes Stats over rows; crash-adjacent rows have distance below threshold.
// Infinite distances (flights without obstacles) are left out of the mean.
func Summarize(rows []Record, threshold float64) Stats {
	s := Stats{Count: len(rows)}
	if len(rows) == 0 {
		return s
	}
	d := distances(rows)
	s.Best, s.Worst = floats.Min(d), floats.Max(d)
	finite := make([]float64, 0, len(d))
	for _, v := range d {
		if !math.IsInf(v, 0) && !math.IsNaN(v) {
			finite = append(finite, v)
		}
		if v < threshold {
			s.CrashAdjacent++
		}
	}
	if len(finite) > 0 {
		s.Mean = floats.Sum(finite) / float64(len(finite))
	}
	return s
}

// Ranked returns rows sorted ascending by distance, ties in insertion order.
func Ranked(rows []Record) []Record {
	out := append([]Record(nil), rows...)
	sort.SliceStable(out, func(i, j int) bool { return out[i].Distance < out[j].Distance })
	return out
}
