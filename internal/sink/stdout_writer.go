package sink

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"text/tabwriter"
	"time"

	"uav-testgen/internal/config"
	"uav-testgen/internal/ledger"
)

const (
	colorReset   = "\x1b[0m"
	colorRed     = "\x1b[31m"
	colorGreen   = "\x1b[32m"
	colorYellow  = "\x1b[33m"
	colorBlue    = "\x1b[34m"
	colorMagenta = "\x1b[35m"
	colorCyan    = "\x1b[36m"
	colorGray    = "\x1b[90m"
)

func colorWhite() string { return "\x1b[37m" }

var phasePalette = map[string]string{
	"soi":      colorGray,
	"seed":     colorBlue,
	"mutation": colorMagenta,
}

// StdoutWriter prints records and events to STDOUT, colorized when attached to a terminal
// and as JSON lines otherwise.
type StdoutWriter struct {
	cfg       *config.Campaign
	out       io.Writer
	colorize  bool
	threshold float64
	once      sync.Once
}

// NewStdoutWriter creates a StdoutWriter writing to os.Stdout.
func NewStdoutWriter(cfg *config.Campaign, colorize bool) *StdoutWriter {
	w := &StdoutWriter{cfg: cfg, out: os.Stdout, colorize: colorize, threshold: 1.5}
	if cfg != nil {
		w.threshold = cfg.Search.CrashThreshold
	}
	return w
}

func (w *StdoutWriter) printOverview() {
	if w.cfg == nil || !w.colorize {
		return
	}
	c := w.cfg
	fmt.Fprintln(w.out, "Campaign Configuration:")
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "Name:\t%s\n", c.Name)
	fmt.Fprintf(tw, "Campaign ID:\t%s\n", c.CampaignID)
	fmt.Fprintf(tw, "Mission:\t%s (%.0f,%.0f) -> (%.0f,%.0f) alt %.1f\n",
		c.Mission.Name, c.Mission.Start.X, c.Mission.Start.Y, c.Mission.Goal.X, c.Mission.Goal.Y, c.Mission.Altitude)
	fmt.Fprintf(tw, "Boundary:\t%s\n", c.Boundary)
	fmt.Fprintf(tw, "Budget:\t%d\n", c.Search.Budget)
	fmt.Fprintf(tw, "Seeds:\t%d (top %d)\n", c.Search.SeedCount, c.Search.TopSeeds)
	fmt.Fprintf(tw, "Rounds per seed:\t%d\n", c.Search.RoundsPerSeed)
	fmt.Fprintf(tw, "Crash threshold:\t%.2f\n", c.Search.CrashThreshold)
	fmt.Fprintf(tw, "Generator:\t%s\n", c.Generator.Model)
	fmt.Fprintf(tw, "Simulator:\t%s\n", c.Simulator.Kind)
	tw.Flush()
	fmt.Fprintln(w.out)
}

func (w *StdoutWriter) printJSON(v any) error {
	data, err := json.Marshal(v)
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(w.out, string(data))
	return err
}

// Write outputs a single fitness record.
func (w *StdoutWriter) Write(rec ledger.Record) error {
	w.once.Do(w.printOverview)
	if !w.colorize {
		return w.printJSON(rec)
	}

	phaseColor, ok := phasePalette[rec.Phase]
	if !ok {
		phaseColor = colorWhite()
	}
	distColor := colorGreen
	switch {
	case rec.Distance == 0:
		distColor = colorRed
	case rec.Distance < w.threshold:
		distColor = colorYellow
	}

	fmt.Fprintf(w.out, "%s[%s]%s ", colorGray, rec.Timestamp.Format(time.RFC3339), colorReset)
	fmt.Fprintf(w.out, "%sphase=%s%s ", phaseColor, rec.Phase, colorReset)
	fmt.Fprintf(w.out, "%siter=%d%s ", colorWhite(), rec.Iteration, colorReset)
	fmt.Fprintf(w.out, "%sseed=%d%s ", colorBlue, rec.Seed, colorReset)
	fmt.Fprintf(w.out, "%sdistance=%.3f%s ", distColor, rec.Distance, colorReset)
	fmt.Fprintf(w.out, "%stime=%.1f%s ", colorCyan, rec.Time, colorReset)
	fmt.Fprintf(w.out, "%sconfig=%s%s", colorGray, rec.ConfigPath, colorReset)
	if rec.CrashAdjacent {
		fmt.Fprintf(w.out, " %scrash-adjacent%s", colorRed, colorReset)
	}
	fmt.Fprintln(w.out)
	return nil
}

// WriteBatch outputs multiple records.
func (w *StdoutWriter) WriteBatch(recs []ledger.Record) error {
	for _, r := range recs {
		if err := w.Write(r); err != nil {
			return err
		}
	}
	return nil
}

// WriteEvent prints a search event.
func (w *StdoutWriter) WriteEvent(e Event) error {
	w.once.Do(w.printOverview)
	if !w.colorize {
		return w.printJSON(e)
	}
	col := colorCyan
	switch e.Type {
	case EventGateRejected:
		col = colorYellow
	case EventSeedSelected, EventAccepted:
		col = colorGreen
	case EventEarlyStop, EventCampaignDone:
		col = colorMagenta
	}
	fmt.Fprintf(w.out, "%s[%s]%s %s%s%s iter=%d",
		colorGray, e.Timestamp.Format(time.RFC3339), colorReset,
		col, e.Type, colorReset, e.Iteration)
	if e.Gate != "" {
		fmt.Fprintf(w.out, " gate=%s attempt=%d", e.Gate, e.Attempt)
	}
	if e.Message != "" {
		fmt.Fprintf(w.out, " %s", e.Message)
	}
	fmt.Fprintln(w.out)
	return nil
}
