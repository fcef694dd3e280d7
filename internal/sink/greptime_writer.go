package sink

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	greptime "github.com/GreptimeTeam/greptimedb-ingester-go"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table/types"

	"uav-testgen/internal/ledger"
)

const defaultGreptimePort = 4001

// greptimeClient is the subset of the ingester client the writer needs.
type greptimeClient interface {
	Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error)
}

// GreptimeDBWriter writes fitness records and search events to GreptimeDB via the
// ingester client.
type GreptimeDBWriter struct {
	client     greptimeClient
	campaignID string
	table      string
	eventTable string
	timeout    time.Duration
}

// NewGreptimeDBWriter connects to endpoint (host or host:port) and returns a writer for
// the given tables. An empty eventTable disables event export.
func NewGreptimeDBWriter(endpoint, database, campaignID, fitnessTable, eventTable string) (*GreptimeDBWriter, error) {
	host, port, err := splitEndpoint(endpoint)
	if err != nil {
		return nil, err
	}
	cfg := greptime.NewConfig(host).WithPort(port).WithDatabase(database)
	client, err := greptime.NewClient(cfg)
	if err != nil {
		return nil, fmt.Errorf("greptime client: %w", err)
	}
	return &GreptimeDBWriter{
		client:     client,
		campaignID: campaignID,
		table:      fitnessTable,
		eventTable: eventTable,
		timeout:    10 * time.Second,
	}, nil
}

func splitEndpoint(endpoint string) (string, int, error) {
	host, portStr, err := net.SplitHostPort(endpoint)
	if err != nil {
		// bare host
		return endpoint, defaultGreptimePort, nil
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return "", 0, fmt.Errorf("invalid greptime port %q: %w", portStr, err)
	}
	return host, port, nil
}

func (w *GreptimeDBWriter) writeContext() (context.Context, context.CancelFunc) {
	if w.timeout <= 0 {
		return context.WithCancel(context.Background())
	}
	return context.WithTimeout(context.Background(), w.timeout)
}

// Write inserts a single fitness record.
func (w *GreptimeDBWriter) Write(rec ledger.Record) error {
	return w.WriteBatch([]ledger.Record{rec})
}

// WriteBatch inserts multiple fitness records.
func (w *GreptimeDBWriter) WriteBatch(recs []ledger.Record) error {
	if len(recs) == 0 {
		return nil
	}
	tbl, err := w.fitnessTable(recs)
	if err != nil {
		return err
	}
	ctx, cancel := w.writeContext()
	defer cancel()
	if _, err := w.client.Write(ctx, tbl); err != nil {
		slog.Error("greptime write failed", "table", w.table, "error", err)
		return err
	}
	slog.Debug("greptime wrote rows", "table", w.table, "rows", len(recs))
	return nil
}

func (w *GreptimeDBWriter) fitnessTable(recs []ledger.Record) (*table.Table, error) {
	tbl, err := table.New(w.table)
	if err != nil {
		return nil, err
	}
	cols := []struct {
		name  string
		typ   types.ColumnType
		isTag bool
	}{
		{"campaign_id", types.STRING, true},
		{"phase", types.STRING, true},
		{"iteration", types.INT64, false},
		{"seed", types.INT64, false},
		{"distance", types.FLOAT64, false},
		{"flight_time", types.FLOAT64, false},
		{"crash_adjacent", types.BOOLEAN, false},
		{"config_path", types.STRING, false},
		{"trajectory_path", types.STRING, false},
		{"obstacles", types.STRING, false},
	}
	for _, c := range cols {
		if c.isTag {
			err = tbl.AddTagColumn(c.name, c.typ)
		} else {
			err = tbl.AddFieldColumn(c.name, c.typ)
		}
		if err != nil {
			return nil, err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return nil, err
	}
	for _, r := range recs {
		ts := r.Timestamp
		if ts.IsZero() {
			ts = time.Now()
		}
		if err := tbl.AddRow(
			w.campaignID,
			r.Phase,
			int64(r.Iteration),
			int64(r.Seed),
			r.Distance,
			r.Time,
			r.CrashAdjacent,
			r.ConfigPath,
			r.TrajectoryPath,
			obstacleColumn(r.Obstacles),
			ts,
		); err != nil {
			return nil, err
		}
	}
	return tbl, nil
}

func obstacleColumn(obs []ledger.ObstacleSummary) string {
	var s string
	for i, o := range obs {
		if i > 0 {
			s += "; "
		}
		s += fmt.Sprintf("obs%d size=%s position=%s", i+1, o.Size, o.Position)
	}
	return s
}

// WriteEvent inserts a search event row.
func (w *GreptimeDBWriter) WriteEvent(e Event) error {
	if w.eventTable == "" {
		return nil
	}
	tbl, err := table.New(w.eventTable)
	if err != nil {
		return err
	}
	if err := tbl.AddTagColumn("campaign_id", types.STRING); err != nil {
		return err
	}
	if err := tbl.AddTagColumn("event_type", types.STRING); err != nil {
		return err
	}
	for _, name := range []string{"phase", "gate", "message"} {
		if err := tbl.AddFieldColumn(name, types.STRING); err != nil {
			return err
		}
	}
	for _, name := range []string{"iteration", "seed", "attempt"} {
		if err := tbl.AddFieldColumn(name, types.INT64); err != nil {
			return err
		}
	}
	if err := tbl.AddTimestampColumn("ts", types.TIMESTAMP_MILLISECOND); err != nil {
		return err
	}
	ts := e.Timestamp
	if ts.IsZero() {
		ts = time.Now()
	}
	if err := tbl.AddRow(w.campaignID, string(e.Type), e.Phase, e.Gate, e.Message,
		int64(e.Iteration), int64(e.Seed), int64(e.Attempt), ts); err != nil {
		return err
	}
	ctx, cancel := w.writeContext()
	defer cancel()
	if _, err := w.client.Write(ctx, tbl); err != nil {
		slog.Error("greptime write failed", "table", w.eventTable, "error", err)
		return err
	}
	return nil
}
