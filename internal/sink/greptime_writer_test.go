package sink

import (
	"context"
	"testing"

	gpb "github.com/GreptimeTeam/greptime-proto/go/greptime/v1"
	"github.com/GreptimeTeam/greptimedb-ingester-go/table"
)

type mockGreptimeClient struct {
	table *table.Table
	calls int
}

func (m *mockGreptimeClient) Write(ctx context.Context, tables ...*table.Table) (*gpb.GreptimeResponse, error) {
	m.calls++
	if len(tables) > 0 {
		m.table = tables[0]
	}
	return &gpb.GreptimeResponse{}, nil
}

func TestGreptimeWriterRecords(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, campaignID: "c1", table: "uav_fitness"}

	if err := w.Write(sampleRecord()); err != nil {
		t.Fatalf("Write: %v", err)
	}
	if m.table == nil {
		t.Fatalf("expected table to be captured")
	}
	rows := m.table.GetRows()
	if len(rows.Schema) != 11 {
		t.Fatalf("unexpected schema length: %d", len(rows.Schema))
	}
	if rows.Schema[4].ColumnName != "distance" || rows.Schema[4].Datatype != gpb.ColumnDataType_FLOAT64 {
		t.Fatalf("distance column = %v", rows.Schema[4])
	}
	vals := rows.Rows[0].Values
	if got := vals[0].GetStringValue(); got != "c1" {
		t.Fatalf("campaign_id = %s, want c1", got)
	}
	if got := vals[1].GetStringValue(); got != "mutation" {
		t.Fatalf("phase = %s, want mutation", got)
	}
	if got := vals[4].GetF64Value(); got != 0.75 {
		t.Fatalf("distance = %v, want 0.75", got)
	}
	if !vals[6].GetBoolValue() {
		t.Fatalf("crash_adjacent should be true")
	}
}

func TestGreptimeWriterEmptyBatch(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, table: "uav_fitness"}
	if err := w.WriteBatch(nil); err != nil {
		t.Fatalf("WriteBatch: %v", err)
	}
	if m.calls != 0 {
		t.Fatalf("empty batch should not reach the client")
	}
}

func TestGreptimeWriterEvents(t *testing.T) {
	m := &mockGreptimeClient{}
	w := &GreptimeDBWriter{client: m, campaignID: "c1", eventTable: "uav_search_events"}
	if err := w.WriteEvent(Event{Type: EventGateRejected, Gate: "range", Attempt: 2, Iteration: 9}); err != nil {
		t.Fatalf("WriteEvent: %v", err)
	}
	vals := m.table.GetRows().Rows[0].Values
	if got := vals[1].GetStringValue(); got != string(EventGateRejected) {
		t.Fatalf("event_type = %s", got)
	}
	if got := vals[3].GetStringValue(); got != "range" {
		t.Fatalf("gate = %s, want range", got)
	}
	if got := vals[5].GetI64Value(); got != 9 {
		t.Fatalf("iteration = %d, want 9", got)
	}

	w.eventTable = ""
	m.calls = 0
	_ = w.WriteEvent(Event{Type: EventAccepted})
	if m.calls != 0 {
		t.Fatalf("disabled event table should not write")
	}
}

func TestSplitEndpoint(t *testing.T) {
	cases := []struct {
		in   string
		host string
		port int
	}{
		{"localhost", "localhost", defaultGreptimePort},
		{"db.local:5001", "db.local", 5001},
	}
	for _, tc := range cases {
		host, port, err := splitEndpoint(tc.in)
		if err != nil {
			t.Fatalf("splitEndpoint(%q): %v", tc.in, err)
		}
		if host != tc.host || port != tc.port {
			t.Errorf("splitEndpoint(%q) = %s:%d, want %s:%d", tc.in, host, port, tc.host, tc.port)
		}
	}
	if _, _, err := splitEndpoint("db:abc"); err == nil {
		t.Fatal("expected error for non-numeric port")
	}
}
