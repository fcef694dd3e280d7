// Package sink fans campaign output (fitness records and search events) out to stdout,
// files, GreptimeDB and the terminal UI.
package sink

import (
	"time"

	"uav-testgen/internal/ledger"
)

// FitnessWriter receives one record per executed configuration.
type FitnessWriter interface {
	Write(rec ledger.Record) error
}

// batchWriter is implemented by writers that can persist several records at once.
type batchWriter interface {
	WriteBatch(recs []ledger.Record) error
}

// EventWriter receives search events.
type EventWriter interface {
	WriteEvent(e Event) error
}

// EventType classifies a search event.
type EventType string

const (
	EventSeedGenerated EventType = "seed_generated"
	EventSeedRepair    EventType = "seed_repair"
	EventSeedSelected  EventType = "seed_selected"
	EventGateRejected  EventType = "gate_rejected"
	EventAccepted      EventType = "accepted"
	EventEarlyStop     EventType = "early_stop"
	EventCampaignDone  EventType = "campaign_done"
)

// Event is a single step of the search worth reporting outside the ledger.
type Event struct {
	Type      EventType `json:"type"`
	Phase     string    `json:"phase,omitempty"`
	Iteration int       `json:"iteration"`
	Seed      int       `json:"seed,omitempty"`
	Gate      string    `json:"gate,omitempty"`
	Attempt   int       `json:"attempt,omitempty"`
	Message   string    `json:"message,omitempty"`
	Timestamp time.Time `json:"timestamp"`
}

// Discard accepts and drops everything.
type Discard struct{}

func (Discard) Write(ledger.Record) error { return nil }
func (Discard) WriteEvent(Event) error    { return nil }
