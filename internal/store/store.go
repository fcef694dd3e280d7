// Package store archives campaigns, accepted configurations and fitness records, and
// backs the per-campaign fingerprint directory.
package store

import (
	"context"
	"fmt"
	"time"

	"uav-testgen/internal/fingerprint"
	"uav-testgen/internal/ledger"
	"uav-testgen/internal/obstacle"
)

// Campaign is the archived header of one run.
type Campaign struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Mission   string    `json:"mission"`
	Budget    int       `json:"budget"`
	StartedAt time.Time `json:"started_at"`
}

// SavedConfiguration is an accepted configuration with its fingerprint and file path.
type SavedConfiguration struct {
	Fingerprint string                 `json:"fingerprint"`
	Path        string                 `json:"path"`
	Config      obstacle.Configuration `json:"config"`
}

// Store persists campaign state.
type Store interface {
	Init(ctx context.Context) error
	SaveCampaign(ctx context.Context, c Campaign) error
	GetCampaign(ctx context.Context, id string) (Campaign, bool, error)
	SaveConfiguration(ctx context.Context, campaignID, fp, path string, cfg obstacle.Configuration) error
	Configurations(ctx context.Context, campaignID string) ([]SavedConfiguration, error)
	SaveRecord(ctx context.Context, campaignID string, rec ledger.Record) error
	Records(ctx context.Context, campaignID string) ([]ledger.Record, error)
	Directory(campaignID string) fingerprint.Directory
}

func NewStore(kind, sqlitePath string) (Store, error) {
	switch kind {
	case "", "memory":
		return NewMemoryStore(), nil
	case "sqlite":
		return NewSQLiteStore(sqlitePath), nil
	default:
		return nil, fmt.Errorf("unsupported store backend: %s", kind)
	}
}

func CloseIfSupported(store Store) error {
	closer, ok := store.(interface{ Close() error })
	if !ok {
		return nil
	}
	return closer.Close()
}

// RecordWriter archives fitness records of one campaign; it satisfies sink.FitnessWriter.
type RecordWriter struct {
	store      Store
	campaignID string
	timeout    time.Duration
}

// NewRecordWriter returns a writer saving records under campaignID.
func NewRecordWriter(s Store, campaignID string) *RecordWriter {
	return &RecordWriter{store: s, campaignID: campaignID, timeout: 5 * time.Second}
}

func (w *RecordWriter) Write(rec ledger.Record) error {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()
	return w.store.SaveRecord(ctx, w.campaignID, rec)
}
