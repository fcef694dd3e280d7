package store

import (
	"context"
	"errors"
	"sync"

	"uav-testgen/internal/fingerprint"
	"uav-testgen/internal/ledger"
	"uav-testgen/internal/obstacle"
)

var errNotInitialized = errors.New("store is not initialized")

type MemoryStore struct {
	mu          sync.RWMutex
	initialized bool
	campaigns   map[string]Campaign
	configs     map[string][]SavedConfiguration
	records     map[string][]ledger.Record
	dirs        map[string]*fingerprint.MemoryDirectory
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Init(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.initialized = true
	s.campaigns = make(map[string]Campaign)
	s.configs = make(map[string][]SavedConfiguration)
	s.records = make(map[string][]ledger.Record)
	s.dirs = make(map[string]*fingerprint.MemoryDirectory)
	return nil
}

func (s *MemoryStore) SaveCampaign(_ context.Context, c Campaign) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errNotInitialized
	}
	s.campaigns[c.ID] = c
	return nil
}

func (s *MemoryStore) GetCampaign(_ context.Context, id string) (Campaign, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	c, ok := s.campaigns[id]
	return c, ok, nil
}

func (s *MemoryStore) SaveConfiguration(_ context.Context, campaignID, fp, path string, cfg obstacle.Configuration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errNotInitialized
	}
	s.configs[campaignID] = append(s.configs[campaignID], SavedConfiguration{Fingerprint: fp, Path: path, Config: cfg.Clone()})
	return nil
}

func (s *MemoryStore) Configurations(_ context.Context, campaignID string) ([]SavedConfiguration, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]SavedConfiguration(nil), s.configs[campaignID]...), nil
}

func (s *MemoryStore) SaveRecord(_ context.Context, campaignID string, rec ledger.Record) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.initialized {
		return errNotInitialized
	}
	s.records[campaignID] = append(s.records[campaignID], rec)
	return nil
}

func (s *MemoryStore) Records(_ context.Context, campaignID string) ([]ledger.Record, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]ledger.Record(nil), s.records[campaignID]...), nil
}

// Directory returns the campaign's fingerprint set, creating it on first use.
func (s *MemoryStore) Directory(campaignID string) fingerprint.Directory {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.dirs == nil {
		s.dirs = make(map[string]*fingerprint.MemoryDirectory)
	}
	d, ok := s.dirs[campaignID]
	if !ok {
		d = fingerprint.NewMemoryDirectory()
		s.dirs[campaignID] = d
	}
	return d
}
