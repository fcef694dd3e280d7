package fingerprint

import (
	"context"
	"sync"
)

// Directory is the campaign-lifetime set of accepted fingerprints. Entries are never removed.
type Directory interface {
	Contains(ctx context.Context, fp string) (bool, error)
	Add(ctx context.Context, fp string) error
	Len(ctx context.Context) (int, error)
}

// MemoryDirectory keeps fingerprints in a map guarded by a mutex.
type MemoryDirectory struct {
	mu  sync.RWMutex
	set map[string]struct{}
}

// NewMemoryDirectory returns an empty directory.
func NewMemoryDirectory() *MemoryDirectory {
	return &MemoryDirectory{set: make(map[string]struct{})}
}

func (d *MemoryDirectory) Contains(_ context.Context, fp string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.set[fp]
	return ok, nil
}

func (d *MemoryDirectory) Add(_ context.Context, fp string) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.set[fp] = struct{}{}
	return nil
}

func (d *MemoryDirectory) Len(_ context.Context) (int, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.set), nil
}
