package search

import (
	"math"
	"sync"
	"time"

	"uav-testgen/internal/ledger"
)

// Campaign phases reported by Progress.
const (
	PhaseSOI      = "soi"
	PhaseSeed     = "seed"
	PhaseMutation = "mutation"
	PhaseDone     = "done"
)

// Status is a point-in-time view of a running campaign.
type Status struct {
	CampaignID   string    `json:"campaign_id"`
	Phase        string    `json:"phase"`
	Iteration    int       `json:"iteration"`
	Budget       int       `json:"budget"`
	SeedCost     int       `json:"seed_cost"`
	Seed         int       `json:"seed"`
	Records      int       `json:"records"`
	BestDistance *float64  `json:"best_distance,omitempty"`
	StartedAt    time.Time `json:"started_at"`
	Error        string    `json:"error,omitempty"`
}

// Progress tracks campaign state for concurrent readers such as the status server.
type Progress struct {
	mu      sync.RWMutex
	status  Status
	records []ledger.Record
	seeds   []Seed
}

// NewProgress returns a tracker for the given campaign.
func NewProgress(campaignID string, budget int, now time.Time) *Progress {
	return &Progress{status: Status{CampaignID: campaignID, Budget: budget, StartedAt: now}}
}

func (p *Progress) SetPhase(phase string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Phase = phase
}

func (p *Progress) SetIteration(iteration, seed int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Iteration = iteration
	p.status.Seed = seed
}

func (p *Progress) SetSeeds(seeds []Seed, cost int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.seeds = append([]Seed(nil), seeds...)
	p.status.SeedCost = cost
}

func (p *Progress) Fail(err error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.status.Error = err.Error()
}

// AddRecord appends rec and updates the best distance.
func (p *Progress) AddRecord(rec ledger.Record) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.records = append(p.records, rec)
	p.status.Records = len(p.records)
	if math.IsInf(rec.Distance, 0) || math.IsNaN(rec.Distance) {
		return
	}
	if p.status.BestDistance == nil || rec.Distance < *p.status.BestDistance {
		d := rec.Distance
		p.status.BestDistance = &d
	}
}

func (p *Progress) Status() Status {
	p.mu.RLock()
	defer p.mu.RUnlock()
	s := p.status
	if s.BestDistance != nil {
		d := *s.BestDistance
		s.BestDistance = &d
	}
	return s
}

func (p *Progress) Records() []ledger.Record {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]ledger.Record(nil), p.records...)
}

func (p *Progress) Seeds() []Seed {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]Seed(nil), p.seeds...)
}
