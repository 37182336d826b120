package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/Weighting/internal/plan"
)

// MemoryStore is a process-local Store. Values are deep-copied in and out.
type MemoryStore struct {
	mu      sync.RWMutex
	subsets map[string]*SubsetPlans
	runs    map[uuid.UUID]*ReverseRun
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		subsets: make(map[string]*SubsetPlans),
		runs:    make(map[uuid.UUID]*ReverseRun),
	}
}

func (s *MemoryStore) Close() error { return nil }

func (s *MemoryStore) GetPlans(_ context.Context, subsetID string) (*SubsetPlans, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	sp, ok := s.subsets[subsetID]
	if !ok {
		return nil, nil
	}
	return copySubset(sp), nil
}

func (s *MemoryStore) SavePlans(_ context.Context, subsetID string, plans []plan.WeightingPlan) (*SubsetPlans, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	version := 1
	if prev, ok := s.subsets[subsetID]; ok {
		version = prev.Version + 1
	}
	sp := &SubsetPlans{SubsetID: subsetID, Plans: plan.Clone(plans), Version: version, UpdatedAt: time.Now().UTC()}
	s.subsets[subsetID] = sp
	return copySubset(sp), nil
}

func (s *MemoryStore) ListSubsets(_ context.Context) ([]*SubsetPlans, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]*SubsetPlans, 0, len(s.subsets))
	for _, sp := range s.subsets {
		out = append(out, copySubset(sp))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SubsetID < out[j].SubsetID })
	return out, nil
}

func (s *MemoryStore) CreateRun(_ context.Context, run *ReverseRun) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if run.ID == uuid.Nil {
		run.ID = uuid.New()
	}
	run.CreatedAt = time.Now().UTC()
	s.runs[run.ID] = copyRun(run)
	return nil
}

func (s *MemoryStore) GetRun(_ context.Context, id uuid.UUID) (*ReverseRun, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	run, ok := s.runs[id]
	if !ok {
		return nil, nil
	}
	return copyRun(run), nil
}

func copySubset(sp *SubsetPlans) *SubsetPlans {
	c := *sp
	c.Plans = plan.Clone(sp.Plans)
	return &c
}

func copyRun(run *ReverseRun) *ReverseRun {
	c := *run
	c.SubsetIDs = append([]string(nil), run.SubsetIDs...)
	c.Warnings = append([]string(nil), run.Warnings...)
	c.Errors = append([]string(nil), run.Errors...)
	c.Plans = make(map[string][]plan.WeightingPlan, len(run.Plans))
	for id, plans := range run.Plans {
		c.Plans[id] = plan.Clone(plans)
	}
	return &c
}
