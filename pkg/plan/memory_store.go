package plan

import (
	"context"
	"sync"

	"github.com/google/uuid"

	"github.com/dppkit/dppkit/pkg/manifest"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu     sync.RWMutex
	plans  map[uuid.UUID]*Plan
	models map[uuid.UUID]Model
}

// NewMemoryStore returns a MemoryStore seeded with deep copies of the given plans and models.
func NewMemoryStore(plans []*Plan, models []*Model) *MemoryStore {
	s := &MemoryStore{
		plans:  make(map[uuid.UUID]*Plan, len(plans)),
		models: make(map[uuid.UUID]Model, len(models)),
	}
	for _, p := range plans {
		s.plans[p.ID] = p.Clone()
	}
	for _, m := range models {
		s.models[m.ID] = *m
	}
	return s
}

func (s *MemoryStore) GetPlan(_ context.Context, id uuid.UUID) (*Plan, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.plans[id]
	if !ok {
		return nil, ErrPlanNotFound
	}
	return p.Clone(), nil
}

func (s *MemoryStore) GetModel(_ context.Context, id uuid.UUID) (*Model, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	m, ok := s.models[id]
	if !ok {
		return nil, ErrModelNotFound
	}
	return &m, nil
}

func (s *MemoryStore) SavePlan(_ context.Context, p *Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.plans[p.ID] = p.Clone()
	return nil
}

func (s *MemoryStore) SaveModel(_ context.Context, m *Model) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.plans[m.PlanID]; !ok {
		return ErrPlanNotFound
	}
	s.models[m.ID] = *m
	return nil
}

func (s *MemoryStore) SetEntitlement(_ context.Context, planID uuid.UUID, key manifest.EntitlementKey, value Limit) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.plans[planID]
	if !ok {
		return ErrPlanNotFound
	}
	if p.Entitlements == nil {
		p.Entitlements = make(map[manifest.EntitlementKey]Limit)
	}
	p.Entitlements[key] = value
	return nil
}
