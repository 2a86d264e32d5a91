package snapshot

import (
	"cmp"
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/dppkit/dppkit/pkg/manifest"
	"github.com/dppkit/dppkit/pkg/plan"
)

type generation struct {
	planID  uuid.UUID
	takenAt time.Time
	values  map[manifest.EntitlementKey]plan.Limit
}

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu          sync.RWMutex
	generations map[uuid.UUID][]generation
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{generations: make(map[uuid.UUID][]generation)}
}

func (s *MemoryStore) Take(_ context.Context, subscriptionID, planID uuid.UUID, values map[manifest.EntitlementKey]plan.Limit) (int, error) {
	if subscriptionID == uuid.Nil {
		return 0, errors.Join(ErrInvalidSnapshot, errors.New("subscription id is required"))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.generations[subscriptionID] = append(s.generations[subscriptionID], generation{
		planID:  planID,
		takenAt: time.Now().UTC(),
		values:  maps.Clone(values),
	})
	return len(s.generations[subscriptionID]), nil
}

func (s *MemoryStore) Get(_ context.Context, subscriptionID uuid.UUID, key manifest.EntitlementKey) (Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gens := s.generations[subscriptionID]
	if len(gens) == 0 {
		return Entry{}, ErrNoSnapshot
	}
	g := gens[len(gens)-1]
	v, ok := g.values[key]
	if !ok {
		return Entry{}, ErrNotFound
	}
	return Entry{
		SubscriptionID: subscriptionID,
		PlanID:         g.planID,
		Generation:     len(gens),
		Key:            key,
		Value:          v,
		TakenAt:        g.takenAt,
	}, nil
}

func (s *MemoryStore) List(_ context.Context, subscriptionID uuid.UUID) ([]Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	gens := s.generations[subscriptionID]
	if len(gens) == 0 {
		return nil, ErrNoSnapshot
	}
	g := gens[len(gens)-1]
	result := make([]Entry, 0, len(g.values))
	for k, v := range g.values {
		result = append(result, Entry{
			SubscriptionID: subscriptionID,
			PlanID:         g.planID,
			Generation:     len(gens),
			Key:            k,
			Value:          v,
			TakenAt:        g.takenAt,
		})
	}
	slices.SortFunc(result, func(a, b Entry) int { return cmp.Compare(a.Key, b.Key) })
	return result, nil
}
