package trial

import (
	"cmp"
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/dppkit/dppkit/pkg/manifest"
)

type featureKey struct {
	model uuid.UUID
	key   manifest.Key
}

type entitlementKey struct {
	model uuid.UUID
	key   manifest.EntitlementKey
}

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu           sync.RWMutex
	features     map[featureKey]FeatureOverride
	entitlements map[entitlementKey]EntitlementOverride
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		features:     make(map[featureKey]FeatureOverride),
		entitlements: make(map[entitlementKey]EntitlementOverride),
	}
}

func (s *MemoryStore) FeatureOverride(_ context.Context, modelID uuid.UUID, key manifest.Key) (FeatureOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.features[featureKey{modelID, key}]
	if !ok {
		return FeatureOverride{}, ErrNotFound
	}
	return o, nil
}

func (s *MemoryStore) EntitlementOverride(_ context.Context, modelID uuid.UUID, key manifest.EntitlementKey) (EntitlementOverride, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	o, ok := s.entitlements[entitlementKey{modelID, key}]
	if !ok {
		return EntitlementOverride{}, ErrNotFound
	}
	return o, nil
}

func (s *MemoryStore) ListByModel(_ context.Context, modelID uuid.UUID) (Overrides, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result Overrides
	for k, o := range s.features {
		if k.model == modelID {
			result.Features = append(result.Features, o)
		}
	}
	for k, o := range s.entitlements {
		if k.model == modelID {
			result.Entitlements = append(result.Entitlements, o)
		}
	}
	slices.SortFunc(result.Features, func(a, b FeatureOverride) int { return cmp.Compare(a.Key, b.Key) })
	slices.SortFunc(result.Entitlements, func(a, b EntitlementOverride) int { return cmp.Compare(a.Key, b.Key) })
	return result, nil
}

func (s *MemoryStore) SetFeatureOverride(_ context.Context, o FeatureOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.features[featureKey{o.ModelID, o.Key}] = o
	return nil
}

func (s *MemoryStore) SetEntitlementOverride(_ context.Context, o EntitlementOverride) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entitlements[entitlementKey{o.ModelID, o.Key}] = o
	return nil
}

func (s *MemoryStore) DeleteFeatureOverride(_ context.Context, modelID uuid.UUID, key manifest.Key) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.features, featureKey{modelID, key})
	return nil
}

func (s *MemoryStore) DeleteEntitlementOverride(_ context.Context, modelID uuid.UUID, key manifest.EntitlementKey) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.entitlements, entitlementKey{modelID, key})
	return nil
}
