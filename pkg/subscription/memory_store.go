package subscription

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory Store for tests and local development.
type MemoryStore struct {
	mu    sync.RWMutex
	byOrg map[uuid.UUID]*Subscription
	byID  map[uuid.UUID]uuid.UUID
	now   func() time.Time
}

// NewMemoryStore returns a store preloaded with rows. Preloaded rows are not
// validated so legacy data can be represented.
func NewMemoryStore(subs ...*Subscription) *MemoryStore {
	s := &MemoryStore{
		byOrg: make(map[uuid.UUID]*Subscription, len(subs)),
		byID:  make(map[uuid.UUID]uuid.UUID, len(subs)),
		now:   func() time.Time { return time.Now().UTC() },
	}
	for _, sub := range subs {
		s.byOrg[sub.OrganizationID] = sub.Clone()
		s.byID[sub.ID] = sub.OrganizationID
	}
	return s
}

func (s *MemoryStore) GetByOrganization(_ context.Context, organizationID uuid.UUID) (*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	sub, ok := s.byOrg[organizationID]
	if !ok {
		return nil, ErrNotFound
	}
	return sub.Clone(), nil
}

func (s *MemoryStore) Create(_ context.Context, sub *Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byOrg[sub.OrganizationID]; ok {
		return ErrAlreadyExists
	}
	if _, ok := s.byID[sub.ID]; ok {
		return ErrAlreadyExists
	}

	c := sub.Clone()
	c.CreatedAt = s.now()
	c.UpdatedAt = c.CreatedAt
	s.byOrg[c.OrganizationID] = c
	s.byID[c.ID] = c.OrganizationID
	return nil
}

func (s *MemoryStore) Update(_ context.Context, sub *Subscription) error {
	if err := sub.Validate(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cur, ok := s.byOrg[sub.OrganizationID]
	if !ok || cur.ID != sub.ID {
		return ErrNotFound
	}

	c := sub.Clone()
	c.CreatedAt = cur.CreatedAt
	c.UpdatedAt = s.now()
	s.byOrg[c.OrganizationID] = c
	return nil
}

func (s *MemoryStore) ExpireTrial(_ context.Context, id uuid.UUID) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	org, ok := s.byID[id]
	if !ok {
		return false, nil
	}
	sub := s.byOrg[org]
	if !sub.Status.IsTrial() {
		return false, nil
	}
	sub.Status = StatusExpired
	sub.UpdatedAt = s.now()
	return true, nil
}

func (s *MemoryStore) ListInvalidTrials(_ context.Context) ([]*Subscription, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var result []*Subscription
	for _, sub := range s.byOrg {
		if sub.Status.IsTrial() && (sub.ModelID == nil || *sub.ModelID == uuid.Nil) {
			result = append(result, sub.Clone())
		}
	}
	return result, nil
}
