package registry

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"

	"github.com/dppkit/dppkit/pkg/manifest"
)

// MemoryStore is an in-memory Store. It is useful for tests and local development.
type MemoryStore struct {
	mu      sync.RWMutex
	entries map[manifest.Key]*Entry
}

// NewMemoryStore returns a MemoryStore holding copies of the given entries.
func NewMemoryStore(entries ...*Entry) *MemoryStore {
	s := &MemoryStore{entries: make(map[manifest.Key]*Entry, len(entries))}
	for _, e := range entries {
		if e == nil {
			continue
		}
		s.entries[e.Key] = e.Clone()
	}
	return s
}

func (s *MemoryStore) Get(_ context.Context, key manifest.Key) (*Entry, error) {
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()

	if !ok {
		return nil, ErrEntryNotFound
	}
	return e.Clone(), nil
}

func (s *MemoryStore) List(_ context.Context) ([]*Entry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	result := make([]*Entry, 0, len(s.entries))
	for _, e := range s.entries {
		result = append(result, e.Clone())
	}
	slices.SortFunc(result, func(a, b *Entry) int { return cmp.Compare(a.Key, b.Key) })
	return result, nil
}

func (s *MemoryStore) Save(_ context.Context, e *Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	c := e.Clone()
	c.UpdatedAt = time.Now().UTC()
	s.entries[e.Key] = c
	return nil
}
