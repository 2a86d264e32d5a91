package registry

import (
	"context"
	"errors"

	"github.com/dppkit/dppkit/pkg/manifest"
	"github.com/dppkit/dppkit/pkg/plan"
)

// Service is the validating write path for the registry, used by seeding and
// super-admin tooling. The capability resolver reads the Store directly.
type Service struct {
	manifest *manifest.Manifest
	store    Store
}

// NewService panics if any dependency is nil.
func NewService(m *manifest.Manifest, store Store) *Service {
	if m == nil {
		panic("registry: manifest is required")
	}
	if store == nil {
		panic("registry: store is required")
	}
	return &Service{manifest: m, store: store}
}

// Register validates and saves an entry. Existing entries are replaced.
func (s *Service) Register(ctx context.Context, e *Entry) error {
	if e == nil {
		return errors.Join(ErrInvalidEntry, errors.New("entry cannot be nil"))
	}
	if err := e.Validate(s.manifest); err != nil {
		return err
	}
	return s.store.Save(ctx, e)
}

// SetEnabled flips the global kill-switch of a feature.
func (s *Service) SetEnabled(ctx context.Context, key manifest.Key, enabled bool) error {
	e, err := s.store.Get(ctx, key)
	if err != nil {
		return err
	}
	e.Enabled = enabled
	return s.store.Save(ctx, e)
}

// SetMinimumPlan changes the tier a feature is marketed at.
func (s *Service) SetMinimumPlan(ctx context.Context, key manifest.Key, tier plan.Tier) error {
	e, err := s.store.Get(ctx, key)
	if err != nil {
		return err
	}
	e.MinimumPlan = tier
	return s.Register(ctx, e)
}

// Configure replaces the typed configuration of a feature after validating it.
func (s *Service) Configure(ctx context.Context, key manifest.Key, cfg map[string]any) error {
	e, err := s.store.Get(ctx, key)
	if err != nil {
		return err
	}
	e.Config = cfg
	return s.Register(ctx, e)
}

// List returns all entries.
func (s *Service) List(ctx context.Context) ([]*Entry, error) {
	return s.store.List(ctx)
}
