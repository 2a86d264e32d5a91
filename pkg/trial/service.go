package trial

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dppkit/dppkit/pkg/manifest"
	"github.com/dppkit/dppkit/pkg/plan"
)

// ModelGetter looks up subscription models. plan.Store satisfies it.
type ModelGetter interface {
	GetModel(ctx context.Context, id uuid.UUID) (*plan.Model, error)
}

// Service is the validating admin write path for overrides.
type Service struct {
	manifest *manifest.Manifest
	models   ModelGetter
	store    Store
}

// NewService panics if any dependency is nil.
func NewService(m *manifest.Manifest, models ModelGetter, store Store) *Service {
	if m == nil || models == nil || store == nil {
		panic("trial: manifest, model getter and store are required")
	}
	return &Service{manifest: m, models: models, store: store}
}

// SetFeature creates or replaces a feature override.
// Core features cannot be overridden since they are always available.
func (s *Service) SetFeature(ctx context.Context, o FeatureOverride) error {
	def, ok := s.manifest.Lookup(o.Key)
	if !ok {
		return errors.Join(ErrInvalidOverride, manifest.ErrUnknownFeature, fmt.Errorf("key %q", o.Key))
	}
	if def.Core {
		return errors.Join(ErrInvalidOverride, fmt.Errorf("core feature %q cannot be overridden", o.Key))
	}
	if err := s.checkModel(ctx, o.ModelID); err != nil {
		return err
	}
	return s.store.SetFeatureOverride(ctx, o)
}

// SetEntitlement creates or replaces an entitlement override.
func (s *Service) SetEntitlement(ctx context.Context, o EntitlementOverride) error {
	if !s.manifest.IsEntitlement(o.Key) {
		return errors.Join(ErrInvalidOverride, manifest.ErrUnknownEntitlement, fmt.Errorf("key %q", o.Key))
	}
	if v, limited := o.Value.Value(); limited && v < 0 {
		return errors.Join(ErrInvalidOverride, fmt.Errorf("entitlement %q is negative", o.Key))
	}
	if err := s.checkModel(ctx, o.ModelID); err != nil {
		return err
	}
	return s.store.SetEntitlementOverride(ctx, o)
}

// ClearFeature removes a feature override.
func (s *Service) ClearFeature(ctx context.Context, modelID uuid.UUID, key manifest.Key) error {
	return s.store.DeleteFeatureOverride(ctx, modelID, key)
}

// ClearEntitlement removes an entitlement override.
func (s *Service) ClearEntitlement(ctx context.Context, modelID uuid.UUID, key manifest.EntitlementKey) error {
	return s.store.DeleteEntitlementOverride(ctx, modelID, key)
}

// List returns all overrides of a model.
func (s *Service) List(ctx context.Context, modelID uuid.UUID) (Overrides, error) {
	return s.store.ListByModel(ctx, modelID)
}

func (s *Service) checkModel(ctx context.Context, modelID uuid.UUID) error {
	if _, err := s.models.GetModel(ctx, modelID); err != nil {
		if errors.Is(err, plan.ErrModelNotFound) {
			return errors.Join(ErrInvalidOverride, err)
		}
		return fmt.Errorf("failed to load model %s: %w", modelID, err)
	}
	return nil
}
