package manifest

import (
	"errors"
	"fmt"
	"maps"
	"slices"
)

// Key identifies a boolean-gated feature.
type Key string

// EntitlementKey identifies a numeric usage limit.
type EntitlementKey string

// Definition is the static, compile-time description of a feature.
type Definition struct {
	Key      Key
	Core     bool
	Category Category
	Config   ConfigSchema
}

// ValidateConfig checks a registry configuration against the feature's schema.
func (d Definition) ValidateConfig(cfg map[string]any) error {
	return d.Config.Validate(cfg)
}

// Manifest is an immutable catalog of feature and entitlement keys.
// It is safe for concurrent use because nothing mutates it after New returns.
type Manifest struct {
	features     map[Key]Definition
	entitlements map[EntitlementKey]struct{}
}

// New builds a Manifest from feature definitions and entitlement keys.
func New(defs []Definition, entitlements []EntitlementKey) (*Manifest, error) {
	m := &Manifest{
		features:     make(map[Key]Definition, len(defs)),
		entitlements: make(map[EntitlementKey]struct{}, len(entitlements)),
	}

	for _, d := range defs {
		if d.Key == "" {
			return nil, ErrEmptyKey
		}
		if !d.Category.Valid() {
			return nil, errors.Join(ErrUnknownCategory, fmt.Errorf("feature %q has category %q", d.Key, d.Category))
		}
		if _, exists := m.features[d.Key]; exists {
			return nil, errors.Join(ErrDuplicateKey, fmt.Errorf("feature %q", d.Key))
		}
		d.Config = slices.Clone(d.Config)
		m.features[d.Key] = d
	}

	for _, k := range entitlements {
		if k == "" {
			return nil, ErrEmptyKey
		}
		if _, exists := m.entitlements[k]; exists {
			return nil, errors.Join(ErrDuplicateKey, fmt.Errorf("entitlement %q", k))
		}
		m.entitlements[k] = struct{}{}
	}

	return m, nil
}

// MustNew is like New but panics on an invalid catalog.
func MustNew(defs []Definition, entitlements []EntitlementKey) *Manifest {
	m, err := New(defs, entitlements)
	if err != nil {
		panic(fmt.Sprintf("manifest: %v", err))
	}
	return m
}

// Lookup returns the definition for key.
func (m *Manifest) Lookup(key Key) (Definition, bool) {
	d, ok := m.features[key]
	if ok {
		d.Config = slices.Clone(d.Config)
	}
	return d, ok
}

// IsCore reports whether key is a known core feature.
func (m *Manifest) IsCore(key Key) bool {
	d, ok := m.features[key]
	return ok && d.Core
}

// IsEntitlement reports whether key is a known entitlement key.
func (m *Manifest) IsEntitlement(key EntitlementKey) bool {
	_, ok := m.entitlements[key]
	return ok
}

// Keys returns all feature keys in lexical order.
func (m *Manifest) Keys() []Key {
	return slices.Sorted(maps.Keys(m.features))
}

// EntitlementKeys returns all entitlement keys in lexical order.
func (m *Manifest) EntitlementKeys() []EntitlementKey {
	return slices.Sorted(maps.Keys(m.entitlements))
}
