package registry

import (
	"context"

	"github.com/dppkit/dppkit/pkg/manifest"
)

// Store persists feature registry entries. There is no delete: entries are
// disabled, never removed, while plans or overrides may still reference them.
type Store interface {
	// Get returns ErrEntryNotFound if the key has no entry.
	Get(ctx context.Context, key manifest.Key) (*Entry, error)

	// List returns all entries ordered by key.
	List(ctx context.Context) ([]*Entry, error)

	// Save creates or replaces an entry.
	Save(ctx context.Context, e *Entry) error
}
