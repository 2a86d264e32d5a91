package registry

import "errors"

var (
	// ErrEntryNotFound indicates the feature has no registry row. Callers treat this as disabled.
	ErrEntryNotFound = errors.New("registry: entry not found")

	// ErrInvalidEntry indicates the entry violates the manifest.
	ErrInvalidEntry = errors.New("registry: invalid entry")
)
