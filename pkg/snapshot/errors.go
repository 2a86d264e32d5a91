package snapshot

import "errors"

var (
	// ErrNoSnapshot indicates the subscription has never been snapshotted.
	ErrNoSnapshot = errors.New("snapshot: subscription has no snapshot")

	// ErrNotFound indicates the key is absent from the latest generation.
	ErrNotFound = errors.New("snapshot: entitlement not found")

	ErrInvalidSnapshot = errors.New("snapshot: invalid snapshot")
)
