package manifest

import "errors"

var (
	ErrEmptyKey           = errors.New("manifest: empty key")
	ErrDuplicateKey       = errors.New("manifest: duplicate key")
	ErrUnknownCategory    = errors.New("manifest: unknown category")
	ErrUnknownFeature     = errors.New("manifest: unknown feature key")
	ErrUnknownEntitlement = errors.New("manifest: unknown entitlement key")
	ErrInvalidConfig      = errors.New("manifest: invalid feature configuration")
)
