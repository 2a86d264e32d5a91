package org

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// Identity is the organization a request acts for and, when known, the user.
type Identity struct {
	OrganizationID uuid.UUID
	UserID         *uuid.UUID
}

type contextKey struct{}

func WithIdentity(ctx context.Context, id Identity) context.Context {
	return context.WithValue(ctx, contextKey{}, id)
}

func FromContext(ctx context.Context) (Identity, bool) {
	id, ok := ctx.Value(contextKey{}).(Identity)
	return id, ok
}

// LoggerExtractor enriches log records with organization_id and user_id.
func LoggerExtractor() func(ctx context.Context) (slog.Attr, bool) {
	return func(ctx context.Context) (slog.Attr, bool) {
		id, ok := FromContext(ctx)
		if !ok {
			return slog.Attr{}, false
		}
		attrs := []any{slog.String("organization_id", id.OrganizationID.String())}
		if id.UserID != nil {
			attrs = append(attrs, slog.String("user_id", id.UserID.String()))
		}
		return slog.Group("identity", attrs...), true
	}
}
