package org

import (
	"errors"
	"net/http"

	"github.com/google/uuid"
)

const (
	HeaderOrganizationID = "X-Organization-ID"
	HeaderUserID         = "X-User-ID"
)

var (
	ErrMissingOrganization = errors.New("org: missing organization id")
	ErrInvalidOrganization = errors.New("org: invalid organization id")
	ErrInvalidUser         = errors.New("org: invalid user id")
)

// ErrorHandler writes the response for a rejected request.
type ErrorHandler func(w http.ResponseWriter, r *http.Request, err error)

// Middleware stores the caller's Identity in the request context.
// onError receives one of the errors above; a nil onError answers 401.
func Middleware(onError ErrorHandler) func(http.Handler) http.Handler {
	if onError == nil {
		onError = func(w http.ResponseWriter, _ *http.Request, err error) {
			http.Error(w, err.Error(), http.StatusUnauthorized)
		}
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := identityFromRequest(r)
			if err != nil {
				onError(w, r, err)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func identityFromRequest(r *http.Request) (Identity, error) {
	raw := r.Header.Get(HeaderOrganizationID)
	if raw == "" {
		return Identity{}, ErrMissingOrganization
	}
	orgID, err := uuid.Parse(raw)
	if err != nil || orgID == uuid.Nil {
		return Identity{}, ErrInvalidOrganization
	}

	id := Identity{OrganizationID: orgID}
	if raw := r.Header.Get(HeaderUserID); raw != "" {
		userID, err := uuid.Parse(raw)
		if err != nil {
			return Identity{}, ErrInvalidUser
		}
		id.UserID = &userID
	}
	return id, nil
}
