package org_test

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dppkit/dppkit/pkg/logger"
	"github.com/dppkit/dppkit/pkg/org"
)

func TestMiddleware(t *testing.T) {
	t.Parallel()

	orgID := uuid.New()
	userID := uuid.New()

	tests := []struct {
		name     string
		headers  map[string]string
		wantCode int
		wantUser bool
	}{
		{name: "organization only", headers: map[string]string{org.HeaderOrganizationID: orgID.String()}, wantCode: http.StatusOK},
		{name: "organization and user", headers: map[string]string{org.HeaderOrganizationID: orgID.String(), org.HeaderUserID: userID.String()}, wantCode: http.StatusOK, wantUser: true},
		{name: "missing organization", headers: map[string]string{}, wantCode: http.StatusUnauthorized},
		{name: "malformed organization", headers: map[string]string{org.HeaderOrganizationID: "acme"}, wantCode: http.StatusUnauthorized},
		{name: "nil organization", headers: map[string]string{org.HeaderOrganizationID: uuid.Nil.String()}, wantCode: http.StatusUnauthorized},
		{name: "malformed user", headers: map[string]string{org.HeaderOrganizationID: orgID.String(), org.HeaderUserID: "bob"}, wantCode: http.StatusUnauthorized},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := org.Middleware(nil)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				id, ok := org.FromContext(r.Context())
				require.True(t, ok)
				assert.Equal(t, orgID, id.OrganizationID)
				if tt.wantUser {
					require.NotNil(t, id.UserID)
					assert.Equal(t, userID, *id.UserID)
				} else {
					assert.Nil(t, id.UserID)
				}
				w.WriteHeader(http.StatusOK)
			}))

			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			assert.Equal(t, tt.wantCode, rec.Code)
		})
	}
}

func TestMiddleware_CustomErrorHandler(t *testing.T) {
	t.Parallel()

	var got error
	h := org.Middleware(func(w http.ResponseWriter, _ *http.Request, err error) {
		got = err
		w.WriteHeader(http.StatusBadRequest)
	})(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		t.Fatal("handler must not run")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.ErrorIs(t, got, org.ErrMissingOrganization)
}

func TestLoggerExtractor(t *testing.T) {
	t.Parallel()

	buf := &bytes.Buffer{}
	log := logger.New(logger.WithOutput(buf), logger.WithContextExtractors(org.LoggerExtractor()))

	orgID := uuid.New()
	ctx := org.WithIdentity(context.Background(), org.Identity{OrganizationID: orgID})
	log.InfoContext(ctx, "hello")

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	identity, ok := entry["identity"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, orgID.String(), identity["organization_id"])
	assert.NotContains(t, identity, "user_id")
}
