package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/dppkit/dppkit/pkg/capability"
	"github.com/dppkit/dppkit/pkg/logger"
	"github.com/dppkit/dppkit/pkg/manifest"
	"github.com/dppkit/dppkit/pkg/usage"
)

// RequireFeature denies requests whose organization may not use key with a
// 403 feature_unavailable body carrying the denial reason and required tier.
// A lookup failure answers 500 and never lets the request through.
// Must run after org.Middleware.
func RequireFeature(resolver *capability.Resolver, key manifest.Key, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.Discard()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, err := subjectFrom(r)
			if err != nil {
				writeError(w, err)
				return
			}
			d, err := resolver.ExplainFeature(r.Context(), key, subject)
			if err != nil {
				log.ErrorContext(r.Context(), "feature gate lookup failed", logger.Feature(string(key)), logger.Error(err))
				writeError(w, ErrInternal)
				return
			}
			if !d.Allowed {
				writeDenied(w, "feature_unavailable", d.Reason, d.RequiredTier)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// RequireCapacity denies requests that would create one unit more than the
// organization's limit for key with a 403 limit_reached body.
// Must run after org.Middleware.
func RequireCapacity(enforcer *usage.Enforcer, key manifest.EntitlementKey, log *slog.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = logger.Discard()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			subject, err := subjectFrom(r)
			if err != nil {
				writeError(w, err)
				return
			}
			err = enforcer.CanCreate(r.Context(), key, subject)
			switch {
			case err == nil:
				next.ServeHTTP(w, r)
			case errors.Is(err, usage.ErrLimitExceeded):
				writeDenied(w, "limit_reached", "", "")
			case errors.Is(err, usage.ErrNoActiveSubscription):
				writeDenied(w, "no_active_subscription", "", "")
			default:
				log.ErrorContext(r.Context(), "capacity check failed", logger.Entitlement(string(key)), logger.Error(err))
				writeError(w, ErrInternal)
			}
		})
	}
}
