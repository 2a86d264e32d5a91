package api

import (
	"context"
	"crypto/subtle"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/dppkit/dppkit/pkg/capability"
	"github.com/dppkit/dppkit/pkg/logger"
	"github.com/dppkit/dppkit/pkg/org"
	"github.com/dppkit/dppkit/pkg/plan"
	"github.com/dppkit/dppkit/pkg/ratelimit"
	"github.com/dppkit/dppkit/pkg/registry"
	"github.com/dppkit/dppkit/pkg/requestid"
	"github.com/dppkit/dppkit/pkg/trial"
	"github.com/dppkit/dppkit/pkg/usage"
)

// Deps are the services the router serves. Resolver is required; Registry and
// Trials are required when AdminToken is set.
type Deps struct {
	Resolver *capability.Resolver
	Enforcer *usage.Enforcer
	Registry *registry.Service
	Trials   *trial.Service

	// Plans backs the admin plan comparison. Not mounted when nil.
	Plans PlanGetter

	// Billing handles provider webhooks. Not mounted when nil.
	Billing http.Handler

	// Gatherer backs /metrics. Not mounted when nil.
	Gatherer prometheus.Gatherer

	// RateLimiter throttles organization routes per organization and admin
	// routes per client address. Not applied when nil.
	RateLimiter *ratelimit.Limiter

	// Ready probes dependencies for /healthz.
	Ready []func(context.Context) error

	AdminToken     string
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

// PlanGetter loads pricing plans. plan.Store satisfies it.
type PlanGetter interface {
	GetPlan(ctx context.Context, id uuid.UUID) (*plan.Plan, error)
}

// NewRouter panics if Resolver is nil or admin routes lack their services.
func NewRouter(d Deps) http.Handler {
	if d.Resolver == nil {
		panic("api: resolver is required")
	}
	if d.AdminToken != "" && (d.Registry == nil || d.Trials == nil) {
		panic("api: admin routes need the registry and trial services")
	}
	if d.Logger == nil {
		d.Logger = logger.Discard()
	}
	if d.RequestTimeout <= 0 {
		d.RequestTimeout = 10 * time.Second
	}

	h := &handlers{deps: d, log: d.Logger.With(logger.Component("api"))}

	r := chi.NewRouter()
	r.Use(requestid.Middleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Timeout(d.RequestTimeout))

	r.Get("/healthz", h.health)
	if d.Gatherer != nil {
		r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Route("/v1", func(r chi.Router) {
		if d.Billing != nil {
			r.Method(http.MethodPost, "/webhooks/billing", d.Billing)
		}

		r.Group(func(r chi.Router) {
			r.Use(org.Middleware(func(w http.ResponseWriter, _ *http.Request, err error) {
				writeError(w, err)
			}))
			if d.RateLimiter != nil {
				r.Use(ratelimit.Middleware(d.RateLimiter, ratelimit.ByOrganization, rateLimited))
			}
			r.Get("/capabilities", h.capabilities)
			r.Get("/features/{key}", h.feature)
			r.Get("/entitlements/{key}", h.entitlement)
			r.Get("/limits/{key}", h.limit)
		})

		if d.AdminToken != "" {
			r.Route("/admin", func(r chi.Router) {
				if d.RateLimiter != nil {
					r.Use(ratelimit.Middleware(d.RateLimiter, ratelimit.ByClientIP, rateLimited))
				}
				r.Use(bearerAuth(d.AdminToken))
				r.Get("/registry", h.listRegistry)
				r.Put("/registry/{key}", h.putRegistry)
				r.Get("/models/{id}/overrides", h.listOverrides)
				r.Put("/models/{id}/overrides/features/{key}", h.putFeatureOverride)
				r.Delete("/models/{id}/overrides/features/{key}", h.deleteFeatureOverride)
				r.Put("/models/{id}/overrides/entitlements/{key}", h.putEntitlementOverride)
				r.Delete("/models/{id}/overrides/entitlements/{key}", h.deleteEntitlementOverride)
				if d.Plans != nil {
					r.Get("/plans/{id}/compare/{target}", h.comparePlans)
				}
			})
		}
	})

	return r
}

type handlers struct {
	deps Deps
	log  *slog.Logger
}

func (h *handlers) health(w http.ResponseWriter, r *http.Request) {
	for _, ready := range h.deps.Ready {
		if err := ready(r.Context()); err != nil {
			h.log.ErrorContext(r.Context(), "readiness check failed", logger.Error(err))
			writeJSON(w, http.StatusServiceUnavailable, Envelope{Code: "not_ready"})
			return
		}
	}
	writeJSON(w, http.StatusOK, Envelope{Code: "ready"})
}

func bearerAuth(token string) func(http.Handler) http.Handler {
	want := []byte(token)
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
			if !ok || subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				writeError(w, ErrUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func rateLimited(w http.ResponseWriter, _ *http.Request) {
	writeError(w, HTTPError{Status: http.StatusTooManyRequests, Key: "rate_limited"})
}

func subjectFrom(r *http.Request) (capability.Subject, error) {
	id, ok := org.FromContext(r.Context())
	if !ok {
		return capability.Subject{}, org.ErrMissingOrganization
	}
	return capability.Subject{OrganizationID: id.OrganizationID, UserID: id.UserID}, nil
}
