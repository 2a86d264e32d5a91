package api

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/dppkit/dppkit/pkg/capability"
	"github.com/dppkit/dppkit/pkg/logger"
	"github.com/dppkit/dppkit/pkg/manifest"
)

type capabilitiesResponse struct {
	Available    []manifest.Key        `json:"available"`
	Features     []capability.Decision `json:"features"`
	Entitlements []capability.Grant    `json:"entitlements"`
}

func (h *handlers) capabilities(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}

	decisions, err := h.deps.Resolver.ExplainFeatures(r.Context(), subject)
	if err != nil {
		h.lookupFailed(w, r, err)
		return
	}
	grants, err := h.deps.Resolver.ResolveEntitlements(r.Context(), subject)
	if err != nil {
		h.lookupFailed(w, r, err)
		return
	}

	resp := capabilitiesResponse{
		Available:    make([]manifest.Key, 0, len(decisions)),
		Features:     decisions,
		Entitlements: grants,
	}
	for _, d := range decisions {
		if d.Allowed {
			resp.Available = append(resp.Available, d.Key)
		}
	}
	writeData(w, "capabilities", resp)
}

func (h *handlers) feature(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}

	d, err := h.deps.Resolver.ExplainFeature(r.Context(), manifest.Key(chi.URLParam(r, "key")), subject)
	if err != nil {
		h.lookupFailed(w, r, err)
		return
	}
	if d.Rule == capability.RuleUnknownKey {
		writeError(w, HTTPError{Status: http.StatusNotFound, Key: string(capability.ReasonUnknownFeature)})
		return
	}
	writeData(w, "feature", d)
}

func (h *handlers) entitlement(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}

	g, err := h.deps.Resolver.ResolveEntitlement(r.Context(), manifest.EntitlementKey(chi.URLParam(r, "key")), subject)
	if err != nil {
		h.lookupFailed(w, r, err)
		return
	}
	if g.Source == capability.SourceUnknownKey {
		writeError(w, HTTPError{Status: http.StatusNotFound, Key: "unknown_entitlement"})
		return
	}
	writeData(w, "entitlement", g)
}

// limit reports usage against the grant. Usage comes from the usage query
// parameter when present and from the registered counter otherwise.
func (h *handlers) limit(w http.ResponseWriter, r *http.Request) {
	subject, err := subjectFrom(r)
	if err != nil {
		writeError(w, err)
		return
	}
	key := manifest.EntitlementKey(chi.URLParam(r, "key"))
	if !h.deps.Resolver.Manifest().IsEntitlement(key) {
		writeError(w, HTTPError{Status: http.StatusNotFound, Key: "unknown_entitlement"})
		return
	}

	var check capability.LimitCheck
	if raw := r.URL.Query().Get("usage"); raw != "" {
		n, perr := strconv.ParseInt(raw, 10, 64)
		if perr != nil || n < 0 {
			writeError(w, ErrBadRequest)
			return
		}
		check, err = h.deps.Resolver.CheckLimit(r.Context(), key, n, subject)
	} else if h.deps.Enforcer != nil {
		check, err = h.deps.Enforcer.Check(r.Context(), key, subject)
	} else {
		writeError(w, ErrBadRequest)
		return
	}
	if err != nil {
		h.lookupFailed(w, r, err)
		return
	}
	writeData(w, "limit", check)
}

// lookupFailed answers 500 for persistence failures. They are never turned
// into a denial.
func (h *handlers) lookupFailed(w http.ResponseWriter, r *http.Request, err error) {
	status := classify(err)
	if status.Status >= http.StatusInternalServerError {
		h.log.ErrorContext(r.Context(), "capability lookup failed", logger.Error(err))
	}
	writeError(w, err)
}
