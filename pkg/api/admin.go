package api

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/dppkit/dppkit/pkg/manifest"
	"github.com/dppkit/dppkit/pkg/plan"
	"github.com/dppkit/dppkit/pkg/registry"
	"github.com/dppkit/dppkit/pkg/trial"
)

const maxBody = 64 << 10

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return errors.Join(ErrBadRequest, err)
	}
	return nil
}

func modelID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		return uuid.Nil, ErrBadRequest
	}
	return id, nil
}

func (h *handlers) listRegistry(w http.ResponseWriter, r *http.Request) {
	entries, err := h.deps.Registry.List(r.Context())
	if err != nil {
		h.lookupFailed(w, r, err)
		return
	}
	if entries == nil {
		entries = []*registry.Entry{}
	}
	writeData(w, "registry", entries)
}

type registryRequest struct {
	Enabled        bool              `json:"enabled"`
	MinimumPlan    plan.Tier         `json:"minimum_plan"`
	VisibleInTrial bool              `json:"visible_in_trial"`
	UsableInTrial  bool              `json:"usable_in_trial"`
	Category       manifest.Category `json:"category"`
	Config         map[string]any    `json:"config"`
}

func (h *handlers) putRegistry(w http.ResponseWriter, r *http.Request) {
	var req registryRequest
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	e := &registry.Entry{
		Key:            manifest.Key(chi.URLParam(r, "key")),
		Enabled:        req.Enabled,
		MinimumPlan:    req.MinimumPlan,
		VisibleInTrial: req.VisibleInTrial,
		UsableInTrial:  req.UsableInTrial,
		Category:       req.Category,
		Config:         req.Config,
	}
	if err := h.deps.Registry.Register(r.Context(), e); err != nil {
		h.lookupFailed(w, r, err)
		return
	}
	writeData(w, "registry_entry", e)
}

func (h *handlers) listOverrides(w http.ResponseWriter, r *http.Request) {
	id, err := modelID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	overrides, err := h.deps.Trials.List(r.Context(), id)
	if err != nil {
		h.lookupFailed(w, r, err)
		return
	}
	writeData(w, "trial_overrides", overrides)
}

func (h *handlers) putFeatureOverride(w http.ResponseWriter, r *http.Request) {
	id, err := modelID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Enabled bool `json:"enabled"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}

	o := trial.FeatureOverride{ModelID: id, Key: manifest.Key(chi.URLParam(r, "key")), Enabled: req.Enabled}
	if err := h.deps.Trials.SetFeature(r.Context(), o); err != nil {
		h.lookupFailed(w, r, err)
		return
	}
	writeData(w, "trial_feature_override", o)
}

func (h *handlers) deleteFeatureOverride(w http.ResponseWriter, r *http.Request) {
	id, err := modelID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.deps.Trials.ClearFeature(r.Context(), id, manifest.Key(chi.URLParam(r, "key"))); err != nil {
		h.lookupFailed(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// putEntitlementOverride takes {"value": null} for unlimited.
func (h *handlers) putEntitlementOverride(w http.ResponseWriter, r *http.Request) {
	id, err := modelID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	var req struct {
		Value *plan.Limit `json:"value"`
	}
	if err := decode(r, &req); err != nil {
		writeError(w, err)
		return
	}
	value := plan.Unlimited()
	if req.Value != nil {
		value = *req.Value
	}

	o := trial.EntitlementOverride{ModelID: id, Key: manifest.EntitlementKey(chi.URLParam(r, "key")), Value: value}
	if err := h.deps.Trials.SetEntitlement(r.Context(), o); err != nil {
		h.lookupFailed(w, r, err)
		return
	}
	writeData(w, "trial_entitlement_override", o)
}

func (h *handlers) deleteEntitlementOverride(w http.ResponseWriter, r *http.Request) {
	id, err := modelID(r)
	if err != nil {
		writeError(w, err)
		return
	}
	if err := h.deps.Trials.ClearEntitlement(r.Context(), id, manifest.EntitlementKey(chi.URLParam(r, "key"))); err != nil {
		h.lookupFailed(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// comparePlans previews what an organization gains and loses moving from
// plan id to plan target.
func (h *handlers) comparePlans(w http.ResponseWriter, r *http.Request) {
	from, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, ErrBadRequest)
		return
	}
	to, err := uuid.Parse(chi.URLParam(r, "target"))
	if err != nil {
		writeError(w, ErrBadRequest)
		return
	}

	current, err := h.deps.Plans.GetPlan(r.Context(), from)
	if err != nil {
		h.lookupFailed(w, r, err)
		return
	}
	target, err := h.deps.Plans.GetPlan(r.Context(), to)
	if err != nil {
		h.lookupFailed(w, r, err)
		return
	}

	c := plan.Compare(current, target)
	writeData(w, "plan_comparison", struct {
		*plan.Comparison
		Downgrade bool `json:"downgrade"`
	}{c, c.HasDecreases() || len(c.LostFeatures) > 0})
}
