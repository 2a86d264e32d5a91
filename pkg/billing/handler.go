package billing

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/dppkit/dppkit/pkg/logger"
	"github.com/dppkit/dppkit/pkg/plan"
	"github.com/dppkit/dppkit/pkg/subscription"
)

// Parser extracts a verified Event from a webhook request. *Paddle satisfies it.
type Parser interface {
	Parse(r *http.Request) (Event, error)
}

// Handler applies billing events through subscription.Service.
type Handler struct {
	subs   subscription.Service
	parser Parser
	log    *slog.Logger
}

// NewHandler panics if subs is nil. parser may be nil when events are only
// applied programmatically.
func NewHandler(subs subscription.Service, parser Parser, log *slog.Logger) *Handler {
	if subs == nil {
		panic("billing: subscription service is required")
	}
	if log == nil {
		log = logger.Discard()
	}
	return &Handler{subs: subs, parser: parser, log: log.With(logger.Component("billing"))}
}

// Apply performs the lifecycle call an event asks for.
func (h *Handler) Apply(ctx context.Context, ev Event) error {
	var err error
	switch ev.Action {
	case ActionIgnore:
		return nil
	case ActionStartTrial:
		if ev.ModelID == nil {
			return ErrMissingModel
		}
		_, err = h.subs.StartTrial(ctx, ev.OrganizationID, *ev.ModelID)
	case ActionChangePlan:
		if ev.ModelID == nil {
			return ErrMissingModel
		}
		_, err = h.subs.ChangePlan(ctx, ev.OrganizationID, *ev.ModelID)
	case ActionActivate:
		if ev.ModelID == nil {
			return ErrMissingModel
		}
		period := subscription.Period{Start: ev.PeriodStart, End: ev.PeriodEnd}
		_, err = h.subs.Activate(ctx, ev.OrganizationID, *ev.ModelID, period)
	case ActionCancel:
		_, err = h.subs.Cancel(ctx, ev.OrganizationID)
	case ActionExpire:
		_, err = h.subs.Expire(ctx, ev.OrganizationID)
	default:
		return ErrUnsupportedEvent
	}
	if err != nil {
		return err
	}

	h.log.InfoContext(ctx, "billing event applied",
		logger.Event(ev.Type),
		slog.String("action", string(ev.Action)),
		logger.OrganizationID(ev.OrganizationID),
	)
	return nil
}

// ServeHTTP answers 200 once the event is applied or ignored. Lifecycle
// conflicts answer 409 so the provider's retry shows up in its dashboard.
func (h *Handler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	if h.parser == nil {
		writeStatus(w, http.StatusNotImplemented, "webhooks_disabled")
		return
	}

	ev, err := h.parser.Parse(r)
	switch {
	case errors.Is(err, ErrInvalidSignature):
		h.log.WarnContext(r.Context(), "rejected billing webhook", logger.Error(err))
		writeStatus(w, http.StatusUnauthorized, "invalid_signature")
		return
	case err != nil:
		h.log.WarnContext(r.Context(), "malformed billing webhook", logger.Error(err))
		writeStatus(w, http.StatusBadRequest, "invalid_payload")
		return
	}

	err = h.Apply(r.Context(), ev)
	switch {
	case err == nil:
		writeStatus(w, http.StatusOK, "ok")
	case errors.Is(err, subscription.ErrInvalidTransition),
		errors.Is(err, subscription.ErrAlreadyExists),
		errors.Is(err, subscription.ErrNotFound):
		h.log.WarnContext(r.Context(), "billing event conflicts with subscription state",
			logger.Event(ev.Type), logger.Error(err))
		writeStatus(w, http.StatusConflict, "invalid_transition")
	case errors.Is(err, ErrMissingModel),
		errors.Is(err, subscription.ErrTrialNotAvailable),
		errors.Is(err, subscription.ErrModelInactive),
		errors.Is(err, plan.ErrModelNotFound):
		writeStatus(w, http.StatusUnprocessableEntity, "invalid_event")
	default:
		h.log.ErrorContext(r.Context(), "failed to apply billing event",
			logger.Event(ev.Type), logger.Error(err))
		writeStatus(w, http.StatusInternalServerError, "internal_error")
	}
}

func writeStatus(w http.ResponseWriter, status int, code string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"code": code})
}

