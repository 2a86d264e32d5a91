package api

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/dppkit/dppkit/pkg/capability"
	"github.com/dppkit/dppkit/pkg/org"
	"github.com/dppkit/dppkit/pkg/plan"
	"github.com/dppkit/dppkit/pkg/registry"
	"github.com/dppkit/dppkit/pkg/trial"
	"github.com/dppkit/dppkit/pkg/usage"
)

// Envelope is the body of every JSON response.
type Envelope struct {
	Code  string       `json:"code,omitempty"`
	Data  any          `json:"data,omitempty"`
	Error *ErrorDetail `json:"error,omitempty"`
}

// ErrorDetail describes a failed request. Reason and RequiredTier are set on
// capability denials.
type ErrorDetail struct {
	Code         string    `json:"code"`
	Message      string    `json:"message,omitempty"`
	Reason       string    `json:"reason,omitempty"`
	RequiredTier plan.Tier `json:"required_tier,omitempty"`
}

// HTTPError is an error with a status code and a stable machine key.
type HTTPError struct {
	Status int
	Key    string
}

func (e HTTPError) Error() string { return e.Key }

var (
	ErrBadRequest    = HTTPError{Status: http.StatusBadRequest, Key: "bad_request"}
	ErrUnauthorized  = HTTPError{Status: http.StatusUnauthorized, Key: "unauthorized"}
	ErrNotFound      = HTTPError{Status: http.StatusNotFound, Key: "not_found"}
	ErrUnprocessable = HTTPError{Status: http.StatusUnprocessableEntity, Key: "unprocessable_entity"}
	ErrInternal      = HTTPError{Status: http.StatusInternalServerError, Key: "internal_error"}
)

func writeJSON(w http.ResponseWriter, status int, body Envelope) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

func writeData(w http.ResponseWriter, code string, data any) {
	writeJSON(w, http.StatusOK, Envelope{Code: code, Data: data})
}

func writeDenied(w http.ResponseWriter, code string, reason capability.Reason, tier plan.Tier) {
	writeJSON(w, http.StatusForbidden, Envelope{
		Code: code,
		Error: &ErrorDetail{
			Code:         code,
			Reason:       string(reason),
			RequiredTier: tier,
		},
	})
}

// writeError maps err onto a status. Domain validation errors carry their
// message so admins can fix their input; everything else is opaque.
func writeError(w http.ResponseWriter, err error) {
	httpErr := classify(err)
	detail := &ErrorDetail{Code: httpErr.Key, Message: http.StatusText(httpErr.Status)}
	if httpErr.Status == http.StatusUnprocessableEntity {
		detail.Message = err.Error()
	}
	writeJSON(w, httpErr.Status, Envelope{Code: httpErr.Key, Error: detail})
}

func classify(err error) HTTPError {
	var httpErr HTTPError
	switch {
	case errors.As(err, &httpErr):
		return httpErr
	case errors.Is(err, org.ErrMissingOrganization),
		errors.Is(err, org.ErrInvalidOrganization),
		errors.Is(err, org.ErrInvalidUser):
		return ErrUnauthorized
	case errors.Is(err, registry.ErrEntryNotFound),
		errors.Is(err, trial.ErrNotFound),
		errors.Is(err, plan.ErrPlanNotFound):
		return ErrNotFound
	case errors.Is(err, registry.ErrInvalidEntry),
		errors.Is(err, trial.ErrInvalidOverride),
		errors.Is(err, plan.ErrModelNotFound):
		return ErrUnprocessable
	case errors.Is(err, usage.ErrNoCounterRegistered):
		return HTTPError{Status: http.StatusNotFound, Key: "no_counter"}
	}
	return ErrInternal
}
