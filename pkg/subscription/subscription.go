package subscription

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/dppkit/dppkit/pkg/plan"
)

// Subscription is the lifecycle record of one organization.
type Subscription struct {
	ID                 uuid.UUID  `json:"id"`
	OrganizationID     uuid.UUID  `json:"organization_id"`
	ModelID            *uuid.UUID `json:"model_id"`
	Status             Status     `json:"status"`
	TrialStartedAt     *time.Time `json:"trial_started_at,omitempty"`
	TrialExpiresAt     *time.Time `json:"trial_expires_at,omitempty"`
	CurrentPeriodStart time.Time  `json:"current_period_start"`
	CurrentPeriodEnd   time.Time  `json:"current_period_end"`
	CreatedAt          time.Time  `json:"created_at"`
	UpdatedAt          time.Time  `json:"updated_at"`
}

// Period is a billing period.
type Period struct {
	Start time.Time
	End   time.Time
}

// Validate enforces the write-time invariants of a row.
func (s *Subscription) Validate() error {
	if s.ID == uuid.Nil || s.OrganizationID == uuid.Nil {
		return errors.Join(ErrInvalidState, errors.New("subscription and organization ids are required"))
	}
	if !s.Status.Known() {
		return errors.Join(ErrInvalidState, fmt.Errorf("unknown status %q", s.Status))
	}
	if s.Status.IsTrial() {
		if s.ModelID == nil || *s.ModelID == uuid.Nil {
			return errors.Join(ErrInvalidState, ErrTrialWithoutModel)
		}
		if s.TrialStartedAt == nil {
			return errors.Join(ErrInvalidState, errors.New("trial subscription requires a trial start"))
		}
	}
	if !s.CurrentPeriodEnd.IsZero() && s.CurrentPeriodEnd.Before(s.CurrentPeriodStart) {
		return errors.Join(ErrInvalidState, errors.New("period ends before it starts"))
	}
	return nil
}

// TrialEnd returns when the trial window closes and false when it cannot be
// determined. The model's trial length wins over the stored expiry.
func (s *Subscription) TrialEnd(model *plan.Model) (time.Time, bool) {
	if model != nil && s.TrialStartedAt != nil {
		return model.TrialEndsAt(*s.TrialStartedAt), true
	}
	if s.TrialExpiresAt != nil {
		return s.TrialExpiresAt.UTC(), true
	}
	return time.Time{}, false
}

// Clone returns a deep copy of the subscription.
func (s *Subscription) Clone() *Subscription {
	c := *s
	if s.ModelID != nil {
		id := *s.ModelID
		c.ModelID = &id
	}
	if s.TrialStartedAt != nil {
		t := *s.TrialStartedAt
		c.TrialStartedAt = &t
	}
	if s.TrialExpiresAt != nil {
		t := *s.TrialExpiresAt
		c.TrialExpiresAt = &t
	}
	return &c
}
