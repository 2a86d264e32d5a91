package billing

import (
	"time"

	"github.com/google/uuid"
)

// Action is the lifecycle step an event asks for.
type Action string

const (
	ActionStartTrial Action = "start_trial"
	ActionChangePlan Action = "change_plan"
	ActionActivate   Action = "activate"
	ActionCancel     Action = "cancel"
	ActionExpire     Action = "expire"
	ActionIgnore     Action = "ignore"
)

// Event is a provider-neutral billing fact.
type Event struct {
	ID             string
	Type           string
	Action         Action
	OrganizationID uuid.UUID
	ModelID        *uuid.UUID
	PeriodStart    time.Time
	PeriodEnd      time.Time
	OccurredAt     time.Time
}
