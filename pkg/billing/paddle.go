package billing

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	paddle "github.com/PaddleHQ/paddle-go-sdk/v4"
	"github.com/google/uuid"
)

// PaddleConfig holds the webhook settings.
type PaddleConfig struct {
	WebhookSecret string `env:"PADDLE_WEBHOOK_SECRET"`
}

// maxPayload bounds the webhook body read into memory.
const maxPayload = 1 << 20

// Paddle parses and verifies Paddle Billing webhooks.
// The checkout must carry organization_id and model_id in custom_data.
type Paddle struct {
	verifier *paddle.WebhookVerifier
}

func NewPaddle(secret string) (*Paddle, error) {
	if secret == "" {
		return nil, errors.New("billing: paddle webhook secret is required")
	}
	return &Paddle{verifier: paddle.NewWebhookVerifier(secret)}, nil
}

type paddleEvent struct {
	EventID    string    `json:"event_id"`
	EventType  string    `json:"event_type"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       struct {
		ID         string `json:"id"`
		Status     string `json:"status"`
		CustomData struct {
			OrganizationID string `json:"organization_id"`
			ModelID        string `json:"model_id"`
		} `json:"custom_data"`
		CurrentBillingPeriod *struct {
			StartsAt time.Time `json:"starts_at"`
			EndsAt   time.Time `json:"ends_at"`
		} `json:"current_billing_period"`
	} `json:"data"`
}

// Parse verifies the Paddle-Signature header and decodes the body.
func (p *Paddle) Parse(r *http.Request) (Event, error) {
	body, err := io.ReadAll(io.LimitReader(r.Body, maxPayload))
	if err != nil {
		return Event{}, errors.Join(ErrInvalidPayload, err)
	}
	r.Body = io.NopCloser(bytes.NewReader(body))

	ok, err := p.verifier.Verify(r)
	if err != nil || !ok {
		return Event{}, errors.Join(ErrInvalidSignature, err)
	}

	var pe paddleEvent
	if err := json.Unmarshal(body, &pe); err != nil {
		return Event{}, errors.Join(ErrInvalidPayload, err)
	}
	return pe.toEvent()
}

func (pe paddleEvent) toEvent() (Event, error) {
	ev := Event{
		ID:         pe.EventID,
		Type:       pe.EventType,
		Action:     paddleAction(pe.EventType, pe.Data.Status),
		OccurredAt: pe.OccurredAt,
	}
	if ev.Action == ActionIgnore {
		return ev, nil
	}

	orgID, err := uuid.Parse(pe.Data.CustomData.OrganizationID)
	if err != nil {
		return Event{}, errors.Join(ErrInvalidPayload, fmt.Errorf("custom_data.organization_id: %w", err))
	}
	ev.OrganizationID = orgID

	if raw := pe.Data.CustomData.ModelID; raw != "" {
		modelID, err := uuid.Parse(raw)
		if err != nil {
			return Event{}, errors.Join(ErrInvalidPayload, fmt.Errorf("custom_data.model_id: %w", err))
		}
		ev.ModelID = &modelID
	}
	if bp := pe.Data.CurrentBillingPeriod; bp != nil {
		ev.PeriodStart = bp.StartsAt.UTC()
		ev.PeriodEnd = bp.EndsAt.UTC()
	}
	return ev, nil
}

// paddleAction maps a subscription event onto a lifecycle action. The status
// in the payload wins over the event name because Paddle reports most
// changes as subscription.updated.
func paddleAction(eventType, status string) Action {
	if !strings.HasPrefix(eventType, "subscription.") {
		return ActionIgnore
	}
	switch status {
	case "trialing":
		if eventType == "subscription.created" {
			return ActionStartTrial
		}
		return ActionChangePlan
	case "active":
		return ActionActivate
	case "canceled":
		return ActionCancel
	case "past_due", "paused":
		return ActionExpire
	}
	return ActionIgnore
}
