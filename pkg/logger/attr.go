package logger

import (
	"log/slog"

	"github.com/google/uuid"
)

// Error records err under "error". Nil errors produce an empty attribute.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

func OrganizationID(id uuid.UUID) slog.Attr {
	return slog.String("organization_id", id.String())
}

func SubscriptionID(id uuid.UUID) slog.Attr {
	return slog.String("subscription_id", id.String())
}

func ModelID(id uuid.UUID) slog.Attr {
	return slog.String("model_id", id.String())
}

func Feature(key string) slog.Attr {
	return slog.String("feature", key)
}

func Entitlement(key string) slog.Attr {
	return slog.String("entitlement", key)
}

func Rule(rule string) slog.Attr {
	return slog.String("rule", rule)
}

// Component records which part of the service emitted the record.
func Component(name string) slog.Attr {
	return slog.String("component", name)
}

func Event(name string) slog.Attr {
	return slog.String("event", name)
}
