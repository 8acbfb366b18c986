// AngelaMos | 2026
// events.go

// Package events publishes account and fleet lifecycle notifications for
// other services (dispatch, billing) to consume.
package events

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"
)

const (
	UserRegistered  = "user.registered"
	UserUpdated     = "user.updated"
	UserRoleAdded   = "user.role_added"
	UserRoleRemoved = "user.role_removed"
	UserVerified    = "user.verified"
	UserActivated   = "user.activated"
	UserDeactivated = "user.deactivated"

	VehicleCreated     = "vehicle.created"
	VehicleUpdated     = "vehicle.updated"
	VehicleVerified    = "vehicle.verified"
	VehicleActivated   = "vehicle.activated"
	VehicleDeactivated = "vehicle.deactivated"
	DriverAssigned     = "vehicle.driver_assigned"
	DriverRemoved      = "vehicle.driver_removed"
)

type Event struct {
	ID         string    `json:"id"`
	Type       string    `json:"type"`
	Subject    string    `json:"subject"`
	OccurredAt time.Time `json:"occurred_at"`
	Data       any       `json:"data,omitempty"`
}

func New(eventType, subject string, data any) Event {
	return Event{
		ID:         uuid.New().String(),
		Type:       eventType,
		Subject:    subject,
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// Emit publishes best-effort: a broker outage must never fail the request
// that produced the event.
func Emit(ctx context.Context, p Publisher, event Event) {
	if p == nil {
		return
	}

	if err := p.Publish(ctx, event); err != nil {
		slog.WarnContext(ctx, "event publish failed",
			"type", event.Type,
			"subject", event.Subject,
			"error", err,
		)
	}
}

type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }

func (NopPublisher) Close() error { return nil }
