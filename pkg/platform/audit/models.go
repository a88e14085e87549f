package audit

import (
	"context"
	"time"

	id "smartgate/pkg/domain"
)

// EventCategory classifies audit events so sinks can route and retain them differently.
type EventCategory string

const (
	// CategoryCompliance covers account lifecycle and personal data changes.
	CategoryCompliance EventCategory = "compliance"
	// CategorySecurity covers authentication outcomes and session revocation.
	CategorySecurity EventCategory = "security"
	// CategoryOperations covers routine activity.
	CategoryOperations EventCategory = "operations"
)

// Event is emitted from domain logic to capture key actions. Keep it
// transport-agnostic so stores and sinks can fan out.
type Event struct {
	Category   EventCategory
	Timestamp  time.Time
	UserID     id.UserID
	Action     string
	Email      string
	RequestID  string
	IP         string
	Reason     string
	Attributes map[string]string
}

type AuditEvent string

const (
	EventUserCreated       AuditEvent = "user_created"
	EventLoginSucceeded    AuditEvent = "login_succeeded"
	EventLoginFailed       AuditEvent = "login_failed"
	EventSessionRevoked    AuditEvent = "session_revoked"
	EventProfileUpdated    AuditEvent = "profile_updated"
	EventVehicleRegistered AuditEvent = "vehicle_registered"
	EventLoginLocked       AuditEvent = "login_locked"
)

var eventCategories = map[AuditEvent]EventCategory{
	EventUserCreated:       CategoryCompliance,
	EventProfileUpdated:    CategoryCompliance,
	EventLoginFailed:       CategorySecurity,
	EventSessionRevoked:    CategorySecurity,
	EventLoginLocked:       CategorySecurity,
	EventLoginSucceeded:    CategoryOperations,
	EventVehicleRegistered: CategoryOperations,
}

// Category returns the EventCategory for this audit event.
// Unknown events default to CategoryOperations.
func (e AuditEvent) Category() EventCategory {
	if cat, ok := eventCategories[e]; ok {
		return cat
	}
	return CategoryOperations
}

// Store persists audit events for later querying.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListRecent(ctx context.Context, limit int) ([]Event, error)
}

// Sink forwards audit events to an external system such as a message broker.
type Sink interface {
	Publish(ctx context.Context, event Event) error
	Close()
}
