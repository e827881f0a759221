package events

import (
	"time"

	"github.com/google/uuid"
)

// Event is the contract every system event satisfies before it is handed to
// the NATS bus.
type Event interface {
	// EventType returns the unique code for this event (e.g. "ANALYSIS_COMPLETED").
	EventType() string

	// Payload returns the data associated with the event.
	Payload() map[string]interface{}

	// Timestamp returns when the event occurred.
	Timestamp() time.Time
}

type BaseEvent struct {
	Type       string
	Data       map[string]interface{}
	OccurredAt time.Time
}

func (e BaseEvent) EventType() string {
	return e.Type
}

func (e BaseEvent) Payload() map[string]interface{} {
	return e.Data
}

func (e BaseEvent) Timestamp() time.Time {
	return e.OccurredAt
}

// Well-known event codes.
const (
	TypeUserRegistered        = "USER_REGISTERED"
	TypeUserLoggedIn          = "USER_LOGGED_IN"
	TypeAnalysisCreated       = "ANALYSIS_CREATED"
	TypeAnalysisCompleted     = "ANALYSIS_COMPLETED"
	TypeAnalysisFailed        = "ANALYSIS_FAILED"
	TypeSubscriptionActivated = "SUBSCRIPTION_ACTIVATED"
	TypeSubscriptionCancelled = "SUBSCRIPTION_CANCELLED"
)

func NewAnalysisCreated(analysisID, userID uuid.UUID, platform string, urlCount int) BaseEvent {
	return BaseEvent{
		Type: TypeAnalysisCreated,
		Data: map[string]interface{}{
			"analysis_id": analysisID.String(),
			"user_id":     userID.String(),
			"platform":    platform,
			"url_count":   urlCount,
		},
		OccurredAt: time.Now(),
	}
}

func NewAnalysisCompleted(analysisID, userID uuid.UUID) BaseEvent {
	return BaseEvent{
		Type: TypeAnalysisCompleted,
		Data: map[string]interface{}{
			"analysis_id": analysisID.String(),
			"user_id":     userID.String(),
		},
		OccurredAt: time.Now(),
	}
}

func NewAnalysisFailed(analysisID, userID uuid.UUID, reason string) BaseEvent {
	return BaseEvent{
		Type: TypeAnalysisFailed,
		Data: map[string]interface{}{
			"analysis_id": analysisID.String(),
			"user_id":     userID.String(),
			"reason":      reason,
		},
		OccurredAt: time.Now(),
	}
}

func NewUserRegistered(userID uuid.UUID, email string) BaseEvent {
	return BaseEvent{
		Type: TypeUserRegistered,
		Data: map[string]interface{}{
			"user_id": userID.String(),
			"email":   email,
		},
		OccurredAt: time.Now(),
	}
}

func NewSubscriptionActivated(userID uuid.UUID, planSlug string) BaseEvent {
	return BaseEvent{
		Type: TypeSubscriptionActivated,
		Data: map[string]interface{}{
			"user_id":   userID.String(),
			"plan_slug": planSlug,
		},
		OccurredAt: time.Now(),
	}
}

func NewSubscriptionCancelled(userID uuid.UUID, planSlug string) BaseEvent {
	return BaseEvent{
		Type: TypeSubscriptionCancelled,
		Data: map[string]interface{}{
			"user_id":   userID.String(),
			"plan_slug": planSlug,
		},
		OccurredAt: time.Now(),
	}
}
