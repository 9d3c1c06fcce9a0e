package event

import (
	"encoding/json"
	"time"
)

// Type names a domain event.
type Type string

const (
	TypeSessionStarted   Type = "SESSION_STARTED"
	TypeSessionEnded     Type = "SESSION_ENDED"
	TypeSessionCancelled Type = "SESSION_CANCELLED"
	TypePersonSignedIn   Type = "PERSON_SIGNED_IN"
	TypePersonSignedOut  Type = "PERSON_SIGNED_OUT"
	TypeHelpRequested    Type = "HELP_REQUESTED"
	TypeHelpClaimed      Type = "HELP_CLAIMED"
	TypeHelpUnclaimed    Type = "HELP_UNCLAIMED"
	TypeHelpResolved     Type = "HELP_RESOLVED"
	TypeHelpCancelled    Type = "HELP_CANCELLED"
	TypeProfileUpdated   Type = "PROFILE_UPDATED"
)

// EntityType names the aggregate an event belongs to.
type EntityType string

const (
	EntitySession     EntityType = "ClassSession"
	EntitySignIn      EntityType = "SignIn"
	EntityHelpRequest EntityType = "HelpRequest"
	EntityPerson      EntityType = "Person"
)

// Event is a stored, immutable domain event.
type Event struct {
	ID          string          `json:"id"`
	SchoolID    string          `json:"schoolId"`
	ClassroomID string          `json:"classroomId,omitempty"`
	SessionID   string          `json:"sessionId,omitempty"`
	Type        Type            `json:"eventType"`
	EntityType  EntityType      `json:"entityType"`
	EntityID    string          `json:"entityId"`
	ActorID     string          `json:"actorId,omitempty"`
	Payload     json.RawMessage `json:"payload"`
	CreatedAt   time.Time       `json:"createdAt"`
}

// AppendInput is an event before the store assigns its id and timestamp.
type AppendInput struct {
	SchoolID    string
	ClassroomID string
	SessionID   string
	Type        Type
	EntityType  EntityType
	EntityID    string
	ActorID     string
	Payload     json.RawMessage
}

// Filter selects events. Empty fields match everything and set fields are
// combined with AND.
type Filter struct {
	SchoolID    string
	ClassroomID string
	SessionID   string
	Type        Type
	EntityType  EntityType
	EntityID    string
}

// Matches reports whether e satisfies every set field of f.
func (f Filter) Matches(e Event) bool {
	switch {
	case f.SchoolID != "" && e.SchoolID != f.SchoolID:
		return false
	case f.ClassroomID != "" && e.ClassroomID != f.ClassroomID:
		return false
	case f.SessionID != "" && e.SessionID != f.SessionID:
		return false
	case f.Type != "" && e.Type != f.Type:
		return false
	case f.EntityType != "" && e.EntityType != f.EntityType:
		return false
	case f.EntityID != "" && e.EntityID != f.EntityID:
		return false
	}
	return true
}
