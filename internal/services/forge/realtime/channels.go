package realtime

import (
	"time"

	"github.com/andysmith26/forge/internal/services/forge/domain/event"
)

// Channel names a realtime topic.
type Channel struct {
	Name    string
	ScopeID string
}

// PresenceChannel carries sign-in changes for a session.
func PresenceChannel(sessionID string) Channel {
	return Channel{Name: "presence:session:" + sessionID, ScopeID: sessionID}
}

// SessionChannel carries lifecycle changes for a classroom's sessions.
func SessionChannel(classroomID string) Channel {
	return Channel{Name: "session:classroom:" + classroomID, ScopeID: classroomID}
}

// HelpChannel carries help queue changes for a session.
func HelpChannel(sessionID string) Channel {
	return Channel{Name: "help:session:" + sessionID, ScopeID: sessionID}
}

// ChannelsFor returns the channels an event is published on. Events with
// no subscribers-facing scope return nil.
func ChannelsFor(evt event.Event) []Channel {
	switch evt.Type {
	case event.TypeSessionStarted, event.TypeSessionCancelled:
		if evt.ClassroomID == "" {
			return nil
		}
		return []Channel{SessionChannel(evt.ClassroomID)}
	case event.TypeSessionEnded:
		var out []Channel
		if evt.ClassroomID != "" {
			out = append(out, SessionChannel(evt.ClassroomID))
		}
		if evt.SessionID != "" {
			// Ending a session signs everyone out.
			out = append(out, PresenceChannel(evt.SessionID))
		}
		return out
	case event.TypePersonSignedIn, event.TypePersonSignedOut:
		if evt.SessionID == "" {
			return nil
		}
		return []Channel{PresenceChannel(evt.SessionID)}
	case event.TypeHelpRequested, event.TypeHelpClaimed, event.TypeHelpUnclaimed,
		event.TypeHelpResolved, event.TypeHelpCancelled:
		if evt.SessionID == "" {
			return nil
		}
		return []Channel{HelpChannel(evt.SessionID)}
	}
	return nil
}

// Message is the body published for one event on one channel.
type Message struct {
	Channel    string           `json:"channel"`
	EventID    string           `json:"eventId"`
	EventType  event.Type       `json:"eventType"`
	EntityType event.EntityType `json:"entityType"`
	EntityID   string           `json:"entityId"`
	ScopeID    string           `json:"scopeId"`
	CreatedAt  time.Time        `json:"createdAt"`
}

func newMessage(ch Channel, evt event.Event) Message {
	return Message{
		Channel:    ch.Name,
		EventID:    evt.ID,
		EventType:  evt.Type,
		EntityType: evt.EntityType,
		EntityID:   evt.EntityID,
		ScopeID:    ch.ScopeID,
		CreatedAt:  evt.CreatedAt,
	}
}
