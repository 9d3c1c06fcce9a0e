package projection

import (
	"context"
	"errors"
	"fmt"

	"github.com/andysmith26/forge/internal/services/forge/domain/domainerr"
	"github.com/andysmith26/forge/internal/services/forge/domain/event"
	"github.com/andysmith26/forge/internal/services/forge/domain/session"
	"github.com/andysmith26/forge/internal/services/forge/storage"
)

// SessionProjector owns session lifecycle columns. A classroom has at most
// one active session; a start that would break that is a conflict.
type SessionProjector struct{}

func (SessionProjector) Name() string { return "SessionProjector" }

func (SessionProjector) HandledEvents() []event.Type {
	return []event.Type{event.TypeSessionStarted, event.TypeSessionEnded, event.TypeSessionCancelled}
}

func (SessionProjector) Apply(ctx context.Context, stores Stores, evt event.Event) error {
	var (
		sessionID string
		step      func(session.Session) (session.Session, error)
		target    func(session.Record) session.Record
	)
	at := evt.CreatedAt
	switch evt.Type {
	case event.TypeSessionStarted:
		p, err := event.Decode[event.SessionStartedPayload](evt)
		if err != nil {
			return err
		}
		sessionID = p.SessionID
		if !Replaying(ctx) {
			if err := ensureNoOtherActive(ctx, stores, p.ClassroomID, p.SessionID); err != nil {
				return err
			}
		}
		step = func(s session.Session) (session.Session, error) { return s.Start(at) }
		target = func(r session.Record) session.Record {
			r.Status, r.ActualStartAt = session.StatusActive, &at
			return r
		}
	case event.TypeSessionEnded:
		p, err := event.Decode[event.SessionEndedPayload](evt)
		if err != nil {
			return err
		}
		sessionID = p.SessionID
		step = func(s session.Session) (session.Session, error) { return s.End(at) }
		target = func(r session.Record) session.Record {
			r.Status, r.ActualEndAt = session.StatusEnded, &at
			return r
		}
	case event.TypeSessionCancelled:
		p, err := event.Decode[event.SessionCancelledPayload](evt)
		if err != nil {
			return err
		}
		sessionID = p.SessionID
		step = func(s session.Session) (session.Session, error) { return s.Cancel() }
		target = func(r session.Record) session.Record {
			r.Status = session.StatusCancelled
			return r
		}
	default:
		return nil
	}

	rec, err := stores.Sessions.GetSession(ctx, sessionID)
	if err != nil {
		if Replaying(ctx) && errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	if Replaying(ctx) {
		return stores.Sessions.PutSessionLifecycle(ctx, target(rec))
	}
	next, err := step(session.FromRecord(rec))
	if err != nil {
		return err
	}
	return stores.Sessions.PutSessionLifecycle(ctx, next.Record())
}

// ErrActiveSessionExists marks a start rejected because another session of
// the classroom is active.
var ErrActiveSessionExists = errors.New("classroom already has an active session")

func ensureNoOtherActive(ctx context.Context, stores Stores, classroomID, sessionID string) error {
	active, err := stores.Sessions.FindActiveSession(ctx, classroomID)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	if active.ID != sessionID {
		return &domainerr.Error{
			Kind:    domainerr.KindConflict,
			Message: fmt.Sprintf("Classroom %s already has active session %s", classroomID, active.ID),
			Cause:   ErrActiveSessionExists,
		}
	}
	return nil
}

func (SessionProjector) Clear(ctx context.Context, stores Stores) error {
	return stores.Sessions.ResetSessionLifecycles(ctx)
}
