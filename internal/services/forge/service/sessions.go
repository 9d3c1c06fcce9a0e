package service

import (
	"context"
	"errors"
	"strings"
	"time"

	apperrors "github.com/andysmith26/forge/internal/platform/errors"
	"github.com/andysmith26/forge/internal/services/forge/domain/classroom"
	"github.com/andysmith26/forge/internal/services/forge/domain/event"
	"github.com/andysmith26/forge/internal/services/forge/domain/session"
	"github.com/andysmith26/forge/internal/services/forge/projection"
	"github.com/andysmith26/forge/internal/services/forge/storage"
)

// DropInDuration is the scheduled length of a session created and started
// on the spot.
const DropInDuration = 2 * time.Hour

// CreateSessionInput describes a session to schedule.
type CreateSessionInput struct {
	ClassroomID   string
	Name          string
	SessionType   session.Type
	ScheduledDate time.Time
	StartTime     time.Time
	EndTime       time.Time
	CreatedByID   string
}

// SessionActionInput identifies a session and the person acting on it.
type SessionActionInput struct {
	SessionID string
	ActorID   string
}

// CreateSession schedules a session. It fails with ACTIVE_SESSION_EXISTS
// while the classroom has an active session.
func (s *Service) CreateSession(ctx context.Context, in CreateSessionInput) (out session.Record, err error) {
	const op = "CreateSession"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	if _, err := s.stores.Sessions.FindActiveSession(ctx, in.ClassroomID); err == nil {
		return session.Record{}, apperrors.WithMetadata(apperrors.CodeActiveSessionExists,
			"classroom already has an active session", map[string]string{"classroomId": in.ClassroomID})
	} else if !errors.Is(err, storage.ErrNotFound) {
		return session.Record{}, s.internal(op, err)
	}

	sessionID, err := s.newID()
	if err != nil {
		return session.Record{}, s.internal(op, err)
	}
	created, err := session.Create(session.Record{
		ID:            sessionID,
		ClassroomID:   in.ClassroomID,
		Name:          strings.TrimSpace(in.Name),
		SessionType:   in.SessionType,
		ScheduledDate: in.ScheduledDate,
		StartTime:     in.StartTime,
		EndTime:       in.EndTime,
		Status:        session.StatusScheduled,
		CreatedByID:   in.CreatedByID,
		CreatedAt:     s.now(),
	})
	if err != nil {
		return session.Record{}, s.fromDomain(op, err)
	}
	if err := s.stores.Sessions.CreateSession(ctx, created.Record()); err != nil {
		return session.Record{}, s.internal(op, err)
	}
	return s.readSession(ctx, op, sessionID)
}

// StartSession moves a scheduled session to active and records
// SESSION_STARTED.
func (s *Service) StartSession(ctx context.Context, in SessionActionInput) (out session.Record, err error) {
	const op = "StartSession"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	sess, err := s.loadSession(ctx, op, in.SessionID)
	if err != nil {
		return session.Record{}, err
	}
	if !sess.CanStart() {
		return session.Record{}, invalidState(sess)
	}
	if _, err := s.stores.Sessions.FindActiveSession(ctx, sess.ClassroomID()); err == nil {
		return session.Record{}, apperrors.WithMetadata(apperrors.CodeActiveSessionExists,
			"classroom already has an active session", map[string]string{"classroomId": sess.ClassroomID()})
	} else if !errors.Is(err, storage.ErrNotFound) {
		return session.Record{}, s.internal(op, err)
	}
	room, err := s.loadClassroom(ctx, op, sess.ClassroomID())
	if err != nil {
		return session.Record{}, err
	}
	byTeacher, err := s.isTeacher(ctx, in.ActorID, room.ID)
	if err != nil {
		return session.Record{}, s.internal(op, err)
	}

	payload, err := event.Encode(event.SessionStartedPayload{
		SessionID:   sess.ID(),
		ClassroomID: sess.ClassroomID(),
		StartedBy:   in.ActorID,
		ByTeacher:   byTeacher,
	})
	if err != nil {
		return session.Record{}, s.internal(op, err)
	}
	if _, err := s.stores.Events.AppendAndEmit(ctx, sessionEvent(room, sess, event.TypeSessionStarted, in.ActorID, payload)); err != nil {
		return session.Record{}, s.startFailed(op, sess, err)
	}
	return s.readSession(ctx, op, sess.ID())
}

// startFailed classifies a rejected start. Another session that became
// active first wins with ACTIVE_SESSION_EXISTS.
func (s *Service) startFailed(op string, sess session.Session, err error) error {
	if errors.Is(err, projection.ErrActiveSessionExists) {
		return apperrors.WrapWithMetadata(apperrors.CodeActiveSessionExists,
			"classroom already has an active session", map[string]string{"classroomId": sess.ClassroomID()}, err)
	}
	return s.appendFailed(op, err, apperrors.CodeInvalidState, "session can no longer be started")
}
