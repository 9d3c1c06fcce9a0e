package service

import (
	"context"
	"errors"

	apperrors "github.com/andysmith26/forge/internal/platform/errors"
	"github.com/andysmith26/forge/internal/services/forge/domain/classroom"
	"github.com/andysmith26/forge/internal/services/forge/domain/event"
	"github.com/andysmith26/forge/internal/services/forge/domain/session"
	"github.com/andysmith26/forge/internal/services/forge/domain/signin"
	"github.com/andysmith26/forge/internal/services/forge/storage"
	"golang.org/x/sync/errgroup"
)

// PresenceInput names who signs in or out of a session and who does it.
// PinClassroomID confines a PIN-authenticated actor to one classroom.
type PresenceInput struct {
	SessionID      string
	PersonID       string
	ActorID        string
	PinClassroomID string
}

// SignIn opens a new sign-in cycle for a person in an active session.
func (s *Service) SignIn(ctx context.Context, in PresenceInput) (out signin.Record, err error) {
	const op = "SignIn"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	sess, active, err := s.sessionAndActiveSignIn(ctx, in.SessionID, in.PersonID)
	if err != nil {
		return signin.Record{}, s.internal(op, err)
	}
	if sess == nil {
		return signin.Record{}, apperrors.WithMetadata(apperrors.CodeSessionNotFound, "session not found",
			map[string]string{"sessionId": in.SessionID})
	}
	if !sess.AllowsSignIn() {
		return signin.Record{}, apperrors.WithMetadata(apperrors.CodeSessionNotActive, "session is not active",
			map[string]string{"sessionId": sess.ID(), "currentStatus": string(sess.Status())})
	}
	if active != nil {
		return signin.Record{}, apperrors.WithMetadata(apperrors.CodeAlreadySignedIn, "already signed in",
			map[string]string{"signInId": active.ID})
	}
	if in.PinClassroomID != "" && in.PinClassroomID != sess.ClassroomID() {
		return signin.Record{}, apperrors.New(apperrors.CodeWrongClassroom, "session belongs to another classroom")
	}
	room, err := s.loadClassroom(ctx, op, sess.ClassroomID())
	if err != nil {
		return signin.Record{}, err
	}
	byTeacher, err := s.isTeacher(ctx, in.ActorID, room.ID)
	if err != nil {
		return signin.Record{}, s.internal(op, err)
	}

	signInID, err := s.newID()
	if err != nil {
		return signin.Record{}, s.internal(op, err)
	}
	opened, err := signin.New(signInID, sess.ID(), in.PersonID, in.ActorID, s.now())
	if err != nil {
		return signin.Record{}, s.fromDomain(op, err)
	}
	payload, err := event.Encode(event.PersonSignedInPayload{
		SignInID:     signInID,
		SessionID:    sess.ID(),
		ClassroomID:  sess.ClassroomID(),
		PersonID:     in.PersonID,
		SignedInBy:   in.ActorID,
		IsSelfSignIn: opened.IsSelfSignIn(),
		ByTeacher:    byTeacher,
	})
	if err != nil {
		return signin.Record{}, s.internal(op, err)
	}
	if _, err := s.stores.Events.AppendAndEmit(ctx, event.AppendInput{
		SchoolID:    room.SchoolID,
		ClassroomID: sess.ClassroomID(),
		SessionID:   sess.ID(),
		Type:        event.TypePersonSignedIn,
		EntityType:  event.EntitySignIn,
		EntityID:    signInID,
		ActorID:     in.ActorID,
		Payload:     payload,
	}); err != nil {
		return signin.Record{}, s.appendFailed(op, err, apperrors.CodeAlreadySignedIn, "already signed in")
	}

	rec, err := s.stores.Presence.GetSignIn(ctx, signInID)
	if err != nil {
		return signin.Record{}, s.internal(op, err)
	}
	return rec, nil
}

// SignOut closes the open sign-in of a person. The signout type is self
// when the person signs themselves out and manual otherwise.
func (s *Service) SignOut(ctx context.Context, in PresenceInput) (out signin.Record, err error) {
	const op = "SignOut"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	sess, active, err := s.sessionAndActiveSignIn(ctx, in.SessionID, in.PersonID)
	if err != nil {
		return signin.Record{}, s.internal(op, err)
	}
	if sess == nil {
		return signin.Record{}, apperrors.WithMetadata(apperrors.CodeSessionNotFound, "session not found",
			map[string]string{"sessionId": in.SessionID})
	}
	if active == nil || !signin.FromRecord(*active).CanSignOut() {
		return signin.Record{}, apperrors.WithMetadata(apperrors.CodeNotSignedIn, "not signed in",
			map[string]string{"sessionId": sess.ID()})
	}
	if in.PinClassroomID != "" && in.PinClassroomID != sess.ClassroomID() {
		return signin.Record{}, apperrors.New(apperrors.CodeWrongClassroom, "session belongs to another classroom")
	}

	typ := signin.SignoutManual
	if in.ActorID == in.PersonID {
		typ = signin.SignoutSelf
	}
	var (
		byTeacher bool
		room      classroom.Record
		roomErr   error
	)
	g, gctx := errgroup.WithContext(ctx)
	if typ != signin.SignoutSelf {
		g.Go(func() error {
			var err error
			byTeacher, err = s.isTeacher(gctx, in.ActorID, sess.ClassroomID())
			return err
		})
	}
	g.Go(func() error {
		room, roomErr = s.stores.Classrooms.GetClassroom(gctx, sess.ClassroomID())
		if errors.Is(roomErr, storage.ErrNotFound) {
			return nil
		}
		return roomErr
	})
	if err := g.Wait(); err != nil {
		return signin.Record{}, s.internal(op, err)
	}
	if roomErr != nil {
		return signin.Record{}, apperrors.WithMetadata(apperrors.CodeClassroomNotFound, "classroom not found",
			map[string]string{"classroomId": sess.ClassroomID()})
	}

	closed, err := signin.FromRecord(*active).SignOut(in.ActorID, typ, s.now())
	if err != nil {
		return signin.Record{}, apperrors.Wrap(apperrors.CodeNotSignedIn, "not signed in", err)
	}
	payload, err := event.Encode(event.PersonSignedOutPayload{
		SignInID:    active.ID,
		SessionID:   sess.ID(),
		ClassroomID: sess.ClassroomID(),
		PersonID:    in.PersonID,
		SignedOutBy: in.ActorID,
		SignoutType: string(typ),
		ByTeacher:   byTeacher,
	})
	if err != nil {
		return signin.Record{}, s.internal(op, err)
	}
	if _, err := s.stores.Events.AppendAndEmit(ctx, event.AppendInput{
		SchoolID:    room.SchoolID,
		ClassroomID: sess.ClassroomID(),
		SessionID:   sess.ID(),
		Type:        event.TypePersonSignedOut,
		EntityType:  event.EntitySignIn,
		EntityID:    active.ID,
		ActorID:     in.ActorID,
		Payload:     payload,
	}); err != nil {
		return signin.Record{}, s.appendFailed(op, err, apperrors.CodeNotSignedIn, "not signed in")
	}

	rec, err := s.stores.Presence.GetSignIn(ctx, closed.ID())
	if err != nil {
		return signin.Record{}, s.internal(op, err)
	}
	return rec, nil
}

// GetSignInStatus returns the open sign-in of a person. The bool is false
// when the person is not signed in.
func (s *Service) GetSignInStatus(ctx context.Context, sessionID, personID string) (signin.Record, bool, error) {
	rec, err := s.stores.Presence.GetActiveSignIn(ctx, sessionID, personID)
	if errors.Is(err, storage.ErrNotFound) {
		return signin.Record{}, false, nil
	}
	if err != nil {
		return signin.Record{}, false, s.internal("GetSignInStatus", err)
	}
	return rec, true, nil
}

// ListPresent returns everyone currently signed in to a session.
func (s *Service) ListPresent(ctx context.Context, sessionID string) ([]storage.PresentPerson, error) {
	out, err := s.stores.Presence.ListPresent(ctx, sessionID)
	if err != nil {
		return nil, s.internal("ListPresent", err)
	}
	return out, nil
}

// ListSignInsForSession returns every sign-in cycle of a session.
func (s *Service) ListSignInsForSession(ctx context.Context, sessionID string) ([]signin.Record, error) {
	out, err := s.stores.Presence.ListSignInsForSession(ctx, sessionID)
	if err != nil {
		return nil, s.internal("ListSignInsForSession", err)
	}
	return out, nil
}

// sessionAndActiveSignIn reads the session and the open sign-in in
// parallel. Missing rows come back nil; only storage failures are errors.
func (s *Service) sessionAndActiveSignIn(ctx context.Context, sessionID, personID string) (*session.Session, *signin.Record, error) {
	var (
		sess   *session.Session
		active *signin.Record
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rec, err := s.stores.Sessions.GetSession(gctx, sessionID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		loaded := session.FromRecord(rec)
		sess = &loaded
		return nil
	})
	g.Go(func() error {
		rec, err := s.stores.Presence.GetActiveSignIn(gctx, sessionID, personID)
		if errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		if err != nil {
			return err
		}
		active = &rec
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, nil, err
	}
	return sess, active, nil
}
