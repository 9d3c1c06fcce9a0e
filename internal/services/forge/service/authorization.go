package service

import (
	"context"
	"errors"

	apperrors "github.com/andysmith26/forge/internal/platform/errors"
	"github.com/andysmith26/forge/internal/platform/requestctx"
	"github.com/andysmith26/forge/internal/services/forge/domain/membership"
	"github.com/andysmith26/forge/internal/services/forge/domain/signin"
	"github.com/andysmith26/forge/internal/services/forge/storage"
)

// RequireActor returns the authenticated actor carried by ctx.
func RequireActor(ctx context.Context) (requestctx.Actor, error) {
	actor, ok := requestctx.ActorFromContext(ctx)
	if !ok {
		return requestctx.Actor{}, apperrors.New(apperrors.CodeNotAuthenticated, "authentication required")
	}
	return actor, nil
}

// RequireMember returns the active membership of personID in classroomID.
func (s *Service) RequireMember(ctx context.Context, personID, classroomID string) (membership.Record, error) {
	if personID == "" {
		return membership.Record{}, apperrors.New(apperrors.CodeNotAuthenticated, "authentication required")
	}
	m, err := s.stores.Classrooms.GetMembership(ctx, classroomID, personID)
	if err != nil {
		return membership.Record{}, s.lookup("RequireMember", err, apperrors.CodeNotMember,
			"not a member of this classroom", map[string]string{"classroomId": classroomID})
	}
	if !m.IsActive {
		return membership.Record{}, apperrors.WithMetadata(apperrors.CodeNotMember,
			"not a member of this classroom", map[string]string{"classroomId": classroomID})
	}
	return m, nil
}

// RequireTeacher returns the membership of personID when it is an active
// teacher membership in classroomID.
func (s *Service) RequireTeacher(ctx context.Context, personID, classroomID string) (membership.Record, error) {
	m, err := s.RequireMember(ctx, personID, classroomID)
	if err != nil {
		return membership.Record{}, err
	}
	if !membership.FromRecord(m).IsTeacher() {
		return membership.Record{}, apperrors.WithMetadata(apperrors.CodeNotTeacher,
			"teacher role required", map[string]string{"classroomId": classroomID})
	}
	return m, nil
}

// RequireSignedIn returns the open sign-in of personID in sessionID.
func (s *Service) RequireSignedIn(ctx context.Context, personID, sessionID string) (signin.Record, error) {
	if personID == "" {
		return signin.Record{}, apperrors.New(apperrors.CodeNotAuthenticated, "authentication required")
	}
	rec, err := s.stores.Presence.GetActiveSignIn(ctx, sessionID, personID)
	if err != nil {
		return signin.Record{}, s.lookup("RequireSignedIn", err, apperrors.CodeNotSignedIn,
			"not signed in to this session", map[string]string{"sessionId": sessionID})
	}
	return rec, nil
}

// isTeacher reports whether personID teaches classroomID. Only storage
// failures are returned as errors.
func (s *Service) isTeacher(ctx context.Context, personID, classroomID string) (bool, error) {
	if personID == "" {
		return false, nil
	}
	m, err := s.stores.Classrooms.GetMembership(ctx, classroomID, personID)
	if errors.Is(err, storage.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return membership.FromRecord(m).IsTeacher(), nil
}
