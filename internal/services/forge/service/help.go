package service

import (
	"context"
	"errors"

	apperrors "github.com/andysmith26/forge/internal/platform/errors"
	"github.com/andysmith26/forge/internal/services/forge/domain/classroom"
	"github.com/andysmith26/forge/internal/services/forge/domain/event"
	"github.com/andysmith26/forge/internal/services/forge/domain/help"
	"github.com/andysmith26/forge/internal/services/forge/storage"
)

// RequestHelpInput is a new help request from a signed-in person.
type RequestHelpInput struct {
	SessionID      string
	RequesterID    string
	CategoryID     string
	Description    string
	WhatITried     string
	Urgency        help.Urgency
	PinClassroomID string
}

// RequestHelpResult is the stored request and how many pending requests
// in the classroom were raised before it.
type RequestHelpResult struct {
	Request       help.Record
	QueuePosition int
}

// HelpActionInput identifies a request and the person acting on it.
type HelpActionInput struct {
	RequestID string
	ActorID   string
	// Notes is the resolution note or cancellation reason.
	Notes string
}

// RequestHelp raises a help request in an active session.
func (s *Service) RequestHelp(ctx context.Context, in RequestHelpInput) (out RequestHelpResult, err error) {
	const op = "RequestHelp"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	sess, err := s.loadSession(ctx, op, in.SessionID)
	if err != nil {
		return RequestHelpResult{}, err
	}
	if !sess.IsActive() {
		return RequestHelpResult{}, apperrors.WithMetadata(apperrors.CodeSessionNotActive, "session is not active",
			map[string]string{"sessionId": sess.ID(), "currentStatus": string(sess.Status())})
	}
	if in.PinClassroomID != "" && in.PinClassroomID != sess.ClassroomID() {
		return RequestHelpResult{}, apperrors.New(apperrors.CodeWrongClassroom, "session belongs to another classroom")
	}
	if open, err := s.stores.Help.FindOpenHelpRequest(ctx, sess.ID(), in.RequesterID); err == nil {
		return RequestHelpResult{}, apperrors.WithMetadata(apperrors.CodeAlreadyHasOpenRequest,
			"requester already has an open request", map[string]string{"requestId": open.ID})
	} else if !errors.Is(err, storage.ErrNotFound) {
		return RequestHelpResult{}, s.internal(op, err)
	}
	room, err := s.loadClassroom(ctx, op, sess.ClassroomID())
	if err != nil {
		return RequestHelpResult{}, err
	}

	requestID, err := s.newID()
	if err != nil {
		return RequestHelpResult{}, s.internal(op, err)
	}
	if _, err := help.Create(help.Record{
		ID:          requestID,
		ClassroomID: sess.ClassroomID(),
		SessionID:   sess.ID(),
		RequesterID: in.RequesterID,
		CategoryID:  in.CategoryID,
		Description: in.Description,
		WhatITried:  in.WhatITried,
		Urgency:     in.Urgency,
		CreatedAt:   s.now(),
	}); err != nil {
		return RequestHelpResult{}, s.fromDomain(op, err)
	}
	byTeacher, err := s.isTeacher(ctx, in.RequesterID, room.ID)
	if err != nil {
		return RequestHelpResult{}, s.internal(op, err)
	}

	payload, err := event.Encode(event.HelpRequestedPayload{
		RequestID:   requestID,
		SessionID:   sess.ID(),
		ClassroomID: sess.ClassroomID(),
		RequesterID: in.RequesterID,
		Urgency:     string(in.Urgency),
		CategoryID:  in.CategoryID,
		Description: in.Description,
		WhatITried:  in.WhatITried,
		ByTeacher:   byTeacher,
	})
	if err != nil {
		return RequestHelpResult{}, s.internal(op, err)
	}
	if _, err := s.stores.Events.AppendAndEmit(ctx, event.AppendInput{
		SchoolID:    room.SchoolID,
		ClassroomID: sess.ClassroomID(),
		SessionID:   sess.ID(),
		Type:        event.TypeHelpRequested,
		EntityType:  event.EntityHelpRequest,
		EntityID:    requestID,
		ActorID:     in.RequesterID,
		Payload:     payload,
	}); err != nil {
		return RequestHelpResult{}, s.appendFailed(op, err, apperrors.CodeAlreadyHasOpenRequest, "requester already has an open request")
	}

	rec, err := s.stores.Help.GetHelpRequest(ctx, requestID)
	if err != nil {
		return RequestHelpResult{}, s.internal(op, err)
	}
	position, err := s.stores.Help.CountPendingBefore(ctx, rec.ClassroomID, rec.CreatedAt)
	if err != nil {
		return RequestHelpResult{}, s.internal(op, err)
	}
	return RequestHelpResult{Request: rec, QueuePosition: position}, nil
}

// ClaimHelpRequest assigns a pending request to the actor.
func (s *Service) ClaimHelpRequest(ctx context.Context, in HelpActionInput) (out help.Record, err error) {
	const op = "ClaimHelpRequest"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	req, err := s.loadHelpRequest(ctx, op, in.RequestID)
	if err != nil {
		return help.Record{}, err
	}
	if !req.CanClaim() {
		return help.Record{}, cannot(apperrors.CodeCannotClaim, "request cannot be claimed", req)
	}
	room, err := s.loadClassroom(ctx, op, req.ClassroomID())
	if err != nil {
		return help.Record{}, err
	}
	byTeacher, err := s.isTeacher(ctx, in.ActorID, room.ID)
	if err != nil {
		return help.Record{}, s.internal(op, err)
	}

	payload, err := event.Encode(event.HelpClaimedPayload{
		HelpRef:     helpRef(req, byTeacher),
		ClaimedByID: in.ActorID,
	})
	if err != nil {
		return help.Record{}, s.internal(op, err)
	}
	if _, err := s.stores.Events.AppendAndEmit(ctx, helpEvent(room, req, event.TypeHelpClaimed, in.ActorID, payload)); err != nil {
		return help.Record{}, s.appendFailed(op, err, apperrors.CodeCannotClaim, "request cannot be claimed")
	}
	return s.readHelpRequest(ctx, op, req.ID())
}

// UnclaimHelpRequest releases a claimed request back to pending. Only the
// claimer or a teacher may release it.
func (s *Service) UnclaimHelpRequest(ctx context.Context, in HelpActionInput) (out help.Record, err error) {
	const op = "UnclaimHelpRequest"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	req, err := s.loadHelpRequest(ctx, op, in.RequestID)
	if err != nil {
		return help.Record{}, err
	}
	if !req.CanUnclaim() {
		return help.Record{}, cannot(apperrors.CodeCannotUnclaim, "request cannot be unclaimed", req)
	}
	byTeacher, err := s.isTeacher(ctx, in.ActorID, req.ClassroomID())
	if err != nil {
		return help.Record{}, s.internal(op, err)
	}
	if req.ClaimedByID() != in.ActorID && !byTeacher {
		return help.Record{}, apperrors.New(apperrors.CodeNotAuthorized, "only the claimer or a teacher can unclaim")
	}
	room, err := s.loadClassroom(ctx, op, req.ClassroomID())
	if err != nil {
		return help.Record{}, err
	}

	payload, err := event.Encode(event.HelpUnclaimedPayload{
		HelpRef:       helpRef(req, byTeacher),
		UnclaimedByID: in.ActorID,
	})
	if err != nil {
		return help.Record{}, s.internal(op, err)
	}
	if _, err := s.stores.Events.AppendAndEmit(ctx, helpEvent(room, req, event.TypeHelpUnclaimed, in.ActorID, payload)); err != nil {
		return help.Record{}, s.appendFailed(op, err, apperrors.CodeCannotUnclaim, "request cannot be unclaimed")
	}
	return s.readHelpRequest(ctx, op, req.ID())
}

// ResolveHelpRequest resolves a claimed request. A pending request is
// claimed by the actor first, so one call records HELP_CLAIMED and then
// HELP_RESOLVED.
func (s *Service) ResolveHelpRequest(ctx context.Context, in HelpActionInput) (out help.Record, err error) {
	const op = "ResolveHelpRequest"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	req, err := s.loadHelpRequest(ctx, op, in.RequestID)
	if err != nil {
		return help.Record{}, err
	}
	if !req.CanResolve() && !req.CanClaim() {
		return help.Record{}, cannot(apperrors.CodeCannotResolve, "request cannot be resolved", req)
	}
	byTeacher, err := s.isTeacher(ctx, in.ActorID, req.ClassroomID())
	if err != nil {
		return help.Record{}, s.internal(op, err)
	}

	if req.CanClaim() {
		claimed, err := s.ClaimHelpRequest(ctx, HelpActionInput{RequestID: req.ID(), ActorID: in.ActorID})
		if apperrors.IsCode(err, apperrors.CodeCannotClaim) {
			return help.Record{}, apperrors.Wrap(apperrors.CodeCannotResolve, "request cannot be resolved", err)
		}
		if err != nil {
			return help.Record{}, err
		}
		req = help.FromRecord(claimed)
	} else if req.ClaimedByID() != in.ActorID && !byTeacher {
		return help.Record{}, apperrors.New(apperrors.CodeNotAuthorized, "only the claimer or a teacher can resolve")
	}
	room, err := s.loadClassroom(ctx, op, req.ClassroomID())
	if err != nil {
		return help.Record{}, err
	}

	payload, err := event.Encode(event.HelpResolvedPayload{
		HelpRef:         helpRef(req, byTeacher),
		ResolverID:      in.ActorID,
		ResolutionNotes: in.Notes,
	})
	if err != nil {
		return help.Record{}, s.internal(op, err)
	}
	if _, err := s.stores.Events.AppendAndEmit(ctx, helpEvent(room, req, event.TypeHelpResolved, in.ActorID, payload)); err != nil {
		return help.Record{}, s.appendFailed(op, err, apperrors.CodeCannotResolve, "request cannot be resolved")
	}
	return s.readHelpRequest(ctx, op, req.ID())
}

// CancelHelpRequest cancels an open request. Only the requester or a
// teacher may cancel.
func (s *Service) CancelHelpRequest(ctx context.Context, in HelpActionInput) (out help.Record, err error) {
	const op = "CancelHelpRequest"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	req, err := s.loadHelpRequest(ctx, op, in.RequestID)
	if err != nil {
		return help.Record{}, err
	}
	if !req.CanCancel() {
		return help.Record{}, cannot(apperrors.CodeCannotCancel, "request cannot be cancelled", req)
	}
	room, err := s.loadClassroom(ctx, op, req.ClassroomID())
	if err != nil {
		return help.Record{}, err
	}
	byTeacher, err := s.isTeacher(ctx, in.ActorID, room.ID)
	if err != nil {
		return help.Record{}, s.internal(op, err)
	}
	if !req.CanRequesterCancel(in.ActorID) && !byTeacher {
		return help.Record{}, apperrors.New(apperrors.CodeNotAuthorized, "only the requester or a teacher can cancel")
	}

	payload, err := event.Encode(event.HelpCancelledPayload{
		HelpRef:     helpRef(req, byTeacher),
		CancelledBy: in.ActorID,
		Reason:      in.Notes,
	})
	if err != nil {
		return help.Record{}, s.internal(op, err)
	}
	if _, err := s.stores.Events.AppendAndEmit(ctx, helpEvent(room, req, event.TypeHelpCancelled, in.ActorID, payload)); err != nil {
		return help.Record{}, s.appendFailed(op, err, apperrors.CodeCannotCancel, "request cannot be cancelled")
	}
	return s.readHelpRequest(ctx, op, req.ID())
}

// ListQueue returns the open requests of a session with display names.
func (s *Service) ListQueue(ctx context.Context, sessionID string) ([]storage.QueueItem, error) {
	out, err := s.stores.Help.ListQueue(ctx, sessionID)
	if err != nil {
		return nil, s.internal("ListQueue", err)
	}
	return out, nil
}

// GetMyOpenRequests returns the open requests a person raised in a session.
func (s *Service) GetMyOpenRequests(ctx context.Context, sessionID, personID string) ([]help.Record, error) {
	out, err := s.stores.Help.ListOpenHelpRequests(ctx, sessionID, personID)
	if err != nil {
		return nil, s.internal("GetMyOpenRequests", err)
	}
	return out, nil
}

func (s *Service) loadHelpRequest(ctx context.Context, op, requestID string) (help.Request, error) {
	rec, err := s.stores.Help.GetHelpRequest(ctx, requestID)
	if err != nil {
		return help.Request{}, s.lookup(op, err, apperrors.CodeNotFound,
			"help request not found", map[string]string{"requestId": requestID})
	}
	return help.FromRecord(rec), nil
}

func (s *Service) readHelpRequest(ctx context.Context, op, requestID string) (help.Record, error) {
	rec, err := s.stores.Help.GetHelpRequest(ctx, requestID)
	if err != nil {
		return help.Record{}, s.internal(op, err)
	}
	return rec, nil
}

func cannot(code apperrors.Code, message string, req help.Request) error {
	return apperrors.WithMetadata(code, message,
		map[string]string{"requestId": req.ID(), "currentStatus": string(req.Status())})
}

func helpRef(req help.Request, byTeacher bool) event.HelpRef {
	return event.HelpRef{
		RequestID:   req.ID(),
		SessionID:   req.SessionID(),
		ClassroomID: req.ClassroomID(),
		RequesterID: req.RequesterID(),
		ByTeacher:   byTeacher,
	}
}

func helpEvent(room classroom.Record, req help.Request, typ event.Type, actorID string, payload []byte) event.AppendInput {
	return event.AppendInput{
		SchoolID:    room.SchoolID,
		ClassroomID: req.ClassroomID(),
		SessionID:   req.SessionID(),
		Type:        typ,
		EntityType:  event.EntityHelpRequest,
		EntityID:    req.ID(),
		ActorID:     actorID,
		Payload:     payload,
	}
}
