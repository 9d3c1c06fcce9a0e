package projection

import (
	"context"
	"errors"

	"github.com/andysmith26/forge/internal/services/forge/domain/domainerr"
	"github.com/andysmith26/forge/internal/services/forge/domain/event"
	"github.com/andysmith26/forge/internal/services/forge/domain/help"
	"github.com/andysmith26/forge/internal/services/forge/storage"
)

// HelpRequestProjector owns the help request table.
type HelpRequestProjector struct{}

func (HelpRequestProjector) Name() string { return "HelpRequestProjector" }

func (HelpRequestProjector) HandledEvents() []event.Type {
	return []event.Type{
		event.TypeHelpRequested,
		event.TypeHelpClaimed,
		event.TypeHelpUnclaimed,
		event.TypeHelpResolved,
		event.TypeHelpCancelled,
	}
}

func (HelpRequestProjector) Apply(ctx context.Context, stores Stores, evt event.Event) error {
	if evt.Type == event.TypeHelpRequested {
		return applyHelpRequested(ctx, stores, evt)
	}

	var (
		requestID string
		step      func(help.Request) (help.Request, error)
		target    func(help.Record) help.Record
	)
	at := evt.CreatedAt
	switch evt.Type {
	case event.TypeHelpClaimed:
		p, err := event.Decode[event.HelpClaimedPayload](evt)
		if err != nil {
			return err
		}
		requestID = p.RequestID
		step = func(q help.Request) (help.Request, error) { return q.Claim(p.ClaimedByID, at) }
		target = func(r help.Record) help.Record {
			r.Status, r.ClaimedByID, r.ClaimedAt = help.StatusClaimed, p.ClaimedByID, &at
			return r
		}
	case event.TypeHelpUnclaimed:
		p, err := event.Decode[event.HelpUnclaimedPayload](evt)
		if err != nil {
			return err
		}
		requestID = p.RequestID
		step = func(q help.Request) (help.Request, error) { return q.Unclaim() }
		target = func(r help.Record) help.Record {
			r.Status, r.ClaimedByID, r.ClaimedAt = help.StatusPending, "", nil
			return r
		}
	case event.TypeHelpResolved:
		p, err := event.Decode[event.HelpResolvedPayload](evt)
		if err != nil {
			return err
		}
		requestID = p.RequestID
		step = func(q help.Request) (help.Request, error) { return q.Resolve(p.ResolutionNotes, at) }
		target = func(r help.Record) help.Record {
			r.Status, r.ResolvedAt, r.ResolutionNotes = help.StatusResolved, &at, p.ResolutionNotes
			return r
		}
	case event.TypeHelpCancelled:
		p, err := event.Decode[event.HelpCancelledPayload](evt)
		if err != nil {
			return err
		}
		requestID = p.RequestID
		step = func(q help.Request) (help.Request, error) { return q.Cancel(p.Reason, at) }
		target = func(r help.Record) help.Record {
			r.Status, r.CancelledAt, r.CancellationReason = help.StatusCancelled, &at, p.Reason
			return r
		}
	default:
		return nil
	}

	rec, err := stores.HelpRequests.GetHelpRequest(ctx, requestID)
	if err != nil {
		if Replaying(ctx) && errors.Is(err, storage.ErrNotFound) {
			return nil
		}
		return err
	}
	if Replaying(ctx) {
		return stores.HelpRequests.PutHelpRequest(ctx, target(rec))
	}
	next, err := step(help.FromRecord(rec))
	if err != nil {
		return err
	}
	return stores.HelpRequests.PutHelpRequest(ctx, next.Record())
}

func applyHelpRequested(ctx context.Context, stores Stores, evt event.Event) error {
	p, err := event.Decode[event.HelpRequestedPayload](evt)
	if err != nil {
		return err
	}
	if !Replaying(ctx) {
		_, err = stores.HelpRequests.FindOpenHelpRequest(ctx, p.SessionID, p.RequesterID)
		if err == nil {
			return domainerr.Conflict("Requester %s already has an open request", p.RequesterID)
		}
		if !errors.Is(err, storage.ErrNotFound) {
			return err
		}
	}
	return stores.HelpRequests.PutHelpRequest(ctx, help.FromRecord(help.Record{
		ID:          p.RequestID,
		ClassroomID: p.ClassroomID,
		SessionID:   p.SessionID,
		RequesterID: p.RequesterID,
		CategoryID:  p.CategoryID,
		Description: p.Description,
		WhatITried:  p.WhatITried,
		Urgency:     help.Urgency(p.Urgency),
		Status:      help.StatusPending,
		CreatedAt:   evt.CreatedAt,
	}).Record())
}

func (HelpRequestProjector) Clear(ctx context.Context, stores Stores) error {
	return stores.HelpRequests.ClearHelpRequests(ctx)
}
