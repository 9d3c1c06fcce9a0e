package service

import (
	"context"
	"sync"
	"testing"

	apperrors "github.com/andysmith26/forge/internal/platform/errors"
	"github.com/andysmith26/forge/internal/services/forge/domain/event"
	"github.com/andysmith26/forge/internal/services/forge/domain/help"
)

func TestRequestHelpOnEndedSessionAppendsNothing(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	ctx := context.Background()
	if _, err := f.svc.EndSession(ctx, SessionActionInput{SessionID: "sess-1", ActorID: "teacher-1"}); err != nil {
		t.Fatalf("end: %v", err)
	}
	before := f.countEvents(t, event.Filter{})

	_, err := f.svc.RequestHelp(ctx, helpInput("alice"))
	assertCode(t, err, apperrors.CodeSessionNotActive)
	if after := f.countEvents(t, event.Filter{}); after != before {
		t.Fatalf("events changed from %d to %d", before, after)
	}
}

func TestRequestHelpErrors(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	missing := helpInput("alice")
	missing.SessionID = "missing"
	_, err := f.svc.RequestHelp(ctx, missing)
	assertCode(t, err, apperrors.CodeSessionNotFound)

	f.startSession(t)
	wrongRoom := helpInput("alice")
	wrongRoom.PinClassroomID = "room-2"
	_, err = f.svc.RequestHelp(ctx, wrongRoom)
	assertCode(t, err, apperrors.CodeWrongClassroom)

	short := helpInput("alice")
	short.WhatITried = "nothing"
	_, err = f.svc.RequestHelp(ctx, short)
	assertCode(t, err, apperrors.CodeValidation)
	if meta := apperrors.GetMetadata(err); meta["whatITried"] == "" {
		t.Fatalf("metadata = %v", meta)
	}

	f.requestHelp(t, "alice")
	_, err = f.svc.RequestHelp(ctx, helpInput("alice"))
	assertCode(t, err, apperrors.CodeAlreadyHasOpenRequest)
}

func TestQueuePosition(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	ctx := context.Background()

	first, err := f.svc.RequestHelp(ctx, helpInput("alice"))
	if err != nil {
		t.Fatalf("alice: %v", err)
	}
	second, err := f.svc.RequestHelp(ctx, helpInput("bob"))
	if err != nil {
		t.Fatalf("bob: %v", err)
	}
	if first.QueuePosition != 0 || second.QueuePosition != 1 {
		t.Fatalf("positions = %d, %d", first.QueuePosition, second.QueuePosition)
	}
	if first.Request.Status != help.StatusPending {
		t.Fatalf("status = %s", first.Request.Status)
	}

	queue, err := f.svc.ListQueue(ctx, "sess-1")
	if err != nil {
		t.Fatalf("queue: %v", err)
	}
	if len(queue) != 2 || queue[0].Request.RequesterID != "alice" {
		t.Fatalf("queue = %+v", queue)
	}
	mine, err := f.svc.GetMyOpenRequests(ctx, "sess-1", "bob")
	if err != nil || len(mine) != 1 || mine[0].ID != second.Request.ID {
		t.Fatalf("mine = %+v, %v", mine, err)
	}
}

func TestResolvePendingClaimsFirst(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	ctx := context.Background()
	req := f.requestHelp(t, "alice")

	resolved, err := f.svc.ResolveHelpRequest(ctx, HelpActionInput{RequestID: req.ID, ActorID: "teacher-1", Notes: "reseated the cable"})
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if resolved.Status != help.StatusResolved || resolved.ClaimedByID != "teacher-1" || resolved.ResolutionNotes != "reseated the cable" {
		t.Fatalf("resolved = %+v", resolved)
	}

	events, err := f.store.LoadEvents(ctx, event.Filter{EntityType: event.EntityHelpRequest, EntityID: req.ID})
	if err != nil {
		t.Fatalf("load events: %v", err)
	}
	var types []event.Type
	for _, evt := range events {
		types = append(types, evt.Type)
	}
	want := []event.Type{event.TypeHelpRequested, event.TypeHelpClaimed, event.TypeHelpResolved}
	if len(types) != len(want) {
		t.Fatalf("types = %v, want %v", types, want)
	}
	for i := range want {
		if types[i] != want[i] {
			t.Fatalf("types = %v, want %v", types, want)
		}
	}

	_, err = f.svc.ResolveHelpRequest(ctx, HelpActionInput{RequestID: req.ID, ActorID: "teacher-1"})
	assertCode(t, err, apperrors.CodeCannotResolve)
}

func TestResolveClaimedRequiresClaimerOrTeacher(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	ctx := context.Background()
	req := f.requestHelp(t, "alice")
	if _, err := f.svc.ClaimHelpRequest(ctx, HelpActionInput{RequestID: req.ID, ActorID: "bob"}); err != nil {
		t.Fatalf("claim: %v", err)
	}

	_, err := f.svc.ResolveHelpRequest(ctx, HelpActionInput{RequestID: req.ID, ActorID: "alice"})
	assertCode(t, err, apperrors.CodeNotAuthorized)
	if _, err := f.svc.ResolveHelpRequest(ctx, HelpActionInput{RequestID: req.ID, ActorID: "teacher-1"}); err != nil {
		t.Fatalf("teacher resolve: %v", err)
	}
}

func TestConcurrentClaim(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	req := f.requestHelp(t, "alice")

	var (
		wg   sync.WaitGroup
		errs = make([]error, 2)
	)
	for i, actor := range []string{"bob", "teacher-1"} {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = f.svc.ClaimHelpRequest(context.Background(), HelpActionInput{RequestID: req.ID, ActorID: actor})
		}()
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case apperrors.IsCode(err, apperrors.CodeCannotClaim):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Fatalf("ok = %d, conflicts = %d", ok, conflicts)
	}
	if n := f.countEvents(t, event.Filter{Type: event.TypeHelpClaimed, EntityID: req.ID}); n != 1 {
		t.Fatalf("claim events = %d", n)
	}
}

func TestUnclaim(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	ctx := context.Background()
	req := f.requestHelp(t, "alice")

	_, err := f.svc.UnclaimHelpRequest(ctx, HelpActionInput{RequestID: req.ID, ActorID: "bob"})
	assertCode(t, err, apperrors.CodeCannotUnclaim)

	if _, err := f.svc.ClaimHelpRequest(ctx, HelpActionInput{RequestID: req.ID, ActorID: "bob"}); err != nil {
		t.Fatalf("claim: %v", err)
	}
	_, err = f.svc.ClaimHelpRequest(ctx, HelpActionInput{RequestID: req.ID, ActorID: "teacher-1"})
	assertCode(t, err, apperrors.CodeCannotClaim)
	_, err = f.svc.UnclaimHelpRequest(ctx, HelpActionInput{RequestID: req.ID, ActorID: "alice"})
	assertCode(t, err, apperrors.CodeNotAuthorized)

	released, err := f.svc.UnclaimHelpRequest(ctx, HelpActionInput{RequestID: req.ID, ActorID: "bob"})
	if err != nil {
		t.Fatalf("unclaim: %v", err)
	}
	if released.Status != help.StatusPending || released.ClaimedByID != "" {
		t.Fatalf("released = %+v", released)
	}
}

func TestCancelHelpRequest(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	ctx := context.Background()
	req := f.requestHelp(t, "alice")

	_, err := f.svc.CancelHelpRequest(ctx, HelpActionInput{RequestID: req.ID, ActorID: "bob"})
	assertCode(t, err, apperrors.CodeNotAuthorized)

	cancelled, err := f.svc.CancelHelpRequest(ctx, HelpActionInput{RequestID: req.ID, ActorID: "alice", Notes: "figured it out"})
	if err != nil {
		t.Fatalf("cancel: %v", err)
	}
	if cancelled.Status != help.StatusCancelled || cancelled.CancellationReason != "figured it out" {
		t.Fatalf("cancelled = %+v", cancelled)
	}
	_, err = f.svc.CancelHelpRequest(ctx, HelpActionInput{RequestID: req.ID, ActorID: "alice"})
	assertCode(t, err, apperrors.CodeCannotCancel)

	_, err = f.svc.ClaimHelpRequest(ctx, HelpActionInput{RequestID: "missing", ActorID: "bob"})
	assertCode(t, err, apperrors.CodeNotFound)
}
