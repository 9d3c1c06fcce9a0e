package memory

import (
	"context"
	"errors"
	"reflect"
	"sync"
	"testing"
	"time"

	apperrors "github.com/andysmith26/forge/internal/platform/errors"
	"github.com/andysmith26/forge/internal/services/forge/domain/domainerr"
	"github.com/andysmith26/forge/internal/services/forge/domain/event"
	"github.com/andysmith26/forge/internal/services/forge/domain/help"
	"github.com/andysmith26/forge/internal/services/forge/domain/membership"
	"github.com/andysmith26/forge/internal/services/forge/domain/person"
	"github.com/andysmith26/forge/internal/services/forge/domain/session"
	"github.com/andysmith26/forge/internal/services/forge/domain/signin"
	"github.com/andysmith26/forge/internal/services/forge/projection"
	"github.com/andysmith26/forge/internal/services/forge/storage"
)

var epoch = time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

func newTestStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	var (
		mu  sync.Mutex
		now = epoch
	)
	clock := func() time.Time {
		mu.Lock()
		defer mu.Unlock()
		now = now.Add(time.Second)
		return now
	}
	store := New(append([]Option{WithClock(clock)}, opts...)...)
	ctx := context.Background()
	if err := store.CreateSession(ctx, session.Record{
		ID: "sess-1", ClassroomID: "room-1", SessionType: session.TypeDropIn,
		ScheduledDate: epoch, StartTime: epoch, EndTime: epoch.Add(time.Hour), CreatedAt: epoch,
	}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	if err := store.PutPerson(ctx, person.Record{ID: "alice", SchoolID: "school-1", Email: "alice@example.com", DisplayName: "Alice", IsActive: true}); err != nil {
		t.Fatalf("put person: %v", err)
	}
	return store
}

func encode(t *testing.T, payload any) []byte {
	t.Helper()
	data, err := event.Encode(payload)
	if err != nil {
		t.Fatalf("encode: %v", err)
	}
	return data
}

func started(t *testing.T) event.AppendInput {
	return event.AppendInput{
		SchoolID: "school-1", ClassroomID: "room-1", SessionID: "sess-1",
		Type: event.TypeSessionStarted, EntityType: event.EntitySession, EntityID: "sess-1",
		Payload: encode(t, event.SessionStartedPayload{SessionID: "sess-1", ClassroomID: "room-1", StartedBy: "teacher-1"}),
	}
}

func ended(t *testing.T) event.AppendInput {
	return event.AppendInput{
		SchoolID: "school-1", ClassroomID: "room-1", SessionID: "sess-1",
		Type: event.TypeSessionEnded, EntityType: event.EntitySession, EntityID: "sess-1",
		Payload: encode(t, event.SessionEndedPayload{SessionID: "sess-1", ClassroomID: "room-1", EndedBy: "teacher-1"}),
	}
}

func signedIn(t *testing.T, signInID string) event.AppendInput {
	return event.AppendInput{
		SchoolID: "school-1", ClassroomID: "room-1", SessionID: "sess-1",
		Type: event.TypePersonSignedIn, EntityType: event.EntitySignIn, EntityID: signInID,
		Payload: encode(t, event.PersonSignedInPayload{SignInID: signInID, SessionID: "sess-1", ClassroomID: "room-1", PersonID: "alice", SignedInBy: "alice"}),
	}
}

func requested(t *testing.T, requestID string) event.AppendInput {
	return event.AppendInput{
		SchoolID: "school-1", ClassroomID: "room-1", SessionID: "sess-1",
		Type: event.TypeHelpRequested, EntityType: event.EntityHelpRequest, EntityID: requestID,
		Payload: encode(t, event.HelpRequestedPayload{
			RequestID: requestID, SessionID: "sess-1", ClassroomID: "room-1", RequesterID: "alice",
			Urgency: "question", Description: "Servo jitter", WhatITried: "Tried a different power supply",
		}),
	}
}

func claimed(t *testing.T, requestID, by string) event.AppendInput {
	return event.AppendInput{
		SchoolID: "school-1", ClassroomID: "room-1", SessionID: "sess-1",
		Type: event.TypeHelpClaimed, EntityType: event.EntityHelpRequest, EntityID: requestID,
		Payload: encode(t, event.HelpClaimedPayload{
			HelpRef:     event.HelpRef{RequestID: requestID, SessionID: "sess-1", ClassroomID: "room-1", RequesterID: "alice"},
			ClaimedByID: by,
		}),
	}
}

type explodingProjector struct{}

func (explodingProjector) Name() string                { return "exploding" }
func (explodingProjector) HandledEvents() []event.Type { return []event.Type{event.TypeHelpRequested} }
func (explodingProjector) Apply(context.Context, projection.Stores, event.Event) error {
	return errors.New("boom")
}
func (explodingProjector) Clear(context.Context, projection.Stores) error { return nil }

func TestAppendRestoresProjectionsOnFailure(t *testing.T) {
	registry, err := projection.NewRegistry(projection.SessionProjector{}, projection.HelpRequestProjector{}, explodingProjector{})
	if err != nil {
		t.Fatalf("new registry: %v", err)
	}
	store := newTestStore(t, WithProjections(registry))
	ctx := context.Background()
	if _, err := store.Append(ctx, started(t)); err != nil {
		t.Fatalf("append start: %v", err)
	}
	if _, err := store.Append(ctx, requested(t, "req-1")); err == nil {
		t.Fatal("expected append to fail")
	}
	if _, err := store.GetHelpRequest(ctx, "req-1"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("expected help request rolled back, got %v", err)
	}
	if count, _ := store.CountEvents(ctx, event.Filter{}); count != 1 {
		t.Fatalf("expected only the start event, got %d", count)
	}
}

func TestConcurrentClaimsOneWins(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, in := range []event.AppendInput{started(t), requested(t, "req-1")} {
		if _, err := store.Append(ctx, in); err != nil {
			t.Fatalf("append %s: %v", in.Type, err)
		}
	}
	claims := []event.AppendInput{claimed(t, "req-1", "teacher-1"), claimed(t, "req-1", "teacher-2")}
	errs := make([]error, len(claims))
	var wg sync.WaitGroup
	for i, in := range claims {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = store.Append(ctx, in)
		}()
	}
	wg.Wait()

	var ok, conflicts int
	for _, err := range errs {
		switch {
		case err == nil:
			ok++
		case errors.Is(err, domainerr.ErrConflict):
			conflicts++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if ok != 1 || conflicts != 1 {
		t.Fatalf("expected one success and one conflict, got %d and %d", ok, conflicts)
	}
}

func TestRebuildMatchesIncrementalState(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	for _, in := range []event.AppendInput{
		started(t), signedIn(t, "si-1"), requested(t, "req-1"), claimed(t, "req-1", "teacher-1"), ended(t),
	} {
		if _, err := store.Append(ctx, in); err != nil {
			t.Fatalf("append %s: %v", in.Type, err)
		}
	}
	snapshot := func() (session.Record, []signin.Record, help.Record) {
		s, _ := store.GetSession(ctx, "sess-1")
		p, _ := store.ListSignInsForSession(ctx, "sess-1")
		r, _ := store.GetHelpRequest(ctx, "req-1")
		return s, p, r
	}
	s1, p1, r1 := snapshot()
	if s1.Status != session.StatusEnded || len(p1) != 1 || p1[0].SignedOutAt == nil || r1.Status != help.StatusClaimed {
		t.Fatalf("unexpected incremental state: %+v %+v %+v", s1, p1, r1)
	}

	replayed, err := store.RebuildProjections(ctx)
	if err != nil {
		t.Fatalf("rebuild: %v", err)
	}
	if replayed != 5 {
		t.Fatalf("expected 5 replayed, got %d", replayed)
	}
	s2, p2, r2 := snapshot()
	if !reflect.DeepEqual(s1, s2) || !reflect.DeepEqual(p1, p2) || !reflect.DeepEqual(r1, r2) {
		t.Fatal("rebuilt state differs from incremental state")
	}
}

func TestDeleteOlderThan(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	first, err := store.Append(ctx, started(t))
	if err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := store.Append(ctx, signedIn(t, "si-1")); err != nil {
		t.Fatalf("append: %v", err)
	}
	deleted, err := store.DeleteOlderThan(ctx, first.CreatedAt.Add(time.Millisecond))
	if err != nil {
		t.Fatalf("delete: %v", err)
	}
	if deleted != 1 {
		t.Fatalf("expected 1 deleted, got %d", deleted)
	}
	events, _ := store.LoadEvents(ctx, event.Filter{})
	if len(events) != 1 || events[0].Type != event.TypePersonSignedIn {
		t.Fatalf("unexpected events: %+v", events)
	}
}

type failingEmitter struct{ calls int }

func (f *failingEmitter) Emit(context.Context, event.Event) error {
	f.calls++
	return errors.New("offline")
}

func TestAppendAndEmitSwallowsEmitterErrors(t *testing.T) {
	emitter := &failingEmitter{}
	store := newTestStore(t, WithEmitter(emitter))
	if _, err := store.AppendAndEmit(context.Background(), started(t)); err != nil {
		t.Fatalf("append and emit: %v", err)
	}
	if emitter.calls != 1 {
		t.Fatalf("expected one emit call, got %d", emitter.calls)
	}
}

func TestPutMembershipRejectsDuplicatePair(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	m := membership.Record{ID: "m-1", ClassroomID: "room-1", PersonID: "alice", Role: membership.RoleStudent, IsActive: true, JoinedAt: epoch}
	if err := store.PutMembership(ctx, m); err != nil {
		t.Fatalf("put membership: %v", err)
	}
	m.ID = "m-2"
	if err := store.PutMembership(ctx, m); !apperrors.IsCode(err, apperrors.CodeAlreadyInClassroom) {
		t.Fatalf("expected already in classroom, got %v", err)
	}
	if _, err := store.FindPersonByEmail(ctx, "school-1", "ALICE@example.com"); err != nil {
		t.Fatalf("find person by email: %v", err)
	}
}
