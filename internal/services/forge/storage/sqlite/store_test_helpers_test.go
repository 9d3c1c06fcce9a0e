package sqlite

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/andysmith26/forge/internal/services/forge/domain/classroom"
	"github.com/andysmith26/forge/internal/services/forge/domain/event"
	"github.com/andysmith26/forge/internal/services/forge/domain/person"
	"github.com/andysmith26/forge/internal/services/forge/domain/session"
)

var testEpoch = time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

// stepClock advances one second on every read.
type stepClock struct {
	mu  sync.Mutex
	now time.Time
}

func newStepClock() *stepClock { return &stepClock{now: testEpoch} }

func (c *stepClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func openTempStore(t *testing.T, opts ...Option) *Store {
	t.Helper()
	opts = append([]Option{WithClock(newStepClock().Now)}, opts...)
	store, err := Open(filepath.Join(t.TempDir(), "forge.sqlite"), opts...)
	if err != nil {
		t.Fatalf("open store: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("close store: %v", err)
		}
	})
	return store
}

// seedClassroom creates classroom room-1 with session sess-1 and people
// alice, bob and teacher-1.
func seedClassroom(t *testing.T, store *Store) {
	t.Helper()
	ctx := context.Background()
	if err := store.PutClassroom(ctx, classroom.Record{
		ID:          "room-1",
		SchoolID:    "school-1",
		Name:        "Robotics",
		Slug:        "robotics",
		DisplayCode: "ABC123",
		Settings:    classroom.DefaultSettings(),
		IsActive:    true,
	}); err != nil {
		t.Fatalf("put classroom: %v", err)
	}
	for _, p := range []person.Record{
		{ID: "alice", SchoolID: "school-1", Email: "Alice@Example.com", DisplayName: "Alice", AskMeAbout: []string{"motors"}, IsActive: true},
		{ID: "bob", SchoolID: "school-1", DisplayName: "Bob", IsActive: true},
		{ID: "teacher-1", SchoolID: "school-1", DisplayName: "Ms. Teacher", IsActive: true},
	} {
		if err := store.PutPerson(ctx, p); err != nil {
			t.Fatalf("put person %s: %v", p.ID, err)
		}
	}
	createSession(t, store, "sess-1")
}

func createSession(t *testing.T, store *Store, id string) {
	t.Helper()
	if err := store.CreateSession(context.Background(), session.Record{
		ID:            id,
		ClassroomID:   "room-1",
		Name:          "Open lab",
		SessionType:   session.TypeDropIn,
		ScheduledDate: testEpoch.Truncate(24 * time.Hour),
		StartTime:     testEpoch,
		EndTime:       testEpoch.Add(90 * time.Minute),
		Status:        session.StatusScheduled,
		CreatedByID:   "teacher-1",
		CreatedAt:     testEpoch,
	}); err != nil {
		t.Fatalf("create session: %v", err)
	}
}

func mustEncode(t *testing.T, payload any) []byte {
	t.Helper()
	data, err := event.Encode(payload)
	if err != nil {
		t.Fatalf("encode payload: %v", err)
	}
	return data
}

func sessionStarted(t *testing.T, sessionID string) event.AppendInput {
	return event.AppendInput{
		SchoolID: "school-1", ClassroomID: "room-1", SessionID: sessionID,
		Type: event.TypeSessionStarted, EntityType: event.EntitySession, EntityID: sessionID, ActorID: "teacher-1",
		Payload: mustEncode(t, event.SessionStartedPayload{SessionID: sessionID, ClassroomID: "room-1", StartedBy: "teacher-1", ByTeacher: true}),
	}
}

func sessionEnded(t *testing.T, sessionID string) event.AppendInput {
	return event.AppendInput{
		SchoolID: "school-1", ClassroomID: "room-1", SessionID: sessionID,
		Type: event.TypeSessionEnded, EntityType: event.EntitySession, EntityID: sessionID, ActorID: "teacher-1",
		Payload: mustEncode(t, event.SessionEndedPayload{SessionID: sessionID, ClassroomID: "room-1", EndedBy: "teacher-1", ByTeacher: true}),
	}
}

func signedIn(t *testing.T, signInID, personID string) event.AppendInput {
	return event.AppendInput{
		SchoolID: "school-1", ClassroomID: "room-1", SessionID: "sess-1",
		Type: event.TypePersonSignedIn, EntityType: event.EntitySignIn, EntityID: signInID, ActorID: personID,
		Payload: mustEncode(t, event.PersonSignedInPayload{
			SignInID: signInID, SessionID: "sess-1", ClassroomID: "room-1",
			PersonID: personID, SignedInBy: personID, IsSelfSignIn: true,
		}),
	}
}

func signedOut(t *testing.T, signInID, personID string) event.AppendInput {
	return event.AppendInput{
		SchoolID: "school-1", ClassroomID: "room-1", SessionID: "sess-1",
		Type: event.TypePersonSignedOut, EntityType: event.EntitySignIn, EntityID: signInID, ActorID: personID,
		Payload: mustEncode(t, event.PersonSignedOutPayload{
			SignInID: signInID, SessionID: "sess-1", ClassroomID: "room-1",
			PersonID: personID, SignedOutBy: personID, SignoutType: "self",
		}),
	}
}

func helpRequested(t *testing.T, requestID, requesterID string) event.AppendInput {
	return event.AppendInput{
		SchoolID: "school-1", ClassroomID: "room-1", SessionID: "sess-1",
		Type: event.TypeHelpRequested, EntityType: event.EntityHelpRequest, EntityID: requestID, ActorID: requesterID,
		Payload: mustEncode(t, event.HelpRequestedPayload{
			RequestID: requestID, SessionID: "sess-1", ClassroomID: "room-1", RequesterID: requesterID,
			Urgency: "blocked", Description: "Motor will not spin",
			WhatITried: "Checked the wiring twice and swapped the battery",
		}),
	}
}

func helpRef(requestID, requesterID string) event.HelpRef {
	return event.HelpRef{RequestID: requestID, SessionID: "sess-1", ClassroomID: "room-1", RequesterID: requesterID}
}

func helpClaimed(t *testing.T, requestID, requesterID, claimer string) event.AppendInput {
	return event.AppendInput{
		SchoolID: "school-1", ClassroomID: "room-1", SessionID: "sess-1",
		Type: event.TypeHelpClaimed, EntityType: event.EntityHelpRequest, EntityID: requestID, ActorID: claimer,
		Payload: mustEncode(t, event.HelpClaimedPayload{HelpRef: helpRef(requestID, requesterID), ClaimedByID: claimer}),
	}
}

func helpResolved(t *testing.T, requestID, requesterID, resolver string) event.AppendInput {
	return event.AppendInput{
		SchoolID: "school-1", ClassroomID: "room-1", SessionID: "sess-1",
		Type: event.TypeHelpResolved, EntityType: event.EntityHelpRequest, EntityID: requestID, ActorID: resolver,
		Payload: mustEncode(t, event.HelpResolvedPayload{HelpRef: helpRef(requestID, requesterID), ResolverID: resolver, ResolutionNotes: "Loose connector"}),
	}
}

func mustAppend(t *testing.T, store *Store, in event.AppendInput) event.Event {
	t.Helper()
	evt, err := store.Append(context.Background(), in)
	if err != nil {
		t.Fatalf("append %s: %v", in.Type, err)
	}
	return evt
}
