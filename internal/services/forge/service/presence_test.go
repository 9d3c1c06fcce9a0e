package service

import (
	"context"
	"testing"

	apperrors "github.com/andysmith26/forge/internal/platform/errors"
	"github.com/andysmith26/forge/internal/services/forge/domain/event"
	"github.com/andysmith26/forge/internal/services/forge/domain/signin"
)

func TestSignInErrors(t *testing.T) {
	tests := []struct {
		name  string
		start bool
		setup func(t *testing.T, f *fixture)
		in    PresenceInput
		want  apperrors.Code
	}{
		{
			name: "unknown session",
			in:   PresenceInput{SessionID: "missing", PersonID: "alice", ActorID: "alice"},
			want: apperrors.CodeSessionNotFound,
		},
		{
			name: "scheduled session",
			in:   PresenceInput{SessionID: "sess-1", PersonID: "alice", ActorID: "alice"},
			want: apperrors.CodeSessionNotActive,
		},
		{
			name:  "already signed in",
			start: true,
			setup: func(t *testing.T, f *fixture) {
				if _, err := f.svc.SignIn(context.Background(), PresenceInput{SessionID: "sess-1", PersonID: "alice", ActorID: "alice"}); err != nil {
					t.Fatalf("first sign in: %v", err)
				}
			},
			in:   PresenceInput{SessionID: "sess-1", PersonID: "alice", ActorID: "alice"},
			want: apperrors.CodeAlreadySignedIn,
		},
		{
			name:  "pin actor from another classroom",
			start: true,
			in:    PresenceInput{SessionID: "sess-1", PersonID: "alice", ActorID: "alice", PinClassroomID: "room-2"},
			want:  apperrors.CodeWrongClassroom,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			if tt.start {
				f.startSession(t)
			}
			if tt.setup != nil {
				tt.setup(t, f)
			}
			before := f.countEvents(t, event.Filter{Type: event.TypePersonSignedIn})
			_, err := f.svc.SignIn(context.Background(), tt.in)
			assertCode(t, err, tt.want)
			if after := f.countEvents(t, event.Filter{Type: event.TypePersonSignedIn}); after != before {
				t.Fatalf("sign-in events changed from %d to %d", before, after)
			}
		})
	}
}

func TestSignInAndOut(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	ctx := context.Background()

	rec, err := f.svc.SignIn(ctx, PresenceInput{SessionID: "sess-1", PersonID: "alice", ActorID: "alice", PinClassroomID: "room-1"})
	if err != nil {
		t.Fatalf("sign in: %v", err)
	}
	if rec.PersonID != "alice" || rec.SignedInByID != "alice" || rec.SignedOutAt != nil {
		t.Fatalf("sign-in = %+v", rec)
	}
	present, err := f.svc.ListPresent(ctx, "sess-1")
	if err != nil || len(present) != 1 || present[0].PersonID != "alice" {
		t.Fatalf("present = %+v, %v", present, err)
	}
	if _, ok, err := f.svc.GetSignInStatus(ctx, "sess-1", "alice"); err != nil || !ok {
		t.Fatalf("status = %v, %v", ok, err)
	}
	if _, err := f.svc.RequireSignedIn(ctx, "alice", "sess-1"); err != nil {
		t.Fatalf("require signed in: %v", err)
	}

	out, err := f.svc.SignOut(ctx, PresenceInput{SessionID: "sess-1", PersonID: "alice", ActorID: "alice"})
	if err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if out.SignoutType != signin.SignoutSelf || out.SignedOutAt == nil {
		t.Fatalf("signed out = %+v", out)
	}
	if _, ok, _ := f.svc.GetSignInStatus(ctx, "sess-1", "alice"); ok {
		t.Fatal("expected alice signed out")
	}
	_, err = f.svc.RequireSignedIn(ctx, "alice", "sess-1")
	assertCode(t, err, apperrors.CodeNotSignedIn)

	// A new cycle opens a new row.
	if _, err := f.svc.SignIn(ctx, PresenceInput{SessionID: "sess-1", PersonID: "alice", ActorID: "teacher-1"}); err != nil {
		t.Fatalf("second sign in: %v", err)
	}
	manual, err := f.svc.SignOut(ctx, PresenceInput{SessionID: "sess-1", PersonID: "alice", ActorID: "teacher-1"})
	if err != nil {
		t.Fatalf("teacher sign out: %v", err)
	}
	if manual.SignoutType != signin.SignoutManual || manual.SignedOutByID != "teacher-1" {
		t.Fatalf("manual sign out = %+v", manual)
	}
	all, err := f.svc.ListSignInsForSession(ctx, "sess-1")
	if err != nil || len(all) != 2 {
		t.Fatalf("sign-ins = %+v, %v", all, err)
	}
	if n := f.countEvents(t, event.Filter{Type: event.TypePersonSignedOut}); n != 2 {
		t.Fatalf("sign-out events = %d", n)
	}
}

func TestSignOutErrors(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	ctx := context.Background()

	_, err := f.svc.SignOut(ctx, PresenceInput{SessionID: "missing", PersonID: "alice", ActorID: "alice"})
	assertCode(t, err, apperrors.CodeSessionNotFound)
	_, err = f.svc.SignOut(ctx, PresenceInput{SessionID: "sess-1", PersonID: "alice", ActorID: "alice"})
	assertCode(t, err, apperrors.CodeNotSignedIn)

	if _, err := f.svc.SignIn(ctx, PresenceInput{SessionID: "sess-1", PersonID: "alice", ActorID: "alice"}); err != nil {
		t.Fatalf("sign in: %v", err)
	}
	_, err = f.svc.SignOut(ctx, PresenceInput{SessionID: "sess-1", PersonID: "alice", ActorID: "alice", PinClassroomID: "room-2"})
	assertCode(t, err, apperrors.CodeWrongClassroom)
}
