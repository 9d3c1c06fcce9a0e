package signin

import (
	"errors"
	"testing"
	"time"

	"github.com/andysmith26/forge/internal/services/forge/domain/domainerr"
)

var t0 = time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC)

func TestNewValidates(t *testing.T) {
	tests := []struct {
		name                string
		session, person, by string
		path                string
	}{
		{"missing session", "", "p1", "p1", "sessionId"},
		{"missing person", "s1", " ", "p1", "personId"},
		{"missing actor", "s1", "p1", "", "signedInById"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New("si1", tt.session, tt.person, tt.by, t0)
			if !errors.Is(err, domainerr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if issues := domainerr.IssuesOf(err); len(issues) != 1 || issues[0].Path != tt.path {
				t.Fatalf("expected issue on %s, got %+v", tt.path, issues)
			}
		})
	}
}

func TestSignOutCycle(t *testing.T) {
	s, err := New("si1", "s1", "p1", "p1", t0)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if !s.IsSignedIn() || !s.IsSelfSignIn() {
		t.Fatal("expected open self sign-in")
	}
	if s.DurationMinutes() != nil {
		t.Fatal("expected nil duration while signed in")
	}

	out, err := s.SignOut("p1", SignoutSelf, t0.Add(95*time.Minute+20*time.Second))
	if err != nil {
		t.Fatalf("sign out: %v", err)
	}
	if s.IsSignedIn() != true {
		t.Fatal("sign out mutated receiver")
	}
	if out.IsSignedIn() || !out.IsSelfSignOut() {
		t.Fatalf("unexpected record: %+v", out.Record())
	}
	if got := out.DurationMinutes(); got == nil || *got != 95 {
		t.Fatalf("expected 95 minutes, got %v", got)
	}

	again, err := out.SignOut("t1", SignoutManual, t0.Add(2*time.Hour))
	if !errors.Is(err, domainerr.ErrConflict) {
		t.Fatalf("expected conflict, got %v", err)
	}
	if again.Record().SignedOutByID != "p1" {
		t.Fatal("failed sign out changed the value")
	}
}

func TestSignOutRejectsUnknownType(t *testing.T) {
	s, _ := New("si1", "s1", "p1", "t1", t0)
	if s.IsSelfSignIn() {
		t.Fatal("teacher sign-in reported as self")
	}
	if _, err := s.SignOut("t1", "teleport", t0); !errors.Is(err, domainerr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
