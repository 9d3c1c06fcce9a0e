package service

import (
	"context"
	"testing"

	apperrors "github.com/andysmith26/forge/internal/platform/errors"
)

func strPtr(s string) *string { return &s }

func TestCategories(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	wiring, err := f.svc.CreateCategory(ctx, CategoryInput{ClassroomID: "room-1", Name: " Wiring "})
	if err != nil {
		t.Fatalf("create wiring: %v", err)
	}
	code, err := f.svc.CreateCategory(ctx, CategoryInput{ClassroomID: "room-1", Name: "Code"})
	if err != nil {
		t.Fatalf("create code: %v", err)
	}
	if wiring.Name != "Wiring" || wiring.DisplayOrder >= code.DisplayOrder {
		t.Fatalf("wiring = %+v, code = %+v", wiring, code)
	}

	_, err = f.svc.CreateCategory(ctx, CategoryInput{ClassroomID: "room-1", Name: "WIRING"})
	assertCode(t, err, apperrors.CodeDuplicateName)
	_, err = f.svc.UpdateCategory(ctx, code.ID, CategoryUpdate{Name: strPtr("wiring")})
	assertCode(t, err, apperrors.CodeDuplicateName)
	_, err = f.svc.UpdateCategory(ctx, "missing", CategoryUpdate{Name: strPtr("x")})
	assertCode(t, err, apperrors.CodeNotFound)

	renamed, err := f.svc.UpdateCategory(ctx, wiring.ID, CategoryUpdate{Name: strPtr("Wiring"), Description: strPtr("Motors and sensors")})
	if err != nil {
		t.Fatalf("update own name: %v", err)
	}
	if renamed.Description != "Motors and sensors" {
		t.Fatalf("renamed = %+v", renamed)
	}

	if _, err := f.svc.ArchiveCategory(ctx, wiring.ID); err != nil {
		t.Fatalf("archive: %v", err)
	}
	listed, err := f.svc.ListCategories(ctx, "room-1")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(listed) != 1 || listed[0].ID != code.ID {
		t.Fatalf("listed = %+v", listed)
	}
	if _, err := f.svc.CreateCategory(ctx, CategoryInput{ClassroomID: "room-1", Name: "Wiring"}); err != nil {
		t.Fatalf("reuse archived name: %v", err)
	}
}

func TestDomainsAndAssignments(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	cad, err := f.svc.CreateDomain(ctx, DomainInput{ClassroomID: "room-1", Name: "CAD"})
	if err != nil {
		t.Fatalf("create domain: %v", err)
	}
	_, err = f.svc.CreateDomain(ctx, DomainInput{ClassroomID: "room-1", Name: "cad"})
	assertCode(t, err, apperrors.CodeDuplicateName)

	in := AssignmentInput{PersonID: "alice", DomainID: cad.ID, ActorID: "teacher-1"}
	assigned, err := f.svc.AssignNinja(ctx, in)
	if err != nil {
		t.Fatalf("assign: %v", err)
	}
	if !assigned.IsActive || assigned.AssignedByID != "teacher-1" {
		t.Fatalf("assigned = %+v", assigned)
	}
	_, err = f.svc.AssignNinja(ctx, in)
	assertCode(t, err, apperrors.CodeAlreadyAssigned)

	_, err = f.svc.AssignNinja(ctx, AssignmentInput{PersonID: "carol", DomainID: cad.ID, ActorID: "teacher-1"})
	assertCode(t, err, apperrors.CodeNotAMember)
	_, err = f.svc.AssignNinja(ctx, AssignmentInput{PersonID: "alice", DomainID: "missing", ActorID: "teacher-1"})
	assertCode(t, err, apperrors.CodeDomainNotFound)

	if err := f.svc.RevokeNinja(ctx, in); err != nil {
		t.Fatalf("revoke: %v", err)
	}
	assertCode(t, f.svc.RevokeNinja(ctx, in), apperrors.CodeNotAssigned)

	again, err := f.svc.AssignNinja(ctx, in)
	if err != nil {
		t.Fatalf("reassign: %v", err)
	}
	if again.ID != assigned.ID || !again.IsActive || again.RevokedAt != nil {
		t.Fatalf("reactivated = %+v, original = %+v", again, assigned)
	}

	withNinjas, err := f.svc.GetDomainsWithNinjas(ctx, "room-1")
	if err != nil {
		t.Fatalf("domains with ninjas: %v", err)
	}
	if len(withNinjas) != 1 || len(withNinjas[0].Assignments) != 1 {
		t.Fatalf("domains = %+v", withNinjas)
	}

	revoked, err := f.svc.ArchiveDomain(ctx, cad.ID)
	if err != nil {
		t.Fatalf("archive domain: %v", err)
	}
	if revoked != 1 {
		t.Fatalf("revoked = %d", revoked)
	}
	_, err = f.svc.AssignNinja(ctx, in)
	assertCode(t, err, apperrors.CodeDomainNotFound)
	_, err = f.svc.ArchiveDomain(ctx, "missing")
	assertCode(t, err, apperrors.CodeNotFound)
}

func TestNinjaPresence(t *testing.T) {
	f := newFixture(t)
	f.startSession(t)
	ctx := context.Background()

	empty, err := f.svc.GetNinjaPresence(ctx, "sess-1")
	if err != nil || empty == nil || len(empty) != 0 {
		t.Fatalf("empty presence = %+v, %v", empty, err)
	}

	cad, err := f.svc.CreateDomain(ctx, DomainInput{ClassroomID: "room-1", Name: "CAD"})
	if err != nil {
		t.Fatalf("create domain: %v", err)
	}
	for _, personID := range []string{"alice", "bob"} {
		if _, err := f.svc.AssignNinja(ctx, AssignmentInput{PersonID: personID, DomainID: cad.ID, ActorID: "teacher-1"}); err != nil {
			t.Fatalf("assign %s: %v", personID, err)
		}
	}
	if _, err := f.svc.SignIn(ctx, PresenceInput{SessionID: "sess-1", PersonID: "alice", ActorID: "alice"}); err != nil {
		t.Fatalf("sign in: %v", err)
	}

	present, err := f.svc.GetNinjaPresence(ctx, "sess-1")
	if err != nil {
		t.Fatalf("presence: %v", err)
	}
	if len(present) != 1 || present[0].Assignment.PersonID != "alice" || present[0].DomainName != "CAD" {
		t.Fatalf("present = %+v", present)
	}
}
