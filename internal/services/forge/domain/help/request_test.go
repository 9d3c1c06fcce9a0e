package help

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/andysmith26/forge/internal/services/forge/domain/domainerr"
)

var t10 = time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)

func validRecord() Record {
	return Record{
		ID:          "h1",
		ClassroomID: "c1",
		SessionID:   "s1",
		RequesterID: "p1",
		Description: "My loop never ends",
		WhatITried:  "I added print statements in the loop body",
		Urgency:     UrgencyBlocked,
		CreatedAt:   t10,
	}
}

func newPending(t *testing.T) Request {
	t.Helper()
	q, err := Create(validRecord())
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	return q
}

func TestCreateValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Record)
		path   string
	}{
		{"blank description", func(r *Record) { r.Description = "  " }, "description"},
		{"long description", func(r *Record) { r.Description = strings.Repeat("a", 1001) }, "description"},
		{"short what i tried", func(r *Record) { r.WhatITried = strings.Repeat("a", 19) }, "whatITried"},
		{"long what i tried", func(r *Record) { r.WhatITried = strings.Repeat("a", 1001) }, "whatITried"},
		{"blank what i tried", func(r *Record) { r.WhatITried = strings.Repeat(" ", 25) }, "whatITried"},
		{"missing requester", func(r *Record) { r.RequesterID = "" }, "requesterId"},
		{"bad urgency", func(r *Record) { r.Urgency = "panic" }, "urgency"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := validRecord()
			tt.mutate(&r)
			_, err := Create(r)
			if !errors.Is(err, domainerr.ErrValidation) {
				t.Fatalf("expected validation error, got %v", err)
			}
			if issues := domainerr.IssuesOf(err); len(issues) != 1 || issues[0].Path != tt.path {
				t.Fatalf("expected issue on %s, got %+v", tt.path, issues)
			}
		})
	}
}

func TestBoundaryLengthsAccepted(t *testing.T) {
	r := validRecord()
	r.Description = strings.Repeat("d", 1000)
	r.WhatITried = strings.Repeat("w", 20)
	if _, err := Create(r); err != nil {
		t.Fatalf("expected boundary values to pass: %v", err)
	}
	if err := ValidateWhatITried(strings.Repeat("w", 1000)); err != nil {
		t.Fatalf("expected 1000 chars to pass: %v", err)
	}
	if err := ValidateWhatITried(strings.Repeat(" ", 25)); !errors.Is(err, domainerr.ErrValidation) {
		t.Fatalf("expected whitespace what i tried to fail, got %v", err)
	}
	if err := ValidateDescription(""); !errors.Is(err, domainerr.ErrValidation) {
		t.Fatalf("expected empty description to fail, got %v", err)
	}
}

func TestClaimUnclaimResolve(t *testing.T) {
	q := newPending(t)
	if q.Status() != StatusPending || !q.IsOpen() {
		t.Fatalf("expected open pending request, got %s", q.Status())
	}
	claimed, err := q.Claim("n1", t10.Add(8*time.Minute))
	if err != nil {
		t.Fatalf("claim: %v", err)
	}
	if claimed.ClaimedByID() != "n1" || q.ClaimedByID() != "" {
		t.Fatal("claim did not produce a new value")
	}

	released, err := claimed.Unclaim()
	if err != nil {
		t.Fatalf("unclaim: %v", err)
	}
	if released.Status() != StatusPending || released.Record().ClaimedAt != nil || released.ClaimedByID() != "" {
		t.Fatalf("unexpected released record: %+v", released.Record())
	}

	resolved, err := claimed.Resolve("fixed the off-by-one", t10.Add(20*time.Minute))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !resolved.IsClosed() || resolved.Record().ResolutionNotes != "fixed the off-by-one" {
		t.Fatalf("unexpected resolved record: %+v", resolved.Record())
	}
	if got := resolved.ResolutionTimeMinutes(); got == nil || *got != 20 {
		t.Fatalf("expected 20 minute resolution, got %v", got)
	}
}

func TestGuardsLeaveValueUnchanged(t *testing.T) {
	q := newPending(t)
	if _, err := q.Resolve("", t10); !errors.Is(err, domainerr.ErrConflict) {
		t.Fatalf("expected conflict resolving pending, got %v", err)
	}
	if _, err := q.Unclaim(); !errors.Is(err, domainerr.ErrConflict) {
		t.Fatalf("expected conflict unclaiming pending, got %v", err)
	}
	claimed, _ := q.Claim("n1", t10)
	same, err := claimed.Claim("n2", t10.Add(time.Minute))
	if !errors.Is(err, domainerr.ErrConflict) {
		t.Fatalf("expected conflict on double claim, got %v", err)
	}
	if same.ClaimedByID() != "n1" {
		t.Fatalf("failed claim changed the claimer to %s", same.ClaimedByID())
	}
	cancelled, err := claimed.Cancel("figured it out", t10.Add(time.Minute))
	if err != nil {
		t.Fatalf("cancel claimed: %v", err)
	}
	if _, err := cancelled.Cancel("", t10); !errors.Is(err, domainerr.ErrConflict) {
		t.Fatalf("expected conflict cancelling twice, got %v", err)
	}
	if cancelled.CanRequesterCancel("p1") {
		t.Fatal("closed request should not be cancellable")
	}
}

func TestCanRequesterCancel(t *testing.T) {
	q := newPending(t)
	if !q.CanRequesterCancel("p1") {
		t.Fatal("requester should be able to cancel")
	}
	if q.CanRequesterCancel("p2") {
		t.Fatal("other person should not be able to cancel")
	}
}

func TestWaitTime(t *testing.T) {
	q := newPending(t)
	now := t10.Add(time.Hour)
	if got := q.WaitTimeMinutes(now); got != 60 {
		t.Fatalf("expected 60 minute wait while pending, got %d", got)
	}
	claimed, _ := q.Claim("n1", t10.Add(8*time.Minute))
	if got := claimed.WaitTimeMinutes(now); got != 8 {
		t.Fatalf("expected 8 minute wait once claimed, got %d", got)
	}
	if claimed.ResolutionTimeMinutes() != nil {
		t.Fatal("expected nil resolution time")
	}
}

func TestValidateCategory(t *testing.T) {
	if err := ValidateCategory(CategoryRecord{ClassroomID: "c1", Name: "Python"}); err != nil {
		t.Fatalf("expected valid category: %v", err)
	}
	if err := ValidateCategory(CategoryRecord{ClassroomID: "c1", Name: " "}); !errors.Is(err, domainerr.ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
}
