// Package help models help requests and the categories that group them.
//
// A request is pending until a helper claims it. A claimed request can be
// released back to pending or resolved. Pending and claimed requests can
// be cancelled. Resolved and cancelled are terminal.
package help

import (
	"math"
	"time"

	"github.com/andysmith26/forge/internal/services/forge/domain/domainerr"
	"github.com/andysmith26/forge/internal/services/forge/domain/validate"
)

// Urgency ranks how stuck the requester is.
type Urgency string

const (
	UrgencyBlocked   Urgency = "blocked"
	UrgencyQuestion  Urgency = "question"
	UrgencyCheckWork Urgency = "check_work"
)

// Valid reports whether u is a known urgency.
func (u Urgency) Valid() bool {
	switch u {
	case UrgencyBlocked, UrgencyQuestion, UrgencyCheckWork:
		return true
	}
	return false
}

// Status is the lifecycle state of a request.
type Status string

const (
	StatusPending   Status = "pending"
	StatusClaimed   Status = "claimed"
	StatusResolved  Status = "resolved"
	StatusCancelled Status = "cancelled"
)

const (
	MaxDescriptionLength = 1000
	MinWhatITriedLength  = 20
	MaxWhatITriedLength  = 1000
)

// Record is the persisted shape of a help request.
type Record struct {
	ID                 string     `json:"id"`
	ClassroomID        string     `json:"classroomId"`
	SessionID          string     `json:"sessionId"`
	RequesterID        string     `json:"requesterId" validate:"notblank"`
	CategoryID         string     `json:"categoryId"`
	Description        string     `json:"description" validate:"notblank,max=1000"`
	WhatITried         string     `json:"whatITried" validate:"notblank,min=20,max=1000"`
	Urgency            Urgency    `json:"urgency" validate:"oneof=blocked question check_work"`
	Status             Status     `json:"status"`
	ClaimedByID        string     `json:"claimedById"`
	ClaimedAt          *time.Time `json:"claimedAt"`
	ResolvedAt         *time.Time `json:"resolvedAt"`
	CancelledAt        *time.Time `json:"cancelledAt"`
	ResolutionNotes    string     `json:"resolutionNotes"`
	CancellationReason string     `json:"cancellationReason"`
	CreatedAt          time.Time  `json:"createdAt"`
}

var requestLabels = map[string]string{
	"requesterId": "Requester ID",
	"description": "Description",
	"whatITried":  "What I tried",
	"urgency":     "Urgency",
}

// Request is an immutable help request value.
type Request struct {
	r Record
}

// Create validates r and returns a request. An empty status becomes pending.
func Create(r Record) (Request, error) {
	if err := validate.Struct(r, requestLabels); err != nil {
		return Request{}, err
	}
	if r.Status == "" {
		r.Status = StatusPending
	}
	return Request{r: copyRecord(r)}, nil
}

// FromRecord rebuilds a request from stored data without validation.
func FromRecord(r Record) Request { return Request{r: copyRecord(r)} }

// ValidateDescription checks a request description.
func ValidateDescription(description string) error {
	return validate.Var("description", "Description", description, "notblank,max=1000")
}

// ValidateWhatITried checks the account of what the requester attempted.
func ValidateWhatITried(whatITried string) error {
	return validate.Var("whatITried", "What I tried", whatITried, "notblank,min=20,max=1000")
}

// Record returns a copy of the request data.
func (q Request) Record() Record { return copyRecord(q.r) }

func (q Request) ID() string          { return q.r.ID }
func (q Request) ClassroomID() string { return q.r.ClassroomID }
func (q Request) SessionID() string   { return q.r.SessionID }
func (q Request) RequesterID() string { return q.r.RequesterID }
func (q Request) ClaimedByID() string { return q.r.ClaimedByID }
func (q Request) Status() Status      { return q.r.Status }

func (q Request) CanClaim() bool   { return q.r.Status == StatusPending }
func (q Request) CanUnclaim() bool { return q.r.Status == StatusClaimed }
func (q Request) CanResolve() bool { return q.r.Status == StatusClaimed }

func (q Request) CanCancel() bool {
	return q.r.Status == StatusPending || q.r.Status == StatusClaimed
}

// IsOpen reports whether the request still needs attention.
func (q Request) IsOpen() bool { return q.CanCancel() }

func (q Request) IsClosed() bool { return !q.IsOpen() }

// CanRequesterCancel reports whether personID owns an open request.
func (q Request) CanRequesterCancel(personID string) bool {
	return q.r.RequesterID == personID && q.CanCancel()
}

// Claim assigns the request to a helper.
func (q Request) Claim(by string, at time.Time) (Request, error) {
	if !q.CanClaim() {
		return q, domainerr.InvalidTransition("help request", "claim", string(q.r.Status), string(StatusPending))
	}
	next := copyRecord(q.r)
	next.Status = StatusClaimed
	next.ClaimedByID = by
	next.ClaimedAt = &at
	return Request{r: next}, nil
}

// Unclaim releases a claimed request back to the queue.
func (q Request) Unclaim() (Request, error) {
	if !q.CanUnclaim() {
		return q, domainerr.InvalidTransition("help request", "unclaim", string(q.r.Status), string(StatusClaimed))
	}
	next := copyRecord(q.r)
	next.Status = StatusPending
	next.ClaimedByID = ""
	next.ClaimedAt = nil
	return Request{r: next}, nil
}

// Resolve closes a claimed request with optional notes.
func (q Request) Resolve(notes string, at time.Time) (Request, error) {
	if !q.CanResolve() {
		return q, domainerr.InvalidTransition("help request", "resolve", string(q.r.Status), string(StatusClaimed))
	}
	next := copyRecord(q.r)
	next.Status = StatusResolved
	next.ResolvedAt = &at
	next.ResolutionNotes = notes
	return Request{r: next}, nil
}

// Cancel withdraws an open request.
func (q Request) Cancel(reason string, at time.Time) (Request, error) {
	if !q.CanCancel() {
		return q, domainerr.InvalidTransition("help request", "cancel", string(q.r.Status), string(StatusPending), string(StatusClaimed))
	}
	next := copyRecord(q.r)
	next.Status = StatusCancelled
	next.CancelledAt = &at
	next.CancellationReason = reason
	return Request{r: next}, nil
}

// WaitTimeMinutes is how long the requester waited for a helper: until the
// claim when claimed, otherwise until now.
func (q Request) WaitTimeMinutes(now time.Time) int {
	end := now
	if q.r.ClaimedAt != nil {
		end = *q.r.ClaimedAt
	}
	return int(math.Round(end.Sub(q.r.CreatedAt).Minutes()))
}

// ResolutionTimeMinutes is the time from creation to resolution, or nil
// when unresolved.
func (q Request) ResolutionTimeMinutes() *int {
	if q.r.ResolvedAt == nil {
		return nil
	}
	m := int(math.Round(q.r.ResolvedAt.Sub(q.r.CreatedAt).Minutes()))
	return &m
}

func copyRecord(r Record) Record {
	out := r
	out.ClaimedAt = copyTime(r.ClaimedAt)
	out.ResolvedAt = copyTime(r.ResolvedAt)
	out.CancelledAt = copyTime(r.CancelledAt)
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
