// Package session models a class meeting and its lifecycle.
//
// A session moves scheduled -> active -> ended, or scheduled -> cancelled.
// Transitions return a new value and never mutate the receiver.
package session

import (
	"math"
	"time"

	"github.com/andysmith26/forge/internal/services/forge/domain/domainerr"
	"github.com/andysmith26/forge/internal/services/forge/domain/validate"
)

// Status is the lifecycle state of a session.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusEnded     Status = "ended"
	StatusCancelled Status = "cancelled"
)

// Type distinguishes planned sessions from ad hoc ones.
type Type string

const (
	TypeStructured Type = "structured"
	TypeDropIn     Type = "drop_in"
)

// Record is the persisted shape of a session.
type Record struct {
	ID            string     `json:"id"`
	ClassroomID   string     `json:"classroomId" validate:"notblank"`
	Name          string     `json:"name"`
	SessionType   Type       `json:"sessionType" validate:"oneof=structured drop_in"`
	ScheduledDate time.Time  `json:"scheduledDate"`
	StartTime     time.Time  `json:"startTime"`
	EndTime       time.Time  `json:"endTime"`
	ActualStartAt *time.Time `json:"actualStartAt"`
	ActualEndAt   *time.Time `json:"actualEndAt"`
	Status        Status     `json:"status"`
	CreatedByID   string     `json:"createdById"`
	CreatedAt     time.Time  `json:"createdAt"`
}

var labels = map[string]string{
	"classroomId": "Classroom ID",
	"sessionType": "Session type",
}

// Session is an immutable session value.
type Session struct {
	r Record
}

// Create validates r and returns the session.
func Create(r Record) (Session, error) {
	if err := validate.Struct(r, labels); err != nil {
		return Session{}, err
	}
	if !r.StartTime.Before(r.EndTime) {
		return Session{}, domainerr.Invalid("startTime", "Start time must be before end time")
	}
	if r.Status == "" {
		r.Status = StatusScheduled
	}
	return Session{r: copyRecord(r)}, nil
}

// FromRecord rebuilds a session from stored data without validation.
func FromRecord(r Record) Session {
	return Session{r: copyRecord(r)}
}

// Record returns a copy of the session data.
func (s Session) Record() Record { return copyRecord(s.r) }

func (s Session) ID() string          { return s.r.ID }
func (s Session) ClassroomID() string { return s.r.ClassroomID }
func (s Session) Status() Status      { return s.r.Status }

func (s Session) CanStart() bool  { return s.r.Status == StatusScheduled }
func (s Session) CanEnd() bool    { return s.r.Status == StatusActive }
func (s Session) CanCancel() bool { return s.r.Status == StatusScheduled }
func (s Session) IsActive() bool  { return s.r.Status == StatusActive }

// HasEnded reports whether the session is finished for any reason.
func (s Session) HasEnded() bool {
	return s.r.Status == StatusEnded || s.r.Status == StatusCancelled
}

// AllowsSignIn reports whether people may sign in.
func (s Session) AllowsSignIn() bool { return s.IsActive() }

// Start moves a scheduled session to active.
func (s Session) Start(at time.Time) (Session, error) {
	if !s.CanStart() {
		return s, domainerr.InvalidTransition("session", "start", string(s.r.Status), string(StatusScheduled))
	}
	next := copyRecord(s.r)
	next.Status = StatusActive
	next.ActualStartAt = &at
	return Session{r: next}, nil
}

// End moves an active session to ended.
func (s Session) End(at time.Time) (Session, error) {
	if !s.CanEnd() {
		return s, domainerr.InvalidTransition("session", "end", string(s.r.Status), string(StatusActive))
	}
	next := copyRecord(s.r)
	next.Status = StatusEnded
	next.ActualEndAt = &at
	return Session{r: next}, nil
}

// Cancel moves a scheduled session to cancelled.
func (s Session) Cancel() (Session, error) {
	if !s.CanCancel() {
		return s, domainerr.InvalidTransition("session", "cancel", string(s.r.Status), string(StatusScheduled))
	}
	next := copyRecord(s.r)
	next.Status = StatusCancelled
	return Session{r: next}, nil
}

// ScheduledDurationMinutes is the planned length rounded to the nearest minute.
func (s Session) ScheduledDurationMinutes() int {
	return roundMinutes(s.r.EndTime.Sub(s.r.StartTime))
}

// ActualDurationMinutes is the observed length, or nil until the session
// has both started and ended.
func (s Session) ActualDurationMinutes() *int {
	if s.r.ActualStartAt == nil || s.r.ActualEndAt == nil {
		return nil
	}
	m := roundMinutes(s.r.ActualEndAt.Sub(*s.r.ActualStartAt))
	return &m
}

func roundMinutes(d time.Duration) int {
	return int(math.Round(d.Minutes()))
}

func copyRecord(r Record) Record {
	out := r
	out.ActualStartAt = copyTime(r.ActualStartAt)
	out.ActualEndAt = copyTime(r.ActualEndAt)
	return out
}

func copyTime(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	v := *t
	return &v
}
