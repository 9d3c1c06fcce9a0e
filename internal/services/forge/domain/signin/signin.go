// Package signin models one presence cycle of a person in a session.
package signin

import (
	"math"
	"time"

	"github.com/andysmith26/forge/internal/services/forge/domain/domainerr"
	"github.com/andysmith26/forge/internal/services/forge/domain/validate"
)

// SignoutType records how a sign-in was closed.
type SignoutType string

const (
	SignoutSelf       SignoutType = "self"
	SignoutManual     SignoutType = "manual"
	SignoutAuto       SignoutType = "auto"
	SignoutSessionEnd SignoutType = "session_end"
)

// Valid reports whether t is a known signout type.
func (t SignoutType) Valid() bool {
	switch t {
	case SignoutSelf, SignoutManual, SignoutAuto, SignoutSessionEnd:
		return true
	}
	return false
}

// Record is the persisted shape of a sign-in.
type Record struct {
	ID            string      `json:"id"`
	SessionID     string      `json:"sessionId" validate:"notblank"`
	PersonID      string      `json:"personId" validate:"notblank"`
	SignedInAt    time.Time   `json:"signedInAt"`
	SignedInByID  string      `json:"signedInById" validate:"notblank"`
	SignedOutAt   *time.Time  `json:"signedOutAt"`
	SignedOutByID string      `json:"signedOutById"`
	SignoutType   SignoutType `json:"signoutType"`
}

var labels = map[string]string{
	"sessionId":    "Session ID",
	"personId":     "Person ID",
	"signedInById": "Signed in by ID",
}

type SignIn struct {
	r Record
}

// Create validates r and returns the sign-in.
func Create(r Record) (SignIn, error) {
	if err := validate.Struct(r, labels); err != nil {
		return SignIn{}, err
	}
	return SignIn{r: copyRecord(r)}, nil
}

// New opens a sign-in for personID recorded by signedInBy at the given time.
func New(id, sessionID, personID, signedInBy string, at time.Time) (SignIn, error) {
	return Create(Record{
		ID:           id,
		SessionID:    sessionID,
		PersonID:     personID,
		SignedInAt:   at,
		SignedInByID: signedInBy,
	})
}

// FromRecord rebuilds a sign-in from stored data without validation.
func FromRecord(r Record) SignIn { return SignIn{r: copyRecord(r)} }

// Record returns a copy of the sign-in data.
func (s SignIn) Record() Record { return copyRecord(s.r) }

func (s SignIn) ID() string        { return s.r.ID }
func (s SignIn) SessionID() string { return s.r.SessionID }
func (s SignIn) PersonID() string  { return s.r.PersonID }

// IsSignedIn reports whether the cycle is still open.
func (s SignIn) IsSignedIn() bool { return s.r.SignedOutAt == nil }

func (s SignIn) CanSignOut() bool { return s.IsSignedIn() }

// IsSelfSignIn reports whether the person signed themselves in.
func (s SignIn) IsSelfSignIn() bool { return s.r.SignedInByID == s.r.PersonID }

func (s SignIn) IsSelfSignOut() bool { return s.r.SignoutType == SignoutSelf }

// SignOut closes the cycle.
func (s SignIn) SignOut(by string, typ SignoutType, at time.Time) (SignIn, error) {
	if !typ.Valid() {
		return s, domainerr.Invalid("signoutType", "Invalid signout type")
	}
	if !s.CanSignOut() {
		return s, domainerr.Conflict("Already signed out")
	}
	next := copyRecord(s.r)
	next.SignedOutAt = &at
	next.SignedOutByID = by
	next.SignoutType = typ
	return SignIn{r: next}, nil
}

// DurationMinutes is the rounded length of a closed cycle, or nil while
// the person is still signed in.
func (s SignIn) DurationMinutes() *int {
	if s.r.SignedOutAt == nil {
		return nil
	}
	m := int(math.Round(s.r.SignedOutAt.Sub(s.r.SignedInAt).Minutes()))
	return &m
}

func copyRecord(r Record) Record {
	out := r
	if r.SignedOutAt != nil {
		v := *r.SignedOutAt
		out.SignedOutAt = &v
	}
	return out
}
