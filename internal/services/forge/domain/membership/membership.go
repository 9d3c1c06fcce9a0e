// Package membership models a person's role in a classroom over time.
package membership

import (
	"math"
	"time"

	"github.com/andysmith26/forge/internal/services/forge/domain/domainerr"
	"github.com/andysmith26/forge/internal/services/forge/domain/validate"
)

// Role is a person's part in a classroom.
type Role string

const (
	RoleStudent   Role = "student"
	RoleTeacher   Role = "teacher"
	RoleVolunteer Role = "volunteer"
)

// Record is the persisted shape of a membership.
type Record struct {
	ID          string     `json:"id"`
	ClassroomID string     `json:"classroomId" validate:"notblank"`
	PersonID    string     `json:"personId" validate:"notblank"`
	Role        Role       `json:"role" validate:"oneof=student teacher volunteer"`
	IsActive    bool       `json:"isActive"`
	JoinedAt    time.Time  `json:"joinedAt"`
	LeftAt      *time.Time `json:"leftAt"`
}

var labels = map[string]string{
	"classroomId": "Classroom ID",
	"personId":    "Person ID",
	"role":        "Role",
}

type Membership struct {
	r Record
}

// Join returns a new active membership.
func Join(id, classroomID, personID string, role Role, at time.Time) (Membership, error) {
	return Create(Record{ID: id, ClassroomID: classroomID, PersonID: personID, Role: role, IsActive: true, JoinedAt: at})
}

// Create validates r, including that LeftAt is set exactly when inactive.
func Create(r Record) (Membership, error) {
	if err := validate.Struct(r, labels); err != nil {
		return Membership{}, err
	}
	if r.IsActive != (r.LeftAt == nil) {
		return Membership{}, domainerr.Invalid("leftAt", "Left at must be set only for inactive memberships")
	}
	return Membership{r: copyRecord(r)}, nil
}

// FromRecord rebuilds a membership from stored data without validation.
func FromRecord(r Record) Membership { return Membership{r: copyRecord(r)} }

func (m Membership) Record() Record { return copyRecord(m.r) }

func (m Membership) ID() string        { return m.r.ID }
func (m Membership) PersonID() string  { return m.r.PersonID }
func (m Membership) Role() Role        { return m.r.Role }
func (m Membership) IsActive() bool    { return m.r.IsActive }
func (m Membership) IsTeacher() bool   { return m.r.IsActive && m.r.Role == RoleTeacher }
func (m Membership) IsStudent() bool   { return m.r.Role == RoleStudent }
func (m Membership) IsVolunteer() bool { return m.r.Role == RoleVolunteer }
func (m Membership) CanLeave() bool    { return m.r.IsActive }
func (m Membership) CanRejoin() bool   { return !m.r.IsActive }

// Leave deactivates the membership.
func (m Membership) Leave(at time.Time) (Membership, error) {
	if !m.CanLeave() {
		return m, domainerr.Conflict("Membership is already inactive")
	}
	next := copyRecord(m.r)
	next.IsActive = false
	next.LeftAt = &at
	return Membership{r: next}, nil
}

// Rejoin reactivates an inactive membership from the given time.
func (m Membership) Rejoin(at time.Time) (Membership, error) {
	if !m.CanRejoin() {
		return m, domainerr.Conflict("Membership is already active")
	}
	next := copyRecord(m.r)
	next.IsActive = true
	next.LeftAt = nil
	next.JoinedAt = at
	return Membership{r: next}, nil
}

// DurationDays counts whole days from joining to leaving, or to now.
func (m Membership) DurationDays(now time.Time) int {
	end := now
	if m.r.LeftAt != nil {
		end = *m.r.LeftAt
	}
	return int(math.Floor(end.Sub(m.r.JoinedAt).Hours() / 24))
}

func copyRecord(r Record) Record {
	out := r
	if r.LeftAt != nil {
		v := *r.LeftAt
		out.LeftAt = &v
	}
	return out
}
