package ninja

import (
	"time"

	"github.com/andysmith26/forge/internal/services/forge/domain/domainerr"
	"github.com/andysmith26/forge/internal/services/forge/domain/validate"
)

// AssignmentRecord is the persisted shape of a ninja assignment. There is
// at most one per person and domain.
type AssignmentRecord struct {
	ID            string     `json:"id"`
	PersonID      string     `json:"personId" validate:"notblank"`
	NinjaDomainID string     `json:"ninjaDomainId" validate:"notblank"`
	AssignedByID  string     `json:"assignedById" validate:"notblank"`
	IsActive      bool       `json:"isActive"`
	AssignedAt    time.Time  `json:"assignedAt"`
	RevokedAt     *time.Time `json:"revokedAt"`
}

var assignmentLabels = map[string]string{
	"personId":      "Person ID",
	"ninjaDomainId": "Ninja domain ID",
	"assignedById":  "Assigned by ID",
}

type Assignment struct {
	r AssignmentRecord
}

// Assign returns a new active assignment.
func Assign(id, personID, domainID, assignedBy string, at time.Time) (Assignment, error) {
	r := AssignmentRecord{ID: id, PersonID: personID, NinjaDomainID: domainID, AssignedByID: assignedBy, IsActive: true, AssignedAt: at}
	if err := validate.Struct(r, assignmentLabels); err != nil {
		return Assignment{}, err
	}
	return Assignment{r: r}, nil
}

// AssignmentFromRecord rebuilds an assignment from stored data.
func AssignmentFromRecord(r AssignmentRecord) Assignment { return Assignment{r: copyAssignment(r)} }

func (a Assignment) Record() AssignmentRecord { return copyAssignment(a.r) }

func (a Assignment) IsActive() bool      { return a.r.IsActive }
func (a Assignment) CanRevoke() bool     { return a.r.IsActive }
func (a Assignment) CanReactivate() bool { return !a.r.IsActive }

// Revoke deactivates the assignment.
func (a Assignment) Revoke(at time.Time) (Assignment, error) {
	if !a.CanRevoke() {
		return a, domainerr.Conflict("Assignment is already revoked")
	}
	next := copyAssignment(a.r)
	next.IsActive = false
	next.RevokedAt = &at
	return Assignment{r: next}, nil
}

// Reactivate restores a revoked assignment under a new assigner.
func (a Assignment) Reactivate(by string, at time.Time) (Assignment, error) {
	if !a.CanReactivate() {
		return a, domainerr.Conflict("Assignment is already active")
	}
	next := copyAssignment(a.r)
	next.IsActive = true
	next.RevokedAt = nil
	next.AssignedByID = by
	next.AssignedAt = at
	return Assignment{r: next}, nil
}

func copyAssignment(r AssignmentRecord) AssignmentRecord {
	out := r
	if r.RevokedAt != nil {
		v := *r.RevokedAt
		out.RevokedAt = &v
	}
	return out
}
