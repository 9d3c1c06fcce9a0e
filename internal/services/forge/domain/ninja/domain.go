// Package ninja models skill domains and the people assigned as helpers
// in them.
package ninja

import "github.com/andysmith26/forge/internal/services/forge/domain/validate"

// DomainRecord is the persisted shape of a ninja domain.
type DomainRecord struct {
	ID           string `json:"id"`
	ClassroomID  string `json:"classroomId" validate:"notblank"`
	Name         string `json:"name" validate:"notblank,max=100"`
	Description  string `json:"description" validate:"max=500"`
	DisplayOrder int    `json:"displayOrder" validate:"min=0"`
	IsActive     bool   `json:"isActive"`
}

var domainLabels = map[string]string{
	"classroomId":  "Classroom ID",
	"name":         "Domain name",
	"description":  "Description",
	"displayOrder": "Display order",
}

// ValidateDomain checks a domain before it is stored.
func ValidateDomain(r DomainRecord) error {
	return validate.Struct(r, domainLabels)
}
