package help

import (
	"github.com/andysmith26/forge/internal/services/forge/domain/validate"
)

// CategoryRecord is the persisted shape of a help category.
type CategoryRecord struct {
	ID            string `json:"id"`
	ClassroomID   string `json:"classroomId" validate:"notblank"`
	Name          string `json:"name" validate:"notblank,max=100"`
	Description   string `json:"description" validate:"max=500"`
	NinjaDomainID string `json:"ninjaDomainId"`
	DisplayOrder  int    `json:"displayOrder" validate:"min=0"`
	IsActive      bool   `json:"isActive"`
}

var categoryLabels = map[string]string{
	"classroomId":  "Classroom ID",
	"name":         "Category name",
	"description":  "Description",
	"displayOrder": "Display order",
}

// ValidateCategory checks a category before it is stored.
func ValidateCategory(r CategoryRecord) error {
	return validate.Struct(r, categoryLabels)
}
