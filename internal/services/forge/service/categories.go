package service

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/andysmith26/forge/internal/platform/errors"
	"github.com/andysmith26/forge/internal/services/forge/domain/help"
	"github.com/andysmith26/forge/internal/services/forge/storage"
)

// CategoryInput creates a help category.
type CategoryInput struct {
	ClassroomID   string
	Name          string
	Description   string
	NinjaDomainID string
}

// CategoryUpdate changes a category. Nil fields are left as is.
type CategoryUpdate struct {
	Name          *string
	Description   *string
	NinjaDomainID *string
}

// CreateCategory adds a category at the end of the classroom's display order.
func (s *Service) CreateCategory(ctx context.Context, in CategoryInput) (out help.CategoryRecord, err error) {
	const op = "CreateCategory"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	name := strings.TrimSpace(in.Name)
	if err := s.categoryNameFree(ctx, op, in.ClassroomID, name, ""); err != nil {
		return help.CategoryRecord{}, err
	}
	order, err := s.stores.Help.NextCategoryOrder(ctx, in.ClassroomID)
	if err != nil {
		return help.CategoryRecord{}, s.internal(op, err)
	}
	categoryID, err := s.newID()
	if err != nil {
		return help.CategoryRecord{}, s.internal(op, err)
	}
	rec := help.CategoryRecord{
		ID:            categoryID,
		ClassroomID:   in.ClassroomID,
		Name:          name,
		Description:   strings.TrimSpace(in.Description),
		NinjaDomainID: in.NinjaDomainID,
		DisplayOrder:  order,
		IsActive:      true,
	}
	if err := help.ValidateCategory(rec); err != nil {
		return help.CategoryRecord{}, s.fromDomain(op, err)
	}
	if err := s.stores.Help.PutCategory(ctx, rec); err != nil {
		return help.CategoryRecord{}, s.internal(op, err)
	}
	return rec, nil
}

// UpdateCategory renames or redescribes a category.
func (s *Service) UpdateCategory(ctx context.Context, categoryID string, u CategoryUpdate) (out help.CategoryRecord, err error) {
	const op = "UpdateCategory"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	rec, err := s.loadCategory(ctx, op, categoryID)
	if err != nil {
		return help.CategoryRecord{}, err
	}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name != rec.Name {
			if err := s.categoryNameFree(ctx, op, rec.ClassroomID, name, rec.ID); err != nil {
				return help.CategoryRecord{}, err
			}
		}
		rec.Name = name
	}
	if u.Description != nil {
		rec.Description = strings.TrimSpace(*u.Description)
	}
	if u.NinjaDomainID != nil {
		rec.NinjaDomainID = *u.NinjaDomainID
	}
	if err := help.ValidateCategory(rec); err != nil {
		return help.CategoryRecord{}, s.fromDomain(op, err)
	}
	if err := s.stores.Help.PutCategory(ctx, rec); err != nil {
		return help.CategoryRecord{}, s.internal(op, err)
	}
	return rec, nil
}

// ArchiveCategory hides a category from new requests.
func (s *Service) ArchiveCategory(ctx context.Context, categoryID string) (out help.CategoryRecord, err error) {
	const op = "ArchiveCategory"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	rec, err := s.loadCategory(ctx, op, categoryID)
	if err != nil {
		return help.CategoryRecord{}, err
	}
	rec.IsActive = false
	if err := s.stores.Help.PutCategory(ctx, rec); err != nil {
		return help.CategoryRecord{}, s.internal(op, err)
	}
	return rec, nil
}

// ListCategories returns the active categories of a classroom.
func (s *Service) ListCategories(ctx context.Context, classroomID string) ([]help.CategoryRecord, error) {
	out, err := s.stores.Help.ListCategories(ctx, classroomID)
	if err != nil {
		return nil, s.internal("ListCategories", err)
	}
	return out, nil
}

func (s *Service) loadCategory(ctx context.Context, op, categoryID string) (help.CategoryRecord, error) {
	rec, err := s.stores.Help.GetCategory(ctx, categoryID)
	if err != nil {
		return help.CategoryRecord{}, s.lookup(op, err, apperrors.CodeNotFound,
			"category not found", map[string]string{"categoryId": categoryID})
	}
	return rec, nil
}

// categoryNameFree fails with DUPLICATE_NAME when another active category
// of the classroom already uses name.
func (s *Service) categoryNameFree(ctx context.Context, op, classroomID, name, selfID string) error {
	existing, err := s.stores.Help.FindCategoryByName(ctx, classroomID, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return s.internal(op, err)
	}
	if existing.ID == selfID {
		return nil
	}
	return apperrors.WithMetadata(apperrors.CodeDuplicateName, "category name already in use",
		map[string]string{"name": name})
}
