package service

import (
	"context"

	apperrors "github.com/andysmith26/forge/internal/platform/errors"
	"github.com/andysmith26/forge/internal/services/forge/domain/classroom"
	"github.com/andysmith26/forge/internal/services/forge/storage"
)

// GetClassroom returns a classroom or NOT_FOUND.
func (s *Service) GetClassroom(ctx context.Context, classroomID string) (classroom.Record, error) {
	rec, err := s.stores.Classrooms.GetClassroom(ctx, classroomID)
	if err != nil {
		return classroom.Record{}, s.lookup("GetClassroom", err, apperrors.CodeNotFound,
			"classroom not found", map[string]string{"classroomId": classroomID})
	}
	return rec, nil
}

// ListMyClassrooms returns the classrooms personID is an active member of.
func (s *Service) ListMyClassrooms(ctx context.Context, personID string) ([]storage.ClassroomMembership, error) {
	out, err := s.stores.Classrooms.ListMembershipsForPerson(ctx, personID)
	if err != nil {
		return nil, s.internal("ListMyClassrooms", err)
	}
	return out, nil
}

// GetClassroomSettings returns the module switches of a classroom.
func (s *Service) GetClassroomSettings(ctx context.Context, classroomID string) (classroom.Settings, error) {
	rec, err := s.GetClassroom(ctx, classroomID)
	if err != nil {
		return classroom.Settings{}, err
	}
	return classroom.FromRecord(rec).Settings(), nil
}

// UpdateModules switches the given modules and leaves the rest unchanged.
func (s *Service) UpdateModules(ctx context.Context, classroomID string, modules map[classroom.Module]bool) (out classroom.Settings, err error) {
	const op = "UpdateModules"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	rec, err := s.stores.Classrooms.GetClassroom(ctx, classroomID)
	if err != nil {
		return classroom.Settings{}, s.lookup(op, err, apperrors.CodeNotFound,
			"classroom not found", map[string]string{"classroomId": classroomID})
	}
	room := classroom.FromRecord(rec)
	for _, m := range classroom.Modules {
		enabled, ok := modules[m]
		if !ok {
			continue
		}
		if room, err = room.SetModuleEnabled(m, enabled); err != nil {
			return classroom.Settings{}, s.fromDomain(op, err)
		}
	}
	for m := range modules {
		if !m.Valid() {
			return classroom.Settings{}, invalid("modules", "Unknown module "+string(m))
		}
	}
	if err := s.stores.Classrooms.PutClassroom(ctx, room.Record()); err != nil {
		return classroom.Settings{}, s.internal(op, err)
	}
	return room.Settings(), nil
}

// RequireModule fails with FEATURE_DISABLED when m is off in the classroom.
func (s *Service) RequireModule(ctx context.Context, classroomID string, m classroom.Module) error {
	const op = "RequireModule"
	rec, err := s.loadClassroom(ctx, op, classroomID)
	if err != nil {
		return err
	}
	if err := classroom.FromRecord(rec).RequireModule(m); err != nil {
		return s.fromDomain(op, err)
	}
	return nil
}
