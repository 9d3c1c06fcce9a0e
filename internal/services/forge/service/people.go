package service

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/andysmith26/forge/internal/platform/errors"
	"github.com/andysmith26/forge/internal/services/forge/domain/event"
	"github.com/andysmith26/forge/internal/services/forge/domain/membership"
	"github.com/andysmith26/forge/internal/services/forge/domain/person"
	"github.com/andysmith26/forge/internal/services/forge/storage"
)

// StudentInput adds a student to a classroom.
type StudentInput struct {
	ClassroomID string
	Name        string
	Email       string
	GradeLevel  string
}

// StudentUpdate changes roster fields. Nil fields are left as is.
type StudentUpdate struct {
	Name       *string
	Email      *string
	GradeLevel *string
}

// GetProfile returns a person or NOT_FOUND.
func (s *Service) GetProfile(ctx context.Context, personID string) (person.Record, error) {
	rec, err := s.stores.People.GetPerson(ctx, personID)
	if err != nil {
		return person.Record{}, s.lookup("GetProfile", err, apperrors.CodeNotFound,
			"person not found", map[string]string{"personId": personID})
	}
	return rec, nil
}

// UpdateProfile applies profile changes and records PROFILE_UPDATED with
// the changed field names. Nothing is appended when no field changes.
func (s *Service) UpdateProfile(ctx context.Context, personID string, u person.ProfileUpdate) (out person.Record, err error) {
	const op = "UpdateProfile"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	rec, err := s.stores.People.GetPerson(ctx, personID)
	if err != nil {
		return person.Record{}, s.lookup(op, err, apperrors.CodeNotFound,
			"person not found", map[string]string{"personId": personID})
	}
	next, changed, err := person.FromRecord(rec).UpdateProfile(u)
	if err != nil {
		return person.Record{}, s.fromDomain(op, err)
	}
	if len(changed) == 0 {
		return rec, nil
	}
	if err := s.stores.People.PutPerson(ctx, next.Record()); err != nil {
		return person.Record{}, s.internal(op, err)
	}

	payload, err := event.Encode(event.ProfileUpdatedPayload{
		PersonID:      personID,
		SchoolID:      next.SchoolID(),
		ChangedFields: changed,
	})
	if err != nil {
		return person.Record{}, s.internal(op, err)
	}
	if _, err := s.stores.Events.AppendAndEmit(ctx, event.AppendInput{
		SchoolID:   next.SchoolID(),
		Type:       event.TypeProfileUpdated,
		EntityType: event.EntityPerson,
		EntityID:   personID,
		ActorID:    personID,
		Payload:    payload,
	}); err != nil {
		return person.Record{}, s.internal(op, err)
	}
	return next.Record(), nil
}

// AddStudent enrolls a student by email. An existing person is reused and
// a left membership is rejoined.
func (s *Service) AddStudent(ctx context.Context, in StudentInput) (out person.Record, err error) {
	const op = "AddStudent"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	room, err := s.loadClassroom(ctx, op, in.ClassroomID)
	if err != nil {
		return person.Record{}, err
	}
	name := strings.TrimSpace(in.Name)
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if name == "" {
		return person.Record{}, invalid("name", "Name is required")
	}
	if email == "" {
		return person.Record{}, invalid("email", "Email is required")
	}

	existing, err := s.stores.People.FindPersonByEmail(ctx, room.SchoolID, email)
	switch {
	case err == nil:
		if err := s.enroll(ctx, op, room.ID, existing.ID); err != nil {
			return person.Record{}, err
		}
		return existing, nil
	case !errors.Is(err, storage.ErrNotFound):
		return person.Record{}, s.internal(op, err)
	}

	personID, err := s.newID()
	if err != nil {
		return person.Record{}, s.internal(op, err)
	}
	created, err := person.Create(person.Record{
		ID:               personID,
		SchoolID:         room.SchoolID,
		Email:            email,
		LegalName:        name,
		DisplayName:      name,
		GradeLevel:       strings.TrimSpace(in.GradeLevel),
		HelpQueueVisible: true,
		IsActive:         true,
	})
	if err != nil {
		return person.Record{}, s.fromDomain(op, err)
	}
	if err := s.stores.People.PutPerson(ctx, created.Record()); err != nil {
		return person.Record{}, s.internal(op, err)
	}
	if err := s.enroll(ctx, op, room.ID, personID); err != nil {
		return person.Record{}, err
	}
	return created.Record(), nil
}

// enroll gives personID an active student membership in classroomID.
func (s *Service) enroll(ctx context.Context, op, classroomID, personID string) error {
	now := s.now()
	existing, err := s.stores.Classrooms.GetMembership(ctx, classroomID, personID)
	var next membership.Membership
	switch {
	case err == nil:
		current := membership.FromRecord(existing)
		if !current.CanRejoin() {
			return apperrors.WithMetadata(apperrors.CodeAlreadyInClassroom, "person is already in the classroom",
				map[string]string{"personId": personID})
		}
		next, err = current.Rejoin(now)
		if err != nil {
			return s.internal(op, err)
		}
	case errors.Is(err, storage.ErrNotFound):
		membershipID, err := s.newID()
		if err != nil {
			return s.internal(op, err)
		}
		next, err = membership.Join(membershipID, classroomID, personID, membership.RoleStudent, now)
		if err != nil {
			return s.fromDomain(op, err)
		}
	default:
		return s.internal(op, err)
	}
	if err := s.stores.Classrooms.PutMembership(ctx, next.Record()); err != nil {
		if apperrors.IsCode(err, apperrors.CodeAlreadyInClassroom) {
			return err
		}
		return s.internal(op, err)
	}
	return nil
}

// UpdateStudent edits roster fields of a classroom member.
func (s *Service) UpdateStudent(ctx context.Context, classroomID, personID string, u StudentUpdate) (out person.Record, err error) {
	const op = "UpdateStudent"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	if _, err := s.activeMembership(ctx, op, classroomID, personID); err != nil {
		return person.Record{}, err
	}
	rec, err := s.stores.People.GetPerson(ctx, personID)
	if err != nil {
		return person.Record{}, s.lookup(op, err, apperrors.CodeNotFound,
			"person not found", map[string]string{"personId": personID})
	}
	if u.Email != nil && strings.TrimSpace(*u.Email) != "" {
		email := strings.ToLower(strings.TrimSpace(*u.Email))
		if err := person.ValidateEmail(email); err != nil {
			return person.Record{}, s.fromDomain(op, err)
		}
		other, err := s.stores.People.FindPersonByEmail(ctx, rec.SchoolID, email)
		if err == nil && other.ID != personID {
			return person.Record{}, apperrors.WithMetadata(apperrors.CodeEmailInUse, "email already in use",
				map[string]string{"email": email})
		}
		if err != nil && !errors.Is(err, storage.ErrNotFound) {
			return person.Record{}, s.internal(op, err)
		}
		rec.Email = email
	}
	if u.Name != nil && strings.TrimSpace(*u.Name) != "" {
		name := strings.TrimSpace(*u.Name)
		if err := person.ValidateDisplayName(name); err != nil {
			return person.Record{}, s.fromDomain(op, err)
		}
		rec.LegalName = name
		rec.DisplayName = name
	}
	if u.GradeLevel != nil {
		rec.GradeLevel = strings.TrimSpace(*u.GradeLevel)
	}
	if err := s.stores.People.PutPerson(ctx, rec); err != nil {
		return person.Record{}, s.internal(op, err)
	}
	return rec, nil
}

// RemoveStudent ends a student's active membership.
func (s *Service) RemoveStudent(ctx context.Context, classroomID, personID string) (err error) {
	const op = "RemoveStudent"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	m, err := s.activeMembership(ctx, op, classroomID, personID)
	if err != nil {
		return err
	}
	current := membership.FromRecord(m)
	if !current.CanLeave() {
		return apperrors.New(apperrors.CodeNotFound, "membership not found")
	}
	left, err := current.Leave(s.now())
	if err != nil {
		return apperrors.Wrap(apperrors.CodeNotFound, "membership not found", err)
	}
	if err := s.stores.Classrooms.PutMembership(ctx, left.Record()); err != nil {
		return s.internal(op, err)
	}
	return nil
}

// ListStudents returns the active students of a classroom.
func (s *Service) ListStudents(ctx context.Context, classroomID string) ([]storage.Member, error) {
	members, err := s.stores.Classrooms.ListMembers(ctx, classroomID)
	if err != nil {
		return nil, s.internal("ListStudents", err)
	}
	out := make([]storage.Member, 0, len(members))
	for _, m := range members {
		if m.Membership.Role == membership.RoleStudent {
			out = append(out, m)
		}
	}
	return out, nil
}

// activeMembership returns NOT_FOUND unless personID is an active member.
func (s *Service) activeMembership(ctx context.Context, op, classroomID, personID string) (membership.Record, error) {
	m, err := s.stores.Classrooms.GetMembership(ctx, classroomID, personID)
	if err != nil {
		return membership.Record{}, s.lookup(op, err, apperrors.CodeNotFound,
			"membership not found", map[string]string{"personId": personID})
	}
	if !m.IsActive {
		return membership.Record{}, apperrors.WithMetadata(apperrors.CodeNotFound,
			"membership not found", map[string]string{"personId": personID})
	}
	return m, nil
}
