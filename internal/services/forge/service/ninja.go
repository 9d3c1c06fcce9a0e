package service

import (
	"context"
	"errors"
	"strings"

	apperrors "github.com/andysmith26/forge/internal/platform/errors"
	"github.com/andysmith26/forge/internal/services/forge/domain/ninja"
	"github.com/andysmith26/forge/internal/services/forge/storage"
	"golang.org/x/sync/errgroup"
)

// DomainInput creates a ninja domain.
type DomainInput struct {
	ClassroomID string
	Name        string
	Description string
}

// DomainUpdate changes a domain. Nil fields are left as is.
type DomainUpdate struct {
	Name        *string
	Description *string
}

// AssignmentInput names a person, a domain and who grants or revokes.
type AssignmentInput struct {
	PersonID string
	DomainID string
	ActorID  string
}

// DomainWithNinjas is a domain with its active assignments.
type DomainWithNinjas struct {
	Domain      ninja.DomainRecord
	Assignments []storage.AssignmentView
}

// CreateDomain adds a ninja domain at the end of the display order.
func (s *Service) CreateDomain(ctx context.Context, in DomainInput) (out ninja.DomainRecord, err error) {
	const op = "CreateDomain"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	name := strings.TrimSpace(in.Name)
	if err := s.domainNameFree(ctx, op, in.ClassroomID, name, ""); err != nil {
		return ninja.DomainRecord{}, err
	}
	order, err := s.stores.Ninja.NextDomainOrder(ctx, in.ClassroomID)
	if err != nil {
		return ninja.DomainRecord{}, s.internal(op, err)
	}
	domainID, err := s.newID()
	if err != nil {
		return ninja.DomainRecord{}, s.internal(op, err)
	}
	rec := ninja.DomainRecord{
		ID:           domainID,
		ClassroomID:  in.ClassroomID,
		Name:         name,
		Description:  strings.TrimSpace(in.Description),
		DisplayOrder: order,
		IsActive:     true,
	}
	if err := ninja.ValidateDomain(rec); err != nil {
		return ninja.DomainRecord{}, s.fromDomain(op, err)
	}
	if err := s.stores.Ninja.PutDomain(ctx, rec); err != nil {
		return ninja.DomainRecord{}, s.internal(op, err)
	}
	return rec, nil
}

// UpdateDomain renames or redescribes a domain.
func (s *Service) UpdateDomain(ctx context.Context, domainID string, u DomainUpdate) (out ninja.DomainRecord, err error) {
	const op = "UpdateDomain"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	rec, err := s.stores.Ninja.GetDomain(ctx, domainID)
	if err != nil {
		return ninja.DomainRecord{}, s.lookup(op, err, apperrors.CodeNotFound,
			"domain not found", map[string]string{"domainId": domainID})
	}
	if u.Name != nil {
		name := strings.TrimSpace(*u.Name)
		if name != rec.Name {
			if err := s.domainNameFree(ctx, op, rec.ClassroomID, name, rec.ID); err != nil {
				return ninja.DomainRecord{}, err
			}
		}
		rec.Name = name
	}
	if u.Description != nil {
		rec.Description = strings.TrimSpace(*u.Description)
	}
	if err := ninja.ValidateDomain(rec); err != nil {
		return ninja.DomainRecord{}, s.fromDomain(op, err)
	}
	if err := s.stores.Ninja.PutDomain(ctx, rec); err != nil {
		return ninja.DomainRecord{}, s.internal(op, err)
	}
	return rec, nil
}

// ArchiveDomain deactivates a domain and revokes its active assignments.
// It returns the number of revoked assignments.
func (s *Service) ArchiveDomain(ctx context.Context, domainID string) (revoked int, err error) {
	const op = "ArchiveDomain"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	revoked, err = s.stores.Ninja.ArchiveDomain(ctx, domainID, s.now())
	if err != nil {
		return 0, s.lookup(op, err, apperrors.CodeNotFound,
			"domain not found", map[string]string{"domainId": domainID})
	}
	return revoked, nil
}

// ListDomains returns the active domains of a classroom.
func (s *Service) ListDomains(ctx context.Context, classroomID string) ([]ninja.DomainRecord, error) {
	out, err := s.stores.Ninja.ListDomains(ctx, classroomID)
	if err != nil {
		return nil, s.internal("ListDomains", err)
	}
	return out, nil
}

// AssignNinja makes a classroom member a ninja in a domain. A revoked
// assignment is reactivated rather than duplicated.
func (s *Service) AssignNinja(ctx context.Context, in AssignmentInput) (out ninja.AssignmentRecord, err error) {
	const op = "AssignNinja"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	domain, err := s.stores.Ninja.GetDomain(ctx, in.DomainID)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return ninja.AssignmentRecord{}, s.internal(op, err)
	}
	if err != nil || !domain.IsActive {
		return ninja.AssignmentRecord{}, apperrors.WithMetadata(apperrors.CodeDomainNotFound, "domain not found",
			map[string]string{"domainId": in.DomainID})
	}
	m, err := s.stores.Classrooms.GetMembership(ctx, domain.ClassroomID, in.PersonID)
	if err != nil {
		return ninja.AssignmentRecord{}, s.lookup(op, err, apperrors.CodeNotAMember,
			"person is not a member of the classroom", map[string]string{"personId": in.PersonID})
	}
	if !m.IsActive {
		return ninja.AssignmentRecord{}, apperrors.WithMetadata(apperrors.CodeNotAMember,
			"person is not a member of the classroom", map[string]string{"personId": in.PersonID})
	}

	now := s.now()
	var next ninja.Assignment
	existing, err := s.stores.Ninja.GetAssignment(ctx, in.PersonID, in.DomainID)
	switch {
	case err == nil:
		current := ninja.AssignmentFromRecord(existing)
		if !current.CanReactivate() {
			return ninja.AssignmentRecord{}, apperrors.New(apperrors.CodeAlreadyAssigned, "person is already a ninja in this domain")
		}
		next, err = current.Reactivate(in.ActorID, now)
		if err != nil {
			return ninja.AssignmentRecord{}, apperrors.Wrap(apperrors.CodeAlreadyAssigned, "person is already a ninja in this domain", err)
		}
	case errors.Is(err, storage.ErrNotFound):
		assignmentID, err := s.newID()
		if err != nil {
			return ninja.AssignmentRecord{}, s.internal(op, err)
		}
		next, err = ninja.Assign(assignmentID, in.PersonID, in.DomainID, in.ActorID, now)
		if err != nil {
			return ninja.AssignmentRecord{}, s.fromDomain(op, err)
		}
	default:
		return ninja.AssignmentRecord{}, s.internal(op, err)
	}
	if err := s.stores.Ninja.PutAssignment(ctx, next.Record()); err != nil {
		return ninja.AssignmentRecord{}, s.internal(op, err)
	}
	return next.Record(), nil
}

// RevokeNinja revokes an active assignment.
func (s *Service) RevokeNinja(ctx context.Context, in AssignmentInput) (err error) {
	const op = "RevokeNinja"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	if _, err := s.stores.Ninja.GetDomain(ctx, in.DomainID); err != nil {
		return s.lookup(op, err, apperrors.CodeDomainNotFound,
			"domain not found", map[string]string{"domainId": in.DomainID})
	}
	existing, err := s.stores.Ninja.GetAssignment(ctx, in.PersonID, in.DomainID)
	if err != nil {
		return s.lookup(op, err, apperrors.CodeNotAssigned, "person is not a ninja in this domain", nil)
	}
	current := ninja.AssignmentFromRecord(existing)
	if !current.CanRevoke() {
		return apperrors.New(apperrors.CodeNotAssigned, "person is not a ninja in this domain")
	}
	revoked, err := current.Revoke(s.now())
	if err != nil {
		return apperrors.Wrap(apperrors.CodeNotAssigned, "person is not a ninja in this domain", err)
	}
	if err := s.stores.Ninja.PutAssignment(ctx, revoked.Record()); err != nil {
		return s.internal(op, err)
	}
	return nil
}

// GetDomainsWithNinjas returns every active domain with its ninjas.
func (s *Service) GetDomainsWithNinjas(ctx context.Context, classroomID string) ([]DomainWithNinjas, error) {
	const op = "GetDomainsWithNinjas"
	var (
		domains     []ninja.DomainRecord
		assignments []storage.AssignmentView
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		domains, err = s.stores.Ninja.ListDomains(gctx, classroomID)
		return err
	})
	g.Go(func() error {
		var err error
		assignments, err = s.stores.Ninja.ListAssignmentsByClassroom(gctx, classroomID)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, s.internal(op, err)
	}

	byDomain := make(map[string][]storage.AssignmentView, len(domains))
	for _, a := range assignments {
		byDomain[a.Assignment.NinjaDomainID] = append(byDomain[a.Assignment.NinjaDomainID], a)
	}
	out := make([]DomainWithNinjas, 0, len(domains))
	for _, d := range domains {
		out = append(out, DomainWithNinjas{Domain: d, Assignments: byDomain[d.ID]})
	}
	return out, nil
}

// GetNinjaPresence returns the assignments of everyone signed in to a
// session. It is empty when nobody is present or the session is unknown.
func (s *Service) GetNinjaPresence(ctx context.Context, sessionID string) ([]storage.AssignmentView, error) {
	const op = "GetNinjaPresence"
	present, err := s.stores.Presence.ListPresent(ctx, sessionID)
	if err != nil {
		return nil, s.internal(op, err)
	}
	if len(present) == 0 {
		return []storage.AssignmentView{}, nil
	}
	sess, err := s.stores.Sessions.GetSession(ctx, sessionID)
	if errors.Is(err, storage.ErrNotFound) {
		return []storage.AssignmentView{}, nil
	}
	if err != nil {
		return nil, s.internal(op, err)
	}
	personIDs := make([]string, 0, len(present))
	for _, p := range present {
		personIDs = append(personIDs, p.PersonID)
	}
	out, err := s.stores.Ninja.ListAssignmentsForPeople(ctx, sess.ClassroomID, personIDs)
	if err != nil {
		return nil, s.internal(op, err)
	}
	return out, nil
}

func (s *Service) domainNameFree(ctx context.Context, op, classroomID, name, selfID string) error {
	existing, err := s.stores.Ninja.FindDomainByName(ctx, classroomID, name)
	if errors.Is(err, storage.ErrNotFound) {
		return nil
	}
	if err != nil {
		return s.internal(op, err)
	}
	if existing.ID == selfID {
		return nil
	}
	return apperrors.WithMetadata(apperrors.CodeDuplicateName, "domain name already in use",
		map[string]string{"name": name})
}
