package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	apperrors "github.com/andysmith26/forge/internal/platform/errors"
	"github.com/andysmith26/forge/internal/services/forge/domain/classroom"
	"github.com/andysmith26/forge/internal/services/forge/domain/help"
	"github.com/andysmith26/forge/internal/services/forge/domain/membership"
	"github.com/andysmith26/forge/internal/services/forge/domain/ninja"
	"github.com/andysmith26/forge/internal/services/forge/domain/person"
	"github.com/andysmith26/forge/internal/services/forge/domain/session"
	"github.com/andysmith26/forge/internal/services/forge/domain/signin"
	"github.com/andysmith26/forge/internal/services/forge/storage"
)

// lock acquires the mutex after checking ctx.
func (s *Store) lock(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	return nil
}

// Sessions

func (s *Store) CreateSession(ctx context.Context, rec session.Record) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("session id is required")
	}
	if _, ok := s.t.sessions[rec.ID]; ok {
		return fmt.Errorf("session %s already exists", rec.ID)
	}
	if rec.Status == "" {
		rec.Status = session.StatusScheduled
	}
	s.t.sessions[rec.ID] = rec
	return nil
}

func (s *Store) GetSession(ctx context.Context, id string) (session.Record, error) {
	if err := s.lock(ctx); err != nil {
		return session.Record{}, err
	}
	defer s.mu.Unlock()
	return s.t.GetSession(ctx, id)
}

func (s *Store) FindActiveSession(ctx context.Context, classroomID string) (session.Record, error) {
	if err := s.lock(ctx); err != nil {
		return session.Record{}, err
	}
	defer s.mu.Unlock()
	return s.t.FindActiveSession(ctx, classroomID)
}

func (s *Store) ListSessions(ctx context.Context, classroomID string, filter storage.SessionFilter) ([]session.Record, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	var out []session.Record
	for _, rec := range s.t.sessions {
		if rec.ClassroomID != classroomID {
			continue
		}
		if filter.From != nil && rec.ScheduledDate.Before(*filter.From) {
			continue
		}
		if filter.To != nil && rec.ScheduledDate.After(*filter.To) {
			continue
		}
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b session.Record) int {
		return cmp.Or(
			b.ScheduledDate.Compare(a.ScheduledDate),
			b.StartTime.Compare(a.StartTime),
			cmp.Compare(a.ID, b.ID),
		)
	})
	return out, nil
}

// Presence

func (s *Store) GetSignIn(ctx context.Context, id string) (signin.Record, error) {
	if err := s.lock(ctx); err != nil {
		return signin.Record{}, err
	}
	defer s.mu.Unlock()
	return s.t.GetSignIn(ctx, id)
}

func (s *Store) GetActiveSignIn(ctx context.Context, sessionID, personID string) (signin.Record, error) {
	if err := s.lock(ctx); err != nil {
		return signin.Record{}, err
	}
	defer s.mu.Unlock()
	return s.t.GetActiveSignIn(ctx, sessionID, personID)
}

func (s *Store) ListPresent(ctx context.Context, sessionID string) ([]storage.PresentPerson, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	var out []storage.PresentPerson
	for _, rec := range s.t.signIns {
		if rec.SessionID != sessionID || rec.SignedOutAt != nil {
			continue
		}
		p, ok := s.t.people[rec.PersonID]
		if !ok {
			continue
		}
		out = append(out, storage.PresentPerson{
			SignIn:      rec,
			PersonID:    p.ID,
			DisplayName: p.DisplayName,
			LegalName:   p.LegalName,
			Pronouns:    p.Pronouns,
			AskMeAbout:  slices.Clone(p.AskMeAbout),
		})
	}
	slices.SortFunc(out, func(a, b storage.PresentPerson) int {
		return cmp.Or(
			cmp.Compare(a.DisplayName, b.DisplayName),
			a.SignIn.SignedInAt.Compare(b.SignIn.SignedInAt),
		)
	})
	return out, nil
}

func (s *Store) ListSignInsForSession(ctx context.Context, sessionID string) ([]signin.Record, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	var out []signin.Record
	for _, rec := range s.t.signIns {
		if rec.SessionID == sessionID {
			out = append(out, rec)
		}
	}
	slices.SortFunc(out, func(a, b signin.Record) int {
		return cmp.Or(a.SignedInAt.Compare(b.SignedInAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

// Help

func (s *Store) ListCategories(ctx context.Context, classroomID string) ([]help.CategoryRecord, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	var out []help.CategoryRecord
	for _, c := range s.t.categories {
		if c.ClassroomID == classroomID && c.IsActive {
			out = append(out, c)
		}
	}
	slices.SortFunc(out, func(a, b help.CategoryRecord) int {
		return cmp.Or(cmp.Compare(a.DisplayOrder, b.DisplayOrder), cmp.Compare(storage.NameKey(a.Name), storage.NameKey(b.Name)))
	})
	return out, nil
}

func (s *Store) GetCategory(ctx context.Context, id string) (help.CategoryRecord, error) {
	if err := s.lock(ctx); err != nil {
		return help.CategoryRecord{}, err
	}
	defer s.mu.Unlock()
	c, ok := s.t.categories[id]
	if !ok {
		return help.CategoryRecord{}, storage.ErrNotFound
	}
	return c, nil
}

func (s *Store) FindCategoryByName(ctx context.Context, classroomID, name string) (help.CategoryRecord, error) {
	if err := s.lock(ctx); err != nil {
		return help.CategoryRecord{}, err
	}
	defer s.mu.Unlock()
	key := storage.NameKey(name)
	for _, c := range s.t.categories {
		if c.ClassroomID == classroomID && c.IsActive && storage.NameKey(c.Name) == key {
			return c, nil
		}
	}
	return help.CategoryRecord{}, storage.ErrNotFound
}

func (s *Store) NextCategoryOrder(ctx context.Context, classroomID string) (int, error) {
	if err := s.lock(ctx); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()
	next := 0
	for _, c := range s.t.categories {
		if c.ClassroomID == classroomID && c.DisplayOrder >= next {
			next = c.DisplayOrder + 1
		}
	}
	return next, nil
}

func (s *Store) PutCategory(ctx context.Context, c help.CategoryRecord) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.t.categories[c.ID] = c
	return nil
}

func (s *Store) GetHelpRequest(ctx context.Context, id string) (help.Record, error) {
	if err := s.lock(ctx); err != nil {
		return help.Record{}, err
	}
	defer s.mu.Unlock()
	return s.t.GetHelpRequest(ctx, id)
}

func (s *Store) FindOpenHelpRequest(ctx context.Context, sessionID, requesterID string) (help.Record, error) {
	if err := s.lock(ctx); err != nil {
		return help.Record{}, err
	}
	defer s.mu.Unlock()
	return s.t.FindOpenHelpRequest(ctx, sessionID, requesterID)
}

func (s *Store) ListOpenHelpRequests(ctx context.Context, sessionID, requesterID string) ([]help.Record, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	var out []help.Record
	for _, rec := range s.t.sortedRequests() {
		if rec.SessionID != sessionID || !isOpen(rec) {
			continue
		}
		if requesterID != "" && rec.RequesterID != requesterID {
			continue
		}
		out = append(out, rec)
	}
	return out, nil
}

func (s *Store) ListQueue(ctx context.Context, sessionID string) ([]storage.QueueItem, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	var out []storage.QueueItem
	for _, rec := range s.t.sortedRequests() {
		if rec.SessionID != sessionID || !isOpen(rec) {
			continue
		}
		item := storage.QueueItem{Request: rec}
		item.RequesterName = s.t.people[rec.RequesterID].DisplayName
		item.CategoryName = s.t.categories[rec.CategoryID].Name
		item.ClaimedByName = s.t.people[rec.ClaimedByID].DisplayName
		out = append(out, item)
	}
	return out, nil
}

func (s *Store) CountPendingBefore(ctx context.Context, classroomID string, before time.Time) (int, error) {
	if err := s.lock(ctx); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()
	count := 0
	for _, rec := range s.t.requests {
		if rec.ClassroomID == classroomID && rec.Status == help.StatusPending && rec.CreatedAt.Before(before) {
			count++
		}
	}
	return count, nil
}

func (t *tables) sortedRequests() []help.Record {
	out := make([]help.Record, 0, len(t.requests))
	for _, rec := range t.requests {
		out = append(out, rec)
	}
	slices.SortFunc(out, func(a, b help.Record) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out
}

// Classrooms and memberships

func (s *Store) PutClassroom(ctx context.Context, c classroom.Record) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	for _, existing := range s.t.classrooms {
		if existing.ID != c.ID && existing.DisplayCode == c.DisplayCode {
			return fmt.Errorf("display code %s already in use", c.DisplayCode)
		}
	}
	c.Settings = c.Settings.Clone()
	s.t.classrooms[c.ID] = c
	return nil
}

func (s *Store) GetClassroom(ctx context.Context, id string) (classroom.Record, error) {
	if err := s.lock(ctx); err != nil {
		return classroom.Record{}, err
	}
	defer s.mu.Unlock()
	c, ok := s.t.classrooms[id]
	if !ok {
		return classroom.Record{}, storage.ErrNotFound
	}
	c.Settings = c.Settings.Clone()
	return c, nil
}

func (s *Store) GetClassroomByCode(ctx context.Context, displayCode string) (classroom.Record, error) {
	if err := s.lock(ctx); err != nil {
		return classroom.Record{}, err
	}
	defer s.mu.Unlock()
	for _, c := range s.t.classrooms {
		if c.DisplayCode == displayCode {
			c.Settings = c.Settings.Clone()
			return c, nil
		}
	}
	return classroom.Record{}, storage.ErrNotFound
}

func (s *Store) GetMembership(ctx context.Context, classroomID, personID string) (membership.Record, error) {
	if err := s.lock(ctx); err != nil {
		return membership.Record{}, err
	}
	defer s.mu.Unlock()
	for _, m := range s.t.memberships {
		if m.ClassroomID == classroomID && m.PersonID == personID {
			return m, nil
		}
	}
	return membership.Record{}, storage.ErrNotFound
}

func (s *Store) PutMembership(ctx context.Context, m membership.Record) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	for _, existing := range s.t.memberships {
		if existing.ID != m.ID && existing.ClassroomID == m.ClassroomID && existing.PersonID == m.PersonID {
			return apperrors.New(apperrors.CodeAlreadyInClassroom, "membership already exists")
		}
	}
	s.t.memberships[m.ID] = m
	return nil
}

func (s *Store) ListMembershipsForPerson(ctx context.Context, personID string) ([]storage.ClassroomMembership, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	var out []storage.ClassroomMembership
	for _, m := range s.t.memberships {
		if m.PersonID != personID || !m.IsActive {
			continue
		}
		c, ok := s.t.classrooms[m.ClassroomID]
		if !ok {
			continue
		}
		c.Settings = c.Settings.Clone()
		out = append(out, storage.ClassroomMembership{Membership: m, Classroom: c})
	}
	slices.SortFunc(out, func(a, b storage.ClassroomMembership) int {
		return cmp.Or(cmp.Compare(a.Classroom.Name, b.Classroom.Name), cmp.Compare(a.Classroom.ID, b.Classroom.ID))
	})
	return out, nil
}

func (s *Store) ListMembers(ctx context.Context, classroomID string) ([]storage.Member, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	var out []storage.Member
	for _, m := range s.t.memberships {
		if m.ClassroomID != classroomID || !m.IsActive {
			continue
		}
		p, ok := s.t.people[m.PersonID]
		if !ok {
			continue
		}
		out = append(out, storage.Member{Membership: m, Person: clonePerson(p)})
	}
	slices.SortFunc(out, func(a, b storage.Member) int {
		return cmp.Or(cmp.Compare(a.Person.DisplayName, b.Person.DisplayName), cmp.Compare(a.Person.ID, b.Person.ID))
	})
	return out, nil
}

// People

func (s *Store) PutPerson(ctx context.Context, p person.Record) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.t.people[p.ID] = clonePerson(p)
	return nil
}

func (s *Store) GetPerson(ctx context.Context, id string) (person.Record, error) {
	if err := s.lock(ctx); err != nil {
		return person.Record{}, err
	}
	defer s.mu.Unlock()
	p, ok := s.t.people[id]
	if !ok {
		return person.Record{}, storage.ErrNotFound
	}
	return clonePerson(p), nil
}

func (s *Store) FindPersonByEmail(ctx context.Context, schoolID, email string) (person.Record, error) {
	if err := s.lock(ctx); err != nil {
		return person.Record{}, err
	}
	defer s.mu.Unlock()
	key := storage.NameKey(email)
	if key == "" {
		return person.Record{}, storage.ErrNotFound
	}
	var matches []person.Record
	for _, p := range s.t.people {
		if p.SchoolID == schoolID && storage.NameKey(p.Email) == key {
			matches = append(matches, p)
		}
	}
	if len(matches) == 0 {
		return person.Record{}, storage.ErrNotFound
	}
	slices.SortFunc(matches, func(a, b person.Record) int { return cmp.Compare(a.ID, b.ID) })
	return clonePerson(matches[0]), nil
}

func clonePerson(p person.Record) person.Record {
	p.AskMeAbout = slices.Clone(p.AskMeAbout)
	return p
}

// Ninja

func (s *Store) ListDomains(ctx context.Context, classroomID string) ([]ninja.DomainRecord, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	var out []ninja.DomainRecord
	for _, d := range s.t.domains {
		if d.ClassroomID == classroomID && d.IsActive {
			out = append(out, d)
		}
	}
	slices.SortFunc(out, func(a, b ninja.DomainRecord) int {
		return cmp.Or(cmp.Compare(a.DisplayOrder, b.DisplayOrder), cmp.Compare(storage.NameKey(a.Name), storage.NameKey(b.Name)))
	})
	return out, nil
}

func (s *Store) GetDomain(ctx context.Context, id string) (ninja.DomainRecord, error) {
	if err := s.lock(ctx); err != nil {
		return ninja.DomainRecord{}, err
	}
	defer s.mu.Unlock()
	d, ok := s.t.domains[id]
	if !ok {
		return ninja.DomainRecord{}, storage.ErrNotFound
	}
	return d, nil
}

func (s *Store) FindDomainByName(ctx context.Context, classroomID, name string) (ninja.DomainRecord, error) {
	if err := s.lock(ctx); err != nil {
		return ninja.DomainRecord{}, err
	}
	defer s.mu.Unlock()
	key := storage.NameKey(name)
	for _, d := range s.t.domains {
		if d.ClassroomID == classroomID && d.IsActive && storage.NameKey(d.Name) == key {
			return d, nil
		}
	}
	return ninja.DomainRecord{}, storage.ErrNotFound
}

func (s *Store) NextDomainOrder(ctx context.Context, classroomID string) (int, error) {
	if err := s.lock(ctx); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()
	next := 0
	for _, d := range s.t.domains {
		if d.ClassroomID == classroomID && d.DisplayOrder >= next {
			next = d.DisplayOrder + 1
		}
	}
	return next, nil
}

func (s *Store) PutDomain(ctx context.Context, d ninja.DomainRecord) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.t.domains[d.ID] = d
	return nil
}

func (s *Store) ArchiveDomain(ctx context.Context, id string, at time.Time) (int, error) {
	if err := s.lock(ctx); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()
	d, ok := s.t.domains[id]
	if !ok {
		return 0, storage.ErrNotFound
	}
	d.IsActive = false
	s.t.domains[id] = d
	revoked := 0
	for key, a := range s.t.assignments {
		if a.NinjaDomainID != id || !a.IsActive {
			continue
		}
		revokedAt := at
		a.IsActive = false
		a.RevokedAt = &revokedAt
		s.t.assignments[key] = a
		revoked++
	}
	return revoked, nil
}

func assignmentKey(personID, domainID string) string {
	return personID + "\x00" + domainID
}

func (s *Store) GetAssignment(ctx context.Context, personID, domainID string) (ninja.AssignmentRecord, error) {
	if err := s.lock(ctx); err != nil {
		return ninja.AssignmentRecord{}, err
	}
	defer s.mu.Unlock()
	a, ok := s.t.assignments[assignmentKey(personID, domainID)]
	if !ok {
		return ninja.AssignmentRecord{}, storage.ErrNotFound
	}
	return a, nil
}

func (s *Store) PutAssignment(ctx context.Context, a ninja.AssignmentRecord) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.t.assignments[assignmentKey(a.PersonID, a.NinjaDomainID)] = a
	return nil
}

func (s *Store) ListAssignmentsByClassroom(ctx context.Context, classroomID string) ([]storage.AssignmentView, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	return s.t.assignmentViews(classroomID, nil), nil
}

func (s *Store) ListAssignmentsForPeople(ctx context.Context, classroomID string, personIDs []string) ([]storage.AssignmentView, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	if len(personIDs) == 0 {
		return nil, nil
	}
	return s.t.assignmentViews(classroomID, personIDs), nil
}

// assignmentViews lists active assignments in active domains; a nil
// personIDs matches everyone.
func (t *tables) assignmentViews(classroomID string, personIDs []string) []storage.AssignmentView {
	var out []storage.AssignmentView
	orders := make(map[string]int)
	for _, a := range t.assignments {
		d, ok := t.domains[a.NinjaDomainID]
		if !ok || d.ClassroomID != classroomID || !d.IsActive || !a.IsActive {
			continue
		}
		if personIDs != nil && !slices.Contains(personIDs, a.PersonID) {
			continue
		}
		orders[d.ID] = d.DisplayOrder
		out = append(out, storage.AssignmentView{
			Assignment:  a,
			DisplayName: t.people[a.PersonID].DisplayName,
			DomainName:  d.Name,
		})
	}
	slices.SortFunc(out, func(a, b storage.AssignmentView) int {
		return cmp.Or(
			cmp.Compare(orders[a.Assignment.NinjaDomainID], orders[b.Assignment.NinjaDomainID]),
			cmp.Compare(a.DisplayName, b.DisplayName),
			cmp.Compare(a.Assignment.ID, b.Assignment.ID),
		)
	})
	return out
}
