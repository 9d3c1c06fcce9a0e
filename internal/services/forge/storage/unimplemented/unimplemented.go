// Package unimplemented provides fail-fast variants of every forge storage
// port. Composition roots select them for ports a deployment does not
// back, so a misrouted call fails loudly on first use.
package unimplemented

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/andysmith26/forge/internal/services/forge/domain/classroom"
	"github.com/andysmith26/forge/internal/services/forge/domain/event"
	"github.com/andysmith26/forge/internal/services/forge/domain/help"
	"github.com/andysmith26/forge/internal/services/forge/domain/membership"
	"github.com/andysmith26/forge/internal/services/forge/domain/ninja"
	"github.com/andysmith26/forge/internal/services/forge/domain/person"
	"github.com/andysmith26/forge/internal/services/forge/domain/session"
	"github.com/andysmith26/forge/internal/services/forge/domain/signin"
	"github.com/andysmith26/forge/internal/services/forge/storage"
)

// ErrUnimplemented is wrapped by every method in this package.
var ErrUnimplemented = errors.New("storage port is not implemented")

func fail(port, method string) error {
	return fmt.Errorf("%s.%s: %w", port, method, ErrUnimplemented)
}

// EventStore rejects every event operation.
type EventStore struct{}

func (EventStore) Append(context.Context, event.AppendInput) (event.Event, error) {
	return event.Event{}, fail("EventStore", "Append")
}
func (EventStore) AppendAndEmit(context.Context, event.AppendInput) (event.Event, error) {
	return event.Event{}, fail("EventStore", "AppendAndEmit")
}
func (EventStore) LoadEvents(context.Context, event.Filter) ([]event.Event, error) {
	return nil, fail("EventStore", "LoadEvents")
}
func (EventStore) CountEvents(context.Context, event.Filter) (int, error) {
	return 0, fail("EventStore", "CountEvents")
}
func (EventStore) DeleteOlderThan(context.Context, time.Time) (int64, error) {
	return 0, fail("EventStore", "DeleteOlderThan")
}

// SessionStore rejects every session operation.
type SessionStore struct{}

func (SessionStore) CreateSession(context.Context, session.Record) error {
	return fail("SessionStore", "CreateSession")
}
func (SessionStore) GetSession(context.Context, string) (session.Record, error) {
	return session.Record{}, fail("SessionStore", "GetSession")
}
func (SessionStore) FindActiveSession(context.Context, string) (session.Record, error) {
	return session.Record{}, fail("SessionStore", "FindActiveSession")
}
func (SessionStore) ListSessions(context.Context, string, storage.SessionFilter) ([]session.Record, error) {
	return nil, fail("SessionStore", "ListSessions")
}

// PresenceStore rejects every presence read.
type PresenceStore struct{}

func (PresenceStore) GetSignIn(context.Context, string) (signin.Record, error) {
	return signin.Record{}, fail("PresenceStore", "GetSignIn")
}
func (PresenceStore) GetActiveSignIn(context.Context, string, string) (signin.Record, error) {
	return signin.Record{}, fail("PresenceStore", "GetActiveSignIn")
}
func (PresenceStore) ListPresent(context.Context, string) ([]storage.PresentPerson, error) {
	return nil, fail("PresenceStore", "ListPresent")
}
func (PresenceStore) ListSignInsForSession(context.Context, string) ([]signin.Record, error) {
	return nil, fail("PresenceStore", "ListSignInsForSession")
}

// HelpStore rejects every help operation.
type HelpStore struct{}

func (HelpStore) ListCategories(context.Context, string) ([]help.CategoryRecord, error) {
	return nil, fail("HelpStore", "ListCategories")
}
func (HelpStore) GetCategory(context.Context, string) (help.CategoryRecord, error) {
	return help.CategoryRecord{}, fail("HelpStore", "GetCategory")
}
func (HelpStore) FindCategoryByName(context.Context, string, string) (help.CategoryRecord, error) {
	return help.CategoryRecord{}, fail("HelpStore", "FindCategoryByName")
}
func (HelpStore) NextCategoryOrder(context.Context, string) (int, error) {
	return 0, fail("HelpStore", "NextCategoryOrder")
}
func (HelpStore) PutCategory(context.Context, help.CategoryRecord) error {
	return fail("HelpStore", "PutCategory")
}
func (HelpStore) GetHelpRequest(context.Context, string) (help.Record, error) {
	return help.Record{}, fail("HelpStore", "GetHelpRequest")
}
func (HelpStore) FindOpenHelpRequest(context.Context, string, string) (help.Record, error) {
	return help.Record{}, fail("HelpStore", "FindOpenHelpRequest")
}
func (HelpStore) ListOpenHelpRequests(context.Context, string, string) ([]help.Record, error) {
	return nil, fail("HelpStore", "ListOpenHelpRequests")
}
func (HelpStore) ListQueue(context.Context, string) ([]storage.QueueItem, error) {
	return nil, fail("HelpStore", "ListQueue")
}
func (HelpStore) CountPendingBefore(context.Context, string, time.Time) (int, error) {
	return 0, fail("HelpStore", "CountPendingBefore")
}

// ClassroomStore rejects every classroom operation.
type ClassroomStore struct{}

func (ClassroomStore) PutClassroom(context.Context, classroom.Record) error {
	return fail("ClassroomStore", "PutClassroom")
}
func (ClassroomStore) GetClassroom(context.Context, string) (classroom.Record, error) {
	return classroom.Record{}, fail("ClassroomStore", "GetClassroom")
}
func (ClassroomStore) GetClassroomByCode(context.Context, string) (classroom.Record, error) {
	return classroom.Record{}, fail("ClassroomStore", "GetClassroomByCode")
}
func (ClassroomStore) GetMembership(context.Context, string, string) (membership.Record, error) {
	return membership.Record{}, fail("ClassroomStore", "GetMembership")
}
func (ClassroomStore) PutMembership(context.Context, membership.Record) error {
	return fail("ClassroomStore", "PutMembership")
}
func (ClassroomStore) ListMembershipsForPerson(context.Context, string) ([]storage.ClassroomMembership, error) {
	return nil, fail("ClassroomStore", "ListMembershipsForPerson")
}
func (ClassroomStore) ListMembers(context.Context, string) ([]storage.Member, error) {
	return nil, fail("ClassroomStore", "ListMembers")
}

// PersonStore rejects every person operation.
type PersonStore struct{}

func (PersonStore) PutPerson(context.Context, person.Record) error {
	return fail("PersonStore", "PutPerson")
}
func (PersonStore) GetPerson(context.Context, string) (person.Record, error) {
	return person.Record{}, fail("PersonStore", "GetPerson")
}
func (PersonStore) FindPersonByEmail(context.Context, string, string) (person.Record, error) {
	return person.Record{}, fail("PersonStore", "FindPersonByEmail")
}

// NinjaStore rejects every ninja operation.
type NinjaStore struct{}

func (NinjaStore) ListDomains(context.Context, string) ([]ninja.DomainRecord, error) {
	return nil, fail("NinjaStore", "ListDomains")
}
func (NinjaStore) GetDomain(context.Context, string) (ninja.DomainRecord, error) {
	return ninja.DomainRecord{}, fail("NinjaStore", "GetDomain")
}
func (NinjaStore) FindDomainByName(context.Context, string, string) (ninja.DomainRecord, error) {
	return ninja.DomainRecord{}, fail("NinjaStore", "FindDomainByName")
}
func (NinjaStore) NextDomainOrder(context.Context, string) (int, error) {
	return 0, fail("NinjaStore", "NextDomainOrder")
}
func (NinjaStore) PutDomain(context.Context, ninja.DomainRecord) error {
	return fail("NinjaStore", "PutDomain")
}
func (NinjaStore) ArchiveDomain(context.Context, string, time.Time) (int, error) {
	return 0, fail("NinjaStore", "ArchiveDomain")
}
func (NinjaStore) GetAssignment(context.Context, string, string) (ninja.AssignmentRecord, error) {
	return ninja.AssignmentRecord{}, fail("NinjaStore", "GetAssignment")
}
func (NinjaStore) PutAssignment(context.Context, ninja.AssignmentRecord) error {
	return fail("NinjaStore", "PutAssignment")
}
func (NinjaStore) ListAssignmentsByClassroom(context.Context, string) ([]storage.AssignmentView, error) {
	return nil, fail("NinjaStore", "ListAssignmentsByClassroom")
}
func (NinjaStore) ListAssignmentsForPeople(context.Context, string, []string) ([]storage.AssignmentView, error) {
	return nil, fail("NinjaStore", "ListAssignmentsForPeople")
}

// PinStore rejects every PIN operation.
type PinStore struct{}

func (PinStore) ListPinCandidates(context.Context, string) ([]storage.PinCandidate, error) {
	return nil, fail("PinStore", "ListPinCandidates")
}
func (PinStore) SetPinHash(context.Context, string, string) error {
	return fail("PinStore", "SetPinHash")
}
func (PinStore) TouchLastLogin(context.Context, string, time.Time) error {
	return fail("PinStore", "TouchLastLogin")
}
func (PinStore) ListStudentsWithPins(context.Context, string) ([]storage.StudentPin, error) {
	return nil, fail("PinStore", "ListStudentsWithPins")
}
func (PinStore) PutPinSession(context.Context, storage.PinSession) error {
	return fail("PinStore", "PutPinSession")
}
func (PinStore) GetPinSession(context.Context, string) (storage.PinSession, error) {
	return storage.PinSession{}, fail("PinStore", "GetPinSession")
}
func (PinStore) DeletePinSession(context.Context, string) error {
	return fail("PinStore", "DeletePinSession")
}
func (PinStore) DeletePinSessionsForPerson(context.Context, string) (int64, error) {
	return 0, fail("PinStore", "DeletePinSessionsForPerson")
}
func (PinStore) DeleteExpiredPinSessions(context.Context, time.Time) (int64, error) {
	return 0, fail("PinStore", "DeleteExpiredPinSessions")
}

// NotificationStore rejects every notification operation.
type NotificationStore struct{}

func (NotificationStore) PutNotification(context.Context, storage.Notification) error {
	return fail("NotificationStore", "PutNotification")
}
func (NotificationStore) ListNotifications(context.Context, string, time.Time) ([]storage.Notification, error) {
	return nil, fail("NotificationStore", "ListNotifications")
}
func (NotificationStore) DeleteNotificationsOlderThan(context.Context, time.Time) (int64, error) {
	return 0, fail("NotificationStore", "DeleteNotificationsOlderThan")
}

// Store combines every unimplemented port.
type Store struct {
	EventStore
	SessionStore
	PresenceStore
	HelpStore
	ClassroomStore
	PersonStore
	NinjaStore
	PinStore
	NotificationStore
}

func (Store) RebuildProjections(context.Context) (int, error) {
	return 0, fail("Store", "RebuildProjections")
}

func (Store) Close() error { return nil }

var (
	_ storage.EventStore        = EventStore{}
	_ storage.SessionStore      = SessionStore{}
	_ storage.PresenceStore     = PresenceStore{}
	_ storage.HelpStore         = HelpStore{}
	_ storage.ClassroomStore    = ClassroomStore{}
	_ storage.PersonStore       = PersonStore{}
	_ storage.NinjaStore        = NinjaStore{}
	_ storage.PinStore          = PinStore{}
	_ storage.NotificationStore = NotificationStore{}
	_ storage.Store             = Store{}
)
