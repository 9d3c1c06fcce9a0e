package storage

import (
	"context"
	"strings"
	"time"

	apperrors "github.com/andysmith26/forge/internal/platform/errors"
	"github.com/andysmith26/forge/internal/services/forge/domain/classroom"
	"github.com/andysmith26/forge/internal/services/forge/domain/event"
	"github.com/andysmith26/forge/internal/services/forge/domain/help"
	"github.com/andysmith26/forge/internal/services/forge/domain/membership"
	"github.com/andysmith26/forge/internal/services/forge/domain/ninja"
	"github.com/andysmith26/forge/internal/services/forge/domain/person"
	"github.com/andysmith26/forge/internal/services/forge/domain/session"
	"github.com/andysmith26/forge/internal/services/forge/domain/signin"
	"golang.org/x/text/cases"
)

// ErrNotFound indicates a requested persistence record is missing.
var ErrNotFound = apperrors.New(apperrors.CodeNotFound, "record not found")

var folder = cases.Fold()

// NameKey folds a display name for case-insensitive uniqueness checks.
func NameKey(name string) string {
	return folder.String(strings.TrimSpace(name))
}

// EventEmitter receives events after their append has committed.
type EventEmitter interface {
	Emit(ctx context.Context, evt event.Event) error
}

// EventStore is the append-only event log. Append applies every registered
// projector in the same transaction as the insert.
type EventStore interface {
	Append(ctx context.Context, in event.AppendInput) (event.Event, error)
	// AppendAndEmit appends and then hands the committed event to the
	// configured emitter. Emission failures never fail the append.
	AppendAndEmit(ctx context.Context, in event.AppendInput) (event.Event, error)
	// LoadEvents returns matching events in creation order.
	LoadEvents(ctx context.Context, filter event.Filter) ([]event.Event, error)
	CountEvents(ctx context.Context, filter event.Filter) (int, error)
	// DeleteOlderThan hard-deletes events created before cutoff. Read
	// tables are left untouched.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// SessionFilter narrows session listings by scheduled date.
type SessionFilter struct {
	From *time.Time
	To   *time.Time
}

// SessionStore manages session rows. Lifecycle columns are owned by the
// session projector.
type SessionStore interface {
	CreateSession(ctx context.Context, s session.Record) error
	GetSession(ctx context.Context, id string) (session.Record, error)
	// FindActiveSession returns ErrNotFound when the classroom has no
	// active session.
	FindActiveSession(ctx context.Context, classroomID string) (session.Record, error)
	// ListSessions returns sessions newest first.
	ListSessions(ctx context.Context, classroomID string, filter SessionFilter) ([]session.Record, error)
}

// PresentPerson is an open sign-in joined with the person's public fields.
type PresentPerson struct {
	SignIn      signin.Record
	PersonID    string
	DisplayName string
	LegalName   string
	Pronouns    string
	AskMeAbout  []string
}

// PresenceStore reads sign-in rows.
type PresenceStore interface {
	GetSignIn(ctx context.Context, id string) (signin.Record, error)
	// GetActiveSignIn returns the open sign-in or ErrNotFound.
	GetActiveSignIn(ctx context.Context, sessionID, personID string) (signin.Record, error)
	ListPresent(ctx context.Context, sessionID string) ([]PresentPerson, error)
	// ListSignInsForSession returns every cycle, oldest first.
	ListSignInsForSession(ctx context.Context, sessionID string) ([]signin.Record, error)
}

// QueueItem is an open help request with display context.
type QueueItem struct {
	Request       help.Record
	RequesterName string
	CategoryName  string
	ClaimedByName string
}

// HelpStore manages help categories and reads help request rows.
type HelpStore interface {
	// ListCategories returns active categories by display order.
	ListCategories(ctx context.Context, classroomID string) ([]help.CategoryRecord, error)
	GetCategory(ctx context.Context, id string) (help.CategoryRecord, error)
	// FindCategoryByName matches on NameKey among active categories.
	FindCategoryByName(ctx context.Context, classroomID, name string) (help.CategoryRecord, error)
	NextCategoryOrder(ctx context.Context, classroomID string) (int, error)
	PutCategory(ctx context.Context, c help.CategoryRecord) error

	GetHelpRequest(ctx context.Context, id string) (help.Record, error)
	FindOpenHelpRequest(ctx context.Context, sessionID, requesterID string) (help.Record, error)
	// ListOpenHelpRequests returns pending and claimed requests, oldest
	// first. An empty requesterID lists every requester.
	ListOpenHelpRequests(ctx context.Context, sessionID, requesterID string) ([]help.Record, error)
	ListQueue(ctx context.Context, sessionID string) ([]QueueItem, error)
	// CountPendingBefore counts pending requests created before the given time.
	CountPendingBefore(ctx context.Context, classroomID string, before time.Time) (int, error)
}

// ClassroomMembership pairs a membership with its classroom.
type ClassroomMembership struct {
	Membership membership.Record
	Classroom  classroom.Record
}

// Member pairs a membership with the person.
type Member struct {
	Membership membership.Record
	Person     person.Record
}

// ClassroomStore manages classrooms and memberships.
type ClassroomStore interface {
	PutClassroom(ctx context.Context, c classroom.Record) error
	GetClassroom(ctx context.Context, id string) (classroom.Record, error)
	GetClassroomByCode(ctx context.Context, displayCode string) (classroom.Record, error)
	// GetMembership returns the membership regardless of active state.
	GetMembership(ctx context.Context, classroomID, personID string) (membership.Record, error)
	PutMembership(ctx context.Context, m membership.Record) error
	// ListMembershipsForPerson returns active memberships with their classrooms.
	ListMembershipsForPerson(ctx context.Context, personID string) ([]ClassroomMembership, error)
	// ListMembers returns active members ordered by display name.
	ListMembers(ctx context.Context, classroomID string) ([]Member, error)
}

// PersonStore manages people.
type PersonStore interface {
	PutPerson(ctx context.Context, p person.Record) error
	GetPerson(ctx context.Context, id string) (person.Record, error)
	FindPersonByEmail(ctx context.Context, schoolID, email string) (person.Record, error)
}

// AssignmentView is an assignment with display context.
type AssignmentView struct {
	Assignment  ninja.AssignmentRecord
	DisplayName string
	DomainName  string
}

// NinjaStore manages ninja domains and assignments.
type NinjaStore interface {
	// ListDomains returns active domains by display order.
	ListDomains(ctx context.Context, classroomID string) ([]ninja.DomainRecord, error)
	GetDomain(ctx context.Context, id string) (ninja.DomainRecord, error)
	FindDomainByName(ctx context.Context, classroomID, name string) (ninja.DomainRecord, error)
	NextDomainOrder(ctx context.Context, classroomID string) (int, error)
	PutDomain(ctx context.Context, d ninja.DomainRecord) error
	// ArchiveDomain deactivates the domain and revokes its active
	// assignments in one transaction, returning the revoked count.
	ArchiveDomain(ctx context.Context, id string, at time.Time) (int, error)

	// GetAssignment returns the single row for a person and domain.
	GetAssignment(ctx context.Context, personID, domainID string) (ninja.AssignmentRecord, error)
	PutAssignment(ctx context.Context, a ninja.AssignmentRecord) error
	// ListAssignmentsByClassroom returns active assignments in active domains.
	ListAssignmentsByClassroom(ctx context.Context, classroomID string) ([]AssignmentView, error)
	ListAssignmentsForPeople(ctx context.Context, classroomID string, personIDs []string) ([]AssignmentView, error)
}

// PinCandidate is a classroom member with a configured PIN.
type PinCandidate struct {
	PersonID string
	PinHash  string
}

// PinSession is a short-lived login created by PIN authentication.
type PinSession struct {
	Token          string
	PersonID       string
	ClassroomID    string
	ExpiresAt      time.Time
	CreatedAt      time.Time
	LastActivityAt time.Time
}

// StudentPin reports whether a student has a PIN.
type StudentPin struct {
	PersonID    string
	DisplayName string
	HasPin      bool
}

// PinStore manages PIN hashes and PIN sessions.
type PinStore interface {
	// ListPinCandidates returns active members of the classroom that have a PIN.
	ListPinCandidates(ctx context.Context, classroomID string) ([]PinCandidate, error)
	// SetPinHash stores a hash. An empty hash removes the PIN.
	SetPinHash(ctx context.Context, personID, hash string) error
	TouchLastLogin(ctx context.Context, personID string, at time.Time) error
	ListStudentsWithPins(ctx context.Context, classroomID string) ([]StudentPin, error)

	PutPinSession(ctx context.Context, s PinSession) error
	GetPinSession(ctx context.Context, token string) (PinSession, error)
	DeletePinSession(ctx context.Context, token string) error
	DeletePinSessionsForPerson(ctx context.Context, personID string) (int64, error)
	DeleteExpiredPinSessions(ctx context.Context, now time.Time) (int64, error)
}

// Notification is a realtime fan-out row polled by clients.
type Notification struct {
	ID         string
	Channel    string
	EventType  event.Type
	EntityType event.EntityType
	EntityID   string
	ScopeID    string
	CreatedAt  time.Time
}

// NotificationStore manages realtime notification rows.
type NotificationStore interface {
	PutNotification(ctx context.Context, n Notification) error
	// ListNotifications returns rows on channel created after since, oldest first.
	ListNotifications(ctx context.Context, channel string, since time.Time) ([]Notification, error)
	DeleteNotificationsOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}

// Store is every port a forge backend provides.
type Store interface {
	EventStore
	SessionStore
	PresenceStore
	HelpStore
	ClassroomStore
	PersonStore
	NinjaStore
	PinStore
	NotificationStore
	// RebuildProjections clears every read table owned by projectors and
	// replays the full log in one transaction, returning the replayed count.
	RebuildProjections(ctx context.Context) (int, error)
	Close() error
}
