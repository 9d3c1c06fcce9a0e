package memory

import (
	"context"
	"fmt"
	"maps"
	"sync"
	"time"

	"github.com/andysmith26/forge/internal/platform/id"
	"github.com/andysmith26/forge/internal/platform/timeouts"
	"github.com/andysmith26/forge/internal/services/forge/domain/classroom"
	"github.com/andysmith26/forge/internal/services/forge/domain/event"
	"github.com/andysmith26/forge/internal/services/forge/domain/help"
	"github.com/andysmith26/forge/internal/services/forge/domain/membership"
	"github.com/andysmith26/forge/internal/services/forge/domain/ninja"
	"github.com/andysmith26/forge/internal/services/forge/domain/person"
	"github.com/andysmith26/forge/internal/services/forge/domain/session"
	"github.com/andysmith26/forge/internal/services/forge/domain/signin"
	"github.com/andysmith26/forge/internal/services/forge/projection"
	"github.com/andysmith26/forge/internal/services/forge/storage"
	"go.uber.org/zap"
)

// Store keeps every forge table in memory.
type Store struct {
	mu sync.Mutex
	t  *tables

	events      *event.Registry
	projections *projection.Registry
	emitter     storage.EventEmitter
	clock       func() time.Time
	newID       func() (string, error)
	logger      *zap.Logger
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store)

// WithEventRegistry replaces the registry used to validate appends.
func WithEventRegistry(r *event.Registry) Option {
	return func(s *Store) {
		if r != nil {
			s.events = r
		}
	}
}

// WithProjections replaces the projector registry run inside appends.
func WithProjections(r *projection.Registry) Option {
	return func(s *Store) {
		if r != nil {
			s.projections = r
		}
	}
}

// WithEmitter sets the post-commit emitter used by AppendAndEmit.
func WithEmitter(e storage.EventEmitter) Option {
	return func(s *Store) { s.emitter = e }
}

// WithClock sets the clock that stamps appended events.
func WithClock(now func() time.Time) Option {
	return func(s *Store) {
		if now != nil {
			s.clock = now
		}
	}
}

// WithIDGenerator sets the generator for event and notification ids.
func WithIDGenerator(gen func() (string, error)) Option {
	return func(s *Store) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLogger sets the logger used for best-effort emission warnings.
func WithLogger(logger *zap.Logger) Option {
	return func(s *Store) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// New returns an empty store.
func New(opts ...Option) *Store {
	s := &Store{
		t:           newTables(),
		events:      event.CoreRegistry(),
		projections: projection.CoreRegistry(),
		clock:       time.Now,
		newID:       id.NewID,
		logger:      zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close is a no-op.
func (s *Store) Close() error { return nil }

type tables struct {
	events []event.Event

	sessions map[string]session.Record
	signIns  map[string]signin.Record
	requests map[string]help.Record

	classrooms    map[string]classroom.Record
	memberships   map[string]membership.Record
	people        map[string]person.Record
	categories    map[string]help.CategoryRecord
	domains       map[string]ninja.DomainRecord
	assignments   map[string]ninja.AssignmentRecord
	pinSessions   map[string]storage.PinSession
	notifications map[string]storage.Notification
}

func newTables() *tables {
	return &tables{
		sessions:      make(map[string]session.Record),
		signIns:       make(map[string]signin.Record),
		requests:      make(map[string]help.Record),
		classrooms:    make(map[string]classroom.Record),
		memberships:   make(map[string]membership.Record),
		people:        make(map[string]person.Record),
		categories:    make(map[string]help.CategoryRecord),
		domains:       make(map[string]ninja.DomainRecord),
		assignments:   make(map[string]ninja.AssignmentRecord),
		pinSessions:   make(map[string]storage.PinSession),
		notifications: make(map[string]storage.Notification),
	}
}

// projectionState is a copy of the projector-owned tables.
type projectionState struct {
	sessions map[string]session.Record
	signIns  map[string]signin.Record
	requests map[string]help.Record
}

func (t *tables) save() projectionState {
	return projectionState{
		sessions: maps.Clone(t.sessions),
		signIns:  maps.Clone(t.signIns),
		requests: maps.Clone(t.requests),
	}
}

func (t *tables) restore(p projectionState) {
	t.sessions = p.sessions
	t.signIns = p.signIns
	t.requests = p.requests
}

func (t *tables) stores() projection.Stores {
	return projection.Stores{Sessions: t, SignIns: t, HelpRequests: t}
}

// Append validates and stores an event, applying projections atomically.
func (s *Store) Append(ctx context.Context, in event.AppendInput) (event.Event, error) {
	if err := ctx.Err(); err != nil {
		return event.Event{}, err
	}
	if err := s.events.ValidateForAppend(in); err != nil {
		return event.Event{}, fmt.Errorf("validate event: %w", err)
	}
	eventID, err := s.newID()
	if err != nil {
		return event.Event{}, fmt.Errorf("generate event id: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	evt := event.Event{
		ID:          eventID,
		SchoolID:    in.SchoolID,
		ClassroomID: in.ClassroomID,
		SessionID:   in.SessionID,
		Type:        in.Type,
		EntityType:  in.EntityType,
		EntityID:    in.EntityID,
		ActorID:     in.ActorID,
		Payload:     append([]byte(nil), in.Payload...),
		CreatedAt:   s.clock().UTC().Truncate(time.Millisecond),
	}
	saved := s.t.save()
	if err := s.projections.Apply(ctx, s.t.stores(), evt); err != nil {
		s.t.restore(saved)
		return event.Event{}, fmt.Errorf("project event %s: %w", evt.Type, err)
	}
	s.t.events = append(s.t.events, evt)
	return cloneEvent(evt), nil
}

// AppendAndEmit appends and then hands the event to the emitter. Emission
// errors are logged and never returned.
func (s *Store) AppendAndEmit(ctx context.Context, in event.AppendInput) (event.Event, error) {
	evt, err := s.Append(ctx, in)
	if err != nil {
		return event.Event{}, err
	}
	if s.emitter == nil {
		return evt, nil
	}
	emitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Emit)
	defer cancel()
	if err := s.emitter.Emit(emitCtx, evt); err != nil {
		s.logger.Warn("emit event",
			zap.String("event_id", evt.ID),
			zap.String("event_type", string(evt.Type)),
			zap.Error(err),
		)
	}
	return evt, nil
}

// LoadEvents returns matching events in append order.
func (s *Store) LoadEvents(ctx context.Context, filter event.Filter) ([]event.Event, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []event.Event
	for _, evt := range s.t.events {
		if filter.Matches(evt) {
			out = append(out, cloneEvent(evt))
		}
	}
	return out, nil
}

// CountEvents counts matching events.
func (s *Store) CountEvents(ctx context.Context, filter event.Filter) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	count := 0
	for _, evt := range s.t.events {
		if filter.Matches(evt) {
			count++
		}
	}
	return count, nil
}

// DeleteOlderThan removes events created before cutoff.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	kept := s.t.events[:0]
	var deleted int64
	for _, evt := range s.t.events {
		if evt.CreatedAt.Before(cutoff) {
			deleted++
			continue
		}
		kept = append(kept, evt)
	}
	s.t.events = kept
	return deleted, nil
}

// RebuildProjections clears projector-owned tables and replays the log,
// restoring the previous state on failure.
func (s *Store) RebuildProjections(ctx context.Context) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	saved := s.t.save()
	replayed, err := s.projections.Rebuild(ctx, s.t.stores(), s.t.events)
	if err != nil {
		s.t.restore(saved)
		return 0, err
	}
	return replayed, nil
}

func cloneEvent(evt event.Event) event.Event {
	evt.Payload = append([]byte(nil), evt.Payload...)
	return evt
}
