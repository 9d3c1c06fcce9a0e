package service

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	apperrors "github.com/andysmith26/forge/internal/platform/errors"
	"github.com/andysmith26/forge/internal/services/forge/domain/classroom"
	"github.com/andysmith26/forge/internal/services/forge/domain/event"
	"github.com/andysmith26/forge/internal/services/forge/domain/help"
	"github.com/andysmith26/forge/internal/services/forge/domain/membership"
	"github.com/andysmith26/forge/internal/services/forge/domain/person"
	"github.com/andysmith26/forge/internal/services/forge/domain/session"
	"github.com/andysmith26/forge/internal/services/forge/storage/memory"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

var epoch = time.Date(2026, 3, 2, 14, 0, 0, 0, time.UTC)

// testClock advances by one second on every read so events keep a strict
// order.
type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sequentialIDs struct {
	mu sync.Mutex
	n  int
}

func (g *sequentialIDs) Next() (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.n++
	return fmt.Sprintf("id-%03d", g.n), nil
}

type fixture struct {
	svc   *Service
	store *memory.Store
	clock *testClock
}

// newFixture seeds one classroom with a teacher, two students and a
// scheduled session sess-1.
func newFixture(t *testing.T, opts ...func(*Deps)) *fixture {
	t.Helper()
	clock := &testClock{now: epoch}
	ids := &sequentialIDs{}
	store := memory.New(memory.WithClock(clock.Now), memory.WithIDGenerator(ids.Next))
	deps := Deps{
		Stores: StoresFrom(store),
		Clock:  clock.Now,
		IDs:    ids.Next,
		Hasher: BcryptHasher{Cost: bcrypt.MinCost},
		Logger: zap.NewNop(),
	}
	for _, opt := range opts {
		opt(&deps)
	}
	svc, err := New(deps)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	ctx := context.Background()
	settings := classroom.DefaultSettings()
	settings.Modules[classroom.ModuleHelp] = classroom.ModuleConfig{Enabled: true}
	if err := store.PutClassroom(ctx, classroom.Record{
		ID: "room-1", SchoolID: "school-1", Name: "Robotics", Slug: "robotics",
		DisplayCode: "ABC123", Settings: settings, IsActive: true,
	}); err != nil {
		t.Fatalf("put classroom: %v", err)
	}
	for _, p := range []struct {
		id   string
		role membership.Role
	}{
		{"teacher-1", membership.RoleTeacher},
		{"alice", membership.RoleStudent},
		{"bob", membership.RoleStudent},
	} {
		if err := store.PutPerson(ctx, person.Record{
			ID: p.id, SchoolID: "school-1", Email: p.id + "@example.com",
			LegalName: p.id, DisplayName: p.id, HelpQueueVisible: true, IsActive: true,
		}); err != nil {
			t.Fatalf("put person %s: %v", p.id, err)
		}
		if err := store.PutMembership(ctx, membership.Record{
			ID: "m-" + p.id, ClassroomID: "room-1", PersonID: p.id, Role: p.role,
			IsActive: true, JoinedAt: epoch,
		}); err != nil {
			t.Fatalf("put membership %s: %v", p.id, err)
		}
	}
	if err := store.CreateSession(ctx, session.Record{
		ID: "sess-1", ClassroomID: "room-1", SessionType: session.TypeStructured,
		ScheduledDate: epoch, StartTime: epoch, EndTime: epoch.Add(time.Hour),
		Status: session.StatusScheduled, CreatedByID: "teacher-1", CreatedAt: epoch,
	}); err != nil {
		t.Fatalf("create session: %v", err)
	}
	return &fixture{svc: svc, store: store, clock: clock}
}

func (f *fixture) startSession(t *testing.T) {
	t.Helper()
	if _, err := f.svc.StartSession(context.Background(), SessionActionInput{SessionID: "sess-1", ActorID: "teacher-1"}); err != nil {
		t.Fatalf("start session: %v", err)
	}
}

func (f *fixture) requestHelp(t *testing.T, requesterID string) help.Record {
	t.Helper()
	res, err := f.svc.RequestHelp(context.Background(), helpInput(requesterID))
	if err != nil {
		t.Fatalf("request help: %v", err)
	}
	return res.Request
}

func (f *fixture) countEvents(t *testing.T, filter event.Filter) int {
	t.Helper()
	n, err := f.store.CountEvents(context.Background(), filter)
	if err != nil {
		t.Fatalf("count events: %v", err)
	}
	return n
}

func helpInput(requesterID string) RequestHelpInput {
	return RequestHelpInput{
		SessionID:   "sess-1",
		RequesterID: requesterID,
		Description: "My motor does not spin",
		WhatITried:  "Checked the wiring and swapped the battery",
		Urgency:     help.UrgencyBlocked,
	}
}

func assertCode(t *testing.T, err error, want apperrors.Code) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected %s, got nil", want)
	}
	if got := apperrors.GetCode(err); got != want {
		t.Fatalf("code = %s, want %s (err: %v)", got, want, err)
	}
}
