package projection

import (
	"context"
	"sort"
	"time"

	"github.com/andysmith26/forge/internal/services/forge/domain/help"
	"github.com/andysmith26/forge/internal/services/forge/domain/session"
	"github.com/andysmith26/forge/internal/services/forge/domain/signin"
	"github.com/andysmith26/forge/internal/services/forge/storage"
)

type fakeTables struct {
	sessions map[string]session.Record
	signIns  map[string]signin.Record
	requests map[string]help.Record
}

func newFakeTables() *fakeTables {
	return &fakeTables{
		sessions: make(map[string]session.Record),
		signIns:  make(map[string]signin.Record),
		requests: make(map[string]help.Record),
	}
}

func (f *fakeTables) stores() Stores {
	return Stores{Sessions: f, SignIns: f, HelpRequests: f}
}

func (f *fakeTables) GetSession(_ context.Context, id string) (session.Record, error) {
	s, ok := f.sessions[id]
	if !ok {
		return session.Record{}, storage.ErrNotFound
	}
	return s, nil
}

func (f *fakeTables) FindActiveSession(_ context.Context, classroomID string) (session.Record, error) {
	for _, s := range f.sessions {
		if s.ClassroomID == classroomID && s.Status == session.StatusActive {
			return s, nil
		}
	}
	return session.Record{}, storage.ErrNotFound
}

func (f *fakeTables) PutSessionLifecycle(_ context.Context, s session.Record) error {
	cur, ok := f.sessions[s.ID]
	if !ok {
		return storage.ErrNotFound
	}
	cur.Status, cur.ActualStartAt, cur.ActualEndAt = s.Status, s.ActualStartAt, s.ActualEndAt
	f.sessions[s.ID] = cur
	return nil
}

func (f *fakeTables) ResetSessionLifecycles(context.Context) error {
	for id, s := range f.sessions {
		s.Status, s.ActualStartAt, s.ActualEndAt = session.StatusScheduled, nil, nil
		f.sessions[id] = s
	}
	return nil
}

func (f *fakeTables) GetSignIn(_ context.Context, id string) (signin.Record, error) {
	s, ok := f.signIns[id]
	if !ok {
		return signin.Record{}, storage.ErrNotFound
	}
	return s, nil
}

func (f *fakeTables) GetActiveSignIn(_ context.Context, sessionID, personID string) (signin.Record, error) {
	for _, s := range f.signIns {
		if s.SessionID == sessionID && s.PersonID == personID && s.SignedOutAt == nil {
			return s, nil
		}
	}
	return signin.Record{}, storage.ErrNotFound
}

func (f *fakeTables) PutSignIn(_ context.Context, s signin.Record) error {
	f.signIns[s.ID] = s
	return nil
}

func (f *fakeTables) SignOutAll(_ context.Context, sessionID string, typ signin.SignoutType, at time.Time) (int, error) {
	n := 0
	for id, s := range f.signIns {
		if s.SessionID == sessionID && s.SignedOutAt == nil {
			t := at
			s.SignedOutAt, s.SignoutType = &t, typ
			f.signIns[id] = s
			n++
		}
	}
	return n, nil
}

func (f *fakeTables) ClearSignIns(context.Context) error {
	f.signIns = make(map[string]signin.Record)
	return nil
}

func (f *fakeTables) GetHelpRequest(_ context.Context, id string) (help.Record, error) {
	r, ok := f.requests[id]
	if !ok {
		return help.Record{}, storage.ErrNotFound
	}
	return r, nil
}

func (f *fakeTables) FindOpenHelpRequest(_ context.Context, sessionID, requesterID string) (help.Record, error) {
	for _, r := range f.requests {
		q := help.FromRecord(r)
		if r.SessionID == sessionID && r.RequesterID == requesterID && q.IsOpen() {
			return r, nil
		}
	}
	return help.Record{}, storage.ErrNotFound
}

func (f *fakeTables) PutHelpRequest(_ context.Context, r help.Record) error {
	f.requests[r.ID] = r
	return nil
}

func (f *fakeTables) ClearHelpRequests(context.Context) error {
	f.requests = make(map[string]help.Record)
	return nil
}

func (f *fakeTables) sortedSignInIDs() []string {
	ids := make([]string, 0, len(f.signIns))
	for id := range f.signIns {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}
