package memory

import (
	"context"
	"time"

	"github.com/andysmith26/forge/internal/services/forge/domain/help"
	"github.com/andysmith26/forge/internal/services/forge/domain/session"
	"github.com/andysmith26/forge/internal/services/forge/domain/signin"
	"github.com/andysmith26/forge/internal/services/forge/storage"
)

// The methods below are the projector-facing tables. They assume the
// caller holds the store mutex.

func (t *tables) GetSession(_ context.Context, id string) (session.Record, error) {
	rec, ok := t.sessions[id]
	if !ok {
		return session.Record{}, storage.ErrNotFound
	}
	return rec, nil
}

func (t *tables) FindActiveSession(_ context.Context, classroomID string) (session.Record, error) {
	var (
		found session.Record
		ok    bool
	)
	for _, rec := range t.sessions {
		if rec.ClassroomID != classroomID || rec.Status != session.StatusActive {
			continue
		}
		if !ok || (rec.ActualStartAt != nil && found.ActualStartAt != nil && rec.ActualStartAt.After(*found.ActualStartAt)) {
			found, ok = rec, true
		}
	}
	if !ok {
		return session.Record{}, storage.ErrNotFound
	}
	return found, nil
}

func (t *tables) PutSessionLifecycle(_ context.Context, rec session.Record) error {
	current, ok := t.sessions[rec.ID]
	if !ok {
		return storage.ErrNotFound
	}
	current.Status = rec.Status
	current.ActualStartAt = rec.ActualStartAt
	current.ActualEndAt = rec.ActualEndAt
	t.sessions[rec.ID] = current
	return nil
}

func (t *tables) ResetSessionLifecycles(context.Context) error {
	for id, rec := range t.sessions {
		rec.Status = session.StatusScheduled
		rec.ActualStartAt = nil
		rec.ActualEndAt = nil
		t.sessions[id] = rec
	}
	return nil
}

func (t *tables) GetSignIn(_ context.Context, id string) (signin.Record, error) {
	rec, ok := t.signIns[id]
	if !ok {
		return signin.Record{}, storage.ErrNotFound
	}
	return rec, nil
}

func (t *tables) GetActiveSignIn(_ context.Context, sessionID, personID string) (signin.Record, error) {
	var (
		found signin.Record
		ok    bool
	)
	for _, rec := range t.signIns {
		if rec.SessionID != sessionID || rec.PersonID != personID || rec.SignedOutAt != nil {
			continue
		}
		if !ok || rec.SignedInAt.After(found.SignedInAt) {
			found, ok = rec, true
		}
	}
	if !ok {
		return signin.Record{}, storage.ErrNotFound
	}
	return found, nil
}

func (t *tables) PutSignIn(_ context.Context, rec signin.Record) error {
	t.signIns[rec.ID] = rec
	return nil
}

func (t *tables) SignOutAll(_ context.Context, sessionID string, typ signin.SignoutType, at time.Time) (int, error) {
	count := 0
	for id, rec := range t.signIns {
		if rec.SessionID != sessionID || rec.SignedOutAt != nil {
			continue
		}
		signedOut := at
		rec.SignedOutAt = &signedOut
		rec.SignedOutByID = ""
		rec.SignoutType = typ
		t.signIns[id] = rec
		count++
	}
	return count, nil
}

func (t *tables) ClearSignIns(context.Context) error {
	t.signIns = make(map[string]signin.Record)
	return nil
}

func (t *tables) GetHelpRequest(_ context.Context, id string) (help.Record, error) {
	rec, ok := t.requests[id]
	if !ok {
		return help.Record{}, storage.ErrNotFound
	}
	return rec, nil
}

func (t *tables) FindOpenHelpRequest(_ context.Context, sessionID, requesterID string) (help.Record, error) {
	for _, rec := range t.sortedRequests() {
		if rec.SessionID == sessionID && rec.RequesterID == requesterID && isOpen(rec) {
			return rec, nil
		}
	}
	return help.Record{}, storage.ErrNotFound
}

func (t *tables) PutHelpRequest(_ context.Context, rec help.Record) error {
	t.requests[rec.ID] = rec
	return nil
}

func (t *tables) ClearHelpRequests(context.Context) error {
	t.requests = make(map[string]help.Record)
	return nil
}

func isOpen(rec help.Record) bool {
	return rec.Status == help.StatusPending || rec.Status == help.StatusClaimed
}
