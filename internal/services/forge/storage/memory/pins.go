package memory

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/andysmith26/forge/internal/services/forge/domain/membership"
	"github.com/andysmith26/forge/internal/services/forge/storage"
)

func (s *Store) ListPinCandidates(ctx context.Context, classroomID string) ([]storage.PinCandidate, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	var out []storage.PinCandidate
	for _, m := range s.t.memberships {
		if m.ClassroomID != classroomID || !m.IsActive {
			continue
		}
		p, ok := s.t.people[m.PersonID]
		if !ok || !p.IsActive || p.PinHash == "" {
			continue
		}
		out = append(out, storage.PinCandidate{PersonID: p.ID, PinHash: p.PinHash})
	}
	slices.SortFunc(out, func(a, b storage.PinCandidate) int { return cmp.Compare(a.PersonID, b.PersonID) })
	return out, nil
}

func (s *Store) SetPinHash(ctx context.Context, personID, hash string) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	p, ok := s.t.people[personID]
	if !ok {
		return storage.ErrNotFound
	}
	p.PinHash = hash
	s.t.people[personID] = p
	return nil
}

func (s *Store) TouchLastLogin(ctx context.Context, personID string, at time.Time) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	p, ok := s.t.people[personID]
	if !ok {
		return storage.ErrNotFound
	}
	loginAt := at.UTC()
	p.LastLoginAt = &loginAt
	s.t.people[personID] = p
	return nil
}

func (s *Store) ListStudentsWithPins(ctx context.Context, classroomID string) ([]storage.StudentPin, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	var out []storage.StudentPin
	for _, m := range s.t.memberships {
		if m.ClassroomID != classroomID || !m.IsActive || m.Role != membership.RoleStudent {
			continue
		}
		p, ok := s.t.people[m.PersonID]
		if !ok {
			continue
		}
		out = append(out, storage.StudentPin{PersonID: p.ID, DisplayName: p.DisplayName, HasPin: p.PinHash != ""})
	}
	slices.SortFunc(out, func(a, b storage.StudentPin) int {
		return cmp.Or(cmp.Compare(a.DisplayName, b.DisplayName), cmp.Compare(a.PersonID, b.PersonID))
	})
	return out, nil
}

func (s *Store) PutPinSession(ctx context.Context, ps storage.PinSession) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	s.t.pinSessions[ps.Token] = ps
	return nil
}

func (s *Store) GetPinSession(ctx context.Context, token string) (storage.PinSession, error) {
	if err := s.lock(ctx); err != nil {
		return storage.PinSession{}, err
	}
	defer s.mu.Unlock()
	ps, ok := s.t.pinSessions[token]
	if !ok {
		return storage.PinSession{}, storage.ErrNotFound
	}
	return ps, nil
}

func (s *Store) DeletePinSession(ctx context.Context, token string) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	delete(s.t.pinSessions, token)
	return nil
}

func (s *Store) DeletePinSessionsForPerson(ctx context.Context, personID string) (int64, error) {
	if err := s.lock(ctx); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()
	var deleted int64
	for token, ps := range s.t.pinSessions {
		if ps.PersonID == personID {
			delete(s.t.pinSessions, token)
			deleted++
		}
	}
	return deleted, nil
}

func (s *Store) DeleteExpiredPinSessions(ctx context.Context, now time.Time) (int64, error) {
	if err := s.lock(ctx); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()
	var deleted int64
	for token, ps := range s.t.pinSessions {
		if !ps.ExpiresAt.After(now) {
			delete(s.t.pinSessions, token)
			deleted++
		}
	}
	return deleted, nil
}

// Notifications

func (s *Store) PutNotification(ctx context.Context, n storage.Notification) error {
	if err := s.lock(ctx); err != nil {
		return err
	}
	defer s.mu.Unlock()
	if strings.TrimSpace(n.Channel) == "" {
		return fmt.Errorf("notification channel is required")
	}
	if n.ID == "" {
		notificationID, err := s.newID()
		if err != nil {
			return fmt.Errorf("generate notification id: %w", err)
		}
		n.ID = notificationID
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = s.clock()
	}
	n.CreatedAt = n.CreatedAt.UTC().Truncate(time.Millisecond)
	if _, ok := s.t.notifications[n.ID]; !ok {
		s.t.notifications[n.ID] = n
	}
	return nil
}

func (s *Store) ListNotifications(ctx context.Context, channel string, since time.Time) ([]storage.Notification, error) {
	if err := s.lock(ctx); err != nil {
		return nil, err
	}
	defer s.mu.Unlock()
	var out []storage.Notification
	for _, n := range s.t.notifications {
		if n.Channel == channel && n.CreatedAt.After(since) {
			out = append(out, n)
		}
	}
	slices.SortFunc(out, func(a, b storage.Notification) int {
		return cmp.Or(a.CreatedAt.Compare(b.CreatedAt), cmp.Compare(a.ID, b.ID))
	})
	return out, nil
}

func (s *Store) DeleteNotificationsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := s.lock(ctx); err != nil {
		return 0, err
	}
	defer s.mu.Unlock()
	var deleted int64
	for key, n := range s.t.notifications {
		if n.CreatedAt.Before(cutoff) {
			delete(s.t.notifications, key)
			deleted++
		}
	}
	return deleted, nil
}
