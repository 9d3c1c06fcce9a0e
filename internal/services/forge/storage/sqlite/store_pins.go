package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/andysmith26/forge/internal/services/forge/domain/membership"
	"github.com/andysmith26/forge/internal/services/forge/storage"
)

// ListPinCandidates returns active members of a classroom that have a PIN.
func (s *Store) ListPinCandidates(ctx context.Context, classroomID string) ([]storage.PinCandidate, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx, `SELECT p.id, p.pin_hash
FROM memberships m
JOIN people p ON p.id = m.person_id
WHERE m.classroom_id = ? AND m.is_active = 1 AND p.is_active = 1 AND p.pin_hash != ''
ORDER BY p.id`, classroomID)
	if err != nil {
		return nil, fmt.Errorf("list pin candidates: %w", err)
	}
	defer rows.Close()

	var out []storage.PinCandidate
	for rows.Next() {
		var c storage.PinCandidate
		if err := rows.Scan(&c.PersonID, &c.PinHash); err != nil {
			return nil, fmt.Errorf("scan pin candidate: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

// SetPinHash stores a PIN hash; an empty hash removes the PIN.
func (s *Store) SetPinHash(ctx context.Context, personID, hash string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.updatePerson(ctx, "set pin hash", "UPDATE people SET pin_hash = ? WHERE id = ?", hash, personID)
}

// TouchLastLogin records a successful login.
func (s *Store) TouchLastLogin(ctx context.Context, personID string, at time.Time) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	return s.updatePerson(ctx, "touch last login", "UPDATE people SET last_login_at = ? WHERE id = ?", toMillis(at), personID)
}

func (s *Store) updatePerson(ctx context.Context, what, query string, args ...any) error {
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s: %w", what, err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListStudentsWithPins reports PIN status for the classroom's active students.
func (s *Store) ListStudentsWithPins(ctx context.Context, classroomID string) ([]storage.StudentPin, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx, `SELECT p.id, p.display_name, p.pin_hash != ''
FROM memberships m
JOIN people p ON p.id = m.person_id
WHERE m.classroom_id = ? AND m.is_active = 1 AND m.role = ?
ORDER BY p.display_name, p.id`, classroomID, string(membership.RoleStudent))
	if err != nil {
		return nil, fmt.Errorf("list students with pins: %w", err)
	}
	defer rows.Close()

	var out []storage.StudentPin
	for rows.Next() {
		var (
			sp     storage.StudentPin
			hasPin int
		)
		if err := rows.Scan(&sp.PersonID, &sp.DisplayName, &hasPin); err != nil {
			return nil, fmt.Errorf("scan student pin: %w", err)
		}
		sp.HasPin = hasPin == 1
		out = append(out, sp)
	}
	return out, rows.Err()
}

// PutPinSession inserts or replaces a PIN session.
func (s *Store) PutPinSession(ctx context.Context, ps storage.PinSession) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.q.ExecContext(ctx, `INSERT INTO pin_sessions (token, person_id, classroom_id, expires_at, created_at, last_activity_at)
VALUES (?, ?, ?, ?, ?, ?)
ON CONFLICT(token) DO UPDATE SET
    expires_at = excluded.expires_at,
    last_activity_at = excluded.last_activity_at`,
		ps.Token, ps.PersonID, ps.ClassroomID, toMillis(ps.ExpiresAt), toMillis(ps.CreatedAt), toMillis(ps.LastActivityAt))
	if err != nil {
		return fmt.Errorf("put pin session: %w", err)
	}
	return nil
}

// GetPinSession returns a PIN session by token.
func (s *Store) GetPinSession(ctx context.Context, token string) (storage.PinSession, error) {
	if err := s.ready(ctx); err != nil {
		return storage.PinSession{}, err
	}
	var (
		ps                               storage.PinSession
		expiresAt, createdAt, lastActive int64
	)
	err := s.q.QueryRowContext(ctx,
		"SELECT token, person_id, classroom_id, expires_at, created_at, last_activity_at FROM pin_sessions WHERE token = ?",
		token).Scan(&ps.Token, &ps.PersonID, &ps.ClassroomID, &expiresAt, &createdAt, &lastActive)
	if err != nil {
		return storage.PinSession{}, notFound(err, "pin session")
	}
	ps.ExpiresAt = fromMillis(expiresAt)
	ps.CreatedAt = fromMillis(createdAt)
	ps.LastActivityAt = fromMillis(lastActive)
	return ps, nil
}

// DeletePinSession removes one PIN session.
func (s *Store) DeletePinSession(ctx context.Context, token string) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if _, err := s.q.ExecContext(ctx, "DELETE FROM pin_sessions WHERE token = ?", token); err != nil {
		return fmt.Errorf("delete pin session: %w", err)
	}
	return nil
}

// DeletePinSessionsForPerson removes every PIN session of a person.
func (s *Store) DeletePinSessionsForPerson(ctx context.Context, personID string) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	return s.deleteRows(ctx, "delete pin sessions", "DELETE FROM pin_sessions WHERE person_id = ?", personID)
}

// DeleteExpiredPinSessions removes PIN sessions that expired at or before now.
func (s *Store) DeleteExpiredPinSessions(ctx context.Context, now time.Time) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	return s.deleteRows(ctx, "delete expired pin sessions", "DELETE FROM pin_sessions WHERE expires_at <= ?", toMillis(now))
}

func (s *Store) deleteRows(ctx context.Context, what, query string, args ...any) (int64, error) {
	res, err := s.q.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", what, err)
	}
	return affected, nil
}
