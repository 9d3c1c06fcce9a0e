package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/andysmith26/forge/internal/services/forge/domain/signin"
	"github.com/andysmith26/forge/internal/services/forge/storage"
)

const signInColumns = "id, session_id, person_id, signed_in_at, signed_in_by_id, signed_out_at, signed_out_by_id, signout_type"

// GetSignIn returns a sign-in by id.
func (s *Store) GetSignIn(ctx context.Context, id string) (signin.Record, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+signInColumns+" FROM sign_ins WHERE id = ?", id)
	rec, err := scanSignIn(row.Scan)
	if err != nil {
		return signin.Record{}, notFound(err, "sign-in")
	}
	return rec, nil
}

// GetActiveSignIn returns the open sign-in for a person in a session.
func (s *Store) GetActiveSignIn(ctx context.Context, sessionID, personID string) (signin.Record, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+signInColumns+" FROM sign_ins WHERE session_id = ? AND person_id = ? AND signed_out_at IS NULL ORDER BY signed_in_at DESC LIMIT 1",
		sessionID, personID)
	rec, err := scanSignIn(row.Scan)
	if err != nil {
		return signin.Record{}, notFound(err, "active sign-in")
	}
	return rec, nil
}

// PutSignIn inserts or replaces a sign-in row.
func (s *Store) PutSignIn(ctx context.Context, rec signin.Record) error {
	_, err := s.q.ExecContext(ctx, `INSERT INTO sign_ins (`+signInColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    signed_out_at = excluded.signed_out_at,
    signed_out_by_id = excluded.signed_out_by_id,
    signout_type = excluded.signout_type`,
		rec.ID, rec.SessionID, rec.PersonID, toMillis(rec.SignedInAt), rec.SignedInByID,
		toNullMillis(rec.SignedOutAt), rec.SignedOutByID, string(rec.SignoutType))
	if err != nil {
		return fmt.Errorf("put sign-in: %w", err)
	}
	return nil
}

// SignOutAll closes every open sign-in of a session.
func (s *Store) SignOutAll(ctx context.Context, sessionID string, typ signin.SignoutType, at time.Time) (int, error) {
	res, err := s.q.ExecContext(ctx,
		"UPDATE sign_ins SET signed_out_at = ?, signed_out_by_id = '', signout_type = ? WHERE session_id = ? AND signed_out_at IS NULL",
		toMillis(at), string(typ), sessionID)
	if err != nil {
		return 0, fmt.Errorf("sign out session: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("sign out session: %w", err)
	}
	return int(affected), nil
}

// ClearSignIns deletes every sign-in row.
func (s *Store) ClearSignIns(ctx context.Context) error {
	if _, err := s.q.ExecContext(ctx, "DELETE FROM sign_ins"); err != nil {
		return fmt.Errorf("clear sign-ins: %w", err)
	}
	return nil
}

// ListPresent returns open sign-ins joined with people, by display name.
func (s *Store) ListPresent(ctx context.Context, sessionID string) ([]storage.PresentPerson, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx, `SELECT
    si.id, si.session_id, si.person_id, si.signed_in_at, si.signed_in_by_id, si.signed_out_at, si.signed_out_by_id, si.signout_type,
    p.display_name, p.legal_name, p.pronouns, p.ask_me_about_json
FROM sign_ins si
JOIN people p ON p.id = si.person_id
WHERE si.session_id = ? AND si.signed_out_at IS NULL
ORDER BY p.display_name, si.signed_in_at`, sessionID)
	if err != nil {
		return nil, fmt.Errorf("list present: %w", err)
	}
	defer rows.Close()

	var out []storage.PresentPerson
	for rows.Next() {
		var (
			present storage.PresentPerson
			topics  []byte
		)
		rec, err := scanSignIn(func(dest ...any) error {
			return rows.Scan(append(dest, &present.DisplayName, &present.LegalName, &present.Pronouns, &topics)...)
		})
		if err != nil {
			return nil, fmt.Errorf("scan present person: %w", err)
		}
		present.SignIn = rec
		present.PersonID = rec.PersonID
		if err := json.Unmarshal(topics, &present.AskMeAbout); err != nil {
			return nil, fmt.Errorf("decode ask me about: %w", err)
		}
		out = append(out, present)
	}
	return out, rows.Err()
}

// ListSignInsForSession returns every sign-in cycle of a session, oldest first.
func (s *Store) ListSignInsForSession(ctx context.Context, sessionID string) ([]signin.Record, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+signInColumns+" FROM sign_ins WHERE session_id = ? ORDER BY signed_in_at, id", sessionID)
	if err != nil {
		return nil, fmt.Errorf("list sign-ins: %w", err)
	}
	defer rows.Close()

	var out []signin.Record
	for rows.Next() {
		rec, err := scanSignIn(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan sign-in: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func scanSignIn(scan scanner) (signin.Record, error) {
	var (
		rec         signin.Record
		signedInAt  int64
		signedOutAt sql.NullInt64
		signoutType string
	)
	if err := scan(&rec.ID, &rec.SessionID, &rec.PersonID, &signedInAt, &rec.SignedInByID,
		&signedOutAt, &rec.SignedOutByID, &signoutType); err != nil {
		return signin.Record{}, err
	}
	rec.SignedInAt = fromMillis(signedInAt)
	rec.SignedOutAt = fromNullMillis(signedOutAt)
	rec.SignoutType = signin.SignoutType(signoutType)
	return rec, nil
}
