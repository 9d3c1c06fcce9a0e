package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	apperrors "github.com/andysmith26/forge/internal/platform/errors"
	"github.com/andysmith26/forge/internal/services/forge/domain/classroom"
	"github.com/andysmith26/forge/internal/services/forge/domain/membership"
	"github.com/andysmith26/forge/internal/services/forge/domain/person"
	"github.com/andysmith26/forge/internal/services/forge/storage"
)

const (
	classroomColumns  = "id, school_id, name, slug, description, display_code, settings_json, is_active"
	membershipColumns = "id, classroom_id, person_id, role, is_active, joined_at, left_at"
	personColumns     = "id, school_id, email, legal_name, display_name, pronouns, grade_level, ask_me_about_json, theme_color, currently_working_on, help_queue_visible, is_active, pin_hash, last_login_at"
)

// PutClassroom inserts or updates a classroom.
func (s *Store) PutClassroom(ctx context.Context, rec classroom.Record) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	settings, err := classroom.MarshalSettings(rec.Settings)
	if err != nil {
		return err
	}
	_, err = s.q.ExecContext(ctx, `INSERT INTO classrooms (`+classroomColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    slug = excluded.slug,
    description = excluded.description,
    display_code = excluded.display_code,
    settings_json = excluded.settings_json,
    is_active = excluded.is_active`,
		rec.ID, rec.SchoolID, rec.Name, rec.Slug, rec.Description, rec.DisplayCode, settings, boolToInt(rec.IsActive))
	if err != nil {
		return fmt.Errorf("put classroom: %w", err)
	}
	return nil
}

// GetClassroom returns a classroom by id.
func (s *Store) GetClassroom(ctx context.Context, id string) (classroom.Record, error) {
	if err := s.ready(ctx); err != nil {
		return classroom.Record{}, err
	}
	row := s.q.QueryRowContext(ctx, "SELECT "+classroomColumns+" FROM classrooms WHERE id = ?", id)
	rec, err := scanClassroom(row.Scan)
	if err != nil {
		return classroom.Record{}, notFound(err, "classroom")
	}
	return rec, nil
}

// GetClassroomByCode returns a classroom by its display code.
func (s *Store) GetClassroomByCode(ctx context.Context, displayCode string) (classroom.Record, error) {
	if err := s.ready(ctx); err != nil {
		return classroom.Record{}, err
	}
	row := s.q.QueryRowContext(ctx, "SELECT "+classroomColumns+" FROM classrooms WHERE display_code = ?", displayCode)
	rec, err := scanClassroom(row.Scan)
	if err != nil {
		return classroom.Record{}, notFound(err, "classroom")
	}
	return rec, nil
}

func scanClassroom(scan scanner) (classroom.Record, error) {
	var (
		rec      classroom.Record
		settings []byte
		active   int
	)
	if err := scan(&rec.ID, &rec.SchoolID, &rec.Name, &rec.Slug, &rec.Description, &rec.DisplayCode, &settings, &active); err != nil {
		return classroom.Record{}, err
	}
	rec.Settings = classroom.ParseSettings(settings)
	rec.IsActive = active == 1
	return rec, nil
}

// GetMembership returns the membership row for a person in a classroom.
func (s *Store) GetMembership(ctx context.Context, classroomID, personID string) (membership.Record, error) {
	if err := s.ready(ctx); err != nil {
		return membership.Record{}, err
	}
	row := s.q.QueryRowContext(ctx,
		"SELECT "+membershipColumns+" FROM memberships WHERE classroom_id = ? AND person_id = ?",
		classroomID, personID)
	rec, err := scanMembership(row.Scan)
	if err != nil {
		return membership.Record{}, notFound(err, "membership")
	}
	return rec, nil
}

// PutMembership inserts or updates a membership. A second row for the same
// classroom and person is rejected.
func (s *Store) PutMembership(ctx context.Context, rec membership.Record) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.q.ExecContext(ctx, `INSERT INTO memberships (`+membershipColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    role = excluded.role,
    is_active = excluded.is_active,
    joined_at = excluded.joined_at,
    left_at = excluded.left_at`,
		rec.ID, rec.ClassroomID, rec.PersonID, string(rec.Role), boolToInt(rec.IsActive),
		toMillis(rec.JoinedAt), toNullMillis(rec.LeftAt))
	if isUniqueConstraintError(err) {
		return apperrors.Wrap(apperrors.CodeAlreadyInClassroom, "membership already exists", err)
	}
	if err != nil {
		return fmt.Errorf("put membership: %w", err)
	}
	return nil
}

// ListMembershipsForPerson returns active memberships with their classrooms.
func (s *Store) ListMembershipsForPerson(ctx context.Context, personID string) ([]storage.ClassroomMembership, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx, `SELECT
    m.id, m.classroom_id, m.person_id, m.role, m.is_active, m.joined_at, m.left_at,
    c.id, c.school_id, c.name, c.slug, c.description, c.display_code, c.settings_json, c.is_active
FROM memberships m
JOIN classrooms c ON c.id = m.classroom_id
WHERE m.person_id = ? AND m.is_active = 1
ORDER BY c.name, c.id`, personID)
	if err != nil {
		return nil, fmt.Errorf("list memberships: %w", err)
	}
	defer rows.Close()

	var out []storage.ClassroomMembership
	for rows.Next() {
		var (
			m                storage.ClassroomMembership
			role             string
			mActive, cActive int
			joinedAt         int64
			leftAt           sql.NullInt64
			settings         []byte
		)
		if err := rows.Scan(&m.Membership.ID, &m.Membership.ClassroomID, &m.Membership.PersonID, &role, &mActive, &joinedAt, &leftAt,
			&m.Classroom.ID, &m.Classroom.SchoolID, &m.Classroom.Name, &m.Classroom.Slug, &m.Classroom.Description,
			&m.Classroom.DisplayCode, &settings, &cActive); err != nil {
			return nil, fmt.Errorf("scan membership: %w", err)
		}
		m.Membership.Role = membership.Role(role)
		m.Membership.IsActive = mActive == 1
		m.Membership.JoinedAt = fromMillis(joinedAt)
		m.Membership.LeftAt = fromNullMillis(leftAt)
		m.Classroom.Settings = classroom.ParseSettings(settings)
		m.Classroom.IsActive = cActive == 1
		out = append(out, m)
	}
	return out, rows.Err()
}

// ListMembers returns active members of a classroom by display name.
func (s *Store) ListMembers(ctx context.Context, classroomID string) ([]storage.Member, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx, `SELECT
    m.id, m.classroom_id, m.person_id, m.role, m.is_active, m.joined_at, m.left_at,
    p.id, p.school_id, p.email, p.legal_name, p.display_name, p.pronouns, p.grade_level, p.ask_me_about_json,
    p.theme_color, p.currently_working_on, p.help_queue_visible, p.is_active, p.pin_hash, p.last_login_at
FROM memberships m
JOIN people p ON p.id = m.person_id
WHERE m.classroom_id = ? AND m.is_active = 1
ORDER BY p.display_name, p.id`, classroomID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	var out []storage.Member
	for rows.Next() {
		var (
			member   storage.Member
			role     string
			active   int
			joinedAt int64
			leftAt   sql.NullInt64
		)
		p, err := scanPerson(func(dest ...any) error {
			head := []any{&member.Membership.ID, &member.Membership.ClassroomID, &member.Membership.PersonID, &role, &active, &joinedAt, &leftAt}
			return rows.Scan(append(head, dest...)...)
		})
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		member.Membership.Role = membership.Role(role)
		member.Membership.IsActive = active == 1
		member.Membership.JoinedAt = fromMillis(joinedAt)
		member.Membership.LeftAt = fromNullMillis(leftAt)
		member.Person = p
		out = append(out, member)
	}
	return out, rows.Err()
}

func scanMembership(scan scanner) (membership.Record, error) {
	var (
		rec      membership.Record
		role     string
		active   int
		joinedAt int64
		leftAt   sql.NullInt64
	)
	if err := scan(&rec.ID, &rec.ClassroomID, &rec.PersonID, &role, &active, &joinedAt, &leftAt); err != nil {
		return membership.Record{}, err
	}
	rec.Role = membership.Role(role)
	rec.IsActive = active == 1
	rec.JoinedAt = fromMillis(joinedAt)
	rec.LeftAt = fromNullMillis(leftAt)
	return rec, nil
}

// PutPerson inserts or updates a person.
func (s *Store) PutPerson(ctx context.Context, rec person.Record) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	topics, err := json.Marshal(rec.AskMeAbout)
	if err != nil {
		return fmt.Errorf("encode ask me about: %w", err)
	}
	_, err = s.q.ExecContext(ctx, `INSERT INTO people (id, school_id, email, email_key, legal_name, display_name, pronouns, grade_level,
    ask_me_about_json, theme_color, currently_working_on, help_queue_visible, is_active, pin_hash, last_login_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    email = excluded.email,
    email_key = excluded.email_key,
    legal_name = excluded.legal_name,
    display_name = excluded.display_name,
    pronouns = excluded.pronouns,
    grade_level = excluded.grade_level,
    ask_me_about_json = excluded.ask_me_about_json,
    theme_color = excluded.theme_color,
    currently_working_on = excluded.currently_working_on,
    help_queue_visible = excluded.help_queue_visible,
    is_active = excluded.is_active,
    pin_hash = excluded.pin_hash,
    last_login_at = excluded.last_login_at`,
		rec.ID, rec.SchoolID, rec.Email, storage.NameKey(rec.Email), rec.LegalName, rec.DisplayName, rec.Pronouns,
		rec.GradeLevel, topics, rec.ThemeColor, rec.CurrentlyWorkingOn, boolToInt(rec.HelpQueueVisible),
		boolToInt(rec.IsActive), rec.PinHash, toNullMillis(rec.LastLoginAt))
	if err != nil {
		return fmt.Errorf("put person: %w", err)
	}
	return nil
}

// GetPerson returns a person by id.
func (s *Store) GetPerson(ctx context.Context, id string) (person.Record, error) {
	if err := s.ready(ctx); err != nil {
		return person.Record{}, err
	}
	row := s.q.QueryRowContext(ctx, "SELECT "+personColumns+" FROM people WHERE id = ?", id)
	rec, err := scanPerson(row.Scan)
	if err != nil {
		return person.Record{}, notFound(err, "person")
	}
	return rec, nil
}

// FindPersonByEmail matches a non-empty email case-insensitively within a school.
func (s *Store) FindPersonByEmail(ctx context.Context, schoolID, email string) (person.Record, error) {
	if err := s.ready(ctx); err != nil {
		return person.Record{}, err
	}
	key := storage.NameKey(email)
	if key == "" {
		return person.Record{}, storage.ErrNotFound
	}
	row := s.q.QueryRowContext(ctx,
		"SELECT "+personColumns+" FROM people WHERE school_id = ? AND email_key = ? ORDER BY id LIMIT 1",
		schoolID, key)
	rec, err := scanPerson(row.Scan)
	if err != nil {
		return person.Record{}, notFound(err, "person")
	}
	return rec, nil
}

func scanPerson(scan scanner) (person.Record, error) {
	var (
		rec             person.Record
		topics          []byte
		visible, active int
		lastLogin       sql.NullInt64
	)
	if err := scan(&rec.ID, &rec.SchoolID, &rec.Email, &rec.LegalName, &rec.DisplayName, &rec.Pronouns, &rec.GradeLevel,
		&topics, &rec.ThemeColor, &rec.CurrentlyWorkingOn, &visible, &active, &rec.PinHash, &lastLogin); err != nil {
		return person.Record{}, err
	}
	if err := json.Unmarshal(topics, &rec.AskMeAbout); err != nil {
		return person.Record{}, fmt.Errorf("decode ask me about: %w", err)
	}
	rec.HelpQueueVisible = visible == 1
	rec.IsActive = active == 1
	rec.LastLoginAt = fromNullMillis(lastLogin)
	return rec, nil
}
