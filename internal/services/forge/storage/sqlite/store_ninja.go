package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andysmith26/forge/internal/services/forge/domain/ninja"
	"github.com/andysmith26/forge/internal/services/forge/storage"
)

const (
	domainColumns     = "id, classroom_id, name, description, display_order, is_active"
	assignmentColumns = "id, person_id, ninja_domain_id, assigned_by_id, is_active, assigned_at, revoked_at"
)

// ListDomains returns active ninja domains by display order.
func (s *Store) ListDomains(ctx context.Context, classroomID string) ([]ninja.DomainRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+domainColumns+" FROM ninja_domains WHERE classroom_id = ? AND is_active = 1 ORDER BY display_order, name_key",
		classroomID)
	if err != nil {
		return nil, fmt.Errorf("list ninja domains: %w", err)
	}
	defer rows.Close()

	var out []ninja.DomainRecord
	for rows.Next() {
		rec, err := scanDomain(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan ninja domain: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetDomain returns a ninja domain by id.
func (s *Store) GetDomain(ctx context.Context, id string) (ninja.DomainRecord, error) {
	if err := s.ready(ctx); err != nil {
		return ninja.DomainRecord{}, err
	}
	row := s.q.QueryRowContext(ctx, "SELECT "+domainColumns+" FROM ninja_domains WHERE id = ?", id)
	rec, err := scanDomain(row.Scan)
	if err != nil {
		return ninja.DomainRecord{}, notFound(err, "ninja domain")
	}
	return rec, nil
}

// FindDomainByName matches an active domain by folded name.
func (s *Store) FindDomainByName(ctx context.Context, classroomID, name string) (ninja.DomainRecord, error) {
	if err := s.ready(ctx); err != nil {
		return ninja.DomainRecord{}, err
	}
	row := s.q.QueryRowContext(ctx,
		"SELECT "+domainColumns+" FROM ninja_domains WHERE classroom_id = ? AND name_key = ? AND is_active = 1 LIMIT 1",
		classroomID, storage.NameKey(name))
	rec, err := scanDomain(row.Scan)
	if err != nil {
		return ninja.DomainRecord{}, notFound(err, "ninja domain")
	}
	return rec, nil
}

// NextDomainOrder returns one past the highest display order in use.
func (s *Store) NextDomainOrder(ctx context.Context, classroomID string) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var next int
	if err := s.q.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(display_order) + 1, 0) FROM ninja_domains WHERE classroom_id = ?",
		classroomID).Scan(&next); err != nil {
		return 0, fmt.Errorf("next ninja domain order: %w", err)
	}
	return next, nil
}

// PutDomain inserts or updates a ninja domain.
func (s *Store) PutDomain(ctx context.Context, rec ninja.DomainRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.q.ExecContext(ctx, `INSERT INTO ninja_domains (id, classroom_id, name, name_key, description, display_order, is_active)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    name_key = excluded.name_key,
    description = excluded.description,
    display_order = excluded.display_order,
    is_active = excluded.is_active`,
		rec.ID, rec.ClassroomID, rec.Name, storage.NameKey(rec.Name), rec.Description, rec.DisplayOrder, boolToInt(rec.IsActive))
	if err != nil {
		return fmt.Errorf("put ninja domain: %w", err)
	}
	return nil
}

// ArchiveDomain deactivates a domain and revokes its active assignments.
func (s *Store) ArchiveDomain(ctx context.Context, id string, at time.Time) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var revoked int
	err := s.inTx(ctx, "archive ninja domain", func(tx *Store) error {
		res, err := tx.q.ExecContext(ctx, "UPDATE ninja_domains SET is_active = 0 WHERE id = ?", id)
		if err != nil {
			return fmt.Errorf("archive ninja domain: %w", err)
		}
		affected, err := res.RowsAffected()
		if err != nil {
			return fmt.Errorf("archive ninja domain: %w", err)
		}
		if affected == 0 {
			return storage.ErrNotFound
		}
		res, err = tx.q.ExecContext(ctx,
			"UPDATE ninja_assignments SET is_active = 0, revoked_at = ? WHERE ninja_domain_id = ? AND is_active = 1",
			toMillis(at), id)
		if err != nil {
			return fmt.Errorf("revoke ninja assignments: %w", err)
		}
		affected, err = res.RowsAffected()
		if err != nil {
			return fmt.Errorf("revoke ninja assignments: %w", err)
		}
		revoked = int(affected)
		return nil
	})
	return revoked, err
}

func scanDomain(scan scanner) (ninja.DomainRecord, error) {
	var (
		rec    ninja.DomainRecord
		active int
	)
	if err := scan(&rec.ID, &rec.ClassroomID, &rec.Name, &rec.Description, &rec.DisplayOrder, &active); err != nil {
		return ninja.DomainRecord{}, err
	}
	rec.IsActive = active == 1
	return rec, nil
}

// GetAssignment returns the assignment row for a person and domain.
func (s *Store) GetAssignment(ctx context.Context, personID, domainID string) (ninja.AssignmentRecord, error) {
	if err := s.ready(ctx); err != nil {
		return ninja.AssignmentRecord{}, err
	}
	row := s.q.QueryRowContext(ctx,
		"SELECT "+assignmentColumns+" FROM ninja_assignments WHERE person_id = ? AND ninja_domain_id = ?",
		personID, domainID)
	rec, err := scanAssignment(row.Scan)
	if err != nil {
		return ninja.AssignmentRecord{}, notFound(err, "ninja assignment")
	}
	return rec, nil
}

// PutAssignment inserts or updates an assignment.
func (s *Store) PutAssignment(ctx context.Context, rec ninja.AssignmentRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.q.ExecContext(ctx, `INSERT INTO ninja_assignments (`+assignmentColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    assigned_by_id = excluded.assigned_by_id,
    is_active = excluded.is_active,
    assigned_at = excluded.assigned_at,
    revoked_at = excluded.revoked_at`,
		rec.ID, rec.PersonID, rec.NinjaDomainID, rec.AssignedByID, boolToInt(rec.IsActive),
		toMillis(rec.AssignedAt), toNullMillis(rec.RevokedAt))
	if err != nil {
		return fmt.Errorf("put ninja assignment: %w", err)
	}
	return nil
}

const assignmentViewQuery = `SELECT
    a.id, a.person_id, a.ninja_domain_id, a.assigned_by_id, a.is_active, a.assigned_at, a.revoked_at,
    COALESCE(p.display_name, ''), d.name
FROM ninja_assignments a
JOIN ninja_domains d ON d.id = a.ninja_domain_id
LEFT JOIN people p ON p.id = a.person_id
WHERE d.classroom_id = ? AND d.is_active = 1 AND a.is_active = 1`

// ListAssignmentsByClassroom returns active assignments in active domains.
func (s *Store) ListAssignmentsByClassroom(ctx context.Context, classroomID string) ([]storage.AssignmentView, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	return s.listAssignmentViews(ctx, assignmentViewQuery+" ORDER BY d.display_order, p.display_name", classroomID)
}

// ListAssignmentsForPeople returns active assignments held by any of personIDs.
func (s *Store) ListAssignmentsForPeople(ctx context.Context, classroomID string, personIDs []string) ([]storage.AssignmentView, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	if len(personIDs) == 0 {
		return nil, nil
	}
	args := []any{classroomID}
	for _, personID := range personIDs {
		args = append(args, personID)
	}
	query := assignmentViewQuery + " AND a.person_id IN (" + placeholders(len(personIDs)) + ") ORDER BY d.display_order, p.display_name"
	return s.listAssignmentViews(ctx, query, args...)
}

func (s *Store) listAssignmentViews(ctx context.Context, query string, args ...any) ([]storage.AssignmentView, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ninja assignments: %w", err)
	}
	defer rows.Close()

	var out []storage.AssignmentView
	for rows.Next() {
		var view storage.AssignmentView
		rec, err := scanAssignment(func(dest ...any) error {
			return rows.Scan(append(dest, &view.DisplayName, &view.DomainName)...)
		})
		if err != nil {
			return nil, fmt.Errorf("scan ninja assignment: %w", err)
		}
		view.Assignment = rec
		out = append(out, view)
	}
	return out, rows.Err()
}

func scanAssignment(scan scanner) (ninja.AssignmentRecord, error) {
	var (
		rec        ninja.AssignmentRecord
		active     int
		assignedAt int64
		revokedAt  sql.NullInt64
	)
	if err := scan(&rec.ID, &rec.PersonID, &rec.NinjaDomainID, &rec.AssignedByID, &active, &assignedAt, &revokedAt); err != nil {
		return ninja.AssignmentRecord{}, err
	}
	rec.IsActive = active == 1
	rec.AssignedAt = fromMillis(assignedAt)
	rec.RevokedAt = fromNullMillis(revokedAt)
	return rec, nil
}
