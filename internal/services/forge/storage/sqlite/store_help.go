package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/andysmith26/forge/internal/services/forge/domain/help"
	"github.com/andysmith26/forge/internal/services/forge/storage"
)

const (
	categoryColumns = "id, classroom_id, name, description, ninja_domain_id, display_order, is_active"
	requestColumns  = "id, classroom_id, session_id, requester_id, category_id, description, what_i_tried, urgency, status, claimed_by_id, claimed_at, resolved_at, cancelled_at, resolution_notes, cancellation_reason, created_at"
)

var openStatuses = []any{string(help.StatusPending), string(help.StatusClaimed)}

// ListCategories returns active categories by display order.
func (s *Store) ListCategories(ctx context.Context, classroomID string) ([]help.CategoryRecord, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx,
		"SELECT "+categoryColumns+" FROM help_categories WHERE classroom_id = ? AND is_active = 1 ORDER BY display_order, name_key",
		classroomID)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var out []help.CategoryRecord
	for rows.Next() {
		rec, err := scanCategory(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// GetCategory returns a category by id.
func (s *Store) GetCategory(ctx context.Context, id string) (help.CategoryRecord, error) {
	if err := s.ready(ctx); err != nil {
		return help.CategoryRecord{}, err
	}
	row := s.q.QueryRowContext(ctx, "SELECT "+categoryColumns+" FROM help_categories WHERE id = ?", id)
	rec, err := scanCategory(row.Scan)
	if err != nil {
		return help.CategoryRecord{}, notFound(err, "category")
	}
	return rec, nil
}

// FindCategoryByName matches an active category by folded name.
func (s *Store) FindCategoryByName(ctx context.Context, classroomID, name string) (help.CategoryRecord, error) {
	if err := s.ready(ctx); err != nil {
		return help.CategoryRecord{}, err
	}
	row := s.q.QueryRowContext(ctx,
		"SELECT "+categoryColumns+" FROM help_categories WHERE classroom_id = ? AND name_key = ? AND is_active = 1 LIMIT 1",
		classroomID, storage.NameKey(name))
	rec, err := scanCategory(row.Scan)
	if err != nil {
		return help.CategoryRecord{}, notFound(err, "category")
	}
	return rec, nil
}

// NextCategoryOrder returns one past the highest display order in use.
func (s *Store) NextCategoryOrder(ctx context.Context, classroomID string) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var next int
	if err := s.q.QueryRowContext(ctx,
		"SELECT COALESCE(MAX(display_order) + 1, 0) FROM help_categories WHERE classroom_id = ?",
		classroomID).Scan(&next); err != nil {
		return 0, fmt.Errorf("next category order: %w", err)
	}
	return next, nil
}

// PutCategory inserts or updates a category.
func (s *Store) PutCategory(ctx context.Context, rec help.CategoryRecord) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	_, err := s.q.ExecContext(ctx, `INSERT INTO help_categories (id, classroom_id, name, name_key, description, ninja_domain_id, display_order, is_active)
VALUES (?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    name = excluded.name,
    name_key = excluded.name_key,
    description = excluded.description,
    ninja_domain_id = excluded.ninja_domain_id,
    display_order = excluded.display_order,
    is_active = excluded.is_active`,
		rec.ID, rec.ClassroomID, rec.Name, storage.NameKey(rec.Name), rec.Description,
		rec.NinjaDomainID, rec.DisplayOrder, boolToInt(rec.IsActive))
	if err != nil {
		return fmt.Errorf("put category: %w", err)
	}
	return nil
}

func scanCategory(scan scanner) (help.CategoryRecord, error) {
	var (
		rec    help.CategoryRecord
		active int
	)
	if err := scan(&rec.ID, &rec.ClassroomID, &rec.Name, &rec.Description, &rec.NinjaDomainID, &rec.DisplayOrder, &active); err != nil {
		return help.CategoryRecord{}, err
	}
	rec.IsActive = active == 1
	return rec, nil
}

// GetHelpRequest returns a help request by id.
func (s *Store) GetHelpRequest(ctx context.Context, id string) (help.Record, error) {
	row := s.q.QueryRowContext(ctx, "SELECT "+requestColumns+" FROM help_requests WHERE id = ?", id)
	rec, err := scanHelpRequest(row.Scan)
	if err != nil {
		return help.Record{}, notFound(err, "help request")
	}
	return rec, nil
}

// FindOpenHelpRequest returns the requester's pending or claimed request.
func (s *Store) FindOpenHelpRequest(ctx context.Context, sessionID, requesterID string) (help.Record, error) {
	row := s.q.QueryRowContext(ctx,
		"SELECT "+requestColumns+" FROM help_requests WHERE session_id = ? AND requester_id = ? AND status IN (?, ?) ORDER BY created_at LIMIT 1",
		sessionID, requesterID, openStatuses[0], openStatuses[1])
	rec, err := scanHelpRequest(row.Scan)
	if err != nil {
		return help.Record{}, notFound(err, "open help request")
	}
	return rec, nil
}

// PutHelpRequest inserts or replaces a help request row.
func (s *Store) PutHelpRequest(ctx context.Context, rec help.Record) error {
	_, err := s.q.ExecContext(ctx, `INSERT INTO help_requests (`+requestColumns+`)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO UPDATE SET
    status = excluded.status,
    claimed_by_id = excluded.claimed_by_id,
    claimed_at = excluded.claimed_at,
    resolved_at = excluded.resolved_at,
    cancelled_at = excluded.cancelled_at,
    resolution_notes = excluded.resolution_notes,
    cancellation_reason = excluded.cancellation_reason`,
		rec.ID, rec.ClassroomID, rec.SessionID, rec.RequesterID, rec.CategoryID, rec.Description, rec.WhatITried,
		string(rec.Urgency), string(rec.Status), rec.ClaimedByID,
		toNullMillis(rec.ClaimedAt), toNullMillis(rec.ResolvedAt), toNullMillis(rec.CancelledAt),
		rec.ResolutionNotes, rec.CancellationReason, toMillis(rec.CreatedAt))
	if err != nil {
		return fmt.Errorf("put help request: %w", err)
	}
	return nil
}

// ClearHelpRequests deletes every help request row.
func (s *Store) ClearHelpRequests(ctx context.Context) error {
	if _, err := s.q.ExecContext(ctx, "DELETE FROM help_requests"); err != nil {
		return fmt.Errorf("clear help requests: %w", err)
	}
	return nil
}

// ListOpenHelpRequests returns open requests oldest first.
func (s *Store) ListOpenHelpRequests(ctx context.Context, sessionID, requesterID string) ([]help.Record, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	query := "SELECT " + requestColumns + " FROM help_requests WHERE session_id = ? AND status IN (?, ?)"
	args := []any{sessionID, openStatuses[0], openStatuses[1]}
	if requesterID != "" {
		query += " AND requester_id = ?"
		args = append(args, requesterID)
	}
	query += " ORDER BY created_at, id"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list open help requests: %w", err)
	}
	defer rows.Close()

	var out []help.Record
	for rows.Next() {
		rec, err := scanHelpRequest(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan help request: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// ListQueue returns open requests with requester, category and claimer
// names, oldest first.
func (s *Store) ListQueue(ctx context.Context, sessionID string) ([]storage.QueueItem, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx, `SELECT
    hr.id, hr.classroom_id, hr.session_id, hr.requester_id, hr.category_id, hr.description, hr.what_i_tried,
    hr.urgency, hr.status, hr.claimed_by_id, hr.claimed_at, hr.resolved_at, hr.cancelled_at,
    hr.resolution_notes, hr.cancellation_reason, hr.created_at,
    COALESCE(requester.display_name, ''), COALESCE(c.name, ''), COALESCE(claimer.display_name, '')
FROM help_requests hr
LEFT JOIN people requester ON requester.id = hr.requester_id
LEFT JOIN help_categories c ON c.id = hr.category_id
LEFT JOIN people claimer ON claimer.id = hr.claimed_by_id
WHERE hr.session_id = ? AND hr.status IN (?, ?)
ORDER BY hr.created_at, hr.id`, sessionID, openStatuses[0], openStatuses[1])
	if err != nil {
		return nil, fmt.Errorf("list queue: %w", err)
	}
	defer rows.Close()

	var out []storage.QueueItem
	for rows.Next() {
		var item storage.QueueItem
		rec, err := scanHelpRequest(func(dest ...any) error {
			return rows.Scan(append(dest, &item.RequesterName, &item.CategoryName, &item.ClaimedByName)...)
		})
		if err != nil {
			return nil, fmt.Errorf("scan queue item: %w", err)
		}
		item.Request = rec
		out = append(out, item)
	}
	return out, rows.Err()
}

// CountPendingBefore counts pending requests in a classroom created before
// the given time.
func (s *Store) CountPendingBefore(ctx context.Context, classroomID string, before time.Time) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var count int
	if err := s.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM help_requests WHERE classroom_id = ? AND status = ? AND created_at < ?",
		classroomID, string(help.StatusPending), toMillis(before)).Scan(&count); err != nil {
		return 0, fmt.Errorf("count pending help requests: %w", err)
	}
	return count, nil
}

func scanHelpRequest(scan scanner) (help.Record, error) {
	var (
		rec                                help.Record
		urgency, status                    string
		claimedAt, resolvedAt, cancelledAt sql.NullInt64
		createdAt                          int64
	)
	if err := scan(&rec.ID, &rec.ClassroomID, &rec.SessionID, &rec.RequesterID, &rec.CategoryID,
		&rec.Description, &rec.WhatITried, &urgency, &status, &rec.ClaimedByID,
		&claimedAt, &resolvedAt, &cancelledAt, &rec.ResolutionNotes, &rec.CancellationReason, &createdAt); err != nil {
		return help.Record{}, err
	}
	rec.Urgency = help.Urgency(urgency)
	rec.Status = help.Status(status)
	rec.ClaimedAt = fromNullMillis(claimedAt)
	rec.ResolvedAt = fromNullMillis(resolvedAt)
	rec.CancelledAt = fromNullMillis(cancelledAt)
	rec.CreatedAt = fromMillis(createdAt)
	return rec, nil
}
