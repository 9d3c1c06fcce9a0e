package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/andysmith26/forge/internal/services/forge/domain/session"
	"github.com/andysmith26/forge/internal/services/forge/storage"
)

const sessionColumns = "id, classroom_id, name, session_type, scheduled_date, start_time, end_time, actual_start_at, actual_end_at, status, created_by_id, created_at"

// CreateSession inserts a scheduled session row.
func (s *Store) CreateSession(ctx context.Context, rec session.Record) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
	if strings.TrimSpace(rec.ID) == "" {
		return fmt.Errorf("session id is required")
	}
	if rec.Status == "" {
		rec.Status = session.StatusScheduled
	}
	_, err := s.q.ExecContext(ctx,
		"INSERT INTO sessions ("+sessionColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
		rec.ID, rec.ClassroomID, rec.Name, string(rec.SessionType),
		toMillis(rec.ScheduledDate), toMillis(rec.StartTime), toMillis(rec.EndTime),
		toNullMillis(rec.ActualStartAt), toNullMillis(rec.ActualEndAt),
		string(rec.Status), rec.CreatedByID, toMillis(rec.CreatedAt),
	)
	if err != nil {
		return fmt.Errorf("create session: %w", err)
	}
	return nil
}

// GetSession returns a session by id.
func (s *Store) GetSession(ctx context.Context, id string) (session.Record, error) {
	if err := s.ready(ctx); err != nil {
		return session.Record{}, err
	}
	row := s.q.QueryRowContext(ctx, "SELECT "+sessionColumns+" FROM sessions WHERE id = ?", id)
	rec, err := scanSession(row.Scan)
	if err != nil {
		return session.Record{}, notFound(err, "session")
	}
	return rec, nil
}

// FindActiveSession returns the classroom's active session.
func (s *Store) FindActiveSession(ctx context.Context, classroomID string) (session.Record, error) {
	if err := s.ready(ctx); err != nil {
		return session.Record{}, err
	}
	row := s.q.QueryRowContext(ctx,
		"SELECT "+sessionColumns+" FROM sessions WHERE classroom_id = ? AND status = ? ORDER BY actual_start_at DESC LIMIT 1",
		classroomID, string(session.StatusActive))
	rec, err := scanSession(row.Scan)
	if err != nil {
		return session.Record{}, notFound(err, "active session")
	}
	return rec, nil
}

// ListSessions returns the classroom's sessions newest first.
func (s *Store) ListSessions(ctx context.Context, classroomID string, filter storage.SessionFilter) ([]session.Record, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	query := "SELECT " + sessionColumns + " FROM sessions WHERE classroom_id = ?"
	args := []any{classroomID}
	if filter.From != nil {
		query += " AND scheduled_date >= ?"
		args = append(args, toMillis(*filter.From))
	}
	if filter.To != nil {
		query += " AND scheduled_date <= ?"
		args = append(args, toMillis(*filter.To))
	}
	query += " ORDER BY scheduled_date DESC, start_time DESC, id"

	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	defer rows.Close()

	var out []session.Record
	for rows.Next() {
		rec, err := scanSession(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

// PutSessionLifecycle writes the projector-owned lifecycle columns.
func (s *Store) PutSessionLifecycle(ctx context.Context, rec session.Record) error {
	res, err := s.q.ExecContext(ctx,
		"UPDATE sessions SET status = ?, actual_start_at = ?, actual_end_at = ? WHERE id = ?",
		string(rec.Status), toNullMillis(rec.ActualStartAt), toNullMillis(rec.ActualEndAt), rec.ID)
	if err != nil {
		return fmt.Errorf("update session lifecycle: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update session lifecycle: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ResetSessionLifecycles returns every session to scheduled.
func (s *Store) ResetSessionLifecycles(ctx context.Context) error {
	if _, err := s.q.ExecContext(ctx,
		"UPDATE sessions SET status = ?, actual_start_at = NULL, actual_end_at = NULL",
		string(session.StatusScheduled)); err != nil {
		return fmt.Errorf("reset session lifecycles: %w", err)
	}
	return nil
}

func scanSession(scan scanner) (session.Record, error) {
	var (
		rec                             session.Record
		sessionType, status             string
		scheduledDate, start, end, made int64
		actualStart, actualEnd          sql.NullInt64
	)
	if err := scan(&rec.ID, &rec.ClassroomID, &rec.Name, &sessionType, &scheduledDate, &start, &end,
		&actualStart, &actualEnd, &status, &rec.CreatedByID, &made); err != nil {
		return session.Record{}, err
	}
	rec.SessionType = session.Type(sessionType)
	rec.Status = session.Status(status)
	rec.ScheduledDate = fromMillis(scheduledDate)
	rec.StartTime = fromMillis(start)
	rec.EndTime = fromMillis(end)
	rec.ActualStartAt = fromNullMillis(actualStart)
	rec.ActualEndAt = fromNullMillis(actualEnd)
	rec.CreatedAt = fromMillis(made)
	return rec, nil
}
