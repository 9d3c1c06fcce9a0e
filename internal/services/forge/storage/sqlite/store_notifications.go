package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andysmith26/forge/internal/services/forge/domain/event"
	"github.com/andysmith26/forge/internal/services/forge/storage"
)

// PutNotification persists one realtime notification row. A missing id is
// generated.
func (s *Store) PutNotification(ctx context.Context, n storage.Notification) error {
	if err := s.ready(ctx); err != nil {
		return err
	}
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
	_, err := s.q.ExecContext(ctx, `INSERT INTO notifications (id, channel, event_type, entity_type, entity_id, scope_id, created_at)
VALUES (?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(id) DO NOTHING`,
		n.ID, n.Channel, string(n.EventType), string(n.EntityType), n.EntityID, n.ScopeID, toMillis(n.CreatedAt))
	if err != nil {
		return fmt.Errorf("put notification: %w", err)
	}
	return nil
}

// ListNotifications returns rows on a channel created after since, oldest first.
func (s *Store) ListNotifications(ctx context.Context, channel string, since time.Time) ([]storage.Notification, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	rows, err := s.q.QueryContext(ctx, `SELECT id, channel, event_type, entity_type, entity_id, scope_id, created_at
FROM notifications
WHERE channel = ? AND created_at > ?
ORDER BY created_at, id`, channel, toMillis(since))
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	defer rows.Close()

	var out []storage.Notification
	for rows.Next() {
		var (
			n                     storage.Notification
			eventType, entityType string
			createdAt             int64
		)
		if err := rows.Scan(&n.ID, &n.Channel, &eventType, &entityType, &n.EntityID, &n.ScopeID, &createdAt); err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		n.EventType = event.Type(eventType)
		n.EntityType = event.EntityType(entityType)
		n.CreatedAt = fromMillis(createdAt)
		out = append(out, n)
	}
	return out, rows.Err()
}

// DeleteNotificationsOlderThan removes rows created before cutoff.
func (s *Store) DeleteNotificationsOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	return s.deleteRows(ctx, "delete notifications", "DELETE FROM notifications WHERE created_at < ?", toMillis(cutoff))
}
