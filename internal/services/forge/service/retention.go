package service

import (
	"context"
	"time"

	"go.uber.org/zap"
)

const (
	// EventRetention is how long events are kept in the log.
	EventRetention = 30 * 24 * time.Hour
	// NotificationRetention is how long realtime notification rows are kept.
	NotificationRetention = 24 * time.Hour
)

// RetentionResult counts the rows removed by RunRetention.
type RetentionResult struct {
	EventsDeleted        int64
	NotificationsDeleted int64
	PinSessionsDeleted   int64
}

// RunRetention removes old events, old notifications and expired PIN
// sessions. Read tables keep their rows.
func (s *Service) RunRetention(ctx context.Context) (out RetentionResult, err error) {
	const op = "RunRetention"
	ctx, end := s.begin(ctx, op)
	defer end(&err)

	now := s.now()
	if out.EventsDeleted, err = s.stores.Events.DeleteOlderThan(ctx, now.Add(-EventRetention)); err != nil {
		return out, s.internal(op, err)
	}
	if out.NotificationsDeleted, err = s.stores.Notifications.DeleteNotificationsOlderThan(ctx, now.Add(-NotificationRetention)); err != nil {
		return out, s.internal(op, err)
	}
	if out.PinSessionsDeleted, err = s.stores.Pins.DeleteExpiredPinSessions(ctx, now); err != nil {
		return out, s.internal(op, err)
	}
	s.logger.Info("retention complete",
		zap.Int64("events_deleted", out.EventsDeleted),
		zap.Int64("notifications_deleted", out.NotificationsDeleted),
		zap.Int64("pin_sessions_deleted", out.PinSessionsDeleted),
	)
	return out, nil
}
