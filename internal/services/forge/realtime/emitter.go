package realtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/andysmith26/forge/internal/services/forge/domain/event"
	"github.com/andysmith26/forge/internal/services/forge/storage"
	"github.com/go-redis/redis/v8"
)

// publisher is the subset of a redis client used for fan-out.
type publisher interface {
	Publish(ctx context.Context, channel string, message interface{}) *redis.IntCmd
}

// RedisEmitter publishes event messages with Redis PUBLISH.
type RedisEmitter struct {
	client publisher
	prefix string
}

// NewRedisEmitter publishes on prefix+channel name. A nil client is rejected.
func NewRedisEmitter(client publisher, prefix string) (*RedisEmitter, error) {
	if client == nil {
		return nil, errors.New("redis client is required")
	}
	return &RedisEmitter{client: client, prefix: prefix}, nil
}

// Emit publishes the event on every channel it maps to.
func (e *RedisEmitter) Emit(ctx context.Context, evt event.Event) error {
	var errs []error
	for _, ch := range ChannelsFor(evt) {
		body, err := json.Marshal(newMessage(ch, evt))
		if err != nil {
			return fmt.Errorf("encode realtime message: %w", err)
		}
		if err := e.client.Publish(ctx, e.prefix+ch.Name, body).Err(); err != nil {
			errs = append(errs, fmt.Errorf("publish %s: %w", ch.Name, err))
		}
	}
	return errors.Join(errs...)
}

// NotificationEmitter writes one notification row per channel for polling
// clients.
type NotificationEmitter struct {
	store storage.NotificationStore
}

// NewNotificationEmitter writes rows into store.
func NewNotificationEmitter(store storage.NotificationStore) *NotificationEmitter {
	return &NotificationEmitter{store: store}
}

// Emit stores a notification for every channel the event maps to.
func (e *NotificationEmitter) Emit(ctx context.Context, evt event.Event) error {
	var errs []error
	for _, ch := range ChannelsFor(evt) {
		if err := e.store.PutNotification(ctx, storage.Notification{
			Channel:    ch.Name,
			EventType:  evt.Type,
			EntityType: evt.EntityType,
			EntityID:   evt.EntityID,
			ScopeID:    ch.ScopeID,
			CreatedAt:  evt.CreatedAt,
		}); err != nil {
			errs = append(errs, fmt.Errorf("notify %s: %w", ch.Name, err))
		}
	}
	return errors.Join(errs...)
}

// MultiEmitter hands every event to each emitter in order, joining failures.
type MultiEmitter []storage.EventEmitter

// Emit calls every emitter even when an earlier one fails.
func (m MultiEmitter) Emit(ctx context.Context, evt event.Event) error {
	var errs []error
	for _, e := range m {
		if e == nil {
			continue
		}
		if err := e.Emit(ctx, evt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
