package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/andysmith26/forge/internal/platform/timeouts"
	"github.com/andysmith26/forge/internal/services/forge/domain/event"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const eventColumns = "id, school_id, classroom_id, session_id, event_type, entity_type, entity_id, actor_id, payload_json, created_at"

// Append validates, stamps and inserts an event, then applies projections
// in the same transaction.
func (s *Store) Append(ctx context.Context, in event.AppendInput) (event.Event, error) {
	if err := s.ready(ctx); err != nil {
		return event.Event{}, err
	}
	ctx, span := s.tracer.Start(ctx, "sqlite.Append", trace.WithAttributes(
		attribute.String("forge.event_type", string(in.Type)),
		attribute.String("forge.entity_id", in.EntityID),
	))
	defer span.End()

	evt, err := s.append(ctx, in)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "append event")
		return event.Event{}, err
	}
	return evt, nil
}

func (s *Store) append(ctx context.Context, in event.AppendInput) (event.Event, error) {
	if err := s.events.ValidateForAppend(in); err != nil {
		return event.Event{}, fmt.Errorf("validate event: %w", err)
	}
	eventID, err := s.newID()
	if err != nil {
		return event.Event{}, fmt.Errorf("generate event id: %w", err)
	}

	var stored event.Event
	err = s.inTx(ctx, "event append", func(tx *Store) error {
		// The clock is read under the write lock so timestamps follow
		// insertion order.
		stored = event.Event{
			ID:          eventID,
			SchoolID:    in.SchoolID,
			ClassroomID: in.ClassroomID,
			SessionID:   in.SessionID,
			Type:        in.Type,
			EntityType:  in.EntityType,
			EntityID:    in.EntityID,
			ActorID:     in.ActorID,
			Payload:     append([]byte(nil), in.Payload...),
			CreatedAt:   s.clock().UTC().Truncate(time.Millisecond),
		}
		if _, err := tx.q.ExecContext(ctx,
			"INSERT INTO events ("+eventColumns+") VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)",
			stored.ID, stored.SchoolID, stored.ClassroomID, stored.SessionID,
			string(stored.Type), string(stored.EntityType), stored.EntityID, stored.ActorID,
			[]byte(stored.Payload), toMillis(stored.CreatedAt),
		); err != nil {
			return fmt.Errorf("insert event: %w", err)
		}
		if err := s.projections.Apply(ctx, tx.projectionStores(), stored); err != nil {
			return fmt.Errorf("project event %s: %w", stored.Type, err)
		}
		return nil
	})
	if err != nil {
		return event.Event{}, err
	}
	return stored, nil
}

// AppendAndEmit appends and then hands the committed event to the emitter.
// Emission errors are logged and never returned.
func (s *Store) AppendAndEmit(ctx context.Context, in event.AppendInput) (event.Event, error) {
	evt, err := s.Append(ctx, in)
	if err != nil {
		return event.Event{}, err
	}
	if s.emitter == nil {
		return evt, nil
	}
	emitCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Emit)
	defer cancel()
	if err := s.emitter.Emit(emitCtx, evt); err != nil {
		s.logger.Warn("emit event",
			zap.String("event_id", evt.ID),
			zap.String("event_type", string(evt.Type)),
			zap.Error(err),
		)
	}
	return evt, nil
}

func filterClause(filter event.Filter) (string, []any) {
	var (
		conds []string
		args  []any
	)
	add := func(column, value string) {
		if value == "" {
			return
		}
		conds = append(conds, column+" = ?")
		args = append(args, value)
	}
	add("school_id", filter.SchoolID)
	add("classroom_id", filter.ClassroomID)
	add("session_id", filter.SessionID)
	add("event_type", string(filter.Type))
	add("entity_type", string(filter.EntityType))
	add("entity_id", filter.EntityID)
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}

// LoadEvents returns matching events in insertion order.
func (s *Store) LoadEvents(ctx context.Context, filter event.Filter) ([]event.Event, error) {
	if err := s.ready(ctx); err != nil {
		return nil, err
	}
	where, args := filterClause(filter)
	return s.loadEvents(ctx, "SELECT "+eventColumns+" FROM events"+where+" ORDER BY seq", args...)
}

func (s *Store) loadEvents(ctx context.Context, query string, args ...any) ([]event.Event, error) {
	rows, err := s.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("load events: %w", err)
	}
	defer rows.Close()

	var events []event.Event
	for rows.Next() {
		evt, err := scanEvent(rows.Scan)
		if err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}

func scanEvent(scan scanner) (event.Event, error) {
	var (
		evt                   event.Event
		eventType, entityType string
		payload               []byte
		createdAt             int64
	)
	if err := scan(&evt.ID, &evt.SchoolID, &evt.ClassroomID, &evt.SessionID, &eventType, &entityType,
		&evt.EntityID, &evt.ActorID, &payload, &createdAt); err != nil {
		return event.Event{}, fmt.Errorf("scan event: %w", err)
	}
	evt.Type = event.Type(eventType)
	evt.EntityType = event.EntityType(entityType)
	evt.Payload = payload
	evt.CreatedAt = fromMillis(createdAt)
	return evt, nil
}

// CountEvents counts matching events.
func (s *Store) CountEvents(ctx context.Context, filter event.Filter) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	where, args := filterClause(filter)
	var count int
	if err := s.q.QueryRowContext(ctx, "SELECT COUNT(*) FROM events"+where, args...).Scan(&count); err != nil {
		return 0, fmt.Errorf("count events: %w", err)
	}
	return count, nil
}

// DeleteOlderThan removes events created before cutoff. Projection rows
// are left in place.
func (s *Store) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	var deleted int64
	err := s.inTx(ctx, "event retention", func(tx *Store) error {
		res, err := tx.q.ExecContext(ctx, "DELETE FROM events WHERE created_at < ?", toMillis(cutoff))
		if err != nil {
			return fmt.Errorf("delete events: %w", err)
		}
		deleted, err = res.RowsAffected()
		return err
	})
	return deleted, err
}

// RebuildProjections clears projector-owned tables and replays the full log
// in one transaction.
func (s *Store) RebuildProjections(ctx context.Context) (int, error) {
	if err := s.ready(ctx); err != nil {
		return 0, err
	}
	ctx, span := s.tracer.Start(ctx, "sqlite.RebuildProjections")
	defer span.End()

	var replayed int
	err := s.inTx(ctx, "projection rebuild", func(tx *Store) error {
		events, err := tx.loadEvents(ctx, "SELECT "+eventColumns+" FROM events ORDER BY seq")
		if err != nil {
			return err
		}
		replayed, err = s.projections.Rebuild(ctx, tx.projectionStores(), events)
		return err
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, "rebuild projections")
		return 0, err
	}
	span.SetAttributes(attribute.Int("forge.replayed", replayed))
	return replayed, nil
}
