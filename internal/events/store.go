// internal/events/store.go
package events

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

const eventColumns = `
	id, kind, title, starts_at, ends_at, status, modifier, created_by, current_points,
	COALESCE(cancelled_by, ''), COALESCE(cancel_reason, ''), created_at, updated_at`

// PostgresStore implements Store on the events table.
type PostgresStore struct {
	db     *sql.DB
	tracer trace.Tracer
}

// NewPostgresStore creates a Store backed by Postgres.
func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{
		db:     db,
		tracer: otel.Tracer("guildpulse/events"),
	}
}

func (s *PostgresStore) Create(ctx context.Context, event *Event) error {
	ctx, span := s.tracer.Start(ctx, "events.create",
		trace.WithAttributes(
			attribute.String("event.id", event.ID.String()),
			attribute.String("event.kind", string(event.Kind)),
		),
	)
	defer span.End()

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO events (id, kind, title, starts_at, ends_at, status, modifier, created_by, current_points, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`, event.ID, string(event.Kind), event.Title, event.StartsAt, event.EndsAt, string(event.Status),
		event.Modifier, event.CreatedBy, event.CurrentPoints, event.CreatedAt, event.UpdatedAt)
	if err != nil {
		span.RecordError(err)
		var pqErr *pq.Error
		if errors.As(err, &pqErr) {
			if mapped := checkViolation(pqErr); mapped != nil {
				return mapped
			}
		}
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// checkViolation maps a CHECK failure on the events table to the domain
// error for that rule. It returns nil for anything it does not recognise.
func checkViolation(pqErr *pq.Error) error {
	if pqErr.Code != "23514" {
		return nil
	}
	switch pqErr.Constraint {
	case "events_window_check":
		return fmt.Errorf("%w: %s", ErrInvalidWindow, pqErr.Constraint)
	case "events_modifier_check":
		return fmt.Errorf("%w: %s", ErrInvalidModifier, pqErr.Constraint)
	case "events_kind_check":
		return fmt.Errorf("%w: %s", ErrInvalidKind, pqErr.Constraint)
	default:
		return nil
	}
}

func (s *PostgresStore) GetByID(ctx context.Context, id uuid.UUID) (*Event, error) {
	ctx, span := s.tracer.Start(ctx, "events.get",
		trace.WithAttributes(attribute.String("event.id", id.String())),
	)
	defer span.End()

	event, err := scanEvent(s.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrEventNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("get event: %w", err)
	}
	return event, nil
}

func (s *PostgresStore) GetActive(ctx context.Context, now time.Time) (*Event, error) {
	ctx, span := s.tracer.Start(ctx, "events.get_active")
	defer span.End()

	event, err := scanEvent(s.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE status = $1 AND starts_at <= $2 AND ends_at > $2
		ORDER BY starts_at DESC, created_at DESC
		LIMIT 1
	`, string(StatusActive), now))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get active event: %w", err)
	}
	return event, nil
}

func (s *PostgresStore) ListActive(ctx context.Context, now time.Time) ([]*Event, error) {
	ctx, span := s.tracer.Start(ctx, "events.list_active")
	defer span.End()

	return s.query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE status = $1 AND starts_at <= $2 AND ends_at > $2
		ORDER BY starts_at ASC, id ASC
	`, string(StatusActive), now)
}

func (s *PostgresStore) DueToStart(ctx context.Context, now time.Time) ([]*Event, error) {
	ctx, span := s.tracer.Start(ctx, "events.due_to_start")
	defer span.End()

	return s.query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE status = $1 AND starts_at <= $2
		ORDER BY starts_at ASC, id ASC
	`, string(StatusScheduled), now)
}

func (s *PostgresStore) DueToEnd(ctx context.Context, now time.Time) ([]*Event, error) {
	ctx, span := s.tracer.Start(ctx, "events.due_to_end")
	defer span.End()

	return s.query(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE status = $1 AND ends_at <= $2
		ORDER BY ends_at ASC, id ASC
	`, string(StatusActive), now)
}

func (s *PostgresStore) LatestScheduledOrActive(ctx context.Context) (*Event, error) {
	ctx, span := s.tracer.Start(ctx, "events.latest_open")
	defer span.End()

	event, err := scanEvent(s.db.QueryRowContext(ctx, `
		SELECT `+eventColumns+`
		FROM events
		WHERE status = ANY($1)
		ORDER BY created_at DESC, id DESC
		LIMIT 1
	`, pq.Array([]string{string(StatusScheduled), string(StatusActive)})))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get latest open event: %w", err)
	}
	return event, nil
}

func (s *PostgresStore) Cancel(ctx context.Context, id uuid.UUID, actor, reason string) (bool, error) {
	ctx, span := s.tracer.Start(ctx, "events.cancel",
		trace.WithAttributes(attribute.String("event.id", id.String())),
	)
	defer span.End()

	res, err := s.db.ExecContext(ctx, `
		UPDATE events
		SET status = $2, cancelled_by = $3, cancel_reason = $4, updated_at = NOW()
		WHERE id = $1 AND status = ANY($5)
	`, id, string(StatusCancelled), actor, reason,
		pq.Array([]string{string(StatusScheduled), string(StatusActive)}))
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("cancel event: %w", err)
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("cancel event rows: %w", err)
	}
	if changed == 0 {
		if _, err := s.GetByID(ctx, id); err != nil {
			return false, err
		}
		return false, nil
	}
	return true, nil
}

func (s *PostgresStore) MarkActive(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.transition(ctx, "events.mark_active", id, StatusScheduled, StatusActive)
}

func (s *PostgresStore) MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error) {
	return s.transition(ctx, "events.mark_completed", id, StatusActive, StatusCompleted)
}

// transition moves an event from one status to the next. A row already in the
// target status is left alone, so repeated calls are no-ops.
func (s *PostgresStore) transition(ctx context.Context, op string, id uuid.UUID, from, to Status) (bool, error) {
	ctx, span := s.tracer.Start(ctx, op,
		trace.WithAttributes(
			attribute.String("event.id", id.String()),
			attribute.String("status.from", string(from)),
			attribute.String("status.to", string(to)),
		),
	)
	defer span.End()

	res, err := s.db.ExecContext(ctx, `
		UPDATE events
		SET status = $2, updated_at = NOW()
		WHERE id = $1 AND status = $3
	`, id, string(to), string(from))
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("mark event %s: %w", to, err)
	}
	changed, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("mark event %s rows: %w", to, err)
	}
	span.SetAttributes(attribute.Bool("status.changed", changed > 0))
	return changed > 0, nil
}

func (s *PostgresStore) query(ctx context.Context, query string, args ...interface{}) ([]*Event, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var out []*Event
	for rows.Next() {
		event, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		out = append(out, event)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return out, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanEvent(row rowScanner) (*Event, error) {
	var (
		event  Event
		kind   string
		status string
	)
	err := row.Scan(
		&event.ID,
		&kind,
		&event.Title,
		&event.StartsAt,
		&event.EndsAt,
		&status,
		&event.Modifier,
		&event.CreatedBy,
		&event.CurrentPoints,
		&event.CancelledBy,
		&event.CancelReason,
		&event.CreatedAt,
		&event.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	event.Kind = Kind(kind)
	event.Status = Status(status)
	event.StartsAt = event.StartsAt.UTC()
	event.EndsAt = event.EndsAt.UTC()
	return &event, nil
}
