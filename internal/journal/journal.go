// internal/journal/journal.go
package journal

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Action names a recorded lifecycle or admin action.
type Action string

const (
	ActionCreated   Action = "created"
	ActionActivated Action = "activated"
	ActionCompleted Action = "completed"
	ActionCancelled Action = "cancelled"
	ActionAdjusted  Action = "adjusted"
)

// Entry is one append-only audit record for an event.
type Entry struct {
	ID        int64                  `json:"id"`
	EventID   uuid.UUID              `json:"event_id"`
	Action    Action                 `json:"action"`
	Actor     string                 `json:"actor"`
	Detail    map[string]interface{} `json:"detail,omitempty"`
	CreatedAt time.Time              `json:"created_at"`
}

// Journal records what happened to events and who did it.
type Journal interface {
	Append(ctx context.Context, entry Entry) error
	List(ctx context.Context, eventID uuid.UUID) ([]Entry, error)
}

// Store is the Postgres journal.
type Store struct {
	db     *sql.DB
	tracer trace.Tracer
}

// NewStore creates a journal backed by the event_journal table.
func NewStore(db *sql.DB) *Store {
	return &Store{
		db:     db,
		tracer: otel.Tracer("guildpulse/journal"),
	}
}

// Append inserts a single entry. Entries are never updated.
func (s *Store) Append(ctx context.Context, entry Entry) error {
	ctx, span := s.tracer.Start(ctx, "journal.append",
		trace.WithAttributes(
			attribute.String("event.id", entry.EventID.String()),
			attribute.String("journal.action", string(entry.Action)),
		),
	)
	defer span.End()

	detail, err := json.Marshal(entry.Detail)
	if err != nil {
		return fmt.Errorf("marshal journal detail: %w", err)
	}
	createdAt := entry.CreatedAt
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO event_journal (event_id, action, actor, detail, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, entry.EventID, string(entry.Action), entry.Actor, detail, createdAt)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("insert journal entry: %w", err)
	}
	return nil
}

// List returns the entries for an event in insertion order.
func (s *Store) List(ctx context.Context, eventID uuid.UUID) ([]Entry, error) {
	ctx, span := s.tracer.Start(ctx, "journal.list",
		trace.WithAttributes(attribute.String("event.id", eventID.String())),
	)
	defer span.End()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, event_id, action, actor, detail, created_at
		FROM event_journal
		WHERE event_id = $1
		ORDER BY id ASC
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query journal: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var entry Entry
		var action string
		var detail []byte
		if err := rows.Scan(&entry.ID, &entry.EventID, &action, &entry.Actor, &detail, &entry.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan journal entry: %w", err)
		}
		entry.Action = Action(action)
		if len(detail) > 0 {
			if err := json.Unmarshal(detail, &entry.Detail); err != nil {
				return nil, fmt.Errorf("decode journal detail: %w", err)
			}
		}
		entries = append(entries, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate journal: %w", err)
	}

	span.SetAttributes(attribute.Int("journal.entries", len(entries)))
	return entries, nil
}
