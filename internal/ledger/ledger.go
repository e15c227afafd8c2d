// internal/ledger/ledger.go
package ledger

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

// Well-known slot keys. Periodic reminders use computed keys.
const (
	SlotStart = "start"
	SlotEnd   = "end"
	SlotGoal  = "goal"
)

// Ledger remembers which notification slots already fired for an event.
// A recorded slot must never be announced again.
type Ledger interface {
	HasFired(ctx context.Context, eventID uuid.UUID, slotKey string) (bool, error)
	// RecordFired returns false when the slot was already recorded; that is
	// not an error.
	RecordFired(ctx context.Context, eventID uuid.UUID, slotKey string, firedAt time.Time) (bool, error)
}

// PostgresLedger stores slots in notification_slots, unique on (event_id, slot_key).
type PostgresLedger struct {
	db     *sql.DB
	tracer trace.Tracer
}

func NewPostgresLedger(db *sql.DB) *PostgresLedger {
	return &PostgresLedger{
		db:     db,
		tracer: otel.Tracer("guildpulse/ledger"),
	}
}

func (l *PostgresLedger) HasFired(ctx context.Context, eventID uuid.UUID, slotKey string) (bool, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.has_fired",
		trace.WithAttributes(
			attribute.String("event.id", eventID.String()),
			attribute.String("slot.key", slotKey),
		),
	)
	defer span.End()

	var fired bool
	err := l.db.QueryRowContext(ctx, `
		SELECT EXISTS (
			SELECT 1 FROM notification_slots
			WHERE event_id = $1 AND slot_key = $2
		)
	`, eventID, slotKey).Scan(&fired)
	if err != nil {
		return false, fmt.Errorf("query notification slot: %w", err)
	}
	return fired, nil
}

func (l *PostgresLedger) RecordFired(ctx context.Context, eventID uuid.UUID, slotKey string, firedAt time.Time) (bool, error) {
	ctx, span := l.tracer.Start(ctx, "ledger.record_fired",
		trace.WithAttributes(
			attribute.String("event.id", eventID.String()),
			attribute.String("slot.key", slotKey),
		),
	)
	defer span.End()

	res, err := l.db.ExecContext(ctx, `
		INSERT INTO notification_slots (event_id, slot_key, fired_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (event_id, slot_key) DO NOTHING
	`, eventID, slotKey, firedAt)
	if err != nil {
		span.RecordError(err)
		return false, fmt.Errorf("insert notification slot: %w", err)
	}
	inserted, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("insert notification slot rows: %w", err)
	}
	span.SetAttributes(attribute.Bool("slot.inserted", inserted > 0))
	return inserted > 0, nil
}
