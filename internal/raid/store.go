// internal/raid/store.go
package raid

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"guildpulse/internal/events"
)

// PostgresRepository stores contributions and keeps events.current_points in step.
type PostgresRepository struct {
	db     *sql.DB
	tracer trace.Tracer
}

func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{
		db:     db,
		tracer: otel.Tracer("guildpulse/raid"),
	}
}

// AppendContribution increments the running total in place and inserts the
// row in the same transaction. The status filter on the update makes the
// "event is accepting points" check part of the same atomic statement.
func (r *PostgresRepository) AppendContribution(ctx context.Context, c *Contribution, statuses ...events.Status) error {
	ctx, span := r.tracer.Start(ctx, "raid.append_contribution",
		trace.WithAttributes(
			attribute.String("event.id", c.EventID.String()),
			attribute.String("contribution.category", c.CategoryTag),
			attribute.Int64("contribution.points", c.Points),
		),
	)
	defer span.End()

	allowed := make([]string, 0, len(statuses))
	for _, st := range statuses {
		allowed = append(allowed, string(st))
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	err = tx.QueryRowContext(ctx, `
		UPDATE events
		SET current_points = current_points + $2, updated_at = NOW()
		WHERE id = $1 AND status = ANY($3)
		RETURNING current_points
	`, c.EventID, c.Points, pq.Array(allowed)).Scan(&c.RunningTotal)
	if errors.Is(err, sql.ErrNoRows) {
		return ErrEventNotActive
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "22003" {
		return fmt.Errorf("%w: running total overflows", ErrInvalidValue)
	}
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("increment running total: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO contributions (event_id, actor_id, category_tag, raw_value, points, reason, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id
	`, c.EventID, c.ActorID, c.CategoryTag, c.RawValue, c.Points, c.Reason, c.CreatedAt).Scan(&c.ID)
	if err != nil {
		span.RecordError(err)
		return fmt.Errorf("insert contribution: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}

	span.SetAttributes(attribute.Int64("event.current_points", c.RunningTotal))
	return nil
}

func (r *PostgresRepository) TagTotals(ctx context.Context, eventID uuid.UUID) ([]TagTotal, error) {
	ctx, span := r.tracer.Start(ctx, "raid.tag_totals",
		trace.WithAttributes(attribute.String("event.id", eventID.String())),
	)
	defer span.End()

	rows, err := r.db.QueryContext(ctx, `
		SELECT actor_id, category_tag, SUM(points)
		FROM contributions
		WHERE event_id = $1
		GROUP BY actor_id, category_tag
		ORDER BY actor_id, category_tag
	`, eventID)
	if err != nil {
		return nil, fmt.Errorf("query tag totals: %w", err)
	}
	defer rows.Close()

	var out []TagTotal
	for rows.Next() {
		var t TagTotal
		if err := rows.Scan(&t.ActorID, &t.CategoryTag, &t.Points); err != nil {
			return nil, fmt.Errorf("scan tag total: %w", err)
		}
		out = append(out, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tag totals: %w", err)
	}
	return out, nil
}

// TopContributors ranks actors by organic points; manual adjustments are
// attributed to admins and left out.
func (r *PostgresRepository) TopContributors(ctx context.Context, eventID uuid.UUID, limit int) ([]Contributor, error) {
	ctx, span := r.tracer.Start(ctx, "raid.top_contributors",
		trace.WithAttributes(
			attribute.String("event.id", eventID.String()),
			attribute.Int("limit", limit),
		),
	)
	defer span.End()

	rows, err := r.db.QueryContext(ctx, `
		SELECT actor_id, SUM(points) AS total
		FROM contributions
		WHERE event_id = $1 AND category_tag NOT LIKE 'manual:%'
		GROUP BY actor_id
		ORDER BY total DESC, actor_id ASC
		LIMIT $2
	`, eventID, limit)
	if err != nil {
		return nil, fmt.Errorf("query top contributors: %w", err)
	}
	defer rows.Close()

	out := []Contributor{}
	for rows.Next() {
		var c Contributor
		if err := rows.Scan(&c.ActorID, &c.Points); err != nil {
			return nil, fmt.Errorf("scan contributor: %w", err)
		}
		out = append(out, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate contributors: %w", err)
	}
	return out, nil
}
