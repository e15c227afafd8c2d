// internal/events/service.go
package events

import (
	"context"
	"time"

	"github.com/google/uuid"
)

// Store persists Event rows and answers the due-work queries used by sweeps.
type Store interface {
	Create(ctx context.Context, event *Event) error
	GetByID(ctx context.Context, id uuid.UUID) (*Event, error)
	// GetActive returns the most recently started active event whose window
	// contains now, or nil.
	GetActive(ctx context.Context, now time.Time) (*Event, error)
	ListActive(ctx context.Context, now time.Time) ([]*Event, error)
	DueToStart(ctx context.Context, now time.Time) ([]*Event, error)
	DueToEnd(ctx context.Context, now time.Time) ([]*Event, error)
	LatestScheduledOrActive(ctx context.Context) (*Event, error)
	// Cancel returns false when the event is already completed or cancelled.
	Cancel(ctx context.Context, id uuid.UUID, actor, reason string) (bool, error)
	MarkActive(ctx context.Context, id uuid.UUID) (bool, error)
	MarkCompleted(ctx context.Context, id uuid.UUID) (bool, error)
}

// CreateEventRequest carries the admin inputs for a custom event window.
type CreateEventRequest struct {
	Kind      Kind      `json:"kind"`
	Title     string    `json:"title"`
	StartsAt  time.Time `json:"starts_at"`
	EndsAt    time.Time `json:"ends_at"`
	Modifier  float64   `json:"modifier"`
	CreatedBy string    `json:"created_by"`
}

// Service defines the interface for administrative event operations.
type Service interface {
	CreateEvent(ctx context.Context, req CreateEventRequest) (*Event, error)
	CreateWeekendEvent(ctx context.Context, creator string, multiplier float64) (*Event, error)
	Get(ctx context.Context, id uuid.UUID) (*Event, error)
	Active(ctx context.Context) (*Event, error)
}
