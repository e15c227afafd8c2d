// internal/events/implementation.go
package events

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"guildpulse/internal/clock"
	"guildpulse/internal/journal"
)

// service implements the Service interface.
type service struct {
	store   Store
	journal journal.Journal
	clock   clock.Clock
	weekend WeeklyWindow
	log     *zap.Logger
}

// NewService creates a new event service instance.
func NewService(store Store, j journal.Journal, clk clock.Clock, weekend WeeklyWindow, log *zap.Logger) Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &service{
		store:   store,
		journal: j,
		clock:   clk,
		weekend: weekend,
		log:     log.Named("events"),
	}
}

// CreateEvent validates and persists a custom event window.
func (s *service) CreateEvent(ctx context.Context, req CreateEventRequest) (*Event, error) {
	event, err := New(req.Kind, req.Title, req.StartsAt, req.EndsAt, req.Modifier, req.CreatedBy, s.clock.Now())
	if err != nil {
		return nil, err
	}
	if err := s.store.Create(ctx, event); err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}
	s.record(ctx, event)
	return event, nil
}

// CreateWeekendEvent schedules the next occurrence of the configured weekend window.
func (s *service) CreateWeekendEvent(ctx context.Context, creator string, multiplier float64) (*Event, error) {
	start, end := s.weekend.Next(s.clock.Now())
	return s.CreateEvent(ctx, CreateEventRequest{
		Kind:      KindDoubleXP,
		StartsAt:  start,
		EndsAt:    end,
		Modifier:  multiplier,
		CreatedBy: creator,
	})
}

func (s *service) Get(ctx context.Context, id uuid.UUID) (*Event, error) {
	return s.store.GetByID(ctx, id)
}

func (s *service) Active(ctx context.Context) (*Event, error) {
	return s.store.GetActive(ctx, s.clock.Now())
}

func (s *service) record(ctx context.Context, event *Event) {
	s.log.Info("event.created",
		zap.String("event_id", event.ID.String()),
		zap.String("kind", string(event.Kind)),
		zap.Time("starts_at", event.StartsAt),
		zap.Time("ends_at", event.EndsAt),
		zap.Float64("modifier", event.Modifier),
		zap.String("created_by", event.CreatedBy),
	)
	if s.journal == nil {
		return
	}
	err := s.journal.Append(ctx, journal.Entry{
		EventID: event.ID,
		Action:  journal.ActionCreated,
		Actor:   event.CreatedBy,
		Detail: map[string]interface{}{
			"kind":      string(event.Kind),
			"starts_at": event.StartsAt,
			"ends_at":   event.EndsAt,
			"modifier":  event.Modifier,
		},
		CreatedAt: s.clock.Now(),
	})
	if err != nil {
		s.log.Warn("failed to journal event creation", zap.String("event_id", event.ID.String()), zap.Error(err))
	}
}
