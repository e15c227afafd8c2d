// internal/events/domain.go
package events

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrInvalidWindow   = errors.New("event window must start before it ends")
	ErrInvalidModifier = errors.New("event modifier must be positive")
	ErrInvalidKind     = errors.New("unknown event kind")
	ErrEventNotFound   = errors.New("event not found")
)

// Kind distinguishes the two time-bounded modifiers the bot runs.
type Kind string

const (
	KindDoubleXP Kind = "double_xp"
	KindRaid     Kind = "raid"
)

func (k Kind) Valid() bool {
	return k == KindDoubleXP || k == KindRaid
}

// Status is the lifecycle state of an Event.
type Status string

const (
	StatusScheduled Status = "scheduled"
	StatusActive    Status = "active"
	StatusCompleted Status = "completed"
	StatusCancelled Status = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s Status) Terminal() bool {
	return s == StatusCompleted || s == StatusCancelled
}

// Event is one scheduled time-bounded modifier. Modifier is the XP multiplier
// for double_xp events and the target point total for raids.
type Event struct {
	ID            uuid.UUID `json:"id"`
	Kind          Kind      `json:"kind"`
	Title         string    `json:"title"`
	StartsAt      time.Time `json:"starts_at"`
	EndsAt        time.Time `json:"ends_at"`
	Status        Status    `json:"status"`
	Modifier      float64   `json:"modifier"`
	CreatedBy     string    `json:"created_by"`
	CurrentPoints int64     `json:"current_points"`
	CancelledBy   string    `json:"cancelled_by,omitempty"`
	CancelReason  string    `json:"cancel_reason,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Contains reports whether t falls inside [StartsAt, EndsAt).
func (e *Event) Contains(t time.Time) bool {
	return !t.Before(e.StartsAt) && t.Before(e.EndsAt)
}

// New validates the inputs and builds a scheduled Event.
func New(kind Kind, title string, start, end time.Time, modifier float64, creator string, now time.Time) (*Event, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("%w: %q", ErrInvalidKind, kind)
	}
	if !start.Before(end) {
		return nil, ErrInvalidWindow
	}
	if !(modifier > 0) {
		return nil, ErrInvalidModifier
	}
	title = strings.TrimSpace(title)
	if title == "" {
		title = defaultTitle(kind, modifier)
	}
	return &Event{
		ID:        uuid.New(),
		Kind:      kind,
		Title:     title,
		StartsAt:  start.UTC(),
		EndsAt:    end.UTC(),
		Status:    StatusScheduled,
		Modifier:  modifier,
		CreatedBy: strings.TrimSpace(creator),
		CreatedAt: now.UTC(),
		UpdatedAt: now.UTC(),
	}, nil
}

func defaultTitle(kind Kind, modifier float64) string {
	switch kind {
	case KindDoubleXP:
		return fmt.Sprintf("%gx XP Weekend", modifier)
	case KindRaid:
		return fmt.Sprintf("Raid: %d points", int64(modifier))
	}
	return string(kind)
}
