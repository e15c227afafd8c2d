// internal/lifecycle/domain.go
package lifecycle

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"guildpulse/internal/events"
)

var (
	ErrNothingToCancel = errors.New("nothing to cancel")
	ErrInvalidConfig   = errors.New("invalid lifecycle configuration")
)

// NoticeKind names the announcement being broadcast.
type NoticeKind string

const (
	NoticeStart     NoticeKind = "start"
	NoticeEnd       NoticeKind = "end"
	NoticeReminder  NoticeKind = "reminder"
	NoticeGoal      NoticeKind = "goal"
	NoticeCancelled NoticeKind = "cancelled"
)

// Notice is what the manager hands to an Announcer. Rendering belongs to the
// announcer; the manager only decides when a notice goes out.
type Notice struct {
	Kind      NoticeKind    `json:"kind"`
	Event     events.Event  `json:"event"`
	SlotKey   string        `json:"slot_key,omitempty"`
	Boundary  time.Time     `json:"boundary,omitempty"`
	Remaining time.Duration `json:"remaining,omitempty"`
	Actor     string        `json:"actor,omitempty"`
	Reason    string        `json:"reason,omitempty"`
}

// Config controls sweep timing.
type Config struct {
	// TickInterval is the longest gap between sweeps, as reported by
	// TickInterval for the runner's schedule.
	TickInterval      time.Duration
	ReminderPeriod    time.Duration
	ReminderTolerance time.Duration
	// Destinations maps an event kind to the channel its notices go to.
	Destinations map[events.Kind]string
}

// Validate rejects settings that would let a reminder boundary slip between ticks.
func (c Config) Validate() error {
	if c.TickInterval <= 0 || c.ReminderPeriod <= 0 {
		return fmt.Errorf("%w: tick interval and reminder period must be positive", ErrInvalidConfig)
	}
	if c.ReminderTolerance < c.TickInterval {
		return fmt.Errorf("%w: reminder tolerance %s is shorter than tick interval %s",
			ErrInvalidConfig, c.ReminderTolerance, c.TickInterval)
	}
	return nil
}

// SweepReport summarises one sweep.
type SweepReport struct {
	RunID     string      `json:"run_id"`
	Now       time.Time   `json:"now"`
	Started   []uuid.UUID `json:"started"`
	Completed []uuid.UUID `json:"completed"`
	Reminders []string    `json:"reminders"`
	Goals     []uuid.UUID `json:"goals"`
	// Announced counts notices actually broadcast during the sweep.
	Announced int `json:"announced"`
}
