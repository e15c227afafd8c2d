// internal/raid/domain.go
package raid

import (
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
)

var (
	ErrEventNotActive  = errors.New("event is not accepting contributions")
	ErrNoActiveRaid    = errors.New("no active raid")
	ErrInvalidPoints   = errors.New("points must be positive")
	ErrInvalidValue    = errors.New("contribution values must not be negative")
	ErrUnknownFaction  = errors.New("unknown faction")
	ErrUnknownCategory = errors.New("unknown contribution category")
	ErrMissingActor    = errors.New("actor is required")
)

const (
	// Unaffiliated collects points from actors without a resolvable faction.
	Unaffiliated = "unaffiliated"

	manualTagPrefix = "manual:"
)

// Contribution is one append-only quantum of progress toward an event total.
type Contribution struct {
	ID          int64     `json:"id"`
	EventID     uuid.UUID `json:"event_id"`
	ActorID     string    `json:"actor_id"`
	CategoryTag string    `json:"category_tag"`
	RawValue    int64     `json:"raw_value"`
	Points      int64     `json:"points"`
	Reason      string    `json:"reason,omitempty"`
	CreatedAt   time.Time `json:"created_at"`
	// RunningTotal is the event's current_points right after this write.
	RunningTotal int64 `json:"running_total"`
}

// ManualTag returns the category tag used for admin corrections.
func ManualTag(faction string) string {
	return manualTagPrefix + faction
}

// ManualFaction extracts the faction from a manual:<faction> tag.
func ManualFaction(tag string) (string, bool) {
	if !strings.HasPrefix(tag, manualTagPrefix) {
		return "", false
	}
	return strings.TrimPrefix(tag, manualTagPrefix), true
}

// FactionTotals maps faction names, plus Unaffiliated, to point sums.
type FactionTotals map[string]int64

// Contributor is an actor's summed points for one event.
type Contributor struct {
	ActorID string `json:"actor_id"`
	Points  int64  `json:"points"`
}

// TagTotal is the sum of points for one (actor, category tag) pair.
type TagTotal struct {
	ActorID     string
	CategoryTag string
	Points      int64
}
