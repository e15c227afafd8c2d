// internal/raid/service.go
package raid

import (
	"context"

	"github.com/google/uuid"

	"guildpulse/internal/events"
)

// Service defines the interface for raid point aggregation.
type Service interface {
	RecordContribution(ctx context.Context, eventID uuid.UUID, actorID, categoryTag string, rawValue, points int64) (*Contribution, error)
	RecordActivity(ctx context.Context, actorID, category string, rawValue int64) (*Contribution, error)
	RecordManualAdjustment(ctx context.Context, eventID uuid.UUID, points int64, faction, actor, reason string) (*Contribution, error)
	FactionTotals(ctx context.Context, eventID uuid.UUID) (FactionTotals, error)
	TopContributors(ctx context.Context, eventID uuid.UUID, limit int) ([]Contributor, error)
}

// Repository persists contributions. AppendContribution must add the row and
// bump the event's current_points in one atomic step, and only while the
// event is in one of the given statuses; otherwise it returns ErrEventNotActive.
type Repository interface {
	AppendContribution(ctx context.Context, c *Contribution, statuses ...events.Status) error
	TagTotals(ctx context.Context, eventID uuid.UUID) ([]TagTotal, error)
	TopContributors(ctx context.Context, eventID uuid.UUID, limit int) ([]Contributor, error)
}

// FactionResolver looks up an actor's faction. An empty result means none.
type FactionResolver interface {
	Faction(ctx context.Context, actorID string) (string, error)
}

// StaticResolver resolves factions from a fixed actor map.
type StaticResolver map[string]string

func (r StaticResolver) Faction(_ context.Context, actorID string) (string, error) {
	return r[actorID], nil
}
