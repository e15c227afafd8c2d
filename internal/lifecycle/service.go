// internal/lifecycle/service.go
package lifecycle

import (
	"context"

	"github.com/google/uuid"

	"guildpulse/internal/events"
)

// Announcer broadcasts a notice to a chat destination.
type Announcer interface {
	Broadcast(ctx context.Context, destination string, notice Notice) error
}

// Service defines the lifecycle operations exposed to the trigger and admins.
type Service interface {
	Sweep(ctx context.Context) (*SweepReport, error)
	Cancel(ctx context.Context, id uuid.UUID, actor, reason string) (bool, error)
	CancelLatest(ctx context.Context, actor, reason string) (*events.Event, error)
}
