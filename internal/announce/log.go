// internal/announce/log.go
package announce

import (
	"context"

	"go.uber.org/zap"

	"guildpulse/internal/lifecycle"
)

// Log writes notices to the process log. It is the announcer used when no
// webhooks are configured.
type Log struct {
	log *zap.Logger
}

func NewLog(log *zap.Logger) *Log {
	if log == nil {
		log = zap.NewNop()
	}
	return &Log{log: log.Named("announce")}
}

func (l *Log) Broadcast(_ context.Context, destination string, notice lifecycle.Notice) error {
	l.log.Info("announce",
		zap.String("destination", destination),
		zap.String("notice", string(notice.Kind)),
		zap.String("event_id", notice.Event.ID.String()),
		zap.String("slot", notice.SlotKey),
		zap.String("message", Render(notice)),
	)
	return nil
}
