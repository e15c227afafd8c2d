// internal/raid/implementation.go
package raid

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"guildpulse/internal/clock"
	"guildpulse/internal/events"
	"guildpulse/internal/journal"
	"guildpulse/internal/metrics"
)

// Config lists the competing factions and the category weights.
type Config struct {
	Factions []string
	Scorer   Scorer
}

// service implements the Service interface.
type service struct {
	repo     Repository
	events   events.Store
	resolver FactionResolver
	journal  journal.Journal
	clock    clock.Clock
	factions []string
	scorer   Scorer
	metrics  *metrics.Metrics
	log      *zap.Logger
}

// NewService creates a new raid aggregation service.
func NewService(repo Repository, store events.Store, resolver FactionResolver, j journal.Journal, clk clock.Clock, cfg Config, m *metrics.Metrics, log *zap.Logger) Service {
	if log == nil {
		log = zap.NewNop()
	}
	if resolver == nil {
		resolver = StaticResolver(nil)
	}
	factions := make([]string, 0, len(cfg.Factions))
	for _, f := range cfg.Factions {
		if f = strings.ToLower(strings.TrimSpace(f)); f != "" {
			factions = append(factions, f)
		}
	}
	return &service{
		repo:     repo,
		events:   store,
		resolver: resolver,
		journal:  j,
		clock:    clk,
		factions: factions,
		scorer:   cfg.Scorer,
		metrics:  m,
		log:      log.Named("raid"),
	}
}

// RecordContribution appends an organic contribution to an active event.
func (s *service) RecordContribution(ctx context.Context, eventID uuid.UUID, actorID, categoryTag string, rawValue, points int64) (*Contribution, error) {
	actorID = strings.TrimSpace(actorID)
	categoryTag = strings.TrimSpace(categoryTag)
	if actorID == "" {
		return nil, ErrMissingActor
	}
	if categoryTag == "" {
		return nil, fmt.Errorf("%w: empty", ErrUnknownCategory)
	}
	if _, manual := ManualFaction(categoryTag); manual {
		return nil, fmt.Errorf("%w: %q is reserved for adjustments", ErrUnknownCategory, categoryTag)
	}
	if rawValue < 0 || points < 0 {
		return nil, ErrInvalidValue
	}

	c := &Contribution{
		EventID:     eventID,
		ActorID:     actorID,
		CategoryTag: categoryTag,
		RawValue:    rawValue,
		Points:      points,
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.AppendContribution(ctx, c, events.StatusActive); err != nil {
		if errors.Is(err, ErrEventNotActive) {
			s.metrics.IncContribution("organic", "rejected", 0)
			s.log.Info("contribution.rejected",
				zap.String("event_id", eventID.String()),
				zap.String("actor_id", actorID),
				zap.String("category", categoryTag),
			)
			return nil, err
		}
		s.metrics.IncContribution("organic", "error", 0)
		return nil, fmt.Errorf("failed to record contribution: %w", err)
	}

	s.metrics.IncContribution("organic", "ok", points)
	s.log.Debug("contribution.recorded",
		zap.String("event_id", eventID.String()),
		zap.String("actor_id", actorID),
		zap.String("category", categoryTag),
		zap.Int64("points", points),
		zap.Int64("running_total", c.RunningTotal),
	)
	return c, nil
}

// RecordActivity scores an actor's activity against the currently active raid.
func (s *service) RecordActivity(ctx context.Context, actorID, category string, rawValue int64) (*Contribution, error) {
	points, err := s.scorer.Points(category, rawValue)
	if err != nil {
		return nil, err
	}

	active, err := s.events.ListActive(ctx, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("failed to find active raid: %w", err)
	}
	for _, event := range active {
		if event.Kind == events.KindRaid {
			return s.RecordContribution(ctx, event.ID, actorID, category, rawValue, points)
		}
	}
	return nil, ErrNoActiveRaid
}

// RecordManualAdjustment adds admin-granted points directly to a faction.
func (s *service) RecordManualAdjustment(ctx context.Context, eventID uuid.UUID, points int64, faction, actor, reason string) (*Contribution, error) {
	if points <= 0 {
		return nil, ErrInvalidPoints
	}
	faction = strings.ToLower(strings.TrimSpace(faction))
	if !s.knownFaction(faction) {
		return nil, fmt.Errorf("%w: %q", ErrUnknownFaction, faction)
	}
	actor = strings.TrimSpace(actor)
	if actor == "" {
		return nil, ErrMissingActor
	}

	c := &Contribution{
		EventID:     eventID,
		ActorID:     actor,
		CategoryTag: ManualTag(faction),
		RawValue:    points,
		Points:      points,
		Reason:      strings.TrimSpace(reason),
		CreatedAt:   s.clock.Now(),
	}
	if err := s.repo.AppendContribution(ctx, c, events.StatusActive, events.StatusCompleted); err != nil {
		if errors.Is(err, ErrEventNotActive) {
			s.metrics.IncContribution("manual", "rejected", 0)
			return nil, err
		}
		s.metrics.IncContribution("manual", "error", 0)
		return nil, fmt.Errorf("failed to record adjustment: %w", err)
	}
	s.metrics.IncContribution("manual", "ok", points)

	s.log.Info("contribution.adjusted",
		zap.String("event_id", eventID.String()),
		zap.String("actor", actor),
		zap.String("faction", faction),
		zap.Int64("points", points),
		zap.String("reason", c.Reason),
	)
	if s.journal != nil {
		err := s.journal.Append(ctx, journal.Entry{
			EventID: eventID,
			Action:  journal.ActionAdjusted,
			Actor:   actor,
			Detail: map[string]interface{}{
				"faction": faction,
				"points":  points,
				"reason":  c.Reason,
			},
			CreatedAt: c.CreatedAt,
		})
		if err != nil {
			s.log.Warn("failed to journal adjustment", zap.String("event_id", eventID.String()), zap.Error(err))
		}
	}
	return c, nil
}

// FactionTotals recomputes faction sums from the contribution rows.
func (s *service) FactionTotals(ctx context.Context, eventID uuid.UUID) (FactionTotals, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	rows, err := s.repo.TagTotals(ctx, eventID)
	if err != nil {
		return nil, fmt.Errorf("failed to load contributions: %w", err)
	}

	totals := FactionTotals{Unaffiliated: 0}
	for _, f := range s.factions {
		totals[f] = 0
	}

	resolved := make(map[string]string)
	for _, row := range rows {
		if faction, ok := ManualFaction(row.CategoryTag); ok {
			totals[faction] += row.Points
			continue
		}
		faction, seen := resolved[row.ActorID]
		if !seen {
			faction = s.resolve(ctx, row.ActorID)
			resolved[row.ActorID] = faction
		}
		totals[faction] += row.Points
	}
	return totals, nil
}

func (s *service) TopContributors(ctx context.Context, eventID uuid.UUID, limit int) ([]Contributor, error) {
	if _, err := s.events.GetByID(ctx, eventID); err != nil {
		return nil, err
	}
	if limit <= 0 {
		limit = 10
	}
	return s.repo.TopContributors(ctx, eventID, limit)
}

func (s *service) resolve(ctx context.Context, actorID string) string {
	faction, err := s.resolver.Faction(ctx, actorID)
	if err != nil {
		s.metrics.IncFactionLookupFailure()
		s.log.Warn("faction lookup failed", zap.String("actor_id", actorID), zap.Error(err))
		return Unaffiliated
	}
	faction = strings.ToLower(strings.TrimSpace(faction))
	if !s.knownFaction(faction) {
		return Unaffiliated
	}
	return faction
}

func (s *service) knownFaction(faction string) bool {
	for _, f := range s.factions {
		if f == faction {
			return true
		}
	}
	return false
}
