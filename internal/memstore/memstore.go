// Package memstore keeps events, notification slots, contributions and the
// journal in process memory. It backs tests and the "memory" storage mode;
// state is lost on restart.
package memstore

import (
	"context"
	"fmt"
	"math"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"guildpulse/internal/events"
	"guildpulse/internal/journal"
	"guildpulse/internal/raid"
)

type slotKey struct {
	eventID uuid.UUID
	slot    string
}

type storedEvent struct {
	seq   int
	event events.Event
}

// Store satisfies events.Store, ledger.Ledger, raid.Repository and
// journal.Journal. Every method holds the mutex for its whole duration, which
// gives the same atomicity as the single-statement Postgres operations.
type Store struct {
	mu            sync.Mutex
	seq           int
	events        map[uuid.UUID]*storedEvent
	slots         map[slotKey]time.Time
	contributions []raid.Contribution
	entries       []journal.Entry
}

func New() *Store {
	return &Store{
		events: make(map[uuid.UUID]*storedEvent),
		slots:  make(map[slotKey]time.Time),
	}
}

// events.Store

func (s *Store) Create(_ context.Context, event *events.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.events[event.ID]; exists {
		return fmt.Errorf("insert event: duplicate id %s", event.ID)
	}
	s.seq++
	s.events[event.ID] = &storedEvent{seq: s.seq, event: *event}
	return nil
}

func (s *Store) GetByID(_ context.Context, id uuid.UUID) (*events.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	se, ok := s.events[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", events.ErrEventNotFound, id)
	}
	e := se.event
	return &e, nil
}

func (s *Store) GetActive(_ context.Context, now time.Time) (*events.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	active := s.filter(func(e *events.Event) bool {
		return e.Status == events.StatusActive && e.Contains(now)
	})
	if len(active) == 0 {
		return nil, nil
	}
	sort.SliceStable(active, func(i, j int) bool {
		a, b := active[i], active[j]
		if !a.event.StartsAt.Equal(b.event.StartsAt) {
			return a.event.StartsAt.After(b.event.StartsAt)
		}
		return a.seq > b.seq
	})
	e := active[0].event
	return &e, nil
}

func (s *Store) ListActive(_ context.Context, now time.Time) ([]*events.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.list(func(e *events.Event) bool {
		return e.Status == events.StatusActive && e.Contains(now)
	}, func(e *events.Event) time.Time { return e.StartsAt }), nil
}

func (s *Store) DueToStart(_ context.Context, now time.Time) ([]*events.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.list(func(e *events.Event) bool {
		return e.Status == events.StatusScheduled && !e.StartsAt.After(now)
	}, func(e *events.Event) time.Time { return e.StartsAt }), nil
}

func (s *Store) DueToEnd(_ context.Context, now time.Time) ([]*events.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.list(func(e *events.Event) bool {
		return e.Status == events.StatusActive && !e.EndsAt.After(now)
	}, func(e *events.Event) time.Time { return e.EndsAt }), nil
}

func (s *Store) LatestScheduledOrActive(_ context.Context) (*events.Event, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var latest *storedEvent
	for _, se := range s.events {
		if se.event.Status.Terminal() {
			continue
		}
		if latest == nil || se.event.CreatedAt.After(latest.event.CreatedAt) ||
			(se.event.CreatedAt.Equal(latest.event.CreatedAt) && se.seq > latest.seq) {
			latest = se
		}
	}
	if latest == nil {
		return nil, nil
	}
	e := latest.event
	return &e, nil
}

func (s *Store) Cancel(_ context.Context, id uuid.UUID, actor, reason string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	se, ok := s.events[id]
	if !ok {
		return false, fmt.Errorf("%w: %s", events.ErrEventNotFound, id)
	}
	if se.event.Status.Terminal() {
		return false, nil
	}
	se.event.Status = events.StatusCancelled
	se.event.CancelledBy = actor
	se.event.CancelReason = reason
	se.event.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *Store) MarkActive(_ context.Context, id uuid.UUID) (bool, error) {
	return s.transition(id, events.StatusScheduled, events.StatusActive), nil
}

func (s *Store) MarkCompleted(_ context.Context, id uuid.UUID) (bool, error) {
	return s.transition(id, events.StatusActive, events.StatusCompleted), nil
}

func (s *Store) transition(id uuid.UUID, from, to events.Status) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	se, ok := s.events[id]
	if !ok || se.event.Status != from {
		return false
	}
	se.event.Status = to
	se.event.UpdatedAt = time.Now().UTC()
	return true
}

func (s *Store) filter(keep func(*events.Event) bool) []*storedEvent {
	var out []*storedEvent
	for _, se := range s.events {
		if keep(&se.event) {
			out = append(out, se)
		}
	}
	return out
}

func (s *Store) list(keep func(*events.Event) bool, orderBy func(*events.Event) time.Time) []*events.Event {
	matched := s.filter(keep)
	sort.Slice(matched, func(i, j int) bool {
		a, b := orderBy(&matched[i].event), orderBy(&matched[j].event)
		if !a.Equal(b) {
			return a.Before(b)
		}
		return matched[i].seq < matched[j].seq
	})
	out := make([]*events.Event, 0, len(matched))
	for _, se := range matched {
		e := se.event
		out = append(out, &e)
	}
	return out
}

// ledger.Ledger

func (s *Store) HasFired(_ context.Context, eventID uuid.UUID, slot string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, ok := s.slots[slotKey{eventID, slot}]
	return ok, nil
}

func (s *Store) RecordFired(_ context.Context, eventID uuid.UUID, slot string, firedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := slotKey{eventID, slot}
	if _, ok := s.slots[key]; ok {
		return false, nil
	}
	s.slots[key] = firedAt
	return true, nil
}

// Slots returns the recorded slot keys for an event in sorted order.
func (s *Store) Slots(eventID uuid.UUID) []string {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []string
	for k := range s.slots {
		if k.eventID == eventID {
			out = append(out, k.slot)
		}
	}
	sort.Strings(out)
	return out
}

// raid.Repository

func (s *Store) AppendContribution(_ context.Context, c *raid.Contribution, statuses ...events.Status) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	se, ok := s.events[c.EventID]
	if !ok || !hasStatus(se.event.Status, statuses) {
		return raid.ErrEventNotActive
	}
	if c.Points > 0 && se.event.CurrentPoints > math.MaxInt64-c.Points {
		return fmt.Errorf("%w: running total overflows", raid.ErrInvalidValue)
	}
	se.event.CurrentPoints += c.Points
	c.RunningTotal = se.event.CurrentPoints
	c.ID = int64(len(s.contributions) + 1)
	s.contributions = append(s.contributions, *c)
	return nil
}

func (s *Store) TagTotals(_ context.Context, eventID uuid.UUID) ([]raid.TagTotal, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	type key struct{ actor, tag string }
	sums := make(map[key]int64)
	for _, c := range s.contributions {
		if c.EventID == eventID {
			sums[key{c.ActorID, c.CategoryTag}] += c.Points
		}
	}
	out := make([]raid.TagTotal, 0, len(sums))
	for k, v := range sums {
		out = append(out, raid.TagTotal{ActorID: k.actor, CategoryTag: k.tag, Points: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].ActorID != out[j].ActorID {
			return out[i].ActorID < out[j].ActorID
		}
		return out[i].CategoryTag < out[j].CategoryTag
	})
	return out, nil
}

func (s *Store) TopContributors(_ context.Context, eventID uuid.UUID, limit int) ([]raid.Contributor, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	sums := make(map[string]int64)
	for _, c := range s.contributions {
		if c.EventID != eventID {
			continue
		}
		if _, manual := raid.ManualFaction(c.CategoryTag); manual {
			continue
		}
		sums[c.ActorID] += c.Points
	}
	out := make([]raid.Contributor, 0, len(sums))
	for actor, pts := range sums {
		out = append(out, raid.Contributor{ActorID: actor, Points: pts})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Points != out[j].Points {
			return out[i].Points > out[j].Points
		}
		return out[i].ActorID < out[j].ActorID
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// Contributions returns a copy of every contribution recorded for an event.
func (s *Store) Contributions(eventID uuid.UUID) []raid.Contribution {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []raid.Contribution
	for _, c := range s.contributions {
		if c.EventID == eventID {
			out = append(out, c)
		}
	}
	return out
}

func hasStatus(st events.Status, allowed []events.Status) bool {
	for _, a := range allowed {
		if st == a {
			return true
		}
	}
	return false
}

// journal.Journal

func (s *Store) Append(_ context.Context, entry journal.Entry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	entry.ID = int64(len(s.entries) + 1)
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.entries = append(s.entries, entry)
	return nil
}

func (s *Store) List(_ context.Context, eventID uuid.UUID) ([]journal.Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var out []journal.Entry
	for _, e := range s.entries {
		if e.EventID == eventID {
			out = append(out, e)
		}
	}
	return out, nil
}
