// internal/lifecycle/implementation.go
package lifecycle

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"guildpulse/internal/clock"
	"guildpulse/internal/events"
	"guildpulse/internal/journal"
	"guildpulse/internal/ledger"
	"guildpulse/internal/metrics"
)

// Manager drives events through scheduled → active → completed and emits
// each notification slot at most once.
type Manager struct {
	events    events.Store
	ledger    ledger.Ledger
	announcer Announcer
	journal   journal.Journal
	clock     clock.Clock
	cfg       Config
	metrics   *metrics.Metrics
	log       *zap.Logger
}

// Params groups the Manager collaborators.
type Params struct {
	Events    events.Store
	Ledger    ledger.Ledger
	Announcer Announcer
	Journal   journal.Journal
	Clock     clock.Clock
	Config    Config
	Metrics   *metrics.Metrics
	Log       *zap.Logger
}

func NewManager(p Params) (*Manager, error) {
	if p.Events == nil || p.Ledger == nil || p.Announcer == nil || p.Clock == nil {
		return nil, fmt.Errorf("%w: events, ledger, announcer and clock are required", ErrInvalidConfig)
	}
	if err := p.Config.Validate(); err != nil {
		return nil, err
	}
	log := p.Log
	if log == nil {
		log = zap.NewNop()
	}
	return &Manager{
		events:    p.Events,
		ledger:    p.Ledger,
		announcer: p.Announcer,
		journal:   p.Journal,
		clock:     p.Clock,
		cfg:       p.Config,
		metrics:   p.Metrics,
		log:       log.Named("lifecycle"),
	}, nil
}

// Sweep runs one pass over due work. A failing list query abandons the pass;
// failures on individual events are logged, joined and returned after the
// remaining events have been processed.
func (m *Manager) Sweep(ctx context.Context) (*SweepReport, error) {
	now := m.clock.Now()
	report := &SweepReport{RunID: uuid.NewString(), Now: now}
	log := m.log.With(zap.String("run_id", report.RunID))

	err := m.sweep(ctx, log, now, report)
	m.metrics.ObserveSweep(m.clock.Now().Sub(now), err)

	fields := []zap.Field{
		zap.Int("started", len(report.Started)),
		zap.Int("completed", len(report.Completed)),
		zap.Int("reminders", len(report.Reminders)),
		zap.Int("goals", len(report.Goals)),
		zap.Int("announced", report.Announced),
	}
	if err != nil {
		log.Warn("sweep.finish", append(fields, zap.Error(err))...)
		return report, err
	}
	log.Debug("sweep.finish", fields...)
	return report, nil
}

func (m *Manager) sweep(ctx context.Context, log *zap.Logger, now time.Time, report *SweepReport) error {
	var errs []error

	starting, err := m.events.DueToStart(ctx, now)
	if err != nil {
		return fmt.Errorf("load events due to start: %w", err)
	}
	for _, e := range starting {
		step := transitionStep{
			slot:   ledger.SlotStart,
			notice: NoticeStart,
			mark:   m.events.MarkActive,
			action: journal.ActionActivated,
			to:     events.StatusActive,
		}
		if err := m.transition(ctx, log, now, e, step, report); err != nil {
			errs = append(errs, err)
			continue
		}
		report.Started = append(report.Started, e.ID)
	}

	ending, err := m.events.DueToEnd(ctx, now)
	if err != nil {
		return errors.Join(append(errs, fmt.Errorf("load events due to end: %w", err))...)
	}
	for _, e := range ending {
		step := transitionStep{
			slot:   ledger.SlotEnd,
			notice: NoticeEnd,
			mark:   m.events.MarkCompleted,
			action: journal.ActionCompleted,
			to:     events.StatusCompleted,
		}
		if err := m.transition(ctx, log, now, e, step, report); err != nil {
			errs = append(errs, err)
			continue
		}
		report.Completed = append(report.Completed, e.ID)
	}

	active, err := m.events.ListActive(ctx, now)
	if err != nil {
		return errors.Join(append(errs, fmt.Errorf("load active events: %w", err))...)
	}
	for _, e := range active {
		if err := m.remind(ctx, log, now, e, report); err != nil {
			errs = append(errs, err)
		}
		if e.Kind == events.KindRaid {
			if err := m.checkGoal(ctx, log, now, e, report); err != nil {
				errs = append(errs, err)
			}
		}
	}

	return errors.Join(errs...)
}

type transitionStep struct {
	slot   string
	notice NoticeKind
	mark   func(context.Context, uuid.UUID) (bool, error)
	action journal.Action
	to     events.Status
}

// transition announces the slot unless the ledger already has it, then moves
// the status. A crash between announce and mark converges on the next tick:
// the ledger suppresses the repeat announcement and the mark is retried.
func (m *Manager) transition(ctx context.Context, log *zap.Logger, now time.Time, e *events.Event, step transitionStep, report *SweepReport) error {
	log = log.With(zap.String("event_id", e.ID.String()), zap.String("slot", step.slot))

	if _, err := m.fireOnce(ctx, log, now, Notice{Kind: step.notice, Event: *e, SlotKey: step.slot}, report); err != nil {
		return err
	}

	changed, err := step.mark(ctx, e.ID)
	if err != nil {
		log.Error("failed to mark event", zap.String("to", string(step.to)), zap.Error(err))
		return fmt.Errorf("mark event %s %s: %w", e.ID, step.to, err)
	}
	if !changed {
		return nil
	}

	m.metrics.IncTransition(string(step.to))
	log.Info("event.transition", zap.String("from", string(e.Status)), zap.String("to", string(step.to)))
	e.Status = step.to
	m.appendJournal(ctx, log, journal.Entry{
		EventID:   e.ID,
		Action:    step.action,
		Actor:     "scheduler",
		CreatedAt: now,
	})
	return nil
}

func (m *Manager) remind(ctx context.Context, log *zap.Logger, now time.Time, e *events.Event, report *SweepReport) error {
	boundary, ok := ReminderSlot(e.StartsAt, e.EndsAt, now, m.cfg.ReminderPeriod, m.cfg.ReminderTolerance)
	if !ok {
		return nil
	}
	key := SlotKey(m.cfg.ReminderPeriod, boundary)
	log = log.With(zap.String("event_id", e.ID.String()), zap.String("slot", key))

	fired, err := m.fireOnce(ctx, log, now, Notice{
		Kind:      NoticeReminder,
		Event:     *e,
		SlotKey:   key,
		Boundary:  boundary,
		Remaining: e.EndsAt.Sub(now),
	}, report)
	if err != nil {
		return err
	}
	if fired {
		report.Reminders = append(report.Reminders, key)
	}
	return nil
}

func (m *Manager) checkGoal(ctx context.Context, log *zap.Logger, now time.Time, e *events.Event, report *SweepReport) error {
	if float64(e.CurrentPoints) < e.Modifier {
		return nil
	}
	log = log.With(zap.String("event_id", e.ID.String()), zap.String("slot", ledger.SlotGoal))

	fired, err := m.fireOnce(ctx, log, now, Notice{Kind: NoticeGoal, Event: *e, SlotKey: ledger.SlotGoal}, report)
	if err != nil {
		return err
	}
	if fired {
		report.Goals = append(report.Goals, e.ID)
	}
	return nil
}

// fireOnce broadcasts the notice if its slot has not fired yet and records
// the slot afterwards. It reports whether a broadcast happened.
func (m *Manager) fireOnce(ctx context.Context, log *zap.Logger, now time.Time, notice Notice, report *SweepReport) (bool, error) {
	eventID := notice.Event.ID

	fired, err := m.ledger.HasFired(ctx, eventID, notice.SlotKey)
	if err != nil {
		log.Error("failed to check notification ledger", zap.Error(err))
		return false, fmt.Errorf("check slot %s for event %s: %w", notice.SlotKey, eventID, err)
	}
	if fired {
		return false, nil
	}

	if err := m.announce(ctx, notice); err != nil {
		log.Error("failed to announce", zap.String("notice", string(notice.Kind)), zap.Error(err))
		return false, fmt.Errorf("announce %s for event %s: %w", notice.SlotKey, eventID, err)
	}
	report.Announced++

	inserted, err := m.ledger.RecordFired(ctx, eventID, notice.SlotKey, now)
	if err != nil {
		// The broadcast already happened; report the failure but let the
		// caller continue so the status still converges.
		log.Error("failed to record notification slot", zap.Error(err))
		return true, nil
	}
	if !inserted {
		m.metrics.IncDuplicateSlot()
		log.Debug("notification slot already recorded by an overlapping sweep")
	}
	return true, nil
}

func (m *Manager) announce(ctx context.Context, notice Notice) error {
	err := m.announcer.Broadcast(ctx, m.cfg.Destinations[notice.Event.Kind], notice)
	m.metrics.IncAnnouncement(string(notice.Kind), err)
	return err
}

// Cancel moves a scheduled or active event to cancelled and announces it.
// It returns false when the event is already terminal.
func (m *Manager) Cancel(ctx context.Context, id uuid.UUID, actor, reason string) (bool, error) {
	e, err := m.events.GetByID(ctx, id)
	if err != nil {
		return false, err
	}
	return m.cancel(ctx, e, actor, reason)
}

// CancelLatest cancels the most recently created scheduled or active event.
func (m *Manager) CancelLatest(ctx context.Context, actor, reason string) (*events.Event, error) {
	e, err := m.events.LatestScheduledOrActive(ctx)
	if err != nil {
		return nil, fmt.Errorf("find event to cancel: %w", err)
	}
	if e == nil {
		return nil, ErrNothingToCancel
	}
	ok, err := m.cancel(ctx, e, actor, reason)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, ErrNothingToCancel
	}
	return e, nil
}

func (m *Manager) cancel(ctx context.Context, e *events.Event, actor, reason string) (bool, error) {
	log := m.log.With(zap.String("event_id", e.ID.String()), zap.String("actor", actor))

	ok, err := m.events.Cancel(ctx, e.ID, actor, reason)
	if err != nil {
		log.Error("failed to cancel event", zap.Error(err))
		return false, fmt.Errorf("cancel event %s: %w", e.ID, err)
	}
	if !ok {
		log.Info("cancel ignored, event already terminal")
		return false, nil
	}

	now := m.clock.Now()
	from := e.Status
	e.Status = events.StatusCancelled
	e.CancelledBy = actor
	e.CancelReason = reason
	m.metrics.IncTransition(string(events.StatusCancelled))
	log.Info("event.transition", zap.String("from", string(from)), zap.String("to", string(events.StatusCancelled)), zap.String("reason", reason))

	m.appendJournal(ctx, log, journal.Entry{
		EventID:   e.ID,
		Action:    journal.ActionCancelled,
		Actor:     actor,
		Detail:    map[string]interface{}{"reason": reason, "from": string(from)},
		CreatedAt: now,
	})

	if err := m.announce(ctx, Notice{Kind: NoticeCancelled, Event: *e, Actor: actor, Reason: reason}); err != nil {
		log.Error("failed to announce cancellation", zap.Error(err))
	}
	return true, nil
}

func (m *Manager) appendJournal(ctx context.Context, log *zap.Logger, entry journal.Entry) {
	if m.journal == nil {
		return
	}
	if err := m.journal.Append(ctx, entry); err != nil {
		log.Warn("failed to journal transition", zap.String("action", string(entry.Action)), zap.Error(err))
	}
}
