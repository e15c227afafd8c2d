// internal/lifecycle/runner.go
package lifecycle

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"
)

// Sweeper is the unit of work the Runner schedules.
type Sweeper interface {
	Sweep(ctx context.Context) (*SweepReport, error)
}

// Runner triggers sweeps on a cron schedule. Overlapping ticks are skipped.
type Runner struct {
	cron     *cron.Cron
	sweeper  Sweeper
	schedule string
	timeout  time.Duration
	log      *zap.Logger
	stopped  chan struct{}
	stopOnce sync.Once
}

var scheduleParser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// TickInterval returns the longest gap between consecutive firings of
// schedule. Calendar specs are sampled over one week; a spec that fires less
// often than weekly reports its first gap.
func TickInterval(schedule string) (time.Duration, error) {
	sched, err := scheduleParser.Parse(schedule)
	if err != nil {
		return 0, fmt.Errorf("%w: invalid tick schedule %q: %v", ErrInvalidConfig, schedule, err)
	}
	if every, ok := sched.(cron.ConstantDelaySchedule); ok {
		return every.Delay, nil
	}

	from := time.Date(2026, time.January, 5, 0, 0, 0, 0, time.UTC)
	until := from.AddDate(0, 0, 7)
	prev := sched.Next(from)
	if prev.IsZero() {
		return 0, fmt.Errorf("%w: tick schedule %q never fires", ErrInvalidConfig, schedule)
	}
	var longest time.Duration
	for {
		next := sched.Next(prev)
		if next.IsZero() {
			break
		}
		if gap := next.Sub(prev); gap > longest {
			longest = gap
		}
		if next.After(until) {
			break
		}
		prev = next
	}
	if longest <= 0 {
		return 0, fmt.Errorf("%w: tick schedule %q fires only once", ErrInvalidConfig, schedule)
	}
	return longest, nil
}

// NewRunner parses schedule (standard five-field cron or a descriptor such as
// "@every 5m") and prepares a runner. The reminder tolerance must cover the
// longest gap between ticks or periodic slots would be skipped. Nothing runs
// until Start.
func NewRunner(sweeper Sweeper, schedule string, tolerance, timeout time.Duration, log *zap.Logger) (*Runner, error) {
	if log == nil {
		log = zap.NewNop()
	}
	log = log.Named("runner")

	interval, err := TickInterval(schedule)
	if err != nil {
		return nil, err
	}
	if tolerance < interval {
		return nil, fmt.Errorf("%w: reminder tolerance %s is shorter than tick interval %s of %q",
			ErrInvalidConfig, tolerance, interval, schedule)
	}

	cl := cronLogger{log: log}
	return &Runner{
		cron: cron.New(
			cron.WithParser(scheduleParser),
			cron.WithLogger(cl),
			cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl)),
		),
		sweeper:  sweeper,
		schedule: schedule,
		timeout:  timeout,
		log:      log,
		stopped:  make(chan struct{}),
	}, nil
}

// Start registers the sweep job and starts the scheduler. The runner stops
// when ctx is cancelled or Stop is called.
func (r *Runner) Start(ctx context.Context) error {
	if _, err := r.cron.AddFunc(r.schedule, func() { r.RunOnce(ctx) }); err != nil {
		return fmt.Errorf("register sweep job: %w", err)
	}
	r.cron.Start()
	r.log.Info("runner started", zap.String("schedule", r.schedule))

	go func() {
		select {
		case <-ctx.Done():
			r.Stop()
		case <-r.stopped:
		}
	}()
	return nil
}

// RunOnce performs a single sweep bounded by the runner timeout.
func (r *Runner) RunOnce(ctx context.Context) (*SweepReport, error) {
	if r.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.timeout)
		defer cancel()
	}
	report, err := r.sweeper.Sweep(ctx)
	if err != nil {
		r.log.Warn("sweep failed, retrying on next tick", zap.Error(err))
	}
	return report, err
}

// Stop waits for a running sweep to finish. Safe to call multiple times.
func (r *Runner) Stop() {
	r.stopOnce.Do(func() {
		r.log.Info("runner stopping")
		<-r.cron.Stop().Done()
		close(r.stopped)
		r.log.Info("runner stopped")
	})
}

// Done is closed once the runner has fully stopped.
func (r *Runner) Done() <-chan struct{} {
	return r.stopped
}

// cronLogger adapts zap to cron.Logger.
type cronLogger struct {
	log *zap.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Debugw(msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Sugar().Errorw(msg, append(keysAndValues, "error", err)...)
}
