package notifications

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/notifycore/pkg/logger"
)

// Timer callback names registered by the worker.
const (
	PublishTimerCallback = "publish"
	PurgeTimerCallback   = "purge"
)

// Timer is a stored callback due at CallbackAt. One-shot timers are marked
// executed after they fire; periodic timers move CallbackAt forward by
// PeriodicityMin minutes instead.
type Timer struct {
	Name           string         `json:"name"`
	CallbackAt     time.Time      `json:"callback_at"`
	Callback       string         `json:"callback"`
	Context        map[string]any `json:"context,omitempty"`
	IsActive       bool           `json:"is_active"`
	PeriodicityMin int            `json:"periodicity_min,omitempty"`
	ExecutedAt     *time.Time     `json:"executed_at,omitempty"`
	Results        map[string]any `json:"results,omitempty"`
	Err            string         `json:"err_msg,omitempty"`
}

// Clone returns a deep copy of the timer.
func (t Timer) Clone() Timer {
	out := t
	out.Context = Payload(t.Context).Clone()
	out.Results = Payload(t.Results).Clone()
	out.ExecutedAt = cloneTime(t.ExecutedAt)
	return out
}

// TimerStore persists timers keyed by name.
type TimerStore interface {
	// SaveTimer inserts t or replaces the timer with the same name.
	SaveTimer(ctx context.Context, t Timer) (Timer, error)

	// GetTimer returns ErrNotFound for unknown names.
	GetTimer(ctx context.Context, name string) (Timer, error)

	// GetActiveTimers returns active timers due at or before until, earliest
	// first. A zero until matches any callback time. Executed timers are
	// skipped unless includeExecuted is set.
	GetActiveTimers(ctx context.Context, until time.Time, includeExecuted bool) ([]Timer, error)
}

// TimerCallback runs when a timer comes due. The returned results are
// stored on the timer.
type TimerCallback interface {
	NotifyTimerFired(ctx context.Context, t Timer) (map[string]any, error)
}

// TimerCallbackFunc adapts a function to TimerCallback.
type TimerCallbackFunc func(ctx context.Context, t Timer) (map[string]any, error)

func (f TimerCallbackFunc) NotifyTimerFired(ctx context.Context, t Timer) (map[string]any, error) {
	return f(ctx, t)
}

// TimerRunner polls a TimerStore on a cron schedule and fires due timers.
type TimerRunner struct {
	store    TimerStore
	schedule cron.Schedule
	clock    Clock
	logger   *slog.Logger

	mu        sync.Mutex
	callbacks map[string]TimerCallback
	running   bool
}

// TimerRunnerOption configures a TimerRunner.
type TimerRunnerOption func(*TimerRunner)

// WithTimerLogger sets the runner logger.
func WithTimerLogger(l *slog.Logger) TimerRunnerOption {
	return func(r *TimerRunner) {
		if l != nil {
			r.logger = l
		}
	}
}

// WithTimerClock sets the clock that decides which timers are due.
func WithTimerClock(clock Clock) TimerRunnerOption {
	return func(r *TimerRunner) {
		if clock != nil {
			r.clock = clock
		}
	}
}

// NewTimerRunner validates schedule and returns a runner over store.
func NewTimerRunner(store TimerStore, schedule string, opts ...TimerRunnerOption) (*TimerRunner, error) {
	s, err := scheduleParser.Parse(schedule)
	if err != nil {
		return nil, fmt.Errorf("parse timer schedule %q: %w", schedule, err)
	}
	r := &TimerRunner{
		store:     store,
		schedule:  s,
		clock:     systemClock{},
		logger:    slog.Default(),
		callbacks: map[string]TimerCallback{},
	}
	for _, opt := range opts {
		opt(r)
	}
	r.logger = r.logger.With(logger.Component("timers"))
	return r, nil
}

// Register binds name, as stored in Timer.Callback, to cb.
func (r *TimerRunner) Register(name string, cb TimerCallback) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.callbacks[name] = cb
}

func (r *TimerRunner) callback(name string) (TimerCallback, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	cb, ok := r.callbacks[name]
	return cb, ok
}

// RunOnce fires every due timer and returns how many fired. Callback
// failures are recorded on the timer; only store failures are returned.
// Overlapping runs are skipped.
func (r *TimerRunner) RunOnce(ctx context.Context) (int, error) {
	r.mu.Lock()
	if r.running {
		r.mu.Unlock()
		r.logger.LogAttrs(ctx, slog.LevelWarn, "timer run already in progress, skipping")
		return 0, nil
	}
	r.running = true
	r.mu.Unlock()

	defer func() {
		r.mu.Lock()
		r.running = false
		r.mu.Unlock()
	}()

	now := r.clock.Now()
	timers, err := r.store.GetActiveTimers(ctx, now, false)
	if err != nil {
		r.logger.LogAttrs(ctx, slog.LevelError, "loading due timers failed", logger.Error(err))
		return 0, storeErr(err)
	}

	var errs []error
	fired := 0
	for _, t := range timers {
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		if err := r.fire(ctx, t, now); err != nil {
			errs = append(errs, err)
			continue
		}
		fired++
	}
	return fired, errors.Join(errs...)
}

func (r *TimerRunner) fire(ctx context.Context, t Timer, now time.Time) error {
	log := r.logger.With(slog.String("timer", t.Name), slog.String("callback", t.Callback))

	var (
		results map[string]any
		err     error
	)
	if cb, ok := r.callback(t.Callback); ok {
		results, err = cb.NotifyTimerFired(ctx, t.Clone())
	} else {
		err = fmt.Errorf("%w: %q", ErrUnknownTimerCallback, t.Callback)
	}

	t.Results = results
	t.Err = ""
	if err != nil {
		t.Err = err.Error()
		log.LogAttrs(ctx, slog.LevelError, "timer callback failed", logger.Error(err))
	}

	if t.PeriodicityMin > 0 {
		t.CallbackAt = now.Add(time.Duration(t.PeriodicityMin) * time.Minute)
	} else {
		executed := now
		t.ExecutedAt = &executed
	}

	if _, err := r.store.SaveTimer(ctx, t); err != nil {
		log.LogAttrs(ctx, slog.LevelError, "saving fired timer failed", logger.Error(err))
		return storeErr(err)
	}
	log.LogAttrs(ctx, slog.LevelDebug, "timer fired", slog.Time("next_run", t.CallbackAt))
	return nil
}

// Run polls for due timers until ctx is cancelled, then waits for a running
// poll to finish.
func (r *TimerRunner) Run(ctx context.Context) error {
	runScheduled(ctx, r.schedule, r.logger, func() {
		_, _ = r.RunOnce(ctx)
	})
	return nil
}
