package notifications

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/dmitrymomot/notifycore/pkg/logger"
)

// Purger removes old user notifications on a cron schedule.
type Purger struct {
	store    QueryStore
	opts     PurgeOptions
	schedule cron.Schedule
	logger   *slog.Logger

	mu      sync.Mutex
	running bool
}

// PurgerOption configures a Purger.
type PurgerOption func(*Purger)

// WithPurgerLogger sets the purger logger.
func WithPurgerLogger(l *slog.Logger) PurgerOption {
	return func(p *Purger) {
		if l != nil {
			p.logger = l
		}
	}
}

// NewPurger validates cfg.Schedule and returns a purger for store.
func NewPurger(store QueryStore, cfg PurgeConfig, opts ...PurgerOption) (*Purger, error) {
	schedule, err := scheduleParser.Parse(cfg.Schedule)
	if err != nil {
		return nil, fmt.Errorf("parse purge schedule %q: %w", cfg.Schedule, err)
	}
	p := &Purger{
		store:    store,
		opts:     cfg.Options(),
		schedule: schedule,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.With(logger.Component("purger"))
	return p, nil
}

// Next returns the next scheduled run after t.
func (p *Purger) Next(t time.Time) time.Time {
	return p.schedule.Next(t)
}

// RunOnce purges immediately and returns the number of removed rows.
// Overlapping runs are skipped.
func (p *Purger) RunOnce(ctx context.Context) (int, error) {
	p.mu.Lock()
	if p.running {
		p.mu.Unlock()
		p.logger.LogAttrs(ctx, slog.LevelWarn, "purge already running, skipping")
		return 0, nil
	}
	p.running = true
	p.mu.Unlock()

	defer func() {
		p.mu.Lock()
		p.running = false
		p.mu.Unlock()
	}()

	start := time.Now()
	n, err := p.store.PurgeExpiredNotifications(ctx, p.opts)
	if err != nil {
		p.logger.LogAttrs(ctx, slog.LevelError, "purge failed", logger.Error(err))
		return n, storeErr(err)
	}
	p.logger.LogAttrs(ctx, slog.LevelInfo, "purge completed",
		logger.Count(n),
		logger.Duration(time.Since(start)),
	)
	return n, nil
}

// Run schedules purges until ctx is cancelled, then waits for a running
// purge to finish.
func (p *Purger) Run(ctx context.Context) error {
	runScheduled(ctx, p.schedule, p.logger, func() {
		_, _ = p.RunOnce(ctx)
	})
	return nil
}

// NotifyTimerFired lets a stored timer trigger a purge.
func (p *Purger) NotifyTimerFired(ctx context.Context, _ Timer) (map[string]any, error) {
	n, err := p.RunOnce(ctx)
	return map[string]any{"purged": n}, err
}
