package channels

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifycore/pkg/logger"
	"github.com/dmitrymomot/notifycore/pkg/notifications"
)

// Option configures the logger, clock and metrics of any channel in this package.
type Option func(*base)

type base struct {
	name    string
	logger  *slog.Logger
	clock   notifications.Clock
	metrics *notifications.Metrics
}

// WithLogger sets the channel logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *base) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithClock sets the clock used for expiry checks and timestamps.
func WithClock(c notifications.Clock) Option {
	return func(b *base) {
		if c != nil {
			b.clock = c
		}
	}
}

// WithMetrics records deliveries on m.
func WithMetrics(m *notifications.Metrics) Option {
	return func(b *base) {
		b.metrics = m
	}
}

// WithName overrides the channel name.
func WithName(name string) Option {
	return func(b *base) {
		if name != "" {
			b.name = name
		}
	}
}

func newBase(name string, opts []Option) base {
	b := base{
		name:   name,
		logger: slog.Default(),
		clock:  notifications.ClockFunc(time.Now),
	}
	for _, opt := range opts {
		opt(&b)
	}
	b.logger = b.logger.With(logger.Channel(b.name))
	return b
}

func (b *base) Name() string { return b.name }

// prepare returns the channel view of msg, or false when it has expired.
func (b *base) prepare(ctx context.Context, msg notifications.Message) (notifications.Message, bool) {
	if msg.IsExpired(b.clock.Now()) {
		b.logger.LogAttrs(ctx, slog.LevelWarn, "dropping expired notification",
			logger.NotificationType(msg.Type.Name),
			logger.MessageID(msg.ID),
		)
		b.metrics.RecordDropped(b.name, "expired")
		return notifications.Message{}, false
	}
	return msg.ForChannel(b.name), true
}

// each walks ids, skipping excluded users, and stops at the first stream error.
func each(ids notifications.UserIDStream, exclude notifications.IDSet, fn func(userID int64)) error {
	for id, err := range ids {
		if err != nil {
			return err
		}
		if exclude.Has(id) {
			continue
		}
		fn(id)
	}
	return nil
}
