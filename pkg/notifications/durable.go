package notifications

import (
	"context"
	"log/slog"
	"time"

	"github.com/dmitrymomot/notifycore/pkg/logger"
)

const (
	// DurableChannelName is the name the durable channel registers under.
	DurableChannelName = "durable"

	// DefaultBulkChunkSize is the default number of rows per bulk insert.
	DefaultBulkChunkSize = 100
)

// DurableChannel persists one canonical message and a UserNotification row
// per recipient. Bulk dispatch saves the message once and inserts rows in
// chunks; a failed chunk aborts the dispatch and leaves earlier chunks
// written. Retrying with the same message id is safe because stores ignore
// duplicate (user, message) rows.
type DurableChannel struct {
	store     Store
	links     *LinkResolver
	clock     Clock
	chunkSize int
	logger    *slog.Logger
	metrics   *Metrics
}

// DurableOption configures a DurableChannel.
type DurableOption func(*DurableChannel)

// WithChunkSize sets the bulk insert size. Values below 1 are ignored.
func WithChunkSize(n int) DurableOption {
	return func(c *DurableChannel) {
		if n > 0 {
			c.chunkSize = n
		}
	}
}

// WithDurableLogger sets the channel logger.
func WithDurableLogger(l *slog.Logger) DurableOption {
	return func(c *DurableChannel) {
		if l != nil {
			c.logger = l
		}
	}
}

// WithDurableClock sets the clock used for expiry checks.
func WithDurableClock(clock Clock) DurableOption {
	return func(c *DurableChannel) {
		if clock != nil {
			c.clock = clock
		}
	}
}

// WithLinkResolver sets the resolver applied before the message is saved.
func WithLinkResolver(r *LinkResolver) DurableOption {
	return func(c *DurableChannel) {
		if r != nil {
			c.links = r
		}
	}
}

// WithDurableMetrics records written rows and chunk sizes.
func WithDurableMetrics(m *Metrics) DurableOption {
	return func(c *DurableChannel) {
		c.metrics = m
	}
}

// NewDurableChannel returns a durable channel writing to store.
func NewDurableChannel(store Store, opts ...DurableOption) *DurableChannel {
	c := &DurableChannel{
		store:     store,
		clock:     systemClock{},
		chunkSize: DefaultBulkChunkSize,
		logger:    slog.Default(),
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.links == nil {
		c.links = NewLinkResolver(nil, WithLinkLogger(c.logger))
	}
	return c
}

// Name returns DurableChannelName.
func (c *DurableChannel) Name() string { return DurableChannelName }

// ChunkSize returns the configured bulk insert size.
func (c *DurableChannel) ChunkSize() int { return c.chunkSize }

// DispatchToUser saves msg and a single row for userID. Expired messages are
// dropped and yield a nil row.
func (c *DurableChannel) DispatchToUser(ctx context.Context, userID int64, msg Message, _ map[string]any) (*UserNotification, error) {
	saved, ok, err := c.persist(ctx, msg)
	if err != nil || !ok {
		return nil, err
	}

	un, err := c.store.SaveUserNotification(ctx, UserNotification{
		UserID:  userID,
		MsgID:   saved.ID,
		Created: c.clock.Now(),
	})
	if err != nil {
		return nil, storeErr(err)
	}
	if un.Msg == nil {
		un.Msg = &saved
	}
	c.metrics.rowsWritten(c.Name(), 1)
	return &un, nil
}

// BulkDispatch saves msg once and writes a row for every id in userIDs not
// in exclude. It returns the number of rows the store reported written.
func (c *DurableChannel) BulkDispatch(ctx context.Context, userIDs UserIDStream, msg Message, exclude IDSet, _ map[string]any) (int, error) {
	saved, ok, err := c.persist(ctx, msg)
	if err != nil || !ok {
		return 0, err
	}
	if userIDs == nil {
		return 0, nil
	}

	var (
		written int
		batch   = make([]UserNotification, 0, c.chunkSize)
	)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		start := time.Now()
		n, err := c.store.BulkCreateUserNotifications(ctx, batch)
		c.metrics.observeChunk(c.Name(), len(batch), time.Since(start))
		if err != nil {
			return storeErr(err)
		}
		written += n
		c.metrics.rowsWritten(c.Name(), n)
		batch = batch[:0]
		return nil
	}

	for userID, err := range userIDs {
		if err != nil {
			return written, err
		}
		if exclude.Has(userID) {
			continue
		}
		batch = append(batch, UserNotification{
			UserID:  userID,
			MsgID:   saved.ID,
			Created: c.clock.Now(),
		})
		if len(batch) >= c.chunkSize {
			if err := flush(); err != nil {
				return written, err
			}
		}
	}
	if err := flush(); err != nil {
		return written, err
	}

	c.logger.LogAttrs(ctx, slog.LevelDebug, "bulk dispatch persisted",
		logger.Channel(c.Name()),
		logger.NotificationType(saved.Type.Name),
		logger.MessageID(saved.ID),
		logger.Count(written),
	)
	return written, nil
}

// persist drops expired messages, resolves links and saves the message.
// ok is false when the message was dropped.
func (c *DurableChannel) persist(ctx context.Context, msg Message) (saved Message, ok bool, err error) {
	if msg.IsExpired(c.clock.Now()) {
		c.logger.LogAttrs(ctx, slog.LevelWarn, "dropping expired notification",
			logger.Channel(c.Name()),
			logger.NotificationType(msg.Type.Name),
			logger.MessageID(msg.ID),
		)
		c.metrics.dropped(c.Name(), "expired")
		return Message{}, false, nil
	}

	resolved := c.links.Resolve(ctx, msg.ForChannel(c.Name()))
	saved, err = c.store.SaveNotificationMessage(ctx, resolved)
	if err != nil {
		return Message{}, false, storeErr(err)
	}
	return saved, true, nil
}
