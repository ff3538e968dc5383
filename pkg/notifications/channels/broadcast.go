package channels

import (
	"context"
	"log/slog"

	"github.com/dmitrymomot/notifycore/pkg/broadcast"
	"github.com/dmitrymomot/notifycore/pkg/cache"
	"github.com/dmitrymomot/notifycore/pkg/logger"
	"github.com/dmitrymomot/notifycore/pkg/notifications"
)

const (
	// BroadcastChannelName is the default name of BroadcastChannel.
	BroadcastChannelName = "broadcast"

	DefaultBroadcastBuffer = 16
	DefaultMaxBroadcasters = 10000
)

// BroadcastChannel pushes notifications to in-process subscribers, one
// broadcaster per user. Nothing is persisted: a user without subscribers
// misses the notification. Broadcasters live in an LRU bounded by
// maxBroadcasters; evicted ones are closed with their subscribers.
type BroadcastChannel struct {
	base
	bufferSize int
	users      *cache.LRU[int64, *userBroadcaster]
}

type userBroadcaster = broadcast.Broadcaster[notifications.UserNotification]

var _ notifications.Channel = (*BroadcastChannel)(nil)

// NewBroadcastChannel returns a broadcast channel. Non-positive sizes fall
// back to the defaults.
func NewBroadcastChannel(bufferSize, maxBroadcasters int, opts ...Option) *BroadcastChannel {
	if bufferSize <= 0 {
		bufferSize = DefaultBroadcastBuffer
	}
	if maxBroadcasters <= 0 {
		maxBroadcasters = DefaultMaxBroadcasters
	}
	c := &BroadcastChannel{
		base:       newBase(BroadcastChannelName, opts),
		bufferSize: bufferSize,
	}
	c.users = cache.New[int64, *userBroadcaster](maxBroadcasters,
		cache.WithEvictCallback[int64, *userBroadcaster](func(userID int64, b *userBroadcaster) {
			_ = b.Close()
			c.logger.LogAttrs(context.Background(), slog.LevelDebug, "broadcaster evicted", logger.UserID(userID))
		}),
	)
	return c
}

// Subscribe returns a subscription to userID's notifications that ends when
// ctx is done.
func (c *BroadcastChannel) Subscribe(ctx context.Context, userID int64) broadcast.Subscriber[notifications.UserNotification] {
	b := c.users.GetOrCreate(userID, func() *userBroadcaster {
		return broadcast.New[notifications.UserNotification](c.bufferSize)
	})
	return b.Subscribe(ctx)
}

// DispatchToUser publishes msg to userID's subscribers. It never writes a
// UserNotification and always returns nil for it.
func (c *BroadcastChannel) DispatchToUser(ctx context.Context, userID int64, msg notifications.Message, _ map[string]any) (*notifications.UserNotification, error) {
	msg, ok := c.prepare(ctx, msg)
	if !ok {
		return nil, nil
	}
	if c.publish(userID, msg) {
		c.metrics.RecordDeliveries(c.name, 1)
	}
	return nil, nil
}

// BulkDispatch publishes msg to every listed user with subscribers and
// returns how many users received it.
func (c *BroadcastChannel) BulkDispatch(ctx context.Context, userIDs notifications.UserIDStream, msg notifications.Message, exclude notifications.IDSet, _ map[string]any) (int, error) {
	msg, ok := c.prepare(ctx, msg)
	if !ok {
		return 0, nil
	}

	delivered := 0
	err := each(userIDs, exclude, func(userID int64) {
		if c.publish(userID, msg) {
			delivered++
		}
	})
	c.metrics.RecordDeliveries(c.name, delivered)
	return delivered, err
}

// Close closes every broadcaster.
func (c *BroadcastChannel) Close() error {
	c.users.Clear()
	return nil
}

func (c *BroadcastChannel) publish(userID int64, msg notifications.Message) bool {
	b, ok := c.users.Get(userID)
	if !ok {
		return false
	}

	un := notifications.UserNotification{
		UserID:  userID,
		MsgID:   msg.ID,
		Msg:     &msg,
		Created: c.clock.Now(),
	}
	return b.Publish(un) > 0
}
