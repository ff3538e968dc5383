package channels

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strconv"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/dmitrymomot/notifycore/pkg/logger"
	"github.com/dmitrymomot/notifycore/pkg/notifications"
)

const (
	// NATSChannelName is the default name of NATSChannel.
	NATSChannelName = "nats"

	// DefaultSubjectPrefix prefixes the per-user subject "<prefix>.<user_id>".
	DefaultSubjectPrefix = "notifications.user"
)

// Publisher is satisfied by *nats.Conn.
type Publisher interface {
	Publish(subject string, data []byte) error
}

type flusher interface {
	FlushWithContext(ctx context.Context) error
}

var _ Publisher = (*nats.Conn)(nil)

// Envelope is the JSON body published for each recipient.
type Envelope struct {
	UserID  int64                 `json:"user_id"`
	Msg     notifications.Message `json:"msg"`
	Created time.Time             `json:"created"`
}

// NATSChannel publishes each recipient's notification to a per-user NATS
// subject for gateways that push them to browsers or devices. Nothing is
// persisted and single dispatch returns no UserNotification.
type NATSChannel struct {
	base
	pub    Publisher
	prefix string
}

var _ notifications.Channel = (*NATSChannel)(nil)

// NewNATSChannel returns a channel publishing through pub under
// subjectPrefix, or DefaultSubjectPrefix when it is empty.
func NewNATSChannel(pub Publisher, subjectPrefix string, opts ...Option) *NATSChannel {
	if subjectPrefix == "" {
		subjectPrefix = DefaultSubjectPrefix
	}
	return &NATSChannel{
		base:   newBase(NATSChannelName, opts),
		pub:    pub,
		prefix: subjectPrefix,
	}
}

// ConnectNATS dials url with a client name and unlimited reconnects.
func ConnectNATS(url string, opts ...nats.Option) (*nats.Conn, error) {
	opts = append([]nats.Option{
		nats.Name("notifications"),
		nats.MaxReconnects(-1),
	}, opts...)
	nc, err := nats.Connect(url, opts...)
	if err != nil {
		return nil, errors.Join(ErrConnect, err)
	}
	return nc, nil
}

// Subject returns the subject notifications for userID are published to.
func (c *NATSChannel) Subject(userID int64) string {
	return c.prefix + "." + strconv.FormatInt(userID, 10)
}

func (c *NATSChannel) DispatchToUser(ctx context.Context, userID int64, msg notifications.Message, _ map[string]any) (*notifications.UserNotification, error) {
	msg, ok := c.prepare(ctx, msg)
	if !ok {
		return nil, nil
	}
	if err := c.publish(userID, msg); err != nil {
		return nil, err
	}
	if err := c.flush(ctx); err != nil {
		return nil, err
	}
	c.metrics.RecordDeliveries(c.name, 1)
	return nil, nil
}

// BulkDispatch publishes one message per recipient. Publish failures for a
// recipient are logged and skipped; a stream or flush error aborts.
func (c *NATSChannel) BulkDispatch(ctx context.Context, userIDs notifications.UserIDStream, msg notifications.Message, exclude notifications.IDSet, _ map[string]any) (int, error) {
	msg, ok := c.prepare(ctx, msg)
	if !ok {
		return 0, nil
	}

	published := 0
	err := each(userIDs, exclude, func(userID int64) {
		if err := c.publish(userID, msg); err != nil {
			c.logger.LogAttrs(ctx, slog.LevelWarn, "nats publish failed",
				logger.UserID(userID),
				logger.Error(err),
			)
			return
		}
		published++
	})
	if err != nil {
		return published, err
	}
	if err := c.flush(ctx); err != nil {
		return published, err
	}
	c.metrics.RecordDeliveries(c.name, published)
	return published, nil
}

func (c *NATSChannel) publish(userID int64, msg notifications.Message) error {
	data, err := json.Marshal(Envelope{UserID: userID, Msg: msg, Created: c.clock.Now()})
	if err != nil {
		return errors.Join(ErrPublish, err)
	}
	if err := c.pub.Publish(c.Subject(userID), data); err != nil {
		return errors.Join(ErrPublish, err)
	}
	return nil
}

func (c *NATSChannel) flush(ctx context.Context) error {
	f, ok := c.pub.(flusher)
	if !ok {
		return nil
	}
	if err := f.FlushWithContext(ctx); err != nil {
		return errors.Join(ErrPublish, err)
	}
	return nil
}
