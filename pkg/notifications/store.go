package notifications

import (
	"context"
	"time"
)

// DefaultMaxListSize bounds a single page returned by QueryStore listings.
const DefaultMaxListSize = 100

// Store persists messages and per-user notification rows.
//
// Implementations must enforce uniqueness of (UserID, MsgID) on user
// notifications and may drop duplicate inserts silently. Message ids and
// creation times are assigned by the store and increase monotonically.
type Store interface {
	// SaveNotificationMessage inserts msg when msg.ID is zero and updates it
	// otherwise. The returned message carries the assigned ID and Created.
	SaveNotificationMessage(ctx context.Context, msg Message) (Message, error)

	// SaveUserNotification inserts a single per-user row.
	SaveUserNotification(ctx context.Context, un UserNotification) (UserNotification, error)

	// BulkCreateUserNotifications inserts a batch and returns the number of rows
	// actually written. Duplicates are not counted.
	BulkCreateUserNotifications(ctx context.Context, batch []UserNotification) (int, error)

	// GetNotificationMessage returns ErrNotFound for unknown ids.
	GetNotificationMessage(ctx context.Context, id int64) (Message, error)

	// GetUserNotification returns the row with its message attached, or ErrNotFound.
	GetUserNotification(ctx context.Context, id int64) (UserNotification, error)

	// MarkUserNotificationRead sets ReadAt on the row.
	MarkUserNotificationRead(ctx context.Context, id int64, readAt time.Time) (UserNotification, error)
}

// ReadState filters user notifications by read status.
type ReadState int

const (
	ReadAny ReadState = iota
	ReadOnly
	UnreadOnly
)

// Filters narrows consumer queries. Zero values match everything.
type Filters struct {
	Namespace string
	TypeName  string
	Read      ReadState
}

// ListOptions paginates GetNotificationsForUser. A zero Limit means the
// store's maximum page size.
type ListOptions struct {
	Limit  int
	Offset int
}

// PurgeOptions configures PurgeExpiredNotifications. A zero duration
// disables the corresponding cut-off.
type PurgeOptions struct {
	ReadOlderThan   time.Duration
	UnreadOlderThan time.Duration
}

// QueryStore adds the consumer-side operations used to list, count, mark
// and purge user notifications.
type QueryStore interface {
	Store

	// GetNotificationsForUser returns rows newest first.
	GetNotificationsForUser(ctx context.Context, userID int64, f Filters, opts ListOptions) ([]UserNotification, error)
	CountNotificationsForUser(ctx context.Context, userID int64, f Filters) (int, error)
	// MarkUserNotificationsRead marks every unread row matching f and returns how many changed.
	MarkUserNotificationsRead(ctx context.Context, userID int64, f Filters) (int, error)
	// PurgeExpiredNotifications deletes rows past the cut-offs and returns how many were removed.
	PurgeExpiredNotifications(ctx context.Context, opts PurgeOptions) (int, error)
	GetAllNamespaces(ctx context.Context) ([]string, error)
}
