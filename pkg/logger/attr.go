package logger

import (
	"log/slog"
	"strconv"
	"time"
)

// Group creates a slog group attribute from the provided attributes.
func Group(name string, attrs ...slog.Attr) slog.Attr {
	return slog.Attr{Key: name, Value: slog.GroupValue(attrs...)}
}

// Errors groups multiple non-nil errors under the key "errors".
// If all errors are nil, it returns an empty Attr.
func Errors(errs ...error) slog.Attr {
	as := make([]slog.Attr, 0, len(errs))
	for i, err := range errs {
		if err != nil {
			as = append(as, slog.Any(strconv.Itoa(i), err))
		}
	}
	if len(as) == 0 {
		return slog.Attr{}
	}
	return slog.Attr{Key: "errors", Value: slog.GroupValue(as...)}
}

// Error creates an attribute for a single error under the key "error".
// If err is nil, it returns an empty Attr.
func Error(err error) slog.Attr {
	if err == nil {
		return slog.Attr{}
	}
	return slog.Any("error", err)
}

// UserID records the recipient identifier under the key "user_id".
func UserID(id int64) slog.Attr {
	return slog.Int64("user_id", id)
}

// MessageID records the notification message identifier under the key "message_id".
// Zero ids belong to messages that were not persisted yet and produce an empty Attr.
func MessageID(id int64) slog.Attr {
	if id == 0 {
		return slog.Attr{}
	}
	return slog.Int64("message_id", id)
}

// NotificationType records the notification type name under the key "notification_type".
func NotificationType(name string) slog.Attr {
	return slog.String("notification_type", name)
}

// Channel records the channel provider name under the key "channel".
func Channel(name string) slog.Attr {
	return slog.String("channel", name)
}

// Scope records the audience scope name under the key "scope".
func Scope(name string) slog.Attr {
	return slog.String("scope", name)
}

// BulkID records the correlation id of a bulk dispatch under the key "bulk_id".
func BulkID(id string) slog.Attr {
	if id == "" {
		return slog.Attr{}
	}
	return slog.String("bulk_id", id)
}

// Count records a number of processed items under the key "count".
func Count(n int) slog.Attr {
	return slog.Int("count", n)
}

// Duration records a duration under the key "duration".
func Duration(d time.Duration) slog.Attr {
	return slog.Duration("duration", d)
}

// Component records the component name under the key "component".
func Component(name string) slog.Attr {
	return slog.String("component", name)
}
