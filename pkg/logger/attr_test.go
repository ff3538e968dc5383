package logger_test

import (
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifycore/pkg/logger"
)

func TestGroup(t *testing.T) {
	attr := logger.Group("dispatch", slog.String("id", "1"), slog.Int("n", 2))
	require.Equal(t, "dispatch", attr.Key)
	require.Equal(t, slog.KindGroup, attr.Value.Kind())
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, "id", g[0].Key)
	assert.Equal(t, "n", g[1].Key)
}

func TestErrors(t *testing.T) {
	err1 := errors.New("first")
	err2 := errors.New("second")

	attr := logger.Errors(err1, nil, err2)
	require.Equal(t, "errors", attr.Key)
	g := attr.Value.Group()
	require.Len(t, g, 2)
	assert.Equal(t, err1, g[0].Value.Any())
	assert.Equal(t, err2, g[1].Value.Any())

	assert.True(t, logger.Errors(nil).Equal(slog.Attr{}))
}

func TestError(t *testing.T) {
	err := errors.New("boom")
	attr := logger.Error(err)
	require.Equal(t, "error", attr.Key)
	assert.Equal(t, err, attr.Value.Any())

	assert.True(t, logger.Error(nil).Equal(slog.Attr{}))
}

func TestDomainAttrs(t *testing.T) {
	tests := []struct {
		name  string
		attr  slog.Attr
		key   string
		value any
	}{
		{name: "user id", attr: logger.UserID(7), key: "user_id", value: int64(7)},
		{name: "message id", attr: logger.MessageID(42), key: "message_id", value: int64(42)},
		{name: "notification type", attr: logger.NotificationType("a.b"), key: "notification_type", value: "a.b"},
		{name: "channel", attr: logger.Channel("durable"), key: "channel", value: "durable"},
		{name: "scope", attr: logger.Scope("course"), key: "scope", value: "course"},
		{name: "bulk id", attr: logger.BulkID("abc"), key: "bulk_id", value: "abc"},
		{name: "count", attr: logger.Count(3), key: "count", value: int64(3)},
		{name: "component", attr: logger.Component("publisher"), key: "component", value: "publisher"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.key, tt.attr.Key)
			assert.Equal(t, tt.value, tt.attr.Value.Any())
		})
	}
}

func TestEmptyDomainAttrs(t *testing.T) {
	assert.True(t, logger.MessageID(0).Equal(slog.Attr{}))
	assert.True(t, logger.BulkID("").Equal(slog.Attr{}))
}
