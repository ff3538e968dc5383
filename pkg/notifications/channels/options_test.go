package channels_test

import (
	"context"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifycore/pkg/notifications"
	"github.com/dmitrymomot/notifycore/pkg/notifications/channels"
)

func TestChannels_DropExpired(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		build func(t *testing.T, opts ...channels.Option) notifications.Channel
	}{
		{
			name: channels.BroadcastChannelName,
			build: func(t *testing.T, opts ...channels.Option) notifications.Channel {
				ch := channels.NewBroadcastChannel(1, 10, opts...)
				t.Cleanup(func() { _ = ch.Close() })
				return ch
			},
		},
		{
			name: channels.NATSChannelName,
			build: func(_ *testing.T, opts ...channels.Option) notifications.Channel {
				return channels.NewNATSChannel(&recordingPublisher{}, "", opts...)
			},
		},
		{
			name: channels.EmailChannelName,
			build: func(t *testing.T, opts ...channels.Option) notifications.Channel {
				return channels.NewEmailChannel(newEmailCore(t), addressBook(), &recordingSender{}, opts...)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			metrics := notifications.NewMetrics(prometheus.NewRegistry())
			ch := tt.build(t,
				channels.WithLogger(quiet()),
				channels.WithClock(fixedClock()),
				channels.WithMetrics(metrics),
			)

			msg := replyMessage()
			expiresAt := fixedNow.Add(-time.Minute)
			msg.ExpiresAt = &expiresAt

			n, err := ch.BulkDispatch(context.Background(), notifications.UserIDs(1, 4), msg, nil, nil)
			require.NoError(t, err)
			assert.Zero(t, n)

			un, err := ch.DispatchToUser(context.Background(), 1, msg, nil)
			require.NoError(t, err)
			assert.Nil(t, un)

			assert.Equal(t, float64(2), testutil.ToFloat64(metrics.Dropped.WithLabelValues(tt.name, "expired")))
			assert.Zero(t, testutil.ToFloat64(metrics.RowsWritten.WithLabelValues(tt.name)))
		})
	}
}
