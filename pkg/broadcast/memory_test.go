package broadcast_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifycore/pkg/broadcast"
)

func TestBroadcaster_Publish(t *testing.T) {
	t.Parallel()

	b := broadcast.New[int](4)
	defer b.Close()

	ctx := context.Background()
	first := b.Subscribe(ctx)
	second := b.Subscribe(ctx)
	require.Equal(t, 2, b.Len())

	assert.Equal(t, 2, b.Publish(7))
	assert.Equal(t, 7, <-first.Receive())
	assert.Equal(t, 7, <-second.Receive())
}

func TestBroadcaster_SlowSubscriberDropped(t *testing.T) {
	t.Parallel()

	b := broadcast.New[int](1)
	defer b.Close()

	sub := b.Subscribe(context.Background())
	assert.Equal(t, 1, b.Publish(1))
	assert.Equal(t, 0, b.Publish(2))

	assert.Eventually(t, func() bool { return b.Len() == 0 }, time.Second, 5*time.Millisecond)

	v, ok := <-sub.Receive()
	assert.True(t, ok)
	assert.Equal(t, 1, v)
	_, ok = <-sub.Receive()
	assert.False(t, ok)
}

func TestBroadcaster_ContextCancel(t *testing.T) {
	t.Parallel()

	b := broadcast.New[string](4)
	defer b.Close()

	ctx, cancel := context.WithCancel(context.Background())
	sub := b.Subscribe(ctx)
	cancel()

	assert.Eventually(t, func() bool { return b.Len() == 0 }, time.Second, 5*time.Millisecond)
	_, ok := <-sub.Receive()
	assert.False(t, ok)
	assert.Equal(t, 0, b.Publish("late"))
}

func TestBroadcaster_Close(t *testing.T) {
	t.Parallel()

	b := broadcast.New[string](4)
	sub := b.Subscribe(context.Background())

	require.NoError(t, b.Close())
	require.NoError(t, b.Close())

	_, ok := <-sub.Receive()
	assert.False(t, ok)
	assert.NoError(t, sub.Close())

	closed := b.Subscribe(context.Background())
	_, ok = <-closed.Receive()
	assert.False(t, ok)
	assert.Equal(t, 0, b.Publish("after close"))
}
