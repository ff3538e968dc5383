package notifications

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// steppingClock advances by step on every call.
type steppingClock struct {
	now  time.Time
	step time.Duration
}

func (c *steppingClock) Now() time.Time {
	c.now = c.now.Add(c.step)
	return c.now
}

func seedStore(t *testing.T, s *MemoryStore) (course1, course2 Message) {
	t.Helper()
	ctx := context.Background()

	var err error
	course1, err = s.SaveNotificationMessage(ctx, Message{Type: testType, Namespace: "course-1", Payload: Payload{"n": 1}})
	require.NoError(t, err)
	course2, err = s.SaveNotificationMessage(ctx, Message{Type: NotificationType{Name: "other", Renderer: "json"}, Namespace: "course-2"})
	require.NoError(t, err)

	_, err = s.BulkCreateUserNotifications(ctx, []UserNotification{
		{UserID: 1, MsgID: course1.ID},
		{UserID: 2, MsgID: course1.ID},
		{UserID: 1, MsgID: course2.ID},
	})
	require.NoError(t, err)
	return course1, course2
}

func TestMemoryStore_SaveNotificationMessage(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	s := NewMemoryStore(WithMemoryClock(fixedClock(base)))

	first, err := s.SaveNotificationMessage(ctx, testMessage(Payload{"a": 1}))
	require.NoError(t, err)
	second, err := s.SaveNotificationMessage(ctx, testMessage(nil))
	require.NoError(t, err)

	assert.Equal(t, int64(1), first.ID)
	assert.Equal(t, int64(2), second.ID)
	assert.Equal(t, base, first.Created)
	assert.False(t, second.Created.Before(first.Created))

	first.Payload["a"] = 2
	updated, err := s.SaveNotificationMessage(ctx, first)
	require.NoError(t, err)
	assert.Equal(t, first.ID, updated.ID)
	assert.Equal(t, base, updated.Created)

	got, err := s.GetNotificationMessage(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, got.Payload["a"])

	got.Payload["a"] = 3
	again, err := s.GetNotificationMessage(ctx, first.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, again.Payload["a"], "reads return copies")

	_, err = s.SaveNotificationMessage(ctx, Message{ID: 99, Type: testType})
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.GetNotificationMessage(ctx, 99)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_UserNotifications(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	msg, err := s.SaveNotificationMessage(ctx, testMessage(nil))
	require.NoError(t, err)

	un, err := s.SaveUserNotification(ctx, UserNotification{UserID: 1, MsgID: msg.ID})
	require.NoError(t, err)
	dup, err := s.SaveUserNotification(ctx, UserNotification{UserID: 1, MsgID: msg.ID})
	require.NoError(t, err)
	assert.Equal(t, un.ID, dup.ID, "duplicate pair returns the existing row")

	_, err = s.SaveUserNotification(ctx, UserNotification{UserID: 1, MsgID: 42})
	assert.ErrorIs(t, err, ErrNotFound)

	n, err := s.BulkCreateUserNotifications(ctx, []UserNotification{
		{UserID: 1, MsgID: msg.ID},
		{UserID: 2, MsgID: msg.ID},
		{UserID: 2, MsgID: msg.ID},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	_, err = s.BulkCreateUserNotifications(ctx, []UserNotification{{UserID: 3, MsgID: 42}})
	assert.ErrorIs(t, err, ErrNotFound)

	readAt := time.Date(2026, 2, 2, 0, 0, 0, 0, time.UTC)
	marked, err := s.MarkUserNotificationRead(ctx, un.ID, readAt)
	require.NoError(t, err)
	require.NotNil(t, marked.ReadAt)
	assert.True(t, marked.IsRead())

	got, err := s.GetUserNotification(ctx, un.ID)
	require.NoError(t, err)
	assert.Equal(t, readAt, *got.ReadAt)
	require.NotNil(t, got.Msg)
	assert.Equal(t, msg.ID, got.Msg.ID)

	_, err = s.GetUserNotification(ctx, 404)
	assert.ErrorIs(t, err, ErrNotFound)
	_, err = s.MarkUserNotificationRead(ctx, 404, readAt)
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestMemoryStore_MaxBulkSize(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore(WithMaxBulkSize(2))
	msg, err := s.SaveNotificationMessage(ctx, testMessage(nil))
	require.NoError(t, err)

	_, err = s.BulkCreateUserNotifications(ctx, []UserNotification{
		{UserID: 1, MsgID: msg.ID}, {UserID: 2, MsgID: msg.ID}, {UserID: 3, MsgID: msg.ID},
	})
	assert.ErrorIs(t, err, ErrBulkOperationTooLarge)
}

func TestMemoryStore_GetNotificationsForUser(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore(
		WithMemoryClock(&steppingClock{now: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC), step: time.Second}),
		WithMaxListSize(2),
	)
	course1, course2 := seedStore(t, s)

	tests := []struct {
		name    string
		userID  int64
		filters Filters
		opts    ListOptions
		want    []int64
		wantErr error
	}{
		{name: "newest first", userID: 1, want: []int64{course2.ID, course1.ID}},
		{name: "namespace", userID: 1, filters: Filters{Namespace: "course-1"}, want: []int64{course1.ID}},
		{name: "type name", userID: 1, filters: Filters{TypeName: "other"}, want: []int64{course2.ID}},
		{name: "limit", userID: 1, opts: ListOptions{Limit: 1}, want: []int64{course2.ID}},
		{name: "offset", userID: 1, opts: ListOptions{Offset: 1}, want: []int64{course1.ID}},
		{name: "offset past end", userID: 1, opts: ListOptions{Offset: 5}, want: []int64{}},
		{name: "other user", userID: 2, want: []int64{course1.ID}},
		{name: "limit too large", userID: 1, opts: ListOptions{Limit: 3}, wantErr: ErrLimitTooLarge},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := s.GetNotificationsForUser(ctx, tt.userID, tt.filters, tt.opts)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			ids := make([]int64, 0, len(got))
			for _, un := range got {
				require.NotNil(t, un.Msg)
				ids = append(ids, un.Msg.ID)
			}
			assert.Equal(t, tt.want, ids)
		})
	}
}

func TestMemoryStore_ReadState(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := NewMemoryStore()
	seedStore(t, s)

	count, err := s.CountNotificationsForUser(ctx, 1, Filters{})
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	changed, err := s.MarkUserNotificationsRead(ctx, 1, Filters{Namespace: "course-1"})
	require.NoError(t, err)
	assert.Equal(t, 1, changed)

	unread, err := s.CountNotificationsForUser(ctx, 1, Filters{Read: UnreadOnly})
	require.NoError(t, err)
	assert.Equal(t, 1, unread)

	read, err := s.CountNotificationsForUser(ctx, 1, Filters{Read: ReadOnly})
	require.NoError(t, err)
	assert.Equal(t, 1, read)

	changed, err = s.MarkUserNotificationsRead(ctx, 1, Filters{})
	require.NoError(t, err)
	assert.Equal(t, 1, changed, "already read rows are not counted")
}

func TestMemoryStore_Purge(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	start := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	clock := &steppingClock{now: start, step: 0}
	s := NewMemoryStore(WithMemoryClock(clock), WithArchive(true))
	course1, _ := seedStore(t, s)

	_, err := s.MarkUserNotificationsRead(ctx, 2, Filters{})
	require.NoError(t, err)

	clock.now = start.Add(48 * time.Hour)
	purged, err := s.PurgeExpiredNotifications(ctx, PurgeOptions{ReadOlderThan: 24 * time.Hour})
	require.NoError(t, err)
	assert.Equal(t, 1, purged)

	archived := s.Archived()
	require.Len(t, archived, 1)
	assert.Equal(t, int64(2), archived[0].UserID)
	assert.Equal(t, course1.ID, archived[0].MsgID)

	purged, err = s.PurgeExpiredNotifications(ctx, PurgeOptions{})
	require.NoError(t, err)
	assert.Zero(t, purged, "zero cut-offs disable purging")

	purged, err = s.PurgeExpiredNotifications(ctx, PurgeOptions{UnreadOlderThan: time.Hour})
	require.NoError(t, err)
	assert.Equal(t, 2, purged)

	count, err := s.CountNotificationsForUser(ctx, 1, Filters{})
	require.NoError(t, err)
	assert.Zero(t, count)
}

func TestMemoryStore_GetAllNamespaces(t *testing.T) {
	t.Parallel()

	s := NewMemoryStore()
	seedStore(t, s)

	got, err := s.GetAllNamespaces(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"course-1", "course-2"}, got)
}

func TestMemoryStore_CancelledContext(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := NewMemoryStore().SaveNotificationMessage(ctx, testMessage(nil))
	assert.ErrorIs(t, err, context.Canceled)
}
