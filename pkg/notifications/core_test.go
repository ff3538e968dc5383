package notifications

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestCore(t *testing.T, store Store, opts ...Option) *Core {
	t.Helper()
	return New(store, opts...)
}

func TestCore_PublishToUser(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	core := newTestCore(t, store)

	t1 := NotificationType{Name: "T1", Renderer: JSONRendererName}
	require.NoError(t, core.RegisterNotificationType(t1))
	msg := Message{Type: t1, Payload: Payload{"foo": "bar"}}

	un, err := core.PublishToUser(context.Background(), 7, msg, nil)
	require.NoError(t, err)
	require.NotNil(t, un)
	assert.Equal(t, int64(7), un.UserID)

	stored, err := store.GetNotificationMessage(context.Background(), un.MsgID)
	require.NoError(t, err)
	assert.Equal(t, Payload{"foo": "bar"}, stored.Payload)

	row, err := store.GetUserNotification(context.Background(), un.ID)
	require.NoError(t, err)
	assert.Equal(t, stored.ID, row.MsgID)
	assert.Equal(t, []int64{7}, usersOf(t, store.MemoryStore, stored.ID))

	out, err := core.Render(context.Background(), msg, FormatJSON, "en")
	require.NoError(t, err)
	assert.Equal(t, `{"foo":"bar"}`, out)

	_, err = core.PublishToUser(context.Background(), 7, Message{Payload: Payload{"a": 1}}, nil)
	require.ErrorIs(t, err, ErrInvalidMessage)
	assert.NotErrorIs(t, err, ErrUnknownRenderer)
}

func TestCore_PublishToUser_RegistersType(t *testing.T) {
	t.Parallel()

	core := newTestCore(t, NewMemoryStore())
	auto := NotificationType{Name: "auto.registered", Renderer: JSONRendererName}

	_, err := core.PublishToUser(context.Background(), 1, Message{Type: auto}, nil)
	require.NoError(t, err)

	got, err := core.NotificationType("auto.registered")
	require.NoError(t, err)
	assert.Equal(t, auto.Renderer, got.Renderer)

	_, err = core.PublishToUser(context.Background(), 1, Message{Type: NotificationType{Name: "auto.registered", Renderer: "other"}}, nil)
	assert.ErrorIs(t, err, ErrUnknownRenderer)

	_, err = core.PublishToUser(context.Background(), 1, Message{Type: NotificationType{Name: "x", Renderer: "html"}}, nil)
	assert.ErrorIs(t, err, ErrUnknownRenderer)
}

func TestCore_BulkPublishToScope(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	core := newTestCore(t, store, WithBulkChunkSize(2))
	require.NoError(t, core.RegisterNotificationType(testType))
	core.RegisterScopeResolver("course", staticResolver([]int64{1, 2, 3, 4, 5}), nil)

	n, err := core.BulkPublishToScope(context.Background(), "course", map[string]any{"course_id": "c1"},
		testMessage(Payload{"a": 1}), NewIDSet(3), nil)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []int{2, 2}, store.calls())
	assert.ElementsMatch(t, []int64{1, 2, 4, 5}, usersOf(t, store.MemoryStore, 1))
}

func TestCore_BulkPublishDeduplicates(t *testing.T) {
	t.Parallel()

	store := newRecordingStore()
	core := newTestCore(t, store, WithBulkChunkSize(10))
	require.NoError(t, core.RegisterNotificationType(testType))
	core.RegisterScopeResolver("cohort", staticResolver([]int64{1, 2, 3}), nil)
	core.RegisterScopeResolver("cohort", staticResolver([]int{3, 4, 1}), nil)

	n, err := core.BulkPublishToScope(context.Background(), "cohort", nil, testMessage(nil), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, n)
	assert.Equal(t, []int{4}, store.calls(), "duplicates never reach the store")

	n, err = core.BulkPublishToUsers(context.Background(), UserIDs(9, 9, 9, 8), testMessage(nil), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestCore_BulkPublishToScope_Errors(t *testing.T) {
	t.Parallel()

	core := newTestCore(t, NewMemoryStore())
	require.NoError(t, core.RegisterNotificationType(testType))
	core.RegisterScopeResolver("bad", staticResolver(7), nil)
	core.RegisterScopeResolver("empty", staticResolver(nil), nil)

	tests := []struct {
		name    string
		scope   string
		msg     Message
		wantErr error
	}{
		{name: "resolver type", scope: "bad", msg: testMessage(nil), wantErr: ErrScopeResolverType},
		{name: "no opinion", scope: "empty", msg: testMessage(nil), wantErr: ErrNoScopeResolver},
		{name: "unregistered scope", scope: "nobody", msg: testMessage(nil), wantErr: ErrNoScopeResolver},
		{name: "invalid message", scope: "empty", msg: Message{}, wantErr: ErrInvalidMessage},
		{name: "unknown type", scope: "empty", msg: Message{Type: NotificationType{Name: "nope"}}, wantErr: ErrUnknownType},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := core.BulkPublishToScope(context.Background(), tt.scope, map[string]any{}, tt.msg, nil, nil)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestCore_BulkPublishToScope_ClosesCursor(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-time.Hour)
	expired := testMessage(nil)
	expired.ExpiresAt = &past
	failing := ScopeResolverFunc(func(context.Context, string, map[string]any, map[string]any) (any, error) {
		return nil, errBoom
	})

	tests := []struct {
		name     string
		store    func() Store
		opts     []Option
		msg      Message
		extra    ScopeResolver
		wantN    int
		wantErr  error
		iterated bool
	}{
		{name: "delivered", msg: testMessage(nil), wantN: 2, iterated: true},
		{name: "expired", msg: expired},
		{name: "route failure", opts: []Option{WithTypeChannel(testType.Name, "missing")}, msg: testMessage(nil), wantErr: ErrNoChannel},
		{
			name: "save failure",
			store: func() Store {
				s := newRecordingStore()
				s.failSave = true
				return s
			},
			msg:     testMessage(nil),
			wantErr: ErrStore,
		},
		{name: "later resolver fails", msg: testMessage(nil), extra: failing, wantErr: errBoom},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			store := Store(NewMemoryStore())
			if tt.store != nil {
				store = tt.store()
			}
			core := newTestCore(t, store, tt.opts...)
			require.NoError(t, core.RegisterNotificationType(testType))

			cursor := &sliceCursor{items: []any{int64(1), int64(2)}}
			core.RegisterScopeResolver("course", staticResolver(cursor), nil)
			if tt.extra != nil {
				core.RegisterScopeResolver("course", tt.extra, nil)
			}

			n, err := core.BulkPublishToScope(context.Background(), "course", map[string]any{"course_id": "c1"}, tt.msg, nil, nil)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantN, n)
			}
			assert.Equal(t, 1, cursor.closes)
			assert.Equal(t, tt.iterated, cursor.pos > 0)
		})
	}
}

func TestCore_ResolveUserScope(t *testing.T) {
	t.Parallel()

	core := newTestCore(t, NewMemoryStore())
	core.RegisterScopeResolver("bad", staticResolver(7), nil)

	_, err := core.ResolveUserScope(context.Background(), "bad", map[string]any{})
	assert.ErrorIs(t, err, ErrScopeResolverType)

	s, err := core.ResolveUserScope(context.Background(), UserScope, map[string]any{"user_id": 5})
	require.NoError(t, err)
	ids, err := Collect(s)
	require.NoError(t, err)
	assert.Equal(t, []int64{5}, ids)

	assert.True(t, core.HasScopeResolver(UserScope))
	core.ClearScopeResolvers()
	assert.False(t, core.HasScopeResolver(UserScope))
	s, err = core.ResolveUserScope(context.Background(), UserScope, map[string]any{"user_id": 5})
	require.NoError(t, err)
	assert.Nil(t, s)
}

func TestCore_ResolveLinks(t *testing.T) {
	t.Parallel()

	core := newTestCore(t, NewMemoryStore(), WithLinkTemplates(map[string]string{"T2": "/t/{thread_id}"}))
	t2 := NotificationType{Name: "T2", Renderer: JSONRendererName}
	msg := Message{Type: t2, Payload: Payload{"thread_id": "abc"}}

	got := core.ResolveLinks(context.Background(), msg)
	assert.Equal(t, "/t/abc", got.ClickLink)
	assert.Empty(t, msg.ClickLink)

	untouched := core.ResolveLinks(context.Background(), testMessage(nil).WithClickLink("/x", nil))
	assert.Equal(t, "/x", untouched.ClickLink)
}

func TestCore_RenderClientTemplate(t *testing.T) {
	t.Parallel()

	core := newTestCore(t, NewMemoryStore())
	fsys := fstest.MapFS{"n.html": {Data: []byte(`<b>{{.n}}</b>`)}}
	require.NoError(t, core.RegisterRenderer("n-html", NewClientTemplateRenderer(FSAssetSource{FS: fsys}, "n.html")))
	nType := NotificationType{Name: "counter", Renderer: "n-html"}
	require.NoError(t, core.RegisterNotificationType(nType))

	msg := Message{Type: nType, Payload: Payload{"n": 1}}
	for range 2 {
		out, err := core.Render(context.Background(), msg, FormatHTML, "en")
		require.NoError(t, err)
		assert.Equal(t, "<b>1</b>", out)
	}
	assert.Equal(t, Payload{"n": 1}, msg.Payload)

	_, err := core.Render(context.Background(), msg, FormatJSON, "en")
	assert.ErrorIs(t, err, ErrRender)
	_, err = core.Render(context.Background(), Message{Type: NotificationType{Name: "unknown"}}, FormatJSON, "")
	assert.ErrorIs(t, err, ErrUnknownType)

	path, ok := core.TemplatePath("counter", FormatHTML)
	assert.True(t, ok)
	assert.Equal(t, "n.html", path)
	_, ok = core.TemplatePath("unknown", FormatHTML)
	assert.False(t, ok)
}

func TestCore_Routing(t *testing.T) {
	t.Parallel()

	push := &stubChannel{name: "push"}
	core := newTestCore(t, NewMemoryStore(),
		WithTypeChannel("open-edx.lms.*", "push"),
		WithUserChannelOverride("other", 3, "push"),
	)
	require.NoError(t, core.RegisterChannel(push))
	require.NoError(t, core.RegisterNotificationType(NotificationType{Name: "other", Renderer: JSONRendererName}))
	require.NoError(t, core.RegisterNotificationType(testType))

	un, err := core.PublishToUser(context.Background(), 1, testMessage(nil), nil)
	require.NoError(t, err)
	assert.Nil(t, un, "push channels write no rows")

	un, err = core.PublishToUser(context.Background(), 2, Message{Type: NotificationType{Name: "other", Renderer: JSONRendererName}}, nil)
	require.NoError(t, err)
	assert.NotNil(t, un, "durable default")

	_, err = core.PublishToUser(context.Background(), 3, Message{Type: NotificationType{Name: "other", Renderer: JSONRendererName}}, nil)
	require.NoError(t, err)

	n, err := core.BulkPublishToUsers(context.Background(), UserIDs(4, 5), testMessage(nil), NewIDSet(5), nil)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int64{1, 3, 4}, push.users)

	core.Router().SetDefault("nowhere")
	_, err = core.PublishToUser(context.Background(), 9, Message{Type: NotificationType{Name: "other", Renderer: JSONRendererName}}, nil)
	assert.ErrorIs(t, err, ErrNoChannel)
}

func TestCore_WithConfig(t *testing.T) {
	t.Parallel()

	push := &stubChannel{name: "push"}
	store := newRecordingStore()
	core := newTestCore(t, store, WithConfig(Config{
		BulkChunkSize:        3,
		DefaultChannel:       DurableChannelName,
		TypeChannelMap:       map[string]string{"alerts.*": "push"},
		UserChannelOverrides: []UserChannelOverride{{Type: testType.Name, UserID: 2, Channel: "push"}},
		LinkTemplates:        map[string]string{testType.Name: "/n/{id}"},
	}))
	require.NoError(t, core.RegisterChannel(push))
	require.NoError(t, core.RegisterNotificationType(testType))

	assert.Equal(t, 3, core.Durable().ChunkSize())

	ch, err := core.Router().RouteType("alerts.down")
	require.NoError(t, err)
	assert.Equal(t, "push", ch.Name())

	ch, err = core.Router().Route(testType.Name, 2)
	require.NoError(t, err)
	assert.Equal(t, "push", ch.Name())

	un, err := core.PublishToUser(context.Background(), 1, testMessage(Payload{"id": 10}), nil)
	require.NoError(t, err)
	assert.Equal(t, "/n/10", un.Msg.ClickLink)
}

func TestCore_Metrics(t *testing.T) {
	t.Parallel()

	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)
	store := newRecordingStore()
	core := newTestCore(t, store, WithMetrics(metrics), WithBulkChunkSize(2))
	require.NoError(t, core.RegisterNotificationType(testType))

	_, err := core.BulkPublishToUsers(context.Background(), UserIDs(1, 2, 3), testMessage(nil), nil, nil)
	require.NoError(t, err)
	_, err = core.PublishToUser(context.Background(), 4, testMessage(nil), nil)
	require.NoError(t, err)

	assert.Equal(t, float64(4), testutil.ToFloat64(metrics.RowsWritten.WithLabelValues(DurableChannelName)))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Published.WithLabelValues(DurableChannelName, "bulk", "ok")))
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Published.WithLabelValues(DurableChannelName, "single", "ok")))
	assert.Equal(t, 1, testutil.CollectAndCount(metrics.ChunkSize))

	store.failSave = true
	_, err = core.PublishToUser(context.Background(), 5, testMessage(nil), nil)
	require.Error(t, err)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Published.WithLabelValues(DurableChannelName, "single", "error")))
}

func TestCore_ExpiredMessage(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	past := now.Add(-time.Hour)
	reg := prometheus.NewRegistry()
	metrics := NewMetrics(reg)

	core := newTestCore(t, NewMemoryStore(), WithClock(fixedClock(now)), WithMetrics(metrics))
	require.NoError(t, core.RegisterNotificationType(testType))
	msg := testMessage(nil)
	msg.ExpiresAt = &past

	n, err := core.BulkPublishToUsers(context.Background(), UserIDs(1, 2), msg, nil, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, float64(1), testutil.ToFloat64(metrics.Dropped.WithLabelValues(DurableChannelName, "expired")))
}

func TestCore_NotificationTypes(t *testing.T) {
	t.Parallel()

	core := newTestCore(t, NewMemoryStore())
	require.NoError(t, core.RegisterNotificationType(NotificationType{Name: "b", Renderer: JSONRendererName}))
	require.NoError(t, core.RegisterNotificationType(NotificationType{Name: "a", Renderer: JSONRendererName}))
	assert.ErrorIs(t, core.RegisterNotificationType(NotificationType{Name: "a", Renderer: "missing"}), ErrUnknownRenderer)

	types := core.NotificationTypes()
	require.Len(t, types, 2)
	assert.Equal(t, "a", types[0].Name)

	_, err := core.NotificationType("c")
	assert.ErrorIs(t, err, ErrUnknownType)
}
