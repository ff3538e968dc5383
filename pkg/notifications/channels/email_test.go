package channels_test

import (
	"context"
	"testing"
	"testing/fstest"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dmitrymomot/notifycore/pkg/notifications"
	"github.com/dmitrymomot/notifycore/pkg/notifications/channels"
)

func newEmailCore(t *testing.T) *notifications.Core {
	t.Helper()

	fsys := fstest.MapFS{
		"reply.html":    {Data: []byte(`<p>{{.name}} replied</p>`)},
		"reply.fr.html": {Data: []byte(`<p>{{.name}} a répondu</p>`)},
	}
	core := notifications.New(notifications.NewMemoryStore(),
		notifications.WithLogger(quiet()),
		notifications.WithClock(fixedClock()),
		notifications.WithLinkTemplates(map[string]string{replyType.Name: "/t/{thread_id}"}),
		notifications.WithTypeChannel(replyType.Name, channels.EmailChannelName),
	)
	require.NoError(t, core.RegisterRenderer(replyType.Renderer, notifications.NewClientTemplateRenderer(
		notifications.FSAssetSource{FS: fsys}, "reply.html",
		notifications.WithLanguageVariant("fr", "reply.fr.html"),
	)))
	require.NoError(t, core.RegisterNotificationType(replyType))
	return core
}

func addressBook() channels.AddressBook {
	book := map[int64]channels.Address{
		1: {Email: "ada@example.com", Language: "en"},
		3: {Email: "excluded@example.com"},
		4: {Email: "bob@example.com", Language: "fr"},
		5: {Email: "bounce@example.com"},
	}
	return channels.AddressBookFunc(func(_ context.Context, userID int64) (channels.Address, error) {
		addr, ok := book[userID]
		if !ok {
			return channels.Address{}, channels.ErrNoAddress
		}
		return addr, nil
	})
}

func TestEmailChannel_BulkDispatch(t *testing.T) {
	t.Parallel()

	core := newEmailCore(t)
	sender := &recordingSender{fail: map[string]error{"bounce@example.com": errBoom}}
	ch := channels.NewEmailChannel(core, addressBook(), sender, channels.WithLogger(quiet()), channels.WithClock(fixedClock()))
	require.NoError(t, core.RegisterChannel(ch))

	n, err := core.BulkPublishToUsers(context.Background(),
		notifications.UserIDs(1, 2, 3, 4, 5, 1), replyMessage(), notifications.NewIDSet(3), nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	require.Len(t, sender.sent, 2)
	assert.Equal(t, "ada@example.com", sender.sent[0].SendTo)
	assert.Equal(t, "New reply", sender.sent[0].Subject)
	assert.Equal(t, replyType.Name, sender.sent[0].Tag)
	assert.Contains(t, sender.sent[0].BodyHTML, "<p>Ada replied</p>")
	assert.Contains(t, sender.sent[0].BodyHTML, `href="/t/abc"`)

	assert.Equal(t, "bob@example.com", sender.sent[1].SendTo)
	assert.Contains(t, sender.sent[1].BodyHTML, "a répondu")
}

func TestEmailChannel_DispatchToUser(t *testing.T) {
	t.Parallel()

	core := newEmailCore(t)
	sender := &recordingSender{}
	ch := channels.NewEmailChannel(core, addressBook(), sender, channels.WithLogger(quiet()), channels.WithClock(fixedClock())).
		WithSubjectFunc(func(msg notifications.Message) string { return "Re: " + msg.Payload["thread_id"].(string) })
	require.NoError(t, core.RegisterChannel(ch))

	un, err := core.PublishToUser(context.Background(), 1, replyMessage(), nil)
	require.NoError(t, err)
	assert.Nil(t, un)
	require.Len(t, sender.sent, 1)
	assert.Equal(t, "Re: abc", sender.sent[0].Subject)

	_, err = core.PublishToUser(context.Background(), 2, replyMessage(), nil)
	assert.ErrorIs(t, err, channels.ErrNoAddress)
}

func TestEmailChannel_Expired(t *testing.T) {
	t.Parallel()

	core := newEmailCore(t)
	sender := &recordingSender{}
	ch := channels.NewEmailChannel(core, addressBook(), sender, channels.WithLogger(quiet()), channels.WithClock(fixedClock()))

	expired := fixedNow.Add(-time.Minute)
	msg := replyMessage()
	msg.ExpiresAt = &expired

	n, err := ch.BulkDispatch(context.Background(), notifications.UserIDs(1, 4), msg, nil, nil)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Empty(t, sender.sent)
}

func TestEmailChannel_StreamError(t *testing.T) {
	t.Parallel()

	core := newEmailCore(t)
	sender := &recordingSender{}
	ch := channels.NewEmailChannel(core, addressBook(), sender, channels.WithLogger(quiet()))

	stream := notifications.Concat(notifications.UserIDs(1), func(yield func(int64, error) bool) {
		yield(0, errBoom)
	})
	n, err := ch.BulkDispatch(context.Background(), stream, replyMessage(), nil, nil)
	assert.ErrorIs(t, err, errBoom)
	assert.Equal(t, 1, n)
}

func TestDefaultSubject(t *testing.T) {
	t.Parallel()

	assert.Equal(t, "New reply", channels.DefaultSubject(replyMessage()))
	assert.Equal(t, "New notification", channels.DefaultSubject(notifications.Message{}))
}
