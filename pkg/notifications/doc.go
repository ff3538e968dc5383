// Package notifications expands symbolic audiences into user ids and
// delivers messages to them through pluggable channels.
//
// # Architecture
//
//   - Registries: notification types, renderers, scope resolvers and channels,
//     all owned by a Core built once per process.
//   - Store: persistence contract for messages and per-user rows. MemoryStore
//     is the in-process implementation; pgstore provides PostgreSQL.
//   - DurableChannel: saves one canonical message and fans out per-user rows
//     in chunks of Config.BulkChunkSize.
//   - LinkResolver: fills Message.ClickLink from per-type URL templates.
//
// # Basic Usage
//
//	core := notifications.New(notifications.NewMemoryStore(),
//	    notifications.WithLinkTemplates(map[string]string{
//	        "open-edx.lms.discussions.*": "/courses/{course_id}/t/{thread_id}",
//	    }),
//	)
//
//	replyType := notifications.NotificationType{
//	    Name:     "open-edx.lms.discussions.reply-to-thread",
//	    Renderer: notifications.JSONRendererName,
//	}
//	if err := core.RegisterNotificationType(replyType); err != nil {
//	    return err
//	}
//
//	msg := notifications.Message{
//	    Type:      replyType,
//	    Namespace: "course-v1:edX+DemoX",
//	    Payload:   notifications.Payload{"course_id": "demo", "thread_id": "abc"},
//	}
//
//	// One recipient.
//	un, err := core.PublishToUser(ctx, 42, msg, nil)
//
//	// A whole audience, resolved by the resolvers registered for "course".
//	core.RegisterScopeResolver("course", enrollments, nil)
//	n, err := core.BulkPublishToScope(ctx, "course", map[string]any{"course_id": "demo"},
//	    msg, notifications.NewIDSet(42), nil)
//
// # Scope Resolvers
//
// A resolver returns nil for "no opinion" or any value ToUserIDStream
// accepts: int slices, iter.Seq and iter.Seq2 sequences, channels and
// database cursors. Streams are consumed lazily; bulk publishing never
// materializes the audience. Resolvers registered for the same scope are
// concatenated in registration order and deduplicated by the bulk publisher.
//
// # Routing
//
// The channel for a message is chosen by a per-user override, then a type
// mapping (exact name, "prefix.*" or "*"), then the default channel.
// Bulk publishing routes by type only. Stores implementing PreferenceStore
// persist per-user overrides through SetChannelPreference.
//
// # Timers
//
// Publish stores a message whose DeliverNoEarlierThan lies in the future as
// a timer. A TimerRunner fires due timers through registered callbacks such
// as PublishCallback and the Purger.
//
// # Errors
//
// Failures are reported with sentinel errors matched by errors.Is.
// Store failures match ErrStore and keep the underlying cause. A bulk
// dispatch that fails midway leaves earlier chunks written; repeating it with
// the same message id is safe.
package notifications
