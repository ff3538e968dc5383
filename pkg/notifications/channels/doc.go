// Package channels provides channel providers beyond the built-in durable
// channel:
//
//   - EmailChannel renders the HTML format of a message and sends it through
//     an email.EmailSender (Postmark or the file based dev sender).
//   - BroadcastChannel pushes notifications to in-process subscribers, one
//     broadcaster per user.
//   - NATSChannel publishes a JSON Envelope to "<prefix>.<user_id>".
//
// None of them write UserNotification rows; DispatchToUser returns a nil
// row. Register them on the core and route types or users to them:
//
//	core := notifications.New(store,
//	    notifications.WithTypeChannel("open-edx.lms.digest.*", channels.EmailChannelName))
//	core.RegisterChannel(channels.NewEmailChannel(core, addressBook, sender))
//
// Expired messages are dropped with a warning. Bulk dispatch is best effort
// per recipient; an error from the user id stream aborts it.
package channels
