// Package broadcast fans values out to in-process subscribers.
//
//	b := broadcast.New[notifications.UserNotification](16)
//	defer b.Close()
//
//	sub := b.Subscribe(ctx)
//	defer sub.Close()
//
//	b.Publish(un)
//	for un := range sub.Receive() {
//	    // push to a websocket, SSE stream ...
//	}
//
// Publish never blocks. A subscriber whose buffer is full misses the value
// and is dropped; its Receive channel is closed. Subscriptions also end when
// their context is done or the broadcaster is closed.
package broadcast
