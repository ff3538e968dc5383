package channels

import "errors"

var (
	// ErrConnect is returned when a transport connection cannot be established.
	ErrConnect = errors.New("channels: connect failed")

	// ErrPublish is returned when a push notification cannot be published.
	ErrPublish = errors.New("channels: publish failed")

	// ErrNoAddress is returned by address books for users without an email address.
	ErrNoAddress = errors.New("channels: no email address for user")
)
