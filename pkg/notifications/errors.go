package notifications

import "errors"

var (
	// ErrInvalidMessage is returned when a message fails validation: missing or
	// unregistered type, non JSON-serializable payload, expiry before creation.
	ErrInvalidMessage = errors.New("notifications: invalid message")

	// ErrInvalidTypeName is returned when a notification type name is empty,
	// longer than 255 characters or contains characters outside [A-Za-z0-9._-].
	ErrInvalidTypeName = errors.New("notifications: invalid notification type name")

	// ErrTypeConflict is returned when a type name is re-registered with a different renderer.
	ErrTypeConflict = errors.New("notifications: notification type already registered with a different renderer")

	// ErrUnknownType is returned when a type name is not registered.
	ErrUnknownType = errors.New("notifications: unknown notification type")

	// ErrUnknownRenderer is returned when a type references a renderer that is not registered.
	ErrUnknownRenderer = errors.New("notifications: unknown renderer")

	// ErrRendererExists is returned when a renderer name is registered twice.
	ErrRendererExists = errors.New("notifications: renderer already registered")

	// ErrNoScopeResolver is returned when a scope yields no audience.
	ErrNoScopeResolver = errors.New("notifications: no scope resolver produced user ids")

	// ErrScopeResolverType is returned when a resolver returns a value that is not a user id stream.
	ErrScopeResolverType = errors.New("notifications: scope resolver returned an unsupported type")

	// ErrNoChannel is returned when routing yields no registered channel provider.
	ErrNoChannel = errors.New("notifications: no channel for notification")

	// ErrChannelExists is returned when a channel name is registered twice.
	ErrChannelExists = errors.New("notifications: channel already registered")

	// ErrLinkResolution is returned when a link template references a placeholder
	// missing from both the payload and the click link params.
	ErrLinkResolution = errors.New("notifications: link template placeholder missing")

	// ErrRender is returned when a renderer cannot produce the requested format
	// or its template asset cannot be loaded or compiled.
	ErrRender = errors.New("notifications: render failed")

	// ErrStore wraps every error returned by a Store.
	ErrStore = errors.New("notifications: store operation failed")

	// ErrNotFound is returned by stores for missing messages or user notifications.
	ErrNotFound = errors.New("notifications: not found")

	// ErrBulkOperationTooLarge is returned by stores for batches above their size limit.
	ErrBulkOperationTooLarge = errors.New("notifications: bulk operation too large")

	// ErrStoreUnsupported is returned when the configured store does not
	// implement the timer or preference operations a call needs.
	ErrStoreUnsupported = errors.New("notifications: store does not support this operation")

	// ErrNameRequired is returned when a timer or preference is saved without a name.
	ErrNameRequired = errors.New("notifications: name is required")

	// ErrUnknownTimerCallback is returned when a due timer names a callback that is not registered.
	ErrUnknownTimerCallback = errors.New("notifications: unknown timer callback")

	// ErrNoAudience is returned when a publish request names neither user ids nor a scope.
	ErrNoAudience = errors.New("notifications: publish request names neither user ids nor a scope")

	// ErrLimitTooLarge is returned when a listing asks for more rows than the maximum page size.
	ErrLimitTooLarge = errors.New("notifications: list limit too large")
)

func storeErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, ErrStore) {
		return err
	}
	return errors.Join(ErrStore, err)
}
