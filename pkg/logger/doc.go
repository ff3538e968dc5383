// Package logger builds *slog.Logger instances for the notification services
// and provides attribute helpers that keep field names consistent across the
// dispatch pipeline.
//
// # Usage
//
//	log := logger.New(
//	    logger.WithEnvironment(os.Getenv("APP_ENV"), "notifications-worker"),
//	    logger.WithContextValue("request_id", ctxKeyRequestID),
//	)
//	logger.SetAsDefault(log)
//
//	log.WarnContext(ctx, "dropping expired notification",
//	    logger.MessageID(msg.ID),
//	    logger.NotificationType(msg.Type.Name),
//	)
//
// Error and Errors return an empty attribute for nil errors, so they can be
// passed unconditionally.
package logger
