package notifications

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/dmitrymomot/notifycore/pkg/logger"
)

// timerRequestKey holds the JSON publish request in a publish timer context.
const timerRequestKey = "request"

// PublishRequest addresses a message to explicit users or to a scope.
// UserIDs win when both are set.
type PublishRequest struct {
	UserIDs        []int64        `json:"user_ids,omitempty"`
	ScopeName      string         `json:"scope_name,omitempty"`
	ScopeContext   map[string]any `json:"scope_context,omitempty"`
	Exclude        []int64        `json:"exclude,omitempty"`
	Msg            Message        `json:"msg"`
	ChannelContext map[string]any `json:"channel_context,omitempty"`
}

// Publish registers the message type and delivers req. A message whose
// DeliverNoEarlierThan lies in the future is stored as a one-shot publish
// timer instead; Publish then returns zero deliveries.
func (c *Core) Publish(ctx context.Context, req PublishRequest) (int, error) {
	if len(req.UserIDs) == 0 && req.ScopeName == "" {
		return 0, ErrNoAudience
	}
	if err := c.RegisterNotificationType(req.Msg.Type); err != nil {
		return 0, err
	}

	if at := req.Msg.DeliverNoEarlierThan; at != nil && at.After(c.clock.Now()) {
		if _, err := c.SchedulePublish(ctx, req); err != nil {
			return 0, err
		}
		return 0, nil
	}

	exclude := NewIDSet(req.Exclude...)
	if len(req.UserIDs) > 0 {
		return c.BulkPublishToUsers(ctx, UserIDs(req.UserIDs...), req.Msg, exclude, req.ChannelContext)
	}
	return c.BulkPublishToScope(ctx, req.ScopeName, req.ScopeContext, req.Msg, exclude, req.ChannelContext)
}

// SchedulePublish stores req as a publish timer due at the message's
// DeliverNoEarlierThan, or now when it is unset.
func (c *Core) SchedulePublish(ctx context.Context, req PublishRequest) (Timer, error) {
	ts, ok := c.store.(TimerStore)
	if !ok {
		return Timer{}, fmt.Errorf("%w: timers", ErrStoreUnsupported)
	}
	if err := c.ValidateMessage(req.Msg); err != nil {
		return Timer{}, err
	}

	body, err := json.Marshal(req)
	if err != nil {
		return Timer{}, fmt.Errorf("%w: %w", ErrInvalidMessage, err)
	}
	at := c.clock.Now()
	if req.Msg.DeliverNoEarlierThan != nil {
		at = *req.Msg.DeliverNoEarlierThan
	}

	t, err := ts.SaveTimer(ctx, Timer{
		Name:       "publish-" + uuid.NewString(),
		CallbackAt: at,
		Callback:   PublishTimerCallback,
		Context:    map[string]any{timerRequestKey: string(body)},
		IsActive:   true,
	})
	if err != nil {
		return Timer{}, storeErr(err)
	}
	c.logger.LogAttrs(ctx, slog.LevelInfo, "publish scheduled",
		slog.String("timer", t.Name),
		logger.NotificationType(req.Msg.Type.Name),
		slog.Time("callback_at", at),
	)
	return t, nil
}

// PublishCallback returns the callback that delivers timers created by
// SchedulePublish.
func (c *Core) PublishCallback() TimerCallback {
	return TimerCallbackFunc(func(ctx context.Context, t Timer) (map[string]any, error) {
		raw, ok := t.Context[timerRequestKey].(string)
		if !ok {
			return nil, fmt.Errorf("%w: timer %q has no publish request", ErrInvalidMessage, t.Name)
		}
		var req PublishRequest
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			return nil, fmt.Errorf("%w: decode timer %q: %w", ErrInvalidMessage, t.Name, err)
		}
		req.Msg.DeliverNoEarlierThan = nil

		n, err := c.Publish(ctx, req)
		return map[string]any{"count": n}, err
	})
}
