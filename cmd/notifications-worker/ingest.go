package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/nats-io/nats.go"

	"github.com/dmitrymomot/notifycore/pkg/logger"
	"github.com/dmitrymomot/notifycore/pkg/notifications"
)

type publishReply struct {
	Count int    `json:"count"`
	Error string `json:"error,omitempty"`
}

type ingester struct {
	core   *notifications.Core
	logger *slog.Logger
}

// handle decodes a notifications.PublishRequest and publishes it.
func (i *ingester) handle(ctx context.Context, data []byte) (int, error) {
	var req notifications.PublishRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return 0, fmt.Errorf("decode publish request: %w", err)
	}
	return i.core.Publish(ctx, req)
}

// msgHandler answers request/reply publishers with a publishReply.
func (i *ingester) msgHandler(ctx context.Context) nats.MsgHandler {
	return func(m *nats.Msg) {
		n, err := i.handle(ctx, m.Data)
		reply := publishReply{Count: n}
		if err != nil {
			reply.Error = err.Error()
			i.logger.LogAttrs(ctx, slog.LevelError, "publish request failed",
				slog.String("subject", m.Subject),
				logger.Error(err),
			)
		}
		if m.Reply == "" {
			return
		}
		body, _ := json.Marshal(reply)
		if err := m.Respond(body); err != nil {
			i.logger.LogAttrs(ctx, slog.LevelWarn, "publish reply failed", logger.Error(err))
		}
	}
}
