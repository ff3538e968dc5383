package channels_test

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"github.com/dmitrymomot/notifycore/pkg/email"
	"github.com/dmitrymomot/notifycore/pkg/notifications"
)

var (
	errBoom  = errors.New("boom")
	fixedNow = time.Date(2024, time.March, 5, 14, 7, 0, 0, time.UTC)
)

func quiet() *slog.Logger { return slog.New(slog.DiscardHandler) }

func fixedClock() notifications.Clock {
	return notifications.ClockFunc(func() time.Time { return fixedNow })
}

var replyType = notifications.NotificationType{Name: "open-edx.lms.discussions.reply", Renderer: "reply-html"}

func replyMessage() notifications.Message {
	return notifications.Message{
		ID:   42,
		Type: replyType,
		Payload: notifications.Payload{
			"name":      "Ada",
			"thread_id": "abc",
			"subject":   "New reply",
		},
	}
}

type recordingSender struct {
	mu   sync.Mutex
	sent []email.SendEmailParams
	fail map[string]error
}

func (s *recordingSender) SendEmail(_ context.Context, p email.SendEmailParams) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.fail[p.SendTo]; err != nil {
		return err
	}
	s.sent = append(s.sent, p)
	return nil
}

type recordingPublisher struct {
	mu       sync.Mutex
	subjects []string
	bodies   [][]byte
	failFor  string
	flushErr error
	flushes  int
}

func (p *recordingPublisher) Publish(subject string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if subject == p.failFor {
		return errBoom
	}
	p.subjects = append(p.subjects, subject)
	p.bodies = append(p.bodies, data)
	return nil
}

func (p *recordingPublisher) FlushWithContext(context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.flushes++
	return p.flushErr
}
