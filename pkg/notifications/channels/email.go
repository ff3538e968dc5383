package channels

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/dmitrymomot/notifycore/pkg/email"
	"github.com/dmitrymomot/notifycore/pkg/email/templates"
	"github.com/dmitrymomot/notifycore/pkg/logger"
	"github.com/dmitrymomot/notifycore/pkg/notifications"
)

// EmailChannelName is the default name of EmailChannel.
const EmailChannelName = "email"

// SubjectKey is the payload key read for the email subject.
const SubjectKey = "subject"

// Address is where and in which language a user receives email.
type Address struct {
	Email    string
	Language string
}

// AddressBook looks up a user's email address. It returns ErrNoAddress for
// users that cannot receive email.
type AddressBook interface {
	Lookup(ctx context.Context, userID int64) (Address, error)
}

// AddressBookFunc adapts a function to AddressBook.
type AddressBookFunc func(ctx context.Context, userID int64) (Address, error)

func (f AddressBookFunc) Lookup(ctx context.Context, userID int64) (Address, error) {
	return f(ctx, userID)
}

// MessageRenderer renders messages and resolves their click links.
// *notifications.Core satisfies it.
type MessageRenderer interface {
	Render(ctx context.Context, msg notifications.Message, f notifications.Format, lang string) (string, error)
	ResolveLinks(ctx context.Context, msg notifications.Message) notifications.Message
}

// EmailChannel renders the HTML format of a message, wraps it in the email
// layout and sends it to each recipient. Delivery is best effort: a failed
// lookup, render or send is logged and the recipient is skipped.
type EmailChannel struct {
	base
	renderer  MessageRenderer
	addresses AddressBook
	sender    email.EmailSender
	subject   func(notifications.Message) string
	linkLabel string
}

var _ notifications.Channel = (*EmailChannel)(nil)

// NewEmailChannel returns an email channel.
func NewEmailChannel(renderer MessageRenderer, addresses AddressBook, sender email.EmailSender, opts ...Option) *EmailChannel {
	return &EmailChannel{
		base:      newBase(EmailChannelName, opts),
		renderer:  renderer,
		addresses: addresses,
		sender:    sender,
		subject:   DefaultSubject,
		linkLabel: "View",
	}
}

// WithSubjectFunc replaces DefaultSubject.
func (c *EmailChannel) WithSubjectFunc(fn func(notifications.Message) string) *EmailChannel {
	if fn != nil {
		c.subject = fn
	}
	return c
}

// DefaultSubject reads SubjectKey from the payload and falls back to
// "New notification".
func DefaultSubject(msg notifications.Message) string {
	if s, ok := msg.Payload[SubjectKey].(string); ok && s != "" {
		return s
	}
	return "New notification"
}

func (c *EmailChannel) DispatchToUser(ctx context.Context, userID int64, msg notifications.Message, _ map[string]any) (*notifications.UserNotification, error) {
	msg, ok := c.prepare(ctx, msg)
	if !ok {
		return nil, nil
	}
	if err := c.send(ctx, userID, c.renderer.ResolveLinks(ctx, msg)); err != nil {
		return nil, err
	}
	c.metrics.RecordDeliveries(c.name, 1)
	return nil, nil
}

// BulkDispatch returns the number of emails sent.
func (c *EmailChannel) BulkDispatch(ctx context.Context, userIDs notifications.UserIDStream, msg notifications.Message, exclude notifications.IDSet, _ map[string]any) (int, error) {
	msg, ok := c.prepare(ctx, msg)
	if !ok {
		return 0, nil
	}
	msg = c.renderer.ResolveLinks(ctx, msg)

	sent := 0
	err := each(userIDs, exclude, func(userID int64) {
		if err := c.send(ctx, userID, msg); err != nil {
			c.logger.LogAttrs(ctx, slog.LevelWarn, "email notification skipped",
				logger.UserID(userID),
				logger.NotificationType(msg.Type.Name),
				logger.Error(err),
			)
			return
		}
		sent++
	})
	c.metrics.RecordDeliveries(c.name, sent)
	return sent, err
}

func (c *EmailChannel) send(ctx context.Context, userID int64, msg notifications.Message) error {
	addr, err := c.addresses.Lookup(ctx, userID)
	if err != nil {
		return fmt.Errorf("lookup address: %w", err)
	}
	if addr.Email == "" {
		return ErrNoAddress
	}

	body, err := c.renderer.Render(ctx, msg, notifications.FormatHTML, addr.Language)
	if err != nil {
		return err
	}

	subject := c.subject(msg)
	html, err := templates.Render(ctx, templates.Layout(subject, body, msg.ClickLink, c.linkLabel))
	if err != nil {
		return fmt.Errorf("render layout: %w", err)
	}

	return c.sender.SendEmail(ctx, email.SendEmailParams{
		SendTo:   addr.Email,
		Subject:  subject,
		BodyHTML: html,
		Tag:      msg.Type.Name,
	})
}
